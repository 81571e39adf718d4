// Copyright 2024 The trigflow Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package job

import (
	"context"
	"os"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/fribdaq/trigflow/record"
	"github.com/fribdaq/trigflow/role/dealer"
	"github.com/fribdaq/trigflow/role/farmer"
	"github.com/fribdaq/trigflow/role/outputter"
	"github.com/fribdaq/trigflow/role/worker"
	"github.com/fribdaq/trigflow/transport"
	"github.com/fribdaq/trigflow/treeparam"
	"github.com/fribdaq/trigflow/trigerr"
)

// Mode selects which Dealer/Worker variant a job runs (spec §4.3/§4.4).
// The input file's shape determines the correct mode, but nothing in
// the wire protocol lets a Worker discover it on its own, so the job
// driver carries it explicitly and applies it uniformly to the Dealer
// and every Worker.
type Mode int

const (
	// ModeRaw: input is a stream of opaque records; physics records
	// are unpacked into tree parameters by user code.
	ModeRaw Mode = iota
	// ModeParameterInput: input begins with parameter/variable
	// definitions and carries already-sparse parameter-data records.
	ModeParameterInput
)

// DefaultBlockSize is the Dealer's default read/acquire budget.
const DefaultBlockSize = 64 << 10

// FabricBufSize bounds how many in-flight messages one rank pair may
// buffer before Send blocks (spec §5's natural back-pressure).
const FabricBufSize = 64

// Config describes one job: its I/O, rank count, variant, and the
// user-supplied analysis hooks spec.md §1 calls out as an external
// collaborator.
type Config struct {
	InputPath  string
	OutputPath string
	BlockSize  int
	NumRanks   int
	Mode       Mode

	// PhysicsType is the raw variant's opaque record type code that
	// counts as one trigger. Defaults to dealer.DefaultPhysicsType.
	PhysicsType uint32

	// Seed pre-registers named tree parameters identically in every
	// Worker's registry and the Outputter's registry before the job
	// starts, for the raw variant only. It stands in for the original
	// system's static per-process tree-parameter declarations, which
	// every MPI process (Worker and Outputter alike) compiled in
	// identically; this job runs all roles from one binary, so the
	// same seed function is applied uniformly instead.
	Seed func(reg *treeparam.Registry)

	// Variables seeds the Outputter's preamble variable table for the
	// raw variant, which has no variable-values record of its own in
	// the input stream.
	Variables []record.Variable

	// Unpack is user code for the raw-to-parameter Worker: given one
	// physics record's bytes, assign tree parameters on reg.
	Unpack worker.Unpacker

	// Process is user code for the parameter-to-parameter Worker: runs
	// once per event after incoming parameters are loaded.
	Process worker.Process

	// Extra carries optional positional CLI args for user extensions
	// (spec §6); the core pipeline never inspects them.
	Extra []string
}

// Run builds the fabric, launches every rank, and blocks until the
// job completes or any role returns a fatal error.
func Run(ctx context.Context, cfg Config, log *logrus.Logger) error {
	if cfg.NumRanks < 4 {
		err := trigerr.Wrap(trigerr.Config, "need at least 4 ranks (dealer, farmer, outputter, >=1 worker), got %d", cfg.NumRanks)
		return trigerr.Annotate("dealer", transport.RankDealer, err)
	}

	blockSize := cfg.BlockSize
	if blockSize <= 0 {
		blockSize = DefaultBlockSize
	}
	physicsType := cfg.PhysicsType
	if physicsType == 0 {
		physicsType = dealer.DefaultPhysicsType
	}

	outDefs, outVars, err := outputterPreamble(cfg, blockSize)
	if err != nil {
		return trigerr.Annotate("outputter", transport.RankOutputter, err)
	}

	fabric := transport.NewFabric(cfg.NumRanks, FabricBufSize)
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return annotate("dealer", transport.RankDealer, runDealer(gctx, fabric, cfg, blockSize, physicsType, log))
	})
	g.Go(func() error {
		entry := roleLog(log, "farmer", transport.RankFarmer)
		return annotate("farmer", transport.RankFarmer, farmer.Run(gctx, fabric.Endpoint(transport.RankFarmer), entry))
	})
	g.Go(func() error {
		return annotate("outputter", transport.RankOutputter, runOutputter(gctx, fabric, cfg, outDefs, outVars, log))
	})
	for rank := transport.FirstWorkerRank; rank < cfg.NumRanks; rank++ {
		rank := rank
		g.Go(func() error {
			return annotate("worker", rank, runWorker(gctx, fabric, rank, cfg, physicsType, log))
		})
	}

	return g.Wait()
}

func runDealer(ctx context.Context, fabric *transport.Fabric, cfg Config, blockSize int, physicsType uint32, log *logrus.Logger) error {
	f, err := os.Open(cfg.InputPath)
	if err != nil {
		return trigerr.WrapErr(trigerr.IO, err, "opening input file")
	}
	defer f.Close()

	ep := fabric.Endpoint(transport.RankDealer)
	entry := roleLog(log, "dealer", transport.RankDealer)

	if cfg.Mode == ModeParameterInput {
		return dealer.RunParameterInput(ctx, ep, f, blockSize, entry)
	}
	return dealer.RunRaw(ctx, ep, f, blockSize, physicsType, entry)
}

func runWorker(ctx context.Context, fabric *transport.Fabric, rank int, cfg Config, physicsType uint32, log *logrus.Logger) error {
	ep := fabric.Endpoint(rank)
	entry := roleLog(log, "worker", rank)
	reg := treeparam.NewRegistry()

	if cfg.Mode == ModeParameterInput {
		process := cfg.Process
		if process == nil {
			process = func(*worker.Context) error { return nil }
		}
		return worker.RunParametersToParameters(ctx, ep, reg, process, entry)
	}

	if cfg.Seed != nil {
		cfg.Seed(reg)
	}
	unpack := cfg.Unpack
	if unpack == nil {
		unpack = func(*treeparam.Registry, []byte) error { return nil }
	}
	return worker.RunRawToParameters(ctx, ep, reg, physicsType, unpack, entry)
}

func runOutputter(ctx context.Context, fabric *transport.Fabric, cfg Config, defs []record.ParamDef, vars []record.Variable, log *logrus.Logger) error {
	f, err := os.Create(cfg.OutputPath)
	if err != nil {
		return trigerr.WrapErr(trigerr.IO, err, "creating output file")
	}
	defer f.Close()

	entry := roleLog(log, "outputter", transport.RankOutputter)
	return outputter.Run(ctx, fabric.Endpoint(transport.RankOutputter), defs, vars, f, outputterWantEnds(cfg), entry)
}

// outputterWantEnds is the number of distinct end sentinels the
// Outputter must see before it can safely stop: the Farmer always
// sends exactly one, plus one per rank that bypasses the Farmer to
// forward passthrough records directly — the Dealer alone in the
// parameter-input variant, or every Worker in the raw variant.
func outputterWantEnds(cfg Config) int {
	if cfg.Mode == ModeParameterInput {
		return 2
	}
	return 1 + (cfg.NumRanks - transport.FirstWorkerRank)
}

// outputterPreamble determines the definitions the Outputter writes on
// startup: for the parameter-input variant, the file's own leading two
// records; for the raw variant, the seeded registry and configured
// variable table.
func outputterPreamble(cfg Config, blockSize int) ([]record.ParamDef, []record.Variable, error) {
	if cfg.Mode == ModeParameterInput {
		return peekDefinitions(cfg.InputPath, blockSize)
	}

	reg := treeparam.NewRegistry()
	if cfg.Seed != nil {
		cfg.Seed(reg)
	}
	return registryDefs(reg), cfg.Variables, nil
}

// peekDefinitions reads the parameter-definitions and variable-values
// records directly from the front of path, independent of the
// Dealer's own buffered reader, so the Outputter can seed its preamble
// without racing the Dealer for ownership of the input file.
func peekDefinitions(path string, blockSize int) ([]record.ParamDef, []record.Variable, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, trigerr.WrapErr(trigerr.IO, err, "opening input file to read definitions")
	}
	defer f.Close()

	r := record.NewBufferedReader(f, blockSize)
	block, err := r.Acquire(blockSize)
	if err != nil {
		return nil, nil, err
	}
	if block.Count < 2 {
		return nil, nil, trigerr.Wrap(trigerr.Structural, "input must begin with parameter-definitions and variable-values records")
	}

	hdr1, err := record.DecodeHeader(block.Bytes)
	if err != nil {
		return nil, nil, err
	}
	if hdr1.TypeCode != record.TypeParameterDefs {
		return nil, nil, trigerr.Wrap(trigerr.Structural, "expected parameter-definitions record, got type %d", hdr1.TypeCode)
	}
	rec1 := block.Bytes[:hdr1.Size]
	defs, err := record.DecodeParameterDefs(rec1[record.HeaderSize:])
	if err != nil {
		return nil, nil, err
	}

	rest := block.Bytes[hdr1.Size:]
	hdr2, err := record.DecodeHeader(rest)
	if err != nil {
		return nil, nil, err
	}
	if hdr2.TypeCode != record.TypeVariableValues {
		return nil, nil, trigerr.Wrap(trigerr.Structural, "expected variable-values record, got type %d", hdr2.TypeCode)
	}
	rec2 := rest[:hdr2.Size]
	vars, err := record.DecodeVariables(rec2[record.HeaderSize:])
	if err != nil {
		return nil, nil, err
	}

	return defs.Params, vars.Vars, nil
}

func registryDefs(reg *treeparam.Registry) []record.ParamDef {
	defs := reg.Definitions()
	out := make([]record.ParamDef, len(defs))
	for i, d := range defs {
		out[i] = record.ParamDef{ID: d.ID, Name: d.Name}
	}
	return out
}

func roleLog(log *logrus.Logger, role string, rank int) *logrus.Entry {
	return log.WithField("role", role).WithField("rank", rank)
}

func annotate(role string, rank int, err error) error {
	if err == nil {
		return nil
	}
	return trigerr.Annotate(role, rank, err)
}
