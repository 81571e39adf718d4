// Copyright 2024 The trigflow Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package dealer

import (
	"context"
	"encoding/binary"
	"io"

	"github.com/sirupsen/logrus"

	"github.com/fribdaq/trigflow/record"
	"github.com/fribdaq/trigflow/transport"
	"github.com/fribdaq/trigflow/trigerr"
	"github.com/fribdaq/trigflow/wire"
)

// RunParameterInput drives rank 0 for the parameter-input pipeline
// variant, grounded on MPIParameterDealer.cpp. The input file's
// leading parameter-definitions and variable-values records are
// pushed unconditionally to every Worker before any data flows.
// Thereafter each TypeParameterData record is handed to a requesting
// Worker; every other record is opaque and forwarded directly to the
// Outputter, bypassing the Workers entirely (sendPassthrough).
func RunParameterInput(ctx context.Context, ep *transport.Endpoint, src io.Reader, blockSize int, log *logrus.Entry) error {
	r := record.NewBufferedReader(src, blockSize)

	block, err := r.Acquire(blockSize)
	if err == io.EOF {
		if err := sendOutputterEnd(ctx, ep); err != nil {
			return err
		}
		return sendParamEofs(ctx, ep, log)
	}
	if err != nil {
		return err
	}
	if block.Count < 2 {
		return trigerr.Wrap(trigerr.Structural, "input must begin with parameter-definitions and variable-values records")
	}

	defsRec, rest, err := splitFirstRecord(block.Bytes)
	if err != nil {
		return err
	}
	varsRec, rest, err := splitFirstRecord(rest)
	if err != nil {
		return err
	}
	defs, err := decodeParamDefsRecord(defsRec)
	if err != nil {
		return err
	}
	vars, err := decodeVariablesRecord(varsRec)
	if err != nil {
		return err
	}
	if err := broadcastDefinitions(ctx, ep, defs.Params, vars.Vars, log); err != nil {
		return err
	}

	remaining := rest
	itemsLeft := block.Count - 2

	for {
		if itemsLeft == 0 {
			if err := r.Release(); err != nil {
				return err
			}
			block, err = r.Acquire(blockSize)
			if err == io.EOF {
				break
			}
			if err != nil {
				return err
			}
			remaining = block.Bytes
			itemsLeft = block.Count
			continue
		}

		hdr, err := record.DecodeHeader(remaining)
		if err != nil {
			return err
		}
		recBytes := remaining[:hdr.Size]

		if hdr.TypeCode == record.TypeParameterData {
			if err := sendWorkItem(ctx, ep, recBytes); err != nil {
				return err
			}
		} else {
			if err := sendPassthrough(ctx, ep, recBytes); err != nil {
				return err
			}
		}

		remaining = remaining[hdr.Size:]
		itemsLeft--
	}

	if err := sendOutputterEnd(ctx, ep); err != nil {
		return err
	}
	return sendParamEofs(ctx, ep, log)
}

// sendOutputterEnd tells the Outputter this Dealer is done sending
// passthrough records directly to it, bypassing the Farmer. The
// Outputter needs this in addition to the Farmer's own end sentinel:
// a ReceiveAny fan-in has no cross-channel ordering guarantee, so the
// Farmer's end could otherwise be selected before passthrough records
// already queued on this Dealer's channel are drained.
func sendOutputterEnd(ctx context.Context, ep *transport.Endpoint) error {
	return ep.Send(ctx, transport.RankOutputter, transport.TagEnd, nil)
}

// splitFirstRecord peels the first whole record off buf and returns
// the rest.
func splitFirstRecord(buf []byte) (recBytes, rest []byte, err error) {
	hdr, err := record.DecodeHeader(buf)
	if err != nil {
		return nil, nil, err
	}
	if int(hdr.Size) > len(buf) {
		return nil, nil, trigerr.Wrap(trigerr.Structural, "record header claims %d bytes but only %d are buffered", hdr.Size, len(buf))
	}
	return buf[:hdr.Size], buf[hdr.Size:], nil
}

func decodeParamDefsRecord(rec []byte) (record.ParameterDefs, error) {
	hdr, err := record.DecodeHeader(rec)
	if err != nil {
		return record.ParameterDefs{}, err
	}
	if hdr.TypeCode != record.TypeParameterDefs {
		return record.ParameterDefs{}, trigerr.Wrap(trigerr.Structural, "expected parameter-definitions record, got type %d", hdr.TypeCode)
	}
	return record.DecodeParameterDefs(rec[record.HeaderSize:])
}

func decodeVariablesRecord(rec []byte) (record.Variables, error) {
	hdr, err := record.DecodeHeader(rec)
	if err != nil {
		return record.Variables{}, err
	}
	if hdr.TypeCode != record.TypeVariableValues {
		return record.Variables{}, trigerr.Wrap(trigerr.Structural, "expected variable-values record, got type %d", hdr.TypeCode)
	}
	return record.DecodeVariables(rec[record.HeaderSize:])
}

// broadcastDefinitions pushes the parameter and variable definitions
// to every Worker, a count message followed by the array (only when
// non-empty), mirroring AbstractApplication::sendAll.
func broadcastDefinitions(ctx context.Context, ep *transport.Endpoint, defs []record.ParamDef, vars []record.Variable, log *logrus.Entry) error {
	wireDefs := make([]wire.ParameterDef, len(defs))
	for i, d := range defs {
		wireDefs[i] = wire.ParameterDef{ID: uint64(d.ID), Name: d.Name}
	}
	wireVars := make([]wire.VariableDef, len(vars))
	for i, v := range vars {
		wireVars[i] = wire.VariableDef{Name: v.Name, Units: v.Units, Value: v.Value}
	}

	log.WithField("params", len(defs)).WithField("vars", len(vars)).Debug("broadcasting definitions")

	for w := transport.FirstWorkerRank; w < ep.NumRanks(); w++ {
		if err := ep.Send(ctx, w, transport.TagParamDef, countBytes(len(defs))); err != nil {
			return err
		}
		if len(defs) > 0 {
			if err := ep.Send(ctx, w, transport.TagParamDef, wire.EncodeParameterDefs(wireDefs)); err != nil {
				return err
			}
		}
	}
	for w := transport.FirstWorkerRank; w < ep.NumRanks(); w++ {
		if err := ep.Send(ctx, w, transport.TagVariables, countBytes(len(vars))); err != nil {
			return err
		}
		if len(vars) > 0 {
			if err := ep.Send(ctx, w, transport.TagVariables, wire.EncodeVariableDefs(wireVars)); err != nil {
				return err
			}
		}
	}
	return nil
}

func countBytes(n int) []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, uint32(n))
	return b
}

// sendWorkItem hands one trigger's worth of parameter data to the next
// requesting Worker.
func sendWorkItem(ctx context.Context, ep *transport.Endpoint, recBytes []byte) error {
	pd, err := record.DecodeParameterData(recBytes[record.HeaderSize:])
	if err != nil {
		return err
	}
	dest, err := nextRequestor(ctx, ep)
	if err != nil {
		return err
	}
	hdr := wire.ParameterHeader{TriggerNumber: pd.Trigger, NumParameters: uint32(len(pd.Params)), End: false}
	if err := ep.Send(ctx, dest, transport.TagHeader, wire.EncodeParameterHeader(hdr)); err != nil {
		return err
	}
	vals := make([]wire.ParamValue, len(pd.Params))
	for i, p := range pd.Params {
		vals[i] = wire.ParamValue{Number: p.ID, Value: p.Value}
	}
	return ep.Send(ctx, dest, transport.TagData, wire.EncodeParamValues(vals))
}

// sendPassthrough forwards an opaque record directly to the
// Outputter, bypassing Workers (MPIParameterDealer::sendPassthrough /
// AbstractApplication::forwardPassThrough).
func sendPassthrough(ctx context.Context, ep *transport.Endpoint, recBytes []byte) error {
	hdr := wire.ParameterHeader{NumParameters: uint32(len(recBytes))}
	if err := ep.Send(ctx, transport.RankOutputter, transport.TagPassthrough, wire.EncodeParameterHeader(hdr)); err != nil {
		return err
	}
	return ep.Send(ctx, transport.RankOutputter, transport.TagData, recBytes)
}

// sendParamEofs answers every remaining Request with an end-flagged
// HEADER-only reply, one per worker.
func sendParamEofs(ctx context.Context, ep *transport.Endpoint, log *logrus.Entry) error {
	for i := 0; i < ep.NumWorkers(); i++ {
		dest, err := nextRequestor(ctx, ep)
		if err != nil {
			return err
		}
		log.WithField("worker", dest).Debug("sending end sentinel")
		hdr := wire.ParameterHeader{End: true}
		if err := ep.Send(ctx, dest, transport.TagHeader, wire.EncodeParameterHeader(hdr)); err != nil {
			return err
		}
	}
	return nil
}
