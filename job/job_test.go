// Copyright 2024 The trigflow Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package job

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/fribdaq/trigflow/record"
)

func writeTempInput(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "input.dat")

	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create input: %v", err)
	}
	defer f.Close()

	f.Write(record.EncodeParameterDefs([]record.ParamDef{{ID: 1, Name: "e"}}))
	f.Write(record.EncodeVariables([]record.Variable{{Value: 1.0, Units: "s", Name: "run"}}))
	for trigger := uint64(0); trigger < 3; trigger++ {
		f.Write(record.EncodeParameterData(trigger, []record.ParamValue{{ID: 1, Value: float64(trigger) * 10}}))
	}
	return path
}

func TestRunParameterInputEndToEnd(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	inputPath := writeTempInput(t)
	outputPath := filepath.Join(t.TempDir(), "output.dat")

	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)

	cfg := Config{
		InputPath:  inputPath,
		OutputPath: outputPath,
		NumRanks:   4,
		Mode:       ModeParameterInput,
	}
	if err := Run(ctx, cfg, log); err != nil {
		t.Fatalf("Run: %v", err)
	}

	out, err := os.Open(outputPath)
	if err != nil {
		t.Fatalf("open output: %v", err)
	}
	defer out.Close()

	r := record.NewBufferedReader(out, 1<<20)
	block, err := r.Acquire(1 << 20)
	if err != nil {
		t.Fatalf("acquire output: %v", err)
	}
	if block.Count != 5 {
		t.Fatalf("record count = %d, want 5 (defs, vars, 3 events)", block.Count)
	}

	off := 0
	hdr, err := record.DecodeHeader(block.Bytes[off:])
	if err != nil {
		t.Fatalf("decode header 0: %v", err)
	}
	if hdr.TypeCode != record.TypeParameterDefs {
		t.Fatalf("record 0 type = %d, want TypeParameterDefs", hdr.TypeCode)
	}
	defs, err := record.DecodeParameterDefs(block.Bytes[off+record.HeaderSize : off+int(hdr.Size)])
	if err != nil {
		t.Fatalf("decode defs: %v", err)
	}
	if len(defs.Params) != 1 || defs.Params[0].Name != "e" {
		t.Fatalf("unexpected defs: %+v", defs.Params)
	}
	off += int(hdr.Size)

	hdr, err = record.DecodeHeader(block.Bytes[off:])
	if err != nil {
		t.Fatalf("decode header 1: %v", err)
	}
	if hdr.TypeCode != record.TypeVariableValues {
		t.Fatalf("record 1 type = %d, want TypeVariableValues", hdr.TypeCode)
	}
	off += int(hdr.Size)

	wantTrigger := uint64(0)
	for i := 0; i < 3; i++ {
		hdr, err = record.DecodeHeader(block.Bytes[off:])
		if err != nil {
			t.Fatalf("decode event header %d: %v", i, err)
		}
		if hdr.TypeCode != record.TypeParameterData {
			t.Fatalf("event %d type = %d, want TypeParameterData", i, hdr.TypeCode)
		}
		pd, err := record.DecodeParameterData(block.Bytes[off+record.HeaderSize : off+int(hdr.Size)])
		if err != nil {
			t.Fatalf("decode event %d: %v", i, err)
		}
		if pd.Trigger != wantTrigger {
			t.Fatalf("event %d trigger = %d, want %d", i, pd.Trigger, wantTrigger)
		}
		if len(pd.Params) != 1 || pd.Params[0].Value != float64(wantTrigger)*10 {
			t.Fatalf("event %d params = %+v", i, pd.Params)
		}
		off += int(hdr.Size)
		wantTrigger++
	}
}

func TestRunRejectsTooFewRanks(t *testing.T) {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)

	cfg := Config{NumRanks: 3}
	err := Run(context.Background(), cfg, log)
	if err == nil {
		t.Fatal("expected a ConfigError for NumRanks < 4")
	}
}
