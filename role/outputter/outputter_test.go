// Copyright 2024 The trigflow Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package outputter

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/fribdaq/trigflow/record"
	"github.com/fribdaq/trigflow/transport"
	"github.com/fribdaq/trigflow/wire"
)

const (
	testFarmer  = 1
	testOutput  = 2
	testDealer  = 0
	numTestRank = 4
)

func TestOutputterPreambleThenEventsThenEnd(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	fabric := transport.NewFabric(numTestRank, 64)
	log := logrus.NewEntry(logrus.New())
	var out bytes.Buffer

	defs := []record.ParamDef{{ID: 1, Name: "e"}}
	vars := []record.Variable{{Value: 2.0, Units: "mm", Name: "v"}}

	done := make(chan error, 1)
	go func() {
		done <- Run(ctx, fabric.Endpoint(testOutput), defs, vars, &out, 2, log)
	}()

	farmerEp := fabric.Endpoint(testFarmer)
	dealerEp := fabric.Endpoint(testDealer)

	hdr := wire.ParameterHeader{TriggerNumber: 0, NumParameters: 1, End: false}
	farmerEp.Send(ctx, testOutput, transport.TagHeader, wire.EncodeParameterHeader(hdr))
	farmerEp.Send(ctx, testOutput, transport.TagData, wire.EncodeParamValues([]wire.ParamValue{{Number: 1, Value: 9}}))

	passthru := record.EncodeParameterData(999, nil) // any well-formed record works as opaque bytes
	pthdr := wire.ParameterHeader{NumParameters: uint32(len(passthru))}
	dealerEp.Send(ctx, testOutput, transport.TagPassthrough, wire.EncodeParameterHeader(pthdr))
	dealerEp.Send(ctx, testOutput, transport.TagData, passthru)

	// The Farmer's end sentinel arrives first here on purpose: Run must
	// not terminate until the Dealer's own end sentinel also arrives,
	// proving the already-queued passthrough record above was drained
	// rather than raced past.
	farmerEp.Send(ctx, testOutput, transport.TagEnd, nil)
	dealerEp.Send(ctx, testOutput, transport.TagEnd, nil)

	if err := <-done; err != nil {
		t.Fatalf("Run: %v", err)
	}

	r := record.NewBufferedReader(bytes.NewReader(out.Bytes()), 65536)
	block, err := r.Acquire(65536)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if block.Count != 4 {
		t.Fatalf("Count = %d, want 4 (defs, vars, event, passthrough)", block.Count)
	}

	h0, _ := record.DecodeHeader(block.Bytes)
	if h0.TypeCode != record.TypeParameterDefs {
		t.Fatalf("first record type = %d, want TypeParameterDefs", h0.TypeCode)
	}
}
