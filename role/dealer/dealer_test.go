// Copyright 2024 The trigflow Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package dealer

import (
	"bytes"
	"context"
	"encoding/binary"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/fribdaq/trigflow/record"
	"github.com/fribdaq/trigflow/transport"
	"github.com/fribdaq/trigflow/wire"
)

const (
	testDealer  = 0
	testFarmer  = 1
	testOutput  = 2
	testWorker  = 3
	numTestRank = 4
)

func buildRawRecord(t *testing.T, typeCode uint32, body []byte) []byte {
	t.Helper()
	total := record.HeaderSize + len(body)
	b := make([]byte, 0, total)
	var hdr [4]byte
	binary.LittleEndian.PutUint32(hdr[:], uint32(total))
	b = append(b, hdr[:]...)
	binary.LittleEndian.PutUint32(hdr[:], typeCode)
	b = append(b, hdr[:]...)
	binary.LittleEndian.PutUint32(hdr[:], 4)
	b = append(b, hdr[:]...)
	b = append(b, body...)
	return b
}

func testLogger() *logrus.Entry {
	l := logrus.New()
	l.SetLevel(logrus.PanicLevel)
	return logrus.NewEntry(l)
}

func request(ctx context.Context, t *testing.T, ep *transport.Endpoint, dest int) {
	t.Helper()
	if err := ep.Send(ctx, dest, transport.TagRequest, wire.EncodeRequest(wire.Request{Requestor: int32(ep.Rank())})); err != nil {
		t.Fatalf("request: %v", err)
	}
}

func TestRunRawSendsBlockThenEof(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var in bytes.Buffer
	in.Write(buildRawRecord(t, DefaultPhysicsType, []byte{1, 2, 3, 4}))
	in.Write(buildRawRecord(t, 99, []byte{5, 6}))
	in.Write(buildRawRecord(t, DefaultPhysicsType, []byte{7, 8, 9, 10}))

	fabric := transport.NewFabric(numTestRank, 64)
	done := make(chan error, 1)
	go func() {
		done <- RunRaw(ctx, fabric.Endpoint(testDealer), &in, 65536, DefaultPhysicsType, testLogger())
	}()

	workerEp := fabric.Endpoint(testWorker)

	request(ctx, t, workerEp, testDealer)
	env, err := workerEp.ReceiveTag(ctx, testDealer, transport.TagHeader)
	if err != nil {
		t.Fatalf("receive header: %v", err)
	}
	hdr, err := wire.DecodeMessageHeader(env.Payload)
	if err != nil {
		t.Fatalf("decode header: %v", err)
	}
	if hdr.End {
		t.Fatalf("first reply should not be an end sentinel")
	}
	if hdr.BlockNum != 0 {
		t.Fatalf("BlockNum = %d, want 0", hdr.BlockNum)
	}
	dataEnv, err := workerEp.ReceiveTag(ctx, testDealer, transport.TagData)
	if err != nil {
		t.Fatalf("receive data: %v", err)
	}
	if uint32(len(dataEnv.Payload)) != hdr.NBytes {
		t.Fatalf("payload length = %d, want %d", len(dataEnv.Payload), hdr.NBytes)
	}

	request(ctx, t, workerEp, testDealer)
	env, err = workerEp.ReceiveTag(ctx, testDealer, transport.TagHeader)
	if err != nil {
		t.Fatalf("receive eof header: %v", err)
	}
	hdr, err = wire.DecodeMessageHeader(env.Payload)
	if err != nil {
		t.Fatalf("decode eof header: %v", err)
	}
	if !hdr.End {
		t.Fatalf("second reply should be an end sentinel")
	}

	if err := <-done; err != nil {
		t.Fatalf("RunRaw: %v", err)
	}
}

func TestRunParameterInputBroadcastsThenRoutes(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	defsRecord := record.EncodeParameterDefs([]record.ParamDef{{ID: 1, Name: "e"}})
	varsRecord := record.EncodeVariables([]record.Variable{{Value: 1.5, Units: "mm", Name: "run"}})
	dataRecord := record.EncodeParameterData(7, []record.ParamValue{{ID: 1, Value: 42}})
	passthroughRecord := buildRawRecord(t, 99, []byte{0xAA, 0xBB})

	var in bytes.Buffer
	in.Write(defsRecord)
	in.Write(varsRecord)
	in.Write(dataRecord)
	in.Write(passthroughRecord)

	fabric := transport.NewFabric(numTestRank, 64)
	done := make(chan error, 1)
	go func() {
		done <- RunParameterInput(ctx, fabric.Endpoint(testDealer), &in, 65536, testLogger())
	}()

	workerEp := fabric.Endpoint(testWorker)
	outputEp := fabric.Endpoint(testOutput)

	countEnv, err := workerEp.ReceiveTag(ctx, testDealer, transport.TagParamDef)
	if err != nil {
		t.Fatalf("receive paramdef count: %v", err)
	}
	if n := binary.LittleEndian.Uint32(countEnv.Payload); n != 1 {
		t.Fatalf("paramdef count = %d, want 1", n)
	}
	defEnv, err := workerEp.ReceiveTag(ctx, testDealer, transport.TagParamDef)
	if err != nil {
		t.Fatalf("receive paramdef array: %v", err)
	}
	defs, err := wire.DecodeParameterDefs(defEnv.Payload, 1)
	if err != nil {
		t.Fatalf("decode paramdefs: %v", err)
	}
	if defs[0].Name != "e" || defs[0].ID != 1 {
		t.Fatalf("unexpected paramdef: %+v", defs[0])
	}

	vcountEnv, err := workerEp.ReceiveTag(ctx, testDealer, transport.TagVariables)
	if err != nil {
		t.Fatalf("receive variables count: %v", err)
	}
	if n := binary.LittleEndian.Uint32(vcountEnv.Payload); n != 1 {
		t.Fatalf("variables count = %d, want 1", n)
	}
	varEnv, err := workerEp.ReceiveTag(ctx, testDealer, transport.TagVariables)
	if err != nil {
		t.Fatalf("receive variables array: %v", err)
	}
	vars, err := wire.DecodeVariableDefs(varEnv.Payload, 1)
	if err != nil {
		t.Fatalf("decode variabledefs: %v", err)
	}
	if vars[0].Name != "run" || vars[0].Units != "mm" {
		t.Fatalf("unexpected variable def: %+v", vars[0])
	}

	request(ctx, t, workerEp, testDealer)
	hdrEnv, err := workerEp.ReceiveTag(ctx, testDealer, transport.TagHeader)
	if err != nil {
		t.Fatalf("receive parameter header: %v", err)
	}
	phdr, err := wire.DecodeParameterHeader(hdrEnv.Payload)
	if err != nil {
		t.Fatalf("decode parameter header: %v", err)
	}
	if phdr.End || phdr.TriggerNumber != 7 || phdr.NumParameters != 1 {
		t.Fatalf("unexpected parameter header: %+v", phdr)
	}
	dataEnv, err := workerEp.ReceiveTag(ctx, testDealer, transport.TagData)
	if err != nil {
		t.Fatalf("receive parameter data: %v", err)
	}
	vals, err := wire.DecodeParamValues(dataEnv.Payload, phdr.NumParameters)
	if err != nil {
		t.Fatalf("decode param values: %v", err)
	}
	if vals[0].Number != 1 || vals[0].Value != 42 {
		t.Fatalf("unexpected param value: %+v", vals[0])
	}

	ptHdrEnv, err := outputEp.ReceiveTag(ctx, testDealer, transport.TagPassthrough)
	if err != nil {
		t.Fatalf("receive passthrough header: %v", err)
	}
	pthdr, err := wire.DecodeParameterHeader(ptHdrEnv.Payload)
	if err != nil {
		t.Fatalf("decode passthrough header: %v", err)
	}
	ptDataEnv, err := outputEp.ReceiveTag(ctx, testDealer, transport.TagData)
	if err != nil {
		t.Fatalf("receive passthrough data: %v", err)
	}
	if uint32(len(ptDataEnv.Payload)) != pthdr.NumParameters {
		t.Fatalf("passthrough payload length = %d, want %d", len(ptDataEnv.Payload), pthdr.NumParameters)
	}
	if !bytes.Equal(ptDataEnv.Payload, passthroughRecord) {
		t.Fatalf("passthrough payload not forwarded verbatim")
	}

	request(ctx, t, workerEp, testDealer)
	endEnv, err := workerEp.ReceiveTag(ctx, testDealer, transport.TagHeader)
	if err != nil {
		t.Fatalf("receive end header: %v", err)
	}
	endHdr, err := wire.DecodeParameterHeader(endEnv.Payload)
	if err != nil {
		t.Fatalf("decode end header: %v", err)
	}
	if !endHdr.End {
		t.Fatalf("expected end-flagged parameter header")
	}

	ptEndEnv, err := outputEp.ReceiveTag(ctx, testDealer, transport.TagEnd)
	if err != nil {
		t.Fatalf("receive outputter end sentinel: %v", err)
	}
	if len(ptEndEnv.Payload) != 0 {
		t.Fatalf("outputter end sentinel should carry no payload, got %d bytes", len(ptEndEnv.Payload))
	}

	if err := <-done; err != nil {
		t.Fatalf("RunParameterInput: %v", err)
	}
}
