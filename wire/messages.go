// Copyright 2024 The trigflow Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package wire

import (
	"encoding/binary"
	"math"

	"github.com/fribdaq/trigflow/trigerr"
)

// Request is sent by a Worker asking the Dealer for more work (spec
// §5's REQUEST message).
type Request struct {
	Requestor int32
	MaxData   int32
}

const requestSize = 4 + 4

func EncodeRequest(r Request) []byte {
	b := make([]byte, requestSize)
	binary.LittleEndian.PutUint32(b[0:4], uint32(r.Requestor))
	binary.LittleEndian.PutUint32(b[4:8], uint32(r.MaxData))
	return b
}

func DecodeRequest(b []byte) (Request, error) {
	if len(b) < requestSize {
		return Request{}, trigerr.Wrap(trigerr.Structural, "request message truncated")
	}
	return Request{
		Requestor: int32(binary.LittleEndian.Uint32(b[0:4])),
		MaxData:   int32(binary.LittleEndian.Uint32(b[4:8])),
	}, nil
}

// MessageHeader precedes a raw block of passthrough bytes sent from
// the Dealer to a Worker (spec §5's HEADER/DATA messages).
type MessageHeader struct {
	NBytes   uint32
	BlockNum uint32
	End      bool
}

const messageHeaderSize = 4 + 4 + 1

func EncodeMessageHeader(h MessageHeader) []byte {
	b := make([]byte, messageHeaderSize)
	binary.LittleEndian.PutUint32(b[0:4], h.NBytes)
	binary.LittleEndian.PutUint32(b[4:8], h.BlockNum)
	b[8] = boolByte(h.End)
	return b
}

func DecodeMessageHeader(b []byte) (MessageHeader, error) {
	if len(b) < messageHeaderSize {
		return MessageHeader{}, trigerr.Wrap(trigerr.Structural, "message header truncated")
	}
	return MessageHeader{
		NBytes:   binary.LittleEndian.Uint32(b[0:4]),
		BlockNum: binary.LittleEndian.Uint32(b[4:8]),
		End:      b[8] != 0,
	}, nil
}

// ParameterHeader precedes a DATA block of parameter (number, value)
// pairs under the HEADER tag (Dealer to Worker, Worker to Farmer,
// Farmer to Outputter). Under the PASSTHROUGH tag it precedes an
// opaque record instead, and NumParameters holds that record's byte
// length.
type ParameterHeader struct {
	TriggerNumber uint64
	NumParameters uint32
	End           bool
}

const parameterHeaderSize = 8 + 4 + 1

func EncodeParameterHeader(h ParameterHeader) []byte {
	b := make([]byte, parameterHeaderSize)
	binary.LittleEndian.PutUint64(b[0:8], h.TriggerNumber)
	binary.LittleEndian.PutUint32(b[8:12], h.NumParameters)
	b[12] = boolByte(h.End)
	return b
}

func DecodeParameterHeader(b []byte) (ParameterHeader, error) {
	if len(b) < parameterHeaderSize {
		return ParameterHeader{}, trigerr.Wrap(trigerr.Structural, "parameter header truncated")
	}
	return ParameterHeader{
		TriggerNumber: binary.LittleEndian.Uint64(b[0:8]),
		NumParameters: binary.LittleEndian.Uint32(b[8:12]),
		End:           b[12] != 0,
	}, nil
}

// ParamValue is one (parameter id, value) pair within a parameter
// message body.
type ParamValue struct {
	Number uint32
	Value  float64
}

const paramValueSize = 4 + 8

// EncodeParamValues appends n little-endian (number, value) pairs.
func EncodeParamValues(vals []ParamValue) []byte {
	b := make([]byte, 0, len(vals)*paramValueSize)
	var tmp [paramValueSize]byte
	for _, v := range vals {
		binary.LittleEndian.PutUint32(tmp[0:4], v.Number)
		binary.LittleEndian.PutUint64(tmp[4:12], math.Float64bits(v.Value))
		b = append(b, tmp[:]...)
	}
	return b
}

// DecodeParamValues parses exactly n (number, value) pairs from b.
func DecodeParamValues(b []byte, n uint32) ([]ParamValue, error) {
	if len(b) < int(n)*paramValueSize {
		return nil, trigerr.Wrap(trigerr.Structural, "parameter value block truncated: want %d entries", n)
	}
	out := make([]ParamValue, n)
	for i := uint32(0); i < n; i++ {
		off := int(i) * paramValueSize
		out[i] = ParamValue{
			Number: binary.LittleEndian.Uint32(b[off : off+4]),
			Value:  math.Float64frombits(binary.LittleEndian.Uint64(b[off+4 : off+12])),
		}
	}
	return out, nil
}

func boolByte(v bool) byte {
	if v {
		return 1
	}
	return 0
}
