// Copyright 2024 The trigflow Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package wire

import "testing"

func TestRequestRoundTrip(t *testing.T) {
	in := Request{Requestor: 3, MaxData: 1 << 20}
	out, err := DecodeRequest(EncodeRequest(in))
	if err != nil {
		t.Fatalf("DecodeRequest: %v", err)
	}
	if out != in {
		t.Fatalf("got %+v, want %+v", out, in)
	}
}

func TestMessageHeaderRoundTrip(t *testing.T) {
	for _, end := range []bool{false, true} {
		in := MessageHeader{NBytes: 4096, BlockNum: 7, End: end}
		out, err := DecodeMessageHeader(EncodeMessageHeader(in))
		if err != nil {
			t.Fatalf("DecodeMessageHeader: %v", err)
		}
		if out != in {
			t.Fatalf("got %+v, want %+v", out, in)
		}
	}
}

func TestParameterHeaderRoundTrip(t *testing.T) {
	in := ParameterHeader{TriggerNumber: 123456789, NumParameters: 5, End: true}
	out, err := DecodeParameterHeader(EncodeParameterHeader(in))
	if err != nil {
		t.Fatalf("DecodeParameterHeader: %v", err)
	}
	if out != in {
		t.Fatalf("got %+v, want %+v", out, in)
	}
}

func TestParamValuesRoundTrip(t *testing.T) {
	in := []ParamValue{{Number: 1, Value: 1.5}, {Number: 99, Value: -3.25}}
	out, err := DecodeParamValues(EncodeParamValues(in), uint32(len(in)))
	if err != nil {
		t.Fatalf("DecodeParamValues: %v", err)
	}
	for i := range in {
		if out[i] != in[i] {
			t.Errorf("entry %d = %+v, want %+v", i, out[i], in[i])
		}
	}
}

func TestParameterDefsRoundTrip(t *testing.T) {
	in := []ParameterDef{{ID: 1, Name: "x"}, {ID: 2, Name: "y.theta"}}
	out, err := DecodeParameterDefs(EncodeParameterDefs(in), uint32(len(in)))
	if err != nil {
		t.Fatalf("DecodeParameterDefs: %v", err)
	}
	for i := range in {
		if out[i] != in[i] {
			t.Errorf("entry %d = %+v, want %+v", i, out[i], in[i])
		}
	}
}

func TestParameterDefNameTruncation(t *testing.T) {
	long := "a.very.long.parameter.name.that.exceeds.the.identifier.limit"
	defs := []ParameterDef{{ID: 1, Name: long}}
	out, err := DecodeParameterDefs(EncodeParameterDefs(defs), 1)
	if err != nil {
		t.Fatalf("DecodeParameterDefs: %v", err)
	}
	if len(out[0].Name) >= MaxIdent {
		t.Fatalf("name not bounded: %q", out[0].Name)
	}
}

func TestVariableDefsRoundTrip(t *testing.T) {
	in := []VariableDef{{Name: "beam.width", Units: "mm", Value: 3.14}}
	out, err := DecodeVariableDefs(EncodeVariableDefs(in), uint32(len(in)))
	if err != nil {
		t.Fatalf("DecodeVariableDefs: %v", err)
	}
	if out[0] != in[0] {
		t.Fatalf("got %+v, want %+v", out[0], in[0])
	}
}
