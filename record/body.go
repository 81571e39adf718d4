// Copyright 2024 The trigflow Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package record

import "github.com/fribdaq/trigflow/trigerr"

// ParamDef is one entry of a parameter-definitions record: a stable
// numeric id and the name it's registered under.
type ParamDef struct {
	ID   uint32
	Name string
}

// ParameterDefs is the decoded body of a TypeParameterDefs record.
type ParameterDefs struct {
	Params []ParamDef
}

// Variable is one entry of a variables record (spec §3): a name,
// bounded units string, and a value passed through unchanged by the
// core pipeline.
type Variable struct {
	Value float64
	Units string
	Name  string
}

// Variables is the decoded body of a TypeVariableValues record.
type Variables struct {
	Vars []Variable
}

// ParamValue is one (id, value) assignment within an event.
type ParamValue struct {
	ID    uint32
	Value float64
}

// ParameterData is the decoded body of a TypeParameterData record:
// one trigger's worth of sparse parameter assignments.
type ParameterData struct {
	Trigger uint64
	Params  []ParamValue
}

// EncodeParameterDefs builds a complete TypeParameterDefs record.
func EncodeParameterDefs(defs []ParamDef) []byte {
	var e encoder
	e.u32(uint32(len(defs)))
	for _, d := range defs {
		e.u32(d.ID)
		e.cstring(d.Name)
	}
	return finishRecord(TypeParameterDefs, e.buf)
}

// DecodeParameterDefs parses a TypeParameterDefs record body (the
// bytes after the 12-byte header).
func DecodeParameterDefs(body []byte) (ParameterDefs, error) {
	if len(body) < 4 {
		return ParameterDefs{}, trigerr.Wrap(trigerr.Structural, "parameter-definitions body too short")
	}
	d := newDecoder(body)
	n := d.u32()
	out := ParameterDefs{Params: make([]ParamDef, 0, n)}
	for i := uint32(0); i < n; i++ {
		if d.remaining() < 4 {
			return ParameterDefs{}, trigerr.Wrap(trigerr.Structural, "parameter-definitions body truncated at entry %d", i)
		}
		id := d.u32()
		name := d.cstring()
		out.Params = append(out.Params, ParamDef{ID: id, Name: name})
	}
	return out, nil
}

// EncodeVariables builds a complete TypeVariableValues record.
func EncodeVariables(vars []Variable) []byte {
	var e encoder
	e.u32(uint32(len(vars)))
	for _, v := range vars {
		e.f64(v.Value)
		e.fixedString(v.Units, MaxUnitsLength)
		e.cstring(v.Name)
	}
	return finishRecord(TypeVariableValues, e.buf)
}

// DecodeVariables parses a TypeVariableValues record body.
func DecodeVariables(body []byte) (Variables, error) {
	if len(body) < 4 {
		return Variables{}, trigerr.Wrap(trigerr.Structural, "variables body too short")
	}
	d := newDecoder(body)
	n := d.u32()
	out := Variables{Vars: make([]Variable, 0, n)}
	for i := uint32(0); i < n; i++ {
		if d.remaining() < 8+MaxUnitsLength {
			return Variables{}, trigerr.Wrap(trigerr.Structural, "variables body truncated at entry %d", i)
		}
		value := d.f64()
		units := d.fixedString(MaxUnitsLength)
		name := d.cstring()
		out.Vars = append(out.Vars, Variable{Value: value, Units: units, Name: name})
	}
	return out, nil
}

// EncodeParameterData builds a complete TypeParameterData record for
// one trigger's assignments.
func EncodeParameterData(trigger uint64, params []ParamValue) []byte {
	var e encoder
	e.u64(trigger)
	e.u32(uint32(len(params)))
	for _, p := range params {
		e.u32(p.ID)
		e.f64(p.Value)
	}
	return finishRecord(TypeParameterData, e.buf)
}

// DecodeParameterData parses a TypeParameterData record body.
func DecodeParameterData(body []byte) (ParameterData, error) {
	if len(body) < 12 {
		return ParameterData{}, trigerr.Wrap(trigerr.Structural, "parameter-data body too short")
	}
	d := newDecoder(body)
	trigger := d.u64()
	n := d.u32()
	out := ParameterData{Trigger: trigger, Params: make([]ParamValue, 0, n)}
	for i := uint32(0); i < n; i++ {
		if d.remaining() < 12 {
			return ParameterData{}, trigerr.Wrap(trigerr.Structural, "parameter-data body truncated at entry %d", i)
		}
		id := d.u32()
		v := d.f64()
		out.Params = append(out.Params, ParamValue{ID: id, Value: v})
	}
	return out, nil
}

// finishRecord prepends a Header to body, computing the self-inclusive
// size, and returns the complete record bytes.
func finishRecord(typeCode uint32, body []byte) []byte {
	total := HeaderSize + len(body)
	var e encoder
	e.u32(uint32(total))
	e.u32(typeCode)
	e.u32(headerExtensionBytes)
	e.bytes(body)
	return e.buf
}

// DecodeHeader parses the fixed 12-byte header at the front of buf. A
// Size smaller than the header itself can never describe a valid
// record, so it is rejected here rather than left for a caller's
// slice expression to panic on.
func DecodeHeader(buf []byte) (Header, error) {
	if len(buf) < HeaderSize {
		return Header{}, trigerr.Wrap(trigerr.Structural, "record header truncated")
	}
	d := newDecoder(buf[:HeaderSize])
	hdr := Header{
		Size:           d.u32(),
		TypeCode:       d.u32(),
		HeaderExtBytes: d.u32(),
	}
	if hdr.Size < HeaderSize {
		return Header{}, trigerr.Wrap(trigerr.Structural, "record header claims size %d, smaller than the header itself", hdr.Size)
	}
	return hdr, nil
}
