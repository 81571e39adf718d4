// Copyright 2024 The trigflow Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package wire

import (
	"encoding/binary"
	"math"

	"github.com/fribdaq/trigflow/trigerr"
)

// ParameterDef is one entry of a PARAMDEF broadcast: a fixed-width
// name (truncated to MaxIdent-1 bytes plus a NUL) paired with the
// parameter's stable id. Fixed width, unlike the on-disk record
// package's C-string encoding, because every rank receives the whole
// array as one uniformly-strided block (spec §5).
type ParameterDef struct {
	ID   uint64
	Name string
}

const parameterDefSize = MaxIdent + 8

func EncodeParameterDefs(defs []ParameterDef) []byte {
	b := make([]byte, len(defs)*parameterDefSize)
	for i, d := range defs {
		off := i * parameterDefSize
		putFixedName(b[off:off+MaxIdent], d.Name)
		binary.LittleEndian.PutUint64(b[off+MaxIdent:off+MaxIdent+8], d.ID)
	}
	return b
}

func DecodeParameterDefs(b []byte, n uint32) ([]ParameterDef, error) {
	if len(b) < int(n)*parameterDefSize {
		return nil, trigerr.Wrap(trigerr.Structural, "parameter-def block truncated: want %d entries", n)
	}
	out := make([]ParameterDef, n)
	for i := uint32(0); i < n; i++ {
		off := int(i) * parameterDefSize
		out[i] = ParameterDef{
			Name: fixedName(b[off : off+MaxIdent]),
			ID:   binary.LittleEndian.Uint64(b[off+MaxIdent : off+MaxIdent+8]),
		}
	}
	return out, nil
}

// VariableDef is one entry of a VARIABLES broadcast: name, units and
// value, all fixed width.
type VariableDef struct {
	Name  string
	Units string
	Value float64
}

const variableDefSize = MaxIdent + MaxUnits + 8

func EncodeVariableDefs(defs []VariableDef) []byte {
	b := make([]byte, len(defs)*variableDefSize)
	for i, d := range defs {
		off := i * variableDefSize
		putFixedName(b[off:off+MaxIdent], d.Name)
		putFixedName(b[off+MaxIdent:off+MaxIdent+MaxUnits], d.Units)
		binary.LittleEndian.PutUint64(b[off+MaxIdent+MaxUnits:off+MaxIdent+MaxUnits+8], math.Float64bits(d.Value))
	}
	return b
}

func DecodeVariableDefs(b []byte, n uint32) ([]VariableDef, error) {
	if len(b) < int(n)*variableDefSize {
		return nil, trigerr.Wrap(trigerr.Structural, "variable-def block truncated: want %d entries", n)
	}
	out := make([]VariableDef, n)
	for i := uint32(0); i < n; i++ {
		off := int(i) * variableDefSize
		out[i] = VariableDef{
			Name:  fixedName(b[off : off+MaxIdent]),
			Units: fixedName(b[off+MaxIdent : off+MaxIdent+MaxUnits]),
			Value: math.Float64frombits(binary.LittleEndian.Uint64(b[off+MaxIdent+MaxUnits : off+MaxIdent+MaxUnits+8])),
		}
	}
	return out, nil
}

func putFixedName(dst []byte, s string) {
	n := copy(dst, s)
	if n < len(dst) {
		dst[n] = 0
	} else if len(dst) > 0 {
		dst[len(dst)-1] = 0
	}
}

func fixedName(src []byte) string {
	for i, c := range src {
		if c == 0 {
			return string(src[:i])
		}
	}
	return string(src)
}
