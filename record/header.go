// Copyright 2024 The trigflow Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package record

// HeaderSize is the on-disk size of a Header: size, type, extension,
// each a little-endian u32.
const HeaderSize = 12

// headerExtensionBytes is the legacy header-extension field's fixed
// value. It is carried on the wire for compatibility but has no
// semantic effect (spec §9's "Open ambiguities").
const headerExtensionBytes = 4

// Known type codes (spec §3).
const (
	LastPassthrough     uint32 = 32767
	TypeParameterDefs    uint32 = 32768
	TypeVariableValues   uint32 = 32769
	TypeParameterData    uint32 = 32770
)

// IsPassthrough reports whether typeCode is opaque to this pipeline
// and must be forwarded verbatim rather than interpreted.
func IsPassthrough(typeCode uint32) bool {
	return typeCode <= LastPassthrough
}

// Header is the fixed 12-byte prefix of every record.
type Header struct {
	Size           uint32 // self-inclusive: includes the header itself
	TypeCode       uint32
	HeaderExtBytes uint32
}

// MaxUnitsLength bounds a Variable's units string (spec §3).
const MaxUnitsLength = 32
