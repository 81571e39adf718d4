// Copyright 2024 The trigflow Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package record

import "encoding/binary"

// decoder reads little-endian fields off the front of a byte slice,
// advancing past each one as it goes. It never trusts any language's
// struct layout or padding to match the wire format (spec §9): every
// field is read individually. Modeled on the teacher's bufDecoder.
type decoder struct {
	buf []byte
}

func newDecoder(buf []byte) *decoder { return &decoder{buf} }

func (d *decoder) remaining() int { return len(d.buf) }

func (d *decoder) skip(n int) { d.buf = d.buf[n:] }

func (d *decoder) u32() uint32 {
	x := binary.LittleEndian.Uint32(d.buf)
	d.buf = d.buf[4:]
	return x
}

func (d *decoder) u64() uint64 {
	x := binary.LittleEndian.Uint64(d.buf)
	d.buf = d.buf[8:]
	return x
}

func (d *decoder) f64() float64 {
	bits := binary.LittleEndian.Uint64(d.buf)
	d.buf = d.buf[8:]
	return f64frombits(bits)
}

func (d *decoder) cstring() string {
	for i, c := range d.buf {
		if c == 0 {
			s := string(d.buf[:i])
			d.buf = d.buf[i+1:]
			return s
		}
	}
	// Unterminated: take the rest, consume it all.
	s := string(d.buf)
	d.buf = d.buf[len(d.buf):]
	return s
}

// fixedString reads an n-byte fixed field, taking everything up to
// the first NUL (or all of it, if unterminated).
func (d *decoder) fixedString(n int) string {
	field := d.buf[:n]
	d.buf = d.buf[n:]
	for i, c := range field {
		if c == 0 {
			return string(field[:i])
		}
	}
	return string(field)
}

// encoder appends little-endian fields to a growing byte slice, the
// write-side mirror of decoder.
type encoder struct {
	buf []byte
}

func (e *encoder) u32(x uint32) {
	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], x)
	e.buf = append(e.buf, tmp[:]...)
}

func (e *encoder) u64(x uint64) {
	var tmp [8]byte
	binary.LittleEndian.PutUint64(tmp[:], x)
	e.buf = append(e.buf, tmp[:]...)
}

func (e *encoder) f64(x float64) {
	e.u64(f64bits(x))
}

// cstring appends s followed by a single NUL terminator.
func (e *encoder) cstring(s string) {
	e.buf = append(e.buf, s...)
	e.buf = append(e.buf, 0)
}

// fixedString appends s truncated/zero-padded to exactly n bytes.
func (e *encoder) fixedString(s string, n int) {
	field := make([]byte, n)
	copy(field, s)
	e.buf = append(e.buf, field...)
}

func (e *encoder) bytes(b []byte) {
	e.buf = append(e.buf, b...)
}
