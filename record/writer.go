// Copyright 2024 The trigflow Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package record

import (
	"io"

	"github.com/fribdaq/trigflow/trigerr"
)

// BufferedWriter writes the on-disk record stream. Every output file
// begins with a parameter-definitions record followed by a variables
// record (spec §4.2's "preamble"), written once at construction time,
// mirroring the teacher-adjacent CDataWriter's writeFrontMatter.
type BufferedWriter struct {
	dst io.Writer
}

// NewBufferedWriter creates dst's preamble (parameter definitions then
// variables) and returns a writer ready to accept events and
// passthrough records.
func NewBufferedWriter(dst io.Writer, defs []ParamDef, vars []Variable) (*BufferedWriter, error) {
	w := &BufferedWriter{dst: dst}
	if err := w.writeRaw(EncodeParameterDefs(defs)); err != nil {
		return nil, trigerr.WrapErr(trigerr.IO, err, "writing parameter-definitions preamble")
	}
	if err := w.writeRaw(EncodeVariables(vars)); err != nil {
		return nil, trigerr.WrapErr(trigerr.IO, err, "writing variables preamble")
	}
	return w, nil
}

// WriteEvent appends one trigger's worth of parameter assignments as
// a TypeParameterData record.
func (w *BufferedWriter) WriteEvent(trigger uint64, params []ParamValue) error {
	if err := w.writeRaw(EncodeParameterData(trigger, params)); err != nil {
		return trigerr.WrapErr(trigerr.IO, err, "writing parameter-data record for trigger %d", trigger)
	}
	return nil
}

// WritePassthrough appends recordBytes verbatim: a complete record
// (header included) whose type code this pipeline never interprets.
func (w *BufferedWriter) WritePassthrough(recordBytes []byte) error {
	if err := w.writeRaw(recordBytes); err != nil {
		return trigerr.WrapErr(trigerr.IO, err, "writing passthrough record")
	}
	return nil
}

func (w *BufferedWriter) writeRaw(b []byte) error {
	_, err := w.dst.Write(b)
	return err
}
