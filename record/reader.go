// Copyright 2024 The trigflow Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package record

import (
	"encoding/binary"
	"errors"
	"io"

	"github.com/fribdaq/trigflow/trigerr"
)

// Block is the view into a BufferedReader's internal buffer returned
// by Acquire: Count whole records, occupying Bytes. Bytes is only
// valid until the matching Release.
type Block struct {
	Count int
	Bytes []byte
}

// BufferedReader presents a stream of on-disk records without copying
// each one out individually: Acquire hands back as many whole records
// as currently fit within a byte budget, and Release slides the
// buffer forward past them. Modeled on the teacher's
// bufferedSectionReader fill/slide pattern, generalized from a fixed
// io.SectionReader to any io.Reader and from raw bytes to whole
// records (spec §4.1).
type BufferedReader struct {
	src  io.Reader
	buf  []byte
	r, w int
	err  error

	acquired     bool
	acquiredSize int // bytes to advance r by on Release
}

// NewBufferedReader wraps src with an internal buffer of bufSize
// bytes. No single record may exceed bufSize.
func NewBufferedReader(src io.Reader, bufSize int) *BufferedReader {
	return &BufferedReader{
		src: src,
		buf: make([]byte, bufSize),
	}
}

// fill slides unread data to the front of the buffer and reads more
// from src to top it off.
func (r *BufferedReader) fill() {
	if r.r > 0 {
		copy(r.buf, r.buf[r.r:r.w])
		r.w -= r.r
		r.r = 0
	}
	if r.w >= len(r.buf) {
		return
	}
	for i := 0; i < 100; i++ {
		n, err := r.src.Read(r.buf[r.w:])
		if n < 0 {
			panic(errors.New("reader returned negative count from Read"))
		}
		r.w += n
		if err != nil {
			r.err = err
			return
		}
		if n > 0 {
			return
		}
	}
	r.err = io.ErrNoProgress
}

// Acquire hands back as many whole records as fit within maxBytes of
// the currently buffered data, reading ahead from the source as
// needed. It returns io.EOF once the stream is exhausted with no
// bytes left over; trailing bytes at the end of the stream that do
// not form a whole record are a StructuralError.
//
// Acquire must be paired with Release before the next Acquire; a
// second Acquire without an intervening Release is a StateError.
func (r *BufferedReader) Acquire(maxBytes int) (Block, error) {
	if r.acquired {
		return Block{}, trigerr.Wrap(trigerr.State, "Acquire called without a preceding Release")
	}

	for {
		count, used, needMore, err := r.countWholeRecords(maxBytes)
		if err != nil {
			return Block{}, err
		}
		// Whole records already counted are handed back when no more
		// data can arrive (end of stream or read error) or the buffer
		// is full; the error or the oversize record surfaces on the
		// next call.
		if !needMore || (count > 0 && (r.err != nil || r.w-r.r >= len(r.buf))) {
			if count == 0 {
				if r.w-r.r > 0 {
					// A whole record is buffered but maxBytes is too
					// small to hand any of it back (spec §4.1(c)).
					return Block{}, trigerr.Wrap(trigerr.Structural, "maxBytes %d is smaller than the first buffered record", maxBytes)
				}
				return Block{}, io.EOF
			}
			r.acquired = true
			r.acquiredSize = used
			return Block{Count: count, Bytes: r.buf[r.r : r.r+used]}, nil
		}

		if r.err != nil {
			if errors.Is(r.err, io.EOF) {
				if r.w-r.r == 0 {
					return Block{}, io.EOF
				}
				return Block{}, trigerr.Wrap(trigerr.Structural, "trailing %d bytes do not form a whole record", r.w-r.r)
			}
			return Block{}, trigerr.WrapErr(trigerr.IO, r.err, "reading record stream")
		}
		if r.w-r.r >= len(r.buf) {
			return Block{}, trigerr.Wrap(trigerr.Structural, "record exceeds buffer size %d", len(r.buf))
		}
		r.fill()
	}
}

// countWholeRecords reports how many whole records starting at
// r.buf[r.r:r.w] fit within the first maxBytes bytes, and the total
// number of bytes they occupy. needMore is true when the next
// record's header or body isn't fully buffered yet and more data
// must be read before a decision can be made. A record whose Size
// field claims less than HeaderSize can never describe a valid
// record (and would otherwise stall the scan forever, since off
// would never advance), so it is rejected as a StructuralError here
// rather than left for DecodeHeader to catch one layer up.
func (r *BufferedReader) countWholeRecords(maxBytes int) (count, used int, needMore bool, err error) {
	avail := r.w - r.r
	limit := avail
	if maxBytes < limit {
		limit = maxBytes
	}
	off := 0
	for {
		if off+HeaderSize > avail {
			// Header not fully buffered: need more data to proceed.
			return count, used, true, nil
		}
		if off+HeaderSize > limit {
			// Header is buffered but the byte budget stops here.
			return count, used, false, nil
		}
		size := int(binary.LittleEndian.Uint32(r.buf[r.r+off : r.r+off+4]))
		if size < HeaderSize {
			return 0, 0, false, trigerr.Wrap(trigerr.Structural, "record header claims size %d, smaller than the header itself", size)
		}
		if off+size > avail {
			return count, used, true, nil
		}
		if off+size > limit {
			return count, used, false, nil
		}
		off += size
		count++
		used = off
	}
}

// Release returns the bytes handed out by the last Acquire to the
// pool, advancing the read position past them. Calling Release
// without a preceding Acquire is a StateError.
func (r *BufferedReader) Release() error {
	if !r.acquired {
		return trigerr.Wrap(trigerr.State, "Release called without a preceding Acquire")
	}
	r.r += r.acquiredSize
	r.acquired = false
	r.acquiredSize = 0
	return nil
}
