// Copyright 2024 The trigflow Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package dealer

import (
	"context"
	"io"

	"github.com/sirupsen/logrus"

	"github.com/fribdaq/trigflow/record"
	"github.com/fribdaq/trigflow/transport"
	"github.com/fribdaq/trigflow/trigerr"
	"github.com/fribdaq/trigflow/wire"
)

// DefaultPhysicsType is the on-disk type code counted as one trigger
// per occurrence in the raw variant, matching the legacy reader's
// hard-coded physics event type.
const DefaultPhysicsType uint32 = 30

// RunRaw drives rank 0 for the raw pipeline variant, grounded on
// MPIRawReader.cpp's sendData/sendEofs. Each block of opaque bytes
// handed to a requesting Worker is tagged with the trigger number its
// first physics record carries; a Worker assigns consecutive triggers
// to the physics records it finds within.
func RunRaw(ctx context.Context, ep *transport.Endpoint, src io.Reader, blockSize int, physicsType uint32, log *logrus.Entry) error {
	r := record.NewBufferedReader(src, blockSize)
	var baseTrigger uint64

	for {
		block, err := r.Acquire(blockSize)
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}

		n, cerr := countPhysicsRecords(block.Bytes, physicsType)
		if cerr != nil {
			return cerr
		}

		dest, err := nextRequestor(ctx, ep)
		if err != nil {
			return err
		}
		log.WithField("worker", dest).WithField("triggers", n).Debug("sending raw block")
		hdr := wire.MessageHeader{NBytes: uint32(len(block.Bytes)), BlockNum: uint32(baseTrigger), End: false}
		if err := ep.Send(ctx, dest, transport.TagHeader, wire.EncodeMessageHeader(hdr)); err != nil {
			return err
		}
		if err := ep.Send(ctx, dest, transport.TagData, block.Bytes); err != nil {
			return err
		}

		baseTrigger += uint64(n)
		if err := r.Release(); err != nil {
			return err
		}
	}

	return sendRawEofs(ctx, ep, log)
}

// countPhysicsRecords walks the whole records packed into buf and
// counts the ones whose type code matches physicsType.
func countPhysicsRecords(buf []byte, physicsType uint32) (int, error) {
	n := 0
	off := 0
	for off < len(buf) {
		hdr, err := record.DecodeHeader(buf[off:])
		if err != nil {
			return 0, err
		}
		if hdr.TypeCode == physicsType {
			n++
		}
		off += int(hdr.Size)
	}
	return n, nil
}

// sendRawEofs answers every remaining Request with an end-flagged
// HEADER-only reply, one per worker, mirroring MPIRawReader::sendEofs.
func sendRawEofs(ctx context.Context, ep *transport.Endpoint, log *logrus.Entry) error {
	for i := 0; i < ep.NumWorkers(); i++ {
		dest, err := nextRequestor(ctx, ep)
		if err != nil {
			return err
		}
		log.WithField("worker", dest).Debug("sending end sentinel")
		hdr := wire.MessageHeader{End: true}
		if err := ep.Send(ctx, dest, transport.TagHeader, wire.EncodeMessageHeader(hdr)); err != nil {
			return err
		}
	}
	return nil
}

// nextRequestor blocks for the next REQUEST message from any rank and
// validates it matches the sender it arrived from (MPIRawReader's
// getRequest consistency check).
func nextRequestor(ctx context.Context, ep *transport.Endpoint) (int, error) {
	src, env, err := ep.ReceiveAny(ctx)
	if err != nil {
		return 0, err
	}
	if env.Tag != transport.TagRequest {
		return 0, trigerr.Wrap(trigerr.Structural, "dealer: expected REQUEST, got %s from rank %d", env.Tag, src)
	}
	req, err := wire.DecodeRequest(env.Payload)
	if err != nil {
		return 0, err
	}
	if int(req.Requestor) != src {
		return 0, trigerr.Wrap(trigerr.Structural, "dealer: request claims rank %d but arrived from rank %d", req.Requestor, src)
	}
	return src, nil
}
