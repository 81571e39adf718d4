// Copyright 2024 The trigflow Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package worker

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/fribdaq/trigflow/record"
	"github.com/fribdaq/trigflow/transport"
	"github.com/fribdaq/trigflow/treeparam"
	"github.com/fribdaq/trigflow/trigerr"
	"github.com/fribdaq/trigflow/wire"
)

// Unpacker decodes one physics record's bytes, assigning tree
// parameters on reg. User-written analysis code: unique per
// application, just as CTreeParameter::collectEvent's caller in
// MPIRawToParametersWorker::processDataBlock is.
type Unpacker func(reg *treeparam.Registry, recordBytes []byte) error

// RunRawToParameters drives a raw-to-parameter Worker: request a
// block, and until the Dealer ends the stream, unpack every physics
// record it contains (assigning consecutive trigger numbers starting
// at the block's base) and forward everything else verbatim to the
// Outputter. Grounded on MPIRawToParametersWorker.cpp's operator()/
// processDataBlock.
func RunRawToParameters(ctx context.Context, ep *transport.Endpoint, reg *treeparam.Registry, physicsType uint32, unpack Unpacker, log *logrus.Entry) error {
	for {
		if err := sendRequest(ctx, ep); err != nil {
			return err
		}
		env, err := ep.ReceiveTag(ctx, transport.RankDealer, transport.TagHeader)
		if err != nil {
			return err
		}
		hdr, err := wire.DecodeMessageHeader(env.Payload)
		if err != nil {
			return err
		}
		if hdr.End {
			if err := sendOutputterEnd(ctx, ep); err != nil {
				return err
			}
			return sendFarmerEnd(ctx, ep)
		}

		dataEnv, err := ep.ReceiveTag(ctx, transport.RankDealer, transport.TagData)
		if err != nil {
			return err
		}
		if err := processRawBlock(ctx, ep, reg, physicsType, unpack, dataEnv.Payload, uint64(hdr.BlockNum), log); err != nil {
			return err
		}
	}
}

func processRawBlock(ctx context.Context, ep *transport.Endpoint, reg *treeparam.Registry, physicsType uint32, unpack Unpacker, buf []byte, firstTrigger uint64, log *logrus.Entry) error {
	trigger := firstTrigger
	off := 0
	for off < len(buf) {
		hdr, err := record.DecodeHeader(buf[off:])
		if err != nil {
			return err
		}
		if off+int(hdr.Size) > len(buf) {
			return trigerr.Wrap(trigerr.Structural, "record at offset %d claims size %d but only %d bytes remain in the block", off, hdr.Size, len(buf)-off)
		}
		recBytes := buf[off : off+int(hdr.Size)]

		if hdr.TypeCode == physicsType {
			if err := unpack(reg, recBytes); err != nil {
				return err
			}
			vals := reg.Collect()
			logOverflows(reg, vals, log)
			if err := sendEventToFarmer(ctx, ep, trigger, vals); err != nil {
				return err
			}
			reg.NextEvent()
			trigger++
		} else {
			if err := forwardPassthrough(ctx, ep, recBytes); err != nil {
				return err
			}
		}

		off += int(hdr.Size)
	}
	return nil
}
