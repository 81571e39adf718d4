// Copyright 2024 The trigflow Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package outputter

import (
	"context"
	"io"

	"github.com/sirupsen/logrus"

	"github.com/fribdaq/trigflow/record"
	"github.com/fribdaq/trigflow/transport"
	"github.com/fribdaq/trigflow/trigerr"
	"github.com/fribdaq/trigflow/wire"
)

// Run drives rank 2 to completion: build the output writer (which
// immediately writes the parameter/variable definitions preamble),
// then loop receiving from any source until every expected end
// sentinel arrives. HEADER-tagged messages carry ordered events from
// the Farmer; PASSTHROUGH-tagged messages carry opaque records
// forwarded verbatim, directly from whichever rank bypasses the
// Farmer for this job's variant (the Dealer in the parameter-input
// variant, every Worker in the raw variant).
//
// wantEnds is the total number of distinct end sentinels to wait for:
// the Farmer always sends exactly one once it has flushed every
// reordered event, and each passthrough-bypassing rank sends one more
// once it is done forwarding. A single end sentinel is not enough to
// terminate on — transport.Endpoint.ReceiveAny has no cross-channel
// ordering guarantee, so the Farmer's end can otherwise be selected
// before passthrough records that were already queued on a different
// rank's channel are drained, silently dropping them.
func Run(ctx context.Context, ep *transport.Endpoint, defs []record.ParamDef, vars []record.Variable, dst io.Writer, wantEnds int, log *logrus.Entry) error {
	w, err := record.NewBufferedWriter(dst, defs, vars)
	if err != nil {
		return err
	}

	endsLeft := wantEnds
	for endsLeft > 0 {
		src, env, err := ep.ReceiveAny(ctx)
		if err != nil {
			return err
		}

		switch env.Tag {
		case transport.TagEnd:
			endsLeft--
			log.WithField("source", src).WithField("remaining", endsLeft).Debug("end sentinel received")

		case transport.TagHeader:
			hdr, err := wire.DecodeParameterHeader(env.Payload)
			if err != nil {
				return err
			}
			dataEnv, err := ep.ReceiveTag(ctx, src, transport.TagData)
			if err != nil {
				return err
			}
			vals, err := wire.DecodeParamValues(dataEnv.Payload, hdr.NumParameters)
			if err != nil {
				return err
			}
			params := make([]record.ParamValue, len(vals))
			for i, v := range vals {
				params[i] = record.ParamValue{ID: v.Number, Value: v.Value}
			}
			if err := w.WriteEvent(hdr.TriggerNumber, params); err != nil {
				return err
			}

		case transport.TagPassthrough:
			hdr, err := wire.DecodeParameterHeader(env.Payload)
			if err != nil {
				return err
			}
			dataEnv, err := ep.ReceiveTag(ctx, src, transport.TagData)
			if err != nil {
				return err
			}
			if uint32(len(dataEnv.Payload)) != hdr.NumParameters {
				return trigerr.Wrap(trigerr.Structural, "outputter: passthrough byte count mismatch: header said %d, got %d bytes", hdr.NumParameters, len(dataEnv.Payload))
			}
			if err := w.WritePassthrough(dataEnv.Payload); err != nil {
				return err
			}

		case transport.TagData:
			return trigerr.Wrap(trigerr.Structural, "outputter: got DATA from rank %d without a preceding HEADER", src)

		default:
			return trigerr.Wrap(trigerr.Structural, "outputter: unexpected tag %s from rank %d", env.Tag, src)
		}
	}
	return nil
}
