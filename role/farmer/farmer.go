// Copyright 2024 The trigflow Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package farmer

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/fribdaq/trigflow/transport"
	"github.com/fribdaq/trigflow/trigerr"
	"github.com/fribdaq/trigflow/wire"
)

// Run drives rank 1 to completion: collect HEADER/DATA event pairs
// and END sentinels from every worker, reorder by trigger, and emit
// (HEADER, DATA) pairs to the Outputter followed by a single END
// (spec §4.5).
func Run(ctx context.Context, ep *transport.Endpoint, log *logrus.Entry) error {
	buf := NewBuffer()
	endsLeft := ep.NumWorkers()

	for endsLeft > 0 {
		src, env, err := ep.ReceiveAny(ctx)
		if err != nil {
			return err
		}
		if env.Tag != transport.TagHeader {
			return trigerr.Wrap(trigerr.Structural, "farmer: expected HEADER, got %s from rank %d", env.Tag, src)
		}
		hdr, err := wire.DecodeParameterHeader(env.Payload)
		if err != nil {
			return err
		}
		if hdr.End {
			endsLeft--
			log.WithField("worker", src).WithField("remaining", endsLeft).Debug("worker end sentinel")
			continue
		}

		dataEnv, err := ep.ReceiveTag(ctx, src, transport.TagData)
		if err != nil {
			return err
		}
		vals, err := wire.DecodeParamValues(dataEnv.Payload, hdr.NumParameters)
		if err != nil {
			return err
		}

		ready := buf.Add(Event{Trigger: hdr.TriggerNumber, Params: toLocal(vals)})
		for _, e := range ready {
			if err := emit(ctx, ep, e); err != nil {
				return err
			}
		}
	}

	for _, e := range buf.Flush() {
		if err := emit(ctx, ep, e); err != nil {
			return err
		}
	}

	if err := ep.Send(ctx, transport.RankOutputter, transport.TagEnd, nil); err != nil {
		return err
	}
	return nil
}

func emit(ctx context.Context, ep *transport.Endpoint, e Event) error {
	hdr := wire.ParameterHeader{TriggerNumber: e.Trigger, NumParameters: uint32(len(e.Params)), End: false}
	if err := ep.Send(ctx, transport.RankOutputter, transport.TagHeader, wire.EncodeParameterHeader(hdr)); err != nil {
		return err
	}
	return ep.Send(ctx, transport.RankOutputter, transport.TagData, wire.EncodeParamValues(toWire(e.Params)))
}

func toLocal(vals []wire.ParamValue) []ParamValue {
	out := make([]ParamValue, len(vals))
	for i, v := range vals {
		out[i] = ParamValue{ID: v.Number, Value: v.Value}
	}
	return out
}

func toWire(vals []ParamValue) []wire.ParamValue {
	out := make([]wire.ParamValue, len(vals))
	for i, v := range vals {
		out[i] = wire.ParamValue{Number: v.ID, Value: v.Value}
	}
	return out
}
