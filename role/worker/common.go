// Copyright 2024 The trigflow Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package worker

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/fribdaq/trigflow/transport"
	"github.com/fribdaq/trigflow/treeparam"
	"github.com/fribdaq/trigflow/wire"
)

// logOverflows logs a debug line for each collected value that falls
// outside its parameter's declared axis range, the diagnostic a histogram's
// over/underflow bin would otherwise silently absorb.
func logOverflows(reg *treeparam.Registry, vals []treeparam.Value, log *logrus.Entry) {
	for _, v := range vals {
		if reg.CheckOverflow(v) {
			log.WithField("param", v.ID).WithField("value", v.Value).Debug("value outside declared axis range")
		}
	}
}

// sendRequest asks the Dealer for more work, tagged REQUEST (spec §5).
func sendRequest(ctx context.Context, ep *transport.Endpoint) error {
	req := wire.Request{Requestor: int32(ep.Rank()), MaxData: 1024 * 1024}
	return ep.Send(ctx, transport.RankDealer, transport.TagRequest, wire.EncodeRequest(req))
}

// sendEventToFarmer pushes one ordered trigger's collected parameters
// to the Farmer under HEADER then DATA tags.
func sendEventToFarmer(ctx context.Context, ep *transport.Endpoint, trigger uint64, vals []treeparam.Value) error {
	hdr := wire.ParameterHeader{TriggerNumber: trigger, NumParameters: uint32(len(vals)), End: false}
	if err := ep.Send(ctx, transport.RankFarmer, transport.TagHeader, wire.EncodeParameterHeader(hdr)); err != nil {
		return err
	}
	wireVals := make([]wire.ParamValue, len(vals))
	for i, v := range vals {
		wireVals[i] = wire.ParamValue{Number: v.ID, Value: v.Value}
	}
	return ep.Send(ctx, transport.RankFarmer, transport.TagData, wire.EncodeParamValues(wireVals))
}

// sendFarmerEnd tells the Farmer this Worker is done (spec §4.5: the
// Farmer waits for one end sentinel per Worker).
func sendFarmerEnd(ctx context.Context, ep *transport.Endpoint) error {
	hdr := wire.ParameterHeader{End: true}
	return ep.Send(ctx, transport.RankFarmer, transport.TagHeader, wire.EncodeParameterHeader(hdr))
}

// forwardPassthrough sends an opaque record straight to the Outputter,
// bypassing the Farmer's reorder buffer entirely.
func forwardPassthrough(ctx context.Context, ep *transport.Endpoint, recBytes []byte) error {
	hdr := wire.ParameterHeader{NumParameters: uint32(len(recBytes))}
	if err := ep.Send(ctx, transport.RankOutputter, transport.TagPassthrough, wire.EncodeParameterHeader(hdr)); err != nil {
		return err
	}
	return ep.Send(ctx, transport.RankOutputter, transport.TagData, recBytes)
}

// sendOutputterEnd tells the Outputter this Worker is done forwarding
// passthrough records directly to it, bypassing the Farmer. The
// Outputter needs one of these per passthrough-forwarding Worker, in
// addition to the Farmer's own end sentinel, since a ReceiveAny
// fan-in has no cross-channel ordering guarantee.
func sendOutputterEnd(ctx context.Context, ep *transport.Endpoint) error {
	return ep.Send(ctx, transport.RankOutputter, transport.TagEnd, nil)
}
