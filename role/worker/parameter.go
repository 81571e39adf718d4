// Copyright 2024 The trigflow Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package worker

import (
	"context"
	"encoding/binary"

	"github.com/sirupsen/logrus"

	"github.com/fribdaq/trigflow/transport"
	"github.com/fribdaq/trigflow/treeparam"
	"github.com/fribdaq/trigflow/trigerr"
	"github.com/fribdaq/trigflow/wire"
)

// VariableValue is one pushed variable definition's units and value,
// looked up by name (spec §4.4's getVariable/loadVariable).
type VariableValue struct {
	Units string
	Value float64
}

// Context is what a parameter-to-parameter Process function operates
// on: the local tree parameter registry and the variable definitions
// pushed by the Dealer, mirroring what CMPIParametersToParametersWorker
// exposes to derived application code.
type Context struct {
	Registry  *treeparam.Registry
	Variables map[string]VariableValue
}

// Process is user-written analysis code run once per event, after
// incoming parameters have been loaded and before the result is
// collected and sent to the Farmer.
type Process func(c *Context) error

// RunParametersToParameters drives a parameter-to-parameter Worker:
// receive the pushed parameter and variable definitions, then loop
// requesting events from the Dealer, loading each into the local
// registry by file id, running process, and forwarding the collected
// result to the Farmer. Grounded on
// MPIParametersToParametersWorker.cpp's operator()/receiveEvents.
func RunParametersToParameters(ctx context.Context, ep *transport.Endpoint, reg *treeparam.Registry, process Process, log *logrus.Entry) error {
	paramMap, err := receiveParameterMap(ctx, ep, reg)
	if err != nil {
		return err
	}
	vars, err := receiveVariableMap(ctx, ep)
	if err != nil {
		return err
	}
	pctx := &Context{Registry: reg, Variables: vars}

	for {
		if err := sendRequest(ctx, ep); err != nil {
			return err
		}
		env, err := ep.ReceiveTag(ctx, transport.RankDealer, transport.TagHeader)
		if err != nil {
			return err
		}
		hdr, err := wire.DecodeParameterHeader(env.Payload)
		if err != nil {
			return err
		}
		if hdr.End {
			return sendFarmerEnd(ctx, ep)
		}

		dataEnv, err := ep.ReceiveTag(ctx, transport.RankDealer, transport.TagData)
		if err != nil {
			return err
		}
		vals, err := wire.DecodeParamValues(dataEnv.Payload, hdr.NumParameters)
		if err != nil {
			return err
		}

		reg.NextEvent()
		if err := loadTreeParameters(paramMap, vals); err != nil {
			return err
		}
		if err := process(pctx); err != nil {
			return err
		}
		collected := reg.Collect()
		logOverflows(reg, collected, log)
		if err := sendEventToFarmer(ctx, ep, hdr.TriggerNumber, collected); err != nil {
			return err
		}
	}
}

// receiveParameterMap receives the pushed parameter definitions and
// builds a file-id-indexed slice of bound Parameters, sized to the
// largest id plus one (MPIParametersToParametersWorker::
// loadTreeParameterMap). Slots for ids the input never used are left
// nil.
func receiveParameterMap(ctx context.Context, ep *transport.Endpoint, reg *treeparam.Registry) ([]*treeparam.Parameter, error) {
	n, err := receiveCount(ctx, ep, transport.TagParamDef)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, nil
	}
	env, err := ep.ReceiveTag(ctx, transport.RankDealer, transport.TagParamDef)
	if err != nil {
		return nil, err
	}
	defs, err := wire.DecodeParameterDefs(env.Payload, n)
	if err != nil {
		return nil, err
	}

	maxID := uint64(0)
	for _, d := range defs {
		if d.ID > maxID {
			maxID = d.ID
		}
	}
	paramMap := make([]*treeparam.Parameter, maxID+1)
	for _, d := range defs {
		paramMap[d.ID] = reg.Bind(d.Name, nil)
	}
	return paramMap, nil
}

// receiveVariableMap receives the pushed variable definitions and
// returns a name-indexed map (MPIParametersToParametersWorker::
// loadVariableMap).
func receiveVariableMap(ctx context.Context, ep *transport.Endpoint) (map[string]VariableValue, error) {
	n, err := receiveCount(ctx, ep, transport.TagVariables)
	if err != nil {
		return nil, err
	}
	out := make(map[string]VariableValue, n)
	if n == 0 {
		return out, nil
	}
	env, err := ep.ReceiveTag(ctx, transport.RankDealer, transport.TagVariables)
	if err != nil {
		return nil, err
	}
	defs, err := wire.DecodeVariableDefs(env.Payload, n)
	if err != nil {
		return nil, err
	}
	for _, d := range defs {
		out[d.Name] = VariableValue{Units: d.Units, Value: d.Value}
	}
	return out, nil
}

func receiveCount(ctx context.Context, ep *transport.Endpoint, tag transport.Tag) (uint32, error) {
	env, err := ep.ReceiveTag(ctx, transport.RankDealer, tag)
	if err != nil {
		return 0, err
	}
	if len(env.Payload) < 4 {
		return 0, trigerr.Wrap(trigerr.Structural, "definitions count message truncated")
	}
	return binary.LittleEndian.Uint32(env.Payload), nil
}

// loadTreeParameters assigns each incoming (file id, value) pair
// through paramMap, silently discarding ids the local map doesn't
// cover — intentional parameter trimming, not an error
// (MPIParametersToParametersWorker::loadTreeParameters).
func loadTreeParameters(paramMap []*treeparam.Parameter, vals []wire.ParamValue) error {
	for _, v := range vals {
		if int(v.Number) < len(paramMap) && paramMap[v.Number] != nil {
			if err := paramMap[v.Number].Assign(v.Value); err != nil {
				return err
			}
		}
	}
	return nil
}
