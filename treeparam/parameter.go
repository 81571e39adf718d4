// Copyright 2024 The trigflow Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package treeparam

import "github.com/fribdaq/trigflow/trigerr"

// Parameter is a handle to one registered parameter. Multiple
// Parameter values for the same name share the same underlying
// metadata and event slot, mirroring the original's "multiple
// instances point to the same underlying parameter" guarantee.
type Parameter struct {
	reg  *Registry
	meta *paramMeta
}

// IsBound reports whether the handle refers to a registered
// parameter.
func (p *Parameter) IsBound() bool { return p != nil && p.meta != nil }

// ID returns the parameter's stable registry id.
func (p *Parameter) ID() uint32 { return p.meta.id }

// Name returns the parameter's registered name.
func (p *Parameter) Name() string { return p.meta.name }

// Hint returns the parameter's axis hint.
func (p *Parameter) Hint() AxisHint { return p.meta.hint }

// Assign sets the parameter's value for the current event and marks
// it valid.
func (p *Parameter) Assign(v float64) error {
	if !p.IsBound() {
		return trigerr.Wrap(trigerr.State, "parameter must be bound before Assign")
	}
	p.reg.assign(p.meta, v)
	return nil
}

// Value returns the parameter's value for the current event. It
// returns a StateError if the parameter was never assigned during
// the current generation, matching CTreeParameter::getValue's
// range_error on an unset read.
func (p *Parameter) Value() (float64, error) {
	if !p.IsBound() {
		return 0, trigerr.Wrap(trigerr.State, "parameter must be bound before Value")
	}
	if !p.IsValid() {
		return 0, trigerr.Wrap(trigerr.State, "read value from unassigned tree-parameter %q", p.meta.name)
	}
	return p.reg.event[p.meta.id], nil
}

// IsValid reports whether this parameter was assigned during the
// registry's current generation.
func (p *Parameter) IsValid() bool {
	return p.IsBound() && p.meta.generation == p.reg.generation
}
