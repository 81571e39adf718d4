// Copyright 2024 The trigflow Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package treeparam

import (
	"github.com/fribdaq/trigflow/axis"
	"github.com/fribdaq/trigflow/trigerr"
)

// AxisHint is a spectrum-display recommendation carried alongside a
// parameter's value: the low/high range and bin count a histogram of
// this parameter would use, plus its units. It has no effect on
// pipeline semantics; it is only metadata forwarded to consumers.
type AxisHint struct {
	Low, High float64
	Bins      uint32
	Units     string
}

// DefaultAxisHint is used for parameters bound without an explicit
// hint.
var DefaultAxisHint = AxisHint{Low: 0, High: 100, Bins: 100, Units: "Chans"}

type paramMeta struct {
	id         uint32
	name       string
	hint       AxisHint
	generation uint64
}

// Registry is the per-worker parameter dictionary, event vector and
// scoreboard (spec §3's TreeParameter model, generalized from a
// process-global singleton to an owned instance).
type Registry struct {
	byName     map[string]*paramMeta
	byID       []*paramMeta
	event      []float64
	scoreboard []uint32
	generation uint64
}

// NewRegistry returns an empty registry. The first call to NextEvent
// starts generation 2, so parameters bound before any event (and
// therefore left at generation 0, one behind generation 1) are
// correctly invalid from the start.
func NewRegistry() *Registry {
	return &Registry{
		byName:     make(map[string]*paramMeta),
		generation: 1,
	}
}

// Bind looks up or creates the named parameter, using hint for newly
// created entries (DefaultAxisHint if hint is nil), and returns a
// handle bound to it.
func (r *Registry) Bind(name string, hint *AxisHint) *Parameter {
	meta, ok := r.byName[name]
	if !ok {
		h := DefaultAxisHint
		if hint != nil {
			h = *hint
		}
		meta = &paramMeta{
			id:         uint32(len(r.byID)),
			name:       name,
			hint:       h,
			generation: r.generation - 1,
		}
		r.byName[name] = meta
		r.byID = append(r.byID, meta)
		r.event = append(r.event, 0)
	}
	return &Parameter{reg: r, meta: meta}
}

// Lookup returns the bound parameter named name, or nil if it hasn't
// been registered.
func (r *Registry) Lookup(name string) *Parameter {
	meta, ok := r.byName[name]
	if !ok {
		return nil
	}
	return &Parameter{reg: r, meta: meta}
}

// Definitions returns every registered parameter's id, name and axis
// hint, ordered by id. Used to build the PARAMDEF broadcast.
func (r *Registry) Definitions() []Definition {
	out := make([]Definition, len(r.byID))
	for i, m := range r.byID {
		out[i] = Definition{ID: m.id, Name: m.name, Hint: m.hint}
	}
	return out
}

// Definition is one registry entry as exposed to callers outside the
// package (dealer/worker broadcast construction).
type Definition struct {
	ID   uint32
	Name string
	Hint AxisHint
}

// NextEvent starts a new generation: every parameter's validity resets
// to false in O(1), and the scoreboard of parameters set this
// generation is cleared.
func (r *Registry) NextEvent() {
	r.generation++
	r.scoreboard = r.scoreboard[:0]
}

// Value is a (parameter id, value) assignment collected from an
// event.
type Value struct {
	ID    uint32
	Value float64
}

// Collect returns every parameter assigned during the current
// generation, in the order they were first assigned.
func (r *Registry) Collect() []Value {
	out := make([]Value, len(r.scoreboard))
	for i, id := range r.scoreboard {
		out[i] = Value{ID: id, Value: r.event[id]}
	}
	return out
}

// CheckOverflow reports whether v's value falls outside the axis
// range its parameter was bound with, the way a histogram's
// over/underflow bin would. Unregistered ids report false rather
// than erroring: this is a diagnostic, not a correctness check, and
// the pipeline forwards the value regardless (spec §9: the axis hint
// "has no effect on correctness of the pipeline").
func (r *Registry) CheckOverflow(v Value) bool {
	if r.checkID(v.ID) != nil {
		return false
	}
	h := r.byID[v.ID].hint
	frac := axis.NewLinear(h.Low, h.High, h.Bins).Of(v.Value)
	return frac < 0 || frac >= 1
}

func (r *Registry) assign(m *paramMeta, v float64) {
	r.event[m.id] = v
	if m.generation != r.generation {
		m.generation = r.generation
		r.scoreboard = append(r.scoreboard, m.id)
	}
}

// checkID bounds-checks id against the registered parameter table,
// shared by CheckOverflow so the "not registered" case has one
// definition instead of a second ad hoc comparison.
func (r *Registry) checkID(id uint32) error {
	if int(id) >= len(r.byID) {
		return trigerr.Wrap(trigerr.Structural, "parameter id %d is not registered", id)
	}
	return nil
}
