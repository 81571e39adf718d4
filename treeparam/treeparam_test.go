// Copyright 2024 The trigflow Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package treeparam

import "testing"

func TestBindIsIdempotent(t *testing.T) {
	r := NewRegistry()
	a := r.Bind("energy", nil)
	b := r.Bind("energy", nil)
	if a.ID() != b.ID() {
		t.Fatalf("two binds of the same name got different ids: %d vs %d", a.ID(), b.ID())
	}
}

func TestUnassignedParameterIsInvalid(t *testing.T) {
	r := NewRegistry()
	p := r.Bind("x", nil)
	r.NextEvent()
	if p.IsValid() {
		t.Fatal("freshly bound, never-assigned parameter reported valid")
	}
}

func TestAssignMakesValidForOneGeneration(t *testing.T) {
	r := NewRegistry()
	p := r.Bind("x", nil)
	r.NextEvent()
	if err := p.Assign(3.5); err != nil {
		t.Fatalf("Assign: %v", err)
	}
	if !p.IsValid() {
		t.Fatal("assigned parameter reported invalid")
	}
	v, err := p.Value()
	if err != nil || v != 3.5 {
		t.Fatalf("Value() = %v, %v; want 3.5, nil", v, err)
	}

	r.NextEvent()
	if p.IsValid() {
		t.Fatal("parameter remained valid after NextEvent with no reassignment")
	}
}

func TestCollectOnlyReturnsAssignedParameters(t *testing.T) {
	r := NewRegistry()
	a := r.Bind("a", nil)
	b := r.Bind("b", nil)
	_ = b
	r.NextEvent()
	a.Assign(1)

	got := r.Collect()
	if len(got) != 1 || got[0].ID != a.ID() || got[0].Value != 1 {
		t.Fatalf("Collect() = %+v, want single entry for a", got)
	}
}

func TestCollectOrderFollowsAssignmentOrder(t *testing.T) {
	r := NewRegistry()
	a := r.Bind("a", nil)
	b := r.Bind("b", nil)
	r.NextEvent()
	b.Assign(2)
	a.Assign(1)

	got := r.Collect()
	if len(got) != 2 || got[0].ID != b.ID() || got[1].ID != a.ID() {
		t.Fatalf("Collect() order = %+v, want b then a", got)
	}
}

func TestDefinitionsCarriesAxisHint(t *testing.T) {
	r := NewRegistry()
	hint := AxisHint{Low: -10, High: 10, Bins: 256, Units: "MeV"}
	r.Bind("e1", &hint)
	r.Bind("e2", nil)

	defs := r.Definitions()
	if len(defs) != 2 {
		t.Fatalf("len(defs) = %d, want 2", len(defs))
	}
	if defs[0].Hint != hint {
		t.Fatalf("defs[0].Hint = %+v, want %+v", defs[0].Hint, hint)
	}
	if defs[1].Hint != DefaultAxisHint {
		t.Fatalf("defs[1].Hint = %+v, want default", defs[1].Hint)
	}
}

func TestValueOnUnassignedBoundParameterFails(t *testing.T) {
	r := NewRegistry()
	p := r.Bind("x", nil)
	r.NextEvent()
	if _, err := p.Value(); err == nil {
		t.Fatal("Value on a bound but unassigned parameter should fail")
	}
}

func TestCheckOverflow(t *testing.T) {
	r := NewRegistry()
	hint := AxisHint{Low: 0, High: 100, Bins: 10, Units: "Chans"}
	p := r.Bind("e", &hint)
	r.NextEvent()
	p.Assign(50)

	if r.CheckOverflow(Value{ID: p.ID(), Value: 50}) {
		t.Fatal("in-range value reported as overflow")
	}
	if !r.CheckOverflow(Value{ID: p.ID(), Value: 500}) {
		t.Fatal("out-of-range value not reported as overflow")
	}
	if !r.CheckOverflow(Value{ID: p.ID(), Value: -1}) {
		t.Fatal("negative out-of-range value not reported as overflow")
	}
	if r.CheckOverflow(Value{ID: 999, Value: 1}) {
		t.Fatal("unregistered id should report false, not panic or overflow")
	}
}

func TestUnboundParameterOperationsFail(t *testing.T) {
	var p Parameter
	if err := p.Assign(1); err == nil {
		t.Fatal("Assign on unbound parameter should fail")
	}
	if _, err := p.Value(); err == nil {
		t.Fatal("Value on unbound parameter should fail")
	}
}
