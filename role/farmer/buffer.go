// Copyright 2024 The trigflow Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package farmer

import "container/heap"

// Event is one worker's emitted (trigger, parameter values) pair,
// pending reordering.
type Event struct {
	Trigger uint64
	Params  []ParamValue
}

// ParamValue is a (parameter id, value) pair. Defined locally so
// Buffer has no dependency on the wire encoding of an event.
type ParamValue struct {
	ID    uint32
	Value float64
}

// Buffer is the trigger reorder buffer. The zero value is not usable;
// construct with NewBuffer.
type Buffer struct {
	lastEmitted uint64
	pending     map[uint64]Event
	order       triggerHeap
}

// NewBuffer returns an empty buffer expecting trigger 0 next.
func NewBuffer() *Buffer {
	return &Buffer{
		lastEmitted: ^uint64(0), // so lastEmitted+1 wraps to 0
		pending:     make(map[uint64]Event),
	}
}

// Add inserts e and returns every event now ready for emission, in
// increasing trigger order (possibly empty, possibly more than one if
// e unblocked a run of previously pending events).
func (b *Buffer) Add(e Event) []Event {
	if b.lastEmitted+1 != e.Trigger {
		b.pending[e.Trigger] = e
		heap.Push(&b.order, e.Trigger)
		return nil
	}

	ready := []Event{e}
	b.lastEmitted++
	for len(b.order) > 0 && b.order[0] == b.lastEmitted+1 {
		t := heap.Pop(&b.order).(uint64)
		ready = append(ready, b.pending[t])
		delete(b.pending, t)
		b.lastEmitted++
	}
	return ready
}

// Flush drains every remaining pending event in increasing trigger
// order, regardless of gaps (used once all senders have signaled
// end). It leaves lastEmitted unchanged.
func (b *Buffer) Flush() []Event {
	out := make([]Event, 0, len(b.order))
	for len(b.order) > 0 {
		t := heap.Pop(&b.order).(uint64)
		out = append(out, b.pending[t])
		delete(b.pending, t)
	}
	return out
}

// Pending reports how many events are currently buffered awaiting
// their turn.
func (b *Buffer) Pending() int { return len(b.order) }

// triggerHeap is a min-heap of pending trigger numbers.
type triggerHeap []uint64

func (h triggerHeap) Len() int            { return len(h) }
func (h triggerHeap) Less(i, j int) bool  { return h[i] < h[j] }
func (h triggerHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *triggerHeap) Push(x interface{}) { *h = append(*h, x.(uint64)) }
func (h *triggerHeap) Pop() interface{} {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}
