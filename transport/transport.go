// Copyright 2024 The trigflow Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package transport is the rank-addressed message-passing fabric the
// four roles communicate over. Spec §5 asks for "MPI or functionally
// equivalent: ordered point-to-point between each pair of ranks"; no
// MPI binding appears anywhere in the retrieved corpus, so this models
// the same contract with goroutines and channels, one per ordered
// (sender, receiver) pair, which gives FIFO delivery within that pair
// for free from Go's channel semantics.
package transport

import (
	"context"
	"reflect"

	"github.com/pkg/errors"

	"github.com/fribdaq/trigflow/trigerr"
)

// Fixed rank assignments (spec §2): every job has exactly one Dealer,
// one Farmer and one Outputter at these ranks; every rank from
// FirstWorkerRank up is a Worker.
const (
	RankDealer     = 0
	RankFarmer     = 1
	RankOutputter  = 2
	FirstWorkerRank = 3
)

// Tag discriminates the payload a message carries, matching spec §3's
// closed tag set.
type Tag int

const (
	TagHeader Tag = iota + 1
	TagEnd
	TagData
	TagRequest
	TagParamDef
	TagVariables
	TagPassthrough
)

func (t Tag) String() string {
	switch t {
	case TagHeader:
		return "HEADER"
	case TagEnd:
		return "END"
	case TagData:
		return "DATA"
	case TagRequest:
		return "REQUEST"
	case TagParamDef:
		return "PARAMDEF"
	case TagVariables:
		return "VARIABLES"
	case TagPassthrough:
		return "PASSTHROUGH"
	default:
		return "UNKNOWN"
	}
}

// Envelope is one message as it travels the fabric.
type Envelope struct {
	Tag     Tag
	Payload []byte
}

// Fabric is the all-to-all connected transport shared by every rank
// in one job. It owns one buffered channel per ordered pair of
// distinct ranks.
type Fabric struct {
	numRanks int
	links    [][]chan Envelope
}

// NewFabric builds a fabric for numRanks ranks. bufSize bounds how far
// a sender can run ahead of a slow receiver before Send blocks — the
// back-pressure spec §5 describes.
func NewFabric(numRanks, bufSize int) *Fabric {
	links := make([][]chan Envelope, numRanks)
	for i := range links {
		links[i] = make([]chan Envelope, numRanks)
		for j := range links[i] {
			if i != j {
				links[i][j] = make(chan Envelope, bufSize)
			}
		}
	}
	return &Fabric{numRanks: numRanks, links: links}
}

// NumRanks returns the total rank count.
func (f *Fabric) NumRanks() int { return f.numRanks }

// Endpoint returns the capability object rank owns: the (send,
// receive, rank, worker count) surface spec §9's design notes ask
// role procedures to consume instead of reaching into ambient global
// state.
func (f *Fabric) Endpoint(rank int) *Endpoint {
	return &Endpoint{fabric: f, rank: rank}
}

// Endpoint is one rank's view of the fabric.
type Endpoint struct {
	fabric *Fabric
	rank   int
}

func (e *Endpoint) Rank() int      { return e.rank }
func (e *Endpoint) NumRanks() int  { return e.fabric.numRanks }
func (e *Endpoint) NumWorkers() int {
	if e.fabric.numRanks <= 3 {
		return 0
	}
	return e.fabric.numRanks - 3
}

// Send pushes a tagged message to dst, blocking until the fabric
// accepts it (or ctx is done). Sends from one Endpoint to another
// single destination are delivered FIFO regardless of tag.
func (e *Endpoint) Send(ctx context.Context, dst int, tag Tag, payload []byte) error {
	if dst < 0 || dst >= e.fabric.numRanks || dst == e.rank {
		return trigerr.Wrap(trigerr.Transport, "rank %d: send to invalid destination %d", e.rank, dst)
	}
	ch := e.fabric.links[e.rank][dst]
	select {
	case ch <- Envelope{Tag: tag, Payload: payload}:
		return nil
	case <-ctx.Done():
		return trigerr.WrapErr(trigerr.Transport, ctx.Err(), "rank %d: send to %d canceled", e.rank, dst)
	}
}

// Receive blocks for the next message from src, whatever its tag.
// Because each ordered pair has its own channel, this is the
// equivalent of an MPI_Recv with an explicit source and MPI_ANY_TAG.
func (e *Endpoint) Receive(ctx context.Context, src int) (Envelope, error) {
	if src < 0 || src >= e.fabric.numRanks || src == e.rank {
		return Envelope{}, trigerr.Wrap(trigerr.Transport, "rank %d: receive from invalid source %d", e.rank, src)
	}
	ch := e.fabric.links[src][e.rank]
	select {
	case env, ok := <-ch:
		if !ok {
			return Envelope{}, trigerr.Wrap(trigerr.Transport, "rank %d: link from %d closed", e.rank, src)
		}
		return env, nil
	case <-ctx.Done():
		return Envelope{}, trigerr.WrapErr(trigerr.Transport, ctx.Err(), "rank %d: receive from %d canceled", e.rank, src)
	}
}

// ReceiveTag is Receive filtered to a specific expected tag, raising
// StructuralError (spec §7: "unknown tag" / wrong tag where one is
// required) when the next message on that link doesn't match.
func (e *Endpoint) ReceiveTag(ctx context.Context, src int, want Tag) (Envelope, error) {
	env, err := e.Receive(ctx, src)
	if err != nil {
		return Envelope{}, err
	}
	if env.Tag != want {
		return Envelope{}, trigerr.Wrap(trigerr.Structural, "rank %d: expected %s from %d, got %s", e.rank, want, src, env.Tag)
	}
	return env, nil
}

// ReceiveAny blocks for the next message from any other rank,
// equivalent to MPI_ANY_SOURCE/MPI_ANY_TAG. It returns the source
// rank along with the envelope, mirroring the farmer and outputter's
// receive-from-anyone loops (spec §4.5, §4.6).
func (e *Endpoint) ReceiveAny(ctx context.Context) (src int, env Envelope, err error) {
	cases := make([]reflect.SelectCase, 0, e.fabric.numRanks)
	srcs := make([]int, 0, e.fabric.numRanks-1)
	for i := 0; i < e.fabric.numRanks; i++ {
		if i == e.rank {
			continue
		}
		cases = append(cases, reflect.SelectCase{
			Dir:  reflect.SelectRecv,
			Chan: reflect.ValueOf(e.fabric.links[i][e.rank]),
		})
		srcs = append(srcs, i)
	}
	cases = append(cases, reflect.SelectCase{Dir: reflect.SelectRecv, Chan: reflect.ValueOf(ctx.Done())})

	chosen, v, ok := reflect.Select(cases)
	if chosen == len(cases)-1 {
		return 0, Envelope{}, trigerr.WrapErr(trigerr.Transport, ctx.Err(), "rank %d: receive-any canceled", e.rank)
	}
	if !ok {
		return 0, Envelope{}, errors.Errorf("rank %d: link from %d closed", e.rank, srcs[chosen])
	}
	return srcs[chosen], v.Interface().(Envelope), nil
}
