// Copyright 2024 The trigflow Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package treeparam is the process-local event model Worker roles use
// to stage per-trigger parameter assignments: a name-keyed registry of
// parameter metadata, a dense event vector, and a scoreboard of which
// parameters were actually set this generation, so collecting an
// event's sparse assignments is O(set parameters) rather than O(all
// registered parameters).
//
// The original implementation keeps this state in static class
// members — one copy per OS process, which is also one copy per MPI
// rank. This module runs every rank as a goroutine inside one
// process, so the registry is instance-scoped instead: each Worker
// owns its own Registry, and nothing here is safe to share across
// goroutines.
package treeparam // import "github.com/fribdaq/trigflow/treeparam"
