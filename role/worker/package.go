// Copyright 2024 The trigflow Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package worker implements ranks 3..N-1: the only roles that run user
// analysis code. Each Worker pulls work from the Dealer (rank 0) on
// demand, transforms it through a process-local treeparam.Registry,
// and pushes the result to the Farmer (rank 1) for reordering, or
// forwards opaque records straight to the Outputter (rank 2).
//
// Two variants mirror the two Dealer variants (spec §4.4): the
// raw-to-parameter Worker unpacks physics records into tree
// parameters itself (grounded on MPIRawToParametersWorker.cpp); the
// parameter-to-parameter Worker receives already-sparse (id, value)
// pairs and loads them through a file-id-to-Parameter map built from
// the pushed definitions (grounded on
// MPIParametersToParametersWorker.cpp). Because every Worker in this
// module is a goroutine rather than a separate OS process, each gets
// its own treeparam.Registry instance instead of relying on
// process-wide static state.
package worker // import "github.com/fribdaq/trigflow/role/worker"
