// Copyright 2024 The trigflow Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package job drives one run of the pipeline: it builds the in-process
// transport fabric, dispatches each rank to its role procedure, and
// propagates the first fatal error through golang.org/x/sync/errgroup
// so the whole job aborts together (spec §7's "first fatal error in
// any role terminates the entire job"). Generalizes
// AbstractApplication's rank-to-role operator() dispatch, which in the
// original runs once per MPI process; here one goroutine per rank
// plays the same part within a single OS process.
package job // import "github.com/fribdaq/trigflow/job"
