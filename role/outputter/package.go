// Copyright 2024 The trigflow Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package outputter implements rank 2: the sole owner of the output
// sink. It writes the parameter/variable definitions preamble once,
// then appends every ordered event from the Farmer and every
// passthrough record forwarded by the Dealer or a Worker, in receipt
// order, until it has received one end sentinel from the Farmer and
// one from each rank that forwards passthrough records to it directly
// (spec §4.6).
// Grounded on DataWriter.cpp/ParameterOutputter.h's receive-any loop.
package outputter // import "github.com/fribdaq/trigflow/role/outputter"
