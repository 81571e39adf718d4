// Copyright 2024 The trigflow Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package farmer implements rank 1: the trigger reorder buffer that
// turns W individually-monotonic per-worker event sequences into one
// strictly increasing stream for the Outputter (spec §4.5). Grounded
// on TriggerSorter.cpp's addItem/flush algorithm, adapted from an
// ordered std::map to a binary heap plus lookup map for the same
// amortized O(log P) pending-set cost.
package farmer // import "github.com/fribdaq/trigflow/role/farmer"
