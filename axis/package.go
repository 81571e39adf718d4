// Copyright 2024 The trigflow Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package axis maps a parameter's axis hint (low, high, bin count) to
// normalized [0, 1] coordinates and tick positions, for consumers that
// render or bin a parameter's values. Adapted from the teacher's scale
// package, narrowed to the one scale kind the pipeline's axis hints
// need: linear.
package axis // import "github.com/fribdaq/trigflow/axis"
