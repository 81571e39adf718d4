// Copyright 2024 The trigflow Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package axis

// A Scale maps from some input range to an output interval [0, 1].
type Scale interface {
	Of(x float64) float64
	Ticks(n int) (major, minor []float64)
}
