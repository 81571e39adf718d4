// Copyright 2024 The trigflow Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package axis

// Linear is a linear low-to-high scale with a fixed bin count,
// mirroring a parameter's AxisHint.
type Linear struct {
	low, width float64
	bins       uint32
}

// NewLinear builds a scale spanning [low, high) with the given number
// of bins. A zero-width range (low == high) maps every value to 0.
func NewLinear(low, high float64, bins uint32) Linear {
	return Linear{low: low, width: high - low, bins: bins}
}

// Of maps x into [0, 1] relative to the scale's range. Values outside
// [low, high] map outside [0, 1] rather than being clamped, so callers
// can detect out-of-range values.
func (s Linear) Of(x float64) float64 {
	if s.width == 0 {
		return 0
	}
	return (x - s.low) / s.width
}

// Bin returns the bin index x falls into, clamped to [0, Bins()-1].
func (s Linear) Bin(x float64) uint32 {
	if s.bins == 0 {
		return 0
	}
	frac := s.Of(x)
	if frac < 0 {
		return 0
	}
	if frac >= 1 {
		return s.bins - 1
	}
	return uint32(frac * float64(s.bins))
}

// Bins returns the scale's bin count.
func (s Linear) Bins() uint32 { return s.bins }

// Ticks returns n major tick positions evenly spaced across the
// scale's range, plus an empty minor slice (matching the teacher's
// scale.Interface shape; this pipeline has no use for minor ticks
// yet).
func (s Linear) Ticks(n int) (major, minor []float64) {
	major = make([]float64, n)
	for i := range major {
		major[i] = float64(i)*s.width/float64(n) + s.low
	}
	return major, nil
}
