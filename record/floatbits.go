// Copyright 2024 The trigflow Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package record

import "math"

func f64frombits(b uint64) float64 { return math.Float64frombits(b) }
func f64bits(f float64) uint64     { return math.Float64bits(f) }
