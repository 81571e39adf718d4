// Copyright 2024 The trigflow Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package record is the on-disk record format: a self-describing,
// size-prefixed element stream, plus a BufferedReader/BufferedWriter
// pair that present it without unnecessary copies.
//
// A record starts with a fixed header — self-inclusive size, a type
// code, and a legacy header-extension length fixed at 4 and otherwise
// unused — followed by a type-specific body. Three body shapes are
// known to this package (parameter definitions, variables, parameter
// data); every other type code is a passthrough this package never
// interprets.
package record // import "github.com/fribdaq/trigflow/record"
