// Copyright 2024 The trigflow Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package dealer implements rank 0, the sole owner of the input file.
// Two variants serve requests from workers and, in the parameter-input
// variant, push definitions and forward passthrough records directly
// to the Outputter (spec §4.3). Grounded on MPIRawReader.cpp (raw
// variant) and MPIParameterDealer.cpp (parameter-input variant).
package dealer // import "github.com/fribdaq/trigflow/role/dealer"
