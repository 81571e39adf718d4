// Copyright 2024 The trigflow Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package wire is the inter-rank message protocol: the byte shapes
// exchanged between Dealer, Farmer, Worker and Outputter over a
// transport.Fabric. This is deliberately distinct from the record
// package's on-disk format — messages here carry fixed-width fields
// sized for cheap, uniform framing between ranks, where the on-disk
// format favors compact variable-length encoding.
package wire // import "github.com/fribdaq/trigflow/wire"

// MaxIdent is the fixed field width of a parameter or variable name
// carried in a definition message. Names are truncated to
// MaxIdent-1 bytes plus a NUL terminator.
const MaxIdent = 32

// MaxUnits is the fixed field width of a variable's units string
// within a definition message; like names, units keep at most
// MaxUnits-1 bytes plus a NUL terminator.
const MaxUnits = 32
