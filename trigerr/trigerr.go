// Copyright 2024 The trigflow Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package trigerr defines the fatal error taxonomy shared by every
// role in the pipeline: transport failures, malformed records or
// messages, API misuse, file I/O failures, and configuration errors.
//
// No error in this taxonomy is recovered locally. A role returns the
// first error it sees, and the job driver wraps it with Annotate;
// nothing downstream retries or skips past it.
package trigerr

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind classifies a fatal error the way spec §7 does.
type Kind int

const (
	Transport Kind = iota
	Structural
	State
	IO
	Config
)

func (k Kind) String() string {
	switch k {
	case Transport:
		return "transport"
	case Structural:
		return "structural"
	case State:
		return "state"
	case IO:
		return "io"
	case Config:
		return "config"
	default:
		return "unknown"
	}
}

// kindError is a sentinel carrying only a Kind, used as the base of
// errors.Wrap chains so KindOf can recover it with errors.Is.
type kindError struct{ kind Kind }

func (e *kindError) Error() string { return e.kind.String() }

var (
	ErrTransport  error = &kindError{Transport}
	ErrStructural error = &kindError{Structural}
	ErrState      error = &kindError{State}
	ErrIO         error = &kindError{IO}
	ErrConfig     error = &kindError{Config}
)

func sentinelFor(k Kind) error {
	switch k {
	case Transport:
		return ErrTransport
	case Structural:
		return ErrStructural
	case State:
		return ErrState
	case IO:
		return ErrIO
	case Config:
		return ErrConfig
	default:
		return ErrStructural
	}
}

// Wrap builds a fatal error of the given kind with a formatted
// message, preserving a stack trace the way github.com/pkg/errors
// does across the rest of the corpus.
func Wrap(k Kind, format string, args ...interface{}) error {
	return errors.Wrap(sentinelFor(k), fmt.Sprintf(format, args...))
}

// WrapErr attaches kind and context to an existing error (e.g. one
// returned by the standard library), preserving its cause and stack
// trace. The Kind sentinel is linked into the error's Unwrap chain
// (alongside the original cause) so KindOf can recover it with
// errors.Is — stringifying the kind into the message alone is not
// enough.
func WrapErr(k Kind, err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return &kindWrapError{
		kind: k,
		err:  errors.Wrap(err, fmt.Sprintf(format, args...)),
	}
}

// kindWrapError links a formatted, stack-carrying error (the result of
// errors.Wrap) to its Kind sentinel, so that both the original cause
// and the sentinel are reachable via errors.Is/errors.As.
type kindWrapError struct {
	kind Kind
	err  error
}

func (e *kindWrapError) Error() string { return e.err.Error() }

func (e *kindWrapError) Unwrap() []error { return []error{e.err, sentinelFor(e.kind)} }

// KindOf recovers the Kind a Wrap/WrapErr call attached, defaulting to
// Structural if the error did not originate in this package.
func KindOf(err error) Kind {
	for _, k := range []Kind{Transport, Structural, State, IO, Config} {
		if errors.Is(err, sentinelFor(k)) {
			return k
		}
	}
	return Structural
}

// RoleError is the error shape a role's top-level loop returns: it
// names the role and rank that failed, per spec §7's required
// stderr shape "<role>[rank]: <kind>: <reason>".
type RoleError struct {
	Role string
	Rank int
	Err  error
}

func (e *RoleError) Error() string {
	return fmt.Sprintf("%s[%d]: %s: %v", e.Role, e.Rank, KindOf(e.Err), e.Err)
}

func (e *RoleError) Unwrap() error { return e.Err }

// Annotate wraps err as the fatal error of a role's invocation. If
// err is already a *RoleError (e.g. returned by a nested role call in
// tests), it passes through unchanged.
func Annotate(role string, rank int, err error) error {
	if err == nil {
		return nil
	}
	var re *RoleError
	if errors.As(err, &re) {
		return re
	}
	return &RoleError{Role: role, Rank: rank, Err: err}
}
