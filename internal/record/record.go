// Copyright 2026 The Butcher Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package record implements the fixed-layout result record exchanged
// between the bexec runner and the butcher orchestrator over the
// control pipe.
//
// A record is always written with a single write(2) call. Since the
// record is far smaller than PIPE_BUF, writes are atomic and the
// reader may consume the stream in Size-byte chunks, discarding any
// trailing partial read. A later record supersedes an earlier one: it
// carries the results of every phase seen so far.
package record

import (
	"bytes"

	"github.com/pkg/errors"
)

// Phase indexes the per-phase result vector of a test run.
type Phase int

// Phases in execution order.
const (
	PhaseSetup Phase = iota
	PhaseTest
	PhaseTeardown

	NumPhases // array size, not a phase
)

// String implements fmt.Stringer.
func (p Phase) String() string {
	switch p {
	case PhaseSetup:
		return "setup"
	case PhaseTest:
		return "test"
	case PhaseTeardown:
		return "teardown"
	}
	return "unknown"
}

// Result is the outcome of a single phase. The numeric values are the
// wire encoding and must not change: a result byte is the two's
// complement representation of the signed value.
type Result int8

// Results ordered by badness. Worst means largest.
const (
	None      Result = -1
	Succeeded Result = 0
	Failed    Result = 1
	Ignored   Result = 2
	Corrupted Result = 3
)

// String implements fmt.Stringer.
func (r Result) String() string {
	switch r {
	case None:
		return "none"
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	case Ignored:
		return "ignored"
	case Corrupted:
		return "corrupted"
	}
	return "unknown"
}

// Size is the exact on-wire size of an encoded record.
const Size = 9

// magic brackets every record; the trailing NUL is part of it.
var magic = [5]byte{0x01, 0x02, 0x03, 0x04, 0x00}

// ErrMalformed is returned by Decode for a buffer of the wrong length
// or with the wrong magic.
var ErrMalformed = errors.New("malformed result record")

// Record is one control-channel message. Results holds the outcome of
// every phase executed so far; Done marks the final record of a run.
type Record struct {
	Results [NumPhases]Result
	Done    bool
}

// New returns a record with all phase results set to None.
func New() Record {
	return Record{Results: [NumPhases]Result{None, None, None}}
}

// Encode serializes r into a Size-byte buffer.
func (r Record) Encode() []byte {
	b := make([]byte, Size)
	copy(b, magic[:])
	for i, res := range r.Results {
		b[len(magic)+i] = byte(res)
	}
	if r.Done {
		b[Size-1] = 1
	}
	return b
}

// Decode parses a Size-byte buffer produced by Encode. It fails with
// ErrMalformed when the length differs or the magic does not match.
func Decode(b []byte) (Record, error) {
	if len(b) != Size {
		return Record{}, errors.Wrapf(ErrMalformed, "got %d bytes, want %d", len(b), Size)
	}
	if !bytes.Equal(b[:len(magic)], magic[:]) {
		return Record{}, errors.Wrap(ErrMalformed, "bad magic")
	}
	r := Record{Done: b[Size-1] != 0}
	for i := range r.Results {
		r.Results[i] = Result(int8(b[len(magic)+i]))
	}
	return r, nil
}

// Worst returns the worst result of a phase vector under the ordering
// none < succeeded < failed < ignored < corrupted.
func Worst(results [NumPhases]Result) Result {
	worst := None
	for _, r := range results {
		if r > worst {
			worst = r
		}
	}
	return worst
}
