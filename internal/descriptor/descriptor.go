// Copyright 2026 The Butcher Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package descriptor gives access to the test descriptor table
// embedded in a shared object.
//
// A test object carries a contiguous array of descriptor records in a
// dedicated section, bracketed by two externally visible symbols that
// the link editor emits for any named section. The array is the wire
// contract between the discovering parent and the bexec runner: both
// processes load the same file, so both see the identical sequence and
// can refer to a callable by its integer index.
package descriptor

import "github.com/pkg/errors"

const (
	// Section is the name of the dedicated descriptor section.
	Section = "bexec"
	// StartSymbol names the first record of the descriptor array.
	StartSymbol = "__start_bexec"
	// StopSymbol names the byte just past the last record.
	StopSymbol = "__stop_bexec"
)

// None marks an absent setup or teardown descriptor index.
const None = -1

// Kind tags a descriptor record. The tag lives in the low nibble of
// the record's flags word.
type Kind int

// Descriptor kinds as emitted by the client-side section macros.
const (
	KindTest Kind = iota
	KindFixturedTest
	KindSetup
	KindTeardown
)

const kindMask = 0xf

// String implements fmt.Stringer.
func (k Kind) String() string {
	switch k {
	case KindTest:
		return "test"
	case KindFixturedTest:
		return "fixtured-test"
	case KindSetup:
		return "setup"
	case KindTeardown:
		return "teardown"
	}
	return "unknown"
}

// IsTest reports whether the record registers a test (as opposed to
// attaching a setup or teardown to one).
func (k Kind) IsTest() bool {
	return k == KindTest || k == KindFixturedTest
}

// Record is one decoded descriptor. Func is the raw callable address
// inside the loaded object; it is only meaningful for as long as the
// object stays loaded.
type Record struct {
	Name  string
	Suite string
	Kind  Kind
	Func  uintptr
}

var (
	// ErrLoadFailed reports a dynamic-loader or ELF-reader failure.
	ErrLoadFailed = errors.New("failed to load shared object")
	// ErrNoDescriptors reports that the object carries no descriptor
	// section or bracket symbols.
	ErrNoDescriptors = errors.New("object has no test descriptors")
)
