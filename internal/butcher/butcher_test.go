// Copyright 2026 The Butcher Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package butcher

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/pkg/errors"

	"github.com/xaberus/butcher/internal/descriptor"
	"github.com/xaberus/butcher/testutil"
)

func TestInitValidation(t *testing.T) {
	var out bytes.Buffer

	b := New()
	if err := b.Init("", &out, "", ""); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("Init with empty runner path = %v; want ErrInvalidArgument", err)
	}

	b = New()
	if err := b.Init("/usr/libexec/bexec", nil, "", ""); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("Init with nil sink = %v; want ErrInvalidArgument", err)
	}

	b = New()
	if err := b.Init("/usr/libexec/bexec", &out, "", ""); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	if err := b.Init("/usr/libexec/bexec", &out, "", ""); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("second Init = %v; want ErrInvalidArgument", err)
	}
}

func TestInitBadRegex(t *testing.T) {
	var out bytes.Buffer
	b := New()
	if err := b.Init("/usr/libexec/bexec", &out, "[unterminated", ""); !errors.Is(err, ErrRegexCompile) {
		t.Errorf("Init with bad suite regex = %v; want ErrRegexCompile", err)
	}
	b = New()
	if err := b.Init("/usr/libexec/bexec", &out, "", "(a|"); !errors.Is(err, ErrRegexCompile) {
		t.Errorf("Init with bad test regex = %v; want ErrRegexCompile", err)
	}
}

func TestUninitializedOperations(t *testing.T) {
	b := New()
	if err := b.Tune(FlagVerbose); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("Tune = %v; want ErrInvalidArgument", err)
	}
	if err := b.SetDebugger("gdb"); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("SetDebugger = %v; want ErrInvalidArgument", err)
	}
	if err := b.Load("libfoo.so"); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("Load = %v; want ErrInvalidArgument", err)
	}
	if err := b.Chop(); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("Chop = %v; want ErrInvalidArgument", err)
	}
	if err := b.Report(); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("Report = %v; want ErrInvalidArgument", err)
	}
	if err := b.List(); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("List = %v; want ErrInvalidArgument", err)
	}
}

func TestTuneFlags(t *testing.T) {
	var out bytes.Buffer
	b := New()
	if err := b.Init("/usr/libexec/bexec", &out, "", ""); err != nil {
		t.Fatal(err)
	}
	if err := b.Tune(FlagVerbose | FlagColor | FlagMessages); err != nil {
		t.Fatal(err)
	}
	if !b.verbose || !b.color || !b.messages || b.envdump || b.descriptions {
		t.Errorf("unexpected flag state: %+v", b)
	}
	// Tune replaces, not accumulates.
	if err := b.Tune(0); err != nil {
		t.Fatal(err)
	}
	if b.verbose || b.color || b.messages {
		t.Error("Tune(0) did not clear flags")
	}
}

func TestSetDebugger(t *testing.T) {
	var out bytes.Buffer
	b := New()
	if err := b.Init("/usr/libexec/bexec", &out, "", ""); err != nil {
		t.Fatal(err)
	}

	if err := b.SetDebugger("valgrind --leak-check=full"); err != nil {
		t.Fatalf("SetDebugger failed: %v", err)
	}
	if diff := cmp.Diff([]string{"valgrind", "--leak-check=full"}, b.debugger); diff != "" {
		t.Errorf("debugger argv mismatch (-want +got):\n%s", diff)
	}

	if err := b.SetDebugger(""); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("SetDebugger(\"\") = %v; want ErrInvalidArgument", err)
	}
	if err := b.SetDebugger("'unterminated"); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("SetDebugger with bad quoting = %v; want ErrInvalidArgument", err)
	}
}

func TestLoadAllContinuesPastFailures(t *testing.T) {
	td := testutil.TempDir(t)
	t.Cleanup(func() { os.RemoveAll(td) })

	// A file that is not ELF at all; loading must fail but not panic,
	// and the error must surface from LoadAll.
	bogus := filepath.Join(td, "bogus.so")
	if err := os.WriteFile(bogus, []byte("nope"), 0644); err != nil {
		t.Fatal(err)
	}

	var out bytes.Buffer
	b := New()
	if err := b.Init("/usr/libexec/bexec", &out, "", ""); err != nil {
		t.Fatal(err)
	}

	err := b.LoadAll([]string{bogus, filepath.Join(td, "missing.so")})
	if !errors.Is(err, descriptor.ErrLoadFailed) {
		t.Errorf("LoadAll = %v; want ErrLoadFailed", err)
	}
	if len(b.Objects()) != 0 {
		t.Errorf("LoadAll registered %d objects; want 0", len(b.Objects()))
	}
}
