// Copyright 2026 The Butcher Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package bexec implements the test-runner side of the harness: the
// child process that loads a shared object, invokes the setup, test
// and teardown callables of a single test and streams result records
// back to the orchestrating parent.
package bexec

import (
	"io"

	"github.com/pkg/errors"

	"github.com/xaberus/butcher/internal/record"
)

// Return codes of the embedded test callables.
const (
	codeOK     = 0
	codeIgnore = 1
	codeFail   = 2
)

// Func invokes one test callable. The in argument is the fixture
// object threaded from the previous phase (0 for setup); the callable
// may replace it through out. The return value is the callable's raw
// return code.
type Func func(in uintptr, out *uintptr) int32

// Tester runs the three phases of a single test. It replaces the
// process-wide state of earlier designs with an explicit value so the
// same code path serves fixtured and plain tests.
type Tester struct {
	setup    Func // nil when the test has no setup
	test     Func
	teardown Func // nil when the test has no teardown

	// ctl is the control channel, nil when suppressed.
	ctl io.Writer

	rec record.Record
	obj uintptr
}

// NewTester assembles a Tester from resolved callables. Setup and
// teardown may be nil. ctl may be nil to suppress result records.
func NewTester(setup, test, teardown Func, ctl io.Writer) (*Tester, error) {
	if test == nil {
		return nil, errors.New("test callable is required")
	}
	return &Tester{
		setup:    setup,
		test:     test,
		teardown: teardown,
		ctl:      ctl,
		rec:      record.New(),
	}, nil
}

// mapCode translates a callable return code into a phase result.
func mapCode(code int32) record.Result {
	switch code {
	case codeOK:
		return record.Succeeded
	case codeIgnore:
		return record.Ignored
	case codeFail:
		return record.Failed
	}
	return record.Corrupted
}

// Run executes the phases in order, emitting a result record after
// each executed phase. A phase without a callable keeps its None
// result and emits nothing. Any result worse than succeeded skips the
// remaining phases. The final record always carries done=1.
func (t *Tester) Run() error {
	phases := []struct {
		phase record.Phase
		fn    Func
	}{
		{record.PhaseSetup, t.setup},
		{record.PhaseTest, t.test},
		{record.PhaseTeardown, t.teardown},
	}

	for _, p := range phases {
		if p.fn == nil {
			continue
		}
		res := mapCode(p.fn(t.obj, &t.obj))
		t.rec.Results[p.phase] = res
		if err := t.emit(); err != nil {
			return err
		}
		if res != record.Succeeded {
			break
		}
	}

	t.rec.Done = true
	return t.emit()
}

// Results returns the phase results collected so far.
func (t *Tester) Results() [record.NumPhases]record.Result {
	return t.rec.Results
}

// emit writes the current record to the control channel with a single
// write call, so the parent can rely on record-sized atomic frames.
func (t *Tester) emit() error {
	if t.ctl == nil {
		return nil
	}
	if _, err := t.ctl.Write(t.rec.Encode()); err != nil {
		return errors.Wrap(err, "writing result record")
	}
	return nil
}
