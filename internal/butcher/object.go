// Copyright 2026 The Butcher Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package butcher

import (
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"

	"github.com/xaberus/butcher/internal/descriptor"
	"github.com/xaberus/butcher/internal/record"
)

// NilSuite is the suite name used for descriptors that carry an empty
// suite name.
const NilSuite = "(nil)"

// Test is one discovered test: the descriptor index of its callable,
// the optional setup/teardown indices, and everything a run fills in.
type Test struct {
	Name string

	// Function is the descriptor index of the test callable. Setup and
	// Teardown are descriptor.None when absent.
	Function int
	Setup    int
	Teardown int

	// Results is the per-phase outcome vector, all None before a run.
	Results [record.NumPhases]record.Result
	// Rusage is the child's resource usage as reported by wait4.
	Rusage unix.Rusage
	// Elapsed is the wall-clock time between spawn and reap.
	Elapsed time.Duration
	// Log holds the child's output lines in arrival order.
	Log []string
}

// newTest returns a Test with unfilled results and indices.
func newTest(name string, function int) *Test {
	return &Test{
		Name:     name,
		Function: function,
		Setup:    descriptor.None,
		Teardown: descriptor.None,
		Results:  [record.NumPhases]record.Result{record.None, record.None, record.None},
	}
}

// Worst returns the worst phase result of the test.
func (t *Test) Worst() record.Result {
	return record.Worst(t.Results)
}

// Ran reports whether any phase produced a result.
func (t *Test) Ran() bool {
	return t.Worst() > record.None
}

// Suite groups the tests sharing a suite name.
type Suite struct {
	Name  string
	Tests map[string]*Test
}

// Object is one loaded shared library with its discovered suite tree.
// The dynamic-loader handle is held for the lifetime of the object so
// descriptor indices stay valid until Close.
type Object struct {
	Path   string
	Suites map[string]*Suite

	dl *descriptor.Object
}

// Handle returns the raw dynamic-loader handle for display purposes.
func (o *Object) Handle() uintptr {
	if o.dl == nil {
		return 0
	}
	return o.dl.Handle()
}

// Close unloads the object.
func (o *Object) Close() error {
	if o.dl == nil {
		return nil
	}
	err := o.dl.Close()
	o.dl = nil
	return err
}

// loadObject validates, loads and discovers one shared object. The
// path is made absolute first, so the runner is handed an absolute
// library path and dlopen never treats the name as a search.
func loadObject(path string) (*Object, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, errors.Wrapf(descriptor.ErrLoadFailed, "%s: %v", path, err)
	}
	path = abs
	if err := descriptor.Validate(path); err != nil {
		return nil, err
	}
	dl, err := descriptor.Open(path, descriptor.Lazy)
	if err != nil {
		return nil, err
	}
	suites, err := discover(dl.Records())
	if err != nil {
		dl.Close()
		return nil, err
	}
	return &Object{Path: path, Suites: suites, dl: dl}, nil
}

// discover builds the suite/test tree from a descriptor table in two
// passes: the first registers every test descriptor, the second
// attaches setup and teardown descriptors to the tests they name.
// Setup/teardown descriptors whose target test does not exist are
// skipped; they can belong to a test compiled out of the object.
func discover(recs []descriptor.Record) (map[string]*Suite, error) {
	suites := make(map[string]*Suite)

	suiteName := func(r descriptor.Record) string {
		if r.Suite == "" {
			return NilSuite
		}
		return r.Suite
	}

	for i, r := range recs {
		if !r.Kind.IsTest() {
			continue
		}
		name := suiteName(r)
		suite, ok := suites[name]
		if !ok {
			suite = &Suite{Name: name, Tests: make(map[string]*Test)}
			suites[name] = suite
		}
		if _, ok := suite.Tests[r.Name]; ok {
			return nil, errors.Wrapf(ErrDuplicateBinding, "test %s/%s registered twice", name, r.Name)
		}
		suite.Tests[r.Name] = newTest(r.Name, i)
	}

	for i, r := range recs {
		var slot func(*Test) *int
		switch r.Kind {
		case descriptor.KindSetup:
			slot = func(t *Test) *int { return &t.Setup }
		case descriptor.KindTeardown:
			slot = func(t *Test) *int { return &t.Teardown }
		default:
			continue
		}
		suite, ok := suites[suiteName(r)]
		if !ok {
			continue
		}
		test, ok := suite.Tests[r.Name]
		if !ok {
			continue
		}
		p := slot(test)
		if *p != descriptor.None {
			return nil, errors.Wrapf(ErrDuplicateBinding, "%s of %s/%s bound twice",
				r.Kind, suiteName(r), r.Name)
		}
		*p = i
	}

	return suites, nil
}
