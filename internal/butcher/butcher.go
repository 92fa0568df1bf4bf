// Copyright 2026 The Butcher Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package butcher implements the harness core: discovery of test
// descriptors in shared objects, per-test isolated execution through
// the bexec runner, and result reporting.
package butcher

import (
	"io"
	"regexp"

	"code.cloudfoundry.org/clock"
	"github.com/go-logr/logr"
	"github.com/pkg/errors"

	"github.com/xaberus/butcher/internal/shell"
)

// Display flags accepted by Tune.
const (
	FlagVerbose = 1 << iota
	FlagColor
	FlagDescriptions
	FlagMessages
	FlagEnvdump
)

// Butcher is the process-wide harness state. The zero value is not
// usable; construct with New and call Init before anything else.
type Butcher struct {
	logger logr.Logger
	clk    clock.Clock

	out      io.Writer
	bexec    string
	debugger []string

	sregex *regexp.Regexp
	tregex *regexp.Regexp

	objects []*Object

	verbose      bool
	color        bool
	descriptions bool
	messages     bool
	envdump      bool

	initialized bool
}

// Option configures a Butcher.
type Option func(*Butcher)

// WithLogger routes harness diagnostics to l.
func WithLogger(l logr.Logger) Option {
	return func(b *Butcher) { b.logger = l }
}

// WithClock substitutes the clock used for poll pacing and timing.
func WithClock(c clock.Clock) Option {
	return func(b *Butcher) { b.clk = c }
}

// New creates an uninitialized Butcher.
func New(opts ...Option) *Butcher {
	b := &Butcher{
		logger: logr.Discard(),
		clk:    clock.NewClock(),
	}
	for _, o := range opts {
		o(b)
	}
	return b
}

// Init prepares the harness: the path of the bexec runner executable,
// the report output sink, and the two POSIX extended selection
// regexes. Empty regexes select everything.
func (b *Butcher) Init(bexecPath string, out io.Writer, suiteMatch, testMatch string) error {
	if b.initialized {
		return errors.Wrap(ErrInvalidArgument, "already initialized")
	}
	if bexecPath == "" || out == nil {
		return errors.Wrap(ErrInvalidArgument, "missing runner path or output sink")
	}

	compile := func(expr string) (*regexp.Regexp, error) {
		if expr == "" {
			expr = ".*"
		}
		re, err := regexp.CompilePOSIX(expr)
		if err != nil {
			return nil, errors.Wrapf(ErrRegexCompile, "%q: %v", expr, err)
		}
		return re, nil
	}

	var err error
	if b.sregex, err = compile(suiteMatch); err != nil {
		return err
	}
	if b.tregex, err = compile(testMatch); err != nil {
		return err
	}

	b.bexec = bexecPath
	b.out = out
	b.initialized = true
	return nil
}

// Tune sets the display flags.
func (b *Butcher) Tune(flags uint) error {
	if !b.initialized {
		return errors.Wrap(ErrInvalidArgument, "not initialized")
	}
	b.verbose = flags&FlagVerbose != 0
	b.color = flags&FlagColor != 0
	b.descriptions = flags&FlagDescriptions != 0
	b.messages = flags&FlagMessages != 0
	b.envdump = flags&FlagEnvdump != 0
	return nil
}

// SetDebugger configures a debugger command line to wrap the runner
// with. In debugger mode at most one test runs, in the foreground.
func (b *Butcher) SetDebugger(cmdline string) error {
	if !b.initialized {
		return errors.Wrap(ErrInvalidArgument, "not initialized")
	}
	argv, err := shell.Split(cmdline)
	if err != nil {
		return errors.Wrapf(ErrInvalidArgument, "debugger command line: %v", err)
	}
	if len(argv) == 0 {
		return errors.Wrap(ErrInvalidArgument, "empty debugger command line")
	}
	b.debugger = argv
	return nil
}

// Load discovers one shared object and adds it to the harness.
func (b *Butcher) Load(path string) error {
	if !b.initialized {
		return errors.Wrap(ErrInvalidArgument, "not initialized")
	}
	obj, err := loadObject(path)
	if err != nil {
		return err
	}
	b.logger.V(1).Info("loaded object", "path", path, "suites", len(obj.Suites))
	b.objects = append(b.objects, obj)
	return nil
}

// LoadAll loads every path. A failing object is reported and skipped;
// the first error is returned after all paths were tried.
func (b *Butcher) LoadAll(paths []string) error {
	var first error
	for _, p := range paths {
		if err := b.Load(p); err != nil {
			b.logger.Error(err, "could not load shared object", "path", p)
			if first == nil {
				first = err
			}
		}
	}
	return first
}

// Objects returns the loaded objects in load order.
func (b *Butcher) Objects() []*Object {
	return b.objects
}

// Close unloads every object. The suite trees, collected logs and
// descriptor indices become invalid.
func (b *Butcher) Close() error {
	var first error
	for _, obj := range b.objects {
		if err := obj.Close(); err != nil && first == nil {
			first = err
		}
	}
	b.objects = nil
	return first
}
