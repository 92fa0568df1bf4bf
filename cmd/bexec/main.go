// Copyright 2026 The Butcher Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Command bexec is the butcher test runner. It is spawned by the
// butcher front-end once per test, receives its instructions through
// environment variables, loads the shared object under test, runs
// setup, test and teardown, and reports per-phase results over the
// control descriptor. It is not meant to be invoked by hand.
package main

import (
	"fmt"
	"os"

	"github.com/xaberus/butcher/internal/bexec"
	"github.com/xaberus/butcher/internal/shell"
)

// The C runtime convention for a failed runner is exit(-1), which the
// parent observes as 255.
const exitFailure = 255

func main() {
	opts, err := bexec.ParseEnv(os.Getenv)
	if err != nil {
		fmt.Fprintf(os.Stderr, "bexec: %v\n", err)
		os.Exit(exitFailure)
	}

	if opts.Envdump {
		dumpEnv()
	}

	tester, cleanup, err := bexec.Load(opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "bexec: %v\n", err)
		os.Exit(exitFailure)
	}

	if opts.Verbose {
		fmt.Fprintf(os.Stderr, "bexec: running test %d of %s\n", opts.Test, opts.Library)
	}

	err = tester.Run()
	cleanup()
	if err != nil {
		fmt.Fprintf(os.Stderr, "bexec: %v\n", err)
		os.Exit(exitFailure)
	}
	os.Exit(0)
}

// dumpEnv writes the environment and argv to stderr in a form that
// can be replayed with env -i for debugging a single run.
func dumpEnv() {
	fmt.Fprintf(os.Stderr, "BEXEC here ( env -i %s %s )\n",
		shell.EscapeSlice(os.Environ()), shell.EscapeSlice(os.Args))
}
