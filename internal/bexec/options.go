// Copyright 2026 The Butcher Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package bexec

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/xaberus/butcher/internal/descriptor"
)

// Environment variables making up the runner's invocation contract.
// The orchestrator sets these before exec; everything else about the
// child's command line is opaque to the runner.
const (
	EnvLibrary   = "butcher_elf_name"
	EnvTest      = "butcher_test_function"
	EnvSetup     = "butcher_test_setup"
	EnvTeardown  = "butcher_test_teardown"
	EnvControlFD = "butcher_cfd"
	EnvVerbose   = "butcher_verbose"
	EnvEnvdump   = "butcher_envdump"
	EnvUnload    = "butcher_unload"
)

// Options is the decoded environment contract.
type Options struct {
	// Library is the absolute path of the shared object under test.
	Library string
	// Test is the descriptor index of the test callable.
	Test int
	// Setup and Teardown are descriptor indices, or descriptor.None.
	Setup    int
	Teardown int
	// ControlFD is the control-channel descriptor, or -1 when the
	// orchestrator did not allocate one. Without a control channel the
	// runner suppresses result records and logs to stderr.
	ControlFD int
	Verbose   bool
	Envdump   bool
	Unload    bool
}

// ParseEnv decodes the runner options from the environment. The getenv
// argument is os.Getenv in production.
func ParseEnv(getenv func(string) string) (*Options, error) {
	opts := &Options{
		Setup:     descriptor.None,
		Teardown:  descriptor.None,
		ControlFD: -1,
		Verbose:   envBool(getenv(EnvVerbose), false),
		Envdump:   envBool(getenv(EnvEnvdump), false),
		Unload:    envBool(getenv(EnvUnload), true),
	}

	opts.Library = getenv(EnvLibrary)
	if opts.Library == "" {
		return nil, errors.Errorf("%s not set", EnvLibrary)
	}

	v := getenv(EnvTest)
	if v == "" {
		return nil, errors.Errorf("%s not set", EnvTest)
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return nil, errors.Errorf("%s: bad descriptor index %q", EnvTest, v)
	}
	opts.Test = n

	for _, e := range []struct {
		name string
		dst  *int
	}{
		{EnvSetup, &opts.Setup},
		{EnvTeardown, &opts.Teardown},
	} {
		v := getenv(e.name)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return nil, errors.Errorf("%s: bad descriptor index %q", e.name, v)
		}
		*e.dst = n
	}

	if v := getenv(EnvControlFD); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return nil, errors.Errorf("%s: bad file descriptor %q", EnvControlFD, v)
		}
		opts.ControlFD = n
	}

	return opts, nil
}

// envBool interprets a boolean environment value. Unrecognized values
// leave the default untouched.
func envBool(v string, def bool) bool {
	switch strings.ToLower(v) {
	case "true", "1":
		return true
	case "false", "0":
		return false
	}
	return def
}
