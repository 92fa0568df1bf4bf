// Copyright 2026 The Butcher Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package butcher

import "github.com/pkg/errors"

// Sentinel errors of the harness. Loader-side errors (LoadFailed,
// NoDescriptors) live in the descriptor package and codec errors
// (MalformedRecord) in the record package.
var (
	// ErrInvalidArgument reports a misuse of the harness API.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrRegexCompile reports a suite or test selection regex that does
	// not compile as a POSIX extended regex.
	ErrRegexCompile = errors.New("failed to compile regex")
	// ErrDuplicateBinding reports a setup or teardown descriptor whose
	// slot on the target test is already filled.
	ErrDuplicateBinding = errors.New("duplicate setup/teardown binding")
	// ErrPipeCreate reports a failure to allocate the per-test pipes.
	ErrPipeCreate = errors.New("failed to create pipe")
	// ErrFork reports that the runner child could not be spawned.
	ErrFork = errors.New("failed to spawn runner")
	// ErrExec reports an unusable runner executable.
	ErrExec = errors.New("failed to exec runner")
)
