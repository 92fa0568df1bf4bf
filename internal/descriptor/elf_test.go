// Copyright 2026 The Butcher Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package descriptor_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"

	"github.com/xaberus/butcher/internal/descriptor"
	"github.com/xaberus/butcher/testutil"
)

func TestValidateRejectsNonELF(t *testing.T) {
	td := testutil.TempDir(t)
	defer os.RemoveAll(td)

	p := filepath.Join(td, "not-an-object.so")
	if err := os.WriteFile(p, []byte("definitely not ELF"), 0644); err != nil {
		t.Fatal(err)
	}

	err := descriptor.Validate(p)
	if !errors.Is(err, descriptor.ErrLoadFailed) {
		t.Errorf("Validate(%q) = %v; want ErrLoadFailed", p, err)
	}
}

func TestValidateMissingFile(t *testing.T) {
	err := descriptor.Validate("/nonexistent/libfoo.so")
	if !errors.Is(err, descriptor.ErrLoadFailed) {
		t.Errorf("Validate = %v; want ErrLoadFailed", err)
	}
}

func TestValidateNoDescriptors(t *testing.T) {
	// The test binary's dynamic loader runtime is an ELF shared object
	// without a bexec section, which makes it a convenient fixture.
	for _, p := range []string{"/lib64/ld-linux-x86-64.so.2", "/lib/ld-linux-aarch64.so.1"} {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		err := descriptor.Validate(p)
		if !errors.Is(err, descriptor.ErrNoDescriptors) {
			t.Errorf("Validate(%q) = %v; want ErrNoDescriptors", p, err)
		}
		return
	}
	t.Skip("no system shared object found")
}
