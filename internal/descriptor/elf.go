// Copyright 2026 The Butcher Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package descriptor

import (
	"debug/elf"

	"github.com/pkg/errors"
)

// Validate performs a read-only pre-flight check of a candidate test
// object before any code from it is mapped: the file must parse as an
// ELF shared object and carry the descriptor section together with its
// bracket symbols. This keeps obviously unusable files from ever
// reaching dlopen.
func Validate(path string) error {
	f, err := elf.Open(path)
	if err != nil {
		return errors.Wrapf(ErrLoadFailed, "%s: %v", path, err)
	}
	defer f.Close()

	if f.Type != elf.ET_DYN {
		return errors.Wrapf(ErrLoadFailed, "%s: not a shared object (type %v)", path, f.Type)
	}
	if f.Section(Section) == nil {
		return errors.Wrapf(ErrNoDescriptors, "%s: no %q section", path, Section)
	}

	syms, err := f.DynamicSymbols()
	if err != nil {
		return errors.Wrapf(ErrLoadFailed, "%s: reading dynamic symbols: %v", path, err)
	}
	var start, stop bool
	for _, s := range syms {
		switch s.Name {
		case StartSymbol:
			start = true
		case StopSymbol:
			stop = true
		}
	}
	if !start || !stop {
		return errors.Wrapf(ErrNoDescriptors, "%s: bracket symbols %s/%s not exported",
			path, StartSymbol, StopSymbol)
	}
	return nil
}
