// Copyright 2026 The Butcher Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package descriptor

import (
	"unsafe"

	"github.com/pkg/errors"
)

// rawRecord mirrors the C ABI struct placed into the descriptor
// section by the client macros:
//
//	struct { const char *name; const char *extra; unsigned long flags;
//	         int (*function)(void *, void **); }
//
// All four fields are machine words, so the layout matches on every
// supported architecture.
type rawRecord struct {
	name  *byte
	extra *byte
	flags uintptr
	fn    uintptr
}

// RecordSize is the in-memory size of one descriptor record.
const RecordSize = unsafe.Sizeof(rawRecord{})

// decodeTable reads the descriptor array bracketed by [start, stop).
// Both addresses come from resolving the bracket symbols in a loaded
// object, so the memory stays valid while the object is pinned.
func decodeTable(start, stop uintptr) ([]Record, error) {
	if stop < start || (stop-start)%RecordSize != 0 {
		return nil, errors.Wrapf(ErrNoDescriptors,
			"descriptor section bounds [%#x, %#x) are not a whole number of records", start, stop)
	}
	n := int((stop - start) / RecordSize)
	recs := make([]Record, 0, n)
	for i := 0; i < n; i++ {
		raw := (*rawRecord)(unsafe.Pointer(start + uintptr(i)*RecordSize))
		recs = append(recs, Record{
			Name:  goString(raw.name),
			Suite: goString(raw.extra),
			Kind:  Kind(raw.flags & kindMask),
			Func:  raw.fn,
		})
	}
	return recs, nil
}

// goString copies a NUL-terminated C string out of the loaded object.
func goString(p *byte) string {
	if p == nil {
		return ""
	}
	var n int
	for ptr := unsafe.Pointer(p); *(*byte)(ptr) != 0; ptr = unsafe.Add(ptr, 1) {
		n++
	}
	return string(unsafe.Slice(p, n))
}
