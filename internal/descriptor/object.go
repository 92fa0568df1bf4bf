// Copyright 2026 The Butcher Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package descriptor

import (
	"github.com/ebitengine/purego"
	"github.com/pkg/errors"
)

// Mode selects the dlopen symbol-binding mode.
type Mode int

const (
	// Lazy defers symbol resolution; used by the discovering parent,
	// which never calls into the object.
	Lazy Mode = iota
	// Now resolves every symbol immediately; used by the runner so
	// that unresolvable objects fail at load time, not mid-test.
	Now
)

// Object is a dlopen-ed shared object together with its decoded
// descriptor table. Holding an Object pins the library's pages, so
// the strings and callable addresses in the table stay valid until
// Close.
type Object struct {
	path    string
	handle  uintptr
	records []Record
}

// Open loads the shared object at path and decodes its descriptor
// table. It fails with ErrLoadFailed when the dynamic loader rejects
// the file and with ErrNoDescriptors when the bracket symbols are
// missing.
func Open(path string, mode Mode) (*Object, error) {
	// The discovering parent only resolves symbols through the handle,
	// so its objects stay out of the global namespace; otherwise a
	// later object could bind its undefined refs against an earlier
	// one.
	flags := purego.RTLD_LOCAL | purego.RTLD_LAZY
	if mode == Now {
		flags = purego.RTLD_GLOBAL | purego.RTLD_NOW
	}
	handle, err := purego.Dlopen(path, flags)
	if err != nil {
		return nil, errors.Wrapf(ErrLoadFailed, "%s: %v", path, err)
	}

	start, err := purego.Dlsym(handle, StartSymbol)
	if err != nil {
		purego.Dlclose(handle)
		return nil, errors.Wrapf(ErrNoDescriptors, "%s: %v", path, err)
	}
	stop, err := purego.Dlsym(handle, StopSymbol)
	if err != nil {
		purego.Dlclose(handle)
		return nil, errors.Wrapf(ErrNoDescriptors, "%s: %v", path, err)
	}

	records, err := decodeTable(start, stop)
	if err != nil {
		purego.Dlclose(handle)
		return nil, err
	}

	return &Object{path: path, handle: handle, records: records}, nil
}

// Path returns the filesystem path the object was loaded from.
func (o *Object) Path() string { return o.path }

// Handle returns the raw dynamic-loader handle.
func (o *Object) Handle() uintptr { return o.handle }

// Records returns the decoded descriptor table in section order.
func (o *Object) Records() []Record { return o.records }

// Count returns the number of descriptor records.
func (o *Object) Count() int { return len(o.records) }

// Lookup returns the record at descriptor index i.
func (o *Object) Lookup(i int) (Record, bool) {
	if i < 0 || i >= len(o.records) {
		return Record{}, false
	}
	return o.records[i], true
}

// Close unloads the object. The descriptor table and every address in
// it become invalid.
func (o *Object) Close() error {
	if o.handle == 0 {
		return nil
	}
	err := purego.Dlclose(o.handle)
	o.handle = 0
	o.records = nil
	if err != nil {
		return errors.Wrap(err, "dlclose")
	}
	return nil
}
