// Copyright 2026 The Butcher Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package bexec

import (
	"io"
	"os"
	"unsafe"

	"github.com/ebitengine/purego"
	"github.com/pkg/errors"

	"github.com/xaberus/butcher/internal/descriptor"
)

// Load opens the shared object named by opts with immediate symbol
// resolution, locates the descriptor table and resolves the three
// callables by index. The returned cleanup flushes and closes the
// control channel and, when opts.Unload is set, unloads the object.
func Load(opts *Options) (*Tester, func(), error) {
	obj, err := descriptor.Open(opts.Library, descriptor.Now)
	if err != nil {
		return nil, nil, err
	}

	resolve := func(name string, idx int) (Func, error) {
		if idx == descriptor.None {
			return nil, nil
		}
		rec, ok := obj.Lookup(idx)
		if !ok {
			return nil, errors.Errorf("%s descriptor index %d out of range [0, %d)",
				name, idx, obj.Count())
		}
		return call(rec.Func), nil
	}

	setup, err := resolve("setup", opts.Setup)
	if err != nil {
		obj.Close()
		return nil, nil, err
	}
	teardown, err := resolve("teardown", opts.Teardown)
	if err != nil {
		obj.Close()
		return nil, nil, err
	}
	test, err := resolve("test", opts.Test)
	if err != nil {
		obj.Close()
		return nil, nil, err
	}

	var ctl *os.File
	if opts.ControlFD >= 0 {
		ctl = os.NewFile(uintptr(opts.ControlFD), "control")
	}

	t, err := NewTester(setup, test, teardown, writerOrNil(ctl))
	if err != nil {
		obj.Close()
		return nil, nil, err
	}

	cleanup := func() {
		if ctl != nil {
			ctl.Close()
		}
		if opts.Unload {
			obj.Close()
		}
	}
	return t, cleanup, nil
}

// writerOrNil avoids storing a typed nil in the Tester's io.Writer.
func writerOrNil(f *os.File) io.Writer {
	if f == nil {
		return nil
	}
	return f
}

// call wraps a raw callable address from the descriptor table into a
// Func. The callable has the C signature int (*)(void *, void **).
func call(fn uintptr) Func {
	return func(in uintptr, out *uintptr) int32 {
		r1, _, _ := purego.SyscallN(fn, in, uintptr(unsafe.Pointer(out)))
		return int32(uint32(r1))
	}
}
