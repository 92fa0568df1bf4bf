// Copyright 2026 The Butcher Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package butcher

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/xaberus/butcher/internal/descriptor"
)

// List dumps the discovered object/suite/test tree to the output sink
// instead of running anything.
func (b *Butcher) List() error {
	if !b.initialized {
		return errors.Wrap(ErrInvalidArgument, "not initialized")
	}

	fmt.Fprintf(b.out, "%s...\n", b.paint(cGreen, "listing loaded objects"))

	for _, obj := range b.objects {
		fmt.Fprintf(b.out, "[%s, name='%s', dlhandle=%#x]\n",
			b.paint(cYellow, "elf"), b.paint(cRed, obj.Path), obj.Handle())

		for _, sname := range sortedKeys(obj.Suites) {
			suite := obj.Suites[sname]
			fmt.Fprintf(b.out, " [%s, name='%s']\n", b.paint(cBlue, "suite"), b.paint(cGreen, sname))

			for _, tname := range sortedKeys(suite.Tests) {
				test := suite.Tests[tname]
				fmt.Fprintf(b.out, "  [%s, name='%s', function=%d", b.paint(cMagenta, "test"),
					b.paint(cRed, tname), test.Function)
				if test.Setup != descriptor.None {
					fmt.Fprintf(b.out, ", setup=%d", test.Setup)
				}
				if test.Teardown != descriptor.None {
					fmt.Fprintf(b.out, ", teardown=%d", test.Teardown)
				}
				fmt.Fprintf(b.out, "]\n")
			}
		}
	}
	return nil
}
