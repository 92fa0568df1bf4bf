// Copyright 2026 The Butcher Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package butcher

import (
	"fmt"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"

	"github.com/xaberus/butcher/internal/record"
)

// timevalDuration converts a wait4 timeval into a time.Duration.
func timevalDuration(tv unix.Timeval) time.Duration {
	return time.Duration(tv.Sec)*time.Second + time.Duration(tv.Usec)*time.Microsecond
}

// ANSI SGR codes used by the reporter.
const (
	cGreen      = "1;32"
	cYellow     = "1;33"
	cRed        = "1;31"
	cBlue       = "1;34"
	cMagenta    = "1;35"
	cCyan       = "1;36"
	cOnRed      = "1;41"
	cOnCyan     = "1;46;2;32"
	cOnCyanWarn = "1;46;2;33"
)

// paint wraps s in the given SGR code when color output is enabled.
func (b *Butcher) paint(code, s string) string {
	if !b.color {
		return s
	}
	return "\x1b[" + code + "m" + s + "\x1b[0m"
}

// resultColor maps a result to its display color.
func resultColor(r record.Result) string {
	switch r {
	case record.Succeeded:
		return cGreen
	case record.Ignored:
		return cYellow
	default:
		return cRed
	}
}

// counts aggregates worst-phase outcomes.
type counts struct {
	total   int
	results [record.Corrupted + 1]int
}

func (c *counts) add(r record.Result) {
	if r > record.None {
		c.results[r]++
		c.total++
	}
}

func (c *counts) merge(o counts) {
	c.total += o.total
	for i := range c.results {
		c.results[i] += o.results[i]
	}
}

func pct(n, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(n) / float64(total) * 100
}

// summary renders the per-suite and overall count line.
func (c *counts) summary() string {
	return fmt.Sprintf("%d tests, %d succeeded (%g%%), %d ignored (%g%%), %d failed (%g%%), %d corrupted (%g%%)",
		c.total,
		c.results[record.Succeeded], pct(c.results[record.Succeeded], c.total),
		c.results[record.Ignored], pct(c.results[record.Ignored], c.total),
		c.results[record.Failed], pct(c.results[record.Failed], c.total),
		c.results[record.Corrupted], pct(c.results[record.Corrupted], c.total))
}

// Report walks the tree in load order and renders the aggregated
// results to the output sink. It performs no I/O with children.
func (b *Butcher) Report() error {
	if !b.initialized {
		return errors.Wrap(ErrInvalidArgument, "not initialized")
	}

	fmt.Fprintf(b.out, "%s...\n", b.paint(cGreen, "listing results for loaded objects (worst counts)"))

	var all counts
	for _, obj := range b.objects {
		fmt.Fprintf(b.out, "[%s, name='%s']\n", b.paint(cYellow, "elf"), b.paint(cRed, obj.Path))

		for _, sname := range sortedKeys(obj.Suites) {
			suite := obj.Suites[sname]
			fmt.Fprintf(b.out, " [%s, name='%s']\n", b.paint(cBlue, "suite"), b.paint(cGreen, sname))

			var sc counts
			for _, tname := range sortedKeys(suite.Tests) {
				test := suite.Tests[tname]
				b.reportTest(test)
				sc.add(test.Worst())
			}
			all.merge(sc)

			fmt.Fprintf(b.out, "  => %s\n", sc.summary())
		}
	}

	fmt.Fprintf(b.out, " => %s\n", all.summary())
	return nil
}

// reportTest renders one test: header, log lines, phase-by-phase
// outcome and the worst-phase classification. Successful tests are
// shown only in verbose mode.
func (b *Butcher) reportTest(test *Test) {
	worst := test.Worst()
	show := b.verbose || worst > record.Succeeded
	if !show {
		return
	}

	fmt.Fprintf(b.out, "  [%s, name='%s']\n", b.paint(cMagenta, "test"), b.paint(cRed, test.Name))
	if b.descriptions {
		fmt.Fprintf(b.out, "   function=%d setup=%d teardown=%d\n",
			test.Function, test.Setup, test.Teardown)
	}

	if worst > record.Succeeded || b.messages {
		for _, line := range test.Log {
			if worst > record.Succeeded {
				fmt.Fprintf(b.out, "   %s\n", b.paint(cRed, line))
			} else {
				fmt.Fprintf(b.out, "   %s\n", line)
			}
		}
	}

	if !test.Ran() {
		return
	}

	fmt.Fprintf(b.out, "   -> results: ")
	first := true
	for i, res := range test.Results {
		if res == record.None {
			continue
		}
		if !first {
			fmt.Fprintf(b.out, ", ")
		}
		first = false
		fmt.Fprintf(b.out, "%s %s",
			b.paint(cCyan, record.Phase(i).String()),
			b.paint(resultColor(res), res.String()))
	}

	badge := cOnRed
	switch worst {
	case record.Succeeded:
		badge = cOnCyan
	case record.Ignored:
		badge = cOnCyanWarn
	}
	fmt.Fprintf(b.out, " -> [%s]\n", b.paint(badge, worst.String()))

	if b.verbose {
		fmt.Fprintf(b.out, "   rusage: wall %v, user %v, sys %v, maxrss %dkB\n",
			test.Elapsed,
			timevalDuration(test.Rusage.Utime),
			timevalDuration(test.Rusage.Stime),
			test.Rusage.Maxrss)
	}
}
