// Copyright 2026 The Butcher Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package butcher

import (
	"bytes"
	"strings"
	"testing"

	"github.com/xaberus/butcher/internal/record"
)

// reportButcher builds an initialized Butcher with an injected tree.
func reportButcher(t *testing.T, flags uint, suites map[string]*Suite) (*Butcher, *bytes.Buffer) {
	t.Helper()
	var out bytes.Buffer
	b := New()
	if err := b.Init("/usr/libexec/bexec", &out, "", ""); err != nil {
		t.Fatal(err)
	}
	if err := b.Tune(flags); err != nil {
		t.Fatal(err)
	}
	b.objects = []*Object{{Path: "libfoo.so", Suites: suites}}
	return b, &out
}

func resultTest(name string, results [record.NumPhases]record.Result) *Test {
	test := newTest(name, 0)
	test.Results = results
	return test
}

func TestReportAllSucceeded(t *testing.T) {
	b, out := reportButcher(t, 0, map[string]*Suite{
		"foosuite": {Name: "foosuite", Tests: map[string]*Test{
			"test_bar": resultTest("test_bar",
				[record.NumPhases]record.Result{record.None, record.Succeeded, record.None}),
		}},
	})

	if err := b.Report(); err != nil {
		t.Fatalf("Report failed: %v", err)
	}
	s := out.String()
	if !strings.Contains(s, "1 tests, 1 succeeded (100%)") {
		t.Errorf("missing suite summary, got:\n%s", s)
	}
	// Successful tests are hidden outside verbose mode.
	if strings.Contains(s, "test_bar") {
		t.Errorf("successful test shown without verbose, got:\n%s", s)
	}
}

func TestReportVerboseShowsEverything(t *testing.T) {
	suites := map[string]*Suite{
		"foosuite": {Name: "foosuite", Tests: map[string]*Test{
			"ok": resultTest("ok",
				[record.NumPhases]record.Result{record.Succeeded, record.Succeeded, record.Succeeded}),
		}},
	}
	b, out := reportButcher(t, FlagVerbose, suites)

	if err := b.Report(); err != nil {
		t.Fatalf("Report failed: %v", err)
	}
	s := out.String()
	for _, want := range []string{"ok", "setup succeeded", "test succeeded", "teardown succeeded", "rusage:"} {
		if !strings.Contains(s, want) {
			t.Errorf("verbose report missing %q, got:\n%s", want, s)
		}
	}
}

func TestReportFailuresAndCounts(t *testing.T) {
	suites := map[string]*Suite{
		"foosuite": {Name: "foosuite", Tests: map[string]*Test{
			"good": resultTest("good",
				[record.NumPhases]record.Result{record.None, record.Succeeded, record.None}),
			"bad": resultTest("bad",
				[record.NumPhases]record.Result{record.Succeeded, record.Failed, record.None}),
			"crash": resultTest("crash",
				[record.NumPhases]record.Result{record.Succeeded, record.Corrupted, record.None}),
			"skipped": resultTest("skipped",
				[record.NumPhases]record.Result{record.Ignored, record.None, record.None}),
		}},
	}
	b, out := reportButcher(t, 0, suites)

	if err := b.Report(); err != nil {
		t.Fatalf("Report failed: %v", err)
	}
	s := out.String()
	if !strings.Contains(s, "4 tests, 1 succeeded (25%), 1 ignored (25%), 1 failed (25%), 1 corrupted (25%)") {
		t.Errorf("bad counts, got:\n%s", s)
	}
	for _, want := range []string{"bad", "crash", "skipped", "[failed]", "[corrupted]", "[ignored]"} {
		if !strings.Contains(s, want) {
			t.Errorf("report missing %q, got:\n%s", want, s)
		}
	}
}

func TestReportLogLines(t *testing.T) {
	failed := resultTest("bad",
		[record.NumPhases]record.Result{record.Succeeded, record.Failed, record.None})
	failed.Log = []string{"assertion tripped", "(exited with signal 11)"}
	b, out := reportButcher(t, 0, map[string]*Suite{
		"s": {Name: "s", Tests: map[string]*Test{"bad": failed}},
	})

	if err := b.Report(); err != nil {
		t.Fatalf("Report failed: %v", err)
	}
	for _, want := range failed.Log {
		if !strings.Contains(out.String(), want) {
			t.Errorf("report missing log line %q, got:\n%s", want, out.String())
		}
	}
}

func TestReportUnrunTestKeepsCountsEmpty(t *testing.T) {
	b, out := reportButcher(t, FlagVerbose, map[string]*Suite{
		"s": {Name: "s", Tests: map[string]*Test{"never": newTest("never", 0)}},
	})

	if err := b.Report(); err != nil {
		t.Fatalf("Report failed: %v", err)
	}
	if !strings.Contains(out.String(), "0 tests, 0 succeeded (0%)") {
		t.Errorf("unexpected counts for unrun test, got:\n%s", out.String())
	}
}

func TestReportColorEscapes(t *testing.T) {
	suites := map[string]*Suite{
		"s": {Name: "s", Tests: map[string]*Test{
			"bad": resultTest("bad",
				[record.NumPhases]record.Result{record.None, record.Failed, record.None}),
		}},
	}

	b, out := reportButcher(t, FlagColor, suites)
	if err := b.Report(); err != nil {
		t.Fatalf("Report failed: %v", err)
	}
	if !strings.Contains(out.String(), "\x1b[") {
		t.Error("color mode produced no escape sequences")
	}

	b2, out2 := reportButcher(t, 0, suites)
	if err := b2.Report(); err != nil {
		t.Fatalf("Report failed: %v", err)
	}
	if strings.Contains(out2.String(), "\x1b[") {
		t.Error("escape sequences leaked into non-color output")
	}
}

func TestListTree(t *testing.T) {
	b, out := reportButcher(t, 0, map[string]*Suite{
		"foosuite": {Name: "foosuite", Tests: map[string]*Test{
			"fixtured": {Name: "fixtured", Function: 1, Setup: 0, Teardown: 2, Results: noneResults()},
		}},
	})

	if err := b.List(); err != nil {
		t.Fatalf("List failed: %v", err)
	}
	s := out.String()
	for _, want := range []string{"libfoo.so", "foosuite", "fixtured", "function=1", "setup=0", "teardown=2"} {
		if !strings.Contains(s, want) {
			t.Errorf("list output missing %q, got:\n%s", want, s)
		}
	}
}
