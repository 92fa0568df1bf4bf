// Copyright 2026 The Butcher Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Command butcher runs unit tests embedded in native shared objects.
// It discovers the test descriptors of every given object, spawns one
// isolated bexec runner per selected test and prints an aggregated
// report.
package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/go-logr/logr"
	"github.com/go-logr/stdr"
	"github.com/go-logr/zapr"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xaberus/butcher/internal/butcher"
	"github.com/xaberus/butcher/internal/config"
	"github.com/xaberus/butcher/internal/descriptor"
	"github.com/xaberus/butcher/internal/record"
)

const longHelp = `The BUTCHER unit test - runs test functions inside shared objects
with the help of the dynamic loader. Tests are embedded into a
dedicated section of the object at link time; every test runs in its
own child process, so crashes are reported instead of taking the
harness down.

Suites and tests are selected with POSIX extended regexes as provided
by the POSIX2 specification (man 7 regex).`

const exampleHelp = `  export LD_LIBRARY_PATH=<path to link dependencies>
  butcher -cv -s '^ugly' -t '^important' libfoo.so libbar.so`

// options collects every flag of the front-end.
type options struct {
	suiteMatch string
	testMatch  string
	verbose    int
	quiet      bool
	color      bool
	noColor    bool
	outFD      int
	list       bool
	bexec      string
	debugger   string
	valgrind   bool
	cgdb       bool
	gdb        bool
	configPath string
	usage      bool
}

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	var opts options

	cmd := &cobra.Command{
		Use:           "butcher [flags] <shared-object>...",
		Short:         "unit-test harness for native shared libraries",
		Long:          longHelp,
		Example:       exampleHelp,
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.usage || len(args) == 0 {
				return cmd.Help()
			}
			return chop(cmd, &opts, args)
		},
	}

	fs := cmd.Flags()
	fs.StringVarP(&opts.suiteMatch, "match-suite", "s", "",
		"run only tests in matched suites; <arg> is a POSIX extended regex")
	fs.StringVarP(&opts.testMatch, "match-test", "t", "",
		"run only matched tests; <arg> is a regex")
	fs.CountVarP(&opts.verbose, "verbose", "v",
		"be verbose, repeat for descriptions, messages and envdump (in order)")
	fs.BoolVarP(&opts.quiet, "quiet", "q", false, "be quiet (default)")
	fs.BoolVarP(&opts.color, "color", "c", false, "enable color output")
	fs.BoolVarP(&opts.noColor, "no-color", "n", false, "disable color output (default)")
	fs.IntVarP(&opts.outFD, "descriptor", "d", 1, "write to given descriptor instead of 1 (stdout)")
	fs.BoolVarP(&opts.list, "list", "l", false, "instead of running tests, just dump everything available")
	fs.StringVarP(&opts.bexec, "bexec", "b", "", "use <arg> as path to bexec, e.g. /usr/bin/bexec")
	fs.StringVarP(&opts.debugger, "debugger", "g", "", "use <arg> as debugger for bexec, e.g. /usr/bin/valgrind")
	fs.BoolVarP(&opts.valgrind, "valgrind", "V", false, "run the test under valgrind")
	fs.BoolVarP(&opts.cgdb, "cgdb", "C", false, "run the test under cgdb")
	fs.BoolVarP(&opts.gdb, "gdb", "G", false, "run the test under gdb")
	fs.StringVar(&opts.configPath, "config", "", "read option defaults from the given YAML file")
	fs.BoolVar(&opts.usage, "usage", false, "display this screen")

	cmd.SetArgs(args)
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "butcher: %v\n", err)
		return exitCode(err)
	}
	return 0
}

// chop wires the options into a Butcher and drives the lifecycle:
// load every object, then list or chop+report.
func chop(cmd *cobra.Command, opts *options, objects []string) error {
	if err := applyConfig(opts); err != nil {
		return err
	}

	verbose := opts.verbose
	if opts.quiet {
		verbose = 0
	}
	color := opts.color && !opts.noColor

	out := os.Stdout
	if opts.outFD != 1 {
		out = os.NewFile(uintptr(opts.outFD), "output")
		if out == nil {
			return errors.Wrapf(butcher.ErrInvalidArgument, "bad output descriptor %d", opts.outFD)
		}
	}

	bexecPath := opts.bexec
	if bexecPath == "" {
		exe, err := os.Executable()
		if err != nil {
			exe = os.Args[0]
		}
		bexecPath = filepath.Join(filepath.Dir(exe), "bexec")
	}

	b := butcher.New(
		butcher.WithLogger(newLogger(verbose)),
	)
	defer b.Close()

	if err := b.Init(bexecPath, out, opts.suiteMatch, opts.testMatch); err != nil {
		return err
	}

	var flags uint
	if verbose >= 1 {
		flags |= butcher.FlagVerbose
	}
	if verbose >= 2 {
		flags |= butcher.FlagDescriptions
	}
	if verbose >= 3 {
		flags |= butcher.FlagMessages
	}
	if verbose >= 4 {
		flags |= butcher.FlagEnvdump
	}
	if color {
		flags |= butcher.FlagColor
	}
	if err := b.Tune(flags); err != nil {
		return err
	}

	if dbg := debuggerCmdline(opts); dbg != "" {
		if err := b.SetDebugger(dbg); err != nil {
			return err
		}
	}

	banner(out, verbose, color, opts)

	loadErr := b.LoadAll(objects)

	if opts.list {
		if err := b.List(); err != nil {
			return err
		}
		return loadErr
	}

	if err := b.Chop(); err != nil {
		return err
	}
	if err := b.Report(); err != nil {
		return err
	}
	return loadErr
}

// applyConfig merges the YAML defaults file into unset options. The
// file is taken from --config or the BUTCHER_CONFIG environment
// variable; having neither is fine.
func applyConfig(opts *options) error {
	path := opts.configPath
	if path == "" {
		path = os.Getenv("BUTCHER_CONFIG")
	}
	if path == "" {
		return nil
	}
	cfg, err := config.Load(path)
	if err != nil {
		return errors.Wrap(butcher.ErrInvalidArgument, err.Error())
	}

	if opts.bexec == "" {
		opts.bexec = cfg.Bexec
	}
	if opts.debugger == "" {
		opts.debugger = cfg.Debugger
	}
	if opts.suiteMatch == "" {
		opts.suiteMatch = cfg.SuiteMatch
	}
	if opts.testMatch == "" {
		opts.testMatch = cfg.TestMatch
	}
	if opts.verbose == 0 && !opts.quiet {
		opts.verbose = cfg.Verbose
	}
	if cfg.Color != nil && !opts.color && !opts.noColor {
		opts.color = *cfg.Color
	}
	return nil
}

// debuggerCmdline resolves the debugger flags; an explicit -g wins
// over the convenience shortcuts.
func debuggerCmdline(opts *options) string {
	switch {
	case opts.debugger != "":
		return opts.debugger
	case opts.valgrind:
		return "valgrind"
	case opts.cgdb:
		return "cgdb --args"
	case opts.gdb:
		return "gdb --args"
	}
	return ""
}

// banner prints the report preamble.
func banner(out *os.File, verbose int, color bool, opts *options) {
	name := "BUTCHER"
	if color {
		name = "\x1b[1;31m" + name + "\x1b[0m"
	}
	if verbose > 0 {
		fmt.Fprintln(out, "#############################")
	}
	fmt.Fprintf(out, "### The %s unit test ###\n", name)
	if verbose > 0 {
		fmt.Fprint(out, "#############################\n\n")
	}

	if opts.suiteMatch != "" || opts.testMatch != "" {
		smatch, tmatch := opts.suiteMatch, opts.testMatch
		if smatch == "" {
			smatch = ".*"
		}
		if tmatch == "" {
			tmatch = ".*"
		}
		fmt.Fprintf(out, "tests matching '%s' in suites matching '%s' are going to be loaded\n\n",
			tmatch, smatch)
	}
}

// newLogger builds the harness logger: zap behind logr, falling back
// to stdr when the zap logger cannot be constructed.
func newLogger(verbose int) logr.Logger {
	var cfg zap.Config
	if verbose > 0 {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
	}
	zapLog, err := cfg.Build()
	if err != nil {
		stdr.SetVerbosity(verbose)
		return stdr.New(log.New(os.Stderr, "", log.LstdFlags))
	}
	return zapr.NewLogger(zapLog)
}

// exitCode maps the error taxonomy onto the process exit status; the
// front-end exits with the first non-zero internal error code.
func exitCode(err error) int {
	switch {
	case errors.Is(err, butcher.ErrInvalidArgument), errors.Is(err, butcher.ErrRegexCompile):
		return 2
	case errors.Is(err, descriptor.ErrLoadFailed):
		return 3
	case errors.Is(err, descriptor.ErrNoDescriptors):
		return 4
	case errors.Is(err, butcher.ErrDuplicateBinding):
		return 5
	case errors.Is(err, butcher.ErrPipeCreate):
		return 6
	case errors.Is(err, butcher.ErrFork):
		return 7
	case errors.Is(err, butcher.ErrExec):
		return 8
	case errors.Is(err, record.ErrMalformed):
		return 9
	}
	return 1
}
