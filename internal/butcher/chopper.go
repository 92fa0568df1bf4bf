// Copyright 2026 The Butcher Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package butcher

import (
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"

	"github.com/xaberus/butcher/internal/bexec"
	"github.com/xaberus/butcher/internal/descriptor"
	"github.com/xaberus/butcher/internal/record"
)

// pollInterval paces the drain loop while the child runs.
const pollInterval = 100 * time.Microsecond

// Chop runs every selected test. Suites not matching the suite regex
// are skipped wholesale; within matching suites, tests not matching
// the test regex are skipped. Tests run strictly sequentially; a test
// is reaped and reconciled before the next one is spawned. Per-test
// orchestration errors mark the test corrupted and do not stop the
// walk.
func (b *Butcher) Chop() error {
	if !b.initialized {
		return errors.Wrap(ErrInvalidArgument, "not initialized")
	}
	if _, err := os.Stat(b.bexec); err != nil {
		return errors.Wrapf(ErrExec, "runner %s: %v", b.bexec, err)
	}

	for _, obj := range b.objects {
		for _, sname := range sortedKeys(obj.Suites) {
			if !b.sregex.MatchString(sname) {
				continue
			}
			suite := obj.Suites[sname]
			for _, tname := range sortedKeys(suite.Tests) {
				if !b.tregex.MatchString(tname) {
					continue
				}
				test := suite.Tests[tname]

				if b.debugger != nil {
					// Debugger mode runs a single test interactively.
					return b.debugTest(obj, test)
				}

				b.logger.V(1).Info("chopping", "suite", sname, "test", tname)
				if err := b.chopTest(obj, test); err != nil {
					fmt.Fprintf(b.out, "error running %s/%s: %v\n", sname, tname, err)
					for i := range test.Results {
						if test.Results[i] == record.None {
							test.Results[i] = record.Corrupted
						}
					}
					test.Log = append(test.Log, fmt.Sprintf("(harness error: %v)", err))
				}
			}
		}
	}
	return nil
}

// chopTest runs one test in an isolated runner child and fills in the
// test's results, log, rusage and elapsed time.
func (b *Butcher) chopTest(obj *Object, test *Test) error {
	test.Log = nil
	test.Results = [record.NumPhases]record.Result{record.None, record.None, record.None}

	// Two pipes, child to parent: the child's stdout/stderr and the
	// control channel carrying result records. Close-on-exec keeps the
	// child from inheriting any end that is not part of its contract;
	// exec dup's the intended fds, which clears the flag on them.
	var logP, ctlP [2]int
	if err := unix.Pipe2(logP[:], unix.O_CLOEXEC); err != nil {
		return errors.Wrap(ErrPipeCreate, err.Error())
	}
	if err := unix.Pipe2(ctlP[:], unix.O_CLOEXEC); err != nil {
		unix.Close(logP[0])
		unix.Close(logP[1])
		return errors.Wrap(ErrPipeCreate, err.Error())
	}
	unix.SetNonblock(logP[0], true)
	unix.SetNonblock(ctlP[0], true)

	logW := os.NewFile(uintptr(logP[1]), "log-pipe")
	ctlW := os.NewFile(uintptr(ctlP[1]), "control-pipe")

	cmd := exec.Command(b.bexec)
	cmd.Stdout = logW
	cmd.Stderr = logW
	// ExtraFiles places the control write end at descriptor 3 in the
	// child; stdin stays connected to /dev/null.
	cmd.ExtraFiles = []*os.File{ctlW}
	cmd.Env = b.runnerEnv(obj, test, 3)

	start := b.clk.Now()
	err := cmd.Start()
	// The parent's copies of the child ends are closed regardless, so
	// EOF on the pipes tracks the child alone.
	logW.Close()
	ctlW.Close()
	if err != nil {
		unix.Close(logP[0])
		unix.Close(ctlP[0])
		return errors.Wrap(ErrFork, err.Error())
	}
	defer cmd.Process.Release()
	defer unix.Close(logP[0])
	defer unix.Close(ctlP[0])

	var (
		ws     unix.WaitStatus
		ru     unix.Rusage
		logBuf []byte
		ctlBuf []byte
		rec    = record.New()
		sawRec bool
	)

	// Interleave non-blocking reaping with pipe drains so neither a
	// chatty child nor an early-exiting one can wedge the loop.
	for {
		b.clk.Sleep(pollInterval)

		wpid, werr := unix.Wait4(cmd.Process.Pid, &ws, unix.WNOHANG, &ru)
		if werr == unix.EINTR {
			continue
		}
		if werr != nil {
			return errors.Wrapf(werr, "waiting for runner pid %d", cmd.Process.Pid)
		}

		logBuf = drainPipe(logP[0], logBuf)
		ctlBuf = drainPipe(ctlP[0], ctlBuf)
		ctlBuf = b.consumeRecords(ctlBuf, &rec, &sawRec)

		if wpid == cmd.Process.Pid {
			break
		}
	}

	// Final drain: the child has exited but bytes may still sit in the
	// pipes.
	logBuf = drainPipe(logP[0], logBuf)
	ctlBuf = drainPipe(ctlP[0], ctlBuf)
	b.consumeRecords(ctlBuf, &rec, &sawRec)

	test.Elapsed = b.clk.Since(start)
	test.Rusage = ru
	test.Log = splitLines(logBuf)
	reconcile(test, ws, rec, sawRec)
	return nil
}

// drainPipe appends whatever is currently readable from fd to buf.
// Reads use the byte count actually returned and stop on EAGAIN or
// end of stream.
func drainPipe(fd int, buf []byte) []byte {
	var chunk [4096]byte
	for {
		n, err := unix.Read(fd, chunk[:])
		if n > 0 {
			buf = append(buf, chunk[:n]...)
		}
		if err == unix.EINTR {
			continue
		}
		if err != nil || n <= 0 {
			return buf
		}
	}
}

// consumeRecords eats record-sized chunks from the control buffer and
// keeps the most recent well-formed record; later records include
// later phases' results, so overwriting is safe. A trailing partial
// chunk is left for the next drain.
func (b *Butcher) consumeRecords(buf []byte, rec *record.Record, saw *bool) []byte {
	for len(buf) >= record.Size {
		chunk := buf[:record.Size]
		buf = buf[record.Size:]
		r, err := record.Decode(chunk)
		if err != nil {
			b.logger.V(1).Info("dropping malformed control chunk", "err", err)
			continue
		}
		*rec = r
		*saw = true
	}
	return buf
}

// splitLines splits the drained log buffer into lines on LF, CR and
// NUL boundaries; empty segments are dropped.
func splitLines(buf []byte) []string {
	var lines []string
	start := 0
	for i := 0; i <= len(buf); i++ {
		if i == len(buf) || buf[i] == '\n' || buf[i] == '\r' || buf[i] == 0 {
			if i > start {
				lines = append(lines, string(buf[start:i]))
			}
			start = i + 1
		}
	}
	return lines
}

// reconcile folds the exit status and the last received record into
// the test's phase results.
func reconcile(test *Test, ws unix.WaitStatus, rec record.Record, sawRec bool) {
	switch {
	case ws.Exited() && sawRec && rec.Done:
		test.Results = rec.Results

	case ws.Exited():
		// Clean exit without a final record: the runner never got to
		// the end of its protocol.
		for i := range test.Results {
			test.Results[i] = record.Corrupted
		}
		test.Log = append(test.Log, "(test was aborted)")

	case ws.Signaled():
		// Keep the phases the runner reported before dying; the first
		// unreported phase is where the signal hit.
		for i := range test.Results {
			if rec.Results[i] > record.None {
				test.Results[i] = rec.Results[i]
			} else {
				test.Results[i] = record.Corrupted
				break
			}
		}
		test.Log = append(test.Log, fmt.Sprintf("(exited with signal %d)", ws.Signal()))
	}
}

// runnerEnv assembles the child environment per the bexec contract.
// cfd < 0 omits the control channel (debugger mode).
func (b *Butcher) runnerEnv(obj *Object, test *Test, cfd int) []string {
	env := []string{
		bexec.EnvLibrary + "=" + obj.Path,
		bexec.EnvTest + "=" + strconv.Itoa(test.Function),
		bexec.EnvVerbose + "=" + strconv.FormatBool(b.verbose),
		bexec.EnvEnvdump + "=" + strconv.FormatBool(b.envdump),
	}
	if test.Setup != descriptor.None {
		env = append(env, bexec.EnvSetup+"="+strconv.Itoa(test.Setup))
	}
	if test.Teardown != descriptor.None {
		env = append(env, bexec.EnvTeardown+"="+strconv.Itoa(test.Teardown))
	}
	if cfd >= 0 {
		env = append(env, bexec.EnvControlFD+"="+strconv.Itoa(cfd))
	}
	if v := os.Getenv("LD_LIBRARY_PATH"); v != "" {
		env = append(env, "LD_LIBRARY_PATH="+v)
	}
	return env
}

// debugTest runs one test under the configured debugger, in the
// foreground with inherited stdio and no control channel, so the
// debugger session reaches the user's terminal unaltered.
func (b *Butcher) debugTest(obj *Object, test *Test) error {
	argv := append(append([]string{}, b.debugger...), b.bexec)
	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.Env = append(os.Environ(), b.runnerEnv(obj, test, -1)...)

	b.logger.V(1).Info("running test under debugger", "argv", argv, "test", test.Name)
	if err := cmd.Run(); err != nil {
		if _, ok := err.(*exec.ExitError); !ok {
			return errors.Wrap(ErrExec, err.Error())
		}
	}
	return nil
}
