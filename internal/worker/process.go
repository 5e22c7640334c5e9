// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package worker

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/matt-FFFFFF/m8batch/internal/ctxlog"
	"github.com/matt-FFFFFF/m8batch/internal/teereader"
)

const (
	tickerInterval = 10 * time.Second // Interval for the process watchdog ticker
)

// exit is what a finished process left behind.
type exit struct {
	code   int
	stderr string
}

// runProcess starts path with args, calls onLine for every line written to stdout or stderr
// and waits for the process to exit. Lines from one stream are delivered in order; the two
// streams interleave in arrival order. onLine runs on the calling goroutine.
//
// Cancelling ctx kills the process and closes the pipes without draining them.
func runProcess(ctx context.Context, path string, args []string, onLine func(string)) (exit, error) {
	logger := ctxlog.Logger(ctx).With("path", path)

	devNull, err := os.Open(os.DevNull)
	if err != nil {
		return exit{code: -1}, errors.Join(ErrCouldNotStartProcess, err)
	}
	defer devNull.Close() //nolint:errcheck

	rOut, wOut, err := os.Pipe()
	if err != nil {
		return exit{code: -1}, errors.Join(ErrFailedToCreatePipe, err)
	}

	rErr, wErr, err := os.Pipe()
	if err != nil {
		_ = rOut.Close()
		_ = wOut.Close()

		return exit{code: -1}, errors.Join(ErrFailedToCreatePipe, err)
	}

	logger.Debug("starting process", "args", args)

	ps, err := os.StartProcess(path, slices.Concat([]string{filepath.Base(path)}, args), &os.ProcAttr{
		Env:   os.Environ(),
		Files: []*os.File{devNull, wOut, wErr},
	})

	// The child holds its own copies of the write ends.
	_ = wOut.Close()
	_ = wErr.Close()

	if err != nil {
		_ = rOut.Close()
		_ = rErr.Close()

		return exit{code: -1}, errors.Join(ErrCouldNotStartProcess, err)
	}

	startTime := time.Now()
	logger = logger.With("pid", ps.Pid)
	logger.Debug("process started")

	lines := make(chan string)
	stop := make(chan struct{})

	var abortOnce sync.Once

	abort := func() {
		abortOnce.Do(func() {
			close(stop)
			_ = rOut.Close()
			_ = rErr.Close()
		})
	}

	stdout := teereader.New(rOut, sendTo(lines, stop))
	stderr := teereader.New(rErr, sendTo(lines, stop))

	var wg sync.WaitGroup

	for _, lt := range []*teereader.LineTeeReader{stdout, stderr} {
		wg.Add(1)

		go func() {
			defer wg.Done()

			if err := lt.Drain(); err != nil && !errors.Is(err, os.ErrClosed) {
				logger.Debug("pipe read error", "error", err)
			}
		}()
	}

	go func() {
		wg.Wait()
		close(lines)
	}()

	defer func() {
		abort()
		wg.Wait()
	}()

	// This is the process watchdog that kills the process when the context is done.
	// killReason is written before watchdogExited is closed.
	done := make(chan struct{})
	watchdogExited := make(chan struct{})

	var killReason error

	go func() {
		defer close(watchdogExited)

		ticker := time.NewTicker(tickerInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				logger.Debug("worker still running", "elapsed", time.Since(startTime).Round(time.Second))

			case <-ctx.Done():
				logger.Info("context done, killing process")
				killPs(ctx, ps)

				killReason = ErrJobCancelled
				if errors.Is(context.Cause(ctx), ErrTimeoutExceeded) {
					killReason = ErrTimeoutExceeded
				}

				abort()

				return

			case <-done:
				return
			}
		}
	}()

	for l := range lines {
		onLine(l)
	}

	state, waitErr := ps.Wait()
	close(done)
	<-watchdogExited

	logger.Debug("process finished", "elapsed", time.Since(startTime), "exitCode", exitCode(state))

	res := exit{
		code:   exitCode(state),
		stderr: stderr.String(),
	}

	if killReason != nil {
		res.code = -1

		return res, killReason
	}

	if waitErr != nil {
		res.code = -1

		return res, errors.Join(ErrWaitFailed, waitErr)
	}

	return res, nil
}

func sendTo(lines chan<- string, stop <-chan struct{}) func(string) {
	return func(l string) {
		select {
		case lines <- l:
		case <-stop:
		}
	}
}

func exitCode(state *os.ProcessState) int {
	if state == nil {
		return -1
	}

	return state.ExitCode()
}

// killPs kills the process, tolerating one that has already exited.
func killPs(ctx context.Context, ps *os.Process) {
	if err := ps.Kill(); err != nil {
		if errors.Is(err, os.ErrProcessDone) {
			ctxlog.Debug(ctx, "process already done", "pid", ps.Pid)

			return
		}

		ctxlog.Error(ctx, "process kill error", "pid", ps.Pid, "error", err)

		return
	}

	ctxlog.Info(ctx, "process killed", "pid", ps.Pid)
}
