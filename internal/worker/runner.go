// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/matt-FFFFFF/m8batch/internal/ctxlog"
	"github.com/matt-FFFFFF/m8batch/internal/protocol"
)

// Runner launches the worker, one process per job.
// The zero value is usable; Verify must succeed before RunJob.
type Runner struct {
	// WorkerPath is tried before the built-in locations.
	WorkerPath string
	// JobTimeout bounds each job. Zero means no limit.
	JobTimeout time.Duration

	mu   sync.Mutex
	path string
}

// NewRunner creates a Runner with an optional worker path override and job timeout.
func NewRunner(workerPath string, jobTimeout time.Duration) *Runner {
	return &Runner{
		WorkerPath: workerPath,
		JobTimeout: jobTimeout,
	}
}

// Verify resolves the worker executable and remembers it for RunJob.
func (r *Runner) Verify(ctx context.Context) error {
	path, err := Locate(Candidates(r.WorkerPath))
	if err != nil {
		return err
	}

	r.mu.Lock()
	r.path = path
	r.mu.Unlock()

	ctxlog.Debug(ctx, "worker resolved", "path", path)

	return nil
}

// Path returns the executable found by Verify, or "".
func (r *Runner) Path() string {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.path
}

// RunJob runs the worker for job and blocks until it exits or ctx is done.
// onProgress is called synchronously, in line order, for every progress line. It may be nil.
//
// A clean exit returns the final statistics, or a zero Result if the worker printed none.
// A non-zero exit returns a *WorkerExitedError.
func (r *Runner) RunJob(
	ctx context.Context, job Job, opts Options, onProgress func(protocol.Progress),
) (protocol.Result, error) {
	if job.SourcePath == "" || opts.OutputPath == "" {
		return protocol.Result{}, ErrInvalidJob
	}

	path := r.Path()
	if path == "" {
		return protocol.Result{}, ErrNotInitialized
	}

	// The executable may have gone away since Verify.
	if !isExecutable(FsFactory(), path) {
		return protocol.Result{}, fmt.Errorf("%w: %s", ErrExecutableNotFound, path)
	}

	ctx = ctxlog.With(ctx, "job", job.DisplayName)

	if r.JobTimeout > 0 {
		var cancel context.CancelFunc

		ctx, cancel = context.WithTimeoutCause(ctx, r.JobTimeout, ErrTimeoutExceeded)
		defer cancel()
	}

	var (
		result    protocol.Result
		haveStats bool
	)

	ex, err := runProcess(ctx, path, BuildArgs(job, opts), func(line string) {
		l := protocol.ParseLine(line)

		switch l.Kind {
		case protocol.KindProgress:
			if onProgress != nil {
				onProgress(l.Progress)
			}
		case protocol.KindFinalStats:
			result = l.Result
			haveStats = true
		case protocol.KindNone:
		}
	})
	if err != nil {
		return protocol.Result{}, err
	}

	if ex.code != 0 {
		return protocol.Result{}, &WorkerExitedError{
			ExitCode: ex.code,
			Stderr:   ex.stderr,
		}
	}

	if !haveStats {
		ctxlog.Debug(ctx, "zero result recorded", "error", ErrResultUnavailable)

		return protocol.Result{}, nil
	}

	return result, nil
}

// IsCancellation reports whether err came from a cancelled or timed out job.
func IsCancellation(err error) bool {
	return errors.Is(err, ErrJobCancelled) || errors.Is(err, context.Canceled)
}
