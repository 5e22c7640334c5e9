// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package worker

import (
	"errors"
	"fmt"
)

var (
	// ErrExecutableNotFound is returned when no worker executable could be resolved.
	ErrExecutableNotFound = errors.New("worker executable not found")
	// ErrNotInitialized is returned by RunJob when Verify has not succeeded.
	ErrNotInitialized = errors.New("worker runner not initialized")
	// ErrWorkerExited is matched by *WorkerExitedError.
	ErrWorkerExited = errors.New("worker exited with non-zero status")
	// ErrResultUnavailable marks a clean exit without a final statistics line.
	// It is logged and never returned; the job yields a zero result.
	ErrResultUnavailable = errors.New("worker produced no final statistics")
	// ErrInvalidJob is returned when the job source or output path is empty.
	ErrInvalidJob = errors.New("job source and output path must not be empty")
	// ErrCouldNotStartProcess is returned when the process could not be started.
	ErrCouldNotStartProcess = errors.New("could not start process")
	// ErrFailedToCreatePipe is returned when the operating system pipe could not be created.
	ErrFailedToCreatePipe = errors.New("failed to create pipe")
	// ErrJobCancelled is returned when the context was cancelled while the worker was running.
	ErrJobCancelled = errors.New("job cancelled")
	// ErrTimeoutExceeded is returned when the worker ran longer than the runner's JobTimeout.
	ErrTimeoutExceeded = errors.New("timeout exceeded")
	// ErrWaitFailed is returned when the process could not be waited for.
	ErrWaitFailed = errors.New("failed to wait for process")
)

// WorkerExitedError carries the exit code and captured stderr of a failed worker.
type WorkerExitedError struct {
	ExitCode int
	Stderr   string
}

// Error implements the error interface.
func (e *WorkerExitedError) Error() string {
	if e.Stderr == "" {
		return fmt.Sprintf("%s: exit code %d", ErrWorkerExited, e.ExitCode)
	}

	return fmt.Sprintf("%s: exit code %d: %s", ErrWorkerExited, e.ExitCode, e.Stderr)
}

// Is allows errors.Is(err, ErrWorkerExited).
func (e *WorkerExitedError) Is(target error) bool {
	return target == ErrWorkerExited //nolint:err113
}
