// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package runbatch

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/matt-FFFFFF/m8batch/internal/ctxlog"
	"github.com/matt-FFFFFF/m8batch/internal/progress"
	"github.com/matt-FFFFFF/m8batch/internal/protocol"
	"github.com/matt-FFFFFF/m8batch/internal/worker"
)

// maxLastErrorLength bounds LastError, which is shown in a single banner line.
const maxLastErrorLength = 512

// totals are the file counts of jobs that have already completed in this run.
type totals struct {
	processed int
	total     int
}

// loop runs jobs in order. Every state write goes through apply, which drops writes
// from a loop that Reset or a newer Start has superseded.
// Nothing is spawned until the previous loop, whose worker may still be dying, has exited.
func (o *Orchestrator) loop(
	ctx context.Context, gen uint64, jobs []worker.Job, opts worker.Options, prev <-chan struct{}, done chan<- struct{},
) {
	defer o.wg.Done()
	defer close(done)

	defer func() {
		if r := recover(); r != nil {
			o.fault(ctx, gen, fmt.Errorf("%w: %v", ErrBatchFault, r))
		}
	}()

	if prev != nil {
		select {
		case <-prev:
		case <-ctx.Done():
			o.finish(ctx, gen)

			return
		}
	}

	if v, ok := o.runner.(Verifier); ok {
		if err := v.Verify(ctx); err != nil {
			o.fault(ctx, gen, fmt.Errorf("%w: %w", ErrBatchFault, err))

			return
		}
	}

	var done totals

OuterLoop:
	for i, job := range jobs {
		select {
		case <-ctx.Done():
			break OuterLoop
		default:
		}

		if !o.beginJob(gen, i, job) {
			break
		}

		ctxlog.Info(ctx, "job started", "index", i, "job", job.DisplayName, "source", job.SourcePath)

		start := time.Now()
		res, err := o.runner.RunJob(ctx, job, opts, func(p protocol.Progress) {
			o.fold(gen, i, len(jobs), p, done)
		})
		elapsed := time.Since(start)

		if err == nil {
			done.processed += res.FilesProcessed
			done.total += res.FilesTotal
		}

		o.endJob(ctx, gen, i, len(jobs), job, res, err, elapsed, done)
	}

	o.finish(ctx, gen)
}

// apply runs fn with the lock held if gen is current, then reports the event fn returns.
func (o *Orchestrator) apply(gen uint64, fn func() (progress.Event, bool)) {
	o.mu.Lock()

	if gen != o.gen {
		o.mu.Unlock()

		return
	}

	e, ok := fn()
	o.mu.Unlock()

	if ok {
		o.reporter.Report(e)
	}
}

func (o *Orchestrator) beginJob(gen uint64, index int, job worker.Job) bool {
	started := false

	o.apply(gen, func() (progress.Event, bool) {
		if !o.stats.Running {
			return progress.Event{}, false
		}

		started = true
		o.stats.CurrentJobName = job.DisplayName
		o.stats.JobsCompleted = index

		return o.eventLocked(progress.EventJobStarted, index, job.DisplayName), true
	})

	return started
}

// fold publishes (index + f) / n, never letting the fraction go backwards, and the file
// counts of completed jobs plus the job in flight.
func (o *Orchestrator) fold(gen uint64, index, n int, p protocol.Progress, done totals) {
	o.apply(gen, func() (progress.Event, bool) {
		if !o.stats.Running {
			return progress.Event{}, false
		}

		f := min(max(p.Fraction, 0), 1)
		o.stats.Fraction = max(o.stats.Fraction, (float64(index)+f)/float64(n))
		o.stats.FilesProcessed = done.processed + p.FilesProcessed
		o.stats.FilesTotal = done.total + p.FilesTotal

		return o.eventLocked(progress.EventProgress, index, o.stats.CurrentJobName), true
	})
}

func (o *Orchestrator) endJob(
	ctx context.Context,
	gen uint64,
	index, n int,
	job worker.Job,
	res protocol.Result,
	err error,
	elapsed time.Duration,
	done totals,
) {
	o.apply(gen, func() (progress.Event, bool) {
		rec := o.results[index]
		rec.Duration = elapsed
		rec.Error = err

		// After cancellation the statistics are frozen. A job killed by the
		// cancellation is recorded as skipped, not failed.
		if ctx.Err() != nil || !o.stats.Running {
			if o.stats.Running {
				o.cancelLocked()
			}

			if err == nil {
				rec.Status = ResultStatusSuccess
				rec.FilesProcessed = res.FilesProcessed
				rec.FilesTotal = res.FilesTotal
				rec.AverageFilesPerSecond = res.AverageFilesPerSecond

				return progress.Event{}, false
			}

			rec.Status = ResultStatusSkipped

			ctxlog.Info(ctx, "job cancelled", "job", job.DisplayName, "error", err)

			return progress.Event{}, false
		}

		o.stats.JobsCompleted = index + 1
		o.stats.Fraction = max(o.stats.Fraction, float64(index+1)/float64(n))
		o.stats.FilesProcessed = done.processed
		o.stats.FilesTotal = done.total

		if err != nil {
			rec.Status = ResultStatusError
			rec.ExitCode = -1

			var exitErr *worker.WorkerExitedError
			if errors.As(err, &exitErr) {
				rec.ExitCode = exitErr.ExitCode
				rec.StdErr = []byte(exitErr.Stderr)
			}

			o.stats.FailedJobs++
			o.stats.LastError = shorten(fmt.Sprintf("%s: %v", job.DisplayName, err), maxLastErrorLength)

			ctxlog.Warn(ctx, "job failed", "job", job.DisplayName, "error", err)

			e := o.eventLocked(progress.EventJobFailed, index, job.DisplayName)
			e.Err = err

			return e, true
		}

		rec.Status = ResultStatusSuccess
		rec.FilesProcessed = res.FilesProcessed
		rec.FilesTotal = res.FilesTotal
		rec.AverageFilesPerSecond = res.AverageFilesPerSecond

		ctxlog.Info(ctx, "job completed", "job", job.DisplayName,
			"files_processed", res.FilesProcessed, "files_total", res.FilesTotal)

		return o.eventLocked(progress.EventJobCompleted, index, job.DisplayName), true
	})
}

func (o *Orchestrator) finish(ctx context.Context, gen uint64) {
	o.apply(gen, func() (progress.Event, bool) {
		o.stats.Running = false
		o.stats.Completed = true
		o.stats.CurrentJobName = ""
		o.stats.Elapsed = time.Since(o.startedAt)
		o.stats.AverageFilesPerSecond = averageRate(o.stats.FilesProcessed, o.stats.Elapsed)

		if !o.stats.Cancelled {
			o.stats.Fraction = 1
		}

		if o.cancel != nil {
			o.cancel(nil)
		}

		ctxlog.Info(ctx, "batch finished",
			"cancelled", o.stats.Cancelled,
			"jobs_completed", o.stats.JobsCompleted,
			"failed_jobs", o.stats.FailedJobs,
			"files_processed", o.stats.FilesProcessed,
			"elapsed", o.stats.Elapsed)

		return o.eventLocked(progress.EventFinished, -1, ""), true
	})
}

// fault stops the batch without marking it completed.
func (o *Orchestrator) fault(ctx context.Context, gen uint64, err error) {
	o.apply(gen, func() (progress.Event, bool) {
		o.stats.Running = false
		o.stats.Completed = false
		o.stats.CurrentJobName = ""
		o.stats.Elapsed = time.Since(o.startedAt)
		o.stats.LastError = err.Error()

		if o.cancel != nil {
			o.cancel(err)
		}

		ctxlog.Error(ctx, "batch fault", "error", err)

		e := o.eventLocked(progress.EventFault, -1, "")
		e.Err = err

		return e, true
	})
}

func averageRate(files int, elapsed time.Duration) float64 {
	if elapsed <= 0 {
		return 0
	}

	return float64(files) / elapsed.Seconds()
}

// shorten cuts the middle out of s so it is at most n bytes, keeping its start and its end.
func shorten(s string, n int) string {
	const cut = " ... "

	if len(s) <= n || n <= len(cut) {
		return s
	}

	head := (n - len(cut)) / 2
	tail := n - len(cut) - head

	return strings.ToValidUTF8(s[:head]+cut+s[len(s)-tail:], "")
}
