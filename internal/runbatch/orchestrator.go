// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package runbatch

import (
	"context"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/matt-FFFFFF/m8batch/internal/ctxlog"
	"github.com/matt-FFFFFF/m8batch/internal/progress"
	"github.com/matt-FFFFFF/m8batch/internal/protocol"
	"github.com/matt-FFFFFF/m8batch/internal/worker"
)

// JobRunner runs one job. *worker.Runner implements it.
type JobRunner interface {
	RunJob(ctx context.Context, job worker.Job, opts worker.Options, onProgress func(protocol.Progress)) (protocol.Result, error)
}

// Verifier is implemented by runners that must check their executable before the first job.
type Verifier interface {
	Verify(ctx context.Context) error
}

var (
	_ JobRunner = (*worker.Runner)(nil)
	_ Verifier  = (*worker.Runner)(nil)
)

// Orchestrator sequences jobs through a JobRunner and owns the batch state.
// All methods are safe for concurrent use.
type Orchestrator struct {
	runner   JobRunner
	reporter progress.Reporter

	mu        sync.Mutex
	jobs      []worker.Job
	opts      worker.Options
	stats     progress.Stats
	runID     string
	startedAt time.Time
	results   Results
	gen       uint64 // bumped by Start and Reset; loops with an older value are ignored
	cancel    context.CancelCauseFunc
	loopDone  chan struct{} // closed when the most recently started loop exits
	wg        sync.WaitGroup
}

// Option configures an Orchestrator.
type Option func(o *Orchestrator)

// WithReporter sends every state change to r.
func WithReporter(r progress.Reporter) Option {
	return func(o *Orchestrator) {
		o.reporter = r
	}
}

// WithOptions sets the initial batch options.
func WithOptions(opts worker.Options) Option {
	return func(o *Orchestrator) {
		o.opts = opts
	}
}

// New creates an Orchestrator. Options default to worker.DefaultOptions().
func New(runner JobRunner, options ...Option) *Orchestrator {
	o := &Orchestrator{
		runner:   runner,
		reporter: progress.NewNullReporter(),
		opts:     worker.DefaultOptions(),
	}

	for _, opt := range options {
		opt(o)
	}

	if o.reporter == nil {
		o.reporter = progress.NewNullReporter()
	}

	return o
}

// AddJobs appends a job for every path not already in the list and returns how many were added.
// Paths are cleaned before comparison; empty paths are ignored.
func (o *Orchestrator) AddJobs(paths ...string) int {
	o.mu.Lock()
	defer o.mu.Unlock()

	added := 0

	for _, p := range paths {
		if p == "" {
			continue
		}

		p = filepath.Clean(p)
		if o.indexOf(p) >= 0 {
			continue
		}

		o.jobs = append(o.jobs, worker.NewJob(p))
		added++
	}

	return added
}

// RemoveJob removes the job with the given source path.
func (o *Orchestrator) RemoveJob(path string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()

	i := o.indexOf(filepath.Clean(path))
	if i < 0 {
		return false
	}

	o.jobs = slices.Delete(o.jobs, i, i+1)

	return true
}

// RemoveJobAt removes the job at the 0-based index i.
func (o *Orchestrator) RemoveJobAt(i int) bool {
	o.mu.Lock()
	defer o.mu.Unlock()

	if i < 0 || i >= len(o.jobs) {
		return false
	}

	o.jobs = slices.Delete(o.jobs, i, i+1)

	return true
}

// ClearJobs empties the job list.
func (o *Orchestrator) ClearJobs() {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.jobs = nil
}

// Jobs returns a copy of the job list.
func (o *Orchestrator) Jobs() []worker.Job {
	o.mu.Lock()
	defer o.mu.Unlock()

	return slices.Clone(o.jobs)
}

// SetOutputPath sets the output directory for the next batch.
func (o *Orchestrator) SetOutputPath(path string) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.opts.OutputPath = path
}

// SetConvertBitDepth sets whether the worker converts bit depth.
func (o *Orchestrator) SetConvertBitDepth(v bool) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.opts.ConvertBitDepth = v
}

// SetFlattenFolders sets whether the worker flattens the folder structure.
func (o *Orchestrator) SetFlattenFolders(v bool) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.opts.FlattenFolders = v
}

// SetOptions replaces all batch options.
func (o *Orchestrator) SetOptions(opts worker.Options) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.opts = opts
}

// Options returns the current batch options.
func (o *Orchestrator) Options() worker.Options {
	o.mu.Lock()
	defer o.mu.Unlock()

	return o.opts
}

// Snapshot returns a copy of the batch state.
func (o *Orchestrator) Snapshot() State {
	o.mu.Lock()
	defer o.mu.Unlock()

	return o.snapshotLocked()
}

// Results returns the per-job records of the last run.
func (o *Orchestrator) Results() Results {
	o.mu.Lock()
	defer o.mu.Unlock()

	out := make(Results, 0, len(o.results))

	for _, r := range o.results {
		if r == nil {
			continue
		}

		c := *r
		out = append(out, &c)
	}

	return out
}

// Start begins a batch on a background goroutine and reports whether it did.
// It is a no-op returning false when there are no jobs, no output path, or a batch is running.
// The job list and options are copied; later edits affect only the next batch.
func (o *Orchestrator) Start(ctx context.Context) bool {
	o.mu.Lock()

	if o.stats.Running || len(o.jobs) == 0 || o.opts.OutputPath == "" {
		o.mu.Unlock()

		return false
	}

	jobs := slices.Clone(o.jobs)
	opts := o.opts

	o.gen++
	gen := o.gen
	o.runID = uuid.NewString()
	o.startedAt = time.Now()
	o.stats = progress.Stats{
		Running:   true,
		JobsTotal: len(jobs),
	}

	o.results = make(Results, len(jobs))
	for i, j := range jobs {
		o.results[i] = &Result{
			Label:      j.DisplayName,
			SourcePath: j.SourcePath,
			Status:     ResultStatusSkipped,
			Error:      ErrNotRun,
		}
	}

	runCtx, cancel := context.WithCancelCause(ctxlog.With(ctx, "run_id", o.runID))
	o.cancel = cancel
	prev, done := o.loopDone, make(chan struct{})
	o.loopDone = done
	e := o.eventLocked(progress.EventStarted, -1, "")

	o.wg.Add(1)
	o.mu.Unlock()

	ctxlog.Info(runCtx, "batch started", "jobs", len(jobs), "output", opts.OutputPath)
	o.reporter.Report(e)

	go o.loop(runCtx, gen, jobs, opts, prev, done)

	return true
}

// Cancel stops the running batch. It returns immediately: Running is false and CurrentJobName
// is empty as soon as it returns, while the worker is killed in the background.
// Calling it when nothing runs does nothing.
func (o *Orchestrator) Cancel() {
	o.mu.Lock()

	wasRunning := o.stats.Running
	o.cancelLocked()

	var e progress.Event
	if wasRunning {
		e = o.eventLocked(progress.EventCancelled, -1, "")
	}
	o.mu.Unlock()

	if wasRunning {
		o.reporter.Report(e)
	}
}

// Reset cancels any running batch and clears progress, statistics, errors and results.
// Jobs and options are kept.
func (o *Orchestrator) Reset() {
	o.mu.Lock()

	o.cancelLocked()
	o.gen++
	o.stats = progress.Stats{}
	o.runID = ""
	o.startedAt = time.Time{}
	o.results = nil
	e := o.eventLocked(progress.EventCancelled, -1, "")
	o.mu.Unlock()

	o.reporter.Report(e)
}

// Wait blocks until every batch loop started so far has exited.
func (o *Orchestrator) Wait() {
	o.wg.Wait()
}

// cancelLocked must be called with the lock held.
func (o *Orchestrator) cancelLocked() {
	if o.stats.Running {
		o.stats.Cancelled = true
	}

	o.stats.Running = false
	o.stats.CurrentJobName = ""

	if o.cancel != nil {
		o.cancel(ErrBatchCancelled)
	}
}

// snapshotLocked must be called with the lock held.
func (o *Orchestrator) snapshotLocked() State {
	return State{
		Stats:     o.stats,
		RunID:     o.runID,
		StartedAt: o.startedAt,
		Jobs:      slices.Clone(o.jobs),
		Options:   o.opts,
	}
}

// eventLocked must be called with the lock held.
func (o *Orchestrator) eventLocked(t progress.EventType, index int, name string) progress.Event {
	return progress.Event{
		Type:      t,
		RunID:     o.runID,
		JobIndex:  index,
		JobName:   name,
		Stats:     o.stats,
		Timestamp: time.Now(),
	}
}

func (o *Orchestrator) indexOf(path string) int {
	return slices.IndexFunc(o.jobs, func(j worker.Job) bool {
		return j.SourcePath == path
	})
}
