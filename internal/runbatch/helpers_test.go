// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package runbatch

import (
	"context"
	"sync"

	"github.com/matt-FFFFFF/m8batch/internal/progress"
	"github.com/matt-FFFFFF/m8batch/internal/protocol"
	"github.com/matt-FFFFFF/m8batch/internal/worker"
)

// fakeJob scripts what fakeRunner does for one source path.
type fakeJob struct {
	progress []protocol.Progress
	result   protocol.Result
	err      error
	// afterProgress runs after each progress delivery, with the index of the update.
	afterProgress func(i int)
	// waitForCancel blocks until the job context is done, then until release is closed.
	waitForCancel bool
	// release, when set, is waited on before returning.
	release chan struct{}
	started chan struct{}
	panics  bool
}

type fakeRunner struct {
	mu        sync.Mutex
	jobs      map[string]*fakeJob
	verifyErr error
	calls     []string
	opts      []worker.Options
}

func newFakeRunner(jobs map[string]*fakeJob) *fakeRunner {
	return &fakeRunner{jobs: jobs}
}

func (f *fakeRunner) Verify(context.Context) error {
	return f.verifyErr
}

func (f *fakeRunner) RunJob(
	ctx context.Context, job worker.Job, opts worker.Options, onProgress func(protocol.Progress),
) (protocol.Result, error) {
	f.mu.Lock()
	f.calls = append(f.calls, job.SourcePath)
	f.opts = append(f.opts, opts)
	fj := f.jobs[job.SourcePath]
	f.mu.Unlock()

	if fj == nil {
		return protocol.Result{}, nil
	}

	if fj.started != nil {
		close(fj.started)
	}

	if fj.panics {
		panic("worker table corrupted")
	}

	for i, p := range fj.progress {
		onProgress(p)

		if fj.afterProgress != nil {
			fj.afterProgress(i)
		}
	}

	if fj.waitForCancel {
		<-ctx.Done()
	}

	if fj.release != nil {
		<-fj.release
	}

	if fj.waitForCancel {
		return protocol.Result{}, worker.ErrJobCancelled
	}

	return fj.result, fj.err
}

func (f *fakeRunner) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([]string(nil), f.calls...)
}

// recorder is a progress.Reporter that keeps every event.
type recorder struct {
	mu     sync.Mutex
	events []progress.Event
}

func (r *recorder) Report(e progress.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.events = append(r.events, e)
}

func (r *recorder) Close() {}

func (r *recorder) Events() []progress.Event {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]progress.Event(nil), r.events...)
}

func (r *recorder) Types() []progress.EventType {
	var out []progress.EventType
	for _, e := range r.Events() {
		out = append(out, e.Type)
	}

	return out
}
