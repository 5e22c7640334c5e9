// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package tui

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/matt-FFFFFF/m8batch/internal/progress"
	"github.com/matt-FFFFFF/m8batch/internal/protocol"
	"github.com/matt-FFFFFF/m8batch/internal/runbatch"
	"github.com/matt-FFFFFF/m8batch/internal/worker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeController struct {
	mu       sync.Mutex
	jobs     []worker.Job
	output   string
	running  bool
	starts   int
	cancels  int
	resets   int
	startCtx context.Context
}

func newFakeController(paths ...string) *fakeController {
	f := &fakeController{output: "/out"}
	for _, p := range paths {
		f.jobs = append(f.jobs, worker.NewJob(p))
	}

	return f
}

func (f *fakeController) Start(ctx context.Context) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.running || len(f.jobs) == 0 || f.output == "" {
		return false
	}

	f.starts++
	f.running = true
	f.startCtx = ctx

	return true
}

func (f *fakeController) Cancel() {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.cancels++
	f.running = false
}

func (f *fakeController) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.resets++
	f.running = false
}

func (f *fakeController) Jobs() []worker.Job {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([]worker.Job(nil), f.jobs...)
}

func (f *fakeController) Snapshot() runbatch.State {
	f.mu.Lock()
	defer f.mu.Unlock()

	st := runbatch.State{Jobs: append([]worker.Job(nil), f.jobs...)}
	st.Running = f.running
	st.Options.OutputPath = f.output

	return st
}

func (f *fakeController) counts() (int, int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.starts, f.cancels, f.resets
}

func event(t progress.EventType, index int, stats progress.Stats) ProgressEventMsg {
	return ProgressEventMsg{Event: progress.Event{
		Type:      t,
		RunID:     "run-1",
		JobIndex:  index,
		Stats:     stats,
		Timestamp: time.Now(),
	}}
}

func keyMsg(s string) tea.KeyMsg {
	if s == "ctrl+c" {
		return tea.KeyMsg{Type: tea.KeyCtrlC}
	}

	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestJobStatus_String(t *testing.T) {
	assert.Equal(t, "pending", StatusPending.String())
	assert.Equal(t, "running", StatusRunning.String())
	assert.Equal(t, "success", StatusSuccess.String())
	assert.Equal(t, "failed", StatusFailed.String())
	assert.Equal(t, "skipped", StatusSkipped.String())
	assert.Equal(t, "unknown", JobStatus(99).String())
}

func TestNewModel(t *testing.T) {
	m := NewModel(context.Background(), newFakeController("/s/kicks", "/s/snares"))

	rows := m.Rows()
	require.Len(t, rows, 2)
	assert.Equal(t, "kicks", rows[0].Name)
	assert.Equal(t, "/s/snares", rows[1].Path)
	assert.Equal(t, StatusPending, rows[1].Status)
	assert.Contains(t, m.View(), "2 folder(s) queued")
}

func TestModel_BatchLifecycle(t *testing.T) {
	m := NewModel(context.Background(), newFakeController("/s/kicks", "/s/snares", "/s/hats"))

	m.Update(event(progress.EventStarted, -1, progress.Stats{Running: true, JobsTotal: 3}))
	m.Update(event(progress.EventJobStarted, 0, progress.Stats{Running: true, JobsTotal: 3, CurrentJobName: "kicks"}))

	rows := m.Rows()
	assert.Equal(t, StatusRunning, rows[0].Status)
	assert.NotNil(t, rows[0].StartTime)

	m.Update(event(progress.EventJobCompleted, 0, progress.Stats{Running: true, JobsTotal: 3, JobsCompleted: 1}))
	m.Update(event(progress.EventJobStarted, 1, progress.Stats{Running: true, JobsTotal: 3, JobsCompleted: 1, CurrentJobName: "snares"}))
	m.Update(event(progress.EventProgress, 1, progress.Stats{
		Running:        true,
		JobsTotal:      3,
		JobsCompleted:  1,
		CurrentJobName: "snares",
		Fraction:       0.5,
		FilesProcessed: 12,
		FilesTotal:     30,
	}))

	view := m.View()
	assert.Contains(t, view, "Folder 2 of 3: snares")
	assert.Contains(t, view, "Files: 12/30")
	assert.Contains(t, view, "'c' cancel")
	assert.InDelta(t, 0.5, m.Stats().Fraction, 1e-9)

	failed := event(progress.EventJobFailed, 1, progress.Stats{Running: true, JobsTotal: 3, JobsCompleted: 2, FailedJobs: 1})
	failed.Event.Err = errors.New("worker exited with non-zero status: exit code 2")
	m.Update(failed)
	m.Update(event(progress.EventJobStarted, 2, progress.Stats{Running: true, JobsTotal: 3, JobsCompleted: 2, FailedJobs: 1}))
	m.Update(event(progress.EventJobCompleted, 2, progress.Stats{Running: true, JobsTotal: 3, JobsCompleted: 3, FailedJobs: 1}))
	m.Update(event(progress.EventFinished, -1, progress.Stats{
		Completed:      true,
		Fraction:       1,
		JobsTotal:      3,
		JobsCompleted:  3,
		FailedJobs:     1,
		FilesProcessed: 50,
		FilesTotal:     60,
		Elapsed:        10 * time.Second,
		LastError:      "snares: worker exited with non-zero status: exit code 2",
	}))

	rows = m.Rows()
	assert.Equal(t, StatusSuccess, rows[0].Status)
	assert.Equal(t, StatusFailed, rows[1].Status)
	assert.Contains(t, rows[1].ErrorMsg, "exit code 2")
	assert.Equal(t, StatusSuccess, rows[2].Status)

	view = m.View()
	assert.Contains(t, view, "Completed with 1 failed folder(s)")
	assert.Contains(t, view, "Error: snares")
	assert.Contains(t, view, "Elapsed: 10s")
	assert.Contains(t, view, "'s' start")
}

func TestModel_CancelMarksRunningRowSkipped(t *testing.T) {
	m := NewModel(context.Background(), newFakeController("/s/kicks", "/s/snares"))

	m.Update(event(progress.EventStarted, -1, progress.Stats{Running: true, JobsTotal: 2}))
	m.Update(event(progress.EventJobStarted, 0, progress.Stats{Running: true, JobsTotal: 2}))
	m.Update(event(progress.EventCancelled, -1, progress.Stats{Cancelled: true, JobsTotal: 2}))

	rows := m.Rows()
	assert.Equal(t, StatusSkipped, rows[0].Status)
	assert.NotNil(t, rows[0].EndTime)
	assert.Equal(t, StatusPending, rows[1].Status)
	assert.Contains(t, m.View(), "Cancelled")
}

func TestModel_ResetRebuildsRows(t *testing.T) {
	ctrl := newFakeController("/s/kicks")
	m := NewModel(context.Background(), ctrl)

	m.Update(event(progress.EventStarted, -1, progress.Stats{Running: true, JobsTotal: 1}))
	m.Update(event(progress.EventJobStarted, 0, progress.Stats{Running: true, JobsTotal: 1}))

	ctrl.mu.Lock()
	ctrl.jobs = append(ctrl.jobs, worker.NewJob("/s/hats"))
	ctrl.mu.Unlock()

	m.Update(event(progress.EventCancelled, -1, progress.Stats{}))

	rows := m.Rows()
	require.Len(t, rows, 2)
	assert.Equal(t, StatusPending, rows[0].Status)
	assert.Nil(t, rows[0].StartTime)
	assert.Equal(t, progress.Stats{}, m.Stats())
}

func TestModel_FaultMarksRunningRowFailed(t *testing.T) {
	m := NewModel(context.Background(), newFakeController("/s/kicks"))

	m.Update(event(progress.EventStarted, -1, progress.Stats{Running: true, JobsTotal: 1}))
	m.Update(event(progress.EventJobStarted, 0, progress.Stats{Running: true, JobsTotal: 1}))
	m.Update(event(progress.EventFault, -1, progress.Stats{JobsTotal: 1, LastError: "processing failed: boom"}))

	assert.Equal(t, StatusFailed, m.Rows()[0].Status)

	view := m.View()
	assert.Contains(t, view, "Processing failed")
	assert.Contains(t, view, "processing failed: boom")
}

func TestModel_Keys(t *testing.T) {
	type ctxKey struct{}

	ctx := context.WithValue(context.Background(), ctxKey{}, "tui")
	ctrl := newFakeController("/s/kicks")
	m := NewModel(ctx, ctrl)

	_, cmd := m.Update(keyMsg("s"))
	assert.Nil(t, cmd)

	starts, _, _ := ctrl.counts()
	assert.Equal(t, 1, starts)
	assert.Equal(t, ctx, ctrl.startCtx)

	m.Update(keyMsg("s"))
	assert.Equal(t, "a batch is already running", m.Stats().LastError)

	m.Update(keyMsg("c"))
	m.Update(keyMsg("r"))

	_, cancels, resets := ctrl.counts()
	assert.Equal(t, 1, cancels)
	assert.Equal(t, 1, resets)

	_, cmd = m.Update(keyMsg("ctrl+c"))
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())

	_, cancels, _ = ctrl.counts()
	assert.Equal(t, 2, cancels)
	assert.Equal(t, "Shutting down...\n", m.View())
}

func TestModel_StartRefusals(t *testing.T) {
	ctrl := newFakeController()
	m := NewModel(context.Background(), ctrl)

	m.Update(keyMsg("s"))
	assert.Equal(t, "no folders to process", m.Stats().LastError)

	ctrl.mu.Lock()
	ctrl.jobs = []worker.Job{worker.NewJob("/s/kicks")}
	ctrl.output = ""
	ctrl.mu.Unlock()

	m.Update(keyMsg("s"))
	assert.Equal(t, "no output folder set", m.Stats().LastError)
	assert.Contains(t, m.View(), "Error: no output folder set")
}

func TestModel_WindowSize(t *testing.T) {
	m := NewModel(context.Background(), newFakeController("/s/kicks"))

	m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})

	assert.Equal(t, 120-barPadding, m.bar.Width)
	assert.Equal(t, 120-borderWidth, m.viewport.Width)
	assert.Equal(t, 40-reservedLines, m.viewport.Height)

	m.Update(tea.WindowSizeMsg{Width: 5, Height: 2})
	assert.Equal(t, minBarWidth, m.bar.Width)
	assert.Equal(t, minViewportWidth, m.viewport.Width)
	assert.Equal(t, 1, m.viewport.Height)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcdefg...", truncate("abcdefghijklmnop", 10))
	assert.Equal(t, "ab", truncate("abcdef", 2))
}

func TestRunner_QuitsOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events := progress.NewChannelReporter(ctx, progress.DefaultBufferSize)
	defer events.Close()

	ctrl := newFakeController("/s/kicks")
	r := NewRunner(ctx, ctrl, events, tea.WithInput(nil), tea.WithOutput(io.Discard))

	done := make(chan error, 1)

	go func() {
		done <- r.Run(ctx, true)
	}()

	assert.Eventually(t, func() bool {
		starts, _, _ := ctrl.counts()
		return starts == 1
	}, time.Second, 5*time.Millisecond)

	events.Report(progress.Event{Type: progress.EventStarted, Stats: progress.Stats{Running: true, JobsTotal: 1}, Timestamp: time.Now()})
	assert.Eventually(t, func() bool {
		return r.Model().Stats().Running
	}, time.Second, 5*time.Millisecond)

	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("runner did not stop")
	}

	_, cancels, _ := ctrl.counts()
	assert.Equal(t, 1, cancels)
}

// floodRunner reports progress as fast as it can, then blocks until cancelled.
type floodRunner struct {
	flooded chan struct{}
}

func (f floodRunner) RunJob(
	ctx context.Context, _ worker.Job, _ worker.Options, onProgress func(protocol.Progress),
) (protocol.Result, error) {
	for i := range 500 {
		onProgress(protocol.Progress{Fraction: float64(i) / 500, FilesProcessed: i, FilesTotal: 500})
	}

	close(f.flooded)
	<-ctx.Done()

	return protocol.Result{}, worker.ErrJobCancelled
}

func TestModel_CancelKeyWithEventBacklog(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events := progress.NewChannelReporter(ctx, 4)

	// Stands in for program.Send waiting on the event loop that is handling the key.
	uiBusy := make(chan struct{})
	events.Listen(progress.ListenerFunc(func(progress.Event) {
		<-uiBusy
	}))

	fr := floodRunner{flooded: make(chan struct{})}
	orch := runbatch.New(fr,
		runbatch.WithReporter(events),
		runbatch.WithOptions(worker.Options{OutputPath: "/out"}),
	)
	orch.AddJobs("/s/kicks", "/s/snares")

	m := NewModel(ctx, orch)
	m.Update(keyMsg("s"))
	<-fr.flooded

	handled := make(chan struct{})

	go func() {
		m.Update(keyMsg("c"))
		m.Update(keyMsg("r"))
		m.Update(keyMsg("q"))
		close(handled)
	}()

	select {
	case <-handled:
	case <-time.After(2 * time.Second):
		t.Fatal("key handling blocked on the event backlog")
	}

	assert.False(t, orch.Snapshot().Running)

	close(uiBusy)
	orch.Wait()
	events.Close()
}
