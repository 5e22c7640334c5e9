// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package tui

import (
	"context"
	"sync"
	"time"

	bprogress "github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/viewport"
	"github.com/charmbracelet/lipgloss"
	"github.com/matt-FFFFFF/m8batch/internal/progress"
	"github.com/matt-FFFFFF/m8batch/internal/runbatch"
	"github.com/matt-FFFFFF/m8batch/internal/worker"
)

// Controller is the part of the orchestrator the TUI drives.
type Controller interface {
	Start(ctx context.Context) bool
	Cancel()
	Reset()
	Jobs() []worker.Job
	Snapshot() runbatch.State
}

// JobStatus represents the current state of a job row.
type JobStatus int

const (
	StatusPending JobStatus = iota
	StatusRunning
	StatusSuccess
	StatusFailed
	StatusSkipped
)

// String returns a string representation of the job status.
func (s JobStatus) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusRunning:
		return "running"
	case StatusSuccess:
		return "success"
	case StatusFailed:
		return "failed"
	case StatusSkipped:
		return "skipped"
	default:
		return "unknown"
	}
}

// JobRow is one folder in the job list.
type JobRow struct {
	Name      string
	Path      string
	Status    JobStatus
	StartTime *time.Time
	EndTime   *time.Time
	ErrorMsg  string
}

func (r *JobRow) setStatus(status JobStatus, at time.Time) {
	r.Status = status

	switch status {
	case StatusRunning:
		r.StartTime = &at
		r.EndTime = nil
	case StatusSuccess, StatusFailed, StatusSkipped:
		if r.StartTime != nil && r.EndTime == nil {
			r.EndTime = &at
		}
	}
}

// Model represents the TUI application state.
type Model struct {
	ctx      context.Context
	ctrl     Controller
	rows     []*JobRow
	stats    progress.Stats
	runID    string
	started  time.Time
	stopped  time.Time
	finished bool
	fault    bool
	width    int
	height   int
	quitting bool
	mutex    sync.RWMutex

	bar      bprogress.Model
	viewport viewport.Model

	styles *Styles
}

// Styles contains all the styling for the TUI.
type Styles struct {
	Title   lipgloss.Style
	Pending lipgloss.Style
	Running lipgloss.Style
	Success lipgloss.Style
	Failed  lipgloss.Style
	Skipped lipgloss.Style
	Detail  lipgloss.Style
	Error   lipgloss.Style
	Help    lipgloss.Style
	Border  lipgloss.Style
}

// NewStyles creates the default styling for the TUI.
func NewStyles() *Styles {
	return &Styles{
		Title: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("12")).
			MarginBottom(1),
		Pending: lipgloss.NewStyle().
			Foreground(lipgloss.Color("8")),
		Running: lipgloss.NewStyle().
			Foreground(lipgloss.Color("11")).
			Bold(true),
		Success: lipgloss.NewStyle().
			Foreground(lipgloss.Color("10")),
		Failed: lipgloss.NewStyle().
			Foreground(lipgloss.Color("9")),
		Skipped: lipgloss.NewStyle().
			Foreground(lipgloss.Color("8")).
			Italic(true),
		Detail: lipgloss.NewStyle().
			Foreground(lipgloss.Color("7")),
		Error: lipgloss.NewStyle().
			Foreground(lipgloss.Color("9")).
			Bold(true),
		Help: lipgloss.NewStyle().
			Foreground(lipgloss.Color("8")).
			MarginTop(1),
		Border: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("8")).
			Padding(0, 1),
	}
}

const (
	defaultWidth  = 80
	defaultHeight = 24
)

// NewModel creates a new TUI model bound to ctrl.
func NewModel(ctx context.Context, ctrl Controller) *Model {
	m := &Model{
		ctx:      ctx,
		ctrl:     ctrl,
		bar:      bprogress.New(bprogress.WithDefaultGradient()),
		viewport: viewport.New(defaultWidth, defaultHeight),
		styles:   NewStyles(),
	}

	m.syncRows()
	m.resize(defaultWidth, defaultHeight)

	return m
}

// Rows returns a copy of the job rows.
func (m *Model) Rows() []JobRow {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	rows := make([]JobRow, len(m.rows))
	for i, r := range m.rows {
		rows[i] = *r
	}

	return rows
}

// Stats returns the statistics of the last event seen.
func (m *Model) Stats() progress.Stats {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	return m.stats
}

// syncRows rebuilds the job rows from the controller's job list.
func (m *Model) syncRows() {
	jobs := m.ctrl.Jobs()
	rows := make([]*JobRow, len(jobs))

	for i, j := range jobs {
		rows[i] = &JobRow{Name: j.DisplayName, Path: j.SourcePath}
	}

	m.rows = rows
}

// resize applies a new terminal size to the child components.
func (m *Model) resize(width, height int) {
	m.width = width
	m.height = height
	m.bar.Width = max(width-barPadding, minBarWidth)
	m.viewport.Width = max(width-borderWidth, minViewportWidth)
	m.viewport.Height = max(height-reservedLines, 1)
}

// processEvent applies a progress event to the model. The caller holds the lock.
func (m *Model) processEvent(e progress.Event) {
	m.stats = e.Stats

	if e.RunID != "" {
		m.runID = e.RunID
	}

	switch e.Type {
	case progress.EventStarted:
		m.syncRows()
		m.started = e.Timestamp
		m.stopped = time.Time{}
		m.finished = false
		m.fault = false

	case progress.EventJobStarted:
		if row := m.row(e.JobIndex); row != nil {
			row.setStatus(StatusRunning, e.Timestamp)
		}

	case progress.EventJobCompleted:
		if row := m.row(e.JobIndex); row != nil {
			row.setStatus(StatusSuccess, e.Timestamp)
		}

	case progress.EventJobFailed:
		if row := m.row(e.JobIndex); row != nil {
			row.setStatus(StatusFailed, e.Timestamp)

			if e.Err != nil {
				row.ErrorMsg = e.Err.Error()
			}
		}

	case progress.EventCancelled:
		if e.Stats.JobsTotal == 0 && !e.Stats.Cancelled {
			// Reset zeroes the statistics.
			m.syncRows()
			m.started = time.Time{}
			m.stopped = time.Time{}
			m.finished = false
			m.fault = false

			return
		}

		m.stopped = e.Timestamp

		for _, row := range m.rows {
			if row.Status == StatusRunning {
				row.setStatus(StatusSkipped, e.Timestamp)
			}
		}

	case progress.EventFinished:
		m.finished = true
		m.stopped = e.Timestamp

	case progress.EventFault:
		m.finished = true
		m.fault = true
		m.stopped = e.Timestamp

		for _, row := range m.rows {
			if row.Status == StatusRunning {
				row.setStatus(StatusFailed, e.Timestamp)
			}
		}
	}
}

func (m *Model) row(i int) *JobRow {
	if i < 0 || i >= len(m.rows) {
		return nil
	}

	return m.rows[i]
}

// elapsed is the running time of the batch as shown on screen.
func (m *Model) elapsed(now time.Time) time.Duration {
	switch {
	case m.stats.Elapsed > 0 || m.started.IsZero():
		return m.stats.Elapsed
	case !m.stopped.IsZero():
		return m.stopped.Sub(m.started)
	default:
		return now.Sub(m.started)
	}
}
