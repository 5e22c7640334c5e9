// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package tui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/matt-FFFFFF/m8batch/internal/progress"
)

const (
	tickInterval        = time.Second
	durationRounding    = 100 * time.Millisecond
	reservedLines       = 12
	barPadding          = 4
	borderWidth         = 4
	minBarWidth         = 10
	minViewportWidth    = 20
	minErrorBannerWidth = 20
	ellipsis            = "..."
)

// ProgressEventMsg wraps a progress event for the tea framework.
type ProgressEventMsg struct {
	Event progress.Event
}

type tickMsg time.Time

func tick() tea.Cmd {
	return tea.Tick(tickInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Init implements bubbletea.Model.Init.
func (m *Model) Init() tea.Cmd {
	return tick()
}

// Update implements bubbletea.Model.Update.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyPress(msg)

	case tea.WindowSizeMsg:
		m.mutex.Lock()
		m.resize(msg.Width, msg.Height)
		m.mutex.Unlock()

		return m, nil

	case ProgressEventMsg:
		m.mutex.Lock()
		m.processEvent(msg.Event)
		m.mutex.Unlock()

		return m, nil

	case tickMsg:
		return m, tick()

	case tea.QuitMsg:
		m.quitting = true
		return m, tea.Quit
	}

	var cmd tea.Cmd

	m.mutex.Lock()
	m.viewport, cmd = m.viewport.Update(msg)
	m.mutex.Unlock()

	return m, cmd
}

// handleKeyPress processes keyboard input.
func (m *Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		m.ctrl.Cancel()

		m.mutex.Lock()
		m.quitting = true
		m.mutex.Unlock()

		return m, tea.Quit

	case "c":
		m.ctrl.Cancel()
		return m, nil

	case "r":
		m.ctrl.Reset()
		return m, nil

	case "s":
		m.start()
		return m, nil
	}

	var cmd tea.Cmd

	m.mutex.Lock()
	m.viewport, cmd = m.viewport.Update(msg)
	m.mutex.Unlock()

	return m, cmd
}

// start starts a batch, or explains in the error banner why it could not.
func (m *Model) start() bool {
	if m.ctrl.Start(m.ctx) {
		return true
	}

	reason := m.startRefusal()

	m.mutex.Lock()
	m.stats.LastError = reason
	m.mutex.Unlock()

	return false
}

// startRefusal explains why Start did nothing.
func (m *Model) startRefusal() string {
	st := m.ctrl.Snapshot()

	switch {
	case st.Running:
		return "a batch is already running"
	case len(st.Jobs) == 0:
		return "no folders to process"
	case st.Options.OutputPath == "":
		return "no output folder set"
	default:
		return "batch could not be started"
	}
}

// View implements bubbletea.Model.View.
func (m *Model) View() string {
	if m.quitting {
		return "Shutting down...\n"
	}

	m.mutex.Lock()
	defer m.mutex.Unlock()

	var content strings.Builder
	m.renderJobs(&content)
	m.viewport.SetContent(content.String())

	var view strings.Builder

	view.WriteString(m.styles.Title.Render("M8 Sample Batch"))
	view.WriteString("\n")
	view.WriteString(m.renderSummary(time.Now()))
	view.WriteString("\n")
	view.WriteString(m.bar.ViewAs(m.stats.Fraction))
	view.WriteString("\n")

	if m.stats.LastError != "" {
		view.WriteString(m.styles.Error.Render(truncate("Error: "+m.stats.LastError, max(m.width, minErrorBannerWidth))))
		view.WriteString("\n")
	}

	view.WriteString(m.styles.Border.Render(m.viewport.View()))
	view.WriteString("\n")
	view.WriteString(m.styles.Help.Render(m.helpText()))

	return view.String()
}

// renderSummary renders the current folder, file counts, elapsed time and speed.
func (m *Model) renderSummary(now time.Time) string {
	st := m.stats
	elapsed := m.elapsed(now)

	var b strings.Builder

	switch {
	case st.Running && st.CurrentJobName != "":
		fmt.Fprintf(&b, "Folder %d of %d: %s\n", st.JobsCompleted+1, st.JobsTotal, st.CurrentJobName)
	case m.fault:
		b.WriteString(m.styles.Failed.Render("Processing failed") + "\n")
	case st.Cancelled:
		b.WriteString(m.styles.Skipped.Render("Cancelled") + "\n")
	case m.finished && st.FailedJobs > 0:
		b.WriteString(m.styles.Failed.Render(
			fmt.Sprintf("Completed with %d failed folder(s)", st.FailedJobs)) + "\n")
	case m.finished:
		b.WriteString(m.styles.Success.Render("Processing complete") + "\n")
	default:
		fmt.Fprintf(&b, "%d folder(s) queued\n", len(m.rows))
	}

	speed := st.AverageFilesPerSecond
	if speed == 0 && elapsed > 0 {
		speed = float64(st.FilesProcessed) / elapsed.Seconds()
	}

	b.WriteString(m.styles.Detail.Render(fmt.Sprintf(
		"Files: %d/%d  Folders: %d/%d  Elapsed: %s  Speed: %.1f files/s",
		st.FilesProcessed, st.FilesTotal,
		st.JobsCompleted, st.JobsTotal,
		elapsed.Round(durationRounding), speed,
	)))

	return b.String()
}

// renderJobs renders one line per folder.
func (m *Model) renderJobs(b *strings.Builder) {
	if len(m.rows) == 0 {
		b.WriteString(m.styles.Pending.Render("No folders added"))
		return
	}

	for i, row := range m.rows {
		var icon, name string

		switch row.Status {
		case StatusRunning:
			icon, name = "⚡", m.styles.Running.Render(row.Name)
		case StatusSuccess:
			icon, name = "✅", m.styles.Success.Render(row.Name)
		case StatusFailed:
			icon, name = "❌", m.styles.Failed.Render(row.Name)
		case StatusSkipped:
			icon, name = "⏭️", m.styles.Skipped.Render(row.Name)
		default:
			icon, name = "⏳", m.styles.Pending.Render(row.Name)
		}

		fmt.Fprintf(b, "%2d. %s %s", i+1, icon, name)

		if row.StartTime != nil {
			end := time.Now()
			if row.EndTime != nil {
				end = *row.EndTime
			}

			b.WriteString(m.styles.Detail.Render(fmt.Sprintf(" (%v)", end.Sub(*row.StartTime).Round(durationRounding))))
		}

		if row.Status == StatusFailed && row.ErrorMsg != "" {
			b.WriteString(" ")
			b.WriteString(m.styles.Error.Render(truncate(row.ErrorMsg, max(m.viewport.Width/2, minViewportWidth)))) //nolint:mnd
		}

		b.WriteString("\n")
	}
}

func (m *Model) helpText() string {
	if m.stats.Running {
		return "'c' cancel, 'r' reset, 'q' quit, ↑/↓ scroll"
	}

	return "'s' start, 'r' reset, 'q' quit, ↑/↓ scroll"
}

func truncate(s string, width int) string {
	if len(s) <= width {
		return s
	}

	if width <= len(ellipsis) {
		return s[:width]
	}

	return s[:width-len(ellipsis)] + ellipsis
}
