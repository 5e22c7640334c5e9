// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package tui

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/matt-FFFFFF/m8batch/internal/color"
	"github.com/matt-FFFFFF/m8batch/internal/progress"
)

var _ progress.Listener = (*ConsoleListener)(nil)

// ConsoleListener prints progress events as plain lines, for terminals without the TUI.
type ConsoleListener struct {
	w        io.Writer
	progress bool
	last     string
	mu       sync.Mutex
}

// NewConsoleListener creates a listener writing to w.
// With showProgress every change of the progress line is printed,
// otherwise only job and batch transitions are.
func NewConsoleListener(w io.Writer, showProgress bool) *ConsoleListener {
	return &ConsoleListener{w: w, progress: showProgress}
}

// OnEvent implements progress.Listener.
func (c *ConsoleListener) OnEvent(e progress.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()

	st := e.Stats
	n := e.JobIndex + 1

	var line string

	switch e.Type {
	case progress.EventStarted:
		line = fmt.Sprintf("Processing %d folder(s)", st.JobsTotal)
	case progress.EventJobStarted:
		line = fmt.Sprintf("Folder %d/%d %s: started", n, st.JobsTotal, e.JobName)
	case progress.EventProgress:
		if !c.progress {
			return
		}

		line = ProgressLine(e)
	case progress.EventJobCompleted:
		line = color.Colorize(fmt.Sprintf("Folder %d/%d %s: done", n, st.JobsTotal, e.JobName), color.FgGreen)
	case progress.EventJobFailed:
		msg := fmt.Sprintf("Folder %d/%d %s: failed", n, st.JobsTotal, e.JobName)
		if e.Err != nil {
			msg += ": " + e.Err.Error()
		}

		line = color.Colorize(msg, color.FgRed)
	case progress.EventCancelled:
		if st.JobsTotal == 0 && !st.Cancelled {
			line = "Batch reset"
		} else {
			line = color.Colorize("Batch cancelled", color.FgYellow)
		}
	case progress.EventFinished:
		line = Summary(st)
	case progress.EventFault:
		line = color.Colorize("Processing failed: "+st.LastError, color.FgRed)
	default:
		return
	}

	if line == c.last {
		return
	}

	c.last = line

	fmt.Fprintln(c.w, line) //nolint:errcheck
}

// ProgressLine formats a progress event as "Folder i/N name: 37.0% (120/320 files)".
func ProgressLine(e progress.Event) string {
	st := e.Stats

	return fmt.Sprintf("Folder %d/%d %s: %.1f%% (%d/%d files)",
		e.JobIndex+1, st.JobsTotal, e.JobName, st.Percent(), st.FilesProcessed, st.FilesTotal)
}

// Summary formats the completion banner of a finished batch.
func Summary(st progress.Stats) string {
	return fmt.Sprintf("Processed %d files in %d/%d folder(s) in %s (%.1f files/s), %d failed",
		st.FilesProcessed, st.JobsCompleted, st.JobsTotal,
		st.Elapsed.Round(time.Millisecond), st.AverageFilesPerSecond, st.FailedJobs)
}
