// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package progress

import (
	"time"
)

// Event is a batch state change.
// Stats is a copy taken at the moment the event was reported.
type Event struct {
	Type      EventType
	RunID     string
	JobIndex  int    // 0-based index of the job the event concerns, -1 for batch events
	JobName   string // display name of that job
	Stats     Stats
	Err       error // set for EventJobFailed and EventFault
	Timestamp time.Time
}

// EventType represents the type of progress event.
type EventType int

const (
	// EventStarted indicates a batch has begun.
	EventStarted EventType = iota
	// EventJobStarted indicates a job's worker is about to be launched.
	EventJobStarted
	// EventProgress indicates the cumulative fraction or file counts moved.
	EventProgress
	// EventJobCompleted indicates a job's worker exited successfully.
	EventJobCompleted
	// EventJobFailed indicates a job failed; the batch carries on.
	EventJobFailed
	// EventCancelled indicates the batch was cancelled or reset.
	EventCancelled
	// EventFinished indicates the batch loop terminated, normally or after cancellation.
	EventFinished
	// EventFault indicates the batch stopped because of an internal fault.
	EventFault
)

// String implements the Stringer interface for EventType.
func (et EventType) String() string {
	switch et {
	case EventStarted:
		return "started"
	case EventJobStarted:
		return "job_started"
	case EventProgress:
		return "progress"
	case EventJobCompleted:
		return "job_completed"
	case EventJobFailed:
		return "job_failed"
	case EventCancelled:
		return "cancelled"
	case EventFinished:
		return "finished"
	case EventFault:
		return "fault"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further events follow for the run.
func (et EventType) Terminal() bool {
	return et == EventFinished || et == EventFault
}

// Stats are the observable batch counters.
type Stats struct {
	Running               bool
	Completed             bool
	Cancelled             bool
	Fraction              float64 // cumulative fraction in [0,1]
	JobsTotal             int
	JobsCompleted         int // jobs attempted, including failures
	FailedJobs            int
	CurrentJobName        string
	FilesProcessed        int
	FilesTotal            int
	Elapsed               time.Duration
	AverageFilesPerSecond float64
	LastError             string
}

// Percent returns Fraction as a percentage.
func (s Stats) Percent() float64 {
	return s.Fraction * 100 //nolint:mnd
}

// Reporter is the interface for sending progress events.
type Reporter interface {
	// Report sends an event. It must not block: it is called from Cancel and Reset.
	Report(event Event)
	// Close signals that no more events will be sent and cleans up resources.
	Close()
}

// Listener receives events from a ChannelReporter.
type Listener interface {
	// OnEvent is called for every event, in order, on the listener goroutine.
	OnEvent(event Event)
}

// ListenerFunc adapts a function to the Listener interface.
type ListenerFunc func(Event)

// OnEvent implements Listener.
func (f ListenerFunc) OnEvent(e Event) {
	f(e)
}

// NullReporter is a no-op Reporter.
type NullReporter struct{}

// Report implements Reporter.Report by doing nothing.
func (NullReporter) Report(Event) {}

// Close implements Reporter.Close by doing nothing.
func (NullReporter) Close() {}

// NewNullReporter creates a new NullReporter.
func NewNullReporter() Reporter {
	return NullReporter{}
}
