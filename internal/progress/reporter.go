// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package progress

import (
	"context"
	"sync"
)

// DefaultBufferSize is a reasonable buffer for one batch's events.
const DefaultBufferSize = 256

var _ Reporter = (*ChannelReporter)(nil)

// ChannelReporter implements Reporter using a buffered channel.
//
// Report never blocks. When the buffer is full, EventProgress events are dropped, a later one
// supersedes them. Every other event joins a backlog that a flusher goroutine moves into the
// channel in order, so a listener always sees job and batch transitions.
// Reports after Close are dropped.
type ChannelReporter struct {
	ch     chan Event
	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	closed   bool
	backlog  []Event
	flushing bool // a flusher owns delivery until the backlog is empty

	flusher sync.WaitGroup
	wg      sync.WaitGroup
	once    sync.Once
}

// NewChannelReporter creates a new ChannelReporter with the specified buffer size.
// Cancelling ctx stops listeners and discards the backlog.
func NewChannelReporter(ctx context.Context, bufferSize int) *ChannelReporter {
	reporterCtx, cancel := context.WithCancel(ctx)

	return &ChannelReporter{
		ch:     make(chan Event, bufferSize),
		ctx:    reporterCtx,
		cancel: cancel,
	}
}

// Report implements Reporter.Report.
func (cr *ChannelReporter) Report(event Event) {
	cr.mu.Lock()
	defer cr.mu.Unlock()

	if cr.closed || cr.ctx.Err() != nil {
		return
	}

	if !cr.flushing {
		select {
		case cr.ch <- event:
			return
		default:
		}

		if event.Type == EventProgress {
			return
		}
	}

	if n := len(cr.backlog); event.Type == EventProgress && n > 0 && cr.backlog[n-1].Type == EventProgress {
		cr.backlog[n-1] = event
		return
	}

	cr.backlog = append(cr.backlog, event)

	if !cr.flushing {
		cr.flushing = true
		cr.flusher.Add(1)

		go cr.flush()
	}
}

// flush moves the backlog into the channel, then exits.
func (cr *ChannelReporter) flush() {
	defer cr.flusher.Done()

	for {
		cr.mu.Lock()

		if len(cr.backlog) == 0 {
			cr.flushing = false
			cr.mu.Unlock()

			return
		}

		event := cr.backlog[0]
		cr.backlog = cr.backlog[1:]
		cr.mu.Unlock()

		select {
		case cr.ch <- event:
		case <-cr.ctx.Done():
			cr.mu.Lock()
			cr.backlog = nil
			cr.flushing = false
			cr.mu.Unlock()

			return
		}
	}
}

// Close implements Reporter.Close.
// It delivers the backlog, closes the channel and waits for listeners to drain it.
func (cr *ChannelReporter) Close() {
	cr.once.Do(func() {
		cr.mu.Lock()
		cr.closed = true
		cr.mu.Unlock()

		cr.flusher.Wait()
		close(cr.ch)

		cr.wg.Wait()
		cr.cancel()
	})
}

// Listen forwards events to listener on a new goroutine until the reporter is closed
// and drained, or its context is cancelled.
func (cr *ChannelReporter) Listen(listener Listener) {
	cr.wg.Add(1)

	go func() {
		defer cr.wg.Done()

		for {
			select {
			case event, ok := <-cr.ch:
				if !ok {
					return
				}

				listener.OnEvent(event)
			case <-cr.ctx.Done():
				return
			}
		}
	}()
}

// Events returns a read-only channel of events, for callers that do not use a Listener.
func (cr *ChannelReporter) Events() <-chan Event {
	return cr.ch
}
