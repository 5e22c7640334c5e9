// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package tui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/matt-FFFFFF/m8batch/internal/progress"
)

// Runner manages the TUI application and progress event integration.
type Runner struct {
	model   *Model
	program *tea.Program
	events  *progress.ChannelReporter
}

// NewRunner creates a TUI for ctrl. events must be the reporter the orchestrator reports to.
// Its reports never block, so a key that cancels the batch cannot wait on a listener stuck in
// program.Send.
func NewRunner(ctx context.Context, ctrl Controller, events *progress.ChannelReporter, opts ...tea.ProgramOption) *Runner {
	model := NewModel(ctx, ctrl)
	opts = append([]tea.ProgramOption{tea.WithAltScreen()}, opts...)

	return &Runner{
		model:   model,
		program: tea.NewProgram(model, opts...),
		events:  events,
	}
}

// Model returns the runner's model.
func (r *Runner) Model() *Model {
	return r.model
}

// Run shows the TUI until the user quits or ctx is cancelled.
// With autoStart a batch is started straight away.
// A running batch is cancelled when the TUI exits.
func (r *Runner) Run(ctx context.Context, autoStart bool) error {
	r.events.Listen(progress.ListenerFunc(func(e progress.Event) {
		r.program.Send(ProgressEventMsg{Event: e})
	}))

	tuiDone := make(chan error, 1)

	go func() {
		_, err := r.program.Run()
		tuiDone <- err
	}()

	if autoStart {
		r.model.start()
	}

	var err error

	select {
	case err = <-tuiDone:
	case <-ctx.Done():
		r.program.Quit()
		err = <-tuiDone
	}

	r.model.ctrl.Cancel()

	return err
}
