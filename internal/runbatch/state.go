// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package runbatch

import (
	"time"

	"github.com/matt-FFFFFF/m8batch/internal/progress"
	"github.com/matt-FFFFFF/m8batch/internal/worker"
)

// State is a copy of the orchestrator's state.
type State struct {
	progress.Stats

	RunID     string
	StartedAt time.Time
	Jobs      []worker.Job
	Options   worker.Options
}

// CurrentJobNumber returns the 1-based number of the job in flight, or 0.
func (s State) CurrentJobNumber() int {
	if !s.Running || s.CurrentJobName == "" {
		return 0
	}

	return s.JobsCompleted + 1
}
