// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package worker runs the external M8SampleFormatter executable for one folder job.
//
// A Runner resolves the executable once (Verify), then RunJob spawns one process per job,
// feeds both of its output streams through the protocol parser, calls back with progress
// in line order and returns the job's final statistics. The child process and its pipes are
// released on every return path, and cancelling the context kills the child without
// waiting for its output to drain.
package worker
