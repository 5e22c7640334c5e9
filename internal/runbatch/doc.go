// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package runbatch runs an ordered list of folder jobs through the worker, one at a time,
// and keeps the batch state a front-end renders.
//
// The Orchestrator owns the job list, the batch options and the state. Start launches a
// background loop that hands each job to a JobRunner and folds the job's progress into one
// cumulative fraction:
//
//	fraction = (index + jobFraction) / len(jobs)
//
// Jobs are equal weighted regardless of how many files they hold. A failing job is recorded
// and the loop moves on. Cancel stops the loop and kills the running worker; Reset also clears
// the statistics. Observers call Snapshot or receive progress.Events.
//
// Each attempted job leaves a Result, which can be written as text or as gob.
package runbatch
