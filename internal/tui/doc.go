// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package tui provides a real-time Terminal User Interface (TUI) for a batch.
// It shows one line per folder with its status, a progress bar for the whole batch,
// the folder being processed, file counts, elapsed time and speed.
//
// The TUI is driven by progress events and can start, cancel and reset the batch
// from the keyboard.
package tui
