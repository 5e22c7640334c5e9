// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package progress carries batch state changes from the orchestrator to whoever renders them.
// The orchestrator reports an Event for every change; the TUI, the console printer and the
// interactive shell consume them through a ChannelReporter.
package progress
