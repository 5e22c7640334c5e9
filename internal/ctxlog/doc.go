// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package ctxlog carries a *slog.Logger in a context.Context.
//
// The orchestrator, the worker runner and the CLI all log through the logger stored in the
// context, so a caller decides where log output goes (console, TUI buffer, JSON) in one place.
// The default is a pretty console handler writing to stderr, leaving stdout for batch progress.
//
// The log level is read from M8BATCH_LOG_LEVEL, falling back to a variable derived from the
// executable name (e.g. MYAPP_LOG_LEVEL). Unknown values leave the level at WARN.
package ctxlog
