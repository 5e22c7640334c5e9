// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package color wraps console text in ANSI escape codes.
//
// Whether codes are emitted is decided once at start up: NO_COLOR disables colour,
// FORCE_COLOR enables it, and otherwise colour is used when stdout is a terminal.
// The batch summary, the console progress lines and the log handler all read that decision,
// and SetEnabled overrides it.
package color
