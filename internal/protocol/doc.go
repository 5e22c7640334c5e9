// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package protocol parses the line oriented text the M8SampleFormatter worker writes to its
// standard output and standard error.
//
// Three shapes are recognised, anywhere in a line (log prefixes such as timestamps and levels
// are ignored because every shape is anchored on a literal token):
//
//	Progress: 37% (120/320 files)
//	Scan complete: 320 files found
//	FINAL_STATS: 320 310 10 12.500000
//
// Everything else is ignored. The functions are pure and never fail; a line that does not
// match returns ok == false.
package protocol
