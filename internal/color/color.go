// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package color

import (
	"os"
	"strconv"
	"strings"

	"golang.org/x/term"
)

const (
	sbPadding = 16 // padding for the strings.Builder
)

const (
	// NoColor is the environment variable that disables color output.
	NoColor = "NO_COLOR"
	// ForceColor is the environment variable that forces color output.
	ForceColor = "FORCE_COLOR"
	reset      = "\033[0m"
	prefix     = "\033["
	suffix     = "m"
)

// Code represents an ANSI control code for text formatting.
type Code int

// Control codes for text formatting.
const (
	Reset Code = iota
	Bold
	Faint
	Italic
	Underline
)

// Foreground text colors.
const (
	FgBlack Code = iota + 30
	FgRed
	FgGreen
	FgYellow
	FgBlue
	FgMagenta
	FgCyan
	FgWhite
)

// Foreground Hi-Intensity text colors.
const (
	FgHiBlack Code = iota + 90
	FgHiRed
	FgHiGreen
	FgHiYellow
	FgHiBlue
	FgHiMagenta
	FgHiCyan
	FgHiWhite
)

var enabled bool

func init() {
	enabled = isColorCapable()
}

// ControlString generates a string with ANSI control codes for text formatting.
// It returns an empty string when color output is disabled.
func ControlString(c ...Code) string {
	if !enabled {
		return ""
	}

	return sequence(c)
}

// ControlStringAlways is ControlString without the enabled check.
// Handlers that make their own colour decision use it.
func ControlStringAlways(c ...Code) string {
	return sequence(c)
}

// Colorize returns a string with ANSI color codes applied.
// It appends the reset code at the end of the string to reset the color.
func Colorize(str string, colorCodes ...Code) string {
	if !enabled {
		return str
	}

	return sequence(colorCodes) + str + reset
}

// ColorizeNoReset returns a string with ANSI color codes applied.
// It does not append the reset code at the end of the string.
func ColorizeNoReset(str string, colorCodes ...Code) string {
	if !enabled {
		return str
	}

	return sequence(colorCodes) + str
}

// Enabled reports whether color output is enabled.
// It is initialized in package init() from NO_COLOR, FORCE_COLOR and terminal detection.
func Enabled() bool {
	return enabled
}

// SetEnabled overrides the detected color setting, e.g. for --no-color or tests.
func SetEnabled(v bool) {
	enabled = v
}

func sequence(codes []Code) string {
	sb := strings.Builder{}
	sb.Grow(len(prefix) + len(suffix) + sbPadding)
	sb.WriteString(prefix)

	for i, code := range codes {
		if i > 0 {
			sb.WriteString(";")
		}

		sb.WriteString(strconv.Itoa(int(code)))
	}

	sb.WriteString(suffix)

	return sb.String()
}

func isColorCapable() bool {
	if nc := os.Getenv(NoColor); nc != "" {
		return false
	}

	if fc := os.Getenv(ForceColor); fc != "" {
		return true
	}

	return term.IsTerminal(int(os.Stdout.Fd()))
}
