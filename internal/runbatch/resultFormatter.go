// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package runbatch

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/matt-FFFFFF/m8batch/internal/color"
)

// OutputOptions controls what is included in the output.
type OutputOptions struct {
	IncludeStdErr      bool // Whether to include the worker's stderr for failed jobs
	ShowSuccessDetails bool // Whether to show file counts and timing for successful jobs
}

// DefaultOutputOptions returns a default set of output options.
func DefaultOutputOptions() *OutputOptions {
	return &OutputOptions{
		IncludeStdErr:      true,
		ShowSuccessDetails: false,
	}
}

// writeTextResults writes formatted results to the provided writer.
func writeTextResults(w io.Writer, results Results, options *OutputOptions) error {
	if options == nil {
		options = DefaultOutputOptions()
	}

	for _, r := range results {
		if r == nil {
			continue
		}

		if err := writeResult(w, r, options); err != nil {
			return err
		}
	}

	return nil
}

func writeResult(w io.Writer, r *Result, options *OutputOptions) error {
	var statusStr, labelPrefix string

	switch r.Status {
	case ResultStatusSkipped:
		statusStr = color.Colorize("~", color.FgYellow)
		labelPrefix = color.ControlString(color.Bold, color.FgYellow)
	case ResultStatusError:
		statusStr = color.Colorize("✗", color.FgRed)
		labelPrefix = color.ControlString(color.Bold, color.FgRed)
	case ResultStatusSuccess:
		statusStr = color.Colorize("✓", color.FgGreen)
		labelPrefix = color.ControlString(color.Bold, color.FgGreen)
	default:
		statusStr = color.Colorize("?", color.FgWhite)
	}

	label := r.Label
	if label == "" {
		label = "[unnamed]"
	}

	sb := strings.Builder{}
	fmt.Fprintf(&sb, "%s %s%s%s", statusStr, labelPrefix, label, color.ControlString(color.Reset))

	if r.ExitCode != 0 {
		fmt.Fprintf(&sb, " (exit code: %d)", r.ExitCode)
	}

	sb.WriteString("\n")

	if r.Status == ResultStatusSuccess && options.ShowSuccessDetails {
		fmt.Fprintf(&sb, "  ➜ %d/%d files in %s (%.1f files/s)\n",
			r.FilesProcessed, r.FilesTotal, r.Duration.Round(time.Millisecond), r.AverageFilesPerSecond)
	}

	if r.Error != nil && !errors.Is(r.Error, ErrNotRun) {
		errColor := color.FgWhite

		switch r.Status {
		case ResultStatusSkipped:
			errColor = color.FgYellow
		case ResultStatusError:
			errColor = color.FgRed
		}

		fmt.Fprintf(&sb, "  %s %s%s\n",
			color.ColorizeNoReset("➜ Error:", errColor),
			r.Error.Error(),
			color.ControlString(color.Reset),
		)
	}

	if r.Status == ResultStatusError && options.IncludeStdErr && len(r.StdErr) > 0 {
		fmt.Fprintf(&sb, "  %s\n", color.Colorize("➜ Error Output:", color.FgHiRed))
		sb.WriteString(formatOutput(r.StdErr, "     "))
	}

	_, err := io.WriteString(w, sb.String())

	return err //nolint:wrapcheck
}

// formatOutput indents every non-empty line of output.
func formatOutput(output []byte, indent string) string {
	sb := strings.Builder{}
	lines := strings.Split(strings.TrimRight(string(output), "\n"), "\n")
	sb.Grow(len(output) + len(lines)*len(indent))

	for _, line := range lines {
		if line == "" {
			sb.WriteString("\n")

			continue
		}

		sb.WriteString(indent)
		sb.WriteString(line)
		sb.WriteString("\n")
	}

	return sb.String()
}
