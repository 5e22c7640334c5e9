// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package runbatch

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/matt-FFFFFF/m8batch/internal/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func plainText(t *testing.T, results Results, opts *OutputOptions) string {
	t.Helper()

	orig := color.Enabled()
	color.SetEnabled(false)

	t.Cleanup(func() { color.SetEnabled(orig) })

	var buf bytes.Buffer
	require.NoError(t, results.WriteText(&buf, opts))

	return buf.String()
}

func TestWriteText_Statuses(t *testing.T) {
	results := Results{
		{Label: "Kicks", Status: ResultStatusSuccess, FilesProcessed: 3, FilesTotal: 4, Duration: 1500 * time.Millisecond, AverageFilesPerSecond: 2},
		{Label: "Snares", Status: ResultStatusError, ExitCode: 2, Error: errors.New("exit code 2"), StdErr: []byte("line one\nline two\n")},
		{Label: "Hats", Status: ResultStatusSkipped, Error: ErrNotRun},
		{Status: ResultStatusUnknown},
	}

	out := plainText(t, results, nil)

	assert.Contains(t, out, "✓ Kicks\n")
	assert.NotContains(t, out, "3/4 files")
	assert.Contains(t, out, "✗ Snares (exit code: 2)\n")
	assert.Contains(t, out, "  ➜ Error: exit code 2\n")
	assert.Contains(t, out, "  ➜ Error Output:\n     line one\n     line two\n")
	assert.Contains(t, out, "~ Hats\n")
	assert.NotContains(t, out, ErrNotRun.Error())
	assert.Contains(t, out, "? [unnamed]\n")
}

func TestWriteText_Options(t *testing.T) {
	results := Results{
		{Label: "Kicks", Status: ResultStatusSuccess, FilesProcessed: 3, FilesTotal: 4, Duration: 1500 * time.Millisecond, AverageFilesPerSecond: 2},
		{Label: "Snares", Status: ResultStatusError, Error: errors.New("boom"), StdErr: []byte("stderr text")},
	}

	out := plainText(t, results, &OutputOptions{ShowSuccessDetails: true})

	assert.Contains(t, out, "  ➜ 3/4 files in 1.5s (2.0 files/s)\n")
	assert.NotContains(t, out, "stderr text")
}

func TestFormatOutput(t *testing.T) {
	assert.Equal(t, "  a\n\n  b\n", formatOutput([]byte("a\n\nb\n"), "  "))
}
