// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package worker

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func fsMode(m uint32) os.FileMode {
	return os.FileMode(m)
}

// writeWorker writes an executable shell script standing in for the worker.
func writeWorker(t *testing.T, body string) string {
	t.Helper()

	p := filepath.Join(t.TempDir(), ExecutableName)
	require.NoError(t, os.WriteFile(p, []byte("#!/bin/sh\n"+body), 0o755)) //nolint:gosec

	return p
}
