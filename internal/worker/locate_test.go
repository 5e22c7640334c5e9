// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package worker

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/prashantv/gostub"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCandidates(t *testing.T) {
	stubs := gostub.Stub(&executableFunc, func() (string, error) {
		return "/opt/m8/m8batch", nil
	})
	defer stubs.Reset()

	c := Candidates("/custom/worker")
	require.Len(t, c, 5)
	assert.Equal(t, "/custom/worker", c[0])
	assert.Equal(t, "/opt/m8/"+BundledExecutableName, c[1])
	assert.Equal(t, filepath.Join("..", "M8SampleFormatter", "build", "M8SampleFormatter"), c[2])
	assert.Equal(t, filepath.Join(".", "M8SampleFormatter"), c[3])
	assert.Equal(t, SystemExecutablePath, c[4])

	stubs.Stub(&executableFunc, func() (string, error) {
		return "", errors.New("unknown")
	})
	assert.Len(t, Candidates(""), 3)
}

func TestLocate(t *testing.T) {
	tests := []struct {
		name       string
		files      map[string]uint32
		candidates []string
		path       string
		want       string
		wantErr    bool
	}{
		{
			name:       "first existing candidate wins",
			files:      map[string]uint32{"/b/worker": 0o755, "/c/worker": 0o755},
			candidates: []string{"/a/worker", "/b/worker", "/c/worker"},
			want:       "/b/worker",
		},
		{
			name:       "non executable file is skipped",
			files:      map[string]uint32{"/a/worker": 0o644, "/b/worker": 0o755},
			candidates: []string{"/a/worker", "/b/worker"},
			want:       "/b/worker",
		},
		{
			name:       "falls back to PATH",
			files:      map[string]uint32{"/usr/bin/" + ExecutableName: 0o755},
			candidates: []string{"/a/worker"},
			path:       "/opt/bin" + string(filepath.ListSeparator) + "/usr/bin",
			want:       "/usr/bin/" + ExecutableName,
		},
		{
			name:       "nothing found",
			candidates: []string{"/a/worker"},
			wantErr:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := afero.NewMemMapFs()
			for p, mode := range tt.files {
				require.NoError(t, afero.WriteFile(fs, p, []byte("#!/bin/sh\n"), 0o644))
				require.NoError(t, fs.Chmod(p, fsMode(mode)))
			}

			stubs := gostub.Stub(&FsFactory, func() afero.Fs { return fs })
			defer stubs.Reset()

			t.Setenv("PATH", tt.path)

			got, err := Locate(tt.candidates)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrExecutableNotFound)
				assert.Contains(t, err.Error(), "/a/worker")

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLocate_DirectoryIsNotExecutable(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll("/a/worker", 0o755))

	stubs := gostub.Stub(&FsFactory, func() afero.Fs { return fs })
	defer stubs.Reset()

	t.Setenv("PATH", "")

	_, err := Locate([]string{"/a/worker"})
	assert.ErrorIs(t, err, ErrExecutableNotFound)
}
