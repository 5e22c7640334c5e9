// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/matt-FFFFFF/m8batch/internal/sources"
	"github.com/prashantv/gostub"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseYAML(t *testing.T) {
	content := `
output: /out
convert_bit_depth: false
flatten_folders: true
worker_path: /opt/M8SampleFormatter
job_timeout: 10m
sources:
  - /samples/drums
  - /samples/synths
scan:
  - /packs
scan_depth: 2
history_db: /var/m8batch/history.db
`

	m, err := Parse("batch.yaml", []byte(content))
	require.NoError(t, err)

	assert.Equal(t, "/out", m.Output)
	require.NotNil(t, m.ConvertBitDepth)
	assert.False(t, *m.ConvertBitDepth)
	assert.True(t, m.FlattenFolders)
	assert.Equal(t, "/opt/M8SampleFormatter", m.WorkerPath)
	assert.Equal(t, 10*time.Minute, m.Timeout())
	assert.Equal(t, []string{"/samples/drums", "/samples/synths"}, m.Sources)
	assert.Equal(t, []string{"/packs"}, m.Scan)
	assert.Equal(t, 2, m.ScanDepth)
	assert.Equal(t, "/var/m8batch/history.db", m.HistoryDB)

	opts := m.Options()
	assert.Equal(t, "/out", opts.OutputPath)
	assert.False(t, opts.ConvertBitDepth)
	assert.True(t, opts.FlattenFolders)
}

func TestParseDefaults(t *testing.T) {
	m, err := Parse("batch.yml", []byte("sources: [/samples/drums]\n"))
	require.NoError(t, err)

	require.NotNil(t, m.ConvertBitDepth)
	assert.True(t, *m.ConvertBitDepth)
	assert.Zero(t, m.Timeout())

	opts := m.Options()
	assert.True(t, opts.ConvertBitDepth)
	assert.False(t, opts.FlattenFolders)
	assert.Empty(t, opts.OutputPath)
}

func TestParseOptionsOnly(t *testing.T) {
	m, err := Parse("opts.yaml", []byte("output: /out\nflatten_folders: true\n"))
	require.NoError(t, err)

	assert.Equal(t, "/out", m.Output)
	assert.Empty(t, m.Sources)

	require.ErrorIs(t, m.Validate(), ErrNoSources)

	m.Scan = []string{"/packs"}
	require.NoError(t, m.Validate())
}

func TestValidate(t *testing.T) {
	m := &Manifest{JobTimeout: "soon", ScanDepth: 20}

	err := m.Validate()
	require.ErrorIs(t, err, ErrInvalidManifest)
	require.ErrorIs(t, err, ErrNoSources)
	assert.Contains(t, err.Error(), "JobTimeout")
	assert.Contains(t, err.Error(), "ScanDepth")
}

func TestNewValidator_Duration(t *testing.T) {
	v, err := newValidator()
	require.NoError(t, err)

	require.NoError(t, v.Var("10m", "duration"))
	require.Error(t, v.Var("-1s", "duration"))
	require.Error(t, v.Var("soon", "duration"))
}

func TestParseHCL(t *testing.T) {
	stubs := gostub.Stub(&environFunc, func() []string {
		return []string{"HOME=/home/m8", "=ignored", "NOT-AN-IDENT=x"}
	})
	defer stubs.Reset()

	content := `
output          = "${env.HOME}/out"
flatten_folders = true
job_timeout     = "90s"
sources         = ["${env.HOME}/samples/kicks", "/samples/snares"]
`

	m, err := Parse("batch.hcl", []byte(content))
	require.NoError(t, err)

	assert.Equal(t, "/home/m8/out", m.Output)
	assert.True(t, m.FlattenFolders)
	assert.True(t, *m.ConvertBitDepth)
	assert.Equal(t, 90*time.Second, m.Timeout())
	assert.Equal(t, []string{"/home/m8/samples/kicks", "/samples/snares"}, m.Sources)
}

func TestParseErrors(t *testing.T) {
	testCases := []struct {
		name     string
		filename string
		content  string
		wantErr  error
		contains []string
	}{
		{
			name:     "unknown extension",
			filename: "batch.json",
			content:  "{}",
			wantErr:  ErrUnknownFormat,
		},
		{
			name:     "bad yaml",
			filename: "batch.yaml",
			content:  "sources: [unterminated",
			wantErr:  ErrInvalidYaml,
		},
		{
			name:     "bad hcl syntax",
			filename: "batch.hcl",
			content:  `sources = [`,
			wantErr:  ErrInvalidHcl,
		},
		{
			name:     "unknown hcl attribute",
			filename: "batch.hcl",
			content:  "sources = [\"/a\"]\ncolour = \"red\"\n",
			wantErr:  ErrInvalidHcl,
		},
		{
			name:     "every problem reported",
			filename: "batch.yaml",
			content:  "job_timeout: soon\nscan_depth: 20\n",
			wantErr:  ErrInvalidManifest,
			contains: []string{"JobTimeout", "ScanDepth"},
		},
		{
			name:     "empty source entry",
			filename: "batch.yaml",
			content:  "sources: [\"\"]\n",
			wantErr:  ErrInvalidManifest,
			contains: []string{"Sources[0]"},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			m, err := Parse(tc.filename, []byte(tc.content))
			require.Error(t, err)
			assert.Nil(t, m)
			assert.ErrorIs(t, err, tc.wantErr)

			for _, s := range tc.contains {
				assert.Contains(t, err.Error(), s)
			}
		})
	}
}

func TestLoadFileResolvesRelativePaths(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/batches/batch.yaml", []byte(`
output: out
history_db: /abs/history.db
sources: [samples/kicks]
scan: [packs]
`), 0o644))

	stubs := gostub.Stub(&FsFactory, func() afero.Fs { return fs })
	defer stubs.Reset()

	m, err := LoadFile("/batches/batch.yaml")
	require.NoError(t, err)

	assert.Equal(t, filepath.FromSlash("/batches/out"), m.Output)
	assert.Equal(t, "/abs/history.db", m.HistoryDB)
	assert.Equal(t, []string{filepath.FromSlash("/batches/samples/kicks")}, m.Sources)
	assert.Equal(t, []string{filepath.FromSlash("/batches/packs")}, m.Scan)
}

func TestLoadFileMissing(t *testing.T) {
	stubs := gostub.Stub(&FsFactory, func() afero.Fs { return afero.NewMemMapFs() })
	defer stubs.Reset()

	_, err := LoadFile("/nope.yaml")
	assert.ErrorIs(t, err, ErrReadManifest)

	_, err = Load(context.Background(), "")
	assert.ErrorIs(t, err, ErrReadManifest)
}

func TestLoadLocalPath(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/batches/batch.hcl", []byte(`sources = ["kicks"]`), 0o644))

	stubs := gostub.Stub(&FsFactory, func() afero.Fs { return fs })
	defer stubs.Reset()

	m, err := Load(context.Background(), "/batches/batch.hcl")
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.FromSlash("/batches/kicks")}, m.Sources)
}

func TestJobs(t *testing.T) {
	fs := afero.NewMemMapFs()
	for _, d := range []string{
		"/samples/kicks",
		"/samples/snares",
		"/packs/a",
		"/packs/b",
		"/packs/.cache",
		"/packs/a/nested",
	} {
		require.NoError(t, fs.MkdirAll(d, 0o755))
	}

	stubs := gostub.Stub(&sources.FsFactory, func() afero.Fs { return fs })
	defer stubs.Reset()

	m := &Manifest{
		Sources: []string{"/samples/snares", "/samples/missing"},
		Scan:    []string{"/packs"},
	}

	jobs, err := m.Jobs(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
	assert.Equal(t, []string{"/samples/snares", "/packs/a", "/packs/b"}, jobs)

	m = &Manifest{
		Sources:       []string{"/samples/*"},
		Scan:          []string{"/packs"},
		ScanDepth:     2,
		IncludeHidden: true,
	}

	jobs, err = m.Jobs(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{
		"/samples/kicks",
		"/samples/snares",
		"/packs/.cache",
		"/packs/a",
		"/packs/a/nested",
		"/packs/b",
	}, jobs)
}
