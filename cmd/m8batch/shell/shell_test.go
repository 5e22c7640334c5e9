// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package shell

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/matt-FFFFFF/m8batch/internal/color"
	"github.com/matt-FFFFFF/m8batch/internal/protocol"
	"github.com/matt-FFFFFF/m8batch/internal/runbatch"
	"github.com/matt-FFFFFF/m8batch/internal/worker"
	"github.com/peterh/liner"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

var errBroken = errors.New("exit code 1")

// stubRunner converts every folder instantly, fails folders named broken
// and blocks folders named slow until cancelled.
type stubRunner struct{}

func (stubRunner) RunJob(
	ctx context.Context, job worker.Job, _ worker.Options, onProgress func(protocol.Progress),
) (protocol.Result, error) {
	switch job.DisplayName {
	case "broken":
		return protocol.Result{}, errBroken
	case "slow":
		<-ctx.Done()
		return protocol.Result{}, context.Cause(ctx)
	}

	onProgress(protocol.Progress{Fraction: 1, FilesProcessed: 2, FilesTotal: 2})

	return protocol.Result{FilesProcessed: 2, FilesTotal: 2, AverageFilesPerSecond: 1}, nil
}

func newSession(t *testing.T) (*Session, *runbatch.Orchestrator, *bytes.Buffer) {
	t.Helper()

	prev := color.Enabled()
	color.SetEnabled(false)
	t.Cleanup(func() { color.SetEnabled(prev) })

	orch := runbatch.New(stubRunner{})
	buf := new(bytes.Buffer)

	return NewSession(context.Background(), orch, buf), orch, buf
}

func sampleDirs(t *testing.T, names ...string) string {
	t.Helper()

	dir := t.TempDir()
	for _, n := range names {
		require.NoError(t, os.Mkdir(filepath.Join(dir, n), 0o755))
	}

	return dir
}

func exec(t *testing.T, s *Session, line string) error {
	t.Helper()

	quit, err := s.Execute(line)
	assert.False(t, quit)

	return err
}

func TestSession_EditList(t *testing.T) {
	s, orch, buf := newSession(t)
	dir := sampleDirs(t, "Kicks", "Snares", "Hats")

	require.NoError(t, exec(t, s, "add "+filepath.Join(dir, "Kicks")))
	require.NoError(t, exec(t, s, "scan "+dir))
	assert.Len(t, orch.Jobs(), 3)
	assert.Contains(t, buf.String(), "Added 1 folder(s)\nAdded 2 folder(s)\n")

	require.NoError(t, exec(t, s, "remove 1"))
	require.NoError(t, exec(t, s, "remove "+filepath.Join(dir, "Snares")))
	require.Len(t, orch.Jobs(), 1)
	assert.Equal(t, "Hats", orch.Jobs()[0].DisplayName)

	buf.Reset()
	require.NoError(t, exec(t, s, "list"))
	assert.Equal(t, "  1. Hats ("+filepath.Join(dir, "Hats")+")\n", buf.String())

	assert.ErrorIs(t, exec(t, s, "remove 7"), ErrNoSuchFolder)

	require.NoError(t, exec(t, s, "clear"))
	assert.Empty(t, orch.Jobs())
}

func TestSession_Options(t *testing.T) {
	s, orch, buf := newSession(t)

	require.NoError(t, exec(t, s, "output"))
	assert.Contains(t, buf.String(), "Output folder: (not set)")

	require.NoError(t, exec(t, s, "output /out"))
	require.NoError(t, exec(t, s, "bitdepth off"))
	require.NoError(t, exec(t, s, "FLATTEN on"))

	assert.Equal(t, worker.Options{OutputPath: "/out", ConvertBitDepth: false, FlattenFolders: true}, orch.Options())

	assert.ErrorIs(t, exec(t, s, "bitdepth maybe"), ErrUsage)
	assert.ErrorIs(t, exec(t, s, "output a b"), ErrUsage)
}

func TestSession_Errors(t *testing.T) {
	s, _, _ := newSession(t)

	tests := []struct {
		line string
		want error
	}{
		{line: "frobnicate", want: ErrUnknownCommand},
		{line: "add", want: ErrUsage},
		{line: "scan", want: ErrUsage},
		{line: "scan /tmp deep", want: ErrUsage},
		{line: "remove", want: ErrUsage},
		{line: "start", want: ErrNotStarted},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			assert.ErrorIs(t, exec(t, s, tt.line), tt.want)
		})
	}

	require.NoError(t, exec(t, s, ""))
	require.NoError(t, exec(t, s, "   "))
}

func TestSession_RunBatch(t *testing.T) {
	defer goleak.VerifyNone(t)

	s, orch, buf := newSession(t)
	dir := sampleDirs(t, "Kicks", "broken")

	require.NoError(t, exec(t, s, "scan "+dir))

	err := exec(t, s, "start")
	require.ErrorIs(t, err, ErrNotStarted)
	assert.Contains(t, err.Error(), "no output folder set")

	require.NoError(t, exec(t, s, "output "+filepath.Join(dir, "out")))
	require.NoError(t, exec(t, s, "start"))

	buf.Reset()
	require.NoError(t, exec(t, s, "wait"))
	assert.Contains(t, buf.String(), "✓ Kicks")
	assert.Contains(t, buf.String(), "✗ broken")

	buf.Reset()
	require.NoError(t, exec(t, s, "status"))
	assert.True(t, strings.HasPrefix(buf.String(), "Processed 2 files in 2/2 folder(s) in "), buf.String())
	assert.True(t, strings.HasSuffix(buf.String(), ", 1 failed\n"), buf.String())

	require.NoError(t, exec(t, s, "reset"))

	buf.Reset()
	require.NoError(t, exec(t, s, "results"))
	assert.Equal(t, "No results\n", buf.String())

	assert.Len(t, orch.Jobs(), 2)
}

func TestSession_CancelAndQuit(t *testing.T) {
	defer goleak.VerifyNone(t)

	s, orch, buf := newSession(t)
	dir := sampleDirs(t, "slow", "Kicks")

	require.NoError(t, exec(t, s, "add "+filepath.Join(dir, "slow")))
	require.NoError(t, exec(t, s, "add "+filepath.Join(dir, "Kicks")))
	require.NoError(t, exec(t, s, "output "+dir))
	require.NoError(t, exec(t, s, "start"))

	assert.ErrorIs(t, exec(t, s, "start"), ErrNotStarted)

	require.NoError(t, exec(t, s, "cancel"))
	orch.Wait()

	buf.Reset()
	require.NoError(t, exec(t, s, "status"))
	assert.Equal(t, "Cancelled after 0 of 2 folder(s)\n", buf.String())

	buf.Reset()
	require.NoError(t, exec(t, s, "cancel"))
	assert.Equal(t, "No batch is running\n", buf.String())

	quit, err := s.Execute("quit")
	require.NoError(t, err)
	assert.True(t, quit)
}

func TestSession_Help(t *testing.T) {
	s, _, buf := newSession(t)

	require.NoError(t, exec(t, s, "help"))

	for _, name := range CommandNames() {
		assert.Contains(t, buf.String(), "  "+name)
	}
}

func TestComplete(t *testing.T) {
	assert.Equal(t, []string{"scan", "start", "status"}, complete("s"))
	assert.Equal(t, []string{"remove", "reset", "results"}, complete("RE"))
	assert.Nil(t, complete("add /tmp"))
	assert.Empty(t, complete("zz"))
}

// scriptedPrompter replays inputs, then reports io.EOF.
type scriptedPrompter struct {
	inputs  []string
	errs    []error
	history []string
}

func (p *scriptedPrompter) Prompt(string) (string, error) {
	if len(p.inputs) == 0 {
		return "", io.EOF
	}

	in, err := p.inputs[0], p.errs[0]
	p.inputs, p.errs = p.inputs[1:], p.errs[1:]

	return in, err
}

func (p *scriptedPrompter) AppendHistory(item string) {
	p.history = append(p.history, item)
}

func TestLoop(t *testing.T) {
	tests := []struct {
		name    string
		inputs  []string
		errs    []error
		wantErr error
		want    []string
		history []string
	}{
		{
			name:    "quit",
			inputs:  []string{"output /out", "", "quit", "list"},
			errs:    []error{nil, nil, nil, nil},
			want:    []string{"Output folder set to /out"},
			history: []string{"output /out", "quit"},
		},
		{
			name:    "eof",
			inputs:  []string{"frobnicate"},
			errs:    []error{nil},
			want:    []string{"unknown command"},
			history: []string{"frobnicate"},
		},
		{
			name:   "ctrl-c when idle",
			inputs: []string{""},
			errs:   []error{liner.ErrPromptAborted},
			want:   []string{"Aborted"},
		},
		{
			name:    "read error",
			inputs:  []string{""},
			errs:    []error{os.ErrClosed},
			wantErr: os.ErrClosed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, orch, buf := newSession(t)
			p := &scriptedPrompter{inputs: tt.inputs, errs: tt.errs}

			err := loop(s, orch, p, buf)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}

			require.NoError(t, err)

			for _, w := range tt.want {
				assert.Contains(t, buf.String(), w)
			}

			assert.Equal(t, tt.history, p.history)
		})
	}
}
