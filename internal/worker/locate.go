// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package worker

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/spf13/afero"
)

const (
	// ExecutableName is the worker's file name on PATH and in the install locations.
	ExecutableName = "M8SampleFormatter"
	// BundledExecutableName is the worker's file name next to the m8batch binary.
	BundledExecutableName = "M8SampleFormatterBackend"
	// SystemExecutablePath is the fixed system install location.
	SystemExecutablePath = "/usr/local/bin/M8SampleFormatter"
)

// FsFactory creates the filesystem used to probe for the worker. Tests replace it.
var FsFactory = func() afero.Fs {
	return afero.NewOsFs()
}

// executableFunc returns the path of the running binary. Tests replace it.
var executableFunc = os.Executable

// Candidates returns the worker locations in resolution order:
// override, bundle-local, development build, current directory, system install.
func Candidates(override string) []string {
	c := make([]string, 0, 5) //nolint:mnd

	if override != "" {
		c = append(c, override)
	}

	if exe, err := executableFunc(); err == nil {
		c = append(c, filepath.Join(filepath.Dir(exe), BundledExecutableName))
	}

	return append(c,
		filepath.Join("..", ExecutableName, "build", ExecutableName),
		filepath.Join(".", ExecutableName),
		SystemExecutablePath,
	)
}

// Locate returns the absolute path of the first candidate that is an executable file.
// If none match, the directories on PATH are searched for ExecutableName.
// The error wraps ErrExecutableNotFound and names the paths tried.
func Locate(candidates []string) (string, error) {
	fs := FsFactory()

	for _, c := range candidates {
		abs, err := filepath.Abs(c)
		if err != nil {
			continue
		}

		if isExecutable(fs, abs) {
			return abs, nil
		}
	}

	if p, ok := lookPath(fs, ExecutableName); ok {
		return p, nil
	}

	return "", fmt.Errorf("%w: tried %s and PATH", ErrExecutableNotFound, strings.Join(candidates, ", "))
}

func lookPath(fs afero.Fs, name string) (string, bool) {
	for _, dir := range filepath.SplitList(os.Getenv("PATH")) {
		if dir == "" {
			continue
		}

		p := filepath.Join(dir, name)
		if isExecutable(fs, p) {
			return p, true
		}
	}

	return "", false
}

func isExecutable(fs afero.Fs, path string) bool {
	info, err := fs.Stat(path)
	if err != nil || info.IsDir() {
		return false
	}

	// check if the file is executable if not Windows
	if runtime.GOOS != "windows" && info.Mode()&0o111 == 0 {
		return false
	}

	return true
}
