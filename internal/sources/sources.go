// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package sources turns user input into job source folders: explicit paths, glob patterns
// and parent folders whose sub-folders each become a job.
package sources

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/afero"
)

// IncludeHidden is a type that indicates whether to include hidden directories.
type IncludeHidden bool

var (
	// HiddenInclude includes directories whose name starts with a dot.
	HiddenInclude = IncludeHidden(true)
	// HiddenExclude skips directories whose name starts with a dot.
	HiddenExclude = IncludeHidden(false)
)

var (
	// ErrNotDirectory is returned when a source path is not a directory.
	ErrNotDirectory = errors.New("not a directory")
	// ErrNoMatches is returned when a glob pattern matches no directory.
	ErrNoMatches = errors.New("pattern matched no directories")
)

// FsFactory creates the filesystem sources are read from. Tests replace it.
var FsFactory = func() afero.Fs {
	return afero.NewOsFs()
}

// ValidateDirectory checks that path exists and is a directory.
func ValidateDirectory(path string) error {
	info, err := FsFactory().Stat(path)
	if err != nil {
		return fmt.Errorf("source %s: %w", path, err)
	}

	if !info.IsDir() {
		return fmt.Errorf("source %s: %w", path, ErrNotDirectory)
	}

	return nil
}

// ListSubdirectories returns the absolute paths of directories below parent, sorted.
// depth 1 lists immediate children only; depth <= 0 means unlimited.
func ListSubdirectories(ctx context.Context, parent string, depth int, includeHidden IncludeHidden) ([]string, error) {
	if err := ValidateDirectory(parent); err != nil {
		return nil, err
	}

	parent, err := filepath.Abs(parent)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", parent, err)
	}

	var dirs []string

	err = afero.Walk(FsFactory(), parent, func(path string, info os.FileInfo, err error) error {
		// Check for context cancellation
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err != nil {
			return err
		}

		if !info.IsDir() || path == parent {
			return nil
		}

		if !bool(includeHidden) && strings.HasPrefix(info.Name(), ".") {
			return filepath.SkipDir
		}

		relPath, err := filepath.Rel(parent, path)
		if err != nil {
			return fmt.Errorf("failed to get relative path for %s: %w", path, err)
		}

		level := strings.Count(relPath, string(os.PathSeparator)) + 1
		if depth > 0 && level > depth {
			return filepath.SkipDir
		}

		dirs = append(dirs, path)

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list directories in %s: %w", parent, err)
	}

	slices.Sort(dirs)

	return dirs, nil
}

// Expand resolves a source argument. A glob pattern returns every matching directory,
// sorted, skipping hidden ones unless the pattern itself starts with a dot.
// Anything else must be an existing directory and is returned as is.
func Expand(path string) ([]string, error) {
	if !hasMeta(path) {
		if err := ValidateDirectory(path); err != nil {
			return nil, err
		}

		return []string{path}, nil
	}

	fsys := FsFactory()

	matches, err := afero.Glob(fsys, path)
	if err != nil {
		return nil, fmt.Errorf("invalid pattern %s: %w", path, err)
	}

	hiddenPattern := strings.HasPrefix(filepath.Base(path), ".")

	dirs := slices.DeleteFunc(matches, func(m string) bool {
		if !hiddenPattern && strings.HasPrefix(filepath.Base(m), ".") {
			return true
		}

		info, err := fsys.Stat(m)

		return err != nil || !info.IsDir()
	})
	if len(dirs) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoMatches, path)
	}

	slices.Sort(dirs)

	return dirs, nil
}

func hasMeta(path string) bool {
	return strings.ContainsAny(path, `*?[`)
}

