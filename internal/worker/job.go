// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package worker

import (
	"path/filepath"
)

const (
	// FlagNoBitDepth disables bit depth conversion in the worker.
	FlagNoBitDepth = "--no-bitdepth"
	// FlagFlattenFolders makes the worker write every file into the output root.
	FlagFlattenFolders = "--flatten-folders"
)

// Job is one folder handed to the worker in a single process invocation.
// Jobs are identified by SourcePath.
type Job struct {
	SourcePath  string
	DisplayName string
}

// NewJob returns a Job for path, named after its last path component.
func NewJob(path string) Job {
	return Job{
		SourcePath:  path,
		DisplayName: DisplayName(path),
	}
}

// DisplayName returns the last component of path, ignoring trailing separators.
func DisplayName(path string) string {
	if path == "" {
		return ""
	}

	return filepath.Base(filepath.Clean(path))
}

// Options is the batch wide worker configuration.
type Options struct {
	OutputPath      string
	ConvertBitDepth bool
	FlattenFolders  bool
}

// DefaultOptions returns Options with bit depth conversion enabled.
func DefaultOptions() Options {
	return Options{ConvertBitDepth: true}
}

// BuildArgs returns the worker argument vector, excluding the executable name:
//
//	<source> <output> [--no-bitdepth] [--flatten-folders]
func BuildArgs(job Job, opts Options) []string {
	args := []string{job.SourcePath, opts.OutputPath}

	if !opts.ConvertBitDepth {
		args = append(args, FlagNoBitDepth)
	}

	if opts.FlattenFolders {
		args = append(args, FlagFlattenFolders)
	}

	return args
}
