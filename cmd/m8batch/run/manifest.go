// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package run

import (
	"context"
	"time"

	"github.com/matt-FFFFFF/m8batch/internal/config"
	"github.com/urfave/cli/v3"
)

// flags holds the run command's batch flags. Pointer fields are nil when the flag was not set.
type flags struct {
	file          string
	sources       []string
	scan          []string
	scanDepth     *int
	includeHidden *bool
	output        string
	noBitDepth    *bool
	flatten       *bool
	worker        string
	jobTimeout    *time.Duration
	historyDB     string
}

func flagsFromCommand(cmd *cli.Command) flags {
	f := flags{
		file:      cmd.String(fileFlag),
		sources:   cmd.StringSlice(sourceFlag),
		scan:      cmd.StringSlice(scanFlag),
		output:    cmd.String(outputFlag),
		worker:    cmd.String(workerFlag),
		historyDB: cmd.String(historyDBFlag),
	}

	if cmd.IsSet(scanDepthFlag) {
		v := cmd.Int(scanDepthFlag)
		f.scanDepth = &v
	}

	if cmd.IsSet(includeHiddenFlag) {
		v := cmd.Bool(includeHiddenFlag)
		f.includeHidden = &v
	}

	if cmd.IsSet(noBitDepthFlag) {
		v := cmd.Bool(noBitDepthFlag)
		f.noBitDepth = &v
	}

	if cmd.IsSet(flattenFoldersFlag) {
		v := cmd.Bool(flattenFoldersFlag)
		f.flatten = &v
	}

	if cmd.IsSet(jobTimeoutFlag) {
		v := cmd.Duration(jobTimeoutFlag)
		f.jobTimeout = &v
	}

	return f
}

// buildManifest loads the manifest named by --file, if any, and lays the flags over it.
// Flag sources and scan folders are added after the manifest's own.
func buildManifest(ctx context.Context, f flags) (*config.Manifest, error) {
	m := &config.Manifest{}

	if f.file != "" {
		loaded, err := config.Load(ctx, f.file)
		if err != nil {
			return nil, err //nolint:wrapcheck
		}

		m = loaded
	}

	m.Sources = append(m.Sources, f.sources...)
	m.Scan = append(m.Scan, f.scan...)

	if f.output != "" {
		m.Output = f.output
	}

	if f.worker != "" {
		m.WorkerPath = f.worker
	}

	if f.historyDB != "" {
		m.HistoryDB = f.historyDB
	}

	if f.scanDepth != nil {
		m.ScanDepth = *f.scanDepth
	}

	if f.includeHidden != nil {
		m.IncludeHidden = *f.includeHidden
	}

	if f.noBitDepth != nil {
		v := !*f.noBitDepth
		m.ConvertBitDepth = &v
	}

	if f.flatten != nil {
		m.FlattenFolders = *f.flatten
	}

	if f.jobTimeout != nil {
		m.JobTimeout = f.jobTimeout.String()
	}

	if err := m.Validate(); err != nil {
		return nil, err //nolint:wrapcheck
	}

	return m, nil
}
