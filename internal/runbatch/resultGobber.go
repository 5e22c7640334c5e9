// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package runbatch

import (
	"encoding/gob"
	"errors"
	"io"
	"time"
)

var (
	// ErrWriteGob is returned when writing the results to a binary format fails.
	ErrWriteGob = errors.New("failed to write binary results")
	// ErrReadGob is returned when reading results in binary format fails.
	ErrReadGob = errors.New("failed to read binary results")
)

// gobResult is the wire form of a Result. Errors travel as their message.
type gobResult struct {
	Label                 string
	SourcePath            string
	Status                ResultStatus
	ExitCode              int
	Error                 string
	StdErr                []byte
	FilesProcessed        int
	FilesTotal            int
	AverageFilesPerSecond float64
	Duration              time.Duration
}

func writeResultGob(w io.Writer, results Results) error {
	out := make([]gobResult, 0, len(results))

	for _, r := range results {
		if r == nil {
			continue
		}

		g := gobResult{
			Label:                 r.Label,
			SourcePath:            r.SourcePath,
			Status:                r.Status,
			ExitCode:              r.ExitCode,
			StdErr:                r.StdErr,
			FilesProcessed:        r.FilesProcessed,
			FilesTotal:            r.FilesTotal,
			AverageFilesPerSecond: r.AverageFilesPerSecond,
			Duration:              r.Duration,
		}
		if r.Error != nil {
			g.Error = r.Error.Error()
		}

		out = append(out, g)
	}

	if err := gob.NewEncoder(w).Encode(out); err != nil {
		return errors.Join(ErrWriteGob, err)
	}

	return nil
}

// ReadBinary decodes results written by Results.WriteBinary.
func ReadBinary(r io.Reader) (Results, error) {
	var in []gobResult
	if err := gob.NewDecoder(r).Decode(&in); err != nil {
		return nil, errors.Join(ErrReadGob, err)
	}

	results := make(Results, 0, len(in))

	for _, g := range in {
		res := &Result{
			Label:                 g.Label,
			SourcePath:            g.SourcePath,
			Status:                g.Status,
			ExitCode:              g.ExitCode,
			StdErr:                g.StdErr,
			FilesProcessed:        g.FilesProcessed,
			FilesTotal:            g.FilesTotal,
			AverageFilesPerSecond: g.AverageFilesPerSecond,
			Duration:              g.Duration,
		}
		if g.Error != "" {
			res.Error = errors.New(g.Error) //nolint:err113
		}

		results = append(results, res)
	}

	return results, nil
}
