// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package runbatch

import (
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"time"

	"github.com/hashicorp/go-multierror"
)

var (
	// ErrNotRun is recorded for jobs the loop never reached.
	ErrNotRun = errors.New("not run, batch was cancelled")
	// ErrBatchCancelled is the cancellation cause of a batch context.
	ErrBatchCancelled = errors.New("batch cancelled")
	// ErrBatchFault is wrapped around unexpected failures of the batch loop.
	ErrBatchFault = errors.New("processing failed")
)

// ResultStatus is the outcome of one job.
type ResultStatus int

const (
	// ResultStatusUnknown is the zero value.
	ResultStatusUnknown ResultStatus = iota
	// ResultStatusSuccess means the worker exited zero.
	ResultStatusSuccess
	// ResultStatusError means the job failed and the batch carried on.
	ResultStatusError
	// ResultStatusSkipped means the job was cancelled or never started.
	ResultStatusSkipped
)

// String returns the string representation of the ResultStatus.
func (s ResultStatus) String() string {
	switch s {
	case ResultStatusSuccess:
		return "success"
	case ResultStatusError:
		return "error"
	case ResultStatusSkipped:
		return "skipped"
	default:
		return "unknown"
	}
}

// Result is the outcome of one job in a batch.
type Result struct {
	Label                 string // display name of the job
	SourcePath            string
	Status                ResultStatus
	ExitCode              int
	Error                 error
	StdErr                []byte // captured worker stderr, set on a non-zero exit
	FilesProcessed        int
	FilesTotal            int
	AverageFilesPerSecond float64
	Duration              time.Duration
}

// Results is a slice of Result pointers, one per job in list order.
type Results []*Result

// HasError reports whether any job failed.
func (r Results) HasError() bool {
	for v := range slices.Values(r) {
		if v != nil && v.Status == ResultStatusError {
			return true
		}
	}

	return false
}

// Err returns the failed jobs' errors combined, or nil.
func (r Results) Err() error {
	var merr *multierror.Error

	for v := range slices.Values(r) {
		if v == nil || v.Status != ResultStatusError {
			continue
		}

		err := v.Error
		if err == nil {
			err = fmt.Errorf("exit code %d", v.ExitCode) //nolint:err113
		}

		merr = multierror.Append(merr, fmt.Errorf("%s: %w", v.Label, err))
	}

	return merr.ErrorOrNil()
}

// Print outputs the results to stdout with default options.
func (r Results) Print() error {
	return r.WriteText(os.Stdout, nil)
}

// WriteText writes the results to w as coloured text. Nil options mean DefaultOutputOptions.
func (r Results) WriteText(w io.Writer, options *OutputOptions) error {
	return writeTextResults(w, r, options)
}

// WriteBinary writes the results to w in gob format.
func (r Results) WriteBinary(w io.Writer) error {
	return writeResultGob(w, r)
}
