// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package show contains the show command, which prints results saved by 'm8batch run --out'.
package show

import (
	"context"
	"errors"
	"os"

	"github.com/matt-FFFFFF/m8batch/internal/runbatch"
	"github.com/urfave/cli/v3"
)

const (
	fileArg                  = "file"
	noOutputStdErrFlag       = "no-output-stderr"
	outputSuccessDetailsFlag = "output-success-details"
)

var (
	// ErrNoFile is returned when no results file is given.
	ErrNoFile = errors.New("no results file specified")
	// ErrReadFile is returned when the file cannot be read.
	ErrReadFile = errors.New("failed to read file")
	// ErrDecodeResults is returned when the results cannot be decoded from the file.
	ErrDecodeResults = errors.New("failed to decode results")
	// ErrWriteResults is returned when the results cannot be written.
	ErrWriteResults = errors.New("failed to write results")
)

// ShowCmd is the command that shows previously saved batch results.
var ShowCmd = newShowCmd()

func newShowCmd() *cli.Command {
	return &cli.Command{
		Name:        "show",
		Usage:       "Show previously saved results",
		Description: "Show the results of a batch saved with 'm8batch run --out <file>'.",
		Arguments: []cli.Argument{
			&cli.StringArg{
				Name: fileArg,
			},
		},
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    noOutputStdErrFlag,
				Aliases: []string{"no-stderr"},
				Usage:   "Exclude worker stderr output",
			},
			&cli.BoolFlag{
				Name:    outputSuccessDetailsFlag,
				Aliases: []string{"success"},
				Usage:   "Include file counts and timing of successful folders",
			},
		},
		Action: actionFunc,
	}
}

func actionFunc(_ context.Context, cmd *cli.Command) error {
	name := cmd.StringArg(fileArg)
	if name == "" {
		return ErrNoFile
	}

	file, err := os.Open(name)
	if err != nil {
		return errors.Join(ErrReadFile, err)
	}
	defer file.Close() // nolint:errcheck

	results, err := runbatch.ReadBinary(file)
	if err != nil {
		return errors.Join(ErrDecodeResults, err)
	}

	opts := runbatch.DefaultOutputOptions()
	opts.IncludeStdErr = !cmd.Bool(noOutputStdErrFlag)
	opts.ShowSuccessDetails = cmd.Bool(outputSuccessDetailsFlag)

	if err := results.WriteText(cmd.Root().Writer, opts); err != nil {
		return errors.Join(ErrWriteResults, err)
	}

	return nil
}
