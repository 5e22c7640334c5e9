// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package main contains the m8batch command-line interface (CLI).
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/matt-FFFFFF/m8batch"
	"github.com/matt-FFFFFF/m8batch/cmd/m8batch/history"
	"github.com/matt-FFFFFF/m8batch/cmd/m8batch/run"
	"github.com/matt-FFFFFF/m8batch/cmd/m8batch/schema"
	"github.com/matt-FFFFFF/m8batch/cmd/m8batch/shell"
	"github.com/matt-FFFFFF/m8batch/cmd/m8batch/show"
	"github.com/matt-FFFFFF/m8batch/internal/ctxlog"
	"github.com/matt-FFFFFF/m8batch/internal/signalbroker"
	"github.com/urfave/cli/v3"
)

// rootCmd is the root command for the CLI.
var rootCmd = &cli.Command{
	Commands: []*cli.Command{
		run.RunCmd,
		shell.ShellCmd,
		show.ShowCmd,
		history.HistoryCmd,
		schema.SchemaCmd,
	},
	Writer:    os.Stdout,
	ErrWriter: os.Stderr,
	Name:      "m8batch",
	Description: `m8batch converts folders of audio samples for the Dirtywave M8 in one batch.
Each folder is handed to the M8SampleFormatter worker in turn while the combined progress
of the whole batch is reported. A folder that fails does not stop the others.`,
	Usage:     "m8batch run -o ./out -s ./samples/drums -s ./samples/synths",
	Copyright: "Copyright (c) matt-FFFFFF 2025. All rights reserved.",
	Authors: []any{
		"Matt White (matt-FFFFFF)",
	},
	EnableShellCompletion: true,
}

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	ctx = ctxlog.New(ctx, ctxlog.DefaultLogger)
	defer cancel()

	sigCh := signalbroker.New(ctx)

	go signalbroker.Watch(ctx, sigCh, nil, cancel)

	rootCmd.Version = fmt.Sprintf("%s (commit: %s)", m8batch.Version, m8batch.Commit)

	err := rootCmd.Run(ctx, os.Args) // Err is handled by cli framework

	if ctx.Err() != nil {
		ctxlog.Error(ctx, "command terminated due to cancellation", "error", ctx.Err())
		os.Exit(1)
	}

	if err != nil {
		ctxlog.Error(ctx, "command execution failed", "error", err)
		os.Exit(1)
	}

	ctxlog.Info(ctx, "command completed successfully")
}
