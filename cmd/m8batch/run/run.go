// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package run contains the run command, which processes a batch of folders and exits.
package run

import (
	"bytes"
	"context"
	"fmt"
	"os"

	"github.com/matt-FFFFFF/m8batch/internal/ctxlog"
	"github.com/matt-FFFFFF/m8batch/internal/history"
	"github.com/matt-FFFFFF/m8batch/internal/progress"
	"github.com/matt-FFFFFF/m8batch/internal/runbatch"
	"github.com/matt-FFFFFF/m8batch/internal/signalbroker"
	"github.com/matt-FFFFFF/m8batch/internal/tui"
	"github.com/matt-FFFFFF/m8batch/internal/worker"
	"github.com/urfave/cli/v3"
)

const (
	fileFlag                 = "file"
	sourceFlag               = "source"
	scanFlag                 = "scan"
	scanDepthFlag            = "scan-depth"
	includeHiddenFlag        = "include-hidden"
	outputFlag               = "output"
	noBitDepthFlag           = "no-bitdepth"
	flattenFoldersFlag       = "flatten-folders"
	workerFlag               = "worker"
	jobTimeoutFlag           = "job-timeout"
	tuiFlag                  = "tui"
	quietFlag                = "quiet"
	outFlag                  = "out"
	historyDBFlag            = "history-db"
	noOutputStdErrFlag       = "no-output-stderr"
	outputSuccessDetailsFlag = "output-success-details"
	cliExitStr               = ""
)

// RunCmd is the command that processes a batch of folders.
var RunCmd = newRunCmd()

func newRunCmd() *cli.Command {
	return &cli.Command{
		Name:  "run",
		Usage: "Process a batch of sample folders",
		Description: `Process a batch of sample folders with the M8SampleFormatter worker.

Folders are taken from --source (files or glob patterns), from the immediate sub-folders of
each --scan folder, and from an optional manifest given with --file. Manifests are YAML or HCL
and their URLs use Hashicorp's go-getter syntax, see https://github.com/hashicorp/go-getter.
Flags override the manifest.

Folders are processed one at a time. A folder that fails is reported and the batch carries on.
The exit status is 1 if any folder failed or the batch was cancelled.
Press Ctrl+C once to cancel the batch, twice to terminate immediately.
`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    fileFlag,
				Aliases: []string{"f"},
				Usage: "Specify the URL of a YAML or HCL batch manifest. " +
					"Supports Hashicorp's go-getter syntax for fetching files from various sources.",
				TakesFile: true,
				OnlyOnce:  true,
			},
			&cli.StringSliceFlag{
				Name:    sourceFlag,
				Aliases: []string{"s"},
				Usage:   "Add a source folder or glob pattern. Specify multiple times to add more folders.",
			},
			&cli.StringSliceFlag{
				Name:  scanFlag,
				Usage: "Add every sub-folder of this folder. Specify multiple times to scan more folders.",
			},
			&cli.IntFlag{
				Name:  scanDepthFlag,
				Usage: "How many levels below each --scan folder to add",
				Value: 1,
			},
			&cli.BoolFlag{
				Name:        includeHiddenFlag,
				Usage:       "Include hidden folders when scanning",
				Value:       false,
				DefaultText: "false",
				OnlyOnce:    true,
			},
			&cli.StringFlag{
				Name:      outputFlag,
				Aliases:   []string{"o"},
				Usage:     "Specify the output folder",
				TakesFile: true,
				OnlyOnce:  true,
			},
			&cli.BoolFlag{
				Name:        noBitDepthFlag,
				Usage:       "Keep the original bit depth instead of converting to 16 bit",
				Value:       false,
				DefaultText: "false",
				OnlyOnce:    true,
			},
			&cli.BoolFlag{
				Name:        flattenFoldersFlag,
				Usage:       "Write every converted file directly into the output folder",
				Value:       false,
				DefaultText: "false",
				OnlyOnce:    true,
			},
			&cli.StringFlag{
				Name:      workerFlag,
				Usage:     "Path to the M8SampleFormatter executable. Searched for when not set.",
				TakesFile: true,
				OnlyOnce:  true,
			},
			&cli.DurationFlag{
				Name:  jobTimeoutFlag,
				Usage: "Kill a folder's worker after this long. Zero means no limit.",
				Value: 0,
			},
			&cli.BoolFlag{
				Name:        tuiFlag,
				Aliases:     []string{"t", "interactive"},
				Usage:       "Run with interactive Terminal User Interface (TUI) showing real-time progress",
				Value:       false,
				DefaultText: "false",
				OnlyOnce:    true,
			},
			&cli.BoolFlag{
				Name:        quietFlag,
				Aliases:     []string{"q"},
				Usage:       "Only print folder transitions, not every progress update",
				Value:       false,
				DefaultText: "false",
				OnlyOnce:    true,
			},
			&cli.StringFlag{
				Name:      outFlag,
				Usage:     "Save the results to this file, view them later with 'm8batch show'",
				TakesFile: true,
				OnlyOnce:  true,
			},
			&cli.StringFlag{
				Name:      historyDBFlag,
				Usage:     "Record the run in this history database",
				TakesFile: true,
				OnlyOnce:  true,
			},
			&cli.BoolFlag{
				Name:        noOutputStdErrFlag,
				Aliases:     []string{"no-stderr"},
				Usage:       "Exclude worker stderr output in the results",
				Value:       false,
				DefaultText: "false",
				OnlyOnce:    true,
			},
			&cli.BoolFlag{
				Name:        outputSuccessDetailsFlag,
				Aliases:     []string{"success"},
				Usage:       "Include file counts and timing of successful folders in the results",
				Value:       false,
				DefaultText: "false",
				OnlyOnce:    true,
			},
		},
		Action: actionFunc,
	}
}

func actionFunc(ctx context.Context, cmd *cli.Command) error {
	logger := ctxlog.Logger(ctx).With("command", cmd.Name)
	logger.Debug("Running run command")

	m, err := buildManifest(ctx, flagsFromCommand(cmd))
	if err != nil {
		logger.Error(fmt.Sprintf("Invalid batch: %s", err.Error()))
		return cli.Exit(cliExitStr, 1)
	}

	jobs, err := m.Jobs(ctx)
	if err != nil {
		logger.Error(fmt.Sprintf("Failed to resolve source folders: %s", err.Error()))
		return cli.Exit(cliExitStr, 1)
	}

	if len(jobs) == 0 {
		logger.Error("No folders to process.")
		return cli.Exit(cliExitStr, 1)
	}

	if m.Output == "" {
		logger.Error("Please specify the output folder using the --output or -o flag.")
		return cli.Exit(cliExitStr, 1)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	events := progress.NewChannelReporter(ctx, progress.DefaultBufferSize)
	orch := runbatch.New(
		worker.NewRunner(m.WorkerPath, m.Timeout()),
		runbatch.WithReporter(events),
		runbatch.WithOptions(m.Options()),
	)

	added := orch.AddJobs(jobs...)
	logger.Debug("jobs added", "count", added, "output", m.Output)

	switch cmd.Bool(tuiFlag) {
	case true:
		logger.Info("Starting interactive TUI mode...")

		buf := new(bytes.Buffer)
		tuiCtx := ctxlog.NewForWriter(ctx, buf)

		tuiErr := tui.NewRunner(tuiCtx, orch, events).Run(tuiCtx, true)
		orch.Wait()
		events.Close()

		buf.WriteTo(cmd.ErrWriter) //nolint:errcheck

		if tuiErr != nil {
			logger.Error(fmt.Sprintf("TUI execution error: %s", tuiErr.Error()), "error", tuiErr.Error())
		}
	default:
		events.Listen(tui.NewConsoleListener(cmd.Writer, !cmd.Bool(quietFlag)))

		sigCh := signalbroker.New(ctx)
		defer signalbroker.Stop(sigCh)

		go signalbroker.Watch(ctx, sigCh, orch.Cancel, cancel)

		if !orch.Start(ctx) {
			events.Close()
			logger.Error("The batch could not be started.")

			return cli.Exit(cliExitStr, 1)
		}

		orch.Wait()
		events.Close()
	}

	state := orch.Snapshot()
	res := orch.Results()

	if outFileName := cmd.String(outFlag); outFileName != "" && res != nil {
		if err := writeResultsFile(outFileName, res); err != nil {
			logger.Error(fmt.Sprintf("Failed to write results to file %s: %s", outFileName, err.Error()))
			return cli.Exit(cliExitStr, 1)
		}

		logger.Info(fmt.Sprintf("Results written to %s", outFileName))
	}

	if m.HistoryDB != "" && state.RunID != "" {
		recordHistory(ctx, m.HistoryDB, state, res)
	}

	opts := runbatch.DefaultOutputOptions()
	opts.IncludeStdErr = !cmd.Bool(noOutputStdErrFlag)
	opts.ShowSuccessDetails = cmd.Bool(outputSuccessDetailsFlag)

	if err := res.WriteText(cmd.Writer, opts); err != nil {
		logger.Error(fmt.Sprintf("Failed to write results: %s", err.Error()))
		return cli.Exit(cliExitStr, 1)
	}

	return exitStatus(ctx, state, res)
}

// exitStatus maps the final batch state to the command's exit status.
func exitStatus(ctx context.Context, state runbatch.State, res runbatch.Results) error {
	switch {
	case res.HasError():
		ctxlog.Error(ctx, "Some folders failed. See above for details.", "error", res.Err())
		return cli.Exit(cliExitStr, 1)
	case state.Cancelled:
		ctxlog.Error(ctx, "The batch was cancelled.")
		return cli.Exit(cliExitStr, 1)
	case state.LastError != "" && !state.Completed:
		ctxlog.Error(ctx, state.LastError)
		return cli.Exit(cliExitStr, 1)
	case state.RunID == "":
		ctxlog.Warn(ctx, "No batch was run.")
	}

	return nil
}

func writeResultsFile(name string, res runbatch.Results) error {
	f, err := os.Create(name)
	if err != nil {
		return err //nolint:wrapcheck
	}

	defer f.Close() //nolint:errcheck

	return res.WriteBinary(f)
}

// recordHistory stores the run. Failures are logged, the batch result stands.
func recordHistory(ctx context.Context, path string, state runbatch.State, res runbatch.Results) {
	store, err := history.Open(ctx, path)
	if err != nil {
		ctxlog.Warn(ctx, "failed to open history database", "path", path, "error", err)
		return
	}

	defer store.Close() //nolint:errcheck

	if _, err := store.Record(ctx, state, res); err != nil {
		ctxlog.Warn(ctx, "failed to record run", "run_id", state.RunID, "error", err)
		return
	}

	ctxlog.Debug(ctx, "run recorded", "run_id", state.RunID, "path", path)
}
