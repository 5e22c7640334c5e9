// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package shell contains the shell command, an interactive prompt for building and running batches.
package shell

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/matt-FFFFFF/m8batch/internal/color"
	"github.com/matt-FFFFFF/m8batch/internal/config"
	"github.com/matt-FFFFFF/m8batch/internal/ctxlog"
	"github.com/matt-FFFFFF/m8batch/internal/progress"
	"github.com/matt-FFFFFF/m8batch/internal/runbatch"
	"github.com/matt-FFFFFF/m8batch/internal/tui"
	"github.com/matt-FFFFFF/m8batch/internal/worker"
	"github.com/peterh/liner"
	"github.com/urfave/cli/v3"
)

const (
	fileFlag       = "file"
	outputFlag     = "output"
	workerFlag     = "worker"
	jobTimeoutFlag = "job-timeout"
	prompt         = "m8batch> "
	cliExitStr     = ""
)

// ShellCmd is the command that starts the interactive shell.
var ShellCmd = newShellCmd()

func newShellCmd() *cli.Command {
	return &cli.Command{
		Name:  "shell",
		Usage: "Build and run batches from an interactive prompt",
		Description: `Start an interactive prompt. Add folders, set the output folder and start the batch,
then follow its progress while it runs in the background. Type 'help' for the commands.
Ctrl+C cancels the running batch, or leaves the shell when nothing is running.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:      fileFlag,
				Aliases:   []string{"f"},
				Usage:     "Load folders and options from a YAML or HCL batch manifest",
				TakesFile: true,
				OnlyOnce:  true,
			},
			&cli.StringFlag{
				Name:      outputFlag,
				Aliases:   []string{"o"},
				Usage:     "Specify the output folder",
				TakesFile: true,
				OnlyOnce:  true,
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
			},
		},
		Action: actionFunc,
	}
}

func actionFunc(ctx context.Context, cmd *cli.Command) error {
	logger := ctxlog.Logger(ctx).With("command", cmd.Name)
	w := cmd.Root().Writer

	m := &config.Manifest{}

	if f := cmd.String(fileFlag); f != "" {
		loaded, err := config.Load(ctx, f)
		if err != nil {
			logger.Error(fmt.Sprintf("Failed to load manifest %s: %s", f, err.Error()))
			return cli.Exit(cliExitStr, 1)
		}

		m = loaded
	}

	if v := cmd.String(outputFlag); v != "" {
		m.Output = v
	}

	if v := cmd.String(workerFlag); v != "" {
		m.WorkerPath = v
	}

	timeout := m.Timeout()
	if cmd.IsSet(jobTimeoutFlag) {
		timeout = cmd.Duration(jobTimeoutFlag)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	events := progress.NewChannelReporter(ctx, progress.DefaultBufferSize)
	events.Listen(tui.NewConsoleListener(w, false))

	orch := runbatch.New(
		worker.NewRunner(m.WorkerPath, timeout),
		runbatch.WithReporter(events),
		runbatch.WithOptions(m.Options()),
	)

	if len(m.Sources) > 0 || len(m.Scan) > 0 {
		jobs, err := m.Jobs(ctx)
		if err != nil {
			logger.Error(fmt.Sprintf("Failed to resolve source folders: %s", err.Error()))
			return cli.Exit(cliExitStr, 1)
		}

		orch.AddJobs(jobs...)
	}

	line := liner.NewLiner()
	defer func() {
		_ = line.Close()
	}()

	line.SetCtrlCAborts(true)
	line.SetCompleter(complete)

	err := loop(NewSession(ctx, orch, w), orch, line, w)

	orch.Cancel()
	orch.Wait()
	events.Close()

	if err != nil {
		logger.Error(fmt.Sprintf("Error reading input: %s", err.Error()))
		return cli.Exit(cliExitStr, 1)
	}

	return nil
}

// prompter is the part of *liner.State the loop needs.
type prompter interface {
	Prompt(p string) (string, error)
	AppendHistory(item string)
}

func loop(sess *Session, orch *runbatch.Orchestrator, line prompter, w io.Writer) error {
	fmt.Fprintln(w, "m8batch shell, type 'help' for commands and 'quit' or Ctrl+D to leave.") //nolint:errcheck

	for {
		input, err := line.Prompt(prompt)

		switch {
		case err == nil:
		case errors.Is(err, liner.ErrPromptAborted):
			if orch.Snapshot().Running {
				orch.Cancel()
				continue
			}

			fmt.Fprintln(w, "Aborted") //nolint:errcheck

			return nil
		case errors.Is(err, io.EOF):
			return nil
		default:
			return err //nolint:wrapcheck
		}

		if strings.TrimSpace(input) != "" {
			line.AppendHistory(input)
		}

		quit, err := sess.Execute(input)
		if err != nil {
			fmt.Fprintln(w, color.Colorize(err.Error(), color.FgRed)) //nolint:errcheck
		}

		if quit {
			return nil
		}
	}
}

// complete completes the command word of a line.
func complete(line string) []string {
	if strings.ContainsRune(line, ' ') {
		return nil
	}

	var out []string

	for _, name := range CommandNames() {
		if strings.HasPrefix(name, strings.ToLower(line)) {
			out = append(out, name)
		}
	}

	return out
}
