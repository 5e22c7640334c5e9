// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package history contains the history command, which lists batches recorded with --history-db.
package history

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/goccy/go-yaml"
	"github.com/matt-FFFFFF/m8batch/internal/ctxlog"
	"github.com/matt-FFFFFF/m8batch/internal/history"
	"github.com/urfave/cli/v3"
)

const (
	runIDArg   = "run-id"
	dbFlag     = "db"
	limitFlag  = "limit"
	yamlFlag   = "yaml"
	timeLayout = "2006-01-02 15:04:05"
	cliExitStr = ""
)

// ErrWriteHistory is returned when the history cannot be written out.
var ErrWriteHistory = errors.New("failed to write history")

// HistoryCmd is the command that lists recorded batches.
var HistoryCmd = newHistoryCmd()

func newHistoryCmd() *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "List recorded batches, or show one batch in detail",
		Description: `List the batches recorded by 'm8batch run --history-db', newest first.
Pass a run ID to show the folders of that batch.`,
		Arguments: []cli.Argument{
			&cli.StringArg{
				Name: runIDArg,
			},
		},
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:      dbFlag,
				Usage:     "Path to the history database. Defaults to m8batch/history.db in the user config directory.",
				TakesFile: true,
				OnlyOnce:  true,
			},
			&cli.IntFlag{
				Name:    limitFlag,
				Aliases: []string{"n"},
				Usage:   "Number of batches to list",
				Value:   history.DefaultLimit,
			},
			&cli.BoolFlag{
				Name:  yamlFlag,
				Usage: "Write the history as YAML",
			},
		},
		Action: actionFunc,
	}
}

func actionFunc(ctx context.Context, cmd *cli.Command) error {
	logger := ctxlog.Logger(ctx).With("command", cmd.Name)

	path := cmd.String(dbFlag)
	if path == "" {
		p, err := history.DefaultPath()
		if err != nil {
			logger.Error(fmt.Sprintf("Cannot find the history database: %s", err.Error()))
			return cli.Exit(cliExitStr, 1)
		}

		path = p
	}

	store, err := history.Open(ctx, path)
	if err != nil {
		logger.Error(fmt.Sprintf("Cannot open the history database %s: %s", path, err.Error()))
		return cli.Exit(cliExitStr, 1)
	}

	defer store.Close() //nolint:errcheck

	w := cmd.Root().Writer

	if id := cmd.StringArg(runIDArg); id != "" {
		run, err := store.Get(ctx, id)
		if err != nil {
			logger.Error(fmt.Sprintf("Run %s not found: %s", id, err.Error()))
			return cli.Exit(cliExitStr, 1)
		}

		if cmd.Bool(yamlFlag) {
			return writeYAML(w, run)
		}

		return writeRun(w, run)
	}

	runs, err := store.Recent(ctx, cmd.Int(limitFlag))
	if err != nil {
		logger.Error(fmt.Sprintf("Cannot read the history database: %s", err.Error()))
		return cli.Exit(cliExitStr, 1)
	}

	if cmd.Bool(yamlFlag) {
		return writeYAML(w, runs)
	}

	return writeRuns(w, runs)
}

func writeYAML(w io.Writer, v any) error {
	b, err := yaml.Marshal(v)
	if err != nil {
		return errors.Join(ErrWriteHistory, err)
	}

	if _, err := w.Write(b); err != nil {
		return errors.Join(ErrWriteHistory, err)
	}

	return nil
}

// status summarises how a run ended.
func status(r history.Run) string {
	switch {
	case r.Cancelled:
		return "cancelled"
	case r.JobsCompleted < r.Jobs:
		return "failed"
	case r.FailedJobs > 0:
		return fmt.Sprintf("%d failed", r.FailedJobs)
	default:
		return "ok"
	}
}

func newTable() *table.Table {
	header := lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cell := lipgloss.NewStyle().Padding(0, 1)

	return table.New().
		Border(lipgloss.NormalBorder()).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return header
			}

			return cell
		})
}

func writeRuns(w io.Writer, runs []history.Run) error {
	if len(runs) == 0 {
		_, err := fmt.Fprintln(w, "No batches recorded.")
		return err //nolint:wrapcheck
	}

	t := newTable().Headers("Run", "Started", "Folders", "Files", "Elapsed", "Status")

	for _, r := range runs {
		t.Row(
			r.ID,
			r.StartedAt.Local().Format(timeLayout),
			fmt.Sprintf("%d/%d", r.JobsCompleted, r.Jobs),
			fmt.Sprintf("%d/%d", r.FilesProcessed, r.FilesTotal),
			r.Elapsed.Round(time.Millisecond).String(),
			status(r),
		)
	}

	_, err := fmt.Fprintln(w, t.String())

	return err //nolint:wrapcheck
}

func writeRun(w io.Writer, r *history.Run) error {
	_, err := fmt.Fprintf(w,
		"Run %s\nStarted: %s\nOutput: %s\nStatus: %s\nProcessed %d/%d files in %d/%d folder(s) in %s (%.1f files/s)\n",
		r.ID, r.StartedAt.Local().Format(timeLayout), r.OutputPath, status(*r),
		r.FilesProcessed, r.FilesTotal, r.JobsCompleted, r.Jobs,
		r.Elapsed.Round(time.Millisecond), r.AverageFilesPerSecond)
	if err != nil {
		return err //nolint:wrapcheck
	}

	if len(r.JobRecords) == 0 {
		return nil
	}

	t := newTable().Headers("#", "Folder", "Status", "Exit", "Files", "Duration", "Error")

	for _, j := range r.JobRecords {
		t.Row(
			strconv.Itoa(j.Position+1),
			j.Label,
			j.Status,
			strconv.Itoa(j.ExitCode),
			fmt.Sprintf("%d/%d", j.FilesProcessed, j.FilesTotal),
			j.Duration.Round(time.Millisecond).String(),
			j.Error,
		)
	}

	_, err = fmt.Fprintln(w, t.String())

	return err //nolint:wrapcheck
}
