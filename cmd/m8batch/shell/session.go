// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package shell

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"

	"github.com/matt-FFFFFF/m8batch/internal/runbatch"
	"github.com/matt-FFFFFF/m8batch/internal/sources"
	"github.com/matt-FFFFFF/m8batch/internal/tui"
)

var (
	// ErrUnknownCommand is returned for input that is not a shell command.
	ErrUnknownCommand = errors.New("unknown command, type 'help' for a list")
	// ErrUsage is returned when a command has the wrong arguments.
	ErrUsage = errors.New("usage")
	// ErrNoSuchFolder is returned by remove when the folder is not in the list.
	ErrNoSuchFolder = errors.New("folder not in the list")
	// ErrNotStarted is returned when a batch cannot be started.
	ErrNotStarted = errors.New("cannot start")
)

type command struct {
	usage string
	help  string
	run   func(s *Session, args []string) (bool, error)
}

var commands map[string]command

func init() {
	commands = map[string]command{
		"add":      {"add <folder|glob>...", "Add folders to the list", (*Session).add},
		"scan":     {"scan <folder> [depth]", "Add the sub-folders of a folder", (*Session).scan},
		"remove":   {"remove <folder|#>", "Remove a folder by path or list number", (*Session).remove},
		"clear":    {"clear", "Empty the list", (*Session).clear},
		"list":     {"list", "Show the list", (*Session).list},
		"output":   {"output [folder]", "Show or set the output folder", (*Session).output},
		"bitdepth": {"bitdepth on|off", "Convert to 16 bit or keep the original bit depth", (*Session).bitDepth},
		"flatten":  {"flatten on|off", "Write every file directly into the output folder", (*Session).flatten},
		"start":    {"start", "Start processing the list in the background", (*Session).start},
		"cancel":   {"cancel", "Cancel the running batch", (*Session).cancel},
		"reset":    {"reset", "Cancel and clear the progress of the last batch", (*Session).reset},
		"status":   {"status", "Show the progress of the current batch", (*Session).status},
		"wait":     {"wait", "Wait for the running batch and show its results", (*Session).wait},
		"results":  {"results", "Show the results of the last batch", (*Session).results},
		"help":     {"help", "Show this help", (*Session).help},
		"quit":     {"quit", "Cancel any running batch and leave", (*Session).quit},
		"exit":     {"exit", "Same as quit", (*Session).quit},
	}
}

// CommandNames returns every shell command, sorted.
func CommandNames() []string {
	names := make([]string, 0, len(commands))
	for k := range commands {
		names = append(names, k)
	}

	slices.Sort(names)

	return names
}

// Session executes shell commands against one orchestrator.
type Session struct {
	ctx  context.Context
	orch *runbatch.Orchestrator
	out  io.Writer
}

// NewSession creates a session. Batches started from it run under ctx.
func NewSession(ctx context.Context, orch *runbatch.Orchestrator, out io.Writer) *Session {
	return &Session{ctx: ctx, orch: orch, out: out}
}

// Execute runs one line of input. It returns true when the shell should exit.
func (s *Session) Execute(line string) (bool, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false, nil
	}

	c, ok := commands[strings.ToLower(fields[0])]
	if !ok {
		return false, fmt.Errorf("%w: %s", ErrUnknownCommand, fields[0])
	}

	return c.run(s, fields[1:])
}

func (s *Session) printf(format string, a ...any) {
	fmt.Fprintf(s.out, format, a...) //nolint:errcheck
}

func usage(name string) error {
	return fmt.Errorf("%w: %s", ErrUsage, commands[name].usage)
}

func (s *Session) add(args []string) (bool, error) {
	if len(args) == 0 {
		return false, usage("add")
	}

	var paths []string

	for _, a := range args {
		p, err := sources.Expand(a)
		if err != nil {
			return false, err //nolint:wrapcheck
		}

		paths = append(paths, p...)
	}

	s.printf("Added %d folder(s)\n", s.orch.AddJobs(paths...))

	return false, nil
}

func (s *Session) scan(args []string) (bool, error) {
	if len(args) == 0 || len(args) > 2 {
		return false, usage("scan")
	}

	depth := 1

	if len(args) == 2 {
		d, err := strconv.Atoi(args[1])
		if err != nil || d < 0 {
			return false, usage("scan")
		}

		depth = d
	}

	dirs, err := sources.ListSubdirectories(s.ctx, args[0], depth, sources.HiddenExclude)
	if err != nil {
		return false, err //nolint:wrapcheck
	}

	s.printf("Added %d folder(s)\n", s.orch.AddJobs(dirs...))

	return false, nil
}

func (s *Session) remove(args []string) (bool, error) {
	if len(args) != 1 {
		return false, usage("remove")
	}

	var removed bool

	if n, err := strconv.Atoi(args[0]); err == nil {
		removed = s.orch.RemoveJobAt(n - 1)
	} else {
		removed = s.orch.RemoveJob(args[0])
	}

	if !removed {
		return false, fmt.Errorf("%w: %s", ErrNoSuchFolder, args[0])
	}

	s.printf("Removed %s\n", args[0])

	return false, nil
}

func (s *Session) clear(_ []string) (bool, error) {
	s.orch.ClearJobs()
	s.printf("List cleared\n")

	return false, nil
}

func (s *Session) list(_ []string) (bool, error) {
	jobs := s.orch.Jobs()
	if len(jobs) == 0 {
		s.printf("No folders in the list\n")
		return false, nil
	}

	for i, j := range jobs {
		s.printf("%3d. %s (%s)\n", i+1, j.DisplayName, j.SourcePath)
	}

	return false, nil
}

func (s *Session) output(args []string) (bool, error) {
	switch len(args) {
	case 0:
		out := s.orch.Options().OutputPath
		if out == "" {
			out = "(not set)"
		}

		s.printf("Output folder: %s\n", out)
	case 1:
		s.orch.SetOutputPath(args[0])
		s.printf("Output folder set to %s\n", args[0])
	default:
		return false, usage("output")
	}

	return false, nil
}

func onOff(args []string) (bool, bool) {
	if len(args) != 1 {
		return false, false
	}

	switch strings.ToLower(args[0]) {
	case "on", "true", "yes":
		return true, true
	case "off", "false", "no":
		return false, true
	default:
		return false, false
	}
}

func (s *Session) bitDepth(args []string) (bool, error) {
	v, ok := onOff(args)
	if !ok {
		return false, usage("bitdepth")
	}

	s.orch.SetConvertBitDepth(v)
	s.printf("Bit depth conversion %s\n", args[0])

	return false, nil
}

func (s *Session) flatten(args []string) (bool, error) {
	v, ok := onOff(args)
	if !ok {
		return false, usage("flatten")
	}

	s.orch.SetFlattenFolders(v)
	s.printf("Flatten folders %s\n", args[0])

	return false, nil
}

func (s *Session) start(_ []string) (bool, error) {
	st := s.orch.Snapshot()

	switch {
	case st.Running:
		return false, fmt.Errorf("%w: a batch is already running", ErrNotStarted)
	case len(st.Jobs) == 0:
		return false, fmt.Errorf("%w: no folders to process", ErrNotStarted)
	case st.Options.OutputPath == "":
		return false, fmt.Errorf("%w: no output folder set", ErrNotStarted)
	}

	if !s.orch.Start(s.ctx) {
		return false, ErrNotStarted
	}

	return false, nil
}

func (s *Session) cancel(_ []string) (bool, error) {
	if !s.orch.Snapshot().Running {
		s.printf("No batch is running\n")
		return false, nil
	}

	s.orch.Cancel()

	return false, nil
}

func (s *Session) reset(_ []string) (bool, error) {
	s.orch.Reset()

	return false, nil
}

func (s *Session) status(_ []string) (bool, error) {
	st := s.orch.Snapshot()

	switch {
	case st.Running:
		s.printf("Folder %d of %d: %s\n", st.CurrentJobNumber(), st.JobsTotal, st.CurrentJobName)
		s.printf("%.1f%% (%d/%d files), %d failed\n", st.Percent(), st.FilesProcessed, st.FilesTotal, st.FailedJobs)
	case st.Cancelled:
		s.printf("Cancelled after %d of %d folder(s)\n", st.JobsCompleted, st.JobsTotal)
	case st.Completed:
		s.printf("%s\n", tui.Summary(st.Stats))
	case st.LastError != "":
		s.printf("Processing failed: %s\n", st.LastError)
	default:
		s.printf("Idle, %d folder(s) in the list\n", len(st.Jobs))
	}

	return false, nil
}

func (s *Session) wait(_ []string) (bool, error) {
	s.orch.Wait()

	return s.results(nil)
}

func (s *Session) results(_ []string) (bool, error) {
	res := s.orch.Results()
	if len(res) == 0 {
		s.printf("No results\n")
		return false, nil
	}

	return false, res.WriteText(s.out, runbatch.DefaultOutputOptions()) //nolint:wrapcheck
}

func (s *Session) help(_ []string) (bool, error) {
	for _, name := range CommandNames() {
		c := commands[name]
		s.printf("  %-24s %s\n", c.usage, c.help)
	}

	return false, nil
}

func (s *Session) quit(_ []string) (bool, error) {
	s.orch.Cancel()
	s.orch.Wait()

	return true, nil
}
