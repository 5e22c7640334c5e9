// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package protocol

import (
	"math"
	"strconv"
	"strings"
)

const (
	progressToken   = "Progress:"
	filesFoundToken = "files found"
	finalStatsToken = "FINAL_STATS:"
	filesCloseField = "files)"
)

// Progress is a progress update for the job that is currently running.
type Progress struct {
	Fraction       float64 // in [0,1]
	FilesProcessed int
	FilesTotal     int
}

// Result is the outcome a worker reports on its final statistics line.
// The zero value is used when the worker exits cleanly without one.
type Result struct {
	FilesProcessed        int
	FilesTotal            int
	ErrorFiles            int
	AverageFilesPerSecond float64
}

// Kind identifies which shape a line matched.
type Kind int

const (
	// KindNone means the line is not part of the grammar.
	KindNone Kind = iota
	// KindProgress is a "Progress:" or "files found" line.
	KindProgress
	// KindFinalStats is a "FINAL_STATS:" line.
	KindFinalStats
)

// String returns the string representation of the Kind.
func (k Kind) String() string {
	switch k {
	case KindProgress:
		return "progress"
	case KindFinalStats:
		return "final_stats"
	default:
		return "none"
	}
}

// Line is the parsed form of one worker output line.
type Line struct {
	Kind     Kind
	Progress Progress
	Result   Result
}

// ParseLine classifies a line and extracts its record.
// A final statistics line is never reported as progress.
func ParseLine(line string) Line {
	if r, ok := ParseFinalStats(line); ok {
		return Line{Kind: KindFinalStats, Result: r}
	}

	if p, ok := ParseProgress(line); ok {
		return Line{Kind: KindProgress, Progress: p}
	}

	if p, ok := ParseFilesFound(line); ok {
		return Line{Kind: KindProgress, Progress: p}
	}

	return Line{}
}

// ParseProgress parses "Progress: 37% (120/320 files)".
// The percentage is the first field after the token and is clamped to [0,100].
func ParseProgress(line string) (Progress, bool) {
	_, rest, found := strings.Cut(line, progressToken)
	if !found {
		return Progress{}, false
	}

	fields := strings.Fields(rest)
	if len(fields) < 3 { //nolint:mnd
		return Progress{}, false
	}

	pct, ok := parsePercent(fields[0])
	if !ok {
		return Progress{}, false
	}

	for i := 1; i < len(fields); i++ {
		if fields[i] != filesCloseField {
			continue
		}

		processed, total, ok := parseRatio(fields[i-1])
		if !ok {
			return Progress{}, false
		}

		return Progress{
			Fraction:       pct / 100, //nolint:mnd
			FilesProcessed: processed,
			FilesTotal:     total,
		}, true
	}

	return Progress{}, false
}

// ParseFilesFound parses a file count announcement such as "Scan complete: 320 files found".
// The first field consisting only of digits is the job's total; progress is zero.
func ParseFilesFound(line string) (Progress, bool) {
	if !strings.Contains(line, filesFoundToken) {
		return Progress{}, false
	}

	for _, f := range strings.Fields(line) {
		if !isDigits(f) {
			continue
		}

		n, err := strconv.Atoi(f)
		if err != nil {
			return Progress{}, false
		}

		return Progress{FilesTotal: n}, true
	}

	return Progress{}, false
}

// ParseFinalStats parses "FINAL_STATS: total processed errors seconds".
func ParseFinalStats(line string) (Result, bool) {
	_, rest, found := strings.Cut(line, finalStatsToken)
	if !found {
		return Result{}, false
	}

	fields := strings.Fields(rest)
	if len(fields) < 4 { //nolint:mnd
		return Result{}, false
	}

	total, err1 := strconv.Atoi(fields[0])
	processed, err2 := strconv.Atoi(fields[1])
	errorFiles, err3 := strconv.Atoi(fields[2])
	seconds, err4 := strconv.ParseFloat(fields[3], 64)

	if err1 != nil || err2 != nil || err3 != nil || err4 != nil {
		return Result{}, false
	}

	if total < 0 || processed < 0 || errorFiles < 0 {
		return Result{}, false
	}

	r := Result{
		FilesProcessed: processed,
		FilesTotal:     total,
		ErrorFiles:     errorFiles,
	}

	if seconds > 0 {
		r.AverageFilesPerSecond = float64(processed) / seconds
	}

	return r, true
}

func parsePercent(s string) (float64, bool) {
	num, found := strings.CutSuffix(s, "%")
	if !found {
		return 0, false
	}

	v, err := strconv.ParseFloat(num, 64)
	if err != nil || math.IsNaN(v) {
		return 0, false
	}

	return min(max(v, 0), 100), true //nolint:mnd
}

func parseRatio(s string) (int, int, bool) {
	s, found := strings.CutPrefix(s, "(")
	if !found {
		return 0, 0, false
	}

	a, b, found := strings.Cut(s, "/")
	if !found {
		return 0, 0, false
	}

	processed, err := strconv.Atoi(a)
	if err != nil || processed < 0 {
		return 0, 0, false
	}

	total, err := strconv.Atoi(b)
	if err != nil || total < 0 {
		return 0, 0, false
	}

	return processed, total, true
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}

	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}

	return true
}
