// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package history keeps a record of finished batches in a SQLite database.
package history

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/matt-FFFFFF/m8batch/internal/ctxlog"
	"github.com/matt-FFFFFF/m8batch/internal/runbatch"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// DefaultLimit is the number of runs returned by Recent when n <= 0.
const DefaultLimit = 20

var (
	// ErrOpen is returned when the database cannot be opened or migrated.
	ErrOpen = errors.New("failed to open history database")
	// ErrRecord is returned when a run cannot be stored.
	ErrRecord = errors.New("failed to record run")
	// ErrQuery is returned when runs cannot be read back.
	ErrQuery = errors.New("failed to query history")
)

// Run is one finished batch.
type Run struct {
	ID                    string        `gorm:"type:text;primaryKey" yaml:"id"`
	StartedAt             time.Time     `gorm:"index" yaml:"started_at"`
	Elapsed               time.Duration `yaml:"elapsed"`
	Jobs                  int           `yaml:"job_count"`
	JobsCompleted         int           `yaml:"jobs_completed"`
	FailedJobs            int           `yaml:"failed_jobs"`
	FilesProcessed        int           `yaml:"files_processed"`
	FilesTotal            int           `yaml:"files_total"`
	AverageFilesPerSecond float64       `yaml:"average_files_per_second"`
	Cancelled             bool          `yaml:"cancelled"`
	LastError             string        `yaml:"last_error"`
	OutputPath            string        `yaml:"output_path"`
	JobRecords            []JobRecord   `gorm:"foreignKey:RunID;constraint:OnDelete:CASCADE" yaml:"jobs"`
	CreatedAt             time.Time     `yaml:"created_at"`
}

// TableName returns the database table name for Run.
func (Run) TableName() string {
	return "runs"
}

// JobRecord is the outcome of one job of a run.
type JobRecord struct {
	ID             uint          `gorm:"primaryKey" yaml:"-"`
	RunID          string        `gorm:"type:text;not null;index" yaml:"-"`
	Position       int           `yaml:"position"`
	Label          string        `yaml:"label"`
	SourcePath     string        `yaml:"source_path"`
	Status         string        `yaml:"status"`
	ExitCode       int           `yaml:"exit_code"`
	Error          string        `yaml:"error"`
	FilesProcessed int           `yaml:"files_processed"`
	FilesTotal     int           `yaml:"files_total"`
	Duration       time.Duration `yaml:"duration"`
}

// TableName returns the database table name for JobRecord.
func (JobRecord) TableName() string {
	return "run_jobs"
}

// DefaultPath returns the history database location under the user's config directory.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", errors.Join(ErrOpen, err)
	}

	return filepath.Join(dir, "m8batch", "history.db"), nil
}

// Store persists runs.
type Store struct {
	db *gorm.DB
}

// Open opens (creating if needed) the database at path and migrates the schema.
func Open(ctx context.Context, path string) (*Store, error) {
	if path != "" && path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil { //nolint:mnd
			return nil, errors.Join(ErrOpen, err)
		}
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, errors.Join(ErrOpen, err)
	}

	store := &Store{db: db}

	if err := store.setup(ctx); err != nil {
		_ = store.Close()

		return nil, errors.Join(ErrOpen, err)
	}

	ctxlog.Debug(ctx, "history database ready", "path", path)

	return store, nil
}

// setup pins the pool to one connection, so the foreign key pragma holds for every
// statement, then migrates the schema.
func (s *Store) setup(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err //nolint:wrapcheck
	}

	sqlDB.SetMaxOpenConns(1)

	if err := s.db.WithContext(ctx).Exec("PRAGMA foreign_keys = ON").Error; err != nil {
		return fmt.Errorf("enabling foreign keys: %w", err)
	}

	return s.db.WithContext(ctx).AutoMigrate(&Run{}, &JobRecord{}) //nolint:wrapcheck
}

// Record stores a finished batch and its per-job results.
// A state without a run ID gets a fresh one.
func (s *Store) Record(ctx context.Context, state runbatch.State, results runbatch.Results) (*Run, error) {
	id := state.RunID
	if id == "" {
		id = uuid.NewString()
	}

	run := &Run{
		ID:                    id,
		StartedAt:             state.StartedAt,
		Elapsed:               state.Elapsed,
		Jobs:                  state.JobsTotal,
		JobsCompleted:         state.JobsCompleted,
		FailedJobs:            state.FailedJobs,
		FilesProcessed:        state.FilesProcessed,
		FilesTotal:            state.FilesTotal,
		AverageFilesPerSecond: state.AverageFilesPerSecond,
		Cancelled:             state.Cancelled,
		LastError:             state.LastError,
		OutputPath:            state.Options.OutputPath,
	}

	for i, r := range results {
		if r == nil {
			continue
		}

		rec := JobRecord{
			Position:       i,
			Label:          r.Label,
			SourcePath:     r.SourcePath,
			Status:         r.Status.String(),
			ExitCode:       r.ExitCode,
			FilesProcessed: r.FilesProcessed,
			FilesTotal:     r.FilesTotal,
			Duration:       r.Duration,
		}

		if r.Error != nil {
			rec.Error = r.Error.Error()
		}

		run.JobRecords = append(run.JobRecords, rec)
	}

	if err := s.db.WithContext(ctx).Create(run).Error; err != nil {
		return nil, fmt.Errorf("%w %s: %w", ErrRecord, id, err)
	}

	return run, nil
}

// Recent returns the newest n runs, newest first, without their job records.
func (s *Store) Recent(ctx context.Context, n int) ([]Run, error) {
	if n <= 0 {
		n = DefaultLimit
	}

	var runs []Run
	if err := s.db.WithContext(ctx).Order("started_at DESC").Limit(n).Find(&runs).Error; err != nil {
		return nil, errors.Join(ErrQuery, err)
	}

	return runs, nil
}

// Get returns one run with its job records in list order.
func (s *Store) Get(ctx context.Context, id string) (*Run, error) {
	var run Run

	err := s.db.WithContext(ctx).
		Preload("JobRecords", func(db *gorm.DB) *gorm.DB { return db.Order("position") }).
		First(&run, "id = ?", id).Error
	if err != nil {
		return nil, errors.Join(ErrQuery, err)
	}

	return &run, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err //nolint:wrapcheck
	}

	return sqlDB.Close() //nolint:wrapcheck
}
