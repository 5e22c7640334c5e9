// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package config loads batch manifests.
// A manifest names the folders to process and the options passed to the worker.
// It can be written in YAML or HCL and fetched from anywhere go-getter understands.
package config

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-yaml"
	"github.com/hashicorp/go-multierror"
	"github.com/matt-FFFFFF/m8batch/internal/sources"
	"github.com/matt-FFFFFF/m8batch/internal/worker"
	"github.com/spf13/afero"
)

const (
	// DefaultScanDepth is used when a manifest lists scan folders without a depth.
	DefaultScanDepth = 1
)

var (
	// ErrInvalidYaml is returned when a YAML manifest cannot be decoded.
	ErrInvalidYaml = errors.New("invalid YAML")
	// ErrInvalidHcl is returned when an HCL manifest cannot be decoded.
	ErrInvalidHcl = errors.New("invalid HCL")
	// ErrUnknownFormat is returned when the manifest extension is not recognised.
	ErrUnknownFormat = errors.New("unknown manifest format, expected .yaml, .yml or .hcl")
	// ErrInvalidManifest is returned when a decoded manifest fails validation.
	ErrInvalidManifest = errors.New("invalid manifest")
	// ErrNoSources is returned when a manifest has neither sources nor scan folders.
	ErrNoSources = errors.New("manifest must list at least one source or scan folder")
	// ErrReadManifest is returned when the manifest file cannot be read.
	ErrReadManifest = errors.New("failed to read manifest")
)

// FsFactory is a function that returns an afero filesystem.
var FsFactory = func() afero.Fs {
	return afero.NewOsFs()
}

// Manifest describes one batch.
type Manifest struct {
	Output          string   `yaml:"output" hcl:"output,optional" docdesc:"Folder the converted samples are written to"`
	ConvertBitDepth *bool    `yaml:"convert_bit_depth" hcl:"convert_bit_depth,optional" docdesc:"Convert samples to 16 bit, defaults to true"`
	FlattenFolders  bool     `yaml:"flatten_folders" hcl:"flatten_folders,optional" docdesc:"Write every file directly into the output folder"`
	WorkerPath      string   `yaml:"worker_path" hcl:"worker_path,optional" docdesc:"Path to the M8SampleFormatter executable, searched for when empty"`
	JobTimeout      string   `yaml:"job_timeout" hcl:"job_timeout,optional" validate:"omitempty,duration" docdesc:"Kill a folder's worker after this long, e.g. 10m"`
	Sources         []string `yaml:"sources" hcl:"sources,optional" validate:"dive,required" docdesc:"Folders or glob patterns, each matching folder is one job"`
	Scan            []string `yaml:"scan" hcl:"scan,optional" validate:"dive,required" docdesc:"Folders whose sub-folders each become one job"`
	ScanDepth       int      `yaml:"scan_depth" hcl:"scan_depth,optional" validate:"gte=0,lte=8" docdesc:"How many levels below each scan folder to add, 0 means 1"`
	IncludeHidden   bool     `yaml:"include_hidden" hcl:"include_hidden,optional" docdesc:"Include hidden folders when scanning"`
	HistoryDB       string   `yaml:"history_db" hcl:"history_db,optional" docdesc:"Record the run in this SQLite database"`
}

// Example returns a manifest that sets every option, for documentation.
func Example() *Manifest {
	convert := true

	return &Manifest{
		Output:          "./m8-samples",
		ConvertBitDepth: &convert,
		WorkerPath:      "/usr/local/bin/M8SampleFormatter",
		JobTimeout:      "10m",
		Sources:         []string{"./samples/drums", "./samples/synths/*"},
		Scan:            []string{"./packs"},
		ScanDepth:       DefaultScanDepth,
		HistoryDB:       "./history.db",
	}
}

// Options returns the worker options described by the manifest.
func (m *Manifest) Options() worker.Options {
	opts := worker.DefaultOptions()
	opts.OutputPath = m.Output
	opts.FlattenFolders = m.FlattenFolders

	if m.ConvertBitDepth != nil {
		opts.ConvertBitDepth = *m.ConvertBitDepth
	}

	return opts
}

// Timeout returns the per-job timeout, zero when unset.
func (m *Manifest) Timeout() time.Duration {
	if m.JobTimeout == "" {
		return 0
	}

	d, err := time.ParseDuration(m.JobTimeout)
	if err != nil {
		return 0
	}

	return d
}

// Validate checks the manifest and returns every problem found.
func (m *Manifest) Validate() error {
	var result error

	if len(m.Sources) == 0 && len(m.Scan) == 0 {
		result = multierror.Append(result, ErrNoSources)
	}

	if err := m.validateFields(); err != nil {
		result = multierror.Append(result, err)
	}

	if result != nil {
		return errors.Join(ErrInvalidManifest, result)
	}

	return nil
}

// validateFields checks the field values only. A manifest on disk may leave the
// folders to the command line.
func (m *Manifest) validateFields() error {
	v, err := manifestValidator()
	if err != nil {
		return err
	}

	err = v.Struct(m)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err //nolint:wrapcheck
	}

	var result error
	for _, fe := range verrs {
		result = multierror.Append(result, fmt.Errorf("%s: failed %q check", fe.Namespace(), fe.Tag()))
	}

	return result
}

// Resolve makes every relative path in the manifest relative to base.
func (m *Manifest) Resolve(base string) {
	abs := func(p string) string {
		if p == "" || filepath.IsAbs(p) {
			return p
		}

		return filepath.Join(base, p)
	}

	m.Output = abs(m.Output)
	m.WorkerPath = abs(m.WorkerPath)
	m.HistoryDB = abs(m.HistoryDB)

	for i := range m.Sources {
		m.Sources[i] = abs(m.Sources[i])
	}

	for i := range m.Scan {
		m.Scan[i] = abs(m.Scan[i])
	}
}

// Jobs expands sources and scan folders into the list of job folders, in manifest order.
// Problems with individual entries are aggregated.
func (m *Manifest) Jobs(ctx context.Context) ([]string, error) {
	var (
		jobs   []string
		result error
	)

	for _, src := range m.Sources {
		dirs, err := sources.Expand(src)
		if err != nil {
			result = multierror.Append(result, err)
			continue
		}

		jobs = append(jobs, dirs...)
	}

	depth := m.ScanDepth
	if depth == 0 {
		depth = DefaultScanDepth
	}

	for _, parent := range m.Scan {
		dirs, err := sources.ListSubdirectories(ctx, parent, depth, sources.IncludeHidden(m.IncludeHidden))
		if err != nil {
			result = multierror.Append(result, err)
			continue
		}

		jobs = append(jobs, dirs...)
	}

	return jobs, result
}

// Parse decodes a manifest. The format is chosen from the file name extension.
// Defaults are applied and the result is validated, relative paths are left untouched.
func Parse(filename string, content []byte) (*Manifest, error) {
	m := new(Manifest)

	switch strings.ToLower(filepath.Ext(filename)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(content, m); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidYaml, err)
		}
	case ".hcl":
		if err := decodeHCL(filename, content, m); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownFormat, filename)
	}

	if m.ConvertBitDepth == nil {
		v := true
		m.ConvertBitDepth = &v
	}

	if err := m.validateFields(); err != nil {
		return nil, errors.Join(ErrInvalidManifest, err)
	}

	return m, nil
}

// LoadFile reads and parses a local manifest.
// Relative paths are resolved against the manifest's directory.
func LoadFile(path string) (*Manifest, error) {
	content, err := afero.ReadFile(FsFactory(), path)
	if err != nil {
		return nil, errors.Join(ErrReadManifest, err)
	}

	m, err := Parse(path, content)
	if err != nil {
		return nil, err
	}

	abs, err := filepath.Abs(filepath.Dir(path))
	if err != nil {
		abs = filepath.Dir(path)
	}

	m.Resolve(abs)

	return m, nil
}

// Load reads a manifest from a local path or any go-getter URL.
// Relative paths in remote manifests are resolved against the working directory.
func Load(ctx context.Context, src string) (*Manifest, error) {
	if src == "" {
		return nil, ErrReadManifest
	}

	if _, err := FsFactory().Stat(src); err == nil {
		return LoadFile(src)
	}

	content, name, err := fetch(ctx, src)
	if err != nil {
		return nil, err
	}

	m, err := Parse(name, content)
	if err != nil {
		return nil, err
	}

	if wd, err := filepath.Abs("."); err == nil {
		m.Resolve(wd)
	}

	return m, nil
}

// manifestValidator is built once, on first use.
var manifestValidator = sync.OnceValues(newValidator)

func newValidator() (*validator.Validate, error) {
	v := validator.New()

	err := v.RegisterValidation("duration", func(fl validator.FieldLevel) bool {
		d, err := time.ParseDuration(fl.Field().String())
		return err == nil && d >= 0
	})
	if err != nil {
		return nil, fmt.Errorf("registering duration validation: %w", err)
	}

	return v, nil
}
