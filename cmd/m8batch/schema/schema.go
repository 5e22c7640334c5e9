// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package schema provides the schema command, which documents the batch manifest format.
package schema

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/matt-FFFFFF/m8batch/internal/config"
	"github.com/matt-FFFFFF/m8batch/internal/schema"
	"github.com/urfave/cli/v3"
)

const (
	formatFlag  = "format"
	title       = "m8batch manifest"
	description = "Batch manifest for m8batch, in YAML or HCL. Flags given to 'm8batch run' override it."
)

var validFormats = []string{"yaml", "markdown", "md", "json"}

// SchemaCmd is the command that documents the manifest format.
var SchemaCmd = newSchemaCmd()

func newSchemaCmd() *cli.Command {
	return &cli.Command{
		Name:        "schema",
		Usage:       "Document the batch manifest format",
		Description: "Write an example manifest, Markdown documentation or a JSON Schema for batch manifests.",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        formatFlag,
				Aliases:     []string{"f"},
				Usage:       "Output format: yaml, markdown, or json",
				DefaultText: "yaml",
				Value:       "yaml",
			},
		},
		Action: actionFunc,
	}
}

func actionFunc(_ context.Context, cmd *cli.Command) error {
	format := strings.ToLower(cmd.String(formatFlag))
	if !slices.Contains(validFormats, format) {
		return cli.Exit(fmt.Sprintf("Invalid format: %s. Valid formats: yaml, markdown, json", format), 1)
	}

	g := schema.NewGenerator()
	w := cmd.Root().Writer

	switch format {
	case "json":
		return g.WriteJSONSchema(w, config.Manifest{}, title, description) //nolint:wrapcheck
	case "markdown", "md":
		return g.WriteMarkdownDoc(w, config.Manifest{}, title) //nolint:wrapcheck
	default:
		return g.WriteYAMLExample(w, config.Example()) //nolint:wrapcheck
	}
}
