// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package schema documents struct based configuration files.
// Fields are read from the yaml, docdesc and validate struct tags and written out
// as JSON Schema, a commented YAML example or a Markdown table.
package schema

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"reflect"
	"strconv"
	"strings"

	"github.com/goccy/go-yaml"
)

const jsonSchemaDraft = "https://json-schema.org/draft/2020-12/schema"

// ErrNotStruct is returned when the definition is not a struct or a pointer to one.
var ErrNotStruct = errors.New("expected struct type")

// Field represents a field in a JSON schema.
type Field struct {
	Name        string
	Type        string
	Items       string // element type of array fields
	Description string
	Format      string
	Minimum     *int
	Maximum     *int

	index []int
}

// Generator provides methods to generate schemas from struct definitions.
type Generator struct{}

// NewGenerator creates a new Generator.
func NewGenerator() *Generator {
	return &Generator{}
}

// Fields returns the documented fields of def in declaration order.
func (g *Generator) Fields(def any) ([]Field, error) {
	return g.extractFields(reflect.TypeOf(def), nil)
}

// extractFields extracts schema fields from a struct type using reflection.
func (g *Generator) extractFields(t reflect.Type, index []int) ([]Field, error) {
	if t != nil && t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	if t == nil || t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("%w, got %v", ErrNotStruct, t)
	}

	var fields []Field

	for i := range t.NumField() {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}

		idx := append(append([]int{}, index...), i)

		if field.Anonymous {
			embedded, err := g.extractFields(field.Type, idx)
			if err != nil {
				return nil, err
			}

			fields = append(fields, embedded...)

			continue
		}

		if f := g.fieldToSchemaField(field, idx); f != nil {
			fields = append(fields, *f)
		}
	}

	return fields, nil
}

// fieldToSchemaField converts a reflect.StructField to a Field, or nil if it is not serialised.
func (g *Generator) fieldToSchemaField(field reflect.StructField, index []int) *Field {
	yamlTag := field.Tag.Get("yaml")
	if yamlTag == "-" {
		return nil
	}

	name, _, _ := strings.Cut(yamlTag, ",")
	if name == "" {
		name = strings.ToLower(field.Name)
	}

	f := &Field{
		Name:        name,
		Type:        g.getSchemaType(field.Type),
		Description: field.Tag.Get("docdesc"),
		index:       index,
	}

	if f.Type == "array" {
		f.Items = g.getSchemaType(field.Type.Elem())
	}

	for rule := range strings.SplitSeq(field.Tag.Get("validate"), ",") {
		key, val, _ := strings.Cut(rule, "=")

		switch key {
		case "gte":
			if n, err := strconv.Atoi(val); err == nil {
				f.Minimum = &n
			}
		case "lte":
			if n, err := strconv.Atoi(val); err == nil {
				f.Maximum = &n
			}
		case "duration":
			f.Format = "duration"
		}
	}

	return f
}

// getSchemaType converts a Go type to a JSON schema type.
func (g *Generator) getSchemaType(t reflect.Type) string {
	switch t.Kind() {
	case reflect.String:
		return "string"
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return "integer"
	case reflect.Float32, reflect.Float64:
		return "number"
	case reflect.Bool:
		return "boolean"
	case reflect.Slice, reflect.Array:
		return "array"
	case reflect.Map, reflect.Struct:
		return "object"
	case reflect.Ptr:
		return g.getSchemaType(t.Elem())
	default:
		return "string"
	}
}

// schemaFieldToProperty converts a Field to a JSON schema property.
func (g *Generator) schemaFieldToProperty(field Field) map[string]any {
	prop := map[string]any{
		"type": field.Type,
	}

	if field.Description != "" {
		prop["description"] = field.Description
	}

	if field.Items != "" {
		prop["items"] = map[string]any{"type": field.Items}
	}

	if field.Minimum != nil {
		prop["minimum"] = *field.Minimum
	}

	if field.Maximum != nil {
		prop["maximum"] = *field.Maximum
	}

	if field.Format != "" {
		prop["format"] = field.Format
	}

	return prop
}

// WriteJSONSchema writes a JSON schema for def. Every field is optional.
func (g *Generator) WriteJSONSchema(w io.Writer, def any, title, description string) error {
	fields, err := g.Fields(def)
	if err != nil {
		return err
	}

	properties := make(map[string]any, len(fields))
	for _, f := range fields {
		properties[f.Name] = g.schemaFieldToProperty(f)
	}

	root := map[string]any{
		"$schema":              jsonSchemaDraft,
		"title":                title,
		"description":          description,
		"type":                 "object",
		"properties":           properties,
		"additionalProperties": false,
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	return enc.Encode(root) //nolint:wrapcheck
}

// WriteYAMLExample writes example as YAML, each key preceded by its description.
func (g *Generator) WriteYAMLExample(w io.Writer, example any) error {
	fields, err := g.Fields(example)
	if err != nil {
		return err
	}

	v := reflect.Indirect(reflect.ValueOf(example))
	sb := strings.Builder{}

	for i, f := range fields {
		if i > 0 {
			sb.WriteString("\n")
		}

		if f.Description != "" {
			fmt.Fprintf(&sb, "# %s\n", f.Description)
		}

		b, err := yaml.Marshal(map[string]any{f.Name: v.FieldByIndex(f.index).Interface()})
		if err != nil {
			return err //nolint:wrapcheck
		}

		sb.Write(b)
	}

	_, err = io.WriteString(w, sb.String())

	return err //nolint:wrapcheck
}

// WriteMarkdownDoc writes a Markdown table describing the fields of def.
func (g *Generator) WriteMarkdownDoc(w io.Writer, def any, title string) error {
	fields, err := g.Fields(def)
	if err != nil {
		return err
	}

	sb := strings.Builder{}
	fmt.Fprintf(&sb, "# %s\n\n", title)
	sb.WriteString("| Key | Type | Description |\n")
	sb.WriteString("|-----|------|-------------|\n")

	for _, f := range fields {
		typ := f.Type
		if f.Items != "" {
			typ = fmt.Sprintf("array of %s", f.Items)
		}

		desc := f.Description

		switch {
		case f.Minimum != nil && f.Maximum != nil:
			desc += fmt.Sprintf(" (%d to %d)", *f.Minimum, *f.Maximum)
		case f.Format != "":
			desc += fmt.Sprintf(" (%s)", f.Format)
		}

		fmt.Fprintf(&sb, "| `%s` | %s | %s |\n", f.Name, typ, strings.TrimSpace(desc))
	}

	_, err = io.WriteString(w, sb.String())

	return err //nolint:wrapcheck
}
