// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package config

import (
	"errors"
	"os"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/zclconf/go-cty/cty"
)

// environFunc is stubbed in tests.
var environFunc = os.Environ

// decodeHCL decodes an HCL manifest body into m.
// Expressions can reference environment variables as env.NAME.
func decodeHCL(filename string, content []byte, m *Manifest) error {
	file, diags := hclsyntax.ParseConfig(content, filename, hcl.InitialPos)
	if diags.HasErrors() {
		return errors.Join(ErrInvalidHcl, diagErrors(diags))
	}

	if diags := gohcl.DecodeBody(file.Body, evalContext(), m); diags.HasErrors() {
		return errors.Join(ErrInvalidHcl, diagErrors(diags))
	}

	return nil
}

func evalContext() *hcl.EvalContext {
	vars := make(map[string]cty.Value)

	for _, kv := range environFunc() {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || k == "" || !hclsyntax.ValidIdentifier(k) {
			continue
		}

		vars[k] = cty.StringVal(v)
	}

	env := cty.EmptyObjectVal
	if len(vars) > 0 {
		env = cty.ObjectVal(vars)
	}

	return &hcl.EvalContext{
		Variables: map[string]cty.Value{
			"env": env,
		},
	}
}

func diagErrors(diags hcl.Diagnostics) error {
	var err error

	for _, e := range diags.Errs() {
		err = multierror.Append(err, e)
	}

	return err
}
