// Copyright 2024 The Carvel Authors.
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"carvel.dev/as3ninja/pkg/version"
	"github.com/cppforlife/cobrautil"
	"github.com/spf13/cobra"
)

type NinjaOptions struct{}

func NewDefaultNinjaOptions() *NinjaOptions {
	return &NinjaOptions{}
}

func NewDefaultNinjaCmd() *cobra.Command {
	return NewNinjaCmd(NewDefaultNinjaOptions())
}

func NewNinjaCmd(o *NinjaOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "as3ninja",
		Version: version.Version,
		Short:   "as3ninja renders AS3 declarations from templates and configuration",
		Long: `as3ninja renders AS3 declarations from declaration templates and
layered template configurations, and validates them against the AS3 JSON Schema.

Settings are read from as3ninja.settings.json in the working directory or
~/.as3ninja and may be overridden with AS3N_ prefixed environment variables.`,
	}

	// Affects children as well
	cmd.SilenceErrors = true
	cmd.SilenceUsage = true

	// Disable docs header
	cmd.DisableAutoGenTag = true

	cmd.AddCommand(NewVersionCmd(NewVersionOptions()))
	cmd.AddCommand(NewTransformCmd(NewTransformOptions()))
	cmd.AddCommand(NewGitTransformCmd(NewGitTransformOptions()))
	cmd.AddCommand(NewValidateCmd(NewValidateOptions()))
	cmd.AddCommand(NewSchemaCmd())
	cmd.AddCommand(NewServeCmd(NewServeOptions()))

	// Reconfigure Commands
	cobrautil.VisitCommands(cmd, cobrautil.ReconfigureCmdWithSubcmd,
		cobrautil.DisallowExtraArgs, cobrautil.WrapRunEForCmd(cobrautil.ResolveFlagsForCmd))

	return cmd
}
