// Copyright 2024 The Carvel Authors.
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"

	"carvel.dev/as3ninja/pkg/cmd/core"
	"carvel.dev/as3ninja/pkg/cmd/ui"
	"carvel.dev/as3ninja/pkg/deserialize"
	"carvel.dev/as3ninja/pkg/schema"
	"github.com/spf13/cobra"
)

type ValidateOptions struct {
	Declaration string
	Version     string
	Debug       bool
}

func NewValidateOptions() *ValidateOptions {
	return &ValidateOptions{}
}

func NewValidateCmd(o *ValidateOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate an AS3 Declaration against the AS3 JSON Schema",
		Long: `Validate an AS3 Declaration against the AS3 JSON Schema.

If no version is specified, the latest available version is used.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			env, err := core.NewEnv(ui.NewTTY(o.Debug))
			if err != nil {
				return err
			}
			return o.Run(cmd.Context(), env)
		},
	}
	cmd.Flags().StringVarP(&o.Declaration, "declaration", "d", "", "AS3 Declaration file (JSON) to validate")
	cmd.Flags().StringVarP(&o.Version, "version", "v", schema.LatestVersion, "AS3 Schema version to use for validation (e.g. 3.16.0)")
	cmd.Flags().BoolVar(&o.Debug, "debug", false, "Enable debug output")
	return cmd
}

func (o *ValidateOptions) Run(ctx context.Context, env *core.Env) error {
	if ctx == nil {
		ctx = context.Background()
	}

	if len(o.Declaration) == 0 {
		return fmt.Errorf("Expected declaration file to be specified (-d/--declaration)")
	}

	decl, err := deserialize.File(o.Declaration)
	if err != nil {
		return err
	}

	version, err := validateDeclaration(ctx, env, decl, o.Version)
	if err != nil {
		return err
	}

	env.UI.Printf("Validation passed for AS3 Schema version: %s\n", version)
	return nil
}

// validateDeclaration returns the schema version used. Violations are
// reported individually before the error is returned.
func validateDeclaration(ctx context.Context, env *core.Env, decl interface{}, version string) (string, error) {
	as3Schema, err := env.Schemas().OpenContext(ctx, version)
	if err != nil {
		return "", err
	}

	err = as3Schema.Validate(decl, "")
	if err != nil {
		var validationErr *schema.ValidationError
		if errors.As(err, &validationErr) {
			env.UI.Errorf("Validation failed for AS3 Schema version: %s\n", as3Schema.Version())
			for _, subErr := range validationErr.Context {
				env.UI.Warnf("\n%s\n\n", subErr.Error())
			}
		}
		return as3Schema.Version(), err
	}

	return as3Schema.Version(), nil
}
