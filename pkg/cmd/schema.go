// Copyright 2024 The Carvel Authors.
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"carvel.dev/as3ninja/pkg/cmd/core"
	"carvel.dev/as3ninja/pkg/cmd/ui"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func NewSchemaCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schema",
		Short: "AS3 Schema related commands",
	}
	cmd.AddCommand(NewSchemaUpdateCmd(NewSchemaUpdateOptions()))
	cmd.AddCommand(NewSchemaVersionsCmd(NewSchemaVersionsOptions()))
	return cmd
}

type SchemaUpdateOptions struct {
	Debug bool
}

func NewSchemaUpdateOptions() *SchemaUpdateOptions {
	return &SchemaUpdateOptions{}
}

func NewSchemaUpdateCmd(o *SchemaUpdateOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "update",
		Short: "Update AS3 JSON Schemas from GitHub",
		RunE: func(cmd *cobra.Command, _ []string) error {
			env, err := core.NewEnv(ui.NewTTY(o.Debug))
			if err != nil {
				return err
			}
			return o.Run(cmd.Context(), env)
		},
	}
	cmd.Flags().BoolVar(&o.Debug, "debug", false, "Enable debug output")
	return cmd
}

func (o *SchemaUpdateOptions) Run(ctx context.Context, env *core.Env) error {
	if ctx == nil {
		ctx = context.Background()
	}

	schemas := env.Schemas()

	before, err := schemas.LatestVersion()
	if err != nil {
		return err
	}

	err = schemas.Update(ctx)
	if err != nil {
		return err
	}

	after, err := schemas.LatestVersion()
	if err != nil {
		return err
	}

	if before != after {
		env.UI.Printf("Updated AS3 JSON Schemas from version:%s to:%s\n", before, after)
	} else {
		env.UI.Printf("AS3 JSON Schemas are up-to-date, current version:%s\n", after)
	}
	return nil
}

type SchemaVersionsOptions struct {
	Text  bool
	JSON  bool
	YAML  bool
	Debug bool
}

func NewSchemaVersionsOptions() *SchemaVersionsOptions {
	return &SchemaVersionsOptions{}
}

func NewSchemaVersionsCmd(o *SchemaVersionsOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "versions",
		Short: "Print all available AS3 JSON Schema versions",
		RunE: func(_ *cobra.Command, _ []string) error {
			env, err := core.NewEnv(ui.NewTTY(o.Debug))
			if err != nil {
				return err
			}
			return o.Run(env)
		},
	}
	cmd.Flags().BoolVar(&o.Text, "text", false, "Format output as text (default)")
	cmd.Flags().BoolVar(&o.JSON, "json", false, "Format output as JSON")
	cmd.Flags().BoolVar(&o.YAML, "yaml", false, "Format output as YAML")
	cmd.Flags().BoolVar(&o.Debug, "debug", false, "Enable debug output")
	cmd.MarkFlagsMutuallyExclusive("text", "json", "yaml")
	return cmd
}

type schemaVersionsOutput struct {
	Versions []string `json:"as3_schema_versions" yaml:"as3_schema_versions"`
}

func (o *SchemaVersionsOptions) Run(env *core.Env) error {
	versions, err := env.Schemas().Versions()
	if err != nil {
		return err
	}

	switch {
	case o.JSON:
		result, err := json.Marshal(schemaVersionsOutput{versions})
		if err != nil {
			return fmt.Errorf("Serializing versions: %s", err)
		}
		env.UI.Printf("%s\n", result)

	case o.YAML:
		result, err := yaml.Marshal(schemaVersionsOutput{versions})
		if err != nil {
			return fmt.Errorf("Serializing versions: %s", err)
		}
		env.UI.Printf("%s", result)

	default:
		env.UI.Printf("%s\n", strings.Join(versions, "\n"))
	}

	return nil
}
