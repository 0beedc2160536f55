// Copyright 2024 The Carvel Authors.
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"time"

	"carvel.dev/as3ninja/pkg/cmd/core"
	"carvel.dev/as3ninja/pkg/cmd/ui"
	"carvel.dev/as3ninja/pkg/composer"
	"carvel.dev/as3ninja/pkg/declaration"
	"carvel.dev/as3ninja/pkg/deserialize"
	"carvel.dev/as3ninja/pkg/files"
	"carvel.dev/as3ninja/pkg/schema"
	"carvel.dev/as3ninja/pkg/transform"
	"github.com/spf13/cobra"
)

const watchDebounce = 300 * time.Millisecond

// TransformFlags are shared by transform and git-transform.
type TransformFlags struct {
	DeclarationTemplate string
	ConfigurationFiles  []string
	OutputFile          string
	Validate            bool
	NoValidate          bool
	Pretty              bool
	SchemaVersion       string
	Debug               bool

	VarsFlags VarsFlags
}

func (s *TransformFlags) Set(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&s.DeclarationTemplate, "declaration-template", "t", "", "Declaration Template file used for transformation (defaults to as3ninja.declaration_template of the configuration)")
	cmd.Flags().StringArrayVarP(&s.ConfigurationFiles, "configuration-file", "c", nil, "Template Configuration file, '-' reads from stdin (can be specified multiple times)")
	cmd.Flags().StringVarP(&s.OutputFile, "output-file", "o", "", "Output file, stdout is used otherwise")
	cmd.Flags().BoolVar(&s.Validate, "validate", true, "Validate the AS3 Declaration against the AS3 JSON Schema")
	cmd.Flags().BoolVar(&s.NoValidate, "no-validate", false, "Do not validate the AS3 Declaration")
	cmd.Flags().BoolVar(&s.Pretty, "pretty", false, "Pretty print JSON, keys are sorted")
	cmd.Flags().StringVar(&s.SchemaVersion, "schema-version", schema.LatestVersion, "AS3 Schema version used for validation")
	cmd.Flags().BoolVar(&s.Debug, "debug", false, "Enable debug output")
	s.VarsFlags.Set(cmd)
}

func (s *TransformFlags) validate() bool { return s.Validate && !s.NoValidate }

func (s *TransformFlags) configurationInput() (composer.Input, error) {
	if len(s.ConfigurationFiles) == 0 {
		return nil, nil
	}

	var result composer.Many

	for _, path := range s.ConfigurationFiles {
		if path != "-" {
			result = append(result, composer.FileRef(path))
			continue
		}

		data, err := files.ReadStdin()
		if err != nil {
			return nil, fmt.Errorf("Reading configuration from stdin: %s", err)
		}

		val, err := deserialize.Options{}.Bytes("stdin", data)
		if err != nil {
			return nil, err
		}

		switch typedVal := val.(type) {
		case map[string]interface{}:
			result = append(result, composer.Inline(typedVal))
		case nil:
			result = append(result, composer.Inline{})
		default:
			return nil, fmt.Errorf("Expected configuration from stdin to be a mapping, but was %T", val)
		}
	}

	return result, nil
}

func (s *TransformFlags) opts(env *core.Env) (transform.Opts, error) {
	input, err := s.configurationInput()
	if err != nil {
		return transform.Opts{}, err
	}

	overlay, err := s.VarsFlags.Overlay()
	if err != nil {
		return transform.Opts{}, err
	}

	return transform.Opts{
		Configuration: input,
		Overlay:       overlay,
		TemplateFile:  s.DeclarationTemplate,
		Libraries:     env.Libraries(),
		UI:            env.UI,
	}, nil
}

// output validates the declaration and prints or writes it.
func (s *TransformFlags) output(ctx context.Context, env *core.Env, decl *declaration.Declaration) error {
	if s.validate() {
		_, err := validateDeclaration(ctx, env, decl, s.SchemaVersion)
		if err != nil {
			return err
		}
	}

	var (
		result []byte
		err    error
	)

	if s.Pretty {
		result, err = prettyJSON(decl.Dict())
	} else {
		var jsonStr string
		jsonStr, err = decl.JSON()
		result = []byte(jsonStr)
	}
	if err != nil {
		return fmt.Errorf("Serializing declaration: %s", err)
	}

	if len(s.OutputFile) > 0 {
		env.UI.Debugf("Writing declaration to '%s'\n", s.OutputFile)
		return files.NewOutputFile(s.OutputFile, result).Create()
	}

	env.UI.Printf("%s\n", result)
	return nil
}

// prettyJSON indents by 4 spaces and sorts keys.
func prettyJSON(val interface{}) ([]byte, error) {
	var buf bytes.Buffer

	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")

	err := enc.Encode(val)
	if err != nil {
		return nil, err
	}

	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

type TransformOptions struct {
	TransformFlags

	SearchPath string
	Watch      bool
}

func NewTransformOptions() *TransformOptions {
	return &TransformOptions{}
}

func NewTransformCmd(o *TransformOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "transform",
		Short: "Render AS3 Declaration from local files",
		Long: `Render AS3 Declaration from local files.

Transforms a Declaration Template using the Template Configuration file(s)
to an AS3 Declaration. It is then validated against the AS3 JSON Schema
unless validation is disabled.

If no Declaration Template is specified, it is read from the Template
Configuration (as3ninja.declaration_template). If no Template Configuration
is specified, the first default configuration file (ninja.json, ninja.yaml,
ninja.yml) in the working directory is used.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			env, err := core.NewEnv(ui.NewTTY(o.Debug))
			if err != nil {
				return err
			}
			return o.Run(cmd.Context(), env)
		},
	}
	o.TransformFlags.Set(cmd)
	cmd.Flags().StringVar(&o.SearchPath, "searchpath", ".", "Directory templates are included from")
	cmd.Flags().BoolVar(&o.Watch, "watch", false, "Transform again when configuration files, the template or the search path change")
	return cmd
}

func (o *TransformOptions) Run(ctx context.Context, env *core.Env) error {
	if ctx == nil {
		ctx = context.Background()
	}

	opts, err := o.opts(env)
	if err != nil {
		return err
	}
	opts.SearchPath = o.SearchPath

	if !o.Watch {
		_, err := o.runOnce(ctx, env, opts)
		return err
	}

	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt)
	defer cancel()

	watcher := Watcher{Debounce: watchDebounce, UI: env.UI}
	if len(o.OutputFile) > 0 {
		watcher.Ignore = []string{o.OutputFile}
	}

	return watcher.Run(ctx, func() ([]string, error) {
		paths, err := o.runOnce(ctx, env, opts)
		if err == nil {
			env.UI.Debugf("Transformation finished, watching for changes\n")
		}
		return paths, err
	})
}

// runOnce returns the paths the transformation depends on, also on failure.
func (o *TransformOptions) runOnce(ctx context.Context, env *core.Env, opts transform.Opts) ([]string, error) {
	paths := []string{o.SearchPath}
	for _, path := range o.ConfigurationFiles {
		if path != "-" {
			paths = append(paths, path)
		}
	}
	if len(o.DeclarationTemplate) > 0 {
		paths = append(paths, o.DeclarationTemplate)
	}

	result, err := transform.Transform(ctx, opts)
	if err != nil {
		return paths, err
	}

	paths = append(paths, result.Configuration.Included()...)

	return paths, o.output(ctx, env, result.Declaration)
}
