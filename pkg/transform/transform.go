// Copyright 2024 The Carvel Authors.
// SPDX-License-Identifier: Apache-2.0

/*
Package transform ties configuration composition and declaration building
together. It is shared by the command line and the HTTP API.
*/
package transform

import (
	"context"
	"path/filepath"

	"carvel.dev/as3ninja/pkg/composer"
	"carvel.dev/as3ninja/pkg/declaration"
	"carvel.dev/as3ninja/pkg/deserialize"
	"carvel.dev/as3ninja/pkg/gitget"
	"carvel.dev/as3ninja/pkg/merge"
	"carvel.dev/as3ninja/pkg/ninjalibrary"
)

type Opts struct {
	// Configuration is nil to use the default configuration file of BasePath.
	Configuration composer.Input
	BasePath      string
	Overlay       map[string]interface{}

	// TemplateText takes precedence over TemplateFile. Without either
	// as3ninja.declaration_template of the configuration is used.
	TemplateText string
	TemplateFile string
	SearchPath   string

	Libraries ninjalibrary.Opts
	UI        composer.UI
}

type Result struct {
	Configuration *composer.Configuration
	Declaration   *declaration.Declaration
}

// Transform composes the configuration and builds the declaration.
func Transform(ctx context.Context, opts Opts) (Result, error) {
	config, err := composer.Compose(opts.Configuration, composer.Opts{
		BasePath: opts.BasePath,
		Overlay:  opts.Overlay,
		UI:       opts.UI,
	})
	if err != nil {
		return Result{}, err
	}

	templateText := opts.TemplateText
	if len(templateText) == 0 && len(opts.TemplateFile) > 0 {
		templateText, err = deserialize.Text(opts.TemplateFile)
		if err != nil {
			return Result{}, err
		}
	}

	decl, err := declaration.BuildContext(ctx, config.Dict(), declaration.BuildOpts{
		TemplateText: templateText,
		SearchPath:   opts.SearchPath,
		Registry:     ninjalibrary.NewRegistry(opts.Libraries),
	})
	if err != nil {
		return Result{}, err
	}

	return Result{Configuration: config, Declaration: decl}, nil
}

type GitOpts struct {
	Git gitget.Opts
	// Opts paths (configuration files, TemplateFile) are relative to the
	// repository; BasePath and SearchPath are set to the clone.
	Opts
}

// GitTransform clones a repository and transforms the configuration found
// in it. Repository details are available at as3ninja.git.
func GitTransform(ctx context.Context, opts GitOpts) (Result, error) {
	repo, err := gitget.Clone(ctx, opts.Git)
	if err != nil {
		return Result{}, err
	}
	defer repo.Close()

	transformOpts := opts.Opts
	transformOpts.BasePath = repo.Dir()
	transformOpts.SearchPath = repo.Dir()
	transformOpts.Overlay = merge.All(opts.Overlay, map[string]interface{}{
		composer.Namespace: map[string]interface{}{"git": repo.Info().AsMap()},
	})
	if len(transformOpts.TemplateFile) > 0 {
		transformOpts.TemplateFile = filepath.Join(repo.Dir(), transformOpts.TemplateFile)
	}

	return Transform(ctx, transformOpts)
}
