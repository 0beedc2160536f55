// Copyright 2024 The Carvel Authors.
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"context"
	"fmt"

	"carvel.dev/as3ninja/pkg/cmd/core"
	"carvel.dev/as3ninja/pkg/cmd/ui"
	"carvel.dev/as3ninja/pkg/gitget"
	"carvel.dev/as3ninja/pkg/transform"
	"github.com/spf13/cobra"
)

type GitTransformOptions struct {
	TransformFlags

	Repository string
	Branch     string
	Commit     string
	Depth      int
}

func NewGitTransformOptions() *GitTransformOptions {
	return &GitTransformOptions{}
}

func NewGitTransformCmd(o *GitTransformOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "git-transform",
		Short: "Render AS3 Declaration from Git Repository",
		Long: `Render AS3 Declaration from Git Repository.

Clones the Git repository and transforms the Declaration Template using the
Template Configuration file(s) to an AS3 Declaration. Paths are relative to
the root of the repository; details of the clone are available to templates
at ninja.as3ninja.git.

If no Declaration Template is specified, it is read from the Template
Configuration (as3ninja.declaration_template). If no Template Configuration
is specified, the first default configuration file (ninja.json, ninja.yaml,
ninja.yml) in the root of the repository is used.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			env, err := core.NewEnv(ui.NewTTY(o.Debug))
			if err != nil {
				return err
			}
			return o.Run(cmd.Context(), env)
		},
	}
	o.TransformFlags.Set(cmd)
	cmd.Flags().StringVar(&o.Repository, "repository", "", "Git repository")
	cmd.Flags().StringVar(&o.Branch, "branch", "", "Git branch or tag to use")
	cmd.Flags().StringVar(&o.Commit, "commit", "", "Git commit id or HEAD~<int>")
	cmd.Flags().IntVar(&o.Depth, "depth", gitget.DefaultDepth, "Git clone depth, 0 clones the full history")
	return cmd
}

func (o *GitTransformOptions) Run(ctx context.Context, env *core.Env) error {
	if ctx == nil {
		ctx = context.Background()
	}

	if len(o.Repository) == 0 {
		return fmt.Errorf("Expected repository to be specified (--repository)")
	}

	opts, err := o.opts(env)
	if err != nil {
		return err
	}

	depth := o.Depth

	result, err := transform.GitTransform(ctx, transform.GitOpts{
		Git: env.GitOpts(gitget.Opts{
			Repository: o.Repository,
			Branch:     o.Branch,
			Commit:     o.Commit,
			Depth:      &depth,
		}),
		Opts: opts,
	})
	if err != nil {
		return err
	}

	return o.output(ctx, env, result.Declaration)
}
