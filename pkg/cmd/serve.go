// Copyright 2024 The Carvel Authors.
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"carvel.dev/as3ninja/pkg/api"
	"carvel.dev/as3ninja/pkg/cmd/core"
	"carvel.dev/as3ninja/pkg/cmd/ui"
	"github.com/spf13/cobra"
)

type ServeOptions struct {
	ListenAddr string
	Debug      bool
}

func NewServeOptions() *ServeOptions {
	return &ServeOptions{}
}

func NewServeCmd(o *ServeOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Starts the as3ninja HTTP API server",
		RunE: func(_ *cobra.Command, _ []string) error {
			env, err := core.NewEnv(ui.NewTTY(o.Debug))
			if err != nil {
				return err
			}
			return o.Server(env).Run()
		},
	}
	cmd.Flags().StringVar(&o.ListenAddr, "listen-addr", "localhost:8000", "Listen address")
	cmd.Flags().BoolVar(&o.Debug, "debug", false, "Enable debug output")
	return cmd
}

func (o *ServeOptions) Server(env *core.Env) *api.Server {
	return api.NewServer(api.ServerOpts{
		ListenAddr: o.ListenAddr,
		Schemas:    env.Schemas(),
		Libraries:  env.Libraries(),
		Git:        env.GitDefaults(),
	})
}
