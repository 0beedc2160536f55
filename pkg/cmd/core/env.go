// Copyright 2024 The Carvel Authors.
// SPDX-License-Identifier: Apache-2.0

/*
Package core wires settings into the collaborators shared by commands.
*/
package core

import (
	"time"

	"carvel.dev/as3ninja/pkg/api"
	"carvel.dev/as3ninja/pkg/cmd/ui"
	"carvel.dev/as3ninja/pkg/gitget"
	"carvel.dev/as3ninja/pkg/ninjalibrary"
	"carvel.dev/as3ninja/pkg/schema"
	"carvel.dev/as3ninja/pkg/settings"
)

type Env struct {
	UI       ui.UI
	Settings settings.Settings
}

// NewEnv loads settings from the working directory, the home directory
// and the environment.
func NewEnv(ui ui.UI) (*Env, error) {
	loadOpts, err := settings.DefaultLoadOpts()
	if err != nil {
		return nil, err
	}

	s, err := settings.Load(loadOpts)
	if err != nil {
		return nil, err
	}

	ui.Debugf("Using AS3 schemas from '%s'\n", s.SchemaBasePath)

	return &Env{UI: ui, Settings: s}, nil
}

func (e *Env) Schemas() *schema.Registry {
	return schema.NewRegistry(schema.RegistryOpts{
		Dir: e.Settings.SchemaBasePath,
		Fetcher: schema.GitFetcher{
			Repository: e.Settings.SchemaGithubRepo,
			Timeout:    e.gitTimeout(),
			SSLVerify:  e.Settings.GitgetSSLVerify,
			Proxy:      e.Settings.GitgetProxy,
		},
		MinVersion: e.Settings.SchemaMinVersion,
		UI:         e.UI,
	})
}

func (e *Env) Libraries() ninjalibrary.Opts {
	return ninjalibrary.Opts{Vault: ninjalibrary.VaultOpts{SSLVerify: e.Settings.VaultSSLVerify}}
}

func (e *Env) GitDefaults() api.GitDefaults {
	return api.GitDefaults{
		Timeout:   e.gitTimeout(),
		SSLVerify: e.Settings.GitgetSSLVerify,
		Proxy:     e.Settings.GitgetProxy,
	}
}

// GitOpts completes opts with the git settings.
func (e *Env) GitOpts(opts gitget.Opts) gitget.Opts {
	defaults := e.GitDefaults()
	opts.Timeout = defaults.Timeout
	opts.SSLVerify = defaults.SSLVerify
	opts.Proxy = defaults.Proxy
	return opts
}

func (e *Env) gitTimeout() time.Duration {
	return time.Duration(e.Settings.GitgetTimeout) * time.Second
}
