// Copyright 2024 The Carvel Authors.
// SPDX-License-Identifier: Apache-2.0

package ninjalibrary

import (
	"carvel.dev/as3ninja/pkg/render"
)

type Opts struct {
	Vault VaultOpts
}

// DefaultOpts verify TLS certificates of the secret store.
func DefaultOpts() Opts {
	return Opts{Vault: VaultOpts{SSLVerify: true}}
}

// Extensions returns every built-in extension.
func Extensions(opts Opts) []render.Extension {
	var exts []render.Extension

	exts = append(exts, Base64Extensions...)
	exts = append(exts, JSONExtensions...)
	exts = append(exts, HashExtensions...)
	exts = append(exts, FilesExtensions...)
	exts = append(exts, MiscExtensions...)
	exts = append(exts, NinjutsuExtensions...)
	exts = append(exts, VaultExtensions(opts.Vault)...)

	return exts
}

// NewRegistry returns a registry holding every built-in extension.
func NewRegistry(opts Opts) *render.Registry {
	registry := render.NewRegistry()
	registry.MustRegister(Extensions(opts)...)
	return registry
}
