// Copyright 2024 The Carvel Authors.
// SPDX-License-Identifier: Apache-2.0

package ninjalibrary

import (
	"fmt"

	"carvel.dev/as3ninja/pkg/render"
	"carvel.dev/as3ninja/pkg/vault"
)

// VaultOpts configure the vault extensions.
type VaultOpts struct {
	// SSLVerify is used when neither the configuration nor
	// VAULT_SKIP_VERIFY decide whether to verify TLS certificates.
	SSLVerify bool
}

// VaultExtensions returns the vault and vault_client extensions.
func VaultExtensions(opts VaultOpts) []render.Extension {
	return []render.Extension{
		{Name: "vault", Kind: render.KindFilter, Factory: func(ctx *render.Context) interface{} {
			return vaultModule{ctx, opts}.Vault
		}},
		{Name: "vault_client", Kind: render.KindFunction, Factory: func(ctx *render.Context) interface{} {
			return vaultModule{ctx, opts}.Client
		}},
	}
}

type vaultModule struct {
	ctx  *render.Context
	opts VaultOpts
}

// Vault implements `vault [client] secret`. secret is a mapping with
// keys path, mount_point, engine, filter and version.
func (m vaultModule) Vault(args ...interface{}) (interface{}, error) {
	opts, subject, err := splitArgs("vault", args, 1)
	if err != nil {
		return nil, err
	}

	secretMap, ok := subject.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("vault: expected secret to be a mapping, but was %T", subject)
	}

	secret, err := vault.NewSecret(secretMap)
	if err != nil {
		return nil, err
	}

	var client *vault.Client

	if len(opts) > 0 {
		client, ok = opts[0].(*vault.Client)
		if !ok {
			return nil, fmt.Errorf("vault: expected client to be created by vault_client, but was %T", opts[0])
		}
	} else {
		client, err = m.defaultClient()
		if err != nil {
			return nil, err
		}
	}

	return client.Read(m.ctx.Ctx(), secret)
}

// Client implements `vault_client settings` where settings is a mapping
// with keys addr, token and ssl_verify, or `vault_client addr [token [ssl_verify]]`.
func (m vaultModule) Client(args ...interface{}) (*vault.Client, error) {
	var settingsMap map[string]interface{}

	switch {
	case len(args) == 1:
		if typedArg, ok := args[0].(map[string]interface{}); ok {
			settingsMap = typedArg
		} else {
			settingsMap = map[string]interface{}{"addr": args[0]}
		}
	case len(args) == 2:
		settingsMap = map[string]interface{}{"addr": args[0], "token": args[1]}
	case len(args) == 3:
		settingsMap = map[string]interface{}{"addr": args[0], "token": args[1], "ssl_verify": args[2]}
	default:
		return nil, fmt.Errorf("vault_client: expected between 1 and 3 arguments, but got %d", len(args))
	}

	settings, err := vault.SettingsFromMap(settingsMap)
	if err != nil {
		return nil, err
	}

	return vault.NewClient(m.ctx.Ctx(), settings)
}

func (m vaultModule) defaultClient() (*vault.Client, error) {
	client, err := m.ctx.Memo("vault.defaultClient", func() (interface{}, error) {
		settings, err := vault.ResolveSettings(m.ctx.Configuration, m.opts.SSLVerify)
		if err != nil {
			return nil, err
		}
		return vault.NewClient(m.ctx.Ctx(), settings)
	})
	if err != nil {
		return nil, err
	}
	return client.(*vault.Client), nil
}
