// Copyright 2024 The Carvel Authors.
// SPDX-License-Identifier: Apache-2.0

package vault

import (
	"context"
	"strconv"

	"carvel.dev/as3ninja/pkg/deserialize"
	vaultapi "github.com/hashicorp/vault/api"
)

// Settings configure a Client. Empty Addr and Token fall back to
// the VAULT_ADDR and VAULT_TOKEN environment variables.
type Settings struct {
	Addr      string
	Token     string
	SSLVerify bool
}

// Client reads secrets from Vault.
type Client struct {
	api *vaultapi.Client
}

// NewClient connects to Vault and verifies the token is valid.
func NewClient(ctx context.Context, settings Settings) (*Client, error) {
	cfg := vaultapi.DefaultConfig()
	if cfg.Error != nil {
		return nil, &SecretError{Msg: "Reading Vault client configuration", Err: cfg.Error}
	}
	if len(settings.Addr) > 0 {
		cfg.Address = settings.Addr
	}
	if !settings.SSLVerify {
		err := cfg.ConfigureTLS(&vaultapi.TLSConfig{Insecure: true})
		if err != nil {
			return nil, &SecretError{Msg: "Configuring TLS", Err: err}
		}
	}

	apiClient, err := vaultapi.NewClient(cfg)
	if err != nil {
		return nil, &SecretError{Msg: "Creating Vault client", Err: err}
	}
	if len(settings.Token) > 0 {
		apiClient.SetToken(settings.Token)
	}

	_, err = apiClient.Auth().Token().LookupSelfWithContext(ctx)
	if err != nil {
		return nil, &SecretError{Msg: "Could not successfully authenticate.", Err: err}
	}

	return &Client{apiClient}, nil
}

// Address returns the Vault address the client talks to.
func (c *Client) Address() string { return c.api.Address() }

// Read returns the Vault response for secret with the secret's filter applied.
func (c *Client) Read(ctx context.Context, secret Secret) (interface{}, error) {
	var params map[string][]string
	if secret.Engine == EngineKV2 && secret.Version > 0 {
		params = map[string][]string{"version": {strconv.Itoa(secret.Version)}}
	}

	resp, err := c.api.Logical().ReadWithDataWithContext(ctx, secret.apiPath(), params)
	if err != nil {
		return nil, &SecretError{Msg: "Reading secret '" + secret.MountPoint + "/" + secret.Path + "'", Err: err}
	}
	if resp == nil {
		return nil, &SecretError{Msg: "Secret '" + secret.MountPoint + "/" + secret.Path + "' not found"}
	}

	warnings := []interface{}{}
	for _, w := range resp.Warnings {
		warnings = append(warnings, w)
	}

	result := map[string]interface{}{
		"request_id":     resp.RequestID,
		"lease_id":       resp.LeaseID,
		"lease_duration": int64(resp.LeaseDuration),
		"renewable":      resp.Renewable,
		"data":           deserialize.Normalize(resp.Data),
		"warnings":       warnings,
	}

	return Filter(result, secret.responseFilter())
}
