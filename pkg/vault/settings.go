// Copyright 2024 The Carvel Authors.
// SPDX-License-Identifier: Apache-2.0

package vault

import (
	"os"

	"github.com/spf13/cast"
)

var skipVerifyValues = map[string]bool{"true": true, "True": true, "TRUE": true, "1": true}

// ResolveSettings determines the default client settings for a render.
// Values under as3ninja.vault in the configuration win, then the
// VAULT_ADDR, VAULT_TOKEN and VAULT_SKIP_VERIFY environment variables,
// then sslVerify for TLS verification.
func ResolveSettings(configuration map[string]interface{}, sslVerify bool) (Settings, error) {
	var ns map[string]interface{}
	if ninja, ok := configuration["as3ninja"].(map[string]interface{}); ok {
		ns, _ = ninja["vault"].(map[string]interface{})
	}

	settings := Settings{
		Addr:      os.Getenv("VAULT_ADDR"),
		Token:     os.Getenv("VAULT_TOKEN"),
		SSLVerify: sslVerify,
	}

	if skip, found := os.LookupEnv("VAULT_SKIP_VERIFY"); found {
		settings.SSLVerify = !skipVerifyValues[skip]
	}

	if val, found := ns["addr"]; found {
		addr, err := cast.ToStringE(val)
		if err != nil {
			return Settings{}, &SecretError{Msg: "Expected as3ninja.vault.addr to be a string", Err: err}
		}
		settings.Addr = addr
	}
	if val, found := ns["token"]; found {
		token, err := cast.ToStringE(val)
		if err != nil {
			return Settings{}, &SecretError{Msg: "Expected as3ninja.vault.token to be a string", Err: err}
		}
		settings.Token = token
	}
	if val, found := ns["ssl_verify"]; found {
		verify, err := cast.ToBoolE(val)
		if err != nil {
			return Settings{}, &SecretError{Msg: "Expected as3ninja.vault.ssl_verify to be a boolean", Err: err}
		}
		settings.SSLVerify = verify
	}

	return settings, nil
}

// SettingsFromMap builds Settings from a mapping with keys addr, token
// and ssl_verify (or verify). Missing keys keep their zero value except
// ssl_verify which defaults to true.
func SettingsFromMap(m map[string]interface{}) (Settings, error) {
	settings := Settings{SSLVerify: true}

	var err error

	settings.Addr, err = cast.ToStringE(m["addr"])
	if err != nil {
		return Settings{}, &SecretError{Msg: "Expected 'addr' to be a string", Err: err}
	}
	settings.Token, err = cast.ToStringE(m["token"])
	if err != nil {
		return Settings{}, &SecretError{Msg: "Expected 'token' to be a string", Err: err}
	}

	for _, key := range []string{"ssl_verify", "verify"} {
		if val, found := m[key]; found {
			settings.SSLVerify, err = cast.ToBoolE(val)
			if err != nil {
				return Settings{}, &SecretError{Msg: "Expected '" + key + "' to be a boolean", Err: err}
			}
		}
	}

	return settings, nil
}
