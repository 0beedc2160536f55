// Copyright 2024 The Carvel Authors.
// SPDX-License-Identifier: Apache-2.0

/*
Package settings loads as3ninja's global settings.

Settings are read from as3ninja.settings.json (or .toml) in the working
directory, else from ~/.as3ninja/. When no file exists the defaults are
written to ~/.as3ninja/as3ninja.settings.json. Every setting can be
overridden with an environment variable named AS3N_<SETTING>, for
example AS3N_GITGET_TIMEOUT=300.
*/
package settings

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"carvel.dev/as3ninja/pkg/deserialize"
	"github.com/spf13/cast"
)

const (
	EnvPrefix = "AS3N_"

	configDirName     = ".as3ninja"
	schemaDirName     = "f5-appsvcs-extension"
	defaultConfigName = "as3ninja.settings.json"
)

var configNames = []string{defaultConfigName, "as3ninja.settings.toml"}

type Settings struct {
	// Timeout in seconds for git operations
	GitgetTimeout int `json:"GITGET_TIMEOUT,omitempty"`
	// Verify TLS certificates of git servers
	GitgetSSLVerify bool `json:"GITGET_SSL_VERIFY,omitempty"`
	// Proxy used for git operations
	GitgetProxy string `json:"GITGET_PROXY,omitempty"`

	// Directory holding the AS3 schema repository; detected at runtime
	SchemaBasePath string `json:"SCHEMA_BASE_PATH,omitempty"`
	// Repository the AS3 schemas are fetched from
	SchemaGithubRepo string `json:"SCHEMA_GITHUB_REPO,omitempty"`
	// Oldest supported AS3 schema version
	SchemaMinVersion string `json:"SCHEMA_MIN_VERSION,omitempty"`

	// Verify TLS certificates of Vault servers
	VaultSSLVerify bool `json:"VAULT_SSL_VERIFY,omitempty"`
}

func Defaults() Settings {
	return Settings{
		GitgetTimeout:    120,
		GitgetSSLVerify:  true,
		SchemaGithubRepo: "https://github.com/F5Networks/f5-appsvcs-extension",
		SchemaMinVersion: "3.8.0",
		VaultSSLVerify:   true,
	}
}

type LoadOpts struct {
	WorkDir string
	HomeDir string
	// LookupEnv defaults to os.LookupEnv
	LookupEnv func(string) (string, bool)
}

// DefaultLoadOpts uses the process working directory, home directory and environment.
func DefaultLoadOpts() (LoadOpts, error) {
	workDir, err := os.Getwd()
	if err != nil {
		return LoadOpts{}, fmt.Errorf("Determining working directory: %w", err)
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return LoadOpts{}, fmt.Errorf("Determining home directory: %w", err)
	}
	return LoadOpts{WorkDir: workDir, HomeDir: homeDir, LookupEnv: os.LookupEnv}, nil
}

// Load reads the settings file, applies environment overrides and
// detects the schema base path.
func Load(opts LoadOpts) (Settings, error) {
	if opts.LookupEnv == nil {
		opts.LookupEnv = os.LookupEnv
	}

	result := Defaults()

	path, found, err := findConfigFile(opts)
	if err != nil {
		return Settings{}, err
	}

	if found {
		result, err = readConfigFile(path, result)
		if err != nil {
			return Settings{}, err
		}
	} else {
		err = writeDefaults(opts.HomeDir)
		if err != nil {
			return Settings{}, err
		}
	}

	result.SchemaBasePath = ""

	err = applyEnv(&result, opts.LookupEnv)
	if err != nil {
		return Settings{}, err
	}

	if len(result.SchemaBasePath) == 0 {
		result.SchemaBasePath, err = detectSchemaBasePath(opts)
		if err != nil {
			return Settings{}, err
		}
	}

	return result, nil
}

func findConfigFile(opts LoadOpts) (string, bool, error) {
	for _, dir := range []string{opts.WorkDir, filepath.Join(opts.HomeDir, configDirName)} {
		for _, name := range configNames {
			path := filepath.Join(dir, name)

			info, err := os.Stat(path)
			if err != nil {
				if errors.Is(err, fs.ErrNotExist) {
					continue
				}
				return "", false, fmt.Errorf("Checking settings file '%s': %w", path, err)
			}
			if info.Mode().IsRegular() {
				return path, true, nil
			}
		}
	}
	return "", false, nil
}

func readConfigFile(path string, defaults Settings) (Settings, error) {
	val, err := deserialize.File(path)
	if err != nil {
		return Settings{}, fmt.Errorf("Reading settings file: %w", err)
	}
	if val == nil {
		return defaults, nil
	}

	err = Validate(val)
	if err != nil {
		return Settings{}, fmt.Errorf("Validating settings file '%s': %w", path, err)
	}

	valBs, err := json.Marshal(val)
	if err != nil {
		return Settings{}, err
	}

	// fields absent from the file keep their defaults
	err = json.Unmarshal(valBs, &defaults)
	if err != nil {
		return Settings{}, fmt.Errorf("Decoding settings file '%s': %w", path, err)
	}

	return defaults, nil
}

func writeDefaults(homeDir string) error {
	dir := filepath.Join(homeDir, configDirName)

	err := os.MkdirAll(dir, 0700)
	if err != nil {
		return fmt.Errorf("Creating settings directory: %w", err)
	}

	valBs, err := Defaults().MarshalIndent()
	if err != nil {
		return err
	}

	err = os.WriteFile(filepath.Join(dir, defaultConfigName), valBs, 0600)
	if err != nil {
		return fmt.Errorf("Writing default settings: %w", err)
	}
	return nil
}

// MarshalIndent returns the persisted form of the settings: indented
// JSON with sorted keys and without runtime-only settings.
func (s Settings) MarshalIndent() ([]byte, error) {
	s.SchemaBasePath = ""

	// through a map to output keys sorted and to keep false values
	result := map[string]interface{}{}
	forEachField(&s, func(name string, field reflect.Value) {
		if name != "SCHEMA_BASE_PATH" {
			result[name] = field.Interface()
		}
	})

	return json.MarshalIndent(result, "", "    ")
}

func applyEnv(s *Settings, lookupEnv func(string) (string, bool)) error {
	var resultErr error

	forEachField(s, func(name string, field reflect.Value) {
		val, found := lookupEnv(EnvPrefix + name)
		if !found || resultErr != nil {
			return
		}

		switch field.Kind() {
		case reflect.Int:
			typedVal, err := cast.ToIntE(strings.TrimSpace(val))
			if err != nil {
				resultErr = fmt.Errorf("Expected env variable '%s%s' to be an integer: %w", EnvPrefix, name, err)
				return
			}
			field.SetInt(int64(typedVal))
		case reflect.Bool:
			typedVal, err := cast.ToBoolE(strings.TrimSpace(val))
			if err != nil {
				resultErr = fmt.Errorf("Expected env variable '%s%s' to be a boolean: %w", EnvPrefix, name, err)
				return
			}
			field.SetBool(typedVal)
		default:
			field.SetString(val)
		}
	})

	return resultErr
}

func forEachField(s *Settings, fn func(name string, field reflect.Value)) {
	val := reflect.ValueOf(s).Elem()
	typ := val.Type()

	for i := 0; i < typ.NumField(); i++ {
		name, _, _ := strings.Cut(typ.Field(i).Tag.Get("json"), ",")
		fn(name, val.Field(i))
	}
}

func detectSchemaBasePath(opts LoadOpts) (string, error) {
	inWorkDir := filepath.Join(opts.WorkDir, schemaDirName)
	if info, err := os.Stat(inWorkDir); err == nil && info.IsDir() {
		return inWorkDir, nil
	}

	// created one level at a time so that both get 0700
	configDir := filepath.Join(opts.HomeDir, configDirName)
	for _, dir := range []string{configDir, filepath.Join(configDir, schemaDirName)} {
		err := os.Mkdir(dir, 0700)
		if err != nil && !errors.Is(err, fs.ErrExist) {
			return "", fmt.Errorf("Creating schema directory: %w", err)
		}
	}

	return filepath.Join(configDir, schemaDirName), nil
}
