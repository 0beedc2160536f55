// Copyright 2024 The Carvel Authors.
// SPDX-License-Identifier: Apache-2.0

package vault

import (
	"fmt"
	"path"
	"strings"

	"github.com/spf13/cast"
)

// Engine is a Vault secrets engine.
type Engine string

const (
	EngineKV1 Engine = "kv1"
	EngineKV2 Engine = "kv2"
)

// ParseEngine accepts kv1, kv2 and the aliases "kv" (kv1) and "default" (kv2).
func ParseEngine(name string) (Engine, error) {
	switch name {
	case "kv1", "kv":
		return EngineKV1, nil
	case "kv2", "default", "":
		return EngineKV2, nil
	default:
		return "", fmt.Errorf("Unknown secrets engine '%s' (supported: kv1, kv2, kv, default)", name)
	}
}

// Secret identifies a secret and optionally which part of it to return.
type Secret struct {
	Path       string
	MountPoint string
	Engine     Engine
	// Filter selects data from the response, e.g. "data.privateKey".
	Filter string
	// Version of a kv2 secret; 0 means latest.
	Version int
}

// NewSecret builds a Secret from a template mapping with keys
// path, mount_point, engine, filter and version. Without mount_point
// the first element of path is used as mount point.
func NewSecret(settings map[string]interface{}) (Secret, error) {
	var secret Secret

	pathVal, err := cast.ToStringE(settings["path"])
	if err != nil || len(pathVal) == 0 {
		return Secret{}, &SecretError{Msg: "Expected secret to specify 'path'"}
	}

	mountPoint, err := cast.ToStringE(settings["mount_point"])
	if err != nil {
		return Secret{}, &SecretError{Msg: "Expected 'mount_point' to be a string", Err: err}
	}

	if len(mountPoint) == 0 {
		mountPoint, pathVal = splitMountPoint(pathVal)
		if len(mountPoint) == 0 {
			return Secret{}, &SecretError{Msg: fmt.Sprintf("Could not determine mount_point from path '%s'", pathVal)}
		}
	}

	secret.Path = normalizePath(pathVal)
	secret.MountPoint = normalizePath(mountPoint)

	engineName, err := cast.ToStringE(settings["engine"])
	if err != nil {
		return Secret{}, &SecretError{Msg: "Expected 'engine' to be a string", Err: err}
	}

	secret.Engine, err = ParseEngine(engineName)
	if err != nil {
		return Secret{}, &SecretError{Msg: "Invalid secret", Err: err}
	}

	secret.Filter, err = cast.ToStringE(settings["filter"])
	if err != nil {
		return Secret{}, &SecretError{Msg: "Expected 'filter' to be a string", Err: err}
	}

	secret.Version, err = cast.ToIntE(settings["version"])
	if err != nil {
		return Secret{}, &SecretError{Msg: "Expected 'version' to be an integer", Err: err}
	}
	if secret.Version < 0 {
		return Secret{}, &SecretError{Msg: "version must be >= 0"}
	}

	return secret, nil
}

// splitMountPoint treats the first element of p as mount point.
func splitMountPoint(p string) (string, string) {
	pieces := strings.SplitN(strings.TrimPrefix(path.Clean("/"+p), "/"), "/", 2)
	if len(pieces) < 2 {
		return "", p
	}
	return pieces[0], pieces[1]
}

func normalizePath(p string) string {
	return strings.TrimPrefix(path.Clean("/"+p), "/")
}

// apiPath is the logical path read from Vault.
func (s Secret) apiPath() string {
	if s.Engine == EngineKV2 {
		return s.MountPoint + "/data/" + s.Path
	}
	return s.MountPoint + "/" + s.Path
}

// responseFilter returns the filter applied to the response.
// kv2 nests secret data one level deeper, "data." is prepended so that
// the same filter works for both engines.
func (s Secret) responseFilter() string {
	if s.Engine == EngineKV2 && len(s.Filter) > 0 && !strings.HasPrefix(s.Filter, "$") {
		return "data." + s.Filter
	}
	return s.Filter
}
