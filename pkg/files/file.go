// Copyright 2024 The Carvel Authors.
// SPDX-License-Identifier: Apache-2.0

package files

import (
	"path/filepath"
	"strings"
)

var (
	jsonExts = []string{".json", ".jsonc"}
	yamlExts = []string{".yaml", ".yml"}
	tomlExts = []string{".toml"}
)

type Type int

const (
	TypeUnknown Type = iota
	TypeJSON
	TypeYAML
	TypeTOML
)

func (t Type) String() string {
	switch t {
	case TypeJSON:
		return "json"
	case TypeYAML:
		return "yaml"
	case TypeTOML:
		return "toml"
	default:
		return "unknown"
	}
}

// TypeForPath determines file type based on path's extension.
func TypeForPath(path string) Type {
	switch {
	case matchesExt(path, jsonExts):
		return TypeJSON
	case matchesExt(path, yamlExts):
		return TypeYAML
	case matchesExt(path, tomlExts):
		return TypeTOML
	default:
		return TypeUnknown
	}
}

func matchesExt(path string, exts []string) bool {
	filename := strings.ToLower(filepath.Base(path))
	for _, ext := range exts {
		if strings.HasSuffix(filename, ext) {
			return true
		}
	}
	return false
}
