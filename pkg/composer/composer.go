// Copyright 2024 The Carvel Authors.
// SPDX-License-Identifier: Apache-2.0

/*
Package composer merges configuration inputs into a single configuration.

Inputs are inline mappings or files. Files and inline mappings may include
further files via the reserved "as3ninja.include" key; included files are
merged directly after the entry that included them and are never scanned for
includes themselves. Every file is included at most once.
*/
package composer

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"carvel.dev/as3ninja/pkg/deserialize"
	"carvel.dev/as3ninja/pkg/merge"
	"github.com/bmatcuk/doublestar/v4"
)

const (
	// Namespace is the reserved top-level configuration key.
	Namespace = "as3ninja"

	includeKey         = "include"
	deserializeFileKey = "__deserialize_file"
)

// DefaultFiles are searched in order when no input is given.
var DefaultFiles = []string{"ninja.json", "ninja.yaml", "ninja.yml"}

type UI interface {
	Debugf(string, ...interface{})
}

type Opts struct {
	BasePath string
	Overlay  map[string]interface{}

	// Deserialize is used for every file. When BaseDir is empty,
	// BasePath is used to resolve YAML !include directives.
	Deserialize deserialize.Options
	UI          UI
}

// Configuration is the result of composing configuration inputs.
type Configuration struct {
	dict     map[string]interface{}
	included []string
}

func (c *Configuration) Dict() map[string]interface{} { return c.dict }
func (c *Configuration) Included() []string           { return c.included }

// Compose resolves, includes and merges input into a single Configuration.
func Compose(input Input, opts Opts) (*Configuration, error) {
	c := &composition{opts: opts}
	if c.opts.Deserialize.BaseDir == "" {
		c.opts.Deserialize.BaseDir = opts.BasePath
	}

	if input == nil {
		defaultFile, err := c.defaultFile()
		if err != nil {
			return nil, err
		}
		input = defaultFile
	}

	inputs, err := flatten(input)
	if err != nil {
		return nil, err
	}

	var configs []map[string]interface{}

	for _, in := range inputs {
		switch typedIn := in.(type) {
		case FileRef:
			configs = append(configs, map[string]interface{}{
				Namespace: map[string]interface{}{deserializeFileKey: []interface{}{string(typedIn)}},
			})
		case Inline:
			configs = append(configs, map[string]interface{}(typedIn))
		}
	}

	configs, err = c.expand(configs, deserializeFileKey, false)
	if err != nil {
		return nil, err
	}

	configs, err = c.expand(configs, includeKey, true)
	if err != nil {
		return nil, err
	}

	if len(opts.Overlay) > 0 {
		configs = append(configs, opts.Overlay)
	}

	result := merge.All(configs...)

	c.tidyNamespace(result)

	return &Configuration{dict: result, included: c.included}, nil
}

type composition struct {
	opts     Opts
	included []string
}

func (c *composition) defaultFile() (FileRef, error) {
	for _, name := range DefaultFiles {
		info, err := os.Stat(filepath.Join(c.opts.BasePath, name))
		if err == nil && info.Mode().IsRegular() {
			return FileRef(name), nil
		}
	}
	return "", &ComposerError{Msg: fmt.Sprintf(
		"No AS3 Ninja configuration file found (%s) (base_path:%s)",
		strings.Join(DefaultFiles, ", "), c.opts.BasePath)}
}

// expand inserts the contents of the files named by as3ninja.<key> right after
// the entry naming them. Only entries of configs are scanned.
func (c *composition) expand(configs []map[string]interface{}, key string, register bool) ([]map[string]interface{}, error) {
	var result []map[string]interface{}

	for _, config := range configs {
		result = append(result, config)

		patterns, err := namespacePatterns(config, key)
		if err != nil {
			return nil, err
		}

		for _, pattern := range patterns {
			paths, err := c.glob(pattern)
			if err != nil {
				return nil, err
			}

			for _, path := range paths {
				if register {
					if c.isIncluded(path) {
						continue
					}
					c.included = append(c.included, path)
				}

				if c.opts.UI != nil {
					c.opts.UI.Debugf("composer: including %s\n", path)
				}

				content, err := c.deserialize(path)
				if err != nil {
					return nil, err
				}
				result = append(result, content)
			}
		}
	}

	return result, nil
}

func (c *composition) isIncluded(path string) bool {
	for _, included := range c.included {
		if included == path {
			return true
		}
	}
	return false
}

func (c *composition) deserialize(path string) (map[string]interface{}, error) {
	val, err := c.opts.Deserialize.File(path)
	if err != nil {
		return nil, &ComposerError{Msg: fmt.Sprintf("Loading configuration file %s", path), Err: err}
	}

	switch typedVal := val.(type) {
	case map[string]interface{}:
		return typedVal, nil
	case nil:
		return map[string]interface{}{}, nil
	default:
		return nil, &ComposerError{Msg: fmt.Sprintf(
			"Configuration file %s must contain a mapping, but was %T", path, val)}
	}
}

// glob resolves pattern relative to the base path and returns sorted file paths.
// A leading "/" is stripped and the pattern rebased at BasePath + "/".
func (c *composition) glob(pattern string) ([]string, error) {
	base := c.opts.BasePath
	if strings.HasPrefix(pattern, "/") {
		pattern = strings.TrimLeft(pattern, "/")
		base += "/"
	}

	matches, err := doublestar.FilepathGlob(filepath.Join(globEscape(base), pattern))
	if err != nil {
		return nil, &ComposerError{Msg: fmt.Sprintf("Include: %s is not a valid pattern (base_path:%s)", pattern, c.opts.BasePath), Err: err}
	}
	if len(matches) == 0 {
		return nil, c.notAFileErr(pattern)
	}

	sort.Strings(matches)

	for _, match := range matches {
		info, err := os.Stat(match)
		if err != nil || !info.Mode().IsRegular() {
			return nil, c.notAFileErr(match)
		}
	}
	return matches, nil
}

func (c *composition) notAFileErr(path string) error {
	return &ComposerError{Msg: fmt.Sprintf(
		"Include: %s doesn't exist or not a file (base_path:%s).", path, c.opts.BasePath)}
}

// tidyNamespace replaces as3ninja.include with the included files
// and removes bookkeeping keys.
func (c *composition) tidyNamespace(config map[string]interface{}) {
	ns, ok := config[Namespace].(map[string]interface{})
	if !ok {
		return
	}

	if isTruthy(ns[includeKey]) {
		included := make([]interface{}, len(c.included))
		for i, path := range c.included {
			included[i] = path
		}
		ns[includeKey] = included
	}

	delete(ns, deserializeFileKey)

	if len(ns) == 0 {
		delete(config, Namespace)
	}
}

func namespacePatterns(config map[string]interface{}, key string) ([]string, error) {
	ns, ok := config[Namespace].(map[string]interface{})
	if !ok {
		return nil, nil
	}

	switch typedVal := ns[key].(type) {
	case nil:
		return nil, nil
	case string:
		return []string{typedVal}, nil
	case []string:
		return typedVal, nil
	case []interface{}:
		var result []string
		for _, item := range typedVal {
			str, ok := item.(string)
			if !ok {
				return nil, &ComposerError{Msg: fmt.Sprintf(
					"Expected %s.%s to contain strings, but found %T", Namespace, key, item)}
			}
			result = append(result, str)
		}
		return result, nil
	default:
		return nil, &ComposerError{Msg: fmt.Sprintf(
			"Expected %s.%s to be a string or a list of strings, but was %T", Namespace, key, typedVal)}
	}
}

func isTruthy(val interface{}) bool {
	switch typedVal := val.(type) {
	case nil:
		return false
	case string:
		return typedVal != ""
	case []interface{}:
		return len(typedVal) > 0
	case []string:
		return len(typedVal) > 0
	case bool:
		return typedVal
	default:
		return true
	}
}

func globEscape(path string) string {
	var sb strings.Builder
	for _, r := range path {
		if strings.ContainsRune(`*?[]{}\`, r) {
			sb.WriteRune('\\')
		}
		sb.WriteRune(r)
	}
	return sb.String()
}
