// Copyright 2024 The Carvel Authors.
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"fmt"
	"os"
	"strings"

	"carvel.dev/as3ninja/pkg/deserialize"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// VarsFlags build a configuration overlay from the command line
// and the environment.
type VarsFlags struct {
	EnvFromStrings []string
	EnvFromYAML    []string
	KVsFromStrings []string
	KVsFromYAML    []string
	KVsFromFiles   []string

	// Environ defaults to os.Environ
	Environ func() []string
}

func (s *VarsFlags) Set(cmd *cobra.Command) {
	cmd.Flags().StringArrayVar(&s.EnvFromStrings, "var-env", nil, "Extract configuration values (as strings) from prefixed env vars (format: PREFIX for PREFIX_as3ninja__key1=str) (can be specified multiple times)")
	cmd.Flags().StringArrayVar(&s.EnvFromYAML, "var-env-yaml", nil, "Extract configuration values (parsed as YAML) from prefixed env vars (format: PREFIX for PREFIX_as3ninja__key1=true) (can be specified multiple times)")
	cmd.Flags().StringArrayVar(&s.KVsFromStrings, "var", nil, "Set configuration value to given value, as string (format: key1.subkey=123) (can be specified multiple times)")
	cmd.Flags().StringArrayVar(&s.KVsFromYAML, "var-yaml", nil, "Set configuration value to given value, parsed as YAML (format: key1.subkey=true) (can be specified multiple times)")
	cmd.Flags().StringArrayVar(&s.KVsFromFiles, "var-file", nil, "Set configuration value to given file contents, as string (format: key1.subkey=/file/path) (can be specified multiple times)")
}

type varsFlagsSource struct {
	Values        []string
	TransformFunc func(string) (interface{}, error)
}

type keyValue struct {
	Key   string
	Value interface{}
}

// Overlay returns the values as nested maps, nil when no values were given.
func (s *VarsFlags) Overlay() (map[string]interface{}, error) {
	plainValFunc := func(rawVal string) (interface{}, error) { return rawVal, nil }

	yamlValFunc := func(rawVal string) (interface{}, error) {
		val, err := s.parseYAML(rawVal)
		if err != nil {
			return nil, fmt.Errorf("Deserializing YAML value: %s", err)
		}
		return val, nil
	}

	var result []keyValue

	for _, src := range []varsFlagsSource{{s.EnvFromStrings, plainValFunc}, {s.EnvFromYAML, yamlValFunc}} {
		for _, envPrefix := range src.Values {
			vals, err := s.env(envPrefix, src.TransformFunc)
			if err != nil {
				return nil, fmt.Errorf("Extracting configuration values from env under prefix '%s': %s", envPrefix, err)
			}
			result = append(result, vals...)
		}
	}

	// KVs and files take precedence over environment variables
	for _, src := range []varsFlagsSource{{s.KVsFromStrings, plainValFunc}, {s.KVsFromYAML, yamlValFunc}} {
		for _, kv := range src.Values {
			val, err := s.kv(kv, src.TransformFunc)
			if err != nil {
				return nil, fmt.Errorf("Extracting configuration value from KV: %s", err)
			}
			result = append(result, val)
		}
	}

	for _, file := range s.KVsFromFiles {
		val, err := s.file(file)
		if err != nil {
			return nil, fmt.Errorf("Extracting configuration value from file: %s", err)
		}
		result = append(result, val)
	}

	if len(result) == 0 {
		return nil, nil
	}

	return s.convertIntoNestedMap(result)
}

func (s *VarsFlags) env(prefix string, valueFunc func(string) (interface{}, error)) ([]keyValue, error) {
	environ := s.Environ
	if environ == nil {
		environ = os.Environ
	}

	var result []keyValue

	for _, envVar := range environ() {
		pieces := strings.SplitN(envVar, "=", 2)
		if len(pieces) != 2 {
			return nil, fmt.Errorf("Expected env variable to be key-value pair (format: key=value)")
		}

		if !strings.HasPrefix(pieces[0], prefix+"_") {
			continue
		}

		val, err := valueFunc(pieces[1])
		if err != nil {
			return nil, fmt.Errorf("Extracting configuration value from env variable '%s': %s", pieces[0], err)
		}

		// '__' gets translated into a '.' since periods may not be liked by shells
		result = append(result, keyValue{strings.Replace(strings.TrimPrefix(pieces[0], prefix+"_"), "__", ".", -1), val})
	}

	return result, nil
}

func (s *VarsFlags) kv(kv string, valueFunc func(string) (interface{}, error)) (keyValue, error) {
	pieces := strings.SplitN(kv, "=", 2)
	if len(pieces) != 2 || len(pieces[0]) == 0 {
		return keyValue{}, fmt.Errorf("Expected format key=value")
	}

	val, err := valueFunc(pieces[1])
	if err != nil {
		return keyValue{}, fmt.Errorf("Deserializing value for key '%s': %s", pieces[0], err)
	}

	return keyValue{pieces[0], val}, nil
}

func (s *VarsFlags) parseYAML(data string) (interface{}, error) {
	var val interface{}

	err := yaml.Unmarshal([]byte(data), &val)
	if err != nil {
		return nil, err
	}

	return deserialize.Normalize(val), nil
}

func (s *VarsFlags) file(kv string) (keyValue, error) {
	pieces := strings.SplitN(kv, "=", 2)
	if len(pieces) != 2 || len(pieces[0]) == 0 {
		return keyValue{}, fmt.Errorf("Expected format key=/file/path")
	}

	contents, err := os.ReadFile(pieces[1])
	if err != nil {
		return keyValue{}, fmt.Errorf("Reading file '%s'", pieces[1])
	}

	return keyValue{pieces[0], string(contents)}, nil
}

func (s *VarsFlags) convertIntoNestedMap(vals []keyValue) (map[string]interface{}, error) {
	result := map[string]interface{}{}

	for _, kv := range vals {
		keyPieces := strings.Split(kv.Key, ".")
		currMap := result

		for _, keyPiece := range keyPieces[:len(keyPieces)-1] {
			subMap, found := currMap[keyPiece]
			if found {
				typedSubMap, ok := subMap.(map[string]interface{})
				if !ok {
					return nil, fmt.Errorf("Expected key '%s' to not conflict with other configuration values at piece '%s'", kv.Key, keyPiece)
				}
				currMap = typedSubMap
			} else {
				newCurrMap := map[string]interface{}{}
				currMap[keyPiece] = newCurrMap
				currMap = newCurrMap
			}
		}

		currMap[keyPieces[len(keyPieces)-1]] = kv.Value
	}

	return result, nil
}
