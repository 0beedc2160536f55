// Copyright 2024 The Carvel Authors.
// SPDX-License-Identifier: Apache-2.0

/*
Package deserialize turns JSON, YAML and TOML data sources into plain Go values.

Values are normalized so that every mapping is a map[string]interface{}, every
sequence is a []interface{} and integers are int64. JSON is tried first
(comments and trailing commas are tolerated), then YAML. TOML is only used
when the source path carries a .toml extension.

YAML documents may reference other files with the !include tag:

	services: !include services/*.yaml
	common: !include common.yaml
*/
package deserialize

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"carvel.dev/as3ninja/pkg/files"
	"github.com/BurntSushi/toml"
	"github.com/tidwall/jsonc"
)

const (
	DefaultMaxIncludeDepth = 50

	neitherJSONNorYAML = "Could not deserialize datasource. datasource is neither valid JSON nor YAML."
)

// Options controls how data sources are located and how deep
// YAML !include directives may nest.
type Options struct {
	// BaseDir is used to resolve relative !include paths.
	// Empty means the process working directory.
	BaseDir string
	// MaxIncludeDepth bounds nested !include directives.
	// Zero means DefaultMaxIncludeDepth.
	MaxIncludeDepth int
}

// File deserializes the file at path using default options.
func File(path string) (interface{}, error) {
	return Options{}.File(path)
}

// String deserializes text, resolving !include directives relative to baseDir.
func String(text, baseDir string) (interface{}, error) {
	return Options{BaseDir: baseDir}.Bytes("string", []byte(text))
}

// Text returns the raw contents of the file at path.
func Text(path string) (string, error) {
	src := files.NewLocalSource(path)
	data, err := src.Bytes()
	if err != nil {
		return "", &DeserializeError{Source: src.Description(), Reason: "Reading", Err: err}
	}
	return string(data), nil
}

func (o Options) File(path string) (interface{}, error) {
	return o.Source(files.NewLocalSource(path))
}

// Source deserializes src picking a format based on its path.
func (o Options) Source(src files.Source) (interface{}, error) {
	return loader{opts: o}.source(src)
}

// Bytes deserializes data trying JSON first and YAML second.
func (o Options) Bytes(desc string, data []byte) (interface{}, error) {
	return loader{opts: o}.bytes(desc, files.TypeUnknown, data)
}

func (o Options) maxIncludeDepth() int {
	if o.MaxIncludeDepth > 0 {
		return o.MaxIncludeDepth
	}
	return DefaultMaxIncludeDepth
}

type loader struct {
	opts  Options
	depth int
}

func (l loader) source(src files.Source) (interface{}, error) {
	data, err := src.Bytes()
	if err != nil {
		return nil, &DeserializeError{Source: src.Description(), Reason: "Reading", Err: err}
	}
	return l.bytes(src.Description(), files.TypeForPath(src.Path()), data)
}

func (l loader) bytes(desc string, typ files.Type, data []byte) (interface{}, error) {
	if typ == files.TypeTOML {
		val, err := decodeTOML(data)
		if err != nil {
			return nil, &DeserializeError{Source: desc, Reason: "Could not deserialize TOML datasource.", Err: err}
		}
		return val, nil
	}

	val, jsonErr := decodeJSON(data)
	if jsonErr == nil {
		return val, nil
	}

	val, err := l.decodeYAML(desc, data)
	if err != nil {
		var depthErr *IncludeDepthError
		var deserErr *DeserializeError
		if errors.As(err, &depthErr) || errors.As(err, &deserErr) {
			return nil, err
		}
		return nil, &DeserializeError{Source: desc, Reason: neitherJSONNorYAML, Err: err}
	}
	return val, nil
}

func decodeJSON(data []byte) (interface{}, error) {
	dec := json.NewDecoder(bytes.NewReader(jsonc.ToJSON(data)))
	dec.UseNumber()

	var val interface{}
	err := dec.Decode(&val)
	if err != nil {
		return nil, err
	}

	_, err = dec.Token()
	if err != io.EOF {
		return nil, fmt.Errorf("Expected end of JSON document")
	}

	return Normalize(val), nil
}

func decodeTOML(data []byte) (interface{}, error) {
	var val map[string]interface{}
	_, err := toml.NewDecoder(bytes.NewReader(data)).Decode(&val)
	if err != nil {
		return nil, err
	}
	return Normalize(val), nil
}

// Normalize converts decoded values into the canonical representation:
// map[string]interface{}, []interface{}, int64 and float64.
func Normalize(val interface{}) interface{} {
	switch typedVal := val.(type) {
	case map[string]interface{}:
		result := make(map[string]interface{}, len(typedVal))
		for k, v := range typedVal {
			result[k] = Normalize(v)
		}
		return result

	case map[interface{}]interface{}:
		result := make(map[string]interface{}, len(typedVal))
		for k, v := range typedVal {
			result[fmt.Sprintf("%v", k)] = Normalize(v)
		}
		return result

	case []interface{}:
		result := make([]interface{}, len(typedVal))
		for i, v := range typedVal {
			result[i] = Normalize(v)
		}
		return result

	case []map[string]interface{}:
		result := make([]interface{}, len(typedVal))
		for i, v := range typedVal {
			result[i] = Normalize(v)
		}
		return result

	case json.Number:
		if i, err := typedVal.Int64(); err == nil {
			return i
		}
		f, err := typedVal.Float64()
		if err != nil {
			return typedVal.String()
		}
		return f

	case int:
		return int64(typedVal)
	case int32:
		return int64(typedVal)
	case uint64:
		if typedVal > 1<<63-1 {
			return float64(typedVal)
		}
		return int64(typedVal)
	case float32:
		return float64(typedVal)

	case time.Time:
		return typedVal.Format(time.RFC3339Nano)

	default:
		return val
	}
}
