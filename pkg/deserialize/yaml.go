// Copyright 2024 The Carvel Authors.
// SPDX-License-Identifier: Apache-2.0

package deserialize

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"carvel.dev/as3ninja/pkg/files"
	"github.com/bmatcuk/doublestar/v4"
	"gopkg.in/yaml.v3"
)

const includeTag = "!include"

func (l loader) decodeYAML(desc string, data []byte) (interface{}, error) {
	var doc yaml.Node

	err := yaml.Unmarshal(data, &doc)
	if err != nil {
		return nil, err
	}

	// empty document
	if doc.Kind == 0 {
		return nil, nil
	}

	err = l.resolveIncludes(desc, &doc)
	if err != nil {
		return nil, err
	}

	var val interface{}

	err = doc.Decode(&val)
	if err != nil {
		return nil, err
	}

	return Normalize(val), nil
}

func (l loader) resolveIncludes(desc string, node *yaml.Node) error {
	if node.Tag == includeTag {
		val, err := l.include(desc, node)
		if err != nil {
			return err
		}

		var replacement yaml.Node

		err = replacement.Encode(val)
		if err != nil {
			return &DeserializeError{Source: desc, Reason: "Encoding included value", Err: err}
		}

		*node = replacement
		return nil
	}

	for _, child := range node.Content {
		err := l.resolveIncludes(desc, child)
		if err != nil {
			return err
		}
	}
	return nil
}

func (l loader) include(desc string, node *yaml.Node) (interface{}, error) {
	if l.depth+1 > l.opts.maxIncludeDepth() {
		return nil, &IncludeDepthError{Source: desc, MaxDepth: l.opts.maxIncludeDepth()}
	}

	var paths []string

	switch node.Kind {
	case yaml.ScalarNode:
		matches, err := l.glob(node.Value)
		if err != nil {
			return nil, &DeserializeError{Source: desc, Reason: "Resolving " + includeTag, Err: err}
		}

		switch len(matches) {
		case 0:
			return nil, &DeserializeError{
				Source: desc,
				Reason: fmt.Sprintf("No file found based on node:%s", node.Value),
				Err:    fs.ErrNotExist,
			}
		case 1:
			return l.includeFile(matches[0])
		}
		paths = matches

	case yaml.SequenceNode:
		for _, entry := range node.Content {
			matches, err := l.glob(entry.Value)
			if err != nil {
				return nil, &DeserializeError{Source: desc, Reason: "Resolving " + includeTag, Err: err}
			}
			paths = append(paths, matches...)
		}

	default:
		return nil, &DeserializeError{
			Source: desc,
			Reason: fmt.Sprintf("YAML node of kind %s is not supported by %s (line %d)", nodeKindName(node.Kind), includeTag, node.Line),
		}
	}

	result := []interface{}{}
	for _, path := range paths {
		val, err := l.includeFile(path)
		if err != nil {
			return nil, err
		}
		result = append(result, val)
	}
	return result, nil
}

func (l loader) includeFile(path string) (interface{}, error) {
	nested := loader{opts: l.opts, depth: l.depth + 1}
	return nested.source(files.NewLocalSource(path))
}

// glob expands pattern when it contains a wildcard,
// otherwise the (possibly missing) path is returned as is.
func (l loader) glob(pattern string) ([]string, error) {
	if !filepath.IsAbs(pattern) && l.opts.BaseDir != "" {
		pattern = filepath.Join(l.opts.BaseDir, pattern)
	}

	if !strings.Contains(pattern, "*") {
		return []string{pattern}, nil
	}

	matches, err := doublestar.FilepathGlob(pattern, doublestar.WithFilesOnly())
	if err != nil {
		return nil, err
	}

	sort.Strings(matches)
	return matches, nil
}

func nodeKindName(kind yaml.Kind) string {
	switch kind {
	case yaml.MappingNode:
		return "mapping"
	case yaml.SequenceNode:
		return "sequence"
	case yaml.AliasNode:
		return "alias"
	case yaml.DocumentNode:
		return "document"
	default:
		return "scalar"
	}
}
