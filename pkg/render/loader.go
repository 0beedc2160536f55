// Copyright 2024 The Carvel Authors.
// SPDX-License-Identifier: Apache-2.0

package render

import (
	"fmt"
	"path/filepath"
	"strings"
	"text/template"
	"text/template/parse"

	"carvel.dev/as3ninja/pkg/files"
)

type templateLoader struct {
	searchPath string
}

// Load reads the template name relative to the search path.
// Names may not escape the search path.
func (l templateLoader) Load(name string) (string, error) {
	path, err := l.path(name)
	if err != nil {
		return "", err
	}

	data, err := files.NewLocalSource(path).Bytes()
	if err != nil {
		return "", &TemplateNotFoundError{Name: name, SearchPath: l.searchPath, Err: err}
	}
	return string(data), nil
}

func (l templateLoader) path(name string) (string, error) {
	if filepath.IsAbs(name) {
		return "", &TemplateNotFoundError{Name: name, SearchPath: l.searchPath, Err: fmt.Errorf("absolute paths are not allowed")}
	}
	for _, segment := range strings.Split(filepath.ToSlash(name), "/") {
		if segment == ".." {
			return "", &TemplateNotFoundError{Name: name, SearchPath: l.searchPath, Err: fmt.Errorf("'..' is not allowed")}
		}
	}
	return filepath.Join(l.searchPath, name), nil
}

// LoadReferenced parses every template referenced via {{template "name"}}
// that is not defined yet, recursively. Missing files are skipped so that
// templates referenced in branches that never execute do not fail.
// Sources of loaded files are recorded in sources.
func (l templateLoader) LoadReferenced(tpl *template.Template, sources map[string]string) error {
	attempted := map[string]bool{}

	for {
		var pending []string

		for _, t := range tpl.Templates() {
			if t.Tree == nil {
				continue
			}
			for _, name := range referencedTemplates(t.Tree.Root) {
				if !attempted[name] && tpl.Lookup(name) == nil {
					attempted[name] = true
					pending = append(pending, name)
				}
			}
		}

		if len(pending) == 0 {
			return nil
		}

		for _, name := range pending {
			src, err := l.Load(name)
			if err != nil {
				continue
			}

			sources[name] = src

			_, err = tpl.New(name).Parse(src)
			if err != nil {
				return err
			}
		}
	}
}

func referencedTemplates(node parse.Node) []string {
	var names []string

	switch typedNode := node.(type) {
	case *parse.ListNode:
		if typedNode == nil {
			return nil
		}
		for _, n := range typedNode.Nodes {
			names = append(names, referencedTemplates(n)...)
		}

	case *parse.TemplateNode:
		names = append(names, typedNode.Name)

	case *parse.IfNode:
		names = append(names, referencedTemplates(typedNode.List)...)
		names = append(names, referencedTemplates(typedNode.ElseList)...)

	case *parse.RangeNode:
		names = append(names, referencedTemplates(typedNode.List)...)
		names = append(names, referencedTemplates(typedNode.ElseList)...)

	case *parse.WithNode:
		names = append(names, referencedTemplates(typedNode.List)...)
		names = append(names, referencedTemplates(typedNode.ElseList)...)
	}

	return names
}
