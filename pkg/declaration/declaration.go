// Copyright 2024 The Carvel Authors.
// SPDX-License-Identifier: Apache-2.0

/*
Package declaration builds AS3 declarations by rendering a declaration
template against a configuration and parsing the result as JSON.
*/
package declaration

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"

	"carvel.dev/as3ninja/pkg/deserialize"
	"carvel.dev/as3ninja/pkg/ninjalibrary"
	"carvel.dev/as3ninja/pkg/orderedmap"
	"carvel.dev/as3ninja/pkg/render"
)

const schemaKey = "$schema"

type BuildOpts struct {
	// TemplateText takes precedence over as3ninja.declaration_template.
	TemplateText string
	// SearchPath defaults to "."
	SearchPath string
	// Registry defaults to the ninjalibrary extensions.
	Registry *render.Registry
}

// Declaration is a rendered AS3 declaration. It is not modified after Build.
type Declaration struct {
	doc      *orderedmap.Map
	template string

	jsonOnce sync.Once
	json     string
	jsonErr  error
}

// Build renders a declaration.
func Build(configuration map[string]interface{}, opts BuildOpts) (*Declaration, error) {
	return BuildContext(context.Background(), configuration, opts)
}

// BuildContext is like Build. ctx is made available to extensions
// talking to other systems, for example the secret store.
func BuildContext(ctx context.Context, configuration map[string]interface{}, opts BuildOpts) (*Declaration, error) {
	if len(opts.SearchPath) == 0 {
		opts.SearchPath = "."
	}
	if opts.Registry == nil {
		opts.Registry = ninjalibrary.NewRegistry(ninjalibrary.DefaultOpts())
	}

	templateText := opts.TemplateText
	if len(templateText) == 0 {
		var err error
		templateText, err = readTemplate(configuration, opts.SearchPath)
		if err != nil {
			return nil, err
		}
	}

	engine := render.NewEngine(render.EngineOpts{SearchPath: opts.SearchPath, Registry: opts.Registry})

	rendered, err := engine.RenderWithContext(ctx, templateText, configuration)
	if err != nil {
		return nil, err
	}

	val, err := orderedmap.Decode([]byte(rendered))
	if err != nil {
		var decodeErr *orderedmap.DecodeError
		if errors.As(err, &decodeErr) {
			return nil, newJSONDecodeError(decodeErr.Msg, decodeErr.Offset, rendered)
		}
		return nil, err
	}

	doc, ok := val.(*orderedmap.Map)
	if !ok {
		return nil, fmt.Errorf("Expected declaration to be a JSON object, but was %s", jsonTypeName(val))
	}

	// AS3 rejects declarations carrying $schema
	doc.Delete(schemaKey)

	return &Declaration{doc: doc, template: templateText}, nil
}

func readTemplate(configuration map[string]interface{}, searchPath string) (string, error) {
	ninja, ok := configuration["as3ninja"].(map[string]interface{})
	if !ok {
		return "", &MissingTemplateError{Reason: "as3ninja namespace is missing"}
	}

	val, found := ninja["declaration_template"]
	if !found {
		return "", &MissingTemplateError{Reason: "declaration_template is missing"}
	}

	path, ok := val.(string)
	if !ok || len(path) == 0 {
		return "", &MissingTemplateError{Reason: fmt.Sprintf("expected a non-empty string, but was %T", val)}
	}

	return deserialize.Text(filepath.Join(searchPath, path))
}

// Dict returns the declaration as nested maps.
func (d *Declaration) Dict() map[string]interface{} {
	return orderedmap.Conversion{Object: d.doc}.AsUnorderedStringMaps().(map[string]interface{})
}

// Ordered returns a copy of the declaration preserving key order.
func (d *Declaration) Ordered() *orderedmap.Map {
	return orderedmap.Conversion{Object: d.doc}.FromUnorderedMaps().(*orderedmap.Map)
}

// JSON returns the compact JSON serialization in template key order.
func (d *Declaration) JSON() (string, error) {
	d.jsonOnce.Do(func() {
		bs, err := orderedmap.Marshal(d.doc)
		d.json, d.jsonErr = string(bs), err
	})
	return d.json, d.jsonErr
}

// Template returns the template text the declaration was rendered from.
func (d *Declaration) Template() string { return d.template }

func jsonTypeName(val interface{}) string {
	switch val.(type) {
	case []interface{}:
		return "an array"
	case string:
		return "a string"
	case nil:
		return "null"
	case bool:
		return "a boolean"
	default:
		return "a number"
	}
}
