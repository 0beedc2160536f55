// Copyright 2024 The Carvel Authors.
// SPDX-License-Identifier: Apache-2.0

package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"

	"carvel.dev/as3ninja/pkg/deserialize"
	"carvel.dev/as3ninja/pkg/merge"
	"carvel.dev/as3ninja/pkg/orderedmap"
	"github.com/xeipuuv/gojsonschema"
)

// Schema is the AS3 schema of a single version.
type Schema struct {
	registry *Registry
	version  string
	document map[string]interface{}
}

func (s *Schema) Version() string { return s.version }

func (s *Schema) IsLatest() bool {
	latest, err := s.registry.LatestVersion()
	return err == nil && latest == s.version
}

// Document returns the parsed schema document. It must not be modified.
func (s *Schema) Document() map[string]interface{} { return s.document }

func (s *Schema) JSON() (string, error) {
	docBs, err := json.Marshal(s.document)
	if err != nil {
		return "", err
	}
	return string(docBs), nil
}

// Validate validates declaration against the schema. version selects
// the schema version: empty uses this schema's version, "auto" uses the
// declaration's schemaVersion.
func (s *Schema) Validate(declaration interface{}, version string) error {
	decl, err := declarationValue(declaration)
	if err != nil {
		return err
	}

	switch version {
	case "":
		version = s.version

	case AutoVersion:
		version, err = declaredVersion(decl)
		if err != nil {
			return err
		}
		version, err = s.registry.resolve(version)
		if err != nil {
			return err
		}

	default:
		version, err = s.registry.resolve(version)
		if err != nil {
			return err
		}
	}

	validator, err := s.registry.validator(version)
	if err != nil {
		return err
	}

	result, err := validator.Validate(gojsonschema.NewGoLoader(decl))
	if err != nil {
		return &AS3SchemaError{Msg: "Validating declaration", Err: err}
	}

	if !result.Valid() {
		return newValidationError(version, result.Errors())
	}
	return nil
}

func newValidationError(version string, resultErrs []gojsonschema.ResultError) *ValidationError {
	err := &ValidationError{
		Message:   fmt.Sprintf("AS3 Validation Error: declaration does not conform to schema version %s", version),
		Validator: "schema",
		Path:      "(root)",
	}
	for _, resultErr := range resultErrs {
		err.Context = append(err.Context, ValidationError{
			Message:   resultErr.Description(),
			Validator: resultErr.Type(),
			Path:      resultErr.Field(),
			Value:     resultErr.Value(),
		})
	}
	return err
}

func declarationValue(declaration interface{}) (interface{}, error) {
	switch typedDecl := declaration.(type) {
	case string:
		return decodeDeclaration([]byte(typedDecl))
	case []byte:
		return decodeDeclaration(typedDecl)
	case map[string]interface{}:
		return typedDecl, nil
	case *orderedmap.Map:
		return orderedmap.Conversion{Object: typedDecl}.AsUnorderedStringMaps(), nil
	case interface{ Dict() map[string]interface{} }:
		return typedDecl.Dict(), nil
	default:
		return nil, fmt.Errorf("Expected declaration to be a JSON string or mapping, but was %T", declaration)
	}
}

func decodeDeclaration(data []byte) (interface{}, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var val interface{}
	err := dec.Decode(&val)
	if err != nil {
		return nil, fmt.Errorf("Decoding declaration: %w", err)
	}
	return deserialize.Normalize(val), nil
}

func declaredVersion(decl interface{}) (string, error) {
	val := decl
	for _, key := range []string{"declaration", "schemaVersion"} {
		typedVal, ok := val.(map[string]interface{})
		if !ok {
			return "", &SchemaVersionError{Msg: "Expected declaration to specify declaration.schemaVersion"}
		}
		val, ok = typedVal[key]
		if !ok {
			return "", &SchemaVersionError{Msg: "Expected declaration to specify declaration.schemaVersion"}
		}
	}

	version, ok := val.(string)
	if !ok {
		return "", &SchemaVersionError{Msg: fmt.Sprintf("Expected declaration.schemaVersion to be a string, but was %T", val)}
	}
	return version, nil
}

// resolve checks version's format and makes sure it is loaded.
func (r *Registry) resolve(version string) (string, error) {
	err := checkVersionFormat(version, r.opts.MinVersion)
	if err != nil {
		return "", err
	}
	err = r.load(version)
	if err != nil {
		return "", err
	}
	return r.CheckVersion(version)
}

func (r *Registry) validator(version string) (*gojsonschema.Schema, error) {
	if validator, found := r.validators.Get(version); found {
		return validator, nil
	}

	doc, docPath, found := r.document(version)
	if !found {
		// Update drops all documents but latest
		err := r.load(version)
		if err != nil {
			return nil, err
		}
		doc, docPath, found = r.document(version)
		if !found {
			return nil, &SchemaVersionError{Msg: fmt.Sprintf("schema version:%s is unknown", version), Unknown: true}
		}
	}

	refURL, err := fileURI(docPath)
	if err != nil {
		return nil, &AS3SchemaError{Msg: "Building schema reference URL", Err: err}
	}

	// references are rewritten on a copy; cached documents stay untouched
	rewritten := rewriteRefs(merge.DeepCopy(doc), refURL)

	loader := gojsonschema.NewSchemaLoader()
	loader.Validate = true
	loader.Draft = gojsonschema.Draft7
	loader.AutoDetect = false

	validator, err := loader.Compile(gojsonschema.NewGoLoader(rewritten))
	if err != nil {
		return nil, &AS3SchemaError{Msg: "JSON Schema Error", Err: err}
	}

	r.validators.Add(version, validator)
	return validator, nil
}

// rewriteRefs prefixes local references ("#...") with refURL in place.
func rewriteRefs(node interface{}, refURL string) interface{} {
	switch typedNode := node.(type) {
	case map[string]interface{}:
		for k, v := range typedNode {
			if ref, ok := v.(string); ok && k == "$ref" && strings.HasPrefix(ref, "#") {
				typedNode[k] = refURL + ref
				continue
			}
			rewriteRefs(v, refURL)
		}
	case []interface{}:
		for _, item := range typedNode {
			rewriteRefs(item, refURL)
		}
	}
	return node
}

func fileURI(path string) (string, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	return (&url.URL{Scheme: "file", Path: filepath.ToSlash(absPath)}).String(), nil
}
