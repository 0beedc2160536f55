// Copyright 2024 The Carvel Authors.
// SPDX-License-Identifier: Apache-2.0

package schema_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"carvel.dev/as3ninja/pkg/declaration"
	"carvel.dev/as3ninja/pkg/orderedmap"
	"carvel.dev/as3ninja/pkg/schema"
	"github.com/stretchr/testify/require"
)

const schemaTpl = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "title": "AS3 %s",
  "type": "object",
  "required": %s,
  "properties": {
    "class": {"type": "string", "enum": ["ADC", "AS3"]},
    "id": {"type": "string"},
    "schemaVersion": {"type": "string"},
    "declaration": {"type": "object"},
    "virtualAddress": {"$ref": "#/definitions/address"}
  },
  "additionalProperties": {"$ref": "#/definitions/tenant"},
  "definitions": {
    "address": {"type": "string", "format": "f5ip"},
    "tenant": {
      "type": "object",
      "required": ["class"],
      "properties": {"class": {"const": "Tenant"}}
    }
  }
}`

func writeSchema(t *testing.T, dir, version, contents string) {
	versionDir := filepath.Join(dir, "schema", version)
	require.NoError(t, os.MkdirAll(versionDir, 0700))

	name := fmt.Sprintf("as3-schema-%s-1.json", version)
	if version == "latest" {
		name = "as3-schema-3.20.0-1.json"
	}
	require.NoError(t, os.WriteFile(filepath.Join(versionDir, name), []byte(contents), 0600))
}

func populate(t *testing.T, dir string) {
	for _, version := range []string{"3.9.0", "3.11.1", "3.20.0", "latest"} {
		writeSchema(t, dir, version, fmt.Sprintf(schemaTpl, version, `["class"]`))
	}
	writeSchema(t, dir, "3.8.1", fmt.Sprintf(schemaTpl, "3.8.1", `["class", "id"]`))
	writeSchema(t, dir, "3.10.0", `{"broken": `)
}

type recordingUI struct {
	lock     sync.Mutex
	warnings []string
}

func (ui *recordingUI) Warnf(str string, args ...interface{}) {
	ui.lock.Lock()
	defer ui.lock.Unlock()
	ui.warnings = append(ui.warnings, fmt.Sprintf(str, args...))
}

func newRegistry(t *testing.T) (*schema.Registry, string, *recordingUI) {
	dir := t.TempDir()
	populate(t, dir)
	ui := &recordingUI{}
	return schema.NewRegistry(schema.RegistryOpts{Dir: dir, UI: ui}), dir, ui
}

type fakeFetcher struct {
	calls atomic.Int32
	fetch func(dir string)
}

func (f *fakeFetcher) Fetch(_ context.Context, dir string) error {
	f.calls.Add(1)
	f.fetch(dir)
	return nil
}

func TestVersions(t *testing.T) {
	registry, _, _ := newRegistry(t)

	versions, err := registry.Versions()
	require.NoError(t, err)
	require.Equal(t, []string{"3.20.0", "3.11.1", "3.10.0", "3.9.0", "3.8.1"}, versions)

	latest, err := registry.LatestVersion()
	require.NoError(t, err)
	require.Equal(t, "3.20.0", latest)
}

func TestOpen(t *testing.T) {
	registry, _, _ := newRegistry(t)

	latest, err := registry.Open("latest")
	require.NoError(t, err)
	require.Equal(t, "3.20.0", latest.Version())
	require.True(t, latest.IsLatest())
	require.Equal(t, "AS3 3.20.0", latest.Document()["title"])

	older, err := registry.Open("3.9.0")
	require.NoError(t, err)
	require.Equal(t, "3.9.0", older.Version())
	require.False(t, older.IsLatest())
	require.Equal(t, "AS3 3.9.0", older.Document()["title"])

	docJSON, err := older.JSON()
	require.NoError(t, err)
	require.Contains(t, docJSON, `"title":"AS3 3.9.0"`)
}

func TestOpenInvalidVersion(t *testing.T) {
	registry, _, _ := newRegistry(t)

	tests := []struct {
		version string
		errMsg  string
	}{
		{"3.7.0", "Minimum AS3 Schema version is 3.8.0, requested version:3.7.0"},
		{"3.8", "version:3.8 is not a valid version string"},
		{"v3.9.0", "version:v3.9.0 is not a valid version string"},
		{"3.9.0-beta", "version:3.9.0-beta is not a valid version string"},
		{"abc", "version:abc is not a valid version string"},
		{"3.99.0", "schema version:3.99.0 is unknown"},
	}

	for _, test := range tests {
		t.Run(test.version, func(t *testing.T) {
			_, err := registry.Open(test.version)
			require.ErrorContains(t, err, test.errMsg)

			var versionErr *schema.SchemaVersionError
			require.True(t, errors.As(err, &versionErr))
		})
	}
}

func TestOpenMinVersion(t *testing.T) {
	dir := t.TempDir()
	populate(t, dir)

	registry := schema.NewRegistry(schema.RegistryOpts{Dir: dir, MinVersion: "3.10.0"})

	_, err := registry.Open("3.9.0")
	require.EqualError(t, err, "Minimum AS3 Schema version is 3.10.0, requested version:3.9.0")

	_, err = registry.Open("3.11.1")
	require.NoError(t, err)
}

func TestOpenUnreadableSchema(t *testing.T) {
	registry, _, ui := newRegistry(t)

	_, err := registry.Open("3.10.0")
	require.EqualError(t, err, "Could not load schema version:3.10.0")

	var schemaErr *schema.AS3SchemaError
	require.True(t, errors.As(err, &schemaErr))

	require.NotEmpty(t, ui.warnings)
	require.Contains(t, ui.warnings[0], "as3-schema-3.10.0-1.json, schemafile ignored.")
}

func TestOpenFetchesMissingSchemas(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "f5-appsvcs-extension")
	fetcher := &fakeFetcher{fetch: func(dir string) { populate(t, dir) }}

	registry := schema.NewRegistry(schema.RegistryOpts{Dir: dir, Fetcher: fetcher})

	var wg sync.WaitGroup
	errs := make([]error, 8)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = registry.Open("3.11.1")
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}
	require.Equal(t, int32(1), fetcher.calls.Load())
}

func TestOpenWithoutSchemasOrFetcher(t *testing.T) {
	registry := schema.NewRegistry(schema.RegistryOpts{Dir: t.TempDir()})

	_, err := registry.Open("latest")
	require.ErrorContains(t, err, "Schema directory")
	require.ErrorContains(t, err, "does not exist")
}

func TestUpdate(t *testing.T) {
	registry, _, _ := newRegistry(t)

	_, err := registry.Open("latest")
	require.NoError(t, err)

	fetcher := &fakeFetcher{fetch: func(dir string) {
		populate(t, dir)
		writeSchema(t, dir, "3.21.0", fmt.Sprintf(schemaTpl, "3.21.0", `["class"]`))
	}}

	require.EqualError(t, registry.Update(context.Background()), "Updating schemas: no fetcher configured")

	dir := t.TempDir()
	registry = schema.NewRegistry(schema.RegistryOpts{Dir: dir, Fetcher: fetcher})

	populate(t, dir)

	latest, err := registry.LatestVersion()
	require.NoError(t, err)
	require.Equal(t, "3.20.0", latest)
	require.Equal(t, int32(0), fetcher.calls.Load())

	require.NoError(t, registry.Update(context.Background()))
	require.Equal(t, int32(1), fetcher.calls.Load())

	latest, err = registry.LatestVersion()
	require.NoError(t, err)
	require.Equal(t, "3.21.0", latest)
}

func TestSchemas(t *testing.T) {
	dir := t.TempDir()
	for _, version := range []string{"3.9.0", "3.20.0"} {
		writeSchema(t, dir, version, fmt.Sprintf(schemaTpl, version, `["class"]`))
	}

	registry := schema.NewRegistry(schema.RegistryOpts{Dir: dir})

	schemas, err := registry.Schemas()
	require.NoError(t, err)
	require.Len(t, schemas, 2)
	require.Equal(t, "3.20.0", schemas[0].Version())
	require.Equal(t, "3.9.0", schemas[1].Version())
}

func TestSchemasSkipsUnusableVersions(t *testing.T) {
	registry, dir, ui := newRegistry(t)
	writeSchema(t, dir, "3.7.0", fmt.Sprintf(schemaTpl, "3.7.0", `["class"]`))

	versions, err := registry.Versions()
	require.NoError(t, err)
	require.Equal(t, []string{"3.20.0", "3.11.1", "3.10.0", "3.9.0", "3.8.1", "3.7.0"}, versions)

	schemas, err := registry.Schemas()
	require.NoError(t, err)

	var loaded []string
	for _, s := range schemas {
		loaded = append(loaded, s.Version())
	}
	require.Equal(t, []string{"3.20.0", "3.11.1", "3.9.0", "3.8.1"}, loaded)

	warnings := strings.Join(ui.warnings, "")
	require.Contains(t, warnings, "Could not load schema version:3.10.0, schema ignored.")
	require.Contains(t, warnings, "Could not load schema version:3.7.0, schema ignored. (Minimum AS3 Schema version is 3.8.0, requested version:3.7.0)")
}

func TestOpenLatestUsesCachedPointer(t *testing.T) {
	registry, dir, _ := newRegistry(t)

	latest, err := registry.Open("latest")
	require.NoError(t, err)
	require.Equal(t, "3.20.0", latest.Version())

	writeSchema(t, dir, "3.21.0", fmt.Sprintf(schemaTpl, "3.21.0", `["class"]`))

	latest, err = registry.Open("latest")
	require.NoError(t, err)
	require.Equal(t, "3.20.0", latest.Version())

	// opening another version scans the directory again
	_, err = registry.Open("3.21.0")
	require.NoError(t, err)

	latest, err = registry.Open("latest")
	require.NoError(t, err)
	require.Equal(t, "3.21.0", latest.Version())
}

func TestValidateAfterUpdate(t *testing.T) {
	dir := t.TempDir()
	populate(t, dir)

	fetcher := &fakeFetcher{fetch: func(dir string) { populate(t, dir) }}
	registry := schema.NewRegistry(schema.RegistryOpts{Dir: dir, Fetcher: fetcher})

	s, err := registry.Open("3.9.0")
	require.NoError(t, err)

	decl := `{"class": "ADC"}`
	require.NoError(t, s.Validate(decl, ""))

	require.NoError(t, registry.Update(context.Background()))

	require.NoError(t, s.Validate(decl, ""))

	err = s.Validate(`{"class": "Other"}`, "")
	var validationErr *schema.ValidationError
	require.True(t, errors.As(err, &validationErr))
	require.Contains(t, validationErr.Message, "schema version 3.9.0")
}

func TestValidate(t *testing.T) {
	registry, _, _ := newRegistry(t)

	s, err := registry.Open("latest")
	require.NoError(t, err)

	valid := `{"class": "ADC", "id": "a", "virtualAddress": "192.0.2.0%1/24", "tenant": {"class": "Tenant"}}`

	ordered, err := orderedmap.Decode([]byte(valid))
	require.NoError(t, err)

	for _, decl := range []interface{}{
		valid,
		[]byte(valid),
		map[string]interface{}{"class": "AS3"},
		ordered,
	} {
		require.NoError(t, s.Validate(decl, ""))
	}
}

func TestValidateViolations(t *testing.T) {
	registry, _, _ := newRegistry(t)

	s, err := registry.Open("latest")
	require.NoError(t, err)

	err = s.Validate(`{"virtualAddress": "127.0.0.1", "tenant": {"class": "Tenant"}}`, "")
	require.Error(t, err)

	var validationErr *schema.ValidationError
	require.True(t, errors.As(err, &validationErr))
	require.Contains(t, validationErr.Message, "schema version 3.20.0")
	require.Len(t, validationErr.Context, 2)

	validators := map[string]string{}
	for _, ctx := range validationErr.Context {
		validators[ctx.Validator] = ctx.Message
	}
	require.Equal(t, "class is required", validators["required"])
	require.Contains(t, validators["format"], "f5ip")

	require.Contains(t, err.Error(), "class is required")
	require.Contains(t, err.Error(), "(validator: required)")
}

func TestValidateRendered(t *testing.T) {
	registry, _, _ := newRegistry(t)

	decl, err := declaration.Build(map[string]interface{}{"id": "my-id", "name": "my-tenant"}, declaration.BuildOpts{
		TemplateText: `{"id":"{{ninja.id}}","{{ninja.name}}":{"class":"Tenant"}}`,
	})
	require.NoError(t, err)

	s, err := registry.Open("latest")
	require.NoError(t, err)

	err = s.Validate(decl, "")

	var validationErr *schema.ValidationError
	require.True(t, errors.As(err, &validationErr))
	require.Contains(t, err.Error(), "class")
}

func TestValidateVersionSelection(t *testing.T) {
	registry, _, _ := newRegistry(t)

	s, err := registry.Open("latest")
	require.NoError(t, err)

	// 3.8.1 additionally requires id
	decl := map[string]interface{}{
		"class":       "AS3",
		"declaration": map[string]interface{}{"schemaVersion": "3.8.1"},
	}

	require.NoError(t, s.Validate(decl, ""))
	require.Error(t, s.Validate(decl, "auto"))
	require.Error(t, s.Validate(decl, "3.8.1"))
	require.NoError(t, s.Validate(decl, "3.9.0"))

	err = s.Validate(decl, "3.99.0")
	require.EqualError(t, err, "schema version:3.99.0 is unknown")

	var versionErr *schema.SchemaVersionError
	require.True(t, errors.As(err, &versionErr))
	require.True(t, versionErr.Unknown)

	err = s.Validate(map[string]interface{}{"class": "AS3"}, "auto")
	require.EqualError(t, err, "Expected declaration to specify declaration.schemaVersion")
}

func TestValidateLeavesDocumentUntouched(t *testing.T) {
	registry, _, _ := newRegistry(t)

	s, err := registry.Open("latest")
	require.NoError(t, err)

	require.NoError(t, s.Validate(`{"class": "ADC"}`, ""))

	props := s.Document()["properties"].(map[string]interface{})
	require.Equal(t, "#/definitions/address", props["virtualAddress"].(map[string]interface{})["$ref"])
}

func TestValidateInvalidSchema(t *testing.T) {
	dir := t.TempDir()
	writeSchema(t, dir, "3.20.0", `{"$schema": "http://json-schema.org/draft-07/schema#", "type": 5}`)

	registry := schema.NewRegistry(schema.RegistryOpts{Dir: dir})

	s, err := registry.Open("latest")
	require.NoError(t, err)

	err = s.Validate(`{}`, "")

	var schemaErr *schema.AS3SchemaError
	require.True(t, errors.As(err, &schemaErr))
	require.Contains(t, err.Error(), "JSON Schema Error")
}
