// Copyright 2024 The Carvel Authors.
// SPDX-License-Identifier: Apache-2.0

package api_test

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"carvel.dev/as3ninja/pkg/api"
	"carvel.dev/as3ninja/pkg/ninjalibrary"
	"carvel.dev/as3ninja/pkg/schema"
	"github.com/stretchr/testify/require"
)

const schemaTpl = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "description": "AS3 schema %s used by the API tests, padded to be worth compressing",
  "type": "object",
  "required": ["class"],
  "properties": {
    "class": {"type": "string", "enum": ["ADC", "AS3"]},
    "id": {"type": "string"},
    "label": {"type": "string", "format": "f5label"},
    "remark": {"type": "string", "format": "f5remark"}
  },
  "additionalProperties": {"$ref": "#/definitions/tenant"},
  "definitions": {
    "tenant": {
      "type": "object",
      "required": ["class"],
      "properties": {"class": {"const": "Tenant"}}
    }
  }
}`

func newHandler(t *testing.T) http.Handler {
	dir := t.TempDir()
	for _, version := range []string{"3.9.0", "3.11.1", "3.20.0"} {
		versionDir := filepath.Join(dir, "schema", version)
		require.NoError(t, os.MkdirAll(versionDir, 0700))
		require.NoError(t, os.WriteFile(filepath.Join(versionDir, fmt.Sprintf("as3-schema-%s-1.json", version)),
			[]byte(fmt.Sprintf(schemaTpl, version)), 0600))
	}

	server := api.NewServer(api.ServerOpts{
		Schemas:   schema.NewRegistry(schema.RegistryOpts{Dir: dir}),
		Libraries: ninjalibrary.DefaultOpts(),
	})
	return server.Handler()
}

func do(handler http.Handler, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if len(body) > 0 {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	} else {
		req = httptest.NewRequest(method, target, nil)
	}

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) map[string]string {
	var result map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	return result
}

func TestHealth(t *testing.T) {
	rec := do(newHandler(t), http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "ok", rec.Body.String())
}

func TestSchemaEndpoints(t *testing.T) {
	handler := newHandler(t)

	rec := do(handler, http.MethodGet, "/api/schema/latest_version", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, `{"latest_version":"3.20.0"}`, rec.Body.String())
	require.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	require.Equal(t, "no-cache, private, max-age=0", rec.Header().Get("Cache-Control"))
	require.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))

	rec = do(handler, http.MethodGet, "/api/schema/versions", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, `["3.20.0","3.11.1","3.9.0"]`, rec.Body.String())

	rec = do(handler, http.MethodGet, "/api/schema/schema?version=3.9.0", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "AS3 schema 3.9.0 used by the API tests")

	rec = do(handler, http.MethodGet, "/api/schema/schema", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "AS3 schema 3.20.0 used by the API tests")

	rec = do(handler, http.MethodGet, "/api/schema/schemas", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	require.True(t, strings.HasPrefix(body, `{"3.20.0":`), body)
	require.Less(t, strings.Index(body, `"3.11.1":`), strings.Index(body, `"3.9.0":`))
}

func TestSchemaVersionErrors(t *testing.T) {
	handler := newHandler(t)

	rec := do(handler, http.MethodGet, "/api/schema/schema?version=3.99.0", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Equal(t, map[string]string{
		"message": "schema version:3.99.0 is unknown",
		"error":   "SchemaVersionError",
	}, decodeError(t, rec))

	rec = do(handler, http.MethodGet, "/api/schema/schema?version=3.7.0", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "Minimum AS3 Schema version is 3.8.0, requested version:3.7.0", decodeError(t, rec)["message"])
}

func TestCompression(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/schema/schemas", nil)
	req.Header.Set("Accept-Encoding", "gzip")

	rec := httptest.NewRecorder()
	newHandler(t).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "gzip", rec.Header().Get("Content-Encoding"))
}

func TestValidate(t *testing.T) {
	handler := newHandler(t)

	rec := do(handler, http.MethodPost, "/api/schema/validate", `{"class": "AS3", "tenant": {"class": "Tenant"}}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, `{"valid":true}`, rec.Body.String())

	rec = do(handler, http.MethodPost, "/api/schema/validate?version=3.9.0", `{"tenant": {"class": "Tenant"}}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var result struct {
		Valid bool
		Error string
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	require.False(t, result.Valid)
	require.Contains(t, result.Error, "class is required")
	require.Contains(t, result.Error, "schema version 3.9.0")

	rec = do(handler, http.MethodPost, "/api/schema/validate", `[1, 2]`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "Expected declaration to be a JSON object", decodeError(t, rec)["message"])

	rec = do(handler, http.MethodPost, "/api/schema/validate", `{"class": `)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "RequestError", decodeError(t, rec)["error"])
}

func TestTransform(t *testing.T) {
	handler := newHandler(t)

	rec := do(handler, http.MethodPost, "/api/declaration/transform", `{
		"template_configuration": [{"name": "first", "id": "a"}, {"name": "second"}],
		"declaration_template": "{\"class\": \"AS3\", \"{{ninja.name}}\": {\"class\": \"Tenant\", \"id\": \"{{ninja.id}}\"}}"
	}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, `{"class":"AS3","second":{"class":"Tenant","id":"a"}}`, rec.Body.String())

	rec = do(handler, http.MethodPost, "/api/declaration/transform", `{
		"template_configuration": {"name": "first"},
		"declaration_template": "{\"id\": \"{{ninja.missing}}\"}"
	}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "UndefinedError", decodeError(t, rec)["error"])

	rec = do(handler, http.MethodPost, "/api/declaration/transform", `{
		"template_configuration": {"name": "first"},
		"declaration_template": "{\"id\": {{ninja.name}}}"
	}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "JSONDecodeError", decodeError(t, rec)["error"])

	rec = do(handler, http.MethodPost, "/api/declaration/transform", `{"template_configuration": {"name": "first"}}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "Expected 'declaration_template' to be specified", decodeError(t, rec)["message"])

	rec = do(handler, http.MethodPost, "/api/declaration/transform", `{"declaration_template": "{}"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "Expected 'template_configuration' to be specified", decodeError(t, rec)["message"])

	rec = do(handler, http.MethodPost, "/api/declaration/transform", `{"template_configuration": 5, "declaration_template": "{}"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "Unsupported configuration input of type int64", decodeError(t, rec)["message"])
}

func TestGitTransformValidation(t *testing.T) {
	handler := newHandler(t)

	rec := do(handler, http.MethodPost, "/api/declaration/transform/git", `{"branch": "main"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "Expected 'repository' to be specified", decodeError(t, rec)["message"])

	rec = do(handler, http.MethodPost, "/api/declaration/transform/git", `{"repository": "https://example.com/repo.git", "depth": -1}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, map[string]string{
		"message": "gitget: depth must be 0 or a positive number.",
		"error":   "FetchError",
	}, decodeError(t, rec))

	rec = do(handler, http.MethodPost, "/api/declaration/transform/git", `{"repository": "https://example.com/repo.git", "depth": "deep"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, decodeError(t, rec)["message"], "Expected 'depth' to be an integer")
}

func TestCORSPreflight(t *testing.T) {
	rec := do(newHandler(t), http.MethodOptions, "/api/declaration/transform", "")
	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	require.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), "POST")
}

func TestNotFound(t *testing.T) {
	rec := do(newHandler(t), http.MethodGet, "/api/nope", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Equal(t, "Not found: /api/nope", decodeError(t, rec)["message"])
}

func TestOpenAPI(t *testing.T) {
	rec := do(newHandler(t), http.MethodGet, "/openapi.json", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var doc map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &doc))
	require.Equal(t, "3.1.0", doc["openapi"])

	paths := doc["paths"].(map[string]interface{})
	require.Contains(t, paths, "/api/schema/validate")
	require.Contains(t, paths, "/health")

	transform := paths["/api/declaration/transform"].(map[string]interface{})["post"].(map[string]interface{})
	bodySchema := transform["requestBody"].(map[string]interface{})["content"].(map[string]interface{})["application/json"].(map[string]interface{})["schema"].(map[string]interface{})
	require.ElementsMatch(t, []interface{}{"template_configuration", "declaration_template"}, bodySchema["required"])
	require.Contains(t, bodySchema["properties"], "template_configuration")
	require.NotContains(t, bodySchema, "$schema")

	gitTransform := paths["/api/declaration/transform/git"].(map[string]interface{})["post"].(map[string]interface{})
	gitSchema := gitTransform["requestBody"].(map[string]interface{})["content"].(map[string]interface{})["application/json"].(map[string]interface{})["schema"].(map[string]interface{})
	require.Equal(t, []interface{}{"repository"}, gitSchema["required"])
}

func TestSchemasSkipsUnusableVersions(t *testing.T) {
	dir := t.TempDir()
	for _, version := range []string{"3.7.0", "3.9.0", "3.20.0"} {
		versionDir := filepath.Join(dir, "schema", version)
		require.NoError(t, os.MkdirAll(versionDir, 0700))
		require.NoError(t, os.WriteFile(filepath.Join(versionDir, fmt.Sprintf("as3-schema-%s-1.json", version)),
			[]byte(fmt.Sprintf(schemaTpl, version)), 0600))
	}

	handler := api.NewServer(api.ServerOpts{Schemas: schema.NewRegistry(schema.RegistryOpts{Dir: dir})}).Handler()

	rec := do(handler, http.MethodGet, "/api/schema/schemas", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var schemas map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &schemas))
	require.Len(t, schemas, 2)
	require.Contains(t, schemas, "3.20.0")
	require.Contains(t, schemas, "3.9.0")
}
