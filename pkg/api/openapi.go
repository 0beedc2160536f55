// Copyright 2024 The Carvel Authors.
// SPDX-License-Identifier: Apache-2.0

package api

import (
	"net/http"
	"sync"

	"carvel.dev/as3ninja/pkg/orderedmap"
	"carvel.dev/as3ninja/pkg/version"
	"github.com/invopop/jsonschema"
)

// TransformRequest is the body of POST /api/declaration/transform.
type TransformRequest struct {
	TemplateConfiguration interface{} `json:"template_configuration" jsonschema:"required,description=Configuration mapping or list of mappings merged in order"`
	DeclarationTemplate   string      `json:"declaration_template" jsonschema:"required,description=Declaration template text"`
}

// GitTransformRequest is the body of POST /api/declaration/transform/git.
type GitTransformRequest struct {
	Repository            string      `json:"repository" jsonschema:"required,description=Git repository to clone"`
	Branch                string      `json:"branch,omitempty" jsonschema:"description=Branch or tag"`
	Commit                string      `json:"commit,omitempty" jsonschema:"description=Commit ID or HEAD~N"`
	Depth                 int         `json:"depth,omitempty" jsonschema:"minimum=0,description=Clone depth (0 clones the full history)"`
	TemplateConfiguration interface{} `json:"template_configuration,omitempty" jsonschema:"description=Configuration files within the repository"`
	DeclarationTemplate   string      `json:"declaration_template,omitempty" jsonschema:"description=Declaration template file within the repository"`
}

type apiOperation struct {
	path       string
	method     string
	summary    string
	versionArg bool
	// requestBody is reflected into a schema, requestSchema is used as is
	requestBody   interface{}
	requestSchema interface{}
}

var (
	apiOperations = []apiOperation{
		{path: "/api/schema/latest_version", method: "get", summary: "Latest AS3 schema version"},
		{path: "/api/schema/schema", method: "get", summary: "AS3 schema of a version", versionArg: true},
		{path: "/api/schema/schemas", method: "get", summary: "AS3 schemas of all versions"},
		{path: "/api/schema/versions", method: "get", summary: "Known AS3 schema versions"},
		{path: "/api/schema/validate", method: "post", summary: "Validate a declaration", versionArg: true, requestSchema: map[string]interface{}{"type": "object", "description": "AS3 declaration"}},
		{path: "/api/declaration/transform", method: "post", summary: "Transform a template and configuration into a declaration", requestBody: &TransformRequest{}},
		{path: "/api/declaration/transform/git", method: "post", summary: "Transform a template and configuration stored in git", requestBody: &GitTransformRequest{}},
		{path: "/health", method: "get", summary: "Health check"},
	}

	openAPIOnce sync.Once
	openAPIDoc  []byte
	openAPIErr  error
)

func (s *Server) openAPIHandler(w http.ResponseWriter, r *http.Request) {
	openAPIOnce.Do(func() {
		openAPIDoc, openAPIErr = orderedmap.Marshal(OpenAPIDocument())
	})
	if openAPIErr != nil {
		s.writeError(w, openAPIErr)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	s.write(w, openAPIDoc)
}

// OpenAPIDocument describes the HTTP API as an OpenAPI 3.1 document.
func OpenAPIDocument() *orderedmap.Map {
	reflector := jsonschema.Reflector{
		Anonymous:                  true,
		ExpandedStruct:             true,
		RequiredFromJSONSchemaTags: true,
	}

	paths := orderedmap.NewMap()

	for _, op := range apiOperations {
		operation := orderedmap.NewMap()
		operation.Set("summary", op.summary)

		if op.versionArg {
			operation.Set("parameters", []interface{}{
				orderedmap.NewMapWithItems([]orderedmap.MapItem{
					{Key: "name", Value: "version"},
					{Key: "in", Value: "query"},
					{Key: "required", Value: false},
					{Key: "schema", Value: map[string]interface{}{"type": "string", "default": "latest"}},
				}),
			})
		}

		bodySchema := op.requestSchema
		if op.requestBody != nil {
			reflected := reflector.Reflect(op.requestBody)
			reflected.Version = ""
			bodySchema = reflected
		}

		if bodySchema != nil {
			operation.Set("requestBody", orderedmap.NewMapWithItems([]orderedmap.MapItem{
				{Key: "required", Value: true},
				{Key: "content", Value: map[string]interface{}{
					"application/json": map[string]interface{}{"schema": bodySchema},
				}},
			}))
		}

		operation.Set("responses", map[string]interface{}{
			"200": map[string]interface{}{"description": "Successful response"},
			"400": map[string]interface{}{"description": "Invalid request, template or configuration"},
		})

		paths.Set(op.path, map[string]interface{}{op.method: operation})
	}

	return orderedmap.NewMapWithItems([]orderedmap.MapItem{
		{Key: "openapi", Value: "3.1.0"},
		{Key: "info", Value: orderedmap.NewMapWithItems([]orderedmap.MapItem{
			{Key: "title", Value: "AS3 Ninja"},
			{Key: "version", Value: version.Version},
		})},
		{Key: "paths", Value: paths},
	})
}
