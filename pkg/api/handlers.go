// Copyright 2024 The Carvel Authors.
// SPDX-License-Identifier: Apache-2.0

package api

import (
	"fmt"
	"net/http"

	"carvel.dev/as3ninja/pkg/composer"
	"carvel.dev/as3ninja/pkg/gitget"
	"carvel.dev/as3ninja/pkg/orderedmap"
	"carvel.dev/as3ninja/pkg/schema"
	"carvel.dev/as3ninja/pkg/transform"
	"github.com/spf13/cast"
)

func (s *Server) latestVersionHandler(w http.ResponseWriter, r *http.Request) {
	latest, err := s.opts.Schemas.LatestVersion()
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, map[string]interface{}{"latest_version": latest})
}

func (s *Server) schemaHandler(w http.ResponseWriter, r *http.Request) {
	as3Schema, err := s.opts.Schemas.OpenContext(r.Context(), requestedVersion(r))
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, as3Schema.Document())
}

func (s *Server) schemasHandler(w http.ResponseWriter, r *http.Request) {
	schemas, err := s.opts.Schemas.Schemas()
	if err != nil {
		s.writeError(w, err)
		return
	}

	// newest first
	result := orderedmap.NewMap()
	for _, as3Schema := range schemas {
		result.Set(as3Schema.Version(), as3Schema.Document())
	}

	s.writeJSON(w, result)
}

func (s *Server) versionsHandler(w http.ResponseWriter, r *http.Request) {
	versions, err := s.opts.Schemas.Versions()
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, versions)
}

type validationResult struct {
	Valid bool   `json:"valid"`
	Error string `json:"error,omitempty"`
}

func (s *Server) validateHandler(w http.ResponseWriter, r *http.Request) {
	decl, err := s.readJSON(w, r)
	if err != nil {
		s.writeError(w, err)
		return
	}

	if _, ok := decl.(map[string]interface{}); !ok {
		s.writeError(w, newRequestError(http.StatusBadRequest, fmt.Errorf("Expected declaration to be a JSON object")))
		return
	}

	as3Schema, err := s.opts.Schemas.OpenContext(r.Context(), requestedVersion(r))
	if err != nil {
		s.writeError(w, err)
		return
	}

	err = as3Schema.Validate(decl, "")
	if err != nil {
		if validationErr, ok := err.(*schema.ValidationError); ok {
			s.writeJSON(w, validationResult{Valid: false, Error: validationErr.Error()})
			return
		}
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, validationResult{Valid: true})
}

func (s *Server) transformHandler(w http.ResponseWriter, r *http.Request) {
	body, err := s.readBody(w, r)
	if err != nil {
		s.writeError(w, err)
		return
	}

	if body["template_configuration"] == nil {
		s.writeError(w, newRequestError(http.StatusBadRequest, fmt.Errorf("Expected 'template_configuration' to be specified")))
		return
	}

	opts, err := s.transformOpts(body)
	if err != nil {
		s.writeError(w, err)
		return
	}

	if len(opts.TemplateText) == 0 {
		s.writeError(w, newRequestError(http.StatusBadRequest, fmt.Errorf("Expected 'declaration_template' to be specified")))
		return
	}

	result, err := transform.Transform(r.Context(), opts)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, result.Declaration.Ordered())
}

func (s *Server) gitTransformHandler(w http.ResponseWriter, r *http.Request) {
	body, err := s.readBody(w, r)
	if err != nil {
		s.writeError(w, err)
		return
	}

	gitOpts, err := s.gitOpts(body)
	if err != nil {
		s.writeError(w, err)
		return
	}

	opts, err := s.transformOpts(body)
	if err != nil {
		s.writeError(w, err)
		return
	}

	// declaration_template names a file within the repository
	opts.TemplateFile = opts.TemplateText
	opts.TemplateText = ""

	result, err := transform.GitTransform(r.Context(), transform.GitOpts{Git: gitOpts, Opts: opts})
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, result.Declaration.Ordered())
}

func (s *Server) readBody(w http.ResponseWriter, r *http.Request) (map[string]interface{}, error) {
	val, err := s.readJSON(w, r)
	if err != nil {
		return nil, err
	}

	body, ok := val.(map[string]interface{})
	if !ok {
		return nil, newRequestError(http.StatusBadRequest, fmt.Errorf("Expected request body to be a JSON object"))
	}
	return body, nil
}

func (s *Server) transformOpts(body map[string]interface{}) (transform.Opts, error) {
	input, err := composer.FromValue(body["template_configuration"])
	if err != nil {
		return transform.Opts{}, newRequestError(http.StatusBadRequest, err)
	}

	template, err := optionalString(body, "declaration_template")
	if err != nil {
		return transform.Opts{}, err
	}

	return transform.Opts{
		Configuration: input,
		TemplateText:  template,
		Libraries:     s.opts.Libraries,
	}, nil
}

func (s *Server) gitOpts(body map[string]interface{}) (gitget.Opts, error) {
	opts := gitget.Opts{
		Timeout:   s.opts.Git.Timeout,
		SSLVerify: s.opts.Git.SSLVerify,
		Proxy:     s.opts.Git.Proxy,
	}

	var err error

	opts.Repository, err = optionalString(body, "repository")
	if err != nil {
		return gitget.Opts{}, err
	}
	if len(opts.Repository) == 0 {
		return gitget.Opts{}, newRequestError(http.StatusBadRequest, fmt.Errorf("Expected 'repository' to be specified"))
	}

	opts.Branch, err = optionalString(body, "branch")
	if err != nil {
		return gitget.Opts{}, err
	}

	opts.Commit, err = optionalString(body, "commit")
	if err != nil {
		return gitget.Opts{}, err
	}

	if val, found := body["depth"]; found && val != nil {
		depth, err := cast.ToIntE(val)
		if err != nil {
			return gitget.Opts{}, newRequestError(http.StatusBadRequest, fmt.Errorf("Expected 'depth' to be an integer: %w", err))
		}
		opts.Depth = &depth
	}

	return opts, nil
}

func optionalString(body map[string]interface{}, key string) (string, error) {
	val, found := body[key]
	if !found || val == nil {
		return "", nil
	}

	typedVal, ok := val.(string)
	if !ok {
		return "", newRequestError(http.StatusBadRequest, fmt.Errorf("Expected '%s' to be a string, but was %T", key, val))
	}
	return typedVal, nil
}

func requestedVersion(r *http.Request) string {
	version := r.URL.Query().Get("version")
	if len(version) == 0 {
		return schema.LatestVersion
	}
	return version
}
