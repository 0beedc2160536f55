// Copyright 2024 The Carvel Authors.
// SPDX-License-Identifier: Apache-2.0

package api

import (
	"errors"
	"net/http"

	"carvel.dev/as3ninja/pkg/composer"
	"carvel.dev/as3ninja/pkg/declaration"
	"carvel.dev/as3ninja/pkg/deserialize"
	"carvel.dev/as3ninja/pkg/gitget"
	"carvel.dev/as3ninja/pkg/render"
	"carvel.dev/as3ninja/pkg/schema"
	"carvel.dev/as3ninja/pkg/vault"
)

type requestError struct {
	status int
	err    error
}

func newRequestError(status int, err error) error {
	return &requestError{status, err}
}

func (e *requestError) Error() string { return e.err.Error() }
func (e *requestError) Unwrap() error { return e.err }

// classify maps errors to a response status and an error kind.
func classify(err error) (int, string) {
	var (
		reqErr         *requestError
		versionErr     *schema.SchemaVersionError
		validationErr  *schema.ValidationError
		as3SchemaErr   *schema.AS3SchemaError
		composerErr    *composer.ComposerError
		deserializeErr *deserialize.DeserializeError
		depthErr       *deserialize.IncludeDepthError
		syntaxErr      *render.TemplateSyntaxError
		undefinedErr   *render.UndefinedError
		notFoundErr    *render.TemplateNotFoundError
		missingErr     *declaration.MissingTemplateError
		decodeErr      *declaration.JSONDecodeError
		fetchErr       *gitget.FetchError
		secretErr      *vault.SecretError
	)

	switch {
	case errors.As(err, &reqErr):
		return reqErr.status, "RequestError"
	case errors.As(err, &versionErr):
		if versionErr.Unknown {
			return http.StatusNotFound, "SchemaVersionError"
		}
		return http.StatusBadRequest, "SchemaVersionError"
	case errors.As(err, &validationErr):
		return http.StatusBadRequest, "ValidationError"
	case errors.As(err, &as3SchemaErr):
		return http.StatusInternalServerError, "AS3SchemaError"
	case errors.As(err, &composerErr):
		return http.StatusBadRequest, "ComposerError"
	case errors.As(err, &depthErr):
		return http.StatusBadRequest, "IncludeDepthError"
	case errors.As(err, &deserializeErr):
		return http.StatusBadRequest, "DeserializeError"
	case errors.As(err, &syntaxErr):
		return http.StatusBadRequest, "TemplateSyntaxError"
	case errors.As(err, &undefinedErr):
		return http.StatusBadRequest, "UndefinedError"
	case errors.As(err, &notFoundErr):
		return http.StatusBadRequest, "TemplateNotFoundError"
	case errors.As(err, &missingErr):
		return http.StatusBadRequest, "MissingTemplateError"
	case errors.As(err, &decodeErr):
		return http.StatusBadRequest, "JSONDecodeError"
	case errors.As(err, &fetchErr):
		return http.StatusBadRequest, "FetchError"
	case errors.As(err, &secretErr):
		return http.StatusBadRequest, "SecretError"
	default:
		return http.StatusInternalServerError, "InternalError"
	}
}
