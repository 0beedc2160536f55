// Copyright 2024 The Carvel Authors.
// SPDX-License-Identifier: Apache-2.0

package settings

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/invopop/jsonschema"
	"github.com/xeipuuv/gojsonschema"
)

var (
	fileSchema     string
	fileSchemaOnce sync.Once
	fileSchemaErr  error
)

// Schema returns the JSON schema settings files have to conform to.
func Schema() *jsonschema.Schema {
	reflector := jsonschema.Reflector{
		ExpandedStruct:             true,
		RequiredFromJSONSchemaTags: true,
	}
	return reflector.Reflect(&Settings{})
}

// Validate checks that the contents of a settings file only contain
// known settings of the right type.
func Validate(val interface{}) error {
	fileSchemaOnce.Do(func() {
		schemaBs, err := json.Marshal(Schema())
		if err != nil {
			fileSchemaErr = err
			return
		}
		fileSchema = string(schemaBs)
	})

	if fileSchemaErr != nil {
		return fileSchemaErr
	}

	result, err := gojsonschema.Validate(gojsonschema.NewStringLoader(fileSchema), gojsonschema.NewGoLoader(val))
	if err != nil {
		return err
	}

	if result.Valid() {
		return nil
	}

	var resultErr error
	for _, resErr := range result.Errors() {
		resultErr = errors.Join(resultErr, fmt.Errorf("%s", resErr.String()))
	}
	return resultErr
}
