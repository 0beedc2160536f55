// Copyright 2024 The Carvel Authors.
// SPDX-License-Identifier: Apache-2.0

package ninjalibrary

import (
	"strings"

	"carvel.dev/as3ninja/pkg/orderedmap"
	"carvel.dev/as3ninja/pkg/render"
)

var (
	JSONExtensions = []render.Extension{
		{Name: "jsonify", Kind: render.KindFilter, Func: jsonModule{}.Jsonify},
	}
)

type jsonModule struct{}

// Jsonify implements `jsonify [quote] value`. It serializes value to
// JSON. With quote=false the surrounding double quotes of a serialized
// string are removed, which allows embedding the result in a JSON string.
func (b jsonModule) Jsonify(args ...interface{}) (string, error) {
	opts, subject, err := splitArgs("jsonify", args, 1)
	if err != nil {
		return "", err
	}

	quote, err := boolOpt("jsonify", opts, 0, true)
	if err != nil {
		return "", err
	}

	valBs, err := orderedmap.Marshal(subject)
	if err != nil {
		return "", err
	}

	result := string(valBs)
	if !quote && len(result) >= 2 && strings.HasPrefix(result, `"`) && strings.HasSuffix(result, `"`) {
		result = result[1 : len(result)-1]
	}
	return result, nil
}
