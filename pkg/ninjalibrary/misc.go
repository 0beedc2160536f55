// Copyright 2024 The Carvel Authors.
// SPDX-License-Identifier: Apache-2.0

package ninjalibrary

import (
	"fmt"
	"os"
	"reflect"
	"sort"

	"carvel.dev/as3ninja/pkg/orderedmap"
	"carvel.dev/as3ninja/pkg/render"
	"github.com/google/uuid"
	"github.com/spf13/cast"
)

var (
	MiscExtensions = []render.Extension{
		{Name: "env", Kind: render.KindFunction, Func: miscModule{}.Env},
		{Name: "uuid", Kind: render.KindFunction, Func: miscModule{}.UUID},
		{Name: "to_list", Kind: render.KindFilter, Func: miscModule{}.ToList},
		{Name: "dict", Kind: render.KindFunction, Func: render.KeyValues},
		{Name: "list", Kind: render.KindFunction, Func: miscModule{}.List},
		{Name: "is_list", Kind: render.KindTest, Func: miscModule{}.IsList},
		{Name: "is_map", Kind: render.KindTest, Func: miscModule{}.IsMap},
	}
)

type miscModule struct{}

// Env returns the value of the environment variable name. default is
// returned when it is not set; an empty value counts as set.
func (miscModule) Env(name string, def ...interface{}) (string, error) {
	if len(def) > 1 {
		return "", fmt.Errorf("env: expected at most one default value, but got %d", len(def))
	}
	if val, found := os.LookupEnv(name); found {
		return val, nil
	}
	if len(def) == 0 {
		return "", nil
	}
	return cast.ToStringE(def[0])
}

// UUID returns a random (version 4) UUID.
func (miscModule) UUID() string {
	return uuid.NewString()
}

// ToList wraps scalars in a list and passes lists through.
// Mappings are turned into their sorted keys.
func (miscModule) ToList(val interface{}) ([]interface{}, error) {
	switch typedVal := val.(type) {
	case nil:
		return nil, fmt.Errorf("to_list: expected a value, but was nil")
	case []interface{}:
		return typedVal, nil
	case string, int, int64, float64, bool:
		return []interface{}{typedVal}, nil
	case map[string]interface{}:
		var keys []string
		for k := range typedVal {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		result := []interface{}{}
		for _, k := range keys {
			result = append(result, k)
		}
		return result, nil
	case *orderedmap.Map:
		result := []interface{}{}
		for _, k := range typedVal.Keys() {
			result = append(result, k)
		}
		return result, nil
	}

	rv := reflect.ValueOf(val)
	if rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array {
		result := make([]interface{}, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			result[i] = rv.Index(i).Interface()
		}
		return result, nil
	}

	return []interface{}{val}, nil
}

func (miscModule) List(vals ...interface{}) []interface{} {
	if vals == nil {
		return []interface{}{}
	}
	return vals
}

func (miscModule) IsList(val interface{}) bool {
	if val == nil {
		return false
	}
	kind := reflect.TypeOf(val).Kind()
	return kind == reflect.Slice || kind == reflect.Array
}

func (miscModule) IsMap(val interface{}) bool {
	if _, ok := val.(*orderedmap.Map); ok {
		return true
	}
	return val != nil && reflect.TypeOf(val).Kind() == reflect.Map
}
