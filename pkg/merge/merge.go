// Copyright 2024 The Carvel Authors.
// SPDX-License-Identifier: Apache-2.0

// Package merge deep-merges configuration mappings.
package merge

// Merge updates target with the contents of update and returns target.
//
// Nested mappings present on both sides are merged recursively; any other
// value in update replaces the one in target (lists are replaced, not
// concatenated). Keys only present in target are kept. update is never
// mutated and values taken from it are deep-copied.
func Merge(target, update map[string]interface{}) map[string]interface{} {
	if target == nil {
		target = map[string]interface{}{}
	}

	for key, val := range update {
		updateMap, updateIsMap := val.(map[string]interface{})
		targetMap, targetIsMap := target[key].(map[string]interface{})

		if updateIsMap && targetIsMap {
			target[key] = Merge(targetMap, updateMap)
		} else {
			target[key] = DeepCopy(val)
		}
	}
	return target
}

// All merges values left to right into a new mapping.
// Later values win on conflicting keys.
func All(values ...map[string]interface{}) map[string]interface{} {
	result := map[string]interface{}{}
	for _, val := range values {
		result = Merge(result, val)
	}
	return result
}

// DeepCopy copies mappings and lists recursively. Scalars are returned as is.
func DeepCopy(val interface{}) interface{} {
	switch typedVal := val.(type) {
	case map[string]interface{}:
		result := make(map[string]interface{}, len(typedVal))
		for k, v := range typedVal {
			result[k] = DeepCopy(v)
		}
		return result

	case []interface{}:
		result := make([]interface{}, len(typedVal))
		for i, v := range typedVal {
			result[i] = DeepCopy(v)
		}
		return result

	default:
		return val
	}
}
