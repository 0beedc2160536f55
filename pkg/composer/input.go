// Copyright 2024 The Carvel Authors.
// SPDX-License-Identifier: Apache-2.0

package composer

import "fmt"

// Input is one of Inline, FileRef or Many.
// A nil Input means "use the default configuration file".
type Input interface {
	isInput()
}

// Inline is a configuration mapping supplied directly by the caller.
type Inline map[string]interface{}

// FileRef is a path or glob pattern relative to the base path.
type FileRef string

// Many is an ordered list of inputs. Nested Many values are flattened.
type Many []Input

func (Inline) isInput()  {}
func (FileRef) isInput() {}
func (Many) isInput()    {}

func flatten(input Input) ([]Input, error) {
	switch typedInput := input.(type) {
	case Many:
		var result []Input
		for _, in := range typedInput {
			if in == nil {
				return nil, &ComposerError{Msg: "Unsupported configuration input: nil"}
			}
			nested, err := flatten(in)
			if err != nil {
				return nil, err
			}
			result = append(result, nested...)
		}
		return result, nil

	case Inline, FileRef:
		return []Input{typedInput}, nil

	default:
		return nil, &ComposerError{Msg: "Unsupported configuration input"}
	}
}

// FromValue converts decoded data (for example a JSON request body) into an
// Input: mappings become Inline, strings FileRef and lists Many.
// nil means "use the default configuration file".
func FromValue(val interface{}) (Input, error) {
	switch typedVal := val.(type) {
	case nil:
		return nil, nil
	case map[string]interface{}:
		return Inline(typedVal), nil
	case string:
		return FileRef(typedVal), nil
	case []interface{}:
		var result Many
		for _, item := range typedVal {
			switch item.(type) {
			case map[string]interface{}, string:
			default:
				return nil, &ComposerError{Msg: fmt.Sprintf("Unsupported configuration input: list item of type %T", item)}
			}
			in, err := FromValue(item)
			if err != nil {
				return nil, err
			}
			result = append(result, in)
		}
		return result, nil
	default:
		return nil, &ComposerError{Msg: fmt.Sprintf("Unsupported configuration input of type %T", val)}
	}
}
