// Copyright 2024 The Carvel Authors.
// SPDX-License-Identifier: Apache-2.0

package ninjalibrary

import (
	"fmt"

	"github.com/spf13/cast"
)

// splitArgs separates options from the subject, which is always the last argument.
func splitArgs(name string, args []interface{}, maxOpts int) ([]interface{}, interface{}, error) {
	if len(args) == 0 || len(args) > maxOpts+1 {
		if maxOpts == 0 {
			return nil, nil, fmt.Errorf("%s: expected exactly one argument, but got %d", name, len(args))
		}
		return nil, nil, fmt.Errorf("%s: expected between 1 and %d arguments, but got %d", name, maxOpts+1, len(args))
	}
	return args[:len(args)-1], args[len(args)-1], nil
}

func boolOpt(name string, opts []interface{}, idx int, def bool) (bool, error) {
	if idx >= len(opts) {
		return def, nil
	}
	val, err := cast.ToBoolE(opts[idx])
	if err != nil {
		return false, fmt.Errorf("%s: expected option %d to be a boolean: %s", name, idx+1, err)
	}
	return val, nil
}

func stringArg(name string, val interface{}) (string, error) {
	str, err := cast.ToStringE(val)
	if err != nil {
		return "", fmt.Errorf("%s: expected a string: %s", name, err)
	}
	return str, nil
}
