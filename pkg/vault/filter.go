// Copyright 2024 The Carvel Authors.
// SPDX-License-Identifier: Apache-2.0

package vault

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ohler55/ojg/jp"
)

// Filter returns the part of val addressed by path. Path segments are
// separated by "." (escape a literal dot as "\."); a numeric segment
// indexes a list. A path starting with "$" is a JSONPath expression.
// An empty path returns val unchanged.
func Filter(val interface{}, path string) (interface{}, error) {
	if len(path) == 0 {
		return val, nil
	}

	if strings.HasPrefix(path, "$") {
		expr, err := jp.ParseString(path)
		if err != nil {
			return nil, &SecretError{Msg: fmt.Sprintf("Invalid filter '%s'", path), Err: err}
		}
		results := expr.Get(val)
		switch len(results) {
		case 0:
			return nil, &SecretError{Msg: fmt.Sprintf("Filter '%s' did not match", path)}
		case 1:
			return results[0], nil
		default:
			return results, nil
		}
	}

	curr := val
	for _, seg := range splitEscaped(path, '.') {
		var step jp.Expr

		switch curr.(type) {
		case []interface{}:
			idx, err := strconv.Atoi(seg)
			if err != nil {
				return nil, accessErr(seg, path, fmt.Errorf("list index must be an integer"))
			}
			step = jp.N(idx)
		case map[string]interface{}:
			step = jp.C(seg)
		default:
			return nil, accessErr(seg, path, fmt.Errorf("%T is not indexable", curr))
		}

		results := step.Get(curr)
		if len(results) == 0 {
			return nil, accessErr(seg, path, fmt.Errorf("'%s' not found", seg))
		}
		curr = results[0]
	}

	return curr, nil
}

func accessErr(seg, path string, err error) error {
	return &SecretError{Msg: fmt.Sprintf("could not access %s from path %s, got error: %s", seg, path, err)}
}

// splitEscaped splits s at sep. A sep preceded by an odd number of
// backslashes is literal; each pair of backslashes becomes one.
func splitEscaped(s string, sep rune) []string {
	var (
		result  []string
		curr    strings.Builder
		escapes int
	)

	flushEscapes := func() {
		curr.WriteString(strings.Repeat(`\`, escapes/2))
	}

	for _, r := range s {
		switch {
		case r == '\\':
			escapes++
		case r == sep:
			flushEscapes()
			if escapes%2 == 1 {
				curr.WriteRune(sep)
			} else {
				result = append(result, curr.String())
				curr.Reset()
			}
			escapes = 0
		default:
			curr.WriteString(strings.Repeat(`\`, escapes))
			escapes = 0
			curr.WriteRune(r)
		}
	}
	curr.WriteString(strings.Repeat(`\`, escapes))

	return append(result, curr.String())
}
