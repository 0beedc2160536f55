// Copyright 2024 The Carvel Authors.
// SPDX-License-Identifier: Apache-2.0

package deserialize

import (
	"fmt"
)

// DeserializeError is returned when a data source cannot be read or parsed.
type DeserializeError struct {
	Source string
	Reason string
	Err    error
}

func (e *DeserializeError) Error() string {
	msg := fmt.Sprintf("deserialize: %s (source: %s)", e.Reason, e.Source)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *DeserializeError) Unwrap() error { return e.Err }

// IncludeDepthError is returned when !include directives nest deeper
// than allowed, typically because files include each other.
type IncludeDepthError struct {
	Source   string
	MaxDepth int
}

func (e *IncludeDepthError) Error() string {
	return fmt.Sprintf("deserialize: Maximum !include depth of %d exceeded (source: %s)", e.MaxDepth, e.Source)
}
