// Copyright 2024 The Carvel Authors.
// SPDX-License-Identifier: Apache-2.0

package schema

import (
	"fmt"
	"strings"
)

// SchemaVersionError indicates an invalid or unknown schema version.
type SchemaVersionError struct {
	Msg string
	// Unknown is set for well-formed versions without a schema.
	Unknown bool
}

func (e *SchemaVersionError) Error() string { return e.Msg }

// AS3SchemaError indicates a defect of the schema itself
// (not conforming to draft-07, unreadable files, etc.).
type AS3SchemaError struct {
	Msg string
	Err error
}

func (e *AS3SchemaError) Error() string {
	if e.Err == nil {
		return e.Msg
	}
	return e.Msg + ": " + e.Err.Error()
}

func (e *AS3SchemaError) Unwrap() error { return e.Err }

// ValidationError describes a declaration that does not conform to the schema.
// Context holds one entry per violated rule.
type ValidationError struct {
	Message   string
	Validator string
	Path      string
	Value     interface{}
	Context   []ValidationError
}

func (e *ValidationError) Error() string {
	if len(e.Context) == 0 {
		return e.Path + ": " + e.Message
	}

	leftColumnSize := 0
	for _, ctx := range e.Context {
		if len(ctx.Path) > leftColumnSize {
			leftColumnSize = len(ctx.Path)
		}
	}
	leftColumnSize++

	msg := e.Message + "\n"
	for _, ctx := range e.Context {
		msg += formatLine(leftColumnSize, ctx.Path, ctx.Message)
		msg += formatLine(leftColumnSize, "", fmt.Sprintf("  (validator: %s)", ctx.Validator))
	}

	return strings.TrimSuffix(msg, "\n")
}

func leftPadding(size int) string {
	return strings.Repeat(" ", size)
}

func formatLine(leftColumnSize int, left, right string) string {
	if len(right) > 0 {
		right = " " + right
	}
	return fmt.Sprintf("%s%s|%s\n", left, leftPadding(leftColumnSize-len(left)), right)
}
