// Copyright 2024 The Carvel Authors.
// SPDX-License-Identifier: Apache-2.0

package render

import (
	"fmt"
	"strings"

	"carvel.dev/as3ninja/pkg/filepos"
)

// TemplateSyntaxError is returned when a template cannot be parsed.
type TemplateSyntaxError struct {
	Message string
	// Line is 1 based
	Line int
	// File is empty for templates rendered from memory
	File string
	// Source is the text of the template that failed to parse
	Source string
}

func (e *TemplateSyntaxError) Error() string {
	result := []string{"AS3 declaration template caused a template syntax error: " + e.Message}
	if len(e.File) > 0 {
		result = append(result, "Declaration Template file: "+e.File)
	}
	result = append(result, fmt.Sprintf("Error on line: %d", e.Line), "Template code:", e.Excerpt())
	return strings.Join(result, "\n")
}

// Excerpt returns the numbered template source with the erroneous line marked.
func (e *TemplateSyntaxError) Excerpt() string {
	var pos *filepos.Position
	if e.Line > 0 {
		pos = filepos.NewPositionInFile(e.Line, e.File)
	}

	return filepos.Excerpt{
		Src: e.Source,
		Pos: pos,
		MarkLine: func(pos *filepos.Position) string {
			return fmt.Sprintf("<---- Error line:%d", pos.LineNum())
		},
		Underline: func(_ *filepos.Position, line string, indent int) string {
			return strings.Repeat(" ", indent) + "  " + strings.Repeat("^", len([]rune(line))) + "------- Erroneous line above"
		},
	}.String()
}

// UndefinedError is returned when a template references a missing
// key, attribute, variable or function.
type UndefinedError struct {
	Message string
}

func (e *UndefinedError) Error() string {
	return "AS3 declaration template tried to operate on an Undefined variable, attribute or type: " + e.Message
}

// TemplateNotFoundError is returned when a referenced template
// cannot be loaded from the search path.
type TemplateNotFoundError struct {
	Name       string
	SearchPath string
	Err        error
}

func (e *TemplateNotFoundError) Error() string {
	msg := fmt.Sprintf("Template '%s' not found (searchpath: %s)", e.Name, e.SearchPath)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *TemplateNotFoundError) Unwrap() error { return e.Err }
