// Copyright 2024 The Carvel Authors.
// SPDX-License-Identifier: Apache-2.0

package declaration

import (
	"fmt"
	"strings"

	"carvel.dev/as3ninja/pkg/filepos"
)

// MissingTemplateError is returned when neither template text nor
// as3ninja.declaration_template were provided.
type MissingTemplateError struct {
	Reason string
}

func (e *MissingTemplateError) Error() string {
	return "as3ninja.declaration_template not valid or missing in template_configuration: " + e.Reason
}

// JSONDecodeError is returned when the rendered template is not valid JSON.
type JSONDecodeError struct {
	Message string
	// Offset is the 0 based byte offset of the error
	Offset int
	// Line and Column are 1 based
	Line     int
	Column   int
	Document string
}

func newJSONDecodeError(msg string, offset int, doc string) *JSONDecodeError {
	pos := filepos.NewPositionFromOffset(doc, offset)
	return &JSONDecodeError{
		Message:  msg,
		Offset:   offset,
		Line:     pos.LineNum(),
		Column:   pos.ColNum(),
		Document: doc,
	}
}

func (e *JSONDecodeError) Error() string {
	return fmt.Sprintf("JSONDecodeError: %s. Error pos:%d on line:%d on col:%d.\nJSON document:\n%s",
		e.Message, e.Offset, e.Line, e.Column, e.Excerpt())
}

// Excerpt returns the numbered document with the error position marked.
func (e *JSONDecodeError) Excerpt() string {
	return filepos.Excerpt{
		Src: e.Document,
		Pos: filepos.NewPositionFromOffset(e.Document, e.Offset),
		MarkLine: func(pos *filepos.Position) string {
			return fmt.Sprintf("<---- Error line:%d, position %d", pos.LineNum(), pos.ColNum())
		},
		Underline: func(pos *filepos.Position, _ string, indent int) string {
			return strings.Repeat(" ", indent+1+pos.ColNum()) + "^---- Exact Error position"
		},
	}.String()
}
