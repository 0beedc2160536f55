// Copyright 2024 The Carvel Authors.
// SPDX-License-Identifier: Apache-2.0

package filepos

import (
	"fmt"
	"strings"
)

// Excerpt renders src with right aligned line numbers.
// Lines matching Pos are passed to the marker funcs.
type Excerpt struct {
	Src string
	Pos *Position

	// MarkLine returns the suffix appended to the erroneous line.
	MarkLine func(pos *Position) string
	// Underline returns the line printed below the erroneous line.
	// indent is the width of the line number column.
	Underline func(pos *Position, line string, indent int) string
}

func (e Excerpt) String() string {
	indent := len(fmt.Sprintf("%d", strings.Count(e.Src, "\n")))

	var result []string

	for i, line := range splitLines(e.Src) {
		lineNum := i + 1
		numbered := formatLine(lineNum, indent, line)

		if e.Pos.IsKnown() && e.Pos.LineNum() == lineNum {
			if e.MarkLine != nil {
				numbered += e.MarkLine(e.Pos)
			}
			result = append(result, numbered)
			if e.Underline != nil {
				result = append(result, e.Underline(e.Pos, line, indent))
			}
			continue
		}
		result = append(result, numbered)
	}

	return strings.Join(result, "\n")
}

func formatLine(lineNum, indent int, line string) string {
	return fmt.Sprintf("%*d: %s", indent, lineNum, line)
}

// splitLines splits on line boundaries without yielding
// a trailing empty line for a final newline.
func splitLines(src string) []string {
	if src == "" {
		return nil
	}
	lines := strings.Split(strings.TrimSuffix(src, "\n"), "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSuffix(line, "\r")
	}
	return lines
}
