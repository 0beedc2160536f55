// Copyright 2024 The Carvel Authors.
// SPDX-License-Identifier: Apache-2.0

package filepos

import (
	"fmt"
	"strings"
)

type Position struct {
	lineNum *int // 1 based
	colNum  int  // 1 based, 0 if unknown
	offset  int  // 0 based byte offset, -1 if unknown
	file    string
	line    string
	known   bool
}

func NewPosition(lineNum int) *Position {
	if lineNum <= 0 {
		panic("Lines are 1 based")
	}
	return &Position{lineNum: &lineNum, offset: -1, known: true}
}

// NewPositionInFile returns the Position of line "lineNum" within the file "file"
func NewPositionInFile(lineNum int, file string) *Position {
	p := NewPosition(lineNum)
	p.file = file
	return p
}

// NewPositionFromOffset computes line and column of the byte offset within src.
// Offsets past the end of src point at the end of src.
func NewPositionFromOffset(src string, offset int) *Position {
	if offset < 0 {
		offset = 0
	}
	if offset > len(src) {
		offset = len(src)
	}

	lineNum := strings.Count(src[:offset], "\n") + 1
	lineStart := strings.LastIndex(src[:offset], "\n") + 1

	p := NewPosition(lineNum)
	p.colNum = offset - lineStart + 1
	p.offset = offset
	p.line = lineAt(src, lineStart)
	return p
}

// NewUnknownPosition is equivalent of zero value *Position
func NewUnknownPosition() *Position {
	return &Position{offset: -1}
}

// NewUnknownPositionInFile produces a Position of a known file at an unknown line.
func NewUnknownPositionInFile(file string) *Position {
	return &Position{file: file, offset: -1}
}

func (p *Position) SetLine(line string) { p.line = line }
func (p *Position) SetFile(file string) { p.file = file }

func (p *Position) IsKnown() bool { return p != nil && p.known }

func (p *Position) LineNum() int {
	if !p.IsKnown() {
		panic("Position is unknown")
	}
	if p.lineNum == nil {
		panic("Position was not properly initialized")
	}
	return *p.lineNum
}

// ColNum returns the 1 based column or 0 when the column is unknown.
func (p *Position) ColNum() int { return p.colNum }

// Offset returns the 0 based byte offset or -1 when it is unknown.
func (p *Position) Offset() int { return p.offset }

func (p *Position) GetLine() string { return p.line }
func (p *Position) GetFile() string { return p.file }

func (p *Position) AsString() string {
	return "line " + p.AsCompactString()
}

func (p *Position) AsCompactString() string {
	filePrefix := p.file
	if len(filePrefix) > 0 {
		filePrefix += ":"
	}
	if !p.IsKnown() {
		return fmt.Sprintf("%s?", filePrefix)
	}
	if p.colNum > 0 {
		return fmt.Sprintf("%s%d:%d", filePrefix, p.LineNum(), p.colNum)
	}
	return fmt.Sprintf("%s%d", filePrefix, p.LineNum())
}

func (p *Position) AsIntString() string {
	if p.IsKnown() {
		return fmt.Sprintf("%d", p.LineNum())
	}
	return "?"
}

func (p *Position) DeepCopy() *Position {
	if p == nil {
		return nil
	}
	newPos := &Position{file: p.file, known: p.known, line: p.line, colNum: p.colNum, offset: p.offset}
	if p.lineNum != nil {
		lineVal := *p.lineNum
		newPos.lineNum = &lineVal
	}
	return newPos
}

func lineAt(src string, start int) string {
	end := strings.IndexByte(src[start:], '\n')
	if end < 0 {
		return src[start:]
	}
	return strings.TrimSuffix(src[start:start+end], "\r")
}
