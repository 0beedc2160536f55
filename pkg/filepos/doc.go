// Copyright 2024 The Carvel Authors.
// SPDX-License-Identifier: Apache-2.0

/*
Package filepos provides the concept of Position: a source name (usually a
template file), a line number and optionally a column within that source.

File positions are crucial when reporting errors to the user. It is often
even more useful to share the surrounding source as well: Excerpt renders a
line-numbered copy of the source with the erroneous line marked.

The zero-value of Position (can be created using NewUnknownPosition())
represents a position that could not be determined.
*/
package filepos
