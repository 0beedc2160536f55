// Copyright 2024 The Carvel Authors.
// SPDX-License-Identifier: Apache-2.0

/*
Package files provides primitives for loading data from various file or
file-like Source's and for writing output to filesystem files.

Configuration files, declaration templates and declarations all flow through a
Source, so the rest of as3ninja does not need to know whether data came from
disk, stdin, an HTTP URL or memory.

Decoders pick a format based on the Type of a path, which is derived from its
extension. TypeUnknown means "try JSON, then YAML".
*/
package files
