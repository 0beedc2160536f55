// Copyright 2024 The Carvel Authors.
// SPDX-License-Identifier: Apache-2.0

/*
Package pkg is the collection of packages that make up the implementation of as3ninja.

The codebase is organized into layers. Packages depend on each other only to
the degree required.

In the inventory, below, individual packages are named alongside their coupling
with the other packages in the codebase.

	(# of dependents) => <package name> => (# of dependencies)

# Entry Point

as3ninja is built into two executable formats:

	./cmd/as3ninja          // a command-line tool
	./cmd/as3ninja-lambda   // an AWS Lambda function serving the HTTP API

# Commands

	(2) => pkg/cmd => (11)
	(2) => pkg/cmd/core => (6)

The HTTP API exposes transformations and schema validation:

	(2) => pkg/api => (11)

# Transformation

A transformation composes a configuration from files and inline values,
renders a declaration template against it and parses the result as JSON.
The same steps run for files in a git repository.

	(2) => pkg/transform => (6)
	(3) => pkg/composer => (2)
	(3) => pkg/declaration => (5)
	(3) => pkg/render => (2)

Templates may call a library of filters and functions, among them access to
a secret store:

	(4) => pkg/ninjalibrary => (4)
	(2) => pkg/vault => (1)

# AS3 Schemas

AS3 JSON Schemas are kept per version in a local clone of the AS3 repository.
Declarations are validated against them.

	(3) => pkg/schema => (4)
	(5) => pkg/gitget => (0)

# Utilities

	(1) => pkg/settings => (1)
	(9) => pkg/deserialize => (1)
	(3) => pkg/merge => (0)
	(4) => pkg/orderedmap => (0)
	(3) => pkg/files => (0)
	(2) => pkg/filepos => (0)
	(3) => pkg/cmd/ui => (0)
	(2) => pkg/version => (0)
*/
package pkg
