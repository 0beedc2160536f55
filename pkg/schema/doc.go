// Copyright 2024 The Carvel Authors.
// SPDX-License-Identifier: Apache-2.0

/*
Package schema validates AS3 declarations against the AS3 JSON schema.

# Registry

Schemas are kept on disk in the layout of the AS3 repository:

	<dir>/schema/<version>/as3-schema-<version>-*.json
	<dir>/schema/latest/as3-schema.json

A Registry loads schema documents lazily per version. The "latest" version
always refers to the highest version found on disk. When the schema
directory is missing the registry's Fetcher populates it.

# Validation

Validators are compiled once per version (draft-07, with F5 specific
format checkers such as f5ip and f5name) and kept in a bounded cache.
Violations are returned as a ValidationError which lists every violated
rule.
*/
package schema
