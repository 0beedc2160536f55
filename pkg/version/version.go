// Copyright 2024 The Carvel Authors.
// SPDX-License-Identifier: Apache-2.0

/*
Package version holds the version of as3ninja; it is set at build time
with -ldflags "-X carvel.dev/as3ninja/pkg/version.Version=...".
*/
package version

var (
	// Version is the version of as3ninja
	Version = "develop"
)
