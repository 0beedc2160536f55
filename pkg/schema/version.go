// Copyright 2024 The Carvel Authors.
// SPDX-License-Identifier: Apache-2.0

package schema

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/hashicorp/go-version"
)

const (
	LatestVersion     = "latest"
	AutoVersion       = "auto"
	DefaultMinVersion = "3.8.0"
)

// versionKey concatenates the version's segments into an integer:
// 3.11.1 -> 3111. Non numeric versions (such as latest) sort last.
func versionKey(ver string) int {
	key, err := strconv.Atoi(strings.ReplaceAll(ver, ".", ""))
	if err != nil {
		return 0
	}
	return key
}

// sortByVersionDesc orders items newest first by the version versionOf returns.
// Items of the same version keep their order.
func sortByVersionDesc[T any](items []T, versionOf func(T) string) {
	sort.SliceStable(items, func(i, j int) bool {
		return versionKey(versionOf(items[i])) > versionKey(versionOf(items[j]))
	})
}

func checkVersionFormat(ver, minVersion string) error {
	if ver == LatestVersion {
		return nil
	}

	parsed, err := version.NewVersion(ver)
	if err != nil {
		return &SchemaVersionError{Msg: fmt.Sprintf("version:%s is not a valid version string, exception occurred:%s", ver, err)}
	}

	segments := strings.Split(ver, ".")
	if len(segments) != 3 || len(parsed.Prerelease()) > 0 || len(parsed.Metadata()) > 0 {
		return &SchemaVersionError{Msg: fmt.Sprintf("version:%s is not a valid version string, expected MAJOR.MINOR.PATCH", ver)}
	}
	for _, segment := range segments {
		if len(segment) == 0 || strings.Trim(segment, "0123456789") != "" {
			return &SchemaVersionError{Msg: fmt.Sprintf("version:%s is not a valid version string, expected MAJOR.MINOR.PATCH", ver)}
		}
	}

	if versionKey(ver) < versionKey(minVersion) {
		return &SchemaVersionError{Msg: fmt.Sprintf("Minimum AS3 Schema version is %s, requested version:%s", minVersion, ver)}
	}
	return nil
}
