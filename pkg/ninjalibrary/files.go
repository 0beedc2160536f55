// Copyright 2024 The Carvel Authors.
// SPDX-License-Identifier: Apache-2.0

package ninjalibrary

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"carvel.dev/as3ninja/pkg/deserialize"
	"carvel.dev/as3ninja/pkg/render"
	"github.com/bmatcuk/doublestar/v4"
)

var (
	FilesExtensions = []render.Extension{
		{Name: "readfile", Kind: render.KindFilter, Factory: func(ctx *render.Context) interface{} {
			return filesModule{ctx}.Readfile
		}},
		{Name: "iterfiles", Kind: render.KindFunction, Factory: func(ctx *render.Context) interface{} {
			return filesModule{ctx}.Iterfiles
		}},
	}
)

type filesModule struct {
	ctx *render.Context
}

// Readfile implements `readfile [missingOK] path`. path is relative to the search path.
func (m filesModule) Readfile(args ...interface{}) (string, error) {
	opts, subject, err := splitArgs("readfile", args, 1)
	if err != nil {
		return "", err
	}

	missingOK, err := boolOpt("readfile", opts, 0, false)
	if err != nil {
		return "", err
	}

	path, err := stringArg("readfile", subject)
	if err != nil {
		return "", err
	}

	contents, err := os.ReadFile(m.resolve(path))
	if err != nil {
		if missingOK && errors.Is(err, fs.ErrNotExist) {
			return "", nil
		}
		return "", fmt.Errorf("readfile: %s", err)
	}

	if !utf8.Valid(contents) {
		return "", fmt.Errorf("readfile: File '%s' is not valid UTF-8 text", path)
	}

	return string(contents), nil
}

// Iterfiles implements `iterfiles [missingOK] pattern`. For every file
// matching pattern (relative to the search path, ascending order) it
// returns the values matched by each "*" followed by the deserialized
// file content, or the raw text when the file is neither JSON nor YAML.
func (m filesModule) Iterfiles(args ...interface{}) ([][]interface{}, error) {
	opts, subject, err := splitArgs("iterfiles", args, 1)
	if err != nil {
		return nil, err
	}

	missingOK, err := boolOpt("iterfiles", opts, 0, false)
	if err != nil {
		return nil, err
	}

	pattern, err := stringArg("iterfiles", subject)
	if err != nil {
		return nil, err
	}

	base := m.ctx.SearchPath
	if filepath.IsAbs(pattern) {
		base = ""
	}

	paths, err := doublestar.Glob(os.DirFS(m.dirFSRoot(base)), m.fsPattern(base, pattern), doublestar.WithFilesOnly())
	if err != nil {
		return nil, fmt.Errorf("iterfiles: Invalid pattern '%s': %s", pattern, err)
	}
	if len(paths) == 0 {
		if missingOK {
			return [][]interface{}{}, nil
		}
		return nil, fmt.Errorf("iterfiles: Could not find any files for pattern:%s", pattern)
	}
	sort.Strings(paths)

	matcher, err := iterfilesRegexp(pattern)
	if err != nil {
		return nil, err
	}

	var result [][]interface{}

	for _, path := range paths {
		relPath := path
		if filepath.IsAbs(pattern) {
			relPath = "/" + path
		}

		var item []interface{}
		if groups := matcher.FindStringSubmatch(relPath); groups != nil {
			for _, group := range groups[1:] {
				item = append(item, group)
			}
		}

		fullPath := filepath.Join(m.dirFSRoot(base), filepath.FromSlash(path))

		content, err := m.fileContent(fullPath)
		if err != nil {
			return nil, fmt.Errorf("iterfiles: %s", err)
		}

		result = append(result, append(item, content))
	}

	return result, nil
}

// fileContent returns the deserialized mapping or list stored at path,
// otherwise the file's text.
func (m filesModule) fileContent(path string) (interface{}, error) {
	content, err := deserialize.File(path)
	if err != nil {
		var deserializeErr *deserialize.DeserializeError
		if !errors.As(err, &deserializeErr) || errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	if err == nil {
		switch content.(type) {
		case map[string]interface{}, []interface{}:
			return content, nil
		}
	}

	return deserialize.Text(path)
}

func (m filesModule) resolve(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(m.ctx.SearchPath, path)
}

func (m filesModule) dirFSRoot(base string) string {
	if len(base) == 0 {
		return "/"
	}
	return base
}

func (m filesModule) fsPattern(base, pattern string) string {
	pattern = filepath.ToSlash(pattern)
	if len(base) == 0 {
		return strings.TrimPrefix(pattern, "/")
	}
	return strings.TrimPrefix(pattern, "./")
}

// iterfilesRegexp turns a glob pattern into a regexp capturing every
// "*" or "**". A "**/" may match zero directories.
func iterfilesRegexp(pattern string) (*regexp.Regexp, error) {
	pattern = strings.TrimPrefix(filepath.ToSlash(pattern), "./")

	var expr strings.Builder
	expr.WriteString("^")

	for len(pattern) > 0 {
		switch {
		case strings.HasPrefix(pattern, "**/"):
			expr.WriteString("(?:(.*)/)?")
			pattern = pattern[3:]
		case strings.HasPrefix(pattern, "**"):
			expr.WriteString("(.*)")
			pattern = pattern[2:]
		case strings.HasPrefix(pattern, "*"):
			expr.WriteString("(.*)")
			pattern = pattern[1:]
		default:
			idx := strings.Index(pattern, "*")
			if idx < 0 {
				idx = len(pattern)
			}
			expr.WriteString(regexp.QuoteMeta(pattern[:idx]))
			pattern = pattern[idx:]
		}
	}
	expr.WriteString("$")

	matcher, err := regexp.Compile(expr.String())
	if err != nil {
		return nil, fmt.Errorf("iterfiles: Building matcher for pattern: %s", err)
	}
	return matcher, nil
}
