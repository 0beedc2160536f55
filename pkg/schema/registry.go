// Copyright 2024 The Carvel Authors.
// SPDX-License-Identifier: Apache-2.0

package schema

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"sync"

	"carvel.dev/as3ninja/pkg/deserialize"
	"github.com/bmatcuk/doublestar/v4"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/xeipuuv/gojsonschema"
	"golang.org/x/sync/singleflight"
)

const (
	DefaultValidatorCacheSize = 64

	schemaSubdir   = "schema"
	schemaFileGlob = "**/as3-schema-*.json"
	fetchKey       = "\x00fetch"
)

type UI interface {
	Warnf(str string, args ...interface{})
}

type RegistryOpts struct {
	// Dir is the root of the AS3 schema repository (SCHEMA_BASE_PATH).
	Dir     string
	Fetcher Fetcher
	// MinVersion defaults to DefaultMinVersion.
	MinVersion         string
	ValidatorCacheSize int
	UI                 UI
}

// Registry holds the schema documents known for a schema directory.
// It is safe for concurrent use.
type Registry struct {
	opts       RegistryOpts
	loads      singleflight.Group
	validators *lru.Cache[string, *gojsonschema.Schema]

	mu    sync.RWMutex
	state *registryState
}

type registryState struct {
	latest    string
	versions  []string
	documents map[string]map[string]interface{}
	paths     map[string]string
}

func newRegistryState() *registryState {
	return &registryState{
		documents: map[string]map[string]interface{}{},
		paths:     map[string]string{},
	}
}

// with returns a copy of the state that includes the result of a load.
func (s *registryState) with(loaded loadResult) *registryState {
	result := newRegistryState()
	for k, v := range s.documents {
		result.documents[k] = v
	}
	for k, v := range s.paths {
		result.paths[k] = v
	}

	result.versions = loaded.versions
	if len(loaded.versions) > 0 {
		result.latest = loaded.versions[0]
	}
	if loaded.document != nil {
		result.documents[loaded.version] = loaded.document
		result.paths[loaded.version] = loaded.path
	}
	return result
}

type noopUI struct{}

func (noopUI) Warnf(string, ...interface{}) {}

func NewRegistry(opts RegistryOpts) *Registry {
	if len(opts.MinVersion) == 0 {
		opts.MinVersion = DefaultMinVersion
	}
	if opts.ValidatorCacheSize <= 0 {
		opts.ValidatorCacheSize = DefaultValidatorCacheSize
	}
	if opts.UI == nil {
		opts.UI = noopUI{}
	}

	validators, err := lru.New[string, *gojsonschema.Schema](opts.ValidatorCacheSize)
	if err != nil {
		// only fails for non-positive sizes
		panic(fmt.Sprintf("Creating validator cache: %s", err))
	}

	return &Registry{
		opts:       opts,
		validators: validators,
		state:      newRegistryState(),
	}
}

// Open returns the schema of the given version ("latest" or MAJOR.MINOR.PATCH).
func (r *Registry) Open(version string) (*Schema, error) {
	return r.OpenContext(context.Background(), version)
}

// OpenContext is like Open; ctx bounds fetching of missing schemas.
func (r *Registry) OpenContext(ctx context.Context, version string) (*Schema, error) {
	err := checkVersionFormat(version, r.opts.MinVersion)
	if err != nil {
		return nil, err
	}

	err = r.ensureFetched(ctx)
	if err != nil {
		return nil, err
	}

	if version != LatestVersion {
		// latest is always known first
		err = r.load(LatestVersion)
		if err != nil {
			return nil, err
		}
	}

	err = r.load(version)
	if err != nil {
		return nil, err
	}

	resolved, err := r.CheckVersion(version)
	if err != nil {
		return nil, err
	}

	doc, _, found := r.document(resolved)
	if !found {
		return nil, &AS3SchemaError{Msg: fmt.Sprintf("Could not load schema version:%s", resolved)}
	}

	return &Schema{registry: r, version: resolved, document: doc}, nil
}

// CheckVersion resolves latest to the actual version and makes sure the
// requested version is known, loading it if necessary.
func (r *Registry) CheckVersion(version string) (string, error) {
	r.mu.RLock()
	state := r.state
	r.mu.RUnlock()

	if version == LatestVersion {
		if len(state.latest) == 0 {
			return "", &SchemaVersionError{Msg: fmt.Sprintf("schema version:%s is unknown", version), Unknown: true}
		}
		return state.latest, nil
	}

	for _, known := range state.versions {
		if known != version {
			continue
		}
		if _, loaded := state.documents[version]; !loaded {
			err := r.load(version)
			if err != nil {
				return "", err
			}
		}
		return version, nil
	}

	return "", &SchemaVersionError{Msg: fmt.Sprintf("schema version:%s is unknown", version), Unknown: true}
}

// Versions returns all known schema versions, newest first.
func (r *Registry) Versions() ([]string, error) {
	state, err := r.loadedState()
	if err != nil {
		return nil, err
	}
	return append([]string{}, state.versions...), nil
}

// LatestVersion returns the newest known schema version.
func (r *Registry) LatestVersion() (string, error) {
	state, err := r.loadedState()
	if err != nil {
		return "", err
	}
	return state.latest, nil
}

// Schemas loads and returns the schemas of all usable versions, newest first.
// Versions that cannot be opened are skipped with a warning.
func (r *Registry) Schemas() ([]*Schema, error) {
	versions, err := r.Versions()
	if err != nil {
		return nil, err
	}

	var result []*Schema
	for _, ver := range versions {
		schema, err := r.Open(ver)
		if err != nil {
			var (
				versionErr   *SchemaVersionError
				as3SchemaErr *AS3SchemaError
			)
			// versions below the minimum and unreadable files are listed but not served
			if errors.As(err, &versionErr) || errors.As(err, &as3SchemaErr) {
				r.opts.UI.Warnf("Could not load schema version:%s, schema ignored. (%s)\n", ver, err)
				continue
			}
			return nil, err
		}
		result = append(result, schema)
	}
	return result, nil
}

// Update fetches the schema repository again and replaces all cached
// schemas and validators.
func (r *Registry) Update(ctx context.Context) error {
	if r.opts.Fetcher == nil {
		return &AS3SchemaError{Msg: "Updating schemas: no fetcher configured"}
	}

	err := r.opts.Fetcher.Fetch(ctx, r.opts.Dir)
	if err != nil {
		return &AS3SchemaError{Msg: "Updating schemas", Err: err}
	}

	loaded, err := r.loadVersion(LatestVersion)
	if err != nil {
		return err
	}

	r.mu.Lock()
	r.state = newRegistryState().with(loaded)
	r.validators.Purge()
	r.mu.Unlock()

	return nil
}

func (r *Registry) loadedState() (*registryState, error) {
	r.mu.RLock()
	state := r.state
	r.mu.RUnlock()

	if len(state.latest) > 0 {
		return state, nil
	}

	_, err := r.Open(LatestVersion)
	if err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.state, nil
}

func (r *Registry) schemaDir() string {
	return filepath.Join(r.opts.Dir, schemaSubdir)
}

func (r *Registry) ensureFetched(ctx context.Context) error {
	_, err, _ := r.loads.Do(fetchKey, func() (interface{}, error) {
		_, err := os.Stat(r.schemaDir())
		if err == nil {
			return nil, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, &AS3SchemaError{Msg: "Checking schema directory", Err: err}
		}
		if r.opts.Fetcher == nil {
			return nil, &AS3SchemaError{Msg: fmt.Sprintf("Schema directory '%s' does not exist", r.schemaDir())}
		}

		err = r.opts.Fetcher.Fetch(ctx, r.opts.Dir)
		if err != nil {
			return nil, &AS3SchemaError{Msg: "Fetching schemas", Err: err}
		}
		return nil, nil
	})
	return err
}

func (r *Registry) document(version string) (map[string]interface{}, string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	doc, found := r.state.documents[version]
	return doc, r.state.paths[version], found
}

// load reads the schema file of version unless it is loaded already.
// latest is resolved through the cached latest pointer; the directory is
// only scanned again by loads of other versions and by Update.
// Concurrent loads of the same version are collapsed.
func (r *Registry) load(version string) error {
	r.mu.RLock()
	state := r.state
	r.mu.RUnlock()

	resolved := version
	if version == LatestVersion {
		resolved = state.latest
	}

	if _, loaded := state.documents[resolved]; loaded && len(resolved) > 0 {
		return nil
	}

	_, err, _ := r.loads.Do(version, func() (interface{}, error) {
		loaded, err := r.loadVersion(version)
		if err != nil {
			return nil, err
		}

		r.mu.Lock()
		r.state = r.state.with(loaded)
		r.mu.Unlock()

		return nil, nil
	})
	return err
}

type schemaFile struct {
	version string
	path    string
}

type loadResult struct {
	version  string
	path     string
	document map[string]interface{}
	versions []string
}

func (r *Registry) loadVersion(version string) (loadResult, error) {
	files, err := r.scan()
	if err != nil {
		return loadResult{}, err
	}
	if len(files) == 0 {
		return loadResult{}, &AS3SchemaError{Msg: fmt.Sprintf("No AS3 schema files found in '%s'", r.schemaDir())}
	}

	if version == LatestVersion {
		version = files[0].version
	}

	result := loadResult{version: version}

	for _, file := range files {
		if file.version == LatestVersion {
			continue
		}
		if len(result.versions) == 0 || result.versions[len(result.versions)-1] != file.version {
			result.versions = append(result.versions, file.version)
		}
		if file.version != version || result.document != nil {
			continue
		}

		doc, err := r.readSchemaFile(file)
		if err != nil {
			r.opts.UI.Warnf("Could not read schemafile: %s, schemafile ignored. (%s)\n", file.path, err)
			continue
		}
		result.path = file.path
		result.document = doc
	}

	if len(result.versions) == 0 {
		return loadResult{}, &AS3SchemaError{Msg: fmt.Sprintf("No versioned AS3 schema files found in '%s'", r.schemaDir())}
	}

	return result, nil
}

// scan lists schema files sorted by version, newest first.
func (r *Registry) scan() ([]schemaFile, error) {
	dir := r.schemaDir()

	matches, err := doublestar.Glob(os.DirFS(dir), schemaFileGlob, doublestar.WithFilesOnly())
	if err != nil {
		return nil, &AS3SchemaError{Msg: fmt.Sprintf("Listing schema files in '%s'", dir), Err: err}
	}

	sort.Strings(matches)

	var result []schemaFile
	for _, match := range matches {
		result = append(result, schemaFile{
			version: path.Base(path.Dir(match)),
			path:    filepath.Join(dir, filepath.FromSlash(match)),
		})
	}

	sortByVersionDesc(result, func(file schemaFile) string { return file.version })

	return result, nil
}

func (r *Registry) readSchemaFile(file schemaFile) (map[string]interface{}, error) {
	err := checkVersionFormat(file.version, r.opts.MinVersion)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(file.path)
	if err != nil {
		return nil, err
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var doc map[string]interface{}
	err = dec.Decode(&doc)
	if err != nil {
		return nil, err
	}

	return deserialize.Normalize(doc).(map[string]interface{}), nil
}
