// Copyright 2024 The Carvel Authors.
// SPDX-License-Identifier: Apache-2.0

package render

import (
	"fmt"
	"reflect"
	"regexp"
	"sort"
	"sync"
)

// Kind describes how an extension is meant to be used in templates.
// Go templates call all kinds the same way; pipelines pass the piped
// value as the last argument, so every function doubles as a filter.
type Kind int

const (
	KindFunction Kind = iota
	KindFilter
	KindTest
)

func (k Kind) String() string {
	switch k {
	case KindFilter:
		return "filter"
	case KindTest:
		return "test"
	default:
		return "function"
	}
}

// Extension is a named function available to templates.
// Exactly one of Func and Factory must be set.
type Extension struct {
	Name string
	Kind Kind
	Func interface{}
	// Factory builds the function for a render Context.
	Factory func(*Context) interface{}
}

var (
	extensionNameRegexp = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
	errorType           = reflect.TypeOf((*error)(nil)).Elem()
)

// Registry holds the extensions made available to templates.
type Registry struct {
	mu   sync.RWMutex
	exts map[string]Extension
}

func NewRegistry() *Registry {
	return &Registry{exts: map[string]Extension{}}
}

func (r *Registry) Register(ext Extension) error {
	if !extensionNameRegexp.MatchString(ext.Name) {
		return fmt.Errorf("Expected extension name '%s' to be a valid identifier", ext.Name)
	}
	if reservedNames[ext.Name] {
		return fmt.Errorf("Extension name '%s' is reserved", ext.Name)
	}
	if (ext.Func == nil) == (ext.Factory == nil) {
		return fmt.Errorf("Expected extension '%s' to set exactly one of Func or Factory", ext.Name)
	}
	if ext.Func != nil {
		err := checkFunc(ext.Name, ext.Func)
		if err != nil {
			return err
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, found := r.exts[ext.Name]; found {
		return fmt.Errorf("Extension '%s' is already registered", ext.Name)
	}
	r.exts[ext.Name] = ext
	return nil
}

// MustRegister is like Register but panics on error.
func (r *Registry) MustRegister(exts ...Extension) {
	for _, ext := range exts {
		err := r.Register(ext)
		if err != nil {
			panic(err)
		}
	}
}

func (r *Registry) Lookup(name string) (Extension, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ext, found := r.exts[name]
	return ext, found
}

// Names returns extension names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var names []string
	for name := range r.exts {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (r *Registry) Clone() *Registry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := NewRegistry()
	for name, ext := range r.exts {
		result.exts[name] = ext
	}
	return result
}

func (r *Registry) funcs(ctx *Context) (map[string]interface{}, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := map[string]interface{}{}
	for name, ext := range r.exts {
		fn := ext.Func
		if ext.Factory != nil {
			fn = ext.Factory(ctx)
			err := checkFunc(name, fn)
			if err != nil {
				return nil, err
			}
		}
		result[name] = fn
	}
	return result, nil
}

// checkFunc applies the same rules text/template applies to FuncMap values.
func checkFunc(name string, fn interface{}) error {
	typ := reflect.TypeOf(fn)
	if typ == nil || typ.Kind() != reflect.Func {
		return fmt.Errorf("Expected extension '%s' to be a function, but was %T", name, fn)
	}
	switch {
	case typ.NumOut() == 1:
		return nil
	case typ.NumOut() == 2 && typ.Out(1) == errorType:
		return nil
	default:
		return fmt.Errorf("Expected extension '%s' to return a value and optionally an error", name)
	}
}
