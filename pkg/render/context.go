// Copyright 2024 The Carvel Authors.
// SPDX-License-Identifier: Apache-2.0

package render

import (
	"context"
	"sync"
)

// Context is the state of a single Render call. Extensions built via
// Extension.Factory receive it to access the configuration, the search
// path or to render nested templates.
type Context struct {
	Configuration map[string]interface{}
	SearchPath    string
	Engine        *Engine

	goCtx        context.Context
	includeDepth int

	mu     sync.Mutex
	values map[string]interface{}
}

func newContext(ctx context.Context, engine *Engine, configuration map[string]interface{}) *Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if configuration == nil {
		configuration = map[string]interface{}{}
	}
	return &Context{
		Configuration: configuration,
		SearchPath:    engine.opts.SearchPath,
		Engine:        engine,
		goCtx:         ctx,
		values:        map[string]interface{}{},
	}
}

// Ctx returns the context.Context the render was started with.
// Extensions performing I/O should honor it.
func (c *Context) Ctx() context.Context { return c.goCtx }

// Memo returns the value stored under key, calling fn to produce it
// on first use. Values live as long as the Context.
func (c *Context) Memo(key string, fn func() (interface{}, error)) (interface{}, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if val, found := c.values[key]; found {
		return val, nil
	}

	val, err := fn()
	if err != nil {
		return nil, err
	}
	c.values[key] = val
	return val, nil
}

// Render renders text with the same configuration and extensions.
// extra values are made available on the root dot next to .ninja.
func (c *Context) Render(text string, extra map[string]interface{}) (string, error) {
	return c.render(memoryTemplateName, text, extra)
}

// RenderFile renders the template at path relative to the search path.
func (c *Context) RenderFile(path string, extra map[string]interface{}) (string, error) {
	src, err := c.loader().Load(path)
	if err != nil {
		return "", err
	}
	return c.render(path, src, extra)
}

// SearchPathPrefix returns the search path with a trailing "/".
func (c *Context) SearchPathPrefix() string {
	return c.SearchPath + "/"
}

func (c *Context) rootData(extra map[string]interface{}) map[string]interface{} {
	data := map[string]interface{}{
		"ninja":      c.Configuration,
		"searchpath": c.SearchPathPrefix(),
	}
	for k, v := range extra {
		data[k] = v
	}
	return data
}

func (c *Context) loader() templateLoader {
	return templateLoader{searchPath: c.SearchPath}
}
