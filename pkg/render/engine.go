// Copyright 2024 The Carvel Authors.
// SPDX-License-Identifier: Apache-2.0

/*
Package render renders declaration templates written in Go text/template
syntax against a configuration.

Rendering is strict: referencing a missing key, a nil value, an undefined
variable or an unknown function fails with UndefinedError. The configuration
is available as the function "ninja" and as ".ninja":

	{"id": "{{ninja.id}}", "name": "{{.ninja.name}}"}

Templates referenced with {{template "name" .}} are loaded from the search
path. Additional functions are provided through a Registry.
*/
package render

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"text/template"
	"text/template/parse"
)

const (
	memoryTemplateName = "template"
	maxIncludeDepth    = 100

	// appended to every printing action, see guardPrintedValues
	printFuncName = "_ninja_print"
)

var (
	reservedNames = map[string]bool{"ninja": true, "searchpath": true, "include": true, printFuncName: true}

	// parse errors are formatted as "template: NAME:LINE: MSG"
	parseErrRegexp = regexp.MustCompile(`(?s)^template: (.+?):(\d+): (.*)$`)
	callErrRegexp  = regexp.MustCompile(`error calling (\w+): `)

	undefinedTemplateRegexp = regexp.MustCompile(`template "([^"]*)" not defined`)

	undefinedExecMsgs = []string{
		"map has no entry for key",
		"nil data; no entry for key",
		"nil pointer evaluating",
		"can't evaluate field",
		"index out of range",
		"index of untyped nil",
		"index of nil pointer",
		"nil is not a command",
	}
)

type EngineOpts struct {
	// SearchPath is the directory templates are loaded from. Defaults to ".".
	SearchPath string
	// Registry provides extensions. May be nil.
	Registry *Registry
}

type Engine struct {
	opts EngineOpts
}

func NewEngine(opts EngineOpts) *Engine {
	if len(opts.SearchPath) == 0 {
		opts.SearchPath = "."
	}
	opts.SearchPath = strings.TrimSuffix(opts.SearchPath, "/")
	if len(opts.SearchPath) == 0 {
		opts.SearchPath = "/"
	}
	if opts.Registry == nil {
		opts.Registry = NewRegistry()
	}
	return &Engine{opts}
}

func (e *Engine) SearchPath() string  { return e.opts.SearchPath }
func (e *Engine) Registry() *Registry { return e.opts.Registry }

// Render renders templateText against configuration.
func (e *Engine) Render(templateText string, configuration map[string]interface{}) (string, error) {
	return e.RenderWithContext(context.Background(), templateText, configuration)
}

// RenderWithContext is like Render; ctx is handed to extensions via Context.Ctx.
func (e *Engine) RenderWithContext(ctx context.Context, templateText string, configuration map[string]interface{}) (string, error) {
	return newContext(ctx, e, configuration).render(memoryTemplateName, templateText, nil)
}

func (c *Context) render(name, text string, extra map[string]interface{}) (string, error) {
	if c.includeDepth >= maxIncludeDepth {
		return "", fmt.Errorf("Maximum template include depth of %d exceeded while rendering '%s'", maxIncludeDepth, name)
	}
	c.includeDepth++
	defer func() { c.includeDepth-- }()

	funcs, err := c.funcMap()
	if err != nil {
		return "", err
	}

	sources := map[string]string{name: text}

	tpl, err := template.New(name).Option("missingkey=error").Funcs(funcs).Parse(text)
	if err != nil {
		return "", c.parseErr(err, name, sources)
	}

	err = c.loader().LoadReferenced(tpl, sources)
	if err != nil {
		return "", c.parseErr(err, name, sources)
	}

	guardPrintedValues(tpl)

	var buf bytes.Buffer

	err = tpl.Execute(&buf, c.rootData(extra))
	if err != nil {
		return "", c.execErr(err)
	}

	return buf.String(), nil
}

func (c *Context) funcMap() (template.FuncMap, error) {
	funcs, err := c.Engine.opts.Registry.funcs(c)
	if err != nil {
		return nil, err
	}

	funcs["ninja"] = func() map[string]interface{} { return c.Configuration }
	funcs[printFuncName] = func(expr string, val interface{}) (interface{}, error) {
		if val == nil {
			return nil, &UndefinedError{Message: fmt.Sprintf("'%s' is null", expr)}
		}
		return val, nil
	}
	funcs["searchpath"] = c.SearchPathPrefix
	funcs["include"] = func(path string, keyValues ...interface{}) (string, error) {
		extra, err := KeyValues(keyValues...)
		if err != nil {
			return "", err
		}
		return c.RenderFile(path, extra)
	}

	return funcs, nil
}

func (c *Context) parseErr(err error, name string, sources map[string]string) error {
	match := parseErrRegexp.FindStringSubmatch(err.Error())
	if match == nil {
		return err
	}

	parseName, msg := match[1], match[3]

	if strings.HasPrefix(msg, "undefined variable") || strings.HasPrefix(msg, "function ") && strings.HasSuffix(msg, " not defined") {
		return &UndefinedError{Message: err.Error()}
	}

	line, _ := strconv.Atoi(match[2])

	syntaxErr := &TemplateSyntaxError{Message: msg, Line: line, Source: sources[parseName]}
	if parseName != memoryTemplateName {
		syntaxErr.File = parseName
	}
	return syntaxErr
}

func (c *Context) execErr(err error) error {
	var execErr template.ExecError
	if !errors.As(err, &execErr) {
		return err
	}

	msg := execErr.Error()

	// errors returned by extensions are passed through
	if inner := errors.Unwrap(execErr.Err); inner != nil {
		match := callErrRegexp.FindStringSubmatch(msg)
		if match != nil && c.isExtension(match[1]) {
			return inner
		}
	}

	for _, undefinedMsg := range undefinedExecMsgs {
		if strings.Contains(msg, undefinedMsg) {
			return &UndefinedError{Message: msg}
		}
	}

	if match := undefinedTemplateRegexp.FindStringSubmatch(msg); match != nil {
		return &TemplateNotFoundError{Name: match[1], SearchPath: c.SearchPath}
	}

	return err
}

func (c *Context) isExtension(name string) bool {
	if reservedNames[name] {
		return true
	}
	_, found := c.Engine.opts.Registry.Lookup(name)
	return found
}

// KeyValues turns alternating key/value arguments into a mapping.
func KeyValues(args ...interface{}) (map[string]interface{}, error) {
	if len(args)%2 != 0 {
		return nil, fmt.Errorf("Expected an even number of key/value arguments, but got %d", len(args))
	}

	result := map[string]interface{}{}
	for i := 0; i < len(args); i += 2 {
		key, ok := args[i].(string)
		if !ok {
			return nil, fmt.Errorf("Expected key at position %d to be a string, but was %T", i, args[i])
		}
		result[key] = args[i+1]
	}
	return result, nil
}

// guardPrintedValues makes actions that print a nil value fail instead of
// emitting "<no value>". Actions declaring variables print nothing and
// are left alone; conditions are not affected.
func guardPrintedValues(tpl *template.Template) {
	seen := map[*parse.ListNode]bool{}
	for _, t := range tpl.Templates() {
		if t.Tree == nil || t.Tree.Root == nil || seen[t.Tree.Root] {
			continue
		}
		seen[t.Tree.Root] = true
		guardActions(t.Tree.Root)
	}
}

func guardActions(list *parse.ListNode) {
	if list == nil {
		return
	}

	for _, node := range list.Nodes {
		switch typedNode := node.(type) {
		case *parse.ActionNode:
			pipe := typedNode.Pipe
			if pipe == nil || len(pipe.Decl) > 0 {
				continue
			}
			expr := pipe.String()
			pipe.Cmds = append(pipe.Cmds, &parse.CommandNode{
				NodeType: parse.NodeCommand,
				Pos:      typedNode.Pos,
				Args: []parse.Node{
					parse.NewIdentifier(printFuncName).SetPos(typedNode.Pos),
					&parse.StringNode{NodeType: parse.NodeString, Pos: typedNode.Pos, Quoted: strconv.Quote(expr), Text: expr},
				},
			})

		case *parse.IfNode:
			guardActions(typedNode.List)
			guardActions(typedNode.ElseList)

		case *parse.RangeNode:
			guardActions(typedNode.List)
			guardActions(typedNode.ElseList)

		case *parse.WithNode:
			guardActions(typedNode.List)
			guardActions(typedNode.ElseList)
		}
	}
}
