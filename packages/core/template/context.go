package template

import (
	"errors"
	"io"
	"strings"

	"github.com/abdul-hamid-achik/tplspec/packages/predicate"
)

// Context is one scope in the render-time variable chain. Lookups walk
// outwards through parents and end at the environment globals.
type Context struct {
	env      *Environment
	template string
	parent   *Context
	vars     map[string]any
}

func newContext(env *Environment, template string, vars map[string]any) *Context {
	scope := make(map[string]any, len(vars))
	for k, v := range vars {
		scope[k] = v
	}
	return &Context{env: env, template: template, vars: scope}
}

// Lookup resolves name in this scope, its parents, then the globals.
func (c *Context) Lookup(name string) (any, bool) {
	for s := c; s != nil; s = s.parent {
		if v, ok := s.vars[name]; ok {
			return v, true
		}
	}
	if c.env != nil {
		return c.env.global(name)
	}
	return nil, false
}

// Set binds name in this scope only.
func (c *Context) Set(name string, value any) {
	if c.vars == nil {
		c.vars = make(map[string]any)
	}
	c.vars[name] = value
}

// Child returns a fresh scope whose writes do not leak into c.
func (c *Context) Child() *Context {
	return &Context{env: c.env, template: c.template, parent: c, vars: make(map[string]any)}
}

func (c *Context) Environment() *Environment {
	return c.env
}

func (c *Context) TemplateName() string {
	return c.template
}

// Render executes nodes in order, stopping at the first error.
func (c *Context) Render(nodes []Node, w io.Writer) error {
	for _, n := range nodes {
		if err := n.Execute(c, w); err != nil {
			return err
		}
	}
	return nil
}

// RenderString renders nodes into a string.
func (c *Context) RenderString(nodes []Node) (string, error) {
	var sb strings.Builder
	if err := c.Render(nodes, &sb); err != nil {
		return "", err
	}
	return sb.String(), nil
}

// WrapError attaches the template location at pos to err. Errors that
// already carry a location are returned as is.
func (c *Context) WrapError(pos Position, err error) error {
	if err == nil {
		return nil
	}
	var re *RenderError
	if errors.As(err, &re) {
		return err
	}
	return &RenderError{Template: c.template, Line: pos.Line, Column: pos.Column, Err: err}
}

func (c *Context) filter(name string) (Filter, bool) {
	if c.env == nil {
		return nil, false
	}
	return c.env.filter(name)
}

func (c *Context) predicate(name string) (predicate.Predicate, bool) {
	if c.env == nil {
		return nil, false
	}
	return c.env.Predicates().Lookup(name)
}
