package template

import (
	"fmt"
	"io"
)

func (n *TextNode) Execute(_ *Context, w io.Writer) error {
	_, err := io.WriteString(w, n.Text)
	return err
}

func (n *OutputNode) Execute(ctx *Context, w io.Writer) error {
	v, err := n.Expr.Eval(ctx)
	if err != nil {
		return ctx.WrapError(n.Pos(), err)
	}
	_, err = io.WriteString(w, toString(v))
	return err
}

func (n *IfNode) Execute(ctx *Context, w io.Writer) error {
	for _, b := range n.Branches {
		v, err := b.Cond.Eval(ctx)
		if err != nil {
			return ctx.WrapError(n.Pos(), err)
		}
		if Truthy(v) {
			return ctx.Render(b.Body, w)
		}
	}
	return ctx.Render(n.Else, w)
}

func (n *ForNode) Execute(ctx *Context, w io.Writer) error {
	seq, err := n.Iter.Eval(ctx)
	if err != nil {
		return ctx.WrapError(n.Pos(), err)
	}
	items, err := iterate(seq)
	if err != nil {
		return ctx.WrapError(n.Pos(), err)
	}
	if len(items) == 0 {
		return ctx.Render(n.Else, w)
	}

	length := int64(len(items))
	for i, it := range items {
		scope := ctx.Child()
		idx := int64(i)
		scope.Set("loop", map[string]any{
			"index":     idx + 1,
			"index0":    idx,
			"revindex":  length - idx,
			"revindex0": length - idx - 1,
			"first":     i == 0,
			"last":      idx == length-1,
			"length":    length,
		})
		if n.Key != "" {
			k, v := it.Key, it.Value
			if _, isMap := seq.(map[string]any); !isMap {
				// two names over a sequence unpack [a, b] elements
				k, v, err = unpack(it.Value)
				if err != nil {
					return ctx.WrapError(n.Pos(), err)
				}
			}
			scope.Set(n.Key, k)
			scope.Set(n.Value, v)
		} else {
			scope.Set(n.Value, it.Value)
		}
		if err := scope.Render(n.Body, w); err != nil {
			return err
		}
	}
	return nil
}

func unpack(v any) (any, any, error) {
	items, err := iterate(v)
	if err != nil || len(items) != 2 {
		return nil, nil, fmt.Errorf("cannot unpack %s into two names", typeName(v))
	}
	return items[0].Value, items[1].Value, nil
}

func (n *SetNode) Execute(ctx *Context, w io.Writer) error {
	if n.Expr == nil {
		s, err := ctx.Child().RenderString(n.Body)
		if err != nil {
			return err
		}
		ctx.Set(n.Name, s)
		return nil
	}
	v, err := n.Expr.Eval(ctx)
	if err != nil {
		return ctx.WrapError(n.Pos(), err)
	}
	ctx.Set(n.Name, v)
	return nil
}

func (n *IncludeNode) Execute(ctx *Context, w io.Writer) error {
	v, err := n.Template.Eval(ctx)
	if err != nil {
		return ctx.WrapError(n.Pos(), err)
	}
	name, ok := v.(string)
	if !ok {
		return ctx.WrapError(n.Pos(), fmt.Errorf("include expects a template name, got %s", typeName(v)))
	}
	if ctx.env == nil {
		return ctx.WrapError(n.Pos(), fmt.Errorf("include %q: no environment", name))
	}
	tmpl, err := ctx.env.GetTemplate(name)
	if err != nil {
		return ctx.WrapError(n.Pos(), err)
	}
	scope := &Context{env: ctx.env, template: tmpl.Name, parent: ctx, vars: make(map[string]any)}
	return scope.Render(tmpl.Nodes, w)
}
