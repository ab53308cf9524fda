package template

import (
	"fmt"
)

// Func is a callable template global.
type Func func(args ...any) (any, error)

func (e *Literal) Eval(_ *Context) (any, error) {
	return e.Value, nil
}

func (e *NameExpr) Eval(ctx *Context) (any, error) {
	if v, ok := ctx.Lookup(e.Name); ok {
		return v, nil
	}
	return Undefined{Name: e.Name}, nil
}

func (e *ListExpr) Eval(ctx *Context) (any, error) {
	items, err := evalAll(ctx, e.Items)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []any{}
	}
	return items, nil
}

func (e *DictExpr) Eval(ctx *Context) (any, error) {
	out := make(map[string]any, len(e.Keys))
	for i := range e.Keys {
		k, err := e.Keys[i].Eval(ctx)
		if err != nil {
			return nil, err
		}
		v, err := e.Values[i].Eval(ctx)
		if err != nil {
			return nil, err
		}
		out[toString(k)] = v
	}
	return out, nil
}

func (e *AttrExpr) Eval(ctx *Context) (any, error) {
	target, err := e.Target.Eval(ctx)
	if err != nil {
		return nil, err
	}
	if u, ok := isUndefined(target); ok {
		return nil, &UndefinedError{Name: u.Name}
	}
	if target == nil {
		return nil, fmt.Errorf("'%s' is none, cannot read attribute '%s'", e.Target, e.Name)
	}
	if v, ok := getAttr(target, e.Name); ok {
		return v, nil
	}
	if v, ok, _ := getItem(target, e.Name); ok {
		return v, nil
	}
	return Undefined{Name: e.String()}, nil
}

func (e *IndexExpr) Eval(ctx *Context) (any, error) {
	target, err := e.Target.Eval(ctx)
	if err != nil {
		return nil, err
	}
	if u, ok := isUndefined(target); ok {
		return nil, &UndefinedError{Name: u.Name}
	}
	key, err := e.Key.Eval(ctx)
	if err != nil {
		return nil, err
	}
	if u, ok := isUndefined(key); ok {
		return nil, &UndefinedError{Name: u.Name}
	}
	v, ok, err := getItem(target, key)
	if err != nil {
		return nil, err
	}
	if !ok {
		return Undefined{Name: e.String()}, nil
	}
	return v, nil
}

func (e *CallExpr) Eval(ctx *Context) (any, error) {
	fn, err := e.Func.Eval(ctx)
	if err != nil {
		return nil, err
	}
	if u, ok := isUndefined(fn); ok {
		return nil, &UndefinedError{Name: u.Name}
	}
	args, err := evalAll(ctx, e.Args)
	if err != nil {
		return nil, err
	}
	switch f := fn.(type) {
	case Func:
		return f(args...)
	case func(args ...any) (any, error):
		return f(args...)
	}
	return nil, fmt.Errorf("'%s' is not callable", e.Func)
}

func (e *FilterExpr) Eval(ctx *Context) (any, error) {
	target, err := e.Target.Eval(ctx)
	if err != nil {
		return nil, err
	}
	filter, ok := ctx.filter(e.Name)
	if !ok {
		return nil, fmt.Errorf("no filter named '%s'", e.Name)
	}
	args, err := evalAll(ctx, e.Args)
	if err != nil {
		return nil, err
	}
	out, err := filter(target, args...)
	if err != nil {
		return nil, fmt.Errorf("filter '%s': %w", e.Name, err)
	}
	return out, nil
}

func (e *UnaryExpr) Eval(ctx *Context) (any, error) {
	x, err := e.X.Eval(ctx)
	if err != nil {
		return nil, err
	}
	if e.Op == "not" {
		return !Truthy(x), nil
	}
	if u, ok := isUndefined(x); ok {
		return nil, &UndefinedError{Name: u.Name}
	}
	n, ok := number(x)
	if !ok {
		return nil, fmt.Errorf("bad operand type for unary %s: %s", e.Op, typeName(x))
	}
	if e.Op == "+" {
		return n.value(), nil
	}
	if n.isInt {
		return -n.i, nil
	}
	return -n.f, nil
}

func (e *BinaryExpr) Eval(ctx *Context) (any, error) {
	left, err := e.Left.Eval(ctx)
	if err != nil {
		return nil, err
	}
	switch e.Op {
	case "and":
		if !Truthy(left) {
			return left, nil
		}
		return e.Right.Eval(ctx)
	case "or":
		if Truthy(left) {
			return left, nil
		}
		return e.Right.Eval(ctx)
	}

	right, err := e.Right.Eval(ctx)
	if err != nil {
		return nil, err
	}
	switch e.Op {
	case "==":
		return valuesEqual(left, right), nil
	case "!=":
		return !valuesEqual(left, right), nil
	case "<", "<=", ">", ">=":
		return compareValues(e.Op, left, right)
	case "in", "not in":
		if u, ok := isUndefined(right); ok {
			return nil, &UndefinedError{Name: u.Name}
		}
		found, err := containsValue(right, left)
		if err != nil {
			return nil, err
		}
		return found == (e.Op == "in"), nil
	case "~":
		return toString(left) + toString(right), nil
	}
	return arithmetic(e.Op, left, right)
}

func (e *TestExpr) Eval(ctx *Context) (any, error) {
	subject, err := e.Subject.Eval(ctx)
	if err != nil {
		return nil, err
	}
	pred, ok := ctx.predicate(e.Name)
	if !ok {
		return nil, fmt.Errorf("test '%s' is not defined", e.Name)
	}
	args, err := evalAll(ctx, e.Args)
	if err != nil {
		return nil, err
	}
	passed, err := pred.Test(subject, args...)
	if err != nil {
		return nil, err
	}
	return passed != e.Negated, nil
}

func (e *CondExpr) Eval(ctx *Context) (any, error) {
	cond, err := e.Cond.Eval(ctx)
	if err != nil {
		return nil, err
	}
	if Truthy(cond) {
		return e.Then.Eval(ctx)
	}
	if e.Else == nil {
		return Undefined{Name: e.String()}, nil
	}
	return e.Else.Eval(ctx)
}

func evalAll(ctx *Context, exprs []Expr) ([]any, error) {
	if len(exprs) == 0 {
		return nil, nil
	}
	out := make([]any, len(exprs))
	for i, e := range exprs {
		v, err := e.Eval(ctx)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}
