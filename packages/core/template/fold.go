package template

// Fold evaluates e when it is built only from literals and operators over
// literals. ok is false for anything that needs a render context: names,
// calls, filters and tests. err is set when a constant expression fails
// to evaluate, such as 1 / 0.
func Fold(e Expr) (v any, ok bool, err error) {
	if !isConstant(e) {
		return nil, false, nil
	}
	v, err = e.Eval(&Context{})
	if err != nil {
		return nil, true, err
	}
	return v, true, nil
}

func isConstant(e Expr) bool {
	switch n := e.(type) {
	case *Literal:
		return true
	case *ListExpr:
		return allConstant(n.Items)
	case *DictExpr:
		return allConstant(n.Keys) && allConstant(n.Values)
	case *UnaryExpr:
		return isConstant(n.X)
	case *BinaryExpr:
		return isConstant(n.Left) && isConstant(n.Right)
	case *IndexExpr:
		return isConstant(n.Target) && isConstant(n.Key)
	case *CondExpr:
		return isConstant(n.Cond) && isConstant(n.Then) && (n.Else == nil || isConstant(n.Else))
	}
	return false
}

func allConstant(exprs []Expr) bool {
	for _, e := range exprs {
		if !isConstant(e) {
			return false
		}
	}
	return true
}
