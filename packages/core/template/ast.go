package template

import (
	"io"
	"strconv"
	"strings"
)

type Position struct {
	Line   int
	Column int
}

func (p Position) Pos() Position {
	return p
}

// Node is an executable template statement.
type Node interface {
	Pos() Position
	Execute(ctx *Context, w io.Writer) error
}

// Expr is a parsed expression. String returns a normalised source form
// used in error messages.
type Expr interface {
	Pos() Position
	Eval(ctx *Context) (any, error)
	String() string
}

type TextNode struct {
	Position
	Text string
}

type OutputNode struct {
	Position
	Expr Expr
}

type IfBranch struct {
	Cond Expr
	Body []Node
}

type IfNode struct {
	Position
	Branches []IfBranch
	Else     []Node
}

type ForNode struct {
	Position
	Key   string
	Value string
	Iter  Expr
	Body  []Node
	Else  []Node
}

// SetNode assigns either Expr or, when Expr is nil, the rendered Body.
type SetNode struct {
	Position
	Name string
	Expr Expr
	Body []Node
}

type IncludeNode struct {
	Position
	Template Expr
}

type Literal struct {
	Position
	Value any
}

type NameExpr struct {
	Position
	Name string
}

type ListExpr struct {
	Position
	Items []Expr
}

type DictExpr struct {
	Position
	Keys   []Expr
	Values []Expr
}

type AttrExpr struct {
	Position
	Target Expr
	Name   string
}

type IndexExpr struct {
	Position
	Target Expr
	Key    Expr
}

type CallExpr struct {
	Position
	Func Expr
	Args []Expr
}

type FilterExpr struct {
	Position
	Target Expr
	Name   string
	Args   []Expr
}

type UnaryExpr struct {
	Position
	Op string
	X  Expr
}

type BinaryExpr struct {
	Position
	Op    string
	Left  Expr
	Right Expr
}

// TestExpr is the `subject is name(args)` relation.
type TestExpr struct {
	Position
	Subject Expr
	Name    string
	Args    []Expr
	Negated bool
}

type CondExpr struct {
	Position
	Then Expr
	Cond Expr
	Else Expr
}

func (e *Literal) String() string {
	switch v := e.Value.(type) {
	case nil:
		return "none"
	case string:
		return quoteString(v)
	case bool:
		return strconv.FormatBool(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64)
	}
	return toString(e.Value)
}

func (e *NameExpr) String() string { return e.Name }

func (e *ListExpr) String() string {
	return "[" + joinExprs(e.Items) + "]"
}

func (e *DictExpr) String() string {
	parts := make([]string, len(e.Keys))
	for i := range e.Keys {
		parts[i] = e.Keys[i].String() + ": " + e.Values[i].String()
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

func (e *AttrExpr) String() string { return e.Target.String() + "." + e.Name }

func (e *IndexExpr) String() string {
	return e.Target.String() + "[" + e.Key.String() + "]"
}

func (e *CallExpr) String() string {
	return e.Func.String() + "(" + joinExprs(e.Args) + ")"
}

func (e *FilterExpr) String() string {
	s := e.Target.String() + " | " + e.Name
	if len(e.Args) > 0 {
		s += "(" + joinExprs(e.Args) + ")"
	}
	return s
}

func (e *UnaryExpr) String() string {
	if e.Op == "not" {
		return "not " + operand(e.X)
	}
	return e.Op + operand(e.X)
}

func (e *BinaryExpr) String() string {
	return operand(e.Left) + " " + e.Op + " " + operand(e.Right)
}

func (e *TestExpr) String() string {
	s := operand(e.Subject) + " is "
	if e.Negated {
		s += "not "
	}
	s += e.Name
	if len(e.Args) > 0 {
		s += "(" + joinExprs(e.Args) + ")"
	}
	return s
}

func (e *CondExpr) String() string {
	s := operand(e.Then) + " if " + operand(e.Cond)
	if e.Else != nil {
		s += " else " + operand(e.Else)
	}
	return s
}

// operand parenthesises compound sub-expressions so String stays unambiguous.
func operand(e Expr) string {
	switch e.(type) {
	case *BinaryExpr, *TestExpr, *CondExpr:
		return "(" + e.String() + ")"
	}
	return e.String()
}

func joinExprs(exprs []Expr) string {
	parts := make([]string, len(exprs))
	for i, e := range exprs {
		parts[i] = e.String()
	}
	return strings.Join(parts, ", ")
}

func quoteString(s string) string {
	return strconv.Quote(s)
}
