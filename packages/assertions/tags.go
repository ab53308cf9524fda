package assertions

import (
	"github.com/abdul-hamid-achik/tplspec/packages/core/template"
)

type options struct {
	stats *Stats
}

type Option func(*options)

// WithStats counts every evaluated assertion into s.
func WithStats(s *Stats) Option {
	return func(o *options) {
		o.stats = s
	}
}

// Register installs assert, assert_fails, assert_true, assert_false and
// assert_that on env.
func Register(env *template.Environment, opts ...Option) {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	env.RegisterTag("assert", o.parseAssert)
	env.RegisterTag("assert_fails", o.parseAssertFails)
	env.RegisterTag("assert_true", o.parseAssertBool(true))
	env.RegisterTag("assert_false", o.parseAssertBool(false))
	env.RegisterTag("assert_that", o.parseAssertThat)
}

func (o *options) parseAssert(p *template.Parser, start template.Token) (template.Node, error) {
	name, err := p.ExpectName()
	if err != nil {
		return nil, p.Errorf(name, "assert: expected a predicate name, got '%s'", name.Value)
	}
	node := &AssertCall{Position: start.Pos(), Predicate: name.Value, Source: name.Value, stats: o.stats}

	if p.IsOperator("(") {
		exprs, err := p.ParseCallArgs()
		if err != nil {
			return nil, err
		}
		node.Args = make([]any, len(exprs))
		for i, e := range exprs {
			v, ok, err := template.Fold(e)
			if err != nil {
				return nil, p.ErrorAt(e.Pos(), "assert %s: argument %d: %v", name.Value, i+1, err)
			}
			if !ok {
				return nil, p.ErrorAt(e.Pos(), "assert %s: argument %d is not a constant: %s", name.Value, i+1, e)
			}
			node.Args[i] = v
		}
		node.Source = (&template.CallExpr{Func: &template.NameExpr{Name: name.Value}, Args: exprs}).String()
	}
	if err := p.ExpectTagEnd(); err != nil {
		return nil, err
	}
	if node.Body, err = p.ParseBlock("endassert"); err != nil {
		return nil, err
	}
	return node, nil
}

func (o *options) parseAssertFails(p *template.Parser, start template.Token) (template.Node, error) {
	node := &AssertFails{Position: start.Pos(), stats: o.stats}
	if !p.AtTagEnd() {
		if !p.IsKeyword("as") {
			tok := p.Current()
			return nil, p.Errorf(tok, "assert_fails: expected 'as' or '%%}', got '%s'", tok.Value)
		}
		p.Next()
		name, err := p.ExpectName()
		if err != nil {
			return nil, p.Errorf(name, "assert_fails: expected a variable name after 'as'")
		}
		node.Var = name.Value
	}
	if err := p.ExpectTagEnd(); err != nil {
		return nil, err
	}
	body, _, err := p.ParseUntil("endassert_fails", "endassert")
	if err != nil {
		return nil, err
	}
	node.Body = body
	return node, p.ExpectTagEnd()
}

func (o *options) parseAssertBool(want bool) template.TagParser {
	return func(p *template.Parser, start template.Token) (template.Node, error) {
		if p.AtTagEnd() {
			return nil, p.Errorf(start, "%s: expected an expression", start.Value)
		}
		cond, err := p.ParseExpression()
		if err != nil {
			return nil, err
		}
		if err := p.ExpectTagEnd(); err != nil {
			return nil, err
		}
		return &AssertBool{Position: start.Pos(), Cond: cond, Want: want, stats: o.stats}, nil
	}
}

func (o *options) parseAssertThat(p *template.Parser, start template.Token) (template.Node, error) {
	if p.AtTagEnd() {
		return nil, p.Errorf(start, "assert_that: expected an expression")
	}
	expr, err := p.ParseExpression()
	if err != nil {
		return nil, err
	}
	test, err := validateThat(p, expr)
	if err != nil {
		return nil, err
	}
	if err := p.ExpectTagEnd(); err != nil {
		return nil, err
	}
	return &AssertThat{Position: start.Pos(), Test: test, stats: o.stats}, nil
}
