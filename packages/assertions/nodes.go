package assertions

import (
	"fmt"
	"io"

	"github.com/abdul-hamid-achik/tplspec/packages/core/template"
	"github.com/abdul-hamid-achik/tplspec/packages/predicate"
)

// Outcome is the decision of one assertion. Captured is only set by
// assert_fails.
type Outcome struct {
	Passed   bool
	Message  string
	Captured string
}

// AssertCall is `{% assert name(args) %}body{% endassert %}`. Args were
// folded to constants at parse time.
type AssertCall struct {
	template.Position
	Predicate string
	Args      []any
	Source    string
	Body      []template.Node
	stats     *Stats
}

func (n *AssertCall) Execute(ctx *template.Context, w io.Writer) error {
	if !ctx.Environment().Predicates().Has(n.Predicate) {
		return finish(ctx, n.Pos(), "assert", n.stats, undefinedPredicate(n.Predicate), func(e *AssertionError) {
			e.Predicate = n.Predicate
		})
	}
	subject, err := renderTwice(ctx, n.Body)
	if err != nil {
		return err
	}
	out, err := n.Evaluate(ctx, subject)
	if err != nil {
		return err
	}
	return finish(ctx, n.Pos(), "assert", n.stats, out, func(e *AssertionError) {
		e.Predicate = n.Predicate
		e.Subject = subject
	})
}

// Evaluate applies the predicate to an already rendered subject.
func (n *AssertCall) Evaluate(ctx *template.Context, subject string) (Outcome, error) {
	pred, ok := ctx.Environment().Predicates().Lookup(n.Predicate)
	if !ok {
		return undefinedPredicate(n.Predicate), nil
	}
	passed, err := pred.Test(subject, n.Args...)
	if err != nil {
		return Outcome{}, ctx.WrapError(n.Pos(), fmt.Errorf("assert %s: %w", n.Source, err))
	}
	if passed {
		return Outcome{Passed: true}, nil
	}
	return Outcome{Message: fmt.Sprintf("assert %s: assertion failed on '%s'", n.Source, subject)}, nil
}

func undefinedPredicate(name string) Outcome {
	return Outcome{Message: fmt.Sprintf("test '%s' is not defined", name)}
}

// AssertFails is `{% assert_fails [as var] %}body{% endassert_fails %}`.
type AssertFails struct {
	template.Position
	Var   string
	Body  []template.Node
	stats *Stats
}

func (n *AssertFails) Execute(ctx *template.Context, w io.Writer) error {
	output, err := renderTwice(ctx, n.Body)
	out := n.Evaluate(output, err)
	if out.Passed && n.Var != "" {
		ctx.Set(n.Var, out.Captured)
	}
	return finish(ctx, n.Pos(), "assert_fails", n.stats, out, func(e *AssertionError) {
		e.Subject = output
	})
}

// Evaluate inverts the body's result: an error is the expected outcome.
func (n *AssertFails) Evaluate(output string, renderErr error) Outcome {
	if renderErr != nil {
		return Outcome{Passed: true, Captured: causeMessage(renderErr)}
	}
	return Outcome{Message: fmt.Sprintf("expected failure, got no exception: '%s'", output)}
}

// AssertBool is `{% assert_true expr %}` or, with Want false,
// `{% assert_false expr %}`.
type AssertBool struct {
	template.Position
	Cond  template.Expr
	Want  bool
	stats *Stats
}

func (n *AssertBool) tag() string {
	if n.Want {
		return "assert_true"
	}
	return "assert_false"
}

func (n *AssertBool) Execute(ctx *template.Context, w io.Writer) error {
	v, err := n.Cond.Eval(ctx)
	if err != nil {
		return ctx.WrapError(n.Pos(), err)
	}
	out := n.Evaluate(v)
	return finish(ctx, n.Pos(), n.tag(), n.stats, out, func(e *AssertionError) {
		e.Subject = n.Cond.String()
	})
}

func (n *AssertBool) Evaluate(value any) Outcome {
	if template.Truthy(value) == n.Want {
		return Outcome{Passed: true}
	}
	return Outcome{Message: fmt.Sprintf("%s %s: assertion failed (got %s)", n.tag(), n.Cond, describe(value))}
}

// AssertThat is `{% assert_that subject is name(args) %}`. Its shape and
// predicate were checked when the template was parsed.
type AssertThat struct {
	template.Position
	Test  *template.TestExpr
	stats *Stats
}

func (n *AssertThat) Execute(ctx *template.Context, w io.Writer) error {
	subject, err := n.Test.Subject.Eval(ctx)
	if err != nil {
		return ctx.WrapError(n.Pos(), err)
	}
	out, err := n.Evaluate(ctx, subject)
	if err != nil {
		return err
	}
	return finish(ctx, n.Pos(), "assert_that", n.stats, out, func(e *AssertionError) {
		e.Predicate = n.Test.Name
		e.Subject = describe(subject)
	})
}

func (n *AssertThat) Evaluate(ctx *template.Context, subject any) (Outcome, error) {
	pred, ok := ctx.Environment().Predicates().Lookup(n.Test.Name)
	if !ok {
		return Outcome{Message: fmt.Sprintf("test '%s' is not defined", n.Test.Name)}, nil
	}
	args := make([]any, len(n.Test.Args))
	for i, a := range n.Test.Args {
		v, err := a.Eval(ctx)
		if err != nil {
			return Outcome{}, ctx.WrapError(n.Pos(), err)
		}
		args[i] = v
	}
	passed, err := pred.Test(subject, args...)
	if err != nil {
		return Outcome{}, ctx.WrapError(n.Pos(), fmt.Errorf("assert_that %s: %w", n.Test, err))
	}
	if passed {
		return Outcome{Passed: true}, nil
	}
	return Outcome{Message: fmt.Sprintf("assert_that %s: assertion failed on '%s'", n.Test, describe(subject))}, nil
}

// finish records the outcome and turns a failure into an *AssertionError.
func finish(ctx *template.Context, pos template.Position, tag string, stats *Stats, out Outcome, decorate func(*AssertionError)) error {
	stats.record(out)
	logger := ctx.Environment().Logger()
	if out.Passed {
		logger.Debug("assertion passed", "tag", tag, "template", ctx.TemplateName(), "line", pos.Line)
		return nil
	}
	logger.Debug("assertion failed", "tag", tag, "template", ctx.TemplateName(), "line", pos.Line, "message", out.Message)
	err := newAssertionError(ctx, pos, tag, out.Message)
	decorate(err)
	return err
}

func describe(v any) string {
	if u, ok := v.(template.Undefined); ok {
		return "undefined " + u.Name
	}
	if v == nil {
		return "none"
	}
	return predicate.ToString(v)
}
