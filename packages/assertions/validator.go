package assertions

import (
	"github.com/abdul-hamid-achik/tplspec/packages/core/template"
)

// validateThat checks at parse time that expr is `subject is name(args)`
// with a registered predicate.
func validateThat(p *template.Parser, expr template.Expr) (*template.TestExpr, error) {
	test, ok := expr.(*template.TestExpr)
	if !ok {
		return nil, p.ErrorAt(expr.Pos(), "assert_that: expected 'subject is predicate', got %s", expr)
	}
	if test.Negated {
		return nil, p.ErrorAt(test.Pos(), "assert_that: negated test 'is not %s' is not supported", test.Name)
	}
	if test.Subject == nil {
		return nil, p.ErrorAt(test.Pos(), "assert_that: test '%s' has no subject", test.Name)
	}
	if _, isTest := test.Subject.(*template.TestExpr); isTest {
		return nil, p.ErrorAt(test.Pos(), "assert_that: subject of '%s' must be a plain expression", test.Name)
	}
	env := p.Environment()
	if env == nil || !env.Predicates().Has(test.Name) {
		return nil, p.ErrorAt(test.Pos(), "assert_that: test '%s' is not defined", test.Name)
	}
	return test, nil
}
