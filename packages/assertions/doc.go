// Package assertions adds test statements to templates.
//
//	{% assert contains("x") %}body{% endassert %}
//	{% assert_fails as err %}body{% endassert_fails %}
//	{% assert_true expr %}
//	{% assert_false expr %}
//	{% assert_that expr is predicate(args) %}
//
// A failed assertion aborts the render with an *AssertionError. The
// bodies of assert and assert_fails are rendered twice and the second
// rendering is the subject under test.
package assertions
