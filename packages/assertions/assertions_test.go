package assertions

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abdul-hamid-achik/tplspec/packages/core/template"
)

func newEnv(opts ...Option) *template.Environment {
	env := template.NewEnvironment()
	Register(env, opts...)
	return env
}

func renderString(t *testing.T, env *template.Environment, src string, vars map[string]any) (string, error) {
	t.Helper()
	tmpl, err := env.ParseString("test.tpl", src)
	require.NoError(t, err)
	return tmpl.Render(vars)
}

func TestAssert(t *testing.T) {
	env := newEnv()

	out, err := renderString(t, env, `{% assert contains("x") %}xyz{% endassert %}`, nil)
	require.NoError(t, err)
	assert.Equal(t, "", out)

	_, err = renderString(t, env, `{% assert contains("q") %}xyz{% endassert %}`, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAssertionFailed)
	assert.Contains(t, err.Error(), "contains")
	assert.Contains(t, err.Error(), "xyz")

	var ae *AssertionError
	require.True(t, errors.As(err, &ae))
	assert.Equal(t, "assert", ae.Tag)
	assert.Equal(t, "contains", ae.Predicate)
	assert.Equal(t, "xyz", ae.Subject)
	assert.Equal(t, "test.tpl", ae.Template)
	assert.Equal(t, 1, ae.Line)
	assert.Equal(t, `assert contains("q"): assertion failed on 'xyz'`, ae.Message)
}

func TestAssert_Predicates(t *testing.T) {
	tests := []struct {
		name   string
		src    string
		passed bool
	}{
		{"no args", "{% assert lower %}abc{% endassert %}", true},
		{"no args fails", "{% assert upper %}abc{% endassert %}", false},
		{"folded argument", "{% assert length(1 + 2) %}abc{% endassert %}", true},
		{"renders variables", "{% assert startswith('hi') %}hi {{ name }}{% endassert %}", true},
		{"numeric subject", "{% assert even %}{{ 2 * 2 }}{% endassert %}", true},
		{"json body", `{% assert json_path("user.id", 7) %}{"user": {"id": 7}}{% endassert %}`, true},
		{"unknown predicate", "{% assert nope %}x{% endassert %}", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := renderString(t, newEnv(), tt.src, map[string]any{"name": "ann"})
			if tt.passed {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrAssertionFailed)
			}
		})
	}
}

func TestAssert_UnknownPredicateIsRenderTime(t *testing.T) {
	env := newEnv()
	tmpl, err := env.ParseString("lazy.tpl", "{% assert nope %}x{% endassert %}")
	require.NoError(t, err)

	_, err = tmpl.Render(nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "test 'nope' is not defined")

	env.RegisterPredicate("nope", func(subject any, args ...any) (bool, error) {
		return subject == "x", nil
	})
	_, err = tmpl.Render(nil)
	assert.NoError(t, err)
}

func TestAssert_UnknownPredicateSkipsBody(t *testing.T) {
	_, err := renderString(t, newEnv(), "{% assert nope %}{{ missing.x }}{% endassert %}", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAssertionFailed)
	assert.Contains(t, err.Error(), "test 'nope' is not defined")
}

func TestAssert_BodyErrorPropagates(t *testing.T) {
	_, err := renderString(t, newEnv(), "{% assert contains('x') %}{{ missing.attr }}{% endassert %}", nil)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrAssertionFailed)
	var ue *template.UndefinedError
	assert.True(t, errors.As(err, &ue))
}

func TestAssert_PredicateError(t *testing.T) {
	_, err := renderString(t, newEnv(), "{% assert length('x') %}abc{% endassert %}", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected length must be a number")
}

func TestAssert_RendersBodyTwice(t *testing.T) {
	env := newEnv()
	calls := 0
	env.SetGlobal("tick", template.Func(func(args ...any) (any, error) {
		calls++
		return calls, nil
	}))

	_, err := renderString(t, env, "{% assert eq('2') %}{{ tick() }}{% endassert %}", nil)
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestAssert_BodyScopeIsFresh(t *testing.T) {
	out, err := renderString(t, newEnv(),
		"{% assert eq('1') %}{% set n = 1 %}{{ n }}{% endassert %}[{{ n }}]", nil)
	require.NoError(t, err)
	assert.Equal(t, "[]", out)
}

func TestAssertFails(t *testing.T) {
	out, err := renderString(t, newEnv(),
		"{% assert_fails as err %}{{ undefined_var.attr }}{% endassert_fails %}{{ err }}", nil)
	require.NoError(t, err)
	assert.Equal(t, "'undefined_var' is undefined", out)
}

func TestAssertFails_WithoutBinding(t *testing.T) {
	out, err := renderString(t, newEnv(),
		"a{% assert_fails %}{{ 1 / 0 }}{% endassert %}b", nil)
	require.NoError(t, err)
	assert.Equal(t, "ab", out)
}

func TestAssertFails_NoError(t *testing.T) {
	_, err := renderString(t, newEnv(),
		"{% assert_fails as err %}fine {{ 1 + 1 }}{% endassert_fails %}", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAssertionFailed)

	var ae *AssertionError
	require.True(t, errors.As(err, &ae))
	assert.Equal(t, "assert_fails", ae.Tag)
	assert.Equal(t, "fine 2", ae.Subject)
	assert.Equal(t, "expected failure, got no exception: 'fine 2'", ae.Message)
}

func TestAssertFails_SecondPassError(t *testing.T) {
	env := newEnv()
	calls := 0
	env.SetGlobal("flaky", template.Func(func(args ...any) (any, error) {
		calls++
		if calls == 2 {
			return nil, errors.New("failed on second pass")
		}
		return "ok", nil
	}))

	out, err := renderString(t, env,
		"{% assert_fails as e %}{{ flaky() }}{% endassert_fails %}{{ e }}", nil)
	require.NoError(t, err)
	assert.Equal(t, "failed on second pass", out)
	assert.Equal(t, 2, calls)
}

func TestAssertFails_CapturesNestedAssertion(t *testing.T) {
	out, err := renderString(t, newEnv(),
		"{% assert_fails as e %}{% assert_true false %}{% endassert_fails %}{{ e }}", nil)
	require.NoError(t, err)
	assert.Equal(t, "assert_true false: assertion failed (got false)", out)
}

func TestAssertBool(t *testing.T) {
	tests := []struct {
		src    string
		passed bool
	}{
		{"{% assert_true 1 == 1 %}", true},
		{"{% assert_true 1 == 2 %}", false},
		{"{% assert_true 'non-empty' %}", true},
		{"{% assert_true [] %}", false},
		{"{% assert_false 1 == 2 %}", true},
		{"{% assert_false missing %}", true},
		{"{% assert_false 'x' in 'xyz' %}", false},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			out, err := renderString(t, newEnv(), tt.src, nil)
			if tt.passed {
				require.NoError(t, err)
				assert.Equal(t, "", out)
				return
			}
			assert.ErrorIs(t, err, ErrAssertionFailed)
		})
	}
}

func TestAssertBool_Message(t *testing.T) {
	_, err := renderString(t, newEnv(), "{% assert_true 1 == 2 %}", nil)
	var ae *AssertionError
	require.True(t, errors.As(err, &ae))
	assert.Equal(t, "assert_true", ae.Tag)
	assert.Equal(t, "1 == 2", ae.Subject)
	assert.Equal(t, "assert_true 1 == 2: assertion failed (got false)", ae.Message)
}

func TestAssertThat(t *testing.T) {
	tests := []struct {
		src    string
		passed bool
	}{
		{"{% assert_that 4 is even %}", true},
		{"{% assert_that 3 is even %}", false},
		{"{% assert_that 'abc' is startswith('a') %}", true},
		{"{% assert_that name is defined %}", true},
		{"{% assert_that missing is undefined %}", true},
		{"{% assert_that items | length is eq(2) %}", true},
		{"{% assert_that 10 is divisibleby(limit) %}", true},
	}
	vars := map[string]any{"name": "ann", "items": []any{1, 2}, "limit": 5}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			_, err := renderString(t, newEnv(), tt.src, vars)
			if tt.passed {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, ErrAssertionFailed)
		})
	}
}

func TestAssertThat_Message(t *testing.T) {
	_, err := renderString(t, newEnv(), "{% assert_that n is even %}", map[string]any{"n": 3})
	var ae *AssertionError
	require.True(t, errors.As(err, &ae))
	assert.Equal(t, "even", ae.Predicate)
	assert.Equal(t, "3", ae.Subject)
	assert.Equal(t, "assert_that n is even: assertion failed on '3'", ae.Message)
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"assert missing name", "{% assert %}x{% endassert %}", "assert: expected a predicate name"},
		{"assert non-constant arg", "{% assert contains(x) %}x{% endassert %}", "argument 1 is not a constant: x"},
		{"assert unclosed", "{% assert contains('x') %}x", "expected 'endassert'"},
		{"assert_fails bad keyword", "{% assert_fails to e %}x{% endassert_fails %}", "expected 'as' or '%}'"},
		{"assert_fails missing var", "{% assert_fails as %}x{% endassert_fails %}", "expected a variable name"},
		{"assert_true empty", "{% assert_true %}", "assert_true: expected an expression"},
		{"assert_that not a test", "{% assert_that 1 == 1 %}", "expected 'subject is predicate'"},
		{"assert_that unknown predicate", "{% assert_that 1 is nope %}", "test 'nope' is not defined"},
		{"assert_that negated", "{% assert_that 1 is not even %}", "negated test 'is not even'"},
		{"assert_that test as subject", "{% assert_that (1 is even) is false %}", "subject of 'false' must be a plain expression"},
		{"assert division by zero", "{% assert contains(1 / 0) %}x{% endassert %}", "assert contains: argument 1: division by zero"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newEnv().ParseString("bad.tpl", tt.src)
			require.Error(t, err)
			var pe *template.ParseError
			require.True(t, errors.As(err, &pe))
			assert.Contains(t, pe.Message, tt.want)
		})
	}
}

func TestStats(t *testing.T) {
	stats := &Stats{}
	env := newEnv(WithStats(stats))

	_, err := renderString(t, env, "{% assert_true true %}{% assert_that 2 is even %}{% assert lower %}a{% endassert %}", nil)
	require.NoError(t, err)
	_, err = renderString(t, env, "{% assert_false true %}", nil)
	require.Error(t, err)

	assert.Equal(t, int64(3), stats.Passed())
	assert.Equal(t, int64(1), stats.Failed())
	assert.Equal(t, int64(4), stats.Total())

	stats.Reset()
	assert.Equal(t, int64(0), stats.Total())
}
