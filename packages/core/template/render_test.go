package template

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func render(t *testing.T, src string, vars map[string]any) string {
	t.Helper()
	tmpl, err := NewEnvironment().ParseString("test.tpl", src)
	require.NoError(t, err)
	out, err := tmpl.Render(vars)
	require.NoError(t, err)
	return out
}

func TestRender(t *testing.T) {
	tests := []struct {
		name string
		src  string
		vars map[string]any
		want string
	}{
		{"text and variable", "Hello {{ name }}!", map[string]any{"name": "World"}, "Hello World!"},
		{"undefined prints empty", "[{{ missing }}]", nil, "[]"},
		{"elif", "{% if n > 2 %}big{% elif n > 0 %}small{% else %}none{% endif %}", map[string]any{"n": 1}, "small"},
		{"else", "{% if n > 2 %}big{% else %}none{% endif %}", map[string]any{"n": 0}, "none"},
		{
			"for with loop",
			"{% for x in items %}{{ loop.index }}:{{ x }}{% if not loop.last %},{% endif %}{% endfor %}",
			map[string]any{"items": []any{"a", "b"}},
			"1:a,2:b",
		},
		{"for else", "{% for x in items %}{{ x }}{% else %}empty{% endfor %}", map[string]any{"items": []any{}}, "empty"},
		{"for over map", "{% for k, v in m %}{{ k }}={{ v }};{% endfor %}", map[string]any{"m": map[string]any{"b": 2, "a": 1}}, "a=1;b=2;"},
		{"for unpacks pairs", "{% for a, b in pairs %}{{ a }}{{ b }} {% endfor %}", map[string]any{"pairs": []any{[]any{1, "x"}, []any{2, "y"}}}, "1x 2y "},
		{"range", "{% for i in range(3) %}{{ i }}{% endfor %}", nil, "012"},
		{"set", "{% set x = 2 * 3 %}{{ x }}", nil, "6"},
		{"block set", "{% set greeting %}hi {{ name }}{% endset %}{{ greeting | upper }}", map[string]any{"name": "bob"}, "HI BOB"},
		{"loop scope does not leak", "{% for i in [1] %}{% set inner = i %}{% endfor %}[{{ inner }}]", nil, "[]"},
		{"arithmetic", "{{ 7 // 2 }} {{ 7 % 3 }} {{ 1 / 2 }} {{ -7 // 2 }} {{ 'a' ~ 1 }} {{ 'ab' * 2 }}", nil, "3 1 0.5 -4 a1 abab"},
		{"int overflow promotes to float", "{{ 9223372036854775807 + 1 > 0 }} {{ -9223372036854775807 - 10 < 0 }} {{ 4611686018427387904 * 4 > 0 }}", nil, "true true true"},
		{"large literal is a float", "{{ 99999999999999999999 > 9223372036854775807 }}", nil, "true"},
		{"comparison", "{{ 1 == 1.0 }} {{ 'a' < 'b' }} {{ 2 in [1, 2] }} {{ 'x' not in 'abc' }}", nil, "true true true true"},
		{"and or return operands", "{{ '' or 'fallback' }} {{ 'a' and 'b' }}", nil, "fallback b"},
		{"conditional", "{{ 'y' if flag else 'n' }}", map[string]any{"flag": true}, "y"},
		{"defined tests", "{{ x is defined }} {{ y is undefined }} {{ x is not undefined }}", map[string]any{"x": 1}, "true true true"},
		{"predicate tests", "{{ 'abc' is startswith('a') }} {{ 4 is even }} {{ 5 is divisibleby 5 }}", nil, "true true true"},
		{"index and attr", "{{ user.name }} {{ user['tags'][-1] }} {{ 'xyz'[0] }}", map[string]any{"user": map[string]any{"name": "ann", "tags": []any{"a", "b"}}}, "ann b x"},
		{"struct field", "{{ item.Name }}", map[string]any{"item": struct{ Name string }{"widget"}}, "widget"},
		{"whitespace control", "a  {%- if true -%}  b  {%- endif %}", nil, "ab"},
		{"comment", "a{# hidden #}b", nil, "ab"},
		{"raw", "{% raw %}{{ x }}{% endraw %}", nil, "{{ x }}"},
		{"list printing", "{{ [1, 'a'] }}", nil, "[1, 'a']"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, render(t, tt.src, tt.vars))
		})
	}
}

func TestRender_Filters(t *testing.T) {
	tests := []struct {
		src  string
		want string
	}{
		{"{{ 'Hi' | upper }}{{ 'Hi' | lower }}", "HIhi"},
		{"{{ '  x ' | trim }}", "x"},
		{"{{ [1, 2, 3] | length }} {{ 'héllo' | length }}", "3 5"},
		{"{{ missing | default('d') }} {{ '' | default('e', true) }}", "d e"},
		{"{{ ['a', 'b'] | join(', ') }}", "a, b"},
		{"{{ [1, 2] | first }}{{ [1, 2] | last }}", "12"},
		{"{{ '42' | int + 1 }} {{ '1.5' | float }}", "43 1.5"},
		{"{{ (-3) | abs }} {{ -3 | abs }}", "3 -3"},
		{"{{ 'a-b-c' | replace('-', '+') }}", "a+b+c"},
		{"{{ [3, 1, 2] | sort | join }}", "123"},
		{`{{ {"a": 1} | tojson }}`, `{"a":1}`},
		{"{{ {'a': 1} | toyaml }}", "a: 1"},
		{`{{ '{"a":{"b":3}}' | json_get('a.b') }}`, "3"},
		{"{{ 'hi' | b64encode }} {{ 'aGk=' | b64decode }}", "aGk= hi"},
		{"{{ 'abc' | md5 }}", "900150983cd24fb0d6963f7d28e17f72"},
		{"{{ 'abc' | sha256 }}", "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"},
		{"{{ 'a b&c' | urlencode }} {{ 'a+b%26c' | urldecode }}", "a+b%26c a b&c"},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			assert.Equal(t, tt.want, render(t, tt.src, nil))
		})
	}
}

func TestRender_Globals(t *testing.T) {
	out := render(t, "{{ uuid() is uuid }} {{ now() | length > 0 }} {{ now('2006') | length }}", nil)
	assert.Equal(t, "true true 4", out)

	out = render(t, "{{ random(5, 5) }} {{ random() <= 100 }} {{ timestamp() > 0 }}", nil)
	assert.Equal(t, "5 true true", out)
}

func TestRender_GlobalErrors(t *testing.T) {
	env := NewEnvironment()
	for _, src := range []string{
		"{{ random(1) }}",
		"{{ random(5, 1) }}",
		"{{ '%%%' | b64decode }}",
	} {
		tmpl, err := env.ParseString("g.tpl", src)
		require.NoError(t, err, src)
		_, err = tmpl.Render(nil)
		assert.Error(t, err, src)
	}
}

func TestRender_Errors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"undefined attribute", "{{ undefined_var.attr }}", "'undefined_var' is undefined"},
		{"undefined arithmetic", "{{ missing + 1 }}", "'missing' is undefined"},
		{"undefined call", "{{ nope() }}", "'nope' is undefined"},
		{"unknown test", "{{ 1 is bogus }}", "test 'bogus' is not defined"},
		{"division by zero", "{{ 1 / 0 }}", "division by zero"},
		{"bad comparison", "{{ 1 < 'a' }}", "'<' not supported between integer and string"},
		{"not callable", "{{ name() }}", "'name' is not callable"},
		{"not iterable", "{% for x in 3 %}{% endfor %}", "not iterable"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmpl, err := NewEnvironment().ParseString("err.tpl", tt.src)
			require.NoError(t, err)
			_, err = tmpl.Render(map[string]any{"name": "x"})
			require.Error(t, err)
			var re *RenderError
			require.True(t, errors.As(err, &re))
			assert.Equal(t, "err.tpl", re.Template)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestRender_UndefinedErrorType(t *testing.T) {
	tmpl, err := NewEnvironment().ParseString("u.tpl", "\n  {{ user.profile.name }}")
	require.NoError(t, err)
	_, err = tmpl.Render(nil)

	var ue *UndefinedError
	require.True(t, errors.As(err, &ue))
	assert.Equal(t, "user", ue.Name)

	var re *RenderError
	require.True(t, errors.As(err, &re))
	assert.Equal(t, 2, re.Line)
	assert.Equal(t, 3, re.Column)
}

func TestEnvironment_IncludeAndCache(t *testing.T) {
	env := NewEnvironment(WithLoader(MapLoader{
		"main.tpl": "[{% include 'part.tpl' %}]",
		"part.tpl": "{{ name }}",
	}))

	out, err := env.Render("main.tpl", map[string]any{"name": "Bob"})
	require.NoError(t, err)
	assert.Equal(t, "[Bob]", out)

	first, err := env.GetTemplate("main.tpl")
	require.NoError(t, err)
	second, err := env.GetTemplate("main.tpl")
	require.NoError(t, err)
	assert.Same(t, first, second)

	env.ClearCache()
	third, err := env.GetTemplate("main.tpl")
	require.NoError(t, err)
	assert.NotSame(t, first, third)
}

func TestEnvironment_TemplateNotFound(t *testing.T) {
	_, err := NewEnvironment().Render("missing.tpl", nil)
	assert.ErrorIs(t, err, ErrTemplateNotFound)
}

func TestEnvironment_DirLoader(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.tpl"), []byte("{% include 'b.tpl' %}!"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.tpl"), []byte("{{ greeting }}"), 0o644))

	env := NewEnvironment(WithLoader(NewDirLoader(dir)), WithGlobals(map[string]any{"greeting": "hey"}))
	out, err := env.Render("a.tpl", nil)
	require.NoError(t, err)
	assert.Equal(t, "hey!", out)

	_, err = env.Render("nope.tpl", nil)
	assert.ErrorIs(t, err, ErrTemplateNotFound)
}

func TestEnvironment_Extensions(t *testing.T) {
	env := NewEnvironment()
	env.RegisterFilter("twice", func(v any, _ ...any) (any, error) {
		return toString(v) + toString(v), nil
	})
	env.RegisterPredicate("short", func(subject any, _ ...any) (bool, error) {
		return len(toString(subject)) < 3, nil
	})
	env.SetGlobal("greet", Func(func(args ...any) (any, error) {
		return "hi " + toString(args[0]), nil
	}))

	tmpl, err := env.ParseString("ext", "{{ 'ab' | twice }} {{ 'ab' is short }} {{ greet('x') }}")
	require.NoError(t, err)
	out, err := tmpl.Render(nil)
	require.NoError(t, err)
	assert.Equal(t, "abab true hi x", out)
}
