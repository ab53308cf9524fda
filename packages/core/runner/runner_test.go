package runner

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abdul-hamid-achik/tplspec/packages/predicate"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestNewRunner(t *testing.T) {
	t.Run("with nil config", func(t *testing.T) {
		r := NewRunner(nil)
		assert.NotNil(t, r)
		assert.NotNil(t, r.logger)
	})

	t.Run("with custom config", func(t *testing.T) {
		r := NewRunner(&Config{Bail: true, NameFilter: "api"})
		assert.True(t, r.config.Bail)
		assert.Equal(t, "api", r.config.NameFilter)
	})
}

func TestRunner_RunFile(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "greeting.tpl",
		`{% assert contains("World") %}Hello {{ name }}{% endassert %}{% assert_true 1 == 1 %}ok`)

	r := NewRunner(&Config{Variables: map[string]any{"name": "World"}})
	res := r.RunFile(path)

	require.NoError(t, res.Error)
	assert.True(t, res.Passed)
	assert.Equal(t, "greeting.tpl", res.Name)
	assert.Equal(t, "ok", res.Output)
	assert.Equal(t, KindNone, res.Kind)
	assert.Equal(t, int64(2), res.Assertions)
}

func TestRunner_RunFile_Failures(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name    string
		content string
		kind    Kind
	}{
		{"assertion.tpl", `{% assert contains("q") %}xyz{% endassert %}`, KindAssertion},
		{"parse.tpl", `{% assert_that 1 == 1 %}`, KindParse},
		{"render.tpl", `{{ missing.attr }}`, KindRender},
		{"include.tpl", `{% include "broken.part" %}`, KindParse},
	}
	writeFile(t, dir, "broken.part", "{% if %}")

	r := NewRunner(nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := r.RunFile(writeFile(t, dir, tt.name, tt.content))
			assert.False(t, res.Passed)
			assert.Error(t, res.Error)
			assert.Equal(t, tt.kind, res.Kind)
			assert.Empty(t, res.Output)
		})
	}

	res := r.RunFile(filepath.Join(dir, "missing.tpl"))
	assert.Equal(t, KindLoad, res.Kind)
}

func TestRunner_Includes(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "partials/user.tpl", "{{ user.name }}")
	path := writeFile(t, dir, "main.tpl", `{% assert eq("ann") %}{% include "partials/user.tpl" %}{% endassert %}`)

	res := NewRunner(&Config{Variables: map[string]any{"user": map[string]any{"name": "ann"}}}).RunFile(path)
	assert.True(t, res.Passed, "%v", res.Error)
}

func TestRunner_CustomPredicates(t *testing.T) {
	reg := predicate.NewRegistry()
	reg.RegisterFunc("shouty", func(subject any, args ...any) (bool, error) {
		return subject == "HEY", nil
	})
	dir := t.TempDir()
	path := writeFile(t, dir, "custom.tpl", `{% assert shouty %}HEY{% endassert %}`)

	res := NewRunner(&Config{Predicates: reg}).RunFile(path)
	assert.True(t, res.Passed, "%v", res.Error)
}

func TestRunner_Run(t *testing.T) {
	dir := t.TempDir()
	files := []string{
		writeFile(t, dir, "a_pass.tpl", `{% assert_true true %}`),
		writeFile(t, dir, "b_fail.tpl", `{% assert_true false %}`),
		writeFile(t, dir, "c_pass.tpl", `{% assert_false false %}`),
	}

	run := NewRunner(nil).Run(files)
	assert.Equal(t, 2, run.Passed)
	assert.Equal(t, 1, run.Failed)
	assert.Len(t, run.Results, 3)
	assert.False(t, run.OK())
	assert.True(t, run.HasKind(KindAssertion))
	assert.False(t, run.HasKind(KindParse))
	require.NotNil(t, run.Latency)
	assert.Equal(t, int64(3), run.Latency.Count)
	assert.LessOrEqual(t, run.Latency.P50, run.Latency.Max)

	bailed := NewRunner(&Config{Bail: true}).Run(files)
	assert.Len(t, bailed.Results, 2)
	assert.Equal(t, 1, bailed.Failed)

	filtered := NewRunner(&Config{NameFilter: "pass"}).Run(files)
	assert.Len(t, filtered.Results, 2)
	assert.True(t, filtered.OK())
}

func TestLatencyRecorder_ClampsSlowRenders(t *testing.T) {
	l := newLatencyRecorder()
	l.Record(5 * time.Millisecond)
	l.Record(2 * time.Minute)

	summary := l.Summary()
	assert.Equal(t, int64(2), summary.Count)
	assert.GreaterOrEqual(t, summary.Max, 59*time.Second)
	assert.LessOrEqual(t, summary.Max, 61*time.Second)
}

func TestMatchesPattern(t *testing.T) {
	tests := []struct {
		name, pattern string
		want          bool
	}{
		{"login.tpl", "", true},
		{"login.tpl", "log", true},
		{"login.tpl", "*.tpl", true},
		{"login.tpl", "login*", true},
		{"login.tpl", "*gin*", true},
		{"login.tpl", "signup", false},
		{"login.tpl", "*.j2", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, matchesPattern(tt.name, tt.pattern), "%s ~ %s", tt.name, tt.pattern)
	}
}

func TestDiscover(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "b.tpl", "")
	writeFile(t, dir, "a.j2", "")
	writeFile(t, dir, "notes.txt", "")
	writeFile(t, dir, "sub/c.tpl", "")
	writeFile(t, dir, ".hidden/d.tpl", "")
	single := writeFile(t, t.TempDir(), "single.txt", "")

	files, err := Discover([]string{dir, single, dir}, []string{".tpl", ".j2"})
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "a.j2"),
		filepath.Join(dir, "b.tpl"),
		filepath.Join(dir, "sub", "c.tpl"),
		single,
	}, files)

	_, err = Discover([]string{filepath.Join(dir, "nope")}, nil)
	assert.ErrorContains(t, err, "cannot access")
}
