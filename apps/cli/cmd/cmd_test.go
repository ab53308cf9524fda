package cmd

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abdul-hamid-achik/tplspec/packages/core/config"
	"github.com/abdul-hamid-achik/tplspec/packages/core/runner"
	"github.com/abdul-hamid-achik/tplspec/packages/history"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, ExitSuccess, exitCode(nil))
	assert.Equal(t, ExitConfigError, exitCode(withCode(ExitConfigError, errors.New("bad"))))
	assert.Equal(t, ExitUsageError, exitCode(errors.New(`unknown flag: --nope`)))
}

func TestResultError(t *testing.T) {
	parseErr := errors.New("x.tpl:1:1: unknown tag 'bogus'")
	tests := []struct {
		name string
		run  *runner.RunResult
		want int
	}{
		{"all passed", &runner.RunResult{Passed: 2}, ExitSuccess},
		{"assertion failure", &runner.RunResult{Failed: 1, Results: []*runner.Result{{Kind: runner.KindAssertion}}}, ExitTestFailure},
		{"render failure", &runner.RunResult{Failed: 1, Results: []*runner.Result{{Kind: runner.KindRender}}}, ExitTestFailure},
		{"parse wins", &runner.RunResult{Failed: 2, Results: []*runner.Result{
			{Kind: runner.KindAssertion},
			{Kind: runner.KindParse, Error: parseErr},
		}}, ExitParseError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, exitCode(resultError(tt.run)))
		})
	}
}

func TestBuildVariables(t *testing.T) {
	dir := t.TempDir()
	data := writeFile(t, dir, "data.yaml", "name: data\ncount: 3\nitems: [a, b]\n")
	dotenv := writeFile(t, dir, ".env", "TOKEN=secret\n")
	t.Setenv("TPLSPEC_VAR_region", "eu")

	cfg := config.DefaultConfig()
	cfg.Variables = map[string]any{"name": "config", "color": "blue"}
	cfg.Environments = map[string]map[string]any{"staging": {"color": "green"}}

	vars, err := buildVariables(cfg, variableSources{
		Environment: "staging",
		DataFile:    data,
		EnvFile:     dotenv,
		Vars:        []string{"count=5"},
	})
	require.NoError(t, err)

	assert.Equal(t, "data", vars["name"])
	assert.Equal(t, "green", vars["color"])
	assert.Equal(t, 5, vars["count"])
	assert.Equal(t, []any{"a", "b"}, vars["items"])
	assert.Equal(t, "eu", vars["region"])
	assert.Equal(t, map[string]any{"TOKEN": "secret"}, vars["env"])
}

func TestBuildVariables_Errors(t *testing.T) {
	cfg := config.DefaultConfig()

	_, err := buildVariables(cfg, variableSources{Environment: "prod"})
	assert.Equal(t, ExitConfigError, exitCode(err))
	assert.ErrorContains(t, err, `unknown environment "prod"`)

	_, err = buildVariables(cfg, variableSources{DataFile: filepath.Join(t.TempDir(), "missing.yaml")})
	assert.Equal(t, ExitConfigError, exitCode(err))

	_, err = buildVariables(cfg, variableSources{Vars: []string{"novalue"}})
	assert.Equal(t, ExitUsageError, exitCode(err))
}

func TestCollectAssertions(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "nested.tpl", `{% assert_true 1 %}
{% for x in [1] %}{% if x %}{% assert_that x is odd %}{% endif %}{% endfor %}
{% assert_fails as e %}{% assert eq("a") %}b{% endassert %}{% endassert_fails %}`)

	tmpl, err := parseFile(runner.NewRunner(nil), path)
	require.NoError(t, err)

	entries := collectAssertions(tmpl.Nodes, 0, nil)
	require.Len(t, entries, 4)
	assert.Equal(t, "assert_true 1", entries[0].Description)
	assert.Equal(t, "assert_that x is odd", entries[1].Description)
	assert.Equal(t, 2, entries[1].Pos.Line)
	assert.Equal(t, "assert_fails as e", entries[2].Description)
	assert.Equal(t, `assert eq("a")`, entries[3].Description)
	assert.Equal(t, 1, entries[3].Depth)
}

func TestSessionExecute(t *testing.T) {
	dir := t.TempDir()
	pass := writeFile(t, dir, "pass.tpl", `{% assert_true ok %}`)
	fail := writeFile(t, dir, "fail.tpl", `{% assert_false ok %}`)
	db := filepath.Join(dir, "history.db")

	var out, stderr bytes.Buffer
	s := &session{
		cfg:     config.DefaultConfig(),
		sources: variableSources{Vars: []string{"ok=true"}},
		logger:  newLogger(&stderr, false),
		files:   []string{pass, fail},
		out:     &out,
		format:  "json",
		history: db,
		stderr:  &stderr,
	}
	require.NoError(t, s.reload())

	result, err := s.execute(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.Passed)
	assert.Equal(t, 1, result.Failed)
	assert.Equal(t, ExitTestFailure, exitCode(resultError(result)))
	assert.Contains(t, out.String(), `"failed": 1`)
	assert.Empty(t, stderr.String())

	store, err := history.Open(db)
	require.NoError(t, err)
	defer store.Close()
	runs, err := store.Recent(1)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, 1, runs[0].Failed)
}

func TestInitExampleRuns(t *testing.T) {
	dir := t.TempDir()
	wd, wdErr := os.Getwd()
	require.NoError(t, wdErr)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	forceInit = false
	initCmd.SetOut(&bytes.Buffer{})
	require.NoError(t, initCommand(initCmd, nil))

	err := initCommand(initCmd, nil)
	assert.Equal(t, ExitUsageError, exitCode(err))

	cfg, err := config.LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, "dev", cfg.DefaultEnvironment)

	vars, err := buildVariables(cfg, variableSources{})
	require.NoError(t, err)

	r := runner.NewRunner(&runner.Config{Variables: vars})
	result := r.RunFile(filepath.Join(dir, "example.tpl"))
	require.NoError(t, result.Error)
	assert.True(t, result.Passed)
	assert.Equal(t, int64(10), result.Assertions)
}
