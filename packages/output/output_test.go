package output

import (
	"bytes"
	"encoding/json"
	"encoding/xml"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abdul-hamid-achik/tplspec/packages/core/runner"
)

func sampleRun() *runner.RunResult {
	return &runner.RunResult{
		Results: []*runner.Result{
			{
				File:       "tests/ok.tpl",
				Name:       "ok.tpl",
				Passed:     true,
				Output:     "hello",
				Assertions: 3,
				Duration:   2 * time.Millisecond,
			},
			{
				File:       "tests/bad.tpl",
				Name:       "bad.tpl",
				Kind:       runner.KindAssertion,
				Error:      errors.New("bad.tpl:1:3: assert_true x > 1: assertion failed (got 0)"),
				Assertions: 1,
				Duration:   time.Millisecond,
			},
			{
				File:     "other/broken.tpl",
				Name:     "broken.tpl",
				Kind:     runner.KindParse,
				Error:    errors.New("broken.tpl:2:4: unknown tag 'bogus'"),
				Duration: time.Millisecond,
			},
		},
		Passed:   1,
		Failed:   2,
		Duration: 5 * time.Millisecond,
		Latency: &runner.LatencySummary{
			Count: 3,
			Min:   time.Millisecond,
			Max:   2 * time.Millisecond,
			P50:   time.Millisecond,
			P95:   2 * time.Millisecond,
			P99:   2 * time.Millisecond,
		},
	}
}

func TestNew(t *testing.T) {
	var buf bytes.Buffer
	for _, name := range Formats {
		f, err := New(name, &buf, false, true)
		require.NoError(t, err, name)
		assert.NotNil(t, f)
	}

	_, err := New("html", &buf, false, true)
	assert.EqualError(t, err, `unknown output format "html"`)
}

func TestConsoleFormatter(t *testing.T) {
	var buf bytes.Buffer
	f := NewConsoleFormatter(WithWriter(&buf), WithNoColor(true), WithVerbose(true))
	f.FormatResult(sampleRun())

	out := buf.String()
	assert.Contains(t, out, "Running 3 test file(s)")
	assert.Contains(t, out, "✓ tests/ok.tpl (3 assertions, 2ms)")
	assert.Contains(t, out, "✗ tests/bad.tpl")
	assert.Contains(t, out, "→ assertion: bad.tpl:1:3: assert_true x > 1: assertion failed (got 0)")
	assert.Contains(t, out, "→ parse: broken.tpl:2:4: unknown tag 'bogus'")
	assert.Contains(t, out, "Output: hello")
	assert.Contains(t, out, "1 passed, 2 failed, 3 total")
	assert.Contains(t, out, "Assertions: 4")
	assert.Contains(t, out, "Render latency: p50 1ms")
}

func TestConsoleFormatter_QuietHidesOutput(t *testing.T) {
	var buf bytes.Buffer
	f := NewConsoleFormatter(WithWriter(&buf), WithNoColor(true))
	f.FormatResult(sampleRun())

	assert.NotContains(t, buf.String(), "Output: hello")
	assert.NotContains(t, buf.String(), "Render latency")
}

func TestConsoleFormatter_Error(t *testing.T) {
	var buf bytes.Buffer
	f := NewConsoleFormatter(WithWriter(&buf), WithNoColor(true))
	f.FormatError(errors.New("no test files found"))
	f.FormatHeader("v1.2.3")

	assert.Equal(t, "Error: no test files found\ntplspec v1.2.3\n", buf.String())
}

func TestJSONFormatter(t *testing.T) {
	var buf bytes.Buffer
	f := NewJSONFormatter(JSONWithWriter(&buf))
	f.FormatResult(sampleRun())
	require.NoError(t, f.Flush(5*time.Millisecond))

	var out JSONOutput
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))

	assert.Equal(t, JSONSummary{Total: 3, Passed: 1, Failed: 2, Assertions: 4}, out.Summary)
	require.Len(t, out.Tests, 3)
	assert.Equal(t, "ok.tpl", out.Tests[0].Name)
	assert.Empty(t, out.Tests[0].Kind)
	assert.Equal(t, "assertion", out.Tests[1].Kind)
	assert.Contains(t, out.Tests[1].Error, "assertion failed")
	assert.Equal(t, "parse", out.Tests[2].Kind)
	assert.InDelta(t, 5.0, out.Duration, 0.001)
	require.NotNil(t, out.Latency)
	assert.InDelta(t, 2.0, out.Latency.Max, 0.001)
}

func TestJUnitFormatter(t *testing.T) {
	var buf bytes.Buffer
	f := NewJUnitFormatter(JUnitWithWriter(&buf))
	f.FormatResult(sampleRun())
	require.NoError(t, f.Flush(5*time.Millisecond))

	assert.Contains(t, buf.String(), `<?xml version="1.0" encoding="UTF-8"?>`)

	var suites JUnitTestSuites
	require.NoError(t, xml.Unmarshal(buf.Bytes(), &suites))

	assert.Equal(t, "tplspec", suites.Name)
	assert.Equal(t, 3, suites.Tests)
	assert.Equal(t, 1, suites.Failures)
	assert.Equal(t, 1, suites.Errors)
	require.Len(t, suites.TestSuites, 2)

	tests := suites.TestSuites[0]
	assert.Equal(t, "tests", tests.Name)
	require.Len(t, tests.TestCases, 2)
	assert.Nil(t, tests.TestCases[0].Failure)
	require.NotNil(t, tests.TestCases[1].Failure)
	assert.Equal(t, "AssertionError", tests.TestCases[1].Failure.Type)

	other := suites.TestSuites[1]
	require.Len(t, other.TestCases, 1)
	require.NotNil(t, other.TestCases[0].Error)
	assert.Equal(t, "parse", other.TestCases[0].Error.Type)
}

func TestTAPFormatter(t *testing.T) {
	var buf bytes.Buffer
	f := NewTAPFormatter(TAPWithWriter(&buf))
	f.FormatResult(sampleRun())
	require.NoError(t, f.Flush(5*time.Millisecond))

	out := buf.String()
	assert.Contains(t, out, "TAP version 13\n1..3\n")
	assert.Contains(t, out, "ok 1 - ok.tpl\n")
	assert.Contains(t, out, "not ok 2 - bad.tpl\n  ---\n")
	assert.Contains(t, out, "  severity: fail\n")
	assert.Contains(t, out, "  kind: assertion\n")
	assert.Contains(t, out, "not ok 3 - broken.tpl\n")
	assert.Contains(t, out, "  severity: error\n")
	assert.Regexp(t, `(?m)^  message: .*unknown tag .*bogus`, out)
	assert.Contains(t, out, "# time 5ms\n")
}
