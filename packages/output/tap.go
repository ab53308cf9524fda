package output

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/abdul-hamid-achik/tplspec/packages/core/runner"
)

// TAPFormatter formats test results in TAP (Test Anything Protocol) format
type TAPFormatter struct {
	writer    io.Writer
	testCount int
	results   []tapResult
}

type tapResult struct {
	number     int
	name       string
	passed     bool
	diagnostic *tapDiagnostic
}

// tapDiagnostic is the YAML block printed under a failing test.
type tapDiagnostic struct {
	Message    string `yaml:"message"`
	Severity   string `yaml:"severity"`
	Kind       string `yaml:"kind"`
	File       string `yaml:"file"`
	Assertions int64  `yaml:"assertions"`
}

type TAPOption func(*TAPFormatter)

func NewTAPFormatter(opts ...TAPOption) *TAPFormatter {
	f := &TAPFormatter{
		writer:  os.Stdout,
		results: make([]tapResult, 0),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func TAPWithWriter(w io.Writer) TAPOption {
	return func(f *TAPFormatter) {
		f.writer = w
	}
}

func (f *TAPFormatter) FormatResult(result *runner.RunResult) {
	for _, r := range result.Results {
		f.testCount++
		tr := tapResult{
			number: f.testCount,
			name:   r.Name,
			passed: r.Passed,
		}
		if !r.Passed {
			severity := "error"
			if r.Kind == runner.KindAssertion {
				severity = "fail"
			}
			tr.diagnostic = &tapDiagnostic{
				Severity:   severity,
				Kind:       string(r.Kind),
				File:       r.File,
				Assertions: r.Assertions,
			}
			if r.Error != nil {
				tr.diagnostic.Message = r.Error.Error()
			}
		}
		f.results = append(f.results, tr)
	}
}

func (f *TAPFormatter) FormatError(err error) {
	// Errors are included in individual test results
}

func (f *TAPFormatter) FormatHeader(version string) {
	// Header is written in Flush
}

// Flush writes the accumulated TAP output
func (f *TAPFormatter) Flush(totalDuration time.Duration) error {
	fmt.Fprintf(f.writer, "TAP version 13\n")
	fmt.Fprintf(f.writer, "1..%d\n", f.testCount)

	for _, r := range f.results {
		if r.passed {
			fmt.Fprintf(f.writer, "ok %d - %s\n", r.number, r.name)
			continue
		}
		fmt.Fprintf(f.writer, "not ok %d - %s\n", r.number, r.name)
		if r.diagnostic == nil {
			continue
		}
		data, err := yaml.Marshal(r.diagnostic)
		if err != nil {
			return fmt.Errorf("failed to encode diagnostic: %w", err)
		}
		fmt.Fprintf(f.writer, "  ---\n")
		for _, line := range strings.Split(strings.TrimRight(string(data), "\n"), "\n") {
			fmt.Fprintf(f.writer, "  %s\n", line)
		}
		fmt.Fprintf(f.writer, "  ...\n")
	}

	fmt.Fprintf(f.writer, "# time %dms\n", totalDuration.Milliseconds())
	return nil
}
