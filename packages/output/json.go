package output

import (
	"encoding/json"
	"io"
	"os"
	"time"

	"github.com/abdul-hamid-achik/tplspec/packages/core/runner"
)

// JSONOutput represents the complete JSON output structure
type JSONOutput struct {
	Summary  JSONSummary  `json:"summary"`
	Tests    []JSONTest   `json:"tests"`
	Latency  *JSONLatency `json:"latency,omitempty"`
	Duration float64      `json:"duration"`
	Time     string       `json:"time"`
}

// JSONSummary represents the test summary
type JSONSummary struct {
	Total      int   `json:"total"`
	Passed     int   `json:"passed"`
	Failed     int   `json:"failed"`
	Assertions int64 `json:"assertions"`
}

// JSONTest represents a single test file result
type JSONTest struct {
	Name       string  `json:"name"`
	File       string  `json:"file"`
	Passed     bool    `json:"passed"`
	Kind       string  `json:"kind,omitempty"`
	Error      string  `json:"error,omitempty"`
	Assertions int64   `json:"assertions"`
	Duration   float64 `json:"duration"`
}

// JSONLatency holds render latency percentiles in milliseconds
type JSONLatency struct {
	P50 float64 `json:"p50"`
	P95 float64 `json:"p95"`
	P99 float64 `json:"p99"`
	Max float64 `json:"max"`
}

// JSONFormatter formats test results as JSON
type JSONFormatter struct {
	writer  io.Writer
	results []JSONTest
	latency *JSONLatency
}

type JSONOption func(*JSONFormatter)

func NewJSONFormatter(opts ...JSONOption) *JSONFormatter {
	f := &JSONFormatter{
		writer:  os.Stdout,
		results: make([]JSONTest, 0),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func JSONWithWriter(w io.Writer) JSONOption {
	return func(f *JSONFormatter) {
		f.writer = w
	}
}

func millis(d time.Duration) float64 {
	return float64(d.Microseconds()) / 1000
}

func (f *JSONFormatter) FormatResult(result *runner.RunResult) {
	for _, r := range result.Results {
		test := JSONTest{
			Name:       r.Name,
			File:       r.File,
			Passed:     r.Passed,
			Kind:       string(r.Kind),
			Assertions: r.Assertions,
			Duration:   millis(r.Duration),
		}
		if r.Error != nil {
			test.Error = r.Error.Error()
		}
		f.results = append(f.results, test)
	}
	if l := result.Latency; l != nil && l.Count > 0 {
		f.latency = &JSONLatency{P50: millis(l.P50), P95: millis(l.P95), P99: millis(l.P99), Max: millis(l.Max)}
	}
}

func (f *JSONFormatter) FormatError(err error) {
	// Errors are included in individual test results
}

func (f *JSONFormatter) FormatHeader(version string) {
	// No header needed for JSON output
}

// Flush writes the accumulated JSON output
func (f *JSONFormatter) Flush(totalDuration time.Duration) error {
	summary := JSONSummary{Total: len(f.results)}
	for _, t := range f.results {
		if t.Passed {
			summary.Passed++
		} else {
			summary.Failed++
		}
		summary.Assertions += t.Assertions
	}

	output := JSONOutput{
		Summary:  summary,
		Tests:    f.results,
		Latency:  f.latency,
		Duration: millis(totalDuration),
		Time:     time.Now().Format(time.RFC3339),
	}

	encoder := json.NewEncoder(f.writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(output)
}
