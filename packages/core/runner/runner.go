package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/abdul-hamid-achik/tplspec/packages/assertions"
	"github.com/abdul-hamid-achik/tplspec/packages/core/template"
	"github.com/abdul-hamid-achik/tplspec/packages/predicate"
)

// Kind classifies why a test file failed.
type Kind string

const (
	KindNone      Kind = ""
	KindLoad      Kind = "load"
	KindParse     Kind = "parse"
	KindRender    Kind = "render"
	KindAssertion Kind = "assertion"
)

// TracerName identifies the runner's spans.
const TracerName = "github.com/abdul-hamid-achik/tplspec/packages/core/runner"

type Runner struct {
	config *Config
	logger *slog.Logger
	tracer trace.Tracer
}

type Config struct {
	Variables  map[string]any
	Bail       bool
	NameFilter string
	Logger     *slog.Logger
	// Predicates, when set, replaces the built-in predicate registry of
	// every environment the runner creates.
	Predicates *predicate.Registry
	// TracerProvider receives a span per run and per file. Defaults to
	// the global provider.
	TracerProvider trace.TracerProvider
}

func NewRunner(cfg *Config) *Runner {
	if cfg == nil {
		cfg = &Config{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	tp := cfg.TracerProvider
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	return &Runner{config: cfg, logger: logger, tracer: tp.Tracer(TracerName)}
}

// Result is the outcome of rendering one test file.
type Result struct {
	File       string
	Name       string
	Passed     bool
	Output     string
	Error      error
	Kind       Kind
	Assertions int64
	Duration   time.Duration
}

type RunResult struct {
	Results  []*Result
	Passed   int
	Failed   int
	Duration time.Duration
	Latency  *LatencySummary
}

// OK reports whether every file passed.
func (r *RunResult) OK() bool {
	return r.Failed == 0
}

// HasKind reports whether any result failed with kind k.
func (r *RunResult) HasKind(k Kind) bool {
	for _, res := range r.Results {
		if res.Kind == k {
			return true
		}
	}
	return false
}

// Environment builds the template environment a test file renders in:
// templates load relative to dir and the assertion tags are installed.
func (r *Runner) Environment(dir string, stats *assertions.Stats) *template.Environment {
	opts := []template.Option{
		template.WithLoader(template.NewDirLoader(dir)),
		template.WithLogger(r.logger),
	}
	if r.config.Predicates != nil {
		opts = append(opts, template.WithPredicates(r.config.Predicates))
	}
	env := template.NewEnvironment(opts...)
	assertions.Register(env, assertions.WithStats(stats))
	return env
}

// RunFile renders one test file. A file passes iff it renders without error.
func (r *Runner) RunFile(path string) *Result {
	return r.RunFileContext(context.Background(), path)
}

// RunFileContext is RunFile with the file's span parented to ctx.
func (r *Runner) RunFileContext(ctx context.Context, path string) *Result {
	_, span := r.tracer.Start(ctx, "runner.RunFile", trace.WithAttributes(attribute.String("tplspec.file", path)))
	result := r.runFile(path)
	span.SetAttributes(
		attribute.Bool("tplspec.passed", result.Passed),
		attribute.Int64("tplspec.assertions", result.Assertions),
	)
	if result.Error != nil {
		span.SetAttributes(attribute.String("tplspec.kind", string(result.Kind)))
		span.RecordError(result.Error)
		span.SetStatus(codes.Error, string(result.Kind))
	}
	span.End()
	return result
}

func (r *Runner) runFile(path string) *Result {
	start := time.Now()
	dir, name := filepath.Split(path)
	if dir == "" {
		dir = "."
	}
	result := &Result{File: path, Name: name}

	stats := &assertions.Stats{}
	env := r.Environment(dir, stats)

	tmpl, err := env.GetTemplate(name)
	if err != nil {
		result.Error = err
		result.Kind = classify(err)
		if errors.Is(err, template.ErrTemplateNotFound) {
			result.Kind = KindLoad
		}
		result.Duration = time.Since(start)
		r.logger.Debug("test file failed to load", "file", path, "kind", result.Kind, "error", err)
		return result
	}

	result.Output, result.Error = tmpl.Render(r.config.Variables)
	result.Duration = time.Since(start)
	result.Assertions = stats.Total()
	result.Passed = result.Error == nil
	if result.Error != nil {
		result.Output = ""
		result.Kind = classify(result.Error)
	}

	r.logger.Debug("test file rendered",
		"file", path,
		"passed", result.Passed,
		"assertions", result.Assertions,
		"duration", result.Duration,
	)
	return result
}

// Run renders every file in order, skipping files the name filter rejects.
// With Bail set it stops after the first failure.
func (r *Runner) Run(files []string) *RunResult {
	return r.RunContext(context.Background(), files)
}

// RunContext is Run with spans parented to ctx.
func (r *Runner) RunContext(ctx context.Context, files []string) *RunResult {
	ctx, span := r.tracer.Start(ctx, "runner.Run", trace.WithAttributes(attribute.Int("tplspec.files", len(files))))
	defer span.End()

	start := time.Now()
	run := &RunResult{}
	latency := newLatencyRecorder()

	for _, file := range files {
		if !r.shouldRun(file) {
			r.logger.Debug("test file filtered out", "file", file, "filter", r.config.NameFilter)
			continue
		}
		res := r.RunFileContext(ctx, file)
		latency.Record(res.Duration)
		run.Results = append(run.Results, res)
		if res.Passed {
			run.Passed++
			continue
		}
		run.Failed++
		if r.config.Bail {
			r.logger.Info("bailing out after first failure", "file", file)
			break
		}
	}

	run.Duration = time.Since(start)
	run.Latency = latency.Summary()
	span.SetAttributes(
		attribute.Int("tplspec.passed", run.Passed),
		attribute.Int("tplspec.failed", run.Failed),
	)
	if !run.OK() {
		span.SetStatus(codes.Error, fmt.Sprintf("%d file(s) failed", run.Failed))
	}
	return run
}

func (r *Runner) shouldRun(file string) bool {
	return matchesPattern(filepath.Base(file), r.config.NameFilter)
}

func classify(err error) Kind {
	var pe *template.ParseError
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, assertions.ErrAssertionFailed):
		return KindAssertion
	case errors.As(err, &pe):
		return KindParse
	}
	return KindRender
}

// matchesPattern accepts * wildcards at either end; a pattern without
// wildcards matches as a substring.
func matchesPattern(name, pattern string) bool {
	if pattern == "" {
		return true
	}

	if pattern[0] == '*' && pattern[len(pattern)-1] == '*' && len(pattern) > 1 {
		return strings.Contains(name, pattern[1:len(pattern)-1])
	}

	if pattern[0] == '*' {
		return strings.HasSuffix(name, pattern[1:])
	}

	if pattern[len(pattern)-1] == '*' {
		return strings.HasPrefix(name, pattern[:len(pattern)-1])
	}

	return strings.Contains(name, pattern)
}

// Describe is a one-line summary of a failed result.
func (r *Result) Describe() string {
	if r.Passed {
		return fmt.Sprintf("%s passed", r.Name)
	}
	return fmt.Sprintf("%s failed (%s): %v", r.Name, r.Kind, r.Error)
}
