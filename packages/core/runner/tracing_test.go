package runner

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

type recordingProvider struct {
	noop.TracerProvider
	mu    sync.Mutex
	spans []*recordedSpan
}

func (p *recordingProvider) Tracer(name string, _ ...trace.TracerOption) trace.Tracer {
	return &recordingTracer{provider: p}
}

type recordingTracer struct {
	noop.Tracer
	provider *recordingProvider
}

func (t *recordingTracer) Start(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	span := &recordedSpan{name: name, attrs: make(map[string]attribute.Value)}
	cfg := trace.NewSpanStartConfig(opts...)
	span.SetAttributes(cfg.Attributes()...)
	t.provider.mu.Lock()
	t.provider.spans = append(t.provider.spans, span)
	t.provider.mu.Unlock()
	return trace.ContextWithSpan(ctx, span), span
}

type recordedSpan struct {
	noop.Span
	name   string
	attrs  map[string]attribute.Value
	status codes.Code
	ended  bool
}

func (s *recordedSpan) SetAttributes(kv ...attribute.KeyValue) {
	for _, a := range kv {
		s.attrs[string(a.Key)] = a.Value
	}
}

func (s *recordedSpan) SetStatus(code codes.Code, _ string) { s.status = code }

func (s *recordedSpan) End(...trace.SpanEndOption) { s.ended = true }

func TestRunner_Tracing(t *testing.T) {
	dir := t.TempDir()
	files := []string{
		writeFile(t, dir, "ok.tpl", `{% assert_true true %}`),
		writeFile(t, dir, "broken.tpl", `{% bogus %}`),
	}

	tp := &recordingProvider{}
	run := NewRunner(&Config{TracerProvider: tp}).RunContext(context.Background(), files)
	assert.Equal(t, 1, run.Failed)

	require.Len(t, tp.spans, 3)
	root, ok, broken := tp.spans[0], tp.spans[1], tp.spans[2]

	assert.Equal(t, "runner.Run", root.name)
	assert.Equal(t, int64(2), root.attrs["tplspec.files"].AsInt64())
	assert.Equal(t, codes.Error, root.status)

	assert.Equal(t, "runner.RunFile", ok.name)
	assert.True(t, ok.attrs["tplspec.passed"].AsBool())
	assert.Equal(t, int64(1), ok.attrs["tplspec.assertions"].AsInt64())
	assert.Equal(t, codes.Unset, ok.status)

	assert.Equal(t, "parse", broken.attrs["tplspec.kind"].AsString())
	assert.Equal(t, codes.Error, broken.status)

	for _, s := range tp.spans {
		assert.True(t, s.ended, s.name)
	}
}
