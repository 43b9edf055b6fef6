package linter

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/xivanalysis/xivlint/pkg/jsast"
	"github.com/xivanalysis/xivlint/pkg/observability"
)

func newRecordingProvider(t *testing.T) (*sdktrace.TracerProvider, *tracetest.SpanRecorder) {
	t.Helper()
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	t.Cleanup(func() {
		_ = tp.Shutdown(context.Background())
	})
	return tp, recorder
}

func spanAttrs(span sdktrace.ReadOnlySpan) map[attribute.Key]attribute.Value {
	attrs := make(map[attribute.Key]attribute.Value)
	for _, kv := range span.Attributes() {
		attrs[kv.Key] = kv.Value
	}
	return attrs
}

func TestLintEngine_TracesFiles(t *testing.T) {
	tp, recorder := newRecordingProvider(t)
	config := &Config{
		Plugins: []string{"test"},
		Rules:   map[string]interface{}{"test/no-this": "error"},
	}
	engine := newTestEngine(t, config, WithTracerProvider(tp))

	_, err := engine.Lint(context.Background(), "a.js", []byte("this.a\n"))
	require.NoError(t, err)

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	span := spans[0]
	assert.Equal(t, "lint.file", span.Name())
	assert.Equal(t, codes.Unset, span.Status().Code)

	attrs := spanAttrs(span)
	assert.Equal(t, "a.js", attrs["file.path"].AsString())
	assert.Equal(t, "javascript", attrs["lint.language"].AsString())
	assert.Equal(t, int64(1), attrs["lint.violations"].AsInt64())
}

func TestLintEngine_TracesCacheHits(t *testing.T) {
	tp, recorder := newRecordingProvider(t)
	config := &Config{
		Plugins: []string{"test"},
		Rules:   map[string]interface{}{"test/no-this": "error"},
		Cache:   CacheConfig{Enabled: true},
	}
	engine := newTestEngine(t, config, WithTracerProvider(tp))

	ctx := context.Background()
	for range 2 {
		_, err := engine.Lint(ctx, "a.ts", []byte("this.a\n"))
		require.NoError(t, err)
	}

	spans := recorder.Ended()
	require.Len(t, spans, 2)
	assert.False(t, spanAttrs(spans[0])["lint.cached"].AsBool())
	assert.True(t, spanAttrs(spans[1])["lint.cached"].AsBool())
	assert.Equal(t, int64(1), spanAttrs(spans[1])["lint.violations"].AsInt64())
}

func TestLintEngine_TracesErrors(t *testing.T) {
	tp, recorder := newRecordingProvider(t)
	engine := newTestEngine(t, nil, WithTracerProvider(tp))

	_, err := engine.Lint(context.Background(), "a.css", []byte("a {}\n"))
	require.ErrorIs(t, err, jsast.ErrUnsupportedLanguage)

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Error, spans[0].Status().Code)
	assert.NotContains(t, spanAttrs(spans[0]), attribute.Key("lint.language"))
	assert.NotContains(t, spanAttrs(spans[0]), attribute.Key("lint.violations"))
}

func TestLintEngine_OTelMetrics(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() {
		_ = provider.Shutdown(context.Background())
	})
	m, err := observability.NewOTelMetrics(provider.Meter(observability.InstrumentationName))
	require.NoError(t, err)

	config := &Config{
		Plugins: []string{"test"},
		Rules:   map[string]interface{}{"test/no-this": "warn"},
	}
	engine := newTestEngine(t, config, WithOTelMetrics(m))

	ctx := context.Background()
	_, err = engine.Lint(ctx, "a.js", []byte("this.a; this.b\n"))
	require.NoError(t, err)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))

	totals := make(map[string]int64)
	for _, sm := range rm.ScopeMetrics {
		for _, metric := range sm.Metrics {
			if sum, ok := metric.Data.(metricdata.Sum[int64]); ok {
				for _, dp := range sum.DataPoints {
					totals[metric.Name] += dp.Value
				}
			}
		}
	}
	assert.Equal(t, int64(1), totals["xivlint.files.linted"])
	assert.Equal(t, int64(2), totals["xivlint.violations"])
	// No cache configured, so nothing is looked up
	assert.Zero(t, totals["xivlint.cache.lookups"])
}
