package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// OTelMetrics mirrors the lint metrics as OpenTelemetry instruments. A nil
// *OTelMetrics records nothing.
type OTelMetrics struct {
	filesLinted  metric.Int64Counter
	lintDuration metric.Float64Histogram
	violations   metric.Int64Counter
	cacheLookups metric.Int64Counter
}

// NewOTelMetrics creates the instruments on meter
func NewOTelMetrics(meter metric.Meter) (*OTelMetrics, error) {
	m := &OTelMetrics{}
	var err error

	m.filesLinted, err = meter.Int64Counter(
		"xivlint.files.linted",
		metric.WithDescription("Number of files linted"),
		metric.WithUnit("{file}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create files linted counter: %w", err)
	}

	m.lintDuration, err = meter.Float64Histogram(
		"xivlint.lint.duration",
		metric.WithDescription("Time to parse and lint a single file"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create lint duration histogram: %w", err)
	}

	m.violations, err = meter.Int64Counter(
		"xivlint.violations",
		metric.WithDescription("Number of reported violations"),
		metric.WithUnit("{violation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create violations counter: %w", err)
	}

	m.cacheLookups, err = meter.Int64Counter(
		"xivlint.cache.lookups",
		metric.WithDescription("Result cache lookups by outcome"),
		metric.WithUnit("{lookup}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create cache lookups counter: %w", err)
	}

	return m, nil
}

// RecordLint counts a linted file and its duration
func (m *OTelMetrics) RecordLint(ctx context.Context, language string, d time.Duration) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("language", language))
	m.filesLinted.Add(ctx, 1, attrs)
	m.lintDuration.Record(ctx, d.Seconds(), attrs)
}

// RecordViolation counts a reported violation. Parse errors have no rule.
func (m *OTelMetrics) RecordViolation(ctx context.Context, rule, severity string) {
	if m == nil {
		return
	}
	if rule == "" {
		rule = "parse"
	}
	m.violations.Add(ctx, 1, metric.WithAttributes(
		attribute.String("rule", rule),
		attribute.String("severity", severity),
	))
}

// RecordCacheLookup counts a cache hit or miss
func (m *OTelMetrics) RecordCacheLookup(ctx context.Context, hit bool) {
	if m == nil {
		return
	}
	m.cacheLookups.Add(ctx, 1, metric.WithAttributes(attribute.Bool("hit", hit)))
}
