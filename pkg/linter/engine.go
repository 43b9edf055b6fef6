package linter

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"runtime"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	sitter "github.com/smacker/go-tree-sitter"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/xivanalysis/xivlint/pkg/jsast"
	"github.com/xivanalysis/xivlint/pkg/observability"
)

// LintEngine orchestrates the linting process
type LintEngine struct {
	config      *Config
	registry    *RuleRegistry
	cache       *ResultCache
	remote      *RemoteCache
	metrics     *observability.Metrics
	otelMetrics *observability.OTelMetrics
	tracer      trace.Tracer
	log         *logrus.Logger
	fingerprint string
}

// EngineOption configures optional engine collaborators
type EngineOption func(*LintEngine)

// WithLogger sets the logger used for progress and warnings
func WithLogger(log *logrus.Logger) EngineOption {
	return func(e *LintEngine) {
		if log != nil {
			e.log = log
		}
	}
}

// WithMetrics records lint activity in m
func WithMetrics(m *observability.Metrics) EngineOption {
	return func(e *LintEngine) {
		e.metrics = m
	}
}

// WithOTelMetrics records lint activity as OpenTelemetry metrics as well
func WithOTelMetrics(m *observability.OTelMetrics) EngineOption {
	return func(e *LintEngine) {
		e.otelMetrics = m
	}
}

// WithTracerProvider traces files with tp instead of the global provider
func WithTracerProvider(tp trace.TracerProvider) EngineOption {
	return func(e *LintEngine) {
		if tp != nil {
			e.tracer = tp.Tracer(observability.InstrumentationName)
		}
	}
}

// WithRemoteCache consults and fills a shared cache after the in-memory one
func WithRemoteCache(c *RemoteCache) EngineOption {
	return func(e *LintEngine) {
		e.remote = c
	}
}

// NewLintEngine creates a new lint engine
func NewLintEngine(config *Config, opts ...EngineOption) *LintEngine {
	if config == nil {
		config = DefaultConfig()
	}

	e := &LintEngine{
		config:      config,
		registry:    NewRuleRegistry(),
		log:         observability.NewLogger(observability.InfoLevel, nil),
		tracer:      observability.Tracer(),
		fingerprint: config.Fingerprint(),
	}
	for _, opt := range opts {
		opt(e)
	}

	if config.Cache.Enabled {
		e.cache = NewResultCache(config.Cache.Size, config.Cache.TTL)
	}

	return e
}

// Registry returns the rules available to the engine
func (e *LintEngine) Registry() *RuleRegistry {
	return e.registry
}

// Config returns the engine configuration
func (e *LintEngine) Config() *Config {
	return e.config
}

// Cache returns the result cache, nil when caching is disabled
func (e *LintEngine) Cache() *ResultCache {
	return e.cache
}

// Lint runs all enabled rules against a single source module
func (e *LintEngine) Lint(ctx context.Context, filePath string, src []byte) (LintResult, error) {
	rules, err := e.registry.GetEnabledRules(e.config)
	if err != nil {
		return LintResult{}, err
	}
	return e.lint(ctx, filePath, src, rules)
}

// LintFiles lints multiple files in parallel. Results keep the order of paths.
// Files that vanished before they could be read, or that no grammar parses,
// are skipped with a warning.
func (e *LintEngine) LintFiles(ctx context.Context, paths []string) ([]LintResult, error) {
	rules, err := e.registry.GetEnabledRules(e.config)
	if err != nil {
		return nil, err
	}

	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(e.workers())

	results := make([]LintResult, len(paths))
	linted := make([]bool, len(paths))
	for i, path := range paths {
		eg.Go(func() error {
			src, err := os.ReadFile(path)
			if errors.Is(err, fs.ErrNotExist) {
				e.log.Warnf("Skipping %s: file no longer exists", path)
				return nil
			}
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", path, err)
			}

			result, err := e.lint(ctx, path, src, rules)
			if errors.Is(err, jsast.ErrUnsupportedLanguage) {
				e.log.Warnf("Skipping %s: unsupported language", path)
				return nil
			}
			if err != nil {
				return err
			}
			results[i] = result
			linted[i] = true
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return nil, err
	}

	kept := results[:0]
	for i, result := range results {
		if linted[i] {
			kept = append(kept, result)
		}
	}
	return kept, nil
}

func (e *LintEngine) workers() int {
	if e.config.MaxWorkers > 0 {
		return e.config.MaxWorkers
	}
	return runtime.NumCPU()
}

func (e *LintEngine) lint(ctx context.Context, filePath string, src []byte, rules []EnabledRule) (result LintResult, err error) {
	attrs := []attribute.KeyValue{attribute.String("file.path", filePath)}
	if lang, err := jsast.DetectLanguage(filePath); err == nil {
		attrs = append(attrs, attribute.String("lint.language", string(lang)))
	}
	ctx, span := e.tracer.Start(ctx, "lint.file", trace.WithAttributes(attrs...))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetAttributes(attribute.Int("lint.violations", len(result.Violations)))
		}
		span.End()
	}()
	log := observability.LoggerWithTrace(ctx, e.log)

	var key string
	if e.cache != nil || e.remote != nil {
		key = CacheKey(filePath, src, e.fingerprint)
		cached, ok := e.cached(ctx, key)
		e.otelMetrics.RecordCacheLookup(ctx, ok)
		span.SetAttributes(attribute.Bool("lint.cached", ok))
		if ok {
			e.metrics.RecordCacheHit()
			log.Debugf("Unchanged, using cached result: %s", filePath)
			cached.FilePath = filePath
			return cached, nil
		}
		e.metrics.RecordCacheMiss()
	}

	start := time.Now()
	file, err := jsast.Parse(ctx, filePath, src)
	if err != nil {
		return LintResult{}, err
	}
	defer file.Close()

	log.Debugf("Linting %s (%s)", filePath, file.Language)

	result = LintResult{
		FilePath:   filePath,
		Violations: make([]Violation, 0),
	}

	if node, bad := file.SyntaxError(); bad {
		v := parseErrorViolation(file, node)
		log.Warnf("%s:%s: %s", filePath, v.Position, v.Message)
		e.metrics.RecordParseError()
		result.Violations = append(result.Violations, v)
	} else {
		for _, enabled := range rules {
			result.Violations = append(result.Violations, e.runRule(file, enabled)...)
		}
		sortViolations(result.Violations)
	}

	result.tally()
	elapsed := time.Since(start)
	e.metrics.RecordLint(string(file.Language), elapsed)
	e.otelMetrics.RecordLint(ctx, string(file.Language), elapsed)
	for _, v := range result.Violations {
		e.metrics.RecordViolation(v.Rule, string(v.Severity))
		e.otelMetrics.RecordViolation(ctx, v.Rule, string(v.Severity))
	}

	if e.cache != nil {
		e.cache.Add(key, result)
	}
	if e.remote != nil {
		if err := e.remote.Set(ctx, key, result); err != nil {
			log.WithError(err).Warnf("Could not share result for %s", filePath)
		}
	}
	return result, nil
}

// cached looks key up in memory first and then in the shared cache
func (e *LintEngine) cached(ctx context.Context, key string) (LintResult, bool) {
	if e.cache != nil {
		if result, ok := e.cache.Get(key); ok {
			return result, true
		}
	}
	if e.remote == nil {
		return LintResult{}, false
	}

	result, ok, err := e.remote.Get(ctx, key)
	if err != nil {
		e.log.WithError(err).Warn("Shared cache lookup failed")
		return LintResult{}, false
	}
	if ok && e.cache != nil {
		e.cache.Add(key, result)
	}
	return result, ok
}

// runRule checks file with one rule. A panicking rule is logged and
// contributes no violations.
func (e *LintEngine) runRule(file *jsast.File, enabled EnabledRule) (violations []Violation) {
	name := enabled.Rule.Name()
	defer observability.RecoverPanicWithCallback(e.log.WithField("file", file.Path), "rule "+name, func(interface{}) {
		e.metrics.RecordRulePanic(name)
	})

	lctx := NewLintContext(file, e.config, enabled)
	enabled.Rule.Check(file, lctx)
	return lctx.violations
}

func parseErrorViolation(file *jsast.File, node *sitter.Node) Violation {
	msg := "Parsing error: Unexpected token"
	if node.IsMissing() {
		msg = fmt.Sprintf("Parsing error: Missing %s", node.Type())
	} else if tok := firstLine(file.Text(node)); tok != "" {
		msg = fmt.Sprintf("Parsing error: Unexpected token %s", tok)
	}
	return Violation{
		Severity: SeverityError,
		Message:  msg,
		Position: jsast.PositionOf(node),
		Fatal:    true,
	}
}

func firstLine(s string) string {
	s, _, _ = strings.Cut(strings.TrimSpace(s), "\n")
	if len(s) > 20 {
		s = s[:20]
	}
	return s
}

func sortViolations(vs []Violation) {
	sort.SliceStable(vs, func(i, j int) bool {
		if vs[i].Position.Line != vs[j].Position.Line {
			return vs[i].Position.Line < vs[j].Position.Line
		}
		return vs[i].Position.Column < vs[j].Position.Column
	})
}

// GenerateSummary creates a summary of lint results
func (e *LintEngine) GenerateSummary(results []LintResult) Summary {
	summary := Summary{
		TotalFiles: len(results),
	}

	for _, result := range results {
		summary.TotalViolations += len(result.Violations)
		for _, v := range result.Violations {
			switch v.Severity {
			case SeverityError:
				summary.Errors++
			case SeverityWarning:
				summary.Warnings++
			case SeverityInfo:
				summary.Infos++
			}
		}
	}

	return summary
}

// LintResult contains the result of linting a single file
type LintResult struct {
	FilePath     string      `json:"filePath"`
	Violations   []Violation `json:"violations"`
	ErrorCount   int         `json:"errorCount"`
	WarningCount int         `json:"warningCount"`
}

func (r *LintResult) tally() {
	r.ErrorCount, r.WarningCount = 0, 0
	for _, v := range r.Violations {
		switch v.Severity {
		case SeverityError:
			r.ErrorCount++
		case SeverityWarning:
			r.WarningCount++
		}
	}
}

// Violation represents a linting violation
type Violation struct {
	Rule     string         `json:"rule,omitempty"`
	Severity Severity       `json:"severity"`
	Category Category       `json:"category,omitempty"`
	Message  string         `json:"message"`
	Position jsast.Position `json:"position"`
	// Fatal marks violations that stopped the rules from running
	Fatal bool `json:"fatal,omitempty"`
}

// Severity indicates how serious a violation is
type Severity string

const (
	SeverityOff     Severity = "off"
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// Category groups related rules
type Category string

const (
	CategoryDependencies Category = "dependencies"
	CategoryPresentation Category = "presentation"
)

// Summary provides an overview of all lint results
type Summary struct {
	TotalFiles      int `json:"totalFiles"`
	TotalViolations int `json:"totalViolations"`
	Errors          int `json:"errors"`
	Warnings        int `json:"warnings"`
	Infos           int `json:"infos"`
}
