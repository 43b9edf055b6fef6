package cli

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/xivanalysis/xivlint/pkg/linter"
	"github.com/xivanalysis/xivlint/pkg/linter/rules"
	"github.com/xivanalysis/xivlint/pkg/observability"
)

type lintOptions struct {
	dir           string
	configFile    string
	format        string
	failOnError   bool
	failOnWarning bool
	verbose       bool
	rulesOnly     bool
	workers       int
	otlpEndpoint  string
	otlpInsecure  bool
	paths         []string
}

// newLintCommand creates a new lint command
func newLintCommand() *Command {
	flags := flag.NewFlagSet("lint", flag.ExitOnError)

	var opts lintOptions
	flags.StringVar(&opts.dir, "dir", ".", "Directory to lint and to search for a config file")
	flags.StringVar(&opts.configFile, "config", "", "Path to lint config file (.xivlint.yaml)")
	flags.StringVar(&opts.format, "format", "text", "Output format: text, json, github")
	flags.BoolVar(&opts.failOnError, "fail-on-error", true, "Exit with error code on lint errors")
	flags.BoolVar(&opts.failOnWarning, "fail-on-warning", false, "Exit with error code on lint warnings")
	flags.BoolVar(&opts.verbose, "verbose", false, "Verbose output")
	flags.BoolVar(&opts.rulesOnly, "rules", false, "List available rules and exit")
	flags.IntVar(&opts.workers, "workers", 0, "Files linted in parallel (default: config max_workers or CPU count)")
	flags.StringVar(&opts.otlpEndpoint, "otlp-endpoint", "", "Export traces and metrics to this OTLP/gRPC collector")
	flags.BoolVar(&opts.otlpInsecure, "otlp-insecure", false, "Connect to the OTLP collector without TLS")

	return &Command{
		Name:        "lint",
		Description: "Lint JavaScript and TypeScript sources",
		Flags:       flags,
		Run: func(args []string) error {
			if err := flags.Parse(args); err != nil {
				return err
			}
			opts.paths = flags.Args()

			logger := observability.NewLogger(observability.VerboseLevel(opts.verbose), os.Stderr)
			return runLint(context.Background(), opts, os.Stdout, logger)
		},
	}
}

// loadConfig reads configFile when set, else searches dir
func loadConfig(dir, configFile string) (*linter.Config, error) {
	var config *linter.Config
	var err error
	if configFile != "" {
		config, err = linter.LoadConfig(configFile)
	} else {
		config, err = linter.LoadConfigFromDir(dir)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return config, nil
}

// newEngine creates an engine with the built-in rules registered
func newEngine(config *linter.Config, logger *logrus.Logger, opts ...linter.EngineOption) *linter.LintEngine {
	opts = append([]linter.EngineOption{linter.WithLogger(logger)}, opts...)
	engine := linter.NewLintEngine(config, opts...)
	rules.RegisterDefaultRules(engine.Registry())
	return engine
}

// initTelemetry starts OTLP export when endpoint is set and returns the
// engine options that report to it
func initTelemetry(ctx context.Context, endpoint string, insecure bool, logger *logrus.Logger) (*observability.OTelProviders, []linter.EngineOption, error) {
	providers, err := observability.InitOTel(ctx, observability.OTelConfig{
		Endpoint:       endpoint,
		ServiceName:    "xivlint",
		ServiceVersion: Version,
		Insecure:       insecure,
	}, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}
	if providers == nil {
		return nil, nil, nil
	}

	otelMetrics, err := observability.NewOTelMetrics(providers.MeterProvider.Meter(observability.InstrumentationName))
	if err != nil {
		return nil, nil, err
	}
	return providers, []linter.EngineOption{
		linter.WithTracerProvider(providers.TracerProvider),
		linter.WithOTelMetrics(otelMetrics),
	}, nil
}

// tracerFor returns the tracer of providers, or the global one when
// telemetry is off
func tracerFor(providers *observability.OTelProviders) trace.Tracer {
	if providers == nil {
		return observability.Tracer()
	}
	return providers.TracerProvider.Tracer(observability.InstrumentationName)
}

// endSpan marks span failed when err is set and ends it
func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// openRemoteCache connects the shared cache when one is configured. The
// run continues without it when Redis cannot be reached.
func openRemoteCache(ctx context.Context, config *linter.Config, logger *logrus.Logger) *linter.RemoteCache {
	if config.Cache.RedisURL == "" {
		return nil
	}
	remote, err := linter.NewRemoteCache(ctx, config.Cache.RedisURL, config.Cache.TTL)
	if err != nil {
		logger.WithError(err).Warn("Shared cache disabled")
		return nil
	}
	return remote
}

func runLint(ctx context.Context, opts lintOptions, out io.Writer, logger *logrus.Logger) error {
	config, err := loadConfig(opts.dir, opts.configFile)
	if err != nil {
		return err
	}
	if opts.workers > 0 {
		config.MaxWorkers = opts.workers
	}

	remote := openRemoteCache(ctx, config, logger)
	if remote != nil {
		defer remote.Close()
	}

	providers, telemetry, err := initTelemetry(ctx, opts.otlpEndpoint, opts.otlpInsecure, logger)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := providers.Shutdown(shutdownCtx); err != nil {
			logger.WithError(err).Warn("Failed to flush telemetry")
		}
	}()

	engine := newEngine(config, logger, append(telemetry, linter.WithRemoteCache(remote))...)

	// List rules if requested
	if opts.rulesOnly {
		return lintListRules(engine, out)
	}

	files, err := collectFiles(opts.dir, opts.paths, config, logger)
	if err != nil {
		return fmt.Errorf("failed to find source files: %w", err)
	}

	if len(files) == 0 {
		fmt.Fprintf(out, "No source files found in %s\n", opts.dir)
		return nil
	}

	runID := uuid.New().String()
	logger.WithField("run_id", runID).Debugf("Linting %d files...", len(files))

	ctx, span := tracerFor(providers).Start(ctx, "lint.run", trace.WithAttributes(
		attribute.String("lint.run_id", runID),
		attribute.Int("lint.files", len(files)),
	))
	results, err := engine.LintFiles(ctx, files)
	if err == nil {
		span.SetAttributes(attribute.Int("lint.violations", engine.GenerateSummary(results).TotalViolations))
	}
	endSpan(span, err)
	if err != nil {
		return err
	}

	if cache := engine.Cache(); cache != nil {
		hits, misses := cache.Stats()
		logger.WithField("run_id", runID).Debugf("Result cache: %d entries, %d hits, %d misses", cache.Len(), hits, misses)
	}

	// Generate summary
	summary := engine.GenerateSummary(results)

	// Output results
	switch opts.format {
	case "json":
		if err := lintOutputJSON(out, runID, results, summary); err != nil {
			return err
		}
	case "github":
		lintOutputGitHub(out, results)
	case "text", "":
		lintOutputText(out, results, summary)
	default:
		return fmt.Errorf("unknown output format: %s", opts.format)
	}

	return lintExitStatus(summary, opts.failOnError, opts.failOnWarning)
}

// collectFiles expands the lint targets into source files. Directories are
// walked; explicitly named files are always linted.
func collectFiles(dir string, paths []string, config *linter.Config, logger *logrus.Logger) ([]string, error) {
	if len(paths) == 0 {
		return findSourceFiles(dir, config)
	}

	var files []string
	seen := make(map[string]bool)
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return nil, err
		}

		found := []string{path}
		if info.IsDir() {
			found, err = findSourceFiles(path, config)
			if err != nil {
				return nil, err
			}
		} else if !config.HasExtension(path) {
			logger.Warnf("Skipping %s: unsupported extension", path)
			continue
		}

		for _, f := range found {
			if !seen[f] {
				seen[f] = true
				files = append(files, f)
			}
		}
	}
	return files, nil
}

// findSourceFiles walks root for files with a configured extension
func findSourceFiles(root string, config *linter.Config) ([]string, error) {
	var files []string

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}

		if d.IsDir() {
			if path == root {
				return nil
			}
			if skipDir(d.Name()) || config.IsIgnored(rel) {
				return filepath.SkipDir
			}
			return nil
		}

		if config.HasExtension(path) && !config.IsIgnored(rel) {
			files = append(files, path)
		}
		return nil
	})

	return files, err
}

// skipDir reports directories that never hold lintable project sources
func skipDir(name string) bool {
	return strings.HasPrefix(name, ".") || name == "node_modules" || name == "vendor"
}

func lintListRules(engine *linter.LintEngine, out io.Writer) error {
	allRules := engine.Registry().GetAllRules()

	fmt.Fprintf(out, "Available lint rules (%d):\n\n", len(allRules))

	for _, cat := range []linter.Category{
		linter.CategoryDependencies,
		linter.CategoryPresentation,
	} {
		catRules := engine.Registry().GetRulesByCategory(cat)
		if len(catRules) == 0 {
			continue
		}

		// Capitalize category name
		catName := string(cat)
		catName = strings.ToUpper(catName[:1]) + catName[1:]

		fmt.Fprintf(out, "%s Rules:\n", catName)
		for _, rule := range catRules {
			fmt.Fprintf(out, "  - %-38s [%s]\n    %s\n",
				rule.Name(),
				rule.Severity(),
				rule.Description(),
			)
		}
		fmt.Fprintln(out)
	}

	fmt.Fprintf(out, "Presets:\n")
	for _, name := range linter.Presets() {
		fmt.Fprintf(out, "  - %s\n", name)
	}

	return nil
}

func lintOutputText(out io.Writer, results []linter.LintResult, summary linter.Summary) {
	for _, result := range results {
		if len(result.Violations) == 0 {
			continue
		}

		fmt.Fprintf(out, "\n%s:\n", result.FilePath)

		for _, v := range result.Violations {
			rule := ""
			if v.Rule != "" {
				rule = " (" + v.Rule + ")"
			}
			fmt.Fprintf(out, "  %s:%d:%d: [%s] %s%s\n",
				result.FilePath,
				v.Position.Line,
				v.Position.Column,
				v.Severity,
				v.Message,
				rule,
			)
		}
	}

	// Print summary
	fmt.Fprintf(out, "\n")
	fmt.Fprintf(out, "Summary:\n")
	fmt.Fprintf(out, "  Files:      %d\n", summary.TotalFiles)
	fmt.Fprintf(out, "  Violations: %d\n", summary.TotalViolations)
	fmt.Fprintf(out, "  Errors:     %d\n", summary.Errors)
	fmt.Fprintf(out, "  Warnings:   %d\n", summary.Warnings)
	fmt.Fprintf(out, "  Infos:      %d\n", summary.Infos)

	if summary.TotalViolations == 0 {
		fmt.Fprintln(out, "\n✓ All files passed linting")
	}
}

func lintExitStatus(summary linter.Summary, failOnError, failOnWarning bool) error {
	if failOnError && summary.Errors > 0 {
		return fmt.Errorf("lint failed with %d errors", summary.Errors)
	}

	if failOnWarning && summary.Warnings > 0 {
		return fmt.Errorf("lint failed with %d warnings", summary.Warnings)
	}

	return nil
}

func lintOutputJSON(out io.Writer, runID string, results []linter.LintResult, summary linter.Summary) error {
	output := struct {
		RunID   string              `json:"run_id"`
		Results []linter.LintResult `json:"results"`
		Summary linter.Summary      `json:"summary"`
	}{
		RunID:   runID,
		Results: results,
		Summary: summary,
	}

	encoder := json.NewEncoder(out)
	encoder.SetIndent("", "  ")
	return encoder.Encode(output)
}

func lintOutputGitHub(out io.Writer, results []linter.LintResult) {
	// GitHub Actions annotation format
	// ::error file={name},line={line},col={col}::{message}
	for _, result := range results {
		for _, v := range result.Violations {
			level := "error"
			if v.Severity == linter.SeverityWarning {
				level = "warning"
			} else if v.Severity == linter.SeverityInfo {
				level = "notice"
			}

			title := ""
			if v.Rule != "" {
				title = ",title=" + v.Rule
			}

			fmt.Fprintf(out, "::%s file=%s,line=%d,col=%d%s::%s\n",
				level,
				filepath.ToSlash(result.FilePath),
				v.Position.Line,
				v.Position.Column,
				title,
				githubEscape(v.Message),
			)
		}
	}
}

// githubEscape encodes the characters workflow commands treat specially
func githubEscape(s string) string {
	return strings.NewReplacer("%", "%25", "\r", "%0D", "\n", "%0A").Replace(s)
}
