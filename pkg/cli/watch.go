package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/xivanalysis/xivlint/pkg/linter"
	"github.com/xivanalysis/xivlint/pkg/observability"
)

type watchOptions struct {
	dir          string
	configFile   string
	metricsAddr  string
	rescan       string
	otlpEndpoint string
	otlpInsecure bool
	delay        time.Duration
	verbose      bool
}

// newWatchCommand creates a new watch command
func newWatchCommand() *Command {
	flags := flag.NewFlagSet("watch", flag.ExitOnError)

	var opts watchOptions
	flags.StringVar(&opts.dir, "dir", ".", "Directory to watch")
	flags.StringVar(&opts.configFile, "config", "", "Path to lint config file (.xivlint.yaml)")
	flags.StringVar(&opts.metricsAddr, "metrics-addr", "", "Serve Prometheus metrics and health checks on this address")
	flags.StringVar(&opts.rescan, "rescan", "", "Cron schedule for a full relint, e.g. \"@every 30m\"")
	flags.StringVar(&opts.otlpEndpoint, "otlp-endpoint", "", "Export traces and metrics to this OTLP/gRPC collector")
	flags.BoolVar(&opts.otlpInsecure, "otlp-insecure", false, "Connect to the OTLP collector without TLS")
	flags.DurationVar(&opts.delay, "delay", 200*time.Millisecond, "Quiet period before changed files are linted")
	flags.BoolVar(&opts.verbose, "verbose", false, "Verbose output")

	return &Command{
		Name:        "watch",
		Description: "Lint sources again whenever they change",
		Flags:       flags,
		Run: func(args []string) error {
			if err := flags.Parse(args); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			logger := observability.NewLogger(observability.VerboseLevel(opts.verbose), os.Stderr)
			return runWatch(ctx, opts, os.Stdout, logger)
		},
	}
}

// watcher relints changed files of a directory tree
type watcher struct {
	root    string
	config  *linter.Config
	engine  *linter.LintEngine
	fsw     *fsnotify.Watcher
	health  *observability.HealthChecker
	tracer  trace.Tracer
	out     io.Writer
	logger  *logrus.Logger
	delay   time.Duration
	pending map[string]struct{}
	rescan  chan struct{}
}

func runWatch(ctx context.Context, opts watchOptions, out io.Writer, logger *logrus.Logger) error {
	config, err := loadConfig(opts.dir, opts.configFile)
	if err != nil {
		return err
	}

	shutdown := observability.NewShutdownManager(logger, 0)
	defer func() {
		if err := shutdown.Shutdown(); err != nil {
			logger.WithError(err).Warn("Shutdown incomplete")
		}
	}()

	providers, telemetry, err := initTelemetry(ctx, opts.otlpEndpoint, opts.otlpInsecure, logger)
	if err != nil {
		return err
	}
	if providers != nil {
		shutdown.RegisterShutdownFunc("opentelemetry", providers.Shutdown)
	}

	health := observability.NewHealthChecker()
	var metrics *observability.Metrics
	if opts.metricsAddr != "" {
		registry := prometheus.NewRegistry()
		metrics = observability.NewMetrics(registry)

		addr, err := serveMetrics(opts.metricsAddr, registry, health, shutdown, logger)
		if err != nil {
			return err
		}
		logger.Infof("Serving metrics on http://%s/metrics", addr)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	shutdown.RegisterShutdownFunc("file watcher", func(context.Context) error {
		return fsw.Close()
	})

	remote := openRemoteCache(ctx, config, logger)
	if remote != nil {
		shutdown.RegisterShutdownFunc("shared cache", func(context.Context) error {
			return remote.Close()
		})
	}

	engine := newEngine(config, logger, append(telemetry,
		linter.WithMetrics(metrics),
		linter.WithRemoteCache(remote),
	)...)

	w := &watcher{
		root:    opts.dir,
		config:  config,
		engine:  engine,
		fsw:     fsw,
		health:  health,
		tracer:  tracerFor(providers),
		out:     out,
		logger:  logger,
		delay:   opts.delay,
		pending: make(map[string]struct{}),
		rescan:  make(chan struct{}, 1),
	}

	if opts.rescan != "" {
		if err := w.schedule(opts.rescan, shutdown); err != nil {
			return err
		}
	}

	if err := w.setupWatcher(); err != nil {
		return fmt.Errorf("failed to setup watcher: %w", err)
	}

	if err := w.lintAll(ctx); err != nil {
		return err
	}

	logger.Infof("Watching %s for changes", w.root)
	return w.run(ctx)
}

// serveMetrics starts the metrics server and returns its bound address
func serveMetrics(addr string, registry *prometheus.Registry, health *observability.HealthChecker,
	shutdown *observability.ShutdownManager, logger *logrus.Logger) (string, error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return "", fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	router := mux.NewRouter()
	observability.RegisterMetricsEndpoint(router, registry)
	observability.RegisterHealthRoutes(router, health)

	server := &http.Server{
		Addr:              listener.Addr().String(),
		Handler:           otelhttp.NewHandler(router, "xivlint.metrics"),
		ReadHeaderTimeout: 5 * time.Second,
	}
	shutdown.RegisterServer(server)

	go func() {
		defer observability.RecoverPanic(logger, "metrics server")
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Error("Metrics server stopped")
		}
	}()

	return server.Addr, nil
}

// schedule queues a full relint on every tick of spec
func (w *watcher) schedule(spec string, shutdown *observability.ShutdownManager) error {
	c := cron.New()
	_, err := c.AddFunc(spec, func() {
		select {
		case w.rescan <- struct{}{}:
		default:
		}
	})
	if err != nil {
		return fmt.Errorf("invalid rescan schedule %q: %w", spec, err)
	}

	c.Start()
	shutdown.RegisterShutdownFunc("rescan scheduler", func(ctx context.Context) error {
		select {
		case <-c.Stop().Done():
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	})
	w.logger.Infof("Full relint scheduled: %s", spec)
	return nil
}

// setupWatcher recursively adds all lintable directories to the watcher
func (w *watcher) setupWatcher() error {
	return filepath.WalkDir(w.root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != w.root && w.skip(path, d.Name()) {
			return filepath.SkipDir
		}
		return w.fsw.Add(path)
	})
}

func (w *watcher) skip(path, name string) bool {
	if skipDir(name) {
		return true
	}
	rel, err := filepath.Rel(w.root, path)
	return err != nil || w.config.IsIgnored(rel)
}

// wants reports whether a changed file should be linted
func (w *watcher) wants(path string) bool {
	if !w.config.HasExtension(path) {
		return false
	}
	rel, err := filepath.Rel(w.root, path)
	return err == nil && !w.config.IsIgnored(rel)
}

func (w *watcher) run(ctx context.Context) error {
	var flush <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			w.handle(event)
			if len(w.pending) > 0 && flush == nil {
				flush = time.After(w.delay)
			}
		case <-flush:
			flush = nil
			if err := w.lintPending(ctx); err != nil {
				w.logger.WithError(err).Warn("Lint failed")
			}
		case <-w.rescan:
			if err := w.lintAll(ctx); err != nil {
				w.logger.WithError(err).Warn("Rescan failed")
			}
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.WithError(err).Warn("Watcher error")
		}
	}
}

func (w *watcher) handle(event fsnotify.Event) {
	// Only care about write and create events for source files
	if event.Op&(fsnotify.Write|fsnotify.Create) != 0 && w.wants(event.Name) {
		w.logger.Debugf("Modified file: %s", event.Name)
		w.pending[event.Name] = struct{}{}
	}
	if event.Op&(fsnotify.Remove|fsnotify.Rename) != 0 {
		delete(w.pending, event.Name)
	}

	// Also watch new directories
	if event.Op&fsnotify.Create != 0 {
		fi, err := os.Stat(event.Name)
		if err == nil && fi.IsDir() && !w.skip(event.Name, fi.Name()) {
			w.logger.Debugf("New directory: %s", event.Name)
			if err := w.fsw.Add(event.Name); err != nil {
				w.logger.WithError(err).Warn("Error watching new directory")
			}
		}
	}
}

func (w *watcher) lintPending(ctx context.Context) error {
	files := make([]string, 0, len(w.pending))
	for path := range w.pending {
		// Files can vanish between the event and the lint
		if _, err := os.Stat(path); err == nil {
			files = append(files, path)
		}
	}
	w.pending = make(map[string]struct{})
	sort.Strings(files)

	if len(files) == 0 {
		return nil
	}
	return w.lint(ctx, files)
}

func (w *watcher) lintAll(ctx context.Context) error {
	files, err := findSourceFiles(w.root, w.config)
	if err != nil {
		return fmt.Errorf("failed to find source files: %w", err)
	}
	return w.lint(ctx, files)
}

// lint runs one pass over files under a single parent span
func (w *watcher) lint(ctx context.Context, files []string) (err error) {
	ctx, span := w.tracer.Start(ctx, "watch.pass", trace.WithAttributes(
		attribute.Int("lint.files", len(files)),
	))
	defer func() { endSpan(span, err) }()

	results, err := w.engine.LintFiles(ctx, files)
	w.health.RecordRun(len(results), err)
	if err != nil {
		return err
	}

	summary := w.engine.GenerateSummary(results)
	span.SetAttributes(attribute.Int("lint.violations", summary.TotalViolations))
	lintOutputText(w.out, results, summary)
	return nil
}
