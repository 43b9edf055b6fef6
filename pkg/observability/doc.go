// Package observability provides logging, metrics and health reporting for
// lint runs.
//
// # Logging
//
// Commands build one logrus logger and hand it to the engine:
//
//	logger := observability.NewLogger(observability.VerboseLevel(verbose), os.Stderr)
//	engine := linter.NewLintEngine(config, linter.WithLogger(logger))
//
// # Prometheus Metrics
//
// Initialize metrics and hand them to the engine:
//
//	registry := prometheus.NewRegistry()
//	metrics := observability.NewMetrics(registry)
//	engine := linter.NewLintEngine(config, linter.WithMetrics(metrics))
//
// Expose them (the watch command does this with -metrics-addr):
//
//	router := mux.NewRouter()
//	observability.RegisterMetricsEndpoint(router, registry)
//	observability.RegisterHealthRoutes(router, checker)
//
// Recording methods are safe on a nil *Metrics, so callers that do not
// collect metrics pass nothing.
//
// # Shutdown
//
// ShutdownManager stops registered servers and watchers when the command
// context is cancelled.
package observability
