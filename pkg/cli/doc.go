// Package cli provides the xivlint command-line interface.
//
// # Overview
//
// This package implements the `xivlint` tool that checks xivanalysis
// analyser modules (JavaScript, JSX, TypeScript and TSX) with the rules of
// the shareable client config.
//
// # Commands
//
// lint: Lint a directory or the files given as arguments
//
//	xivlint lint --dir ./src
//	xivlint lint --format github src/parser/jobs/drg/modules/*.ts
//	xivlint lint --rules
//
// Output formats are text (default), json and github (workflow
// annotations). Errors fail the run unless -fail-on-error=false; warnings
// only fail it with -fail-on-warning. JSON reports carry a run_id that
// also appears in the run's debug logs.
//
// watch: Lint again whenever files change
//
//	xivlint watch --dir ./src --metrics-addr :9090 --rescan "@every 30m"
//
// Unchanged files are served from the result cache. With -metrics-addr the
// command serves /metrics and /health. -rescan takes a cron expression and
// relints the whole tree on each tick.
//
// init: Write the default config file
//
//	xivlint init --dir .
//
// # File discovery
//
// Directories are walked for files with a configured extension. Hidden
// directories, node_modules, vendor and paths matching the config ignore
// patterns are skipped.
package cli
