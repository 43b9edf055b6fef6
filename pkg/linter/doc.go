// Package linter runs lint rules over JavaScript and TypeScript modules.
//
// # Overview
//
// A [LintEngine] parses each file with package jsast, runs every rule the
// configuration enables and collects the reported violations. Files are
// linted in parallel, each with its own parser and per-rule state.
//
// # Configuration
//
// Configuration is YAML. Presets are pulled in with extends, rules are
// namespaced by plugin and a plugin must be loaded before its rules can be
// configured:
//
//	version: v1
//	extends: ["plugin:@xivanalysis/client"]
//	plugins: ["react", "@xivanalysis"]
//	rules:
//	  react/no-unescaped-entities: [error, {forbid: [">", "}"]}]
//	  "@xivanalysis/no-unused-dependencies": warn
//
// Severities are off, warn and error (or 0, 1 and 2). Changing only the
// severity of a rule keeps the options inherited from the preset.
//
// # Usage Example
//
//	config, err := linter.LoadConfigFromDir(".")
//	engine := linter.NewLintEngine(config, linter.WithLogger(log))
//	rules.RegisterDefaultRules(engine.Registry())
//
//	results, err := engine.LintFiles(ctx, paths)
//	summary := engine.GenerateSummary(results)
//
// # Related Packages
//
//   - pkg/jsast: Parsing and traversal
//   - pkg/linter/rules: Built-in rules
package linter
