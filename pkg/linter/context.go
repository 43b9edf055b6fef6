package linter

import (
	sitter "github.com/smacker/go-tree-sitter"

	"github.com/xivanalysis/xivlint/pkg/jsast"
)

// LintContext provides context during rule checking. One context is
// created per rule and file.
type LintContext struct {
	FilePath string
	File     *jsast.File
	Config   *Config
	// Options are the rule options from the resolved configuration
	Options []interface{}

	rule       Rule
	severity   Severity
	violations []Violation
}

// Report records a violation anchored at the start of node
func (c *LintContext) Report(node *sitter.Node, message string) {
	c.ReportAt(jsast.PositionOf(node), message)
}

// ReportAt records a violation at pos
func (c *LintContext) ReportAt(pos jsast.Position, message string) {
	c.violations = append(c.violations, Violation{
		Rule:     c.rule.Name(),
		Severity: c.severity,
		Category: c.rule.Category(),
		Message:  message,
		Position: pos,
	})
}

// Violations returns what has been reported so far
func (c *LintContext) Violations() []Violation {
	return c.violations
}

// NewLintContext creates the context a rule reports into
func NewLintContext(file *jsast.File, config *Config, enabled EnabledRule) *LintContext {
	return &LintContext{
		FilePath: file.Path,
		File:     file,
		Config:   config,
		Options:  enabled.Options,
		rule:     enabled.Rule,
		severity: enabled.Severity,
	}
}
