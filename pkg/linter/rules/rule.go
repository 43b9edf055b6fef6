package rules

import (
	"fmt"

	"github.com/xivanalysis/xivlint/pkg/linter"
)

// BaseRule provides common functionality for rules
type BaseRule struct {
	RuleName        string
	RuleCategory    linter.Category
	RuleSeverity    linter.Severity
	RuleDescription string
	AutoFixable     bool
}

func (r *BaseRule) Name() string              { return r.RuleName }
func (r *BaseRule) Category() linter.Category { return r.RuleCategory }
func (r *BaseRule) Severity() linter.Severity { return r.RuleSeverity }
func (r *BaseRule) Description() string       { return r.RuleDescription }
func (r *BaseRule) CanAutoFix() bool          { return r.AutoFixable }

// ValidateOptions rejects any options; rules with a schema override it
func (r *BaseRule) ValidateOptions(options []interface{}) error {
	if len(options) > 0 {
		return fmt.Errorf("%w: %s", linter.ErrRuleTakesNoOptions, r.RuleName)
	}
	return nil
}
