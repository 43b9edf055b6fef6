package linter

import (
	"errors"
	"fmt"
	"sort"

	"github.com/xivanalysis/xivlint/pkg/jsast"
)

var (
	// ErrUnknownRule is returned when a config enables a rule that is not registered
	ErrUnknownRule = errors.New("unknown rule")
	// ErrRuleTakesNoOptions is returned by rules without an option schema
	ErrRuleTakesNoOptions = errors.New("rule takes no options")
)

// Rule interface that all lint rules must implement. Rules are shared
// between concurrent Check calls and must keep per-file state local.
type Rule interface {
	Name() string
	Category() Category
	Severity() Severity
	Description() string
	CanAutoFix() bool
	ValidateOptions(options []interface{}) error
	Check(file *jsast.File, ctx *LintContext)
}

// EnabledRule is a registered rule with its resolved configuration
type EnabledRule struct {
	Rule     Rule
	Severity Severity
	Options  []interface{}
}

// RuleRegistry manages available lint rules
type RuleRegistry struct {
	rules map[string]Rule
}

// NewRuleRegistry creates a new rule registry
func NewRuleRegistry() *RuleRegistry {
	return &RuleRegistry{
		rules: make(map[string]Rule),
	}
}

// Register adds a rule to the registry
func (r *RuleRegistry) Register(rule Rule) {
	r.rules[rule.Name()] = rule
}

// GetRule retrieves a rule by name
func (r *RuleRegistry) GetRule(name string) (Rule, bool) {
	rule, ok := r.rules[name]
	return rule, ok
}

// GetAllRules returns all registered rules sorted by name
func (r *RuleRegistry) GetAllRules() []Rule {
	rules := make([]Rule, 0, len(r.rules))
	for _, rule := range r.rules {
		rules = append(rules, rule)
	}
	sort.Slice(rules, func(i, j int) bool {
		return rules[i].Name() < rules[j].Name()
	})
	return rules
}

// GetEnabledRules returns the rules enabled by config, sorted by name
func (r *RuleRegistry) GetEnabledRules(config *Config) ([]EnabledRule, error) {
	settings, err := config.ResolveRules()
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(settings))
	for name := range settings {
		names = append(names, name)
	}
	sort.Strings(names)

	enabled := make([]EnabledRule, 0, len(names))
	for _, name := range names {
		setting := settings[name]
		rule, ok := r.GetRule(name)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownRule, name)
		}
		if setting.Severity == SeverityOff {
			continue
		}
		if err := rule.ValidateOptions(setting.Options); err != nil {
			return nil, fmt.Errorf("invalid options for %s: %w", name, err)
		}
		enabled = append(enabled, EnabledRule{
			Rule:     rule,
			Severity: setting.Severity,
			Options:  setting.Options,
		})
	}
	return enabled, nil
}

// GetRulesByCategory returns rules in a specific category
func (r *RuleRegistry) GetRulesByCategory(category Category) []Rule {
	rules := make([]Rule, 0)
	for _, rule := range r.GetAllRules() {
		if rule.Category() == category {
			rules = append(rules, rule)
		}
	}
	return rules
}
