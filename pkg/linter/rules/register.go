package rules

import "github.com/xivanalysis/xivlint/pkg/linter"

// Registry interface for registering rules
type Registry interface {
	Register(rule linter.Rule)
}

// DefaultRules returns all built-in lint rules
func DefaultRules() []linter.Rule {
	return []linter.Rule{
		NewNoUnusedDependenciesRule(),
		NewNoUnescapedEntitiesRule(),
	}
}

// RegisterDefaultRules registers all built-in lint rules
func RegisterDefaultRules(registry Registry) {
	for _, rule := range DefaultRules() {
		registry.Register(rule)
	}
}
