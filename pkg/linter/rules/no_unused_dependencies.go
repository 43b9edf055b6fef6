package rules

import (
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/xivanalysis/xivlint/pkg/jsast"
	"github.com/xivanalysis/xivlint/pkg/linter"
)

// NoUnusedDependenciesName is the registered name of NoUnusedDependenciesRule
const NoUnusedDependenciesName = "@xivanalysis/no-unused-dependencies"

// NoUnusedDependenciesRule reports entries of a class's static dependencies
// list that the class never reads through this.
type NoUnusedDependenciesRule struct {
	BaseRule
}

// NewNoUnusedDependenciesRule creates a new unused dependency rule
func NewNoUnusedDependenciesRule() *NoUnusedDependenciesRule {
	return &NoUnusedDependenciesRule{
		BaseRule: BaseRule{
			RuleName:        NoUnusedDependenciesName,
			RuleCategory:    linter.CategoryDependencies,
			RuleSeverity:    linter.SeverityError,
			RuleDescription: "Modules should not depend on other modules that they are not using",
		},
	}
}

// Check walks the file with a fresh checker
func (r *NoUnusedDependenciesRule) Check(file *jsast.File, ctx *linter.LintContext) {
	jsast.WalkClasses(file, newDependencyChecker(file, ctx.Report))
}

type dependency struct {
	value string
	node  *sitter.Node
}

// dependencyScope tracks one class body
type dependencyScope struct {
	dependencies []dependency
	used         map[string]struct{}
}

// dependencyChecker is a jsast.ClassVisitor. Dependencies are exposed to a
// module as this.<handle>, so every member access on this inside a class
// body counts as a use of that name in the innermost class.
type dependencyChecker struct {
	file   *jsast.File
	scopes []*dependencyScope
	report func(node *sitter.Node, message string)
}

func newDependencyChecker(file *jsast.File, report func(node *sitter.Node, message string)) *dependencyChecker {
	return &dependencyChecker{
		file:   file,
		report: report,
	}
}

func (c *dependencyChecker) current() *dependencyScope {
	if len(c.scopes) == 0 {
		return nil
	}
	return c.scopes[len(c.scopes)-1]
}

func (c *dependencyChecker) EnterClassBody(*sitter.Node) {
	c.scopes = append(c.scopes, &dependencyScope{
		used: make(map[string]struct{}),
	})
}

func (c *dependencyChecker) ExitClassBody(*sitter.Node) {
	scope := c.current()
	if scope == nil {
		return
	}
	c.scopes = c.scopes[:len(c.scopes)-1]

	for _, dep := range scope.dependencies {
		if _, ok := scope.used[dep.value]; !ok {
			c.report(dep.node, fmt.Sprintf("Dependency '%s' is unused", dep.value))
		}
	}
}

func (c *dependencyChecker) StaticField(field jsast.Field) {
	if field.Name != "dependencies" {
		return
	}
	scope := c.current()
	if scope == nil {
		return
	}

	// Anything but an array literal (a call, a reference) can't be resolved
	elems, ok := jsast.ArrayElements(field.Value)
	if !ok {
		return
	}
	// Spreads of a parent's dependencies and computed entries are skipped
	for _, elem := range elems {
		elem = jsast.Unparen(elem)
		value, ok := c.file.StringValue(elem)
		if !ok {
			continue
		}
		scope.dependencies = append(scope.dependencies, dependency{value: value, node: elem})
	}
}

func (c *dependencyChecker) MemberAccess(access jsast.MemberAccess) {
	scope := c.current()
	if scope == nil || !access.OnThis() {
		return
	}
	scope.used[access.Property] = struct{}{}
}
