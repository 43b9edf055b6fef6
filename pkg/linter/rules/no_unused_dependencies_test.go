package rules

import (
	"context"
	"testing"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xivanalysis/xivlint/pkg/jsast"
	"github.com/xivanalysis/xivlint/pkg/linter"
)

var unusedDependenciesOnly = map[string]interface{}{
	NoUnusedDependenciesName: "error",
}

func TestNoUnusedDependencies(t *testing.T) {
	tests := []struct {
		name string
		path string
		src  string
		want []string
	}{
		{
			name: "spread skipped and dependency used",
			path: "something.js",
			src: `
import Module from 'parser/core/module'

export default class Something extends Module {
	static handle = 'something'
	static dependencies = [
		...Module.dependencies,
		'somethingElse',
	]
	constructor(...args) {
		super(...args)
		this.somethingElse.use()
	}
}
`,
		},
		{
			name: "unused dependency reported",
			path: "something.js",
			src: `
import Module from 'parser/core/module'

export default class Something extends Module {
	static handle = 'something'
	static dependencies = [
		...Module.dependencies,
		'unused',
		'somethingElse',
	]
	constructor(...args) {
		super(...args)
		this.somethingElse.use()
	}
}
`,
			want: []string{"Dependency 'unused' is unused"},
		},
		{
			name: "object literal is ignored",
			path: "object.js",
			src: `
const notAClass = {
	dependencies: [],
	method () { this.notADep }
}
`,
		},
		{
			name: "nested classes each satisfied",
			path: "nested.js",
			src: `
import Module from 'parser/core/module'
// silly example of nested classes but verifies that the scoping system works
class A extends Module {
	static dependencies = ['foo']
	static B = class B extends Module {
		static dependencies = ['bar']

		method () {
			this.bar
		}
	}

	method () {
		this.foo
	}
}
`,
		},
		{
			name: "outer usage does not satisfy inner class",
			path: "nested.js",
			src: `
class A extends Module {
	static dependencies = ['foo']
	static B = class B extends Module {
		static dependencies = ['foo']
		method () {}
	}
	method () { this.foo }
}
`,
			want: []string{"Dependency 'foo' is unused"},
		},
		{
			name: "inner usage does not satisfy outer class",
			path: "nested.js",
			src: `
class A extends Module {
	static dependencies = ['bar']
	static B = class B extends Module {
		method () { this.bar }
	}
}
`,
			want: []string{"Dependency 'bar' is unused"},
		},
		{
			name: "usage outside the class does not count",
			path: "outside.js",
			src: `
class A extends Module {
	static dependencies = ['foo']
}
function f() { return this.foo }
`,
			want: []string{"Dependency 'foo' is unused"},
		},
		{
			name: "usage before declaration counts",
			path: "order.js",
			src: `
class A extends Module {
	method () { this.foo.bar() }
	static dependencies = ['foo']
}
`,
		},
		{
			name: "every unused entry reported in declaration order",
			path: "many.js",
			src: `
class A extends Module {
	static dependencies = ['a', 'b', 'c', 'a']
	method () { this.b }
}
`,
			want: []string{
				"Dependency 'a' is unused",
				"Dependency 'c' is unused",
				"Dependency 'a' is unused",
			},
		},
		{
			name: "non array value is skipped",
			path: "call.js",
			src: `
class A extends Module {
	static dependencies = computeDependencies()
	static other = ['x']
}
`,
		},
		{
			name: "missing initializer is skipped",
			path: "empty.js",
			src: `
class A extends Module {
	static dependencies
}
`,
		},
		{
			name: "instance field is not a dependency list",
			path: "instance.js",
			src: `
class A extends Module {
	dependencies = ['foo']
}
`,
		},
		{
			name: "non literal entries never reported",
			path: "computed.js",
			src: `
const name = 'foo'
class A extends Module {
	static dependencies = [name, ` + "`tpl`" + `, 42, ...Base.dependencies]
}
`,
		},
		{
			name: "access on other objects does not count",
			path: "other.js",
			src: `
class A extends Module {
	static dependencies = ['foo']
	method (other) { other.foo; super.foo }
}
`,
			want: []string{"Dependency 'foo' is unused"},
		},
		{
			name: "string subscript counts as usage",
			path: "subscript.js",
			src: `
class A extends Module {
	static dependencies = ["foo"]
	method () { return this['foo'] }
}
`,
		},
		{
			name: "parenthesized entries are literals",
			path: "paren.js",
			src: `
class A extends Module {
	static dependencies = [('foo'), (('bar'))]
	method () { this.bar }
}
`,
			want: []string{"Dependency 'foo' is unused"},
		},
		{
			// Only literal subscripts name a dependency; this[foo] reads
			// whatever foo holds at runtime.
			name: "computed identifier subscript does not count",
			path: "computed_subscript.js",
			src: `
const foo = 'bar'
class A extends Module {
	static dependencies = ['foo']
	method () { return this[foo] }
}
`,
			want: []string{"Dependency 'foo' is unused"},
		},
		{
			name: "class declaration inside a method",
			path: "method.js",
			src: `
class A extends Module {
	static dependencies = ['foo']
	method () {
		class Inner {
			static dependencies = ['baz']
			run () { this.foo }
		}
		return this.baz
	}
}
`,
			want: []string{
				"Dependency 'foo' is unused",
				"Dependency 'baz' is unused",
			},
		},
		{
			name: "typescript module",
			path: "module.ts",
			src: `
import {Module} from 'parser/core/Module'

export class Thing extends Module {
	static override handle = 'thing'
	static override dependencies = [
		...Module.dependencies,
		'data',
		'unused',
	] as const

	private data!: Data

	override initialise(): void {
		this.data.get()
	}
}
`,
			want: []string{"Dependency 'unused' is unused"},
		},
		{
			name: "tsx module",
			path: "component.tsx",
			src: `
export class Thing extends Module {
	static dependencies = ['timeline']
	output() {
		return <div>{this.timeline.show()}</div>
	}
}
`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			violations := lintSource(t, tt.path, tt.src, unusedDependenciesOnly)

			if len(tt.want) == 0 {
				assert.Empty(t, violations)
				return
			}
			assert.Equal(t, tt.want, messages(violations))
			for _, v := range violations {
				assert.Equal(t, NoUnusedDependenciesName, v.Rule)
				assert.Equal(t, linter.SeverityError, v.Severity)
				assert.Equal(t, linter.CategoryDependencies, v.Category)
			}
		})
	}
}

func TestNoUnusedDependencies_Position(t *testing.T) {
	src := "class A extends Module {\n" +
		"\tstatic dependencies = [\n" +
		"\t\t...Module.dependencies,\n" +
		"\t\t'unused',\n" +
		"\t]\n" +
		"}\n"

	violations := lintSource(t, "pos.js", src, unusedDependenciesOnly)
	require.Len(t, violations, 1)
	assert.Equal(t, 4, violations[0].Position.Line)
	assert.Equal(t, 3, violations[0].Position.Column)
	assert.Equal(t, len(src)-len("'unused',\n\t]\n}\n"), violations[0].Position.Offset)
}

func TestNoUnusedDependencies_ParenthesizedPosition(t *testing.T) {
	violations := lintSource(t, "paren.js", "class A { static dependencies = [('foo')] }\n", unusedDependenciesOnly)
	require.Len(t, violations, 1)
	assert.Equal(t, 1, violations[0].Position.Line)
	assert.Equal(t, 35, violations[0].Position.Column)
}

func TestNoUnusedDependencies_SeverityFromConfig(t *testing.T) {
	violations := lintSource(t, "warn.js",
		"class A { static dependencies = ['foo'] }\n",
		map[string]interface{}{NoUnusedDependenciesName: "warn"},
	)
	require.Len(t, violations, 1)
	assert.Equal(t, linter.SeverityWarning, violations[0].Severity)
}

func TestNoUnusedDependencies_RejectsOptions(t *testing.T) {
	config := &linter.Config{
		Plugins: []string{"@xivanalysis"},
		Rules: map[string]interface{}{
			NoUnusedDependenciesName: []interface{}{"error", map[string]interface{}{"allow": "foo"}},
		},
	}
	engine := linter.NewLintEngine(config)
	RegisterDefaultRules(engine.Registry())

	_, err := engine.Lint(context.Background(), "a.js", []byte("class A {}"))
	assert.ErrorIs(t, err, linter.ErrRuleTakesNoOptions)
}

// reportRecorder captures the checker's report callback
type reportRecorder struct {
	file     *jsast.File
	messages []string
	values   []string
}

func (r *reportRecorder) report(node *sitter.Node, message string) {
	r.messages = append(r.messages, message)
	r.values = append(r.values, r.file.Text(node))
}

func TestDependencyChecker_Callbacks(t *testing.T) {
	f, err := jsast.Parse(context.Background(), "a.js", []byte(`class A {
	static dependencies = ['used', "unused"]
	m() { this.used }
}`))
	require.NoError(t, err)
	defer f.Close()

	rec := &reportRecorder{file: f}
	checker := newDependencyChecker(f, rec.report)
	jsast.WalkClasses(f, checker)

	assert.Empty(t, checker.scopes)
	assert.Equal(t, []string{"Dependency 'unused' is unused"}, rec.messages)
	assert.Equal(t, []string{`"unused"`}, rec.values)
}

func TestDependencyChecker_IgnoresEventsOutsideClasses(t *testing.T) {
	f, err := jsast.Parse(context.Background(), "a.js", []byte(`this.foo`))
	require.NoError(t, err)
	defer f.Close()

	rec := &reportRecorder{file: f}
	checker := newDependencyChecker(f, rec.report)

	assert.NotPanics(t, func() {
		checker.MemberAccess(jsast.MemberAccess{Property: "foo"})
		checker.StaticField(jsast.Field{Name: "dependencies", Static: true})
		checker.ExitClassBody(nil)
	})
	assert.Empty(t, rec.messages)
}

func TestDependencyChecker_IndependentRuns(t *testing.T) {
	src := []byte("class A { static dependencies = ['foo'] }\n")
	rule := NewNoUnusedDependenciesRule()

	for i := 0; i < 3; i++ {
		f, err := jsast.Parse(context.Background(), "a.js", src)
		require.NoError(t, err)

		ctx := linter.NewLintContext(f, nil, linter.EnabledRule{Rule: rule, Severity: linter.SeverityError})
		rule.Check(f, ctx)
		assert.Len(t, ctx.Violations(), 1)
		f.Close()
	}
}
