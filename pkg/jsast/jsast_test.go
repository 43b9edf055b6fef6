package jsast

import (
	"context"
	"fmt"
	"testing"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parse(t *testing.T, path, src string) *File {
	t.Helper()
	f, err := Parse(context.Background(), path, []byte(src))
	require.NoError(t, err)
	t.Cleanup(f.Close)
	return f
}

// eventRecorder flattens ClassVisitor callbacks into strings
type eventRecorder struct {
	file   *File
	events []string
}

func (r *eventRecorder) EnterClassBody(*sitter.Node) { r.events = append(r.events, "enter") }
func (r *eventRecorder) ExitClassBody(*sitter.Node)  { r.events = append(r.events, "exit") }

func (r *eventRecorder) StaticField(f Field) {
	r.events = append(r.events, "static "+f.Name)
}

func (r *eventRecorder) MemberAccess(m MemberAccess) {
	obj := r.file.Text(m.Object)
	r.events = append(r.events, fmt.Sprintf("access %s.%s", obj, m.Property))
}

func TestDetectLanguage(t *testing.T) {
	tests := []struct {
		path    string
		want    Language
		wantErr bool
	}{
		{path: "a.js", want: LanguageJavaScript},
		{path: "dir/a.JSX", want: LanguageJavaScript},
		{path: "a.mjs", want: LanguageJavaScript},
		{path: "a.ts", want: LanguageTypeScript},
		{path: "a.tsx", want: LanguageTSX},
		{path: "a.go", wantErr: true},
		{path: "Makefile", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got, err := DetectLanguage(tt.path)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnsupportedLanguage)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParse_UnsupportedLanguage(t *testing.T) {
	_, err := Parse(context.Background(), "schema.proto", []byte("syntax = \"proto3\";"))
	assert.ErrorIs(t, err, ErrUnsupportedLanguage)
}

func TestFile_SyntaxError(t *testing.T) {
	f := parse(t, "ok.js", "const a = 1\n")
	_, bad := f.SyntaxError()
	assert.False(t, bad)

	f = parse(t, "broken.js", "const a = \nclass {{\n")
	node, bad := f.SyntaxError()
	require.True(t, bad)
	assert.NotNil(t, node)
}

func TestWalk_Balanced(t *testing.T) {
	f := parse(t, "a.js", "class A { m() { return this.x } }\n")

	depth, maxDepth := 0, 0
	var order []string
	Walk(f.Root(), &countingVisitor{
		enter: func(n *sitter.Node) {
			depth++
			if depth > maxDepth {
				maxDepth = depth
			}
			order = append(order, n.Type())
		},
		exit: func(*sitter.Node) { depth-- },
	})

	assert.Equal(t, 0, depth)
	assert.Greater(t, maxDepth, 3)
	assert.Equal(t, "program", order[0])
	assert.Contains(t, order, "class_body")
	assert.Contains(t, order, "member_expression")
}

type countingVisitor struct {
	enter func(*sitter.Node)
	exit  func(*sitter.Node)
}

func (c *countingVisitor) Enter(n *sitter.Node) bool { c.enter(n); return true }
func (c *countingVisitor) Exit(n *sitter.Node)       { c.exit(n) }

func TestInspect_SkipsChildren(t *testing.T) {
	f := parse(t, "a.js", "class A { m() { this.x } }\nthis.y\n")

	var props []string
	Inspect(f.Root(), func(n *sitter.Node) bool {
		if n.Type() == "class_declaration" {
			return false
		}
		if n.Type() == "member_expression" {
			props = append(props, f.Text(n))
		}
		return true
	})
	assert.Equal(t, []string{"this.y"}, props)
}

func TestWalkClasses(t *testing.T) {
	tests := []struct {
		name string
		path string
		src  string
		want []string
	}{
		{
			name: "static dependencies and usage",
			path: "a.js",
			src: `class A {
	static dependencies = ['foo']
	handle = 'x'
	m() { this.foo.bar() }
}`,
			want: []string{
				"enter",
				"static dependencies",
				"access this.foo.bar",
				"access this.foo",
				"exit",
			},
		},
		{
			name: "nested class expression",
			path: "a.js",
			src: `class A {
	static B = class {
		m() { this.inner }
	}
	m() { this.outer }
}`,
			want: []string{
				"enter",
				"static B",
				"enter",
				"access this.inner",
				"exit",
				"access this.outer",
				"exit",
			},
		},
		{
			name: "object literal is not a class",
			path: "a.js",
			src:  `const o = { dependencies: [], m() { this.notADep } }`,
			want: []string{"access this.notADep"},
		},
		{
			name: "string subscript",
			path: "a.js",
			src:  `class A { m() { this['foo']; this[bar] } }`,
			want: []string{"enter", "access this.foo", "exit"},
		},
		{
			name: "typescript field",
			path: "a.ts",
			src: `export class A {
	static readonly dependencies: string[] = ['foo']
	private x: number = 1
	m(): void { this.foo }
}`,
			want: []string{
				"enter",
				"static dependencies",
				"access this.foo",
				"exit",
			},
		},
		{
			name: "computed key has no name",
			path: "a.js",
			src:  `class A { static ['dependencies'] = ['foo'] }`,
			want: []string{"enter", "static ", "exit"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := parse(t, tt.path, tt.src)
			rec := &eventRecorder{file: f}
			WalkClasses(f, rec)
			assert.Equal(t, tt.want, rec.events)
		})
	}
}

func TestStringValue(t *testing.T) {
	tests := []struct {
		src  string
		want string
		ok   bool
	}{
		{src: `x = 'foo'`, want: "foo", ok: true},
		{src: `x = "bar"`, want: "bar", ok: true},
		{src: `x = 'it\'s'`, want: "it's", ok: true},
		{src: `x = '\x41B\u{43}'`, want: "ABC", ok: true},
		{src: `x = 'a\nb'`, want: "a\nb", ok: true},
		{src: "x = `tpl`", ok: false},
		{src: `x = 42`, ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			f := parse(t, "a.js", tt.src)
			var value *sitter.Node
			Inspect(f.Root(), func(n *sitter.Node) bool {
				if n.Type() == "assignment_expression" {
					value = n.ChildByFieldName("right")
					return false
				}
				return true
			})
			require.NotNil(t, value)

			got, ok := f.StringValue(value)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestArrayElements(t *testing.T) {
	tests := []struct {
		name  string
		path  string
		src   string
		count int
		ok    bool
	}{
		{name: "plain", path: "a.js", src: `x = ['a', ...b, c]`, count: 3, ok: true},
		{name: "comments skipped", path: "a.js", src: "x = [\n// one\n'a',\n]", count: 1, ok: true},
		{name: "parenthesized", path: "a.js", src: `x = (['a'])`, count: 1, ok: true},
		{name: "as const", path: "a.ts", src: `x = ['a', 'b'] as const`, count: 2, ok: true},
		{name: "call", path: "a.js", src: `x = deps()`, ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := parse(t, tt.path, tt.src)
			var value *sitter.Node
			Inspect(f.Root(), func(n *sitter.Node) bool {
				if n.Type() == "assignment_expression" {
					value = n.ChildByFieldName("right")
					return false
				}
				return true
			})

			elems, ok := ArrayElements(value)
			assert.Equal(t, tt.ok, ok)
			assert.Len(t, elems, tt.count)
		})
	}
}

func TestUnparen(t *testing.T) {
	f := parse(t, "a.ts", `x = [(('a')), ('b' as const)]`)
	var value *sitter.Node
	Inspect(f.Root(), func(n *sitter.Node) bool {
		if n.Type() == "assignment_expression" {
			value = n.ChildByFieldName("right")
			return false
		}
		return true
	})

	elems, ok := ArrayElements(value)
	require.True(t, ok)
	require.Len(t, elems, 2)

	s, ok := f.StringValue(Unparen(elems[0]))
	assert.True(t, ok)
	assert.Equal(t, "a", s)

	// Assertions are not parentheses
	assert.Equal(t, "as_expression", Unparen(elems[1]).Type())
	assert.Nil(t, Unparen(nil))
}

func TestPosition(t *testing.T) {
	f := parse(t, "a.js", "\n  this.foo\n")

	var access *sitter.Node
	Inspect(f.Root(), func(n *sitter.Node) bool {
		if n.Type() == "member_expression" {
			access = n
		}
		return true
	})
	require.NotNil(t, access)

	pos := PositionOf(access)
	assert.Equal(t, Position{Line: 2, Column: 3, Offset: 3}, pos)
	assert.Equal(t, "2:3", pos.String())

	assert.Equal(t, Position{Line: 3, Column: 2, Offset: 7}, pos.Advance("ab\nc\n"[:4]))
}
