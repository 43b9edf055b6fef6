package jsast

import (
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"
)

// Visitor receives named nodes in source order. Exit is called for every
// node whose Enter was called, after its subtree.
type Visitor interface {
	// Enter reports whether the children of n should be visited
	Enter(n *sitter.Node) bool
	Exit(n *sitter.Node)
}

// Walk traverses root depth-first
func Walk(root *sitter.Node, v Visitor) {
	if root == nil {
		return
	}
	if v.Enter(root) {
		for i := 0; i < int(root.NamedChildCount()); i++ {
			Walk(root.NamedChild(i), v)
		}
	}
	v.Exit(root)
}

// Inspect calls fn for every named node; children are skipped when fn
// returns false.
func Inspect(root *sitter.Node, fn func(n *sitter.Node) bool) {
	Walk(root, inspector(fn))
}

type inspector func(n *sitter.Node) bool

func (f inspector) Enter(n *sitter.Node) bool { return f(n) }
func (f inspector) Exit(*sitter.Node)         {}

// Position is a 1-based line and column plus the byte offset
type Position struct {
	Line   int `json:"line"`
	Column int `json:"column"`
	Offset int `json:"offset"`
}

func (p Position) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// PositionOf returns the start of n
func PositionOf(n *sitter.Node) Position {
	pt := n.StartPoint()
	return Position{
		Line:   int(pt.Row) + 1,
		Column: int(pt.Column) + 1,
		Offset: int(n.StartByte()),
	}
}

// Advance returns the position reached after consuming text from p.
// Columns count bytes, as tree-sitter points do.
func (p Position) Advance(text string) Position {
	for i := 0; i < len(text); i++ {
		if text[i] == '\n' {
			p.Line++
			p.Column = 1
		} else {
			p.Column++
		}
		p.Offset++
	}
	return p
}
