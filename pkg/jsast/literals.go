package jsast

import (
	"strconv"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
)

// StringValue returns the decoded value of a string literal node
func (f *File) StringValue(n *sitter.Node) (string, bool) {
	if n == nil || n.Type() != "string" {
		return "", false
	}
	raw := f.Text(n)
	if len(raw) < 2 || (raw[0] != '\'' && raw[0] != '"') || raw[len(raw)-1] != raw[0] {
		return "", false
	}
	return unescape(raw[1 : len(raw)-1]), true
}

var simpleEscapes = map[byte]string{
	'n': "\n",
	't': "\t",
	'r': "\r",
	'b': "\b",
	'f': "\f",
	'v': "\v",
	'0': "\x00",
}

func unescape(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}

	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' || i+1 == len(s) {
			b.WriteByte(c)
			continue
		}
		i++
		c = s[i]
		switch {
		case simpleEscapes[c] != "":
			b.WriteString(simpleEscapes[c])
		case c == '\n':
			// line continuation
		case c == '\r':
			if i+1 < len(s) && s[i+1] == '\n' {
				i++
			}
		case c == 'x' && i+2 < len(s):
			if r, err := strconv.ParseUint(s[i+1:i+3], 16, 8); err == nil {
				b.WriteRune(rune(r))
				i += 2
			} else {
				b.WriteByte(c)
			}
		case c == 'u' && i+1 < len(s) && s[i+1] == '{':
			end := strings.IndexByte(s[i:], '}')
			if end < 0 {
				b.WriteByte(c)
				break
			}
			if r, err := strconv.ParseUint(s[i+2:i+end], 16, 32); err == nil {
				b.WriteRune(rune(r))
				i += end
			} else {
				b.WriteByte(c)
			}
		case c == 'u' && i+4 < len(s):
			if r, err := strconv.ParseUint(s[i+1:i+5], 16, 16); err == nil {
				b.WriteRune(rune(r))
				i += 4
			} else {
				b.WriteByte(c)
			}
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

// wrappers whose value is their first named child
var transparentExpressions = map[string]bool{
	"parenthesized_expression": true,
	"as_expression":            true,
	"satisfies_expression":     true,
	"non_null_expression":      true,
}

// Unparen strips any parentheses around an expression
func Unparen(n *sitter.Node) *sitter.Node {
	for n != nil && n.Type() == "parenthesized_expression" && n.NamedChildCount() > 0 {
		n = n.NamedChild(0)
	}
	return n
}

// ArrayElements returns the element nodes of an array literal, looking
// through parentheses and TypeScript assertions. Comments are not returned.
func ArrayElements(n *sitter.Node) ([]*sitter.Node, bool) {
	for n != nil && transparentExpressions[n.Type()] && n.NamedChildCount() > 0 {
		n = n.NamedChild(0)
	}
	if n == nil || n.Type() != "array" {
		return nil, false
	}

	elems := make([]*sitter.Node, 0, n.NamedChildCount())
	for i := 0; i < int(n.NamedChildCount()); i++ {
		child := n.NamedChild(i)
		if child == nil || child.Type() == "comment" {
			continue
		}
		elems = append(elems, child)
	}
	return elems, true
}
