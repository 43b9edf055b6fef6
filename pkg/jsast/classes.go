package jsast

import (
	sitter "github.com/smacker/go-tree-sitter"
)

// ClassVisitor receives the class-scoped events of a module.
//
// EnterClassBody and ExitClassBody are balanced and nest with the source.
// StaticField fires on entry to a static field declaration, before any
// class body inside its initializer. MemberAccess fires for every property
// access with a statically known name, inside or outside classes.
type ClassVisitor interface {
	EnterClassBody(body *sitter.Node)
	ExitClassBody(body *sitter.Node)
	StaticField(field Field)
	MemberAccess(access MemberAccess)
}

// Field is a class field declaration
type Field struct {
	Node *sitter.Node
	// Name is the identifier key; empty for computed, string or numeric keys
	Name   string
	Static bool
	// Value is the initializer, nil when there is none
	Value *sitter.Node
}

// MemberAccess is obj.prop or obj['prop']
type MemberAccess struct {
	Node     *sitter.Node
	Object   *sitter.Node
	Property string
}

// OnThis reports whether the accessed object is the current instance
func (m MemberAccess) OnThis() bool {
	return m.Object != nil && m.Object.Type() == "this"
}

// WalkClasses drives v over the syntax tree of f
func WalkClasses(f *File, v ClassVisitor) {
	Walk(f.Root(), &classWalker{file: f, visitor: v})
}

type classWalker struct {
	file    *File
	visitor ClassVisitor
}

func (w *classWalker) Enter(n *sitter.Node) bool {
	switch n.Type() {
	case "class_body":
		w.visitor.EnterClassBody(n)
	case "field_definition", "public_field_definition":
		if field := w.field(n); field.Static {
			w.visitor.StaticField(field)
		}
	case "member_expression":
		if access, ok := w.memberAccess(n); ok {
			w.visitor.MemberAccess(access)
		}
	case "subscript_expression":
		if access, ok := w.subscriptAccess(n); ok {
			w.visitor.MemberAccess(access)
		}
	}
	return true
}

func (w *classWalker) Exit(n *sitter.Node) {
	if n.Type() == "class_body" {
		w.visitor.ExitClassBody(n)
	}
}

func (w *classWalker) field(n *sitter.Node) Field {
	field := Field{
		Node:  n,
		Value: n.ChildByFieldName("value"),
	}

	// javascript names the key "property", typescript "name"
	key := n.ChildByFieldName("property")
	if key == nil {
		key = n.ChildByFieldName("name")
	}
	if key != nil && key.Type() == "property_identifier" {
		field.Name = w.file.Text(key)
	}

	for i := 0; i < int(n.ChildCount()); i++ {
		if child := n.Child(i); child != nil && child.Type() == "static" {
			field.Static = true
			break
		}
	}
	return field
}

func (w *classWalker) memberAccess(n *sitter.Node) (MemberAccess, bool) {
	obj := n.ChildByFieldName("object")
	prop := n.ChildByFieldName("property")
	if obj == nil || prop == nil {
		return MemberAccess{}, false
	}
	return MemberAccess{
		Node:     n,
		Object:   obj,
		Property: w.file.Text(prop),
	}, true
}

func (w *classWalker) subscriptAccess(n *sitter.Node) (MemberAccess, bool) {
	obj := n.ChildByFieldName("object")
	name, ok := w.file.StringValue(Unparen(n.ChildByFieldName("index")))
	if obj == nil || !ok {
		return MemberAccess{}, false
	}
	return MemberAccess{
		Node:     n,
		Object:   obj,
		Property: name,
	}, true
}
