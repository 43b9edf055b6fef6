// Package jsast parses JavaScript and TypeScript modules with tree-sitter and
// drives visitors over the resulting syntax tree.
//
// # Traversal
//
// [Walk] visits named nodes depth-first in source order with balanced
// Enter/Exit calls. [WalkClasses] narrows that stream to the events class
// scoped rules care about:
//
//	jsast.WalkClasses(file, visitor)
//
//	// visitor.EnterClassBody(body)
//	// visitor.StaticField(jsast.Field{Name: "dependencies", ...})
//	// visitor.MemberAccess(jsast.MemberAccess{Property: "foo", ...})
//	// visitor.ExitClassBody(body)
//
// # Languages
//
// The grammar is chosen from the file extension: .js, .jsx, .mjs and .cjs
// use the JavaScript grammar (which includes JSX), .ts/.mts/.cts use
// TypeScript and .tsx uses TSX.
package jsast
