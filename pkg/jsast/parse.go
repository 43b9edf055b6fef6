package jsast

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	"github.com/smacker/go-tree-sitter/typescript/typescript"
)

// ErrUnsupportedLanguage is returned for files whose extension has no grammar
var ErrUnsupportedLanguage = errors.New("unsupported language")

// Language identifies the grammar a file is parsed with
type Language string

const (
	LanguageJavaScript Language = "javascript"
	LanguageTypeScript Language = "typescript"
	LanguageTSX        Language = "tsx"
)

var extensionLanguages = map[string]Language{
	".js":  LanguageJavaScript,
	".jsx": LanguageJavaScript,
	".mjs": LanguageJavaScript,
	".cjs": LanguageJavaScript,
	".ts":  LanguageTypeScript,
	".mts": LanguageTypeScript,
	".cts": LanguageTypeScript,
	".tsx": LanguageTSX,
}

// DetectLanguage picks the grammar for a file path
func DetectLanguage(path string) (Language, error) {
	lang, ok := extensionLanguages[strings.ToLower(filepath.Ext(path))]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedLanguage, path)
	}
	return lang, nil
}

func (l Language) grammar() *sitter.Language {
	switch l {
	case LanguageTypeScript:
		return typescript.GetLanguage()
	case LanguageTSX:
		return tsx.GetLanguage()
	default:
		return javascript.GetLanguage()
	}
}

// File is a parsed source module
type File struct {
	Path     string
	Source   []byte
	Language Language

	tree *sitter.Tree
}

// Parse parses src with the grammar matching path. Each call uses its own
// parser, so files may be parsed concurrently.
func Parse(ctx context.Context, path string, src []byte) (*File, error) {
	lang, err := DetectLanguage(path)
	if err != nil {
		return nil, err
	}

	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(lang.grammar())

	tree, err := parser.ParseCtx(ctx, nil, src)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	return &File{
		Path:     path,
		Source:   src,
		Language: lang,
		tree:     tree,
	}, nil
}

// Root returns the program node
func (f *File) Root() *sitter.Node {
	return f.tree.RootNode()
}

// Close releases the syntax tree
func (f *File) Close() {
	if f.tree != nil {
		f.tree.Close()
		f.tree = nil
	}
}

// Text returns the source text covered by n
func (f *File) Text(n *sitter.Node) string {
	return n.Content(f.Source)
}

// SyntaxError returns the first ERROR or MISSING node in source order
func (f *File) SyntaxError() (*sitter.Node, bool) {
	root := f.Root()
	if !root.HasError() {
		return nil, false
	}
	return firstError(root)
}

func firstError(n *sitter.Node) (*sitter.Node, bool) {
	if n.Type() == "ERROR" || n.IsMissing() {
		return n, true
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		child := n.Child(i)
		if child == nil || !(child.HasError() || child.IsMissing()) {
			continue
		}
		if found, ok := firstError(child); ok {
			return found, true
		}
	}
	return nil, false
}
