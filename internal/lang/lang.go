// Package lang is a small registry mapping file extensions to tree-sitter
// languages for the structural parser. It follows the same shape as a
// tags-style language registry: one Language per grammar, keyed by the
// extensions it claims, with small per-language helpers for qualifying a
// method name by its enclosing class.
package lang

import (
	"sync"

	sitter "github.com/smacker/go-tree-sitter"
	sitterjs "github.com/smacker/go-tree-sitter/javascript"
	sitterts "github.com/smacker/go-tree-sitter/typescript/typescript"
)

// Language describes a tree-sitter grammar and the node-type names used to
// recognize function/class/method declarations within it.
type Language struct {
	Name       string
	Extensions []string

	grammar *sitter.Language

	// Node type names produced by this grammar.
	FunctionDecl []string // top-level function declarations
	ClassDecl    []string // class declarations
	MethodDecl   []string // method definitions inside a class body
	NameField    []string // child field names that hold an identifier node
}

// NewParser returns a fresh tree-sitter parser for this language. A parser
// is not safe for concurrent use; callers must create one per goroutine.
func (l *Language) NewParser() *sitter.Parser {
	p := sitter.NewParser()
	p.SetLanguage(l.grammar)
	return p
}

var (
	registry     = map[string]*Language{}
	extensionMap map[string]*Language
	extOnce      sync.Once
)

func register(l *Language) {
	registry[l.Name] = l
}

func init() {
	register(&Language{
		Name:         "javascript",
		Extensions:   []string{".js", ".jsx", ".mjs", ".cjs"},
		grammar:      sitterjs.GetLanguage(),
		FunctionDecl: []string{"function_declaration"},
		ClassDecl:    []string{"class_declaration"},
		MethodDecl:   []string{"method_definition"},
		NameField:    []string{"identifier", "property_identifier"},
	})
	register(&Language{
		Name:         "typescript",
		Extensions:   []string{".ts", ".tsx"},
		grammar:      sitterts.GetLanguage(),
		FunctionDecl: []string{"function_declaration"},
		ClassDecl:    []string{"class_declaration", "interface_declaration"},
		MethodDecl:   []string{"method_definition", "method_signature"},
		NameField:    []string{"identifier", "property_identifier", "type_identifier"},
	})
}

// ForExtension returns the Language registered for a file extension
// (including the leading dot), or nil if the extension is not structurally
// parsed.
func ForExtension(ext string) *Language {
	extOnce.Do(func() {
		extensionMap = make(map[string]*Language)
		for _, l := range registry {
			for _, e := range l.Extensions {
				extensionMap[e] = l
			}
		}
	})
	return extensionMap[ext]
}

// Extensions returns the full set of extensions structurally parsed by any
// registered language, used by the indexer as the default eligible set.
func Extensions() []string {
	extOnce.Do(func() {
		extensionMap = make(map[string]*Language)
		for _, l := range registry {
			for _, e := range l.Extensions {
				extensionMap[e] = l
			}
		}
	})
	exts := make([]string, 0, len(extensionMap))
	for e := range extensionMap {
		exts = append(exts, e)
	}
	return exts
}

// NodeText returns the source text spanned by a node.
func NodeText(n *sitter.Node, src []byte) string {
	return string(src[n.StartByte():n.EndByte()])
}

// childNameText returns the text of the first child matching one of the
// given node-type names, or "" if none is found.
func childNameText(n *sitter.Node, fieldTypes []string, src []byte) string {
	for i := 0; i < int(n.ChildCount()); i++ {
		c := n.Child(i)
		for _, t := range fieldTypes {
			if c.Type() == t {
				return NodeText(c, src)
			}
		}
	}
	return ""
}

// DeclName returns the declared name of a function/class/method node found
// via its registered NameField types.
func (l *Language) DeclName(n *sitter.Node, src []byte) string {
	return childNameText(n, l.NameField, src)
}

// EnclosingClassName walks up from a method node to the nearest class (or
// interface) declaration ancestor and returns its name, or "" if the method
// is not nested inside one.
func (l *Language) EnclosingClassName(n *sitter.Node, src []byte) string {
	cur := n.Parent()
	for cur != nil {
		if l.isClassNode(cur) {
			return l.DeclName(cur, src)
		}
		cur = cur.Parent()
	}
	return ""
}

func (l *Language) isClassNode(n *sitter.Node) bool {
	for _, t := range l.ClassDecl {
		if n.Type() == t {
			return true
		}
	}
	return false
}

func (l *Language) isFunctionNode(n *sitter.Node) bool {
	for _, t := range l.FunctionDecl {
		if n.Type() == t {
			return true
		}
	}
	return false
}

func (l *Language) isMethodNode(n *sitter.Node) bool {
	for _, t := range l.MethodDecl {
		if n.Type() == t {
			return true
		}
	}
	return false
}

// IsFunction, IsClass, IsMethod expose the node-kind predicates to callers
// that walk the tree themselves (the parser package).
func (l *Language) IsFunction(n *sitter.Node) bool { return l.isFunctionNode(n) }
func (l *Language) IsClass(n *sitter.Node) bool    { return l.isClassNode(n) }
func (l *Language) IsMethod(n *sitter.Node) bool   { return l.isMethodNode(n) }
