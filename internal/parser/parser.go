// Package parser implements structural parsing: for each eligible source
// file it produces Symbol entries for every top-level function, class, and
// class method, and the raw import specifiers used by edge derivation.
package parser

import (
	"context"
	"path/filepath"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/guvensoft/codectx-mcp/internal/lang"
	"github.com/guvensoft/codectx-mcp/pkg/types"
)

// Result is the output of parsing one file.
type Result struct {
	Symbols []types.Symbol
	// Imports are the raw specifiers written in the file's import/export
	// declarations (e.g. "./order.repository", "lodash"), unresolved.
	Imports []string
	// Err is non-nil only when tree-sitter returns no tree (for example on
	// context cancellation); Symbols and Imports are then empty. Source with
	// syntax errors still yields a tree, and its symbols come with a nil Err.
	Err error
}

// Parser parses one file at a time. It holds no state: ParseFile builds a
// fresh tree-sitter parser on every call.
type Parser struct{}

// New creates a Parser.
func New() *Parser { return &Parser{} }

// ParseFile parses source according to the language registered for path's
// extension. An unsupported extension returns an empty, error-free Result
// (the file still gets a File record with no symbols).
func (p *Parser) ParseFile(ctx context.Context, path string, source []byte) Result {
	l := lang.ForExtension(strings.ToLower(filepath.Ext(path)))
	if l == nil {
		return Result{}
	}

	sp := l.NewParser()
	tree, err := sp.ParseCtx(ctx, nil, source)
	if err != nil {
		return Result{Err: err}
	}
	if tree == nil {
		return Result{Err: errSyntax(path)}
	}
	root := tree.RootNode()

	res := Result{}
	walk(root, l, source, path, "", false, &res)
	res.Imports = extractImports(root, source)
	return res
}

type errSyntaxT struct{ path string }

func (e errSyntaxT) Error() string { return "parser: failed to parse " + e.path }
func errSyntax(path string) error  { return errSyntaxT{path: path} }

// walk recursively visits nodes, emitting a Symbol for each class, each
// method, and each function that is not nested inside another function or
// method (inFunc). enclosingClass threads the nearest class name down so
// methods are qualified "Class.method" without a second pass.
func walk(n *sitter.Node, l *lang.Language, src []byte, path, enclosingClass string, inFunc bool, res *Result) {
	if n == nil {
		return
	}

	switch {
	case l.IsClass(n):
		name := l.DeclName(n, src)
		res.Symbols = append(res.Symbols, symbolFor(name, types.KindClass, n, path))
		for i := 0; i < int(n.ChildCount()); i++ {
			walk(n.Child(i), l, src, path, name, inFunc, res)
		}
		return

	case l.IsMethod(n):
		name := l.DeclName(n, src)
		if enclosingClass != "" && name != "" {
			name = enclosingClass + "." + name
		}
		res.Symbols = append(res.Symbols, symbolFor(name, types.KindMethod, n, path))
		// Methods may nest closures; still descend for nested classes.
		for i := 0; i < int(n.ChildCount()); i++ {
			walk(n.Child(i), l, src, path, enclosingClass, true, res)
		}
		return

	case l.IsFunction(n):
		if !inFunc {
			name := l.DeclName(n, src)
			res.Symbols = append(res.Symbols, symbolFor(name, types.KindFunction, n, path))
		}
		for i := 0; i < int(n.ChildCount()); i++ {
			walk(n.Child(i), l, src, path, enclosingClass, true, res)
		}
		return
	}

	for i := 0; i < int(n.ChildCount()); i++ {
		walk(n.Child(i), l, src, path, enclosingClass, inFunc, res)
	}
}

func symbolFor(name string, kind types.SymbolKind, n *sitter.Node, path string) types.Symbol {
	if name == "" {
		kind = types.KindUnknown
	}
	start := int(leadingCommentStart(n)) + 1
	end := int(n.EndPoint().Row) + 1
	if end < start {
		end = start
	}
	return types.Symbol{
		Name:      name,
		Kind:      kind,
		File:      path,
		StartLine: start,
		EndLine:   end,
	}
}

// leadingCommentStart extends a declaration's start row back across any
// contiguous comment nodes immediately preceding it (JSDoc blocks, line
// comment stacks), so a symbol's range covers its attached documentation
// rather than just the declaration line itself.
func leadingCommentStart(n *sitter.Node) uint32 {
	start := n.StartPoint().Row
	for sib := n.PrevSibling(); sib != nil && sib.Type() == "comment"; sib = sib.PrevSibling() {
		start = sib.StartPoint().Row
	}
	return start
}

// importNodeTypes are the statement-level node types that introduce a
// module specifier string in the JS/TS grammars.
var importNodeTypes = map[string]bool{
	"import_statement": true,
	"export_statement": true,
	"call_expression":  true, // covers require("...") and dynamic import("...")
}

// extractImports does a shallow scan for string literals inside
// import/export/require statements: AST-resolved import/re-export
// specifiers. The regex-based module-graph fallback pass lives in the
// indexer package, which has visibility into the whole file set.
func extractImports(root *sitter.Node, src []byte) []string {
	var specs []string
	var visit func(n *sitter.Node)
	visit = func(n *sitter.Node) {
		if n == nil {
			return
		}
		if importNodeTypes[n.Type()] {
			target := n
			if n.Type() == "call_expression" {
				target = nil
				if fn := n.ChildByFieldName("function"); fn != nil {
					switch lang.NodeText(fn, src) {
					case "require", "import":
						target = n.ChildByFieldName("arguments")
					}
				}
			}
			if target != nil {
				if spec := firstStringLiteral(target, src); spec != "" {
					specs = append(specs, spec)
				}
			}
		}
		for i := 0; i < int(n.ChildCount()); i++ {
			visit(n.Child(i))
		}
	}
	visit(root)
	return specs
}

func firstStringLiteral(n *sitter.Node, src []byte) string {
	for i := 0; i < int(n.ChildCount()); i++ {
		c := n.Child(i)
		if c.Type() == "string" {
			text := lang.NodeText(c, src)
			return strings.Trim(text, `"'`+"`")
		}
	}
	return ""
}
