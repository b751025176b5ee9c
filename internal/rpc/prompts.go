package rpc

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/guvensoft/codectx-mcp/pkg/types"
)

// filePreviewLines is the cap on how many leading lines of a target file a
// prompt includes.
const filePreviewLines = 40

type promptDescriptor struct {
	Name string `json:"name"`
}

var promptIntents = []string{"refactor", "test", "perf"}

func (s *Server) registerPrompts(reg *Registry) {
	reg.Register("prompts/list", s.handlePromptsList)
	reg.Register("prompts/call", s.handlePromptsCall)
}

func (s *Server) handlePromptsList(ctx context.Context, params json.RawMessage) (interface{}, error) {
	out := make([]promptDescriptor, 0, len(promptIntents))
	for _, name := range promptIntents {
		out = append(out, promptDescriptor{Name: name})
	}
	return map[string]interface{}{"prompts": out}, nil
}

type promptCallParams struct {
	Name      string `json:"name"`
	Arguments struct {
		File string `json:"file"`
	} `json:"arguments"`
}

func (s *Server) handlePromptsCall(ctx context.Context, params json.RawMessage) (interface{}, error) {
	var p promptCallParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, NewError(CodeInvalidParams, "invalid params", nil)
	}
	if !isPromptIntent(p.Name) {
		return nil, NewError(CodeMethodNotFound, fmt.Sprintf("unknown prompt: %s", p.Name), nil)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Intent: %s\nTarget: %s\n\n", p.Name, p.Arguments.File)

	if p.Arguments.File != "" {
		writePreview(&b, s.Filter, p.Arguments.File)

		syms, _ := s.Store.ListSymbols(ctx, p.Arguments.File)
		writeSymbols(&b, syms)

		imports, _ := s.Store.ListImports(ctx, p.Arguments.File)
		writeStringList(&b, "Imports", imports)

		dependents, _ := s.Store.ListDependents(ctx, p.Arguments.File)
		writeStringList(&b, "Dependents", dependents)

		if len(syms) > 0 {
			refs, _ := s.Store.FindRefs(ctx, syms[0].Name)
			writeStringList(&b, "References", refs)
		}
	}

	return map[string]interface{}{
		"messages": []map[string]interface{}{
			{"role": "user", "content": b.String()},
		},
	}, nil
}

func isPromptIntent(name string) bool {
	for _, n := range promptIntents {
		if n == name {
			return true
		}
	}
	return false
}

func writePreview(b *strings.Builder, filter interface {
	AllowRead(string) (bool, error)
}, path string) {
	allowed, err := filter.AllowRead(path)
	if err != nil || !allowed {
		fmt.Fprintf(b, "Preview: (unavailable)\n\n")
		return
	}
	f, err := os.Open(path)
	if err != nil {
		fmt.Fprintf(b, "Preview: (unavailable)\n\n")
		return
	}
	defer func() { _ = f.Close() }()

	b.WriteString("Preview:\n")
	scanner := bufio.NewScanner(f)
	n := 0
	for scanner.Scan() && n < filePreviewLines {
		b.WriteString(scanner.Text())
		b.WriteString("\n")
		n++
	}
	b.WriteString("\n")
}

func writeSymbols(b *strings.Builder, syms []types.Symbol) {
	fmt.Fprintf(b, "Symbols (%d):\n", len(syms))
	for _, s := range syms {
		fmt.Fprintf(b, "  - %s (%s) lines %d-%d\n", s.Name, s.Kind, s.StartLine, s.EndLine)
	}
	b.WriteString("\n")
}

func writeStringList(b *strings.Builder, label string, items []string) {
	fmt.Fprintf(b, "%s (%d):\n", label, len(items))
	for _, it := range items {
		fmt.Fprintf(b, "  - %s\n", it)
	}
	b.WriteString("\n")
}
