package rpc

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/guvensoft/codectx-mcp/internal/weights"
	"github.com/guvensoft/codectx-mcp/pkg/types"
)

// toolDescriptor is the shape returned by tools/list.
type toolDescriptor struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// toolHandler is a single tool's implementation, closing over the Server.
type toolHandler func(ctx context.Context, s *Server, args json.RawMessage) (interface{}, error)

// toolOrder fixes the order of tools/list so clients see a stable
// listing; toolTable below maps each name to its handler.
var toolOrder = []string{
	"search_code", "get_file", "list_symbols", "find_refs",
	"plan_refactor", "gen_patch", "apply_patch",
	"analyze_performance", "compare_versions", "auto_docs",
	"run_tests", "run_task",
	"generate_telemetry_panel", "open_telemetry_webview",
	"langchain_query", "summarize_architecture", "detect_smells",
	"suggest_tests", "submit_feedback", "get_weights",
}

var toolDescriptions = map[string]string{
	"search_code":              "hybrid semantic/lexical/graph search over the indexed tree",
	"get_file":                 "fetch an indexed file's content and symbols",
	"list_symbols":             "list symbols, optionally scoped to one file",
	"find_refs":                "find files that import a file containing a matching symbol name",
	"plan_refactor":            "describe a target symbol's local context ahead of a refactor",
	"gen_patch":                "generate a literal find/replace patch for a file",
	"apply_patch":              "apply a previously generated literal find/replace patch",
	"analyze_performance":      "heuristic hot-path signal for a file: size, symbol count, graph degree",
	"compare_versions":         "line-level diff summary between two text blobs",
	"auto_docs":                "generate a doc-comment template for a symbol",
	"run_tests":                "invoke a configured test command and return its combined output",
	"run_task":                 "invoke an arbitrary configured command and return its combined output",
	"generate_telemetry_panel": "render a telemetry panel (not available in this process)",
	"open_telemetry_webview":   "open a telemetry web view (not available in this process)",
	"langchain_query":          "free-text query answered via the same hybrid search pipeline",
	"summarize_architecture":   "file/symbol/edge counts and human-readable totals",
	"detect_smells":            "heuristic smell scan: symbols far longer than the file's median",
	"suggest_tests":            "heuristic: exported symbols with no corresponding test file",
	"submit_feedback":          "nudge the ranking weights up or down",
	"get_weights":              "return the current hybrid ranking weights",
}

var toolTable = map[string]toolHandler{
	"search_code":              toolSearchCode,
	"get_file":                 toolGetFile,
	"list_symbols":             toolListSymbols,
	"find_refs":                toolFindRefs,
	"plan_refactor":            toolPlanRefactor,
	"gen_patch":                toolGenPatch,
	"apply_patch":              toolApplyPatch,
	"analyze_performance":      toolAnalyzePerformance,
	"compare_versions":         toolCompareVersions,
	"auto_docs":                toolAutoDocs,
	"run_tests":                toolRunTests,
	"run_task":                 toolRunTask,
	"generate_telemetry_panel": toolUnavailable,
	"open_telemetry_webview":   toolUnavailable,
	"langchain_query":          toolLangchainQuery,
	"summarize_architecture":   toolSummarizeArchitecture,
	"detect_smells":            toolDetectSmells,
	"suggest_tests":            toolSuggestTests,
	"submit_feedback":          toolSubmitFeedback,
	"get_weights":              toolGetWeights,
}

func (s *Server) registerTools(reg *Registry) {
	reg.Register("tools/list", s.handleToolsList)
	reg.Register("tools/call", s.handleToolsCall)
}

func (s *Server) handleToolsList(ctx context.Context, params json.RawMessage) (interface{}, error) {
	out := make([]toolDescriptor, 0, len(toolOrder))
	for _, name := range toolOrder {
		out = append(out, toolDescriptor{Name: name, Description: toolDescriptions[name]})
	}
	return map[string]interface{}{"tools": out}, nil
}

type toolCallParams struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

func (s *Server) handleToolsCall(ctx context.Context, params json.RawMessage) (interface{}, error) {
	var p toolCallParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, NewError(CodeInvalidParams, "invalid params", nil)
	}
	h, ok := toolTable[p.Name]
	if !ok {
		return nil, NewError(CodeMethodNotFound, fmt.Sprintf("unknown tool: %s", p.Name), nil)
	}
	result, err := h(ctx, s, p.Arguments)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{"content": result}, nil
}

// --- search / file / symbol / reference tools -----------------------------

type searchCodeArgs struct {
	Query string `json:"query"`
	TopK  int    `json:"topK"`
}

func toolSearchCode(ctx context.Context, s *Server, args json.RawMessage) (interface{}, error) {
	var a searchCodeArgs
	_ = json.Unmarshal(args, &a)
	results, profile, err := s.Orchestrator.Search(ctx, a.Query, a.TopK)
	if err != nil {
		return nil, NewError(CodeInternal, err.Error(), nil)
	}
	return map[string]interface{}{"results": results, "profile": profile}, nil
}

type getFileArgs struct {
	Path string `json:"path"`
}

func toolGetFile(ctx context.Context, s *Server, args json.RawMessage) (interface{}, error) {
	var a getFileArgs
	_ = json.Unmarshal(args, &a)
	f, err := s.Orchestrator.GetFile(a.Path)
	if err != nil {
		return nil, NewError(CodeReadFailure, err.Error(), map[string]string{"path": a.Path})
	}
	return f, nil
}

type listSymbolsArgs struct {
	File string `json:"file"`
}

func toolListSymbols(ctx context.Context, s *Server, args json.RawMessage) (interface{}, error) {
	var a listSymbolsArgs
	_ = json.Unmarshal(args, &a)
	syms, err := s.Store.ListSymbols(ctx, a.File)
	if err != nil {
		return nil, NewError(CodeInternal, err.Error(), nil)
	}
	if syms == nil {
		syms = []types.Symbol{}
	}
	return map[string]interface{}{"symbols": syms}, nil
}

type findRefsArgs struct {
	Symbol string `json:"symbol"`
}

func toolFindRefs(ctx context.Context, s *Server, args json.RawMessage) (interface{}, error) {
	var a findRefsArgs
	_ = json.Unmarshal(args, &a)
	refs, err := s.Store.FindRefs(ctx, a.Symbol)
	if err != nil {
		return nil, NewError(CodeInternal, err.Error(), nil)
	}
	if refs == nil {
		refs = []string{}
	}
	return map[string]interface{}{"files": refs}, nil
}

// --- refactor / patch helpers: literal find/replace only, no AST-based ---
// --- refactor engine --------------------------------------------------

type planRefactorArgs struct {
	File   string `json:"file"`
	Symbol string `json:"symbol"`
}

func toolPlanRefactor(ctx context.Context, s *Server, args json.RawMessage) (interface{}, error) {
	var a planRefactorArgs
	_ = json.Unmarshal(args, &a)

	syms, _ := s.Store.ListSymbols(ctx, a.File)
	imports, _ := s.Store.ListImports(ctx, a.File)
	dependents, _ := s.Store.ListDependents(ctx, a.File)
	var refs []string
	if a.Symbol != "" {
		refs, _ = s.Store.FindRefs(ctx, a.Symbol)
	}

	return map[string]interface{}{
		"file":       a.File,
		"symbol":     a.Symbol,
		"symbols":    syms,
		"imports":    nonNil(imports),
		"dependents": nonNil(dependents),
		"references": nonNil(refs),
	}, nil
}

type genPatchArgs struct {
	File    string `json:"file"`
	Find    string `json:"find"`
	Replace string `json:"replace"`
}

func toolGenPatch(ctx context.Context, s *Server, args json.RawMessage) (interface{}, error) {
	var a genPatchArgs
	_ = json.Unmarshal(args, &a)

	allowed, err := s.Filter.AllowRead(a.File)
	if err != nil || !allowed {
		return nil, NewError(CodePolicyDenied, "path denied by policy", map[string]string{"path": a.File})
	}
	data, err := os.ReadFile(a.File)
	if err != nil {
		return nil, NewError(CodeReadFailure, err.Error(), map[string]string{"path": a.File})
	}
	occurrences := strings.Count(string(data), a.Find)
	return map[string]interface{}{
		"file":        a.File,
		"find":        a.Find,
		"replace":     a.Replace,
		"occurrences": occurrences,
	}, nil
}

type applyPatchArgs struct {
	File    string `json:"file"`
	Find    string `json:"find"`
	Replace string `json:"replace"`
}

func toolApplyPatch(ctx context.Context, s *Server, args json.RawMessage) (interface{}, error) {
	var a applyPatchArgs
	_ = json.Unmarshal(args, &a)

	allowed, err := s.Filter.AllowRead(a.File)
	if err != nil || !allowed {
		return nil, NewError(CodePolicyDenied, "path denied by policy", map[string]string{"path": a.File})
	}
	data, err := os.ReadFile(a.File)
	if err != nil {
		return nil, NewError(CodeReadFailure, err.Error(), map[string]string{"path": a.File})
	}
	original := string(data)
	if a.Find == "" || !strings.Contains(original, a.Find) {
		return map[string]interface{}{"applied": false}, nil
	}
	patched := strings.ReplaceAll(original, a.Find, a.Replace)
	if err := os.WriteFile(a.File, []byte(patched), 0o644); err != nil {
		return nil, NewError(CodeReadFailure, err.Error(), map[string]string{"path": a.File})
	}
	return map[string]interface{}{"applied": true}, nil
}

// --- analysis tools ---------------------------------------------------------

type analyzePerformanceArgs struct {
	File string `json:"file"`
}

func toolAnalyzePerformance(ctx context.Context, s *Server, args json.RawMessage) (interface{}, error) {
	var a analyzePerformanceArgs
	_ = json.Unmarshal(args, &a)

	syms, _ := s.Store.ListSymbols(ctx, a.File)
	degree, _ := s.Store.Degree(ctx, a.File)
	return map[string]interface{}{
		"file":        a.File,
		"symbolCount": len(syms),
		"graphDegree": degree,
		"note":        "heuristic signal only; no profiling data is collected",
	}, nil
}

type compareVersionsArgs struct {
	TextA string `json:"textA"`
	TextB string `json:"textB"`
}

func toolCompareVersions(ctx context.Context, s *Server, args json.RawMessage) (interface{}, error) {
	var a compareVersionsArgs
	_ = json.Unmarshal(args, &a)

	linesA := strings.Split(a.TextA, "\n")
	linesB := strings.Split(a.TextB, "\n")
	setA := make(map[string]int, len(linesA))
	for _, l := range linesA {
		setA[l]++
	}
	setB := make(map[string]int, len(linesB))
	for _, l := range linesB {
		setB[l]++
	}
	added, removed := 0, 0
	for l, n := range setB {
		if setA[l] < n {
			added += n - setA[l]
		}
	}
	for l, n := range setA {
		if setB[l] < n {
			removed += n - setB[l]
		}
	}
	return map[string]interface{}{
		"linesA":  len(linesA),
		"linesB":  len(linesB),
		"added":   added,
		"removed": removed,
	}, nil
}

type autoDocsArgs struct {
	Symbol string `json:"symbol"`
	Kind   string `json:"kind"`
}

func toolAutoDocs(ctx context.Context, s *Server, args json.RawMessage) (interface{}, error) {
	var a autoDocsArgs
	_ = json.Unmarshal(args, &a)
	if a.Symbol == "" {
		return nil, NewError(CodeInvalidParams, "symbol is required", nil)
	}
	template := fmt.Sprintf("/**\n * %s\n */", a.Symbol)
	return map[string]interface{}{"symbol": a.Symbol, "doc": template}, nil
}

type runCommandArgs struct {
	Command []string `json:"command"`
}

func toolRunTests(ctx context.Context, s *Server, args json.RawMessage) (interface{}, error) {
	return runConfiguredCommand(ctx, s, args)
}

func toolRunTask(ctx context.Context, s *Server, args json.RawMessage) (interface{}, error) {
	return runConfiguredCommand(ctx, s, args)
}

func runConfiguredCommand(ctx context.Context, s *Server, args json.RawMessage) (interface{}, error) {
	var a runCommandArgs
	_ = json.Unmarshal(args, &a)
	if len(a.Command) == 0 {
		return nil, NewError(CodeInvalidParams, "command is required", nil)
	}
	out, err := s.RunCommand(ctx, a.Command[0], a.Command[1:]...)
	result := map[string]interface{}{"output": string(out)}
	if err != nil {
		result["error"] = err.Error()
	}
	return result, nil
}

func toolUnavailable(ctx context.Context, s *Server, args json.RawMessage) (interface{}, error) {
	return map[string]interface{}{"available": false, "reason": "not available in this process"}, nil
}

type langchainQueryArgs struct {
	Query string `json:"query"`
	TopK  int    `json:"topK"`
}

// toolLangchainQuery is a thin adapter over the same hybrid search
// pipeline, exposed under a name that matches the LangChain tool-calling
// convention some clients expect; it does not depend on LangChain itself.
func toolLangchainQuery(ctx context.Context, s *Server, args json.RawMessage) (interface{}, error) {
	var a langchainQueryArgs
	_ = json.Unmarshal(args, &a)
	results, profile, err := s.Orchestrator.Search(ctx, a.Query, a.TopK)
	if err != nil {
		return nil, NewError(CodeInternal, err.Error(), nil)
	}
	return map[string]interface{}{"results": results, "profile": profile}, nil
}

func toolSummarizeArchitecture(ctx context.Context, s *Server, args json.RawMessage) (interface{}, error) {
	files, err := s.Store.CountFiles(ctx)
	if err != nil {
		return nil, NewError(CodeInternal, err.Error(), nil)
	}
	symbols, err := s.Store.CountSymbols(ctx)
	if err != nil {
		return nil, NewError(CodeInternal, err.Error(), nil)
	}
	edges, err := s.Store.CountEdges(ctx)
	if err != nil {
		return nil, NewError(CodeInternal, err.Error(), nil)
	}
	return map[string]interface{}{
		"files":        files,
		"symbols":      symbols,
		"edges":        edges,
		"filesHuman":   humanize.Comma(int64(files)),
		"symbolsHuman": humanize.Comma(int64(symbols)),
		"edgesHuman":   humanize.Comma(int64(edges)),
	}, nil
}

// smellLongFunctionFactor is how many times over the median symbol length a
// symbol must be to count as a smell.
const smellLongFunctionFactor = 3

func toolDetectSmells(ctx context.Context, s *Server, args json.RawMessage) (interface{}, error) {
	syms, err := s.Store.ListSymbols(ctx, "")
	if err != nil {
		return nil, NewError(CodeInternal, err.Error(), nil)
	}
	if len(syms) == 0 {
		return map[string]interface{}{"smells": []interface{}{}}, nil
	}

	lengths := make([]int, len(syms))
	for i, sym := range syms {
		lengths[i] = sym.EndLine - sym.StartLine + 1
	}
	sorted := append([]int{}, lengths...)
	sort.Ints(sorted)
	median := sorted[len(sorted)/2]
	if median < 1 {
		median = 1
	}

	var smells []map[string]interface{}
	for i, sym := range syms {
		if lengths[i] > median*smellLongFunctionFactor {
			smells = append(smells, map[string]interface{}{
				"file":   sym.File,
				"symbol": sym.Name,
				"lines":  lengths[i],
				"reason": "far longer than the median symbol length",
			})
		}
	}
	if smells == nil {
		smells = []map[string]interface{}{}
	}
	return map[string]interface{}{"smells": smells, "medianLines": median}, nil
}

func toolSuggestTests(ctx context.Context, s *Server, args json.RawMessage) (interface{}, error) {
	syms, err := s.Store.ListSymbols(ctx, "")
	if err != nil {
		return nil, NewError(CodeInternal, err.Error(), nil)
	}
	testedFiles := make(map[string]bool)
	for _, path := range s.Orchestrator.Files() {
		if looksLikeTestFile(path) {
			testedFiles[strings.TrimSuffix(path, testSuffix(path))] = true
		}
	}

	var suggestions []map[string]interface{}
	for _, sym := range syms {
		if looksLikeTestFile(sym.File) {
			continue
		}
		if !testedFiles[strings.TrimSuffix(sym.File, fileExt(sym.File))] {
			suggestions = append(suggestions, map[string]interface{}{
				"file":   sym.File,
				"symbol": sym.Name,
				"reason": "no sibling test file found",
			})
		}
	}
	if suggestions == nil {
		suggestions = []map[string]interface{}{}
	}
	return map[string]interface{}{"suggestions": suggestions}, nil
}

func looksLikeTestFile(path string) bool {
	base := strings.ToLower(path)
	return strings.Contains(base, ".test.") || strings.Contains(base, ".spec.")
}

func testSuffix(path string) string {
	if i := strings.Index(strings.ToLower(path), ".test."); i >= 0 {
		return path[i:]
	}
	if i := strings.Index(strings.ToLower(path), ".spec."); i >= 0 {
		return path[i:]
	}
	return fileExt(path)
}

func fileExt(path string) string {
	if i := strings.LastIndex(path, "."); i >= 0 {
		return path[i:]
	}
	return ""
}

// --- weight feedback ---------------------------------------------------------

type submitFeedbackArgs struct {
	Direction string `json:"direction"`
}

func toolSubmitFeedback(ctx context.Context, s *Server, args json.RawMessage) (interface{}, error) {
	var a submitFeedbackArgs
	_ = json.Unmarshal(args, &a)
	var dir weights.Feedback
	switch a.Direction {
	case "up":
		dir = weights.FeedbackUp
	case "down":
		dir = weights.FeedbackDown
	default:
		return nil, NewError(CodeInvalidParams, "direction must be up or down", nil)
	}
	w, err := s.Weights.Feedback(dir)
	if err != nil {
		return nil, NewError(CodeInternal, err.Error(), nil)
	}
	return w, nil
}

func toolGetWeights(ctx context.Context, s *Server, args json.RawMessage) (interface{}, error) {
	return s.Weights.Current(), nil
}

func nonNil(ss []string) []string {
	if ss == nil {
		return []string{}
	}
	return ss
}
