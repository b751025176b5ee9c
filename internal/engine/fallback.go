package engine

import (
	"encoding/json"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/guvensoft/codectx-mcp/internal/textutil"
	"github.com/guvensoft/codectx-mcp/pkg/types"
)

// FallbackEngine implements the same GET /search + GET /health contract as
// the external semantic engine, scoring candidates by token-frequency
// overlap with the query over the snippet manifest's SemanticEntry text.
// It is mounted as an http.Handler so the orchestrator never has to
// branch on which engine is live — only the base URL differs.
type FallbackEngine struct {
	source func() []types.SemanticEntry
}

// NewFallbackEngine builds a FallbackEngine backed by source, called fresh
// on every request so it always reflects the latest indexing pass.
func NewFallbackEngine(source func() []types.SemanticEntry) *FallbackEngine {
	return &FallbackEngine{source: source}
}

// ServeHTTP dispatches /search and /health; anything else is 404.
func (f *FallbackEngine) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/search":
		f.handleSearch(w, r)
	case "/health":
		w.WriteHeader(http.StatusOK)
	default:
		http.NotFound(w, r)
	}
}

func (f *FallbackEngine) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query, _ := url.QueryUnescape(q.Get("q"))
	topK, err := strconv.Atoi(q.Get("top_k"))
	if err != nil || topK <= 0 {
		topK = 10
	}

	queryTokens := textutil.TokenizeWords(query)
	entries := f.source()

	results := make([]types.Candidate, 0, len(entries))
	for _, e := range entries {
		score := tokenFrequencyScore(queryTokens, e.Text)
		if score <= 0 {
			continue
		}
		results = append(results, types.Candidate{
			File:      e.File,
			Symbol:    e.Symbol,
			StartLine: e.StartLine,
			EndLine:   e.EndLine,
			Score:     score,
			Snippet:   e.Text,
		})
	}

	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if len(results) > topK {
		results = results[:topK]
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(searchResponse{Query: query, Results: results})
}

// tokenFrequencyScore returns the share of queryTokens that occur as a
// substring of text's lower-cased form, clamped to [0,1]. Substring
// matching, not exact-token equality, so a query token like "order"
// matches inside a longer identifier token such as "createOrder".
func tokenFrequencyScore(queryTokens []string, text string) float64 {
	if len(queryTokens) == 0 {
		return 0
	}
	lower := strings.ToLower(text)
	hits := 0
	for _, qt := range queryTokens {
		if strings.Contains(lower, qt) {
			hits++
		}
	}
	return float64(hits) / float64(len(queryTokens))
}
