// Package profiler implements the context profiler: classify a free-text
// query into an intent by ordered regex patterns, then derive a token
// budget and effective top-K from that intent's preset.
package profiler

import (
	"regexp"

	"github.com/guvensoft/codectx-mcp/pkg/types"
)

// preset is the per-intent {tokenBudget, topK, note} triple.
type preset struct {
	Intent      string
	TokenBudget int
	TopK        int
	Note        string
}

// rule pairs an intent's preset with the regex that selects it; the first
// matching rule wins.
type rule struct {
	pattern *regexp.Regexp
	preset  preset
}

var rules = []rule{
	{regexp.MustCompile(`(?i)\b(refactor|rename|extract|restructure)\b`),
		preset{"refactor", 1200, 8, "prioritizing structural context for a refactor"}},
	{regexp.MustCompile(`(?i)\b(test|spec|coverage|unit test)\b`),
		preset{"test", 900, 6, "prioritizing existing tests and the code under test"}},
	{regexp.MustCompile(`(?i)\b(performance|perf|slow|latency|optimi[sz]e|bottleneck)\b`),
		preset{"performance", 1000, 6, "prioritizing hot paths and call sites"}},
	{regexp.MustCompile(`(?i)\b(docs?|documentation|comment|readme)\b`),
		preset{"docs", 700, 5, "prioritizing public API surface"}},
	{regexp.MustCompile(`(?i)\b(dataflow|data flow|pipeline|trace|upstream|downstream)\b`),
		preset{"dataflow", 1100, 7, "prioritizing dependency-graph signals"}},
}

var generalPreset = preset{"general", 600, 5, "general-purpose retrieval"}

// Profile classifies query and derives the ContextProfile. requestedTopK
// of 0 defers entirely to the intent's preset topK.
func Profile(query string, requestedTopK int) types.ContextProfile {
	p := generalPreset
	for _, r := range rules {
		if r.pattern.MatchString(query) {
			p = r.preset
			break
		}
	}

	effective := p.TopK
	if requestedTopK > 0 {
		effective = requestedTopK
		if effective > p.TopK {
			effective = p.TopK
		}
	}
	effective = clamp(effective, 1, p.TopK)

	return types.ContextProfile{
		Intent:        p.Intent,
		TokenBudget:   p.TokenBudget,
		RequestedTopK: requestedTopK,
		EffectiveTopK: effective,
		Notes:         []string{p.Note},
	}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
