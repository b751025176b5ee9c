package ranker

import (
	"strings"

	"github.com/guvensoft/codectx-mcp/internal/textutil"
	"github.com/guvensoft/codectx-mcp/pkg/types"
)

// TokenCost estimates the token cost of s the same way the chunker does:
// max(1, ceil(len/charsPerToken)).
func TokenCost(s string) int {
	n := (len(s) + textutil.CharsPerToken - 1) / textutil.CharsPerToken
	if n < 1 {
		n = 1
	}
	return n
}

func toSearchResult(r types.RankedResult) types.SearchResult {
	return types.SearchResult{
		File: r.Candidate.File, Symbol: r.Candidate.Symbol,
		StartLine: r.Candidate.StartLine, EndLine: r.Candidate.EndLine,
		Score: r.Score, Snippet: r.Candidate.Snippet,
	}
}

// fallbackSlice guarantees packing never produces empty output: when at
// least one ranked result exists and effectiveTopK >= 1, the packer falls
// back to the first effectiveTopK ranked results as-is.
func fallbackSlice(ranked []types.RankedResult, effectiveTopK int) []types.SearchResult {
	if len(ranked) == 0 || effectiveTopK < 1 {
		return nil
	}
	n := effectiveTopK
	if n > len(ranked) {
		n = len(ranked)
	}
	out := make([]types.SearchResult, 0, n)
	for _, r := range ranked[:n] {
		out = append(out, toSearchResult(r))
	}
	return out
}

// PackGreedy implements the default packing strategy: select in rank order,
// skipping files already represented, until the budget is exhausted; then
// fill any remaining budget ignoring the one-per-file rule.
func PackGreedy(ranked []types.RankedResult, budget, effectiveTopK int) []types.SearchResult {
	if len(ranked) == 0 || effectiveTopK < 1 {
		return nil
	}

	var out []types.SearchResult
	used := make(map[int]bool, len(ranked))
	seenFiles := make(map[string]bool, len(ranked))
	remaining := budget

	for i, r := range ranked {
		if len(out) >= effectiveTopK {
			break
		}
		if seenFiles[r.Candidate.File] {
			continue
		}
		cost := TokenCost(r.Candidate.Snippet)
		if cost > remaining {
			continue
		}
		out = append(out, toSearchResult(r))
		used[i] = true
		seenFiles[r.Candidate.File] = true
		remaining -= cost
	}

	for i, r := range ranked {
		if len(out) >= effectiveTopK {
			break
		}
		if used[i] {
			continue
		}
		cost := TokenCost(r.Candidate.Snippet)
		if cost > remaining {
			continue
		}
		out = append(out, toSearchResult(r))
		used[i] = true
		remaining -= cost
	}

	if len(out) == 0 {
		return fallbackSlice(ranked, effectiveTopK)
	}
	return out
}

// PackMMR implements maximal-marginal-relevance packing: iteratively pick
// the candidate maximizing
// lambda*score - (1-lambda)*max(jaccard(snippet, chosen)), skipping
// candidates whose token cost exceeds the remaining budget.
func PackMMR(ranked []types.RankedResult, budget, effectiveTopK int, lambda float64) []types.SearchResult {
	if len(ranked) == 0 || effectiveTopK < 1 {
		return nil
	}

	tokenSets := make([]map[string]bool, len(ranked))
	for i, r := range ranked {
		tokenSets[i] = wordSet(r.Candidate.Snippet)
	}

	chosen := make([]int, 0, effectiveTopK)
	used := make(map[int]bool, len(ranked))
	remaining := budget

	for len(chosen) < effectiveTopK {
		bestIdx := -1
		bestVal := 0.0
		for i, r := range ranked {
			if used[i] {
				continue
			}
			cost := TokenCost(r.Candidate.Snippet)
			if cost > remaining {
				continue
			}
			maxSim := 0.0
			for _, c := range chosen {
				sim := jaccard(tokenSets[i], tokenSets[c])
				if sim > maxSim {
					maxSim = sim
				}
			}
			val := lambda*r.Score - (1-lambda)*maxSim
			if bestIdx == -1 || val > bestVal {
				bestIdx, bestVal = i, val
			}
		}
		if bestIdx == -1 {
			break // no candidate fits remaining budget
		}
		chosen = append(chosen, bestIdx)
		used[bestIdx] = true
		remaining -= TokenCost(ranked[bestIdx].Candidate.Snippet)
	}

	if len(chosen) == 0 {
		return fallbackSlice(ranked, effectiveTopK)
	}
	out := make([]types.SearchResult, 0, len(chosen))
	for _, i := range chosen {
		out = append(out, toSearchResult(ranked[i]))
	}
	return out
}

func wordSet(s string) map[string]bool {
	set := make(map[string]bool)
	for _, t := range textutil.TokenizeWords(strings.ToLower(s)) {
		set[t] = true
	}
	return set
}

func jaccard(a, b map[string]bool) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	inter := 0
	for t := range a {
		if b[t] {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}
