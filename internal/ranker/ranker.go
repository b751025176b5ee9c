package ranker

import (
	"context"
	"sort"
	"strings"

	"github.com/guvensoft/codectx-mcp/internal/textutil"
	"github.com/guvensoft/codectx-mcp/pkg/types"
)

// GraphSource is the subset of the graph store (C2) the ranker needs for
// the graph signal: per-file degree.
type GraphSource interface {
	Degree(ctx context.Context, file string) (int, error)
}

// Rank computes per-candidate signals and a composite score for each
// candidate, returning results sorted descending by score.
// graph may be nil, in which case every graph signal is 0. rerankScores
// maps a candidate's snippet text to an externally supplied score; a
// candidate missing from the map falls back to its semantic signal.
func Rank(ctx context.Context, query string, candidates []types.Candidate, weights types.Weights, graph GraphSource, rerankScores map[string]float64) []types.RankedResult {
	queryTokens := textutil.TokenizeWords(query)

	degrees := make(map[string]int, len(candidates))
	maxDegree := 1
	if graph != nil {
		for _, c := range candidates {
			if _, ok := degrees[c.File]; ok {
				continue
			}
			d, err := graph.Degree(ctx, c.File)
			if err != nil {
				d = 0
			}
			degrees[c.File] = d
			if d > maxDegree {
				maxDegree = d
			}
		}
	}

	out := make([]types.RankedResult, 0, len(candidates))
	for _, c := range candidates {
		semantic := clamp01(c.Score)
		lexical := lexicalSignal(queryTokens, c.Snippet)
		graphSig := 0.0
		if graph != nil {
			graphSig = float64(degrees[c.File]) / float64(maxDegree)
		}
		rerankSig := semantic
		if v, ok := rerankScores[c.Snippet]; ok {
			rerankSig = clamp01(v)
		}

		sig := types.Signals{Semantic: semantic, Lexical: lexical, Graph: graphSig, Reranker: rerankSig}
		score := weights.Semantic*sig.Semantic + weights.Lexical*sig.Lexical +
			weights.Graph*sig.Graph + weights.Reranker*sig.Reranker

		out = append(out, types.RankedResult{Candidate: c, Signals: sig, Score: score})
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		if out[i].Signals.Semantic != out[j].Signals.Semantic {
			return out[i].Signals.Semantic > out[j].Signals.Semantic
		}
		if out[i].Candidate.File != out[j].Candidate.File {
			return out[i].Candidate.File < out[j].Candidate.File
		}
		return out[i].Candidate.StartLine < out[j].Candidate.StartLine
	})
	return out
}

// lexicalSignal is the share of query terms present as substrings of the
// lower-cased snippet; 0 when the query has no tokens.
func lexicalSignal(queryTokens []string, snippet string) float64 {
	if len(queryTokens) == 0 {
		return 0
	}
	lower := strings.ToLower(snippet)
	hits := 0
	for _, t := range queryTokens {
		if strings.Contains(lower, t) {
			hits++
		}
	}
	return float64(hits) / float64(len(queryTokens))
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
