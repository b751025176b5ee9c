package ranker

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/guvensoft/codectx-mcp/pkg/types"
)

type fakeGraph struct{ degree map[string]int }

func (g fakeGraph) Degree(_ context.Context, file string) (int, error) { return g.degree[file], nil }

// TestHybridRankingTieBreak checks the composite score on a near tie: B's
// higher graph degree narrows the gap to 0.71 vs 0.70, but A, which also
// has the higher semantic score, stays first.
func TestHybridRankingTieBreak(t *testing.T) {
	candidates := []types.Candidate{
		{File: "a", Score: 0.6, Snippet: "alpha beta"},
		{File: "b", Score: 0.5, Snippet: "beta gamma"},
	}
	weights := types.Weights{Semantic: 0.6, Lexical: 0.3, Graph: 0.1, Reranker: 0}
	graph := fakeGraph{degree: map[string]int{"a": 1, "b": 2}}

	ranked := Rank(context.Background(), "beta", candidates, weights, graph, nil)
	require.Len(t, ranked, 2)
	require.Equal(t, "a", ranked[0].Candidate.File)
	require.InDelta(t, 0.71, ranked[0].Score, 1e-9)
	require.InDelta(t, 0.70, ranked[1].Score, 1e-9)
}

// TestRankingMonotonicWithSemanticOnlyWeights checks that ranking is
// monotonic in the active signal: semantic-only weights order candidates
// by raw semantic score, and lexical-only weights order them by substring
// hit count instead.
func TestRankingMonotonicWithSemanticOnlyWeights(t *testing.T) {
	candidates := []types.Candidate{
		{File: "a", Score: 0.9, Snippet: "nothing relevant here"},
		{File: "b", Score: 0.4, Snippet: "nothing relevant here"},
		{File: "c", Score: 0.6, Snippet: "nothing relevant here"},
	}

	semanticOnly := types.Weights{Semantic: 1, Lexical: 0, Graph: 0, Reranker: 0}
	ranked := Rank(context.Background(), "q", candidates, semanticOnly, nil, nil)
	require.Equal(t, []string{"a", "c", "b"}, filesOf(ranked))

	lexicalOnly := types.Weights{Semantic: 0, Lexical: 1, Graph: 0, Reranker: 0}
	candidates2 := []types.Candidate{
		{File: "hit", Score: 0.1, Snippet: "foo bar baz"},
		{File: "miss", Score: 0.9, Snippet: "totally unrelated text"},
	}
	ranked2 := Rank(context.Background(), "foo bar baz", candidates2, lexicalOnly, nil, nil)
	require.Equal(t, "hit", ranked2[0].Candidate.File)
}

func filesOf(ranked []types.RankedResult) []string {
	out := make([]string, len(ranked))
	for i, r := range ranked {
		out[i] = r.Candidate.File
	}
	return out
}

// TestMMRDiversityAcrossFiles checks that the second MMR pick shares no
// file with the first whenever a viable cross-file candidate fits.
func TestMMRDiversityAcrossFiles(t *testing.T) {
	candidates := []types.Candidate{
		{File: "a", Score: 0.9, Snippet: "same same same text", StartLine: 1},
		{File: "a", Score: 0.88, Snippet: "same same same text", StartLine: 20},
		{File: "b", Score: 0.5, Snippet: "totally different content", StartLine: 1},
	}
	ranked := Rank(context.Background(), "same", candidates, types.DefaultWeights(), nil, nil)
	packed := PackMMR(ranked, 1000, 2, 0.5)
	require.Len(t, packed, 2)
	require.NotEqual(t, packed[0].File, "")
	files := map[string]bool{packed[0].File: true, packed[1].File: true}
	require.Len(t, files, 2)
}

func TestPackGreedyNeverEmptyWhenRankedNonEmpty(t *testing.T) {
	candidates := []types.Candidate{{File: "a", Score: 0.5, Snippet: "x"}}
	ranked := Rank(context.Background(), "q", candidates, types.DefaultWeights(), nil, nil)
	packed := PackGreedy(ranked, 0, 1)
	require.Len(t, packed, 1)
}
