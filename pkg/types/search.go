package types

// Candidate is a search result returned by the semantic engine before
// ranking — the shape shared by both the real engine's HTTP contract and
// the in-process fallback.
type Candidate struct {
	File      string  `json:"file"`
	Symbol    string  `json:"symbol"`
	StartLine int     `json:"startLine"`
	EndLine   int     `json:"endLine"`
	Score     float64 `json:"score"`
	Snippet   string  `json:"snippet"`
}

// Signals holds the per-candidate signal values computed by the ranker
// before they are combined with Weights into a composite score.
type Signals struct {
	Semantic float64
	Lexical  float64
	Graph    float64
	Reranker float64
}

// RankedResult is a Candidate annotated with its computed signals and
// composite score, ready for packing.
type RankedResult struct {
	Candidate
	Signals Signals
	Score   float64
}

// SearchResult is the final, packed result returned to an RPC client.
type SearchResult struct {
	File      string  `json:"file"`
	Symbol    string  `json:"symbol"`
	StartLine int     `json:"startLine"`
	EndLine   int     `json:"endLine"`
	Score     float64 `json:"score"`
	Snippet   string  `json:"snippet"`
}
