package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/guvensoft/codectx-mcp/pkg/types"
)

// RequestTimeout bounds every call to the semantic engine.
const RequestTimeout = 5 * time.Second

// HealthProbeInterval and HealthProbeBudget implement a 40-probes ×
// 500ms = 20s startup health budget: how long to wait for a launched
// engine process to report healthy before giving up on it.
const (
	HealthProbeInterval = 500 * time.Millisecond
	HealthProbeBudget   = 20 * time.Second
)

// searchResponse is the wire shape of GET /search.
type searchResponse struct {
	Query   string            `json:"query"`
	Results []types.Candidate `json:"results"`
}

// Client is an HTTP client for the semantic engine's /search and /health
// contract, plus the optional reranker endpoint. It is used identically
// whether it is pointed at the real out-of-process engine or the
// in-process FallbackEngine's local HTTP server.
type Client struct {
	baseURL    string
	rerankURL  string
	httpClient *http.Client
}

// NewClient builds a Client against baseURL. rerankURL may be empty to
// disable reranking.
func NewClient(baseURL, rerankURL string) *Client {
	return &Client{
		baseURL:   baseURL,
		rerankURL: rerankURL,
		httpClient: &http.Client{
			Timeout: RequestTimeout,
		},
	}
}

// Search issues GET /search?q=&top_k=. A failed request never propagates
// as an error to the orchestrator: it returns an empty candidate set, so
// an engine outage degrades search quality rather than crashing the RPC.
func (c *Client) Search(ctx context.Context, query string, topK int) []types.Candidate {
	u := c.baseURL + "/search?q=" + url.QueryEscape(query) + "&top_k=" + strconv.Itoa(topK)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil
	}
	var out searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil
	}
	for i := range out.Results {
		out.Results[i].Score = clamp01(out.Results[i].Score)
	}
	return out.Results
}

// Health issues GET /health and reports whether it returned 2xx.
func (c *Client) Health(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return false
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer func() { _ = resp.Body.Close() }()
	return resp.StatusCode >= 200 && resp.StatusCode < 300
}

type rerankCandidate struct {
	Text     string                 `json:"text"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

type rerankRequest struct {
	Query      string             `json:"query"`
	TopK       int                `json:"top_k"`
	Candidates []rerankCandidate  `json:"candidates"`
}

type rerankResult struct {
	Text     string                 `json:"text"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
	Score    float64                `json:"score"`
}

type rerankResponse struct {
	Results []rerankResult `json:"results"`
}

// RerankEnabled reports whether a reranker endpoint is configured.
func (c *Client) RerankEnabled() bool { return c.rerankURL != "" }

// Rerank posts candidates to the reranker endpoint and returns a score per
// input candidate's snippet text, matched by first occurrence. Reranker
// failures are swallowed: the returned map is simply incomplete, and
// callers fall back to the semantic signal for any candidate missing
// from it.
func (c *Client) Rerank(ctx context.Context, query string, topK int, candidates []types.Candidate) map[string]float64 {
	if !c.RerankEnabled() || len(candidates) == 0 {
		return nil
	}
	reqBody := rerankRequest{Query: query, TopK: topK}
	for _, cand := range candidates {
		reqBody.Candidates = append(reqBody.Candidates, rerankCandidate{Text: cand.Snippet})
	}
	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.rerankURL, bytes.NewReader(body))
	if err != nil {
		return nil
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil
	}
	var out rerankResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil
	}
	scores := make(map[string]float64, len(out.Results))
	for _, r := range out.Results {
		if _, exists := scores[r.Text]; !exists {
			scores[r.Text] = clamp01(r.Score)
		}
	}
	return scores
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
