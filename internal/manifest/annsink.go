package manifest

import (
	"bytes"
	"context"
	"encoding/json"
	"hash/fnv"
	"math"
	"net/http"
	"time"

	"github.com/guvensoft/codectx-mcp/internal/textutil"
	"github.com/guvensoft/codectx-mcp/pkg/types"
)

// ANNDimension is the fixed dimension of the hash-bucket vector sent to the
// optional external vector service.
const ANNDimension = 96

// ANNSink upserts a deterministic hash-bucket embedding for each
// SemanticEntry to an external approximate-nearest-neighbour service. A
// sink failure is discarded by the caller and never fails the indexing pass.
type ANNSink struct {
	endpoint string
	client   *http.Client
}

// NewANNSink builds a sink targeting endpoint (expected to accept
// PUT/POST of {id, vector} bodies). A zero-value endpoint disables the
// sink; callers should check Enabled before using it.
func NewANNSink(endpoint string) *ANNSink {
	return &ANNSink{
		endpoint: endpoint,
		client:   &http.Client{Timeout: 5 * time.Second},
	}
}

// Enabled reports whether a sink endpoint is configured.
func (s *ANNSink) Enabled() bool { return s != nil && s.endpoint != "" }

type annUpsertRequest struct {
	ID     string    `json:"id"`
	Vector []float32 `json:"vector"`
}

// Upsert embeds and sends one entry. Errors are returned to the caller;
// the indexer discards them rather than fail the pass.
func (s *ANNSink) Upsert(ctx context.Context, entry types.SemanticEntry) error {
	if !s.Enabled() {
		return nil
	}
	vec := HashEmbed(entry.Text, ANNDimension)
	body, err := json.Marshal(annUpsertRequest{ID: entry.ID, Vector: vec})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	return nil
}

// HashEmbed produces a deterministic hash-bucket vector of the requested
// dimension, normalized to unit L2 norm. Each word token's FNV hash
// contributes to one bucket.
func HashEmbed(text string, dim int) []float32 {
	vec := make([]float64, dim)
	for _, tok := range textutil.TokenizeWords(text) {
		h := fnv.New32a()
		_, _ = h.Write([]byte(tok))
		bucket := int(h.Sum32()) % dim
		if bucket < 0 {
			bucket += dim
		}
		vec[bucket]++
	}
	var norm float64
	for _, v := range vec {
		norm += v * v
	}
	norm = math.Sqrt(norm)
	out := make([]float32, dim)
	if norm == 0 {
		return out
	}
	for i, v := range vec {
		out[i] = float32(v / norm)
	}
	return out
}
