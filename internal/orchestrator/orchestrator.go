// Package orchestrator implements the end-to-end search pipeline: profile
// the query, fetch candidates from the semantic engine, optionally rerank,
// hybrid-rank with the graph store's signals, pack into the token budget,
// and clamp to the effective top-K.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/guvensoft/codectx-mcp/internal/engine"
	"github.com/guvensoft/codectx-mcp/internal/manifest"
	"github.com/guvensoft/codectx-mcp/internal/profiler"
	"github.com/guvensoft/codectx-mcp/internal/ranker"
	"github.com/guvensoft/codectx-mcp/internal/weights"
	"github.com/guvensoft/codectx-mcp/pkg/types"
)

// searchCacheSize bounds the per-query result cache. A query's entry is
// dropped wholesale on the next ReloadFiles so a stale index pass never
// serves cached results past an index-update boundary.
const searchCacheSize = 256

type cachedSearch struct {
	results []types.SearchResult
	profile types.ContextProfile
}

// ErrNotIndexed is returned by GetFile for a path with no File record.
var ErrNotIndexed = errors.New("orchestrator: file is not indexed")

// PackStrategy selects the context-packing algorithm.
type PackStrategy string

const (
	PackGreedy PackStrategy = "greedy"
	PackMMR    PackStrategy = "mmr"
)

// MMRLambda is the default relevance/diversity tradeoff for MMR packing.
const MMRLambda = 0.5

// Orchestrator holds the long-lived values the RPC surface constructs
// once at startup and injects into every handler.
type Orchestrator struct {
	Engine   *engine.Client
	Graph    ranker.GraphSource // nil when no graph store is configured
	Weights  *weights.Manager
	Manifest *manifest.Manifest
	Strategy PackStrategy

	files map[string]types.File
	cache *lru.Cache[string, cachedSearch]
}

// New builds an Orchestrator and loads the FileMeta map once; GetFile reads
// from this in-memory map rather than hitting the manifest on every call.
func New(eng *engine.Client, graph ranker.GraphSource, wm *weights.Manager, m *manifest.Manifest) *Orchestrator {
	cache, _ := lru.New[string, cachedSearch](searchCacheSize) // fixed size, never errors
	o := &Orchestrator{Engine: eng, Graph: graph, Weights: wm, Manifest: m, Strategy: PackGreedy, cache: cache}
	o.ReloadFiles()
	return o
}

// ReloadFiles re-reads the FileMeta map from the manifest. Callers invoke
// this after an indexing pass completes so subsequent queries see it. The
// search cache is purged in the same call so no query can observe a
// response computed against a stale index.
func (o *Orchestrator) ReloadFiles() {
	files := o.Manifest.LoadFiles()
	m := make(map[string]types.File, len(files))
	for _, f := range files {
		m[f.Path] = f
	}
	o.files = m
	if o.cache != nil {
		o.cache.Purge()
	}
}

func (o *Orchestrator) cacheKey(query string, topK int) string {
	return query + "\x00" + strconv.Itoa(topK) + "\x00" + string(o.Strategy)
}

// Search runs the full pipeline and returns the packed results plus the
// profile used to produce them.
func (o *Orchestrator) Search(ctx context.Context, query string, topK int) ([]types.SearchResult, types.ContextProfile, error) {
	key := o.cacheKey(query, topK)
	if o.cache != nil {
		if hit, ok := o.cache.Get(key); ok {
			return hit.results, hit.profile, nil
		}
	}

	profile := profiler.Profile(query, topK)

	fetchK := profile.EffectiveTopK
	if topK > fetchK {
		fetchK = topK
	}
	candidates := o.Engine.Search(ctx, query, fetchK)

	var rerankScores map[string]float64
	if o.Engine.RerankEnabled() {
		rerankScores = o.Engine.Rerank(ctx, query, fetchK, candidates)
	}

	w := o.Weights.Current()
	ranked := ranker.Rank(ctx, query, candidates, w, o.Graph, rerankScores)

	var packed []types.SearchResult
	switch o.Strategy {
	case PackMMR:
		packed = ranker.PackMMR(ranked, profile.TokenBudget, profile.EffectiveTopK, MMRLambda)
	default:
		packed = ranker.PackGreedy(ranked, profile.TokenBudget, profile.EffectiveTopK)
	}
	if len(packed) > profile.EffectiveTopK {
		packed = packed[:profile.EffectiveTopK]
	}
	if o.cache != nil {
		o.cache.Add(key, cachedSearch{results: packed, profile: profile})
	}
	return packed, profile, nil
}

// GetFile returns the indexed File record for path, or ErrNotIndexed.
func (o *Orchestrator) GetFile(path string) (types.File, error) {
	f, ok := o.files[path]
	if !ok {
		return types.File{}, fmt.Errorf("%w: %s", ErrNotIndexed, path)
	}
	return f, nil
}

// Files returns every indexed File's path, for resources/list.
func (o *Orchestrator) Files() []string {
	out := make([]string, 0, len(o.files))
	for p := range o.files {
		out = append(out, p)
	}
	return out
}
