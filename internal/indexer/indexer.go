package indexer

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/guvensoft/codectx-mcp/internal/chunker"
	"github.com/guvensoft/codectx-mcp/internal/lang"
	"github.com/guvensoft/codectx-mcp/internal/manifest"
	"github.com/guvensoft/codectx-mcp/internal/parser"
	"github.com/guvensoft/codectx-mcp/internal/policy"
	"github.com/guvensoft/codectx-mcp/internal/store"
	"github.com/guvensoft/codectx-mcp/pkg/types"
)

// Mode selects between a from-scratch rebuild and mtime-based reuse of
// unchanged files.
type Mode string

const (
	ModeFull        Mode = "full"
	ModeIncremental Mode = "incremental"
)

// Config configures one indexing pass.
type Config struct {
	Root        string
	DataDir     string
	GraphDBPath string // defaults to DataDir/graph.db
	Mode        Mode
	Namespace   string
	Tenant      string
	Metadata    map[string]interface{}
	Extensions  []string // defaults to lang.Extensions()
	Workers     int
	Chunk       chunker.Options
	ANNEndpoint string
}

// Stats summarizes one completed pass.
type Stats struct {
	FilesTotal      int
	FilesParsed     int
	FilesReused     int
	FilesFailed     int
	Symbols         int
	Edges           int
	SemanticEntries int
	Duration        time.Duration
}

// Indexer runs the full indexing pipeline against one root/data-dir pair.
type Indexer struct {
	cfg      Config
	filter   *policy.Filter
	chunker  *chunker.Chunker
	manifest *manifest.Manifest
	store    store.Store
	ann      *manifest.ANNSink

	parserPool sync.Pool
}

// New builds an Indexer. filter must already be scoped to allow cfg.Root.
func New(cfg Config, filter *policy.Filter) (*Indexer, error) {
	if cfg.DataDir == "" {
		return nil, fmt.Errorf("indexer: DataDir is required")
	}
	if cfg.GraphDBPath == "" {
		cfg.GraphDBPath = filepath.Join(cfg.DataDir, "graph.db")
	}
	if len(cfg.Extensions) == 0 {
		cfg.Extensions = lang.Extensions()
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if cfg.Mode == "" {
		cfg.Mode = ModeFull
	}

	m, err := manifest.New(cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("indexer: manifest: %w", err)
	}
	st, err := openStoreWithRetry(cfg.GraphDBPath)
	if err != nil {
		return nil, fmt.Errorf("indexer: store: %w", err)
	}

	return &Indexer{
		cfg:      cfg,
		filter:   filter,
		chunker:  chunker.New(cfg.Chunk),
		manifest: m,
		store:    st,
		ann:      manifest.NewANNSink(cfg.ANNEndpoint),
		parserPool: sync.Pool{
			New: func() interface{} { return parser.New() },
		},
	}, nil
}

// Close releases the graph store handle.
func (ix *Indexer) Close() error { return ix.store.Close() }

// openStoreWithRetry opens the graph store, retrying up to 3 times on lock
// collisions from a watcher-triggered pass racing a still-closing handle.
func openStoreWithRetry(path string) (store.Store, error) {
	var lastErr error
	for attempt := 0; attempt < 3; attempt++ {
		st, err := store.Open(path)
		if err == nil {
			return st, nil
		}
		lastErr = err
		time.Sleep(time.Duration(attempt+1) * 50 * time.Millisecond)
	}
	return nil, lastErr
}

type parsedFile struct {
	path    string
	content string
	mtimeMs int64
	symbols []types.Symbol
	imports []string // raw specifiers, unresolved
	reused  bool
}

// Run executes one full indexing pass: enumerate, parse-or-reuse, derive
// edges, chunk, and write the graph store + manifest atomically.
func (ix *Indexer) Run(ctx context.Context) (Stats, error) {
	start := time.Now()
	var stats Stats

	paths, err := ix.enumerate()
	if err != nil {
		return stats, fmt.Errorf("indexer: enumerate: %w", err)
	}
	stats.FilesTotal = len(paths)

	var prevFiles map[string]types.File
	var prevEntries map[string][]types.SemanticEntry
	if ix.cfg.Mode == ModeIncremental {
		prevFiles, prevEntries = ix.loadPrevious()
	}

	parsed := make([]*parsedFile, len(paths))
	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(ix.cfg.Workers)

	for i, p := range paths {
		i, p := i, p
		g.Go(func() error {
			pf, failed := ix.processFile(gctx, p, prevFiles)
			parsed[i] = pf
			mu.Lock()
			if failed {
				stats.FilesFailed++
			} else if pf.reused {
				stats.FilesReused++
			} else {
				stats.FilesParsed++
			}
			mu.Unlock()
			return nil // per-file errors never fail the pass
		})
	}
	if err := g.Wait(); err != nil {
		return stats, err
	}

	fileSet := make(map[string]bool, len(parsed))
	for _, pf := range parsed {
		if pf != nil {
			fileSet[pf.path] = true
		}
	}

	var allFiles []types.File
	var allEntries []types.SemanticEntry
	var allEdges []types.Edge

	for _, pf := range parsed {
		if pf == nil {
			continue
		}
		f := types.File{
			Path:      pf.path,
			Content:   pf.content,
			MtimeMs:   pf.mtimeMs,
			Symbols:   pf.symbols,
			Namespace: ix.cfg.Namespace,
			Tenant:    ix.cfg.Tenant,
			Metadata:  ix.cfg.Metadata,
		}
		allFiles = append(allFiles, f)

		if pf.reused {
			for _, e := range prevEntries[pf.path] {
				e.Namespace, e.Tenant, e.Metadata = ix.cfg.Namespace, ix.cfg.Tenant, ix.cfg.Metadata
				allEntries = append(allEntries, e)
			}
		} else {
			lines := strings.Split(pf.content, "\n")
			for _, sym := range pf.symbols {
				entries := ix.chunker.ChunkSymbol(lines, sym)
				for i := range entries {
					entries[i].Namespace = ix.cfg.Namespace
					entries[i].Tenant = ix.cfg.Tenant
					entries[i].Metadata = ix.cfg.Metadata
				}
				allEntries = append(allEntries, entries...)
			}
		}

		specs := append([]string{}, pf.imports...)
		specs = append(specs, moduleGraphFallback(pf.content)...)
		for _, spec := range specs {
			if target, ok := resolveImport(pf.path, spec, fileSet); ok && target != pf.path {
				allEdges = append(allEdges, types.Edge{From: pf.path, To: target, Kind: types.EdgeKindImport})
			}
		}
	}

	allEdges = dedupeAndDropSelfLoops(allEdges)

	sort.Slice(allFiles, func(i, j int) bool { return allFiles[i].Path < allFiles[j].Path })
	sort.Slice(allEntries, func(i, j int) bool { return allEntries[i].ID < allEntries[j].ID })

	if err := ix.writeStore(ctx, allFiles, allEdges); err != nil {
		return stats, fmt.Errorf("indexer: store write: %w", err)
	}
	if err := ix.manifest.WriteAll(allFiles, allEntries, allEdges); err != nil {
		return stats, fmt.Errorf("indexer: manifest write: %w", err)
	}
	ix.sinkANN(ctx, allEntries)

	stats.Symbols = countSymbols(allFiles)
	stats.Edges = len(allEdges)
	stats.SemanticEntries = len(allEntries)
	stats.Duration = time.Since(start)

	if err := VerifyInvariants(allFiles, allEntries, allEdges); err != nil {
		return stats, fmt.Errorf("indexer: invariant check failed: %w", err)
	}
	return stats, nil
}

func countSymbols(files []types.File) int {
	n := 0
	for _, f := range files {
		n += len(f.Symbols)
	}
	return n
}

func (ix *Indexer) sinkANN(ctx context.Context, entries []types.SemanticEntry) {
	if !ix.ann.Enabled() {
		return
	}
	for _, e := range entries {
		_ = ix.ann.Upsert(ctx, e) // best-effort: a sink failure must never fail the pass.
	}
}

func (ix *Indexer) enumerate() ([]string, error) {
	extSet := make(map[string]bool, len(ix.cfg.Extensions))
	for _, e := range ix.cfg.Extensions {
		extSet[strings.ToLower(e)] = true
	}
	var out []string
	err := filepath.WalkDir(ix.cfg.Root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // skip unreadable entries
		}
		if d.IsDir() {
			switch d.Name() {
			case "node_modules", ".git", "dist", "build", "vendor":
				return filepath.SkipDir
			}
			return nil
		}
		if !extSet[strings.ToLower(filepath.Ext(p))] {
			return nil
		}
		if !ix.filter.AllowList(p) {
			return nil
		}
		out = append(out, filepath.ToSlash(relPath(ix.cfg.Root, p)))
		return nil
	})
	sort.Strings(out)
	return out, err
}

func relPath(root, p string) string {
	rel, err := filepath.Rel(root, p)
	if err != nil {
		return p
	}
	return rel
}

func (ix *Indexer) loadPrevious() (map[string]types.File, map[string][]types.SemanticEntry) {
	files := ix.manifest.LoadFiles()
	entries := ix.manifest.LoadSemanticEntries()

	fileMap := make(map[string]types.File, len(files))
	for _, f := range files {
		fileMap[f.Path] = f
	}
	entryMap := make(map[string][]types.SemanticEntry)
	for _, e := range entries {
		entryMap[e.File] = append(entryMap[e.File], e)
	}
	return fileMap, entryMap
}

// processFile parses one file, or reuses its previous record verbatim in
// incremental mode when mtime is unchanged. The returned bool reports
// whether parsing failed (the file still gets a record, just demoted to
// "no symbols" rather than dropped from the index).
func (ix *Indexer) processFile(ctx context.Context, relp string, prevFiles map[string]types.File) (*parsedFile, bool) {
	abs := filepath.Join(ix.cfg.Root, relp)
	info, err := os.Stat(abs)
	if err != nil {
		return &parsedFile{path: relp}, true
	}
	mtimeMs := info.ModTime().UnixMilli()

	if prev, ok := prevFiles[relp]; ok && prev.MtimeMs == mtimeMs {
		return &parsedFile{
			path:    relp,
			content: prev.Content,
			mtimeMs: mtimeMs,
			symbols: prev.Symbols,
			reused:  true,
		}, false
	}

	data, err := os.ReadFile(abs)
	if err != nil {
		return &parsedFile{path: relp, mtimeMs: mtimeMs}, true
	}
	content := string(data)

	p := ix.parserPool.Get().(*parser.Parser)
	defer ix.parserPool.Put(p)

	res := p.ParseFile(ctx, relp, data)
	failed := res.Err != nil
	for i := range res.Symbols {
		res.Symbols[i].File = relp
	}
	return &parsedFile{
		path:    relp,
		content: content,
		mtimeMs: mtimeMs,
		symbols: res.Symbols,
		imports: res.Imports,
	}, failed
}

func (ix *Indexer) writeStore(ctx context.Context, files []types.File, edges []types.Edge) error {
	var lastErr error
	for attempt := 0; attempt < 3; attempt++ {
		tx, err := ix.store.BeginRebuild(ctx)
		if err != nil {
			lastErr = err
			time.Sleep(time.Duration(attempt+1) * 50 * time.Millisecond)
			continue
		}
		if err := ix.writeStoreTx(ctx, tx, files, edges); err != nil {
			_ = tx.Rollback()
			lastErr = err
			time.Sleep(time.Duration(attempt+1) * 50 * time.Millisecond)
			continue
		}
		return nil
	}
	return lastErr
}

func (ix *Indexer) writeStoreTx(ctx context.Context, tx store.RebuildTx, files []types.File, edges []types.Edge) error {
	if err := tx.Clear(ctx); err != nil {
		return err
	}
	ids := make(map[string]int64, len(files))
	for _, f := range files {
		id, err := tx.UpsertFile(ctx, f.Path)
		if err != nil {
			return err
		}
		ids[f.Path] = id
	}
	for _, f := range files {
		if err := tx.InsertSymbols(ctx, ids[f.Path], f.Symbols); err != nil {
			return err
		}
	}
	if err := tx.InsertEdges(ctx, edges); err != nil {
		return err
	}
	return tx.Commit()
}

func dedupeAndDropSelfLoops(edges []types.Edge) []types.Edge {
	seen := make(map[types.Edge]bool, len(edges))
	out := make([]types.Edge, 0, len(edges))
	for _, e := range edges {
		if e.From == e.To {
			continue
		}
		if e.Kind == "" {
			e.Kind = types.EdgeKindImport
		}
		if seen[e] {
			continue
		}
		seen[e] = true
		out = append(out, e)
	}
	return out
}

// moduleGraphRe backs the best-effort module-graph fallback pass: a regex
// scan for import-like string literals, used both when AST resolution is
// ambiguous and as a safety net when a file fails to parse at all.
var moduleGraphRe = regexp.MustCompile(`(?:from|import|require)\s*\(?\s*['"]([^'"]+)['"]`)

func moduleGraphFallback(content string) []string {
	matches := moduleGraphRe.FindAllStringSubmatch(content, -1)
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		out = append(out, m[1])
	}
	return out
}
