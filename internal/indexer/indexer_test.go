package indexer

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/guvensoft/codectx-mcp/internal/policy"
	"github.com/guvensoft/codectx-mcp/pkg/types"
)

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	p := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
}

func newTestIndexer(t *testing.T, root, dataDir string, mode Mode) *Indexer {
	t.Helper()
	filter, err := policy.New([]string{root}, nil)
	require.NoError(t, err)
	ix, err := New(Config{Root: root, DataDir: dataDir, Mode: mode}, filter)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ix.Close() })
	return ix
}

func fileByPath(files []types.File, p string) *types.File {
	for i := range files {
		if files[i].Path == p {
			return &files[i]
		}
	}
	return nil
}

func symbolNames(syms []types.Symbol) []string {
	out := make([]string, 0, len(syms))
	for _, s := range syms {
		out = append(out, s.Name)
	}
	return out
}

func entriesForFile(entries []types.SemanticEntry, file string) []types.SemanticEntry {
	var out []types.SemanticEntry
	for _, e := range entries {
		if e.File == file {
			out = append(out, e)
		}
	}
	return out
}

func TestIndexerExtractsSymbolsAndEdges(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "orders/order.service.ts", `
import { Repo } from "./order.repository";

export class OrderService {
  createOrder(items: string[]) {
    return items.length;
  }
}
`)
	writeFile(t, root, "orders/order.repository.ts", `
export class OrderRepository {
  save() {}
}
`)

	ix := newTestIndexer(t, root, t.TempDir(), ModeFull)
	stats, err := ix.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, stats.FilesTotal)
	require.GreaterOrEqual(t, stats.Symbols, 2)
	require.Equal(t, 1, stats.Edges)

	files := ix.manifest.LoadFiles()
	require.Len(t, files, 2)

	svc := fileByPath(files, "orders/order.service.ts")
	require.NotNil(t, svc)
	names := symbolNames(svc.Symbols)
	require.Contains(t, names, "OrderService")
	require.Contains(t, names, "OrderService.createOrder")
}

func TestIndexerIncrementalReuseIsVerbatim(t *testing.T) {
	root := t.TempDir()
	dataDir := t.TempDir()
	writeFile(t, root, "a.ts", "export function a() { return 1; }\n")
	writeFile(t, root, "b.ts", "export function b() { return 2; }\n")

	ix1 := newTestIndexer(t, root, dataDir, ModeFull)
	_, err := ix1.Run(context.Background())
	require.NoError(t, err)
	pass1Entries := ix1.manifest.LoadSemanticEntries()

	// Rewrite only a.ts, changing both its mtime and content.
	writeFile(t, root, "a.ts", "export function a() { return 99; }\n")

	ix2 := newTestIndexer(t, root, dataDir, ModeIncremental)
	_, err = ix2.Run(context.Background())
	require.NoError(t, err)
	pass2Entries := ix2.manifest.LoadSemanticEntries()

	require.Equal(t, entriesForFile(pass1Entries, "b.ts"), entriesForFile(pass2Entries, "b.ts"))
	require.NotEmpty(t, entriesForFile(pass2Entries, "a.ts"))
}

func TestIndexerEmptyRepo(t *testing.T) {
	root := t.TempDir()
	ix := newTestIndexer(t, root, t.TempDir(), ModeFull)
	stats, err := ix.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 0, stats.FilesTotal)
	require.Equal(t, 0, stats.Edges)
}

func TestVerifyInvariantsCatchesDanglingEdge(t *testing.T) {
	files := []types.File{{Path: "a.ts"}}
	edges := []types.Edge{{From: "a.ts", To: "missing.ts", Kind: types.EdgeKindImport}}
	err := VerifyInvariants(files, nil, edges)
	require.Error(t, err)
}
