package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/guvensoft/codectx-mcp/pkg/types"
)

func newTestStore(t *testing.T) Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "graph.db")
	s, err := Open(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func seed(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()
	tx, err := s.BeginRebuild(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.Clear(ctx))

	aID, err := tx.UpsertFile(ctx, "a.ts")
	require.NoError(t, err)
	bID, err := tx.UpsertFile(ctx, "b.ts")
	require.NoError(t, err)

	require.NoError(t, tx.InsertSymbols(ctx, aID, []types.Symbol{
		{Name: "OrderService.createOrder", Kind: types.KindMethod, File: "a.ts", StartLine: 1, EndLine: 5},
	}))
	require.NoError(t, tx.InsertSymbols(ctx, bID, []types.Symbol{
		{Name: "helper", Kind: types.KindFunction, File: "b.ts", StartLine: 1, EndLine: 2},
	}))
	require.NoError(t, tx.InsertEdges(ctx, []types.Edge{
		{From: "a.ts", To: "b.ts", Kind: types.EdgeKindImport},
		{From: "a.ts", To: "b.ts", Kind: types.EdgeKindImport}, // duplicate, should collapse (I3)
		{From: "a.ts", To: "a.ts", Kind: types.EdgeKindImport}, // self-loop, must be dropped
	}))
	require.NoError(t, tx.Commit())
}

func TestRebuildAndQueries(t *testing.T) {
	s := newTestStore(t)
	seed(t, s)
	ctx := context.Background()

	n, err := s.CountFiles(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, n)

	n, err = s.CountEdges(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, n, "duplicate and self-loop edges must not be stored")

	syms, err := s.ListSymbols(ctx, "")
	require.NoError(t, err)
	require.Len(t, syms, 2)

	imports, err := s.ListImports(ctx, "a.ts")
	require.NoError(t, err)
	require.Equal(t, []string{"b.ts"}, imports)

	dependents, err := s.ListDependents(ctx, "b.ts")
	require.NoError(t, err)
	require.Equal(t, []string{"a.ts"}, dependents)

	deg, err := s.Degree(ctx, "a.ts")
	require.NoError(t, err)
	require.Equal(t, 1, deg)

	refs, err := s.FindRefs(ctx, "helper")
	require.NoError(t, err)
	require.Equal(t, []string{"a.ts"}, refs)
}

func TestRebuildIsAtomicReplace(t *testing.T) {
	s := newTestStore(t)
	seed(t, s)
	ctx := context.Background()

	tx, err := s.BeginRebuild(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.Clear(ctx))
	_, err = tx.UpsertFile(ctx, "only.ts")
	require.NoError(t, err)
	require.NoError(t, tx.Commit())

	files, err := s.ListFiles(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"only.ts"}, files)
}
