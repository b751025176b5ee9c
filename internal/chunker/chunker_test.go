package chunker

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/guvensoft/codectx-mcp/pkg/types"
)

func TestChunkSymbolSingleWindow(t *testing.T) {
	c := New(DefaultOptions())
	lines := []string{
		"class OrderService {",
		"  createOrder(items) {",
		"    return this.repo.save(items);",
		"  }",
		"}",
	}
	sym := types.Symbol{Name: "OrderService.createOrder", Kind: types.KindMethod, File: "orders/order.service.ts", StartLine: 2, EndLine: 4}

	entries := c.ChunkSymbol(lines, sym)
	require.Len(t, entries, 1)
	require.Equal(t, "orders/order.service.ts:OrderService.createOrder", entries[0].ID)
	require.Equal(t, 2, entries[0].StartLine)
	require.Equal(t, 4, entries[0].EndLine)
	require.NoError(t, entries[0].Validate())
}

func TestChunkSymbolMultipleWindowsAdvanceAndOverlap(t *testing.T) {
	opts := Options{ChunkTokenLimit: 5, OverlapTokens: 2, CharsPerToken: 4}
	c := New(opts)

	var lines []string
	for i := 0; i < 40; i++ {
		lines = append(lines, "xxxxxxxxxxxxxxxxxxxx") // 20 chars -> 5 tokens/line
	}
	sym := types.Symbol{Name: "big", Kind: types.KindFunction, File: "a.ts", StartLine: 1, EndLine: len(lines)}

	entries := c.ChunkSymbol(lines, sym)
	require.Greater(t, len(entries), 1)

	for i, e := range entries {
		require.Contains(t, e.ID, ":chunk")
		require.NoError(t, e.Validate())
		if i > 0 {
			require.Greater(t, e.StartLine, entries[i-1].StartLine, "each chunk must advance at least one line")
		}
	}
	require.Equal(t, sym.EndLine, entries[len(entries)-1].EndLine)
}

func TestChunkSymbolOutOfRangeReturnsNil(t *testing.T) {
	c := New(DefaultOptions())
	lines := []string{"a", "b"}
	sym := types.Symbol{Name: "f", Kind: types.KindFunction, File: "a.ts", StartLine: 5, EndLine: 6}
	require.Nil(t, c.ChunkSymbol(lines, sym))
}

func TestChunkSymbolClampsToFileBounds(t *testing.T) {
	c := New(DefaultOptions())
	lines := []string{"a", "b", "c"}
	sym := types.Symbol{Name: "f", Kind: types.KindFunction, File: "a.ts", StartLine: 2, EndLine: 10}
	entries := c.ChunkSymbol(lines, sym)
	require.Len(t, entries, 1)
	require.Equal(t, strings.Join(lines[1:], "\n"), entries[0].Text)
}
