package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/guvensoft/codectx-mcp/pkg/types"
)

func sampleEntries() []types.SemanticEntry {
	return []types.SemanticEntry{
		{ID: "orders/order.service.ts:OrderService.createOrder", File: "orders/order.service.ts",
			Symbol: "OrderService.createOrder", StartLine: 1, EndLine: 3, Text: "function createOrder items"},
		{ID: "misc/util.ts:noop", File: "misc/util.ts", Symbol: "noop", StartLine: 1, EndLine: 1, Text: "function noop"},
	}
}

func TestFallbackEngineSearchAndHealth(t *testing.T) {
	handle, err := startFallback(LaunchConfig{FallbackSource: sampleEntries})
	require.NoError(t, err)
	defer func() { _ = handle.Shutdown(context.Background()) }()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	require.True(t, handle.Client.Health(ctx))

	results := handle.Client.Search(ctx, "create order", 5)
	require.NotEmpty(t, results)
	require.Equal(t, "orders/order.service.ts", results[0].File)
}

func TestLaunchFallsBackWhenExternalUnavailable(t *testing.T) {
	handle, err := Launch(context.Background(), LaunchConfig{
		ExternalURL:    "", // no external engine configured
		FallbackSource: sampleEntries,
	})
	require.NoError(t, err)
	defer func() { _ = handle.Shutdown(context.Background()) }()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.True(t, handle.Client.Health(ctx))
}

func TestTokenFrequencyScoreClampedAndZeroOnNoOverlap(t *testing.T) {
	require.Equal(t, 0.0, tokenFrequencyScore([]string{"zzz"}, "function createOrder"))
	require.Greater(t, tokenFrequencyScore([]string{"create", "order"}, "create order service"), 0.0)
}
