package profiler

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestProfileClassifiesIntents(t *testing.T) {
	cases := map[string]string{
		"please refactor this module":      "refactor",
		"add a unit test for this":         "test",
		"why is this query so slow":        "performance",
		"write docs for this function":     "docs",
		"trace the dataflow through this":  "dataflow",
		"what does this code do":           "general",
	}
	for q, want := range cases {
		p := Profile(q, 0)
		require.Equal(t, want, p.Intent, q)
	}
}

func TestProfileEffectiveTopKClamping(t *testing.T) {
	p := Profile("refactor this", 100)
	require.Equal(t, 8, p.EffectiveTopK) // clamped down to preset.TopK

	p2 := Profile("refactor this", 3)
	require.Equal(t, 3, p2.EffectiveTopK)

	p3 := Profile("general question", 0)
	require.Equal(t, 600, p3.TokenBudget)
	require.Equal(t, 5, p3.EffectiveTopK)
}
