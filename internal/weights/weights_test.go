package weights

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFeedbackNormalizesAndPersists(t *testing.T) {
	dir := t.TempDir()
	m, err := Load(dir)
	require.NoError(t, err)

	for i := 0; i < 20; i++ {
		w, err := m.Feedback(FeedbackUp)
		require.NoError(t, err)
		total := w.Semantic + w.Lexical + w.Graph + w.Reranker
		require.Less(t, math.Abs(total-1), 1e-9)
		require.GreaterOrEqual(t, w.Semantic, 0.0)
		require.LessOrEqual(t, w.Semantic, 1.0)
	}

	m2, err := Load(dir)
	require.NoError(t, err)
	require.InDelta(t, m.Current().Semantic, m2.Current().Semantic, 1e-9)
}

func TestFeedbackDownDirection(t *testing.T) {
	m, err := Load(t.TempDir())
	require.NoError(t, err)
	before := m.Current()
	after, err := m.Feedback(FeedbackDown)
	require.NoError(t, err)
	require.Less(t, after.Semantic, before.Semantic)
}
