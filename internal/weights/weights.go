// Package weights is the weight manager: a persisted {semantic, lexical,
// graph, reranker} quadruple, nudged by feedback and always renormalized
// to sum to 1.
package weights

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/guvensoft/codectx-mcp/pkg/types"
)

// semanticStep and lexicalStep are the feedback nudge magnitudes applied
// on each thumbs-up/thumbs-down.
const (
	semanticStep = 0.01
	lexicalStep  = 0.005
)

// Feedback is the direction a caller nudges the weights.
type Feedback string

const (
	FeedbackUp   Feedback = "up"
	FeedbackDown Feedback = "down"
)

// Manager owns the current Weights and persists every change under a
// file lock, so concurrent feedback calls never interleave writes.
type Manager struct {
	path string
	mu   sync.Mutex
	cur  types.Weights
}

// Load reads weights.json if present, falling back to DefaultWeights.
func Load(dataDir string) (*Manager, error) {
	path := filepath.Join(dataDir, "weights.json")
	m := &Manager{path: path, cur: types.DefaultWeights()}

	data, err := os.ReadFile(path)
	if err == nil {
		var w types.Weights
		if jsonErr := json.Unmarshal(data, &w); jsonErr == nil {
			m.cur = w.Normalize()
		}
	}
	return m, nil
}

// Current returns the weights in effect for the next query.
func (m *Manager) Current() types.Weights {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cur
}

// Feedback nudges semantic by +-0.01 and lexical by -+0.005, renormalizes,
// and persists. Updates take effect for subsequent queries only — the
// caller already in flight keeps the weights it started with.
func (m *Manager) Feedback(dir Feedback) (types.Weights, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	w := m.cur
	switch dir {
	case FeedbackUp:
		w.Semantic += semanticStep
		w.Lexical -= lexicalStep
	case FeedbackDown:
		w.Semantic -= semanticStep
		w.Lexical += lexicalStep
	}
	w = w.Normalize()
	m.cur = w

	if err := m.persist(w); err != nil {
		return w, err
	}
	return w, nil
}

func (m *Manager) persist(w types.Weights) error {
	unlock, err := acquireFileLock(m.path + ".lock")
	if err != nil {
		return err
	}
	defer unlock()

	data, err := json.MarshalIndent(w, "", "  ")
	if err != nil {
		return err
	}
	tmp := m.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, m.path)
}
