// Package manifest is the snippet manifest: two serialized documents —
// FileMeta and SemanticEntry lists — rewritten atomically at the end of
// every indexing pass.
package manifest

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/guvensoft/codectx-mcp/pkg/types"
)

const (
	// IndexFileName holds the FileMeta list.
	IndexFileName = "index.json"
	// SemanticEntriesFileName holds the SemanticEntry list.
	SemanticEntriesFileName = "semantic_entries.json"
	// EdgesFileName is the debug dump of edges.
	EdgesFileName = "edges.json"
)

// DebugEdge is the on-disk shape of edges.json: {from,to}.
type DebugEdge struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// Manifest is the read/write surface over the data directory's JSON
// documents.
type Manifest struct {
	dir string
}

// New binds a Manifest to a data directory, creating it if missing.
func New(dataDir string) (*Manifest, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, err
	}
	return &Manifest{dir: dataDir}, nil
}

// LoadFiles reads the FileMeta list. A missing or malformed file is
// tolerated and treated as empty.
func (m *Manifest) LoadFiles() []types.File {
	var files []types.File
	if err := readJSON(filepath.Join(m.dir, IndexFileName), &files); err != nil {
		return nil
	}
	return files
}

// LoadSemanticEntries reads the SemanticEntry list, tolerating a missing
// or malformed file the same way as LoadFiles.
func (m *Manifest) LoadSemanticEntries() []types.SemanticEntry {
	var entries []types.SemanticEntry
	if err := readJSON(filepath.Join(m.dir, SemanticEntriesFileName), &entries); err != nil {
		return nil
	}
	return entries
}

// WriteAll atomically rewrites index.json, semantic_entries.json, and the
// edges.json debug dump. Each file is written to a temp path in the same
// directory, then renamed into place, so readers never observe a partial
// write.
func (m *Manifest) WriteAll(files []types.File, entries []types.SemanticEntry, edges []types.Edge) error {
	if err := atomicWriteJSON(filepath.Join(m.dir, IndexFileName), files); err != nil {
		return err
	}
	if err := atomicWriteJSON(filepath.Join(m.dir, SemanticEntriesFileName), entries); err != nil {
		return err
	}
	debugEdges := make([]DebugEdge, 0, len(edges))
	for _, e := range edges {
		debugEdges = append(debugEdges, DebugEdge{From: e.From, To: e.To})
	}
	return atomicWriteJSON(filepath.Join(m.dir, EdgesFileName), debugEdges)
}

func readJSON(path string, out interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, out)
}

func atomicWriteJSON(path string, value interface{}) error {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
