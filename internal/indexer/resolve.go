package indexer

import (
	"fmt"
	"path"
	"strings"

	"github.com/guvensoft/codectx-mcp/internal/lang"
	"github.com/guvensoft/codectx-mcp/pkg/types"
)

// resolveImport resolves a raw import specifier written in fromFile
// against the in-tree file set. Only relative specifiers ("./x", "../x")
// are resolved; bare specifiers ("lodash",
// "@scope/pkg") are assumed external and skipped. A specifier with no
// extension is tried against every structurally-parsed extension and,
// failing that, as an "index" file inside a directory of that name.
func resolveImport(fromFile, spec string, fileSet map[string]bool) (string, bool) {
	if spec == "" || !(strings.HasPrefix(spec, "./") || strings.HasPrefix(spec, "../")) {
		return "", false
	}
	dir := path.Dir(fromFile)
	joined := path.Clean(path.Join(dir, spec))

	if fileSet[joined] {
		return joined, true
	}
	for _, ext := range lang.Extensions() {
		if fileSet[joined+ext] {
			return joined + ext, true
		}
	}
	for _, ext := range lang.Extensions() {
		candidate := path.Join(joined, "index"+ext)
		if fileSet[candidate] {
			return candidate, true
		}
	}
	return "", false
}

// VerifyInvariants checks the in-memory shape of one completed indexing
// pass for internal consistency. The indexer calls it after the store and
// manifest writes and returns a violation as the pass's error: every
// edge endpoint and semantic entry must reference an indexed file, edges
// must be free of duplicates, and every symbol's File must match the path
// of the file that contains it.
func VerifyInvariants(files []types.File, entries []types.SemanticEntry, edges []types.Edge) error {
	filePaths := make(map[string]bool, len(files))
	for _, f := range files {
		filePaths[f.Path] = true
	}

	for _, e := range edges {
		if !filePaths[e.From] || !filePaths[e.To] {
			return fmt.Errorf("edge %s->%s references an unindexed file", e.From, e.To)
		}
	}

	for _, se := range entries {
		if !filePaths[se.File] {
			return fmt.Errorf("semantic entry %s references unindexed file %s", se.ID, se.File)
		}
	}

	seen := make(map[types.Edge]bool, len(edges))
	for _, e := range edges {
		if seen[e] {
			return fmt.Errorf("duplicate edge %s->%s (%s)", e.From, e.To, e.Kind)
		}
		seen[e] = true
	}

	for _, f := range files {
		for _, s := range f.Symbols {
			if s.File != f.Path {
				return fmt.Errorf("symbol %s has file %s, expected %s", s.Name, s.File, f.Path)
			}
		}
	}

	return nil
}
