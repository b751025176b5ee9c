// Package indexer coordinates the indexing pipeline: enumerate eligible
// files under a root, parse each to extract symbols, derive the import
// graph by two complementary passes, chunk symbol snippets into
// SemanticEntry records, and write the results to the graph store and
// snippet manifest atomically.
//
// Incremental mode reuses a prior file's Symbols and SemanticEntries
// verbatim when its mtime is unchanged; full mode reparses everything.
// Either way the graph store is rebuilt in one transaction, and each
// manifest file is replaced by temp-then-rename, so a reader never sees a
// partly written file. The store and the three manifest files are written
// one after another, not replaced as a single unit.
package indexer
