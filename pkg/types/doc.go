// Package types provides the shared data model used across codectx-mcp:
// indexed files and symbols, the import graph, semantic search entries,
// hybrid ranking weights, and the context profile produced for a query.
//
// Every path carried by these types is repo-relative and forward-slash
// normalized; callers must normalize before constructing a File, Symbol,
// Edge, or SemanticEntry.
package types
