// Package engine is the semantic engine client: an HTTP client for an
// out-of-process vector/lexical search engine, plus an
// in-process fallback engine that serves the identical /search and
// /health contract with token-frequency scoring over the snippet
// manifest. The orchestrator treats both identically — Client is the only
// type callers see.
package engine
