// Package ranker implements the hybrid scoring and context-packing engine:
// per-candidate semantic/lexical/graph/reranker signals combined by the
// current Weights into a composite score, followed by either
// greedy-with-per-file-diversity or MMR packing into a token budget.
package ranker
