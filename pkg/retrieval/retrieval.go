// Package retrieval implements the dense+sparse retriever with Reciprocal
// Rank Fusion and cascaded reranking, plus a prefetch cache that
// speculatively issues a query against the STT's first partial transcript.
package retrieval

import "context"

// Query is one retrieval request.
type Query struct {
	SessionID string
	Text      string
	TopK      int
}

// Hit is one candidate document.
type Hit struct {
	DocID   string
	Text    string
	Score   float64 // raw per-index score before fusion
}

// FusedHit carries the post-RRF/rerank score.
type FusedHit struct {
	DocID      string
	Text       string
	FusedScore float64
}

// DenseIndex performs vector similarity search. A concrete Qdrant/pgvector
// client is out of scope for this core; callers supply an implementation.
type DenseIndex interface {
	Search(ctx context.Context, q Query) ([]Hit, error)
}

// SparseIndex performs BM25-style lexical search.
type SparseIndex interface {
	Search(ctx context.Context, q Query) ([]Hit, error)
}

// Reranker scores a pre-filtered candidate set against the query. The
// cascaded design runs a cheap pre-filter first (see prefilter)
// and only invokes Reranker on the survivors, since per-spec early-exit
// layer-by-layer reranking is not attempted given current model-format
// limitations.
type Reranker interface {
	Score(ctx context.Context, query string, candidates []Hit) ([]FusedHit, error)
}
