// Package fake provides a deterministic in-memory retrieval corpus,
// passthrough reranker, and bag-of-words embedder for tests and CLI demo
// mode, so the retriever can run end-to-end without a real vector store,
// lexical index, or cross-encoder model.
package fake

import (
	"context"
	"hash/fnv"
	"sort"
	"strings"

	"github.com/goldvox/agentcore/pkg/retrieval"
)

// Doc is one corpus entry the fake dense/sparse indexes search over.
type Doc struct {
	ID   string
	Text string
}

// Index is a deterministic keyword-overlap search over a small in-memory
// corpus. It satisfies both retrieval.DenseIndex and retrieval.SparseIndex
// so a demo doesn't need two differently-behaved fakes wired in.
type Index struct {
	docs []Doc
}

// New builds an Index over docs.
func New(docs ...Doc) *Index {
	return &Index{docs: docs}
}

// Search scores every doc by keyword overlap with the query text and
// returns the top q.TopK, highest overlap first.
func (idx *Index) Search(ctx context.Context, q retrieval.Query) ([]retrieval.Hit, error) {
	queryWords := wordSet(q.Text)
	hits := make([]retrieval.Hit, 0, len(idx.docs))
	for _, d := range idx.docs {
		overlap := overlapCount(queryWords, wordSet(d.Text))
		if overlap == 0 {
			continue
		}
		hits = append(hits, retrieval.Hit{DocID: d.ID, Text: d.Text, Score: float64(overlap)})
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	topK := q.TopK
	if topK <= 0 || topK > len(hits) {
		topK = len(hits)
	}
	return hits[:topK], nil
}

func wordSet(s string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, w := range strings.Fields(strings.ToLower(s)) {
		set[w] = struct{}{}
	}
	return set
}

func overlapCount(a, b map[string]struct{}) int {
	n := 0
	for w := range a {
		if _, ok := b[w]; ok {
			n++
		}
	}
	return n
}

// Reranker passes each candidate's fused score through unchanged; it
// exists so the cascade always has a Reranker to call without depending on
// a real cross-encoder model.
type Reranker struct{}

// NewReranker builds a passthrough Reranker.
func NewReranker() Reranker { return Reranker{} }

func (Reranker) Score(ctx context.Context, query string, candidates []retrieval.Hit) ([]retrieval.FusedHit, error) {
	out := make([]retrieval.FusedHit, len(candidates))
	for i, c := range candidates {
		out[i] = retrieval.FusedHit{DocID: c.DocID, Text: c.Text, FusedScore: c.Score}
	}
	return out, nil
}

// embedDims is the fake embedding's fixed dimensionality.
const embedDims = 64

// Embed produces a deterministic bag-of-words embedding: each distinct
// word hashes into one of embedDims buckets, so two texts that share
// vocabulary land close together in cosine space. It stands in for a real
// embedding model in the prefetch cache's reuse/discard decision.
func Embed(ctx context.Context, text string) ([]float32, error) {
	vec := make([]float32, embedDims)
	for _, w := range strings.Fields(strings.ToLower(text)) {
		vec[hashBucket(w)]++
	}
	return vec, nil
}

func hashBucket(s string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(s))
	return int(h.Sum32() % embedDims)
}
