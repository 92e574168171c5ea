package retrieval

import (
	"context"
	"sort"
	"strings"
)

// Retriever runs the full pipeline: parallel dense+sparse search, RRF
// fusion to K1, a cheap lexical pre-filter to K2, then a cross-encoder
// rerank over the survivors.
type Retriever struct {
	dense    DenseIndex
	sparse   SparseIndex
	reranker Reranker
	k1       int
	k2       int
	rrfK     int
	prefetch *PrefetchCache
}

// NewRetriever builds a retriever with the spec defaults K1=50, K2=10,
// rrf_k=60.
func NewRetriever(dense DenseIndex, sparse SparseIndex, reranker Reranker) *Retriever {
	return &Retriever{dense: dense, sparse: sparse, reranker: reranker, k1: 50, k2: 10, rrfK: DefaultRRFK}
}

// WithPrefetch attaches a prefetch cache so Search can be preceded by a
// speculative PrefetchPartial call keyed on the session's partial text.
func (r *Retriever) WithPrefetch(cache *PrefetchCache) *Retriever {
	r.prefetch = cache
	return r
}

// WithK overrides K1, K2, and the RRF k constant from configuration
// (`retrieval.top_k1`, `retrieval.top_k2`, `retrieval.rrf_k`). A zero value
// leaves the corresponding default untouched.
func (r *Retriever) WithK(k1, k2, rrfK int) *Retriever {
	if k1 > 0 {
		r.k1 = k1
	}
	if k2 > 0 {
		r.k2 = k2
	}
	if rrfK > 0 {
		r.rrfK = rrfK
	}
	return r
}

// Search runs dense and sparse search in parallel, fuses with RRF, prunes
// with a cheap keyword-overlap pre-filter, then reranks the survivors.
func (r *Retriever) Search(ctx context.Context, q Query) ([]FusedHit, error) {
	type result struct {
		hits []Hit
		err  error
	}
	denseCh := make(chan result, 1)
	sparseCh := make(chan result, 1)

	go func() {
		hits, err := r.dense.Search(ctx, q)
		denseCh <- result{hits, err}
	}()
	go func() {
		hits, err := r.sparse.Search(ctx, q)
		sparseCh <- result{hits, err}
	}()

	denseRes := <-denseCh
	sparseRes := <-sparseCh
	if denseRes.err != nil && sparseRes.err != nil {
		return nil, denseRes.err
	}

	fused := FuseRRFWithK(denseRes.hits, sparseRes.hits, r.k1, r.rrfK)
	prefiltered := prefilter(q.Text, fused, r.k2)

	candidates := make([]Hit, len(prefiltered))
	for i, f := range prefiltered {
		candidates[i] = Hit{DocID: f.DocID, Text: f.Text, Score: f.FusedScore}
	}

	reranked, err := r.reranker.Score(ctx, q.Text, candidates)
	if err != nil {
		return prefiltered, nil // degrade to the pre-rerank order rather than fail the turn
	}

	sort.SliceStable(reranked, func(i, j int) bool {
		if reranked[i].FusedScore != reranked[j].FusedScore {
			return reranked[i].FusedScore > reranked[j].FusedScore
		}
		return reranked[i].DocID < reranked[j].DocID
	})
	return reranked, nil
}

// prefilter is the cheap keyword-overlap pre-filter that prunes the K1
// fused list to K2 candidates before the expensive cross-encoder rerank
// runs. Early-exit-per-layer reranking is deliberately not attempted.
func prefilter(query string, hits []FusedHit, k2 int) []FusedHit {
	queryWords := wordSet(query)

	type scored struct {
		hit     FusedHit
		overlap int
	}
	scoredHits := make([]scored, len(hits))
	for i, h := range hits {
		scoredHits[i] = scored{hit: h, overlap: overlapCount(queryWords, wordSet(h.Text))}
	}
	sort.SliceStable(scoredHits, func(i, j int) bool {
		if scoredHits[i].overlap != scoredHits[j].overlap {
			return scoredHits[i].overlap > scoredHits[j].overlap
		}
		return scoredHits[i].hit.FusedScore > scoredHits[j].hit.FusedScore
	})

	if k2 > len(scoredHits) {
		k2 = len(scoredHits)
	}
	out := make([]FusedHit, k2)
	for i := 0; i < k2; i++ {
		out[i] = scoredHits[i].hit
	}
	return out
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
