package retrieval

import "sort"

// DefaultRRFK is the standard Reciprocal Rank Fusion constant (k=60), used
// when a caller has no `retrieval.rrf_k` override configured.
const DefaultRRFK = 60

// FuseRRF combines dense and sparse candidate lists into one ranked list
// using Reciprocal Rank Fusion with the default k, truncated to topK. Ties
// are broken stably on DocID.
func FuseRRF(dense, sparse []Hit, topK int) []FusedHit {
	return FuseRRFWithK(dense, sparse, topK, DefaultRRFK)
}

// FuseRRFWithK is FuseRRF with an explicit RRF k constant, so
// `retrieval.rrf_k` from configuration can override the standard value.
func FuseRRFWithK(dense, sparse []Hit, topK, k int) []FusedHit {
	if k <= 0 {
		k = DefaultRRFK
	}
	scores := make(map[string]float64)
	texts := make(map[string]string)

	accumulate := func(hits []Hit) {
		for rank, h := range hits {
			scores[h.DocID] += 1.0 / float64(k+rank+1)
			texts[h.DocID] = h.Text
		}
	}
	accumulate(dense)
	accumulate(sparse)

	out := make([]FusedHit, 0, len(scores))
	for id, score := range scores {
		out = append(out, FusedHit{DocID: id, Text: texts[id], FusedScore: score})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].FusedScore != out[j].FusedScore {
			return out[i].FusedScore > out[j].FusedScore
		}
		return out[i].DocID < out[j].DocID
	})

	if topK > 0 && len(out) > topK {
		out = out[:topK]
	}
	return out
}
