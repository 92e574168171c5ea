package retrieval

import "context"

type memIndex struct {
	hits []Hit
}

func (m memIndex) Search(ctx context.Context, q Query) ([]Hit, error) {
	return m.hits, nil
}

type passthroughReranker struct{}

func (passthroughReranker) Score(ctx context.Context, query string, candidates []Hit) ([]FusedHit, error) {
	out := make([]FusedHit, len(candidates))
	for i, c := range candidates {
		out[i] = FusedHit{DocID: c.DocID, Text: c.Text, FusedScore: c.Score}
	}
	return out, nil
}
