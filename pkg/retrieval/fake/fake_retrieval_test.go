package fake

import (
	"context"
	"testing"

	"github.com/goldvox/agentcore/pkg/retrieval"
)

func TestIndexSearchRanksByKeywordOverlap(t *testing.T) {
	idx := New(
		Doc{ID: "house-rate", Text: "our house annual interest rate is 9.5 percent"},
		Doc{ID: "unrelated", Text: "branch hours are 10am to 6pm"},
	)
	hits, err := idx.Search(context.Background(), retrieval.Query{Text: "what is the house interest rate", TopK: 5})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(hits) == 0 || hits[0].DocID != "house-rate" {
		t.Fatalf("hits = %+v, want house-rate ranked first", hits)
	}
}

func TestEmbedIsDeterministicAndOverlapSensitive(t *testing.T) {
	a, _ := Embed(context.Background(), "mera 5 lakh ka loan hai")
	b, _ := Embed(context.Background(), "mera 5 lakh ka loan hai")
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("Embed() is not deterministic: %v vs %v", a, b)
		}
	}

	c, _ := Embed(context.Background(), "completely unrelated text about branch hours")
	var sharedDims int
	for i := range a {
		if a[i] > 0 && c[i] > 0 {
			sharedDims++
		}
	}
	if sharedDims == len(a) {
		t.Error("expected dissimilar text to not fill every dimension shared with the original")
	}
}
