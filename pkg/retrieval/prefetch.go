package retrieval

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"math"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"
)

// minPartialTokens is N in "when the STT emits its first partial with >= N
// tokens, speculatively invoke the retriever."
const minPartialTokens = 3

// cosineReuseThreshold is the maximum embedding cosine distance between a
// cached partial and the final transcript for the prefetched result to be
// reused rather than discarded and re-issued.
const cosineReuseThreshold = 0.1

// Embedder produces the vector used to decide whether a prefetched result
// is still relevant to the finalized transcript.
type Embedder func(ctx context.Context, text string) ([]float32, error)

type prefetchEntry struct {
	partialText string
	embedding   []float32
	hits        []FusedHit
}

// PrefetchCache speculatively runs retrieval against an in-progress partial
// transcript, keyed by (session_id, partial_hash), and lets the caller
// decide at finalization whether the cached result is still close enough
// to reuse.
type PrefetchCache struct {
	retriever *Retriever
	embed     Embedder

	group singleflight.Group
	mu    sync.Mutex
	byKey map[string]*prefetchEntry
}

// NewPrefetchCache wires a cache around the retriever it speculatively
// calls and the embedder used for the reuse/discard decision.
func NewPrefetchCache(retriever *Retriever, embed Embedder) *PrefetchCache {
	return &PrefetchCache{retriever: retriever, embed: embed, byKey: make(map[string]*prefetchEntry)}
}

func cacheKey(sessionID, partial string) string {
	sum := sha256.Sum256([]byte(partial))
	return sessionID + ":" + hex.EncodeToString(sum[:8])
}

// PrefetchPartial speculatively issues retrieval for a partial transcript
// once it has at least minPartialTokens words. Concurrent calls for the
// same (session, partial) are deduplicated via singleflight.
func (c *PrefetchCache) PrefetchPartial(ctx context.Context, sessionID, partial string, tokenCount int) {
	if tokenCount < minPartialTokens {
		return
	}
	key := cacheKey(sessionID, partial)

	go func() {
		_, _, _ = c.group.Do(key, func() (any, error) {
			hits, err := c.retriever.Search(ctx, Query{SessionID: sessionID, Text: partial, TopK: c.retriever.k1})
			if err != nil {
				return nil, err
			}
			emb, embErr := c.embed(ctx, partial)
			entry := &prefetchEntry{partialText: partial, hits: hits}
			if embErr == nil {
				entry.embedding = emb
			}
			c.mu.Lock()
			c.byKey[key] = entry
			c.mu.Unlock()
			return nil, nil
		})
	}()
}

// Resolve returns the prefetched result for sessionID if one exists whose
// partial is within cosineReuseThreshold of finalText's embedding;
// otherwise it reports a cache miss so the caller re-issues Search against
// finalText.
func (c *PrefetchCache) Resolve(ctx context.Context, sessionID, finalText string) ([]FusedHit, bool) {
	finalEmb, err := c.embed(ctx, finalText)
	if err != nil {
		return nil, false
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for key, entry := range c.byKey {
		if !strings.HasPrefix(key, sessionID+":") || entry.embedding == nil {
			continue
		}
		if cosineDistance(entry.embedding, finalEmb) <= cosineReuseThreshold {
			return entry.hits, true
		}
	}
	return nil, false
}

func cosineDistance(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 1
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 1
	}
	similarity := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	return 1 - similarity
}
