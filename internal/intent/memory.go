package intent

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
)

// MemoryIndex is the in-process fallback backend: a mutex-guarded map
// with a cosine-similarity linear scan.
type MemoryIndex struct {
	mu   sync.RWMutex
	docs map[string]Document
}

// Ensure MemoryIndex implements Index.
var _ Index = (*MemoryIndex)(nil)

// NewMemoryIndex creates an empty in-memory index.
func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{
		docs: make(map[string]Document),
	}
}

// Upsert stores one embedded document.
func (idx *MemoryIndex) Upsert(_ context.Context, doc Document) error {
	if doc.ID == "" {
		return fmt.Errorf("document id is required")
	}
	if len(doc.Vector) == 0 {
		return fmt.Errorf("document %s has no vector", doc.ID)
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.docs[doc.ID] = doc
	return nil
}

// BulkUpsert stores documents independently, returning per-document
// statuses.
func (idx *MemoryIndex) BulkUpsert(ctx context.Context, docs []Document) []UpsertStatus {
	statuses := make([]UpsertStatus, 0, len(docs))
	for _, doc := range docs {
		if err := idx.Upsert(ctx, doc); err != nil {
			statuses = append(statuses, UpsertStatus{ID: doc.ID, Status: "error", Error: err.Error()})
			continue
		}
		statuses = append(statuses, UpsertStatus{ID: doc.ID, Status: "success"})
	}
	return statuses
}

// Query linearly scans all documents and returns the k best cosine
// matches, best first.
func (idx *MemoryIndex) Query(_ context.Context, vector []float32, k int) ([]Match, error) {
	if k <= 0 {
		k = 1
	}

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	matches := make([]Match, 0, len(idx.docs))
	for _, doc := range idx.docs {
		matches = append(matches, Match{
			Document: doc,
			Score:    cosineSimilarity(vector, doc.Vector),
		})
	}

	sort.Slice(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})
	if len(matches) > k {
		matches = matches[:k]
	}
	return matches, nil
}

// Clear removes every document. The index accepts new upserts
// immediately afterwards.
func (idx *MemoryIndex) Clear(_ context.Context) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.docs = make(map[string]Document)
	return nil
}

// Count returns the number of stored documents.
func (idx *MemoryIndex) Count(_ context.Context) (int, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.docs), nil
}

// IntentCounts returns the number of documents per intent label, used
// by the stats endpoint.
func (idx *MemoryIndex) IntentCounts() map[string]int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	counts := make(map[string]int)
	for _, doc := range idx.docs {
		counts[doc.Intent]++
	}
	return counts
}

// cosineSimilarity returns dot(a,b) / (|a| * |b|). Mismatched or
// zero-magnitude vectors score 0.
func cosineSimilarity(a, b []float32) float32 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}

	var dot, magA, magB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		magA += float64(a[i]) * float64(a[i])
		magB += float64(b[i]) * float64(b[i])
	}
	if magA == 0 || magB == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(magA) * math.Sqrt(magB)))
}
