package intent

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"

	chromem "github.com/philippgille/chromem-go"
)

const chromemCollection = "intent-vectors"

// ChromemIndex is the managed vector-index backend, built on an
// embedded chromem-go database with optional on-disk persistence.
type ChromemIndex struct {
	mu         sync.Mutex
	db         *chromem.DB
	collection *chromem.Collection
	embedFn    chromem.EmbeddingFunc
}

// Ensure ChromemIndex implements Index.
var _ Index = (*ChromemIndex)(nil)

// NewChromemIndex creates (or reopens) the vector database. persistPath
// may be empty for a purely in-process database. The embedder backs
// chromem's embedding function for text-level operations; Upsert always
// supplies precomputed vectors.
func NewChromemIndex(persistPath string, embedder Embedder) (*ChromemIndex, error) {
	var db *chromem.DB
	var err error

	if persistPath != "" {
		db, err = chromem.NewPersistentDB(filepath.Join(persistPath, "intents.gob"), false)
		if err != nil {
			return nil, fmt.Errorf("open persistent vector db: %w", err)
		}
	} else {
		db = chromem.NewDB()
	}

	embedFn := func(ctx context.Context, text string) ([]float32, error) {
		return embedder.Embed(ctx, text)
	}

	collection, err := db.GetOrCreateCollection(chromemCollection, nil, embedFn)
	if err != nil {
		return nil, fmt.Errorf("create collection: %w", err)
	}

	return &ChromemIndex{
		db:         db,
		collection: collection,
		embedFn:    embedFn,
	}, nil
}

// Upsert stores one embedded document.
func (idx *ChromemIndex) Upsert(ctx context.Context, doc Document) error {
	if doc.ID == "" {
		return fmt.Errorf("document id is required")
	}
	if len(doc.Vector) == 0 {
		return fmt.Errorf("document %s has no vector", doc.ID)
	}

	idx.mu.Lock()
	collection := idx.collection
	idx.mu.Unlock()

	err := collection.AddDocument(ctx, chromem.Document{
		ID:        doc.ID,
		Content:   doc.Text,
		Embedding: doc.Vector,
		Metadata: map[string]string{
			"intent":   doc.Intent,
			"category": doc.Category,
			"priority": doc.Priority,
		},
	})
	if err != nil {
		return fmt.Errorf("add document %s: %w", doc.ID, err)
	}
	return nil
}

// BulkUpsert stores documents independently, returning per-document
// statuses.
func (idx *ChromemIndex) BulkUpsert(ctx context.Context, docs []Document) []UpsertStatus {
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

// Query returns up to k best matches for the vector. chromem rejects
// nResults larger than the collection, so k is clamped.
func (idx *ChromemIndex) Query(ctx context.Context, vector []float32, k int) ([]Match, error) {
	idx.mu.Lock()
	collection := idx.collection
	idx.mu.Unlock()

	count := collection.Count()
	if count == 0 {
		return nil, nil
	}
	if k <= 0 || k > count {
		k = count
	}

	results, err := collection.QueryEmbedding(ctx, vector, k, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("query collection: %w", err)
	}

	matches := make([]Match, 0, len(results))
	for _, r := range results {
		matches = append(matches, Match{
			Document: Document{
				ID:       r.ID,
				Text:     r.Content,
				Intent:   r.Metadata["intent"],
				Category: r.Metadata["category"],
				Priority: r.Metadata["priority"],
			},
			Score: r.Similarity,
		})
	}
	return matches, nil
}

// Clear drops the collection and recreates it empty, so the index is
// immediately ready for new upserts.
func (idx *ChromemIndex) Clear(_ context.Context) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if err := idx.db.DeleteCollection(chromemCollection); err != nil {
		return fmt.Errorf("delete collection: %w", err)
	}
	collection, err := idx.db.GetOrCreateCollection(chromemCollection, nil, idx.embedFn)
	if err != nil {
		return fmt.Errorf("recreate collection: %w", err)
	}
	idx.collection = collection
	return nil
}

// Count returns the number of stored documents.
func (idx *ChromemIndex) Count(_ context.Context) (int, error) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	return idx.collection.Count(), nil
}
