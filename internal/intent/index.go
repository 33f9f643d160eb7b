// Package intent implements vector-similarity intent classification
// with interchangeable index backends.
package intent

import "context"

// Document is one labeled utterance in the intent corpus. Documents are
// immutable once indexed; the corpus is append-only except for Clear.
type Document struct {
	ID       string    `json:"id"`
	Text     string    `json:"text"`
	Intent   string    `json:"intent"`
	Category string    `json:"category,omitempty"`
	Priority string    `json:"priority,omitempty"`
	Vector   []float32 `json:"-"`
}

// Match is a scored query hit.
type Match struct {
	Document
	Score float32
}

// UpsertStatus reports the outcome of one document in a bulk upsert.
type UpsertStatus struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// Index stores embedded documents and answers nearest-neighbor queries.
// Both implementations must score with cosine-similarity semantics so a
// single threshold is meaningful across backends.
type Index interface {
	// Upsert stores one document whose Vector is already populated.
	Upsert(ctx context.Context, doc Document) error

	// BulkUpsert stores documents independently and reports a
	// per-document status; one failure never aborts the rest.
	BulkUpsert(ctx context.Context, docs []Document) []UpsertStatus

	// Query returns up to k best matches for the vector, best first.
	Query(ctx context.Context, vector []float32, k int) ([]Match, error)

	// Clear removes all documents, leaving the index immediately ready
	// for new upserts.
	Clear(ctx context.Context) error

	// Count returns the number of stored documents.
	Count(ctx context.Context) (int, error)
}
