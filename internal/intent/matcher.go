package intent

import (
	"context"
	"fmt"
	"log/slog"
)

// IntentOthers is the fallback label when nothing matches well enough.
const IntentOthers = "others"

// queryK mirrors the remote index's original page size; only the best
// hit decides the classification.
const queryK = 10

// Classification is the outcome of one classify call.
type Classification struct {
	Intent      string  `json:"intent"`
	Confidence  float32 `json:"confidence"`
	Category    string  `json:"category,omitempty"`
	Priority    string  `json:"priority,omitempty"`
	MatchedText string  `json:"matchedText,omitempty"`
}

// Stats summarizes the index contents.
type Stats struct {
	DocumentCount int            `json:"documentCount"`
	Intents       map[string]int `json:"intents,omitempty"`
}

// Matcher combines the embedding gateway and an index backend into the
// classify surface used by the dialogue layer.
type Matcher struct {
	embedder         Embedder
	index            Index
	logger           *slog.Logger
	defaultThreshold float32
}

// NewMatcher creates a matcher over the given embedder and index.
func NewMatcher(embedder Embedder, index Index, defaultThreshold float32, logger *slog.Logger) *Matcher {
	if logger == nil {
		logger = slog.Default()
	}
	if defaultThreshold <= 0 {
		defaultThreshold = 0.3
	}
	return &Matcher{
		embedder:         embedder,
		index:            index,
		logger:           logger,
		defaultThreshold: defaultThreshold,
	}
}

// DefaultThreshold returns the configured classification threshold.
func (m *Matcher) DefaultThreshold() float32 {
	return m.defaultThreshold
}

// Classify embeds text and returns the best-matching intent, or the
// "others" fallback when the index is empty, the best score is below
// threshold, or classification degrades because a collaborator failed.
// It never returns an error: a failed classification must not fail the
// dialogue turn.
func (m *Matcher) Classify(ctx context.Context, text string, threshold float32) Classification {
	if threshold <= 0 {
		threshold = m.defaultThreshold
	}

	fallback := Classification{Intent: IntentOthers, Confidence: 0}

	vector, err := m.embedder.Embed(ctx, text)
	if err != nil {
		m.logger.Warn("Embedding failed, falling back to others", "error", err)
		return fallback
	}

	matches, err := m.index.Query(ctx, vector, queryK)
	if err != nil {
		m.logger.Warn("Index query failed, falling back to others", "error", err)
		return fallback
	}
	if len(matches) == 0 {
		return fallback
	}

	best := matches[0]
	if best.Score < threshold {
		// Keep the score visible so callers can see how close it was.
		return Classification{Intent: IntentOthers, Confidence: best.Score}
	}

	return Classification{
		Intent:      best.Intent,
		Confidence:  best.Score,
		Category:    best.Category,
		Priority:    best.Priority,
		MatchedText: best.Text,
	}
}

// Add embeds one document and stores it.
func (m *Matcher) Add(ctx context.Context, doc Document) error {
	vector, err := m.embedder.Embed(ctx, doc.Text)
	if err != nil {
		return fmt.Errorf("embed document %s: %w", doc.ID, err)
	}
	doc.Vector = vector
	return m.index.Upsert(ctx, doc)
}

// AddBatch embeds and stores documents independently: a failed
// embedding or upsert marks only that document as errored.
func (m *Matcher) AddBatch(ctx context.Context, docs []Document) []UpsertStatus {
	statuses := make([]UpsertStatus, 0, len(docs))
	for _, doc := range docs {
		if err := m.Add(ctx, doc); err != nil {
			statuses = append(statuses, UpsertStatus{ID: doc.ID, Status: "error", Error: err.Error()})
			continue
		}
		statuses = append(statuses, UpsertStatus{ID: doc.ID, Status: "success"})
	}
	return statuses
}

// Clear empties the index.
func (m *Matcher) Clear(ctx context.Context) error {
	return m.index.Clear(ctx)
}

// Stats reports index contents. Per-intent counts are available only
// from the in-memory backend.
func (m *Matcher) Stats(ctx context.Context) (Stats, error) {
	count, err := m.index.Count(ctx)
	if err != nil {
		return Stats{}, err
	}
	stats := Stats{DocumentCount: count}
	if mem, ok := m.index.(*MemoryIndex); ok {
		stats.Intents = mem.IntentCounts()
	}
	return stats, nil
}
