package api

import (
	"net/http"

	"github.com/helmai/voice-server/internal/intent"
)

type recognizeRequest struct {
	Text      string  `json:"text"`
	Threshold float32 `json:"threshold"`
}

// RecognizeIntent classifies a single utterance.
func (h *Handler) RecognizeIntent(w http.ResponseWriter, r *http.Request) {
	var req recognizeRequest
	if err := decodeJSON(r, &req); err != nil {
		Error(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	if req.Text == "" {
		JSON(w, http.StatusBadRequest, map[string]any{
			"error":  "Text is required",
			"intent": intent.IntentOthers,
		})
		return
	}

	c := h.matcher.Classify(r.Context(), req.Text, req.Threshold)
	JSON(w, http.StatusOK, map[string]any{
		"success":     true,
		"query":       req.Text,
		"intent":      c.Intent,
		"confidence":  c.Confidence,
		"category":    c.Category,
		"priority":    c.Priority,
		"matchedText": c.MatchedText,
	})
}

type populateRequest struct {
	Documents []intent.Document `json:"documents"`
}

// PopulateIntents loads a corpus of intent examples into the vector
// index. Documents are embedded independently; a bad row only fails
// that row.
func (h *Handler) PopulateIntents(w http.ResponseWriter, r *http.Request) {
	var req populateRequest
	if err := decodeJSON(r, &req); err != nil {
		Error(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	if len(req.Documents) == 0 {
		Error(w, http.StatusBadRequest, "At least one document is required")
		return
	}

	statuses := h.matcher.AddBatch(r.Context(), req.Documents)

	processed := 0
	for _, s := range statuses {
		if s.Status == "success" {
			processed++
		}
	}

	stats, err := h.matcher.Stats(r.Context())
	if err != nil {
		h.logger.Warn("Failed to read index stats after populate", "error", err)
	}

	JSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"processed": processed,
		"results":   statuses,
		"stats":     stats,
	})
}

// IntentStats reports vector index contents.
func (h *Handler) IntentStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.matcher.Stats(r.Context())
	if err != nil {
		Error(w, http.StatusInternalServerError, "Failed to get stats")
		return
	}
	JSON(w, http.StatusOK, map[string]any{
		"success": true,
		"stats":   stats,
	})
}

// ClearIntents empties the vector index.
func (h *Handler) ClearIntents(w http.ResponseWriter, r *http.Request) {
	if err := h.matcher.Clear(r.Context()); err != nil {
		Error(w, http.StatusInternalServerError, "Failed to clear database")
		return
	}
	JSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Database cleared successfully",
	})
}
