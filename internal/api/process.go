package api

import "net/http"

type processRequest struct {
	Text   string `json:"text"`
	UserID string `json:"userId"`
}

// VoiceProcess classifies an utterance and drives the dialogue machine.
func (h *Handler) VoiceProcess(w http.ResponseWriter, r *http.Request) {
	var req processRequest
	if err := decodeJSON(r, &req); err != nil {
		Error(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	if req.Text == "" {
		Error(w, http.StatusBadRequest, "Text is required")
		return
	}
	if req.UserID == "" {
		req.UserID = "default"
	}

	reply := h.processor.Process(r.Context(), req.Text, req.UserID)
	JSON(w, http.StatusOK, reply)
}
