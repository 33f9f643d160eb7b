package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
)

type promptRequest struct {
	Prompt string `json:"prompt"`
	UserID string `json:"userId"`
}

// VoicePrompt forwards a prompt to the agent and returns the full
// invocation result. The result itself carries success/failure; the
// HTTP status stays 200 so clients read one envelope shape.
func (h *Handler) VoicePrompt(w http.ResponseWriter, r *http.Request) {
	var req promptRequest
	if err := decodeJSON(r, &req); err != nil {
		Error(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	if req.Prompt == "" {
		JSON(w, http.StatusBadRequest, map[string]any{
			"success":   false,
			"error":     "Prompt is required",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
		return
	}

	result := h.invoker.Invoke(r.Context(), req.Prompt, req.UserID)
	JSON(w, http.StatusOK, result)
}

// SessionInfo returns the session for a user without refreshing it.
func (h *Handler) SessionInfo(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	if userID == "" {
		userID = "default"
	}

	sess, ok := h.sessions.Get(userID)
	if !ok {
		JSON(w, http.StatusNotFound, map[string]any{
			"success": false,
			"error":   "Session not found",
			"userId":  userID,
		})
		return
	}

	JSON(w, http.StatusOK, map[string]any{
		"success": true,
		"session": sess,
	})
}

// EndSession removes a user's session.
func (h *Handler) EndSession(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	if userID == "" {
		userID = "default"
	}

	ended := h.sessions.End(userID)
	message := "No active session found"
	if ended {
		message = "Session ended successfully"
	}

	JSON(w, http.StatusOK, map[string]any{
		"success":      true,
		"message":      message,
		"userId":       userID,
		"sessionEnded": ended,
	})
}

// ServiceStatus reports the agent connection state and active sessions.
func (h *Handler) ServiceStatus(w http.ResponseWriter, _ *http.Request) {
	status := h.conn.Status()
	JSON(w, http.StatusOK, map[string]any{
		"success":        true,
		"service":        "Agent Service",
		"connection":     status,
		"activeSessions": h.sessions.Len(),
		"sessions":       h.sessions.Snapshot(),
	})
}
