// Package api provides HTTP handlers for the voice server API.
package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/helmai/voice-server/internal/agent"
	"github.com/helmai/voice-server/internal/dialogue"
	"github.com/helmai/voice-server/internal/intent"
	"github.com/helmai/voice-server/internal/session"
	"github.com/helmai/voice-server/internal/store"
)

// PromptInvoker sends a prompt to the remote agent. Satisfied by
// *agent.Invoker.
type PromptInvoker interface {
	Invoke(ctx context.Context, prompt, userID string) agent.Result
}

// StatusSource reports the agent connection state. Satisfied by
// *agent.ConnManager.
type StatusSource interface {
	Status() agent.Status
}

// Processor drives a dialogue turn. Satisfied by *dialogue.Machine.
type Processor interface {
	Process(ctx context.Context, text, userID string) *dialogue.Reply
}

// Handler provides common handler utilities and dependencies.
type Handler struct {
	invoker   PromptInvoker
	conn      StatusSource
	sessions  *session.Store
	processor Processor
	matcher   *intent.Matcher
	repo      store.Repository
	logger    *slog.Logger
}

// NewHandler creates a new Handler with common dependencies.
func NewHandler(invoker PromptInvoker, conn StatusSource, sessions *session.Store,
	processor Processor, matcher *intent.Matcher, repo store.Repository, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		invoker:   invoker,
		conn:      conn,
		sessions:  sessions,
		processor: processor,
		matcher:   matcher,
		repo:      repo,
		logger:    logger,
	}
}

// RegisterRoutes mounts all API routes on the router.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.Root)

	r.Route("/api/voice", func(r chi.Router) {
		r.Post("/prompt", h.VoicePrompt)
		r.Post("/process", h.VoiceProcess)
		r.Get("/session/{userID}", h.SessionInfo)
		r.Delete("/session/{userID}", h.EndSession)
		r.Get("/status", h.ServiceStatus)
	})

	r.Route("/api/intents", func(r chi.Router) {
		r.Post("/recognize", h.RecognizeIntent)
		r.Post("/populate", h.PopulateIntents)
		r.Get("/stats", h.IntentStats)
		r.Delete("/clear", h.ClearIntents)
	})

	r.Get("/api/flights", h.GetFlights)
	r.Post("/api/bookings/confirm", h.ConfirmBooking)
	r.Get("/api/bookings/trips/{userID}", h.UpcomingTrips)
	r.Post("/api/bookings/{bookingID}/cancel", h.CancelBooking)
	r.Get("/api/users", h.GetUsers)
	r.Post("/api/users/login", h.Login)
}

// Root serves the service banner.
func (h *Handler) Root(w http.ResponseWriter, _ *http.Request) {
	JSON(w, http.StatusOK, map[string]any{
		"message": "Helm AI Server API - Agent Integration",
		"version": "1.0.0",
		"endpoints": []string{
			"POST /api/voice/prompt - Send prompt to the agent",
			"POST /api/voice/process - Classify text and drive the dialogue",
			"GET /api/voice/session/{userId} - Get session info",
			"DELETE /api/voice/session/{userId} - End session",
			"GET /api/voice/status - Get service status",
			"POST /api/intents/recognize - Classify text",
			"POST /api/intents/populate - Load intent corpus",
			"GET /api/intents/stats - Vector index stats",
			"DELETE /api/intents/clear - Clear the vector index",
			"GET /api/flights - Search flights",
			"POST /api/bookings/confirm - Book a flight",
			"GET /api/bookings/trips/{userId} - Upcoming trips",
			"POST /api/bookings/{bookingId}/cancel - Cancel a booking",
			"GET /ws/voice - Streaming voice prompt",
		},
	})
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error": "failed to encode response"}`, http.StatusInternalServerError)
	}
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]any{"success": false, "error": message})
}

// decodeJSON parses a request body into v.
func decodeJSON(r *http.Request, v interface{}) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}
