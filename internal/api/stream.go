package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/coder/websocket"

	"github.com/helmai/voice-server/internal/agent"
	"github.com/helmai/voice-server/internal/session"
)

// StreamHandler serves the websocket voice endpoint: one prompt per
// message in, agent chunks streamed back, then a final envelope.
type StreamHandler struct {
	conn          *agent.ConnManager
	sessions      *session.Store
	agentID       string
	aliasID       string
	allowedOrigin string
	isDev         bool
	logger        *slog.Logger
}

// NewStreamHandler creates a websocket handler over the shared
// connection manager and session store.
func NewStreamHandler(conn *agent.ConnManager, sessions *session.Store,
	agentID, aliasID, allowedOrigin string, isDev bool, logger *slog.Logger) *StreamHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &StreamHandler{
		conn:          conn,
		sessions:      sessions,
		agentID:       agentID,
		aliasID:       aliasID,
		allowedOrigin: allowedOrigin,
		isDev:         isDev,
		logger:        logger,
	}
}

type streamRequest struct {
	Prompt string `json:"prompt"`
	UserID string `json:"userId"`
}

type streamFrame struct {
	Type      string `json:"type"`
	Text      string `json:"text,omitempty"`
	Error     string `json:"error,omitempty"`
	SessionID string `json:"sessionId,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
}

// ServeHTTP implements http.Handler for WebSocket upgrade.
func (h *StreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !h.checkOrigin(r) {
		http.Error(w, "origin not allowed", http.StatusForbidden)
		return
	}

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		h.logger.Error("Failed to accept WebSocket", "error", err)
		return
	}
	defer func() {
		if closeErr := ws.Close(websocket.StatusNormalClosure, "done"); closeErr != nil {
			h.logger.Debug("Failed to close websocket", "error", closeErr)
		}
	}()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	for {
		_, message, err := ws.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) != -1 {
				h.logger.Debug("WebSocket closed by client")
			} else if ctx.Err() == nil {
				h.logger.Warn("WebSocket read error", "error", err)
			}
			return
		}

		var req streamRequest
		if err := json.Unmarshal(message, &req); err != nil || req.Prompt == "" {
			h.writeFrame(ctx, ws, streamFrame{Type: "error", Error: "prompt is required"})
			continue
		}
		if req.UserID == "" {
			req.UserID = "default"
		}

		h.streamPrompt(ctx, ws, req)
	}
}

// streamPrompt invokes the agent and forwards each chunk as its own
// frame, then a final frame. Streaming does not retry: a broken stream
// surfaces as an error frame and the client decides whether to resend.
func (h *StreamHandler) streamPrompt(ctx context.Context, ws *websocket.Conn, req streamRequest) {
	client := h.conn.Client()
	if client == nil {
		h.writeFrame(ctx, ws, streamFrame{Type: "error", Error: "agent connection not ready"})
		return
	}

	sess := h.sessions.IncrementMessages(req.UserID)
	h.writeFrame(ctx, ws, streamFrame{Type: "start", SessionID: sess.ID})

	in := agent.InvokeInput{
		AgentID:   h.agentID,
		AliasID:   h.aliasID,
		SessionID: sess.ID,
		Text:      req.Prompt,
	}

	for chunk, err := range client.Invoke(ctx, in) {
		if err != nil {
			h.conn.MarkUnhealthy()
			h.writeFrame(ctx, ws, streamFrame{Type: "error", Error: err.Error()})
			return
		}
		if chunk.Text != "" {
			h.writeFrame(ctx, ws, streamFrame{Type: "chunk", Text: chunk.Text})
		}
	}

	h.conn.MarkHealthy()
	h.writeFrame(ctx, ws, streamFrame{
		Type:      "done",
		SessionID: sess.ID,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

func (h *StreamHandler) writeFrame(ctx context.Context, ws *websocket.Conn, frame streamFrame) {
	data, err := json.Marshal(frame)
	if err != nil {
		h.logger.Error("Failed to marshal frame", "error", err)
		return
	}
	if err := ws.Write(ctx, websocket.MessageText, data); err != nil {
		h.logger.Debug("WebSocket write error", "error", err)
	}
}

func (h *StreamHandler) checkOrigin(r *http.Request) bool {
	if h.isDev {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" || h.allowedOrigin == "*" || origin == h.allowedOrigin {
		return true
	}
	h.logger.Warn("WebSocket origin rejected", "origin", origin, "allowed", h.allowedOrigin)
	return false
}
