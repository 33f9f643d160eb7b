package agent

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"strings"
	"syscall"
	"time"

	"github.com/helmai/voice-server/internal/session"
)

var errNoClient = errors.New("agent client not connected")

// InvokerConfig holds per-call retry settings.
type InvokerConfig struct {
	AgentID    string
	AliasID    string
	MaxRetries int
	RetryBase  time.Duration
	RetryCap   time.Duration
}

// DefaultInvokerConfig returns default retry settings.
func DefaultInvokerConfig() InvokerConfig {
	return InvokerConfig{
		MaxRetries: 3,
		RetryBase:  time.Second,
		RetryCap:   10 * time.Second,
	}
}

// Invoker sends user turns to the remote agent through the connection
// manager, retrying retryable failures with exponential backoff.
type Invoker struct {
	cfg      InvokerConfig
	conn     *ConnManager
	sessions *session.Store
	logger   *slog.Logger

	// sleep is replaced in tests to avoid real backoff delays.
	sleep func(time.Duration)
}

// NewInvoker creates an invoker on top of a connection manager and
// session store.
func NewInvoker(cfg InvokerConfig, conn *ConnManager, sessions *session.Store, logger *slog.Logger) *Invoker {
	if logger == nil {
		logger = slog.Default()
	}
	def := DefaultInvokerConfig()
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = def.MaxRetries
	}
	if cfg.RetryBase <= 0 {
		cfg.RetryBase = def.RetryBase
	}
	if cfg.RetryCap <= 0 {
		cfg.RetryCap = def.RetryCap
	}

	return &Invoker{
		cfg:      cfg,
		conn:     conn,
		sessions: sessions,
		logger:   logger,
		sleep:    time.Sleep,
	}
}

// Invoke sends one user turn to the remote agent. The result is always
// a well-formed envelope; failures never surface as errors.
func (inv *Invoker) Invoke(ctx context.Context, prompt, userID string) Result {
	if userID == "" {
		userID = "default"
	}

	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return Result{
			Success:          false,
			Error:            "Prompt cannot be empty",
			UserID:           userID,
			ConnectionStatus: inv.connectionStatus(),
			Timestamp:        time.Now().UTC(),
		}
	}
	if inv.cfg.AgentID == "" {
		return Result{
			Success:          false,
			Error:            "Agent is not configured. Set AGENT_ID.",
			UserID:           userID,
			ConnectionStatus: inv.connectionStatus(),
			Timestamp:        time.Now().UTC(),
		}
	}

	if !inv.conn.Healthy() {
		inv.logger.Info("Connection unhealthy before invoke, reconnecting", "user_id", userID)
		//nolint:errcheck // an unhealthy connection is handled by the retry loop below
		inv.conn.Reconnect(ctx)
	}

	sess := inv.sessions.IncrementMessages(userID)
	start := time.Now()

	var lastErr error
	attempt := 0
	for {
		response, citations, err := inv.invokeOnce(ctx, prompt, sess.ID)
		if err == nil {
			inv.conn.MarkHealthy()
			return Result{
				Success:          true,
				Response:         response,
				SessionID:        sess.ID,
				MessageCount:     sess.MessageCount,
				UserID:           userID,
				Citations:        citations,
				ProcessingTimeMs: time.Since(start).Milliseconds(),
				RetryCount:       attempt,
				ConnectionStatus: "healthy",
				Timestamp:        time.Now().UTC(),
			}
		}

		lastErr = err
		inv.conn.MarkUnhealthy()
		inv.logger.Warn("Agent invoke failed",
			"user_id", userID,
			"attempt", attempt+1,
			"retryable", isRetryable(err),
			"error", err,
		)

		if !isRetryable(err) || attempt >= inv.cfg.MaxRetries {
			break
		}

		delay := backoffDelay(inv.cfg.RetryBase, inv.cfg.RetryCap, attempt)
		inv.sleep(delay)
		//nolint:errcheck // a failed reconnect surfaces on the next invoke attempt
		inv.conn.Reconnect(ctx)
		attempt++
	}

	return Result{
		Success:          false,
		Error:            humanizeError(lastErr),
		SessionID:        sess.ID,
		MessageCount:     sess.MessageCount,
		UserID:           userID,
		ProcessingTimeMs: time.Since(start).Milliseconds(),
		RetryCount:       attempt,
		ConnectionStatus: inv.connectionStatus(),
		Timestamp:        time.Now().UTC(),
	}
}

// invokeOnce issues a single call and aggregates the streamed chunks.
func (inv *Invoker) invokeOnce(ctx context.Context, prompt, sessionID string) (string, []json.RawMessage, error) {
	client := inv.conn.Client()
	if client == nil {
		return "", nil, errNoClient
	}

	var full strings.Builder
	var citations []json.RawMessage

	for chunk, err := range client.Invoke(ctx, InvokeInput{
		AgentID:   inv.cfg.AgentID,
		AliasID:   inv.cfg.AliasID,
		SessionID: sessionID,
		Text:      prompt,
	}) {
		if err != nil {
			return "", nil, err
		}
		full.WriteString(chunk.Text)
		citations = append(citations, chunk.Citations...)
	}

	response := strings.TrimSpace(full.String())
	if response == "" {
		response = "No response from agent"
	}
	return response, citations, nil
}

func (inv *Invoker) connectionStatus() string {
	if inv.conn.Healthy() {
		return "healthy"
	}
	return "reconnecting"
}

// isRetryable classifies an error as a transient transport failure:
// network resets, timeouts, DNS failures, and HTTP 5xx.
func isRetryable(err error) bool {
	if err == nil {
		return false
	}

	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Code >= 500
	}

	if errors.Is(err, errNoClient) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) {
		return true
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	msg := err.Error()
	return strings.Contains(msg, "timeout") || strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "connection reset")
}

// humanizeError maps known failure classes to actionable messages.
func humanizeError(err error) string {
	if err == nil {
		return "Unknown error occurred"
	}

	var statusErr *StatusError
	if errors.As(err, &statusErr) && statusErr.Code == 400 {
		switch {
		case strings.Contains(statusErr.Body, "agent not found"):
			return "Agent not found. Check your AGENT_ID."
		case strings.Contains(statusErr.Body, "alias not found"):
			return "Agent alias not found. Check your AGENT_ALIAS_ID."
		case strings.Contains(statusErr.Body, "not prepared"):
			return "Agent is not prepared. Prepare it with the provider before use."
		}
	}

	if isRetryable(err) {
		return "Agent temporarily unavailable - automatically retrying"
	}

	return err.Error()
}
