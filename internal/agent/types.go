// Package agent manages the connection to the remote conversational
// agent and exposes a retrying invocation surface on top of it.
package agent

import (
	"context"
	"encoding/json"
	"iter"
	"time"
)

// InvokeInput is one user turn sent to the remote agent.
type InvokeInput struct {
	AgentID    string
	AliasID    string
	SessionID  string
	Text       string
	EndSession bool
}

// Chunk is one streamed fragment of the agent's response.
type Chunk struct {
	Text      string            `json:"text"`
	Citations []json.RawMessage `json:"citations,omitempty"`
}

// Client is the narrow interface to the remote agent service.
type Client interface {
	// Invoke sends one turn and yields response chunks as they arrive.
	Invoke(ctx context.Context, in InvokeInput) iter.Seq2[*Chunk, error]

	// Health issues a cheap validation request.
	Health(ctx context.Context) error

	// Close releases resources.
	Close()
}

// Result is the normalized envelope returned for every invocation.
// Failures are reported in-band; Invoke never returns an error.
type Result struct {
	Success          bool              `json:"success"`
	Response         string            `json:"response,omitempty"`
	Error            string            `json:"error,omitempty"`
	SessionID        string            `json:"sessionId"`
	MessageCount     int               `json:"messageCount"`
	UserID           string            `json:"userId"`
	Citations        []json.RawMessage `json:"citations,omitempty"`
	ProcessingTimeMs int64             `json:"processingTimeMs"`
	RetryCount       int               `json:"retryCount"`
	ConnectionStatus string            `json:"connectionStatus"`
	Timestamp        time.Time         `json:"timestamp"`
}

// Status is a point-in-time snapshot of the connection state.
type Status struct {
	Initialized              bool       `json:"initialized"`
	Healthy                  bool       `json:"connectionHealthy"`
	ReconnectAttempts        int        `json:"reconnectAttempts"`
	LastSuccessfulConnection *time.Time `json:"lastSuccessfulConnection,omitempty"`
}
