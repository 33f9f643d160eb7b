package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"net/http"
	"time"
)

var errInvokeResponse = errors.New("agent response returned error")

// StatusError reports a non-2xx reply from the agent service.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("agent returned status %d", e.Code)
	}
	return fmt.Sprintf("agent returned status %d: %s", e.Code, e.Body)
}

// HTTPClientConfig holds configuration for the agent HTTP client.
type HTTPClientConfig struct {
	BaseURL        string
	ConnectTimeout time.Duration
	RequestTimeout time.Duration
}

// DefaultHTTPClientConfig returns default configuration.
func DefaultHTTPClientConfig() HTTPClientConfig {
	return HTTPClientConfig{
		BaseURL:        "http://localhost:9090",
		ConnectTimeout: 10 * time.Second,
		RequestTimeout: 60 * time.Second,
	}
}

// HTTPClient talks to the remote agent service over its streaming HTTP
// API. Responses arrive as newline-delimited JSON chunks.
type HTTPClient struct {
	cfg        HTTPClientConfig
	httpClient *http.Client
	logger     *slog.Logger
}

// Ensure HTTPClient implements Client.
var _ Client = (*HTTPClient)(nil)

// NewHTTPClient creates a client for the agent service. No network I/O
// happens until Health or Invoke is called.
func NewHTTPClient(cfg HTTPClientConfig, logger *slog.Logger) *HTTPClient {
	if logger == nil {
		logger = slog.Default()
	}
	def := DefaultHTTPClientConfig()
	if cfg.BaseURL == "" {
		cfg.BaseURL = def.BaseURL
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = def.ConnectTimeout
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = def.RequestTimeout
	}

	return &HTTPClient{
		cfg: cfg,
		// No client-level timeout: streamed responses outlive any fixed
		// deadline. Per-call deadlines come from the request context.
		httpClient: &http.Client{},
		logger:     logger,
	}
}

// Health issues a cheap no-op request against the service.
func (c *HTTPClient) Health(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.ConnectTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("create health request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &StatusError{Code: resp.StatusCode, Body: string(bytes.TrimSpace(body))}
	}
	return nil
}

type invokeRequest struct {
	AliasID    string `json:"aliasId"`
	SessionID  string `json:"sessionId"`
	InputText  string `json:"inputText"`
	EndSession bool   `json:"endSession"`
}

type invokeChunk struct {
	Text      string            `json:"text"`
	Citations []json.RawMessage `json:"citations,omitempty"`
	Error     string            `json:"error,omitempty"`
}

// Invoke sends one turn and yields streamed chunks until the server
// closes the stream.
func (c *HTTPClient) Invoke(ctx context.Context, in InvokeInput) iter.Seq2[*Chunk, error] {
	return func(yield func(*Chunk, error) bool) {
		ctx, cancel := context.WithTimeout(ctx, c.cfg.RequestTimeout)
		defer cancel()

		payload, err := json.Marshal(invokeRequest{
			AliasID:    in.AliasID,
			SessionID:  in.SessionID,
			InputText:  in.Text,
			EndSession: in.EndSession,
		})
		if err != nil {
			yield(nil, fmt.Errorf("marshal invoke request: %w", err))
			return
		}

		url := fmt.Sprintf("%s/api/agents/%s/invoke", c.cfg.BaseURL, in.AgentID)
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
		if err != nil {
			yield(nil, fmt.Errorf("create invoke request: %w", err))
			return
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/x-ndjson")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			yield(nil, fmt.Errorf("invoke request failed: %w", err))
			return
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
			yield(nil, &StatusError{Code: resp.StatusCode, Body: string(bytes.TrimSpace(body))})
			return
		}

		dec := json.NewDecoder(resp.Body)
		for {
			var chunk invokeChunk
			if err := dec.Decode(&chunk); err != nil {
				if errors.Is(err, io.EOF) {
					return
				}
				yield(nil, fmt.Errorf("decode agent stream: %w", err))
				return
			}

			if chunk.Error != "" {
				yield(nil, fmt.Errorf("%w: %s", errInvokeResponse, chunk.Error))
				return
			}

			if !yield(&Chunk{Text: chunk.Text, Citations: chunk.Citations}, nil) {
				return
			}
		}
	}
}

// Close releases resources held by the client.
func (c *HTTPClient) Close() {
	c.httpClient.CloseIdleConnections()
}
