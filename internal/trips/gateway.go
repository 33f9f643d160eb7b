// Package trips talks to the booking-management service on behalf of
// the dialogue layer.
package trips

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/helmai/voice-server/internal/domain"
)

// Gateway exposes the two booking-management operations the dialogue
// flows need.
type Gateway interface {
	UpcomingTrips(ctx context.Context, userID string) ([]domain.Trip, error)
	Cancel(ctx context.Context, bookingID string) (bool, error)
}

// Config holds the HTTP gateway settings.
type Config struct {
	BaseURL string
	Timeout time.Duration
}

// HTTPGateway calls the booking-management HTTP endpoints.
type HTTPGateway struct {
	cfg        Config
	httpClient *http.Client
}

var _ Gateway = (*HTTPGateway)(nil)

// NewHTTPGateway creates a gateway for the configured base URL.
func NewHTTPGateway(cfg Config) *HTTPGateway {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &HTTPGateway{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
}

type tripsResponse struct {
	Success bool          `json:"success"`
	Trips   []domain.Trip `json:"trips"`
}

type cancelResponse struct {
	Success bool   `json:"success"`
	Status  string `json:"status"`
}

// UpcomingTrips fetches the user's upcoming trips.
func (g *HTTPGateway) UpcomingTrips(ctx context.Context, userID string) ([]domain.Trip, error) {
	url := fmt.Sprintf("%s/api/bookings/trips/%s", g.cfg.BaseURL, userID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create trips request: %w", err)
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch trips: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("trips endpoint returned status %d: %s",
			resp.StatusCode, bytes.TrimSpace(body))
	}

	var parsed tripsResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode trips response: %w", err)
	}
	return parsed.Trips, nil
}

// Cancel cancels a booking by id. The boolean reports whether the
// remote side acknowledged the cancellation.
func (g *HTTPGateway) Cancel(ctx context.Context, bookingID string) (bool, error) {
	url := fmt.Sprintf("%s/api/bookings/%s/cancel", g.cfg.BaseURL, bookingID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, nil)
	if err != nil {
		return false, fmt.Errorf("create cancel request: %w", err)
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("cancel booking: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return false, fmt.Errorf("cancel endpoint returned status %d: %s",
			resp.StatusCode, bytes.TrimSpace(body))
	}

	var parsed cancelResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return false, fmt.Errorf("decode cancel response: %w", err)
	}
	return parsed.Success && parsed.Status == domain.BookingCancelled, nil
}
