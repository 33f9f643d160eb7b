package trips

import (
	"context"

	"github.com/helmai/voice-server/internal/domain"
	"github.com/helmai/voice-server/internal/store"
)

// LocalGateway serves trips straight from the repository, used when no
// external booking-management service is configured.
type LocalGateway struct {
	repo store.Repository
}

var _ Gateway = (*LocalGateway)(nil)

// NewLocalGateway creates a repository-backed gateway.
func NewLocalGateway(repo store.Repository) *LocalGateway {
	return &LocalGateway{repo: repo}
}

// UpcomingTrips returns the user's confirmed bookings as trips.
func (g *LocalGateway) UpcomingTrips(ctx context.Context, userID string) ([]domain.Trip, error) {
	return g.repo.UpcomingTrips(ctx, userID)
}

// Cancel cancels a booking by id.
func (g *LocalGateway) Cancel(ctx context.Context, bookingID string) (bool, error) {
	return g.repo.CancelBooking(ctx, bookingID)
}
