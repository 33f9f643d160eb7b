// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"
	"errors"

	"github.com/helmai/voice-server/internal/domain"
)

// ErrInvalidCredentials is returned by Login when the email/password
// pair does not match a user.
var ErrInvalidCredentials = errors.New("invalid credentials")

// Repository defines the interface for the flight, user and booking
// data the service serves.
type Repository interface {
	// SearchFlights returns flights, optionally filtered by origin and
	// destination airport codes.
	SearchFlights(ctx context.Context, origin, destination string) ([]domain.Flight, error)

	// GetUser retrieves a user by their user ID. Returns (nil, nil)
	// when the user does not exist.
	GetUser(ctx context.Context, userID string) (*domain.User, error)

	// ListUsers returns all registered users.
	ListUsers(ctx context.Context) ([]domain.User, error)

	// Login verifies an email/password pair.
	Login(ctx context.Context, email, password string) (*domain.User, error)

	// ConfirmBooking books a flight for a user and returns the new
	// booking record.
	ConfirmBooking(ctx context.Context, userID, flightID string) (*domain.Booking, error)

	// UpcomingTrips returns the user's confirmed bookings as trips,
	// earliest first.
	UpcomingTrips(ctx context.Context, userID string) ([]domain.Trip, error)

	// CancelBooking cancels a confirmed booking. The boolean reports
	// whether a booking was actually cancelled.
	CancelBooking(ctx context.Context, bookingID string) (bool, error)

	// Ping verifies database connectivity.
	Ping(ctx context.Context) error

	// Close closes the database connection.
	Close() error
}
