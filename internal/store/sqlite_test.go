package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
)

func newTestStore(t *testing.T) Repository {
	t.Helper()

	repo, err := NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewSQLite failed: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestSQLiteStore_SeededFlights(t *testing.T) {
	repo := newTestStore(t)
	ctx := context.Background()

	flights, err := repo.SearchFlights(ctx, "", "")
	if err != nil {
		t.Fatalf("SearchFlights failed: %v", err)
	}
	if len(flights) != 4 {
		t.Fatalf("Expected 4 seeded flights, got %d", len(flights))
	}

	toLAX, err := repo.SearchFlights(ctx, "JFK", "LAX")
	if err != nil {
		t.Fatalf("SearchFlights failed: %v", err)
	}
	if len(toLAX) != 2 {
		t.Errorf("Expected 2 JFK-LAX flights, got %d", len(toLAX))
	}
	for _, f := range toLAX {
		if f.Departure.Airport != "JFK" || f.Arrival.Airport != "LAX" {
			t.Errorf("Filter leaked flight %+v", f)
		}
	}
}

func TestSQLiteStore_GetUser(t *testing.T) {
	repo := newTestStore(t)
	ctx := context.Background()

	user, err := repo.GetUser(ctx, "U001")
	if err != nil {
		t.Fatalf("GetUser failed: %v", err)
	}
	if user == nil || user.Name != "John Doe" {
		t.Errorf("Unexpected user: %+v", user)
	}

	missing, err := repo.GetUser(ctx, "nope")
	if err != nil {
		t.Fatalf("GetUser failed: %v", err)
	}
	if missing != nil {
		t.Errorf("Expected nil for missing user, got %+v", missing)
	}
}

func TestSQLiteStore_Login(t *testing.T) {
	repo := newTestStore(t)
	ctx := context.Background()

	user, err := repo.Login(ctx, "john.doe@example.com", "password123")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if user.ID != "U001" {
		t.Errorf("Unexpected user: %+v", user)
	}

	if _, err := repo.Login(ctx, "john.doe@example.com", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("Expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := repo.Login(ctx, "nobody@example.com", "x"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("Expected ErrInvalidCredentials for unknown email, got %v", err)
	}
}

func TestSQLiteStore_ConfirmBookingAndTrips(t *testing.T) {
	repo := newTestStore(t)
	ctx := context.Background()

	booking, err := repo.ConfirmBooking(ctx, "U001", "FL001")
	if err != nil {
		t.Fatalf("ConfirmBooking failed: %v", err)
	}
	if booking.Status != "confirmed" || booking.Route != "JFK → LAX" {
		t.Errorf("Unexpected booking: %+v", booking)
	}
	if booking.TotalAmount != 299 {
		t.Errorf("Expected amount 299, got %v", booking.TotalAmount)
	}

	trips, err := repo.UpcomingTrips(ctx, "U001")
	if err != nil {
		t.Fatalf("UpcomingTrips failed: %v", err)
	}
	if len(trips) != 1 || trips[0].BookingID != booking.BookingID {
		t.Errorf("Expected the new booking as a trip, got %+v", trips)
	}
}

func TestSQLiteStore_ConfirmBookingUnknownFlight(t *testing.T) {
	repo := newTestStore(t)

	if _, err := repo.ConfirmBooking(context.Background(), "U001", "FL999"); err == nil {
		t.Fatal("Expected error for unknown flight")
	}
}

func TestSQLiteStore_CancelBooking(t *testing.T) {
	repo := newTestStore(t)
	ctx := context.Background()

	trips, err := repo.UpcomingTrips(ctx, "USER001")
	if err != nil {
		t.Fatalf("UpcomingTrips failed: %v", err)
	}
	if len(trips) != 2 {
		t.Fatalf("Expected 2 seeded trips, got %d", len(trips))
	}
	if trips[0].ConfirmationNumber != "ABC123" {
		t.Errorf("Expected earliest trip first, got %+v", trips[0])
	}

	ok, err := repo.CancelBooking(ctx, trips[0].BookingID)
	if err != nil {
		t.Fatalf("CancelBooking failed: %v", err)
	}
	if !ok {
		t.Fatal("Expected cancellation to succeed")
	}

	remaining, err := repo.UpcomingTrips(ctx, "USER001")
	if err != nil {
		t.Fatalf("UpcomingTrips failed: %v", err)
	}
	if len(remaining) != 1 {
		t.Errorf("Expected 1 trip after cancellation, got %d", len(remaining))
	}

	// Cancelling again is a no-op.
	ok, err = repo.CancelBooking(ctx, trips[0].BookingID)
	if err != nil {
		t.Fatalf("CancelBooking failed: %v", err)
	}
	if ok {
		t.Error("Expected repeat cancellation to report false")
	}
}
