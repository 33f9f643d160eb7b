package trips

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestHTTPGateway_UpcomingTrips(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/bookings/trips/USER001" {
			t.Errorf("Unexpected path %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"success":true,"trips":[
			{"bookingId":"BK1","confirmationNumber":"ABC123","flight":"AA456",
			 "route":"JFK → MIA","date":"2025-08-21T08:00:00Z","totalAmount":299}
		]}`))
	}))
	defer srv.Close()

	g := NewHTTPGateway(Config{BaseURL: srv.URL})
	trips, err := g.UpcomingTrips(context.Background(), "USER001")
	if err != nil {
		t.Fatalf("UpcomingTrips failed: %v", err)
	}
	if len(trips) != 1 {
		t.Fatalf("Expected 1 trip, got %d", len(trips))
	}
	if trips[0].BookingID != "BK1" || trips[0].ConfirmationNumber != "ABC123" {
		t.Errorf("Unexpected trip: %+v", trips[0])
	}
	if trips[0].Date.IsZero() {
		t.Errorf("Expected parsed date, got zero value")
	}
}

func TestHTTPGateway_UpcomingTripsServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	g := NewHTTPGateway(Config{BaseURL: srv.URL})
	if _, err := g.UpcomingTrips(context.Background(), "USER001"); err == nil {
		t.Fatal("Expected error on 500 response")
	}
}

func TestHTTPGateway_Cancel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("Expected POST, got %s", r.Method)
		}
		if r.URL.Path != "/api/bookings/BK1/cancel" {
			t.Errorf("Unexpected path %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"success":true,"status":"cancelled"}`))
	}))
	defer srv.Close()

	g := NewHTTPGateway(Config{BaseURL: srv.URL})
	ok, err := g.Cancel(context.Background(), "BK1")
	if err != nil {
		t.Fatalf("Cancel failed: %v", err)
	}
	if !ok {
		t.Error("Expected cancellation acknowledged")
	}
}

func TestHTTPGateway_CancelNonCancelledStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"success":true,"status":"pending"}`))
	}))
	defer srv.Close()

	g := NewHTTPGateway(Config{BaseURL: srv.URL})
	ok, err := g.Cancel(context.Background(), "BK1")
	if err != nil {
		t.Fatalf("Cancel failed: %v", err)
	}
	if ok {
		t.Error("Expected non-cancelled status to report false")
	}
}

func TestHTTPGateway_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	g := NewHTTPGateway(Config{BaseURL: srv.URL, Timeout: 20 * time.Millisecond})
	if _, err := g.UpcomingTrips(context.Background(), "USER001"); err == nil {
		t.Fatal("Expected timeout error")
	}
}
