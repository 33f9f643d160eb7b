package api

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/helmai/voice-server/internal/domain"
	"github.com/helmai/voice-server/internal/store"
)

// GetFlights searches flights by optional origin/destination query
// parameters.
func (h *Handler) GetFlights(w http.ResponseWriter, r *http.Request) {
	origin := r.URL.Query().Get("departure")
	destination := r.URL.Query().Get("destination")

	flights, err := h.repo.SearchFlights(r.Context(), origin, destination)
	if err != nil {
		h.logger.Error("Flight search failed", "error", err)
		Error(w, http.StatusInternalServerError, "Failed to search flights")
		return
	}
	if flights == nil {
		flights = []domain.Flight{}
	}

	JSON(w, http.StatusOK, map[string]any{
		"success": true,
		"data":    flights,
		"searchParams": map[string]string{
			"departure":   origin,
			"destination": destination,
		},
		"totalResults": len(flights),
	})
}

type confirmBookingRequest struct {
	UserID   string `json:"userId"`
	FlightID string `json:"flightId"`
}

// ConfirmBooking books a flight for a user.
func (h *Handler) ConfirmBooking(w http.ResponseWriter, r *http.Request) {
	var req confirmBookingRequest
	if err := decodeJSON(r, &req); err != nil {
		Error(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	if req.UserID == "" || req.FlightID == "" {
		Error(w, http.StatusBadRequest, "userId and flightId are required")
		return
	}

	booking, err := h.repo.ConfirmBooking(r.Context(), req.UserID, req.FlightID)
	if err != nil {
		h.logger.Error("Booking confirmation failed",
			"userId", req.UserID, "flightId", req.FlightID, "error", err)
		Error(w, http.StatusInternalServerError, "Failed to confirm booking")
		return
	}

	JSON(w, http.StatusOK, map[string]any{
		"success": true,
		"data":    booking,
		"message": "Booking confirmed successfully",
	})
}

// UpcomingTrips lists a user's confirmed bookings, earliest first.
// This is the endpoint the dialogue cancellation flow consumes.
func (h *Handler) UpcomingTrips(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	trips, err := h.repo.UpcomingTrips(r.Context(), userID)
	if err != nil {
		h.logger.Error("Trip lookup failed", "userId", userID, "error", err)
		Error(w, http.StatusInternalServerError, "Failed to fetch trips")
		return
	}
	if trips == nil {
		trips = []domain.Trip{}
	}

	JSON(w, http.StatusOK, map[string]any{
		"success": true,
		"userId":  userID,
		"trips":   trips,
	})
}

// CancelBooking cancels a confirmed booking by id.
func (h *Handler) CancelBooking(w http.ResponseWriter, r *http.Request) {
	bookingID := chi.URLParam(r, "bookingID")

	ok, err := h.repo.CancelBooking(r.Context(), bookingID)
	if err != nil {
		h.logger.Error("Booking cancellation failed", "bookingId", bookingID, "error", err)
		Error(w, http.StatusInternalServerError, "Failed to cancel booking")
		return
	}
	if !ok {
		JSON(w, http.StatusNotFound, map[string]any{
			"success":   false,
			"status":    "not_found",
			"bookingId": bookingID,
			"error":     "No confirmed booking with that id",
		})
		return
	}

	JSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"status":    domain.BookingCancelled,
		"bookingId": bookingID,
		"message":   "Booking cancelled successfully",
	})
}

// GetUsers lists registered users.
func (h *Handler) GetUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.repo.ListUsers(r.Context())
	if err != nil {
		h.logger.Error("User listing failed", "error", err)
		Error(w, http.StatusInternalServerError, "Failed to list users")
		return
	}
	if users == nil {
		users = []domain.User{}
	}

	JSON(w, http.StatusOK, map[string]any{
		"success": true,
		"data":    users,
	})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login verifies credentials and issues an opaque session token.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		Error(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	if req.Email == "" || req.Password == "" {
		Error(w, http.StatusBadRequest, "email and password are required")
		return
	}

	user, err := h.repo.Login(r.Context(), req.Email, req.Password)
	if errors.Is(err, store.ErrInvalidCredentials) {
		Error(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}
	if err != nil {
		h.logger.Error("Login failed", "email", req.Email, "error", err)
		Error(w, http.StatusInternalServerError, "Failed to log in")
		return
	}

	JSON(w, http.StatusOK, map[string]any{
		"success": true,
		"data": map[string]any{
			"token":     fmt.Sprintf("tok_%d", time.Now().UnixMilli()),
			"user":      user,
			"expiresIn": "24h",
		},
		"message": "Login successful",
	})
}
