package domain

import "time"

// Booking is a confirmed reservation for a user.
type Booking struct {
	BookingID          string    `json:"bookingId"`
	UserID             string    `json:"userId"`
	ConfirmationNumber string    `json:"confirmationNumber"`
	FlightNumber       string    `json:"flightNumber"`
	Route              string    `json:"route"`
	Date               time.Time `json:"date"`
	Status             string    `json:"status"`
	TotalAmount        float64   `json:"totalAmount"`
}

// Booking statuses.
const (
	BookingConfirmed = "confirmed"
	BookingCancelled = "cancelled"
)

// Trip is the upcoming-travel view of a confirmed booking, as served
// by the booking-management endpoints and consumed by the dialogue
// cancellation flow.
type Trip struct {
	BookingID          string    `json:"bookingId"`
	ConfirmationNumber string    `json:"confirmationNumber"`
	Flight             string    `json:"flight"`
	Route              string    `json:"route"`
	Date               time.Time `json:"date"`
	TotalAmount        float64   `json:"totalAmount"`
}
