package dialogue

import (
	"context"
	"log/slog"
	"regexp"
	"sort"
	"strings"

	"github.com/helmai/voice-server/internal/intent"
	"github.com/helmai/voice-server/internal/trips"
)

// Classifier resolves an utterance to an intent label. Satisfied by
// *intent.Matcher.
type Classifier interface {
	Classify(ctx context.Context, text string, threshold float32) intent.Classification
}

// Confirmation-code shapes: record-locator style (ABC123, AA456) and
// long all-digit numbers.
var (
	locatorPattern = regexp.MustCompile(`\b[A-Z]{2,}\d{2,}\b`)
	digitsPattern  = regexp.MustCompile(`\b\d{6,}\b`)

	confirmationPhrases = []string{
		"confirmation number",
		"confirmation code",
		"booking reference",
	}
)

// pendingFlowOrder fixes which started flow wins when several are in
// the history: cancellation outranks change outranks check-in.
var pendingFlowOrder = []string{
	"flight_cancellation",
	"flight_change",
	"flight_checkin",
}

// Machine drives one dialogue turn: it routes confirmation-number
// follow-ups to the flow the user already started, and classifies
// everything else into a templated reply.
type Machine struct {
	classifier Classifier
	history    *History
	trips      trips.Gateway
	threshold  float32
	logger     *slog.Logger
}

// NewMachine creates a dialogue machine.
func NewMachine(classifier Classifier, history *History, gateway trips.Gateway, threshold float32, logger *slog.Logger) *Machine {
	if logger == nil {
		logger = slog.Default()
	}
	if history == nil {
		history = NewHistory()
	}
	return &Machine{
		classifier: classifier,
		history:    history,
		trips:      gateway,
		threshold:  threshold,
		logger:     logger,
	}
}

// History exposes the machine's intent history for diagnostics.
func (m *Machine) History() *History {
	return m.history
}

// looksLikeConfirmation reports whether the utterance carries a
// confirmation number, by phrase or by code shape.
func looksLikeConfirmation(text string) bool {
	lower := strings.ToLower(text)
	for _, phrase := range confirmationPhrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return locatorPattern.MatchString(text) || digitsPattern.MatchString(text)
}

// Process handles one utterance and always produces a reply.
func (m *Machine) Process(ctx context.Context, text, userID string) *Reply {
	if looksLikeConfirmation(text) {
		for _, flow := range pendingFlowOrder {
			if !m.history.Contains(userID, flow) {
				continue
			}
			m.logger.Info("Confirmation number routed to pending flow",
				"userId", userID, "flow", flow)
			switch flow {
			case "flight_cancellation":
				return m.resolveCancellation(ctx, userID)
			case "flight_change":
				return m.resolveChange(userID)
			default:
				return m.resolveCheckin(userID)
			}
		}
	}

	c := m.classifier.Classify(ctx, text, m.threshold)
	m.history.Add(userID, c.Intent)
	m.logger.Info("Classified utterance",
		"userId", userID, "intent", c.Intent, "confidence", c.Confidence)
	return renderTemplate(c.Intent, userID)
}

// resolveCancellation looks up the user's upcoming trips and cancels
// the earliest one. Any gateway failure yields an apologetic reply
// rather than an error.
func (m *Machine) resolveCancellation(ctx context.Context, userID string) *Reply {
	upcoming, err := m.trips.UpcomingTrips(ctx, userID)
	if err != nil {
		m.logger.Error("Trip lookup failed during cancellation", "userId", userID, "error", err)
		return cancellationFailedReply(userID)
	}
	if len(upcoming) == 0 {
		return &Reply{
			Success:      true,
			Intent:       "flight_cancellation",
			UserID:       userID,
			ResponseText: "I couldn't find any upcoming trips on your account, so there's nothing to cancel.",
			ScreenAction: ScreenAction{NavigateTo: "TripsScreen", ShowSection: "trips_list"},
			Data:         map[string]any{},
			NextStep: &NextStep{
				ExpectedInput: "service_selection",
				Prompt:        "Is there anything else I can help you with?",
			},
		}
	}

	sort.Slice(upcoming, func(i, j int) bool {
		return upcoming[i].Date.Before(upcoming[j].Date)
	})
	earliest := upcoming[0]

	ok, err := m.trips.Cancel(ctx, earliest.BookingID)
	if err != nil || !ok {
		m.logger.Error("Booking cancellation failed",
			"userId", userID, "bookingId", earliest.BookingID, "error", err)
		return cancellationFailedReply(userID)
	}

	m.logger.Info("Booking cancelled",
		"userId", userID, "bookingId", earliest.BookingID,
		"confirmationNumber", earliest.ConfirmationNumber)

	return &Reply{
		Success:      true,
		Intent:       "booking_cancellation_confirmed",
		UserID:       userID,
		ResponseText: "Cancellation Successful",
		ScreenAction: ScreenAction{},
		Data: map[string]any{
			"cancelledFlight": map[string]any{
				"bookingId":          earliest.BookingID,
				"confirmationNumber": earliest.ConfirmationNumber,
				"flight":             earliest.Flight,
				"route":              earliest.Route,
				"date":               earliest.Date,
			},
		},
		NextStep: &NextStep{
			ExpectedInput: "cancellation_complete",
			Prompt:        "Your booking has been cancelled. Is there anything else I can help you with?",
		},
	}
}

func cancellationFailedReply(userID string) *Reply {
	return &Reply{
		Success:      false,
		Intent:       "booking_cancellation_failed",
		UserID:       userID,
		ResponseText: "I'm sorry, I wasn't able to cancel your booking right now. Please try again in a moment.",
		ScreenAction: ScreenAction{NavigateTo: "TripsScreen", ShowSection: "trips_list"},
		Data:         map[string]any{},
		NextStep: &NextStep{
			ExpectedInput: "retry_or_service_selection",
			Prompt:        "Would you like me to try again?",
		},
	}
}

func (m *Machine) resolveChange(userID string) *Reply {
	return &Reply{
		Success:      true,
		Intent:       "flight_change_confirmed",
		UserID:       userID,
		ResponseText: "I found your booking. Here are available alternative flights:",
		ScreenAction: ScreenAction{NavigateTo: "RescheduleScreen", ShowSection: "available_flights"},
		Data: map[string]any{
			"originalBooking": map[string]any{
				"confirmationNumber": "ABC123",
				"flightNumber":       "AA456",
				"route":              "JFK → MIA",
				"originalDate":       "2025-08-21",
			},
			"alternativeFlights": []any{},
		},
		NextStep: &NextStep{
			ExpectedInput: "flight_selection",
			Prompt:        "Which new flight would you like to select?",
		},
	}
}

func (m *Machine) resolveCheckin(userID string) *Reply {
	return &Reply{
		Success:      true,
		Intent:       "checkin_confirmed",
		UserID:       userID,
		ResponseText: "Found your booking! You can now check in for your flight.",
		ScreenAction: ScreenAction{NavigateTo: "CheckinScreen", ShowSection: "checkin_details"},
		Data: map[string]any{
			"booking": map[string]any{
				"confirmationNumber": "ABC123",
				"passengerName":      "John Doe",
				"flightNumber":       "AA456",
				"route":              "JFK → MIA",
				"date":               "2025-08-21",
				"time":               "08:00 AM",
			},
		},
		NextStep: &NextStep{
			ExpectedInput: "checkin_complete",
			Prompt:        "Would you like to select seats or complete check-in?",
		},
	}
}
