package dialogue

import "github.com/helmai/voice-server/internal/domain"

// ScreenAction tells the client where to navigate after a reply.
type ScreenAction struct {
	NavigateTo  string `json:"navigateTo,omitempty"`
	ShowSection string `json:"showSection,omitempty"`
}

// NextStep tells the client what input the dialogue expects next.
type NextStep struct {
	ExpectedInput string `json:"expectedInput"`
	Prompt        string `json:"prompt"`
}

// Reply is one dialogue turn's outcome.
type Reply struct {
	Success      bool           `json:"success"`
	Intent       string         `json:"intent"`
	UserID       string         `json:"userId"`
	ResponseText string         `json:"responseText"`
	ScreenAction ScreenAction   `json:"screenAction"`
	Data         map[string]any `json:"data"`
	NextStep     *NextStep      `json:"nextStep,omitempty"`
}

// Template is the static part of an intent's reply.
type Template struct {
	ResponseText string
	ScreenAction ScreenAction
	Data         map[string]any
	NextStep     NextStep
}

// IntentGeneralInquiry is the label low-confidence turns are reported
// under.
const IntentGeneralInquiry = "general_inquiry"

// sampleFlights backs the booking template until a live search is
// wired into this flow.
var sampleFlights = []domain.Flight{
	{
		ID:      "AA123",
		Airline: "American Airlines",
		Departure: domain.Endpoint{
			Time: "08:00 AM", Airport: "JFK", Date: "2025-08-21",
		},
		Arrival: domain.Endpoint{
			Time: "11:30 AM", Airport: "MIA", Date: "2025-08-21",
		},
		Price:    "$299",
		Duration: "3h 30m",
		Stops:    "Direct",
	},
	{
		ID:      "AA456",
		Airline: "American Airlines",
		Departure: domain.Endpoint{
			Time: "02:15 PM", Airport: "LGA", Date: "2025-08-21",
		},
		Arrival: domain.Endpoint{
			Time: "05:45 PM", Airport: "MIA", Date: "2025-08-21",
		},
		Price:    "$349",
		Duration: "3h 30m",
		Stops:    "Direct",
	},
}

// responseTemplates maps a recognized intent to its reply. The
// "others" entry is the low-confidence fallback and is reported as
// general_inquiry in the payload.
var responseTemplates = map[string]Template{
	"flight_booking": {
		ResponseText: "I found flights from New York to Miami for tomorrow. Here are your options:",
		ScreenAction: ScreenAction{NavigateTo: "BookScreen", ShowSection: "flight_results"},
		Data: map[string]any{
			"flights": sampleFlights,
			"searchParams": map[string]any{
				"origin":        "New York",
				"destination":   "Miami",
				"departureDate": "2025-08-21",
				"passengers":    1,
			},
		},
		NextStep: NextStep{
			ExpectedInput: "flight_selection",
			Prompt:        "Which flight would you like to book?",
		},
	},
	"flight_cancellation": {
		ResponseText: "I can help you cancel your flight. Please provide your confirmation number so I can locate your booking.",
		ScreenAction: ScreenAction{NavigateTo: "TripsScreen", ShowSection: "confirmation_input"},
		NextStep: NextStep{
			ExpectedInput: "confirmation_number",
			Prompt:        "Please say your confirmation number",
		},
	},
	"flight_change": {
		ResponseText: "I can help you change your flight. Please provide your confirmation number and I'll show you available options.",
		ScreenAction: ScreenAction{NavigateTo: "RescheduleScreen", ShowSection: "confirmation_input"},
		NextStep: NextStep{
			ExpectedInput: "confirmation_number",
			Prompt:        "Please provide your booking confirmation number",
		},
	},
	"flight_checkin": {
		ResponseText: "I can help you check in for your flight. Please provide your confirmation number or last name to get started.",
		ScreenAction: ScreenAction{NavigateTo: "CheckinScreen", ShowSection: "checkin_input"},
		NextStep: NextStep{
			ExpectedInput: "checkin_details",
			Prompt:        "Please say your confirmation number or last name",
		},
	},
	"baggage_inquiry": {
		ResponseText: "I can help you with baggage information. Are you looking to track your baggage, learn about baggage policies, or file a claim?",
		ScreenAction: ScreenAction{NavigateTo: "BaggageScreen", ShowSection: "baggage_options"},
		NextStep: NextStep{
			ExpectedInput: "baggage_action",
			Prompt:        "What would you like to do regarding baggage?",
		},
	},
	"flight_status": {
		ResponseText: "I can check your flight status. Please provide your flight number or confirmation number.",
		ScreenAction: ScreenAction{NavigateTo: "StatusScreen", ShowSection: "status_input"},
		NextStep: NextStep{
			ExpectedInput: "flight_identifier",
			Prompt:        "Please say your flight number or confirmation number",
		},
	},
	"seat_selection": {
		ResponseText: "I can help you select or change your seat. Please provide your confirmation number to view available seats.",
		ScreenAction: ScreenAction{NavigateTo: "SeatScreen", ShowSection: "seat_map"},
		NextStep: NextStep{
			ExpectedInput: "confirmation_number",
			Prompt:        "Please provide your booking confirmation number",
		},
	},
	"payment_inquiry": {
		ResponseText: "I can help you with payment-related questions including refunds, payment methods, and billing issues. What specific payment assistance do you need?",
		ScreenAction: ScreenAction{NavigateTo: "PaymentScreen", ShowSection: "payment_options"},
		NextStep: NextStep{
			ExpectedInput: "payment_issue",
			Prompt:        "Please describe your payment-related question",
		},
	},
	"special_assistance": {
		ResponseText: "I can help you arrange special assistance including wheelchair service, dietary requirements, or other accessibility needs. What assistance do you require?",
		ScreenAction: ScreenAction{NavigateTo: "AssistanceScreen", ShowSection: "assistance_options"},
		NextStep: NextStep{
			ExpectedInput: "assistance_type",
			Prompt:        "What type of special assistance do you need?",
		},
	},
	"connecting_flights": {
		ResponseText: "I can help you with connecting flight information including layover details, terminal changes, and connection assistance. What would you like to know?",
		ScreenAction: ScreenAction{NavigateTo: "ConnectionScreen", ShowSection: "connection_info"},
		NextStep: NextStep{
			ExpectedInput: "connection_question",
			Prompt:        "What connecting flight information do you need?",
		},
	},
	"loyalty_program": {
		ResponseText: "I can help you with frequent flyer program questions including miles balance, status, upgrades, and redemptions. What would you like to know about your loyalty account?",
		ScreenAction: ScreenAction{NavigateTo: "LoyaltyScreen", ShowSection: "loyalty_info"},
		NextStep: NextStep{
			ExpectedInput: "loyalty_question",
			Prompt:        "What loyalty program information do you need?",
		},
	},
	"travel_documents": {
		ResponseText: "I can help you with travel document requirements including passport, visa, and ID information for your destination. Where are you traveling to?",
		ScreenAction: ScreenAction{NavigateTo: "DocumentsScreen", ShowSection: "document_requirements"},
		NextStep: NextStep{
			ExpectedInput: "destination",
			Prompt:        "What destination do you need document information for?",
		},
	},
	"weather_related": {
		ResponseText: "I can help you with weather-related flight information including delays, cancellations, and rebooking options due to weather conditions. What weather information do you need?",
		ScreenAction: ScreenAction{NavigateTo: "WeatherScreen", ShowSection: "weather_updates"},
		NextStep: NextStep{
			ExpectedInput: "weather_question",
			Prompt:        "What weather-related assistance do you need?",
		},
	},
	"pricing_inquiry": {
		ResponseText: "I can help you with pricing information including fare details, discounts, and price comparisons. What pricing information are you looking for?",
		ScreenAction: ScreenAction{NavigateTo: "PricingScreen", ShowSection: "price_info"},
		NextStep: NextStep{
			ExpectedInput: "pricing_question",
			Prompt:        "What pricing information do you need?",
		},
	},
	"general_inquiry": {
		ResponseText: "I can help you with flight booking, rescheduling, baggage tracking, or other airline services. What would you like to do?",
		ScreenAction: ScreenAction{NavigateTo: "HomeScreen", ShowSection: "voice_options"},
		NextStep: NextStep{
			ExpectedInput: "service_selection",
			Prompt:        "Please tell me what you'd like help with",
		},
	},
	"others": {
		ResponseText: "I can help you with various airline services including booking flights, managing reservations, checking flight status, and baggage assistance. How can I help you today?",
		ScreenAction: ScreenAction{NavigateTo: "HomeScreen", ShowSection: "voice_options"},
		NextStep: NextStep{
			ExpectedInput: "service_selection",
			Prompt:        "What airline service do you need help with?",
		},
	},
}

// renderTemplate builds the reply for a recognized intent. Unknown
// and "others" labels fall back to the capability overview, reported
// as general_inquiry.
func renderTemplate(intent, userID string) *Reply {
	label := intent
	tmpl, ok := responseTemplates[intent]
	if !ok {
		tmpl = responseTemplates["others"]
		label = IntentGeneralInquiry
	}
	if intent == "others" {
		label = IntentGeneralInquiry
	}

	data := tmpl.Data
	if data == nil {
		data = map[string]any{}
	}
	step := tmpl.NextStep
	return &Reply{
		Success:      true,
		Intent:       label,
		UserID:       userID,
		ResponseText: tmpl.ResponseText,
		ScreenAction: tmpl.ScreenAction,
		Data:         data,
		NextStep:     &step,
	}
}
