package domain

// Endpoint is one side of a flight leg.
type Endpoint struct {
	Airport string `json:"airport"`
	City    string `json:"city,omitempty"`
	Time    string `json:"time"`
	Date    string `json:"date"`
}

// Flight is a bookable flight offer.
type Flight struct {
	ID        string   `json:"flightId"`
	Airline   string   `json:"airline"`
	Departure Endpoint `json:"departure"`
	Arrival   Endpoint `json:"arrival"`
	Price     string   `json:"price"`
	Duration  string   `json:"duration"`
	Stops     string   `json:"stops"`
}
