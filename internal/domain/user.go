package domain

// User is a registered traveler account.
type User struct {
	ID       string `json:"userId"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Loyalty  string `json:"loyaltyTier,omitempty"`
	Password string `json:"-"`
}
