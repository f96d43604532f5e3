package auth

// Step tracks where the login flow currently stands.
type Step string

const (
	StepPhone         Step = "phone"
	StepOTP           Step = "otp"
	StepAuthenticated Step = "authenticated"
)

// User is the authenticated account. The OTP flow behind it is a simulated
// stand-in, not real authentication.
type User struct {
	ID            string `json:"id"`
	Phone         string `json:"phone"`
	CountryCode   string `json:"countryCode"`
	Authenticated bool   `json:"isAuthenticated"`
}

// State is the persisted auth aggregate.
type State struct {
	User            *User  `json:"user"`
	Step            Step   `json:"step"`
	TempPhone       string `json:"tempPhone,omitempty"`
	TempCountryCode string `json:"tempCountryCode,omitempty"`
	// PendingCode is the issued one-time code awaiting verification.
	PendingCode string `json:"pendingCode,omitempty"`
}
