package domain

// UserContext is the authenticated caller injected into admin request handlers.
type UserContext struct {
	Subject string `json:"subject"`
	Role    string `json:"role"`
}
