package domain

import "time"

// AuthCode represents a single-use OAuth 2.0 authorization code.
type AuthCode struct {
	Code        string    `json:"code"`         // Unique authorization code
	ClientID    string    `json:"client_id"`    // Client application ID
	SubjectID   string    `json:"subject_id"`   // Account the code was issued for
	RedirectURI string    `json:"redirect_uri"` // Client's callback URL
	Scopes      []string  `json:"scopes"`       // Granted scopes
	Nonce       string    `json:"nonce,omitempty"`
	IssuedAt    time.Time `json:"issued_at"`
	ExpiresAt   time.Time `json:"expires_at"`

	CodeChallenge       string `json:"code_challenge,omitempty"`
	CodeChallengeMethod string `json:"code_challenge_method,omitempty"`
}

// Expired reports whether the code is past its lifetime at the given instant.
func (c *AuthCode) Expired(now time.Time) bool {
	return now.After(c.ExpiresAt)
}
