package errors

import (
	"errors"
	"fmt"
)

// OAuth2Error represents a standardized OAuth 2.0 error
type OAuth2Error struct {
	Code        string `json:"error"`
	Description string `json:"error_description,omitempty"`
}

func (e *OAuth2Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Description)
}

// Standard OAuth2 error codes
const (
	InvalidRequest       = "invalid_request"
	UnauthorizedClient   = "unauthorized_client"
	UnsupportedGrantType = "unsupported_grant_type"
	InvalidScope         = "invalid_scope"
	InvalidClient        = "invalid_client"
	InvalidGrant         = "invalid_grant"
	ServerError          = "server_error"
)

func NewInvalidRequest(description string) *OAuth2Error {
	return &OAuth2Error{Code: InvalidRequest, Description: description}
}

func NewInvalidClient(description string) *OAuth2Error {
	return &OAuth2Error{Code: InvalidClient, Description: description}
}

// NewInvalidGrant is the uniform external failure for every code
// validation problem. The distinct internal cause is logged, never
// surfaced to the caller.
func NewInvalidGrant() *OAuth2Error {
	return &OAuth2Error{Code: InvalidGrant, Description: "The provided authorization grant is invalid or expired"}
}

func NewServerError(description string) *OAuth2Error {
	return &OAuth2Error{Code: ServerError, Description: description}
}

func NewUnsupportedGrantType() *OAuth2Error {
	return &OAuth2Error{Code: UnsupportedGrantType, Description: "The authorization grant type is not supported"}
}

// Internal error taxonomy for the token issuance subsystem. Callers
// branch on these; the HTTP layer collapses the code-validation ones
// into a single invalid_grant response.
var (
	ErrClientNotFound         = errors.New("client not found")
	ErrInvalidCredentials     = errors.New("invalid client credentials")
	ErrInvalidOrExpiredCode   = errors.New("authorization code invalid or expired")
	ErrRedirectMismatch       = errors.New("redirect_uri does not match the one the code was issued with")
	ErrPKCERequired           = errors.New("code_verifier is required for this authorization code")
	ErrPKCEVerificationFailed = errors.New("pkce verification failed")
	ErrInvalidRefreshToken    = errors.New("refresh token invalid, expired or revoked")
	ErrInvalidToken           = errors.New("token invalid or expired")
	ErrCodeCollision          = errors.New("authorization code collision")
)

// Check-in policy and concurrency errors. These are expected, frequent
// and actionable, so they keep specific user-facing messages.
var (
	ErrAlreadyCheckedIn    = errors.New("already checked in for this day")
	ErrCheckInInProgress   = errors.New("a check-in for this account is already in progress")
	ErrCaptchaRequired     = errors.New("captcha required before checking in")
	ErrInvalidCaptcha      = errors.New("captcha verification failed")
	ErrBackdateUnavailable = errors.New("backdated check-in not available for this day")
	ErrLockNotAcquired     = errors.New("lock not acquired")
)
