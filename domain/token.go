package domain

import (
	"context"
	"time"
)

// TokenResponse is the OAuth2 token endpoint response body.
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
	RefreshToken string `json:"refresh_token,omitempty"`
	Scope        string `json:"scope,omitempty"`
}

// RefreshToken is a persisted opaque refresh credential. Only the SHA-256
// hex digest of the token value is stored.
type RefreshToken struct {
	ID        string    `bson:"_id" json:"id"`
	TokenHash string    `bson:"token_hash" json:"-"`
	ClientID  string    `bson:"client_id" json:"client_id"`
	SubjectID string    `bson:"subject_id" json:"subject_id"`
	Scopes    []string  `bson:"scopes" json:"scopes"`
	ExpiresAt time.Time `bson:"expires_at" json:"expires_at"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	IsRevoked bool      `bson:"is_revoked,omitempty" json:"is_revoked,omitempty"`
}

// RefreshTokenRepository persists refresh tokens, keyed by token hash.
type RefreshTokenRepository interface {
	Store(ctx context.Context, token *RefreshToken) error
	GetByHash(ctx context.Context, tokenHash string) (*RefreshToken, error)
	Revoke(ctx context.Context, tokenHash string) error
	DeleteExpired(ctx context.Context) error
}
