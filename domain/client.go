package domain

import (
	"context"
	"time"
)

// ClientSecret is a single credential attached to a client. The secret
// itself is stored as a bcrypt hash, never in plaintext.
type ClientSecret struct {
	SecretHash string     `bson:"secret_hash" json:"-"`
	ExpiresAt  *time.Time `bson:"expires_at,omitempty" json:"expires_at,omitempty"`
	IsOidc     bool       `bson:"is_oidc" json:"is_oidc"`
	CreatedAt  time.Time  `bson:"created_at" json:"created_at"`
}

// Expired reports whether the secret can no longer be used at the given instant.
func (s *ClientSecret) Expired(now time.Time) bool {
	return s.ExpiresAt != nil && now.After(*s.ExpiresAt)
}

// Client represents a registered OAuth2 client application.
type Client struct {
	ID            string         `bson:"client_id" json:"client_id"`
	Name          string         `bson:"client_name" json:"name,omitempty"`
	Secrets       []ClientSecret `bson:"secrets" json:"-"`
	RedirectURIs  []string       `bson:"redirect_uris" json:"redirect_uris,omitempty"`
	AllowedScopes []string       `bson:"allowed_scopes" json:"allowed_scopes,omitempty"`
	CreatedAt     time.Time      `bson:"created_at" json:"created_at,omitempty"`
	UpdatedAt     time.Time      `bson:"updated_at" json:"updated_at,omitempty"`
}

// ClientStore is the read-only client lookup capability the provider
// service consumes.
type ClientStore interface {
	GetClient(ctx context.Context, clientID string) (*Client, error)
}
