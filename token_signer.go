package passport

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/Solsynth/DysonNetwork-sub002/errors"
)

// AccessTokenClaims are the claims embedded in every access token.
type AccessTokenClaims struct {
	jwt.RegisteredClaims
	Scope string `json:"scope,omitempty"`
}

// TokenSigner builds and validates signed bearer tokens. Signing uses a
// symmetric HMAC-SHA256 key; the interface does not expose the algorithm
// so an asymmetric scheme can be swapped in without changing callers.
type TokenSigner struct {
	signingKey []byte
	issuer     string
	now        func() time.Time
}

// NewTokenSigner creates a signer for the given symmetric key and issuer.
func NewTokenSigner(signingKey []byte, issuer string) *TokenSigner {
	return &TokenSigner{
		signingKey: signingKey,
		issuer:     issuer,
		now:        time.Now,
	}
}

// Sign mints an access token for the subject, with audience set to the
// client and the given scopes embedded space-joined.
func (s *TokenSigner) Sign(clientID, subjectID string, expiresAt time.Time, scopes []string) (string, error) {
	now := s.now()
	claims := AccessTokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   subjectID,
			Audience:  jwt.ClaimStrings{clientID},
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			ID:        uuid.NewString(),
		},
		Scope: strings.Join(scopes, " "),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signed, err := token.SignedString(s.signingKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign access token: %w", err)
	}

	return signed, nil
}

// GenerateRefreshToken returns an opaque URL-safe refresh token built
// from 32 cryptographically random bytes.
func (s *TokenSigner) GenerateRefreshToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// Validate verifies signature, issuer and expiry with zero clock-skew
// tolerance and returns the decoded claims. The audience is not checked
// here: callers that act on behalf of a specific client use
// ValidateForClient. Malformed or untrusted tokens are a normal failure,
// not a panic.
func (s *TokenSigner) Validate(tokenString string) (*AccessTokenClaims, error) {
	return s.validate(tokenString)
}

// ValidateForClient additionally requires the token's audience to name
// the given client.
func (s *TokenSigner) ValidateForClient(tokenString, clientID string) (*AccessTokenClaims, error) {
	return s.validate(tokenString, jwt.WithAudience(clientID))
}

func (s *TokenSigner) validate(tokenString string, extra ...jwt.ParserOption) (*AccessTokenClaims, error) {
	claims := &AccessTokenClaims{}

	opts := append([]jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.issuer),
		jwt.WithIssuedAt(),
	}, extra...)

	token, err := jwt.ParseWithClaims(tokenString, claims,
		func(t *jwt.Token) (interface{}, error) {
			return s.signingKey, nil
		},
		opts...,
	)
	if err != nil {
		return nil, errors.ErrInvalidToken
	}
	if !token.Valid {
		return nil, errors.ErrInvalidToken
	}

	return claims, nil
}
