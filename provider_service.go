package passport

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"

	"github.com/Solsynth/DysonNetwork-sub002/domain"
	"github.com/Solsynth/DysonNetwork-sub002/errors"
)

// ProviderService orchestrates the authorize → token exchange protocol:
// client lookup, the authorization code store, PKCE verification and the
// token signer.
type ProviderService struct {
	clients       domain.ClientStore
	codes         AuthorizationCodeStore
	refreshTokens domain.RefreshTokenRepository
	signer        *TokenSigner

	accessTokenTTL  time.Duration
	refreshTokenTTL time.Duration
	now             func() time.Time
}

// NewProviderService creates a new ProviderService instance.
func NewProviderService(
	clients domain.ClientStore,
	codes AuthorizationCodeStore,
	refreshTokens domain.RefreshTokenRepository,
	signer *TokenSigner,
	accessTokenTTL, refreshTokenTTL time.Duration,
) *ProviderService {
	return &ProviderService{
		clients:         clients,
		codes:           codes,
		refreshTokens:   refreshTokens,
		signer:          signer,
		accessTokenTTL:  accessTokenTTL,
		refreshTokenTTL: refreshTokenTTL,
		now:             time.Now,
	}
}

// ValidateClientCredentials resolves the client and scans its non-expired
// OIDC-flagged secrets for a bcrypt match. Fails closed on unknown
// clients and on no matching secret.
func (s *ProviderService) ValidateClientCredentials(ctx context.Context, clientID, clientSecret string) (*domain.Client, error) {
	cli, err := s.clients.GetClient(ctx, clientID)
	if err != nil {
		log.Debug().Err(err).Str("client_id", clientID).Msg("client lookup failed")
		return nil, errors.ErrClientNotFound
	}

	now := s.now()
	for i := range cli.Secrets {
		secret := &cli.Secrets[i]
		if !secret.IsOidc || secret.Expired(now) {
			continue
		}
		if bcrypt.CompareHashAndPassword([]byte(secret.SecretHash), []byte(clientSecret)) == nil {
			return cli, nil
		}
	}

	log.Warn().Str("client_id", clientID).Msg("no client secret matched")
	return nil, errors.ErrInvalidCredentials
}

// IssueAuthorizationCode issues a code for the given client and subject.
// The redirect URI must be one of the client's registered URIs. When no
// scopes are requested, the client's configured allowed scopes are
// granted.
func (s *ProviderService) IssueAuthorizationCode(ctx context.Context, params IssueCodeParams) (string, error) {
	cli, err := s.clients.GetClient(ctx, params.ClientID)
	if err != nil {
		log.Debug().Err(err).Str("client_id", params.ClientID).Msg("client lookup failed")
		return "", errors.ErrClientNotFound
	}

	if len(cli.RedirectURIs) > 0 && !slices.Contains(cli.RedirectURIs, params.RedirectURI) {
		log.Warn().Str("client_id", params.ClientID).Str("redirect_uri", params.RedirectURI).
			Msg("redirect_uri not registered for client")
		return "", errors.ErrRedirectMismatch
	}

	if len(params.Scopes) == 0 {
		params.Scopes = cli.AllowedScopes
	}

	return s.codes.Issue(ctx, params)
}

// ExchangeCodeForToken validates and consumes an authorization code, then
// mints an access token and a persisted refresh token for its subject.
func (s *ProviderService) ExchangeCodeForToken(ctx context.Context, code, clientID, redirectURI, codeVerifier string) (*domain.TokenResponse, error) {
	record, err := s.codes.Validate(ctx, code, clientID, redirectURI, codeVerifier)
	if err != nil {
		return nil, err
	}

	return s.issueTokens(ctx, record.ClientID, record.SubjectID, record.Scopes)
}

// RefreshAccessToken redeems a refresh token, rotating it on use.
func (s *ProviderService) RefreshAccessToken(ctx context.Context, refreshToken, clientID string) (*domain.TokenResponse, error) {
	tokenHash := HashToken(refreshToken)

	record, err := s.refreshTokens.GetByHash(ctx, tokenHash)
	if err != nil {
		log.Debug().Err(err).Str("client_id", clientID).Msg("refresh token not found")
		return nil, errors.ErrInvalidRefreshToken
	}

	if record.IsRevoked || s.now().After(record.ExpiresAt) || record.ClientID != clientID {
		log.Warn().Str("client_id", clientID).Bool("revoked", record.IsRevoked).
			Msg("refresh token rejected")
		return nil, errors.ErrInvalidRefreshToken
	}

	// Rotate: the presented token is spent regardless of what follows.
	if err := s.refreshTokens.Revoke(ctx, tokenHash); err != nil {
		return nil, fmt.Errorf("failed to revoke refresh token: %w", err)
	}

	return s.issueTokens(ctx, record.ClientID, record.SubjectID, record.Scopes)
}

func (s *ProviderService) issueTokens(ctx context.Context, clientID, subjectID string, scopes []string) (*domain.TokenResponse, error) {
	now := s.now()
	expiresAt := now.Add(s.accessTokenTTL)

	accessToken, err := s.signer.Sign(clientID, subjectID, expiresAt, scopes)
	if err != nil {
		return nil, err
	}

	refreshToken, err := s.signer.GenerateRefreshToken()
	if err != nil {
		return nil, err
	}

	record := &domain.RefreshToken{
		ID:        uuid.NewString(),
		TokenHash: HashToken(refreshToken),
		ClientID:  clientID,
		SubjectID: subjectID,
		Scopes:    scopes,
		ExpiresAt: now.Add(s.refreshTokenTTL),
		CreatedAt: now,
	}
	if err := s.refreshTokens.Store(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to store refresh token: %w", err)
	}

	return &domain.TokenResponse{
		AccessToken:  accessToken,
		TokenType:    "Bearer",
		ExpiresIn:    int(s.accessTokenTTL.Seconds()),
		RefreshToken: refreshToken,
		Scope:        strings.Join(scopes, " "),
	}, nil
}
