package passport

import (
	"context"
	"crypto/rand"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/Solsynth/DysonNetwork-sub002/domain"
	"github.com/Solsynth/DysonNetwork-sub002/errors"
)

// codeAlphabet deliberately omits visually ambiguous symbols (0/O, 1/l/I).
const codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnopqrstuvwxyz23456789"

// codeLength keeps collision probability negligible (~58^40 keyspace).
const codeLength = 40

// IssueCodeParams carries everything bound to an authorization code at
// issuance time.
type IssueCodeParams struct {
	ClientID            string
	SubjectID           string
	RedirectURI         string
	Scopes              []string
	CodeChallenge       string
	CodeChallengeMethod string
	Nonce               string
}

// AuthorizationCodeStore is process-wide ephemeral keyed storage for
// single-use authorization codes with TTL eviction. Implementations must
// be safe for concurrent issue/validate, and Validate must consume the
// record atomically so a code can be redeemed exactly once.
type AuthorizationCodeStore interface {
	// Issue generates and stores a new code, returning the code string.
	Issue(ctx context.Context, params IssueCodeParams) (string, error)
	// Validate checks the code against the supplied client, redirect URI
	// and PKCE verifier. On success it removes the record and returns it.
	// All failures map to the taxonomy in the errors package; the
	// concrete cause is logged, not distinguished for external callers.
	Validate(ctx context.Context, code, clientID, redirectURI, codeVerifier string) (*domain.AuthCode, error)
	// Close stops background maintenance.
	Close() error
}

// InMemoryAuthCodeStore keeps authorization codes in a mutex-guarded map.
// Code lifetime is bounded by process memory; this store is intended for
// single-instance deployments, matching the design of the rest of the
// issuance subsystem.
type InMemoryAuthCodeStore struct {
	mu       sync.Mutex
	codes    map[string]*domain.AuthCode
	lifetime time.Duration
	now      func() time.Time
	done     chan struct{}
	once     sync.Once
}

// NewInMemoryAuthCodeStore creates a store whose codes expire after the
// given lifetime. A background goroutine sweeps expired entries.
func NewInMemoryAuthCodeStore(lifetime time.Duration) *InMemoryAuthCodeStore {
	s := &InMemoryAuthCodeStore{
		codes:    make(map[string]*domain.AuthCode),
		lifetime: lifetime,
		now:      time.Now,
		done:     make(chan struct{}),
	}

	go s.cleanupLoop(lifetime)

	return s
}

func generateCode() (string, error) {
	// Rejection sampling keeps the draw uniform over the alphabet; a
	// plain modulo would skew toward its first symbols.
	limit := byte(256 - 256%len(codeAlphabet))
	code := make([]byte, 0, codeLength)
	buf := make([]byte, codeLength)
	for len(code) < codeLength {
		if _, err := rand.Read(buf); err != nil {
			return "", fmt.Errorf("failed to generate random bytes: %w", err)
		}
		for _, b := range buf {
			if b >= limit {
				continue
			}
			code = append(code, codeAlphabet[int(b)%len(codeAlphabet)])
			if len(code) == codeLength {
				break
			}
		}
	}
	return string(code), nil
}

// Issue implements AuthorizationCodeStore.Issue.
func (s *InMemoryAuthCodeStore) Issue(_ context.Context, params IssueCodeParams) (string, error) {
	code, err := generateCode()
	if err != nil {
		return "", err
	}

	now := s.now()
	record := &domain.AuthCode{
		Code:                code,
		ClientID:            params.ClientID,
		SubjectID:           params.SubjectID,
		RedirectURI:         params.RedirectURI,
		Scopes:              params.Scopes,
		Nonce:               params.Nonce,
		IssuedAt:            now,
		ExpiresAt:           now.Add(s.lifetime),
		CodeChallenge:       params.CodeChallenge,
		CodeChallengeMethod: params.CodeChallengeMethod,
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Practically unreachable with a 58^40 keyspace, but fail loudly
	// rather than overwrite an outstanding code.
	if _, exists := s.codes[code]; exists {
		return "", errors.ErrCodeCollision
	}
	s.codes[code] = record

	log.Debug().Str("client_id", params.ClientID).Str("subject_id", params.SubjectID).
		Time("expires_at", record.ExpiresAt).Msg("authorization code issued")

	return code, nil
}

// Validate implements AuthorizationCodeStore.Validate. The whole
// check-then-delete sequence runs under the store mutex so that two
// concurrent redemption attempts cannot both succeed.
func (s *InMemoryAuthCodeStore) Validate(_ context.Context, code, clientID, redirectURI, codeVerifier string) (*domain.AuthCode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.codes[code]
	if !ok {
		log.Debug().Str("client_id", clientID).Msg("authorization code not found")
		return nil, errors.ErrInvalidOrExpiredCode
	}

	if record.Expired(s.now()) {
		delete(s.codes, code)
		log.Debug().Str("client_id", clientID).Msg("authorization code expired")
		return nil, errors.ErrInvalidOrExpiredCode
	}

	if record.ClientID != clientID {
		log.Warn().Str("client_id", clientID).Str("issued_to", record.ClientID).
			Msg("authorization code presented by a different client")
		return nil, errors.ErrInvalidOrExpiredCode
	}

	if record.RedirectURI != "" && redirectURI != "" && record.RedirectURI != redirectURI {
		log.Warn().Str("client_id", clientID).Msg("redirect_uri mismatch on code exchange")
		return nil, errors.ErrRedirectMismatch
	}

	if record.CodeChallenge != "" {
		if codeVerifier == "" {
			log.Warn().Str("client_id", clientID).Msg("pkce verifier missing on code exchange")
			return nil, errors.ErrPKCERequired
		}
		if !VerifyCodeChallenge(record.CodeChallenge, record.CodeChallengeMethod, codeVerifier) {
			log.Warn().Str("client_id", clientID).Str("method", record.CodeChallengeMethod).
				Msg("pkce verification failed")
			return nil, errors.ErrPKCEVerificationFailed
		}
	}

	// Consume on first successful validation.
	delete(s.codes, code)

	return record, nil
}

// Len returns the number of outstanding codes.
func (s *InMemoryAuthCodeStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.codes)
}

func (s *InMemoryAuthCodeStore) cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for code, record := range s.codes {
		if record.Expired(now) {
			delete(s.codes, code)
		}
	}
}

func (s *InMemoryAuthCodeStore) cleanupLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.cleanup()
		case <-s.done:
			return
		}
	}
}

// Close stops the cleanup goroutine.
func (s *InMemoryAuthCodeStore) Close() error {
	s.once.Do(func() { close(s.done) })
	return nil
}
