package passport

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Solsynth/DysonNetwork-sub002/cache"
	"github.com/Solsynth/DysonNetwork-sub002/domain"
)

type staticAccounts struct {
	account *domain.Account
}

func (s *staticAccounts) GetAccount(_ context.Context, accountID string) (*domain.Account, error) {
	account := *s.account
	account.ID = accountID
	return &account, nil
}

type staticCaptcha struct{ ok bool }

func (c staticCaptcha) Verify(context.Context, string) bool { return c.ok }

func newTestAPI(t *testing.T) (*API, *echo.Echo, *CheckInEngine) {
	t.Helper()

	clients := new(MockClientStore)
	clients.On("GetClient", mock.Anything, "client-1").Return(testClient(t), nil)

	provider, _, _ := newTestProvider(t, clients)

	repo := &memoryCheckInRepo{}
	flags := cache.NewMemoryFlagCache()
	t.Cleanup(func() { _ = flags.Close() })
	engine := NewCheckInEngine(repo, &recordingLedger{}, cache.NewMemoryLocker(), flags)

	api := NewAPI(provider, engine, &staticAccounts{account: testAccount()}, staticCaptcha{ok: true})

	e := echo.New()
	api.RegisterRoutes(e)
	return api, e, engine
}

func TestAuthorizeThenExchange(t *testing.T) {
	_, e, _ := newTestAPI(t)

	// Authorize: issue a code bound to the gateway-authenticated subject.
	req := httptest.NewRequest(http.MethodGet,
		"/oauth2/authorize?response_type=code&client_id=client-1&redirect_uri=https%3A%2F%2Fapp.example.com%2Fcb&state=xyz", nil)
	req.Header.Set("X-User-Id", "user-1")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	require.Equal(t, http.StatusFound, rec.Code)
	location, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)
	code := location.Query().Get("code")
	require.NotEmpty(t, code)
	assert.Equal(t, "xyz", location.Query().Get("state"))

	// Exchange the code.
	form := url.Values{
		"grant_type":   {"authorization_code"},
		"client_id":    {"client-1"},
		"redirect_uri": {"https://app.example.com/cb"},
		"code":         {code},
	}
	req = httptest.NewRequest(http.MethodPost, "/oauth2/token", strings.NewReader(form.Encode()))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp domain.TokenResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Bearer", resp.TokenType)
	assert.NotEmpty(t, resp.AccessToken)
	assert.NotEmpty(t, resp.RefreshToken)
}

func TestAuthorize_RedirectURIKeepsExistingQuery(t *testing.T) {
	_, e, _ := newTestAPI(t)

	req := httptest.NewRequest(http.MethodGet,
		"/oauth2/authorize?response_type=code&client_id=client-1"+
			"&redirect_uri="+url.QueryEscape("https://app.example.com/cb?env=prod")+"&state=xyz", nil)
	req.Header.Set("X-User-Id", "user-1")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	require.Equal(t, http.StatusFound, rec.Code)
	location, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, "prod", location.Query().Get("env"), "pre-existing query parameters survive")
	assert.NotEmpty(t, location.Query().Get("code"))
	assert.Equal(t, "xyz", location.Query().Get("state"))
}

func TestAuthorize_UnregisteredRedirectURI(t *testing.T) {
	_, e, _ := newTestAPI(t)

	req := httptest.NewRequest(http.MethodGet,
		"/oauth2/authorize?response_type=code&client_id=client-1"+
			"&redirect_uri="+url.QueryEscape("https://evil.example.com/cb"), nil)
	req.Header.Set("X-User-Id", "user-1")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAuthorize_RequiresAuthentication(t *testing.T) {
	_, e, _ := newTestAPI(t)

	req := httptest.NewRequest(http.MethodGet, "/oauth2/authorize?response_type=code&client_id=client-1", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestTokenHandler_UniformInvalidGrant(t *testing.T) {
	_, e, _ := newTestAPI(t)

	form := url.Values{
		"grant_type": {"authorization_code"},
		"client_id":  {"client-1"},
		"code":       {"no-such-code"},
	}
	req := httptest.NewRequest(http.MethodPost, "/oauth2/token", strings.NewReader(form.Encode()))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "invalid_grant", body["error"],
		"the caller never learns which validation step failed")
}

func TestTokenHandler_UnsupportedGrantType(t *testing.T) {
	_, e, _ := newTestAPI(t)

	form := url.Values{"grant_type": {"password"}, "client_id": {"client-1"}}
	req := httptest.NewRequest(http.MethodPost, "/oauth2/token", strings.NewReader(form.Encode()))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "unsupported_grant_type", body["error"])
}

func TestCheckInEndpoints(t *testing.T) {
	_, e, engine := newTestAPI(t)
	engine.randFloat = func() float64 { return 0.99 } // no captcha, best tier

	// Availability before checking in.
	req := httptest.NewRequest(http.MethodGet, "/accounts/me/check-in", nil)
	req.Header.Set("X-User-Id", "acct-1")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var status checkInStatusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.True(t, status.Available)
	assert.False(t, status.CaptchaRequired)

	// Perform the check-in.
	req = httptest.NewRequest(http.MethodPost, "/accounts/me/check-in", strings.NewReader("{}"))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	req.Header.Set("X-User-Id", "acct-1")
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var result domain.CheckInResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, "acct-1", result.AccountID)
	require.NotNil(t, result.RewardPoints)
	assert.Equal(t, float64(10), *result.RewardPoints)

	// A second attempt the same day conflicts.
	req = httptest.NewRequest(http.MethodPost, "/accounts/me/check-in", strings.NewReader("{}"))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	req.Header.Set("X-User-Id", "acct-1")
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestCheckInHandler_CaptchaGate(t *testing.T) {
	api, e, engine := newTestAPI(t)
	engine.randFloat = func() float64 { return 0.0 } // below 20%: captcha required
	api.captcha = staticCaptcha{ok: false}

	// Missing token.
	req := httptest.NewRequest(http.MethodPost, "/accounts/me/check-in", strings.NewReader("{}"))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	req.Header.Set("X-User-Id", "acct-1")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// Invalid token.
	req = httptest.NewRequest(http.MethodPost, "/accounts/me/check-in",
		strings.NewReader(`{"captcha_token":"bad"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	req.Header.Set("X-User-Id", "acct-1")
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestCheckInHistoryHandler(t *testing.T) {
	_, e, engine := newTestAPI(t)

	now := time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)
	engine.now = func() time.Time { return now }

	day := time.Date(2026, 8, 3, 0, 0, 0, 0, time.UTC)
	_, err := engine.Execute(context.Background(), testAccount(), &day)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/accounts/me/check-in/history?month=2026-08", nil)
	req.Header.Set("X-User-Id", "acct-1")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var results []domain.CheckInResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &results))
	require.Len(t, results, 1)
	assert.NotNil(t, results[0].BackdatedFrom)
}
