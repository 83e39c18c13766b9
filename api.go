package passport

import (
	"context"
	stderrors "errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"github.com/Solsynth/DysonNetwork-sub002/domain"
	"github.com/Solsynth/DysonNetwork-sub002/errors"
)

// CaptchaVerifier checks a captcha response token from the client.
// Verification itself is delegated to an external captcha provider.
type CaptchaVerifier interface {
	Verify(ctx context.Context, token string) bool
}

// API holds the HTTP surface dependencies.
type API struct {
	provider *ProviderService
	checkIn  *CheckInEngine
	accounts domain.AccountReader
	captcha  CaptchaVerifier
}

// NewAPI initializes the HTTP API.
func NewAPI(provider *ProviderService, checkIn *CheckInEngine, accounts domain.AccountReader, captcha CaptchaVerifier) *API {
	return &API{
		provider: provider,
		checkIn:  checkIn,
		accounts: accounts,
		captcha:  captcha,
	}
}

// RegisterRoutes registers the OAuth2 and check-in routes.
func (api *API) RegisterRoutes(e *echo.Echo) {
	e.GET("/oauth2/authorize", api.AuthorizeHandler)
	e.POST("/oauth2/token", api.TokenHandler)

	e.GET("/accounts/me/check-in", api.CheckInStatusHandler)
	e.GET("/accounts/me/check-in/history", api.CheckInHistoryHandler)
	e.POST("/accounts/me/check-in", api.CheckInHandler)
}

// subjectID returns the authenticated account id forwarded by the
// upstream gateway. Authentication itself is out of this service's scope.
func subjectID(c echo.Context) string {
	return c.Request().Header.Get("X-User-Id")
}

// AuthorizeHandler handles OAuth 2.0 authorization requests: it validates
// the request parameters, issues an authorization code bound to the
// authenticated subject and redirects back to the client.
func (api *API) AuthorizeHandler(c echo.Context) error {
	subject := subjectID(c)
	if subject == "" {
		return c.JSON(http.StatusUnauthorized, errors.NewInvalidRequest("Authentication required"))
	}

	if c.QueryParam("response_type") != "code" {
		return c.JSON(http.StatusBadRequest, errors.NewInvalidRequest("Unsupported response_type"))
	}

	codeChallenge := c.QueryParam("code_challenge")
	codeChallengeMethod := c.QueryParam("code_challenge_method")
	if codeChallenge != "" {
		if codeChallengeMethod == "" {
			codeChallengeMethod = PKCEMethodPlain
		}
		if codeChallengeMethod != PKCEMethodS256 && codeChallengeMethod != PKCEMethodPlain {
			return c.JSON(http.StatusBadRequest, errors.NewInvalidRequest("Invalid code_challenge_method"))
		}
	}

	var scopes []string
	if scope := c.QueryParam("scope"); scope != "" {
		scopes = strings.Split(scope, " ")
	}

	code, err := api.provider.IssueAuthorizationCode(c.Request().Context(), IssueCodeParams{
		ClientID:            c.QueryParam("client_id"),
		SubjectID:           subject,
		RedirectURI:         c.QueryParam("redirect_uri"),
		Scopes:              scopes,
		CodeChallenge:       codeChallenge,
		CodeChallengeMethod: codeChallengeMethod,
		Nonce:               c.QueryParam("nonce"),
	})
	if err != nil {
		switch {
		case stderrors.Is(err, errors.ErrClientNotFound):
			return c.JSON(http.StatusBadRequest, errors.NewInvalidClient("Invalid client_id"))
		case stderrors.Is(err, errors.ErrRedirectMismatch):
			return c.JSON(http.StatusBadRequest, errors.NewInvalidRequest("redirect_uri is not registered for this client"))
		}
		log.Error().Err(err).Msg("failed to issue authorization code")
		return c.JSON(http.StatusInternalServerError, errors.NewServerError("Failed to issue authorization code"))
	}

	redirectURL, err := url.Parse(c.QueryParam("redirect_uri"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, errors.NewInvalidRequest("Invalid redirect_uri"))
	}
	query := redirectURL.Query()
	query.Set("code", code)
	if state := c.QueryParam("state"); state != "" {
		query.Set("state", state)
	}
	redirectURL.RawQuery = query.Encode()

	return c.Redirect(http.StatusFound, redirectURL.String())
}

// TokenHandler handles OAuth2 token requests for the authorization_code
// and refresh_token grants. Every code validation failure maps to the
// same invalid_grant response; the concrete cause stays in the logs.
func (api *API) TokenHandler(c echo.Context) error {
	ctx := c.Request().Context()
	clientID := c.FormValue("client_id")
	clientSecret := c.FormValue("client_secret")

	if clientSecret != "" {
		if _, err := api.provider.ValidateClientCredentials(ctx, clientID, clientSecret); err != nil {
			return c.JSON(http.StatusUnauthorized, errors.NewInvalidClient("Invalid client credentials"))
		}
	}

	switch c.FormValue("grant_type") {
	case "authorization_code":
		resp, err := api.provider.ExchangeCodeForToken(ctx,
			c.FormValue("code"), clientID, c.FormValue("redirect_uri"), c.FormValue("code_verifier"))
		if err != nil {
			return c.JSON(http.StatusBadRequest, errors.NewInvalidGrant())
		}
		return c.JSON(http.StatusOK, resp)

	case "refresh_token":
		resp, err := api.provider.RefreshAccessToken(ctx, c.FormValue("refresh_token"), clientID)
		if err != nil {
			return c.JSON(http.StatusBadRequest, errors.NewInvalidGrant())
		}
		return c.JSON(http.StatusOK, resp)

	default:
		return c.JSON(http.StatusBadRequest, errors.NewUnsupportedGrantType())
	}
}

type checkInStatusResponse struct {
	Available       bool `json:"available"`
	CaptchaRequired bool `json:"captcha_required"`
}

// CheckInStatusHandler reports whether the account can still check in
// today and whether the captcha gate applies.
func (api *API) CheckInStatusHandler(c echo.Context) error {
	subject := subjectID(c)
	if subject == "" {
		return c.JSON(http.StatusUnauthorized, errors.NewInvalidRequest("Authentication required"))
	}

	ctx := c.Request().Context()
	available, err := api.checkIn.IsAvailableToday(ctx, subject)
	if err != nil {
		log.Error().Err(err).Str("account_id", subject).Msg("failed to query check-in availability")
		return c.JSON(http.StatusInternalServerError, errors.NewServerError("Failed to query availability"))
	}

	return c.JSON(http.StatusOK, checkInStatusResponse{
		Available:       available,
		CaptchaRequired: api.checkIn.NeedsCaptcha(ctx, subject),
	})
}

// CheckInHistoryHandler lists the account's results for one calendar
// month (?month=2026-08, defaulting to the current one).
func (api *API) CheckInHistoryHandler(c echo.Context) error {
	subject := subjectID(c)
	if subject == "" {
		return c.JSON(http.StatusUnauthorized, errors.NewInvalidRequest("Authentication required"))
	}

	month := time.Now().UTC()
	if raw := c.QueryParam("month"); raw != "" {
		parsed, err := time.Parse("2006-01", raw)
		if err != nil {
			return c.JSON(http.StatusBadRequest, errors.NewInvalidRequest("Invalid month, expected YYYY-MM"))
		}
		month = parsed
	}

	results, err := api.checkIn.History(c.Request().Context(), subject, month)
	if err != nil {
		log.Error().Err(err).Str("account_id", subject).Msg("failed to list check-in history")
		return c.JSON(http.StatusInternalServerError, errors.NewServerError("Failed to list history"))
	}

	return c.JSON(http.StatusOK, results)
}

type checkInRequest struct {
	BackdatedDate string `json:"backdated_date,omitempty"` // YYYY-MM-DD, UTC
	CaptchaToken  string `json:"captcha_token,omitempty"`
}

type apiError struct {
	Error string `json:"error"`
}

// CheckInHandler performs a live or backdated check-in.
func (api *API) CheckInHandler(c echo.Context) error {
	subject := subjectID(c)
	if subject == "" {
		return c.JSON(http.StatusUnauthorized, errors.NewInvalidRequest("Authentication required"))
	}

	ctx := c.Request().Context()

	var req checkInRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, apiError{Error: "malformed request body"})
	}

	if api.checkIn.NeedsCaptcha(ctx, subject) {
		if req.CaptchaToken == "" {
			return c.JSON(http.StatusForbidden, apiError{Error: errors.ErrCaptchaRequired.Error()})
		}
		if !api.captcha.Verify(ctx, req.CaptchaToken) {
			return c.JSON(http.StatusForbidden, apiError{Error: errors.ErrInvalidCaptcha.Error()})
		}
	}

	var backdated *time.Time
	if req.BackdatedDate != "" {
		parsed, err := time.Parse("2006-01-02", req.BackdatedDate)
		if err != nil {
			return c.JSON(http.StatusBadRequest, apiError{Error: "invalid backdated_date, expected YYYY-MM-DD"})
		}
		backdated = &parsed
	}

	account, err := api.accounts.GetAccount(ctx, subject)
	if err != nil {
		log.Error().Err(err).Str("account_id", subject).Msg("failed to load account")
		return c.JSON(http.StatusInternalServerError, errors.NewServerError("Failed to load account"))
	}

	result, err := api.checkIn.Execute(ctx, account, backdated)
	if err != nil {
		switch {
		case stderrors.Is(err, errors.ErrAlreadyCheckedIn):
			return c.JSON(http.StatusConflict, apiError{Error: err.Error()})
		case stderrors.Is(err, errors.ErrCheckInInProgress):
			return c.JSON(http.StatusTooManyRequests, apiError{Error: err.Error()})
		case stderrors.Is(err, errors.ErrBackdateUnavailable):
			return c.JSON(http.StatusBadRequest, apiError{Error: err.Error()})
		default:
			log.Error().Err(err).Str("account_id", subject).Msg("check-in failed")
			return c.JSON(http.StatusInternalServerError, errors.NewServerError("Check-in failed"))
		}
	}

	return c.JSON(http.StatusOK, result)
}
