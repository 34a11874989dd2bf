package spotify

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/minhng/spotify-proxy-go/internal/apperrors"
)

// Credentials hold the process-wide Spotify client credentials. They are
// read once at startup and passed in explicitly; absence of any value is the
// recognized not-configured state, never a runtime fault.
type Credentials struct {
	ClientID     string
	ClientSecret string
	RefreshToken string
}

// Configured reports whether all three credential values are present.
func (c Credentials) Configured() bool {
	return c.ClientID != "" && c.ClientSecret != "" && c.RefreshToken != ""
}

// TokenExchanger mints short-lived bearer tokens from the long-lived refresh
// credential. Tokens are never cached across requests and never logged.
type TokenExchanger struct {
	creds       Credentials
	accountsURL string
	httpClient  *http.Client
	logger      *log.Logger
}

// NewTokenExchanger creates a TokenExchanger against the given authorization
// server base URL (e.g. https://accounts.spotify.com).
func NewTokenExchanger(creds Credentials, accountsURL string, timeout time.Duration, logger *log.Logger) *TokenExchanger {
	if logger == nil {
		logger = log.Default()
	}
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &TokenExchanger{
		creds:       creds,
		accountsURL: strings.TrimSuffix(accountsURL, "/"),
		httpClient:  &http.Client{Timeout: timeout},
		logger:      logger,
	}
}

type tokenErrorBody struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

// GetAccessToken performs one refresh-token grant and returns the bearer
// token. A 400 response describing an invalid or expired refresh token is
// classified as RefreshTokenInvalid so the caller can downgrade it to the
// notConfigured response.
func (t *TokenExchanger) GetAccessToken(ctx context.Context) (string, error) {
	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", t.creds.RefreshToken)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		t.accountsURL+"/api/token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", apperrors.NewTokenExchangeError(0, err.Error())
	}
	req.SetBasicAuth(t.creds.ClientID, t.creds.ClientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return "", apperrors.NewTokenExchangeError(0, err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", classifyTokenError(resp)
	}

	var body tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", apperrors.NewTokenExchangeError(resp.StatusCode, "malformed token response")
	}
	if body.AccessToken == "" {
		return "", apperrors.NewTokenExchangeError(resp.StatusCode, "token response missing access_token")
	}

	// Upstream occasionally issues a rotated refresh token. There is no
	// writable credential store here, so surface a note and keep using the
	// configured one.
	if body.RefreshToken != "" && body.RefreshToken != t.creds.RefreshToken {
		t.logger.Printf("Spotify returned a new refresh token; update SPOTIFY_REFRESH_TOKEN manually to rotate")
	}

	return body.AccessToken, nil
}

func classifyTokenError(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	var body tokenErrorBody
	_ = json.Unmarshal(data, &body)
	description := body.ErrorDescription
	if description == "" {
		description = body.Error
	}

	if resp.StatusCode == http.StatusBadRequest && refreshTokenRejected(body, description) {
		return apperrors.NewRefreshTokenInvalidError(description)
	}

	return apperrors.NewTokenExchangeError(resp.StatusCode, description)
}

func refreshTokenRejected(body tokenErrorBody, description string) bool {
	if body.Error == "invalid_grant" {
		return true
	}
	lowered := strings.ToLower(description)
	return strings.Contains(lowered, "refresh token") || strings.Contains(lowered, "refresh_token")
}
