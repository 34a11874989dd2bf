package spotify

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/minhng/spotify-proxy-go/internal/apperrors"
)

// StatusRecorder observes upstream HTTP status codes. Implementations must
// be nil-safe at the call sites that use them.
type StatusRecorder interface {
	RecordUpstreamStatus(statusCode int)
}

// Client issues authenticated GET requests against the Spotify Web API and
// classifies failure status codes. It performs no retries; retry policy, if
// any, belongs to the caller.
type Client struct {
	baseURL    string
	httpClient *http.Client
	recorder   StatusRecorder
}

// NewClient creates a Client against the given API base URL
// (e.g. https://api.spotify.com/v1). recorder may be nil.
func NewClient(baseURL string, timeout time.Duration, recorder StatusRecorder) *Client {
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		recorder:   recorder,
	}
}

type upstreamErrorBody struct {
	Error struct {
		Status  int    `json:"status"`
		Message string `json:"message"`
	} `json:"error"`
}

// Get issues one bearer-authenticated GET. It decodes a 200 body into out
// and returns true. A 204 returns false with no error: the currently-playing
// endpoint answers 204 when nothing is playing. All other statuses map to
// the typed error taxonomy.
func (c *Client) Get(ctx context.Context, endpoint, accessToken string, out any) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+endpoint, nil)
	if err != nil {
		return false, apperrors.NewUpstreamError(0, err.Error())
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, apperrors.NewUpstreamError(0, err.Error())
	}
	defer resp.Body.Close()

	if c.recorder != nil {
		c.recorder.RecordUpstreamStatus(resp.StatusCode)
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return false, apperrors.NewUpstreamError(resp.StatusCode, "malformed response body")
		}
		return true, nil
	case resp.StatusCode == http.StatusNoContent:
		return false, nil
	case resp.StatusCode == http.StatusUnauthorized:
		return false, apperrors.NewTokenExpiredError()
	case resp.StatusCode == http.StatusForbidden:
		return false, apperrors.NewMissingScopesError()
	case resp.StatusCode == http.StatusTooManyRequests:
		return false, apperrors.NewRateLimitedError(resp.Header.Get("Retry-After"))
	default:
		return false, apperrors.NewUpstreamError(resp.StatusCode, upstreamMessage(resp))
	}
}

func upstreamMessage(resp *http.Response) string {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	var body upstreamErrorBody
	if err := json.Unmarshal(data, &body); err == nil && body.Error.Message != "" {
		return body.Error.Message
	}
	return ""
}
