package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorCode identifies a failure class in responses and logs.
type ErrorCode string

const (
	ErrorCodeInternalError       ErrorCode = "INTERNAL_ERROR"
	ErrorCodeValidationError     ErrorCode = "VALIDATION_ERROR"
	ErrorCodeNotFound            ErrorCode = "NOT_FOUND"
	ErrorCodeRateLimited         ErrorCode = "RATE_LIMITED"
	ErrorCodeNotConfigured       ErrorCode = "NOT_CONFIGURED"
	ErrorCodeRefreshTokenInvalid ErrorCode = "REFRESH_TOKEN_INVALID"
	ErrorCodeTokenExchangeFailed ErrorCode = "TOKEN_EXCHANGE_FAILED"
	ErrorCodeTokenExpired        ErrorCode = "TOKEN_EXPIRED"
	ErrorCodeMissingScopes       ErrorCode = "MISSING_SCOPES"
	ErrorCodeUpstreamError       ErrorCode = "UPSTREAM_ERROR"
)

// AppError is the base error type for HTTP responses. StatusCode is the
// status the proxy answers with, not the upstream status that caused it;
// the upstream status lives in Details.
type AppError struct {
	Code       ErrorCode
	Message    string
	StatusCode int
	Details    map[string]any
}

func (err *AppError) Error() string {
	return err.Message
}

func NewAppError(code ErrorCode, message string, statusCode int, details map[string]any) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
		Details:    details,
	}
}

func NewValidationError(message string, details map[string]any) *AppError {
	return NewAppError(ErrorCodeValidationError, message, http.StatusBadRequest, details)
}

func NewNotFoundError(message string, details map[string]any) *AppError {
	return NewAppError(ErrorCodeNotFound, message, http.StatusNotFound, details)
}

func NewInternalError(message string) *AppError {
	return NewAppError(ErrorCodeInternalError, message, http.StatusInternalServerError, nil)
}

// NewRefreshTokenInvalidError marks a token exchange that failed because the
// long-lived refresh credential is expired or revoked. Callers downgrade this
// to the notConfigured response instead of a 5xx.
func NewRefreshTokenInvalidError(description string) *AppError {
	msg := "Refresh token is invalid or has expired. Re-authorize and set a new SPOTIFY_REFRESH_TOKEN."
	details := map[string]any{}
	if description != "" {
		details["upstream_error"] = description
	}
	return NewAppError(ErrorCodeRefreshTokenInvalid, msg, http.StatusOK, details)
}

func NewTokenExchangeError(upstreamStatus int, description string) *AppError {
	msg := fmt.Sprintf("Failed to get access token: upstream status %d", upstreamStatus)
	if description != "" {
		msg = msg + ". " + description
	}
	return NewAppError(ErrorCodeTokenExchangeFailed, msg, http.StatusBadGateway, map[string]any{
		"upstream_status": upstreamStatus,
	})
}

func NewTokenExpiredError() *AppError {
	return NewAppError(ErrorCodeTokenExpired, "Access token expired or invalid", http.StatusBadGateway, nil)
}

func NewMissingScopesError() *AppError {
	return NewAppError(ErrorCodeMissingScopes,
		"Missing required scopes. Re-authorize with all required scopes.", http.StatusBadGateway, nil)
}

// NewRateLimitedError carries the upstream Retry-After hint. retryAfter is
// the raw header value, or "unknown" when the header was absent.
func NewRateLimitedError(retryAfter string) *AppError {
	if retryAfter == "" {
		retryAfter = "unknown"
	}
	return NewAppError(ErrorCodeRateLimited,
		fmt.Sprintf("Rate limit exceeded. Retry after %s seconds.", retryAfter),
		http.StatusBadGateway,
		map[string]any{"retry_after": retryAfter})
}

func NewUpstreamError(upstreamStatus int, message string) *AppError {
	if message == "" {
		message = http.StatusText(upstreamStatus)
	}
	return NewAppError(ErrorCodeUpstreamError,
		fmt.Sprintf("Spotify API error (%d): %s", upstreamStatus, message),
		http.StatusBadGateway,
		map[string]any{"upstream_status": upstreamStatus})
}

// HasCode reports whether err is an AppError with the given code.
func HasCode(err error, code ErrorCode) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

// IsRefreshTokenInvalid reports whether err is the expired/revoked refresh
// credential case that maps to the notConfigured response shape.
func IsRefreshTokenInvalid(err error) bool {
	return HasCode(err, ErrorCodeRefreshTokenInvalid)
}

// EnsureAppError converts an arbitrary error into an AppError.
func EnsureAppError(err error) *AppError {
	if err == nil {
		return NewInternalError("Unknown error")
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return &AppError{
		Code:       ErrorCodeInternalError,
		Message:    err.Error(),
		StatusCode: http.StatusInternalServerError,
	}
}
