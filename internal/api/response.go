package api

import (
	"encoding/json"
	"net/http"

	"github.com/minhng/spotify-proxy-go/internal/apperrors"
)

// ErrorResponse is the error payload for the internal v1 endpoints.
// The public /api/spotify endpoint shapes its own envelope to keep the
// payload contract shared with its front-end consumers.
type ErrorResponse struct {
	Error   bool                `json:"error"`
	Code    apperrors.ErrorCode `json:"code"`
	Message string              `json:"message"`
}

// ListResponse is the list envelope for collection endpoints.
type ListResponse struct {
	Object  string `json:"object"`
	Data    any    `json:"data"`
	HasMore bool   `json:"has_more"`
	URL     string `json:"url"`
}

// WriteJSON sends a JSON response with the given status.
func WriteJSON(w http.ResponseWriter, status int, payload any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(payload)
}

// WriteError serializes an AppError into the error response shape.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	appErr := apperrors.EnsureAppError(err)
	_ = WriteJSON(w, appErr.StatusCode, ErrorResponse{
		Error:   true,
		Code:    appErr.Code,
		Message: appErr.Message,
	})
}

// WriteList writes a list response for a collection endpoint.
func WriteList(w http.ResponseWriter, url string, data any, hasMore bool) error {
	return WriteJSON(w, http.StatusOK, ListResponse{
		Object:  "list",
		Data:    data,
		HasMore: hasMore,
		URL:     url,
	})
}

// WriteResource writes a single resource directly.
func WriteResource(w http.ResponseWriter, status int, resource any) error {
	return WriteJSON(w, status, resource)
}
