package spotify

import (
	"fmt"
	"log"
	"net/http"
	"runtime/debug"

	"github.com/go-chi/chi/v5"

	"github.com/minhng/spotify-proxy-go/internal/api"
	"github.com/minhng/spotify-proxy-go/internal/apperrors"
	"github.com/minhng/spotify-proxy-go/internal/config"
)

// ActivityRecorder persists aggregated activity out of band. Recording is
// best-effort: failures are logged and never fail the request.
type ActivityRecorder interface {
	RecordActivity(activity *Activity) error
}

// RequestRecorder counts served requests by outcome.
type RequestRecorder interface {
	RecordRequest(outcome string)
}

// activityResponse is the success payload contract. Field names are shared
// with the front-end consumers and must not change.
type activityResponse struct {
	User               *UserProfile `json:"user"`
	TopTracks          []Track      `json:"topTracks"`
	TopArtists         []Artist     `json:"topArtists"`
	RecentTracks       []Track      `json:"recentTracks"`
	CurrentlyPlaying   *Track       `json:"currentlyPlaying"`
	TotalListeningTime int          `json:"totalListeningTime"`
}

// notConfiguredResponse is the success-shaped payload served when
// credentials are absent or the refresh token is invalid.
type notConfiguredResponse struct {
	Error         bool      `json:"error"`
	NotConfigured bool      `json:"notConfigured"`
	Message       string    `json:"message"`
	User          *struct{} `json:"user"`
	TopTracks     []Track   `json:"topTracks"`
	TopArtists    []Artist  `json:"topArtists"`
	RecentTracks  []Track   `json:"recentTracks"`
}

type errorResponse struct {
	Error   bool   `json:"error"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// RegisterRoutes mounts the public activity endpoint. recordActivity and
// requests may be nil.
func RegisterRoutes(router chi.Router, svc *Service, cfg config.Config, logger *log.Logger, recordActivity ActivityRecorder, requests RequestRecorder) {
	if logger == nil {
		logger = log.Default()
	}

	handler := api.Handler(func(w http.ResponseWriter, r *http.Request) error {
		activity, err := svc.FetchActivity(r.Context())
		if err != nil {
			logger.Printf("activity aggregation failed: %v", err)
			countRequest(requests, "error")
			appErr := apperrors.EnsureAppError(err)
			body := errorResponse{Error: true, Message: appErr.Message}
			if !cfg.IsProduction() {
				body.Details = string(debug.Stack())
			}
			return api.WriteJSON(w, appErr.StatusCode, body)
		}

		if activity.NotConfigured {
			countRequest(requests, "not_configured")
			return api.WriteJSON(w, http.StatusOK, notConfiguredResponse{
				Error:         false,
				NotConfigured: true,
				Message:       activity.Message,
				TopTracks:     []Track{},
				TopArtists:    []Artist{},
				RecentTracks:  []Track{},
			})
		}

		if recordActivity != nil {
			if err := recordActivity.RecordActivity(activity); err != nil {
				logger.Printf("snapshot record failed: %v", err)
			}
		}

		countRequest(requests, "success")
		w.Header().Set("Cache-Control", fmt.Sprintf("public, max-age=%d", cfg.CacheMaxAgeSeconds))
		return api.WriteJSON(w, http.StatusOK, activityResponse{
			User:               activity.User,
			TopTracks:          activity.TopTracks,
			TopArtists:         activity.TopArtists,
			RecentTracks:       activity.RecentTracks,
			CurrentlyPlaying:   activity.CurrentlyPlaying,
			TotalListeningTime: activity.TotalListeningTime,
		})
	})

	router.Method(http.MethodGet, "/api/spotify", handler)
}

func countRequest(requests RequestRecorder, outcome string) {
	if requests != nil {
		requests.RecordRequest(outcome)
	}
}
