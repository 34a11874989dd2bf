package snapshot

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/minhng/spotify-proxy-go/internal/api"
	"github.com/minhng/spotify-proxy-go/internal/apperrors"
)

// RegisterRoutes mounts the snapshot history endpoints.
func RegisterRoutes(router chi.Router, svc *Service) {
	router.Method("GET", "/v1/snapshots", api.Handler(func(w http.ResponseWriter, r *http.Request) error {
		limit, err := queryInt(r, "limit")
		if err != nil {
			return err
		}
		offset, err := queryInt(r, "offset")
		if err != nil {
			return err
		}

		snapshots, total, err := svc.List(limit, offset)
		if err != nil {
			return err
		}

		hasMore := offset+len(snapshots) < total
		return api.WriteList(w, r.URL.Path, snapshots, hasMore)
	}))

	router.Method("GET", "/v1/snapshots/{snapshotID}", api.Handler(func(w http.ResponseWriter, r *http.Request) error {
		snapshotID := chi.URLParam(r, "snapshotID")

		snapshot, err := svc.Get(snapshotID)
		if err != nil {
			return err
		}
		if snapshot == nil {
			return apperrors.NewNotFoundError("Snapshot not found", map[string]any{"snapshot_id": snapshotID})
		}

		return api.WriteResource(w, http.StatusOK, snapshot)
	}))
}

// queryInt parses an optional integer query parameter. An absent or empty
// parameter is 0; a present non-integer one is a validation error.
func queryInt(r *http.Request, name string) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperrors.NewValidationError(
			fmt.Sprintf("%s must be an integer", name),
			map[string]any{name: raw},
		)
	}
	return value, nil
}
