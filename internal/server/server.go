// Package server wires configuration, services, and routes into the
// HTTP handler.
package server

import (
	"context"
	"net/http"
	"os"
	"time"

	_ "github.com/mattn/go-sqlite3"

	charmlog "github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/minhng/spotify-proxy-go/internal/api"
	"github.com/minhng/spotify-proxy-go/internal/config"
	"github.com/minhng/spotify-proxy-go/internal/db"
	"github.com/minhng/spotify-proxy-go/internal/metrics"
	"github.com/minhng/spotify-proxy-go/internal/snapshot"
	"github.com/minhng/spotify-proxy-go/internal/spotify"
	"github.com/minhng/spotify-proxy-go/internal/stream"
)

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

// requestLoggerMiddleware logs all incoming HTTP requests
func requestLoggerMiddleware(logger *charmlog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			wrapped := &responseWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(wrapped, r)
			logger.Info("request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", wrapped.status,
				"duration", time.Since(start).Round(time.Millisecond),
			)
		})
	}
}

// Options controls server wiring.
type Options struct {
	// DisableStream skips the now-playing poller (for tests).
	DisableStream bool
}

// NewHandler builds the HTTP handler and returns a shutdown function.
func NewHandler(cfg config.Config, options Options) (http.Handler, func(context.Context) error, error) {
	logger := charmlog.NewWithOptions(os.Stderr, charmlog.Options{
		ReportTimestamp: true,
		Prefix:          "spotify-proxy",
	})
	stdLogger := logger.StandardLog()

	router := chi.NewRouter()
	router.Use(middleware.StripSlashes)
	router.Use(requestLoggerMiddleware(logger))
	router.Use(api.RequestIDMiddleware)
	router.Use(api.RecovererMiddleware)
	if cfg.CORSEnabled {
		router.Use(api.CORSMiddleware)
	}

	var rateLimiter *api.RateLimiter
	if cfg.RateLimitPerMinute > 0 {
		rateLimiter = api.NewRateLimiter(cfg.RateLimitPerMinute)
		router.Use(rateLimiter.Middleware)
	}

	registerHealthRoutes(router)

	collector := metrics.NewCollector()
	router.Handle("/metrics", collector.Handler())

	var (
		dbPair          *db.DBPair
		snapshotService *snapshot.Service
		activityStore   spotify.ActivityRecorder
	)
	if cfg.SnapshotsEnabled {
		logger.Info("Using database", "path", cfg.SQLiteDBPath)
		pair, err := db.Init(cfg.SQLiteDBPath)
		if err != nil {
			return nil, nil, err
		}
		dbPair = pair

		snapshotService = snapshot.NewService(snapshot.NewRepository(dbPair), stdLogger, cfg.SnapshotRetentionDays)
		snapshot.RegisterRoutes(router, snapshotService)
		if err := snapshotService.StartPruneJob(cfg.SnapshotPruneSchedule); err != nil {
			_ = dbPair.Close()
			return nil, nil, err
		}
		activityStore = snapshotService
	}

	spotifyService := spotify.NewService(cfg, stdLogger, collector)
	spotify.RegisterRoutes(router, spotifyService, cfg, stdLogger, activityStore, collector)

	var poller *stream.Poller
	var hub *stream.Hub
	if cfg.StreamEnabled && spotifyService.Configured() && !options.DisableStream {
		hub = stream.NewHub(stdLogger)
		stream.RegisterRoutes(router, hub)

		probe := func(ctx context.Context) (*spotify.Track, error) {
			collector.SetStreamClients(hub.ClientCount())
			return spotifyService.CurrentlyPlaying(ctx)
		}
		poller = stream.NewPoller(hub, probe, time.Duration(cfg.StreamPollSeconds)*time.Second, stdLogger)
		poller.Start()
	}

	shutdown := func(ctx context.Context) error {
		if poller != nil {
			poller.Stop()
		}
		if hub != nil {
			hub.Close()
		}
		if rateLimiter != nil {
			rateLimiter.Stop()
		}
		if snapshotService != nil {
			snapshotService.StopPruneJob()
		}
		if dbPair != nil {
			return dbPair.Close()
		}
		return nil
	}

	return router, shutdown, nil
}

func registerHealthRoutes(router chi.Router) {
	router.Method(http.MethodGet, "/v1/health", api.Handler(func(w http.ResponseWriter, r *http.Request) error {
		response := map[string]any{
			"status":    "healthy",
			"service":   "spotify-proxy",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		}
		return api.WriteJSON(w, http.StatusOK, response)
	}))
	router.Method(http.MethodGet, "/v1/health/live", api.Handler(func(w http.ResponseWriter, r *http.Request) error {
		return api.WriteJSON(w, http.StatusOK, map[string]any{"status": "ok"})
	}))
	router.Method(http.MethodGet, "/v1/health/ready", api.Handler(func(w http.ResponseWriter, r *http.Request) error {
		return api.WriteJSON(w, http.StatusOK, map[string]any{"status": "ready"})
	}))
}
