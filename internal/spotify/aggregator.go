package spotify

import (
	"context"
	"log"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/minhng/spotify-proxy-go/internal/apperrors"
	"github.com/minhng/spotify-proxy-go/internal/config"
)

const (
	endpointMe               = "/me"
	endpointTopTracks        = "/me/top/tracks?limit=6&time_range=short_term"
	endpointTopArtists       = "/me/top/artists?limit=4&time_range=short_term"
	endpointRecentlyPlayed   = "/me/player/recently-played?limit=14"
	endpointCurrentlyPlaying = "/me/player/currently-playing"

	notConfiguredMessage = "Spotify is not configured. Set SPOTIFY_CLIENT_ID, SPOTIFY_CLIENT_SECRET and SPOTIFY_REFRESH_TOKEN in the environment."
)

// Recorder observes aggregation metrics. All methods must be cheap; a nil
// Recorder disables observation.
type Recorder interface {
	StatusRecorder
	ObserveAggregationLatency(d time.Duration)
}

// Service aggregates the owner's Spotify listening activity. Every call
// fetches fresh data: no token or payload survives across invocations.
type Service struct {
	creds    Credentials
	tokens   *TokenExchanger
	client   *Client
	logger   *log.Logger
	recorder Recorder
}

// NewService builds the aggregation service from configuration. recorder
// may be nil.
func NewService(cfg config.Config, logger *log.Logger, recorder Recorder) *Service {
	if logger == nil {
		logger = log.Default()
	}
	creds := Credentials{
		ClientID:     cfg.SpotifyClientID,
		ClientSecret: cfg.SpotifyClientSecret,
		RefreshToken: cfg.SpotifyRefreshToken,
	}
	timeout := time.Duration(cfg.UpstreamTimeoutMs) * time.Millisecond

	var statusRecorder StatusRecorder
	if recorder != nil {
		statusRecorder = recorder
	}

	return &Service{
		creds:    creds,
		tokens:   NewTokenExchanger(creds, cfg.SpotifyAccountsURL, timeout, logger),
		client:   NewClient(cfg.SpotifyAPIURL, timeout, statusRecorder),
		logger:   logger,
		recorder: recorder,
	}
}

// Configured reports whether all credentials are present.
func (s *Service) Configured() bool {
	return s.creds.Configured()
}

func notConfiguredActivity(message string) *Activity {
	if message == "" {
		message = notConfiguredMessage
	}
	return &Activity{
		User:          nil,
		TopTracks:     []Track{},
		TopArtists:    []Artist{},
		RecentTracks:  []Track{},
		NotConfigured: true,
		Message:       message,
	}
}

// FetchActivity assembles the aggregated activity payload.
//
// The four primary endpoints are fetched concurrently and joined: the first
// failure aborts the whole aggregation and no partial payload escapes. The
// currently-playing probe afterwards is best-effort; its failures are
// swallowed and treated as nothing playing.
func (s *Service) FetchActivity(ctx context.Context) (*Activity, error) {
	if !s.creds.Configured() {
		return notConfiguredActivity(""), nil
	}

	start := time.Now()
	defer func() {
		if s.recorder != nil {
			s.recorder.ObserveAggregationLatency(time.Since(start))
		}
	}()

	token, err := s.tokens.GetAccessToken(ctx)
	if err != nil {
		if apperrors.IsRefreshTokenInvalid(err) {
			s.logger.Printf("refresh token rejected, serving notConfigured: %v", err)
			return notConfiguredActivity(apperrors.EnsureAppError(err).Message), nil
		}
		return nil, err
	}

	var (
		user    rawUser
		top     topTracksPage
		artists topArtistsPage
		recent  recentlyPlayedPage
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		_, err := s.client.Get(gctx, endpointMe, token, &user)
		return err
	})
	g.Go(func() error {
		_, err := s.client.Get(gctx, endpointTopTracks, token, &top)
		return err
	})
	g.Go(func() error {
		_, err := s.client.Get(gctx, endpointTopArtists, token, &artists)
		return err
	})
	g.Go(func() error {
		_, err := s.client.Get(gctx, endpointRecentlyPlayed, token, &recent)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	activity := &Activity{
		User:         mapUser(user),
		TopTracks:    make([]Track, 0, len(top.Items)),
		TopArtists:   make([]Artist, 0, len(artists.Items)),
		RecentTracks: make([]Track, 0, len(recent.Items)+1),
	}

	for _, item := range top.Items {
		if mapped := mapTrack(item, "", 0); mapped != nil {
			activity.TopTracks = append(activity.TopTracks, *mapped)
		}
	}
	for _, item := range artists.Items {
		if mapped := mapArtist(item); mapped != nil {
			activity.TopArtists = append(activity.TopArtists, *mapped)
		}
	}
	for _, item := range recent.Items {
		if mapped := mapTrack(item.Track, item.PlayedAt, 0); mapped != nil {
			activity.RecentTracks = append(activity.RecentTracks, *mapped)
		}
	}

	s.mergeCurrentlyPlaying(ctx, token, activity)

	// Approximate listening time: sum of durations over top tracks plus
	// recent tracks. A track on both lists counts twice; consumers expect
	// that, so it stays.
	for _, t := range activity.TopTracks {
		activity.TotalListeningTime += t.Duration
	}
	for _, t := range activity.RecentTracks {
		activity.TotalListeningTime += t.Duration
	}

	return activity, nil
}

// mergeCurrentlyPlaying runs the best-effort probe and, when something is
// playing, prepends it to recent tracks unless an entry with the same
// (name, artist) pair is already there.
func (s *Service) mergeCurrentlyPlaying(ctx context.Context, token string, activity *Activity) {
	var status currentlyPlayingStatus
	ok, err := s.client.Get(ctx, endpointCurrentlyPlaying, token, &status)
	if err != nil {
		s.logger.Printf("currently-playing probe failed: %v", err)
		return
	}
	if !ok || !status.IsPlaying || status.Item == nil {
		return
	}

	current := mapTrack(status.Item, "", status.ProgressMs)
	if current == nil {
		return
	}
	current.NowPlaying = true
	activity.CurrentlyPlaying = current

	for _, t := range activity.RecentTracks {
		if t.Name == current.Name && t.Artist == current.Artist {
			return
		}
	}
	activity.RecentTracks = append([]Track{*current}, activity.RecentTracks...)
}

// CurrentlyPlaying probes the playback endpoint once and returns the
// normalized track, or nil when nothing is playing or the proxy is not
// configured. Used by the now-playing stream poller.
func (s *Service) CurrentlyPlaying(ctx context.Context) (*Track, error) {
	if !s.creds.Configured() {
		return nil, nil
	}

	token, err := s.tokens.GetAccessToken(ctx)
	if err != nil {
		return nil, err
	}

	var status currentlyPlayingStatus
	ok, err := s.client.Get(ctx, endpointCurrentlyPlaying, token, &status)
	if err != nil {
		return nil, err
	}
	if !ok || !status.IsPlaying || status.Item == nil {
		return nil, nil
	}

	current := mapTrack(status.Item, "", status.ProgressMs)
	if current != nil {
		current.NowPlaying = true
	}
	return current, nil
}
