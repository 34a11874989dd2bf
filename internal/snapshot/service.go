package snapshot

import (
	"log"

	"github.com/robfig/cron/v3"

	"github.com/minhng/spotify-proxy-go/internal/spotify"
)

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

// Service provides snapshot recording and retrieval.
type Service struct {
	repo          *Repository
	logger        *log.Logger
	retentionDays int
	scheduler     *cron.Cron
}

// NewService creates a snapshot Service.
func NewService(repo *Repository, logger *log.Logger, retentionDays int) *Service {
	return &Service{
		repo:          repo,
		logger:        logger,
		retentionDays: retentionDays,
	}
}

// RecordActivity persists a successful aggregation. Placeholder results
// produced without credentials are skipped.
func (s *Service) RecordActivity(activity *spotify.Activity) error {
	if activity == nil || activity.NotConfigured {
		return nil
	}

	nowPlaying := activity.CurrentlyPlaying != nil && activity.CurrentlyPlaying.NowPlaying

	_, err := s.repo.Insert(InsertInput{
		TrackCount:       len(activity.TopTracks) + len(activity.RecentTracks),
		ArtistCount:      len(activity.TopArtists),
		NowPlaying:       nowPlaying,
		TotalListeningMs: activity.TotalListeningTime,
		Payload:          activity,
	})
	return err
}

// List returns snapshots newest first with pagination clamped to sane bounds.
func (s *Service) List(limit, offset int) ([]Snapshot, int, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.List(limit, offset)
}

// Get returns a single snapshot by ID, or nil when absent.
func (s *Service) Get(snapshotID string) (*Snapshot, error) {
	return s.repo.Get(snapshotID)
}

// Prune removes snapshots older than the retention window.
func (s *Service) Prune() {
	deleted, err := s.repo.PruneOlderThan(s.retentionDays)
	if err != nil {
		s.logger.Printf("Snapshot prune failed: %v", err)
		return
	}
	if deleted > 0 {
		s.logger.Printf("Pruned %d snapshots older than %d days", deleted, s.retentionDays)
	}
}

// StartPruneJob runs a prune immediately, then on the given cron schedule.
func (s *Service) StartPruneJob(schedule string) error {
	s.Prune()

	s.scheduler = cron.New()
	if _, err := s.scheduler.AddFunc(schedule, s.Prune); err != nil {
		return err
	}
	s.scheduler.Start()
	s.logger.Printf("Snapshot prune job scheduled: %s (retention %d days)", schedule, s.retentionDays)
	return nil
}

// StopPruneJob stops the prune scheduler if running.
func (s *Service) StopPruneJob() {
	if s.scheduler != nil {
		ctx := s.scheduler.Stop()
		<-ctx.Done()
	}
}
