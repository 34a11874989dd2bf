// Package snapshot records aggregated activity payloads for history.
// The live endpoint always fetches fresh data; this store is a record of
// what was served, never a response cache.
package snapshot

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Snapshot is one persisted aggregation result.
type Snapshot struct {
	SnapshotID       string          `json:"snapshot_id"`
	TakenAt          time.Time       `json:"taken_at"`
	TrackCount       int             `json:"track_count"`
	ArtistCount      int             `json:"artist_count"`
	NowPlaying       bool            `json:"now_playing"`
	TotalListeningMs int             `json:"total_listening_ms"`
	Payload          json.RawMessage `json:"payload,omitempty"`
}

// DBPair is the connection pair interface (matches db.DBPair).
type DBPair interface {
	Reader() *sql.DB
	Writer() *sql.DB
}

// Repository handles database operations for snapshots.
type Repository struct {
	reader *sql.DB
	writer *sql.DB
}

// NewRepository creates a snapshot Repository.
func NewRepository(dbPair DBPair) *Repository {
	return &Repository{reader: dbPair.Reader(), writer: dbPair.Writer()}
}

// InsertInput carries the derived columns plus the full payload.
type InsertInput struct {
	TrackCount       int
	ArtistCount      int
	NowPlaying       bool
	TotalListeningMs int
	Payload          any
}

// Insert persists one snapshot and returns it with its generated ID.
func (r *Repository) Insert(input InsertInput) (*Snapshot, error) {
	snapshotID := uuid.NewString()
	takenAt := time.Now().UTC()

	payloadJSON, err := json.Marshal(input.Payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}

	nowPlaying := 0
	if input.NowPlaying {
		nowPlaying = 1
	}

	_, err = r.writer.Exec(`
		INSERT INTO snapshots (snapshot_id, taken_at, track_count, artist_count, now_playing, total_listening_ms, payload)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, snapshotID, takenAt.Format(time.RFC3339), input.TrackCount, input.ArtistCount, nowPlaying, input.TotalListeningMs, string(payloadJSON))
	if err != nil {
		return nil, err
	}

	return &Snapshot{
		SnapshotID:       snapshotID,
		TakenAt:          takenAt,
		TrackCount:       input.TrackCount,
		ArtistCount:      input.ArtistCount,
		NowPlaying:       input.NowPlaying,
		TotalListeningMs: input.TotalListeningMs,
		Payload:          payloadJSON,
	}, nil
}

// List returns snapshots newest first, without payloads, plus the total
// row count for pagination.
func (r *Repository) List(limit, offset int) ([]Snapshot, int, error) {
	var total int
	if err := r.reader.QueryRow("SELECT COUNT(*) FROM snapshots").Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.reader.Query(`
		SELECT snapshot_id, taken_at, track_count, artist_count, now_playing, total_listening_ms
		FROM snapshots
		ORDER BY taken_at DESC
		LIMIT ? OFFSET ?
	`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	snapshots := make([]Snapshot, 0, limit)
	for rows.Next() {
		var (
			s          Snapshot
			takenAt    string
			nowPlaying int
		)
		if err := rows.Scan(&s.SnapshotID, &takenAt, &s.TrackCount, &s.ArtistCount, &nowPlaying, &s.TotalListeningMs); err != nil {
			return nil, 0, err
		}
		s.TakenAt, _ = time.Parse(time.RFC3339, takenAt)
		s.NowPlaying = nowPlaying == 1
		snapshots = append(snapshots, s)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	return snapshots, total, nil
}

// Get returns a single snapshot with its full payload, or nil when absent.
func (r *Repository) Get(snapshotID string) (*Snapshot, error) {
	var (
		s          Snapshot
		takenAt    string
		nowPlaying int
		payload    string
	)
	err := r.reader.QueryRow(`
		SELECT snapshot_id, taken_at, track_count, artist_count, now_playing, total_listening_ms, payload
		FROM snapshots
		WHERE snapshot_id = ?
	`, snapshotID).Scan(&s.SnapshotID, &takenAt, &s.TrackCount, &s.ArtistCount, &nowPlaying, &s.TotalListeningMs, &payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	s.TakenAt, _ = time.Parse(time.RFC3339, takenAt)
	s.NowPlaying = nowPlaying == 1
	s.Payload = json.RawMessage(payload)
	return &s, nil
}

// PruneOlderThan deletes snapshots older than the retention window and
// returns the number of rows removed.
func (r *Repository) PruneOlderThan(retentionDays int) (int64, error) {
	cutoff := time.Now().UTC().AddDate(0, 0, -retentionDays).Format(time.RFC3339)
	result, err := r.writer.Exec("DELETE FROM snapshots WHERE taken_at < ?", cutoff)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
