package spotify

import (
	"strings"
	"time"
)

const (
	fallbackTrackName  = "Unknown Track"
	fallbackArtistName = "Unknown Artist"
	fallbackUserName   = "Unknown User"
)

// pickImage selects the artwork variant for the normalized shape. The
// tie-break order is fixed: height exactly 300, then height exactly 640,
// then the first image, then empty.
func pickImage(images []Image) string {
	for _, img := range images {
		if img.Height == 300 {
			return img.URL
		}
	}
	for _, img := range images {
		if img.Height == 640 {
			return img.URL
		}
	}
	if len(images) > 0 {
		return images[0].URL
	}
	return ""
}

func joinArtistNames(artists []rawArtist) string {
	names := make([]string, 0, len(artists))
	for _, a := range artists {
		if a.Name != "" {
			names = append(names, a.Name)
		}
	}
	if len(names) == 0 {
		return ""
	}
	return strings.Join(names, ", ")
}

// mapTrack normalizes one raw track. playedAt, when present, becomes the
// track date; otherwise the date is the mapping time. progress only carries
// meaning for the currently-playing track. Returns nil for nil input so
// malformed entries drop out of their sequence.
func mapTrack(t *rawTrack, playedAt string, progress int) *Track {
	if t == nil {
		return nil
	}

	name := t.Name
	if name == "" {
		name = fallbackTrackName
	}

	artist := joinArtistNames(t.Artists)
	if artist == "" {
		artist = fallbackArtistName
	}

	date := time.Now().UnixMilli()
	if playedAt != "" {
		if parsed, err := time.Parse(time.RFC3339Nano, playedAt); err == nil {
			date = parsed.UnixMilli()
		}
	}

	return &Track{
		Name:       name,
		Artist:     artist,
		Image:      pickImage(t.Album.Images),
		URL:        t.ExternalURLs.Spotify,
		Date:       date,
		NowPlaying: false,
		Duration:   t.DurationMs,
		Progress:   progress,
	}
}

// mapArtist normalizes one raw artist. Plays is always 0: upstream does not
// expose per-artist play counts.
func mapArtist(a *rawArtist) *Artist {
	if a == nil {
		return nil
	}

	name := a.Name
	if name == "" {
		name = fallbackArtistName
	}

	return &Artist{
		Name:  name,
		Image: pickImage(a.Images),
		URL:   a.ExternalURLs.Spotify,
		Plays: 0,
	}
}

// mapUser normalizes the account record. Display name falls back to the
// account ID, then to "Unknown User".
func mapUser(u rawUser) *UserProfile {
	name := u.DisplayName
	if name == "" {
		name = u.ID
	}
	if name == "" {
		name = fallbackUserName
	}

	image := ""
	if len(u.Images) > 0 {
		image = u.Images[0].URL
	}

	return &UserProfile{
		Name:       name,
		Image:      image,
		URL:        u.ExternalURLs.Spotify,
		TotalPlays: 0,
		Registered: 0,
		Followers:  u.Followers.Total,
		ID:         u.ID,
	}
}
