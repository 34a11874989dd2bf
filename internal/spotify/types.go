// Package spotify wraps the Spotify Web API behind the activity
// aggregation contract served at /api/spotify.
package spotify

// =============================================================================
// Raw upstream payloads
// =============================================================================

// Image is one variant of an upstream artwork image.
type Image struct {
	URL    string `json:"url"`
	Height int    `json:"height"`
	Width  int    `json:"width"`
}

type externalURLs struct {
	Spotify string `json:"spotify"`
}

type rawArtist struct {
	ID           string       `json:"id"`
	Name         string       `json:"name"`
	ExternalURLs externalURLs `json:"external_urls"`
	Images       []Image      `json:"images"`
}

type rawAlbum struct {
	Images []Image `json:"images"`
}

type rawTrack struct {
	ID           string       `json:"id"`
	Name         string       `json:"name"`
	Artists      []rawArtist  `json:"artists"`
	Album        rawAlbum     `json:"album"`
	ExternalURLs externalURLs `json:"external_urls"`
	DurationMs   int          `json:"duration_ms"`
}

type rawUser struct {
	ID           string       `json:"id"`
	DisplayName  string       `json:"display_name"`
	ExternalURLs externalURLs `json:"external_urls"`
	Images       []Image      `json:"images"`
	Followers    struct {
		Total int `json:"total"`
	} `json:"followers"`
}

type topTracksPage struct {
	Items []*rawTrack `json:"items"`
}

type topArtistsPage struct {
	Items []*rawArtist `json:"items"`
}

type playHistoryItem struct {
	Track    *rawTrack `json:"track"`
	PlayedAt string    `json:"played_at"`
}

type recentlyPlayedPage struct {
	Items []playHistoryItem `json:"items"`
}

// currentlyPlayingStatus is the playback state object. Item is a pointer
// because upstream sends null when nothing is playing.
type currentlyPlayingStatus struct {
	IsPlaying  bool      `json:"is_playing"`
	ProgressMs int       `json:"progress_ms"`
	Item       *rawTrack `json:"item"`
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
}

// =============================================================================
// Normalized shapes served to consumers
// =============================================================================

// Track is the normalized track record. Date is epoch milliseconds: either
// the played-at time or the mapping time when no played-at applies.
type Track struct {
	Name       string `json:"name"`
	Artist     string `json:"artist"`
	Image      string `json:"image"`
	URL        string `json:"url"`
	Date       int64  `json:"date"`
	NowPlaying bool   `json:"nowPlaying"`
	Duration   int    `json:"duration"`
	Progress   int    `json:"progress"`
}

// Artist is the normalized artist record. Plays is always 0: upstream does
// not expose play counts, and the field stays for shape stability.
type Artist struct {
	Name  string `json:"name"`
	Image string `json:"image"`
	URL   string `json:"url"`
	Plays int    `json:"plays"`
}

// UserProfile is the normalized account record. TotalPlays and Registered
// are always-zero placeholders kept for shape stability with consumers.
type UserProfile struct {
	Name       string `json:"name"`
	Image      string `json:"image"`
	URL        string `json:"url"`
	TotalPlays int    `json:"totalPlays"`
	Registered int64  `json:"registered"`
	Followers  int    `json:"followers"`
	ID         string `json:"id"`
}

// Activity is the aggregated response payload.
type Activity struct {
	User               *UserProfile `json:"user"`
	TopTracks          []Track      `json:"topTracks"`
	TopArtists         []Artist     `json:"topArtists"`
	RecentTracks       []Track      `json:"recentTracks"`
	CurrentlyPlaying   *Track       `json:"currentlyPlaying"`
	TotalListeningTime int          `json:"totalListeningTime"`

	// NotConfigured marks the success-shaped response served when
	// credentials are absent or the refresh token is invalid.
	NotConfigured bool   `json:"notConfigured,omitempty"`
	Message       string `json:"message,omitempty"`
}
