package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the base server configuration.
type Config struct {
	Host    string
	Port    string
	NodeEnv string

	// Spotify credentials. All three are optional: when any of them is
	// missing the proxy serves the notConfigured response instead of
	// failing at startup.
	SpotifyClientID     string
	SpotifyClientSecret string
	SpotifyRefreshToken string

	// Upstream base URLs, overridable so tests can point at fixtures.
	SpotifyAccountsURL string
	SpotifyAPIURL      string

	UpstreamTimeoutMs  int
	CacheMaxAgeSeconds int
	CORSEnabled        bool
	RateLimitPerMinute int

	SQLiteDBPath          string
	SnapshotsEnabled      bool
	SnapshotRetentionDays int
	SnapshotPruneSchedule string

	StreamEnabled     bool
	StreamPollSeconds int
}

// IsProduction reports whether the server runs in production mode.
// Outside production, error responses may carry stack traces.
func (c Config) IsProduction() bool {
	return c.NodeEnv == "production"
}

// fileValues mirrors the optional YAML configuration file. Environment
// variables always win over file values.
type fileValues struct {
	Host                  string `yaml:"host"`
	Port                  string `yaml:"port"`
	NodeEnv               string `yaml:"node_env"`
	SpotifyClientID       string `yaml:"spotify_client_id"`
	SpotifyClientSecret   string `yaml:"spotify_client_secret"`
	SpotifyRefreshToken   string `yaml:"spotify_refresh_token"`
	SpotifyAccountsURL    string `yaml:"spotify_accounts_url"`
	SpotifyAPIURL         string `yaml:"spotify_api_url"`
	UpstreamTimeoutMs     *int   `yaml:"upstream_timeout_ms"`
	CacheMaxAgeSeconds    *int   `yaml:"cache_max_age_seconds"`
	CORSEnabled           *bool  `yaml:"cors_enabled"`
	RateLimitPerMinute    *int   `yaml:"rate_limit_per_minute"`
	SQLiteDBPath          string `yaml:"sqlite_db_path"`
	SnapshotsEnabled      *bool  `yaml:"snapshots_enabled"`
	SnapshotRetentionDays *int   `yaml:"snapshot_retention_days"`
	SnapshotPruneSchedule string `yaml:"snapshot_prune_schedule"`
	StreamEnabled         *bool  `yaml:"stream_enabled"`
	StreamPollSeconds     *int   `yaml:"stream_poll_seconds"`
}

// Load reads configuration from environment variables with defaults.
// When CONFIG_FILE points at a YAML file, its values fill in anything the
// environment leaves unset.
func Load() (Config, error) {
	var file fileValues
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &file); err != nil {
			return Config{}, fmt.Errorf("parse config file: %w", err)
		}
	}

	cfg := Config{
		Host:                  envString("HOST", orString(file.Host, "0.0.0.0")),
		Port:                  envString("PORT", orString(file.Port, "9000")),
		NodeEnv:               envString("NODE_ENV", orString(file.NodeEnv, "development")),
		SpotifyClientID:       envString("SPOTIFY_CLIENT_ID", file.SpotifyClientID),
		SpotifyClientSecret:   envString("SPOTIFY_CLIENT_SECRET", file.SpotifyClientSecret),
		SpotifyRefreshToken:   envString("SPOTIFY_REFRESH_TOKEN", file.SpotifyRefreshToken),
		SpotifyAccountsURL:    envString("SPOTIFY_ACCOUNTS_URL", orString(file.SpotifyAccountsURL, "https://accounts.spotify.com")),
		SpotifyAPIURL:         envString("SPOTIFY_API_URL", orString(file.SpotifyAPIURL, "https://api.spotify.com/v1")),
		UpstreamTimeoutMs:     envInt("UPSTREAM_TIMEOUT_MS", orInt(file.UpstreamTimeoutMs, 10000)),
		CacheMaxAgeSeconds:    envInt("CACHE_MAX_AGE_SECONDS", orInt(file.CacheMaxAgeSeconds, 300)),
		CORSEnabled:           envBool("CORS_ENABLED", orBool(file.CORSEnabled, true)),
		RateLimitPerMinute:    envInt("RATE_LIMIT_PER_MINUTE", orInt(file.RateLimitPerMinute, 120)),
		SQLiteDBPath:          envString("SQLITE_DB_PATH", orString(file.SQLiteDBPath, "./data/spotify-proxy.db")),
		SnapshotsEnabled:      envBool("SNAPSHOTS_ENABLED", orBool(file.SnapshotsEnabled, true)),
		SnapshotRetentionDays: envInt("SNAPSHOT_RETENTION_DAYS", orInt(file.SnapshotRetentionDays, 90)),
		SnapshotPruneSchedule: envString("SNAPSHOT_PRUNE_SCHEDULE", orString(file.SnapshotPruneSchedule, "0 3 * * *")),
		StreamEnabled:         envBool("STREAM_ENABLED", orBool(file.StreamEnabled, true)),
		StreamPollSeconds:     envInt("STREAM_POLL_SECONDS", orInt(file.StreamPollSeconds, 15)),
	}

	if cfg.UpstreamTimeoutMs <= 0 {
		return Config{}, fmt.Errorf("UPSTREAM_TIMEOUT_MS must be positive")
	}
	if cfg.StreamPollSeconds <= 0 {
		return Config{}, fmt.Errorf("STREAM_POLL_SECONDS must be positive")
	}
	if cfg.SnapshotRetentionDays <= 0 {
		return Config{}, fmt.Errorf("SNAPSHOT_RETENTION_DAYS must be positive")
	}

	return cfg, nil
}

func envString(key, fallback string) string {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	return val
}

func envInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func envBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	return strings.EqualFold(val, "true")
}

func orString(val, fallback string) string {
	if val == "" {
		return fallback
	}
	return val
}

func orInt(val *int, fallback int) int {
	if val == nil {
		return fallback
	}
	return *val
}

func orBool(val *bool, fallback bool) bool {
	if val == nil {
		return fallback
	}
	return *val
}
