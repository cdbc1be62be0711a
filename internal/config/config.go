// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Defaults come from New; file and env layers override via Load.
// - External errors are wrapped via this package's sentinel kinds.
package config

import "github.com/okian/verdict/internal/domain/rating"

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// EventFile points at a YAML roster fixture seeded at startup.
	// Empty means start with an empty store.
	EventFile string `koanf:"event_file"`

	// MaxStandingsLimit caps GET /standings?limit.
	MaxStandingsLimit int `koanf:"max_standings_limit"`

	// EloK is the K-factor for rating updates.
	EloK float64 `koanf:"elo_k"`

	// RandSeed seeds matchmaking randomness. Zero means seed from the
	// clock; a fixed seed makes runs reproducible.
	RandSeed int64 `koanf:"rand_seed"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:          "info",
		Addr:              ":9080",
		MaxStandingsLimit: 200,
		EloK:              rating.DefaultK,
	}
}
