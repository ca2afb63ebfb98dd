// Package config loads process configuration from the environment,
// grounded in the struct-tagged envconfig pattern used throughout the
// bloops command-line tools.
package config

import (
	"time"

	"github.com/kelseyhightower/envconfig"

	"amadeus/internal/game"
)

// Config is the process-wide configuration for the Amadeus server.
type Config struct {
	ListenAddr     string        `envconfig:"AMADEUS_LISTEN_ADDR" default:":8080"`
	AllowedOrigins []string      `envconfig:"AMADEUS_ALLOWED_ORIGINS" default:"http://localhost:5173"`
	CatalogPath    string        `envconfig:"AMADEUS_CATALOG_PATH" default:"catalog.db"`
	PlayTime       time.Duration `envconfig:"AMADEUS_PLAY_TIME" default:"20s"`
	GuessTime      time.Duration `envconfig:"AMADEUS_GUESS_TIME" default:"10s"`
	ReviewTime     time.Duration `envconfig:"AMADEUS_REVIEW_TIME" default:"5s"`
	Rounds         int           `envconfig:"AMADEUS_ROUNDS" default:"20"`
	MaxPlayers     int           `envconfig:"AMADEUS_MAX_PLAYERS" default:"8"`
}

// Load reads AMADEUS_* environment variables into a Config, applying
// the defaults above when a variable is unset.
func Load() (Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// DefaultRoomConfiguration adapts the process config into the
// per-room defaults new rooms are minted with.
func (c Config) DefaultRoomConfiguration() game.RoomConfiguration {
	return game.RoomConfiguration{
		PlayTime:   c.PlayTime,
		GuessTime:  c.GuessTime,
		ReviewTime: c.ReviewTime,
		Rounds:     c.Rounds,
		MaxPlayers: c.MaxPlayers,
	}
}
