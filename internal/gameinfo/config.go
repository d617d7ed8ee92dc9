//nolint:tagliatelle // superior snake-case yo.
package gameinfo

import (
	"fmt"
	"time"
)

// Config holds game info service configuration.
type Config struct {
	Enabled         bool          `yaml:"enabled"`
	TwitchUsername  string        `yaml:"twitch_username"`  // Channel whose category is tracked
	RefreshInterval time.Duration `yaml:"refresh_interval"` // How often to poll Twitch and IGDB
	RecordTTL       time.Duration `yaml:"record_ttl"`       // Redis TTL for the snapshot (0 = no expiration)
}

// Validate validates and sets defaults for Config.
func (c *Config) Validate() error {
	if !c.Enabled {
		return nil
	}

	if c.TwitchUsername == "" {
		return fmt.Errorf("twitch_username is required when enabled")
	}

	if c.RefreshInterval == 0 {
		c.RefreshInterval = time.Minute
	}

	if c.RefreshInterval < 10*time.Second {
		return fmt.Errorf("refresh_interval must be at least 10 seconds, got %v", c.RefreshInterval)
	}

	if c.RecordTTL < 0 {
		return fmt.Errorf("record_ttl cannot be negative, got %v", c.RecordTTL)
	}

	return nil
}
