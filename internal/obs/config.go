//nolint:tagliatelle // superior snake-case yo.
package obs

import (
	"fmt"
	"time"
)

const DefaultAddress = "localhost:4455"

// Config holds obs-websocket connection configuration.
type Config struct {
	Enabled           bool          `yaml:"enabled"`
	Address           string        `yaml:"address"` // host:port of the obs-websocket server
	Password          string        `yaml:"password" env:"OBS_PASSWORD"`
	RequestTimeout    time.Duration `yaml:"request_timeout"`
	ReconnectInterval time.Duration `yaml:"reconnect_interval"`
}

// Validate validates and sets defaults for Config.
func (c *Config) Validate() error {
	if c.Address == "" {
		c.Address = DefaultAddress
	}

	if c.RequestTimeout == 0 {
		c.RequestTimeout = 5 * time.Second
	}

	if c.ReconnectInterval == 0 {
		c.ReconnectInterval = 5 * time.Second
	}

	if c.RequestTimeout < 100*time.Millisecond {
		return fmt.Errorf("request_timeout must be at least 100ms, got %v", c.RequestTimeout)
	}

	if c.ReconnectInterval < time.Second {
		return fmt.Errorf("reconnect_interval must be at least 1 second, got %v", c.ReconnectInterval)
	}

	return nil
}
