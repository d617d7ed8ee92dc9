//nolint:tagliatelle // superior snake-case yo.
package igdb

import (
	"fmt"
	"net/http"
	"time"
)

const DefaultAPIURL = "https://api.igdb.com/v4"

// Config holds IGDB client configuration.
type Config struct {
	APIURL            string        `yaml:"api_url"`
	RequestsPerSecond float64       `yaml:"requests_per_second"` // IGDB allows 4 per second
	RequestTimeout    time.Duration `yaml:"request_timeout"`
}

// Validate validates and sets defaults for Config.
func (c *Config) Validate() error {
	if c.APIURL == "" {
		c.APIURL = DefaultAPIURL
	}

	if c.RequestsPerSecond == 0 {
		c.RequestsPerSecond = 4
	}

	if c.RequestTimeout == 0 {
		c.RequestTimeout = 30 * time.Second
	}

	if c.RequestsPerSecond < 0 || c.RequestsPerSecond > 4 {
		return fmt.Errorf("requests_per_second must be between 0 and 4, got %v", c.RequestsPerSecond)
	}

	if c.RequestTimeout < time.Second {
		return fmt.Errorf("request_timeout must be at least 1 second, got %v", c.RequestTimeout)
	}

	return nil
}

// HTTPClient creates an HTTP client with configured timeout.
func (c *Config) HTTPClient() *http.Client {
	return &http.Client{
		Timeout: c.RequestTimeout,
	}
}
