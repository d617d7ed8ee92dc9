//nolint:tagliatelle // superior snake-case yo.
package twitch

import (
	"fmt"
	"net/http"
	"time"
)

const (
	DefaultAuthURL = "https://id.twitch.tv/oauth2/token" //nolint:gosec // Public OAuth endpoint URL, not a credential
	DefaultAPIURL  = "https://api.twitch.tv/helix"
)

// Config holds Twitch application credentials and endpoints.
type Config struct {
	ClientID       string        `yaml:"client_id"     env:"TWITCH_CLIENT_ID"`
	ClientSecret   string        `yaml:"client_secret" env:"TWITCH_CLIENT_SECRET"` //nolint:gosec // Config field, not a hardcoded secret.
	AuthURL        string        `yaml:"auth_url"`
	APIURL         string        `yaml:"api_url"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

// HasCredentials reports whether both the client id and secret are set.
func (c *Config) HasCredentials() bool {
	return c.ClientID != "" && c.ClientSecret != ""
}

// Validate validates and sets defaults for Config.
func (c *Config) Validate() error {
	if c.AuthURL == "" {
		c.AuthURL = DefaultAuthURL
	}

	if c.APIURL == "" {
		c.APIURL = DefaultAPIURL
	}

	if c.RequestTimeout == 0 {
		c.RequestTimeout = 10 * time.Second
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
