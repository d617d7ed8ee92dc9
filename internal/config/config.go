//nolint:tagliatelle // superior snake-case yo.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/ethpandaops/overlay-backend/internal/gameinfo"
	"github.com/ethpandaops/overlay-backend/internal/igdb"
	"github.com/ethpandaops/overlay-backend/internal/leader"
	"github.com/ethpandaops/overlay-backend/internal/middleware"
	"github.com/ethpandaops/overlay-backend/internal/obs"
	"github.com/ethpandaops/overlay-backend/internal/overlay"
	"github.com/ethpandaops/overlay-backend/internal/redis"
	"github.com/ethpandaops/overlay-backend/internal/session"
	"github.com/ethpandaops/overlay-backend/internal/twitch"
)

// Config represents the complete application configuration.
type Config struct {
	Server   ServerConfig          `yaml:"server"`
	Redis    redis.Config          `yaml:"redis"`
	Leader   leader.Config         `yaml:"leader"`
	OBS      obs.Config            `yaml:"obs"`
	Counter  session.CounterConfig `yaml:"counter"`
	GameInfo gameinfo.Config       `yaml:"gameinfo"`
	Overlay  overlay.Config        `yaml:"overlay"`
	Twitch   twitch.Config         `yaml:"twitch"`
	IGDB     igdb.Config           `yaml:"igdb"`

	warnings []string
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Port            int                        `yaml:"port"`
	Host            string                     `yaml:"host"`
	ReadTimeout     time.Duration              `yaml:"read_timeout"`
	WriteTimeout    time.Duration              `yaml:"write_timeout"`
	ShutdownTimeout time.Duration              `yaml:"shutdown_timeout"`
	LogLevel        string                     `yaml:"log_level"`
	RateLimit       middleware.RateLimitConfig `yaml:"rate_limit"`
}

// Validate validates and sets defaults for ServerConfig.
func (c *ServerConfig) Validate() error {
	if c.Host == "" {
		c.Host = "0.0.0.0"
	}

	if c.Port == 0 {
		c.Port = 8080
	}

	if c.ReadTimeout == 0 {
		c.ReadTimeout = 10 * time.Second
	}

	if c.WriteTimeout == 0 {
		c.WriteTimeout = 30 * time.Second
	}

	if c.ShutdownTimeout == 0 {
		c.ShutdownTimeout = 10 * time.Second
	}

	if c.LogLevel == "" {
		c.LogLevel = "info"
	}

	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Port)
	}

	if c.ReadTimeout < 0 {
		return fmt.Errorf("read_timeout must be positive")
	}

	if c.WriteTimeout < 0 {
		return fmt.Errorf("write_timeout must be positive")
	}

	if c.ShutdownTimeout < 0 {
		return fmt.Errorf("shutdown_timeout must be positive")
	}

	validLogLevels := map[string]bool{
		"trace": true, "debug": true, "info": true,
		"warn": true, "error": true, "fatal": true, "panic": true,
	}
	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("invalid log level: %s", c.LogLevel)
	}

	if err := c.RateLimit.Validate(); err != nil {
		return fmt.Errorf("rate_limit: %w", err)
	}

	return nil
}

// Load loads configuration from a YAML file, then applies credential
// overrides from the environment.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	return &cfg, nil
}

// Validate validates the configuration and sets defaults. Game info without
// Twitch credentials is disabled rather than rejected; see Warnings.
func (c *Config) Validate() error {
	c.warnings = nil

	if err := c.Server.Validate(); err != nil {
		return fmt.Errorf("server: %w", err)
	}

	// Redis is mandatory infrastructure
	if err := c.Redis.Validate(); err != nil {
		return fmt.Errorf("redis: %w", err)
	}

	if err := c.Leader.Validate(); err != nil {
		return fmt.Errorf("leader: %w", err)
	}

	if err := c.OBS.Validate(); err != nil {
		return fmt.Errorf("obs: %w", err)
	}

	if err := c.Counter.Validate(); err != nil {
		return fmt.Errorf("counter: %w", err)
	}

	if c.GameInfo.Enabled && !c.Twitch.HasCredentials() {
		c.GameInfo.Enabled = false
		c.warnings = append(c.warnings,
			"gameinfo disabled: twitch.client_id and twitch.client_secret are required")
	}

	if err := c.GameInfo.Validate(); err != nil {
		return fmt.Errorf("gameinfo: %w", err)
	}

	if err := c.Overlay.Validate(); err != nil {
		return fmt.Errorf("overlay: %w", err)
	}

	if !c.GameInfo.Enabled {
		return nil
	}

	if err := c.Twitch.Validate(); err != nil {
		return fmt.Errorf("twitch: %w", err)
	}

	if err := c.IGDB.Validate(); err != nil {
		return fmt.Errorf("igdb: %w", err)
	}

	return nil
}

// Warnings returns the non-fatal problems found by the last Validate.
func (c *Config) Warnings() []string {
	return c.warnings
}
