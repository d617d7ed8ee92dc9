//nolint:tagliatelle // superior snake-case yo.
package leader

import (
	"fmt"
	"time"
)

const DefaultLockKey = "overlay:leader"

// Config holds leader election configuration.
type Config struct {
	LockKey       string        `yaml:"lock_key"`
	LockTTL       time.Duration `yaml:"lock_ttl"`
	RenewInterval time.Duration `yaml:"renew_interval"`
	RetryInterval time.Duration `yaml:"retry_interval"`
}

// Validate validates and sets defaults for Config.
func (c *Config) Validate() error {
	if c.LockKey == "" {
		c.LockKey = DefaultLockKey
	}

	if c.LockTTL == 0 {
		c.LockTTL = 10 * time.Second
	}

	if c.RenewInterval == 0 {
		c.RenewInterval = 3 * time.Second
	}

	if c.RetryInterval == 0 {
		c.RetryInterval = 5 * time.Second
	}

	if c.RenewInterval >= c.LockTTL {
		return fmt.Errorf("renew_interval (%v) must be shorter than lock_ttl (%v)", c.RenewInterval, c.LockTTL)
	}

	if c.RetryInterval <= 0 {
		return fmt.Errorf("retry_interval must be positive")
	}

	return nil
}
