//nolint:tagliatelle // superior snake-case yo.
package session

import (
	"fmt"

	"github.com/ethpandaops/overlay-backend/internal/counter"
)

// Bounds accepted for the start and max settings.
const (
	MinCounterValue = 0
	MaxCounterValue = 999
)

// CounterConfig configures the exit counter and the OBS text source it
// renders into.
type CounterConfig struct {
	TextSource   string  `yaml:"text_source"`
	Start        int     `yaml:"start"`
	Prefix       *string `yaml:"prefix"`
	Suffix       string  `yaml:"suffix"`
	MaxEnabled   bool    `yaml:"max_enabled"`
	Max          *int    `yaml:"max"`
	MaxDelimiter *string `yaml:"max_delimiter"`
}

// Validate validates and sets defaults for CounterConfig.
func (c *CounterConfig) Validate() error {
	if c.Prefix == nil {
		prefix := "Exits: "
		c.Prefix = &prefix
	}

	if c.MaxDelimiter == nil {
		delimiter := "/"
		c.MaxDelimiter = &delimiter
	}

	if c.Max == nil {
		limit := MaxCounterValue
		c.Max = &limit
	}

	if c.Start < MinCounterValue || c.Start > MaxCounterValue {
		return fmt.Errorf("start must be between %d and %d, got %d", MinCounterValue, MaxCounterValue, c.Start)
	}

	if *c.Max < MinCounterValue || *c.Max > MaxCounterValue {
		return fmt.Errorf("max must be between %d and %d, got %d", MinCounterValue, MaxCounterValue, *c.Max)
	}

	if c.MaxEnabled && c.Start > *c.Max {
		return fmt.Errorf("start (%d) cannot exceed max (%d)", c.Start, *c.Max)
	}

	return nil
}

// Settings converts the config into counter settings.
func (c *CounterConfig) Settings() counter.Settings {
	settings := counter.Settings{
		Start:  c.Start,
		Suffix: c.Suffix,
	}

	if c.Prefix != nil {
		settings.Prefix = *c.Prefix
	}

	if c.MaxDelimiter != nil {
		settings.MaxDelimiter = *c.MaxDelimiter
	}

	if c.MaxEnabled && c.Max != nil {
		limit := *c.Max
		settings.Max = &limit
	}

	return settings
}
