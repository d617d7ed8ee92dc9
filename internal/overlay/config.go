//nolint:tagliatelle // superior snake-case yo.
package overlay

import (
	"fmt"
	"time"
)

// Config holds game info panel rendering configuration.
type Config struct {
	BrowserSource  string        `yaml:"browser_source"`  // OBS browser source refreshed on change
	Template       string        `yaml:"template"`        // Inline html/template source
	TemplatePath   string        `yaml:"template_path"`   // Template file, hot-reloaded on change
	OutputPath     string        `yaml:"output_path"`     // Rendered HTML written here when set
	ReloadDebounce time.Duration `yaml:"reload_debounce"` // Quiet period before a changed template is reloaded
}

// Validate validates and sets defaults for Config.
func (c *Config) Validate() error {
	if c.Template != "" && c.TemplatePath != "" {
		return fmt.Errorf("template and template_path are mutually exclusive")
	}

	if c.ReloadDebounce == 0 {
		c.ReloadDebounce = 250 * time.Millisecond
	}

	if c.ReloadDebounce < 0 {
		return fmt.Errorf("reload_debounce cannot be negative, got %v", c.ReloadDebounce)
	}

	return nil
}
