// Package config resolves runtime configuration from CLI flags and
// DUSK_* environment variables.
package config

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/spf13/viper"

	"github.com/duskweb/dusk/backend"
)

// EnvPrefix is the environment variable prefix, so DUSK_SCALE and
// DUSK_BACKEND override their keys.
const EnvPrefix = "DUSK"

// Config is the resolved runtime configuration.
type Config struct {
	// Target is a file path or URL. Empty renders the built-in
	// document.
	Target string
	// Screenshot is the PNG output path. Non-empty implies headless.
	Screenshot string
	Headless   bool
	Width      float64
	Height     float64
	// Scale overrides the device scale; 0 lets the backend report it.
	Scale float64
	// Backend is a backend name or "auto".
	Backend  string
	LogLevel string
}

// SetDefaults seeds the viper instance with the default viewport and
// selection values.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("width", 800)
	v.SetDefault("height", 600)
	v.SetDefault("backend", "auto")
	v.SetDefault("scale", "")
	v.SetDefault("log-level", "info")
}

// New reads a Config out of the viper instance and validates it.
func New(v *viper.Viper) (*Config, error) {
	scale, err := ParseScale(v.GetString("scale"))
	if err != nil {
		return nil, err
	}
	c := &Config{
		Target:     v.GetString("target"),
		Screenshot: v.GetString("screenshot"),
		Headless:   v.GetBool("headless"),
		Width:      v.GetFloat64("width"),
		Height:     v.GetFloat64("height"),
		Scale:      scale,
		Backend:    v.GetString("backend"),
		LogLevel:   v.GetString("log-level"),
	}
	if c.Screenshot != "" {
		c.Headless = true
	}
	if c.Headless {
		c.Backend = "headless"
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate checks the viewport and the backend hint. The hint must
// name a registered backend or "auto".
func (c *Config) Validate() error {
	if c.Width <= 0 || c.Height <= 0 {
		return fmt.Errorf("config: viewport size must be positive, got %gx%g", c.Width, c.Height)
	}
	if c.Backend != "" && c.Backend != "auto" {
		known := backend.Registered()
		if !slices.Contains(known, c.Backend) {
			return fmt.Errorf("config: unknown backend %q, known: %s or auto",
				c.Backend, strings.Join(known, ", "))
		}
	}
	return nil
}

// ParseScale parses a device scale override: a number ("2", "1.5") or
// a percentage ("150%"). Empty means no override.
func ParseScale(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	pct := false
	if strings.HasSuffix(s, "%") {
		pct = true
		s = strings.TrimSuffix(s, "%")
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, fmt.Errorf("config: invalid scale %q", s)
	}
	if pct {
		f /= 100
	}
	if f <= 0 {
		return 0, fmt.Errorf("config: scale must be positive, got %g", f)
	}
	return f, nil
}
