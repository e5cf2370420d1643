// Package config defines the configuration structures for the CityPath
// overlay engine. No I/O or parsing logic lives here, only plain data types,
// defaults, and validation.
package config

import (
	"time"

	"github.com/citypath/overlay/internal/logging"
	"github.com/citypath/overlay/pkg/errors"
)

// BackendConfig holds the HTTP collaborator endpoints and client tunables.
type BackendConfig struct {
	// BaseURL is the analytics/advisory service root, e.g.
	// "http://127.0.0.1:8080".
	BaseURL string `mapstructure:"base_url"`

	// Timeout applies to plain fetches (hotspots, stats, grid, recommend).
	// The advisory stream is deliberately not bounded by it; a hung stream
	// blocks only its own completion signal.
	Timeout time.Duration `mapstructure:"timeout"`

	RetryMax     int           `mapstructure:"retry_max"`
	RetryWaitMin time.Duration `mapstructure:"retry_wait_min"`
	RetryWaitMax time.Duration `mapstructure:"retry_wait_max"`

	// HotspotTheme selects the server-side hotspot ranking: "heat",
	// "greenspace", or "cool".
	HotspotTheme string `mapstructure:"hotspot_theme"`

	HotspotLimit int `mapstructure:"hotspot_limit"`
	GridLimit    int `mapstructure:"grid_limit"`
	SuggestLimit int `mapstructure:"suggest_limit"`
}

// Session carries the ambient state collected by the gating screens before
// the map is shown. It is passed into the coordinator at construction; the
// engine never reads mutable globals.
type Session struct {
	// Role is "urban-planner" or "local-leader". Only local leaders may
	// create events.
	Role string `mapstructure:"role"`

	Country  string `mapstructure:"country"`
	Region   string `mapstructure:"region"`
	District string `mapstructure:"district"`

	// Timezone is the IANA zone used to interpret local datetimes on event
	// creation, e.g. "Asia/Dhaka". Empty means the process-local zone.
	Timezone string `mapstructure:"timezone"`
}

// MetricsConfig controls the prometheus instrumentation.
type MetricsConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Namespace string `mapstructure:"namespace"`
}

// Config is the root configuration of the engine.
type Config struct {
	Backend BackendConfig  `mapstructure:"backend"`
	Session Session        `mapstructure:"session"`
	Log     logging.Config `mapstructure:"log"`
	Metrics MetricsConfig  `mapstructure:"metrics"`
}

// ApplyDefaults fills unset fields with the engine defaults. Called by the
// loader after unmarshalling and safe to call on a zero Config.
func ApplyDefaults(cfg *Config) {
	b := &cfg.Backend
	if b.BaseURL == "" {
		b.BaseURL = "http://127.0.0.1:8080"
	}
	if b.Timeout <= 0 {
		b.Timeout = 30 * time.Second
	}
	if b.RetryMax < 0 {
		b.RetryMax = 0
	}
	if b.RetryMax == 0 {
		b.RetryMax = 3
	}
	if b.RetryWaitMin <= 0 {
		b.RetryWaitMin = 500 * time.Millisecond
	}
	if b.RetryWaitMax <= 0 {
		b.RetryWaitMax = 5 * time.Second
	}
	if b.HotspotTheme == "" {
		b.HotspotTheme = "heat"
	}
	if b.HotspotLimit <= 0 {
		b.HotspotLimit = 50
	}
	if b.GridLimit <= 0 {
		b.GridLimit = 2000
	}
	if b.SuggestLimit <= 0 {
		b.SuggestLimit = 15
	}
	if cfg.Session.Role == "" {
		cfg.Session.Role = "urban-planner"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.Metrics.Namespace == "" {
		cfg.Metrics.Namespace = "citypath"
	}
}

// Validate reports the first invalid setting as a CodeConfig error.
func (c *Config) Validate() error {
	if c.Backend.BaseURL == "" {
		return errors.New(errors.CodeConfig, "backend.base_url must not be empty")
	}
	switch c.Backend.HotspotTheme {
	case "heat", "greenspace", "cool":
	default:
		return errors.Newf(errors.CodeConfig, "backend.hotspot_theme %q is not one of heat, greenspace, cool", c.Backend.HotspotTheme)
	}
	switch c.Session.Role {
	case "urban-planner", "local-leader":
	default:
		return errors.Newf(errors.CodeConfig, "session.role %q is not one of urban-planner, local-leader", c.Session.Role)
	}
	if c.Backend.RetryWaitMin > c.Backend.RetryWaitMax {
		return errors.New(errors.CodeConfig, "backend.retry_wait_min exceeds backend.retry_wait_max")
	}
	return nil
}
