package config

import (
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	"github.com/citypath/overlay/pkg/errors"
)

// envPrefix is the environment variable prefix for all engine settings.
const envPrefix = "CITYPATH"

// newViper builds a Viper instance with the engine's standard settings:
// YAML files, CITYPATH_ env prefix, automatic env binding, and a replacer
// mapping "." to "_" so "backend.base_url" resolves to
// CITYPATH_BACKEND_BASE_URL.
func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	return v
}

// Load reads the YAML file at configPath, merges CITYPATH_* environment
// overrides, applies defaults, and validates the result.
func Load(configPath string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(configPath)

	if err := v.ReadInConfig(); err != nil {
		return nil, errors.Wrap(err, errors.CodeConfig, "failed to read config file "+configPath)
	}

	return unmarshalAndFinalize(v)
}

// LoadFromEnv builds a Config entirely from CITYPATH_* environment
// variables with no file required. Preferred for containerised use.
func LoadFromEnv() (*Config, error) {
	v := newViper()
	// Viper only applies AutomaticEnv to keys it knows about, so bind the
	// nested keys explicitly when no file supplies them.
	for _, key := range []string{
		"backend.base_url", "backend.timeout", "backend.retry_max",
		"backend.retry_wait_min", "backend.retry_wait_max",
		"backend.hotspot_theme", "backend.hotspot_limit",
		"backend.grid_limit", "backend.suggest_limit",
		"session.role", "session.country", "session.region",
		"session.district", "session.timezone",
		"log.level", "log.format",
		"metrics.enabled", "metrics.namespace",
	} {
		_ = v.BindEnv(key)
	}
	return unmarshalAndFinalize(v)
}

func unmarshalAndFinalize(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errors.Wrap(err, errors.CodeConfig, "failed to unmarshal configuration")
	}

	ApplyDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Watch monitors configPath and invokes onChange with the re-parsed Config
// whenever the file changes on disk. Intended for hot-reloading safe
// settings such as the log level; callers decide which subset to apply at
// runtime. A change that fails to parse or validate is skipped.
func Watch(configPath string, onChange func(*Config)) {
	v := newViper()
	v.SetConfigFile(configPath)
	_ = v.ReadInConfig()

	v.WatchConfig()
	v.OnConfigChange(func(_ fsnotify.Event) {
		cfg, err := unmarshalAndFinalize(v)
		if err != nil {
			return
		}
		onChange(cfg)
	})
}
