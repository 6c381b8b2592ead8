// Package config loads and validates harvester configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/healthdex/provider-harvest/internal/extract"
)

// Config captures all configuration knobs loaded via Viper.
type Config struct {
	Logging   LoggingConfig   `mapstructure:"logging"`
	Harvest   HarvestConfig   `mapstructure:"harvest"`
	Render    RenderConfig    `mapstructure:"render"`
	Pacing    PacingConfig    `mapstructure:"pacing"`
	Registry  RegistryConfig  `mapstructure:"registry"`
	Output    OutputConfig    `mapstructure:"output"`
	Selectors SelectorsConfig `mapstructure:"selectors"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// HarvestConfig governs discovery and per-entity fetching.
type HarvestConfig struct {
	ListingURL          string `mapstructure:"listing_url"`
	PageParam           string `mapstructure:"page_param"`
	Quota               int    `mapstructure:"quota"`
	MaxPages            int    `mapstructure:"max_pages"`
	ListingWaitSeconds  int    `mapstructure:"listing_wait_seconds"`
	ScrollPasses        int    `mapstructure:"scroll_passes"`
	ProfileWaitSelector string `mapstructure:"profile_wait_selector"`
	ProfileWaitSeconds  int    `mapstructure:"profile_wait_seconds"`
}

// RenderConfig configures the rendering backend.
type RenderConfig struct {
	NavTimeoutSeconds int    `mapstructure:"nav_timeout_seconds"`
	ScrollPauseMs     int    `mapstructure:"scroll_pause_ms"`
	UserAgent         string `mapstructure:"user_agent"`
	RotateIdentity    bool   `mapstructure:"rotate_identity"`
}

// PacingConfig bounds the inter-request traffic shaping.
type PacingConfig struct {
	Enabled        bool    `mapstructure:"enabled"`
	MinDelayMs     int     `mapstructure:"min_delay_ms"`
	MaxDelayMs     int     `mapstructure:"max_delay_ms"`
	MaxRPS         float64 `mapstructure:"max_rps"`
	PostWaitChance float64 `mapstructure:"post_wait_chance"`
}

// RegistryConfig points at the NPI registry API.
type RegistryConfig struct {
	Endpoint       string `mapstructure:"endpoint"`
	Version        string `mapstructure:"version"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

// OutputConfig sets the results path.
type OutputConfig struct {
	Path string `mapstructure:"path"`
}

// SelectorsConfig optionally overrides the built-in selector sets. Zero
// values fall back to the package defaults wholesale.
type SelectorsConfig struct {
	Profile extract.Selectors     `mapstructure:"profile"`
	Card    extract.CardSelectors `mapstructure:"card"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("HARVEST")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("logging.development", true)
	v.SetDefault("harvest.listing_url", "https://www.vitals.com/doctors")
	v.SetDefault("harvest.page_param", "page")
	v.SetDefault("harvest.quota", 25)
	v.SetDefault("harvest.max_pages", 50)
	v.SetDefault("harvest.listing_wait_seconds", 30)
	v.SetDefault("harvest.scroll_passes", 5)
	v.SetDefault("harvest.profile_wait_selector", ".provider-info")
	v.SetDefault("harvest.profile_wait_seconds", 30)
	v.SetDefault("render.nav_timeout_seconds", 60)
	v.SetDefault("render.scroll_pause_ms", 1000)
	v.SetDefault("render.user_agent", "provider-harvest/0.1")
	v.SetDefault("render.rotate_identity", true)
	v.SetDefault("pacing.enabled", true)
	v.SetDefault("pacing.min_delay_ms", 800)
	v.SetDefault("pacing.max_delay_ms", 2500)
	v.SetDefault("pacing.max_rps", 0.5)
	v.SetDefault("pacing.post_wait_chance", 0.25)
	v.SetDefault("registry.endpoint", "https://npi-registry.cms.hhs.gov/api/")
	v.SetDefault("registry.version", "2.1")
	v.SetDefault("registry.timeout_seconds", 10)
	v.SetDefault("output.path", "harvested_providers.json")
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Harvest.ListingURL == "" {
		return fmt.Errorf("harvest.listing_url must be set")
	}
	if c.Harvest.Quota <= 0 {
		return fmt.Errorf("harvest.quota must be > 0")
	}
	if c.Harvest.MaxPages <= 0 {
		return fmt.Errorf("harvest.max_pages must be > 0")
	}
	if c.Registry.Endpoint == "" {
		return fmt.Errorf("registry.endpoint must be set")
	}
	if c.Output.Path == "" {
		return fmt.Errorf("output.path must be set")
	}
	if c.Pacing.Enabled && c.Pacing.MaxDelayMs < c.Pacing.MinDelayMs {
		return fmt.Errorf("pacing.max_delay_ms must be >= pacing.min_delay_ms")
	}
	return nil
}

// ProfileSelectors returns the configured profile selectors, falling back to
// the package defaults when none were provided.
func (c Config) ProfileSelectors() extract.Selectors {
	if c.Selectors.Profile == (extract.Selectors{}) {
		return extract.DefaultSelectors()
	}
	return c.Selectors.Profile
}

// CardSelectors returns the configured listing-card selectors or defaults.
func (c Config) CardSelectors() extract.CardSelectors {
	if c.Selectors.Card == (extract.CardSelectors{}) {
		return extract.DefaultCardSelectors()
	}
	return c.Selectors.Card
}

// ListingWait converts the listing selector wait into a duration.
func (c Config) ListingWait() time.Duration {
	return time.Duration(c.Harvest.ListingWaitSeconds) * time.Second
}

// ProfileWait converts the profile selector wait into a duration.
func (c Config) ProfileWait() time.Duration {
	return time.Duration(c.Harvest.ProfileWaitSeconds) * time.Second
}
