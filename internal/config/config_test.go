package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/healthdex/provider-harvest/internal/extract"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	require.Equal(t, "https://www.vitals.com/doctors", cfg.Harvest.ListingURL)
	require.Equal(t, 25, cfg.Harvest.Quota)
	require.Equal(t, 50, cfg.Harvest.MaxPages)
	require.Equal(t, ".provider-info", cfg.Harvest.ProfileWaitSelector)
	require.Equal(t, 30*time.Second, cfg.ListingWait())
	require.Equal(t, 30*time.Second, cfg.ProfileWait())
	require.True(t, cfg.Pacing.Enabled)
	require.Equal(t, 0.5, cfg.Pacing.MaxRPS)
	require.Equal(t, "https://npi-registry.cms.hhs.gov/api/", cfg.Registry.Endpoint)
	require.Equal(t, "2.1", cfg.Registry.Version)
	require.Equal(t, "harvested_providers.json", cfg.Output.Path)
	require.True(t, cfg.Logging.Development)
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "harvest.yaml")
	content := []byte(`
harvest:
  listing_url: https://directory.example.com/providers
  quota: 5
pacing:
  enabled: false
output:
  path: /tmp/out.json
`)
	require.NoError(t, os.WriteFile(path, content, 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "https://directory.example.com/providers", cfg.Harvest.ListingURL)
	require.Equal(t, 5, cfg.Harvest.Quota)
	require.False(t, cfg.Pacing.Enabled)
	require.Equal(t, "/tmp/out.json", cfg.Output.Path)
	// Untouched keys keep their defaults.
	require.Equal(t, 50, cfg.Harvest.MaxPages)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	base := func() Config {
		cfg, err := Load("")
		require.NoError(t, err)
		return cfg
	}

	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing listing url", func(c *Config) { c.Harvest.ListingURL = "" }},
		{"zero quota", func(c *Config) { c.Harvest.Quota = 0 }},
		{"zero max pages", func(c *Config) { c.Harvest.MaxPages = 0 }},
		{"missing registry endpoint", func(c *Config) { c.Registry.Endpoint = "" }},
		{"missing output path", func(c *Config) { c.Output.Path = "" }},
		{"inverted pacing bounds", func(c *Config) { c.Pacing.MinDelayMs = 100; c.Pacing.MaxDelayMs = 10 }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := base()
			tc.mutate(&cfg)
			require.Error(t, cfg.Validate())
		})
	}
}

func TestSelectorFallbacks(t *testing.T) {
	var cfg Config
	require.Equal(t, extract.DefaultSelectors(), cfg.ProfileSelectors())
	require.Equal(t, extract.DefaultCardSelectors(), cfg.CardSelectors())

	cfg.Selectors.Card = extract.CardSelectors{Card: ".custom-card"}
	require.Equal(t, ".custom-card", cfg.CardSelectors().Card)
}
