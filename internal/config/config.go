// Package config loads Hadron's YAML configuration surface (spec.md §6)
// with environment-variable overrides for secrets, grounded on the
// teacher's internal/infrastructure/db/config.go pattern.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// VenueMode selects which endpoint variant an adapter connects to.
type VenueMode string

const (
	VenueModeDelayed  VenueMode = "delayed"
	VenueModeRealtime VenueMode = "realtime"
)

// VenueKey is one (api-key, private-key-path) credential pair for a
// pre-connect header-auth venue (spec.md §6's venue_keys_*).
type VenueKey struct {
	AccessKeyID    string `yaml:"access_key_id"`
	PrivateKeyPath string `yaml:"private_key_path"`
}

// VenueConfig is the per-venue slice of the configuration surface.
type VenueConfig struct {
	Mode     VenueMode  `yaml:"mode"`
	Endpoint string     `yaml:"endpoint"`
	Keys     []VenueKey `yaml:"keys"`
	// APIKeyEnv names the environment variable an adapter reads its
	// post-connect-auth API key from (spec.md §6's credential
	// provisioning: "each adapter reads credentials from process
	// environment").
	APIKeyEnv string `yaml:"api_key_env"`

	// Tickers is the Polygon-style subscription universe, e.g. "T.AAPL".
	Tickers []string `yaml:"tickers"`
	// Channels is the Kalshi-style channel list, e.g. "ticker", "trades".
	Channels []string `yaml:"channels"`
	// MarketTicker optionally scopes a Kalshi subscription to one market.
	MarketTicker string `yaml:"market_ticker"`

	RateLimitRPS   float64 `yaml:"rate_limit_rps"`
	RateLimitBurst int     `yaml:"rate_limit_burst"`

	// BreakerFailureThreshold/Cooldown tune the venue's fault breaker
	// (common.NewFaultBreaker); cmd/hadron replaces zero values with 5
	// failures and a one-minute cooldown.
	BreakerFailureThreshold uint32        `yaml:"breaker_failure_threshold"`
	BreakerCooldown         time.Duration `yaml:"breaker_cooldown"`
}

// Config is the root of Hadron's configuration surface (spec.md §6).
type Config struct {
	NumShards      int                    `yaml:"num_shards"`
	SimulationMode bool                   `yaml:"simulation_mode"`
	Venues         map[string]VenueConfig `yaml:"venues"`
	DatabaseURL    string                 `yaml:"database_url"`
	CacheURL       string                 `yaml:"cache_url"`
	FlushTicksEvery time.Duration         `yaml:"flush_ticks_every"`
	FlushTicksSize  int                   `yaml:"flush_ticks_size"`
}

// Default returns the configuration surface's documented defaults.
func Default() *Config {
	return &Config{
		NumShards:       1,
		SimulationMode:  true,
		Venues:          make(map[string]VenueConfig),
		FlushTicksEvery: 5 * time.Second,
		FlushTicksSize:  100,
	}
}

// Load reads a YAML file at path (if it exists), applies it over the
// documented defaults, then applies environment-variable overrides for
// the two connection strings (spec.md §6 treats these as secrets that
// should not need to live in a checked-in file).
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			data, err := os.ReadFile(path)
			if err != nil {
				return nil, fmt.Errorf("config: read %s: %w", path, err)
			}
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("config: parse %s: %w", path, err)
			}
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if dsn := os.Getenv("HADRON_DATABASE_URL"); dsn != "" {
		cfg.DatabaseURL = dsn
	}
	if cacheURL := os.Getenv("HADRON_CACHE_URL"); cacheURL != "" {
		cfg.CacheURL = cacheURL
	}
}

// Validate rejects a configuration that cannot possibly run (spec.md §6
// constraints), distinct from runtime failures like an unreachable
// database.
func (c *Config) Validate() error {
	if c.NumShards <= 0 {
		return fmt.Errorf("config: num_shards must be positive, got %d", c.NumShards)
	}
	if c.DatabaseURL == "" {
		return fmt.Errorf("config: database_url is required")
	}
	if c.FlushTicksSize <= 0 {
		return fmt.Errorf("config: flush_ticks_size must be positive, got %d", c.FlushTicksSize)
	}
	if c.FlushTicksEvery <= 0 {
		return fmt.Errorf("config: flush_ticks_every must be positive, got %s", c.FlushTicksEvery)
	}
	return nil
}
