// Package config loads and validates the spider configuration from YAML
// files and environment variables.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/jonesrussell/gospider/internal/adaptivestop"
	"github.com/jonesrussell/gospider/internal/budget"
	"github.com/jonesrussell/gospider/internal/fetcher"
	"github.com/jonesrussell/gospider/internal/frontier"
	"github.com/jonesrussell/gospider/internal/logger"
	"github.com/jonesrussell/gospider/internal/queryaware"
	"github.com/jonesrussell/gospider/internal/robots"
	"github.com/jonesrussell/gospider/internal/session"
	"github.com/jonesrussell/gospider/internal/sitemap"
	"github.com/jonesrussell/gospider/internal/strategy"
	"github.com/jonesrussell/gospider/internal/urlutil"
)

// envPrefix namespaces environment variable overrides, e.g.
// GOSPIDER_BUDGET_MAX_PAGES.
const envPrefix = "GOSPIDER"

// Performance defaults.
const (
	DefaultMaxConcurrentGlobal  = 10
	DefaultMaxConcurrentPerHost = 2
	DefaultMetricsInterval      = 5 * time.Second
)

// PerformanceConfig bounds crawl concurrency and metrics cadence.
type PerformanceConfig struct {
	// MaxConcurrentGlobal caps in-flight requests across all hosts.
	MaxConcurrentGlobal int `mapstructure:"max_concurrent_global"`
	// MaxConcurrentPerHost caps in-flight requests per host.
	MaxConcurrentPerHost int `mapstructure:"max_concurrent_per_host"`
	// MetricsInterval is how often performance metrics are refreshed.
	MetricsInterval time.Duration `mapstructure:"metrics_interval"`
}

// Validate checks the performance configuration.
func (c *PerformanceConfig) Validate() error {
	if c.MaxConcurrentGlobal <= 0 {
		return fmt.Errorf("config: max_concurrent_global must be positive, got %d", c.MaxConcurrentGlobal)
	}
	if c.MaxConcurrentPerHost <= 0 {
		return fmt.Errorf("config: max_concurrent_per_host must be positive, got %d", c.MaxConcurrentPerHost)
	}
	if c.MaxConcurrentPerHost > c.MaxConcurrentGlobal {
		return fmt.Errorf("config: max_concurrent_per_host %d exceeds max_concurrent_global %d",
			c.MaxConcurrentPerHost, c.MaxConcurrentGlobal)
	}
	return nil
}

// Config is the complete spider configuration.
type Config struct {
	// Strategy selects the traversal strategy: breadth_first,
	// depth_first, or best_first.
	Strategy string `mapstructure:"strategy"`

	Log          logger.Config      `mapstructure:"log"`
	Frontier     frontier.Config    `mapstructure:"frontier"`
	Budget       budget.Config      `mapstructure:"budget"`
	QueryAware   queryaware.Config  `mapstructure:"query_aware"`
	AdaptiveStop adaptivestop.Config `mapstructure:"adaptive_stop"`
	Fetcher      fetcher.Config     `mapstructure:"fetcher"`
	Robots       robots.Config      `mapstructure:"robots"`
	Sitemap      sitemap.Config     `mapstructure:"sitemap"`
	Session      session.Config     `mapstructure:"session"`
	Performance  PerformanceConfig  `mapstructure:"performance"`
}

// Default returns a configuration suitable for small polite crawls.
func Default() *Config {
	return &Config{
		Strategy: strategy.BreadthFirst.String(),
		Log: logger.Config{
			Level:    logger.InfoLevel,
			Encoding: "console",
		},
		Frontier: frontier.Config{
			MaxSize:                frontier.DefaultMaxSize,
			DedupCapacity:          urlutil.DefaultDedupCapacity,
			DedupFalsePositiveRate: urlutil.DefaultDedupFalsePositiveRate,
		},
		Budget: budget.Config{
			MaxPages:    1000,
			MaxDepth:    5,
			Enforcement: budget.EnforcementHard,
		},
		QueryAware:   queryaware.DefaultConfig(),
		AdaptiveStop: adaptivestop.DefaultConfig(),
		Fetcher:      fetcher.Config{}.WithDefaults(),
		Robots: robots.Config{
			Enabled:  true,
			FailOpen: true,
		}.WithDefaults(),
		Sitemap: sitemap.Config{}.WithDefaults(),
		Session: session.Config{},
		Performance: PerformanceConfig{
			MaxConcurrentGlobal:  DefaultMaxConcurrentGlobal,
			MaxConcurrentPerHost: DefaultMaxConcurrentPerHost,
			MetricsInterval:      DefaultMetricsInterval,
		},
	}
}

// Load reads configuration from the given YAML file (optional) and
// GOSPIDER_* environment variables, layered over the defaults.
func Load(path string) (*Config, error) {
	// Missing .env files are fine.
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	} else {
		v.SetConfigName("gospider")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		// A missing default config file is fine.
		_ = v.ReadInConfig()
	}

	cfg := Default()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks the full configuration and fails fast on the first
// inconsistency.
func (c *Config) Validate() error {
	if _, err := strategy.ParseKind(c.Strategy); err != nil {
		return err
	}
	if err := c.Budget.Validate(); err != nil {
		return err
	}
	if err := c.QueryAware.Validate(); err != nil {
		return err
	}
	if err := c.AdaptiveStop.Validate(); err != nil {
		return err
	}
	if err := c.Performance.Validate(); err != nil {
		return err
	}
	return nil
}
