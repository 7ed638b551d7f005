// Package adaptivestop decides when a crawl has hit diminishing returns.
// It watches the unique-content gain of recent pages and requests a stop
// after sustained low gain or sustained low content quality.
package adaptivestop

import (
	"errors"
	"fmt"
)

// Default configuration values.
const (
	// DefaultWindowSize is the size of the content analysis window.
	DefaultWindowSize = 10
	// DefaultMinGainThreshold is the minimum unique-character gain per page.
	DefaultMinGainThreshold = 100.0
	// DefaultPatience is the number of consecutive low-gain checks before
	// stopping.
	DefaultPatience = 5
	// DefaultMinPagesBeforeStop is the number of pages analyzed before
	// stopping is considered at all.
	DefaultMinPagesBeforeStop = 20
	// DefaultQualityThreshold is the average quality below which the
	// crawl stops.
	DefaultQualityThreshold = 0.5
)

var errInvalidWindow = errors.New("adaptivestop: window size must be at least 2")

// SiteType classifies the crawled site to adjust the gain threshold.
// News and social sites naturally vary more between pages than
// documentation or e-commerce catalogs.
type SiteType int

const (
	// SiteTypeUnknown is the default classification.
	SiteTypeUnknown SiteType = iota
	// SiteTypeNews marks high-variation news sites.
	SiteTypeNews
	// SiteTypeBlog marks varied long-form content.
	SiteTypeBlog
	// SiteTypeDocumentation marks structured reference content.
	SiteTypeDocumentation
	// SiteTypeECommerce marks repetitive catalog content.
	SiteTypeECommerce
	// SiteTypeSocialMedia marks high-variation feed content.
	SiteTypeSocialMedia
)

// String returns the string representation of a site type.
func (s SiteType) String() string {
	switch s {
	case SiteTypeNews:
		return "news"
	case SiteTypeBlog:
		return "blog"
	case SiteTypeDocumentation:
		return "documentation"
	case SiteTypeECommerce:
		return "ecommerce"
	case SiteTypeSocialMedia:
		return "social_media"
	case SiteTypeUnknown:
		return "unknown"
	default:
		return "unknown"
	}
}

// thresholdMultiplier returns the gain-threshold multiplier for the site type.
func (s SiteType) thresholdMultiplier() float64 {
	switch s {
	case SiteTypeNews:
		return 1.5
	case SiteTypeBlog:
		return 1.2
	case SiteTypeDocumentation:
		return 0.9
	case SiteTypeECommerce:
		return 0.7
	case SiteTypeSocialMedia:
		return 1.8
	default:
		return 1.0
	}
}

// Config controls the adaptive stop engine.
type Config struct {
	// WindowSize is the number of recent pages examined for gain.
	WindowSize int `mapstructure:"window_size"`
	// MinGainThreshold is the unique-character gain below which a page
	// counts as low yield.
	MinGainThreshold float64 `mapstructure:"min_gain_threshold"`
	// Patience is the number of consecutive low-gain checks tolerated
	// before stopping.
	Patience int `mapstructure:"patience"`
	// MinPagesBeforeStop is the number of pages analyzed before the
	// engine considers stopping.
	MinPagesBeforeStop int `mapstructure:"min_pages_before_stop"`
	// EnableQualityScoring turns on the content quality signal.
	EnableQualityScoring bool `mapstructure:"enable_quality_scoring"`
	// QualityThreshold is the rolling average quality below which the
	// crawl stops.
	QualityThreshold float64 `mapstructure:"quality_threshold"`
	// EnableAdaptiveThreshold adjusts the gain threshold by detected
	// site type and recent yield.
	EnableAdaptiveThreshold bool `mapstructure:"enable_adaptive_threshold"`
}

// DefaultConfig returns the standard adaptive stop configuration.
func DefaultConfig() Config {
	return Config{
		WindowSize:              DefaultWindowSize,
		MinGainThreshold:        DefaultMinGainThreshold,
		Patience:                DefaultPatience,
		MinPagesBeforeStop:      DefaultMinPagesBeforeStop,
		EnableQualityScoring:    true,
		QualityThreshold:        DefaultQualityThreshold,
		EnableAdaptiveThreshold: true,
	}
}

// Validate checks the configuration for internal consistency.
func (c *Config) Validate() error {
	if c.WindowSize < 2 {
		return errInvalidWindow
	}
	if c.Patience <= 0 {
		return fmt.Errorf("adaptivestop: patience must be positive, got %d", c.Patience)
	}
	if c.MinPagesBeforeStop < 0 {
		return fmt.Errorf("adaptivestop: min pages before stop must not be negative, got %d", c.MinPagesBeforeStop)
	}
	if c.MinGainThreshold < 0 {
		return fmt.Errorf("adaptivestop: min gain threshold must not be negative, got %v", c.MinGainThreshold)
	}
	return nil
}
