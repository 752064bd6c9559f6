package config

import (
	"fmt"
	"net/url"
	"strings"
)

func validate(c *Config) error {
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log level %q", c.LogLevel)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be > 0")
	}
	if c.ViewportWidth <= 0 || c.ViewportHeight <= 0 {
		return fmt.Errorf("viewport must be positive, got %dx%d", c.ViewportWidth, c.ViewportHeight)
	}
	if c.MaxPages <= 0 || c.MaxPages > DefaultMaxPagesLimit {
		return fmt.Errorf("max pages must be between 1 and %d", DefaultMaxPagesLimit)
	}
	if c.ScrollSettle < 0 {
		return fmt.Errorf("scroll settle must be >= 0")
	}
	if c.FuzzyThreshold < 0 || c.FuzzyThreshold > 1 {
		return fmt.Errorf("fuzzy threshold must be between 0 and 1")
	}
	if c.Proxy != "" {
		u, err := url.Parse(c.Proxy)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("invalid proxy %q", c.Proxy)
		}
	}
	if len(c.Calibers) == 0 {
		return fmt.Errorf("at least one caliber is required")
	}
	for caliber, refs := range c.Targets {
		for i, r := range refs {
			if r.Site == "" || r.URL == "" {
				return fmt.Errorf("calibers.%s[%d]: site and url are required", caliber, i)
			}
		}
	}
	return nil
}
