package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/law-makers/ammocrawl/internal/utils/headers"
)

// TargetRef names one listing URL on one registered site.
type TargetRef struct {
	Site string `yaml:"site"`
	URL  string `yaml:"url"`
}

// Config holds application configuration values
type Config struct {
	// Logging
	LogLevel string `yaml:"log_level"`
	JSONLog  bool   `yaml:"json_log"`

	// Browser session profile
	Timeout        time.Duration     `yaml:"timeout"`
	UserAgent      string            `yaml:"user_agent"`
	Headers        map[string]string `yaml:"headers"`
	ViewportWidth  int               `yaml:"viewport_width"`
	ViewportHeight int               `yaml:"viewport_height"`
	Headless       bool              `yaml:"headless"`
	ChromePath     string            `yaml:"chrome_path"`
	Proxy          string            `yaml:"proxy"`

	// Paging
	MaxPages     int           `yaml:"max_pages"`
	ScrollSettle time.Duration `yaml:"scroll_settle"`
	ProbeTimeout time.Duration `yaml:"probe_timeout"`
	ReadyTimeout time.Duration `yaml:"ready_timeout"`

	// Lookup tables
	SitesFile         string  `yaml:"sites_file"`
	ManufacturersFile string  `yaml:"manufacturers_file"`
	FuzzyThreshold    float64 `yaml:"fuzzy_threshold"`

	// Output
	Output      string `yaml:"output"`
	MetricsAddr string `yaml:"metrics_addr"`

	// Targets
	Calibers []string               `yaml:"default_calibers"`
	Targets  map[string][]TargetRef `yaml:"calibers"`
}

// Defaults returns a Config holding only default values.
func Defaults() *Config {
	return &Config{
		LogLevel:       DefaultLogLevel,
		JSONLog:        DefaultJSONLog,
		Timeout:        DefaultTimeout,
		UserAgent:      DefaultUserAgent,
		Headers:        DefaultHeaders(),
		ViewportWidth:  DefaultViewportWidth,
		ViewportHeight: DefaultViewportHeight,
		Headless:       DefaultHeadless,
		MaxPages:       DefaultMaxPages,
		ScrollSettle:   DefaultScrollSettle,
		ProbeTimeout:   DefaultProbeTimeout,
		ReadyTimeout:   DefaultReadyTimeout,
		FuzzyThreshold: DefaultFuzzyThreshold,
		Calibers:       []string{DefaultCaliber},
	}
}

// Load builds a Config by combining defaults, an optional config file, environment variables, and CLI flags.
// Caller should pass the root *cobra.Command so flags can be read.
func Load(cmd *cobra.Command) (*Config, error) {
	cfg := Defaults()

	if path := flagString(cmd, "config"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	} else if path := os.Getenv("AMMOCRAWL_CONFIG"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.applyFlags(cmd); err != nil {
		return nil, err
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// loadFile overlays the keys present in a YAML file. Headers are merged
// over the defaults rather than replacing them.
func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	base := c.Headers
	c.Headers = nil
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	c.Headers = headers.Merge(base, c.Headers)
	return nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("AMMOCRAWL_USER_AGENT"); v != "" {
		c.UserAgent = v
	}
	if v := os.Getenv("AMMOCRAWL_PROXY"); v != "" {
		c.Proxy = v
	}
	if v := os.Getenv("AMMOCRAWL_CHROME_PATH"); v != "" {
		c.ChromePath = v
	}
	if v := os.Getenv("AMMOCRAWL_SITES_FILE"); v != "" {
		c.SitesFile = v
	}
	if v := os.Getenv("AMMOCRAWL_HEADLESS"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("AMMOCRAWL_HEADLESS: %w", err)
		}
		c.Headless = b
	}
	if v := os.Getenv("AMMOCRAWL_CALIBERS"); v != "" {
		c.Calibers = splitList(v)
	}
	return nil
}

func (c *Config) applyFlags(cmd *cobra.Command) error {
	if cmd == nil {
		return nil
	}
	if changed(cmd, "verbose") && flagBool(cmd, "verbose") {
		c.LogLevel = "debug"
	}
	if changed(cmd, "quiet") && flagBool(cmd, "quiet") {
		c.LogLevel = "error"
	}
	if changed(cmd, "json") {
		c.JSONLog = flagBool(cmd, "json")
	}
	if changed(cmd, "user-agent") {
		c.UserAgent = flagString(cmd, "user-agent")
	}
	if changed(cmd, "proxy") {
		c.Proxy = flagString(cmd, "proxy")
	}
	if changed(cmd, "chrome-path") {
		c.ChromePath = flagString(cmd, "chrome-path")
	}
	if changed(cmd, "headless") {
		c.Headless = flagBool(cmd, "headless")
	}
	if changed(cmd, "sites-file") {
		c.SitesFile = flagString(cmd, "sites-file")
	}
	if changed(cmd, "manufacturers-file") {
		c.ManufacturersFile = flagString(cmd, "manufacturers-file")
	}
	if changed(cmd, "timeout") {
		d, err := time.ParseDuration(flagString(cmd, "timeout"))
		if err != nil {
			return fmt.Errorf("--timeout: %w", err)
		}
		c.Timeout = d
	}
	if changed(cmd, "scroll-settle") {
		d, err := time.ParseDuration(flagString(cmd, "scroll-settle"))
		if err != nil {
			return fmt.Errorf("--scroll-settle: %w", err)
		}
		c.ScrollSettle = d
	}
	if changed(cmd, "max-pages") {
		n, err := strconv.Atoi(flagString(cmd, "max-pages"))
		if err != nil {
			return fmt.Errorf("--max-pages: %w", err)
		}
		c.MaxPages = n
	}
	if changed(cmd, "header") {
		if f := lookup(cmd, "header"); f != nil {
			if sv, ok := f.Value.(pflag.SliceValue); ok {
				c.Headers = headers.Merge(c.Headers, headers.ParseHeaders(sv.GetSlice()))
			}
		}
	}
	return nil
}

// CaliberKey turns a caliber name into the key used by the MM_<KEY>_URLS
// environment variables: upper case, spaces to underscores, dots removed.
func CaliberKey(caliber string) string {
	k := strings.ToUpper(strings.TrimSpace(caliber))
	k = strings.ReplaceAll(k, ".", "")
	return strings.Join(strings.Fields(k), "_")
}

func lookup(cmd *cobra.Command, name string) *pflag.Flag {
	if f := cmd.Flags().Lookup(name); f != nil {
		return f
	}
	if f := cmd.PersistentFlags().Lookup(name); f != nil {
		return f
	}
	return cmd.InheritedFlags().Lookup(name)
}

func changed(cmd *cobra.Command, name string) bool {
	f := lookup(cmd, name)
	return f != nil && f.Changed
}

func flagString(cmd *cobra.Command, name string) string {
	if cmd == nil {
		return ""
	}
	if f := lookup(cmd, name); f != nil {
		return f.Value.String()
	}
	return ""
}

func flagBool(cmd *cobra.Command, name string) bool {
	b, _ := strconv.ParseBool(flagString(cmd, name))
	return b
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
