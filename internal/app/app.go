// Package app provides the core application initialization and lifecycle management.
package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/law-makers/ammocrawl/internal/config"
	"github.com/law-makers/ammocrawl/internal/engine"
	"github.com/law-makers/ammocrawl/internal/manufacturer"
	"github.com/law-makers/ammocrawl/internal/metrics"
	"github.com/law-makers/ammocrawl/internal/render"
	"github.com/law-makers/ammocrawl/internal/sites"
	"github.com/law-makers/ammocrawl/pkg/models"
)

// Application holds all application dependencies and manages their lifecycle.
//
// It is created once at startup and shared across all CLI commands.
// The browser is not started here; each orchestrator run launches its own
// session through Launcher.
type Application struct {
	Config        *config.Config
	Logger        *zerolog.Logger
	Sites         *sites.Registry
	Manufacturers *manufacturer.Table
	Metrics       *metrics.Recorder
	startTime     time.Time
}

// New creates and initializes a new Application with all dependencies.
//
// It performs the following initialization steps:
//   - Configures logging based on the provided config
//   - Loads the built-in site registry and merges the optional sites file
//   - Loads the manufacturer table and merges the optional alias file
//   - Creates the metrics recorder
func New(ctx context.Context, cfg *config.Config) (*Application, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}

	logger := ConfigureLogging(cfg, os.Stderr)

	registry, err := sites.Builtin()
	if err != nil {
		return nil, fmt.Errorf("load built-in sites: %w", err)
	}
	if cfg.SitesFile != "" {
		if err := registry.LoadFile(cfg.SitesFile); err != nil {
			return nil, err
		}
	}
	logger.Debug().Int("sites", registry.Len()).Str("sites_file", cfg.SitesFile).Msg("Site registry loaded")

	table := manufacturer.Default()
	if cfg.ManufacturersFile != "" {
		extra, err := manufacturer.LoadFile(cfg.ManufacturersFile)
		if err != nil {
			return nil, err
		}
		table = table.Merge(extra)
	}
	table = table.WithThreshold(cfg.FuzzyThreshold)
	logger.Debug().
		Int("manufacturers", len(table.Names())).
		Float64("fuzzy_threshold", cfg.FuzzyThreshold).
		Msg("Manufacturer table loaded")

	a := &Application{
		Config:        cfg,
		Logger:        &logger,
		Sites:         registry,
		Manufacturers: table,
		Metrics:       metrics.NewRecorder(cfg.MetricsAddr != ""),
		startTime:     time.Now(),
	}

	logger.Debug().Msg("Application initialized successfully")
	return a, nil
}

// ConfigureLogging sets the global zerolog level and output from cfg and
// returns a logger bound to that output.
func ConfigureLogging(cfg *config.Config, w io.Writer) zerolog.Logger {
	level := zerolog.InfoLevel
	switch strings.ToLower(cfg.LogLevel) {
	case "debug":
		level = zerolog.DebugLevel
	case "warn":
		level = zerolog.WarnLevel
	case "error":
		level = zerolog.ErrorLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.JSONLog {
		log.Logger = zerolog.New(w).With().Timestamp().Logger()
	} else {
		log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}).With().Timestamp().Logger()
	}
	return log.Logger
}

// SessionOptions is the browser profile every run shares.
func (a *Application) SessionOptions() render.Options {
	c := a.Config
	return render.Options{
		Headless:       c.Headless,
		UserAgent:      c.UserAgent,
		Proxy:          c.Proxy,
		ChromePath:     c.ChromePath,
		Headers:        c.Headers,
		ViewportWidth:  c.ViewportWidth,
		ViewportHeight: c.ViewportHeight,
		Timeout:        c.Timeout,
	}
}

// EngineOptions maps the paging settings onto engine options.
func (a *Application) EngineOptions() engine.Options {
	c := a.Config
	return engine.Options{
		MaxPages:     c.MaxPages,
		ScrollSettle: c.ScrollSettle,
		ProbeTimeout: c.ProbeTimeout,
		ReadyTimeout: c.ReadyTimeout,
	}
}

// Launcher starts a chromedp session with the application's profile.
func (a *Application) Launcher() engine.Launcher {
	opts := a.SessionOptions()
	return func(ctx context.Context) (engine.Session, error) {
		a.Logger.Debug().
			Bool("headless", opts.Headless).
			Str("chrome", render.FindChrome(opts.ChromePath)).
			Msg("Launching browser")
		s, err := render.Open(ctx, opts)
		if err != nil {
			return nil, err
		}
		return s, nil
	}
}

// Orchestrator builds an orchestrator reporting to the metrics recorder
// and any extra observers.
func (a *Application) Orchestrator(launch engine.Launcher, obs ...engine.Observer) *engine.Orchestrator {
	if launch == nil {
		launch = a.Launcher()
	}
	all := append([]engine.Observer{a.Metrics}, obs...)
	return engine.NewOrchestrator(launch, a.Manufacturers, a.EngineOptions(), all...)
}

// Targets resolves the configured targets of caliber against the registry.
func (a *Application) Targets(caliber string) ([]models.Target, error) {
	return config.LoadTargets(a.Config, caliber, a.Sites)
}

// Close releases application resources. Sessions are owned by runs, so
// this only reports uptime.
func (a *Application) Close(ctx context.Context) error {
	a.Logger.Debug().Dur("uptime", a.Uptime()).Msg("Application shutdown complete")
	return nil
}

// Uptime returns how long the application has been running.
func (a *Application) Uptime() time.Duration {
	return time.Since(a.startTime)
}
