package engine

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/law-makers/ammocrawl/internal/render"
	"github.com/law-makers/ammocrawl/internal/runctx"
	"github.com/law-makers/ammocrawl/pkg/models"
	"github.com/rs/zerolog/log"
)

// Session is a renderer the orchestrator owns for the length of a run.
type Session interface {
	render.Renderer
	Close() error
}

// Launcher opens the shared session at the start of a run.
type Launcher func(ctx context.Context) (Session, error)

// Orchestrator scrapes a list of targets one after another over a single
// session.
type Orchestrator struct {
	launch   Launcher
	resolver ManufacturerResolver
	opts     Options
	observer Observer
}

// NewOrchestrator returns an orchestrator that opens its session with launch.
func NewOrchestrator(launch Launcher, resolver ManufacturerResolver, opts Options, obs ...Observer) *Orchestrator {
	return &Orchestrator{
		launch:   launch,
		resolver: resolver,
		opts:     opts.withDefaults(),
		observer: Observers(obs...),
	}
}

// Run visits every target exactly once, in order, and concatenates their
// products. A failing site is logged and contributes what it had collected
// before the failure; it never stops the run. The returned error is
// reserved for the session failing to open and for ctx ending early, in
// which case the partial result is still returned.
func (o *Orchestrator) Run(ctx context.Context, targets []models.Target) (*RunResult, error) {
	rc := runctx.FromContext(ctx)
	start := time.Now()
	res := &RunResult{RunID: rc.RunID, Caliber: rc.Caliber}
	logger := log.With().Str("run_id", rc.RunID).Str("caliber", rc.Caliber).Logger()

	if len(targets) == 0 {
		logger.Warn().Msg("No targets to scrape")
		return res, nil
	}

	sess, err := o.launch(ctx)
	if err != nil {
		return nil, runctx.NewRunError(ctx, fmt.Errorf("open render session: %w", err))
	}
	defer func() {
		if err := sess.Close(); err != nil {
			logger.Warn().Err(err).Msg("Close render session")
		}
	}()

	logger.Info().Int("sites", len(targets)).Msg("Run started")
	for _, t := range targets {
		if err := ctx.Err(); err != nil {
			res.Duration = time.Since(start)
			return res, runctx.NewRunError(ctx, err)
		}
		sr := o.scrapeSite(ctx, sess, t, rc.Caliber)
		res.Sites = append(res.Sites, sr)
		res.Products = append(res.Products, sr.Products...)
	}
	res.Duration = time.Since(start)

	logger.Info().
		Int("sites", len(res.Sites)).
		Int("failed", len(res.Failed())).
		Int("products", len(res.Products)).
		Dur("elapsed", res.Duration).
		Msg("Run finished")
	return res, nil
}

// scrapeSite is the fault boundary around one site.
func (o *Orchestrator) scrapeSite(ctx context.Context, r render.Renderer, t models.Target, caliber string) (sr *SiteResult) {
	start := time.Now()
	o.observer.SiteStarted(t.Site.ID, t.URL)
	defer func() {
		if p := recover(); p != nil {
			err := NewEngineError(ErrCodeSiteFailure, "panic during scrape", fmt.Errorf("%v", p))
			log.Error().
				Str("site", t.Site.ID).
				Str("url", t.URL).
				Interface("panic", p).
				Bytes("stack", debug.Stack()).
				Msg("Site scrape panicked")
			sr = &SiteResult{Site: t.Site.ID, URL: t.URL, Skipped: map[SkipReason]int{}, Err: err}
		}
		sr.Duration = time.Since(start)
		o.observer.SiteFinished(sr)
	}()

	scraper, err := NewSiteScraper(t, o.resolver, caliber, o.opts, o.observer)
	if err != nil {
		log.Error().Str("site", t.Site.ID).Err(err).Msg("Site descriptor rejected")
		return &SiteResult{Site: t.Site.ID, URL: t.URL, Skipped: map[SkipReason]int{}, Err: err}
	}

	sr, err = scraper.Scrape(ctx, r)
	if err != nil {
		if Code(err) == "" {
			sr.Err = NewEngineError(ErrCodeSiteFailure, "scrape failed", err)
		}
		log.Error().
			Str("site", t.Site.ID).
			Str("url", t.URL).
			Str("code", string(Code(sr.Err))).
			Int("pages", sr.Pages).
			Int("products", len(sr.Products)).
			Err(err).
			Msg("Site failed")
	}
	return sr
}
