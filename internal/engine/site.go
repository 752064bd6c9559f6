package engine

import (
	"context"
	"errors"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/law-makers/ammocrawl/internal/render"
	"github.com/law-makers/ammocrawl/pkg/models"
	"github.com/rs/zerolog/log"
)

// SiteScraper runs the page loop for one target: settle, read, locate
// rows, extract, advance.
type SiteScraper struct {
	target    models.Target
	strategy  Strategy
	extractor *Extractor
	opts      Options
	observer  Observer
}

// NewSiteScraper validates the target's descriptor and prepares its
// strategy and extractor.
func NewSiteScraper(t models.Target, resolver ManufacturerResolver, caliber string, opts Options, obs Observer) (*SiteScraper, error) {
	opts = opts.withDefaults()
	strategy, err := NewStrategy(t.Site, opts)
	if err != nil {
		return nil, err
	}
	ex, err := NewExtractor(t.Site, resolver, caliber)
	if err != nil {
		return nil, err
	}
	if obs == nil {
		obs = nopObserver{}
	}
	return &SiteScraper{target: t, strategy: strategy, extractor: ex, opts: opts, observer: obs}, nil
}

// Scrape drives r through every page of the site. A failure to load the
// first page returns no products. A failure while advancing keeps the
// pages already read. Either way the error is also stored on the result.
func (s *SiteScraper) Scrape(ctx context.Context, r render.Renderer) (*SiteResult, error) {
	d := s.target.Site
	start := time.Now()
	res := &SiteResult{Site: d.ID, URL: s.target.URL, Skipped: map[SkipReason]int{}}
	logger := log.With().Str("site", d.ID).Str("pagination", string(s.strategy.Kind())).Logger()

	finish := func(err error) (*SiteResult, error) {
		res.Err = err
		res.Duration = time.Since(start)
		return res, err
	}

	st := NewState(s.target.URL)
	if err := r.Navigate(ctx, s.target.URL, waitPolicy(d)); err != nil {
		st.To(PhaseDone)
		return finish(navFailure(s.target.URL, err))
	}
	if err := st.To(PhaseLoaded); err != nil {
		return finish(err)
	}

	for {
		products, doc, err := s.readPage(ctx, r, st, res)
		res.Products = append(res.Products, products...)
		if err != nil {
			st.To(PhaseDone)
			return finish(err)
		}

		if st.Page >= s.opts.MaxPages {
			logger.Warn().Int("page", st.Page).Msg("Page limit reached")
			st.To(PhaseDone)
			break
		}

		if err := st.To(PhaseAdvancing); err != nil {
			return finish(err)
		}
		more, err := s.strategy.Advance(ctx, r, doc, st)
		if err != nil {
			st.To(PhaseDone)
			logger.Error().Err(err).Int("page", st.Page).Int("products", len(res.Products)).Msg("Pagination aborted")
			return finish(err)
		}
		if !more {
			st.To(PhaseDone)
			break
		}
		if err := st.To(PhaseLoaded); err != nil {
			return finish(err)
		}
	}

	logger.Info().
		Int("pages", res.Pages).
		Int("rows", res.Rows).
		Int("products", len(res.Products)).
		Int("skipped", res.SkippedTotal()).
		Dur("elapsed", time.Since(start)).
		Msg("Site done")
	return finish(nil)
}

// readPage settles the current page and extracts its rows.
func (s *SiteScraper) readPage(ctx context.Context, r render.Renderer, st *State, res *SiteResult) ([]models.Product, *goquery.Document, error) {
	d := s.target.Site
	if err := s.strategy.Settle(ctx, r, st); err != nil {
		return nil, nil, err
	}
	markup, err := r.Content(ctx)
	if err != nil {
		return nil, nil, navFailure(st.URL, err)
	}
	doc, err := ParsePage(markup)
	if err != nil {
		return nil, nil, NewEngineError(ErrCodeStructureMismatch, "unparseable page", err).WithDetail("url", st.URL)
	}
	res.Pages++

	rows, err := locate(doc, d)
	if errors.Is(err, ErrStructureMismatch) {
		res.Mismatches++
		log.Warn().Str("site", d.ID).Str("url", st.URL).Int("page", st.Page).Err(err).Msg("Listing structure not found")
		s.observer.PageScraped(d.ID, st.Page, 0, 0)
		return nil, doc, nil
	}
	if err != nil {
		return nil, doc, err
	}

	var products []models.Product
	for _, row := range rows {
		out := s.extractor.Extract(row.Sel, st.URL)
		if out.OK() {
			products = append(products, out.Product)
			continue
		}
		res.Skipped[out.Skip]++
		s.observer.RowSkipped(d.ID, out.Skip)
		if e := log.Debug(); e.Enabled() {
			e.Str("site", d.ID).
				Int("page", st.Page).
				Int("row", row.Index).
				Str("reason", string(out.Skip)).
				Str("detail", out.Detail).
				Str("fragment", fragmentHTML(row.Sel, 300)).
				Msg("Row skipped")
		}
	}
	res.Rows += len(rows)

	log.Debug().Str("site", d.ID).Int("page", st.Page).Int("rows", len(rows)).Int("products", len(products)).Msg("Page scraped")
	s.observer.PageScraped(d.ID, st.Page, len(rows), len(products))
	return products, doc, nil
}
