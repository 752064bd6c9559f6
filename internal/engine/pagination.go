package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/law-makers/ammocrawl/internal/render"
	urlutil "github.com/law-makers/ammocrawl/internal/utils/url"
	"github.com/law-makers/ammocrawl/pkg/models"
	"github.com/rs/zerolog/log"
)

// maxScrollAttempts bounds a single infinite-scroll settle.
const maxScrollAttempts = 500

// Phase is a pagination state.
type Phase int

const (
	PhaseInitial Phase = iota
	PhaseLoaded
	PhaseAdvancing
	PhaseDone
)

func (p Phase) String() string {
	switch p {
	case PhaseInitial:
		return "INITIAL"
	case PhaseLoaded:
		return "PAGE_LOADED"
	case PhaseAdvancing:
		return "ADVANCING"
	case PhaseDone:
		return "DONE"
	}
	return fmt.Sprintf("Phase(%d)", int(p))
}

// State is the pagination state of one site scrape.
type State struct {
	Phase Phase
	URL   string
	// Page is 1-based once the first page has loaded.
	Page    int
	visited map[string]bool
}

// NewState starts at url in PhaseInitial.
func NewState(url string) *State {
	return &State{Phase: PhaseInitial, URL: url, visited: map[string]bool{url: true}}
}

// To moves to next. Allowed moves are INITIAL→PAGE_LOADED,
// PAGE_LOADED→ADVANCING, ADVANCING→PAGE_LOADED and any→DONE. DONE is terminal.
func (s *State) To(next Phase) error {
	ok := false
	switch {
	case s.Phase == PhaseDone:
	case next == PhaseDone:
		ok = true
	case s.Phase == PhaseInitial && next == PhaseLoaded:
		ok = true
	case s.Phase == PhaseLoaded && next == PhaseAdvancing:
		ok = true
	case s.Phase == PhaseAdvancing && next == PhaseLoaded:
		ok = true
	}
	if !ok {
		return fmt.Errorf("pagination: illegal transition %s -> %s", s.Phase, next)
	}
	if next == PhaseLoaded {
		s.Page++
	}
	s.Phase = next
	return nil
}

// Done reports whether the state is terminal.
func (s *State) Done() bool { return s.Phase == PhaseDone }

// Visit records url and reports whether it is new.
func (s *State) Visit(url string) bool {
	if s.visited[url] {
		return false
	}
	s.visited[url] = true
	return true
}

// Strategy obtains successive pages of one site.
type Strategy interface {
	Kind() models.PaginationKind
	// Settle runs once a page is loaded, before its markup is read.
	Settle(ctx context.Context, r render.Renderer, st *State) error
	// Advance loads the next page and reports whether there was one. An
	// error means the renderer failed while moving; the scrape stops.
	Advance(ctx context.Context, r render.Renderer, doc *goquery.Document, st *State) (bool, error)
}

// NewStrategy picks the strategy for d.
func NewStrategy(d models.SiteDescriptor, opts Options) (Strategy, error) {
	opts = opts.withDefaults()
	base := pager{desc: d, opts: opts, sleep: sleepCtx}
	switch d.Pagination.Kind {
	case "", models.PaginationNone:
		return &single{base}, nil
	case models.PaginationLinkFollow:
		if d.Pagination.Next == "" {
			return nil, NewEngineError(ErrCodeInvalidDescriptor, "link pagination needs a next selector", nil).WithDetail("site", d.ID)
		}
		return &linkFollow{base}, nil
	case models.PaginationClickAdvance:
		if d.Pagination.Next == "" {
			return nil, NewEngineError(ErrCodeInvalidDescriptor, "click pagination needs a next selector", nil).WithDetail("site", d.ID)
		}
		return &clickAdvance{base}, nil
	case models.PaginationInfiniteScroll:
		return &infiniteScroll{base}, nil
	}
	return nil, NewEngineError(ErrCodeInvalidDescriptor, fmt.Sprintf("unknown pagination kind %q", d.Pagination.Kind), nil).WithDetail("site", d.ID)
}

// pager holds what every strategy shares.
type pager struct {
	desc  models.SiteDescriptor
	opts  Options
	sleep func(context.Context, time.Duration) error
}

// awaitReady waits for the ready selector. A timeout is not fatal: a page
// without a listing is reported later by the row locator.
func (p pager) awaitReady(ctx context.Context, r render.Renderer, st *State) error {
	if p.desc.Ready == "" {
		return nil
	}
	err := r.WaitForSelector(ctx, p.desc.Ready, render.WaitOptions{Timeout: p.opts.ReadyTimeout})
	if err == nil {
		return nil
	}
	if errors.Is(err, render.ErrTimeout) {
		log.Warn().Str("site", p.desc.ID).Str("url", st.URL).Str("selector", p.desc.Ready).Msg("Ready selector did not appear")
		return nil
	}
	return navFailure(st.URL, err)
}

// single reads only the landing page.
type single struct{ pager }

func (s *single) Kind() models.PaginationKind { return models.PaginationNone }

func (s *single) Settle(ctx context.Context, r render.Renderer, st *State) error {
	return s.awaitReady(ctx, r, st)
}

func (s *single) Advance(context.Context, render.Renderer, *goquery.Document, *State) (bool, error) {
	return false, nil
}

// linkFollow navigates to the href of the next-page anchor.
type linkFollow struct{ pager }

func (l *linkFollow) Kind() models.PaginationKind { return models.PaginationLinkFollow }

func (l *linkFollow) Settle(ctx context.Context, r render.Renderer, st *State) error {
	return l.awaitReady(ctx, r, st)
}

func (l *linkFollow) Advance(ctx context.Context, r render.Renderer, doc *goquery.Document, st *State) (bool, error) {
	href, ok := doc.Find(l.desc.Pagination.Next).First().Attr("href")
	href = strings.TrimSpace(href)
	if !ok || href == "" || href == "#" || strings.HasPrefix(strings.ToLower(href), "javascript:") {
		return false, nil
	}

	base := st.URL
	if l.desc.BaseURL != "" {
		base = l.desc.BaseURL
	}
	next, err := urlutil.Absolute(base, href)
	if err != nil {
		log.Debug().Str("site", l.desc.ID).Str("href", href).Err(err).Msg("Unresolvable next link")
		return false, nil
	}
	if !st.Visit(next) {
		log.Debug().Str("site", l.desc.ID).Str("url", next).Msg("Next link revisits a page, stopping")
		return false, nil
	}

	if err := r.Navigate(ctx, next, waitPolicy(l.desc)); err != nil {
		return false, navFailure(next, err)
	}
	st.URL = next
	return true, nil
}

// clickAdvance clicks the next control for as long as it is visible.
type clickAdvance struct{ pager }

func (c *clickAdvance) Kind() models.PaginationKind { return models.PaginationClickAdvance }

func (c *clickAdvance) Settle(ctx context.Context, r render.Renderer, st *State) error {
	return c.awaitReady(ctx, r, st)
}

func (c *clickAdvance) Advance(ctx context.Context, r render.Renderer, _ *goquery.Document, st *State) (bool, error) {
	next := c.desc.Pagination.Next
	err := r.WaitForSelector(ctx, next, render.WaitOptions{Timeout: c.opts.ProbeTimeout, Visible: true})
	if errors.Is(err, render.ErrTimeout) {
		return false, nil
	}
	if err != nil {
		return false, navFailure(st.URL, err)
	}

	if err := r.Click(ctx, next); err != nil {
		if errors.Is(err, render.ErrNotFound) {
			return false, nil
		}
		return false, navFailure(st.URL, err)
	}
	if err := r.WaitForLoad(ctx, waitPolicy(c.desc)); err != nil {
		return false, navFailure(st.URL, err)
	}
	if u, err := r.Location(ctx); err == nil && u != "" {
		st.URL = u
		st.Visit(u)
	}
	return true, nil
}

// infiniteScroll loads everything on one page by scrolling until the
// offset stops changing.
type infiniteScroll struct{ pager }

func (s *infiniteScroll) Kind() models.PaginationKind { return models.PaginationInfiniteScroll }

func (s *infiniteScroll) Settle(ctx context.Context, r render.Renderer, st *State) error {
	if err := s.awaitReady(ctx, r, st); err != nil {
		return err
	}

	prev, err := r.ScrollAndReadOffset(ctx)
	if err != nil {
		return navFailure(st.URL, err)
	}
	for i := 1; i < maxScrollAttempts; i++ {
		if err := s.sleep(ctx, s.opts.ScrollSettle); err != nil {
			return navFailure(st.URL, err)
		}
		off, err := r.ScrollAndReadOffset(ctx)
		if err != nil {
			return navFailure(st.URL, err)
		}
		if off == prev {
			log.Debug().Str("site", s.desc.ID).Int("scrolls", i+1).Float64("offset", off).Msg("Scroll offset settled")
			return nil
		}
		prev = off
	}
	log.Warn().Str("site", s.desc.ID).Int("scrolls", maxScrollAttempts).Msg("Scroll offset never settled")
	return nil
}

func (s *infiniteScroll) Advance(context.Context, render.Renderer, *goquery.Document, *State) (bool, error) {
	return false, nil
}

func waitPolicy(d models.SiteDescriptor) models.WaitPolicy {
	if d.Wait == "" {
		return models.WaitNetworkIdle
	}
	return d.Wait
}

func navFailure(url string, err error) error {
	return NewEngineError(ErrCodeNavigation, "renderer failed", err).WithDetail("url", url)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
