// Package rendertest provides a scripted in-memory render.Renderer.
package rendertest

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"github.com/law-makers/ammocrawl/internal/render"
	"github.com/law-makers/ammocrawl/pkg/models"
)

// Page is one scripted document.
type Page struct {
	HTML string
	// Hidden selectors exist in the DOM but never become visible.
	Hidden map[string]bool
	// Clicks maps a selector to the URL of the page the click leads to.
	Clicks map[string]string
	// Offsets are returned by successive scrolls; the last one repeats.
	Offsets []float64
	// ClickErr makes a click on a selector fail with the given error.
	ClickErr map[string]error
}

// Renderer serves Pages by URL. NavErr makes Navigate to a URL fail.
type Renderer struct {
	Pages  map[string]*Page
	NavErr map[string]error

	mu           sync.Mutex
	current      string
	scrolls      int
	totalScrolls int
	navigations  []string
	clicks       []string
	closed       bool
}

var _ render.Renderer = (*Renderer)(nil)

// New returns an empty Renderer.
func New() *Renderer {
	return &Renderer{Pages: map[string]*Page{}, NavErr: map[string]error{}}
}

// Add registers html at url and returns the page for further scripting.
func (r *Renderer) Add(url, html string) *Page {
	p := &Page{HTML: html, Hidden: map[string]bool{}, Clicks: map[string]string{}, ClickErr: map[string]error{}}
	r.Pages[url] = p
	return p
}

func (r *Renderer) Navigate(ctx context.Context, url string, _ models.WaitPolicy) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.navigations = append(r.navigations, url)
	if err := r.NavErr[url]; err != nil {
		return err
	}
	if _, ok := r.Pages[url]; !ok {
		return fmt.Errorf("navigate %s: %w", url, render.ErrTimeout)
	}
	r.current = url
	r.scrolls = 0
	return nil
}

func (r *Renderer) WaitForSelector(ctx context.Context, selector string, opts render.WaitOptions) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	p, err := r.page()
	if err != nil {
		return err
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(p.HTML))
	if err != nil {
		return err
	}
	if doc.Find(selector).Length() == 0 || (opts.Visible && p.Hidden[selector]) {
		return fmt.Errorf("wait for %q: %w", selector, render.ErrTimeout)
	}
	return nil
}

func (r *Renderer) WaitForLoad(ctx context.Context, _ models.WaitPolicy) error {
	return ctx.Err()
}

func (r *Renderer) Content(ctx context.Context) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, err := r.page()
	if err != nil {
		return "", err
	}
	return p.HTML, nil
}

func (r *Renderer) ScrollAndReadOffset(ctx context.Context) (float64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, err := r.page()
	if err != nil {
		return 0, err
	}
	if len(p.Offsets) == 0 {
		r.totalScrolls++
		return 0, nil
	}
	i := r.scrolls
	if i >= len(p.Offsets) {
		i = len(p.Offsets) - 1
	}
	r.scrolls++
	r.totalScrolls++
	return p.Offsets[i], nil
}

func (r *Renderer) Click(ctx context.Context, selector string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, err := r.page()
	if err != nil {
		return err
	}
	if err := p.ClickErr[selector]; err != nil {
		return fmt.Errorf("click %q: %w", selector, err)
	}
	next, ok := p.Clicks[selector]
	if !ok || p.Hidden[selector] {
		return fmt.Errorf("click %q: %w", selector, render.ErrNotFound)
	}
	if _, ok := r.Pages[next]; !ok {
		return fmt.Errorf("click %q leads to unknown page %s: %w", selector, next, render.ErrTimeout)
	}
	r.clicks = append(r.clicks, selector)
	r.current = next
	r.scrolls = 0
	return nil
}

func (r *Renderer) Location(ctx context.Context) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current, nil
}

// Navigations returns every URL passed to Navigate, in order.
func (r *Renderer) Navigations() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.navigations...)
}

// Clicks returns every selector successfully clicked, in order.
func (r *Renderer) Clicks() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.clicks...)
}

func (r *Renderer) page() (*Page, error) {
	p, ok := r.Pages[r.current]
	if !ok {
		return nil, fmt.Errorf("no page loaded: %w", render.ErrNotFound)
	}
	return p, nil
}

// Scrolls returns how many times ScrollAndReadOffset was called.
func (r *Renderer) Scrolls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.totalScrolls
}

// Close marks the renderer closed.
func (r *Renderer) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}

// Closed reports whether Close was called.
func (r *Renderer) Closed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}
