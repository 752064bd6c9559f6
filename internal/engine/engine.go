// Package engine drives listing pages through a renderer and turns their
// product rows into normalized records. One engine serves every site; sites
// differ only in their descriptor.
package engine

import (
	"time"

	"github.com/law-makers/ammocrawl/pkg/models"
)

// ManufacturerResolver maps noisy brand text to a canonical name.
type ManufacturerResolver interface {
	Resolve(raw string) (string, bool)
}

// Observer receives progress events from a run. Calls are made from the
// orchestrator goroutine, one site at a time.
type Observer interface {
	SiteStarted(site, url string)
	PageScraped(site string, page, rows, products int)
	RowSkipped(site string, reason SkipReason)
	SiteFinished(res *SiteResult)
}

// Options tunes paging behaviour for every site in a run.
type Options struct {
	// MaxPages caps the pages read per site.
	MaxPages int
	// ScrollSettle is the pause between infinite-scroll attempts.
	ScrollSettle time.Duration
	// ProbeTimeout bounds the visibility probe of a click-advance control.
	ProbeTimeout time.Duration
	// ReadyTimeout bounds the wait for a descriptor's ready selector.
	ReadyTimeout time.Duration
}

// DefaultOptions returns the stock paging limits.
func DefaultOptions() Options {
	return Options{
		MaxPages:     50,
		ScrollSettle: 800 * time.Millisecond,
		ProbeTimeout: 3 * time.Second,
		ReadyTimeout: 15 * time.Second,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.MaxPages <= 0 {
		o.MaxPages = d.MaxPages
	}
	if o.ScrollSettle < 0 {
		o.ScrollSettle = 0
	}
	if o.ProbeTimeout <= 0 {
		o.ProbeTimeout = d.ProbeTimeout
	}
	if o.ReadyTimeout <= 0 {
		o.ReadyTimeout = d.ReadyTimeout
	}
	return o
}

// SiteResult is what one site contributed to a run.
type SiteResult struct {
	Site       string
	URL        string
	Pages      int
	Rows       int
	Products   []models.Product
	Skipped    map[SkipReason]int
	Mismatches int
	Duration   time.Duration
	// Err is nil when pagination ran to completion.
	Err error
}

// SkippedTotal sums Skipped.
func (r *SiteResult) SkippedTotal() int {
	n := 0
	for _, c := range r.Skipped {
		n += c
	}
	return n
}

// RunResult is the output of one orchestrator run.
type RunResult struct {
	RunID    string
	Caliber  string
	Products []models.Product
	Sites    []*SiteResult
	Duration time.Duration
}

// Failed returns the sites that ended with an error.
func (r *RunResult) Failed() []*SiteResult {
	var out []*SiteResult
	for _, s := range r.Sites {
		if s.Err != nil {
			out = append(out, s)
		}
	}
	return out
}

type nopObserver struct{}

func (nopObserver) SiteStarted(string, string) {}
func (nopObserver) PageScraped(string, int, int, int) {}
func (nopObserver) RowSkipped(string, SkipReason) {}
func (nopObserver) SiteFinished(*SiteResult) {}

type multiObserver []Observer

func (m multiObserver) SiteStarted(site, url string) {
	for _, o := range m {
		o.SiteStarted(site, url)
	}
}

func (m multiObserver) PageScraped(site string, page, rows, products int) {
	for _, o := range m {
		o.PageScraped(site, page, rows, products)
	}
}

func (m multiObserver) RowSkipped(site string, reason SkipReason) {
	for _, o := range m {
		o.RowSkipped(site, reason)
	}
}

func (m multiObserver) SiteFinished(res *SiteResult) {
	for _, o := range m {
		o.SiteFinished(res)
	}
}

// Observers combines observers; nil entries are dropped.
func Observers(obs ...Observer) Observer {
	var m multiObserver
	for _, o := range obs {
		if o != nil {
			m = append(m, o)
		}
	}
	switch len(m) {
	case 0:
		return nopObserver{}
	case 1:
		return m[0]
	}
	return m
}
