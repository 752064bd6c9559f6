// Package render is the page renderer used by the scrape engine: a browser
// tab that can navigate, wait, scroll, click and hand back rendered markup.
package render

import (
	"context"
	"errors"
	"time"

	"github.com/law-makers/ammocrawl/pkg/models"
)

var (
	ErrTimeout  = errors.New("render timeout")
	ErrNotFound = errors.New("element not found")
	ErrClosed   = errors.New("render session closed")
)

// WaitOptions bounds a selector wait. A zero Timeout means the renderer's
// default navigation timeout.
type WaitOptions struct {
	Timeout time.Duration
	Visible bool
}

// Renderer is a single browser tab. Calls are sequential; every call blocks
// until its condition holds or its timeout expires.
type Renderer interface {
	Navigate(ctx context.Context, url string, policy models.WaitPolicy) error
	WaitForSelector(ctx context.Context, selector string, opts WaitOptions) error
	// WaitForLoad waits for the page to settle after an in-page action.
	WaitForLoad(ctx context.Context, policy models.WaitPolicy) error
	Content(ctx context.Context) (string, error)
	// ScrollAndReadOffset scrolls to the bottom and returns window.scrollY.
	ScrollAndReadOffset(ctx context.Context) (float64, error)
	Click(ctx context.Context, selector string) error
	// Location returns the URL of the current document.
	Location(ctx context.Context) (string, error)
}
