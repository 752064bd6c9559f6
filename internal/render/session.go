package render

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"github.com/law-makers/ammocrawl/pkg/models"
	"github.com/rs/zerolog/log"
)

const (
	// idleQuiet is how long the network must stay quiet to count as idle.
	idleQuiet    = 500 * time.Millisecond
	idlePoll     = 100 * time.Millisecond
	loadedScript = `document.readyState === "complete"`
	scrollScript = `window.scrollTo(0, document.body.scrollHeight); window.scrollY`
)

// Options is the browser profile shared by every site in a run.
type Options struct {
	Headless       bool
	UserAgent      string
	Proxy          string
	ChromePath     string
	Headers        map[string]string
	ViewportWidth  int
	ViewportHeight int
	// Timeout bounds every navigation, wait, scroll and click.
	Timeout   time.Duration
	ExtraArgs []chromedp.ExecAllocatorOption
}

// Session is a chromedp-backed Renderer holding one tab.
type Session struct {
	tab         context.Context
	tabCancel   context.CancelFunc
	allocCancel context.CancelFunc
	timeout     time.Duration
	net         *inflight

	mu     sync.Mutex
	closed bool
}

var _ Renderer = (*Session)(nil)

// Open launches the browser and prepares a tab with the configured
// headers and viewport.
func Open(ctx context.Context, opts Options) (*Session, error) {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.ViewportWidth <= 0 || opts.ViewportHeight <= 0 {
		opts.ViewportWidth, opts.ViewportHeight = 1920, 1080
	}

	allocOpts := []chromedp.ExecAllocatorOption{
		chromedp.NoFirstRun,
		chromedp.NoDefaultBrowserCheck,
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("disable-background-networking", true),
		chromedp.Flag("disable-breakpad", true),
		chromedp.Flag("disable-default-apps", true),
		chromedp.Flag("disable-hang-monitor", true),
		chromedp.Flag("disable-renderer-backgrounding", true),
		chromedp.Flag("disable-sync", true),
		chromedp.Flag("disable-translate", true),
		chromedp.Flag("mute-audio", true),
		chromedp.Flag("log-level", "3"),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("disable-infobars", true),
		chromedp.Flag("window-size", fmt.Sprintf("%d,%d", opts.ViewportWidth, opts.ViewportHeight)),
	}
	if opts.UserAgent != "" {
		allocOpts = append(allocOpts, chromedp.UserAgent(opts.UserAgent))
	}
	if path := FindChrome(opts.ChromePath); path != "" {
		allocOpts = append([]chromedp.ExecAllocatorOption{chromedp.ExecPath(path)}, allocOpts...)
	}
	if opts.Headless {
		allocOpts = append(allocOpts, chromedp.Flag("headless", "new"))
	} else {
		allocOpts = append(allocOpts, chromedp.Flag("headless", false))
	}
	if opts.Proxy != "" {
		allocOpts = append(allocOpts, chromedp.ProxyServer(opts.Proxy))
	}
	allocOpts = append(allocOpts, opts.ExtraArgs...)

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, allocOpts...)
	tab, tabCancel := chromedp.NewContext(allocCtx)

	s := &Session{
		tab:         tab,
		tabCancel:   tabCancel,
		allocCancel: allocCancel,
		timeout:     opts.Timeout,
		net:         newInflight(),
	}
	chromedp.ListenTarget(tab, s.net.observe)

	headers := network.Headers{}
	for k, v := range opts.Headers {
		headers[k] = v
	}

	setup := []chromedp.Action{
		network.Enable(),
		chromedp.EmulateViewport(int64(opts.ViewportWidth), int64(opts.ViewportHeight)),
	}
	if len(headers) > 0 {
		setup = append(setup, network.SetExtraHTTPHeaders(headers))
	}
	setup = append(setup, chromedp.Navigate("about:blank"))

	startCtx, cancel := context.WithTimeout(tab, opts.Timeout)
	defer cancel()
	if err := chromedp.Run(startCtx, setup...); err != nil {
		s.Close()
		return nil, fmt.Errorf("start browser: %w", err)
	}

	log.Info().
		Bool("headless", opts.Headless).
		Int("headers", len(headers)).
		Msg("Browser session ready")
	return s, nil
}

// Navigate loads url and waits for policy.
func (s *Session) Navigate(ctx context.Context, url string, policy models.WaitPolicy) error {
	opCtx, done, err := s.op(ctx, s.timeout)
	if err != nil {
		return err
	}
	defer done()

	start := time.Now()
	if err := chromedp.Run(opCtx, chromedp.Navigate(url)); err != nil {
		return s.wrap(opCtx, fmt.Sprintf("navigate %s", url), err)
	}
	if policy == models.WaitNetworkIdle {
		if err := s.net.waitIdle(opCtx); err != nil {
			return s.wrap(opCtx, fmt.Sprintf("network idle %s", url), err)
		}
	}
	log.Debug().Str("url", url).Dur("elapsed", time.Since(start)).Msg("Page loaded")
	return nil
}

// WaitForLoad waits for the current document to finish loading, then for
// network idle when asked.
func (s *Session) WaitForLoad(ctx context.Context, policy models.WaitPolicy) error {
	opCtx, done, err := s.op(ctx, s.timeout)
	if err != nil {
		return err
	}
	defer done()

	var loaded bool
	if err := chromedp.Run(opCtx, chromedp.Poll(loadedScript, &loaded)); err != nil {
		return s.wrap(opCtx, "wait for load", err)
	}
	if policy == models.WaitNetworkIdle {
		if err := s.net.waitIdle(opCtx); err != nil {
			return s.wrap(opCtx, "wait for network idle", err)
		}
	}
	return nil
}

func (s *Session) WaitForSelector(ctx context.Context, selector string, opts WaitOptions) error {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = s.timeout
	}
	opCtx, done, err := s.op(ctx, timeout)
	if err != nil {
		return err
	}
	defer done()

	action := chromedp.WaitReady(selector, chromedp.ByQuery)
	if opts.Visible {
		action = chromedp.WaitVisible(selector, chromedp.ByQuery)
	}
	if err := chromedp.Run(opCtx, action); err != nil {
		return s.wrap(opCtx, fmt.Sprintf("wait for %q", selector), err)
	}
	return nil
}

func (s *Session) Content(ctx context.Context) (string, error) {
	opCtx, done, err := s.op(ctx, s.timeout)
	if err != nil {
		return "", err
	}
	defer done()

	var html string
	if err := chromedp.Run(opCtx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", s.wrap(opCtx, "read content", err)
	}
	return html, nil
}

func (s *Session) ScrollAndReadOffset(ctx context.Context) (float64, error) {
	opCtx, done, err := s.op(ctx, s.timeout)
	if err != nil {
		return 0, err
	}
	defer done()

	var y float64
	if err := chromedp.Run(opCtx, chromedp.Evaluate(scrollScript, &y)); err != nil {
		return 0, s.wrap(opCtx, "scroll", err)
	}
	return y, nil
}

func (s *Session) Click(ctx context.Context, selector string) error {
	opCtx, done, err := s.op(ctx, s.timeout)
	if err != nil {
		return err
	}
	defer done()

	var n int
	if err := chromedp.Run(opCtx, chromedp.Evaluate(fmt.Sprintf("document.querySelectorAll(%q).length", selector), &n)); err != nil {
		return s.wrap(opCtx, fmt.Sprintf("click %q", selector), err)
	}
	if n == 0 {
		return fmt.Errorf("click %q: %w", selector, ErrNotFound)
	}
	if err := chromedp.Run(opCtx, chromedp.Click(selector, chromedp.ByQuery, chromedp.NodeVisible)); err != nil {
		return s.wrap(opCtx, fmt.Sprintf("click %q", selector), err)
	}
	return nil
}

func (s *Session) Location(ctx context.Context) (string, error) {
	opCtx, done, err := s.op(ctx, s.timeout)
	if err != nil {
		return "", err
	}
	defer done()

	var u string
	if err := chromedp.Run(opCtx, chromedp.Location(&u)); err != nil {
		return "", s.wrap(opCtx, "location", err)
	}
	return u, nil
}

// Close shuts the tab and the browser process. It is safe to call twice.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	s.tabCancel()
	s.allocCancel()
	log.Debug().Msg("Browser session closed")
	return nil
}

// op derives a per-call context from the tab that also ends when the
// caller's ctx does.
func (s *Session) op(ctx context.Context, timeout time.Duration) (context.Context, func(), error) {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return nil, nil, ErrClosed
	}

	opCtx, cancel := context.WithTimeout(s.tab, timeout)
	stop := context.AfterFunc(ctx, cancel)
	return opCtx, func() {
		stop()
		cancel()
	}, nil
}

func (s *Session) wrap(opCtx context.Context, what string, err error) error {
	if errors.Is(opCtx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w", what, ErrTimeout)
	}
	return fmt.Errorf("%s: %w", what, err)
}

// inflight counts outstanding network requests on the tab.
type inflight struct {
	mu      sync.Mutex
	pending map[network.RequestID]struct{}
	last    time.Time
}

func newInflight() *inflight {
	return &inflight{pending: make(map[network.RequestID]struct{}), last: time.Now()}
}

func (n *inflight) observe(ev interface{}) {
	n.mu.Lock()
	defer n.mu.Unlock()
	switch ev := ev.(type) {
	case *network.EventRequestWillBeSent:
		n.pending[ev.RequestID] = struct{}{}
		n.last = time.Now()
	case *network.EventLoadingFinished:
		delete(n.pending, ev.RequestID)
		n.last = time.Now()
	case *network.EventLoadingFailed:
		delete(n.pending, ev.RequestID)
		n.last = time.Now()
	}
}

// waitIdle returns once no request has been outstanding for idleQuiet,
// measured from the later of the call and the last network activity.
func (n *inflight) waitIdle(ctx context.Context) error {
	start := time.Now()
	ticker := time.NewTicker(idlePoll)
	defer ticker.Stop()
	for {
		n.mu.Lock()
		busy := len(n.pending)
		since := n.last
		n.mu.Unlock()
		if since.Before(start) {
			since = start
		}
		if busy == 0 && time.Since(since) >= idleQuiet {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
