// Package metrics exports run progress as Prometheus metrics.
package metrics

import (
	"errors"
	"net/http"

	"github.com/law-makers/ammocrawl/internal/engine"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "ammocrawl"

// Recorder implements engine.Observer on a private registry so several
// recorders can coexist in one process (tests, repeated runs).
type Recorder struct {
	registry *prometheus.Registry

	pages        *prometheus.CounterVec
	rows         *prometheus.CounterVec
	products     *prometheus.CounterVec
	skipped      *prometheus.CounterVec
	failures     *prometheus.CounterVec
	siteDuration *prometheus.HistogramVec
	lastRun      *prometheus.GaugeVec
}

// NewRecorder registers the run metrics. withRuntime adds the Go and
// process collectors.
func NewRecorder(withRuntime bool) *Recorder {
	reg := prometheus.NewRegistry()
	r := &Recorder{
		registry: reg,
		pages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pages_scraped_total",
			Help:      "Listing pages read, by site.",
		}, []string{"site"}),
		rows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_seen_total",
			Help:      "Product rows located, by site.",
		}, []string{"site"}),
		products: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "products_total",
			Help:      "Products emitted, by site.",
		}, []string{"site"}),
		skipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_skipped_total",
			Help:      "Rows dropped by the extractor, by site and reason.",
		}, []string{"site", "reason"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "site_failures_total",
			Help:      "Sites that ended with an error, by error code.",
		}, []string{"site", "code"}),
		siteDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "site_duration_seconds",
			Help:      "Wall time spent on one site.",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600},
		}, []string{"site"}),
		lastRun: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "site_last_products",
			Help:      "Products emitted by the most recent scrape of a site.",
		}, []string{"site"}),
	}
	reg.MustRegister(r.pages, r.rows, r.products, r.skipped, r.failures, r.siteDuration, r.lastRun)
	if withRuntime {
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}
	return r
}

// SiteStarted implements engine.Observer.
func (r *Recorder) SiteStarted(string, string) {}

// PageScraped implements engine.Observer.
func (r *Recorder) PageScraped(site string, _, rows, products int) {
	r.pages.WithLabelValues(site).Inc()
	r.rows.WithLabelValues(site).Add(float64(rows))
	r.products.WithLabelValues(site).Add(float64(products))
}

// RowSkipped implements engine.Observer.
func (r *Recorder) RowSkipped(site string, reason engine.SkipReason) {
	r.skipped.WithLabelValues(site, string(reason)).Inc()
}

// SiteFinished implements engine.Observer.
func (r *Recorder) SiteFinished(res *engine.SiteResult) {
	r.siteDuration.WithLabelValues(res.Site).Observe(res.Duration.Seconds())
	r.lastRun.WithLabelValues(res.Site).Set(float64(len(res.Products)))
	if res.Err != nil {
		code := string(engine.Code(res.Err))
		if code == "" {
			code = "UNKNOWN"
		}
		r.failures.WithLabelValues(res.Site, code).Inc()
	}
}

// Registry exposes the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry { return r.registry }

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// Serve starts an HTTP listener for /metrics in the background. The
// returned server is shut down by the caller.
func (r *Recorder) Serve(addr string, errs chan<- error) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", r.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			if errs != nil {
				errs <- err
			}
		}
	}()
	return srv
}
