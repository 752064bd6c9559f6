package cli

import (
	"fmt"
	"io"

	"github.com/schollz/progressbar/v3"

	"github.com/law-makers/ammocrawl/internal/engine"
)

// progressObserver advances a bar once per finished site.
type progressObserver struct {
	bar     *progressbar.ProgressBar
	caliber string
}

var _ engine.Observer = (*progressObserver)(nil)

func newProgressObserver(w io.Writer, caliber string, sites int) *progressObserver {
	bar := progressbar.NewOptions(sites,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription(caliber),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(30),
		progressbar.OptionClearOnFinish(),
		progressbar.OptionSetPredictTime(false),
	)
	return &progressObserver{bar: bar, caliber: caliber}
}

func (p *progressObserver) SiteStarted(site, _ string) {
	p.bar.Describe(fmt.Sprintf("%s: %s", p.caliber, site))
}

func (p *progressObserver) PageScraped(site string, page, _, _ int) {
	p.bar.Describe(fmt.Sprintf("%s: %s p%d", p.caliber, site, page))
}

func (p *progressObserver) RowSkipped(string, engine.SkipReason) {}

func (p *progressObserver) SiteFinished(*engine.SiteResult) {
	_ = p.bar.Add(1)
}

func (p *progressObserver) finish() {
	_ = p.bar.Finish()
}
