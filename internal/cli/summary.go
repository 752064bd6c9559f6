package cli

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/law-makers/ammocrawl/internal/engine"
	"github.com/law-makers/ammocrawl/internal/ui"
	"github.com/law-makers/ammocrawl/pkg/models"
)

// sortByCPR orders products cheapest per round first. Ties keep scrape
// order.
func sortByCPR(products []models.Product) {
	sort.SliceStable(products, func(i, j int) bool {
		return products[i].CPR.Decimal().LessThan(products[j].CPR.Decimal())
	})
}

// printSiteTable writes one line per site of a run.
func printSiteTable(w io.Writer, res *engine.RunResult) {
	fmt.Fprintf(w, "\n%s %s\n", ui.Bold(res.Caliber), ui.Dim("run "+res.RunID))
	width := 4
	for _, s := range res.Sites {
		width = max(width, len(s.Site))
	}
	fmt.Fprintf(w, "  %-*s %6s %6s %8s %8s  %s\n", width, "site", "pages", "rows", "products", "skipped", "status")
	for _, s := range res.Sites {
		status := ui.Success("ok")
		if s.Err != nil {
			code := string(engine.Code(s.Err))
			if code == "" {
				code = "FAILED"
			}
			status = ui.Error(code)
		}
		fmt.Fprintf(w, "  %-*s %6d %6d %8d %8d  %s\n",
			width, s.Site, s.Pages, s.Rows, len(s.Products), s.SkippedTotal(), status)
	}
}

// printSkipReasons totals the skip counts of a run by reason.
func printSkipReasons(w io.Writer, res *engine.RunResult) {
	totals := map[engine.SkipReason]int{}
	for _, s := range res.Sites {
		for r, n := range s.Skipped {
			totals[r] += n
		}
	}
	if len(totals) == 0 {
		return
	}
	reasons := make([]string, 0, len(totals))
	for r := range totals {
		reasons = append(reasons, string(r))
	}
	sort.Strings(reasons)
	parts := make([]string, len(reasons))
	for i, r := range reasons {
		parts[i] = fmt.Sprintf("%s=%d", r, totals[engine.SkipReason(r)])
	}
	fmt.Fprintf(w, "  %s %s\n", ui.Dim("skipped:"), strings.Join(parts, " "))
}

// printProducts lists up to limit products; limit <= 0 lists all.
func printProducts(w io.Writer, products []models.Product, limit int) {
	if limit <= 0 || limit > len(products) {
		limit = len(products)
	}
	for _, p := range products[:limit] {
		tags := ""
		if p.SteelCasing {
			tags += " [steel]"
		}
		if p.Remanufactured {
			tags += " [reman]"
		}
		fmt.Fprintf(w, "  %s  %8s  %-18s %s%s\n    %s %s\n",
			ui.Success("$"+p.CPR.String()+"/rd"),
			"$"+p.OriginalPrice.String(),
			p.Manufacturer, p.Title, ui.Warn(tags),
			ui.Dim(p.Website), ui.Accent(p.Link))
	}
	if limit < len(products) {
		fmt.Fprintf(w, "  %s\n", ui.Dim(fmt.Sprintf("... and %d more", len(products)-limit)))
	}
}
