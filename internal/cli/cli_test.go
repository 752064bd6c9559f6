package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/law-makers/ammocrawl/internal/app"
	"github.com/law-makers/ammocrawl/internal/config"
	"github.com/law-makers/ammocrawl/internal/engine"
	"github.com/law-makers/ammocrawl/internal/render/rendertest"
	"github.com/law-makers/ammocrawl/internal/ui"
	"github.com/law-makers/ammocrawl/pkg/models"
)

const shopSites = `
sites:
  - id: shop
    name: Shop
    base_url: https://shop.test
    wait: load
    container: ul.products
    row: li.product
    title: {selector: h2}
    link: {selector: a}
    image: {selector: img}
    manufacturer: {from_title: true}
    price:
      regular: {selector: .price}
`

func shopRow(id, title, price string) string {
	return `<li class="product"><h2>` + title + `</h2><a href="/p/` + id + `">x</a><img src="/i/` + id + `.jpg"><span class="price">` + price + `</span></li>`
}

func newTestApp(t *testing.T) *app.Application {
	t.Helper()
	ui.SetEnabled(false)
	t.Cleanup(func() { ui.SetEnabled(true) })

	path := filepath.Join(t.TempDir(), "sites.yaml")
	require.NoError(t, os.WriteFile(path, []byte(shopSites), 0o644))
	cfg := config.Defaults()
	cfg.SitesFile = path
	cfg.LogLevel = "error"
	a, err := app.New(context.Background(), cfg)
	require.NoError(t, err)
	return a
}

func TestScrapeSortsPrintsAndSaves(t *testing.T) {
	a := newTestApp(t)
	t.Setenv("MM_9MM_LUGER_URLS", "shop;https://shop.test/9mm")

	r := rendertest.New()
	r.Add("https://shop.test/9mm", `<ul class="products">`+
		shopRow("1", "Federal 9mm 115gr 50 Rounds", "$19.99")+
		shopRow("2", "Tula 9mm Steel 100 Rounds", "$22.00")+
		shopRow("3", "Federal 9mm 0 Rounds", "$9.99")+
		`</ul>`)
	launch := func(context.Context) (engine.Session, error) { return r, nil }

	out := filepath.Join(t.TempDir(), "deals.json")
	var stdout, stderr bytes.Buffer
	err := scrape(context.Background(), a, []string{"9mm Luger"}, scrapeOptions{output: out, sort: true}, launch, &stdout, &stderr)
	require.NoError(t, err)

	text := stdout.String()
	assert.Contains(t, text, "Found 2 deals for 9mm Luger")
	assert.Contains(t, text, "zero_pack_size=1")
	assert.Less(t, strings.Index(text, "$0.22/rd"), strings.Index(text, "$0.40/rd"), "cheapest first")
	assert.Contains(t, text, "Saved 2 products")

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"caliber": "9mm Luger"`)
}

func TestScrapeUnknownSiteFailsBeforeLaunch(t *testing.T) {
	a := newTestApp(t)
	t.Setenv("MM_9MM_LUGER_URLS", "nosuchshop;https://x.test")

	launched := false
	launch := func(context.Context) (engine.Session, error) {
		launched = true
		return rendertest.New(), nil
	}
	var stdout bytes.Buffer
	err := scrape(context.Background(), a, []string{"9mm Luger"}, scrapeOptions{}, launch, &stdout, &stdout)
	assert.Error(t, err)
	assert.False(t, launched)
}

func TestScrapeRejectsBadOutputFormat(t *testing.T) {
	a := newTestApp(t)
	var stdout bytes.Buffer
	err := scrape(context.Background(), a, []string{"9mm Luger"}, scrapeOptions{output: "deals.txt"}, nil, &stdout, &stdout)
	assert.Error(t, err)
}

func TestScrapeWithoutTargets(t *testing.T) {
	a := newTestApp(t)
	var stdout bytes.Buffer
	err := scrape(context.Background(), a, []string{"45 ACP"}, scrapeOptions{}, nil, &stdout, &stdout)
	require.NoError(t, err)
	assert.Empty(t, stdout.String())
}

func TestPrintProductsLimit(t *testing.T) {
	ui.SetEnabled(false)
	defer ui.SetEnabled(true)

	products := []models.Product{
		{Title: "A", CPR: models.MustMoney("0.30"), OriginalPrice: models.MustMoney("15")},
		{Title: "B", CPR: models.MustMoney("0.25"), OriginalPrice: models.MustMoney("12.50"), SteelCasing: true},
		{Title: "C", CPR: models.MustMoney("0.25"), OriginalPrice: models.MustMoney("25")},
	}
	sortByCPR(products)
	assert.Equal(t, []string{"B", "C", "A"}, []string{products[0].Title, products[1].Title, products[2].Title})

	var buf bytes.Buffer
	printProducts(&buf, products, 2)
	assert.Contains(t, buf.String(), "[steel]")
	assert.Contains(t, buf.String(), "... and 1 more")
	assert.NotContains(t, buf.String(), "$15.00")
}

func TestSitesAndBrands(t *testing.T) {
	a := newTestApp(t)

	var buf bytes.Buffer
	listSites(&buf, a.Sites)
	assert.Contains(t, buf.String(), "kirammo")
	assert.Contains(t, buf.String(), "pagination=link")

	buf.Reset()
	require.NoError(t, showSite(&buf, a.Sites, "palmetto"))
	assert.Contains(t, buf.String(), "kind: click")
	assert.Error(t, showSite(&buf, a.Sites, "nosuchshop"))

	buf.Reset()
	resolveBrands(&buf, a.Manufacturers, []string{"S&B 9mm 124gr", "Generic Reloads"})
	assert.Contains(t, buf.String(), "S&B 9mm 124gr -> Sellier & Bellot")
	assert.Contains(t, buf.String(), "Generic Reloads -> unknown")
}

func TestWrapText(t *testing.T) {
	got := wrapText("one two three four\n\n- keep this bullet as is", 9)
	assert.Equal(t, "one two\nthree\nfour\n\n- keep this bullet as is", got)
}

func TestRenderHelp(t *testing.T) {
	var buf bytes.Buffer
	renderHelp(&buf, scrapeCmd, true)
	out := buf.String()
	assert.Contains(t, out, "SCRAPE")
	assert.Contains(t, out, "--metrics-addr")
	assert.Contains(t, out, "$ ammocrawl scrape")
}

func TestContextApp(t *testing.T) {
	a := newTestApp(t)
	parent := &cobra.Command{Use: "parent"}
	child := &cobra.Command{Use: "child"}
	parent.AddCommand(child)

	assert.Nil(t, GetAppFromCmd(child))
	SetApp(parent, a)
	assert.Same(t, a, GetAppFromCmd(child))
	SetApp(parent, nil)
	assert.Nil(t, GetAppFromCmd(child))
}
