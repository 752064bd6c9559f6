package app

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/law-makers/ammocrawl/internal/config"
	"github.com/law-makers/ammocrawl/internal/engine"
	"github.com/law-makers/ammocrawl/internal/render/rendertest"
	"github.com/law-makers/ammocrawl/internal/runctx"
)

const testSites = `
sites:
  - id: testshop
    name: Test Shop
    base_url: https://shop.test
    wait: load
    container: ul.products
    row: li.product
    title: {selector: h2.title}
    link: {selector: a.link}
    image: {selector: img}
    manufacturer: {from_title: true}
    price:
      sale: {selector: .price .sale}
      regular: {selector: .price .regular}
`

const testListing = `<html><body><ul class="products">
<li class="product"><h2 class="title">Federal 9mm Luger 115gr FMJ - 50 Rounds</h2>
<a class="link" href="/p/1">view</a><img src="/img/1.jpg">
<span class="price"><span class="sale">$14.99</span><span class="regular">$17.99</span></span></li>
<li class="product"><h2 class="title">Mystery Brand 9mm 50 Rounds</h2>
<a class="link" href="/p/2">view</a><img src="/img/2.jpg">
<span class="price"><span class="regular">$12.99</span></span></li>
</ul></body></html>`

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sites.yaml")
	require.NoError(t, os.WriteFile(path, []byte(testSites), 0o644))
	cfg := config.Defaults()
	cfg.SitesFile = path
	cfg.LogLevel = "error"
	return cfg
}

func TestNewLoadsTables(t *testing.T) {
	a, err := New(context.Background(), testConfig(t))
	require.NoError(t, err)
	defer a.Close(context.Background())

	_, err = a.Sites.Lookup("kirammo")
	assert.NoError(t, err, "built-in sites stay available")
	_, err = a.Sites.Lookup("testshop")
	assert.NoError(t, err)

	name, ok := a.Manufacturers.Resolve("American Eagle 9mm")
	assert.True(t, ok)
	assert.Equal(t, "Federal", name)

	opts := a.SessionOptions()
	assert.Equal(t, config.DefaultUserAgent, opts.UserAgent)
	assert.Equal(t, 1920, opts.ViewportWidth)
	assert.Equal(t, config.DefaultMaxPages, a.EngineOptions().MaxPages)
}

func TestNewRejectsMissingFiles(t *testing.T) {
	cfg := config.Defaults()
	cfg.SitesFile = filepath.Join(t.TempDir(), "nope.yaml")
	_, err := New(context.Background(), cfg)
	assert.Error(t, err)

	cfg = config.Defaults()
	cfg.ManufacturersFile = filepath.Join(t.TempDir(), "nope.yaml")
	_, err = New(context.Background(), cfg)
	assert.Error(t, err)

	_, err = New(context.Background(), nil)
	assert.Error(t, err)
}

func TestRunWithScriptedRenderer(t *testing.T) {
	a, err := New(context.Background(), testConfig(t))
	require.NoError(t, err)

	t.Setenv("MM_9MM_LUGER_URLS", "testshop;https://shop.test/9mm")
	targets, err := a.Targets("9mm Luger")
	require.NoError(t, err)
	require.Len(t, targets, 1)

	r := rendertest.New()
	r.Add("https://shop.test/9mm", testListing)
	launch := func(context.Context) (engine.Session, error) { return r, nil }

	ctx := runctx.WithRun(context.Background(), "9mm Luger")
	res, err := a.Orchestrator(launch).Run(ctx, targets)
	require.NoError(t, err)

	require.Len(t, res.Products, 1)
	p := res.Products[0]
	assert.Equal(t, "Test Shop", p.Website)
	assert.Equal(t, "https://shop.test/p/1", p.Link)
	assert.Equal(t, "14.99", p.OriginalPrice.String())
	assert.Equal(t, "0.30", p.CPR.String())
	assert.Equal(t, 1, res.Sites[0].Skipped[engine.SkipUnknownManufacturer])

	families, err := a.Metrics.Registry().Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
}

func TestTargetsUnknownSite(t *testing.T) {
	a, err := New(context.Background(), testConfig(t))
	require.NoError(t, err)
	t.Setenv("MM_22_LR_URLS", "nosuchshop;https://x.test")
	_, err = a.Targets("22 LR")
	assert.Error(t, err)
}

func TestConfigureLogging(t *testing.T) {
	defer zerolog.SetGlobalLevel(zerolog.InfoLevel)

	var buf bytes.Buffer
	logger := ConfigureLogging(&config.Config{LogLevel: "warn", JSONLog: true}, &buf)
	assert.Equal(t, zerolog.WarnLevel, zerolog.GlobalLevel())

	logger.Info().Msg("hidden")
	logger.Warn().Str("site", "kirammo").Msg("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"site":"kirammo"`)
}
