package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/law-makers/ammocrawl/internal/render"
	"github.com/law-makers/ammocrawl/internal/render/rendertest"
	"github.com/law-makers/ammocrawl/internal/runctx"
	"github.com/law-makers/ammocrawl/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func siteTarget(id, url string) models.Target {
	d := testDescriptor()
	d.ID = id
	d.Name = id
	return models.Target{Site: d, URL: url}
}

func launcherFor(r *rendertest.Renderer) Launcher {
	return func(context.Context) (Session, error) { return r, nil }
}

// recorder captures observer callbacks.
type recorder struct {
	started  []string
	finished []*SiteResult
	skipped  map[SkipReason]int
	panicOn  string
}

func (r *recorder) SiteStarted(site, _ string) { r.started = append(r.started, site) }

func (r *recorder) PageScraped(site string, _, _, _ int) {
	if site == r.panicOn {
		panic("observer failure")
	}
}

func (r *recorder) RowSkipped(_ string, reason SkipReason) {
	if r.skipped == nil {
		r.skipped = map[SkipReason]int{}
	}
	r.skipped[reason]++
}

func (r *recorder) SiteFinished(res *SiteResult) { r.finished = append(r.finished, res) }

func TestOrchestratorSurvivesNavigationFailure(t *testing.T) {
	r := rendertest.New()
	r.Add("https://a.test/9mm", listing(goodRows(1, 2)...))
	r.Add("https://c.test/9mm", listing(goodRows(10, 3)...))
	r.NavErr["https://b.test/9mm"] = render.ErrTimeout

	targets := []models.Target{
		siteTarget("a", "https://a.test/9mm"),
		siteTarget("b", "https://b.test/9mm"),
		siteTarget("c", "https://c.test/9mm"),
	}

	obs := &recorder{}
	o := NewOrchestrator(launcherFor(r), testBrands, Options{}, obs)
	ctx := runctx.WithRun(context.Background(), "9mm Luger")
	res, err := o.Run(ctx, targets)
	require.NoError(t, err)

	require.Len(t, res.Products, 5)
	assert.Equal(t, "a", res.Products[0].Website)
	assert.Equal(t, "c", res.Products[4].Website)
	assert.Equal(t, "9mm Luger", res.Products[0].Caliber)
	assert.Equal(t, "9mm Luger", res.Caliber)
	assert.Equal(t, runctx.FromContext(ctx).RunID, res.RunID)

	require.Len(t, res.Sites, 3)
	assert.NoError(t, res.Sites[0].Err)
	assert.True(t, errors.Is(res.Sites[1].Err, ErrNavigation))
	assert.NoError(t, res.Sites[2].Err)
	assert.Len(t, res.Failed(), 1)

	assert.Equal(t, []string{"a", "b", "c"}, obs.started)
	assert.Len(t, obs.finished, 3)
	assert.True(t, r.Closed(), "session is closed after the run")
}

func TestOrchestratorRecoversSitePanic(t *testing.T) {
	r := rendertest.New()
	r.Add("https://a.test/9mm", listing(goodRows(1, 2)...))
	r.Add("https://b.test/9mm", listing(goodRows(3, 2)...))
	r.Add("https://c.test/9mm", listing(goodRows(5, 2)...))

	obs := &recorder{panicOn: "b"}
	o := NewOrchestrator(launcherFor(r), testBrands, Options{}, obs)
	res, err := o.Run(context.Background(), []models.Target{
		siteTarget("a", "https://a.test/9mm"),
		siteTarget("b", "https://b.test/9mm"),
		siteTarget("c", "https://c.test/9mm"),
	})
	require.NoError(t, err)

	assert.Len(t, res.Products, 4, "a panicking site contributes nothing")
	assert.ErrorIs(t, res.Sites[1].Err, ErrSiteFailure)
	assert.Len(t, obs.finished, 3)
}

func TestOrchestratorRejectsBadDescriptorAndContinues(t *testing.T) {
	r := rendertest.New()
	r.Add("https://c.test/9mm", listing(goodRows(1, 1)...))

	bad := siteTarget("bad", "https://bad.test/9mm")
	bad.Site.Pagination = models.Pagination{Kind: models.PaginationLinkFollow}

	o := NewOrchestrator(launcherFor(r), testBrands, Options{})
	res, err := o.Run(context.Background(), []models.Target{bad, siteTarget("c", "https://c.test/9mm")})
	require.NoError(t, err)
	assert.ErrorIs(t, res.Sites[0].Err, ErrInvalidDescriptor)
	assert.Len(t, res.Products, 1)
	assert.Equal(t, []string{"https://c.test/9mm"}, r.Navigations())
}

func TestOrchestratorCountsSkips(t *testing.T) {
	r := rendertest.New()
	r.Add("https://a.test/9mm", listing(
		productRow(1, "Federal 9mm 50 Rounds", "", "$19.99"),
		productRow(2, "Acme 9mm 50 Rounds", "", "$19.99"),
		productRow(3, "Federal 9mm 0 Rounds", "", "$19.99"),
	))

	obs := &recorder{}
	o := NewOrchestrator(launcherFor(r), testBrands, Options{}, obs)
	res, err := o.Run(context.Background(), []models.Target{siteTarget("a", "https://a.test/9mm")})
	require.NoError(t, err)

	site := res.Sites[0]
	assert.Equal(t, 3, site.Rows)
	assert.Equal(t, 2, site.SkippedTotal())
	assert.Equal(t, 1, site.Skipped[SkipUnknownManufacturer])
	assert.Equal(t, 1, site.Skipped[SkipZeroPackSize])
	assert.Equal(t, site.Skipped, obs.skipped)
}

func TestOrchestratorLaunchFailure(t *testing.T) {
	boom := errors.New("no chrome")
	o := NewOrchestrator(func(context.Context) (Session, error) { return nil, boom }, testBrands, Options{})
	_, err := o.Run(context.Background(), []models.Target{siteTarget("a", "https://a.test/9mm")})
	assert.ErrorIs(t, err, boom)
}

func TestOrchestratorNoTargetsSkipsLaunch(t *testing.T) {
	launched := false
	o := NewOrchestrator(func(context.Context) (Session, error) {
		launched = true
		return rendertest.New(), nil
	}, testBrands, Options{})
	res, err := o.Run(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, res.Products)
	assert.False(t, launched)
}

func TestOrchestratorStopsOnCancel(t *testing.T) {
	r := rendertest.New()
	r.Add("https://a.test/9mm", listing(goodRows(1, 1)...))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	o := NewOrchestrator(launcherFor(r), testBrands, Options{})
	res, err := o.Run(ctx, []models.Target{siteTarget("a", "https://a.test/9mm")})
	assert.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, res)
	assert.Empty(t, res.Sites)
}
