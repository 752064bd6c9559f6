package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/law-makers/ammocrawl/internal/render"
	"github.com/law-makers/ammocrawl/internal/render/rendertest"
	"github.com/law-makers/ammocrawl/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scrape(t *testing.T, d models.SiteDescriptor, r *rendertest.Renderer, opts Options) (*SiteResult, error) {
	t.Helper()
	s, err := NewSiteScraper(models.Target{Site: d, URL: shopURL}, testBrands, "9mm Luger", opts, nil)
	require.NoError(t, err)
	return s.Scrape(context.Background(), r)
}

func TestStateTransitions(t *testing.T) {
	st := NewState(shopURL)
	assert.Equal(t, PhaseInitial, st.Phase)
	assert.Error(t, st.To(PhaseAdvancing), "cannot advance before a page loads")

	require.NoError(t, st.To(PhaseLoaded))
	assert.Equal(t, 1, st.Page)
	require.NoError(t, st.To(PhaseAdvancing))
	require.NoError(t, st.To(PhaseLoaded))
	assert.Equal(t, 2, st.Page)
	require.NoError(t, st.To(PhaseAdvancing))
	require.NoError(t, st.To(PhaseDone))
	assert.True(t, st.Done())

	assert.Error(t, st.To(PhaseLoaded), "DONE is terminal")
	assert.Equal(t, "DONE", st.Phase.String())
}

func TestClickAdvanceStopsWhenNextIsHidden(t *testing.T) {
	d := testDescriptor()
	d.Pagination = models.Pagination{Kind: models.PaginationClickAdvance, Next: "a.next"}

	r := rendertest.New()
	p1 := r.Add(shopURL, withNext(listing(goodRows(1, 3)...), `<a class="next">Next</a>`))
	p1.Clicks["a.next"] = shopURL + "#2"
	p2 := r.Add(shopURL+"#2", withNext(listing(goodRows(4, 2)...), `<a class="next" style="display:none">Next</a>`))
	p2.Hidden["a.next"] = true
	p2.Clicks["a.next"] = shopURL + "#2"

	res, err := scrape(t, d, r, Options{})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Pages)
	assert.Len(t, res.Products, 5)
	assert.Equal(t, []string{"a.next"}, r.Clicks(), "hidden control must not be clicked")
}

func TestClickAdvanceClickTimeoutIsNavigationFailure(t *testing.T) {
	d := testDescriptor()
	d.Pagination = models.Pagination{Kind: models.PaginationClickAdvance, Next: "a.next"}

	r := rendertest.New()
	p1 := r.Add(shopURL, withNext(listing(goodRows(1, 3)...), `<a class="next">Next</a>`))
	p1.Clicks["a.next"] = shopURL + "#2"
	p1.ClickErr["a.next"] = render.ErrTimeout
	r.Add(shopURL+"#2", listing(goodRows(4, 2)...))

	res, err := scrape(t, d, r, Options{})
	require.Error(t, err)
	assert.Equal(t, ErrCodeNavigation, Code(res.Err))
	assert.True(t, errors.Is(res.Err, render.ErrTimeout))
	assert.Equal(t, 1, res.Pages)
	assert.Len(t, res.Products, 3, "pages read before the failure are kept")
}

func TestClickAdvanceStopsWhenNextIsAbsent(t *testing.T) {
	d := testDescriptor()
	d.Pagination = models.Pagination{Kind: models.PaginationClickAdvance, Next: "a.next"}

	r := rendertest.New()
	r.Add(shopURL, listing(goodRows(1, 2)...))

	res, err := scrape(t, d, r, Options{})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Pages)
	assert.Len(t, res.Products, 2)
}

func TestLinkFollowResolvesAndStopsOnRevisit(t *testing.T) {
	d := testDescriptor()
	d.Pagination = models.Pagination{Kind: models.PaginationLinkFollow, Next: "a.next.page-numbers"}

	r := rendertest.New()
	r.Add(shopURL, withNext(listing(goodRows(1, 2)...), `<a class="next page-numbers" href="/9mm?page=2">→</a>`))
	r.Add(shopURL+"?page=2", withNext(listing(goodRows(3, 2)...), `<a class="next page-numbers" href="https://shop.test/9mm">→</a>`))

	res, err := scrape(t, d, r, Options{})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Pages)
	assert.Len(t, res.Products, 4)
	assert.Equal(t, []string{shopURL, shopURL + "?page=2"}, r.Navigations())
	assert.Equal(t, "https://shop.test/p/3", res.Products[2].Link)
}

func TestLinkFollowHonoursMaxPages(t *testing.T) {
	d := testDescriptor()
	d.Pagination = models.Pagination{Kind: models.PaginationLinkFollow, Next: "a.next"}

	r := rendertest.New()
	r.Add(shopURL, withNext(listing(goodRows(1, 1)...), `<a class="next" href="?p=2">next</a>`))
	r.Add(shopURL+"?p=2", withNext(listing(goodRows(2, 1)...), `<a class="next" href="?p=3">next</a>`))
	r.Add(shopURL+"?p=3", withNext(listing(goodRows(3, 1)...), `<a class="next" href="?p=4">next</a>`))

	res, err := scrape(t, d, r, Options{MaxPages: 2})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Pages)
	assert.Len(t, r.Navigations(), 2)
}

func TestLinkFollowNavigationFailureKeepsEarlierPages(t *testing.T) {
	d := testDescriptor()
	d.Pagination = models.Pagination{Kind: models.PaginationLinkFollow, Next: "a.next"}

	r := rendertest.New()
	r.Add(shopURL, withNext(listing(goodRows(1, 3)...), `<a class="next" href="?p=2">next</a>`))
	r.NavErr[shopURL+"?p=2"] = render.ErrTimeout

	res, err := scrape(t, d, r, Options{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNavigation))
	assert.True(t, errors.Is(res.Err, render.ErrTimeout))
	assert.Equal(t, 1, res.Pages)
	assert.Len(t, res.Products, 3)
}

func TestInitialNavigationFailureYieldsNothing(t *testing.T) {
	r := rendertest.New()
	r.NavErr[shopURL] = render.ErrTimeout

	res, err := scrape(t, testDescriptor(), r, Options{})
	assert.ErrorIs(t, err, ErrNavigation)
	assert.Empty(t, res.Products)
	assert.Equal(t, 0, res.Pages)
}

func TestInfiniteScrollStopsWhenOffsetRepeats(t *testing.T) {
	d := testDescriptor()
	d.Pagination = models.Pagination{Kind: models.PaginationInfiniteScroll}

	r := rendertest.New()
	p := r.Add(shopURL, listing(goodRows(1, 6)...))
	p.Offsets = []float64{1080, 2160, 3240, 3240, 4320}

	res, err := scrape(t, d, r, Options{ScrollSettle: 0})
	require.NoError(t, err)
	assert.Equal(t, 4, r.Scrolls(), "two equal offsets in a row end the scroll")
	assert.Equal(t, 1, res.Pages)
	assert.Len(t, res.Products, 6)
}

func TestStructureMismatchIsZeroRowsNotFailure(t *testing.T) {
	d := testDescriptor()
	d.Pagination = models.Pagination{Kind: models.PaginationLinkFollow, Next: "a.next"}

	r := rendertest.New()
	r.Add(shopURL, `<html><body><p>Nothing here</p><a class="next" href="?p=2">next</a></body></html>`)
	r.Add(shopURL+"?p=2", listing(goodRows(1, 2)...))

	res, err := scrape(t, d, r, Options{})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Mismatches)
	assert.Equal(t, 2, res.Pages)
	assert.Len(t, res.Products, 2)
}

func TestReadySelectorTimeoutIsNotFatal(t *testing.T) {
	d := testDescriptor()
	d.Ready = "ul.products"

	r := rendertest.New()
	r.Add(shopURL, `<html><body><p>No results</p></body></html>`)

	res, err := scrape(t, d, r, Options{})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Mismatches)
	assert.Empty(t, res.Products)
}

func TestNewStrategyRejectsIncompleteDescriptors(t *testing.T) {
	d := testDescriptor()
	d.Pagination = models.Pagination{Kind: models.PaginationClickAdvance}
	_, err := NewStrategy(d, Options{})
	assert.ErrorIs(t, err, ErrInvalidDescriptor)

	d.Pagination = models.Pagination{Kind: "teleport"}
	_, err = NewStrategy(d, Options{})
	assert.ErrorIs(t, err, ErrInvalidDescriptor)

	d.Pagination = models.Pagination{Kind: models.PaginationInfiniteScroll}
	s, err := NewStrategy(d, Options{})
	require.NoError(t, err)
	assert.Equal(t, models.PaginationInfiniteScroll, s.Kind())
}
