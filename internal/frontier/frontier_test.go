package frontier

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/healthdex/provider-harvest/internal/extract"
	"github.com/healthdex/provider-harvest/internal/render"
)

// fakeRenderer serves canned listing markup keyed by URL. Unknown URLs fail
// the fetch, which discovery must treat as an empty page.
type fakeRenderer struct {
	pages   map[string]string
	fetched []string
}

func (f *fakeRenderer) Fetch(_ context.Context, pageURL string, _ render.FetchOptions) (render.Page, error) {
	f.fetched = append(f.fetched, pageURL)
	body, ok := f.pages[pageURL]
	if !ok {
		return render.Page{}, errors.New("no such page")
	}
	return render.Page{URL: pageURL, StatusCode: 200, Body: []byte(body)}, nil
}

func (f *fakeRenderer) Close(context.Context) error { return nil }

func listingPage(links ...string) string {
	var b strings.Builder
	b.WriteString("<html><body>")
	for i, link := range links {
		fmt.Fprintf(&b, `<div class="webmd-card provider-result-card">
  <h3><a href=%q>Dr. Provider %d MD</a></h3>
  <div class="specialty">Family Medicine</div>
</div>`, link, i)
	}
	b.WriteString("</body></html>")
	return b.String()
}

func newController(cfg Config, r render.Renderer) *Controller {
	cfg.Cards = extract.DefaultCardSelectors()
	cfg.WaitTimeout = time.Second
	return New(cfg, r, zap.NewNop())
}

func TestDiscoverStopsOnEmptyPage(t *testing.T) {
	t.Parallel()

	r := &fakeRenderer{pages: map[string]string{
		"https://example.com/doctors":        listingPage("/doctors/a", "/doctors/b"),
		"https://example.com/doctors?page=2": listingPage("/doctors/c"),
		"https://example.com/doctors?page=3": listingPage(),
	}}
	c := newController(Config{ListingURL: "https://example.com/doctors", Quota: 10}, r)

	got, err := c.Discover(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 3)
	require.Equal(t, "https://example.com/doctors/a", got[0].URL)
	require.Equal(t, "https://example.com/doctors/c", got[2].URL)
	require.Len(t, r.fetched, 3)
}

func TestDiscoverQuotaTruncates(t *testing.T) {
	t.Parallel()

	r := &fakeRenderer{pages: map[string]string{
		"https://example.com/doctors": listingPage("/doctors/a", "/doctors/b", "/doctors/c"),
	}}
	c := newController(Config{ListingURL: "https://example.com/doctors", Quota: 2}, r)

	got, err := c.Discover(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Len(t, r.fetched, 1, "quota met on page one, no further pages")
}

func TestDiscoverDeduplicatesAcrossPages(t *testing.T) {
	t.Parallel()

	r := &fakeRenderer{pages: map[string]string{
		"https://example.com/doctors":        listingPage("/doctors/a", "/doctors/b"),
		"https://example.com/doctors?page=2": listingPage("/doctors/b", "/doctors/a"),
	}}
	c := newController(Config{ListingURL: "https://example.com/doctors", Quota: 10}, r)

	got, err := c.Discover(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 2, "page two repeats page one, contributing zero new urls")
}

func TestDiscoverFetchFailureEndsPagination(t *testing.T) {
	t.Parallel()

	// Page two is not served; its fetch failure counts as zero URLs.
	r := &fakeRenderer{pages: map[string]string{
		"https://example.com/doctors": listingPage("/doctors/a"),
	}}
	c := newController(Config{ListingURL: "https://example.com/doctors", Quota: 10}, r)

	got, err := c.Discover(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Len(t, r.fetched, 2)
}

func TestDiscoverPageCeiling(t *testing.T) {
	t.Parallel()

	pages := map[string]string{
		"https://example.com/doctors": listingPage("/doctors/p1"),
	}
	for p := 2; p <= 10; p++ {
		pages[fmt.Sprintf("https://example.com/doctors?page=%d", p)] = listingPage(fmt.Sprintf("/doctors/p%d", p))
	}
	r := &fakeRenderer{pages: pages}
	c := newController(Config{ListingURL: "https://example.com/doctors", Quota: 100, MaxPages: 3}, r)

	got, err := c.Discover(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 3)
	require.Len(t, r.fetched, 3)
}

func TestDiscoverBadListingURL(t *testing.T) {
	t.Parallel()

	c := newController(Config{ListingURL: "://not-a-url"}, &fakeRenderer{})
	_, err := c.Discover(context.Background())
	require.Error(t, err)
}

func TestDiscoverCanceledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := newController(Config{ListingURL: "https://example.com/doctors"}, &fakeRenderer{})
	_, err := c.Discover(ctx)
	require.ErrorIs(t, err, context.Canceled)
}

func TestDiscoverCarriesCardSummary(t *testing.T) {
	t.Parallel()

	r := &fakeRenderer{pages: map[string]string{
		"https://example.com/doctors": listingPage("/doctors/a"),
	}}
	c := newController(Config{ListingURL: "https://example.com/doctors", Quota: 1}, r)

	got, err := c.Discover(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, "Dr.", got[0].Summary.Title)
	require.Equal(t, []string{"Family Medicine"}, got[0].Summary.Specialties)
}
