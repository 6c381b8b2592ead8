package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/healthdex/provider-harvest/internal/frontier"
	"github.com/healthdex/provider-harvest/internal/provider"
	"github.com/healthdex/provider-harvest/internal/registry"
	"github.com/healthdex/provider-harvest/internal/render"
	"github.com/healthdex/provider-harvest/internal/sink"
)

type fakeDiscoverer struct {
	candidates []frontier.Candidate
	err        error
}

func (f *fakeDiscoverer) Discover(context.Context) ([]frontier.Candidate, error) {
	return f.candidates, f.err
}

// fakeProfileRenderer returns each candidate URL as its own body so the
// extractor can tell pages apart. URLs in failURLs fail the fetch.
type fakeProfileRenderer struct {
	failURLs map[string]struct{}
}

func (f *fakeProfileRenderer) Fetch(_ context.Context, pageURL string, _ render.FetchOptions) (render.Page, error) {
	if _, fail := f.failURLs[pageURL]; fail {
		return render.Page{}, errors.New("fetch blew up")
	}
	return render.Page{URL: pageURL, StatusCode: 200, Body: []byte(pageURL)}, nil
}

func (f *fakeProfileRenderer) Close(context.Context) error { return nil }

type fakeExtractor struct {
	byBody map[string]provider.Fragment
	panics bool
}

func (f *fakeExtractor) Extract(markup []byte) (provider.Fragment, error) {
	if f.panics {
		panic("extractor bug")
	}
	frag, ok := f.byBody[string(markup)]
	if !ok {
		return provider.Fragment{}, errors.New("unparseable markup")
	}
	return frag, nil
}

type fakeEnricher struct {
	lookups []string
	result  registry.Result
}

func (f *fakeEnricher) Enrich(_ context.Context, npi string) registry.Result {
	f.lookups = append(f.lookups, npi)
	return f.result
}

type fakeSink struct {
	records []provider.Record
	err     error
}

func (f *fakeSink) Write(_ context.Context, records []provider.Record) error {
	f.records = records
	return f.err
}

type fixedClock struct{ at time.Time }

func (c fixedClock) Now() time.Time { return c.at }

var testTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func candidate(url, name string) frontier.Candidate {
	return frontier.Candidate{URL: url, Summary: provider.Fragment{FullName: name}}
}

func TestRunHappyPath(t *testing.T) {
	t.Parallel()

	disc := &fakeDiscoverer{candidates: []frontier.Candidate{
		candidate("https://example.com/doctors/a", "A Summary"),
		candidate("https://example.com/doctors/b", "B Summary"),
	}}
	ext := &fakeExtractor{byBody: map[string]provider.Fragment{
		"https://example.com/doctors/a": {FullName: "Alice Aster", NPI: "111"},
		"https://example.com/doctors/b": {FullName: "Bob Birch", NPI: "222"},
	}}
	enr := &fakeEnricher{result: registry.UnknownResult()}
	out := &fakeSink{}

	o := New(Config{RunID: "run-1"}, disc, &fakeProfileRenderer{}, ext, enr, nil, out, fixedClock{testTime}, zap.NewNop())
	records, err := o.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, StateDone, o.State())

	require.Len(t, records, 2)
	require.Equal(t, "Alice Aster", records[0].FullName)
	require.Equal(t, "Bob Birch", records[1].FullName)
	require.Equal(t, "run-1", records[0].RunID)
	require.Equal(t, "run-1", records[1].RunID)
	require.Equal(t, []string{"111", "222"}, enr.lookups)
	require.Equal(t, records, out.records)
}

func TestRunSkipsFailingEntity(t *testing.T) {
	t.Parallel()

	disc := &fakeDiscoverer{candidates: []frontier.Candidate{
		candidate("https://example.com/doctors/a", "A"),
		candidate("https://example.com/doctors/bad", "Bad"),
		candidate("https://example.com/doctors/c", "C"),
	}}
	renderer := &fakeProfileRenderer{failURLs: map[string]struct{}{
		"https://example.com/doctors/bad": {},
	}}
	ext := &fakeExtractor{byBody: map[string]provider.Fragment{
		"https://example.com/doctors/a": {FullName: "Alice Aster"},
		"https://example.com/doctors/c": {FullName: "Cora Cole"},
	}}
	out := &fakeSink{}

	o := New(Config{}, disc, renderer, ext, &fakeEnricher{result: registry.UnknownResult()}, nil, out, fixedClock{testTime}, zap.NewNop())
	records, err := o.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 2)
	require.Equal(t, "Alice Aster", records[0].FullName)
	require.Equal(t, "Cora Cole", records[1].FullName)
}

func TestRunRecoversFromExtractorPanic(t *testing.T) {
	t.Parallel()

	disc := &fakeDiscoverer{candidates: []frontier.Candidate{
		candidate("https://example.com/doctors/a", "A"),
	}}
	ext := &fakeExtractor{panics: true}

	o := New(Config{}, disc, &fakeProfileRenderer{}, ext, &fakeEnricher{result: registry.UnknownResult()}, nil, &fakeSink{}, fixedClock{testTime}, zap.NewNop())
	records, err := o.Run(context.Background())
	require.NoError(t, err)
	require.Empty(t, records)
	require.Equal(t, StateDone, o.State())
}

func TestRunDiscoveryFailure(t *testing.T) {
	t.Parallel()

	disc := &fakeDiscoverer{err: errors.New("listing unreachable")}
	o := New(Config{}, disc, &fakeProfileRenderer{}, &fakeExtractor{}, nil, nil, &fakeSink{}, fixedClock{testTime}, zap.NewNop())

	_, err := o.Run(context.Background())
	require.Error(t, err)
	require.Equal(t, StateDone, o.State())
}

func TestRunSinkFailureReturnsRecords(t *testing.T) {
	t.Parallel()

	disc := &fakeDiscoverer{candidates: []frontier.Candidate{
		candidate("https://example.com/doctors/a", "A"),
	}}
	ext := &fakeExtractor{byBody: map[string]provider.Fragment{
		"https://example.com/doctors/a": {FullName: "Alice Aster"},
	}}
	out := &fakeSink{err: errors.New("disk full")}

	o := New(Config{}, disc, &fakeProfileRenderer{}, ext, &fakeEnricher{result: registry.UnknownResult()}, nil, out, fixedClock{testTime}, zap.NewNop())
	records, err := o.Run(context.Background())
	require.Error(t, err)
	require.Len(t, records, 1)
}

func TestRunCanceledBeforeFirstEntity(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	disc := &fakeDiscoverer{candidates: []frontier.Candidate{
		candidate("https://example.com/doctors/a", "A"),
	}}
	renderer := &fakeProfileRenderer{}
	out := &fakeSink{}

	o := New(Config{}, disc, renderer, &fakeExtractor{}, nil, nil, out, fixedClock{testTime}, zap.NewNop())
	records, err := o.Run(ctx)
	require.NoError(t, err)
	require.Empty(t, records)
	require.Equal(t, StateDone, o.State())
	require.NotNil(t, out.records, "the empty result set is still persisted")
}

// cancelAfterFirstRenderer cancels the run context once the first profile has
// been served, simulating an external shutdown mid-harvest.
type cancelAfterFirstRenderer struct {
	cancel context.CancelFunc
	served bool
}

func (r *cancelAfterFirstRenderer) Fetch(_ context.Context, pageURL string, _ render.FetchOptions) (render.Page, error) {
	if r.served {
		return render.Page{}, errors.New("fetch after cancel")
	}
	r.served = true
	r.cancel()
	return render.Page{URL: pageURL, StatusCode: 200, Body: []byte(pageURL)}, nil
}

func (r *cancelAfterFirstRenderer) Close(context.Context) error { return nil }

func TestRunCanceledMidHarvestPersistsPartialResults(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "results.json")
	results, err := sink.NewJSONFile(path, zap.NewNop())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	disc := &fakeDiscoverer{candidates: []frontier.Candidate{
		candidate("https://example.com/doctors/a", "A"),
		candidate("https://example.com/doctors/b", "B"),
	}}
	ext := &fakeExtractor{byBody: map[string]provider.Fragment{
		"https://example.com/doctors/a": {FullName: "Alice Aster"},
		"https://example.com/doctors/b": {FullName: "Bob Birch"},
	}}
	renderer := &cancelAfterFirstRenderer{cancel: cancel}

	o := New(Config{}, disc, renderer, ext, &fakeEnricher{result: registry.UnknownResult()}, nil, results, fixedClock{testTime}, zap.NewNop())
	records, err := o.Run(ctx)
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Equal(t, "Alice Aster", records[0].FullName)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	var persisted []provider.Record
	require.NoError(t, json.Unmarshal(raw, &persisted))
	require.Len(t, persisted, 1)
	require.Equal(t, "Alice Aster", persisted[0].FullName)
}

func TestRunFallsBackToSummaryNPI(t *testing.T) {
	t.Parallel()

	cand := frontier.Candidate{
		URL:     "https://example.com/doctors/a",
		Summary: provider.Fragment{FullName: "A", NPI: "999"},
	}
	disc := &fakeDiscoverer{candidates: []frontier.Candidate{cand}}
	ext := &fakeExtractor{byBody: map[string]provider.Fragment{
		"https://example.com/doctors/a": {FullName: "Alice Aster"},
	}}
	enr := &fakeEnricher{result: registry.UnknownResult()}

	o := New(Config{}, disc, &fakeProfileRenderer{}, ext, enr, nil, &fakeSink{}, fixedClock{testTime}, zap.NewNop())
	_, err := o.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{"999"}, enr.lookups)
}
