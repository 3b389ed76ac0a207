package picker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"testing/fstest"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mattsblocklist/countrypicker/internal/alpha"
	"github.com/mattsblocklist/countrypicker/internal/catalog"
	"github.com/mattsblocklist/countrypicker/internal/countries"
	"github.com/mattsblocklist/countrypicker/internal/metrics"
	"github.com/mattsblocklist/countrypicker/internal/search"
)

const testCatalog = `{
  "FR": {"currency": ["EUR"], "callingCode": ["33"], "region": "Europe", "subregion": "Western Europe", "flag": "flag-fr", "name": {"common": "France", "deu": "Frankreich"}},
  "DE": {"currency": ["EUR"], "callingCode": ["49"], "region": "Europe", "subregion": "Western Europe", "flag": "flag-de", "name": {"common": "Germany", "deu": "Deutschland"}},
  "AT": {"currency": ["EUR"], "callingCode": ["43"], "region": "Europe", "subregion": "Western Europe", "flag": "flag-at", "name": {"common": "Austria", "deu": "Österreich"}},
  "US": {"currency": ["USD"], "callingCode": ["1"], "region": "Americas", "subregion": "North America", "flag": "flag-us", "name": "United States"},
  "GT": {"currency": ["GTQ"], "callingCode": ["502"], "region": "Americas", "subregion": "Central America", "flag": "flag-gt", "name": {"common": "Guatemala"}},
  "JP": {"currency": ["JPY"], "callingCode": ["81"], "region": "Asia", "subregion": "Eastern Asia", "flag": "flag-jp", "name": {"common": "Japan", "deu": "Japan"}}
}`

type scrollCall struct {
	index    int
	animated bool
}

type recordingScroller struct {
	mu    sync.Mutex
	calls []scrollCall
}

func (s *recordingScroller) ScrollToIndex(index int, animated bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, scrollCall{index, animated})
}

func (s *recordingScroller) Calls() []scrollCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]scrollCall(nil), s.calls...)
}

// gatedSource signals started on its first Load and blocks until gate closes.
type gatedSource struct {
	catalog.Source
	once    sync.Once
	started chan struct{}
	gate    chan struct{}
}

func (s *gatedSource) Load(ctx context.Context) (*countries.Catalog, error) {
	s.once.Do(func() { close(s.started) })
	<-s.gate
	return s.Source.Load(ctx)
}

var testFS = fstest.MapFS{"countries.json": {Data: []byte(testCatalog)}}

func newTestEngine(t *testing.T, extra ...catalog.Source) (*Engine, *recordingScroller, *metrics.Metrics, *search.Index) {
	t.Helper()
	sources := catalog.NewSources()
	sources.Register(catalog.NewFSSource(testFS, "countries.json", countries.Glyph))
	for _, s := range extra {
		sources.Register(s)
	}
	m := metrics.New(nil)
	index := search.NewIndex(nil, m)
	scroller := &recordingScroller{}
	return NewEngine(catalog.NewCache(sources, nil, m), index, scroller, nil, m), scroller, m, index
}

func codes(cs []countries.Country) []string {
	out := make([]string, len(cs))
	for i, c := range cs {
		out[i] = c.Code
	}
	return out
}

func TestApplyBuildsState(t *testing.T) {
	e, scroller, _, _ := newTestEngine(t)
	ctx := context.Background()

	state, err := e.Apply(ctx, Options{})
	require.NoError(t, err)

	assert.Equal(t, uint64(1), state.Generation)
	assert.Equal(t, []string{"AT", "FR", "DE", "GT", "JP", "US"}, codes(state.VisibleList))
	assert.Equal(t, []string{"A", "F", "G", "J", "U"}, state.AvailableLetters)
	assert.False(t, state.Fallback)

	// The first presentation anchors at the first letter without animation.
	require.NotNil(t, state.ScrollTargetIndex)
	assert.Equal(t, 0, *state.ScrollTargetIndex)
	assert.Equal(t, []scrollCall{{0, false}}, scroller.Calls())

	again, err := e.Apply(ctx, Options{})
	require.NoError(t, err)
	assert.Equal(t, uint64(1), again.Generation)
	assert.Nil(t, again.ScrollTargetIndex)
	assert.Len(t, scroller.Calls(), 1)
}

func TestApplyTranslation(t *testing.T) {
	e, _, _, _ := newTestEngine(t)
	ctx := context.Background()

	_, err := e.Apply(ctx, Options{})
	require.NoError(t, err)
	state, err := e.Apply(ctx, Options{Translation: "deu"})
	require.NoError(t, err)

	assert.Equal(t, uint64(2), state.Generation)
	assert.Equal(t, []string{"DE", "FR", "GT", "JP", "AT", "US"}, codes(state.VisibleList))
	assert.Equal(t, "Deutschland", state.VisibleList[0].Name.Common())
	assert.True(t, state.Fallback)
}

func TestApplyQuerySuppressesLetters(t *testing.T) {
	e, scroller, _, _ := newTestEngine(t)
	ctx := context.Background()

	state, err := e.Apply(ctx, Options{Query: "fra"})
	require.NoError(t, err)
	assert.Equal(t, []string{"FR"}, codes(state.VisibleList))
	assert.Empty(t, state.AvailableLetters)
	assert.Nil(t, state.ScrollTargetIndex)
	assert.Empty(t, scroller.Calls())

	_, err = e.ScrollTo(state.Generation, "F")
	assert.ErrorIs(t, err, ErrNavigationSuppressed)

	// Clearing the query keeps the generation and re-enables navigation.
	cleared, err := e.Apply(ctx, Options{Query: "  "})
	require.NoError(t, err)
	assert.Equal(t, state.Generation, cleared.Generation)
	assert.Len(t, cleared.VisibleList, 6)

	pos, err := e.ScrollTo(cleared.Generation, "F")
	require.NoError(t, err)
	assert.Equal(t, 1, pos)
	assert.Equal(t, scrollCall{1, true}, scroller.Calls()[len(scroller.Calls())-1])
}

func TestApplySelectedLetter(t *testing.T) {
	e, scroller, _, _ := newTestEngine(t)
	ctx := context.Background()

	state, err := e.Apply(ctx, Options{SelectedLetter: "G"})
	require.NoError(t, err)
	require.NotNil(t, state.ScrollTargetIndex)
	assert.Equal(t, 2, *state.ScrollTargetIndex)
	assert.Equal(t, []scrollCall{{2, true}}, scroller.Calls())

	_, err = e.Apply(ctx, Options{Region: countries.Asia, SelectedLetter: "Z"})
	assert.ErrorIs(t, err, alpha.ErrInvalidLetterTarget)
	assert.Equal(t, state.Generation, e.Generation())
}

func TestTwoRegionBuilds(t *testing.T) {
	e, _, m, index := newTestEngine(t)
	ctx := context.Background()

	europe, err := e.Apply(ctx, Options{Region: countries.Europe, Query: "fr"})
	require.NoError(t, err)
	assert.Equal(t, 1, index.Rebuilds())

	americas, err := e.Apply(ctx, Options{Region: countries.Americas, Query: "gua"})
	require.NoError(t, err)
	assert.Equal(t, []string{"GT"}, codes(americas.VisibleList))
	assert.Equal(t, 2, index.Rebuilds())
	assert.Equal(t, 2.0, testutil.ToFloat64(m.SearchIndexRebuilds))
	assert.NotEqual(t, europe.Generation, americas.Generation)

	browsing, err := e.Apply(ctx, Options{Region: countries.Americas})
	require.NoError(t, err)
	assert.Equal(t, americas.Generation, browsing.Generation)
	assert.Equal(t, []string{"G", "U"}, browsing.AvailableLetters)

	// A letter taken from the Europe list is never resolved against Americas.
	_, err = e.ScrollTo(europe.Generation, "F")
	assert.ErrorIs(t, err, ErrStaleGeneration)
	_, err = e.ScrollTo(browsing.Generation, "F")
	assert.ErrorIs(t, err, alpha.ErrInvalidLetterTarget)

	pos, err := e.ScrollTo(browsing.Generation, "U")
	require.NoError(t, err)
	assert.Equal(t, 1, pos)
}

func TestApplySupersededRequestIsDiscarded(t *testing.T) {
	slow := &gatedSource{
		Source:  catalog.NewFSSource(testFS, "countries.json", countries.Image),
		started: make(chan struct{}),
		gate:    make(chan struct{}),
	}
	defer close(slow.gate)
	e, _, m, _ := newTestEngine(t, slow)
	ctx := context.Background()

	errCh := make(chan error, 1)
	go func() {
		_, err := e.Apply(ctx, Options{FlagVariant: countries.Image, Region: countries.Asia})
		errCh <- err
	}()
	<-slow.started

	state, err := e.Apply(ctx, Options{Region: countries.Europe})
	require.NoError(t, err)

	assert.ErrorIs(t, <-errCh, ErrSuperseded)
	assert.Equal(t, state.Generation, e.Generation())
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SupersededRequests))

	pos, err := e.ScrollTo(state.Generation, "G")
	require.NoError(t, err)
	assert.Equal(t, 2, pos)
}

func TestApplyCancelledByCaller(t *testing.T) {
	e, scroller, _, _ := newTestEngine(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := e.Apply(ctx, Options{})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, uint64(0), e.Generation())
	assert.Empty(t, scroller.Calls())

	_, err = e.ScrollTo(0, "A")
	assert.ErrorIs(t, err, ErrStaleGeneration)
}

func TestApplyCatalogUnavailable(t *testing.T) {
	e, _, _, _ := newTestEngine(t)

	_, err := e.Apply(context.Background(), Options{FlagVariant: countries.Image})
	assert.ErrorIs(t, err, catalog.ErrCatalogUnavailable)
	assert.Equal(t, uint64(0), e.Generation())
}

func TestApplyConcurrentLatestWins(t *testing.T) {
	e, _, _, _ := newTestEngine(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make(chan error, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			region := countries.Europe
			if i%2 == 0 {
				region = countries.Americas
			}
			_, err := e.Apply(ctx, Options{Region: region})
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)

	succeeded := 0
	for err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, ErrSuperseded)
	}
	assert.GreaterOrEqual(t, succeeded, 1)
	assert.NotZero(t, e.Generation())
}

// committedListScroller checks each letter scroll against the list current
// when it arrives. The engine holds its lock while calling it. Initial
// non-animated anchoring is not checked.
type committedListScroller struct {
	e          *Engine
	letters    map[countries.Region]string
	calls      atomic.Int64
	mismatches atomic.Int64
}

func (s *committedListScroller) ScrollToIndex(index int, animated bool) {
	if !animated {
		return
	}
	s.calls.Add(1)
	cur := s.e.cur
	pos, err := cur.index.ScrollTarget(s.letters[cur.list.Countries[0].Region])
	if err != nil || pos != index {
		s.mismatches.Add(1)
	}
}

func TestApplyScrollsAgainstCommittedList(t *testing.T) {
	e, _, _, _ := newTestEngine(t)
	scroller := &committedListScroller{
		e:       e,
		letters: map[countries.Region]string{countries.Europe: "G", countries.Americas: "U"},
	}
	e.scroller = scroller

	requests := []Options{
		{Region: countries.Europe, SelectedLetter: "G"},
		{Region: countries.Americas, SelectedLetter: "U"},
	}
	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 500; i++ {
				_, err := e.Apply(context.Background(), requests[(g+i)%2])
				if err != nil && !errors.Is(err, ErrSuperseded) {
					t.Errorf("apply: %v", err)
					return
				}
			}
		}(g)
	}
	wg.Wait()

	assert.NotZero(t, scroller.calls.Load())
	assert.Zero(t, scroller.mismatches.Load())
}

func TestScrollToHoldsCommittedList(t *testing.T) {
	e, _, _, _ := newTestEngine(t)
	scroller := &committedListScroller{
		e:       e,
		letters: map[countries.Region]string{countries.Europe: "F", countries.Americas: "G"},
	}
	ctx := context.Background()
	europe, err := e.Apply(ctx, Options{Region: countries.Europe})
	require.NoError(t, err)
	e.scroller = scroller

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 500; i++ {
			_, err := e.ScrollTo(europe.Generation, "F")
			if err != nil && !errors.Is(err, ErrStaleGeneration) {
				t.Errorf("scroll: %v", err)
				return
			}
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 50; i++ {
			region := []countries.Region{countries.Americas, countries.Europe}[i%2]
			if _, err := e.Apply(ctx, Options{Region: region}); err != nil && !errors.Is(err, ErrSuperseded) {
				t.Errorf("apply: %v", err)
				return
			}
		}
	}()
	wg.Wait()

	assert.Zero(t, scroller.mismatches.Load())
}

func TestOptionsParams(t *testing.T) {
	opts := Options{
		Translation:    "fra",
		Region:         countries.Europe,
		Subregion:      "Western Europe",
		ExcludeCodes:   []string{"FR"},
		PreferredCodes: []string{"DE"},
		AlphaFilter:    true,
		Query:          "ignored",
	}
	p := opts.Params()

	assert.Equal(t, countries.Translation("fra"), p.Translation)
	assert.Equal(t, []string{"FR"}, p.ExcludeCodes)
	assert.True(t, p.AlphaFilter)
	assert.Equal(t, listKey(countries.Glyph, opts), listKey(countries.Glyph, Options{
		Translation:    "fra",
		Region:         countries.Europe,
		Subregion:      "Western Europe",
		ExcludeCodes:   []string{"fr"},
		PreferredCodes: []string{" de"},
		AlphaFilter:    true,
	}))
}
