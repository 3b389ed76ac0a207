// Package picker ties the catalog, filter, search and alpha packages into the
// state engine behind a country picker.
package picker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/mattsblocklist/countrypicker/internal/alpha"
	"github.com/mattsblocklist/countrypicker/internal/catalog"
	"github.com/mattsblocklist/countrypicker/internal/countries"
	"github.com/mattsblocklist/countrypicker/internal/filter"
	"github.com/mattsblocklist/countrypicker/internal/metrics"
	"github.com/mattsblocklist/countrypicker/internal/search"
)

var (
	// ErrSuperseded is returned by Apply when a newer request was issued
	// before this one finished. Its result was discarded.
	ErrSuperseded = errors.New("request superseded")
	// ErrStaleGeneration is returned for navigation against a list that is no
	// longer current.
	ErrStaleGeneration = errors.New("stale list generation")
	// ErrNavigationSuppressed is returned for letter navigation while a text
	// query narrows the list.
	ErrNavigationSuppressed = errors.New("letter navigation suppressed while searching")
)

// Scroller moves the list viewport. The engine never scrolls itself.
//
// ScrollToIndex is called with the engine locked, so a scroll is always
// delivered against the list that is current at that moment. It must not
// call back into the Engine.
type Scroller interface {
	ScrollToIndex(index int, animated bool)
}

// Options is one picker configuration as set by the UI.
type Options struct {
	FlagVariant    countries.FlagVariant `json:"flagVariant"`
	Translation    countries.Translation `json:"translation"`
	Region         countries.Region      `json:"region,omitempty"`
	Subregion      string                `json:"subregion,omitempty"`
	IncludeCodes   []string              `json:"includeCodes,omitempty"`
	ExcludeCodes   []string              `json:"excludeCodes,omitempty"`
	PreferredCodes []string              `json:"preferredCodes,omitempty"`
	AlphaFilter    bool                  `json:"alphaFilter,omitempty"`
	Query          string                `json:"query,omitempty"`
	SelectedLetter string                `json:"selectedLetter,omitempty"`
}

// Params returns the filter parameters of o.
func (o Options) Params() filter.Params {
	return filter.Params{
		Translation:    o.Translation,
		Region:         o.Region,
		Subregion:      o.Subregion,
		IncludeCodes:   o.IncludeCodes,
		ExcludeCodes:   o.ExcludeCodes,
		PreferredCodes: o.PreferredCodes,
		AlphaFilter:    o.AlphaFilter,
	}
}

// State is what the UI renders after an Apply.
type State struct {
	// Generation identifies the filtered list the state was computed from.
	Generation uint64 `json:"generation"`

	// Fingerprint identifies the content of that list across engines.
	Fingerprint string `json:"fingerprint"`

	VisibleList []countries.Country `json:"visibleList"`

	// AvailableLetters is empty while a query is active.
	AvailableLetters []string `json:"availableLetters"`

	// ScrollTargetIndex is set when the state asks for a scroll.
	ScrollTargetIndex *int `json:"scrollTargetIndex,omitempty"`

	// Fallback is set when some names used the common name because the
	// requested translation was missing.
	Fallback bool `json:"fallback"`
}

// current is the applied list of the engine.
type current struct {
	generation uint64
	key        string
	catalog    *countries.Catalog
	list       filter.List
	index      alpha.Index
	query      string
	anchored   bool
}

// Engine applies picker options. Requests carry increasing sequence numbers:
// a new Apply cancels the one in flight, and only the latest request may
// change state. Engine is safe for concurrent use.
type Engine struct {
	cache    *catalog.Cache
	search   *search.Index
	scroller Scroller
	logger   *slog.Logger
	metrics  *metrics.Metrics

	mu         sync.Mutex
	seq        uint64
	cancel     context.CancelFunc
	generation uint64
	cur        *current
}

// NewEngine creates an engine. A nil index uses the default approximate
// search; scroller, logger and m may be nil.
func NewEngine(cache *catalog.Cache, index *search.Index, scroller Scroller, logger *slog.Logger, m *metrics.Metrics) *Engine {
	if index == nil {
		index = search.NewIndex(nil, m)
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Engine{
		cache:    cache,
		search:   index,
		scroller: scroller,
		logger:   logger,
		metrics:  m,
	}
}

// Apply loads the catalog for opts, rebuilds the filtered list if any
// list-shaping option changed, and evaluates the query and selected letter.
//
// A request overtaken by a newer Apply returns ErrSuperseded; one whose ctx
// ends returns the context error. Neither changes the engine state. A
// selected letter absent from the list returns alpha.ErrInvalidLetterTarget,
// also without changing state.
func (e *Engine) Apply(ctx context.Context, opts Options) (State, error) {
	opts.Query = strings.TrimSpace(opts.Query)

	e.mu.Lock()
	e.seq++
	seq := e.seq
	if e.cancel != nil {
		e.cancel()
	}
	ctx, cancel := context.WithCancel(ctx)
	e.cancel = cancel
	e.mu.Unlock()
	defer cancel()

	variant := opts.FlagVariant
	if variant == "" {
		variant = countries.Glyph
	}
	cat, err := e.cache.Load(ctx, variant)

	e.mu.Lock()
	if seq != e.seq {
		e.mu.Unlock()
		e.metrics.IncrementSuperseded()
		e.logger.Debug("discarding superseded request", "seq", seq, "latest", e.seq)
		return State{}, ErrSuperseded
	}
	if err != nil {
		e.mu.Unlock()
		return State{}, err
	}
	if err := ctx.Err(); err != nil {
		e.mu.Unlock()
		return State{}, err
	}

	next := e.next(cat, variant, opts)
	state, target, animated, err := e.evaluate(next, opts)
	if err != nil {
		e.mu.Unlock()
		return State{}, err
	}
	if next.generation != e.generation {
		e.generation = next.generation
		e.logger.Debug("applied list",
			"generation", next.generation,
			"variant", variant,
			"translation", next.list.Translation,
			"countries", next.list.Len())
	}
	e.cur = next
	if target >= 0 && e.scroller != nil {
		e.scroller.ScrollToIndex(target, animated)
	}
	e.mu.Unlock()
	return state, nil
}

// next returns the current list when nothing list-shaping changed, or a new
// generation built from cat. The caller holds e.mu.
func (e *Engine) next(cat *countries.Catalog, variant countries.FlagVariant, opts Options) *current {
	key := listKey(variant, opts)
	if e.cur != nil && e.cur.key == key && e.cur.catalog == cat {
		cur := *e.cur
		return &cur
	}
	list := filter.Build(cat, opts.Params())
	return &current{
		generation: e.generation + 1,
		key:        key,
		catalog:    cat,
		list:       list,
		index:      alpha.Build(list),
	}
}

// evaluate computes the state of next for the query and selected letter, and
// the scroll request to forward, if any (target < 0 for none). It records the
// query and anchor on next. The caller holds e.mu.
func (e *Engine) evaluate(next *current, opts Options) (State, int, bool, error) {
	state := State{
		Generation:  next.generation,
		Fingerprint: next.list.Fingerprint,
		Fallback:    next.list.Fallbacks > 0,
	}

	next.query = opts.Query
	if opts.Query != "" {
		state.VisibleList = e.search.Search(opts.Query, next.list)
		state.AvailableLetters = []string{}
		return state, -1, false, nil
	}

	state.VisibleList = next.list.Countries
	if state.VisibleList == nil {
		state.VisibleList = []countries.Country{}
	}
	state.AvailableLetters = next.index.Letters
	if state.AvailableLetters == nil {
		state.AvailableLetters = []string{}
	}

	if opts.SelectedLetter != "" {
		pos, err := next.index.ScrollTarget(opts.SelectedLetter)
		if err != nil {
			return State{}, -1, false, err
		}
		next.anchored = true
		state.ScrollTargetIndex = &pos
		return state, pos, true, nil
	}

	if !next.anchored {
		if _, pos, ok := next.index.Initial(); ok {
			next.anchored = true
			state.ScrollTargetIndex = &pos
			return state, pos, false, nil
		}
	}
	return state, -1, false, nil
}

// ScrollTo resolves letter against the list of generation and forwards the
// position to the scroller as an animated scroll.
func (e *Engine) ScrollTo(generation uint64, letter string) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	cur := e.cur
	if cur == nil || cur.generation != generation {
		return 0, fmt.Errorf("%w: %d", ErrStaleGeneration, generation)
	}
	if cur.query != "" {
		return 0, ErrNavigationSuppressed
	}
	pos, err := cur.index.ScrollTarget(letter)
	if err != nil {
		return 0, err
	}
	if e.scroller != nil {
		e.scroller.ScrollToIndex(pos, true)
	}
	return pos, nil
}

// Generation returns the generation of the current list, 0 before the first
// successful Apply.
func (e *Engine) Generation() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.generation
}

func listKey(variant countries.FlagVariant, opts Options) string {
	translation := opts.Translation
	if translation == "" {
		translation = countries.Common
	}
	return strings.Join([]string{
		string(variant),
		string(translation),
		string(opts.Region),
		opts.Subregion,
		joinCodes(opts.IncludeCodes),
		joinCodes(opts.ExcludeCodes),
		joinCodes(opts.PreferredCodes),
		fmt.Sprint(opts.AlphaFilter),
	}, "|")
}

func joinCodes(codes []string) string {
	out := make([]string, len(codes))
	for i, c := range codes {
		out[i] = countries.NormalizeCode(c)
	}
	return strings.Join(out, ",")
}
