package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"

	"github.com/mattsblocklist/countrypicker/internal/catalog"
	"github.com/mattsblocklist/countrypicker/internal/countries"
	"github.com/mattsblocklist/countrypicker/internal/picker"
)

// errBadRequest marks malformed query parameters.
var errBadRequest = errors.New("bad request")

// Handler serves the picker over HTTP. Requests are independent: each one
// applies its options on an engine of its own, and list fingerprints stand
// in for generations between requests.
type Handler struct {
	newEngine func() *picker.Engine
	cache     *catalog.Cache
	defaults  picker.Options
	logger    *slog.Logger

	// normalizers caches one *countries.Normalizer per *countries.Catalog.
	normalizers sync.Map
}

// NewHandler creates a handler. newEngine is called once per list request;
// defaults fill options absent from a request.
func NewHandler(newEngine func() *picker.Engine, cache *catalog.Cache, defaults picker.Options, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Handler{
		newEngine: newEngine,
		cache:     cache,
		defaults:  defaults,
		logger:    logger,
	}
}

// Register mounts the picker endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Route("/v1", func(r chi.Router) {
		r.Get("/countries", h.HandleList)
		r.Get("/countries/scroll", h.HandleScroll)
		r.Get("/countries/{code}", h.HandleInfo)
		r.Get("/countries/{code}/flag", h.HandleFlag)
		r.Get("/letters", h.HandleLetters)
		r.Get("/regions", h.HandleRegions)
	})
}

// HandleList handles GET /v1/countries.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	opts, err := h.options(ctx, r.URL.Query())
	if err != nil {
		writeError(w, err)
		return
	}

	state, err := h.newEngine().Apply(ctx, opts)
	if err != nil {
		h.logFailure(ctx, "apply options", err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

// LettersResponse is the body of GET /v1/letters.
type LettersResponse struct {
	Fingerprint string   `json:"fingerprint"`
	Letters     []string `json:"letters"`
}

// HandleLetters handles GET /v1/letters.
func (h *Handler) HandleLetters(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	opts, err := h.options(ctx, r.URL.Query())
	if err != nil {
		writeError(w, err)
		return
	}
	opts.Query = ""
	opts.SelectedLetter = ""

	state, err := h.newEngine().Apply(ctx, opts)
	if err != nil {
		h.logFailure(ctx, "apply options", err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, LettersResponse{
		Fingerprint: state.Fingerprint,
		Letters:     state.AvailableLetters,
	})
}

// ScrollResponse is the body of GET /v1/countries/scroll.
type ScrollResponse struct {
	Fingerprint string `json:"fingerprint"`
	Letter      string `json:"letter"`
	Index       int    `json:"index"`
}

// HandleScroll handles GET /v1/countries/scroll?letter=&fingerprint=. The list
// is rebuilt from the same parameters as GET /v1/countries; when fingerprint
// is given and the list no longer matches it, the request answers 409.
func (h *Handler) HandleScroll(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()
	opts, err := h.options(ctx, q)
	if err != nil {
		writeError(w, err)
		return
	}
	letter := opts.SelectedLetter
	if letter == "" {
		writeError(w, fmt.Errorf("%w: letter is required", errBadRequest))
		return
	}
	opts.SelectedLetter = ""

	engine := h.newEngine()
	state, err := engine.Apply(ctx, opts)
	if err != nil {
		h.logFailure(ctx, "apply options", err)
		writeError(w, err)
		return
	}
	if fp := q.Get("fingerprint"); fp != "" && fp != state.Fingerprint {
		writeError(w, fmt.Errorf("%w: list changed since %s", picker.ErrStaleGeneration, fp))
		return
	}

	index, err := engine.ScrollTo(state.Generation, letter)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ScrollResponse{Fingerprint: state.Fingerprint, Letter: letter, Index: index})
}

// HandleInfo handles GET /v1/countries/{code}. The code may also be a country
// name in any known translation.
func (h *Handler) HandleInfo(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()
	variant, err := h.variant(q)
	if err != nil {
		writeError(w, err)
		return
	}
	code, err := h.resolveCode(ctx, variant, chi.URLParam(r, "code"))
	if err != nil {
		writeError(w, err)
		return
	}

	translation := h.defaults.Translation
	if q.Has("translation") {
		translation = countries.ParseTranslation(q.Get("translation"))
	}
	info, err := h.cache.InfoOf(ctx, variant, code, translation)
	if err != nil {
		h.logFailure(ctx, "country info", err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

// HandleFlag handles GET /v1/countries/{code}/flag.
func (h *Handler) HandleFlag(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	variant, err := h.variant(r.URL.Query())
	if err != nil {
		writeError(w, err)
		return
	}
	code, err := h.resolveCode(ctx, variant, chi.URLParam(r, "code"))
	if err != nil {
		writeError(w, err)
		return
	}

	flag, err := h.cache.FlagRefOf(ctx, variant, code)
	if err != nil {
		h.logFailure(ctx, "country flag", err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, flag)
}

// RegionsResponse is the body of GET /v1/regions.
type RegionsResponse struct {
	Regions      []countries.Region            `json:"regions"`
	Subregions   map[countries.Region][]string `json:"subregions"`
	Translations []countries.Translation       `json:"translations"`
}

// HandleRegions handles GET /v1/regions.
func (h *Handler) HandleRegions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	variant, err := h.variant(r.URL.Query())
	if err != nil {
		writeError(w, err)
		return
	}
	cat, err := h.cache.Load(ctx, variant)
	if err != nil {
		h.logFailure(ctx, "load catalog", err)
		writeError(w, err)
		return
	}

	resp := RegionsResponse{
		Regions:      countries.Regions,
		Subregions:   make(map[countries.Region][]string, len(countries.Regions)),
		Translations: countries.Translations(),
	}
	for _, region := range countries.Regions {
		resp.Subregions[region] = cat.Subregions(region)
	}
	writeJSON(w, http.StatusOK, resp)
}

// options overlays the query parameters on the handler defaults.
func (h *Handler) options(ctx context.Context, q url.Values) (picker.Options, error) {
	opts := h.defaults
	variant, err := h.variant(q)
	if err != nil {
		return opts, err
	}
	opts.FlagVariant = variant

	if q.Has("translation") {
		opts.Translation = countries.ParseTranslation(q.Get("translation"))
	}
	if q.Has("region") {
		region, err := countries.ParseRegion(q.Get("region"))
		if err != nil {
			return opts, fmt.Errorf("%w: %w", errBadRequest, err)
		}
		opts.Region = region
	}
	if q.Has("subregion") {
		opts.Subregion = q.Get("subregion")
	}
	if q.Has("alpha") {
		alpha, err := strconv.ParseBool(q.Get("alpha"))
		if err != nil {
			return opts, fmt.Errorf("%w: invalid alpha %q", errBadRequest, q.Get("alpha"))
		}
		opts.AlphaFilter = alpha
	}
	opts.Query = q.Get("q")
	opts.SelectedLetter = q.Get("letter")

	lists := []struct {
		param string
		dst   *[]string
	}{
		{"include", &opts.IncludeCodes},
		{"exclude", &opts.ExcludeCodes},
		{"preferred", &opts.PreferredCodes},
	}
	for _, l := range lists {
		if !q.Has(l.param) {
			continue
		}
		codes, err := h.resolveCodes(ctx, variant, splitList(q[l.param]))
		if err != nil {
			return opts, err
		}
		*l.dst = codes
	}
	return opts, nil
}

func (h *Handler) variant(q url.Values) (countries.FlagVariant, error) {
	if !q.Has("variant") {
		if h.defaults.FlagVariant == "" {
			return countries.Glyph, nil
		}
		return h.defaults.FlagVariant, nil
	}
	variant, err := countries.ParseFlagVariant(q.Get("variant"))
	if err != nil {
		return "", fmt.Errorf("%w: %w", errBadRequest, err)
	}
	return variant, nil
}

func (h *Handler) normalizer(ctx context.Context, variant countries.FlagVariant) (*countries.Normalizer, error) {
	cat, err := h.cache.Load(ctx, variant)
	if err != nil {
		return nil, err
	}
	if n, ok := h.normalizers.Load(cat); ok {
		return n.(*countries.Normalizer), nil
	}
	n, _ := h.normalizers.LoadOrStore(cat, countries.NewNormalizer(cat))
	return n.(*countries.Normalizer), nil
}

func (h *Handler) resolveCode(ctx context.Context, variant countries.FlagVariant, input string) (string, error) {
	n, err := h.normalizer(ctx, variant)
	if err != nil {
		return "", err
	}
	if code, ok := n.Normalize(input); ok {
		return code, nil
	}
	return countries.NormalizeCode(input), nil
}

func (h *Handler) resolveCodes(ctx context.Context, variant countries.FlagVariant, inputs []string) ([]string, error) {
	if len(inputs) == 0 {
		return nil, nil
	}
	n, err := h.normalizer(ctx, variant)
	if err != nil {
		return nil, err
	}
	return n.ResolveCodes(inputs), nil
}

func (h *Handler) logFailure(ctx context.Context, op string, err error) {
	if errors.Is(err, picker.ErrSuperseded) || errors.Is(err, context.Canceled) {
		h.logger.DebugContext(ctx, op+" abandoned", "error", err)
		return
	}
	h.logger.WarnContext(ctx, op+" failed", "error", err)
}

// splitList accepts both repeated and comma separated values.
func splitList(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
