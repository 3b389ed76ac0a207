package catalog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/mattsblocklist/countrypicker/internal/countries"
	"github.com/mattsblocklist/countrypicker/internal/metrics"
)

// Cache memoizes one catalog per flag variant for its own lifetime.
// Concurrent first loads of a variant share a single fetch. Failed loads are
// not memoized, so a later call fetches again.
type Cache struct {
	sources *Sources
	logger  *slog.Logger
	metrics *metrics.Metrics

	mu       sync.RWMutex
	catalogs map[countries.FlagVariant]*countries.Catalog
	group    singleflight.Group
}

// NewCache creates a cache over sources. logger and m may be nil.
func NewCache(sources *Sources, logger *slog.Logger, m *metrics.Metrics) *Cache {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Cache{
		sources:  sources,
		logger:   logger,
		metrics:  m,
		catalogs: make(map[countries.FlagVariant]*countries.Catalog),
	}
}

// Load returns the catalog for variant, fetching it on first use.
// Abandoning ctx returns ctx.Err() to this caller without cancelling a fetch
// other callers are waiting on.
func (c *Cache) Load(ctx context.Context, variant countries.FlagVariant) (*countries.Catalog, error) {
	if cat, ok := c.cached(variant); ok {
		return cat, nil
	}

	ch := c.group.DoChan(string(variant), func() (interface{}, error) {
		return c.fetch(context.WithoutCancel(ctx), variant)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*countries.Catalog), nil
	}
}

// Preload loads every registered variant with at most workers concurrent
// fetches. Failed variants are logged and joined into the returned error;
// the others stay loaded.
func (c *Cache) Preload(ctx context.Context, workers int) error {
	var (
		g    errgroup.Group
		mu   sync.Mutex
		errs []error
	)
	g.SetLimit(max(workers, 1))

	for _, variant := range c.sources.Variants() {
		variant := variant
		g.Go(func() error {
			if _, err := c.Load(ctx, variant); err != nil {
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()
	return errors.Join(errs...)
}

// Reset drops every memoized catalog.
func (c *Cache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.catalogs = make(map[countries.FlagVariant]*countries.Catalog)
}

func (c *Cache) cached(variant countries.FlagVariant) (*countries.Catalog, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	cat, ok := c.catalogs[variant]
	return cat, ok
}

func (c *Cache) fetch(ctx context.Context, variant countries.FlagVariant) (*countries.Catalog, error) {
	if cat, ok := c.cached(variant); ok {
		return cat, nil
	}

	src, ok := c.sources.Get(variant)
	if !ok {
		return nil, fmt.Errorf("%w: no source for %q catalog", ErrCatalogUnavailable, variant)
	}

	cat, err := src.Load(ctx)
	c.metrics.ObserveCatalogLoad(string(variant), err)
	if err != nil {
		c.logger.Warn("catalog load failed", "variant", variant, "source", src.Name(), "error", err)
		return nil, fmt.Errorf("%w: %s catalog: %w", ErrCatalogUnavailable, variant, err)
	}

	c.mu.Lock()
	c.catalogs[variant] = cat
	c.mu.Unlock()

	c.logger.Info("catalog loaded", "variant", variant, "source", src.Name(), "countries", cat.Len())
	return cat, nil
}
