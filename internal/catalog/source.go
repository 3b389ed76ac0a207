// Package catalog loads, memoizes and queries country catalogs, one per flag
// variant.
package catalog

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"sort"

	"github.com/mattsblocklist/countrypicker/internal/countries"
)

// DefaultRemoteURL serves the image-flag catalog as a single JSON document.
const DefaultRemoteURL = "https://xcarpentier.github.io/react-native-country-picker-modal/countries/"

//go:embed data/countries-emoji.json
var bundled embed.FS

const bundledPath = "data/countries-emoji.json"

// Source is the interface for all catalog providers.
type Source interface {
	// Name returns a human-readable name for logs.
	Name() string

	// Variant returns the flag variant this source provides.
	Variant() countries.FlagVariant

	// Load reads and parses the catalog.
	Load(ctx context.Context) (*countries.Catalog, error)
}

// FSSource reads a catalog document from a file system.
type FSSource struct {
	fsys    fs.FS
	path    string
	variant countries.FlagVariant
}

// NewBundledSource returns the glyph catalog compiled into the binary.
func NewBundledSource() *FSSource {
	return NewFSSource(bundled, bundledPath, countries.Glyph)
}

// NewFSSource creates a source reading path from fsys.
func NewFSSource(fsys fs.FS, path string, variant countries.FlagVariant) *FSSource {
	return &FSSource{fsys: fsys, path: path, variant: variant}
}

// Name returns the source name.
func (s *FSSource) Name() string {
	return "bundled:" + s.path
}

// Variant returns the flag variant.
func (s *FSSource) Variant() countries.FlagVariant {
	return s.variant
}

// Load reads the catalog file. The context is only checked before reading.
func (s *FSSource) Load(ctx context.Context) (*countries.Catalog, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := fs.ReadFile(s.fsys, s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read bundled catalog: %w", err)
	}
	return countries.ParseCatalog(s.variant, data)
}

// Sources holds one catalog source per flag variant.
type Sources struct {
	sources map[countries.FlagVariant]Source
}

// NewSources creates an empty source registry.
func NewSources() *Sources {
	return &Sources{
		sources: make(map[countries.FlagVariant]Source),
	}
}

// Register adds a source, replacing any source for the same variant.
func (r *Sources) Register(s Source) {
	r.sources[s.Variant()] = s
}

// Get retrieves the source for a variant.
func (r *Sources) Get(variant countries.FlagVariant) (Source, bool) {
	s, ok := r.sources[variant]
	return s, ok
}

// Variants returns the registered flag variants, sorted.
func (r *Sources) Variants() []countries.FlagVariant {
	variants := make([]countries.FlagVariant, 0, len(r.sources))
	for v := range r.sources {
		variants = append(variants, v)
	}
	sort.Slice(variants, func(i, j int) bool { return variants[i] < variants[j] })
	return variants
}

// DefaultSources creates a registry with the bundled glyph catalog and the
// remote image catalog at remoteURL (DefaultRemoteURL when empty).
func DefaultSources(client HTTPClient, remoteURL string) *Sources {
	r := NewSources()
	r.Register(NewBundledSource())
	r.Register(NewRemoteSource(remoteURL, client))
	return r
}
