// Package search provides the fuzzy text search over a filtered country list.
package search

import (
	"strings"
	"sync"

	"github.com/mattsblocklist/countrypicker/internal/countries"
	"github.com/mattsblocklist/countrypicker/internal/filter"
	"github.com/mattsblocklist/countrypicker/internal/metrics"
)

// Index caches the searchable form of the last list it was asked about.
// The cache is keyed by the list's content fingerprint, so a new list with
// the same content reuses it and a list with changed content is re-indexed.
// Index is safe for concurrent use.
type Index struct {
	matcher Matcher
	metrics *metrics.Metrics

	mu          sync.Mutex
	fingerprint string
	docs        []document
	built       bool
	rebuilds    int
}

// NewIndex creates an empty index. A nil matcher uses the approximate matcher
// with default options; m may be nil.
func NewIndex(matcher Matcher, m *metrics.Metrics) *Index {
	if matcher == nil {
		matcher = NewApproxMatcher(DefaultOptions())
	}
	return &Index{matcher: matcher, metrics: m}
}

// Search returns the countries of list matching query, best first. An empty
// list yields an empty result; a blank query returns list.Countries itself.
func (ix *Index) Search(query string, list filter.List) []countries.Country {
	if len(list.Countries) == 0 {
		return []countries.Country{}
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return list.Countries
	}

	ix.mu.Lock()
	ix.ensure(list)
	hits := ix.matcher.match(query, ix.docs)
	ix.mu.Unlock()

	ix.metrics.IncrementSearches()

	out := make([]countries.Country, 0, len(hits))
	for _, h := range hits {
		out = append(out, list.Countries[h.pos])
	}
	return out
}

// Rebuilds reports how many times the index has been built.
func (ix *Index) Rebuilds() int {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	return ix.rebuilds
}

// ensure rebuilds the documents when list differs from the indexed content.
// The caller holds ix.mu.
func (ix *Index) ensure(list filter.List) {
	fp := list.Fingerprint
	if fp == "" {
		fp = filter.Fingerprint(list.Countries)
	}
	if ix.built && fp == ix.fingerprint {
		return
	}

	docs := make([]document, len(list.Countries))
	for i, c := range list.Countries {
		fields := make([]string, 0, 2+len(c.CallingCode)+len(c.Currency))
		fields = append(fields, strings.ToLower(c.Name.Common()), strings.ToLower(c.Code))
		for _, cc := range c.CallingCode {
			fields = append(fields, strings.ToLower(cc))
		}
		for _, cur := range c.Currency {
			fields = append(fields, strings.ToLower(cur))
		}
		docs[i] = document{fields: fields}
	}

	ix.docs = docs
	ix.fingerprint = fp
	ix.built = true
	ix.rebuilds++
	ix.metrics.IncrementIndexRebuilds()
}
