package search

import (
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
	"github.com/sahilm/fuzzy"
)

// Options tune the approximate matcher. Scores run from 0 (perfect) to 1
// (no match).
type Options struct {
	// Threshold is the highest score still accepted as a match.
	Threshold float64 `yaml:"threshold" json:"threshold"`
	// Distance is how far from the start of a field a match may sit before
	// its location alone pushes the score to 1.
	Distance int `yaml:"distance" json:"distance"`
	// MinMatchCharLength is the shortest query that can match.
	MinMatchCharLength int `yaml:"min_match_char_length" json:"min_match_char_length"`
}

// DefaultOptions admits moderately fuzzy matches near the start of a field.
func DefaultOptions() Options {
	return Options{
		Threshold:          0.3,
		Distance:           100,
		MinMatchCharLength: 1,
	}
}

// Mode names a matching strategy.
type Mode string

const (
	// ModeApproximate ranks by edit distance plus match location.
	ModeApproximate Mode = "approximate"
	// ModeSubsequence ranks in-order character subsequences, fzf style.
	ModeSubsequence Mode = "subsequence"
)

// ParseMode accepts "approximate" (also "fuzzy" or empty) and "subsequence".
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "fuzzy", "approximate":
		return ModeApproximate, nil
	case "subsequence":
		return ModeSubsequence, nil
	}
	return "", fmt.Errorf("unknown search mode %q", s)
}

// NewMatcher returns the matcher for mode.
func NewMatcher(mode Mode, opts Options) Matcher {
	if mode == ModeSubsequence {
		return SubsequenceMatcher{}
	}
	return NewApproxMatcher(opts)
}

// document holds the lower-cased searchable fields of one list entry.
type document struct {
	fields []string
}

// hit is a matched document position and its score; lower scores rank first.
type hit struct {
	pos   int
	score float64
}

// Matcher ranks documents against a query. Implementations return hits sorted
// by score, ties in document order.
type Matcher interface {
	match(query string, docs []document) []hit
}

// ApproxMatcher finds the query inside each field allowing a number of edits
// proportional to its length, and penalizes matches far from the start.
type ApproxMatcher struct {
	opts Options
}

// NewApproxMatcher creates an approximate matcher. Negative values and a zero
// MinMatchCharLength are replaced by the defaults. A zero Threshold accepts
// exact matches only.
func NewApproxMatcher(opts Options) *ApproxMatcher {
	def := DefaultOptions()
	if opts.Threshold < 0 {
		opts.Threshold = def.Threshold
	}
	if opts.MinMatchCharLength <= 0 {
		opts.MinMatchCharLength = def.MinMatchCharLength
	}
	if opts.Distance < 0 {
		opts.Distance = def.Distance
	}
	return &ApproxMatcher{opts: opts}
}

func (m *ApproxMatcher) match(query string, docs []document) []hit {
	pattern := strings.ToLower(query)
	if utf8.RuneCountInString(pattern) < m.opts.MinMatchCharLength {
		return nil
	}

	var hits []hit
	for pos, doc := range docs {
		best, matched := 1.0, false
		for _, field := range doc.fields {
			s, ok := m.score(pattern, field)
			if ok && (!matched || s < best) {
				best, matched = s, true
			}
		}
		if matched {
			hits = append(hits, hit{pos: pos, score: best})
		}
	}
	sortHits(hits)
	return hits
}

// score returns the best score of pattern anywhere in text, and whether it
// is within the threshold.
func (m *ApproxMatcher) score(pattern, text string) (float64, bool) {
	if text == "" {
		return 1, false
	}
	if pattern == text {
		return 0, true
	}

	best := 1.0
	if i := strings.Index(text, pattern); i >= 0 {
		best = m.proximity(utf8.RuneCountInString(text[:i]))
		if best == 0 {
			return 0, true
		}
	}

	p := []rune(pattern)
	t := []rune(text)
	plen := len(p)
	maxErrors := int(m.opts.Threshold * float64(plen))
	if maxErrors > 0 {
		for start := 0; start < len(t); start++ {
			prox := m.proximity(start)
			if prox >= best || prox > m.opts.Threshold {
				break
			}
			minLen := max(1, plen-maxErrors)
			maxLen := min(plen+maxErrors, len(t)-start)
			for l := minLen; l <= maxLen; l++ {
				d := levenshtein.ComputeDistance(pattern, string(t[start:start+l]))
				if d > maxErrors {
					continue
				}
				if s := float64(d)/float64(plen) + prox; s < best {
					best = s
				}
			}
		}
	}

	return best, best <= m.opts.Threshold
}

// proximity is the location penalty of a match starting at rune offset loc.
func (m *ApproxMatcher) proximity(loc int) float64 {
	if m.opts.Distance == 0 {
		if loc == 0 {
			return 0
		}
		return 1
	}
	return float64(loc) / float64(m.opts.Distance)
}

// SubsequenceMatcher matches fields containing the query characters in order,
// ranked by github.com/sahilm/fuzzy. It has no threshold.
type SubsequenceMatcher struct{}

// fieldSource flattens document fields for fuzzy.FindFrom.
type fieldSource struct {
	values []string
	owners []int
}

func (s fieldSource) String(i int) string {
	return s.values[i]
}

func (s fieldSource) Len() int {
	return len(s.values)
}

func (SubsequenceMatcher) match(query string, docs []document) []hit {
	var src fieldSource
	for pos, doc := range docs {
		for _, f := range doc.fields {
			src.values = append(src.values, f)
			src.owners = append(src.owners, pos)
		}
	}

	best := make(map[int]int)
	for _, match := range fuzzy.FindFrom(strings.ToLower(query), src) {
		owner := src.owners[match.Index]
		if s, ok := best[owner]; !ok || match.Score > s {
			best[owner] = match.Score
		}
	}

	hits := make([]hit, 0, len(best))
	for pos, s := range best {
		hits = append(hits, hit{pos: pos, score: -float64(s)})
	}
	sortHits(hits)
	return hits
}

func sortHits(hits []hit) {
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].score != hits[j].score {
			return hits[i].score < hits[j].score
		}
		return hits[i].pos < hits[j].pos
	})
}
