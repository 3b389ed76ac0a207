package countries

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Normalizer resolves free-form country names or codes to catalog codes.
type Normalizer struct {
	nameToCode map[string]string
	catalog    *Catalog
}

// NewNormalizer creates a normalizer over every translation of every name in
// the catalog.
func NewNormalizer(c *Catalog) *Normalizer {
	n := &Normalizer{
		nameToCode: make(map[string]string),
		catalog:    c,
	}

	// Common names win over translations that collide with them.
	for _, code := range c.codes {
		for t, name := range c.byCode[code].Name.Translations() {
			if t == Common {
				continue
			}
			normalized := normalizeString(name)
			if _, taken := n.nameToCode[normalized]; !taken {
				n.nameToCode[normalized] = code
			}
		}
	}
	for _, code := range c.codes {
		n.nameToCode[normalizeString(c.byCode[code].Name.Common())] = code
	}

	// Also add codes as self-referencing
	for _, code := range c.codes {
		n.nameToCode[strings.ToLower(code)] = code
	}

	return n
}

// Normalize converts a country name or code to its catalog code.
func (n *Normalizer) Normalize(input string) (string, bool) {
	normalized := normalizeString(input)
	if code, ok := n.nameToCode[normalized]; ok {
		return code, true
	}

	// Try uppercase as-is (might be a code already)
	upper := NormalizeCode(input)
	if len(upper) == 2 && n.catalog.Has(upper) {
		return upper, true
	}

	return "", false
}

// NormalizeAll resolves every input, returning the codes found in input order
// and the inputs that matched nothing. Duplicates are collapsed.
func (n *Normalizer) NormalizeAll(inputs []string) (codes, unknown []string) {
	seen := make(map[string]bool)
	for _, in := range inputs {
		if strings.TrimSpace(in) == "" {
			continue
		}
		code, ok := n.Normalize(in)
		if !ok {
			unknown = append(unknown, in)
			continue
		}
		if !seen[code] {
			seen[code] = true
			codes = append(codes, code)
		}
	}
	return codes, unknown
}

// ResolveCodes maps names or codes to catalog codes for use as filter code
// lists. Inputs matching nothing are kept as upper-cased codes, so a filter
// still sees them as unknown codes rather than an empty list.
func (n *Normalizer) ResolveCodes(inputs []string) []string {
	var out []string
	for _, in := range inputs {
		if strings.TrimSpace(in) == "" {
			continue
		}
		if code, ok := n.Normalize(in); ok {
			out = append(out, code)
			continue
		}
		out = append(out, NormalizeCode(in))
	}
	return out
}

// GetName returns the common name for a country code, or the code itself.
func (n *Normalizer) GetName(code string) string {
	if c, ok := n.catalog.Get(code); ok {
		return c.Name.Common()
	}
	return code
}

// IsValidCode checks if a code is present in the catalog.
func (n *Normalizer) IsValidCode(code string) bool {
	return n.catalog.Has(code)
}

// normalizeString normalizes a string for comparison.
func normalizeString(s string) string {
	// Normalize unicode
	s = norm.NFKD.String(s)

	// Remove diacritics and convert to lowercase
	var result strings.Builder
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsNumber(r) || unicode.IsSpace(r) {
			if unicode.IsLetter(r) {
				result.WriteRune(unicode.ToLower(r))
			} else {
				result.WriteRune(r)
			}
		}
	}

	// Collapse whitespace
	return strings.Join(strings.Fields(result.String()), " ")
}
