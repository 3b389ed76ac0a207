// Package filter turns a raw catalog into the ordered, translated and filtered
// country list a picker displays.
package filter

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"sort"
	"strings"

	"github.com/mattsblocklist/countrypicker/internal/countries"
)

// Params selects and orders the countries of a list.
type Params struct {
	Translation countries.Translation
	Region      countries.Region
	Subregion   string

	// IncludeCodes restricts the list to these codes when non-empty.
	IncludeCodes []string
	// ExcludeCodes removes these codes when non-empty.
	ExcludeCodes []string
	// PreferredCodes are listed first, in this order, unless AlphaFilter is set.
	PreferredCodes []string

	// AlphaFilter forces the full locale sort, so that letter navigation over
	// the list is meaningful. It disables preferred ordering.
	AlphaFilter bool
}

// List is a filtered country list. Every country's name is plain, resolved in
// Translation.
type List struct {
	Countries   []countries.Country
	Translation countries.Translation

	// Fingerprint identifies the searchable content of the list.
	Fingerprint string

	// Fallbacks counts names that used the common name because the requested
	// translation was missing.
	Fallbacks int
}

// Len returns the number of countries.
func (l List) Len() int {
	return len(l.Countries)
}

// Codes returns the country codes in list order.
func (l List) Codes() []string {
	codes := make([]string, len(l.Countries))
	for i, c := range l.Countries {
		codes[i] = c.Code
	}
	return codes
}

// Build produces the list for p. Predicates apply in a fixed order: region,
// subregion, inclusion, exclusion. Unknown codes in any code list are ignored.
func Build(cat *countries.Catalog, p Params) List {
	translation := p.Translation
	if translation == "" {
		translation = countries.Common
	}

	include := codeSet(p.IncludeCodes)
	exclude := codeSet(p.ExcludeCodes)
	keep := func(c countries.Country) bool {
		if p.Region != "" && c.Region != p.Region {
			return false
		}
		if p.Subregion != "" && c.Subregion != p.Subregion {
			return false
		}
		if len(include) > 0 && !include[c.Code] {
			return false
		}
		if len(exclude) > 0 && exclude[c.Code] {
			return false
		}
		return true
	}

	preferred := preferredOrder(cat, p.PreferredCodes)
	preferredMode := len(preferred) > 0 && !p.AlphaFilter

	order := cat.Codes()
	if preferredMode {
		rest := make([]string, 0, len(order))
		taken := codeSet(preferred)
		for _, code := range order {
			if !taken[code] {
				rest = append(rest, code)
			}
		}
		order = append(preferred, rest...)
	}

	list := List{Translation: translation}
	for _, code := range order {
		raw, _ := cat.Get(code)
		c, fallback := raw.Resolved(translation)
		if !keep(c) {
			continue
		}
		if fallback {
			list.Fallbacks++
		}
		list.Countries = append(list.Countries, c)
	}

	if !preferredMode {
		collator := translation.Collator()
		sort.SliceStable(list.Countries, func(i, j int) bool {
			return collator.CompareString(list.Countries[i].Name.Common(), list.Countries[j].Name.Common()) < 0
		})
	}

	list.Fingerprint = Fingerprint(list.Countries)
	return list
}

// preferredOrder returns the preferred codes present in the catalog, in
// caller order, without duplicates.
func preferredOrder(cat *countries.Catalog, codes []string) []string {
	seen := make(map[string]bool, len(codes))
	out := make([]string, 0, len(codes))
	for _, code := range codes {
		code = countries.NormalizeCode(code)
		if seen[code] || !cat.Has(code) {
			continue
		}
		seen[code] = true
		out = append(out, code)
	}
	return out
}

func codeSet(codes []string) map[string]bool {
	if len(codes) == 0 {
		return nil
	}
	set := make(map[string]bool, len(codes))
	for _, code := range codes {
		set[countries.NormalizeCode(code)] = true
	}
	return set
}

// Fingerprint hashes the length of list and every searchable field of its
// countries in order. Lists with equal content share a fingerprint.
func Fingerprint(list []countries.Country) string {
	h := sha256.New()
	var n [8]byte
	binary.BigEndian.PutUint64(n[:], uint64(len(list)))
	h.Write(n[:])
	for _, c := range list {
		h.Write([]byte(c.Code))
		h.Write([]byte{0})
		h.Write([]byte(c.Name.Common()))
		h.Write([]byte{0})
		h.Write([]byte(strings.Join(c.CallingCode, ",")))
		h.Write([]byte{0})
		h.Write([]byte(strings.Join(c.Currency, ",")))
		h.Write([]byte{0x1e})
	}
	return hex.EncodeToString(h.Sum(nil))
}
