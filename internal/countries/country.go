// Package countries provides the country data model: the Country entity, its
// translatable name, flag references and the per-variant Catalog.
package countries

import (
	"encoding/json"
	"fmt"
	"strings"
)

// FlagVariant selects which catalog a flag reference comes from.
type FlagVariant string

const (
	// Glyph catalogs carry an emoji lookup key per country (bundled data).
	Glyph FlagVariant = "glyph"
	// Image catalogs carry a remote image locator per country (fetched data).
	Image FlagVariant = "image"
)

// ParseFlagVariant accepts the variant names plus the "emoji" and "flat"
// spellings used by older picker configurations.
func ParseFlagVariant(s string) (FlagVariant, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "glyph", "emoji":
		return Glyph, nil
	case "image", "flat":
		return Image, nil
	}
	return "", fmt.Errorf("unknown flag variant %q", s)
}

// Region is the top-level geographic classification of a country.
type Region string

const (
	Africa    Region = "Africa"
	Americas  Region = "Americas"
	Antarctic Region = "Antarctic"
	Asia      Region = "Asia"
	Europe    Region = "Europe"
	Oceania   Region = "Oceania"
)

// Regions lists every known region in display order.
var Regions = []Region{Africa, Americas, Antarctic, Asia, Europe, Oceania}

// ParseRegion matches s case-insensitively against Regions. An empty s is the
// empty region, which filters nothing.
func ParseRegion(s string) (Region, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", nil
	}
	for _, r := range Regions {
		if strings.EqualFold(s, string(r)) {
			return r, nil
		}
	}
	return "", fmt.Errorf("unknown region %q", s)
}

// FlagRef is either a glyph lookup key or a remote image locator.
type FlagRef struct {
	Variant FlagVariant `json:"variant"`
	Value   string      `json:"value"`
}

// Country is a single catalog entry keyed by its ISO 3166-1 alpha-2 code.
type Country struct {
	Code        string   `json:"code"`
	Name        Name     `json:"name"`
	Region      Region   `json:"region"`
	Subregion   string   `json:"subregion,omitempty"`
	Currency    []string `json:"currency"`
	CallingCode []string `json:"callingCode"`
	Flag        FlagRef  `json:"flag"`
}

// Name is a country name: either a plain string or a set of translations that
// always carries a Common entry.
type Name struct {
	plain     string
	localized map[Translation]string
}

// PlainName returns a name with a single untranslated value.
func PlainName(s string) Name {
	return Name{plain: s}
}

// LocalizedName returns a translated name. The map is copied.
func LocalizedName(m map[Translation]string) Name {
	cp := make(map[Translation]string, len(m))
	for k, v := range m {
		cp[k] = v
	}
	return Name{localized: cp}
}

// IsLocalized reports whether the name carries translations.
func (n Name) IsLocalized() bool {
	return n.localized != nil
}

// Common returns the untranslated form of the name.
func (n Name) Common() string {
	s, _ := n.Resolve(Common)
	return s
}

// Resolve returns the name in translation t. When t is not available the
// Common entry is returned and fallback is true. There is no further
// negotiation: without a Common entry the name is empty.
func (n Name) Resolve(t Translation) (name string, fallback bool) {
	if n.localized == nil {
		return n.plain, t != "" && t != Common
	}
	if s, ok := n.localized[t]; ok && s != "" {
		return s, false
	}
	fallback = t != Common
	return n.localized[Common], fallback
}

// Translations returns every translated value keyed by translation code.
// Plain names are reported under Common.
func (n Name) Translations() map[Translation]string {
	if n.localized == nil {
		return map[Translation]string{Common: n.plain}
	}
	cp := make(map[Translation]string, len(n.localized))
	for k, v := range n.localized {
		cp[k] = v
	}
	return cp
}

// String returns the common name.
func (n Name) String() string {
	return n.Common()
}

// MarshalJSON writes plain names as strings and localized names as objects.
func (n Name) MarshalJSON() ([]byte, error) {
	if n.localized == nil {
		return json.Marshal(n.plain)
	}
	return json.Marshal(n.localized)
}

// UnmarshalJSON accepts either a string or a translation object with a
// "common" key.
func (n *Name) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*n = PlainName(s)
		return nil
	}
	var m map[Translation]string
	if err := json.Unmarshal(data, &m); err != nil {
		return fmt.Errorf("name must be a string or translation object: %w", err)
	}
	if _, ok := m[Common]; !ok {
		return fmt.Errorf("translated name has no %q entry", Common)
	}
	*n = Name{localized: m}
	return nil
}

// Resolved returns a copy of c whose name is plain in translation t, and
// whether the Common fallback was used.
func (c Country) Resolved(t Translation) (Country, bool) {
	name, fallback := c.Name.Resolve(t)
	c.Name = PlainName(name)
	c.Currency = append([]string(nil), c.Currency...)
	c.CallingCode = append([]string(nil), c.CallingCode...)
	return c, fallback
}
