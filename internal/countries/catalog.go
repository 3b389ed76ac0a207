package countries

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Catalog is the full dataset for one flag variant, keyed by country code.
// Iteration follows catalog order: ascending code.
type Catalog struct {
	variant FlagVariant
	codes   []string
	byCode  map[string]Country
}

// rawCountry is the on-disk shape of a catalog entry; the code is the key of
// the enclosing object.
type rawCountry struct {
	Name        Name     `json:"name"`
	Region      Region   `json:"region"`
	Subregion   string   `json:"subregion"`
	Currency    []string `json:"currency"`
	CallingCode []string `json:"callingCode"`
	Flag        string   `json:"flag"`
}

// ParseCatalog decodes a catalog document: a JSON object mapping codes to
// country records.
func ParseCatalog(variant FlagVariant, data []byte) (*Catalog, error) {
	var raw map[string]rawCountry
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}
	list := make([]Country, 0, len(raw))
	for code, rc := range raw {
		list = append(list, Country{
			Code:        code,
			Name:        rc.Name,
			Region:      rc.Region,
			Subregion:   rc.Subregion,
			Currency:    rc.Currency,
			CallingCode: rc.CallingCode,
			Flag:        FlagRef{Variant: variant, Value: rc.Flag},
		})
	}
	return NewCatalog(variant, list)
}

// NewCatalog builds a catalog from a list of countries. Codes are upper-cased
// and must be unique.
func NewCatalog(variant FlagVariant, list []Country) (*Catalog, error) {
	c := &Catalog{
		variant: variant,
		codes:   make([]string, 0, len(list)),
		byCode:  make(map[string]Country, len(list)),
	}
	for _, country := range list {
		code := NormalizeCode(country.Code)
		if len(code) != 2 {
			return nil, fmt.Errorf("invalid country code %q", country.Code)
		}
		if _, dup := c.byCode[code]; dup {
			return nil, fmt.Errorf("duplicate country code %q", code)
		}
		country.Code = code
		if country.Flag.Variant == "" {
			country.Flag.Variant = variant
		}
		c.byCode[code] = country
		c.codes = append(c.codes, code)
	}
	sort.Strings(c.codes)
	return c, nil
}

// NormalizeCode upper-cases and trims a country code.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Variant returns the flag variant this catalog was loaded for.
func (c *Catalog) Variant() FlagVariant {
	return c.variant
}

// Len returns the number of countries.
func (c *Catalog) Len() int {
	return len(c.codes)
}

// Codes returns every code in catalog order.
func (c *Catalog) Codes() []string {
	return append([]string(nil), c.codes...)
}

// Get returns the country with the given code.
func (c *Catalog) Get(code string) (Country, bool) {
	country, ok := c.byCode[NormalizeCode(code)]
	return country, ok
}

// Has reports whether code is in the catalog.
func (c *Catalog) Has(code string) bool {
	_, ok := c.byCode[NormalizeCode(code)]
	return ok
}

// All returns every country in catalog order.
func (c *Catalog) All() []Country {
	out := make([]Country, 0, len(c.codes))
	for _, code := range c.codes {
		out = append(out, c.byCode[code])
	}
	return out
}

// Subregions returns the distinct subregions of a region, sorted. An empty
// region returns every subregion.
func (c *Catalog) Subregions(region Region) []string {
	seen := make(map[string]bool)
	var out []string
	for _, country := range c.byCode {
		if region != "" && country.Region != region {
			continue
		}
		if country.Subregion == "" || seen[country.Subregion] {
			continue
		}
		seen[country.Subregion] = true
		out = append(out, country.Subregion)
	}
	sort.Strings(out)
	return out
}
