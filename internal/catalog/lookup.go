package catalog

import (
	"context"
	"fmt"

	"github.com/mattsblocklist/countrypicker/internal/countries"
)

// ResolvedName is a country name in a requested translation. Fallback is set
// when the translation was missing and the common name was used instead.
type ResolvedName struct {
	Name     string `json:"name"`
	Fallback bool   `json:"fallback,omitempty"`
}

// Info combines the single-field lookups for one country.
type Info struct {
	Code        string            `json:"code"`
	CountryName string            `json:"countryName"`
	Currency    string            `json:"currency"`
	CallingCode string            `json:"callingCode"`
	Flag        countries.FlagRef `json:"flag"`
	Fallback    bool              `json:"fallback,omitempty"`
}

// Country returns the raw catalog entry for code.
func (c *Cache) Country(ctx context.Context, variant countries.FlagVariant, code string) (countries.Country, error) {
	cat, err := c.Load(ctx, variant)
	if err != nil {
		return countries.Country{}, err
	}
	country, ok := cat.Get(code)
	if !ok {
		return countries.Country{}, fmt.Errorf("%w: %q", ErrCountryNotFound, code)
	}
	return country, nil
}

// NameOf returns the name of code in translation, falling back to the common
// name when the translation is missing.
func (c *Cache) NameOf(ctx context.Context, variant countries.FlagVariant, code string, translation countries.Translation) (ResolvedName, error) {
	country, err := c.Country(ctx, variant, code)
	if err != nil {
		return ResolvedName{}, err
	}
	name, fallback := country.Name.Resolve(translation)
	return ResolvedName{Name: name, Fallback: fallback}, nil
}

// CallingCodeOf returns the primary calling code of code, or "" if it has none.
func (c *Cache) CallingCodeOf(ctx context.Context, variant countries.FlagVariant, code string) (string, error) {
	country, err := c.Country(ctx, variant, code)
	if err != nil {
		return "", err
	}
	return first(country.CallingCode), nil
}

// CurrencyOf returns the primary currency of code, or "" if it has none.
func (c *Cache) CurrencyOf(ctx context.Context, variant countries.FlagVariant, code string) (string, error) {
	country, err := c.Country(ctx, variant, code)
	if err != nil {
		return "", err
	}
	return first(country.Currency), nil
}

// FlagRefOf returns the flag reference of code in the given variant.
func (c *Cache) FlagRefOf(ctx context.Context, variant countries.FlagVariant, code string) (countries.FlagRef, error) {
	country, err := c.Country(ctx, variant, code)
	if err != nil {
		return countries.FlagRef{}, err
	}
	return country.Flag, nil
}

// InfoOf returns name, primary currency, primary calling code and flag of code.
func (c *Cache) InfoOf(ctx context.Context, variant countries.FlagVariant, code string, translation countries.Translation) (Info, error) {
	country, err := c.Country(ctx, variant, code)
	if err != nil {
		return Info{}, err
	}
	name, fallback := country.Name.Resolve(translation)
	return Info{
		Code:        country.Code,
		CountryName: name,
		Currency:    first(country.Currency),
		CallingCode: first(country.CallingCode),
		Flag:        country.Flag,
		Fallback:    fallback,
	}, nil
}

func first(values []string) string {
	if len(values) == 0 {
		return ""
	}
	return values[0]
}
