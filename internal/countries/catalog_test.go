package countries

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testCatalogJSON = `{
  "FR": {"currency": ["EUR"], "callingCode": ["33"], "region": "Europe", "subregion": "Western Europe", "flag": "flag-fr", "name": {"common": "France", "deu": "Frankreich"}},
  "DE": {"currency": ["EUR"], "callingCode": ["49"], "region": "Europe", "subregion": "Western Europe", "flag": "flag-de", "name": {"common": "Germany", "deu": "Deutschland"}},
  "US": {"currency": ["USD"], "callingCode": ["1"], "region": "Americas", "subregion": "North America", "flag": "flag-us", "name": "United States"}
}`

func TestParseCatalog(t *testing.T) {
	cat, err := ParseCatalog(Glyph, []byte(testCatalogJSON))
	require.NoError(t, err)

	assert.Equal(t, Glyph, cat.Variant())
	assert.Equal(t, 3, cat.Len())
	assert.Equal(t, []string{"DE", "FR", "US"}, cat.Codes())

	fr, ok := cat.Get("fr")
	require.True(t, ok)
	assert.Equal(t, "FR", fr.Code)
	assert.Equal(t, FlagRef{Variant: Glyph, Value: "flag-fr"}, fr.Flag)
	assert.Equal(t, []string{"33"}, fr.CallingCode)

	us, ok := cat.Get("US")
	require.True(t, ok)
	assert.False(t, us.Name.IsLocalized())

	_, ok = cat.Get("JP")
	assert.False(t, ok)
}

func TestParseCatalogRejectsBadData(t *testing.T) {
	_, err := ParseCatalog(Glyph, []byte(`[]`))
	assert.Error(t, err)

	_, err = ParseCatalog(Glyph, []byte(`{"FRA": {"name": "France"}}`))
	assert.Error(t, err)

	_, err = ParseCatalog(Glyph, []byte(`{"fr": {"name": "France"}, "FR": {"name": "France"}}`))
	assert.ErrorContains(t, err, "duplicate")
}

func TestCatalogCodesUnique(t *testing.T) {
	cat, err := ParseCatalog(Glyph, []byte(testCatalogJSON))
	require.NoError(t, err)

	seen := make(map[string]bool)
	for _, c := range cat.All() {
		assert.False(t, seen[c.Code], "duplicate %s", c.Code)
		seen[c.Code] = true
	}
}

func TestCatalogSubregions(t *testing.T) {
	cat, err := ParseCatalog(Glyph, []byte(testCatalogJSON))
	require.NoError(t, err)

	assert.Equal(t, []string{"Western Europe"}, cat.Subregions(Europe))
	assert.Equal(t, []string{"North America", "Western Europe"}, cat.Subregions(""))
}
