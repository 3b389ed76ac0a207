package countries

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizer(t *testing.T) {
	cat, err := ParseCatalog(Glyph, []byte(testCatalogJSON))
	require.NoError(t, err)
	n := NewNormalizer(cat)

	tests := []struct {
		input  string
		want   string
		wantOK bool
	}{
		{"France", "FR", true},
		{"  france ", "FR", true},
		{"Frankreich", "FR", true},
		{"deutschland", "DE", true},
		{"de", "DE", true},
		{"US", "US", true},
		{"United  States", "US", true},
		{"Atlantis", "", false},
		{"JP", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := n.Normalize(tt.input)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalizeAll(t *testing.T) {
	cat, err := ParseCatalog(Glyph, []byte(testCatalogJSON))
	require.NoError(t, err)
	n := NewNormalizer(cat)

	codes, unknown := n.NormalizeAll([]string{"us", "France", "", "fr", "Narnia"})
	assert.Equal(t, []string{"US", "FR"}, codes)
	assert.Equal(t, []string{"Narnia"}, unknown)

	assert.Equal(t, "Germany", n.GetName("de"))
	assert.Equal(t, "XX", n.GetName("XX"))
	assert.True(t, n.IsValidCode("fr"))
	assert.False(t, n.IsValidCode("jp"))
}

func TestResolveCodes(t *testing.T) {
	cat, err := ParseCatalog(Glyph, []byte(testCatalogJSON))
	require.NoError(t, err)
	n := NewNormalizer(cat)

	assert.Equal(t, []string{"FR", "DE", "ZZ"}, n.ResolveCodes([]string{"France", " ", "de", "zz"}))
	assert.Nil(t, n.ResolveCodes(nil))
}

func TestNormalizeStringStripsDiacritics(t *testing.T) {
	assert.Equal(t, "cote divoire", normalizeString("Côte d'Ivoire"))
	assert.Equal(t, "sao tome", normalizeString("São   Tomé"))
}
