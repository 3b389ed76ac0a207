package countries

import (
	"sort"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// Translation is a three-letter translation code as found in country name
// objects, or Common for the untranslated name.
type Translation string

// Common is the fallback translation present in every localized name.
const Common Translation = "common"

// translationTags maps translation codes to the language used for collation.
var translationTags = map[Translation]language.Tag{
	"ara": language.Arabic,
	"bre": language.MustParse("br"),
	"ces": language.Czech,
	"cym": language.MustParse("cy"),
	"deu": language.German,
	"est": language.Estonian,
	"fas": language.Persian,
	"fin": language.Finnish,
	"fra": language.French,
	"hrv": language.Croatian,
	"hun": language.Hungarian,
	"ita": language.Italian,
	"jpn": language.Japanese,
	"kor": language.Korean,
	"nld": language.Dutch,
	"per": language.Persian,
	"pol": language.Polish,
	"por": language.Portuguese,
	"rus": language.Russian,
	"slk": language.Slovak,
	"spa": language.Spanish,
	"srp": language.Serbian,
	"swe": language.Swedish,
	"tur": language.Turkish,
	"urd": language.Urdu,
	"zho": language.Chinese,
}

// ParseTranslation normalizes a translation code. An empty string means Common.
func ParseTranslation(s string) Translation {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return Common
	}
	return Translation(s)
}

// Tag returns the language used to collate names in this translation.
// Common and unknown codes collate with the root locale.
func (t Translation) Tag() language.Tag {
	if tag, ok := translationTags[t]; ok {
		return tag
	}
	return language.Und
}

// Collator returns a new collator for names in this translation. Collators are
// not safe for concurrent use.
func (t Translation) Collator() *collate.Collator {
	return collate.New(t.Tag())
}

// Translations lists the translation codes with a known collation language.
func Translations() []Translation {
	out := make([]Translation, 0, len(translationTags)+1)
	out = append(out, Common)
	for t := range translationTags {
		out = append(out, t)
	}
	rest := out[1:]
	sort.Slice(rest, func(i, j int) bool { return rest[i] < rest[j] })
	return out
}
