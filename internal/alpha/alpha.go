// Package alpha derives the jump-to-letter index of a filtered country list
// and resolves a selected letter to a list position.
//
// Letter navigation is only meaningful against the filtered list. While a
// free-text query narrows the visible rows, callers must not offer it; this
// package does not enforce that.
package alpha

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"

	"github.com/mattsblocklist/countrypicker/internal/countries"
	"github.com/mattsblocklist/countrypicker/internal/filter"
)

// ErrInvalidLetterTarget is returned for a letter that no entry of the list
// starts with. Letters must come from Letters on the same list.
var ErrInvalidLetterTarget = errors.New("invalid letter target")

// Index is the alpha index of one list.
type Index struct {
	// Letters are the distinct leading letters in collation order.
	Letters []string
	// Fingerprint is the fingerprint of the list the index was built from.
	Fingerprint string

	first map[string]int
}

// Build computes the alpha index of list.
func Build(list filter.List) Index {
	upper := cases.Upper(list.Translation.Tag())
	ix := Index{
		Fingerprint: list.Fingerprint,
		first:       make(map[string]int),
	}
	for i, c := range list.Countries {
		letter := leading(upper, c.Name.Common())
		if letter == "" {
			continue
		}
		if _, ok := ix.first[letter]; !ok {
			ix.first[letter] = i
			ix.Letters = append(ix.Letters, letter)
		}
	}
	sortLetters(ix.Letters, list.Translation)
	return ix
}

// Letters returns the distinct upper-cased first characters of the names in
// list, sorted with the list's collation.
func Letters(list filter.List) []string {
	return Build(list).Letters
}

// ScrollTarget returns the position of the first entry of list whose
// upper-cased first character is letter.
func ScrollTarget(letter string, list filter.List) (int, error) {
	return Build(list).ScrollTarget(letter)
}

// ScrollTarget returns the position of the first entry starting with letter.
func (ix Index) ScrollTarget(letter string) (int, error) {
	pos, ok := ix.first[strings.ToUpper(letter)]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrInvalidLetterTarget, letter)
	}
	return pos, nil
}

// Initial returns the first available letter and its position, used to
// anchor a list that is first shown without a query.
func (ix Index) Initial() (letter string, pos int, ok bool) {
	if len(ix.Letters) == 0 {
		return "", 0, false
	}
	letter = ix.Letters[0]
	return letter, ix.first[letter], true
}

// Has reports whether letter is in the index.
func (ix Index) Has(letter string) bool {
	_, ok := ix.first[strings.ToUpper(letter)]
	return ok
}

func leading(upper cases.Caser, name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	r, size := utf8.DecodeRuneInString(name)
	if r == utf8.RuneError {
		return ""
	}
	return upper.String(name[:size])
}

func sortLetters(letters []string, t countries.Translation) {
	collator := t.Collator()
	sort.SliceStable(letters, func(i, j int) bool {
		return collator.CompareString(letters[i], letters[j]) < 0
	})
}
