// Package textnorm holds the casing and Unicode normalization shared by the
// reference dictionaries and the name normalizer. Both sides must fold words
// the same way for dictionary lookups to match.
package textnorm

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

// NFC returns s in Unicode normalization form C. Scraped pages sometimes carry
// decomposed "й" and "ё", which would otherwise miss dictionary lookups.
func NFC(s string) string {
	return norm.NFC.String(s)
}

// Title trims s, normalizes it to NFC and applies Russian title-casing to every
// word: the first letter is upper-cased and the rest lower-cased.
//
// A cases.Caser is stateful, so a new one is built per call.
func Title(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	return cases.Title(language.Russian).String(NFC(s))
}

// Upper upper-cases s using Russian casing rules.
func Upper(s string) string {
	return cases.Upper(language.Russian).String(NFC(s))
}

// IsCyrillicLetter reports whether r is a letter of the Cyrillic script.
func IsCyrillicLetter(r rune) bool {
	return unicode.IsLetter(r) && unicode.Is(unicode.Cyrillic, r)
}

// FirstLetter returns the first rune of s, upper-cased.
func FirstLetter(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if size == 0 || r == utf8.RuneError {
		return ""
	}
	return Upper(string(r))
}

// IsSingleLetter reports whether s is exactly one Cyrillic letter.
func IsSingleLetter(s string) bool {
	if utf8.RuneCountInString(s) != 1 {
		return false
	}
	r, _ := utf8.DecodeRuneInString(s)
	return IsCyrillicLetter(r)
}
