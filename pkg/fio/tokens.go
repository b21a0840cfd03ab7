package fio

import (
	"fmt"
	"slices"
	"strings"
	"unicode"

	"github.com/shpitdev/fiofix/pkg/textnorm"
)

// part is one word or initial of a raw name, with its position among all parts.
type part struct {
	text string
	pos  int
}

// split breaks a raw name into title-cased words and upper-cased initial letters.
// A compound token such as "С.П." yields two initials. Tokens containing a
// period that are not initials, and names with more than two initials, are
// reported through the detail string with ok=false.
func split(raw string) (words, initials []part, detail string, ok bool) {
	pos := 0
	for _, tok := range strings.Fields(raw) {
		tok = textnorm.NFC(tok)
		if !strings.ContainsRune(tok, '.') {
			words = append(words, part{text: textnorm.Title(tok), pos: pos})
			pos++
			continue
		}
		letters, valid := parseInitials(tok)
		if !valid {
			return nil, nil, fmt.Sprintf("token %q is not an initial", tok), false
		}
		for _, l := range letters {
			initials = append(initials, part{text: l, pos: pos})
			pos++
		}
	}
	if len(initials) > 2 {
		return nil, nil, fmt.Sprintf("found %d initials, at most 2 are allowed", len(initials)), false
	}
	return words, initials, "", true
}

// parseInitials parses "Б." or "С.П." into upper-cased letters.
func parseInitials(tok string) ([]string, bool) {
	runes := []rune(tok)
	if len(runes) == 0 || len(runes)%2 != 0 {
		return nil, false
	}
	out := make([]string, 0, len(runes)/2)
	for i := 0; i < len(runes); i += 2 {
		letter, dot := runes[i], runes[i+1]
		if dot != '.' || !textnorm.IsCyrillicLetter(letter) {
			return nil, false
		}
		out = append(out, string(unicode.ToUpper(letter)))
	}
	return out, true
}

// promoteSingles treats bare one-letter words as initials when that turns the
// name into the surname-plus-two-initials shape ("Петров И С.").
func promoteSingles(words, initials []part) ([]part, []part) {
	var singles, rest []part
	for _, w := range words {
		if textnorm.IsSingleLetter(w.text) {
			singles = append(singles, w)
		} else {
			rest = append(rest, w)
		}
	}
	if len(singles) == 0 || len(initials)+len(singles) != 2 || len(rest) != 1 {
		return words, initials
	}
	merged := make([]part, 0, 2)
	merged = append(merged, initials...)
	for _, s := range singles {
		merged = append(merged, part{text: textnorm.Upper(s.text), pos: s.pos})
	}
	slices.SortFunc(merged, func(a, b part) int { return a.pos - b.pos })
	return rest, merged
}
