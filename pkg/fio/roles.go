package fio

import (
	"strings"
)

type roleMask uint8

const (
	roleGiven roleMask = 1 << iota
	roleSurname
)

type roles struct {
	surname    string
	given      string
	patronymic string
}

// resolve assigns the surname and given-name roles among words. With three
// words the leftover word becomes the patronymic.
//
// Words known in both dictionaries are disambiguated by their companions: if
// exactly one word is surname-only, overlapping words cannot be the surname,
// and likewise for given names.
//
// strict is used for two-word inputs, where every word must be known and two
// words sharing one role are ambiguous rather than unmatched.
func (n *Normalizer) resolve(words []part, strict bool) (roles, Result) {
	masks := make([]roleMask, len(words))
	var surnames, givens []int
	surnameOnly, givenOnly := 0, 0
	for i, w := range words {
		if n.dict.IsGivenName(w.text) {
			masks[i] |= roleGiven
			givens = append(givens, i)
		}
		if n.dict.IsSurname(w.text) {
			masks[i] |= roleSurname
			surnames = append(surnames, i)
		}
		switch masks[i] {
		case roleSurname:
			surnameOnly++
		case roleGiven:
			givenOnly++
		}
	}

	if len(surnames) == 0 && len(givens) == 0 {
		return roles{}, rejected(ReasonNoMatch, "none of %s is a known given name or surname", quoteWords(words))
	}
	if strict {
		for i, m := range masks {
			if m == 0 {
				return roles{}, rejected(ReasonNoMatch, "%q is neither a known given name nor a known surname", words[i].text)
			}
		}
		if len(surnames) == 0 {
			return roles{}, rejected(ReasonAmbiguous, "%s are all given names", quoteWords(words))
		}
		if len(givens) == 0 {
			return roles{}, rejected(ReasonAmbiguous, "%s are all surnames", quoteWords(words))
		}
	}
	if len(surnames) == 0 {
		return roles{}, rejected(ReasonNoMatch, "no known surname among %s", quoteWords(words))
	}
	if len(givens) == 0 {
		return roles{}, rejected(ReasonNoMatch, "no known given name among %s", quoteWords(words))
	}

	if surnameOnly == 1 {
		surnames = keepOnly(surnames, masks, roleSurname)
	}
	if givenOnly == 1 {
		givens = keepOnly(givens, masks, roleGiven)
	}
	if len(surnames) != 1 || len(givens) != 1 || surnames[0] == givens[0] {
		return roles{}, rejected(ReasonAmbiguous, "cannot tell surname from given name in %s", quoteWords(words))
	}

	r := roles{
		surname: words[surnames[0]].text,
		given:   words[givens[0]].text,
	}
	for i, w := range words {
		if i != surnames[0] && i != givens[0] {
			r.patronymic = w.text
		}
	}
	return r, Result{}
}

// keepOnly filters idx down to words whose mask is exactly want.
func keepOnly(idx []int, masks []roleMask, want roleMask) []int {
	out := idx[:0:0]
	for _, i := range idx {
		if masks[i] == want {
			out = append(out, i)
		}
	}
	return out
}

func quoteWords(words []part) string {
	quoted := make([]string, len(words))
	for i, w := range words {
		quoted[i] = `"` + w.text + `"`
	}
	return strings.Join(quoted, ", ")
}
