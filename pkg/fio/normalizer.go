// Package fio turns free-text Russian author names into the canonical
// "Surname GivenName Patronymic" form or its abbreviated "Surname I. I." variant.
//
// Supported inputs:
//
//	петров иван иванович    full name, any word order
//	иван петров             surname and given name only
//	Петров Иван И.          one initial plus two words
//	петров И. П.            surname plus two initials (also "И.П.", "И П.")
//
// Which word is the surname and which is the given name is decided with two
// dictionaries that may overlap. Normalize never fails with an error: every
// input ends up Changed, NoOp or Rejected with a Reason.
package fio

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/shpitdev/fiofix/pkg/textnorm"
)

// Dictionary answers membership questions for title-cased words.
type Dictionary interface {
	IsGivenName(word string) bool
	IsSurname(word string) bool
}

// Style selects how full names are rendered.
type Style int

const (
	// StyleFull keeps the given name and patronymic: "Петров Иван Иванович".
	StyleFull Style = iota
	// StyleInitials abbreviates them: "Петров И. И.".
	StyleInitials
)

func (s Style) String() string {
	if s == StyleInitials {
		return "initials"
	}
	return "full"
}

// ParseStyle parses "full" or "initials". An empty value means StyleFull.
func ParseStyle(raw string) (Style, error) {
	switch strings.TrimSpace(strings.ToLower(raw)) {
	case "", "full":
		return StyleFull, nil
	case "initials", "short":
		return StyleInitials, nil
	default:
		return StyleFull, fmt.Errorf("unknown name style %q (want full or initials)", raw)
	}
}

// Outcome is the kind of a normalization Result.
type Outcome int

const (
	OutcomeChanged Outcome = iota + 1
	OutcomeNoOp
	OutcomeRejected
)

func (o Outcome) String() string {
	switch o {
	case OutcomeChanged:
		return "changed"
	case OutcomeNoOp:
		return "noop"
	case OutcomeRejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// Reason explains a rejection.
type Reason string

const (
	ReasonNone              Reason = ""
	ReasonWrongTokenCount   Reason = "wrong_token_count"
	ReasonNoMatch           Reason = "no_match_in_reference_data"
	ReasonAmbiguous         Reason = "ambiguous_name"
	ReasonMalformedInitials Reason = "malformed_initials"
)

// Message is a short human-readable description of the reason.
func (r Reason) Message() string {
	switch r {
	case ReasonWrongTokenCount:
		return "Unexpected number of words in full name"
	case ReasonNoMatch:
		return "No such name/surname in reference data"
	case ReasonAmbiguous:
		return "Ambiguous full name"
	case ReasonMalformedInitials:
		return "Malformed initials"
	default:
		return ""
	}
}

// Result is the outcome of normalizing one raw name.
type Result struct {
	Outcome Outcome
	// Name is the canonical name for OutcomeChanged and OutcomeNoOp.
	Name   string
	Reason Reason
	// Detail explains a rejection for manual review.
	Detail string
}

// Message combines the reason and detail of a rejection.
func (r Result) Message() string {
	if r.Detail == "" {
		return r.Reason.Message()
	}
	return r.Reason.Message() + ": " + r.Detail
}

func rejected(reason Reason, format string, args ...any) Result {
	return Result{Outcome: OutcomeRejected, Reason: reason, Detail: fmt.Sprintf(format, args...)}
}

// Normalizer is safe for concurrent use as long as its Dictionary is.
type Normalizer struct {
	dict  Dictionary
	style Style
}

// New returns a Normalizer backed by dict.
func New(dict Dictionary, style Style) *Normalizer {
	return &Normalizer{dict: dict, style: style}
}

// Normalize classifies raw into a canonical name or a rejection.
func (n *Normalizer) Normalize(raw string) Result {
	words, initials, detail, ok := split(raw)
	if !ok {
		return rejected(ReasonMalformedInitials, "%s", detail)
	}
	words, initials = promoteSingles(words, initials)

	var canonical string
	switch len(initials) {
	case 2:
		if len(words) != 1 {
			return rejected(ReasonWrongTokenCount, "expected a surname with two initials, got %d words", len(words))
		}
		canonical = fmt.Sprintf("%s %s. %s.", words[0].text, initials[0].text, initials[1].text)
	case 1:
		if len(words) != 2 {
			return rejected(ReasonWrongTokenCount, "expected surname and given name with one initial, got %d words", len(words))
		}
		r, res := n.resolve(words, true)
		if res.Outcome == OutcomeRejected {
			return res
		}
		canonical = fmt.Sprintf("%s %s. %s.", r.surname, textnorm.FirstLetter(r.given), initials[0].text)
	default:
		switch len(words) {
		case 3:
			r, res := n.resolve(words, false)
			if res.Outcome == OutcomeRejected {
				return res
			}
			if !isCyrillicWord(r.patronymic) {
				return rejected(ReasonNoMatch, "patronymic %q is not a Cyrillic word", r.patronymic)
			}
			if textnorm.IsSingleLetter(r.patronymic) {
				// A bare letter is an initial, so the name takes the one-initial form.
				canonical = fmt.Sprintf("%s %s. %s.", r.surname, textnorm.FirstLetter(r.given), textnorm.Upper(r.patronymic))
			} else {
				canonical = n.render(r)
			}
		case 2:
			r, res := n.resolve(words, true)
			if res.Outcome == OutcomeRejected {
				return res
			}
			canonical = n.render(r)
		default:
			return rejected(ReasonWrongTokenCount, "expected 3 words, got %d", len(words))
		}
	}

	if canonical == raw {
		return Result{Outcome: OutcomeNoOp, Name: canonical}
	}
	return Result{Outcome: OutcomeChanged, Name: canonical}
}

func (n *Normalizer) render(r roles) string {
	if n.style == StyleInitials {
		out := r.surname + " " + textnorm.FirstLetter(r.given) + "."
		if r.patronymic != "" {
			out += " " + textnorm.FirstLetter(r.patronymic) + "."
		}
		return out
	}
	out := r.surname + " " + r.given
	if r.patronymic != "" {
		out += " " + r.patronymic
	}
	return out
}

// isCyrillicWord reports whether s is valid UTF-8 made of Cyrillic letters,
// optionally joined by hyphens.
func isCyrillicWord(s string) bool {
	if s == "" || !utf8.ValidString(s) {
		return false
	}
	for _, part := range strings.Split(s, "-") {
		if part == "" {
			return false
		}
		for _, r := range part {
			if !textnorm.IsCyrillicLetter(r) {
				return false
			}
		}
	}
	return true
}
