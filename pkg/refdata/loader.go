// Package refdata loads the reference dictionaries: known given names, known
// surnames and profile links that must never be touched.
package refdata

import (
	"fmt"
	"strings"

	localio "github.com/shpitdev/fiofix/pkg/pipeline/io/local"
	"github.com/shpitdev/fiofix/pkg/textnorm"
)

// Paths locates the three reference files.
type Paths struct {
	GivenNames string
	Surnames   string
	Blocklist  string
}

// Sets holds the reference data. It is read-only after construction and safe
// for concurrent use.
type Sets struct {
	given    map[string]struct{}
	surnames map[string]struct{}
	blocked  map[string]struct{}
}

// Load reads all three files. Any missing or malformed file is an error, as is
// an empty given-name or surname list: the data is static, so a failure here
// means misconfiguration.
func Load(p Paths) (*Sets, error) {
	given, err := readList("given names", p.GivenNames)
	if err != nil {
		return nil, err
	}
	surnames, err := readList("surnames", p.Surnames)
	if err != nil {
		return nil, err
	}
	blocked, err := readList("blocklist", p.Blocklist)
	if err != nil {
		return nil, err
	}

	s := NewSets(given, surnames, blocked)
	if len(s.given) == 0 {
		return nil, fmt.Errorf("given names file %s is empty", p.GivenNames)
	}
	if len(s.surnames) == 0 {
		return nil, fmt.Errorf("surnames file %s is empty", p.Surnames)
	}
	return s, nil
}

func readList(what, path string) ([]string, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("%s file path is required", what)
	}
	vals, err := localio.ReadStringListFile(path)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", what, err)
	}
	return vals, nil
}

// NewSets builds Sets from in-memory lists. Names and surnames are title-cased;
// links are trimmed. Blank entries are dropped.
func NewSets(given, surnames, blocked []string) *Sets {
	s := &Sets{
		given:    make(map[string]struct{}, len(given)),
		surnames: make(map[string]struct{}, len(surnames)),
		blocked:  make(map[string]struct{}, len(blocked)),
	}
	for _, v := range given {
		if k := textnorm.Title(v); k != "" {
			s.given[k] = struct{}{}
		}
	}
	for _, v := range surnames {
		if k := textnorm.Title(v); k != "" {
			s.surnames[k] = struct{}{}
		}
	}
	for _, v := range blocked {
		if k := strings.TrimSpace(v); k != "" {
			s.blocked[k] = struct{}{}
		}
	}
	return s
}

// IsGivenName reports whether word is a known given name, ignoring case.
func (s *Sets) IsGivenName(word string) bool {
	_, ok := s.given[textnorm.Title(word)]
	return ok
}

// IsSurname reports whether word is a known surname, ignoring case.
func (s *Sets) IsSurname(word string) bool {
	_, ok := s.surnames[textnorm.Title(word)]
	return ok
}

// IsBlocked reports whether the profile link is on the blocklist.
func (s *Sets) IsBlocked(link string) bool {
	_, ok := s.blocked[strings.TrimSpace(link)]
	return ok
}

// Counts returns the sizes of the three sets.
func (s *Sets) Counts() (given, surnames, blocked int) {
	return len(s.given), len(s.surnames), len(s.blocked)
}
