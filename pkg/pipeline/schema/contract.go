package schema

import (
	"fmt"
	"strings"
)

// ChangeMode selects what a fix run does with the corrections it computes.
type ChangeMode string

const (
	// ModeChangesInJSON only writes the changed/unchanged files for review.
	ModeChangesInJSON ChangeMode = "changes_in_json"
	// ModeDirectChange also pushes every changed name to the portal.
	ModeDirectChange ChangeMode = "direct_change"
)

// Output file names, relative to the configured output directory.
const (
	ChangedFile   = "changed info.json"
	UnchangedFile = "unchanged info.json"
	CorrectFile   = "correct info.json"
	UpdatedFile   = "updated authors.json"
	ReviewFile    = "review.xlsx"
)

// NameRecord is one roster row as scraped from the portal.
type NameRecord struct {
	Name string `json:"name"`
	Link string `json:"link"`
}

// ChangedRecord is a roster row whose name has a different canonical form.
type ChangedRecord struct {
	OldName string `json:"old_name"`
	NewName string `json:"new_name"`
	Link    string `json:"link"`
}

// UnchangedRecord is a roster row the normalizer rejected, kept for manual review.
type UnchangedRecord struct {
	Name   string `json:"name"`
	Link   string `json:"link"`
	Error  string `json:"error"`
	Reason string `json:"reason,omitempty"`
}

// NormalizeMode parses a mode selector. An empty value means ModeChangesInJSON;
// unknown values are rejected because direct_change writes to the portal.
func NormalizeMode(raw string) (ChangeMode, error) {
	s := strings.TrimSpace(strings.ToLower(raw))
	switch s {
	case "", "changes_in_json", "json":
		return ModeChangesInJSON, nil
	case "direct_change", "direct":
		return ModeDirectChange, nil
	default:
		return "", fmt.Errorf("unknown change mode %q (want direct_change or changes_in_json)", raw)
	}
}
