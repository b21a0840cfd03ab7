package local

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/shpitdev/fiofix/pkg/pipeline/schema"
)

// ReadRoster reads a JSON array of {"name", "link"} objects.
func ReadRoster(r io.Reader) ([]schema.NameRecord, error) {
	var rows []schema.NameRecord
	if err := decodeArray(r, &rows); err != nil {
		return nil, fmt.Errorf("parse roster: %w", err)
	}
	return rows, nil
}

// ReadRosterFile reads a roster from path.
func ReadRosterFile(path string) ([]schema.NameRecord, error) {
	var rows []schema.NameRecord
	err := withFile(path, func(r io.Reader) error {
		var err error
		rows, err = ReadRoster(r)
		return err
	})
	return rows, err
}

// ReadChangedFile reads a previously written changed file.
func ReadChangedFile(path string) ([]schema.ChangedRecord, error) {
	var rows []schema.ChangedRecord
	err := withFile(path, func(r io.Reader) error {
		if err := decodeArray(r, &rows); err != nil {
			return fmt.Errorf("parse changed records: %w", err)
		}
		return nil
	})
	return rows, err
}

// ReadStringList reads a JSON array of strings.
func ReadStringList(r io.Reader) ([]string, error) {
	var vals []string
	if err := decodeArray(r, &vals); err != nil {
		return nil, fmt.Errorf("parse string list: %w", err)
	}
	return vals, nil
}

// ReadStringListFile reads a JSON array of strings from path.
func ReadStringListFile(path string) ([]string, error) {
	var vals []string
	err := withFile(path, func(r io.Reader) error {
		var err error
		vals, err = ReadStringList(r)
		return err
	})
	return vals, err
}

// WriteJSON writes v as indented JSON without HTML escaping, so Cyrillic names
// and links stay readable for manual review.
func WriteJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// WriteJSONFile encodes v fully in memory and then writes the whole file at once,
// creating parent directories as needed.
func WriteJSONFile(path string, v any) error {
	var buf bytes.Buffer
	if err := WriteJSON(&buf, v); err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, buf.Bytes(), 0o644)
}

func decodeArray(r io.Reader, out any) error {
	dec := json.NewDecoder(r)
	if err := dec.Decode(out); err != nil {
		return err
	}
	if dec.More() {
		return fmt.Errorf("unexpected data after top-level array")
	}
	return nil
}

func withFile(path string, fn func(io.Reader) error) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer func() {
		_ = f.Close()
	}()
	return fn(f)
}
