// Package transfer moves boards in and out of files: JSON and YAML snapshots
// that round-trip, plus CSV and Markdown reports for humans and spreadsheets.
package transfer

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/fosterushka/Chronoflow-sub000/internal/models"
)

// Format names a file format.
type Format string

const (
	FormatJSON     Format = "json"
	FormatYAML     Format = "yaml"
	FormatCSV      Format = "csv"
	FormatMarkdown Format = "markdown"
)

// ParseFormat accepts a format name, case-insensitively. "yml" and "md" are
// accepted as aliases.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	case "csv":
		return FormatCSV, nil
	case "markdown", "md":
		return FormatMarkdown, nil
	}
	return "", fmt.Errorf("unknown format: %s (use: json, yaml, csv, markdown)", s)
}

// FormatFromPath infers the format from a file extension, defaulting to JSON.
func FormatFromPath(path string) Format {
	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	if f, err := ParseFormat(ext); err == nil {
		return f
	}
	return FormatJSON
}

// Snapshottable reports whether the format can be imported back.
func (f Format) Snapshottable() bool {
	return f == FormatJSON || f == FormatYAML
}

// ImportFormatError rejects a whole import. The board is never modified when
// one is returned.
type ImportFormatError struct {
	Format Format
	Reason string
	Err    error
}

func (e *ImportFormatError) Error() string {
	msg := fmt.Sprintf("invalid %s import: %s", e.Format, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ImportFormatError) Unwrap() error { return e.Err }

// IsImportFormatError reports whether err is or wraps an ImportFormatError.
func IsImportFormatError(err error) bool {
	var ife *ImportFormatError
	return errors.As(err, &ife)
}

// Export writes the snapshot as JSON or YAML.
func Export(w io.Writer, snap *models.Snapshot, f Format) error {
	if snap == nil {
		return errors.New("export: nil snapshot")
	}
	out := snap.Clone()
	if out.Version == 0 {
		out.Version = models.SnapshotVersion
	}

	switch f {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(out); err != nil {
			return fmt.Errorf("encode json: %w", err)
		}
		return nil
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(out); err != nil {
			return fmt.Errorf("encode yaml: %w", err)
		}
		return enc.Close()
	default:
		return fmt.Errorf("export: %s is not a snapshot format", f)
	}
}

// Import decodes and validates a snapshot. The document may be the full
// envelope ({version, columns, labels}) or a bare array of columns. The
// result is rehydrated: tracking is off on every card.
func Import(r io.Reader, f Format) (*models.Snapshot, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read import: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, &ImportFormatError{Format: f, Reason: "document is empty"}
	}

	var snap *models.Snapshot
	switch f {
	case FormatJSON:
		snap, err = decodeJSON(data)
	case FormatYAML:
		snap, err = decodeYAML(data)
	default:
		return nil, &ImportFormatError{Format: f, Reason: "format cannot be imported"}
	}
	if err != nil {
		return nil, &ImportFormatError{Format: f, Reason: "cannot decode document", Err: err}
	}

	if err := Validate(snap); err != nil {
		return nil, &ImportFormatError{Format: f, Reason: err.Error()}
	}
	snap.Rehydrate()
	if snap.Version == 0 {
		snap.Version = models.SnapshotVersion
	}
	return snap, nil
}

func decodeJSON(data []byte) (*models.Snapshot, error) {
	if trimmed := bytes.TrimSpace(data); trimmed[0] == '[' {
		var cols []*models.Column
		if err := json.Unmarshal(trimmed, &cols); err != nil {
			return nil, err
		}
		return &models.Snapshot{Columns: cols}, nil
	}
	var snap models.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

func decodeYAML(data []byte) (*models.Snapshot, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	if len(doc.Content) == 0 {
		return nil, errors.New("no yaml document")
	}
	root := doc.Content[0]
	if root.Kind == yaml.SequenceNode {
		var cols []*models.Column
		if err := root.Decode(&cols); err != nil {
			return nil, err
		}
		return &models.Snapshot{Columns: cols}, nil
	}
	var snap models.Snapshot
	if err := root.Decode(&snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

// Validate checks that every column has a known id and a title, and every
// card an id and a title, with no duplicates.
func Validate(snap *models.Snapshot) error {
	if snap.Version > models.SnapshotVersion {
		return fmt.Errorf("unsupported version %d", snap.Version)
	}
	if len(snap.Columns) == 0 {
		return errors.New("no columns")
	}

	seenCols := make(map[models.ColumnID]bool)
	seenCards := make(map[string]bool)
	for i, col := range snap.Columns {
		if col == nil {
			return fmt.Errorf("column %d is null", i)
		}
		if col.ID == "" || strings.TrimSpace(col.Title) == "" {
			return fmt.Errorf("column %d: id and title are required", i)
		}
		if !models.IsKnownColumn(col.ID) {
			return fmt.Errorf("column %d: unknown id %q", i, col.ID)
		}
		if seenCols[col.ID] {
			return fmt.Errorf("column %d: duplicate id %q", i, col.ID)
		}
		seenCols[col.ID] = true

		for j, card := range col.Cards {
			if card == nil {
				return fmt.Errorf("column %q card %d is null", col.ID, j)
			}
			if card.ID == "" || strings.TrimSpace(card.Title) == "" {
				return fmt.Errorf("column %q card %d: id and title are required", col.ID, j)
			}
			if seenCards[card.ID] {
				return fmt.Errorf("column %q card %d: duplicate id %q", col.ID, j, card.ID)
			}
			if card.TimeSpentSeconds < 0 {
				return fmt.Errorf("card %q: negative time spent", card.ID)
			}
			if card.EstimatedMinutes != nil && *card.EstimatedMinutes < 0 {
				return fmt.Errorf("card %q: negative estimate", card.ID)
			}
			seenCards[card.ID] = true
		}
	}
	return nil
}

// ExportedName returns a default file name for an export taken at t.
func ExportedName(t time.Time, f Format) string {
	ext := string(f)
	if f == FormatMarkdown {
		ext = "md"
	}
	return "chronoflow-" + t.UTC().Format("20060102-150405") + "." + ext
}
