package models

import "time"

// SnapshotVersion is the current serialized board format version.
const SnapshotVersion = 1

// Snapshot is the serialized shape of a board, shared by persistence and import/export.
type Snapshot struct {
	Version    int       `json:"version" yaml:"version"`
	ExportedAt time.Time `json:"exportedAt,omitempty" yaml:"exportedAt,omitempty"`
	Columns    []*Column `json:"columns" yaml:"columns"`
	Labels     []Label   `json:"labels,omitempty" yaml:"labels,omitempty"`
}

// Clone returns a deep copy of the snapshot.
func (s *Snapshot) Clone() *Snapshot {
	if s == nil {
		return nil
	}
	out := &Snapshot{
		Version:    s.Version,
		ExportedAt: s.ExportedAt,
		Columns:    make([]*Column, len(s.Columns)),
		Labels:     append([]Label(nil), s.Labels...),
	}
	for i, c := range s.Columns {
		out.Columns[i] = c.Clone()
	}
	return out
}

// Rehydrate clears tracking state on every card. Tracking never survives a
// reload; accumulated time is kept as-is.
func (s *Snapshot) Rehydrate() {
	for _, col := range s.Columns {
		if col.Cards == nil {
			col.Cards = []*Card{}
		}
		for _, card := range col.Cards {
			card.IsTracking = false
			card.TrackingStartedAt = nil
			if card.TimeSpentSeconds < 0 {
				card.TimeSpentSeconds = 0
			}
		}
	}
}

// CardCount returns the total number of cards across all columns.
func (s *Snapshot) CardCount() int {
	n := 0
	for _, col := range s.Columns {
		n += len(col.Cards)
	}
	return n
}
