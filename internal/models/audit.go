package models

import "time"

// AuditType is the kind of change an audit entry records.
type AuditType string

const (
	AuditCreate       AuditType = "create"
	AuditUpdate       AuditType = "update"
	AuditMove         AuditType = "move"
	AuditStatusChange AuditType = "status_change"
	AuditComment      AuditType = "comment"
)

// Tracking states as they appear in status_change entries.
const (
	StatusTracking    = "tracking"
	StatusNotTracking = "not_tracking"
)

// AuditEntry is an immutable record of one change to a card.
type AuditEntry struct {
	ID        string    `json:"id" yaml:"id"`
	Timestamp time.Time `json:"timestamp" yaml:"timestamp"`
	Type      AuditType `json:"type" yaml:"type"`
	Field     string    `json:"field,omitempty" yaml:"field,omitempty"`
	OldValue  string    `json:"oldValue,omitempty" yaml:"oldValue,omitempty"`
	NewValue  string    `json:"newValue,omitempty" yaml:"newValue,omitempty"`
	ColumnID  ColumnID  `json:"columnId,omitempty" yaml:"columnId,omitempty"`
}
