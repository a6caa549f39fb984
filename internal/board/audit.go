package board

import (
	"encoding/json"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/fosterushka/Chronoflow-sub000/internal/ids"
	"github.com/fosterushka/Chronoflow-sub000/internal/models"
)

// Audit field names as they appear on update entries.
const (
	FieldTitle        = "Title"
	FieldDescription  = "Description"
	FieldLabels       = "Labels"
	FieldChecklist    = "Checklist"
	FieldMeetings     = "Meetings"
	FieldRelatedItems = "Related Items"
	FieldDueDate      = "Due Date"
	FieldEstimate     = "Estimated Time"
	FieldGitHubIssue  = "GitHub Issue"
	FieldColumn       = "Column"
	FieldTracking     = "Tracking"
)

// recorder builds the audit entries of one mutation. Entries share the
// mutation's timestamp; insertion order is their chronological order.
type recorder struct {
	now   time.Time
	newID ids.Generator
}

func (r recorder) entry(typ models.AuditType, field, oldValue, newValue string, col models.ColumnID) models.AuditEntry {
	return models.AuditEntry{
		ID:        r.newID(),
		Timestamp: r.now,
		Type:      typ,
		Field:     field,
		OldValue:  oldValue,
		NewValue:  newValue,
		ColumnID:  col,
	}
}

func (r recorder) created(card *models.Card, col models.ColumnID) models.AuditEntry {
	return r.entry(models.AuditCreate, "", "", card.Title, col)
}

func (r recorder) updated(field, oldValue, newValue string, col models.ColumnID) models.AuditEntry {
	return r.entry(models.AuditUpdate, field, oldValue, newValue, col)
}

func (r recorder) moved(from, to models.ColumnID) models.AuditEntry {
	return r.entry(models.AuditMove, FieldColumn, string(from), string(to), to)
}

func (r recorder) trackingChanged(tracking bool, col models.ColumnID) models.AuditEntry {
	if tracking {
		return r.entry(models.AuditStatusChange, FieldTracking, models.StatusNotTracking, models.StatusTracking, col)
	}
	return r.entry(models.AuditStatusChange, FieldTracking, models.StatusTracking, models.StatusNotTracking, col)
}

func (r recorder) comment(text string, col models.ColumnID) models.AuditEntry {
	return r.entry(models.AuditComment, "", "", text, col)
}

// applyPatch applies p to card (which must be a private copy) and appends one
// update entry per field whose value actually changed. It returns the names of
// the changed fields. On error the card may be partially modified and must be
// discarded by the caller.
func applyPatch(card *models.Card, p Patch, col models.ColumnID, rec recorder) ([]string, error) {
	var changed []string
	record := func(field, oldValue, newValue string) {
		card.AuditHistory = append(card.AuditHistory, rec.updated(field, oldValue, newValue, col))
		changed = append(changed, field)
	}

	if p.Title.Present() {
		title, ok := p.Title.Get()
		title = strings.TrimSpace(title)
		if !ok || title == "" {
			return nil, invalid("edit card", "title", "must not be empty")
		}
		if title != card.Title {
			record(FieldTitle, card.Title, title)
			card.Title = title
		}
	}

	if p.Description.Present() {
		desc, _ := p.Description.Get()
		if desc != card.Description {
			record(FieldDescription, card.Description, desc)
			card.Description = desc
		}
	}

	if p.Labels.Present() {
		labels, _ := p.Labels.Get()
		if !slices.Equal(labels, card.Labels) {
			record(FieldLabels, serializeList(card.Labels), serializeList(labels))
			card.Labels = nonEmpty(labels)
		}
	}

	if p.Checklist.Present() {
		items, _ := p.Checklist.Get()
		items = assignChecklistIDs(slices.Clone(items), rec.newID)
		if !slices.Equal(items, card.Checklist) {
			record(FieldChecklist, serializeList(card.Checklist), serializeList(items))
			card.Checklist = nonEmpty(items)
		}
	}

	if p.Meetings.Present() {
		meetings, _ := p.Meetings.Get()
		meetings = assignMeetingIDs(slices.Clone(meetings), rec.newID)
		if !slices.EqualFunc(meetings, card.Meetings, equalMeeting) {
			record(FieldMeetings, serializeList(card.Meetings), serializeList(meetings))
			card.Meetings = nonEmpty(meetings)
		}
	}

	if p.RelatedItems.Present() {
		items, _ := p.RelatedItems.Get()
		items = assignRelatedIDs(slices.Clone(items), rec.newID)
		if !slices.Equal(items, card.RelatedItems) {
			record(FieldRelatedItems, serializeList(card.RelatedItems), serializeList(items))
			card.RelatedItems = nonEmpty(items)
		}
	}

	if p.DueDate.Present() {
		due := p.DueDate.Ptr()
		if !equalTime(due, card.DueDate) {
			record(FieldDueDate, formatTime(card.DueDate), formatTime(due))
			card.DueDate = due
		}
	}

	if p.EstimatedMinutes.Present() {
		est := p.EstimatedMinutes.Ptr()
		if est != nil && *est < 0 {
			return nil, invalid("edit card", "estimatedMinutes", "must not be negative")
		}
		if estimateValue(est) != estimateValue(card.EstimatedMinutes) {
			record(FieldEstimate, formatEstimate(card.EstimatedMinutes), formatEstimate(est))
			card.EstimatedMinutes = est
		}
	}

	if p.GitHubIssue.Present() {
		gh := p.GitHubIssue.Ptr()
		if gh != nil && gh.IsZero() {
			gh = nil
		}
		if !equalGitHub(gh, card.GitHubIssue) {
			record(FieldGitHubIssue, serializeGitHub(card.GitHubIssue), serializeGitHub(gh))
			card.GitHubIssue = gh
		}
	}

	return changed, nil
}

func equalMeeting(a, b models.Meeting) bool {
	return a.ID == b.ID &&
		a.Title == b.Title &&
		a.Date.Equal(b.Date) &&
		a.DurationMinutes == b.DurationMinutes &&
		a.URL == b.URL
}

func equalTime(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}

// estimateValue treats an unset estimate and a zero estimate as the same.
func estimateValue(p *int) int {
	if p == nil {
		return 0
	}
	return *p
}

func equalGitHub(a, b *models.GitHubIssue) bool {
	var x, y models.GitHubIssue
	if a != nil {
		x = *a
	}
	if b != nil {
		y = *b
	}
	return x == y
}

// nonEmpty normalizes an empty list to nil so that "unset" and "empty" are
// stored the same way.
func nonEmpty[S ~[]E, E any](s S) S {
	if len(s) == 0 {
		return nil
	}
	return s
}

func assignChecklistIDs(items []models.ChecklistItem, newID ids.Generator) []models.ChecklistItem {
	for i := range items {
		if items[i].ID == "" {
			items[i].ID = newID()
		}
	}
	return items
}

func assignMeetingIDs(items []models.Meeting, newID ids.Generator) []models.Meeting {
	for i := range items {
		if items[i].ID == "" {
			items[i].ID = newID()
		}
	}
	return items
}

func assignRelatedIDs(items []models.RelatedItem, newID ids.Generator) []models.RelatedItem {
	for i := range items {
		if items[i].ID == "" {
			items[i].ID = newID()
		}
		if items[i].Type == "" {
			items[i].Type = models.RelatedItemLink
		}
	}
	return items
}

// serializeList renders a composite field value for an audit entry. Empty
// lists serialize to the empty string.
func serializeList[S ~[]E, E any](s S) string {
	if len(s) == 0 {
		return ""
	}
	data, err := json.Marshal(s)
	if err != nil {
		return ""
	}
	return string(data)
}

func serializeGitHub(g *models.GitHubIssue) string {
	if g == nil || g.IsZero() {
		return ""
	}
	data, err := json.Marshal(g)
	if err != nil {
		return ""
	}
	return string(data)
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func formatEstimate(p *int) string {
	if p == nil {
		return ""
	}
	return strconv.Itoa(*p)
}
