package board

import (
	"strings"
	"time"

	"github.com/fosterushka/Chronoflow-sub000/internal/models"
)

// Filter selects cards. Zero-valued fields match everything.
type Filter struct {
	ColumnID     models.ColumnID
	Label        string // label id or name
	Text         string // case-insensitive match on title and description
	TrackingOnly bool
	OverdueOnly  bool
}

// CardRef is a card together with the column holding it.
type CardRef struct {
	ColumnID models.ColumnID `json:"columnId"`
	Card     *models.Card    `json:"card"`
}

func (f Filter) match(col models.ColumnID, card *models.Card, text string, now time.Time) bool {
	if f.ColumnID != "" && f.ColumnID != col {
		return false
	}
	if f.Label != "" && !card.HasLabel(f.Label) {
		return false
	}
	if f.TrackingOnly && !card.IsTracking {
		return false
	}
	// Done cards are never overdue.
	if f.OverdueOnly && (col == models.ColumnDone || !card.IsOverdue(now)) {
		return false
	}
	if text != "" &&
		!strings.Contains(strings.ToLower(card.Title), text) &&
		!strings.Contains(strings.ToLower(card.Description), text) {
		return false
	}
	return true
}

// Cards returns copies of the cards matching f in board order.
func (b *Board) Cards(f Filter) []CardRef {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.clock.Now()
	text := strings.ToLower(strings.TrimSpace(f.Text))
	if f.Label != "" {
		f.Label = b.labelIDLocked(f.Label)
	}
	var out []CardRef
	for _, col := range b.columns {
		for _, card := range col.Cards {
			if !f.match(col.ID, card, text, now) {
				continue
			}
			out = append(out, CardRef{ColumnID: col.ID, Card: card.Clone()})
		}
	}
	return out
}

// labelIDLocked maps a label name to its id. Unknown references are returned
// unchanged so they match nothing.
func (b *Board) labelIDLocked(ref string) string {
	for _, l := range b.labels {
		if l.ID == ref {
			return ref
		}
	}
	for _, l := range b.labels {
		if strings.EqualFold(l.Name, ref) {
			return l.ID
		}
	}
	return ref
}
