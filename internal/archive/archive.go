// Package archive holds deleted cards for a limited time so they can be restored.
package archive

import (
	"slices"
	"sync"
	"time"

	"github.com/fosterushka/Chronoflow-sub000/internal/clock"
	"github.com/fosterushka/Chronoflow-sub000/internal/models"
)

// DefaultRetention is how long a deleted card stays restorable.
const DefaultRetention = 24 * time.Hour

// Archive is a time-bounded undo buffer for deleted cards. Entries are kept in
// deletion order. Expired entries are purged lazily whenever the archive is
// read or written.
type Archive struct {
	mu        sync.Mutex
	clock     clock.Clock
	retention time.Duration
	entries   []models.ArchivedCard
}

// New creates an empty archive. A non-positive retention uses DefaultRetention.
func New(c clock.Clock, retention time.Duration) *Archive {
	if c == nil {
		c = clock.System{}
	}
	if retention <= 0 {
		retention = DefaultRetention
	}
	return &Archive{clock: c, retention: retention}
}

// Retention returns the configured retention window.
func (a *Archive) Retention() time.Duration {
	return a.retention
}

// Archive stores a snapshot of card, tagged with the current time and the
// column it was deleted from, then purges expired entries. Archiving a card id
// that is already present replaces the older entry.
func (a *Archive) Archive(card *models.Card, columnID models.ColumnID) models.ArchivedCard {
	a.mu.Lock()
	defer a.mu.Unlock()

	now := a.clock.Now()
	a.entries = slices.DeleteFunc(a.entries, func(e models.ArchivedCard) bool {
		return e.Card.ID == card.ID
	})
	entry := models.ArchivedCard{
		Card:             card.Clone(),
		DeletedAt:        now,
		OriginalColumnID: columnID,
	}
	a.entries = append(a.entries, entry)
	a.purgeLocked(now)
	return cloneEntry(entry)
}

// Restore removes the card from the archive and returns it with its original
// column. ok is false when the card is unknown or its retention has expired.
func (a *Archive) Restore(cardID string) (card *models.Card, columnID models.ColumnID, ok bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.purgeLocked(a.clock.Now())
	for i, e := range a.entries {
		if e.Card.ID == cardID {
			a.entries = append(a.entries[:i], a.entries[i+1:]...)
			return e.Card.Clone(), e.OriginalColumnID, true
		}
	}
	return nil, "", false
}

// Get returns an archived card without removing it.
func (a *Archive) Get(cardID string) (models.ArchivedCard, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.purgeLocked(a.clock.Now())
	for _, e := range a.entries {
		if e.Card.ID == cardID {
			return cloneEntry(e), true
		}
	}
	return models.ArchivedCard{}, false
}

// List returns the archived cards, most recently deleted first.
func (a *Archive) List() []models.ArchivedCard {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.purgeLocked(a.clock.Now())
	out := make([]models.ArchivedCard, 0, len(a.entries))
	for i := len(a.entries) - 1; i >= 0; i-- {
		out = append(out, cloneEntry(a.entries[i]))
	}
	return out
}

// Purge drops entries older than the retention window and returns how many
// were removed.
func (a *Archive) Purge() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.purgeLocked(a.clock.Now())
}

func (a *Archive) purgeLocked(now time.Time) int {
	before := len(a.entries)
	a.entries = slices.DeleteFunc(a.entries, func(e models.ArchivedCard) bool {
		return now.Sub(e.DeletedAt) > a.retention
	})
	return before - len(a.entries)
}

// Len returns the number of entries, including any not yet purged.
func (a *Archive) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.entries)
}

// Entries returns all entries in deletion order, for persistence.
func (a *Archive) Entries() []models.ArchivedCard {
	a.mu.Lock()
	defer a.mu.Unlock()

	out := make([]models.ArchivedCard, len(a.entries))
	for i, e := range a.entries {
		out[i] = cloneEntry(e)
	}
	return out
}

// Load replaces the archive contents with persisted entries. Entries are
// re-sorted by deletion time, cards are rehydrated without tracking state and
// expired entries are purged immediately.
func (a *Archive) Load(entries []models.ArchivedCard) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.entries = a.entries[:0]
	for _, e := range entries {
		if e.Card == nil || e.Card.ID == "" {
			continue
		}
		e = cloneEntry(e)
		e.Card.IsTracking = false
		e.Card.TrackingStartedAt = nil
		a.entries = append(a.entries, e)
	}
	slices.SortStableFunc(a.entries, func(x, y models.ArchivedCard) int {
		return x.DeletedAt.Compare(y.DeletedAt)
	})
	a.purgeLocked(a.clock.Now())
}

// Clear removes every entry.
func (a *Archive) Clear() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries = nil
}

func cloneEntry(e models.ArchivedCard) models.ArchivedCard {
	e.Card = e.Card.Clone()
	return e
}
