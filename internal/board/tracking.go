package board

import (
	"time"

	"github.com/fosterushka/Chronoflow-sub000/internal/clock"
	"github.com/fosterushka/Chronoflow-sub000/internal/models"
)

func (b *Board) recorder(now time.Time) recorder {
	return recorder{now: now, newID: b.newID}
}

// cardInColumnLocked finds cardID in the given column only.
func (b *Board) cardInColumnLocked(op string, columnID models.ColumnID, cardID string) (*models.Column, int, error) {
	col := b.columnLocked(columnID)
	if col == nil {
		return nil, -1, notFound(op, ErrColumnNotFound, string(columnID))
	}
	for i, card := range col.Cards {
		if card.ID == cardID {
			return col, i, nil
		}
	}
	return nil, -1, notFound(op, ErrCardNotFound, cardID)
}

// stopLocked ends the tracking session of col.Cards[idx], folding the session
// into TimeSpentSeconds. The caller must know the card is tracking.
func (b *Board) stopLocked(col *models.Column, idx int, now time.Time) Event {
	rec := b.recorder(now)
	card := replaceCard(col, idx, func(card *models.Card) {
		if card.TrackingStartedAt != nil {
			card.TimeSpentSeconds += clock.Elapsed(now, *card.TrackingStartedAt)
		}
		card.IsTracking = false
		card.TrackingStartedAt = nil
		card.UpdatedAt = now
		card.AuditHistory = append(card.AuditHistory, rec.trackingChanged(false, col.ID))
	})
	return Event{Type: EventTrackingStopped, CardID: card.ID, ColumnID: col.ID}
}

// stopOthersLocked stops every tracking card except keepID.
func (b *Board) stopOthersLocked(keepID string, now time.Time) []Event {
	var events []Event
	for _, col := range b.columns {
		for i, card := range col.Cards {
			if card.IsTracking && card.ID != keepID {
				events = append(events, b.stopLocked(col, i, now))
			}
		}
	}
	return events
}

// StartTracking makes the card the board's single active tracker. Any other
// tracking card is stopped first within the same mutation. Starting a card
// that is already tracking changes nothing.
func (b *Board) StartTracking(columnID models.ColumnID, cardID string) (*models.Card, error) {
	var out *models.Card
	err := b.mutate(func(now time.Time) ([]Event, error) {
		col, idx, err := b.cardInColumnLocked("start tracking", columnID, cardID)
		if err != nil {
			return nil, err
		}
		if !columnID.Trackable() {
			return nil, invalid("start tracking", "column", "cannot track time in "+string(columnID))
		}
		if col.Cards[idx].IsTracking {
			out = col.Cards[idx].Clone()
			return nil, nil
		}

		events := b.stopOthersLocked(cardID, now)
		rec := b.recorder(now)
		card := replaceCard(col, idx, func(card *models.Card) {
			start := now
			card.IsTracking = true
			card.TrackingStartedAt = &start
			card.UpdatedAt = now
			card.AuditHistory = append(card.AuditHistory, rec.trackingChanged(true, col.ID))
		})
		out = card.Clone()
		return append(events, Event{Type: EventTrackingStarted, CardID: cardID, ColumnID: col.ID}), nil
	})
	return out, err
}

// StopTracking ends the card's tracking session. It is a no-op for a card
// that is not tracking.
func (b *Board) StopTracking(columnID models.ColumnID, cardID string) (*models.Card, error) {
	var out *models.Card
	err := b.mutate(func(now time.Time) ([]Event, error) {
		col, idx, err := b.cardInColumnLocked("stop tracking", columnID, cardID)
		if err != nil {
			return nil, err
		}
		if !col.Cards[idx].IsTracking {
			out = col.Cards[idx].Clone()
			return nil, nil
		}
		ev := b.stopLocked(col, idx, now)
		out = col.Cards[idx].Clone()
		return []Event{ev}, nil
	})
	return out, err
}

// ToggleTracking starts a stopped card or stops a tracking one.
func (b *Board) ToggleTracking(columnID models.ColumnID, cardID string) (*models.Card, error) {
	card, _, err := b.Card(cardID)
	if err != nil {
		return nil, err
	}
	if card.IsTracking {
		return b.StopTracking(columnID, cardID)
	}
	return b.StartTracking(columnID, cardID)
}

// StopAll stops every tracking card and returns their ids. Sessions call it
// on shutdown so elapsed time is folded into TimeSpentSeconds before saving.
func (b *Board) StopAll() ([]string, error) {
	var stopped []string
	err := b.mutate(func(now time.Time) ([]Event, error) {
		events := b.stopOthersLocked("", now)
		for _, e := range events {
			stopped = append(stopped, e.CardID)
		}
		return events, nil
	})
	return stopped, err
}

// TrackingCard returns a copy of the active tracker and its column, or nil.
func (b *Board) TrackingCard() (*models.Card, models.ColumnID) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, col := range b.columns {
		for _, card := range col.Cards {
			if card.IsTracking {
				return card.Clone(), col.ID
			}
		}
	}
	return nil, ""
}

// TrackingCards returns copies of every tracking card. Outside of a defect
// the slice holds at most one card.
func (b *Board) TrackingCards() []*models.Card {
	b.mu.Lock()
	defer b.mu.Unlock()

	var out []*models.Card
	for _, col := range b.columns {
		for _, card := range col.Cards {
			if card.IsTracking {
				out = append(out, card.Clone())
			}
		}
	}
	return out
}
