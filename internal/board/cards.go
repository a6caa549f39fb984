package board

import (
	"slices"
	"strings"
	"time"

	"github.com/fosterushka/Chronoflow-sub000/internal/models"
)

// AddCard appends a new card to the end of the column. The card gets a fresh
// id, its creation timestamps and a single create entry; it does not track.
func (b *Board) AddCard(columnID models.ColumnID, f CardFields) (*models.Card, error) {
	title := strings.TrimSpace(f.Title)
	if title == "" {
		return nil, invalid("add card", "title", "must not be empty")
	}
	if f.EstimatedMinutes != nil && *f.EstimatedMinutes < 0 {
		return nil, invalid("add card", "estimatedMinutes", "must not be negative")
	}

	var out *models.Card
	err := b.mutate(func(now time.Time) ([]Event, error) {
		col := b.columnLocked(columnID)
		if col == nil {
			return nil, notFound("add card", ErrColumnNotFound, string(columnID))
		}

		card := &models.Card{
			ID:           b.newID(),
			Title:        title,
			Description:  f.Description,
			Labels:       nonEmpty(slices.Clone(f.Labels)),
			Checklist:    nonEmpty(assignChecklistIDs(slices.Clone(f.Checklist), b.newID)),
			Meetings:     nonEmpty(assignMeetingIDs(slices.Clone(f.Meetings), b.newID)),
			RelatedItems: nonEmpty(assignRelatedIDs(slices.Clone(f.RelatedItems), b.newID)),
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if f.DueDate != nil {
			due := *f.DueDate
			card.DueDate = &due
		}
		if f.GitHubIssue != nil && !f.GitHubIssue.IsZero() {
			gh := *f.GitHubIssue
			card.GitHubIssue = &gh
		}
		if f.EstimatedMinutes != nil {
			est := *f.EstimatedMinutes
			card.EstimatedMinutes = &est
		}
		card.AuditHistory = []models.AuditEntry{b.recorder(now).created(card, col.ID)}

		col.Cards = append(col.Cards, card)
		out = card.Clone()
		return []Event{{Type: EventCardAdded, CardID: card.ID, ColumnID: col.ID}}, nil
	})
	return out, err
}

// EditCard applies a partial update. One update entry is recorded for every
// field whose value actually changed; an edit that changes nothing records
// nothing and emits no event.
func (b *Board) EditCard(cardID string, p Patch) (*models.Card, error) {
	var out *models.Card
	err := b.mutate(func(now time.Time) ([]Event, error) {
		col, idx := b.findCardLocked(cardID)
		if col == nil {
			return nil, notFound("edit card", ErrCardNotFound, cardID)
		}

		card := col.Cards[idx].Clone()
		changed, err := applyPatch(card, p, col.ID, b.recorder(now))
		if err != nil {
			return nil, err
		}
		if len(changed) == 0 {
			out = card
			return nil, nil
		}
		card.UpdatedAt = now
		col.Cards[idx] = card
		out = card.Clone()
		return []Event{{Type: EventCardEdited, CardID: cardID, ColumnID: col.ID, Fields: changed}}, nil
	})
	return out, err
}

// MoveCard moves a card from one column to the end of another. Moving a
// tracking card into todo or done stops tracking first, so its status change
// entry precedes the move entry.
func (b *Board) MoveCard(cardID string, from, to models.ColumnID) (*models.Card, error) {
	if from == to {
		return nil, invalid("move card", "column", "card is already in "+string(to))
	}

	var out *models.Card
	err := b.mutate(func(now time.Time) ([]Event, error) {
		src, idx, err := b.cardInColumnLocked("move card", from, cardID)
		if err != nil {
			return nil, err
		}
		dst := b.columnLocked(to)
		if dst == nil {
			return nil, notFound("move card", ErrColumnNotFound, string(to))
		}

		var events []Event
		if src.Cards[idx].IsTracking && !to.Trackable() {
			events = append(events, b.stopLocked(src, idx, now))
		}

		rec := b.recorder(now)
		card := src.Cards[idx].Clone()
		card.UpdatedAt = now
		card.AuditHistory = append(card.AuditHistory, rec.moved(from, to))

		src.Cards = slices.Delete(src.Cards, idx, idx+1)
		dst.Cards = append(dst.Cards, card)
		out = card.Clone()
		return append(events, Event{Type: EventCardMoved, CardID: cardID, ColumnID: to}), nil
	})
	return out, err
}

// DeleteCard removes a card from its column and hands it to the archive,
// stopping tracking first so the session's time is kept.
func (b *Board) DeleteCard(cardID string, columnID models.ColumnID) (models.ArchivedCard, error) {
	var out models.ArchivedCard
	err := b.mutate(func(now time.Time) ([]Event, error) {
		col, idx, err := b.cardInColumnLocked("delete card", columnID, cardID)
		if err != nil {
			return nil, err
		}

		var events []Event
		if col.Cards[idx].IsTracking {
			events = append(events, b.stopLocked(col, idx, now))
		}
		card := col.Cards[idx]
		col.Cards = slices.Delete(col.Cards, idx, idx+1)
		out = b.archive.Archive(card, col.ID)
		return append(events, Event{Type: EventCardDeleted, CardID: cardID, ColumnID: col.ID}), nil
	})
	return out, err
}

// RestoreCard moves an archived card back to the end of its original column,
// or to todo when that column no longer exists.
func (b *Board) RestoreCard(cardID string) (*models.Card, models.ColumnID, error) {
	var (
		out    *models.Card
		target models.ColumnID
	)
	err := b.mutate(func(now time.Time) ([]Event, error) {
		entry, ok := b.archive.Get(cardID)
		if !ok {
			return nil, notFound("restore card", ErrArchiveNotFound, cardID)
		}
		if col, _ := b.findCardLocked(cardID); col != nil {
			return nil, invalid("restore card", "id", "a card with id "+cardID+" is already on the board")
		}

		col := b.columnLocked(entry.OriginalColumnID)
		if col == nil {
			col = b.columnLocked(models.ColumnTodo)
		}
		if col == nil {
			col = b.columns[0]
		}

		card, _, ok := b.archive.Restore(cardID)
		if !ok {
			return nil, notFound("restore card", ErrArchiveNotFound, cardID)
		}
		card.IsTracking = false
		card.TrackingStartedAt = nil
		col.Cards = append(col.Cards, card)

		out, target = card.Clone(), col.ID
		return []Event{{Type: EventCardRestored, CardID: cardID, ColumnID: col.ID}}, nil
	})
	return out, target, err
}

// AddComment appends a comment entry to the card's history.
func (b *Board) AddComment(cardID, text string) (*models.Card, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, invalid("add comment", "text", "must not be empty")
	}

	var out *models.Card
	err := b.mutate(func(now time.Time) ([]Event, error) {
		col, idx := b.findCardLocked(cardID)
		if col == nil {
			return nil, notFound("add comment", ErrCardNotFound, cardID)
		}
		rec := b.recorder(now)
		card := replaceCard(col, idx, func(card *models.Card) {
			card.UpdatedAt = now
			card.AuditHistory = append(card.AuditHistory, rec.comment(text, col.ID))
		})
		out = card.Clone()
		return []Event{{Type: EventCommentAdded, CardID: cardID, ColumnID: col.ID}}, nil
	})
	return out, err
}
