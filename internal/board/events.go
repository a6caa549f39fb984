package board

import (
	"time"

	"github.com/fosterushka/Chronoflow-sub000/internal/models"
)

// EventType names a committed board mutation.
type EventType string

const (
	EventCardAdded       EventType = "card_added"
	EventCardEdited      EventType = "card_edited"
	EventCardMoved       EventType = "card_moved"
	EventCardDeleted     EventType = "card_deleted"
	EventCardRestored    EventType = "card_restored"
	EventCommentAdded    EventType = "comment_added"
	EventTrackingStarted EventType = "tracking_started"
	EventTrackingStopped EventType = "tracking_stopped"
	EventLabelsChanged   EventType = "labels_changed"
	EventBoardReplaced   EventType = "board_replaced"
)

// Event describes one committed mutation. Fields lists the audit field names
// an edit changed.
type Event struct {
	Type     EventType       `json:"type"`
	CardID   string          `json:"cardId,omitempty"`
	ColumnID models.ColumnID `json:"columnId,omitempty"`
	Fields   []string        `json:"fields,omitempty"`
	At       time.Time       `json:"at"`
}

// Changed reports whether the event edited the named audit field.
func (e Event) Changed(field string) bool {
	for _, f := range e.Fields {
		if f == field {
			return true
		}
	}
	return false
}

// Observer receives events after the mutation has been committed.
type Observer func(Event)

// Subscribe registers fn for every future event and returns a function that
// removes it. Observers run on the mutating goroutine, one at a time.
func (b *Board) Subscribe(fn Observer) func() {
	b.obsMu.Lock()
	b.nextObs++
	id := b.nextObs
	b.observers = append(b.observers, observer{id: id, fn: fn})
	b.obsMu.Unlock()

	return func() {
		b.obsMu.Lock()
		defer b.obsMu.Unlock()
		for i, o := range b.observers {
			if o.id == id {
				b.observers = append(b.observers[:i:i], b.observers[i+1:]...)
				return
			}
		}
	}
}

func (b *Board) emit(e Event) {
	b.obsMu.Lock()
	obs := make([]observer, len(b.observers))
	copy(obs, b.observers)
	b.obsMu.Unlock()

	for _, o := range obs {
		o.fn(e)
	}
}
