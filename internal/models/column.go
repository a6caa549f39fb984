package models

// ColumnID identifies a workflow stage on the board.
type ColumnID string

const (
	ColumnTodo       ColumnID = "todo"
	ColumnInProgress ColumnID = "inProgress"
	ColumnCodeReview ColumnID = "codeReview"
	ColumnTesting    ColumnID = "testing"
	ColumnDone       ColumnID = "done"
)

// Trackable reports whether time may be tracked for cards in this column.
// The terminal columns (todo and done) never track.
func (c ColumnID) Trackable() bool {
	return c != ColumnTodo && c != ColumnDone
}

// Column is a named, ordered bucket of cards.
type Column struct {
	ID    ColumnID `json:"id" yaml:"id"`
	Title string   `json:"title" yaml:"title"`
	Cards []*Card  `json:"cards" yaml:"cards"`
}

// Clone returns a deep copy of the column and its cards.
func (c *Column) Clone() *Column {
	if c == nil {
		return nil
	}
	out := &Column{ID: c.ID, Title: c.Title, Cards: make([]*Card, len(c.Cards))}
	for i, card := range c.Cards {
		out.Cards[i] = card.Clone()
	}
	return out
}

// DefaultColumns returns the five empty workflow columns of a fresh board.
func DefaultColumns() []*Column {
	return []*Column{
		{ID: ColumnTodo, Title: "To Do", Cards: []*Card{}},
		{ID: ColumnInProgress, Title: "In Progress", Cards: []*Card{}},
		{ID: ColumnCodeReview, Title: "Code Review", Cards: []*Card{}},
		{ID: ColumnTesting, Title: "Testing", Cards: []*Card{}},
		{ID: ColumnDone, Title: "Done", Cards: []*Card{}},
	}
}

// IsKnownColumn reports whether id is one of the standard workflow columns.
func IsKnownColumn(id ColumnID) bool {
	switch id {
	case ColumnTodo, ColumnInProgress, ColumnCodeReview, ColumnTesting, ColumnDone:
		return true
	}
	return false
}
