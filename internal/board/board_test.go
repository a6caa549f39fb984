package board

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fosterushka/Chronoflow-sub000/internal/clock"
	"github.com/fosterushka/Chronoflow-sub000/internal/ids"
	"github.com/fosterushka/Chronoflow-sub000/internal/models"
)

var epoch = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

func newTestBoard(t *testing.T) (*Board, *clock.Fake) {
	t.Helper()
	fc := clock.NewFake(epoch)
	return New(fc, WithIDGenerator(ids.Sequence("id")), WithDebug(true)), fc
}

func addCard(t *testing.T, b *Board, col models.ColumnID, title string) *models.Card {
	t.Helper()
	card, err := b.AddCard(col, CardFields{Title: title})
	require.NoError(t, err)
	return card
}

func intPtr(v int) *int { return &v }

func TestNew_DefaultColumns(t *testing.T) {
	b, _ := newTestBoard(t)

	cols := b.Columns()
	require.Len(t, cols, 5)
	want := []models.ColumnID{models.ColumnTodo, models.ColumnInProgress, models.ColumnCodeReview, models.ColumnTesting, models.ColumnDone}
	for i, c := range cols {
		assert.Equal(t, want[i], c.ID)
		assert.Empty(t, c.Cards)
	}
}

func TestAddCard(t *testing.T) {
	b, _ := newTestBoard(t)

	card, err := b.AddCard(models.ColumnTodo, CardFields{
		Title:            "  Write parser  ",
		Checklist:        []models.ChecklistItem{{Text: "lexer"}},
		EstimatedMinutes: intPtr(30),
	})
	require.NoError(t, err)

	assert.Equal(t, "Write parser", card.Title)
	assert.Equal(t, epoch, card.CreatedAt)
	assert.Equal(t, epoch, card.UpdatedAt)
	assert.False(t, card.IsTracking)
	assert.NotEmpty(t, card.Checklist[0].ID)
	require.Len(t, card.AuditHistory, 1)
	assert.Equal(t, models.AuditCreate, card.AuditHistory[0].Type)
	assert.Equal(t, models.ColumnTodo, card.AuditHistory[0].ColumnID)

	col, err := b.Column(models.ColumnTodo)
	require.NoError(t, err)
	require.Len(t, col.Cards, 1)
	assert.Equal(t, card.ID, col.Cards[0].ID)
}

func TestAddCard_Validation(t *testing.T) {
	b, _ := newTestBoard(t)

	_, err := b.AddCard(models.ColumnTodo, CardFields{Title: "   "})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = b.AddCard("backlog", CardFields{Title: "x"})
	assert.ErrorIs(t, err, ErrValidation)
	assert.ErrorIs(t, err, ErrColumnNotFound)

	_, err = b.AddCard(models.ColumnTodo, CardFields{Title: "x", EstimatedMinutes: intPtr(-1)})
	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "estimatedMinutes", ve.Field)

	assert.Zero(t, b.Snapshot().CardCount(), "rejected adds leave the board unchanged")
}

func TestReadsReturnCopies(t *testing.T) {
	b, _ := newTestBoard(t)
	card := addCard(t, b, models.ColumnTodo, "A")

	got, _, err := b.Card(card.ID)
	require.NoError(t, err)
	got.Title = "mutated"
	got.AuditHistory = nil

	again, _, err := b.Card(card.ID)
	require.NoError(t, err)
	assert.Equal(t, "A", again.Title)
	assert.Len(t, again.AuditHistory, 1)
}

func TestMoveCard(t *testing.T) {
	b, fc := newTestBoard(t)
	a := addCard(t, b, models.ColumnTodo, "A")
	addCard(t, b, models.ColumnInProgress, "B")

	fc.Advance(time.Minute)
	moved, err := b.MoveCard(a.ID, models.ColumnTodo, models.ColumnInProgress)
	require.NoError(t, err)

	col, err := b.Column(models.ColumnInProgress)
	require.NoError(t, err)
	require.Len(t, col.Cards, 2)
	assert.Equal(t, a.ID, col.Cards[1].ID, "moved card is appended")

	last := moved.AuditHistory[len(moved.AuditHistory)-1]
	assert.Equal(t, models.AuditMove, last.Type)
	assert.Equal(t, "todo", last.OldValue)
	assert.Equal(t, "inProgress", last.NewValue)
	assert.Equal(t, epoch.Add(time.Minute), moved.UpdatedAt)
}

func TestMoveCard_Errors(t *testing.T) {
	b, _ := newTestBoard(t)
	a := addCard(t, b, models.ColumnTodo, "A")

	_, err := b.MoveCard(a.ID, models.ColumnInProgress, models.ColumnDone)
	assert.ErrorIs(t, err, ErrCardNotFound, "card must be in the source column")

	_, err = b.MoveCard(a.ID, models.ColumnTodo, "nowhere")
	assert.ErrorIs(t, err, ErrColumnNotFound)

	_, err = b.MoveCard(a.ID, models.ColumnTodo, models.ColumnTodo)
	assert.ErrorIs(t, err, ErrValidation)

	card, col, err := b.Card(a.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ColumnTodo, col)
	assert.Len(t, card.AuditHistory, 1)
}

func TestDeleteAndRestore(t *testing.T) {
	b, fc := newTestBoard(t)
	a := addCard(t, b, models.ColumnTesting, "A")

	fc.Advance(time.Hour)
	entry, err := b.DeleteCard(a.ID, models.ColumnTesting)
	require.NoError(t, err)
	assert.Equal(t, models.ColumnTesting, entry.OriginalColumnID)
	assert.Equal(t, epoch.Add(time.Hour), entry.DeletedAt)

	_, _, err = b.Card(a.ID)
	assert.ErrorIs(t, err, ErrCardNotFound)
	assert.Equal(t, 1, b.Archive().Len())

	restored, col, err := b.RestoreCard(a.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ColumnTesting, col)
	assert.Equal(t, a.ID, restored.ID)
	assert.Equal(t, 0, b.Archive().Len())

	_, _, err = b.RestoreCard(a.ID)
	assert.ErrorIs(t, err, ErrArchiveNotFound)
}

func TestRestore_MissingColumnFallsBackToTodo(t *testing.T) {
	fc := clock.NewFake(epoch)
	b := New(fc, WithSnapshot(&models.Snapshot{Columns: []*models.Column{
		{ID: models.ColumnTodo, Title: "To Do"},
		{ID: "qa", Title: "QA", Cards: []*models.Card{{ID: "c1", Title: "A"}}},
	}}))

	_, err := b.DeleteCard("c1", "qa")
	require.NoError(t, err)
	require.NoError(t, b.Replace(&models.Snapshot{Columns: []*models.Column{{ID: models.ColumnTodo, Title: "To Do"}}}))

	_, col, err := b.RestoreCard("c1")
	require.NoError(t, err)
	assert.Equal(t, models.ColumnTodo, col)
}

func TestRestore_Expired(t *testing.T) {
	b, fc := newTestBoard(t)
	a := addCard(t, b, models.ColumnTodo, "A")
	_, err := b.DeleteCard(a.ID, models.ColumnTodo)
	require.NoError(t, err)

	fc.Advance(25 * time.Hour)
	_, _, err = b.RestoreCard(a.ID)
	assert.ErrorIs(t, err, ErrArchiveNotFound)
}

func TestAddComment(t *testing.T) {
	b, _ := newTestBoard(t)
	a := addCard(t, b, models.ColumnTodo, "A")

	card, err := b.AddComment(a.ID, "looks good")
	require.NoError(t, err)
	last := card.AuditHistory[len(card.AuditHistory)-1]
	assert.Equal(t, models.AuditComment, last.Type)
	assert.Equal(t, "looks good", last.NewValue)

	_, err = b.AddComment(a.ID, " ")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestResolveCard(t *testing.T) {
	b := New(clock.NewFake(epoch), WithIDGenerator(ids.Sequence("card")))
	a := addCard(t, b, models.ColumnTodo, "Fix login")
	addCard(t, b, models.ColumnTodo, "Write docs")

	got, _, err := b.ResolveCard(a.ID)
	require.NoError(t, err)
	assert.Equal(t, a.ID, got.ID)

	got, _, err = b.ResolveCard("fix LOGIN")
	require.NoError(t, err)
	assert.Equal(t, a.ID, got.ID)

	_, _, err = b.ResolveCard("card")
	assert.ErrorIs(t, err, ErrValidation, "prefix shared by both cards is ambiguous")

	_, _, err = b.ResolveCard("nope")
	assert.ErrorIs(t, err, ErrCardNotFound)
}

func TestSubscribe_EventsInOrder(t *testing.T) {
	b, _ := newTestBoard(t)

	var got []EventType
	unsubscribe := b.Subscribe(func(e Event) { got = append(got, e.Type) })

	a := addCard(t, b, models.ColumnTodo, "A")
	_, err := b.MoveCard(a.ID, models.ColumnTodo, models.ColumnInProgress)
	require.NoError(t, err)
	_, err = b.StartTracking(models.ColumnInProgress, a.ID)
	require.NoError(t, err)
	_, err = b.MoveCard(a.ID, models.ColumnInProgress, models.ColumnDone)
	require.NoError(t, err)

	unsubscribe()
	addCard(t, b, models.ColumnTodo, "B")

	assert.Equal(t, []EventType{
		EventCardAdded,
		EventCardMoved,
		EventTrackingStarted,
		EventTrackingStopped,
		EventCardMoved,
	}, got)
}

func TestSubscribe_ObserverCanReadBoard(t *testing.T) {
	b, _ := newTestBoard(t)

	var titles []string
	b.Subscribe(func(e Event) {
		card, _, err := b.Card(e.CardID)
		if err == nil {
			titles = append(titles, card.Title)
		}
	})
	addCard(t, b, models.ColumnTodo, "A")
	assert.Equal(t, []string{"A"}, titles)
}

func TestReplace(t *testing.T) {
	b, _ := newTestBoard(t)
	addCard(t, b, models.ColumnTodo, "old")

	started := epoch.Add(-time.Hour)
	snap := &models.Snapshot{Columns: []*models.Column{
		{ID: models.ColumnTodo, Title: "To Do"},
		{ID: models.ColumnInProgress, Title: "In Progress", Cards: []*models.Card{
			{ID: "c1", Title: "Imported", TimeSpentSeconds: 90, IsTracking: true, TrackingStartedAt: &started},
		}},
	}}
	require.NoError(t, b.Replace(snap))

	card, col, err := b.Card("c1")
	require.NoError(t, err)
	assert.Equal(t, models.ColumnInProgress, col)
	assert.False(t, card.IsTracking)
	assert.Nil(t, card.TrackingStartedAt)
	assert.Equal(t, int64(90), card.TimeSpentSeconds)
	assert.True(t, snap.Columns[1].Cards[0].IsTracking, "caller's snapshot is not modified")
}

func TestReplace_RejectsDuplicates(t *testing.T) {
	b, _ := newTestBoard(t)
	a := addCard(t, b, models.ColumnTodo, "keep")

	err := b.Replace(&models.Snapshot{Columns: []*models.Column{
		{ID: models.ColumnTodo, Title: "To Do", Cards: []*models.Card{{ID: "x", Title: "1"}, {ID: "x", Title: "2"}}},
	}})
	assert.ErrorIs(t, err, ErrValidation)

	_, _, err = b.Card(a.ID)
	assert.NoError(t, err, "failed replace leaves the board unchanged")
}

func TestReset_KeepsLabels(t *testing.T) {
	b, _ := newTestBoard(t)
	addCard(t, b, models.ColumnTodo, "A")
	_, err := b.AddLabel("bug", "red")
	require.NoError(t, err)

	require.NoError(t, b.Reset())
	assert.Zero(t, b.Snapshot().CardCount())
	assert.Len(t, b.Labels(), 1)
}

func TestConcurrentMutations(t *testing.T) {
	b := New(clock.NewFake(epoch), WithDebug(true))
	cards := make([]*models.Card, 8)
	for i := range cards {
		c, err := b.AddCard(models.ColumnInProgress, CardFields{Title: "task"})
		require.NoError(t, err)
		cards[i] = c
	}

	var wg sync.WaitGroup
	for _, c := range cards {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				_, _ = b.ToggleTracking(models.ColumnInProgress, id)
				_ = b.Columns()
			}
		}(c.ID)
	}
	wg.Wait()

	assert.LessOrEqual(t, len(b.TrackingCards()), 1)
	assert.NoError(t, b.Verify())
}
