package board

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fosterushka/Chronoflow-sub000/internal/models"
)

func TestLabels(t *testing.T) {
	b, _ := newTestBoard(t)

	bug, err := b.AddLabel("bug", "red")
	require.NoError(t, err)
	_, err = b.AddLabel("BUG", "")
	assert.ErrorIs(t, err, ErrValidation)

	feat, err := b.AddLabel("feature", "")
	require.NoError(t, err)
	assert.Equal(t, DefaultLabelColor, feat.Color)

	got, err := b.Label("Bug")
	require.NoError(t, err)
	assert.Equal(t, bug.ID, got.ID)
	assert.Len(t, b.Labels(), 2)
}

func TestDeleteLabel_Cascades(t *testing.T) {
	b, _ := newTestBoard(t)
	bug, err := b.AddLabel("bug", "red")
	require.NoError(t, err)

	a, err := b.AddCard(models.ColumnTodo, CardFields{Title: "A", Labels: []string{bug.ID, "other"}})
	require.NoError(t, err)
	c := addCard(t, b, models.ColumnTodo, "C")

	affected, err := b.DeleteLabel(bug.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{a.ID}, affected)
	assert.Empty(t, b.Labels())

	card, _, err := b.Card(a.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"other"}, card.Labels)
	u := updates(card)
	require.Len(t, u, 1)
	assert.Equal(t, FieldLabels, u[0].Field)

	untouched, _, err := b.Card(c.ID)
	require.NoError(t, err)
	assert.Len(t, untouched.AuditHistory, 1)

	_, err = b.DeleteLabel(bug.ID)
	assert.ErrorIs(t, err, ErrLabelNotFound)
}

func TestCardsFilter(t *testing.T) {
	b, fc := newTestBoard(t)
	past := epoch.Add(-time.Hour)

	a, err := b.AddCard(models.ColumnInProgress, CardFields{Title: "Fix login", Labels: []string{"bug"}, DueDate: &past})
	require.NoError(t, err)
	_, err = b.AddCard(models.ColumnTodo, CardFields{Title: "Docs", Description: "login page help"})
	require.NoError(t, err)
	_, err = b.AddCard(models.ColumnDone, CardFields{Title: "Old", DueDate: &past})
	require.NoError(t, err)
	_, err = b.StartTracking(models.ColumnInProgress, a.ID)
	require.NoError(t, err)
	fc.Advance(time.Minute)

	assert.Len(t, b.Cards(Filter{}), 3)
	assert.Len(t, b.Cards(Filter{Text: "LOGIN"}), 2)
	assert.Len(t, b.Cards(Filter{Label: "bug"}), 1)
	assert.Len(t, b.Cards(Filter{ColumnID: models.ColumnTodo}), 1)

	tracking := b.Cards(Filter{TrackingOnly: true})
	require.Len(t, tracking, 1)
	assert.Equal(t, models.ColumnInProgress, tracking[0].ColumnID)

	overdue := b.Cards(Filter{OverdueOnly: true})
	require.Len(t, overdue, 1, "done cards are never overdue")
	assert.Equal(t, a.ID, overdue[0].Card.ID)
}

func TestCardsFilter_LabelByName(t *testing.T) {
	b, _ := newTestBoard(t)
	bug, err := b.AddLabel("Bug", "red")
	require.NoError(t, err)
	_, err = b.AddCard(models.ColumnTodo, CardFields{Title: "Crash", Labels: []string{bug.ID}})
	require.NoError(t, err)
	_, err = b.AddCard(models.ColumnTodo, CardFields{Title: "Polish"})
	require.NoError(t, err)

	assert.Len(t, b.Cards(Filter{Label: "bug"}), 1)
	assert.Len(t, b.Cards(Filter{Label: bug.ID}), 1)
	assert.Empty(t, b.Cards(Filter{Label: "feature"}))
}
