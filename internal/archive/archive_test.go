package archive

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fosterushka/Chronoflow-sub000/internal/clock"
	"github.com/fosterushka/Chronoflow-sub000/internal/models"
)

var epoch = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

func newTestArchive(t *testing.T) (*Archive, *clock.Fake) {
	t.Helper()
	fc := clock.NewFake(epoch)
	return New(fc, DefaultRetention), fc
}

func card(id, title string) *models.Card {
	return &models.Card{ID: id, Title: title, TimeSpentSeconds: 42}
}

func TestArchiveAndRestore(t *testing.T) {
	a, _ := newTestArchive(t)

	entry := a.Archive(card("c1", "Write docs"), models.ColumnTesting)
	assert.Equal(t, epoch, entry.DeletedAt)
	assert.Equal(t, models.ColumnTesting, entry.OriginalColumnID)

	got, col, ok := a.Restore("c1")
	require.True(t, ok)
	assert.Equal(t, "Write docs", got.Title)
	assert.Equal(t, int64(42), got.TimeSpentSeconds)
	assert.Equal(t, models.ColumnTesting, col)

	_, _, ok = a.Restore("c1")
	assert.False(t, ok, "restore removes the entry")
}

func TestRestore_Unknown(t *testing.T) {
	a, _ := newTestArchive(t)
	c, col, ok := a.Restore("missing")
	assert.False(t, ok)
	assert.Nil(t, c)
	assert.Empty(t, col)
}

func TestRetention(t *testing.T) {
	a, fc := newTestArchive(t)
	a.Archive(card("c1", "Old"), models.ColumnTodo)

	fc.Advance(23 * time.Hour)
	_, ok := a.Get("c1")
	assert.True(t, ok, "still restorable within the window")

	fc.Advance(2 * time.Hour)
	assert.Equal(t, 1, a.Purge())

	_, _, ok = a.Restore("c1")
	assert.False(t, ok, "purged after the window")
}

func TestRestore_ExpiredWithoutExplicitPurge(t *testing.T) {
	a, fc := newTestArchive(t)
	a.Archive(card("c1", "Old"), models.ColumnTodo)

	fc.Advance(25 * time.Hour)
	_, _, ok := a.Restore("c1")
	assert.False(t, ok)
	assert.Equal(t, 0, a.Len())
}

func TestRetention_BoundaryIsInclusive(t *testing.T) {
	a, fc := newTestArchive(t)
	a.Archive(card("c1", "Edge"), models.ColumnTodo)

	fc.Advance(DefaultRetention)
	assert.Len(t, a.List(), 1, "exactly at the window the card is kept")

	fc.Advance(time.Second)
	assert.Empty(t, a.List())
}

func TestArchive_PurgesOnArchive(t *testing.T) {
	a, fc := newTestArchive(t)
	a.Archive(card("old", "Old"), models.ColumnTodo)

	fc.Advance(30 * time.Hour)
	a.Archive(card("new", "New"), models.ColumnTodo)

	assert.Equal(t, 1, a.Len())
}

func TestList_NewestFirst(t *testing.T) {
	a, fc := newTestArchive(t)
	a.Archive(card("c1", "First"), models.ColumnTodo)
	fc.Advance(time.Minute)
	a.Archive(card("c2", "Second"), models.ColumnDone)
	fc.Advance(time.Minute)
	a.Archive(card("c3", "Third"), models.ColumnTesting)

	list := a.List()
	require.Len(t, list, 3)
	assert.Equal(t, "c3", list[0].Card.ID)
	assert.Equal(t, "c2", list[1].Card.ID)
	assert.Equal(t, "c1", list[2].Card.ID)
}

func TestArchive_ReplacesSameID(t *testing.T) {
	a, fc := newTestArchive(t)
	a.Archive(card("c1", "v1"), models.ColumnTodo)
	fc.Advance(time.Minute)
	a.Archive(card("c1", "v2"), models.ColumnDone)

	list := a.List()
	require.Len(t, list, 1)
	assert.Equal(t, "v2", list[0].Card.Title)
	assert.Equal(t, models.ColumnDone, list[0].OriginalColumnID)
}

func TestArchive_StoresCopy(t *testing.T) {
	a, _ := newTestArchive(t)
	c := card("c1", "Original")
	a.Archive(c, models.ColumnTodo)

	c.Title = "Mutated"
	got, ok := a.Get("c1")
	require.True(t, ok)
	assert.Equal(t, "Original", got.Card.Title)
}

func TestLoad(t *testing.T) {
	a, _ := newTestArchive(t)
	started := epoch.Add(-time.Hour)
	a.Load([]models.ArchivedCard{
		{Card: &models.Card{ID: "b", Title: "B"}, DeletedAt: epoch.Add(-time.Hour)},
		{Card: &models.Card{ID: "a", Title: "A", IsTracking: true, TrackingStartedAt: &started}, DeletedAt: epoch.Add(-2 * time.Hour)},
		{Card: &models.Card{ID: "expired", Title: "X"}, DeletedAt: epoch.Add(-48 * time.Hour)},
		{Card: nil},
	})

	entries := a.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, "a", entries[0].Card.ID, "sorted by deletion time")
	assert.False(t, entries[0].Card.IsTracking)
	assert.Nil(t, entries[0].Card.TrackingStartedAt)
}

func TestClear(t *testing.T) {
	a, _ := newTestArchive(t)
	a.Archive(card("c1", "x"), models.ColumnTodo)
	a.Clear()
	assert.Equal(t, 0, a.Len())
}
