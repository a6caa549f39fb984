package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fosterushka/Chronoflow-sub000/internal/models"
)

var epoch = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "test.db")

	s, err := NewSQLiteStore(dbPath)
	require.NoError(t, err)

	err = s.Migrate(context.Background())
	require.NoError(t, err)

	t.Cleanup(func() { s.Close() })
	return s
}

func testSnapshot() *models.Snapshot {
	started := epoch.Add(-time.Minute)
	est := 25
	cols := models.DefaultColumns()
	cols[1].Cards = []*models.Card{{
		ID:                "c1",
		Title:             "Parser",
		Labels:            []string{"core"},
		EstimatedMinutes:  &est,
		TimeSpentSeconds:  120,
		IsTracking:        true,
		TrackingStartedAt: &started,
		CreatedAt:         epoch,
		UpdatedAt:         epoch,
		AuditHistory: []models.AuditEntry{
			{ID: "a1", Timestamp: epoch, Type: models.AuditCreate, NewValue: "Parser", ColumnID: models.ColumnTodo},
		},
	}}
	return &models.Snapshot{Version: models.SnapshotVersion, ExportedAt: epoch, Columns: cols}
}

func TestNewSQLiteStore_CreatesDirectory(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "subdir", "test.db")

	s, err := NewSQLiteStore(dbPath)
	require.NoError(t, err)
	defer s.Close()

	_, err = os.Stat(filepath.Join(dir, "subdir"))
	assert.NoError(t, err, "should create parent directory")
}

func TestMigrate_Idempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	// Running migrate again should be a no-op
	err := s.Migrate(ctx)
	assert.NoError(t, err)
}

// --- Board ---

func TestLoad_Empty(t *testing.T) {
	s := newTestStore(t)

	snap, err := s.Load(context.Background())
	require.NoError(t, err)
	assert.Nil(t, snap)
}

func TestSaveLoad_Rehydrates(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, testSnapshot()))

	got, err := s.Load(ctx)
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Len(t, got.Columns, 5)
	require.Len(t, got.Columns[1].Cards, 1)

	card := got.Columns[1].Cards[0]
	assert.Equal(t, "Parser", card.Title)
	assert.Equal(t, int64(120), card.TimeSpentSeconds, "accumulated time is preserved")
	assert.False(t, card.IsTracking, "tracking never survives a reload")
	assert.Nil(t, card.TrackingStartedAt)
	require.NotNil(t, card.EstimatedMinutes)
	assert.Equal(t, 25, *card.EstimatedMinutes)
	require.Len(t, card.AuditHistory, 1)
	assert.Equal(t, models.AuditCreate, card.AuditHistory[0].Type)
	assert.NotNil(t, got.Columns[0].Cards, "empty columns load as empty slices")
}

func TestSave_Overwrites(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, testSnapshot()))
	require.NoError(t, s.Save(ctx, &models.Snapshot{Version: 1, Columns: models.DefaultColumns()}))

	got, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Zero(t, got.CardCount())
}

func TestLoad_CorruptIsStorageError(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.db.ExecContext(ctx, `INSERT INTO board_state (key, value, updated_at) VALUES ('board', '{not json', ?)`, epoch)
	require.NoError(t, err)

	_, err = s.Load(ctx)
	require.Error(t, err)
	assert.True(t, IsStorageError(err))
}

func TestClosedStoreErrors(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Close())

	err := s.Save(context.Background(), testSnapshot())
	var se *StorageError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, "save board", se.Op)
}

// --- Archive ---

func TestArchiveRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	card := testSnapshot().Columns[1].Cards[0]
	entries := []models.ArchivedCard{
		{Card: card, DeletedAt: epoch.Add(time.Hour), OriginalColumnID: models.ColumnInProgress},
		{Card: &models.Card{ID: "c2", Title: "Old"}, DeletedAt: epoch, OriginalColumnID: models.ColumnDone},
		{Card: nil, DeletedAt: epoch},
	}
	require.NoError(t, s.SaveArchive(ctx, entries))

	got, err := s.LoadArchive(ctx)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "c2", got[0].Card.ID, "ordered by deletion time")
	assert.Equal(t, models.ColumnDone, got[0].OriginalColumnID)
	assert.Equal(t, "c1", got[1].Card.ID)
	assert.True(t, got[1].DeletedAt.Equal(epoch.Add(time.Hour)))
	assert.False(t, got[1].Card.IsTracking)
	assert.Equal(t, int64(120), got[1].Card.TimeSpentSeconds)

	require.NoError(t, s.SaveArchive(ctx, nil))
	got, err = s.LoadArchive(ctx)
	require.NoError(t, err)
	assert.Empty(t, got, "save replaces the whole archive")
}

// --- Notifications ---

func TestNotifications(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for i, n := range []models.Notification{
		{ID: "n1", CardID: "c1", Type: models.NotificationWarning, Title: "Time warning", Message: "half", Timestamp: epoch},
		{ID: "n2", CardID: "c1", Type: models.NotificationExceeded, Title: "Exceeded", Message: "over", Timestamp: epoch.Add(time.Minute)},
		{ID: "n3", CardID: "c2", Type: models.NotificationInfo, Title: "Info", Timestamp: epoch.Add(2 * time.Minute)},
	} {
		require.NoError(t, s.AddNotification(ctx, n), "notification %d", i)
	}

	all, err := s.ListNotifications(ctx, NotificationFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "n3", all[0].ID, "newest first")
	assert.Equal(t, models.NotificationInfo, all[0].Type)
	assert.True(t, all[2].Timestamp.Equal(epoch))

	forCard, err := s.ListNotifications(ctx, NotificationFilter{CardID: "c1", Limit: 1})
	require.NoError(t, err)
	require.Len(t, forCard, 1)
	assert.Equal(t, "n2", forCard[0].ID)

	n, err := s.ClearNotifications(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	all, err = s.ListNotifications(ctx, NotificationFilter{})
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestAddNotification_DuplicateID(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	n := models.Notification{ID: "n1", Type: models.NotificationInfo, Title: "x", Timestamp: epoch}
	require.NoError(t, s.AddNotification(ctx, n))
	err := s.AddNotification(ctx, n)
	assert.True(t, IsStorageError(err))
}
