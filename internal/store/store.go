package store

import (
	"context"
	"errors"

	"github.com/fosterushka/Chronoflow-sub000/internal/models"
)

// Store persists the board between sessions. Tracking state never survives a
// load: every loaded card has IsTracking false and no start time, with its
// accumulated TimeSpentSeconds preserved.
type Store interface {
	// Board
	Load(ctx context.Context) (*models.Snapshot, error) // nil, nil when nothing is saved
	Save(ctx context.Context, snap *models.Snapshot) error

	// Archive
	LoadArchive(ctx context.Context) ([]models.ArchivedCard, error)
	SaveArchive(ctx context.Context, entries []models.ArchivedCard) error

	// Notifications
	AddNotification(ctx context.Context, n models.Notification) error
	ListNotifications(ctx context.Context, filter NotificationFilter) ([]models.Notification, error)
	ClearNotifications(ctx context.Context) (int64, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// NotificationFilter narrows a notification listing. Results are newest first.
type NotificationFilter struct {
	CardID string
	Limit  int
}

// StorageError wraps any failure to read or write persisted state.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return "storage: " + e.Op + ": " + e.Err.Error()
}

func (e *StorageError) Unwrap() error { return e.Err }

// IsStorageError reports whether err is or wraps a StorageError.
func IsStorageError(err error) bool {
	var se *StorageError
	return errors.As(err, &se)
}

func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StorageError{Op: op, Err: err}
}
