package store

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/fosterushka/Chronoflow-sub000/internal/models"

	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const boardKey = "board"

// DefaultNotificationLimit caps ListNotifications when no limit is given.
const DefaultNotificationLimit = 50

// SQLiteStore implements Store using modernc.org/sqlite (pure Go, no CGO).
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteStore opens (or creates) a SQLite database at the given path.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	// Ensure parent directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, wrap("create db directory", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, wrap("open database", err)
	}

	// SQLite only supports one concurrent writer. A single connection
	// serializes autosaves from the HTTP and MCP servers.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, wrap("enable WAL mode", err)
	}

	// Wait on a busy database instead of failing immediately
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		_ = db.Close()
		return nil, wrap("set busy timeout", err)
	}

	return &SQLiteStore{db: db, now: func() time.Time { return time.Now().UTC() }}, nil
}

// Migrate runs all embedded SQL migration files in order.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		filename TEXT PRIMARY KEY,
		applied_at DATETIME NOT NULL DEFAULT (datetime('now'))
	)`)
	if err != nil {
		return wrap("create migrations table", err)
	}

	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return wrap("read migrations dir", err)
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()

		var count int
		err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM schema_migrations WHERE filename = ?", name).Scan(&count)
		if err != nil {
			return wrap("check migration "+name, err)
		}
		if count > 0 {
			continue
		}

		data, err := migrationsFS.ReadFile("migrations/" + name)
		if err != nil {
			return wrap("read migration "+name, err)
		}
		if _, err := s.db.ExecContext(ctx, string(data)); err != nil {
			return wrap("apply migration "+name, err)
		}
		if _, err := s.db.ExecContext(ctx, "INSERT INTO schema_migrations (filename) VALUES (?)", name); err != nil {
			return wrap("record migration "+name, err)
		}
	}

	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// --- Board ---

func (s *SQLiteStore) Load(ctx context.Context) (*models.Snapshot, error) {
	var value string
	err := s.db.QueryRowContext(ctx, "SELECT value FROM board_state WHERE key = ?", boardKey).Scan(&value)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, wrap("load board", err)
	}

	var snap models.Snapshot
	if err := json.Unmarshal([]byte(value), &snap); err != nil {
		return nil, wrap("decode board", err)
	}
	if snap.Version > models.SnapshotVersion {
		return nil, wrap("decode board", fmt.Errorf("unsupported snapshot version %d", snap.Version))
	}
	snap.Rehydrate()
	return &snap, nil
}

func (s *SQLiteStore) Save(ctx context.Context, snap *models.Snapshot) error {
	if snap == nil {
		return wrap("save board", fmt.Errorf("nil snapshot"))
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return wrap("encode board", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO board_state (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		boardKey, string(data), s.now(),
	)
	return wrap("save board", err)
}

// --- Archive ---

func (s *SQLiteStore) LoadArchive(ctx context.Context) ([]models.ArchivedCard, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT original_column, deleted_at, card FROM archived_cards ORDER BY deleted_at`)
	if err != nil {
		return nil, wrap("load archive", err)
	}
	defer func() { _ = rows.Close() }()

	var entries []models.ArchivedCard
	for rows.Next() {
		var (
			col  string
			e    models.ArchivedCard
			card string
		)
		if err := rows.Scan(&col, &e.DeletedAt, &card); err != nil {
			return nil, wrap("scan archived card", err)
		}
		e.OriginalColumnID = models.ColumnID(col)
		if err := json.Unmarshal([]byte(card), &e.Card); err != nil {
			return nil, wrap("decode archived card", err)
		}
		if e.Card == nil {
			continue
		}
		e.Card.IsTracking = false
		e.Card.TrackingStartedAt = nil
		entries = append(entries, e)
	}
	return entries, wrap("load archive", rows.Err())
}

// SaveArchive replaces the stored archive with entries in one transaction.
func (s *SQLiteStore) SaveArchive(ctx context.Context, entries []models.ArchivedCard) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return wrap("begin transaction", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DELETE FROM archived_cards"); err != nil {
		return wrap("clear archive", err)
	}
	for _, e := range entries {
		if e.Card == nil {
			continue
		}
		data, err := json.Marshal(e.Card)
		if err != nil {
			return wrap("encode archived card", err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT OR REPLACE INTO archived_cards (card_id, original_column, deleted_at, card) VALUES (?, ?, ?, ?)`,
			e.Card.ID, string(e.OriginalColumnID), e.DeletedAt.UTC(), string(data),
		); err != nil {
			return wrap("save archived card", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return wrap("commit archive", err)
	}
	return nil
}

// --- Notifications ---

func (s *SQLiteStore) AddNotification(ctx context.Context, n models.Notification) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO notifications (id, card_id, type, title, message, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		n.ID, n.CardID, string(n.Type), n.Title, n.Message, n.Timestamp.UTC(),
	)
	return wrap("add notification", err)
}

func (s *SQLiteStore) ListNotifications(ctx context.Context, filter NotificationFilter) ([]models.Notification, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = DefaultNotificationLimit
	}

	query := `SELECT id, card_id, type, title, message, created_at FROM notifications`
	var args []any
	if filter.CardID != "" {
		query += ` WHERE card_id = ?`
		args = append(args, filter.CardID)
	}
	query += ` ORDER BY created_at DESC, id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, wrap("list notifications", err)
	}
	defer func() { _ = rows.Close() }()

	var out []models.Notification
	for rows.Next() {
		var (
			n   models.Notification
			typ string
		)
		if err := rows.Scan(&n.ID, &n.CardID, &typ, &n.Title, &n.Message, &n.Timestamp); err != nil {
			return nil, wrap("scan notification", err)
		}
		n.Type = models.NotificationType(typ)
		out = append(out, n)
	}
	return out, wrap("list notifications", rows.Err())
}

func (s *SQLiteStore) ClearNotifications(ctx context.Context) (int64, error) {
	result, err := s.db.ExecContext(ctx, "DELETE FROM notifications")
	if err != nil {
		return 0, wrap("clear notifications", err)
	}
	n, _ := result.RowsAffected()
	return n, nil
}
