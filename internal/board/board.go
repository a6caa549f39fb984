// Package board is the authoritative in-memory kanban board: columns, cards,
// the tracking engine and the audit recorder.
//
// Every mutation runs inside one critical section and is validated before
// anything changes, so observers never see a half-applied operation. Cards are
// copy-on-write: a mutation replaces the card value held by its column, and
// reads hand out deep copies.
package board

import (
	"io"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/fosterushka/Chronoflow-sub000/internal/archive"
	"github.com/fosterushka/Chronoflow-sub000/internal/clock"
	"github.com/fosterushka/Chronoflow-sub000/internal/ids"
	"github.com/fosterushka/Chronoflow-sub000/internal/models"
)

// Board holds the column→card graph.
type Board struct {
	mu      sync.Mutex
	columns []*models.Column
	labels  []models.Label

	clock   clock.Clock
	archive *archive.Archive
	newID   ids.Generator
	logger  *slog.Logger
	debug   bool

	// pending holds events not yet delivered; guarded by mu. dispatchMu
	// serializes delivery so observers see events in mutation order.
	pending    []Event
	dispatchMu sync.Mutex
	obsMu      sync.Mutex
	nextObs    int
	observers  []observer
}

type observer struct {
	id int
	fn Observer
}

// Option configures a Board.
type Option func(*Board)

// WithArchive sets the archive deleted cards are handed to.
func WithArchive(a *archive.Archive) Option {
	return func(b *Board) { b.archive = a }
}

// WithIDGenerator overrides ULID generation.
func WithIDGenerator(gen ids.Generator) Option {
	return func(b *Board) { b.newID = gen }
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(b *Board) { b.logger = l }
}

// WithDebug makes invariant violations panic instead of only being logged.
func WithDebug(debug bool) Option {
	return func(b *Board) { b.debug = debug }
}

// WithSnapshot seeds the board from a persisted snapshot. Tracking state is
// cleared on every card.
func WithSnapshot(s *models.Snapshot) Option {
	return func(b *Board) {
		if s == nil || len(s.Columns) == 0 {
			return
		}
		snap := s.Clone()
		snap.Rehydrate()
		b.columns = snap.Columns
		b.labels = snap.Labels
	}
}

// New creates a board with the five default columns. A nil clock reads the
// system time.
func New(c clock.Clock, opts ...Option) *Board {
	if c == nil {
		c = clock.System{}
	}
	b := &Board{
		columns: models.DefaultColumns(),
		clock:   c,
		newID:   ids.New,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.archive == nil {
		b.archive = archive.New(c, archive.DefaultRetention)
	}
	return b
}

// Archive returns the archive deleted cards are moved to.
func (b *Board) Archive() *archive.Archive {
	return b.archive
}

// Now returns the board clock's current time.
func (b *Board) Now() time.Time {
	return b.clock.Now()
}

// mutate runs fn under the board lock and, if it succeeds, checks invariants,
// queues the returned events and delivers them once the lock is released.
func (b *Board) mutate(fn func(now time.Time) ([]Event, error)) error {
	if err := b.apply(fn); err != nil {
		return err
	}
	b.flush()
	return nil
}

func (b *Board) apply(fn func(now time.Time) ([]Event, error)) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.clock.Now()
	events, err := fn(now)
	if err != nil {
		return err
	}
	b.checkInvariantsLocked()

	for i := range events {
		events[i].At = now
	}
	b.pending = append(b.pending, events...)
	return nil
}

// flush delivers queued events in mutation order. Observers run without the
// board lock held, so they may read the board, but they must not mutate it.
func (b *Board) flush() {
	b.dispatchMu.Lock()
	defer b.dispatchMu.Unlock()

	for {
		b.mu.Lock()
		batch := b.pending
		b.pending = nil
		b.mu.Unlock()

		if len(batch) == 0 {
			return
		}
		for _, e := range batch {
			b.emit(e)
		}
	}
}

// --- lookups (callers hold mu) ---

func (b *Board) columnLocked(id models.ColumnID) *models.Column {
	for _, c := range b.columns {
		if c.ID == id {
			return c
		}
	}
	return nil
}

func (b *Board) findCardLocked(cardID string) (*models.Column, int) {
	for _, c := range b.columns {
		for i, card := range c.Cards {
			if card.ID == cardID {
				return c, i
			}
		}
	}
	return nil, -1
}

// replaceCard swaps in a modified copy of the card at col.Cards[idx].
func replaceCard(col *models.Column, idx int, fn func(card *models.Card)) *models.Card {
	card := col.Cards[idx].Clone()
	fn(card)
	col.Cards[idx] = card
	return card
}

// --- reads ---

// Columns returns a deep copy of every column in display order.
func (b *Board) Columns() []*models.Column {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]*models.Column, len(b.columns))
	for i, c := range b.columns {
		out[i] = c.Clone()
	}
	return out
}

// Column returns a copy of one column.
func (b *Board) Column(id models.ColumnID) (*models.Column, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	c := b.columnLocked(id)
	if c == nil {
		return nil, notFound("get column", ErrColumnNotFound, string(id))
	}
	return c.Clone(), nil
}

// Card returns a copy of a card and the column holding it.
func (b *Board) Card(cardID string) (*models.Card, models.ColumnID, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	col, idx := b.findCardLocked(cardID)
	if col == nil {
		return nil, "", notFound("get card", ErrCardNotFound, cardID)
	}
	return col.Cards[idx].Clone(), col.ID, nil
}

// ResolveCard finds a card by exact id, or by a unique id prefix or a unique
// case-insensitive title match, so the CLI can accept short references.
func (b *Board) ResolveCard(ref string) (*models.Card, models.ColumnID, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if col, idx := b.findCardLocked(ref); col != nil {
		return col.Cards[idx].Clone(), col.ID, nil
	}

	var (
		match    *models.Card
		matchCol models.ColumnID
		count    int
	)
	lower := strings.ToLower(ref)
	for _, c := range b.columns {
		for _, card := range c.Cards {
			if strings.HasPrefix(strings.ToLower(card.ID), lower) || strings.EqualFold(card.Title, ref) {
				match, matchCol = card, c.ID
				count++
			}
		}
	}
	switch {
	case count == 1:
		return match.Clone(), matchCol, nil
	case count > 1:
		return nil, "", invalid("resolve card", "", "reference "+ref+" is ambiguous")
	default:
		return nil, "", notFound("resolve card", ErrCardNotFound, ref)
	}
}

// LiveElapsed returns the card's accumulated seconds plus, while tracking, the
// seconds of the current session. The value is computed on every call.
func (b *Board) LiveElapsed(cardID string) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	col, idx := b.findCardLocked(cardID)
	if col == nil {
		return 0, notFound("live elapsed", ErrCardNotFound, cardID)
	}
	return LiveElapsed(col.Cards[idx], b.clock.Now()), nil
}

// LiveElapsed computes a card's elapsed seconds at now.
func LiveElapsed(card *models.Card, now time.Time) int64 {
	total := card.TimeSpentSeconds
	if card.IsTracking && card.TrackingStartedAt != nil {
		total += clock.Elapsed(now, *card.TrackingStartedAt)
	}
	return total
}

// Snapshot returns a serializable deep copy of the board.
func (b *Board) Snapshot() *models.Snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()

	snap := &models.Snapshot{
		Version:    models.SnapshotVersion,
		ExportedAt: b.clock.Now(),
		Columns:    make([]*models.Column, len(b.columns)),
		Labels:     slices.Clone(b.labels),
	}
	for i, c := range b.columns {
		snap.Columns[i] = c.Clone()
	}
	return snap
}

// Replace swaps the whole board for the snapshot's columns and labels, e.g. on
// import. Tracking is cleared on every card; accumulated time is preserved.
func (b *Board) Replace(s *models.Snapshot) error {
	if s == nil || len(s.Columns) == 0 {
		return invalid("replace board", "columns", "must not be empty")
	}
	snap := s.Clone()
	snap.Rehydrate()
	if err := validateSnapshot(snap); err != nil {
		return err
	}

	return b.mutate(func(now time.Time) ([]Event, error) {
		b.columns = snap.Columns
		b.labels = snap.Labels
		return []Event{{Type: EventBoardReplaced}}, nil
	})
}

// Reset empties the board back to the five default columns. Labels are kept.
func (b *Board) Reset() error {
	return b.mutate(func(now time.Time) ([]Event, error) {
		b.columns = models.DefaultColumns()
		return []Event{{Type: EventBoardReplaced}}, nil
	})
}

func validateSnapshot(s *models.Snapshot) error {
	seenCols := make(map[models.ColumnID]bool)
	seenCards := make(map[string]bool)
	for _, col := range s.Columns {
		if col == nil || col.ID == "" {
			return invalid("replace board", "column id", "must not be empty")
		}
		if seenCols[col.ID] {
			return invalid("replace board", "column id", "duplicate "+string(col.ID))
		}
		seenCols[col.ID] = true
		for _, card := range col.Cards {
			if card == nil || card.ID == "" {
				return invalid("replace board", "card id", "must not be empty")
			}
			if strings.TrimSpace(card.Title) == "" {
				return invalid("replace board", "card title", "must not be empty")
			}
			if seenCards[card.ID] {
				return invalid("replace board", "card id", "duplicate "+card.ID)
			}
			seenCards[card.ID] = true
		}
	}
	return nil
}
