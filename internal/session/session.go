// Package session wires a board to its collaborators: persistence, the
// archive, the tick source and the threshold monitor. A Session is what the
// CLI, the HTTP API and the MCP server operate on.
package session

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/fosterushka/Chronoflow-sub000/internal/archive"
	"github.com/fosterushka/Chronoflow-sub000/internal/board"
	"github.com/fosterushka/Chronoflow-sub000/internal/clock"
	"github.com/fosterushka/Chronoflow-sub000/internal/ids"
	"github.com/fosterushka/Chronoflow-sub000/internal/models"
	"github.com/fosterushka/Chronoflow-sub000/internal/notify"
	"github.com/fosterushka/Chronoflow-sub000/internal/stats"
	"github.com/fosterushka/Chronoflow-sub000/internal/store"
	"github.com/fosterushka/Chronoflow-sub000/internal/threshold"
	"github.com/fosterushka/Chronoflow-sub000/internal/transfer"
)

// Config holds the tunables of a session.
type Config struct {
	TickInterval      time.Duration
	Retention         time.Duration
	WarningRatio      float64
	NotificationLimit int
	Debug             bool
}

// DefaultConfig returns the defaults used when no configuration is given.
func DefaultConfig() Config {
	return Config{
		TickInterval:      clock.DefaultInterval,
		Retention:         archive.DefaultRetention,
		WarningRatio:      threshold.DefaultWarningRatio,
		NotificationLimit: notify.DefaultRecorderSize,
	}
}

// Session owns one board and its collaborators.
type Session struct {
	Board   *board.Board
	Monitor *threshold.Monitor
	Recent  *notify.Recorder

	store  store.Store
	clock  clock.Clock
	ticks  clock.TickSource
	ticker *clock.Ticker // nil when ticks are driven externally
	calc   *stats.Calculator
	sink   notify.Sink
	newID  ids.Generator
	logger *slog.Logger

	saveMu    sync.Mutex
	unsub     []func()
	closeOnce sync.Once
	closeErr  error
}

// Option configures a Session.
type Option func(*options)

type options struct {
	logger *slog.Logger
	ticks  clock.TickSource
	sinks  []notify.Sink
	newID  ids.Generator
}

// WithLogger sets the structured logger shared by every component.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithTickSource drives the session from an external tick source, such as a
// fake clock in tests, instead of its own ticker.
func WithTickSource(ts clock.TickSource) Option {
	return func(o *options) { o.ticks = ts }
}

// WithSink adds a notification sink, e.g. a console for interactive use.
func WithSink(s notify.Sink) Option {
	return func(o *options) { o.sinks = append(o.sinks, s) }
}

// WithIDGenerator overrides ULID generation for cards, entries and notifications.
func WithIDGenerator(gen ids.Generator) Option {
	return func(o *options) { o.newID = gen }
}

// Open loads the persisted board and archive and assembles a session. A
// storage failure is not fatal: the session starts from an empty board and
// the failure is logged as a warning.
func Open(ctx context.Context, st store.Store, cfg Config, opts ...Option) (*Session, error) {
	if st == nil {
		return nil, fmt.Errorf("open session: nil store")
	}
	o := options{
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		newID:  ids.New,
	}
	for _, opt := range opts {
		opt(&o)
	}

	s := &Session{
		store:  st,
		calc:   stats.NewCalculator(cfg.WarningRatio),
		newID:  o.newID,
		logger: o.logger,
	}
	if o.ticks != nil {
		s.clock, s.ticks = o.ticks, o.ticks
	} else {
		s.clock = clock.System{}
		s.ticker = clock.NewTicker(cfg.TickInterval, s.clock)
		s.ticks = s.ticker
	}

	snap, err := st.Load(ctx)
	if err != nil {
		s.logger.Warn("cannot load board, starting empty", "error", err)
		snap = nil
	}
	arch := archive.New(s.clock, cfg.Retention)
	if entries, err := st.LoadArchive(ctx); err != nil {
		s.logger.Warn("cannot load archive, starting empty", "error", err)
	} else {
		arch.Load(entries)
	}

	s.Board = board.New(s.clock,
		board.WithSnapshot(snap),
		board.WithArchive(arch),
		board.WithIDGenerator(o.newID),
		board.WithLogger(s.logger),
		board.WithDebug(cfg.Debug),
	)

	s.Recent = notify.NewRecorder(cfg.NotificationLimit)
	sinks := notify.Multi{s.Recent, notify.Func(s.persistNotification), notify.Logger{Log: s.logger}}
	sinks = append(sinks, o.sinks...)
	s.sink = sinks

	s.Monitor = threshold.New(s.Board, sinks,
		threshold.WithWarningRatio(cfg.WarningRatio),
		threshold.WithIDGenerator(o.newID),
		threshold.WithLogger(s.logger),
	)

	s.unsub = append(s.unsub,
		s.Monitor.Attach(s.ticks),
		s.Board.Subscribe(s.Monitor.HandleEvent),
		s.Board.Subscribe(s.autosave),
	)
	return s, nil
}

// Start begins ticking. It is a no-op when ticks are driven externally.
func (s *Session) Start(ctx context.Context) {
	if s.ticker != nil {
		s.ticker.Start(ctx)
	}
}

// Now returns the session's current time.
func (s *Session) Now() time.Time {
	return s.clock.Now()
}

// OnTick calls fn on every tick after the threshold monitor has run. The
// returned function removes the subscription.
func (s *Session) OnTick(fn func(now time.Time)) func() {
	return s.ticks.Subscribe(fn)
}

// Save persists the board and the archive.
func (s *Session) Save(ctx context.Context) error {
	s.saveMu.Lock()
	defer s.saveMu.Unlock()

	if err := s.store.Save(ctx, s.Board.Snapshot()); err != nil {
		return fmt.Errorf("save board: %w", err)
	}
	if err := s.store.SaveArchive(ctx, s.Board.Archive().Entries()); err != nil {
		return fmt.Errorf("save archive: %w", err)
	}
	return nil
}

func (s *Session) autosave(e board.Event) {
	if err := s.Save(context.Background()); err != nil {
		s.logger.Warn("autosave failed", "event", e.Type, "error", err)
	}
}

func (s *Session) persistNotification(n models.Notification) {
	if err := s.store.AddNotification(context.Background(), n); err != nil {
		s.logger.Warn("cannot record notification", "id", n.ID, "error", err)
	}
}

// Close stops the ticker, folds any running tracking session into the card's
// time spent and saves. It is safe to call more than once.
func (s *Session) Close(ctx context.Context) error {
	s.closeOnce.Do(func() {
		if s.ticker != nil {
			s.ticker.Stop()
		}
		if stopped, err := s.Board.StopAll(); err != nil {
			s.logger.Error("stop tracking on close", "error", err)
		} else if len(stopped) > 0 {
			s.logger.Info("stopped tracking on close", "cards", stopped)
		}
		for _, fn := range s.unsub {
			fn()
		}
		s.closeErr = s.Save(ctx)
	})
	return s.closeErr
}

// Stats computes board statistics as of now.
func (s *Session) Stats() *stats.Summary {
	return s.calc.Compute(s.Board.Columns(), s.clock.Now())
}

// Notifications lists persisted notifications, newest first. When the store
// cannot be read the in-memory history of this session is returned instead.
func (s *Session) Notifications(ctx context.Context, filter store.NotificationFilter) ([]models.Notification, error) {
	list, err := s.store.ListNotifications(ctx, filter)
	if err == nil {
		return list, nil
	}
	s.logger.Warn("cannot list notifications, using session history", "error", err)

	recent := s.Recent.List()
	out := make([]models.Notification, 0, len(recent))
	for i := len(recent) - 1; i >= 0; i-- {
		if filter.CardID != "" && recent[i].CardID != filter.CardID {
			continue
		}
		out = append(out, recent[i])
		if filter.Limit > 0 && len(out) == filter.Limit {
			break
		}
	}
	return out, nil
}

// Export writes the board in format f: a snapshot for JSON and YAML, a report
// for CSV and Markdown.
func (s *Session) Export(w io.Writer, f transfer.Format) error {
	if f.Snapshottable() {
		return transfer.Export(w, s.Board.Snapshot(), f)
	}
	return transfer.WriteReport(w, s.Board.Columns(), f, s.clock.Now())
}

// Import replaces the board with the document read from r. A document that
// fails validation leaves the board untouched.
func (s *Session) Import(r io.Reader, f transfer.Format) (*models.Snapshot, error) {
	snap, err := transfer.Import(r, f)
	if err != nil {
		return nil, err
	}
	if _, err := s.Board.StopAll(); err != nil {
		return nil, fmt.Errorf("stop tracking before import: %w", err)
	}
	if err := s.Board.Replace(snap); err != nil {
		return nil, fmt.Errorf("replace board: %w", err)
	}
	s.sink.Notify(models.Notification{
		ID:        s.newID(),
		Title:     "Board imported",
		Message:   fmt.Sprintf("%d cards in %d columns", snap.CardCount(), len(snap.Columns)),
		Type:      models.NotificationInfo,
		Timestamp: s.clock.Now(),
	})
	return snap, nil
}
