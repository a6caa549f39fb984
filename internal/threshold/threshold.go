// Package threshold watches tracked time against card estimates and signals
// once when a card passes the warning ratio and once when it runs over.
package threshold

import (
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/fosterushka/Chronoflow-sub000/internal/board"
	"github.com/fosterushka/Chronoflow-sub000/internal/clock"
	"github.com/fosterushka/Chronoflow-sub000/internal/ids"
	"github.com/fosterushka/Chronoflow-sub000/internal/models"
	"github.com/fosterushka/Chronoflow-sub000/internal/notify"
)

// DefaultWarningRatio is the fraction of the estimate that triggers a warning.
const DefaultWarningRatio = 0.5

// Source provides the cards currently being tracked.
type Source interface {
	TrackingCards() []*models.Card
}

type signals struct {
	warning  bool
	exceeded bool
}

// Monitor evaluates tracking cards on every tick. Each card signals at most
// one warning and one exceeded notification until it is reset.
type Monitor struct {
	source Source
	sink   notify.Sink
	newID  ids.Generator
	ratio  float64
	logger *slog.Logger

	mu       sync.Mutex
	signaled map[string]*signals
}

// Option configures a Monitor.
type Option func(*Monitor)

// WithWarningRatio overrides the warning ratio. Values outside (0, 1) are ignored.
func WithWarningRatio(r float64) Option {
	return func(m *Monitor) {
		if r > 0 && r < 1 {
			m.ratio = r
		}
	}
}

// WithIDGenerator overrides notification id generation.
func WithIDGenerator(gen ids.Generator) Option {
	return func(m *Monitor) { m.newID = gen }
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(m *Monitor) { m.logger = l }
}

// New creates a monitor reading tracking cards from source and delivering
// notifications to sink.
func New(source Source, sink notify.Sink, opts ...Option) *Monitor {
	if sink == nil {
		sink = notify.Discard
	}
	m := &Monitor{
		source:   source,
		sink:     sink,
		newID:    ids.New,
		ratio:    DefaultWarningRatio,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		signaled: make(map[string]*signals),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Check evaluates every tracking card with a positive estimate at now and
// delivers the notifications it raises, which are also returned.
//
// A card at or past its estimate signals exceeded, never also warning on
// the same check. Otherwise a card at or past the warning ratio signals
// warning unless it has already signaled either.
func (m *Monitor) Check(now time.Time) []models.Notification {
	var out []models.Notification

	m.mu.Lock()
	for _, card := range m.source.TrackingCards() {
		estimate := card.Estimate()
		if estimate <= 0 {
			continue
		}
		total := board.LiveElapsed(card, now)
		limit := int64(estimate) * 60

		s := m.signaled[card.ID]
		if s == nil {
			s = &signals{}
			m.signaled[card.ID] = s
		}

		switch {
		case total >= limit && !s.exceeded:
			s.exceeded = true
			out = append(out, m.notification(card, models.NotificationExceeded, total, now))
		case float64(total) >= float64(limit)*m.ratio && !s.warning && !s.exceeded:
			s.warning = true
			out = append(out, m.notification(card, models.NotificationWarning, total, now))
		}
	}
	m.mu.Unlock()

	for _, n := range out {
		m.logger.Info("threshold crossed", "card", n.CardID, "type", n.Type)
		m.sink.Notify(n)
	}
	return out
}

func (m *Monitor) notification(card *models.Card, typ models.NotificationType, total int64, now time.Time) models.Notification {
	n := models.Notification{
		ID:        m.newID(),
		Type:      typ,
		Timestamp: now,
		CardID:    card.ID,
	}
	spent := total / 60
	switch typ {
	case models.NotificationExceeded:
		n.Title = "Time estimate exceeded"
		n.Message = fmt.Sprintf("%q has used %d of its %d estimated minutes", card.Title, spent, card.Estimate())
	default:
		n.Title = "Time warning"
		n.Message = fmt.Sprintf("%q has used %d%% of its %d estimated minutes", card.Title, int(m.ratio*100), card.Estimate())
	}
	return n
}

// Reset forgets the signals raised for one card so they may fire again.
func (m *Monitor) Reset(cardID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.signaled, cardID)
}

// ResetAll forgets every raised signal.
func (m *Monitor) ResetAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.signaled = make(map[string]*signals)
}

// Signaled reports which signals a card has raised.
func (m *Monitor) Signaled(cardID string) (warning, exceeded bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s := m.signaled[cardID]; s != nil {
		return s.warning, s.exceeded
	}
	return false, false
}

// Attach runs Check on every tick of src and returns the unsubscribe func.
func (m *Monitor) Attach(src clock.TickSource) func() {
	return src.Subscribe(func(now time.Time) { m.Check(now) })
}

// HandleEvent resets signals when the underlying estimate or card goes away:
// an estimate edit or a deletion resets that card, a board replace resets all.
func (m *Monitor) HandleEvent(e board.Event) {
	switch e.Type {
	case board.EventCardEdited:
		if e.Changed(board.FieldEstimate) {
			m.Reset(e.CardID)
		}
	case board.EventCardDeleted:
		m.Reset(e.CardID)
	case board.EventBoardReplaced:
		m.ResetAll()
	}
}
