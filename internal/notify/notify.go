// Package notify delivers notifications to the user. Delivery is best-effort:
// sinks never return errors and never block the caller for long.
package notify

import (
	"context"
	"log/slog"
	"slices"
	"sync"

	"github.com/fosterushka/Chronoflow-sub000/internal/models"
	"github.com/fosterushka/Chronoflow-sub000/internal/output"
)

// Sink receives notifications.
type Sink interface {
	Notify(n models.Notification)
}

// Func adapts a function to a Sink.
type Func func(n models.Notification)

func (f Func) Notify(n models.Notification) { f(n) }

// Multi fans a notification out to every sink in order.
type Multi []Sink

func (m Multi) Notify(n models.Notification) {
	for _, s := range m {
		if s != nil {
			s.Notify(n)
		}
	}
}

// Discard drops every notification.
var Discard Sink = Func(func(models.Notification) {})

// DefaultRecorderSize is the number of notifications a Recorder keeps when
// created with a non-positive limit.
const DefaultRecorderSize = 100

// Recorder keeps the most recent notifications in memory.
type Recorder struct {
	mu    sync.Mutex
	limit int
	items []models.Notification
}

// NewRecorder creates a recorder keeping at most limit notifications.
func NewRecorder(limit int) *Recorder {
	if limit <= 0 {
		limit = DefaultRecorderSize
	}
	return &Recorder{limit: limit}
}

func (r *Recorder) Notify(n models.Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = append(r.items, n)
	if over := len(r.items) - r.limit; over > 0 {
		r.items = slices.Delete(r.items, 0, over)
	}
}

// List returns the recorded notifications, oldest first.
func (r *Recorder) List() []models.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.items)
}

// Len returns the number of recorded notifications.
func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.items)
}

// Logger writes notifications to a structured logger. Exceeded notifications
// are logged at warn level, everything else at info.
type Logger struct {
	Log *slog.Logger
}

func (l Logger) Notify(n models.Notification) {
	if l.Log == nil {
		return
	}
	level := slog.LevelInfo
	if n.Type == models.NotificationExceeded {
		level = slog.LevelWarn
	}
	l.Log.Log(context.Background(), level, n.Title, "type", n.Type, "card", n.CardID, "message", n.Message)
}

// Console prints notifications for an interactive session.
type Console struct {
	UI *output.UI
}

func (c Console) Notify(n models.Notification) {
	if c.UI == nil {
		return
	}
	switch n.Type {
	case models.NotificationExceeded:
		c.UI.Error("%s: %s", n.Title, n.Message)
	case models.NotificationWarning:
		c.UI.Warning("%s: %s", n.Title, n.Message)
	default:
		c.UI.Info("%s: %s", n.Title, n.Message)
	}
}
