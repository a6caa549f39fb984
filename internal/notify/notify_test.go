package notify

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fosterushka/Chronoflow-sub000/internal/models"
	"github.com/fosterushka/Chronoflow-sub000/internal/output"
)

func note(id string, typ models.NotificationType) models.Notification {
	return models.Notification{ID: id, Title: "Time warning", Message: "half the estimate used", Type: typ, CardID: "c1"}
}

func TestRecorder_KeepsMostRecent(t *testing.T) {
	r := NewRecorder(2)
	r.Notify(note("1", models.NotificationWarning))
	r.Notify(note("2", models.NotificationWarning))
	r.Notify(note("3", models.NotificationExceeded))

	got := r.List()
	require.Len(t, got, 2)
	assert.Equal(t, "2", got[0].ID)
	assert.Equal(t, "3", got[1].ID)
	assert.Equal(t, 2, r.Len())
}

func TestRecorder_DefaultLimit(t *testing.T) {
	r := NewRecorder(0)
	for i := 0; i < DefaultRecorderSize+5; i++ {
		r.Notify(note("x", models.NotificationInfo))
	}
	assert.Equal(t, DefaultRecorderSize, r.Len())
}

func TestMulti(t *testing.T) {
	a, b := NewRecorder(10), NewRecorder(10)
	var calls int
	m := Multi{a, nil, b, Func(func(models.Notification) { calls++ })}

	m.Notify(note("1", models.NotificationWarning))
	assert.Equal(t, 1, a.Len())
	assert.Equal(t, 1, b.Len())
	assert.Equal(t, 1, calls)

	Discard.Notify(note("2", models.NotificationInfo))
}

func TestLogger(t *testing.T) {
	var buf bytes.Buffer
	Logger{Log: slog.New(slog.NewTextHandler(&buf, nil))}.Notify(note("1", models.NotificationExceeded))

	assert.Contains(t, buf.String(), "level=WARN")
	assert.Contains(t, buf.String(), "card=c1")

	Logger{}.Notify(note("2", models.NotificationInfo))
}

func TestConsole(t *testing.T) {
	out, errOut := &bytes.Buffer{}, &bytes.Buffer{}
	c := Console{UI: &output.UI{Out: out, ErrOut: errOut}}

	c.Notify(note("1", models.NotificationWarning))
	assert.Contains(t, errOut.String(), "half the estimate used")

	c.Notify(models.Notification{Title: "Saved", Message: "board saved", Type: models.NotificationInfo})
	assert.Contains(t, out.String(), "board saved")
}
