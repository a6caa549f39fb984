package stats

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fosterushka/Chronoflow-sub000/internal/models"
)

var now = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

func est(m int) *int { return &m }

func TestClassify(t *testing.T) {
	c := NewCalculator(0.5)

	p := c.Classify(models.ColumnTodo, &models.Card{ID: "a"}, now)
	assert.Equal(t, ProgressNone, p.Progress)
	assert.Zero(t, p.Percent)

	p = c.Classify(models.ColumnInProgress, &models.Card{ID: "a", EstimatedMinutes: est(10), TimeSpentSeconds: 120}, now)
	assert.Equal(t, ProgressOnTrack, p.Progress)
	assert.Equal(t, 20, p.Percent)

	p = c.Classify(models.ColumnInProgress, &models.Card{ID: "a", EstimatedMinutes: est(10), TimeSpentSeconds: 300}, now)
	assert.Equal(t, ProgressWarning, p.Progress)

	started := now.Add(-5 * time.Minute)
	p = c.Classify(models.ColumnInProgress, &models.Card{
		ID: "a", EstimatedMinutes: est(10), TimeSpentSeconds: 300, IsTracking: true, TrackingStartedAt: &started,
	}, now)
	assert.Equal(t, ProgressExceeded, p.Progress, "live session counts")
	assert.Equal(t, int64(600), p.ElapsedSeconds)
	assert.Equal(t, 100, p.Percent)
	assert.True(t, p.Tracking)
}

func TestClassify_Overdue(t *testing.T) {
	c := NewCalculator(0.5)
	past := now.Add(-time.Hour)

	assert.True(t, c.Classify(models.ColumnTesting, &models.Card{DueDate: &past}, now).Overdue)
	assert.False(t, c.Classify(models.ColumnDone, &models.Card{DueDate: &past}, now).Overdue)
}

func TestCompute(t *testing.T) {
	past := now.Add(-24 * time.Hour)
	started := now.Add(-time.Minute)
	columns := []*models.Column{
		{ID: models.ColumnTodo, Title: "To Do", Cards: []*models.Card{
			{ID: "t1", Title: "late", DueDate: &past},
		}},
		{ID: models.ColumnInProgress, Title: "In Progress", Cards: []*models.Card{
			{ID: "p1", Title: "busy", EstimatedMinutes: est(1), TimeSpentSeconds: 30, IsTracking: true, TrackingStartedAt: &started},
			{ID: "p2", Title: "half", EstimatedMinutes: est(2), TimeSpentSeconds: 70},
		}},
		{ID: models.ColumnDone, Title: "Done", Cards: []*models.Card{
			{ID: "d1", Title: "shipped", TimeSpentSeconds: 100, DueDate: &past},
		}},
	}

	s := NewCalculator(0).Compute(columns, now)

	assert.Equal(t, 4, s.TotalCards)
	assert.Equal(t, 1, s.Completed)
	assert.InDelta(t, 0.25, s.CompletionRate, 0.001)
	assert.Equal(t, int64(90+70+100), s.TimeSpentSeconds)
	assert.Equal(t, 3, s.EstimatedMinutes)

	require.Len(t, s.Columns, 3)
	assert.Equal(t, 2, s.Columns[1].Cards)
	assert.Equal(t, int64(160), s.Columns[1].TimeSpentSeconds)
	assert.Equal(t, 1, s.Columns[0].Overdue)
	assert.Zero(t, s.Columns[2].Overdue)

	require.NotNil(t, s.Tracking)
	assert.Equal(t, "p1", s.Tracking.CardID)
	require.Len(t, s.OverEstimate, 1)
	assert.Equal(t, "p1", s.OverEstimate[0].CardID)
	require.Len(t, s.ApproachingEstimate, 1)
	assert.Equal(t, "p2", s.ApproachingEstimate[0].CardID)
	require.Len(t, s.Overdue, 1)
	assert.Equal(t, "t1", s.Overdue[0].CardID)

	assert.Equal(t, 26, s.Health.Schedule)
	assert.Equal(t, 22, s.Health.Estimates)
	assert.Equal(t, 7, s.Health.Completion)
	assert.Equal(t, s.Health.Schedule+s.Health.Estimates+s.Health.Completion, s.Health.Total)
}

func TestCompute_EmptyBoard(t *testing.T) {
	s := NewCalculator(0.5).Compute(models.DefaultColumns(), now)

	assert.Zero(t, s.TotalCards)
	assert.Zero(t, s.CompletionRate)
	assert.Nil(t, s.Tracking)
	assert.NotNil(t, s.Overdue)
	assert.Equal(t, 100, s.Health.Total, "an empty board is healthy")
}
