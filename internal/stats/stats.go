// Package stats derives board statistics: per-column totals, estimate
// progress, overdue cards and an overall board health score. Everything is
// computed from a column snapshot and a point in time; nothing is stored.
package stats

import (
	"time"

	"github.com/fosterushka/Chronoflow-sub000/internal/board"
	"github.com/fosterushka/Chronoflow-sub000/internal/models"
)

// Progress classifies a card's tracked time against its estimate.
type Progress string

const (
	ProgressNone     Progress = "no_estimate"
	ProgressOnTrack  Progress = "on_track"
	ProgressWarning  Progress = "warning"
	ProgressExceeded Progress = "exceeded"
)

// CardProgress is one card's time measured against its estimate.
type CardProgress struct {
	CardID           string          `json:"cardId"`
	Title            string          `json:"title"`
	ColumnID         models.ColumnID `json:"columnId"`
	ElapsedSeconds   int64           `json:"elapsedSeconds"`
	EstimatedMinutes int             `json:"estimatedMinutes"`
	Percent          int             `json:"percent"`
	Progress         Progress        `json:"progress"`
	Tracking         bool            `json:"tracking"`
	Overdue          bool            `json:"overdue"`
}

// ColumnStats aggregates one column.
type ColumnStats struct {
	ColumnID         models.ColumnID `json:"columnId"`
	Title            string          `json:"title"`
	Cards            int             `json:"cards"`
	TimeSpentSeconds int64           `json:"timeSpentSeconds"`
	EstimatedMinutes int             `json:"estimatedMinutes"`
	Overdue          int             `json:"overdue"`
}

// HealthScore rates the board from 0 to 100.
type HealthScore struct {
	Total      int `json:"total"`
	Schedule   int `json:"schedule"`   // 0-40, fewer overdue cards is better
	Estimates  int `json:"estimates"`  // 0-30, fewer cards over estimate is better
	Completion int `json:"completion"` // 0-30, share of cards done
}

// Summary is the whole-board view.
type Summary struct {
	GeneratedAt         time.Time      `json:"generatedAt"`
	TotalCards          int            `json:"totalCards"`
	Completed           int            `json:"completed"`
	CompletionRate      float64        `json:"completionRate"`
	TimeSpentSeconds    int64          `json:"timeSpentSeconds"`
	EstimatedMinutes    int            `json:"estimatedMinutes"`
	Columns             []ColumnStats  `json:"columns"`
	Tracking            *CardProgress  `json:"tracking,omitempty"`
	Overdue             []CardProgress `json:"overdue"`
	OverEstimate        []CardProgress `json:"overEstimate"`
	ApproachingEstimate []CardProgress `json:"approachingEstimate"`
	Health              HealthScore    `json:"health"`
}

// Calculator computes statistics.
type Calculator struct {
	warningRatio float64
}

// NewCalculator returns a calculator classifying cards at or above
// warningRatio of their estimate as warning. Ratios outside (0, 1) fall back
// to one half.
func NewCalculator(warningRatio float64) *Calculator {
	if warningRatio <= 0 || warningRatio >= 1 {
		warningRatio = 0.5
	}
	return &Calculator{warningRatio: warningRatio}
}

// Classify measures a card at now.
func (c *Calculator) Classify(col models.ColumnID, card *models.Card, now time.Time) CardProgress {
	p := CardProgress{
		CardID:           card.ID,
		Title:            card.Title,
		ColumnID:         col,
		ElapsedSeconds:   board.LiveElapsed(card, now),
		EstimatedMinutes: card.Estimate(),
		Tracking:         card.IsTracking,
		Overdue:          col != models.ColumnDone && card.IsOverdue(now),
		Progress:         ProgressNone,
	}
	if p.EstimatedMinutes <= 0 {
		return p
	}

	limit := int64(p.EstimatedMinutes) * 60
	p.Percent = int(p.ElapsedSeconds * 100 / limit)
	switch {
	case p.ElapsedSeconds >= limit:
		p.Progress = ProgressExceeded
	case float64(p.ElapsedSeconds) >= float64(limit)*c.warningRatio:
		p.Progress = ProgressWarning
	default:
		p.Progress = ProgressOnTrack
	}
	return p
}

// Compute summarizes the columns at now.
func (c *Calculator) Compute(columns []*models.Column, now time.Time) *Summary {
	s := &Summary{
		GeneratedAt:         now,
		Columns:             make([]ColumnStats, 0, len(columns)),
		Overdue:             []CardProgress{},
		OverEstimate:        []CardProgress{},
		ApproachingEstimate: []CardProgress{},
	}

	for _, col := range columns {
		cs := ColumnStats{ColumnID: col.ID, Title: col.Title, Cards: len(col.Cards)}
		for _, card := range col.Cards {
			p := c.Classify(col.ID, card, now)
			cs.TimeSpentSeconds += p.ElapsedSeconds
			cs.EstimatedMinutes += p.EstimatedMinutes

			if p.Overdue {
				cs.Overdue++
				s.Overdue = append(s.Overdue, p)
			}
			switch p.Progress {
			case ProgressExceeded:
				s.OverEstimate = append(s.OverEstimate, p)
			case ProgressWarning:
				s.ApproachingEstimate = append(s.ApproachingEstimate, p)
			}
			if p.Tracking && s.Tracking == nil {
				tp := p
				s.Tracking = &tp
			}
		}

		s.Columns = append(s.Columns, cs)
		s.TotalCards += cs.Cards
		s.TimeSpentSeconds += cs.TimeSpentSeconds
		s.EstimatedMinutes += cs.EstimatedMinutes
		if col.ID == models.ColumnDone {
			s.Completed += cs.Cards
		}
	}

	if s.TotalCards > 0 {
		s.CompletionRate = float64(s.Completed) / float64(s.TotalCards)
	}
	s.Health = score(s)
	return s
}

func score(s *Summary) HealthScore {
	h := HealthScore{
		Schedule:   scoreRatio(len(s.Overdue), s.TotalCards-s.Completed, 40),
		Estimates:  scoreRatio(len(s.OverEstimate), s.TotalCards, 30),
		Completion: int(float64(30) * s.CompletionRate),
	}
	if s.TotalCards == 0 {
		h.Completion = 30
	}
	h.Total = h.Schedule + h.Estimates + h.Completion
	return h
}

// scoreRatio gives full points when bad is zero and scales down with the
// share of bad items in total.
func scoreRatio(bad, total, maxPoints int) int {
	if bad == 0 || total <= 0 {
		return maxPoints
	}
	ratio := float64(bad) / float64(total)
	if ratio > 1 {
		ratio = 1
	}
	return int(float64(maxPoints) * (1 - ratio))
}
