package models

import (
	"slices"
	"time"
)

// ChecklistItem is one line of a card's checklist.
type ChecklistItem struct {
	ID        string `json:"id" yaml:"id"`
	Text      string `json:"text" yaml:"text"`
	IsChecked bool   `json:"isChecked" yaml:"isChecked"`
}

// Meeting is a meeting scheduled against a card.
type Meeting struct {
	ID              string    `json:"id" yaml:"id"`
	Title           string    `json:"title" yaml:"title"`
	Date            time.Time `json:"date" yaml:"date"`
	DurationMinutes int       `json:"durationMinutes,omitempty" yaml:"durationMinutes,omitempty"`
	URL             string    `json:"url,omitempty" yaml:"url,omitempty"`
}

// RelatedItemType distinguishes what a related item points at.
type RelatedItemType string

const (
	RelatedItemCard  RelatedItemType = "card"
	RelatedItemLink  RelatedItemType = "link"
	RelatedItemIssue RelatedItemType = "issue"
)

// RelatedItem links a card to another card, an issue or an arbitrary URL.
type RelatedItem struct {
	ID    string          `json:"id" yaml:"id"`
	Type  RelatedItemType `json:"type" yaml:"type"`
	Title string          `json:"title" yaml:"title"`
	URL   string          `json:"url,omitempty" yaml:"url,omitempty"`
}

// GitHubIssue is the external issue a card was linked to.
type GitHubIssue struct {
	Repo   string `json:"repo" yaml:"repo"`
	Number int    `json:"number" yaml:"number"`
	URL    string `json:"url,omitempty" yaml:"url,omitempty"`
	Title  string `json:"title,omitempty" yaml:"title,omitempty"`
}

// IsZero reports whether no link data is present.
func (g GitHubIssue) IsZero() bool {
	return g == GitHubIssue{}
}

// Card is a single task on the board.
//
// While IsTracking is true, TrackingStartedAt is set and TimeSpentSeconds holds the
// time accumulated before the current tracking session began.
type Card struct {
	ID           string          `json:"id" yaml:"id"`
	Title        string          `json:"title" yaml:"title"`
	Description  string          `json:"description,omitempty" yaml:"description,omitempty"`
	Labels       []string        `json:"labels,omitempty" yaml:"labels,omitempty"`
	DueDate      *time.Time      `json:"dueDate,omitempty" yaml:"dueDate,omitempty"`
	Checklist    []ChecklistItem `json:"checklist,omitempty" yaml:"checklist,omitempty"`
	Meetings     []Meeting       `json:"meetings,omitempty" yaml:"meetings,omitempty"`
	RelatedItems []RelatedItem   `json:"relatedItems,omitempty" yaml:"relatedItems,omitempty"`
	GitHubIssue  *GitHubIssue    `json:"githubIssue,omitempty" yaml:"githubIssue,omitempty"`

	EstimatedMinutes  *int       `json:"estimatedMinutes,omitempty" yaml:"estimatedMinutes,omitempty"`
	TimeSpentSeconds  int64      `json:"timeSpentSeconds" yaml:"timeSpentSeconds"`
	IsTracking        bool       `json:"isTracking" yaml:"isTracking"`
	TrackingStartedAt *time.Time `json:"trackingStartedAt,omitempty" yaml:"trackingStartedAt,omitempty"`

	CreatedAt    time.Time    `json:"createdAt" yaml:"createdAt"`
	UpdatedAt    time.Time    `json:"updatedAt" yaml:"updatedAt"`
	AuditHistory []AuditEntry `json:"auditHistory" yaml:"auditHistory"`
}

// Estimate returns the estimate in minutes, or 0 when unset.
func (c *Card) Estimate() int {
	if c.EstimatedMinutes == nil {
		return 0
	}
	return *c.EstimatedMinutes
}

// ChecklistProgress returns the number of checked items and the total.
func (c *Card) ChecklistProgress() (done, total int) {
	for _, item := range c.Checklist {
		if item.IsChecked {
			done++
		}
	}
	return done, len(c.Checklist)
}

// IsOverdue reports whether the card has a due date before now.
func (c *Card) IsOverdue(now time.Time) bool {
	return c.DueDate != nil && c.DueDate.Before(now)
}

// HasLabel reports whether the card carries the given label id.
func (c *Card) HasLabel(id string) bool {
	return slices.Contains(c.Labels, id)
}

// Clone returns a deep copy of the card. Audit entries are immutable values,
// so the history slice is copied but the entries are shared by value.
func (c *Card) Clone() *Card {
	if c == nil {
		return nil
	}
	out := *c
	out.Labels = slices.Clone(c.Labels)
	out.Checklist = slices.Clone(c.Checklist)
	out.Meetings = slices.Clone(c.Meetings)
	out.RelatedItems = slices.Clone(c.RelatedItems)
	out.AuditHistory = slices.Clone(c.AuditHistory)
	if c.DueDate != nil {
		d := *c.DueDate
		out.DueDate = &d
	}
	if c.GitHubIssue != nil {
		g := *c.GitHubIssue
		out.GitHubIssue = &g
	}
	if c.EstimatedMinutes != nil {
		e := *c.EstimatedMinutes
		out.EstimatedMinutes = &e
	}
	if c.TrackingStartedAt != nil {
		t := *c.TrackingStartedAt
		out.TrackingStartedAt = &t
	}
	return &out
}

// ArchivedCard is a deleted card held by the archive until its retention expires.
type ArchivedCard struct {
	Card             *Card     `json:"card" yaml:"card"`
	DeletedAt        time.Time `json:"deletedAt" yaml:"deletedAt"`
	OriginalColumnID ColumnID  `json:"originalColumnId" yaml:"originalColumnId"`
}

// Label is a board-level tag that cards reference by id.
type Label struct {
	ID    string `json:"id" yaml:"id"`
	Name  string `json:"name" yaml:"name"`
	Color string `json:"color,omitempty" yaml:"color,omitempty"`
}
