package board

import (
	"time"

	"github.com/fosterushka/Chronoflow-sub000/internal/models"
)

// CardFields are the user-supplied contents of a new card.
type CardFields struct {
	Title            string                 `json:"title"`
	Description      string                 `json:"description,omitempty"`
	Labels           []string               `json:"labels,omitempty"`
	DueDate          *time.Time             `json:"dueDate,omitempty"`
	Checklist        []models.ChecklistItem `json:"checklist,omitempty"`
	Meetings         []models.Meeting       `json:"meetings,omitempty"`
	RelatedItems     []models.RelatedItem   `json:"relatedItems,omitempty"`
	GitHubIssue      *models.GitHubIssue    `json:"githubIssue,omitempty"`
	EstimatedMinutes *int                   `json:"estimatedMinutes,omitempty"`
}

// Patch is a partial card update. Every field is optional: absent leaves the
// card untouched, null clears the field, a value replaces it. Time tracking
// fields are not patchable; they change only through the tracking operations.
type Patch struct {
	Title            Optional[string]                 `json:"title"`
	Description      Optional[string]                 `json:"description"`
	Labels           Optional[[]string]               `json:"labels"`
	Checklist        Optional[[]models.ChecklistItem] `json:"checklist"`
	Meetings         Optional[[]models.Meeting]       `json:"meetings"`
	RelatedItems     Optional[[]models.RelatedItem]   `json:"relatedItems"`
	DueDate          Optional[time.Time]              `json:"dueDate"`
	EstimatedMinutes Optional[int]                    `json:"estimatedMinutes"`
	GitHubIssue      Optional[models.GitHubIssue]     `json:"githubIssue"`
}

// IsEmpty reports whether the patch carries no fields.
func (p Patch) IsEmpty() bool {
	return !p.Title.Present() &&
		!p.Description.Present() &&
		!p.Labels.Present() &&
		!p.Checklist.Present() &&
		!p.Meetings.Present() &&
		!p.RelatedItems.Present() &&
		!p.DueDate.Present() &&
		!p.EstimatedMinutes.Present() &&
		!p.GitHubIssue.Present()
}
