package transfer

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/fosterushka/Chronoflow-sub000/internal/board"
	"github.com/fosterushka/Chronoflow-sub000/internal/models"
)

var reportHeader = []string{
	"Column", "ID", "Title", "Labels", "Estimate (min)", "Time Spent (s)",
	"Tracking", "Checklist", "Due", "Created", "Updated",
}

// WriteReport renders the columns as a CSV or Markdown report. Time spent
// includes the running session of a tracking card as of now.
func WriteReport(w io.Writer, columns []*models.Column, f Format, now time.Time) error {
	switch f {
	case FormatCSV:
		return writeCSV(w, columns, now)
	case FormatMarkdown:
		return writeMarkdown(w, columns, now)
	default:
		return fmt.Errorf("report: %s is not a report format", f)
	}
}

func reportRow(col models.ColumnID, card *models.Card, now time.Time) []string {
	est := ""
	if card.EstimatedMinutes != nil {
		est = strconv.Itoa(*card.EstimatedMinutes)
	}
	due := ""
	if card.DueDate != nil {
		due = card.DueDate.UTC().Format("2006-01-02")
	}
	done, total := card.ChecklistProgress()
	checklist := ""
	if total > 0 {
		checklist = fmt.Sprintf("%d/%d", done, total)
	}
	return []string{
		string(col),
		card.ID,
		card.Title,
		strings.Join(card.Labels, ";"),
		est,
		strconv.FormatInt(board.LiveElapsed(card, now), 10),
		strconv.FormatBool(card.IsTracking),
		checklist,
		due,
		card.CreatedAt.UTC().Format(time.RFC3339),
		card.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

func writeCSV(w io.Writer, columns []*models.Column, now time.Time) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(reportHeader); err != nil {
		return err
	}
	for _, col := range columns {
		for _, card := range col.Cards {
			if err := cw.Write(reportRow(col.ID, card, now)); err != nil {
				return err
			}
		}
	}
	cw.Flush()
	return cw.Error()
}

func writeMarkdown(w io.Writer, columns []*models.Column, now time.Time) error {
	var b strings.Builder
	b.WriteString("# Board Report\n\n")
	fmt.Fprintf(&b, "Generated %s\n", now.UTC().Format(time.RFC3339))
	for _, col := range columns {
		fmt.Fprintf(&b, "\n## %s (%d)\n\n", col.Title, len(col.Cards))
		if len(col.Cards) == 0 {
			b.WriteString("_No cards._\n")
			continue
		}
		b.WriteString("| Title | Estimate (min) | Time Spent (s) | Checklist | Due |\n")
		b.WriteString("|-------|----------------|----------------|-----------|-----|\n")
		for _, card := range col.Cards {
			row := reportRow(col.ID, card, now)
			fmt.Fprintf(&b, "| %s | %s | %s | %s | %s |\n",
				strings.ReplaceAll(card.Title, "|", `\|`), row[4], row[5], row[7], row[8])
		}
	}
	_, err := io.WriteString(w, b.String())
	return err
}
