package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/fosterushka/Chronoflow-sub000/internal/board"
	"github.com/fosterushka/Chronoflow-sub000/internal/models"
	"github.com/fosterushka/Chronoflow-sub000/internal/output"
	"github.com/fosterushka/Chronoflow-sub000/internal/session"
)

var (
	cardColumn        string
	cardDesc          string
	cardTitle         string
	cardEstimate      int
	cardClearEstimate bool
	cardDue           string
	cardLabels        []string
	cardQuery         string
	cardTracking      bool
	cardOverdue       bool
)

var cardCmd = &cobra.Command{
	Use:   "card",
	Short: "Manage cards on the board",
	Long:  "Add, edit, move and delete cards. Cards are referenced by id, id prefix or exact title.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return cardListRun(cmd.Context())
	},
}

var cardAddCmd = &cobra.Command{
	Use:   "add <title>",
	Short: "Add a card",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return cardAddRun(cmd.Context(), args[0], cmd.Flags().Changed("estimate"))
	},
}

var cardListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List cards",
	RunE: func(cmd *cobra.Command, args []string) error {
		return cardListRun(cmd.Context())
	},
}

var cardShowCmd = &cobra.Command{
	Use:   "show <card>",
	Short: "Show card details",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return cardShowRun(cmd.Context(), args[0])
	},
}

var cardEditCmd = &cobra.Command{
	Use:   "edit <card>",
	Short: "Edit a card",
	Long:  "Edit a card. Only the flags you pass change; each change is recorded in the card's history.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		patch, err := cardPatchFromFlags(cmd)
		if err != nil {
			return err
		}
		return cardEditRun(cmd.Context(), args[0], patch)
	},
}

var cardMoveCmd = &cobra.Command{
	Use:   "move <card> <column>",
	Short: "Move a card to another column",
	Long:  "Move a card to another column. Moving into todo or done stops time tracking.",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return cardMoveRun(cmd.Context(), args[0], args[1])
	},
}

var cardDeleteCmd = &cobra.Command{
	Use:     "delete <card>",
	Aliases: []string{"rm"},
	Short:   "Delete a card (restorable for 24h)",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return cardDeleteRun(cmd.Context(), args[0])
	},
}

var cardCommentCmd = &cobra.Command{
	Use:   "comment <card> <text>",
	Short: "Comment on a card",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return cardCommentRun(cmd.Context(), args[0], args[1])
	},
}

var cardHistoryCmd = &cobra.Command{
	Use:   "history <card>",
	Short: "Show a card's audit history",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return cardHistoryRun(cmd.Context(), args[0])
	},
}

func init() {
	cardAddCmd.Flags().StringVarP(&cardColumn, "column", "c", string(models.ColumnTodo), "Column: todo, inProgress, codeReview, testing, done")
	cardAddCmd.Flags().StringVar(&cardDesc, "desc", "", "Card description")
	cardAddCmd.Flags().IntVarP(&cardEstimate, "estimate", "e", 0, "Estimate in minutes")
	cardAddCmd.Flags().StringVar(&cardDue, "due", "", "Due date (YYYY-MM-DD or RFC 3339)")
	cardAddCmd.Flags().StringSliceVarP(&cardLabels, "label", "l", nil, "Label name or id (repeatable)")

	cardListCmd.Flags().StringVarP(&cardColumn, "column", "c", "", "Filter by column")
	cardListCmd.Flags().StringSliceVarP(&cardLabels, "label", "l", nil, "Filter by label")
	cardListCmd.Flags().StringVarP(&cardQuery, "query", "q", "", "Filter by text in title or description")
	cardListCmd.Flags().BoolVar(&cardTracking, "tracking", false, "Only the tracked card")
	cardListCmd.Flags().BoolVar(&cardOverdue, "overdue", false, "Only overdue cards")

	cardEditCmd.Flags().StringVar(&cardTitle, "title", "", "New title")
	cardEditCmd.Flags().StringVar(&cardDesc, "desc", "", "New description")
	cardEditCmd.Flags().IntVarP(&cardEstimate, "estimate", "e", 0, "New estimate in minutes")
	cardEditCmd.Flags().BoolVar(&cardClearEstimate, "clear-estimate", false, "Remove the estimate")
	cardEditCmd.Flags().StringVar(&cardDue, "due", "", `New due date; "none" clears it`)
	cardEditCmd.Flags().StringSliceVarP(&cardLabels, "label", "l", nil, "Replace labels (repeatable); pass an empty value to clear")

	cardCmd.AddCommand(cardAddCmd, cardListCmd, cardShowCmd, cardEditCmd, cardMoveCmd,
		cardDeleteCmd, cardCommentCmd, cardHistoryCmd)
	rootCmd.AddCommand(cardCmd)
}

func cardAddRun(ctx context.Context, title string, hasEstimate bool) error {
	fields := board.CardFields{
		Title:       title,
		Description: cardDesc,
	}
	if hasEstimate {
		est := cardEstimate
		fields.EstimatedMinutes = &est
	}
	if cardDue != "" {
		due, err := parseDate(cardDue)
		if err != nil {
			return err
		}
		fields.DueDate = &due
	}
	col := models.ColumnID(cardColumn)

	if dryRun {
		ui.DryRunMsg("Would add card %q to %s", title, col)
		return nil
	}

	return withSession(ctx, func(sess *session.Session) error {
		labels, err := resolveLabels(sess.Board, cardLabels)
		if err != nil {
			return err
		}
		fields.Labels = labels

		card, err := sess.Board.AddCard(col, fields)
		if err != nil {
			return err
		}
		ui.Success("Added card %s to %s: %s", output.Cyan(shortID(card.ID)), output.ColumnColor(string(col)), card.Title)
		return nil
	})
}

func cardListRun(ctx context.Context) error {
	return withSession(ctx, func(sess *session.Session) error {
		filter := board.Filter{
			ColumnID:     models.ColumnID(cardColumn),
			Text:         cardQuery,
			TrackingOnly: cardTracking,
			OverdueOnly:  cardOverdue,
		}
		if len(cardLabels) > 0 {
			filter.Label = cardLabels[0]
		}
		refs := sess.Board.Cards(filter)
		if len(refs) == 0 {
			ui.Info("No cards found. Use 'cf card add <title>' to create one.")
			return nil
		}

		now := sess.Now()
		table := ui.Table([]string{"ID", "Column", "Title", "Spent", "Estimate", "Due"})
		for _, ref := range refs {
			table.Append([]string{
				output.Cyan(shortID(ref.Card.ID)),
				output.ColumnColor(string(ref.ColumnID)),
				cardTitleCell(ref.Card),
				output.Duration(board.LiveElapsed(ref.Card, now)),
				estimateCell(ref.Card, now),
				dueCell(ref.Card, ref.ColumnID, now),
			})
		}
		table.Render()
		return nil
	})
}

func cardShowRun(ctx context.Context, ref string) error {
	return withSession(ctx, func(sess *session.Session) error {
		card, col, err := sess.Board.ResolveCard(ref)
		if err != nil {
			return err
		}
		now := sess.Now()

		fmt.Fprintf(ui.Out, "%s  %s\n", output.Cyan(shortID(card.ID)), card.Title)
		fmt.Fprintf(ui.Out, "  Column:     %s\n", output.ColumnColor(string(col)))
		if card.Description != "" {
			fmt.Fprintf(ui.Out, "  Desc:       %s\n", card.Description)
		}
		fmt.Fprintf(ui.Out, "  Spent:      %s\n", output.Duration(board.LiveElapsed(card, now)))
		fmt.Fprintf(ui.Out, "  Estimate:   %s\n", estimateCell(card, now))
		if card.IsTracking {
			fmt.Fprintf(ui.Out, "  Tracking:   %s\n", output.Green("yes"))
		}
		if card.DueDate != nil {
			fmt.Fprintf(ui.Out, "  Due:        %s\n", dueCell(card, col, now))
		}
		if len(card.Labels) > 0 {
			fmt.Fprintf(ui.Out, "  Labels:     %s\n", strings.Join(labelNames(sess.Board, card.Labels), ", "))
		}
		if done, total := card.ChecklistProgress(); total > 0 {
			fmt.Fprintf(ui.Out, "  Checklist:  %d/%d\n", done, total)
		}
		for _, m := range card.Meetings {
			fmt.Fprintf(ui.Out, "  Meeting:    %s  %s\n", m.Date.Format("2006-01-02 15:04"), m.Title)
		}
		if card.GitHubIssue != nil {
			fmt.Fprintf(ui.Out, "  GitHub:     %s#%d\n", card.GitHubIssue.Repo, card.GitHubIssue.Number)
		}
		fmt.Fprintf(ui.Out, "  Created:    %s\n", card.CreatedAt.Format(time.RFC3339))
		fmt.Fprintf(ui.Out, "  Updated:    %s\n", card.UpdatedAt.Format(time.RFC3339))
		fmt.Fprintf(ui.Out, "  History:    %d entries\n", len(card.AuditHistory))
		fmt.Fprintf(ui.Out, "  Full ID:    %s\n", card.ID)
		return nil
	})
}

// cardPatchFromFlags builds a patch from the edit flags that were set.
func cardPatchFromFlags(cmd *cobra.Command) (board.Patch, error) {
	var p board.Patch
	flags := cmd.Flags()
	if flags.Changed("title") {
		p.Title = board.Set(cardTitle)
	}
	if flags.Changed("desc") {
		p.Description = board.Set(cardDesc)
	}
	switch {
	case cardClearEstimate:
		p.EstimatedMinutes = board.Clear[int]()
	case flags.Changed("estimate"):
		p.EstimatedMinutes = board.Set(cardEstimate)
	}
	if flags.Changed("due") {
		if cardDue == "" || cardDue == "none" {
			p.DueDate = board.Clear[time.Time]()
		} else {
			due, err := parseDate(cardDue)
			if err != nil {
				return p, err
			}
			p.DueDate = board.Set(due)
		}
	}
	if flags.Changed("label") {
		// Resolved to ids inside the session.
		p.Labels = board.Set(cardLabels)
	}
	if p.IsEmpty() {
		return p, errors.New("nothing to update: pass at least one of --title, --desc, --estimate, --clear-estimate, --due, --label")
	}
	return p, nil
}

func cardEditRun(ctx context.Context, ref string, patch board.Patch) error {
	return withSession(ctx, func(sess *session.Session) error {
		card, _, err := sess.Board.ResolveCard(ref)
		if err != nil {
			return err
		}
		if names, ok := patch.Labels.Get(); ok {
			ids, err := resolveLabels(sess.Board, names)
			if err != nil {
				return err
			}
			patch.Labels = board.Set(ids)
		}

		if dryRun {
			ui.DryRunMsg("Would update card %s", shortID(card.ID))
			return nil
		}

		before := len(card.AuditHistory)
		updated, err := sess.Board.EditCard(card.ID, patch)
		if err != nil {
			return err
		}
		changed := len(updated.AuditHistory) - before
		if changed == 0 {
			ui.Info("No changes to %s", shortID(card.ID))
			return nil
		}
		ui.Success("Updated %s (%d field(s) changed)", output.Cyan(shortID(card.ID)), changed)
		return nil
	})
}

func cardMoveRun(ctx context.Context, ref, to string) error {
	return withSession(ctx, func(sess *session.Session) error {
		card, from, err := sess.Board.ResolveCard(ref)
		if err != nil {
			return err
		}
		target := models.ColumnID(to)

		if dryRun {
			ui.DryRunMsg("Would move %s from %s to %s", shortID(card.ID), from, target)
			return nil
		}

		moved, err := sess.Board.MoveCard(card.ID, from, target)
		if err != nil {
			return err
		}
		ui.Success("Moved %s: %s → %s", output.Cyan(shortID(moved.ID)),
			output.ColumnColor(string(from)), output.ColumnColor(string(target)))
		if card.IsTracking && !moved.IsTracking {
			ui.Info("Tracking stopped at %s", output.Duration(moved.TimeSpentSeconds))
		}
		return nil
	})
}

func cardDeleteRun(ctx context.Context, ref string) error {
	return withSession(ctx, func(sess *session.Session) error {
		card, col, err := sess.Board.ResolveCard(ref)
		if err != nil {
			return err
		}

		if dryRun {
			ui.DryRunMsg("Would delete card %s: %s", shortID(card.ID), card.Title)
			return nil
		}

		entry, err := sess.Board.DeleteCard(card.ID, col)
		if err != nil {
			return err
		}
		until := entry.DeletedAt.Add(sess.Board.Archive().Retention())
		ui.Success("Deleted %s: %s", output.Cyan(shortID(card.ID)), card.Title)
		ui.Info("Restore with 'cf archive restore %s' until %s", shortID(card.ID), until.Local().Format("2006-01-02 15:04"))
		return nil
	})
}

func cardCommentRun(ctx context.Context, ref, text string) error {
	return withSession(ctx, func(sess *session.Session) error {
		card, _, err := sess.Board.ResolveCard(ref)
		if err != nil {
			return err
		}
		if dryRun {
			ui.DryRunMsg("Would comment on %s", shortID(card.ID))
			return nil
		}
		if _, err := sess.Board.AddComment(card.ID, text); err != nil {
			return err
		}
		ui.Success("Commented on %s", output.Cyan(shortID(card.ID)))
		return nil
	})
}

func cardHistoryRun(ctx context.Context, ref string) error {
	return withSession(ctx, func(sess *session.Session) error {
		card, _, err := sess.Board.ResolveCard(ref)
		if err != nil {
			return err
		}

		fmt.Fprintf(ui.Out, "%s  %s\n\n", output.Cyan(shortID(card.ID)), card.Title)
		table := ui.Table([]string{"When", "Type", "Column", "Change"})
		for _, e := range card.AuditHistory {
			table.Append([]string{
				e.Timestamp.Local().Format("2006-01-02 15:04:05"),
				string(e.Type),
				string(e.ColumnID),
				describeEntry(e),
			})
		}
		table.Render()
		return nil
	})
}

// describeEntry renders the change carried by an audit entry.
func describeEntry(e models.AuditEntry) string {
	switch e.Type {
	case models.AuditCreate:
		return e.NewValue
	case models.AuditComment:
		return e.NewValue
	case models.AuditMove, models.AuditStatusChange:
		return e.OldValue + " → " + e.NewValue
	default:
		return fmt.Sprintf("%s: %q → %q", e.Field, e.OldValue, e.NewValue)
	}
}

func cardTitleCell(c *models.Card) string {
	if c.IsTracking {
		return output.Green("▶ ") + c.Title
	}
	return c.Title
}

func estimateCell(c *models.Card, now time.Time) string {
	est := c.Estimate()
	if est == 0 {
		return "-"
	}
	pct := int(board.LiveElapsed(c, now) * 100 / (int64(est) * 60))
	return fmt.Sprintf("%s (%s)", output.Duration(int64(est)*60), output.ProgressColor(pct))
}

func dueCell(c *models.Card, col models.ColumnID, now time.Time) string {
	if c.DueDate == nil {
		return "-"
	}
	s := c.DueDate.Local().Format("2006-01-02")
	if col != models.ColumnDone && c.IsOverdue(now) {
		return output.Red(s + " overdue")
	}
	return s
}

// resolveLabels maps label names or ids to ids.
func resolveLabels(b *board.Board, refs []string) ([]string, error) {
	var out []string
	for _, ref := range refs {
		ref = strings.TrimSpace(ref)
		if ref == "" {
			continue
		}
		label, err := b.Label(ref)
		if err != nil {
			return nil, fmt.Errorf("unknown label %q (create it with 'cf label add')", ref)
		}
		out = append(out, label.ID)
	}
	return out, nil
}

func labelNames(b *board.Board, ids []string) []string {
	names := make([]string, 0, len(ids))
	for _, id := range ids {
		if l, err := b.Label(id); err == nil {
			names = append(names, l.Name)
		} else {
			names = append(names, id)
		}
	}
	return names
}

func parseDate(v string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t, nil
	}
	t, err := time.ParseInLocation(time.DateOnly, v, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: use YYYY-MM-DD or RFC 3339", v)
	}
	return t, nil
}

func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}
