package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fosterushka/Chronoflow-sub000/internal/output"
	"github.com/fosterushka/Chronoflow-sub000/internal/session"
	"github.com/fosterushka/Chronoflow-sub000/internal/stats"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the board overview and statistics",
	Long: `Show each column with its card count and time totals, the card being
tracked, cards over or near their estimate, overdue cards and a 0-100
board health score.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return statusRun(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func statusRun(ctx context.Context) error {
	return withSession(ctx, func(sess *session.Session) error {
		sum := sess.Stats()
		if sum.TotalCards == 0 {
			ui.Info("The board is empty. Use 'cf card add <title>' to get started.")
			return nil
		}

		table := ui.Table([]string{"Column", "Cards", "Spent", "Estimated", "Overdue"})
		for _, c := range sum.Columns {
			overdue := "-"
			if c.Overdue > 0 {
				overdue = output.Red(fmt.Sprintf("%d", c.Overdue))
			}
			estimated := "-"
			if c.EstimatedMinutes > 0 {
				estimated = output.Duration(int64(c.EstimatedMinutes) * 60)
			}
			table.Append([]string{
				output.ColumnColor(string(c.ColumnID)),
				fmt.Sprintf("%d", c.Cards),
				output.Duration(c.TimeSpentSeconds),
				estimated,
				overdue,
			})
		}
		table.Render()
		fmt.Fprintln(ui.Out)

		if sum.Tracking != nil {
			fmt.Fprintf(ui.Out, "  Tracking:   %s  %s\n", sum.Tracking.Title, progressCell(*sum.Tracking))
		}
		fmt.Fprintf(ui.Out, "  Completed:  %d/%d (%.0f%%)\n", sum.Completed, sum.TotalCards, sum.CompletionRate*100)
		fmt.Fprintf(ui.Out, "  Health:     %s  (schedule %d/40, estimates %d/30, completion %d/30)\n",
			healthColor(sum.Health.Total), sum.Health.Schedule, sum.Health.Estimates, sum.Health.Completion)

		printProgressList("Over estimate", sum.OverEstimate)
		printProgressList("Approaching estimate", sum.ApproachingEstimate)
		printProgressList("Overdue", sum.Overdue)
		return nil
	})
}

func printProgressList(title string, cards []stats.CardProgress) {
	if len(cards) == 0 {
		return
	}
	fmt.Fprintf(ui.Out, "\n  %s:\n", title)
	for _, c := range cards {
		fmt.Fprintf(ui.Out, "    %s  %s  %s\n", output.Cyan(shortID(c.CardID)), c.Title, progressCell(c))
	}
}

func progressCell(c stats.CardProgress) string {
	if c.EstimatedMinutes == 0 {
		return output.Duration(c.ElapsedSeconds)
	}
	return fmt.Sprintf("%s / %s (%s)", output.Duration(c.ElapsedSeconds),
		output.Duration(int64(c.EstimatedMinutes)*60), output.ProgressColor(c.Percent))
}

// healthColor returns the health score colored green, yellow or red.
func healthColor(score int) string {
	s := fmt.Sprintf("%d", score)
	switch {
	case score >= 80:
		return output.Green(s)
	case score >= 50:
		return output.Yellow(s)
	default:
		return output.Red(s)
	}
}
