package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"github.com/fosterushka/Chronoflow-sub000/internal/board"
	"github.com/fosterushka/Chronoflow-sub000/internal/daemon"
	"github.com/fosterushka/Chronoflow-sub000/internal/output"
)

var trackFor time.Duration

var trackCmd = &cobra.Command{
	Use:   "track <card>",
	Short: "Track time on a card until interrupted",
	Long: `Start tracking time on a card and keep the session open, showing the
running total. Time warnings print when the card reaches half of its
estimate and again when it exceeds it. Press Ctrl-C to stop; the tracked
time is saved to the card.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return trackRun(cmd.Context(), args[0], trackFor)
	},
}

func init() {
	trackCmd.Flags().DurationVar(&trackFor, "for", 0, "Stop automatically after this long (e.g. 25m)")
	rootCmd.AddCommand(trackCmd)
}

func trackRun(ctx context.Context, ref string, limit time.Duration) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, daemon.ShutdownSignals()...)
	defer stop()
	if limit > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, limit)
		defer cancel()
	}

	sess, err := openSession(ctx, true)
	if err != nil {
		return err
	}
	closeSession := func() error {
		closeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		return sess.Close(closeCtx)
	}

	card, col, err := sess.Board.ResolveCard(ref)
	if err != nil {
		_ = closeSession()
		return err
	}
	if dryRun {
		ui.DryRunMsg("Would track %s: %s", shortID(card.ID), card.Title)
		return closeSession()
	}
	if _, err := sess.Board.StartTracking(col, card.ID); err != nil {
		_ = closeSession()
		return err
	}
	ui.Success("Tracking %s: %s (Ctrl-C to stop)", output.Cyan(shortID(card.ID)), card.Title)

	unsub := sess.OnTick(func(now time.Time) {
		current, _, err := sess.Board.Card(card.ID)
		if err != nil || !current.IsTracking {
			return
		}
		line := output.Duration(board.LiveElapsed(current, now))
		if est := current.Estimate(); est > 0 {
			line += " / " + output.Duration(int64(est)*60)
		}
		fmt.Fprintf(ui.Out, "\r  %s   ", line)
	})
	sess.Start(ctx)

	<-ctx.Done()
	// Close stops the ticker before the progress line is finished.
	closeErr := closeSession()
	unsub()
	fmt.Fprintln(ui.Out)
	if closeErr != nil {
		return fmt.Errorf("save board: %w", closeErr)
	}
	final, _, err := sess.Board.Card(card.ID)
	if err != nil {
		// The card was moved away or deleted from another process.
		return nil
	}
	ui.Success("Stopped %s at %s", output.Cyan(shortID(final.ID)), output.Duration(final.TimeSpentSeconds))
	return nil
}
