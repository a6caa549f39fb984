package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/fosterushka/Chronoflow-sub000/internal/models"
	"github.com/fosterushka/Chronoflow-sub000/internal/output"
	"github.com/fosterushka/Chronoflow-sub000/internal/store"
)

var (
	notifyCard  string
	notifyLimit int
	notifyClear bool
)

var notificationsCmd = &cobra.Command{
	Use:     "notifications",
	Aliases: []string{"notify"},
	Short:   "Show time warnings and other notifications",
	RunE: func(cmd *cobra.Command, args []string) error {
		if notifyClear {
			return notificationsClearRun(cmd.Context())
		}
		return notificationsListRun(cmd.Context())
	},
}

func init() {
	notificationsCmd.Flags().StringVar(&notifyCard, "card", "", "Only notifications for this card id")
	notificationsCmd.Flags().IntVar(&notifyLimit, "limit", store.DefaultNotificationLimit, "Maximum number to show")
	notificationsCmd.Flags().BoolVar(&notifyClear, "clear", false, "Delete all notifications")
	rootCmd.AddCommand(notificationsCmd)
}

func notificationsListRun(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	s, err := getStore(ctx)
	if err != nil {
		return err
	}
	list, err := s.ListNotifications(ctx, store.NotificationFilter{CardID: notifyCard, Limit: notifyLimit})
	if err != nil {
		return err
	}
	if len(list) == 0 {
		ui.Info("No notifications.")
		return nil
	}

	table := ui.Table([]string{"When", "Type", "Card", "Message"})
	for _, n := range list {
		table.Append([]string{
			n.Timestamp.Local().Format("2006-01-02 15:04"),
			notificationType(n.Type),
			shortID(n.CardID),
			n.Message,
		})
	}
	table.Render()
	return nil
}

func notificationsClearRun(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if dryRun {
		ui.DryRunMsg("Would delete all notifications")
		return nil
	}
	s, err := getStore(ctx)
	if err != nil {
		return err
	}
	n, err := s.ClearNotifications(ctx)
	if err != nil {
		return err
	}
	ui.Success("Deleted %d notification(s)", n)
	return nil
}

func notificationType(t models.NotificationType) string {
	switch t {
	case models.NotificationExceeded:
		return output.Red(string(t))
	case models.NotificationWarning:
		return output.Yellow(string(t))
	default:
		return string(t)
	}
}
