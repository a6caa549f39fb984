package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"github.com/fosterushka/Chronoflow-sub000/internal/daemon"
	"github.com/fosterushka/Chronoflow-sub000/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start MCP stdio server for AI assistant integration",
	Long: `Start an MCP (Model Context Protocol) server on stdio.

This lets an MCP-capable assistant read and update the board. Configure it with:

  {
    "mcpServers": {
      "chronoflow": { "command": "cf", "args": ["mcp"] }
    }
  }

Available tools: chronoflow_list_cards, chronoflow_get_card,
chronoflow_add_card, chronoflow_edit_card, chronoflow_move_card,
chronoflow_delete_card, chronoflow_restore_card, chronoflow_list_archive,
chronoflow_comment, chronoflow_start_tracking, chronoflow_stop_tracking,
chronoflow_stats, chronoflow_notifications`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return mcpRun(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

func mcpRun(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, daemon.ShutdownSignals()...)
	defer stop()

	// stdout carries the protocol; logs already go to stderr.
	sess, err := openSession(ctx, false)
	if err != nil {
		return err
	}
	sess.Start(ctx)

	serveErr := mcp.NewServer(sess).ServeStdio(ctx)

	closeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := sess.Close(closeCtx); err != nil {
		return fmt.Errorf("save board: %w", err)
	}
	if serveErr != nil && ctx.Err() == nil {
		return serveErr
	}
	return nil
}
