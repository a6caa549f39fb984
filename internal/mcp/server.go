package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/fosterushka/Chronoflow-sub000/internal/board"
	"github.com/fosterushka/Chronoflow-sub000/internal/models"
	"github.com/fosterushka/Chronoflow-sub000/internal/session"
	"github.com/fosterushka/Chronoflow-sub000/internal/store"
)

// Server wraps a board session and exposes it as MCP tools.
type Server struct {
	session *session.Session
	board   *board.Board
}

// NewServer creates the MCP server wrapper for the session.
func NewServer(sess *session.Session) *Server {
	return &Server{session: sess, board: sess.Board}
}

// MCPServer returns a configured mcp-go server with all tools registered.
func (s *Server) MCPServer() *server.MCPServer {
	srv := server.NewMCPServer("chronoflow", "1.0.0", server.WithToolCapabilities(true))

	srv.AddTool(s.listCardsTool())
	srv.AddTool(s.getCardTool())
	srv.AddTool(s.addCardTool())
	srv.AddTool(s.editCardTool())
	srv.AddTool(s.moveCardTool())
	srv.AddTool(s.deleteCardTool())
	srv.AddTool(s.restoreCardTool())
	srv.AddTool(s.listArchiveTool())
	srv.AddTool(s.commentTool())
	srv.AddTool(s.startTrackingTool())
	srv.AddTool(s.stopTrackingTool())
	srv.AddTool(s.statsTool())
	srv.AddTool(s.notificationsTool())

	return srv
}

// ServeStdio starts the stdio transport, blocking until ctx is cancelled.
func (s *Server) ServeStdio(ctx context.Context) error {
	srv := s.MCPServer()
	stdioServer := server.NewStdioServer(srv)
	return stdioServer.Listen(ctx, os.Stdin, os.Stdout)
}

// ---------------------------------------------------------------------------
// Tool definitions and handlers
// ---------------------------------------------------------------------------

// cardOut is the tool-facing view of a card.
type cardOut struct {
	ID               string   `json:"id"`
	Title            string   `json:"title"`
	Description      string   `json:"description,omitempty"`
	Column           string   `json:"column"`
	Labels           []string `json:"labels,omitempty"`
	EstimatedMinutes *int     `json:"estimated_minutes,omitempty"`
	TimeSpentSeconds int64    `json:"time_spent_seconds"`
	Tracking         bool     `json:"tracking"`
	DueDate          string   `json:"due_date,omitempty"`
	Overdue          bool     `json:"overdue,omitempty"`
}

func (s *Server) cardOut(card *models.Card, col models.ColumnID) cardOut {
	now := s.session.Now()
	out := cardOut{
		ID:               card.ID,
		Title:            card.Title,
		Description:      card.Description,
		Column:           string(col),
		Labels:           card.Labels,
		EstimatedMinutes: card.EstimatedMinutes,
		TimeSpentSeconds: board.LiveElapsed(card, now),
		Tracking:         card.IsTracking,
		Overdue:          col != models.ColumnDone && card.IsOverdue(now),
	}
	if card.DueDate != nil {
		out.DueDate = card.DueDate.Format(time.RFC3339)
	}
	return out
}

// chronoflow_list_cards
func (s *Server) listCardsTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("chronoflow_list_cards",
		mcp.WithDescription("List cards on the board. Returns a JSON array of cards with id, title, column, estimate and time spent in seconds."),
		mcp.WithString("column", mcp.Description("Filter by column: todo, inProgress, codeReview, testing, done")),
		mcp.WithString("label", mcp.Description("Filter by label name or id")),
		mcp.WithString("query", mcp.Description("Case-insensitive text to match in title or description")),
		mcp.WithBoolean("tracking_only", mcp.Description("Only the card being tracked")),
		mcp.WithBoolean("overdue_only", mcp.Description("Only cards past their due date")),
	)
	return tool, s.handleListCards
}

func (s *Server) handleListCards(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	refs := s.board.Cards(board.Filter{
		ColumnID:     models.ColumnID(request.GetString("column", "")),
		Label:        request.GetString("label", ""),
		Text:         request.GetString("query", ""),
		TrackingOnly: request.GetBool("tracking_only", false),
		OverdueOnly:  request.GetBool("overdue_only", false),
	})
	out := make([]cardOut, len(refs))
	for i, ref := range refs {
		out[i] = s.cardOut(ref.Card, ref.ColumnID)
	}
	return jsonResult(out, "cards")
}

// chronoflow_get_card
func (s *Server) getCardTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("chronoflow_get_card",
		mcp.WithDescription("Get a card with its full audit history. The card may be referenced by id, id prefix or exact title."),
		mcp.WithString("card", mcp.Required(), mcp.Description("Card id, id prefix or title")),
	)
	return tool, s.handleGetCard
}

func (s *Server) handleGetCard(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	card, col, errResult := s.resolveCard(request)
	if errResult != nil {
		return errResult, nil
	}
	return jsonResult(map[string]any{
		"card":    s.cardOut(card, col),
		"history": card.AuditHistory,
	}, "card")
}

// chronoflow_add_card
func (s *Server) addCardTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("chronoflow_add_card",
		mcp.WithDescription("Create a card in a column. Returns the created card as JSON."),
		mcp.WithString("title", mcp.Required(), mcp.Description("Card title")),
		mcp.WithString("column", mcp.Description("Target column (default: todo)")),
		mcp.WithString("description", mcp.Description("Card description")),
		mcp.WithNumber("estimated_minutes", mcp.Description("Time estimate in minutes")),
		mcp.WithString("due_date", mcp.Description("Due date, RFC 3339 or YYYY-MM-DD")),
		mcp.WithString("labels", mcp.Description("Comma-separated label names or ids")),
	)
	return tool, s.handleAddCard
}

func (s *Server) handleAddCard(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	title, err := request.RequireString("title")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: title"), nil
	}
	fields := board.CardFields{
		Title:       title,
		Description: request.GetString("description", ""),
	}
	if _, ok := request.GetArguments()["estimated_minutes"]; ok {
		est := request.GetInt("estimated_minutes", 0)
		fields.EstimatedMinutes = &est
	}
	if v := request.GetString("due_date", ""); v != "" {
		due, err := parseDate(v)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		fields.DueDate = &due
	}
	if v := request.GetString("labels", ""); v != "" {
		labels, err := s.resolveLabels(v)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		fields.Labels = labels
	}

	col := models.ColumnID(request.GetString("column", string(models.ColumnTodo)))
	card, err := s.board.AddCard(col, fields)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to add card: %v", err)), nil
	}
	return jsonResult(s.cardOut(card, col), "card")
}

// chronoflow_edit_card
func (s *Server) editCardTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("chronoflow_edit_card",
		mcp.WithDescription("Update a card. Only the provided fields change; each change is recorded in the card's audit history."),
		mcp.WithString("card", mcp.Required(), mcp.Description("Card id, id prefix or title")),
		mcp.WithString("title", mcp.Description("New title")),
		mcp.WithString("description", mcp.Description("New description")),
		mcp.WithNumber("estimated_minutes", mcp.Description("New estimate in minutes")),
		mcp.WithBoolean("clear_estimate", mcp.Description("Remove the estimate")),
		mcp.WithString("due_date", mcp.Description("New due date, RFC 3339 or YYYY-MM-DD; \"none\" clears it")),
	)
	return tool, s.handleEditCard
}

func (s *Server) handleEditCard(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	card, _, errResult := s.resolveCard(request)
	if errResult != nil {
		return errResult, nil
	}

	args := request.GetArguments()
	var patch board.Patch
	if _, ok := args["title"]; ok {
		patch.Title = board.Set(request.GetString("title", ""))
	}
	if _, ok := args["description"]; ok {
		patch.Description = board.Set(request.GetString("description", ""))
	}
	switch {
	case request.GetBool("clear_estimate", false):
		patch.EstimatedMinutes = board.Clear[int]()
	case args["estimated_minutes"] != nil:
		patch.EstimatedMinutes = board.Set(request.GetInt("estimated_minutes", 0))
	}
	switch v := request.GetString("due_date", ""); v {
	case "":
	case "none":
		patch.DueDate = board.Clear[time.Time]()
	default:
		due, err := parseDate(v)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		patch.DueDate = board.Set(due)
	}
	if patch.IsEmpty() {
		return mcp.NewToolResultError("nothing to update: provide at least one field"), nil
	}

	updated, err := s.board.EditCard(card.ID, patch)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to edit card: %v", err)), nil
	}
	_, col, _ := s.board.Card(updated.ID)
	return jsonResult(s.cardOut(updated, col), "card")
}

// chronoflow_move_card
func (s *Server) moveCardTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("chronoflow_move_card",
		mcp.WithDescription("Move a card to another column. Moving into todo or done stops time tracking on the card."),
		mcp.WithString("card", mcp.Required(), mcp.Description("Card id, id prefix or title")),
		mcp.WithString("to", mcp.Required(), mcp.Description("Target column: todo, inProgress, codeReview, testing, done")),
	)
	return tool, s.handleMoveCard
}

func (s *Server) handleMoveCard(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	to, err := request.RequireString("to")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: to"), nil
	}
	card, from, errResult := s.resolveCard(request)
	if errResult != nil {
		return errResult, nil
	}
	moved, err := s.board.MoveCard(card.ID, from, models.ColumnID(to))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to move card: %v", err)), nil
	}
	return jsonResult(s.cardOut(moved, models.ColumnID(to)), "card")
}

// chronoflow_delete_card
func (s *Server) deleteCardTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("chronoflow_delete_card",
		mcp.WithDescription("Delete a card. Deleted cards stay in the archive for 24 hours and can be restored."),
		mcp.WithString("card", mcp.Required(), mcp.Description("Card id, id prefix or title")),
	)
	return tool, s.handleDeleteCard
}

func (s *Server) handleDeleteCard(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	card, col, errResult := s.resolveCard(request)
	if errResult != nil {
		return errResult, nil
	}
	entry, err := s.board.DeleteCard(card.ID, col)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to delete card: %v", err)), nil
	}
	return jsonResult(map[string]any{
		"id":               entry.Card.ID,
		"title":            entry.Card.Title,
		"original_column":  entry.OriginalColumnID,
		"restorable_until": entry.DeletedAt.Add(s.board.Archive().Retention()).Format(time.RFC3339),
	}, "archive entry")
}

// chronoflow_restore_card
func (s *Server) restoreCardTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("chronoflow_restore_card",
		mcp.WithDescription("Restore an archived card to the column it was deleted from."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Archived card id")),
	)
	return tool, s.handleRestoreCard
}

func (s *Server) handleRestoreCard(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: id"), nil
	}
	card, col, err := s.board.RestoreCard(id)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to restore card: %v", err)), nil
	}
	return jsonResult(s.cardOut(card, col), "card")
}

// chronoflow_list_archive
func (s *Server) listArchiveTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("chronoflow_list_archive",
		mcp.WithDescription("List deleted cards that can still be restored, newest first."),
	)
	return tool, s.handleListArchive
}

func (s *Server) handleListArchive(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	type archivedOut struct {
		ID             string `json:"id"`
		Title          string `json:"title"`
		OriginalColumn string `json:"original_column"`
		DeletedAt      string `json:"deleted_at"`
	}
	entries := s.board.Archive().List()
	out := make([]archivedOut, len(entries))
	for i, e := range entries {
		out[i] = archivedOut{
			ID:             e.Card.ID,
			Title:          e.Card.Title,
			OriginalColumn: string(e.OriginalColumnID),
			DeletedAt:      e.DeletedAt.Format(time.RFC3339),
		}
	}
	return jsonResult(out, "archive")
}

// chronoflow_comment
func (s *Server) commentTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("chronoflow_comment",
		mcp.WithDescription("Add a comment to a card's history."),
		mcp.WithString("card", mcp.Required(), mcp.Description("Card id, id prefix or title")),
		mcp.WithString("text", mcp.Required(), mcp.Description("Comment text")),
	)
	return tool, s.handleComment
}

func (s *Server) handleComment(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text, err := request.RequireString("text")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: text"), nil
	}
	card, _, errResult := s.resolveCard(request)
	if errResult != nil {
		return errResult, nil
	}
	updated, err := s.board.AddComment(card.ID, text)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to add comment: %v", err)), nil
	}
	return jsonResult(updated.AuditHistory[len(updated.AuditHistory)-1], "comment")
}

// chronoflow_start_tracking
func (s *Server) startTrackingTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("chronoflow_start_tracking",
		mcp.WithDescription("Start tracking time on a card. Any other tracked card is stopped first. Cards in todo or done cannot be tracked."),
		mcp.WithString("card", mcp.Required(), mcp.Description("Card id, id prefix or title")),
	)
	return tool, s.handleStartTracking
}

func (s *Server) handleStartTracking(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	card, col, errResult := s.resolveCard(request)
	if errResult != nil {
		return errResult, nil
	}
	started, err := s.board.StartTracking(col, card.ID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to start tracking: %v", err)), nil
	}
	return jsonResult(s.cardOut(started, col), "card")
}

// chronoflow_stop_tracking
func (s *Server) stopTrackingTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("chronoflow_stop_tracking",
		mcp.WithDescription("Stop tracking time. Without a card, stops whichever card is being tracked."),
		mcp.WithString("card", mcp.Description("Card id, id prefix or title")),
	)
	return tool, s.handleStopTracking
}

func (s *Server) handleStopTracking(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if request.GetString("card", "") == "" {
		stopped, err := s.board.StopAll()
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to stop tracking: %v", err)), nil
		}
		if stopped == nil {
			stopped = []string{}
		}
		return jsonResult(map[string]any{"stopped": stopped}, "result")
	}

	card, col, errResult := s.resolveCard(request)
	if errResult != nil {
		return errResult, nil
	}
	stopped, err := s.board.StopTracking(col, card.ID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to stop tracking: %v", err)), nil
	}
	return jsonResult(s.cardOut(stopped, col), "card")
}

// chronoflow_stats
func (s *Server) statsTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("chronoflow_stats",
		mcp.WithDescription("Board statistics: per-column totals, overdue and over-estimate cards, and a 0-100 health score."),
	)
	return tool, s.handleStats
}

func (s *Server) handleStats(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(s.session.Stats(), "stats")
}

// chronoflow_notifications
func (s *Server) notificationsTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("chronoflow_notifications",
		mcp.WithDescription("List recent time warnings and other notifications, newest first."),
		mcp.WithString("card", mcp.Description("Only notifications for this card id")),
		mcp.WithNumber("limit", mcp.Description("Maximum number of notifications (default 50)")),
	)
	return tool, s.handleNotifications
}

func (s *Server) handleNotifications(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	list, err := s.session.Notifications(ctx, store.NotificationFilter{
		CardID: request.GetString("card", ""),
		Limit:  request.GetInt("limit", 0),
	})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to list notifications: %v", err)), nil
	}
	if list == nil {
		list = []models.Notification{}
	}
	return jsonResult(list, "notifications")
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

// resolveCard reads the "card" argument and resolves it on the board. A
// non-nil result is the error to return to the caller.
func (s *Server) resolveCard(request mcp.CallToolRequest) (*models.Card, models.ColumnID, *mcp.CallToolResult) {
	ref, err := request.RequireString("card")
	if err != nil || strings.TrimSpace(ref) == "" {
		return nil, "", mcp.NewToolResultError("missing required parameter: card")
	}
	card, col, err := s.board.ResolveCard(ref)
	if err != nil {
		return nil, "", mcp.NewToolResultError(fmt.Sprintf("card not found: %v", err))
	}
	return card, col, nil
}

func (s *Server) resolveLabels(list string) ([]string, error) {
	var out []string
	for _, ref := range strings.Split(list, ",") {
		ref = strings.TrimSpace(ref)
		if ref == "" {
			continue
		}
		label, err := s.board.Label(ref)
		if err != nil {
			return nil, fmt.Errorf("unknown label %q", ref)
		}
		out = append(out, label.ID)
	}
	return out, nil
}

func parseDate(v string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.DateOnly, v)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: use RFC 3339 or YYYY-MM-DD", v)
	}
	return t, nil
}

func jsonResult(v any, what string) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal %s: %v", what, err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}
