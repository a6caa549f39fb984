// Package api serves the board over a JSON REST API.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/fosterushka/Chronoflow-sub000/internal/board"
	"github.com/fosterushka/Chronoflow-sub000/internal/models"
	"github.com/fosterushka/Chronoflow-sub000/internal/session"
	"github.com/fosterushka/Chronoflow-sub000/internal/store"
	"github.com/fosterushka/Chronoflow-sub000/internal/transfer"
)

// maxBodyBytes caps request bodies, imports included.
const maxBodyBytes = 10 << 20

// Server provides the REST API handlers.
type Server struct {
	session *session.Session
	board   *board.Board
	logger  *slog.Logger
	static  http.Handler
}

// Option configures a Server.
type Option func(*Server)

// WithStatic serves h for every path outside the API, e.g. the board viewer.
func WithStatic(h http.Handler) Option {
	return func(s *Server) { s.static = h }
}

// NewServer creates a new API server for the session. A nil logger discards.
func NewServer(sess *session.Session, logger *slog.Logger, opts ...Option) *Server {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	s := &Server{session: sess, board: sess.Board, logger: logger}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Router returns an http.Handler for the API routes.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(corsMiddleware)

	r.Get("/health", s.health)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/board", s.getBoard)
		r.Post("/board/reset", s.resetBoard)
		r.Get("/columns/{column}", s.getColumn)
		r.Post("/columns/{column}/cards", s.addCard)

		r.Get("/cards", s.listCards)
		r.Route("/cards/{id}", func(r chi.Router) {
			r.Get("/", s.getCard)
			r.Patch("/", s.editCard)
			r.Delete("/", s.deleteCard)
			r.Post("/move", s.moveCard)
			r.Get("/history", s.cardHistory)
			r.Post("/comments", s.addComment)
			r.Post("/tracking/start", s.startTracking)
			r.Post("/tracking/stop", s.stopTracking)
			r.Post("/tracking/toggle", s.toggleTracking)
		})

		r.Get("/tracking", s.currentTracking)
		r.Post("/tracking/stop-all", s.stopAll)

		r.Get("/archive", s.listArchive)
		r.Post("/archive/{id}/restore", s.restoreCard)

		r.Get("/labels", s.listLabels)
		r.Post("/labels", s.addLabel)
		r.Delete("/labels/{id}", s.deleteLabel)

		r.Get("/stats", s.stats)
		r.Get("/notifications", s.listNotifications)

		r.Get("/export", s.export)
		r.Post("/import", s.importBoard)
	})

	if s.static != nil {
		r.Handle("/*", s.static)
	}
	return r
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)

		level := slog.LevelInfo
		switch {
		case ww.Status() >= 500:
			level = slog.LevelError
		case ww.Status() >= 400:
			level = slog.LevelWarn
		}
		s.logger.Log(r.Context(), level, "request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeBoardError maps engine errors onto HTTP statuses: unknown ids are 404,
// rejected input 400, rejected imports 422 and everything else 500.
func writeBoardError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, board.ErrCardNotFound),
		errors.Is(err, board.ErrColumnNotFound),
		errors.Is(err, board.ErrLabelNotFound),
		errors.Is(err, board.ErrArchiveNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, board.ErrValidation):
		writeError(w, http.StatusBadRequest, err.Error())
	case transfer.IsImportFormatError(err):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return false
	}
	return true
}

func queryBool(r *http.Request, key string) bool {
	b, _ := strconv.ParseBool(r.URL.Query().Get(key))
	return b
}

// cardView is a card with its column and live elapsed time.
type cardView struct {
	Card               *models.Card    `json:"card"`
	ColumnID           models.ColumnID `json:"columnId"`
	LiveElapsedSeconds int64           `json:"liveElapsedSeconds"`
}

func (s *Server) view(card *models.Card, col models.ColumnID) cardView {
	return cardView{Card: card, ColumnID: col, LiveElapsedSeconds: board.LiveElapsed(card, s.session.Now())}
}

// --- Board ---

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":        true,
		"timestamp": s.session.Now().UTC().Format(time.RFC3339),
		"cards":     s.board.Snapshot().CardCount(),
	})
}

func (s *Server) getBoard(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"columns": s.board.Columns(),
		"labels":  s.board.Labels(),
	})
}

func (s *Server) resetBoard(w http.ResponseWriter, _ *http.Request) {
	if _, err := s.board.StopAll(); err != nil {
		writeBoardError(w, err)
		return
	}
	if err := s.board.Reset(); err != nil {
		writeBoardError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"columns": s.board.Columns()})
}

func (s *Server) getColumn(w http.ResponseWriter, r *http.Request) {
	col, err := s.board.Column(models.ColumnID(chi.URLParam(r, "column")))
	if err != nil {
		writeBoardError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, col)
}

// --- Cards ---

func (s *Server) listCards(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	refs := s.board.Cards(board.Filter{
		ColumnID:     models.ColumnID(q.Get("column")),
		Label:        q.Get("label"),
		Text:         q.Get("q"),
		TrackingOnly: queryBool(r, "tracking"),
		OverdueOnly:  queryBool(r, "overdue"),
	})
	if refs == nil {
		refs = []board.CardRef{}
	}
	writeJSON(w, http.StatusOK, refs)
}

func (s *Server) addCard(w http.ResponseWriter, r *http.Request) {
	var fields board.CardFields
	if !decodeBody(w, r, &fields) {
		return
	}
	card, err := s.board.AddCard(models.ColumnID(chi.URLParam(r, "column")), fields)
	if err != nil {
		writeBoardError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, card)
}

func (s *Server) getCard(w http.ResponseWriter, r *http.Request) {
	card, col, err := s.board.Card(chi.URLParam(r, "id"))
	if err != nil {
		writeBoardError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.view(card, col))
}

func (s *Server) editCard(w http.ResponseWriter, r *http.Request) {
	var patch board.Patch
	if !decodeBody(w, r, &patch) {
		return
	}
	card, err := s.board.EditCard(chi.URLParam(r, "id"), patch)
	if err != nil {
		writeBoardError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, card)
}

// deleteCard archives a card. The column query parameter is optional; the
// card's current column is used when it is absent.
func (s *Server) deleteCard(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	col := models.ColumnID(r.URL.Query().Get("column"))
	if col == "" {
		_, current, err := s.board.Card(id)
		if err != nil {
			writeBoardError(w, err)
			return
		}
		col = current
	}
	entry, err := s.board.DeleteCard(id, col)
	if err != nil {
		writeBoardError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

type moveRequest struct {
	From models.ColumnID `json:"from"`
	To   models.ColumnID `json:"to"`
}

func (s *Server) moveCard(w http.ResponseWriter, r *http.Request) {
	var req moveRequest
	if !decodeBody(w, r, &req) {
		return
	}
	id := chi.URLParam(r, "id")
	if req.From == "" {
		_, current, err := s.board.Card(id)
		if err != nil {
			writeBoardError(w, err)
			return
		}
		req.From = current
	}
	card, err := s.board.MoveCard(id, req.From, req.To)
	if err != nil {
		writeBoardError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.view(card, req.To))
}

func (s *Server) cardHistory(w http.ResponseWriter, r *http.Request) {
	card, _, err := s.board.Card(chi.URLParam(r, "id"))
	if err != nil {
		writeBoardError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, card.AuditHistory)
}

func (s *Server) addComment(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Text string `json:"text"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	card, err := s.board.AddComment(chi.URLParam(r, "id"), req.Text)
	if err != nil {
		writeBoardError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, card.AuditHistory[len(card.AuditHistory)-1])
}

// --- Tracking ---

type trackingFunc func(models.ColumnID, string) (*models.Card, error)

func (s *Server) tracking(fn trackingFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		_, col, err := s.board.Card(id)
		if err != nil {
			writeBoardError(w, err)
			return
		}
		card, err := fn(col, id)
		if err != nil {
			writeBoardError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, s.view(card, col))
	}
}

func (s *Server) startTracking(w http.ResponseWriter, r *http.Request) {
	s.tracking(s.board.StartTracking)(w, r)
}

func (s *Server) stopTracking(w http.ResponseWriter, r *http.Request) {
	s.tracking(s.board.StopTracking)(w, r)
}

func (s *Server) toggleTracking(w http.ResponseWriter, r *http.Request) {
	s.tracking(s.board.ToggleTracking)(w, r)
}

func (s *Server) currentTracking(w http.ResponseWriter, _ *http.Request) {
	card, col := s.board.TrackingCard()
	if card == nil {
		writeJSON(w, http.StatusOK, map[string]any{"tracking": false})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"tracking": true, "current": s.view(card, col)})
}

func (s *Server) stopAll(w http.ResponseWriter, _ *http.Request) {
	stopped, err := s.board.StopAll()
	if err != nil {
		writeBoardError(w, err)
		return
	}
	if stopped == nil {
		stopped = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"stopped": stopped})
}

// --- Archive ---

func (s *Server) listArchive(w http.ResponseWriter, _ *http.Request) {
	entries := s.board.Archive().List()
	if entries == nil {
		entries = []models.ArchivedCard{}
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) restoreCard(w http.ResponseWriter, r *http.Request) {
	card, col, err := s.board.RestoreCard(chi.URLParam(r, "id"))
	if err != nil {
		writeBoardError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.view(card, col))
}

// --- Labels ---

func (s *Server) listLabels(w http.ResponseWriter, _ *http.Request) {
	labels := s.board.Labels()
	if labels == nil {
		labels = []models.Label{}
	}
	writeJSON(w, http.StatusOK, labels)
}

func (s *Server) addLabel(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name  string `json:"name"`
		Color string `json:"color"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	label, err := s.board.AddLabel(req.Name, req.Color)
	if err != nil {
		writeBoardError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, label)
}

func (s *Server) deleteLabel(w http.ResponseWriter, r *http.Request) {
	affected, err := s.board.DeleteLabel(chi.URLParam(r, "id"))
	if err != nil {
		writeBoardError(w, err)
		return
	}
	if affected == nil {
		affected = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"cards": affected})
}

// --- Stats & notifications ---

func (s *Server) stats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.session.Stats())
}

func (s *Server) listNotifications(w http.ResponseWriter, r *http.Request) {
	filter := store.NotificationFilter{CardID: r.URL.Query().Get("card")}
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid limit: %s", v))
			return
		}
		filter.Limit = n
	}
	list, err := s.session.Notifications(r.Context(), filter)
	if err != nil {
		writeBoardError(w, err)
		return
	}
	if list == nil {
		list = []models.Notification{}
	}
	writeJSON(w, http.StatusOK, list)
}

// --- Import / export ---

func formatParam(r *http.Request) (transfer.Format, error) {
	v := r.URL.Query().Get("format")
	if v == "" {
		return transfer.FormatJSON, nil
	}
	return transfer.ParseFormat(v)
}

var contentTypes = map[transfer.Format]string{
	transfer.FormatJSON:     "application/json",
	transfer.FormatYAML:     "application/yaml",
	transfer.FormatCSV:      "text/csv",
	transfer.FormatMarkdown: "text/markdown",
}

func (s *Server) export(w http.ResponseWriter, r *http.Request) {
	f, err := formatParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	w.Header().Set("Content-Type", contentTypes[f])
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", transfer.ExportedName(s.session.Now(), f)))
	if err := s.session.Export(w, f); err != nil {
		s.logger.Error("export failed", "format", f, "error", err)
	}
}

func (s *Server) importBoard(w http.ResponseWriter, r *http.Request) {
	f, err := formatParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	snap, err := s.session.Import(http.MaxBytesReader(w, r.Body, maxBodyBytes), f)
	if err != nil {
		writeBoardError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"columns": len(snap.Columns),
		"cards":   snap.CardCount(),
	})
}
