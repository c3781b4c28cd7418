// Package api exposes the intake and admin HTTP surface.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/tooldesk-io/tooldesk/internal/logbuf"
	"github.com/tooldesk-io/tooldesk/pkg/protocol"
)

// ChatService handles one intake turn.
type ChatService interface {
	Handle(ctx context.Context, channel, sessionID, message string) (string, error)
}

// TicketLister is the slice of the ticket store the admin view needs.
type TicketLister interface {
	List(ctx context.Context, limit int) ([]*protocol.Ticket, error)
}

// LogQuerier abstracts log entry querying for the admin surface.
type LogQuerier interface {
	Query(since time.Time, minLevel slog.Level, limit int) []logbuf.Entry
}

// Config holds HTTP server configuration.
type Config struct {
	Host     string
	Port     int
	AdminKey string // Bearer key for admin endpoints; empty disables auth
}

// Server is the tooldesk HTTP server.
type Server struct {
	chat    ChatService
	tickets TicketLister
	cfg     Config
	logger  *slog.Logger
	logs    LogQuerier
	static  http.Handler
	srv     *http.Server
}

// NewServer creates a Server. logs and static may be nil.
func NewServer(chat ChatService, tickets TicketLister, cfg Config, logger *slog.Logger, logs LogQuerier, static http.Handler) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		chat:    chat,
		tickets: tickets,
		cfg:     cfg,
		logger:  logger,
		logs:    logs,
		static:  static,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/health", s.handleHealth)
	mux.HandleFunc("POST /chat", s.handleChat)
	mux.HandleFunc("GET /admin-data", s.requireAuth(s.handleAdminData))
	mux.HandleFunc("GET /api/logs", s.requireAuth(s.handleGetLogs))
	if static != nil {
		mux.Handle("GET /", static)
	}

	s.srv = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:           s.corsMiddleware(mux),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Start begins listening. Blocks until the context is cancelled.
func (s *Server) Start(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.srv.Shutdown(shutCtx)
	}()

	s.logger.Info("http server starting", "addr", s.srv.Addr)
	if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// Handler returns the underlying http.Handler for testing.
func (s *Server) Handler() http.Handler {
	return s.srv.Handler
}

// --- Middleware ---

func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.cfg.AdminKey == "" {
			next(w, r)
			return
		}
		auth := r.Header.Get("Authorization")
		if !strings.HasPrefix(auth, "Bearer ") || strings.TrimPrefix(auth, "Bearer ") != s.cfg.AdminKey {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
			return
		}
		next(w, r)
	}
}

// --- Handlers ---

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type chatRequest struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
}

type chatResponse struct {
	Reply string `json:"reply"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}
	if req.SessionID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "session_id is required"})
		return
	}
	if req.Message == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "message is required"})
		return
	}

	reply, err := s.chat.Handle(r.Context(), "web", req.SessionID, req.Message)
	if err != nil {
		// Agent failures surface as server errors; the turn left no
		// partial state behind.
		s.logger.Error("chat turn failed", "session", req.SessionID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "chat turn failed"})
		return
	}
	writeJSON(w, http.StatusOK, chatResponse{Reply: reply})
}

// adminTicket is the admin view of a ticket: the timestamp is rendered as an
// RFC3339 string, null when the record has none.
type adminTicket struct {
	ID               string  `json:"id"`
	ToolName         string  `json:"tool_name"`
	IssueDescription string  `json:"issue_description"`
	BusinessImpact   string  `json:"business_impact"`
	Priority         string  `json:"priority"`
	Channel          string  `json:"channel,omitempty"`
	Timestamp        *string `json:"timestamp"`
}

func (s *Server) handleAdminData(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if l := r.URL.Query().Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 {
			limit = n
		}
	}

	tickets, err := s.tickets.List(r.Context(), limit)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	out := make([]adminTicket, 0, len(tickets))
	for _, t := range tickets {
		at := adminTicket{
			ID:               t.ID,
			ToolName:         t.ToolName,
			IssueDescription: t.IssueDescription,
			BusinessImpact:   t.BusinessImpact,
			Priority:         t.Priority,
			Channel:          t.Channel,
		}
		if t.Timestamp != nil {
			ts := t.Timestamp.UTC().Format(time.RFC3339)
			at.Timestamp = &ts
		}
		out = append(out, at)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetLogs(w http.ResponseWriter, r *http.Request) {
	if s.logs == nil {
		writeJSON(w, http.StatusOK, []logbuf.Entry{})
		return
	}

	limit := 200
	if l := r.URL.Query().Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 {
			limit = n
		}
	}

	minLevel := slog.LevelDebug
	if lvl := r.URL.Query().Get("level"); lvl != "" {
		minLevel = logbuf.ParseLevel(strings.ToUpper(lvl))
	}

	var since time.Time
	if v := r.URL.Query().Get("since"); v != "" {
		if ms, err := strconv.ParseInt(v, 10, 64); err == nil {
			since = time.UnixMilli(ms)
		}
	}

	entries := s.logs.Query(since, minLevel, limit)
	if entries == nil {
		entries = []logbuf.Entry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

// --- Helpers ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
