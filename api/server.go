// Package api exposes the ticket service and the knowledge base over HTTP.
package api

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/sweetpotato0/ai-triage/errors"
	"github.com/sweetpotato0/ai-triage/pkg/logging"
	"github.com/sweetpotato0/ai-triage/retrieval"
	"github.com/sweetpotato0/ai-triage/service"
	"github.com/sweetpotato0/ai-triage/ticket"
	"github.com/sweetpotato0/ai-triage/vector"
)

// ServiceName is reported by the health endpoint.
const ServiceName = "ai-triage"

// maxBodyBytes bounds request bodies, including KB uploads.
const maxBodyBytes = 8 << 20

// KnowledgeBase is the part of the retriever the API manages.
type KnowledgeBase interface {
	IndexDocuments(ctx context.Context, docs []retrieval.SourceDocument) (int, error)
	Stats(ctx context.Context) (vector.Stats, error)
}

type (
	// ErrorResponse is written for every failed request.
	ErrorResponse struct {
		Error      string `json:"error"`
		Message    string `json:"message"`
		StatusCode int    `json:"status_code"`
		Timestamp  string `json:"timestamp"`
	}

	// HealthResponse is returned by /health.
	HealthResponse struct {
		Status    string `json:"status"`
		Service   string `json:"service"`
		Version   string `json:"version,omitempty"`
		Timestamp string `json:"timestamp"`
	}

	// DecisionsResponse lists the audit trail of one ticket.
	DecisionsResponse struct {
		TicketID  string                 `json:"ticket_id"`
		Decisions []ticket.AgentDecision `json:"decisions"`
		Count     int                    `json:"count"`
	}

	// IndexRequest uploads knowledge base documents.
	IndexRequest struct {
		Documents []retrieval.SourceDocument `json:"documents"`
	}

	// StatusRequest changes a ticket's lifecycle state.
	StatusRequest struct {
		Status ticket.Status `json:"status"`
	}
)

// Server serves the HTTP API.
type Server struct {
	tickets *service.TicketService
	kb      KnowledgeBase
	version string
	logger  *slog.Logger
	server  *http.Server
}

// Option customizes a Server.
type Option func(*Server)

func WithVersion(v string) Option {
	return func(s *Server) { s.version = v }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// New creates a server listening on addr.
func New(addr string, tickets *service.TicketService, kb KnowledgeBase, opts ...Option) *Server {
	s := &Server{
		tickets: tickets,
		kb:      kb,
		logger:  logging.WithComponent("api"),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		// Ticket submission waits for the whole pipeline.
		WriteTimeout: 3 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Handler returns the routed, instrumented handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.health)
	mux.HandleFunc("GET /ping", s.ping)

	mux.HandleFunc("POST /api/v1/tickets", s.submitTicket)
	mux.HandleFunc("GET /api/v1/tickets", s.listTickets)
	mux.HandleFunc("GET /api/v1/tickets/{id}", s.getTicket)
	mux.HandleFunc("GET /api/v1/tickets/{id}/decisions", s.getDecisions)
	mux.HandleFunc("GET /api/v1/tickets/{id}/drafts", s.getDrafts)
	mux.HandleFunc("PATCH /api/v1/tickets/{id}/status", s.updateStatus)
	mux.HandleFunc("POST /api/v1/tickets/{id}/reprocess", s.reprocess)

	mux.HandleFunc("POST /api/v1/kb/documents", s.indexDocuments)
	mux.HandleFunc("GET /api/v1/kb/stats", s.kbStats)

	return otelhttp.NewHandler(s.logRequests(mux), "triage.http")
}

// Start serves until Shutdown is called.
func (s *Server) Start() error {
	s.logger.Info("HTTP server listening", "addr", s.server.Addr)
	if err := s.server.ListenAndServe(); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests and waits for in-flight ones.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, HealthResponse{
		Status:    "healthy",
		Service:   ServiceName,
		Version:   s.version,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) ping(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"message": "pong"})
}

func (s *Server) submitTicket(w http.ResponseWriter, r *http.Request) {
	var req service.CreateRequest
	if !s.decode(w, r, &req) {
		return
	}
	s.logger.InfoContext(r.Context(), "received ticket submission", "user_email", req.UserEmail)

	res, err := s.tickets.Submit(r.Context(), req)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, res)
}

func (s *Server) listTickets(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	skip, err := queryInt(q.Get("skip"), 0)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid skip: %v", err))
		return
	}
	limit, err := queryInt(q.Get("limit"), 50)
	if err != nil || limit < 1 {
		s.writeError(w, http.StatusBadRequest, "limit must be a positive integer")
		return
	}
	status := q.Get("status_filter")
	if status == "" {
		status = q.Get("status")
	}

	tickets, err := s.tickets.List(r.Context(), ticket.Status(status), skip, limit)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, tickets)
}

func (s *Server) getTicket(w http.ResponseWriter, r *http.Request) {
	t, err := s.tickets.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, t)
}

func (s *Server) getDecisions(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	decisions, err := s.tickets.Decisions(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, DecisionsResponse{TicketID: id, Decisions: decisions, Count: len(decisions)})
}

func (s *Server) getDrafts(w http.ResponseWriter, r *http.Request) {
	drafts, err := s.tickets.Drafts(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, drafts)
}

func (s *Server) updateStatus(w http.ResponseWriter, r *http.Request) {
	var req StatusRequest
	if !s.decode(w, r, &req) {
		return
	}
	t, err := s.tickets.UpdateStatus(r.Context(), r.PathValue("id"), req.Status)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, t)
}

func (s *Server) reprocess(w http.ResponseWriter, r *http.Request) {
	res, err := s.tickets.Reprocess(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, res)
}

func (s *Server) indexDocuments(w http.ResponseWriter, r *http.Request) {
	var req IndexRequest
	if !s.decode(w, r, &req) {
		return
	}
	if len(req.Documents) == 0 {
		s.writeError(w, http.StatusBadRequest, "documents cannot be empty")
		return
	}
	n, err := s.kb.IndexDocuments(r.Context(), req.Documents)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, map[string]int{"indexed": n})
}

func (s *Server) kbStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.kb.Stats(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"total_vector_count": stats.Count,
		"dimension":          stats.Dimension,
		"index_fullness":     stats.Fullness,
	})
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return false
	}
	return true
}

func queryInt(raw string, def int) (int, error) {
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, fmt.Errorf("must not be negative")
	}
	return n, nil
}

func statusFor(err error) int {
	switch {
	case stderrors.Is(err, errors.ErrInvalidInput):
		return http.StatusBadRequest
	case stderrors.Is(err, errors.ErrNotFound):
		return http.StatusNotFound
	case stderrors.Is(err, errors.ErrAlreadyExists):
		return http.StatusConflict
	case stderrors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	code := statusFor(err)
	if code >= http.StatusInternalServerError {
		s.logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "error", err)
	}
	s.writeError(w, code, err.Error())
}

func (s *Server) writeJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Warn("failed to encode response", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, statusCode int, message string) {
	s.writeJSON(w, statusCode, ErrorResponse{
		Error:      http.StatusText(statusCode),
		Message:    message,
		StatusCode: statusCode,
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.DebugContext(r.Context(), "http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}
