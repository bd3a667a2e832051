// Package service is the ticket lifecycle around the triage pipeline: it
// validates and persists submissions, runs the supervisor and records what
// every agent decided.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"net/mail"
	"strings"
	"time"

	"github.com/sweetpotato0/ai-triage/audit"
	"github.com/sweetpotato0/ai-triage/errors"
	"github.com/sweetpotato0/ai-triage/middleware/validator"
	"github.com/sweetpotato0/ai-triage/pkg/logging"
	"github.com/sweetpotato0/ai-triage/runner"
	"github.com/sweetpotato0/ai-triage/store"
	"github.com/sweetpotato0/ai-triage/ticket"
)

// CreateRequest is a ticket submission.
type CreateRequest struct {
	Title       string          `json:"title"`
	Description string          `json:"description"`
	UserEmail   string          `json:"user_email"`
	Category    string          `json:"category,omitempty"`
	Priority    ticket.Priority `json:"priority,omitempty"`
}

// Validate applies the submission limits.
func (r CreateRequest) Validate() error {
	if err := validator.Ticket(r.Title, r.Description); err != nil {
		return err
	}
	email := strings.TrimSpace(r.UserEmail)
	if email == "" {
		return fmt.Errorf("%w: user_email is required", errors.ErrInvalidInput)
	}
	if addr, err := mail.ParseAddress(email); err != nil || addr.Address != email {
		return fmt.Errorf("%w: user_email %q is not a valid address", errors.ErrInvalidInput, email)
	}
	switch r.Priority {
	case "", ticket.PriorityLow, ticket.PriorityMedium, ticket.PriorityHigh, ticket.PriorityUrgent:
	default:
		return fmt.Errorf("%w: unknown priority %q", errors.ErrInvalidInput, r.Priority)
	}
	return nil
}

// Resolution is returned for every processed ticket.
type Resolution struct {
	TicketID            string                 `json:"ticket_id"`
	Status              ticket.Status          `json:"status"`
	DraftResponse       string                 `json:"drafted_response"`
	Confidence          float64                `json:"confidence_score"`
	RequiresHumanReview bool                   `json:"requires_human_review"`
	Intent              ticket.Intent          `json:"intent,omitempty"`
	Priority            ticket.Priority        `json:"priority,omitempty"`
	Sentiment           ticket.Sentiment       `json:"sentiment,omitempty"`
	KBDocuments         []ticket.KBDocument    `json:"supporting_documents"`
	AgentDecisions      []ticket.AgentDecision `json:"agent_decisions"`
	Errors              []string               `json:"errors,omitempty"`
	// ProcessingTime is in seconds, rounded to two decimals.
	ProcessingTime float64 `json:"processing_time_seconds"`
}

// TicketService coordinates store, pipeline, cache and audit trail.
type TicketService struct {
	store     store.Store
	runner    *runner.Runner
	cache     store.Cache
	publisher audit.Publisher
	logger    *slog.Logger
	now       func() time.Time
}

// Option customizes a TicketService.
type Option func(*TicketService)

// WithCache stores every result in c.
func WithCache(c store.Cache) Option {
	return func(s *TicketService) { s.cache = c }
}

// WithPublisher sends an audit event for every processed ticket.
func WithPublisher(p audit.Publisher) Option {
	return func(s *TicketService) { s.publisher = p }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *TicketService) {
		if l != nil {
			s.logger = l
		}
	}
}

// New creates a ticket service. Pipelines run through r so concurrent
// submissions share its concurrency limit.
func New(st store.Store, r *runner.Runner, opts ...Option) *TicketService {
	s := &TicketService{
		store:  st,
		runner: r,
		logger: logging.WithComponent("service"),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Submit persists a new ticket and processes it. Pipeline stage failures are
// reported in the resolution; an error is returned only for invalid input or
// when persistence fails.
func (s *TicketService) Submit(ctx context.Context, req CreateRequest) (*Resolution, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	start := s.now()

	t := &ticket.Ticket{
		ID:          store.NewID(store.TicketPrefix),
		Title:       strings.TrimSpace(req.Title),
		Description: strings.TrimSpace(req.Description),
		UserEmail:   strings.TrimSpace(req.UserEmail),
		Category:    req.Category,
		Status:      ticket.StatusOpen,
		Priority:    req.Priority,
		CreatedAt:   start.UTC(),
	}
	if t.Priority == "" {
		t.Priority = ticket.PriorityMedium
	}
	if err := s.store.CreateTicket(ctx, t); err != nil {
		return nil, fmt.Errorf("create ticket: %w", err)
	}
	s.logger.InfoContext(ctx, "ticket created", "ticket_id", t.ID)

	return s.process(ctx, t, start)
}

// Reprocess runs the pipeline again for an existing ticket.
func (s *TicketService) Reprocess(ctx context.Context, id string) (*Resolution, error) {
	t, err := s.store.GetTicket(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.process(ctx, t, s.now())
}

func (s *TicketService) process(ctx context.Context, t *ticket.Ticket, start time.Time) (*Resolution, error) {
	result, err := s.runner.Run(ctx, runner.Task{TicketID: t.ID, Title: t.Title, Description: t.Description})
	if err != nil {
		return nil, fmt.Errorf("process ticket %s: %w", t.ID, err)
	}

	t.Status = ticket.StatusInProgress
	if result.Intent != "" {
		t.Intent = result.Intent
	}
	if result.Priority != "" {
		t.Priority = result.Priority
	}
	if result.Sentiment != "" {
		t.Sentiment = result.Sentiment
	}
	if err := s.store.UpdateTicket(ctx, t); err != nil {
		return nil, fmt.Errorf("update ticket: %w", err)
	}
	if err := s.store.SaveDecisions(ctx, result.Decisions); err != nil {
		return nil, fmt.Errorf("save decisions: %w", err)
	}
	if err := s.store.SaveDraft(ctx, &ticket.DraftedResponse{
		TicketID:            t.ID,
		DraftText:           result.DraftText,
		Confidence:          result.Confidence,
		KBDocuments:         result.Documents,
		RequiresHumanReview: result.RequiresHumanReview,
		CreatedAt:           result.CreatedAt,
	}); err != nil {
		return nil, fmt.Errorf("save draft: %w", err)
	}

	if s.cache != nil {
		if err := s.cache.SetResult(ctx, result); err != nil {
			s.logger.WarnContext(ctx, "result cache write failed", "ticket_id", t.ID, "error", err)
		}
	}
	if s.publisher != nil {
		if err := s.publisher.Publish(ctx, audit.NewEvent(result)); err != nil {
			s.logger.WarnContext(ctx, "audit publish failed", "ticket_id", t.ID, "error", err)
		}
	}

	elapsed := s.now().Sub(start).Seconds()
	s.logger.InfoContext(ctx, "ticket processed",
		"ticket_id", t.ID,
		"requires_human_review", result.RequiresHumanReview,
		"confidence", result.Confidence,
		"seconds", elapsed,
	)

	return &Resolution{
		TicketID:            t.ID,
		Status:              t.Status,
		DraftResponse:       result.DraftText,
		Confidence:          result.Confidence,
		RequiresHumanReview: result.RequiresHumanReview,
		Intent:              result.Intent,
		Priority:            result.Priority,
		Sentiment:           result.Sentiment,
		KBDocuments:         result.Documents,
		AgentDecisions:      result.Decisions,
		Errors:              result.Errors,
		ProcessingTime:      math.Round(elapsed*100) / 100,
	}, nil
}

// Get returns a stored ticket.
func (s *TicketService) Get(ctx context.Context, id string) (*ticket.Ticket, error) {
	return s.store.GetTicket(ctx, id)
}

// List returns tickets newest first, optionally filtered by status.
func (s *TicketService) List(ctx context.Context, status ticket.Status, skip, limit int) ([]ticket.Ticket, error) {
	if status != "" && !status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", errors.ErrInvalidInput, status)
	}
	return s.store.ListTickets(ctx, status, skip, limit)
}

// Decisions returns the audit trail of a ticket. Unknown tickets fail with
// errors.ErrNotFound.
func (s *TicketService) Decisions(ctx context.Context, id string) ([]ticket.AgentDecision, error) {
	if _, err := s.store.GetTicket(ctx, id); err != nil {
		return nil, err
	}
	return s.store.Decisions(ctx, id)
}

// Drafts returns every drafted response of a ticket.
func (s *TicketService) Drafts(ctx context.Context, id string) ([]ticket.DraftedResponse, error) {
	if _, err := s.store.GetTicket(ctx, id); err != nil {
		return nil, err
	}
	return s.store.Drafts(ctx, id)
}

// UpdateStatus moves a ticket through its lifecycle. Resolving stamps
// ResolvedAt.
func (s *TicketService) UpdateStatus(ctx context.Context, id string, status ticket.Status) (*ticket.Ticket, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", errors.ErrInvalidInput, status)
	}
	t, err := s.store.GetTicket(ctx, id)
	if err != nil {
		return nil, err
	}
	t.Status = status
	if status == ticket.StatusResolved && t.ResolvedAt == nil {
		now := s.now().UTC()
		t.ResolvedAt = &now
	}
	if err := s.store.UpdateTicket(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}
