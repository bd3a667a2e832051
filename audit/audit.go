// Package audit publishes the decisions of every pipeline run to downstream
// consumers.
package audit

import (
	"context"
	"log/slog"
	"time"

	"github.com/sweetpotato0/ai-triage/pkg/logging"
	"github.com/sweetpotato0/ai-triage/ticket"
)

// Event is emitted once per processed ticket.
type Event struct {
	TicketID            string                 `json:"ticket_id"`
	Intent              ticket.Intent          `json:"intent,omitempty"`
	Priority            ticket.Priority        `json:"priority,omitempty"`
	Confidence          float64                `json:"confidence"`
	RequiresHumanReview bool                   `json:"requires_human_review"`
	Decisions           []ticket.AgentDecision `json:"agent_decisions"`
	Errors              []string               `json:"errors,omitempty"`
	Timestamp           time.Time              `json:"timestamp"`
}

// NewEvent summarises a pipeline result.
func NewEvent(r *ticket.Result) Event {
	return Event{
		TicketID:            r.TicketID,
		Intent:              r.Intent,
		Priority:            r.Priority,
		Confidence:          r.Confidence,
		RequiresHumanReview: r.RequiresHumanReview,
		Decisions:           r.Decisions,
		Errors:              r.Errors,
		Timestamp:           r.CreatedAt,
	}
}

// Publisher delivers events. Implementations must be safe for concurrent use.
type Publisher interface {
	Publish(ctx context.Context, events ...Event) error
	Close() error
}

// LogPublisher writes events to a logger. It is used when no broker is
// configured.
type LogPublisher struct {
	logger *slog.Logger
}

// NewLogPublisher returns a publisher that logs each event at info level.
func NewLogPublisher(logger *slog.Logger) *LogPublisher {
	if logger == nil {
		logger = logging.WithComponent("audit")
	}
	return &LogPublisher{logger: logger}
}

func (p *LogPublisher) Publish(ctx context.Context, events ...Event) error {
	for _, e := range events {
		p.logger.InfoContext(ctx, "triage decision",
			"ticket_id", e.TicketID,
			"intent", e.Intent,
			"priority", e.Priority,
			"confidence", e.Confidence,
			"requires_human_review", e.RequiresHumanReview,
			"decisions", len(e.Decisions),
		)
	}
	return nil
}

func (p *LogPublisher) Close() error { return nil }
