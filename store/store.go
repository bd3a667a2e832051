// Package store persists tickets, the agent decisions recorded for them and
// the drafted responses awaiting review.
package store

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/sweetpotato0/ai-triage/ticket"
)

// Id prefixes.
const (
	TicketPrefix   = "TKT"
	DecisionPrefix = "DEC"
	DraftPrefix    = "RESP"
)

// DefaultListLimit is used when ListTickets is called with limit <= 0.
const DefaultListLimit = 50

// Store is implemented by every persistence backend.
//
// CreateTicket fails with errors.ErrAlreadyExists for a duplicate id, and the
// lookups fail with errors.ErrNotFound. SaveDecisions and SaveDraft assign ids
// to entries that have none.
type Store interface {
	CreateTicket(ctx context.Context, t *ticket.Ticket) error
	UpdateTicket(ctx context.Context, t *ticket.Ticket) error
	GetTicket(ctx context.Context, id string) (*ticket.Ticket, error)
	// ListTickets returns tickets newest first. An empty status matches all.
	ListTickets(ctx context.Context, status ticket.Status, offset, limit int) ([]ticket.Ticket, error)

	SaveDecisions(ctx context.Context, decisions []ticket.AgentDecision) error
	SaveDraft(ctx context.Context, d *ticket.DraftedResponse) error
	// Decisions returns the decisions of a ticket in the order they were made.
	Decisions(ctx context.Context, ticketID string) ([]ticket.AgentDecision, error)
	Drafts(ctx context.Context, ticketID string) ([]ticket.DraftedResponse, error)

	Close() error
}

// NewID returns prefix-XXXXXXXX with eight upper-case hex characters.
func NewID(prefix string) string {
	return prefix + "-" + strings.ToUpper(uuid.NewString()[:8])
}

func normalizePage(offset, limit int) (int, int) {
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 {
		limit = DefaultListLimit
	}
	return offset, limit
}
