package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/sweetpotato0/ai-triage/errors"
	"github.com/sweetpotato0/ai-triage/ticket"
)

// MemoryStore implements Store in process memory.
type MemoryStore struct {
	mu        sync.RWMutex
	tickets   map[string]ticket.Ticket
	decisions map[string][]ticket.AgentDecision
	drafts    map[string][]ticket.DraftedResponse
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		tickets:   make(map[string]ticket.Ticket),
		decisions: make(map[string][]ticket.AgentDecision),
		drafts:    make(map[string][]ticket.DraftedResponse),
	}
}

func (s *MemoryStore) CreateTicket(ctx context.Context, t *ticket.Ticket) error {
	if t == nil || t.ID == "" {
		return fmt.Errorf("ticket id is required: %w", errors.ErrInvalidInput)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tickets[t.ID]; ok {
		return fmt.Errorf("ticket %s: %w", t.ID, errors.ErrAlreadyExists)
	}
	now := time.Now().UTC()
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	if t.UpdatedAt.IsZero() {
		t.UpdatedAt = t.CreatedAt
	}
	s.tickets[t.ID] = *t
	return nil
}

func (s *MemoryStore) UpdateTicket(ctx context.Context, t *ticket.Ticket) error {
	if t == nil || t.ID == "" {
		return fmt.Errorf("ticket id is required: %w", errors.ErrInvalidInput)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tickets[t.ID]; !ok {
		return fmt.Errorf("ticket %s: %w", t.ID, errors.ErrNotFound)
	}
	t.UpdatedAt = time.Now().UTC()
	s.tickets[t.ID] = *t
	return nil
}

func (s *MemoryStore) GetTicket(ctx context.Context, id string) (*ticket.Ticket, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.tickets[id]
	if !ok {
		return nil, fmt.Errorf("ticket %s: %w", id, errors.ErrNotFound)
	}
	return &t, nil
}

func (s *MemoryStore) ListTickets(ctx context.Context, status ticket.Status, offset, limit int) ([]ticket.Ticket, error) {
	offset, limit = normalizePage(offset, limit)

	s.mu.RLock()
	all := make([]ticket.Ticket, 0, len(s.tickets))
	for _, t := range s.tickets {
		if status == "" || t.Status == status {
			all = append(all, t)
		}
	}
	s.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool {
		if all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].ID < all[j].ID
		}
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})

	if offset >= len(all) {
		return []ticket.Ticket{}, nil
	}
	end := min(offset+limit, len(all))
	return all[offset:end], nil
}

func (s *MemoryStore) SaveDecisions(ctx context.Context, decisions []ticket.AgentDecision) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range decisions {
		if decisions[i].ID == "" {
			decisions[i].ID = NewID(DecisionPrefix)
		}
		d := decisions[i]
		s.decisions[d.TicketID] = append(s.decisions[d.TicketID], d)
	}
	return nil
}

func (s *MemoryStore) SaveDraft(ctx context.Context, d *ticket.DraftedResponse) error {
	if d == nil {
		return fmt.Errorf("draft cannot be nil: %w", errors.ErrInvalidInput)
	}
	if d.ID == "" {
		d.ID = NewID(DraftPrefix)
	}
	if d.CreatedAt.IsZero() {
		d.CreatedAt = time.Now().UTC()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.drafts[d.TicketID] = append(s.drafts[d.TicketID], *d)
	return nil
}

func (s *MemoryStore) Decisions(ctx context.Context, ticketID string) ([]ticket.AgentDecision, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]ticket.AgentDecision{}, s.decisions[ticketID]...), nil
}

func (s *MemoryStore) Drafts(ctx context.Context, ticketID string) ([]ticket.DraftedResponse, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]ticket.DraftedResponse{}, s.drafts[ticketID]...), nil
}

// Close is a no-op.
func (s *MemoryStore) Close() error { return nil }
