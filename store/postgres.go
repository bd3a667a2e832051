package store

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sweetpotato0/ai-triage/errors"
	"github.com/sweetpotato0/ai-triage/ticket"
)

const uniqueViolation = "23505"

const postgresSchema = `
CREATE TABLE IF NOT EXISTS tickets (
	id          VARCHAR(50) PRIMARY KEY,
	title       VARCHAR(200) NOT NULL,
	description TEXT NOT NULL,
	user_email  VARCHAR(255) NOT NULL,
	category    VARCHAR(100) NOT NULL DEFAULT '',
	status      VARCHAR(20) NOT NULL,
	priority    VARCHAR(20) NOT NULL,
	intent      VARCHAR(50) NOT NULL DEFAULT '',
	sentiment   VARCHAR(20) NOT NULL DEFAULT '',
	created_at  TIMESTAMPTZ NOT NULL,
	updated_at  TIMESTAMPTZ NOT NULL,
	resolved_at TIMESTAMPTZ
);
CREATE INDEX IF NOT EXISTS idx_tickets_status ON tickets(status);
CREATE INDEX IF NOT EXISTS idx_tickets_created_at ON tickets(created_at);

CREATE TABLE IF NOT EXISTS agent_decisions (
	seq         BIGSERIAL,
	id          VARCHAR(50) PRIMARY KEY,
	ticket_id   VARCHAR(50) NOT NULL REFERENCES tickets(id) ON DELETE CASCADE,
	agent_name  VARCHAR(100) NOT NULL,
	action      VARCHAR(100) NOT NULL,
	output_data JSONB NOT NULL,
	confidence  DOUBLE PRECISION,
	timestamp   TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_agent_decisions_ticket ON agent_decisions(ticket_id);

CREATE TABLE IF NOT EXISTS drafted_responses (
	id                    VARCHAR(50) PRIMARY KEY,
	ticket_id             VARCHAR(50) NOT NULL REFERENCES tickets(id) ON DELETE CASCADE,
	draft_text            TEXT NOT NULL,
	confidence            DOUBLE PRECISION NOT NULL,
	kb_documents          JSONB NOT NULL,
	requires_human_review BOOLEAN NOT NULL,
	created_at            TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_drafted_responses_ticket ON drafted_responses(ticket_id);
`

const ticketColumns = `id, title, description, user_email, category, status, priority, intent, sentiment, created_at, updated_at, resolved_at`

// PostgresStore implements Store on PostgreSQL through a pgx connection pool.
type PostgresStore struct {
	pool *pgxpool.Pool
}

var _ Store = (*PostgresStore)(nil)

// NewPostgresStore connects to dsn and creates the tables if needed.
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping PostgreSQL: %w", err)
	}
	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) CreateTicket(ctx context.Context, t *ticket.Ticket) error {
	if t == nil || t.ID == "" {
		return fmt.Errorf("ticket id is required: %w", errors.ErrInvalidInput)
	}
	now := time.Now().UTC()
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	if t.UpdatedAt.IsZero() {
		t.UpdatedAt = t.CreatedAt
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO tickets (`+ticketColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		t.ID, t.Title, t.Description, t.UserEmail, t.Category, string(t.Status), string(t.Priority),
		string(t.Intent), string(t.Sentiment), t.CreatedAt, t.UpdatedAt, t.ResolvedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if stderrors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return fmt.Errorf("ticket %s: %w", t.ID, errors.ErrAlreadyExists)
		}
		return fmt.Errorf("failed to insert ticket: %w", err)
	}
	return nil
}

func (s *PostgresStore) UpdateTicket(ctx context.Context, t *ticket.Ticket) error {
	if t == nil || t.ID == "" {
		return fmt.Errorf("ticket id is required: %w", errors.ErrInvalidInput)
	}
	t.UpdatedAt = time.Now().UTC()

	tag, err := s.pool.Exec(ctx, `
		UPDATE tickets SET title = $2, description = $3, user_email = $4, category = $5,
			status = $6, priority = $7, intent = $8, sentiment = $9, updated_at = $10, resolved_at = $11
		WHERE id = $1`,
		t.ID, t.Title, t.Description, t.UserEmail, t.Category, string(t.Status), string(t.Priority),
		string(t.Intent), string(t.Sentiment), t.UpdatedAt, t.ResolvedAt)
	if err != nil {
		return fmt.Errorf("failed to update ticket: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("ticket %s: %w", t.ID, errors.ErrNotFound)
	}
	return nil
}

func (s *PostgresStore) GetTicket(ctx context.Context, id string) (*ticket.Ticket, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+ticketColumns+` FROM tickets WHERE id = $1`, id)
	t, err := scanTicket(row)
	if err != nil {
		if stderrors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("ticket %s: %w", id, errors.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get ticket: %w", err)
	}
	return t, nil
}

func (s *PostgresStore) ListTickets(ctx context.Context, status ticket.Status, offset, limit int) ([]ticket.Ticket, error) {
	offset, limit = normalizePage(offset, limit)

	rows, err := s.pool.Query(ctx, `
		SELECT `+ticketColumns+` FROM tickets
		WHERE $1 = '' OR status = $1
		ORDER BY created_at DESC, id
		OFFSET $2 LIMIT $3`, string(status), offset, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list tickets: %w", err)
	}
	defer rows.Close()

	out := make([]ticket.Ticket, 0)
	for rows.Next() {
		t, err := scanTicket(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan ticket: %w", err)
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}

func scanTicket(row pgx.Row) (*ticket.Ticket, error) {
	var (
		t                                   ticket.Ticket
		status, priority, intent, sentiment string
	)
	err := row.Scan(&t.ID, &t.Title, &t.Description, &t.UserEmail, &t.Category,
		&status, &priority, &intent, &sentiment, &t.CreatedAt, &t.UpdatedAt, &t.ResolvedAt)
	if err != nil {
		return nil, err
	}
	t.Status = ticket.Status(status)
	t.Priority = ticket.Priority(priority)
	t.Intent = ticket.Intent(intent)
	t.Sentiment = ticket.Sentiment(sentiment)
	return &t, nil
}

func (s *PostgresStore) SaveDecisions(ctx context.Context, decisions []ticket.AgentDecision) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	for i := range decisions {
		d := &decisions[i]
		if d.ID == "" {
			d.ID = NewID(DecisionPrefix)
		}
		output, err := json.Marshal(d.Output)
		if err != nil {
			return fmt.Errorf("failed to marshal decision output: %w", err)
		}
		_, err = tx.Exec(ctx, `
			INSERT INTO agent_decisions (id, ticket_id, agent_name, action, output_data, confidence, timestamp)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			d.ID, d.TicketID, d.AgentName, d.Action, string(output), d.Confidence, d.Timestamp)
		if err != nil {
			return fmt.Errorf("failed to insert decision: %w", err)
		}
	}
	return tx.Commit(ctx)
}

func (s *PostgresStore) SaveDraft(ctx context.Context, d *ticket.DraftedResponse) error {
	if d == nil {
		return fmt.Errorf("draft cannot be nil: %w", errors.ErrInvalidInput)
	}
	if d.ID == "" {
		d.ID = NewID(DraftPrefix)
	}
	if d.CreatedAt.IsZero() {
		d.CreatedAt = time.Now().UTC()
	}
	docs, err := json.Marshal(d.KBDocuments)
	if err != nil {
		return fmt.Errorf("failed to marshal kb documents: %w", err)
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO drafted_responses (id, ticket_id, draft_text, confidence, kb_documents, requires_human_review, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		d.ID, d.TicketID, d.DraftText, d.Confidence, string(docs), d.RequiresHumanReview, d.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert draft: %w", err)
	}
	return nil
}

func (s *PostgresStore) Decisions(ctx context.Context, ticketID string) ([]ticket.AgentDecision, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, ticket_id, agent_name, action, output_data, confidence, timestamp
		FROM agent_decisions WHERE ticket_id = $1 ORDER BY seq`, ticketID)
	if err != nil {
		return nil, fmt.Errorf("failed to query decisions: %w", err)
	}
	defer rows.Close()

	out := make([]ticket.AgentDecision, 0)
	for rows.Next() {
		var (
			d      ticket.AgentDecision
			output []byte
		)
		if err := rows.Scan(&d.ID, &d.TicketID, &d.AgentName, &d.Action, &output, &d.Confidence, &d.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan decision: %w", err)
		}
		if err := json.Unmarshal(output, &d.Output); err != nil {
			return nil, fmt.Errorf("failed to unmarshal decision output: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (s *PostgresStore) Drafts(ctx context.Context, ticketID string) ([]ticket.DraftedResponse, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, ticket_id, draft_text, confidence, kb_documents, requires_human_review, created_at
		FROM drafted_responses WHERE ticket_id = $1 ORDER BY created_at`, ticketID)
	if err != nil {
		return nil, fmt.Errorf("failed to query drafts: %w", err)
	}
	defer rows.Close()

	out := make([]ticket.DraftedResponse, 0)
	for rows.Next() {
		var (
			d    ticket.DraftedResponse
			docs []byte
		)
		if err := rows.Scan(&d.ID, &d.TicketID, &d.DraftText, &d.Confidence, &docs, &d.RequiresHumanReview, &d.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan draft: %w", err)
		}
		if err := json.Unmarshal(docs, &d.KBDocuments); err != nil {
			return nil, fmt.Errorf("failed to unmarshal kb documents: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// Truncate removes every row. Used by tests.
func (s *PostgresStore) Truncate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `TRUNCATE drafted_responses, agent_decisions, tickets`)
	return err
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
