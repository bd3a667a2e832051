// Package pg implements vector.Index on PostgreSQL with the pgvector
// extension.
package pg

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"

	_ "github.com/lib/pq"
	"github.com/sweetpotato0/ai-triage/errors"
	"github.com/sweetpotato0/ai-triage/vector"
)

var identifierPattern = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]{0,62}$`)

// Config holds pgvector configuration
type Config struct {
	DSN       string
	TableName string // default: kb_documents
	IndexType string // HNSW or IVFFLAT (default: HNSW)
}

// Index implements vector.Index using PostgreSQL with pgvector extension
type Index struct {
	db        *sql.DB
	table     string
	indexType string

	mu        sync.RWMutex
	dimension int
}

var _ vector.Index = (*Index)(nil)

// New connects to PostgreSQL. The table is created by EnsureIndex.
func New(ctx context.Context, cfg Config) (*Index, error) {
	if cfg.TableName == "" {
		cfg.TableName = "kb_documents"
	}
	if !identifierPattern.MatchString(cfg.TableName) {
		return nil, fmt.Errorf("invalid table name %q: %w", cfg.TableName, errors.ErrInvalidInput)
	}
	indexType := strings.ToUpper(cfg.IndexType)
	if indexType == "" {
		indexType = "HNSW"
	}

	db, err := sql.Open("postgres", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping PostgreSQL: %w", err)
	}

	return &Index{db: db, table: cfg.TableName, indexType: indexType}, nil
}

// EnsureIndex enables pgvector and creates the table and ANN index if they
// do not exist. An existing table with another dimension is rejected.
func (s *Index) EnsureIndex(ctx context.Context, dimension int) error {
	if dimension <= 0 {
		return fmt.Errorf("dimension must be positive, got %d: %w", dimension, errors.ErrInvalidInput)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.ExecContext(ctx, "CREATE EXTENSION IF NOT EXISTS vector"); err != nil {
		return fmt.Errorf("failed to create vector extension: %w", err)
	}

	existing, err := s.existingDimension(ctx)
	if err != nil {
		return err
	}
	if existing > 0 {
		if existing != dimension {
			return fmt.Errorf("table %s has dimension %d, requested %d: %w", s.table, existing, dimension, errors.ErrDimensionMismatch)
		}
		s.dimension = existing
		return nil
	}

	createTable := fmt.Sprintf(`
	CREATE TABLE IF NOT EXISTS %s (
		id VARCHAR(255) PRIMARY KEY,
		text TEXT NOT NULL,
		source VARCHAR(512) NOT NULL DEFAULT 'unknown',
		category VARCHAR(64) NOT NULL DEFAULT 'general',
		embedding vector(%d) NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`, s.table, dimension)
	if _, err := s.db.ExecContext(ctx, createTable); err != nil {
		return fmt.Errorf("failed to create table: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, s.annIndexSQL()); err != nil {
		return fmt.Errorf("failed to create ANN index: %w", err)
	}
	categoryIdx := fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s_category_idx ON %s (category)", s.table, s.table)
	if _, err := s.db.ExecContext(ctx, categoryIdx); err != nil {
		return fmt.Errorf("failed to create category index: %w", err)
	}

	s.dimension = dimension
	return nil
}

func (s *Index) annIndexSQL() string {
	name := s.table + "_embedding_idx"
	if s.indexType == "IVFFLAT" {
		return fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s ON %s USING ivfflat (embedding vector_cosine_ops) WITH (lists = 100)", name, s.table)
	}
	return fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s ON %s USING hnsw (embedding vector_cosine_ops)", name, s.table)
}

// existingDimension returns the declared vector dimension of the embedding
// column, or 0 when the table does not exist yet.
func (s *Index) existingDimension(ctx context.Context) (int, error) {
	var typmod sql.NullInt64
	err := s.db.QueryRowContext(ctx, `
	SELECT atttypmod FROM pg_attribute
	WHERE attrelid = to_regclass($1) AND attname = 'embedding'`, s.table).Scan(&typmod)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to inspect table %s: %w", s.table, err)
	}
	return int(typmod.Int64), nil
}

func (s *Index) currentDimension() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dimension
}

// Upsert writes all records in one transaction.
func (s *Index) Upsert(ctx context.Context, records []vector.Record) error {
	dim := s.currentDimension()
	if dim == 0 {
		return errors.ErrIndexNotInitialized
	}
	for _, r := range records {
		if r.ID == "" {
			return fmt.Errorf("record ID cannot be empty: %w", errors.ErrInvalidInput)
		}
		if len(r.Vector) != dim {
			return fmt.Errorf("record %s has %d dimensions, index has %d: %w", r.ID, len(r.Vector), dim, errors.ErrDimensionMismatch)
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf(`
	INSERT INTO %s (id, text, source, category, embedding)
	VALUES ($1, $2, $3, $4, $5::vector)
	ON CONFLICT (id) DO UPDATE SET
		text = EXCLUDED.text,
		source = EXCLUDED.source,
		category = EXCLUDED.category,
		embedding = EXCLUDED.embedding,
		updated_at = CURRENT_TIMESTAMP`, s.table))
	if err != nil {
		return fmt.Errorf("failed to prepare upsert: %w", err)
	}
	defer stmt.Close()

	for _, r := range records {
		if _, err := stmt.ExecContext(ctx, r.ID, r.Text, r.Source, r.Category, vectorLiteral(r.Vector)); err != nil {
			return fmt.Errorf("failed to upsert %s: %w", r.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit upsert: %w", err)
	}
	return nil
}

// Query uses the cosine distance operator; score is 1 - distance, clamped.
func (s *Index) Query(ctx context.Context, vec []float32, topK int, filter *vector.Filter) ([]vector.Match, error) {
	dim := s.currentDimension()
	if dim == 0 {
		return nil, errors.ErrIndexNotInitialized
	}
	if len(vec) != dim {
		return nil, fmt.Errorf("query has %d dimensions, index has %d: %w", len(vec), dim, errors.ErrDimensionMismatch)
	}
	if topK <= 0 {
		return []vector.Match{}, nil
	}

	query, args := buildQuery(s.table, vec, topK, filter)
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query index: %w", err)
	}
	defer rows.Close()

	matches := make([]vector.Match, 0, topK)
	for rows.Next() {
		var m vector.Match
		var score float64
		if err := rows.Scan(&m.ID, &m.Text, &m.Source, &m.Category, &score); err != nil {
			return nil, fmt.Errorf("failed to scan match: %w", err)
		}
		m.Score = vector.Score(score)
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating matches: %w", err)
	}
	return matches, nil
}

func buildQuery(table string, vec []float32, topK int, filter *vector.Filter) (string, []any) {
	args := []any{vectorLiteral(vec), topK}
	where := ""
	if filter != nil && filter.Category != "" {
		where = "WHERE category = $3"
		args = append(args, filter.Category)
	}
	query := fmt.Sprintf(`
	SELECT id, text, source, category, 1 - (embedding <=> $1::vector) AS score
	FROM %s
	%s
	ORDER BY embedding <=> $1::vector
	LIMIT $2`, table, where)
	return query, args
}

// Stats counts rows; pgvector has no notion of fullness.
func (s *Index) Stats(ctx context.Context) (vector.Stats, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, fmt.Sprintf("SELECT COUNT(*) FROM %s", s.table)).Scan(&count); err != nil {
		return vector.Stats{}, fmt.Errorf("failed to count records: %w", err)
	}
	return vector.Stats{Count: count, Dimension: s.currentDimension()}, nil
}

// Clear removes all records
func (s *Index) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, fmt.Sprintf("TRUNCATE TABLE %s", s.table)); err != nil {
		return fmt.Errorf("failed to clear index: %w", err)
	}
	return nil
}

// Close closes the database connection
func (s *Index) Close() error {
	return s.db.Close()
}

// vectorLiteral renders a pgvector text literal such as [0.1,0.2].
func vectorLiteral(vec []float32) string {
	var b strings.Builder
	b.Grow(len(vec) * 10)
	b.WriteByte('[')
	for i, v := range vec {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatFloat(float64(v), 'f', -1, 32))
	}
	b.WriteByte(']')
	return b.String()
}
