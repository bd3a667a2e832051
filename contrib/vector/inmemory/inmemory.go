package inmemory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/sweetpotato0/ai-triage/errors"
	"github.com/sweetpotato0/ai-triage/vector"
)

// Index implements vector.Index using in-memory storage
type Index struct {
	mu        sync.RWMutex
	records   map[string]vector.Record
	dimension int
	capacity  int
}

var _ vector.Index = (*Index)(nil)

// Option configures the index.
type Option func(*Index)

// WithCapacity sets the record count that Stats reports as 100% full.
func WithCapacity(n int) Option {
	return func(i *Index) { i.capacity = n }
}

// New creates an empty in-memory index. EnsureIndex must be called before use.
func New(opts ...Option) *Index {
	idx := &Index{records: make(map[string]vector.Record)}
	for _, opt := range opts {
		opt(idx)
	}
	return idx
}

// EnsureIndex fixes the dimension on first call.
func (s *Index) EnsureIndex(ctx context.Context, dimension int) error {
	if dimension <= 0 {
		return fmt.Errorf("dimension must be positive, got %d: %w", dimension, errors.ErrInvalidInput)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.dimension {
	case 0:
		s.dimension = dimension
		return nil
	case dimension:
		return nil
	default:
		return fmt.Errorf("index has dimension %d, requested %d: %w", s.dimension, dimension, errors.ErrDimensionMismatch)
	}
}

// Upsert stores records; an existing ID is overwritten.
func (s *Index) Upsert(ctx context.Context, records []vector.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.dimension == 0 {
		return errors.ErrIndexNotInitialized
	}
	for _, r := range records {
		if r.ID == "" {
			return fmt.Errorf("record ID cannot be empty: %w", errors.ErrInvalidInput)
		}
		if len(r.Vector) != s.dimension {
			return fmt.Errorf("record %s has %d dimensions, index has %d: %w",
				r.ID, len(r.Vector), s.dimension, errors.ErrDimensionMismatch)
		}
	}
	for _, r := range records {
		r.Vector = append([]float32(nil), r.Vector...)
		s.records[r.ID] = r
	}
	return nil
}

// Query scores every record against vec and returns the best topK.
func (s *Index) Query(ctx context.Context, vec []float32, topK int, filter *vector.Filter) ([]vector.Match, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.dimension == 0 {
		return nil, errors.ErrIndexNotInitialized
	}
	if len(vec) != s.dimension {
		return nil, fmt.Errorf("query has %d dimensions, index has %d: %w", len(vec), s.dimension, errors.ErrDimensionMismatch)
	}
	if topK <= 0 {
		return []vector.Match{}, nil
	}

	matches := make([]vector.Match, 0, len(s.records))
	for _, r := range s.records {
		if !filter.Matches(r) {
			continue
		}
		matches = append(matches, vector.Match{
			Record: r,
			Score:  vector.Score(vector.CosineSimilarity(vec, r.Vector)),
		})
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].ID < matches[j].ID
	})

	if len(matches) > topK {
		matches = matches[:topK]
	}
	return matches, nil
}

// Stats reports the record count; fullness is 0 without a capacity.
func (s *Index) Stats(ctx context.Context) (vector.Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := vector.Stats{Count: len(s.records), Dimension: s.dimension}
	if s.capacity > 0 {
		st.Fullness = float64(len(s.records)) / float64(s.capacity)
	}
	return st, nil
}

// Clear removes all records
func (s *Index) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = make(map[string]vector.Record)
	return nil
}
