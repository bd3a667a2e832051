// Package vector defines the embedding and similarity-index contracts used by
// knowledge base retrieval, plus the math helpers shared by the backends.
package vector

import (
	"context"
	"math"
)

// Record is a knowledge base passage together with its embedding.
type Record struct {
	ID       string
	Vector   []float32
	Text     string
	Source   string
	Category string
}

// Match is a Record returned by a query, scored in [0, 1].
type Match struct {
	Record
	Score float64
}

// Filter restricts a query. A zero value matches everything.
type Filter struct {
	Category string
}

// Matches reports whether r passes the filter.
func (f *Filter) Matches(r Record) bool {
	return f == nil || f.Category == "" || f.Category == r.Category
}

// Stats describes an index.
type Stats struct {
	Count     int     `json:"count"`
	Dimension int     `json:"dimension"`
	Fullness  float64 `json:"fullness"`
}

// Index stores records and answers nearest-neighbour queries.
type Index interface {
	// EnsureIndex creates the index for the given dimension. Calling it again
	// with the same dimension is a no-op; a different dimension is an error.
	EnsureIndex(ctx context.Context, dimension int) error

	// Upsert inserts or replaces records keyed by ID.
	Upsert(ctx context.Context, records []Record) error

	// Query returns at most topK records ordered by descending score.
	Query(ctx context.Context, vec []float32, topK int, filter *Filter) ([]Match, error)

	// Stats reports record count, dimension and fullness.
	Stats(ctx context.Context) (Stats, error)

	// Clear deletes every record but keeps the index.
	Clear(ctx context.Context) error
}

// Embedder defines the interface for creating embeddings from text
type Embedder interface {
	// Embed converts text to a vector embedding
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch converts multiple texts to embeddings, preserving order
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimension return number of embedding dimensions
	Dimension() int
}

// CosineSimilarity returns the cosine of the angle between a and b, or 0 when
// the lengths differ or either vector is zero.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// Score maps a cosine similarity onto the [0, 1] range reported to callers.
// Opposing vectors score 0.
func Score(cosine float64) float64 {
	return math.Max(0, math.Min(1, cosine))
}

// Normalize scales the vector to unit length (L2 norm).
func Normalize(vec []float32) []float32 {
	if len(vec) == 0 {
		return vec
	}
	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	if sum == 0 {
		return vec
	}
	inv := float32(1 / math.Sqrt(sum))
	for i := range vec {
		vec[i] *= inv
	}
	return vec
}
