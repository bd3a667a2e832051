// Package retrieval finds knowledge base passages relevant to a ticket.
package retrieval

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sweetpotato0/ai-triage/errors"
	"github.com/sweetpotato0/ai-triage/pkg/logging"
	"github.com/sweetpotato0/ai-triage/retrieval/preprocess"
	"github.com/sweetpotato0/ai-triage/ticket"
	"github.com/sweetpotato0/ai-triage/vector"
)

// Defaults applied when SourceDocument fields are missing.
const (
	DefaultSource   = "unknown"
	DefaultCategory = "general"
)

// Source formats understood by IndexDocuments.
const (
	FormatText     = "text"
	FormatHTML     = "html"
	FormatMarkdown = "markdown"
)

// Options controls a single retrieval.
type Options struct {
	// Intent restricts results to documents indexed under that category.
	// Empty means no filter.
	Intent ticket.Intent
	// TopK bounds the number of candidates fetched from the index.
	TopK int
	// MinSimilarity drops candidates scoring below it. No backfill happens.
	MinSimilarity float64
}

// DefaultOptions returns TopK 5 and MinSimilarity 0.7.
func DefaultOptions() Options {
	return Options{TopK: 5, MinSimilarity: 0.7}
}

// SourceDocument is a knowledge base article before indexing.
type SourceDocument struct {
	ID       string `yaml:"id" json:"id,omitempty"`
	Text     string `yaml:"text" json:"text"`
	Source   string `yaml:"source" json:"source,omitempty"`
	Category string `yaml:"category" json:"category,omitempty"`
	Format   string `yaml:"format" json:"format,omitempty"`
}

// Retriever embeds queries and searches a vector index.
type Retriever struct {
	index    vector.Index
	embedder vector.Embedder
	logger   *slog.Logger
}

// Option customizes a Retriever.
type Option func(*Retriever)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Retriever) {
		if l != nil {
			r.logger = l
		}
	}
}

// New creates a retriever and makes sure the index exists for the
// embedder's dimension.
func New(ctx context.Context, index vector.Index, emb vector.Embedder, opts ...Option) (*Retriever, error) {
	if index == nil || emb == nil {
		return nil, fmt.Errorf("retrieval: index and embedder are required")
	}
	r := &Retriever{
		index:    index,
		embedder: emb,
		logger:   logging.WithComponent("retrieval"),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	if err := index.EnsureIndex(ctx, emb.Dimension()); err != nil {
		return nil, fmt.Errorf("retrieval: ensure index: %w", err)
	}
	return r, nil
}

// Retrieve returns the documents similar to query, highest score first.
func (r *Retriever) Retrieve(ctx context.Context, query string, opts Options) ([]ticket.KBDocument, error) {
	if opts.TopK <= 0 {
		opts.TopK = DefaultOptions().TopK
	}
	r.logger.Debug("retrieving documents", "query", truncate(query, 50), "intent", opts.Intent, "top_k", opts.TopK)

	vec, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	var filter *vector.Filter
	if opts.Intent != "" {
		filter = &vector.Filter{Category: string(opts.Intent)}
	}
	matches, err := r.index.Query(ctx, vec, opts.TopK, filter)
	if err != nil {
		return nil, fmt.Errorf("query index: %w", err)
	}

	docs := make([]ticket.KBDocument, 0, len(matches))
	for _, m := range matches {
		if m.Score < opts.MinSimilarity {
			continue
		}
		docs = append(docs, ticket.KBDocument{
			ID:              m.ID,
			Content:         m.Text,
			SimilarityScore: m.Score,
			Metadata: map[string]string{
				ticket.MetaSource:   orDefault(m.Source, DefaultSource),
				ticket.MetaCategory: orDefault(m.Category, DefaultCategory),
			},
		})
	}
	r.logger.Info("retrieved documents", "count", len(docs), "candidates", len(matches), "min_similarity", opts.MinSimilarity)
	return docs, nil
}

// IndexDocuments embeds docs in one batch and upserts them keyed by ID.
// Missing IDs become doc-<position>.
func (r *Retriever) IndexDocuments(ctx context.Context, docs []SourceDocument) (int, error) {
	if len(docs) == 0 {
		return 0, nil
	}

	texts := make([]string, len(docs))
	for i, d := range docs {
		text, err := prepare(d)
		if err != nil {
			return 0, fmt.Errorf("prepare document %d: %w", i, err)
		}
		if text == "" {
			return 0, fmt.Errorf("%w: document %d has no text", errors.ErrInvalidInput, i)
		}
		texts[i] = text
	}
	r.logger.Info("indexing documents", "count", len(docs))

	vecs, err := r.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return 0, fmt.Errorf("embed documents: %w", err)
	}
	if len(vecs) != len(docs) {
		return 0, fmt.Errorf("embed documents: got %d vectors for %d texts", len(vecs), len(docs))
	}

	records := make([]vector.Record, len(docs))
	for i, d := range docs {
		records[i] = vector.Record{
			ID:       orDefault(d.ID, fmt.Sprintf("doc-%d", i)),
			Vector:   vecs[i],
			Text:     texts[i],
			Source:   orDefault(d.Source, DefaultSource),
			Category: orDefault(d.Category, DefaultCategory),
		}
	}
	if err := r.index.Upsert(ctx, records); err != nil {
		return 0, fmt.Errorf("upsert documents: %w", err)
	}
	r.logger.Info("knowledge base indexing complete", "count", len(records))
	return len(records), nil
}

// Stats reports the size of the underlying index.
func (r *Retriever) Stats(ctx context.Context) (vector.Stats, error) {
	return r.index.Stats(ctx)
}

// Clear removes every indexed document.
func (r *Retriever) Clear(ctx context.Context) error {
	return r.index.Clear(ctx)
}

func prepare(d SourceDocument) (string, error) {
	switch strings.ToLower(d.Format) {
	case "", FormatText:
		return preprocess.Text(d.Text), nil
	case FormatHTML:
		return preprocess.HTML(d.Text)
	case FormatMarkdown, "md":
		return preprocess.Markdown(d.Text), nil
	default:
		return "", fmt.Errorf("%w: unknown format %q", errors.ErrInvalidInput, d.Format)
	}
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
