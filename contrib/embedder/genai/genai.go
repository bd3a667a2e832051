// Package genai embeds text with Google's Gemini embedding models.
package genai

import (
	"context"
	"errors"
	"fmt"

	triageerrors "github.com/sweetpotato0/ai-triage/errors"
	"github.com/sweetpotato0/ai-triage/vector"
	"google.golang.org/genai"
)

const (
	taskRetrievalQuery    = "RETRIEVAL_QUERY"
	taskRetrievalDocument = "RETRIEVAL_DOCUMENT"
)

// Embedder implements vector.Embedder. Queries and documents are embedded
// with the matching retrieval task types.
type Embedder struct {
	client    *genai.Client
	model     string
	dimension int
}

var _ vector.Embedder = (*Embedder)(nil)

// New creates a Gemini API embedder.
func New(ctx context.Context, apiKey, model string, dimension int) (*Embedder, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("genai: API key is required")
	}
	if model == "" {
		model = "gemini-embedding-001"
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("genai: create client: %w", err)
	}
	return &Embedder{client: client, model: model, dimension: dimension}, nil
}

// Dimension return number of embedding dimensions
func (e *Embedder) Dimension() int { return e.dimension }

// Embed embeds a search query.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := e.embed(ctx, []string{text}, taskRetrievalQuery)
	if err != nil {
		return nil, err
	}
	if len(vecs) == 0 {
		return nil, errors.New("genai: no embedding returned")
	}
	return vecs[0], nil
}

// EmbedBatch embeds knowledge base documents in one request.
func (e *Embedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	return e.embed(ctx, texts, taskRetrievalDocument)
}

func (e *Embedder) embed(ctx context.Context, texts []string, task string) ([][]float32, error) {
	contents := make([]*genai.Content, len(texts))
	for i, text := range texts {
		contents[i] = genai.NewContentFromText(text, genai.RoleUser)
	}

	cfg := &genai.EmbedContentConfig{TaskType: task}
	if e.dimension > 0 {
		cfg.OutputDimensionality = genai.Ptr[int32](int32(e.dimension))
	}

	res, err := e.client.Models.EmbedContent(ctx, e.model, contents, cfg)
	if err != nil {
		return nil, fmt.Errorf("genai: embed content: %w", err)
	}
	if len(res.Embeddings) != len(texts) {
		return nil, fmt.Errorf("genai: expected %d embeddings, got %d", len(texts), len(res.Embeddings))
	}

	out := make([][]float32, len(res.Embeddings))
	for i, emb := range res.Embeddings {
		if e.dimension > 0 && len(emb.Values) != e.dimension {
			return nil, fmt.Errorf("genai: got %d dimensions, want %d: %w", len(emb.Values), e.dimension, triageerrors.ErrDimensionMismatch)
		}
		// Truncated outputs are not unit length; cosine scoring does not care
		// but pgvector inner-product indexes would.
		out[i] = vector.Normalize(emb.Values)
	}
	return out, nil
}
