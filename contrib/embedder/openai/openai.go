package openai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	openaisdk "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	triageerrors "github.com/sweetpotato0/ai-triage/errors"
	"github.com/sweetpotato0/ai-triage/vector"
)

// Embedder implements vector.Embedder with the OpenAI embeddings API.
type Embedder struct {
	client    openaisdk.Client
	model     openaisdk.EmbeddingModel
	dimension int
}

var _ vector.Embedder = (*Embedder)(nil)

// New creates an Embedder. baseURL may point at any OpenAI-compatible server.
func New(apiKey, baseURL string, model openaisdk.EmbeddingModel, dimension int, opts ...option.RequestOption) *Embedder {
	reqOpts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if strings.TrimSpace(baseURL) != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(baseURL))
	}
	reqOpts = append(reqOpts, opts...)
	return &Embedder{
		client:    openaisdk.NewClient(reqOpts...),
		model:     model,
		dimension: dimension,
	}
}

// Dimension return number of embedding dimensions
func (e *Embedder) Dimension() int {
	return e.dimension
}

// Embed converts text to a vector embedding
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 {
		return nil, errors.New("no embedding returned")
	}
	return vectors[0], nil
}

// EmbedBatch embeds all texts in a single request.
func (e *Embedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	resp, err := e.client.Embeddings.New(ctx, openaisdk.EmbeddingNewParams{
		Model: e.model,
		Input: openaisdk.EmbeddingNewParamsInputUnion{
			OfArrayOfStrings: texts,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("create embeddings: %w", err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("expected %d embeddings, got %d", len(texts), len(resp.Data))
	}

	out := make([][]float32, len(texts))
	for _, emb := range resp.Data {
		if emb.Index < 0 || int(emb.Index) >= len(texts) {
			return nil, fmt.Errorf("embedding index %d out of range", emb.Index)
		}
		vec, err := toFloat32(emb.Embedding, e.dimension)
		if err != nil {
			return nil, err
		}
		out[emb.Index] = vec
	}
	return out, nil
}

func toFloat32(input []float64, expected int) ([]float32, error) {
	if expected > 0 && len(input) != expected {
		return nil, fmt.Errorf("got %d dimensions, want %d: %w", len(input), expected, triageerrors.ErrDimensionMismatch)
	}
	vec := make([]float32, len(input))
	for i, v := range input {
		vec[i] = float32(v)
	}
	return vec, nil
}
