package gemini

import (
	"context"
	"fmt"
	"strings"

	gogenai "github.com/google/generative-ai-go/genai"
	"github.com/sweetpotato0/ai-triage/generation"
	"google.golang.org/api/option"
)

const backend = "gemini"

// Config holds Gemini provider configuration
type Config struct {
	APIKey string
	Model  string
}

// Provider implements generation.Generator with the Gemini API.
type Provider struct {
	config Config
	client *gogenai.Client
}

var _ generation.Generator = (*Provider)(nil)

// New creates a new Gemini provider. Extra client options are mainly for
// tests and custom endpoints.
func New(ctx context.Context, config Config, opts ...option.ClientOption) (*Provider, error) {
	if config.Model == "" {
		config.Model = "gemini-1.5-flash"
	}
	if config.APIKey != "" {
		opts = append([]option.ClientOption{option.WithAPIKey(config.APIKey)}, opts...)
	}
	client, err := gogenai.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("gemini: create client: %w", err)
	}
	return &Provider{config: config, client: client}, nil
}

// Generate runs a single-turn GenerateContent call.
func (p *Provider) Generate(ctx context.Context, req generation.Request) (string, error) {
	model := p.client.GenerativeModel(p.config.Model)
	model.SetTemperature(float32(req.Temperature))
	model.SetTopP(float32(req.TopP))
	if req.MaxTokens > 0 {
		model.SetMaxOutputTokens(int32(req.MaxTokens))
	}

	resp, err := model.GenerateContent(ctx, gogenai.Text(req.Prompt))
	if err != nil {
		return "", generation.Failed(backend, err)
	}
	text := responseText(resp)
	if text == "" {
		return "", generation.Failedf(backend, "response contained no text")
	}
	return text, nil
}

// Close releases the underlying client.
func (p *Provider) Close() error {
	return p.client.Close()
}

func responseText(resp *gogenai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}
	var b strings.Builder
	for _, cand := range resp.Candidates {
		if cand == nil || cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if text, ok := part.(gogenai.Text); ok {
				b.WriteString(string(text))
			}
		}
		break
	}
	return strings.TrimSpace(b.String())
}
