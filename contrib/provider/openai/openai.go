package openai

import (
	"context"
	"strings"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/packages/param"
	"github.com/sweetpotato0/ai-triage/generation"
)

// Config holds OpenAI provider configuration
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	// Name labels errors; defaults to "openai". OpenAI-compatible services
	// such as Groq set their own.
	Name string
}

// DefaultConfig returns default OpenAI configuration
func DefaultConfig(apiKey string) Config {
	return Config{
		APIKey: apiKey,
		Model:  "gpt-4o-mini",
		Name:   "openai",
	}
}

// Provider implements generation.Generator with the chat completions API.
type Provider struct {
	config Config
	client openai.Client
}

var _ generation.Generator = (*Provider)(nil)

// New creates a new OpenAI provider using official SDK
func New(config Config, opts ...option.RequestOption) *Provider {
	if config.Model == "" {
		config.Model = "gpt-4o-mini"
	}
	if config.Name == "" {
		config.Name = "openai"
	}

	reqOpts := []option.RequestOption{option.WithAPIKey(config.APIKey)}
	if strings.TrimSpace(config.BaseURL) != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(config.BaseURL))
	}
	reqOpts = append(reqOpts, opts...)

	return &Provider{config: config, client: openai.NewClient(reqOpts...)}
}

// Generate sends the prompt as a single user message.
func (p *Provider) Generate(ctx context.Context, req generation.Request) (string, error) {
	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(p.config.Model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(req.Prompt),
		},
		Temperature: param.NewOpt(req.Temperature),
		TopP:        param.NewOpt(req.TopP),
	}
	if req.MaxTokens > 0 {
		params.MaxCompletionTokens = param.NewOpt(int64(req.MaxTokens))
	}

	resp, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", generation.Failed(p.config.Name, err)
	}
	if len(resp.Choices) == 0 {
		return "", generation.Failedf(p.config.Name, "no choices returned")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
