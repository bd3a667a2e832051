package claude

import (
	"context"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/anthropics/anthropic-sdk-go/packages/param"
	"github.com/sweetpotato0/ai-triage/generation"
)

const backend = "claude"

// Config holds Claude provider configuration
type Config struct {
	APIKey  string
	Model   string
	BaseURL string
}

// Provider implements generation.Generator with the Messages API.
type Provider struct {
	config Config
	client anthropic.Client
}

var _ generation.Generator = (*Provider)(nil)

// New creates a new Claude provider using official SDK
func New(config Config, opts ...option.RequestOption) *Provider {
	if config.Model == "" {
		config.Model = "claude-3-5-haiku-latest"
	}

	options := []option.RequestOption{
		option.WithAPIKey(config.APIKey),
	}
	if config.BaseURL != "" {
		options = append(options, option.WithBaseURL(config.BaseURL))
	}
	options = append(options, opts...)

	return &Provider{config: config, client: anthropic.NewClient(options...)}
}

// Generate sends the prompt as one user turn and joins the text blocks of
// the reply.
func (p *Provider) Generate(ctx context.Context, req generation.Request) (string, error) {
	maxTokens := int64(req.MaxTokens)
	if maxTokens <= 0 {
		maxTokens = 500
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(p.config.Model),
		MaxTokens: maxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.Prompt)),
		},
		Temperature: param.NewOpt(req.Temperature),
	}
	// Newer models reject temperature and top_p together, so top_p is only
	// sent when it is below the default.
	if req.TopP > 0 && req.TopP < 0.9 {
		params.TopP = param.NewOpt(req.TopP)
	}

	msg, err := p.client.Messages.New(ctx, params)
	if err != nil {
		return "", generation.Failed(backend, err)
	}

	var b strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			b.WriteString(block.Text)
		}
	}
	text := strings.TrimSpace(b.String())
	if text == "" {
		return "", generation.Failedf(backend, "response contained no text")
	}
	return text, nil
}
