// Package draft writes a grounded reply to a ticket and scores it.
package draft

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/sweetpotato0/ai-triage/errors"
	"github.com/sweetpotato0/ai-triage/generation"
	"github.com/sweetpotato0/ai-triage/pkg/logging"
	"github.com/sweetpotato0/ai-triage/prompt"
	"github.com/sweetpotato0/ai-triage/ticket"
)

// Request carries everything the prompt is built from.
type Request struct {
	Title       string
	Description string
	Intent      ticket.Intent
	Documents   []ticket.KBDocument
}

// Params are the sampling parameters sent with every generation.
type Params struct {
	MaxTokens   int
	Temperature float64
	TopP        float64
}

// DefaultParams returns max_tokens 500, temperature 0.7, top_p 0.9.
func DefaultParams() Params {
	return Params{MaxTokens: 500, Temperature: 0.7, TopP: 0.9}
}

// Tokenizer counts prompt tokens for the decision trail.
type Tokenizer interface {
	CountTokens(text string) int
}

// Drafter builds the prompt, calls the generator and computes confidence.
type Drafter struct {
	gen       generation.Generator
	prompts   *prompt.Manager
	params    Params
	tokenizer Tokenizer
	logger    *slog.Logger
}

// Option customizes a Drafter.
type Option func(*Drafter)

func WithParams(p Params) Option {
	return func(d *Drafter) { d.params = p }
}

func WithTokenizer(t Tokenizer) Option {
	return func(d *Drafter) { d.tokenizer = t }
}

// WithPrompts replaces the template manager, e.g. to override the reply
// template.
func WithPrompts(m *prompt.Manager) Option {
	return func(d *Drafter) {
		if m != nil {
			d.prompts = m
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(d *Drafter) {
		if l != nil {
			d.logger = l
		}
	}
}

// New creates a drafter around gen.
func New(gen generation.Generator, opts ...Option) *Drafter {
	d := &Drafter{
		gen:     gen,
		prompts: prompt.NewManager(),
		params:  DefaultParams(),
		logger:  logging.WithComponent("draft"),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(d)
		}
	}
	return d
}

// BuildPrompt renders the reply template for req.
func (d *Drafter) BuildPrompt(req Request) (string, error) {
	return d.prompts.Render(prompt.SupportReply, req)
}

// Draft generates a reply. Generator failures, including an empty reply,
// are returned wrapped in errors.ErrGeneration; no fallback text is produced
// here.
func (d *Drafter) Draft(ctx context.Context, req Request) (ticket.Draft, error) {
	d.logger.Info("drafting response", "intent", req.Intent, "documents", len(req.Documents))

	p, err := d.BuildPrompt(req)
	if err != nil {
		return ticket.Draft{}, fmt.Errorf("build prompt: %w", err)
	}

	text, err := d.gen.Generate(ctx, generation.Request{
		Prompt:      p,
		MaxTokens:   d.params.MaxTokens,
		Temperature: d.params.Temperature,
		TopP:        d.params.TopP,
	})
	if err != nil {
		if !stderrors.Is(err, errors.ErrGeneration) {
			err = fmt.Errorf("%w: %w", errors.ErrGeneration, err)
		}
		d.logger.Error("failed to draft response", "error", err)
		return ticket.Draft{}, err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return ticket.Draft{}, fmt.Errorf("%w: empty response", errors.ErrGeneration)
	}

	out := ticket.Draft{Text: text, Confidence: Confidence(req.Documents, text)}
	if d.tokenizer != nil {
		out.PromptTokens = d.tokenizer.CountTokens(p)
	}
	d.logger.Info("response drafted", "confidence", out.Confidence, "words", len(strings.Fields(text)))
	return out, nil
}

// Confidence blends retrieval quality with reply length:
// round2(0.7*mean(score) + 0.3*min(words/200, 1)), or 0.5 without documents.
func Confidence(docs []ticket.KBDocument, text string) float64 {
	if len(docs) == 0 {
		return 0.5
	}
	avg := ticket.Retrieval{Documents: docs}.AverageSimilarity()
	length := math.Min(float64(len(strings.Fields(text)))/200, 1)
	return Round2(avg*0.7 + length*0.3)
}

// Round2 rounds to two decimal places.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
