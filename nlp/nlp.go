// Package nlp turns raw ticket text into a classified ticket.Analysis.
//
// A Service supplies three independent linguistic signals (entities,
// sentiment, key phrases). The Analyzer collects each one, maps failures to
// safe defaults and merges them before running the intent and priority rules.
package nlp

import (
	"context"
	"errors"
	"log/slog"

	"github.com/sweetpotato0/ai-triage/pkg/logging"
	"github.com/sweetpotato0/ai-triage/ticket"
)

// Service is a text analytics backend.
type Service interface {
	ExtractEntities(ctx context.Context, text string) ([]ticket.Entity, error)
	AnalyzeSentiment(ctx context.Context, text string) (ticket.Sentiment, error)
	ExtractKeyPhrases(ctx context.Context, text string) ([]string, error)
}

type entitiesResult struct {
	entities []ticket.Entity
	err      error
}

type sentimentResult struct {
	sentiment ticket.Sentiment
	err       error
}

type phrasesResult struct {
	phrases []string
	err     error
}

// Analyzer classifies tickets using a Service.
type Analyzer struct {
	service Service
	logger  *slog.Logger
}

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithLogger overrides the analyzer logger.
func WithLogger(l *slog.Logger) Option {
	return func(a *Analyzer) {
		if l != nil {
			a.logger = l
		}
	}
}

// NewAnalyzer wraps svc.
func NewAnalyzer(svc Service, opts ...Option) *Analyzer {
	a := &Analyzer{service: svc, logger: logging.WithComponent("nlp")}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Analyze runs the three extraction calls on "title. description" and
// classifies the result. A failing call degrades to its default, so a
// backend outage still yields a general_inquiry, neutral, medium analysis.
// Only a cancelled or expired context is reported as an error.
func (a *Analyzer) Analyze(ctx context.Context, title, description string) (ticket.Analysis, error) {
	if err := ctx.Err(); err != nil {
		return ticket.Analysis{}, err
	}
	text := ticket.Text(title, description)

	var e entitiesResult
	e.entities, e.err = a.service.ExtractEntities(ctx, text)

	var s sentimentResult
	s.sentiment, s.err = a.service.AnalyzeSentiment(ctx, text)

	var p phrasesResult
	p.phrases, p.err = a.service.ExtractKeyPhrases(ctx, text)

	if err := ctx.Err(); err != nil {
		return ticket.Analysis{}, err
	}
	if e.err != nil && s.err != nil && p.err != nil {
		a.logger.Warn("text analytics unavailable, using defaults", "error", errors.Join(e.err, s.err, p.err))
	}
	return a.merge(e, s, p), nil
}

// merge combines the three signals, substituting empty or neutral defaults
// for any that failed.
func (a *Analyzer) merge(e entitiesResult, s sentimentResult, p phrasesResult) ticket.Analysis {
	entities := e.entities
	if e.err != nil {
		a.logger.Warn("entity extraction failed", "error", e.err)
		entities = nil
	}
	sentiment := s.sentiment
	if s.err != nil {
		a.logger.Warn("sentiment analysis failed", "error", s.err)
		sentiment = ticket.SentimentNeutral
	}
	if sentiment == "" {
		sentiment = ticket.SentimentNeutral
	}
	phrases := lowerAll(p.phrases)
	if p.err != nil {
		a.logger.Warn("key phrase extraction failed", "error", p.err)
		phrases = nil
	}
	if entities == nil {
		entities = []ticket.Entity{}
	}
	if phrases == nil {
		phrases = []string{}
	}

	intent, confidence := ClassifyIntent(phrases, entities)
	return ticket.Analysis{
		Intent:     intent,
		Confidence: confidence,
		Entities:   entities,
		KeyPhrases: phrases,
		Sentiment:  sentiment,
		Priority:   DeterminePriority(sentiment, phrases),
	}
}
