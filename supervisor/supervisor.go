// Package supervisor runs the four triage stages for a ticket and decides
// whether the drafted reply needs a human review.
package supervisor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
	"unicode/utf8"

	"go.opentelemetry.io/otel/trace"

	"github.com/sweetpotato0/ai-triage/draft"
	"github.com/sweetpotato0/ai-triage/graph"
	"github.com/sweetpotato0/ai-triage/middleware"
	"github.com/sweetpotato0/ai-triage/middleware/errorhandler"
	"github.com/sweetpotato0/ai-triage/middleware/logger"
	"github.com/sweetpotato0/ai-triage/middleware/timeout"
	"github.com/sweetpotato0/ai-triage/middleware/tracing"
	"github.com/sweetpotato0/ai-triage/pkg/logging"
	"github.com/sweetpotato0/ai-triage/retrieval"
	"github.com/sweetpotato0/ai-triage/ticket"
)

// Analyzer classifies ticket text.
type Analyzer interface {
	Analyze(ctx context.Context, title, description string) (ticket.Analysis, error)
}

// Retriever looks up knowledge base documents.
type Retriever interface {
	Retrieve(ctx context.Context, query string, opts retrieval.Options) ([]ticket.KBDocument, error)
}

// Drafter writes the reply.
type Drafter interface {
	Draft(ctx context.Context, req draft.Request) (ticket.Draft, error)
}

// Supervisor holds no per-run state and is safe for concurrent use.
type Supervisor struct {
	analyzer  Analyzer
	retriever Retriever
	drafter   Drafter

	thresholds   Thresholds
	stageTimeout time.Duration
	tracer       trace.Tracer
	logger       *slog.Logger
	now          func() time.Time

	intake *middleware.MiddlewareChain
	stages *middleware.MiddlewareChain
	graph  *graph.Graph[*Run]
}

// Option customizes a Supervisor.
type Option func(*Supervisor)

func WithThresholds(th Thresholds) Option {
	return func(s *Supervisor) { s.thresholds = th }
}

// WithStageTimeout bounds each stage; zero disables the deadline.
func WithStageTimeout(d time.Duration) Option {
	return func(s *Supervisor) { s.stageTimeout = d }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Supervisor) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithTracer sets the tracer used for run and stage spans.
func WithTracer(t trace.Tracer) Option {
	return func(s *Supervisor) { s.tracer = t }
}

// New wires the stages into a linear graph analyze → retrieve → draft →
// evaluate.
func New(analyzer Analyzer, retriever Retriever, drafter Drafter, opts ...Option) (*Supervisor, error) {
	if analyzer == nil || retriever == nil || drafter == nil {
		return nil, fmt.Errorf("supervisor: analyzer, retriever and drafter are required")
	}
	s := &Supervisor{
		analyzer:     analyzer,
		retriever:    retriever,
		drafter:      drafter,
		thresholds:   DefaultThresholds(),
		stageTimeout: 30 * time.Second,
		logger:       logging.WithComponent("supervisor"),
		now:          func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}

	s.intake = middleware.NewChain(tracing.New(s.tracer))
	s.stages = middleware.NewChain(
		tracing.New(s.tracer),
		logger.NewStageLogger(s.logger),
		errorhandler.NewErrorHandler(tagStage),
		errorhandler.NewRecoverer(s.logger),
		timeout.New(s.stageTimeout),
	)

	g, err := graph.NewBuilder[*Run]().
		Then(StageAnalyze, s.stage(StageAnalyze, s.analyze)).
		Then(StageRetrieve, s.stage(StageRetrieve, s.retrieve)).
		Then(StageDraft, s.stage(StageDraft, s.draft)).
		Then(StageEvaluate, s.stage(StageEvaluate, s.evaluate)).
		Build()
	if err != nil {
		return nil, fmt.Errorf("supervisor: build graph: %w", err)
	}
	s.graph = g
	return s, nil
}

// Process runs the pipeline for one ticket. Stage failures are absorbed into
// the result, blank text included; an error is returned only for a context
// that is already done or a broken stage graph. Input limits are enforced by
// callers before a ticket gets here.
func (s *Supervisor) Process(ctx context.Context, ticketID, title, description string) (*ticket.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	run, err := s.Run(ctx, ticketID, title, description)
	if err != nil {
		return nil, err
	}
	res := run.Result()
	res.CreatedAt = s.now()
	return res, nil
}

// Run executes the stages and returns the raw run record.
func (s *Supervisor) Run(ctx context.Context, ticketID, title, description string) (*Run, error) {
	run := &Run{TicketID: ticketID, Title: title, Description: description}
	s.logger.Info("starting ticket processing", "ticket_id", ticketID)

	mc := middleware.NewContext(ctx, "pipeline")
	mc.TicketID, mc.Title, mc.Description = ticketID, title, description
	err := s.intake.Execute(mc, func(mc *middleware.Context) error {
		var err error
		run, err = s.graph.Execute(mc.Context(), run)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("ticket processing complete", "ticket_id", ticketID,
		"requires_review", run.Evaluation != nil && run.Evaluation.RequiresHumanReview,
		"errors", len(run.Errors))
	return run, nil
}

type stageFunc func(ctx context.Context, run *Run) error

// stage wraps fn in the stage middleware. A failure comes back as a
// StageError and the stage's defaults are substituted.
func (s *Supervisor) stage(name string, fn stageFunc) graph.NodeFunc[*Run] {
	return func(ctx context.Context, run *Run) (*Run, error) {
		mc := middleware.NewContext(ctx, name)
		mc.TicketID, mc.Title, mc.Description = run.TicketID, run.Title, run.Description

		var failure *StageError
		err := s.stages.Execute(mc, func(mc *middleware.Context) error {
			return fn(mc.Context(), run)
		})
		if err != nil {
			var se StageError
			if !errors.As(err, &se) {
				se = StageError{Stage: name, Err: err}
			}
			failure = &se
			run.Errors = append(run.Errors, se)
			degrade(name, run)
		}
		s.record(name, run, failure)
		return run, nil
	}
}

// tagStage attributes an error to the stage it escaped from.
func tagStage(mc *middleware.Context, err error) error {
	var se StageError
	if errors.As(err, &se) {
		return err
	}
	return StageError{Stage: mc.Stage, Err: err}
}

func (s *Supervisor) analyze(ctx context.Context, run *Run) error {
	analysis, err := s.analyzer.Analyze(ctx, run.Title, run.Description)
	if err != nil {
		return err
	}
	run.Analysis = &analysis
	return nil
}

func (s *Supervisor) retrieve(ctx context.Context, run *Run) error {
	docs, err := s.retriever.Retrieve(ctx, ticket.Text(run.Title, run.Description), retrieval.Options{
		Intent:        run.Intent(),
		TopK:          s.thresholds.TopK,
		MinSimilarity: s.thresholds.MinSimilarity,
	})
	if err != nil {
		return err
	}
	if docs == nil {
		docs = []ticket.KBDocument{}
	}
	run.Retrieval = &ticket.Retrieval{Documents: docs}
	return nil
}

func (s *Supervisor) draft(ctx context.Context, run *Run) error {
	intent := run.Intent()
	if intent == "" {
		intent = ticket.IntentGeneralInquiry
	}
	d, err := s.drafter.Draft(ctx, draft.Request{
		Title:       run.Title,
		Description: run.Description,
		Intent:      intent,
		Documents:   run.Documents(),
	})
	if err != nil {
		return err
	}
	run.Draft = &d
	return nil
}

func (s *Supervisor) evaluate(_ context.Context, run *Run) error {
	var confidence float64
	if run.Draft != nil {
		confidence = run.Draft.Confidence
	}
	e := Evaluate(confidence, len(run.Documents()), run.Priority(), run.Failed(), s.thresholds)
	run.Evaluation = &e
	return nil
}

// degrade substitutes safe defaults for the output of a failed stage. A
// failed analysis leaves Analysis nil, which disables the intent filter.
func degrade(stage string, run *Run) {
	switch stage {
	case StageRetrieve:
		run.Retrieval = &ticket.Retrieval{Documents: []ticket.KBDocument{}}
	case StageDraft:
		run.Draft = &ticket.Draft{Text: FallbackDraft, Confidence: 0}
	case StageEvaluate:
		run.Evaluation = &ticket.Evaluation{RequiresHumanReview: true, Reasons: []string{"processing error occurred"}}
	}
}

// record appends the stage's decision. Failed stages still produce one,
// carrying the substituted defaults and the error message.
func (s *Supervisor) record(stage string, run *Run, failure *StageError) {
	d := ticket.AgentDecision{
		TicketID:  run.TicketID,
		Timestamp: s.now(),
		Output:    map[string]any{},
	}

	switch stage {
	case StageAnalyze:
		d.AgentName, d.Action = AgentNLP, ActionAnalyze
		if a := run.Analysis; a != nil {
			d.Output["intent"] = string(a.Intent)
			d.Output["confidence"] = a.Confidence
			d.Output["sentiment"] = string(a.Sentiment)
			d.Output["priority"] = string(a.Priority)
			d.Confidence = ptr(a.Confidence)
		}
	case StageRetrieve:
		d.AgentName, d.Action = AgentRetrieval, ActionRetrieve
		docs := run.Documents()
		d.Output["num_documents"] = len(docs)
		d.Output["avg_similarity"] = ticket.Retrieval{Documents: docs}.AverageSimilarity()
	case StageDraft:
		d.AgentName, d.Action = AgentDrafting, ActionDraft
		if dr := run.Draft; dr != nil {
			d.Output["response_length"] = utf8.RuneCountInString(dr.Text)
			d.Output["confidence"] = dr.Confidence
			if dr.PromptTokens > 0 {
				d.Output["prompt_tokens"] = dr.PromptTokens
			}
			d.Confidence = ptr(dr.Confidence)
		}
	case StageEvaluate:
		d.AgentName, d.Action = AgentSupervisor, ActionEvaluate
		if e := run.Evaluation; e != nil {
			d.Output["requires_review"] = e.RequiresHumanReview
			d.Output["reason"] = Reason(*e)
		}
	}
	if failure != nil {
		d.Output["error"] = failure.Error()
	}
	run.Decisions = append(run.Decisions, d)
}

func ptr(v float64) *float64 { return &v }
