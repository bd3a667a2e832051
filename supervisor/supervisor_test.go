package supervisor

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sweetpotato0/ai-triage/draft"
	"github.com/sweetpotato0/ai-triage/generation"
	"github.com/sweetpotato0/ai-triage/middleware"
	"github.com/sweetpotato0/ai-triage/middleware/errorhandler"
	"github.com/sweetpotato0/ai-triage/nlp"
	"github.com/sweetpotato0/ai-triage/pkg/logging"
	"github.com/sweetpotato0/ai-triage/retrieval"
	"github.com/sweetpotato0/ai-triage/ticket"
)

// scriptedNLP returns fixed signals, or fails every call when err is set.
type scriptedNLP struct {
	phrases   []string
	sentiment ticket.Sentiment
	err       error
	panic     bool
}

func (s scriptedNLP) ExtractEntities(context.Context, string) ([]ticket.Entity, error) {
	if s.panic {
		panic("language client not initialised")
	}
	return nil, s.err
}

func (s scriptedNLP) AnalyzeSentiment(context.Context, string) (ticket.Sentiment, error) {
	return s.sentiment, s.err
}

func (s scriptedNLP) ExtractKeyPhrases(context.Context, string) ([]string, error) {
	return s.phrases, s.err
}

type fakeRetriever struct {
	mu    sync.Mutex
	docs  []ticket.KBDocument
	err   error
	panic bool
	block bool
	got   []retrieval.Options
}

func (f *fakeRetriever) Retrieve(ctx context.Context, _ string, opts retrieval.Options) ([]ticket.KBDocument, error) {
	f.mu.Lock()
	f.got = append(f.got, opts)
	f.mu.Unlock()
	switch {
	case f.panic:
		panic("index handle is nil")
	case f.block:
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return f.docs, f.err
}

func kbDocs(scores ...float64) []ticket.KBDocument {
	out := make([]ticket.KBDocument, len(scores))
	for i, s := range scores {
		out[i] = ticket.KBDocument{
			ID:              fmt.Sprintf("doc-%03d", i+1),
			Content:         "Go to the login page and click Forgot Password.",
			SimilarityScore: s,
			Metadata:        map[string]string{ticket.MetaSource: "guide.md", ticket.MetaCategory: "password_reset"},
		}
	}
	return out
}

func reply(words int) generation.Func {
	return func(context.Context, generation.Request) (string, error) {
		return strings.TrimSpace(strings.Repeat("step ", words)), nil
	}
}

func newSupervisor(t *testing.T, svc nlp.Service, r Retriever, gen generation.Generator, opts ...Option) *Supervisor {
	t.Helper()
	quiet := logging.Discard()
	opts = append([]Option{WithLogger(quiet)}, opts...)
	s, err := New(
		nlp.NewAnalyzer(svc, nlp.WithLogger(quiet)),
		r,
		draft.New(gen, draft.WithLogger(quiet)),
		opts...,
	)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return s
}

func decisionNames(res *ticket.Result) string {
	names := make([]string, len(res.Decisions))
	for i, d := range res.Decisions {
		names[i] = d.AgentName + "/" + d.Action
	}
	return strings.Join(names, " ")
}

const allStages = "azure_nlp_agent/analyze_intent_and_entities retrieval_agent/retrieve_kb_documents " +
	"drafting_agent/generate_response supervisor/evaluate_quality"

func TestProcessPassesAllChecks(t *testing.T) {
	r := &fakeRetriever{docs: kbDocs(0.9, 0.9)}
	s := newSupervisor(t,
		scriptedNLP{phrases: []string{"reset password", "forgot login"}, sentiment: ticket.SentimentPositive},
		r, reply(200))

	res, err := s.Process(context.Background(), "TKT-1", "Cannot login", "I forgot my password")
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if res.Intent != ticket.IntentPasswordReset || res.Priority != ticket.PriorityLow {
		t.Errorf("intent=%s priority=%s", res.Intent, res.Priority)
	}
	if res.Confidence != 0.93 {
		t.Errorf("Confidence = %v, want 0.93", res.Confidence)
	}
	if res.RequiresHumanReview {
		t.Error("RequiresHumanReview = true, want false")
	}
	if got := decisionNames(res); got != allStages {
		t.Errorf("decisions = %s", got)
	}
	last := res.Decisions[3]
	if last.Output["reason"] != PassedReason || last.Output["requires_review"] != false {
		t.Errorf("evaluate output = %v", last.Output)
	}
	if len(res.Errors) != 0 {
		t.Errorf("Errors = %v", res.Errors)
	}
	if r.got[0].Intent != ticket.IntentPasswordReset || r.got[0].TopK != 5 || r.got[0].MinSimilarity != 0.65 {
		t.Errorf("retrieval options = %+v", r.got[0])
	}
	for _, d := range res.Decisions {
		if d.TicketID != "TKT-1" || d.Timestamp.IsZero() {
			t.Errorf("decision %s missing ticket id or timestamp", d.AgentName)
		}
	}
}

func TestProcessUrgentOutage(t *testing.T) {
	s := newSupervisor(t,
		scriptedNLP{phrases: []string{"critical system outage", "production system", "urgent"}, sentiment: ticket.SentimentNegative},
		&fakeRetriever{docs: kbDocs(0.9, 0.9)}, reply(200))

	res, err := s.Process(context.Background(), "TKT-2", "Critical system outage", "production system is down, urgent!")
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if res.Priority != ticket.PriorityUrgent {
		t.Errorf("Priority = %s, want urgent", res.Priority)
	}
	if !res.RequiresHumanReview {
		t.Error("urgent tickets must require review")
	}
	if reason := res.Decisions[3].Output["reason"]; reason != "urgent priority" {
		t.Errorf("reason = %v", reason)
	}
}

func TestProcessNoKeywords(t *testing.T) {
	s := newSupervisor(t,
		scriptedNLP{phrases: []string{"purple elephant"}, sentiment: ticket.SentimentNeutral},
		&fakeRetriever{docs: kbDocs(0.8, 0.8)}, reply(200))

	res, err := s.Process(context.Background(), "TKT-3", "Purple elephant", "Purple elephant sighting")
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	a := res.Decisions[0]
	if a.Output["intent"] != string(ticket.IntentGeneralInquiry) || a.Output["confidence"] != 0.5 {
		t.Errorf("analysis output = %v", a.Output)
	}
	if a.Confidence == nil || *a.Confidence != 0.5 {
		t.Errorf("analysis confidence = %v", a.Confidence)
	}
	if res.Priority != ticket.PriorityMedium {
		t.Errorf("Priority = %s, want medium", res.Priority)
	}
}

func TestProcessZeroDocuments(t *testing.T) {
	s := newSupervisor(t,
		scriptedNLP{phrases: []string{"reset password"}, sentiment: ticket.SentimentPositive},
		&fakeRetriever{}, reply(300))

	res, err := s.Process(context.Background(), "TKT-4", "Reset password", "Need to reset my password")
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if res.Confidence != 0.5 {
		t.Errorf("Confidence = %v, want 0.5", res.Confidence)
	}
	if !res.RequiresHumanReview {
		t.Error("RequiresHumanReview = false, want true")
	}
	if res.Documents == nil || len(res.Documents) != 0 {
		t.Errorf("Documents = %#v, want empty slice", res.Documents)
	}
	if reason := res.Decisions[3].Output["reason"]; reason != "low confidence (0.50), insufficient KB docs (0)" {
		t.Errorf("reason = %v", reason)
	}
}

func TestProcessStageFailures(t *testing.T) {
	tests := []struct {
		name      string
		svc       scriptedNLP
		retriever *fakeRetriever
		gen       generation.Func
		opts      []Option
		check     func(t *testing.T, res *ticket.Result, r *fakeRetriever)
	}{
		{
			name:      "analysis panic",
			svc:       scriptedNLP{panic: true},
			retriever: &fakeRetriever{docs: kbDocs(0.9, 0.9)},
			gen:       reply(200),
			check: func(t *testing.T, res *ticket.Result, r *fakeRetriever) {
				if !strings.HasPrefix(res.Errors[0], "NLP analysis failed: ") ||
					!strings.Contains(res.Errors[0], errorhandler.ErrPanic.Error()) {
					t.Errorf("Errors = %v", res.Errors)
				}
				if r.got[0].Intent != "" {
					t.Errorf("intent filter = %q, want none", r.got[0].Intent)
				}
				if res.Intent != "" || res.Priority != "" {
					t.Errorf("analysis should be empty, got %s/%s", res.Intent, res.Priority)
				}
				if _, ok := res.Decisions[0].Output["error"]; !ok {
					t.Error("degraded analysis decision should carry the error")
				}
			},
		},
		{
			name:      "retrieval error",
			svc:       scriptedNLP{phrases: []string{"vpn error"}, sentiment: ticket.SentimentNeutral},
			retriever: &fakeRetriever{err: fmt.Errorf("index unreachable")},
			gen:       reply(200),
			check: func(t *testing.T, res *ticket.Result, _ *fakeRetriever) {
				if res.Errors[0] != "Document retrieval failed: index unreachable" {
					t.Errorf("Errors = %v", res.Errors)
				}
				if len(res.Documents) != 0 || res.Decisions[1].Output["num_documents"] != 0 {
					t.Errorf("documents should be empty: %v", res.Decisions[1].Output)
				}
				if res.Confidence != 0.5 {
					t.Errorf("Confidence = %v, want 0.5", res.Confidence)
				}
			},
		},
		{
			name:      "retrieval panic",
			svc:       scriptedNLP{phrases: []string{"vpn error"}, sentiment: ticket.SentimentNeutral},
			retriever: &fakeRetriever{panic: true},
			gen:       reply(200),
			check: func(t *testing.T, res *ticket.Result, _ *fakeRetriever) {
				if !strings.Contains(res.Errors[0], errorhandler.ErrPanic.Error()) {
					t.Errorf("Errors = %v", res.Errors)
				}
			},
		},
		{
			name:      "retrieval timeout",
			svc:       scriptedNLP{phrases: []string{"vpn error"}, sentiment: ticket.SentimentNeutral},
			retriever: &fakeRetriever{block: true},
			gen:       reply(200),
			opts:      []Option{WithStageTimeout(20 * time.Millisecond)},
			check: func(t *testing.T, res *ticket.Result, _ *fakeRetriever) {
				if !strings.Contains(res.Errors[0], context.DeadlineExceeded.Error()) {
					t.Errorf("Errors = %v", res.Errors)
				}
				if res.DraftText == FallbackDraft {
					t.Error("drafting should still run after a retrieval timeout")
				}
			},
		},
		{
			name:      "generation failure",
			svc:       scriptedNLP{phrases: []string{"reset password"}, sentiment: ticket.SentimentPositive},
			retriever: &fakeRetriever{docs: kbDocs(0.9, 0.9)},
			gen: func(context.Context, generation.Request) (string, error) {
				return "", generation.Failedf("ollama", "connection refused")
			},
			check: func(t *testing.T, res *ticket.Result, _ *fakeRetriever) {
				if res.DraftText != FallbackDraft || res.Confidence != 0 {
					t.Errorf("draft = %q / %v", res.DraftText, res.Confidence)
				}
				if !strings.HasPrefix(res.Errors[0], "Response drafting failed: ") {
					t.Errorf("Errors = %v", res.Errors)
				}
			},
		},
		{
			name:      "empty generation",
			svc:       scriptedNLP{phrases: []string{"reset password"}, sentiment: ticket.SentimentPositive},
			retriever: &fakeRetriever{docs: kbDocs(1.0, 1.0)},
			gen: func(context.Context, generation.Request) (string, error) {
				return " \n ", nil
			},
			check: func(t *testing.T, res *ticket.Result, _ *fakeRetriever) {
				if res.DraftText != FallbackDraft || res.Confidence != 0 {
					t.Errorf("draft = %q / %v", res.DraftText, res.Confidence)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newSupervisor(t, tt.svc, tt.retriever, tt.gen, tt.opts...)
			res, err := s.Process(context.Background(), "TKT-9", "Something broke", "It does not work at all")
			if err != nil {
				t.Fatalf("Process() error = %v", err)
			}
			if got := decisionNames(res); got != allStages {
				t.Errorf("decisions = %s", got)
			}
			if len(res.Errors) != 1 {
				t.Fatalf("Errors = %v, want exactly one", res.Errors)
			}
			if !res.RequiresHumanReview {
				t.Error("a stage failure must require review")
			}
			if reason, _ := res.Decisions[3].Output["reason"].(string); !strings.Contains(reason, "processing error occurred") {
				t.Errorf("reason = %q", reason)
			}
			tt.check(t, res, tt.retriever)
		})
	}
}

func TestProcessRejects(t *testing.T) {
	s := newSupervisor(t, scriptedNLP{}, &fakeRetriever{}, reply(10))

	t.Run("cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		if _, err := s.Process(ctx, "TKT-1", "title", "description"); !stderrors.Is(err, context.Canceled) {
			t.Errorf("Process() error = %v, want context.Canceled", err)
		}
	})

}

func TestProcessBlankTicket(t *testing.T) {
	s := newSupervisor(t, scriptedNLP{}, &fakeRetriever{}, reply(10))

	res, err := s.Process(context.Background(), "TKT-1", "", "  ")
	if err != nil {
		t.Fatalf("Process() error = %v, want a result", err)
	}
	if got := decisionNames(res); got != allStages {
		t.Errorf("decisions = %s", got)
	}
	if res.Intent != ticket.IntentGeneralInquiry || res.Priority != ticket.PriorityMedium {
		t.Errorf("intent=%s priority=%s", res.Intent, res.Priority)
	}
	if !res.RequiresHumanReview {
		t.Error("a ticket without documents must require review")
	}
}

// An NLP backend that is down degrades to defaults instead of failing the
// stage, so a well supported reply still passes the gate.
func TestProcessAnalysisOutage(t *testing.T) {
	r := &fakeRetriever{docs: kbDocs(0.95, 0.95)}
	s := newSupervisor(t, scriptedNLP{err: fmt.Errorf("503 service unavailable")}, r, reply(200))

	res, err := s.Process(context.Background(), "TKT-6", "Printer offline", "The office printer shows offline")
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if len(res.Errors) != 0 {
		t.Errorf("Errors = %v, want none", res.Errors)
	}
	if res.Intent != ticket.IntentGeneralInquiry || res.Priority != ticket.PriorityMedium || res.Sentiment != ticket.SentimentNeutral {
		t.Errorf("analysis = %s/%s/%s, want general_inquiry/medium/neutral", res.Intent, res.Priority, res.Sentiment)
	}
	if r.got[0].Intent != ticket.IntentGeneralInquiry {
		t.Errorf("intent filter = %q, want general_inquiry", r.got[0].Intent)
	}
	if res.RequiresHumanReview {
		t.Errorf("RequiresHumanReview = true, reason %v", res.Decisions[3].Output["reason"])
	}
	if _, ok := res.Decisions[0].Output["error"]; ok {
		t.Error("analysis decision should not carry an error")
	}
}

func TestTagStage(t *testing.T) {
	base := fmt.Errorf("index unreachable")
	mc := middleware.NewContext(context.Background(), StageRetrieve)

	err := tagStage(mc, base)
	var se StageError
	if !stderrors.As(err, &se) || se.Stage != StageRetrieve || !stderrors.Is(err, base) {
		t.Fatalf("tagStage() = %v, want retrieve StageError wrapping the cause", err)
	}
	if again := tagStage(middleware.NewContext(context.Background(), StageDraft), err); again.Error() != err.Error() {
		t.Errorf("already tagged error was re-tagged: %v", again)
	}
}

func TestNewRequiresStages(t *testing.T) {
	if _, err := New(nil, &fakeRetriever{}, nil); err == nil {
		t.Error("New() should reject missing stages")
	}
}

func TestPromptTokensRecorded(t *testing.T) {
	quiet := logging.Discard()
	s, err := New(
		nlp.NewAnalyzer(scriptedNLP{phrases: []string{"reset password"}, sentiment: ticket.SentimentPositive}, nlp.WithLogger(quiet)),
		&fakeRetriever{docs: kbDocs(0.9, 0.9)},
		draft.New(reply(50), draft.WithLogger(quiet), draft.WithTokenizer(wordCounter{})),
		WithLogger(quiet),
	)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	res, err := s.Process(context.Background(), "TKT-5", "Reset password", "Need a password reset")
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if n, ok := res.Decisions[2].Output["prompt_tokens"].(int); !ok || n == 0 {
		t.Errorf("prompt_tokens = %v", res.Decisions[2].Output["prompt_tokens"])
	}
}

type wordCounter struct{}

func (wordCounter) CountTokens(s string) int { return len(strings.Fields(s)) }
