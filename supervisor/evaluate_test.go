package supervisor

import (
	"testing"

	"github.com/sweetpotato0/ai-triage/ticket"
	"pgregory.net/rapid"
)

func TestEvaluate(t *testing.T) {
	th := DefaultThresholds()
	tests := []struct {
		name       string
		confidence float64
		docs       int
		priority   ticket.Priority
		failed     bool
		wantReview bool
		wantReason string
	}{
		{"passes", 0.85, 3, ticket.PriorityLow, false, false, PassedReason},
		{"at threshold", 0.7, 2, ticket.PriorityHigh, false, false, PassedReason},
		{"low confidence", 0.69, 2, ticket.PriorityLow, false, true, "low confidence (0.69)"},
		{"few docs", 0.9, 1, ticket.PriorityMedium, false, true, "insufficient KB docs (1)"},
		{"urgent", 0.9, 5, ticket.PriorityUrgent, false, true, "urgent priority"},
		{"error", 0.9, 5, ticket.PriorityLow, true, true, "processing error occurred"},
		{
			"everything", 0, 0, ticket.PriorityUrgent, true, true,
			"low confidence (0.00), insufficient KB docs (0), urgent priority, processing error occurred",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := Evaluate(tt.confidence, tt.docs, tt.priority, tt.failed, th)
			if e.RequiresHumanReview != tt.wantReview {
				t.Errorf("RequiresHumanReview = %v, want %v", e.RequiresHumanReview, tt.wantReview)
			}
			if got := Reason(e); got != tt.wantReason {
				t.Errorf("Reason() = %q, want %q", got, tt.wantReason)
			}
		})
	}
}

func TestEvaluateUrgentAlwaysReviewed(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		e := Evaluate(
			rapid.Float64Range(0, 1).Draw(t, "confidence"),
			rapid.IntRange(0, 10).Draw(t, "docs"),
			ticket.PriorityUrgent,
			rapid.Bool().Draw(t, "failed"),
			DefaultThresholds(),
		)
		if !e.RequiresHumanReview {
			t.Fatal("urgent ticket passed the quality gate")
		}
	})
}

func TestStageErrorMessages(t *testing.T) {
	tests := map[string]string{
		StageAnalyze:  "NLP analysis failed: x",
		StageRetrieve: "Document retrieval failed: x",
		StageDraft:    "Response drafting failed: x",
		"custom":      "custom failed: x",
	}
	for stage, want := range tests {
		if got := (StageError{Stage: stage, Err: errString("x")}).Error(); got != want {
			t.Errorf("StageError(%s) = %q, want %q", stage, got, want)
		}
	}
}

type errString string

func (e errString) Error() string { return string(e) }
