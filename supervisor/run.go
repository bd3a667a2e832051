package supervisor

import (
	"fmt"

	"github.com/sweetpotato0/ai-triage/ticket"
)

// Stage names, in execution order.
const (
	StageAnalyze  = "analyze"
	StageRetrieve = "retrieve"
	StageDraft    = "draft"
	StageEvaluate = "evaluate"
)

// Agent names and actions recorded in the decision trail.
const (
	AgentNLP        = "azure_nlp_agent"
	AgentRetrieval  = "retrieval_agent"
	AgentDrafting   = "drafting_agent"
	AgentSupervisor = "supervisor"

	ActionAnalyze  = "analyze_intent_and_entities"
	ActionRetrieve = "retrieve_kb_documents"
	ActionDraft    = "generate_response"
	ActionEvaluate = "evaluate_quality"
)

// FallbackDraft is the reply used when drafting fails.
const FallbackDraft = "Unable to generate response at this time."

var stagePrefixes = map[string]string{
	StageAnalyze:  "NLP analysis failed",
	StageRetrieve: "Document retrieval failed",
	StageDraft:    "Response drafting failed",
	StageEvaluate: "Quality evaluation failed",
}

// StageError is a failure caught at a stage boundary.
type StageError struct {
	Stage string
	Err   error
}

func (e StageError) Error() string {
	prefix, ok := stagePrefixes[e.Stage]
	if !ok {
		prefix = e.Stage + " failed"
	}
	return fmt.Sprintf("%s: %v", prefix, e.Err)
}

func (e StageError) Unwrap() error { return e.Err }

// Run is the state of one pipeline execution. Each stage result is written
// once by the stage that produces it and is nil before that.
type Run struct {
	TicketID    string
	Title       string
	Description string

	Analysis   *ticket.Analysis
	Retrieval  *ticket.Retrieval
	Draft      *ticket.Draft
	Evaluation *ticket.Evaluation

	Decisions []ticket.AgentDecision
	Errors    []StageError
}

// Failed reports whether any stage failed.
func (r *Run) Failed() bool { return len(r.Errors) > 0 }

// Intent returns the classified intent, or "" when analysis did not run.
func (r *Run) Intent() ticket.Intent {
	if r.Analysis == nil {
		return ""
	}
	return r.Analysis.Intent
}

// Priority returns the classified priority, or "" when analysis did not run.
func (r *Run) Priority() ticket.Priority {
	if r.Analysis == nil {
		return ""
	}
	return r.Analysis.Priority
}

// Documents returns the retrieved documents, never nil.
func (r *Run) Documents() []ticket.KBDocument {
	if r.Retrieval == nil || r.Retrieval.Documents == nil {
		return []ticket.KBDocument{}
	}
	return r.Retrieval.Documents
}

// ErrorMessages returns the stage errors as strings.
func (r *Run) ErrorMessages() []string {
	if len(r.Errors) == 0 {
		return nil
	}
	out := make([]string, len(r.Errors))
	for i, e := range r.Errors {
		out[i] = e.Error()
	}
	return out
}

// Result converts the finished run into the persisted result shape.
func (r *Run) Result() *ticket.Result {
	res := &ticket.Result{
		TicketID:  r.TicketID,
		Documents: r.Documents(),
		Decisions: r.Decisions,
		Errors:    r.ErrorMessages(),
	}
	if r.Draft != nil {
		res.DraftText = r.Draft.Text
		res.Confidence = r.Draft.Confidence
	}
	if r.Evaluation != nil {
		res.RequiresHumanReview = r.Evaluation.RequiresHumanReview
	}
	if r.Analysis != nil {
		res.Intent = r.Analysis.Intent
		res.Sentiment = r.Analysis.Sentiment
		res.Priority = r.Analysis.Priority
	}
	return res
}
