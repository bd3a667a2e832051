// Package ticket holds the domain types shared by every stage of the triage
// pipeline and by the persistence and transport layers around it.
package ticket

import "time"

// Intent is the coarse category of a ticket's underlying problem.
type Intent string

const (
	IntentPasswordReset  Intent = "password_reset"
	IntentTechnicalIssue Intent = "technical_issue"
	IntentAccountIssue   Intent = "account_issue"
	IntentFeatureRequest Intent = "feature_request"
	IntentQuestion       Intent = "question"
	IntentComplaint      Intent = "complaint"
	IntentGeneralInquiry Intent = "general_inquiry"
)

// Sentiment is the overall tone of a ticket.
type Sentiment string

const (
	SentimentPositive Sentiment = "positive"
	SentimentNeutral  Sentiment = "neutral"
	SentimentNegative Sentiment = "negative"
)

// ParseSentiment maps provider labels onto the three supported values.
// Anything unrecognised (including "mixed") is neutral.
func ParseSentiment(label string) Sentiment {
	switch Sentiment(label) {
	case SentimentPositive, SentimentNegative:
		return Sentiment(label)
	default:
		return SentimentNeutral
	}
}

// Priority orders tickets for the support queue.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// Status is the lifecycle state of a persisted ticket.
type Status string

const (
	StatusOpen       Status = "open"
	StatusInProgress Status = "in_progress"
	StatusResolved   Status = "resolved"
	StatusClosed     Status = "closed"
)

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusOpen, StatusInProgress, StatusResolved, StatusClosed:
		return true
	}
	return false
}

// Ticket is a support request as stored by the service layer. Title and
// Description are the only inputs the pipeline reads.
type Ticket struct {
	ID          string     `json:"id" bson:"_id"`
	Title       string     `json:"title" bson:"title"`
	Description string     `json:"description" bson:"description"`
	UserEmail   string     `json:"user_email" bson:"user_email"`
	Category    string     `json:"category,omitempty" bson:"category,omitempty"`
	Status      Status     `json:"status" bson:"status"`
	Priority    Priority   `json:"priority" bson:"priority"`
	Intent      Intent     `json:"intent,omitempty" bson:"intent,omitempty"`
	Sentiment   Sentiment  `json:"sentiment,omitempty" bson:"sentiment,omitempty"`
	CreatedAt   time.Time  `json:"created_at" bson:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at" bson:"updated_at"`
	ResolvedAt  *time.Time `json:"resolved_at,omitempty" bson:"resolved_at,omitempty"`
}

// Text joins a title and description the way every stage reads them.
func Text(title, description string) string {
	return title + ". " + description
}

// Entity is a named entity extracted from ticket text.
type Entity struct {
	Text        string  `json:"text" bson:"text"`
	Category    string  `json:"category" bson:"category"`
	Subcategory string  `json:"subcategory,omitempty" bson:"subcategory,omitempty"`
	Confidence  float64 `json:"confidence" bson:"confidence"`
}

// Metadata keys carried by every KBDocument.
const (
	MetaSource   = "source"
	MetaCategory = "category"
)

// KBDocument is a knowledge base passage returned by retrieval. It is never
// mutated after construction.
type KBDocument struct {
	ID              string            `json:"id" bson:"id"`
	Content         string            `json:"content" bson:"content"`
	SimilarityScore float64           `json:"similarity_score" bson:"similarity_score"`
	Metadata        map[string]string `json:"metadata" bson:"metadata"`
}

// Source returns the document's origin file or URL.
func (d KBDocument) Source() string { return d.Metadata[MetaSource] }

// Category returns the intent category the document was indexed under.
func (d KBDocument) Category() string { return d.Metadata[MetaCategory] }

// Analysis is the output of the classification stage.
type Analysis struct {
	Intent     Intent    `json:"intent"`
	Confidence float64   `json:"confidence"`
	Entities   []Entity  `json:"entities"`
	KeyPhrases []string  `json:"key_phrases"`
	Sentiment  Sentiment `json:"sentiment"`
	Priority   Priority  `json:"priority"`
}

// Retrieval is the output of the knowledge base lookup stage.
type Retrieval struct {
	Documents []KBDocument `json:"documents"`
}

// AverageSimilarity is the mean score of the retrieved documents, 0 when empty.
func (r Retrieval) AverageSimilarity() float64 {
	if len(r.Documents) == 0 {
		return 0
	}
	var sum float64
	for _, d := range r.Documents {
		sum += d.SimilarityScore
	}
	return sum / float64(len(r.Documents))
}

// Draft is a generated reply and the confidence computed for it.
type Draft struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
	// PromptTokens is set when the drafter has a tokenizer.
	PromptTokens int `json:"prompt_tokens,omitempty"`
}

// Evaluation is the output of the quality gate.
type Evaluation struct {
	RequiresHumanReview bool     `json:"requires_human_review"`
	Reasons             []string `json:"reasons"`
}

// AgentDecision is one entry in the audit trail of a pipeline run.
type AgentDecision struct {
	ID         string         `json:"id,omitempty" bson:"_id,omitempty"`
	TicketID   string         `json:"ticket_id" bson:"ticket_id"`
	AgentName  string         `json:"agent_name" bson:"agent_name"`
	Action     string         `json:"action" bson:"action"`
	Output     map[string]any `json:"output_data" bson:"output_data"`
	Confidence *float64       `json:"confidence,omitempty" bson:"confidence,omitempty"`
	Timestamp  time.Time      `json:"timestamp" bson:"timestamp"`
}

// Result bundles everything a pipeline run produced for one ticket.
type Result struct {
	TicketID            string          `json:"ticket_id"`
	DraftText           string          `json:"draft_response"`
	Confidence          float64         `json:"confidence"`
	Documents           []KBDocument    `json:"kb_documents"`
	Decisions           []AgentDecision `json:"agent_decisions"`
	RequiresHumanReview bool            `json:"requires_human_review"`
	Intent              Intent          `json:"intent,omitempty"`
	Sentiment           Sentiment       `json:"sentiment,omitempty"`
	Priority            Priority        `json:"priority,omitempty"`
	Errors              []string        `json:"errors,omitempty"`
	CreatedAt           time.Time       `json:"created_at"`
}

// DraftedResponse is a persisted draft awaiting (or past) human review.
type DraftedResponse struct {
	ID                  string       `json:"id" bson:"_id"`
	TicketID            string       `json:"ticket_id" bson:"ticket_id"`
	DraftText           string       `json:"draft_text" bson:"draft_text"`
	Confidence          float64      `json:"confidence" bson:"confidence"`
	KBDocuments         []KBDocument `json:"kb_documents" bson:"kb_documents"`
	RequiresHumanReview bool         `json:"requires_human_review" bson:"requires_human_review"`
	CreatedAt           time.Time    `json:"created_at" bson:"created_at"`
}
