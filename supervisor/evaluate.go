package supervisor

import (
	"fmt"
	"strings"

	"github.com/sweetpotato0/ai-triage/ticket"
)

// Thresholds configure retrieval and the quality gate.
type Thresholds struct {
	TopK                int
	MinSimilarity       float64
	ConfidenceThreshold float64
	MinDocuments        int
}

// DefaultThresholds returns top_k 5, min similarity 0.65, confidence
// threshold 0.7 and two documents minimum.
func DefaultThresholds() Thresholds {
	return Thresholds{
		TopK:                5,
		MinSimilarity:       0.65,
		ConfidenceThreshold: 0.7,
		MinDocuments:        2,
	}
}

// PassedReason is reported when no review condition triggers.
const PassedReason = "passed all checks"

// Evaluate applies the quality gate. Conditions are checked and reported in
// a fixed order: confidence, document count, priority, stage errors.
func Evaluate(confidence float64, documents int, priority ticket.Priority, failed bool, th Thresholds) ticket.Evaluation {
	var reasons []string
	if confidence < th.ConfidenceThreshold {
		reasons = append(reasons, fmt.Sprintf("low confidence (%.2f)", confidence))
	}
	if documents < th.MinDocuments {
		reasons = append(reasons, fmt.Sprintf("insufficient KB docs (%d)", documents))
	}
	if priority == ticket.PriorityUrgent {
		reasons = append(reasons, "urgent priority")
	}
	if failed {
		reasons = append(reasons, "processing error occurred")
	}
	return ticket.Evaluation{RequiresHumanReview: len(reasons) > 0, Reasons: reasons}
}

// Reason joins the evaluation reasons for the decision trail.
func Reason(e ticket.Evaluation) string {
	if len(e.Reasons) == 0 {
		return PassedReason
	}
	return strings.Join(e.Reasons, ", ")
}
