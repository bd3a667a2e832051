package nlp

import (
	"math"
	"strings"

	"github.com/sweetpotato0/ai-triage/ticket"
)

// IntentRule maps an intent to its trigger keywords.
type IntentRule struct {
	Intent   ticket.Intent
	Keywords []string
}

// intentRules is evaluated in order; on equal scores the earlier rule wins.
var intentRules = []IntentRule{
	{ticket.IntentPasswordReset, []string{"password", "reset", "forgot", "login", "access", "credentials"}},
	{ticket.IntentTechnicalIssue, []string{"error", "bug", "crash", "broken", "not working", "failed"}},
	{ticket.IntentAccountIssue, []string{"account", "billing", "subscription", "payment", "invoice"}},
	{ticket.IntentFeatureRequest, []string{"feature", "request", "need", "add", "implement", "enhancement"}},
	{ticket.IntentQuestion, []string{"how", "what", "why", "when", "where", "question", "help"}},
	{ticket.IntentComplaint, []string{"slow", "bad", "worst", "disappointed", "frustrated", "unhappy"}},
}

const (
	fallbackConfidence = 0.5
	maxConfidence      = 0.95
)

// IntentRules returns a copy of the ordered keyword table.
func IntentRules() []IntentRule {
	out := make([]IntentRule, len(intentRules))
	for i, r := range intentRules {
		out[i] = IntentRule{Intent: r.Intent, Keywords: append([]string(nil), r.Keywords...)}
	}
	return out
}

// ClassifyIntent picks the intent whose keywords occur in the most key
// phrases. Each keyword counts once no matter how many phrases contain it.
// Entities are accepted for interface stability but do not affect the score.
func ClassifyIntent(keyPhrases []string, entities []ticket.Entity) (ticket.Intent, float64) {
	_ = entities

	phrases := lowerAll(keyPhrases)
	best, bestScore, bestTotal := ticket.IntentGeneralInquiry, 0, 0
	for _, rule := range intentRules {
		score := 0
		for _, kw := range rule.Keywords {
			if containsAny(phrases, kw) {
				score++
			}
		}
		if score > bestScore {
			best, bestScore, bestTotal = rule.Intent, score, len(rule.Keywords)
		}
	}

	if bestScore == 0 {
		return ticket.IntentGeneralInquiry, fallbackConfidence
	}
	confidence := 0.5 + float64(bestScore)/float64(bestTotal)*0.5
	return best, math.Min(confidence, maxConfidence)
}

func lowerAll(in []string) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = strings.ToLower(s)
	}
	return out
}

// containsAny reports whether kw is a substring of any phrase.
func containsAny(phrases []string, kw string) bool {
	for _, p := range phrases {
		if strings.Contains(p, kw) {
			return true
		}
	}
	return false
}
