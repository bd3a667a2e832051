package nlp

import "github.com/sweetpotato0/ai-triage/ticket"

var (
	urgentKeywords = []string{"urgent", "emergency", "critical", "asap", "immediately", "down", "outage"}
	highKeywords   = []string{"important", "priority", "soon", "blocked", "cannot", "unable"}
)

// DeterminePriority applies the priority rules top-down; the first match wins.
// Negative sentiment alone is enough for urgent.
func DeterminePriority(sentiment ticket.Sentiment, keyPhrases []string) ticket.Priority {
	phrases := lowerAll(keyPhrases)

	if anyKeyword(phrases, urgentKeywords) || sentiment == ticket.SentimentNegative {
		return ticket.PriorityUrgent
	}
	if anyKeyword(phrases, highKeywords) {
		return ticket.PriorityHigh
	}
	if sentiment == ticket.SentimentNeutral {
		return ticket.PriorityMedium
	}
	return ticket.PriorityLow
}

func anyKeyword(phrases, keywords []string) bool {
	for _, kw := range keywords {
		if containsAny(phrases, kw) {
			return true
		}
	}
	return false
}
