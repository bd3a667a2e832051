// Package lexicon is an offline nlp.Service built from word lists and simple
// patterns. It needs no credentials, which makes it the default for local
// development and tests.
package lexicon

import (
	"context"
	"regexp"
	"strings"
	"unicode"

	"github.com/sweetpotato0/ai-triage/nlp"
	"github.com/sweetpotato0/ai-triage/ticket"
)

var (
	emailPattern   = regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`)
	acronymPattern = regexp.MustCompile(`\b[A-Z][A-Z0-9]{1,9}\b`)
	versionPattern = regexp.MustCompile(`\bv?\d+(\.\d+){1,3}\b`)
	errorCode      = regexp.MustCompile(`\b(?:[Ee]rror|[Cc]ode)\s*#?\s*(\d{3,5})\b`)
)

var positiveWords = map[string]bool{
	"thanks": true, "thank": true, "great": true, "good": true, "love": true,
	"excellent": true, "appreciate": true, "awesome": true, "happy": true,
	"helpful": true, "perfect": true, "wonderful": true,
}

var negativeWords = map[string]bool{
	"terrible": true, "awful": true, "horrible": true, "worst": true, "hate": true,
	"angry": true, "furious": true, "frustrated": true, "disappointed": true,
	"unhappy": true, "unacceptable": true, "bad": true, "useless": true,
	"annoyed": true, "ridiculous": true,
}

var stopWords = map[string]bool{
	"a": true, "an": true, "the": true, "and": true, "or": true, "but": true,
	"i": true, "me": true, "my": true, "we": true, "our": true, "you": true,
	"your": true, "it": true, "its": true, "is": true, "are": true, "was": true,
	"were": true, "be": true, "been": true, "am": true, "to": true, "of": true,
	"in": true, "on": true, "at": true, "for": true, "with": true, "from": true,
	"this": true, "that": true, "these": true, "those": true, "there": true,
	"do": true, "does": true, "did": true, "have": true, "has": true, "had": true,
	"so": true, "if": true, "as": true, "by": true, "since": true, "please": true,
	"can": true, "could": true, "would": true, "should": true, "will": true,
	"just": true, "also": true, "any": true, "some": true, "again": true,
}

// Analyzer implements nlp.Service without network calls.
type Analyzer struct{}

var _ nlp.Service = Analyzer{}

// New returns an offline analyzer.
func New() Analyzer { return Analyzer{} }

// ExtractEntities finds e-mail addresses, acronyms, version numbers and
// error codes.
func (Analyzer) ExtractEntities(ctx context.Context, text string) ([]ticket.Entity, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	entities := []ticket.Entity{}
	seen := map[string]bool{}
	add := func(text, category, sub string, confidence float64) {
		key := category + "|" + text
		if seen[key] {
			return
		}
		seen[key] = true
		entities = append(entities, ticket.Entity{Text: text, Category: category, Subcategory: sub, Confidence: confidence})
	}

	for _, m := range emailPattern.FindAllString(text, -1) {
		add(m, "Email", "", 0.95)
	}
	for _, m := range errorCode.FindAllStringSubmatch(text, -1) {
		add(m[1], "Quantity", "ErrorCode", 0.8)
	}
	for _, m := range versionPattern.FindAllString(text, -1) {
		add(m, "Product", "Version", 0.7)
	}
	withoutEmails := emailPattern.ReplaceAllString(text, " ")
	for _, m := range acronymPattern.FindAllString(withoutEmails, -1) {
		add(m, "Product", "", 0.6)
	}
	return entities, nil
}

// AnalyzeSentiment compares positive and negative word counts.
func (Analyzer) AnalyzeSentiment(ctx context.Context, text string) (ticket.Sentiment, error) {
	if err := ctx.Err(); err != nil {
		return ticket.SentimentNeutral, err
	}
	score := 0
	for _, w := range words(text) {
		switch {
		case positiveWords[w]:
			score++
		case negativeWords[w]:
			score--
		}
	}
	switch {
	case score > 0:
		return ticket.SentimentPositive, nil
	case score < 0:
		return ticket.SentimentNegative, nil
	default:
		return ticket.SentimentNeutral, nil
	}
}

// ExtractKeyPhrases splits the text on punctuation and stop words; every
// remaining run of words becomes a lower-cased phrase.
func (Analyzer) ExtractKeyPhrases(ctx context.Context, text string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	phrases := []string{}
	seen := map[string]bool{}
	for _, clause := range strings.FieldsFunc(text, isClauseBreak) {
		var run []string
		flush := func() {
			if len(run) == 0 {
				return
			}
			p := strings.Join(run, " ")
			if !seen[p] {
				seen[p] = true
				phrases = append(phrases, p)
			}
			run = nil
		}
		for _, w := range words(clause) {
			if stopWords[w] {
				flush()
				continue
			}
			run = append(run, w)
		}
		flush()
	}
	return phrases, nil
}

func isClauseBreak(r rune) bool {
	switch r {
	case '.', ',', ';', ':', '!', '?', '(', ')', '\n', '"':
		return true
	}
	return false
}

// words lower-cases text and splits it into letter/digit runs, keeping
// apostrophes and hyphens inside words.
func words(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '\'' && r != '-' && r != '@'
	})
}
