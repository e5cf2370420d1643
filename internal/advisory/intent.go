// Package advisory runs the conversational advisory flow: it classifies
// the user's question, drives the streaming turn against the backend, and
// keeps the session transcript.
package advisory

import "strings"

// IntentClassifier decides what a question is about so the coordinator can
// route the turn's markers to the right layer.
type IntentClassifier interface {
	Classify(question string) string
}

// keywordRule matches case-insensitively on any of its keywords.
type keywordRule struct {
	intent   string
	keywords []string
}

// KeywordClassifier is the default classifier: an ordered first-match scan
// over keyword rules, falling back to a catch-all intent.
type KeywordClassifier struct {
	rules    []keywordRule
	fallback string
}

// NewKeywordClassifier builds the default rule set. Park questions win
// over clinic questions when both appear, matching rule order.
func NewKeywordClassifier() *KeywordClassifier {
	return &KeywordClassifier{
		rules: []keywordRule{
			{intent: "parks", keywords: []string{"park", "tree", "green"}},
			{intent: "clinics", keywords: []string{"clinic", "health", "hospital"}},
			{intent: "heat", keywords: []string{"heat", "hot", "temperature"}},
		},
		fallback: "general",
	}
}

func (c *KeywordClassifier) Classify(question string) string {
	q := strings.ToLower(question)
	for _, r := range c.rules {
		for _, kw := range r.keywords {
			if strings.Contains(q, kw) {
				return r.intent
			}
		}
	}
	return c.fallback
}
