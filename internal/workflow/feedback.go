package workflow

import "strings"

// DefaultAffirmativeTerms is the built-in approval vocabulary used when
// the configuration does not override it.
var DefaultAffirmativeTerms = []string{
	"ok", "okay", "yes", "approve", "approved", "lgtm",
	"looks good", "proceed", "continue", "go ahead", "no changes",
}

// Classifier decides whether feedback at the review gate approves the
// analyst roster or requests changes. Anything that is not an
// approval is treated as substantive revision guidance.
type Classifier struct {
	terms map[string]bool
}

// NewClassifier builds a classifier from an affirmative-term list.
// An empty list falls back to the defaults.
func NewClassifier(terms []string) *Classifier {
	if len(terms) == 0 {
		terms = DefaultAffirmativeTerms
	}
	set := make(map[string]bool, len(terms))
	for _, t := range terms {
		set[normalizeFeedback(t)] = true
	}
	return &Classifier{terms: set}
}

// Approves reports whether the feedback is an approval. Empty feedback
// counts as approval: the reviewer had nothing to change.
func (c *Classifier) Approves(feedback string) bool {
	norm := normalizeFeedback(feedback)
	if norm == "" {
		return true
	}
	return c.terms[norm]
}

func normalizeFeedback(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.TrimRight(s, ".!,;: ")
}
