package processor

import (
	"opsengine/internal/domain"
	"strings"
)

// Classifier maps raw ticket text to an intent. Implementations must be
// total: every input, including the empty string, yields an intent.
type Classifier interface {
	Classify(text string) domain.Intent
}

// KeywordRule matches when every AllOf keyword and at least one AnyOf
// keyword occur in the lowercased text. A rule with neither list never matches.
type KeywordRule struct {
	Name   string
	Intent domain.Intent
	AllOf []string
	AnyOf []string
}

func (r KeywordRule) matches(lowered string) bool {
	for _, kw := range r.AllOf {
		if !strings.Contains(lowered, kw) {
			return false
		}
	}
	if len(r.AnyOf) == 0 {
		return len(r.AllOf) > 0
	}
	for _, kw := range r.AnyOf {
		if strings.Contains(lowered, kw) {
			return true
		}
	}
	return false
}

// KeywordClassifier evaluates its rules in order; the first match wins.
type KeywordClassifier struct {
	rules    []KeywordRule
	fallback domain.Intent
}

// DefaultKeywordRules returns the triage rules in evaluation order. The
// limit-increase rule must stay first: a ticket asking for a limit increase
// that also mentions a decline is a limit request.
func DefaultKeywordRules() []KeywordRule {
	return []KeywordRule{
		{
			Name:   "limit_increase",
			Intent: domain.IntentCreditLimitIncrease,
			AllOf:  []string{"limit", "increase"},
		},
		{
			Name:   "dispute_or_unblock",
			Intent: domain.IntentTransactionDisputeOrUnblock,
			AnyOf:  []string{"declined", "unblock"},
		},
	}
}

func NewKeywordClassifier() *KeywordClassifier {
	return NewKeywordClassifierWithRules(DefaultKeywordRules())
}

func NewKeywordClassifierWithRules(rules []KeywordRule) *KeywordClassifier {
	normalized := make([]KeywordRule, len(rules))
	for i, r := range rules {
		normalized[i] = KeywordRule{
			Name:   r.Name,
			Intent: r.Intent,
			AllOf:  lowerAll(r.AllOf),
			AnyOf:  lowerAll(r.AnyOf),
		}
	}
	return &KeywordClassifier{
		rules:    normalized,
		fallback: domain.IntentGeneralSupport,
	}
}

// Classify returns the fallback intent when no rule matches.
func (c *KeywordClassifier) Classify(text string) domain.Intent {
	lowered := strings.ToLower(text)
	for _, rule := range c.rules {
		if rule.matches(lowered) {
			return rule.Intent
		}
	}
	return c.fallback
}

func lowerAll(in []string) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = strings.ToLower(s)
	}
	return out
}
