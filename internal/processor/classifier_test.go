package processor

import (
	"testing"

	"opsengine/internal/domain"

	"github.com/stretchr/testify/assert"
)

func TestKeywordClassifier_Classify(t *testing.T) {
	c := NewKeywordClassifier()

	tests := []struct {
		name string
		text string
		want domain.Intent
	}{
		{"scenario A", "URGENT: Our Google Ads campaigns just paused because we hit the card limit. We need to increase the limit by €5,000 immediately or we lose revenue. Please help!", domain.IntentCreditLimitIncrease},
		{"scenario C", "Why was my transaction at 'CryptoKing Exchange' declined? Unblock my card now.", domain.IntentTransactionDisputeOrUnblock},
		{"upper case", "PLEASE INCREASE MY LIMIT", domain.IntentCreditLimitIncrease},
		{"limit and decline tie-break", "My card was declined, please increase the limit", domain.IntentCreditLimitIncrease},
		{"limit and unblock tie-break", "Unblock and increase limit", domain.IntentCreditLimitIncrease},
		{"declined only", "payment DECLINED at the airport", domain.IntentTransactionDisputeOrUnblock},
		{"unblock only", "can you unblock my card", domain.IntentTransactionDisputeOrUnblock},
		{"limit without increase", "Hi, I need to raise my limit to €50k for a large equipment purchase today.", domain.IntentGeneralSupport},
		{"increase without limit", "increase my budget", domain.IntentGeneralSupport},
		{"substring match", "unlimited increases", domain.IntentCreditLimitIncrease},
		{"empty", "", domain.IntentGeneralSupport},
		{"general", "How do I download my invoices?", domain.IntentGeneralSupport},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, c.Classify(tt.text))
		})
	}
}

func TestKeywordClassifier_Classify_Idempotent(t *testing.T) {
	c := NewKeywordClassifier()
	text := "Card declined twice today"

	first := c.Classify(text)
	second := c.Classify(text)

	assert.Equal(t, first, second)
}

func TestKeywordClassifier_CustomRules(t *testing.T) {
	c := NewKeywordClassifierWithRules([]KeywordRule{
		{Name: "refund", Intent: domain.IntentTransactionDisputeOrUnblock, AnyOf: []string{"REFUND"}},
	})

	assert.Equal(t, domain.IntentTransactionDisputeOrUnblock, c.Classify("I want a refund"))
	assert.Equal(t, domain.IntentGeneralSupport, c.Classify("increase my limit"))
}

func TestKeywordRule_EmptyRuleNeverMatches(t *testing.T) {
	c := NewKeywordClassifierWithRules([]KeywordRule{{Name: "empty", Intent: domain.IntentCreditLimitIncrease}})

	assert.Equal(t, domain.IntentGeneralSupport, c.Classify("anything at all"))
}
