package crypto

import (
	"testing"
	"time"

	"opsengine/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSigner_SignDecision_RoundTrip(t *testing.T) {
	s := NewSigner("test-secret", nil)
	event := domain.DecisionEvent{
		EventID:         "e1",
		TicketID:        "t1",
		Intent:          domain.IntentCreditLimitIncrease,
		Outcome:         domain.OutcomeApproved,
		RequestedAmount: 5000,
		Action:          domain.ActionLimitIncreased,
		DecidedAt:       time.Date(2026, 10, 14, 9, 0, 0, 0, time.UTC),
	}
	event.Signature = s.SignDecision(event)

	ok, err := s.VerifyDecision(event)

	require.NoError(t, err)
	assert.True(t, ok)
}

func TestSigner_VerifyDecision_Tampered(t *testing.T) {
	s := NewSigner("test-secret", nil)
	base := domain.DecisionEvent{
		EventID:         "e1",
		TicketID:        "t1",
		CompanyName:     "NewCo Logistics",
		Intent:          domain.IntentCreditLimitIncrease,
		Outcome:         domain.OutcomeRejected,
		RequestedAmount: 50000,
		CoverageRatio:   "0.2x",
		Action:          domain.ActionRoutedToCreditAnalyst,
		DecidedAt:       time.Now(),
	}
	base.Signature = s.SignDecision(base)

	tests := []struct {
		name   string
		tamper func(e *domain.DecisionEvent)
	}{
		{"event id", func(e *domain.DecisionEvent) { e.EventID = "e2" }},
		{"ticket id", func(e *domain.DecisionEvent) { e.TicketID = "t2" }},
		{"company name", func(e *domain.DecisionEvent) { e.CompanyName = "Shadow Corp" }},
		{"intent", func(e *domain.DecisionEvent) { e.Intent = domain.IntentGeneralSupport }},
		{"outcome", func(e *domain.DecisionEvent) { e.Outcome = domain.OutcomeApproved }},
		{"requested amount", func(e *domain.DecisionEvent) { e.RequestedAmount = 5000 }},
		{"coverage ratio", func(e *domain.DecisionEvent) { e.CoverageRatio = "999.0x" }},
		{"action", func(e *domain.DecisionEvent) { e.Action = domain.ActionLimitIncreased }},
		{"account frozen", func(e *domain.DecisionEvent) { e.AccountFrozen = true }},
		{"decided at", func(e *domain.DecisionEvent) { e.DecidedAt = e.DecidedAt.Add(time.Second) }},
		{"field boundary shift", func(e *domain.DecisionEvent) { e.EventID, e.TicketID = "e1:t1", "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			event := base
			tt.tamper(&event)

			ok, err := s.VerifyDecision(event)

			assert.False(t, ok)
			assert.ErrorIs(t, err, ErrInvalidSignature)
		})
	}

	ok, err := s.VerifyDecision(base)
	assert.True(t, ok)
	assert.NoError(t, err)
}

func TestSigner_DifferentKeys(t *testing.T) {
	a := NewSigner("one", nil)
	b := NewSigner("two", nil)

	assert.NotEqual(t, a.Sign([]byte("payload")), b.Sign([]byte("payload")))
}
