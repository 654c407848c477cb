package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type Intent string

const (
	IntentCreditLimitIncrease         Intent = "credit_limit_increase"
	IntentTransactionDisputeOrUnblock Intent = "transaction_dispute_or_unblock"
	IntentGeneralSupport              Intent = "general_support"
)

func (i Intent) Label() string {
	switch i {
	case IntentCreditLimitIncrease:
		return "Credit Limit Increase"
	case IntentTransactionDisputeOrUnblock:
		return "Transaction Dispute / Unblock"
	default:
		return "General Support"
	}
}

type Outcome string

const (
	OutcomeApproved    Outcome = "APPROVED"
	OutcomeRejected    Outcome = "REJECTED"
	OutcomeEscalateAML Outcome = "ESCALATE_AML"
	OutcomePending     Outcome = "PENDING"
)

// Terminal reports whether the outcome resolved the ticket without a human.
// Pending is the only non-terminal outcome.
func (o Outcome) Terminal() bool {
	return o != OutcomePending
}

type Action string

const (
	ActionNone                  Action = ""
	ActionLimitIncreased        Action = "LIMIT INCREASED (API v2)"
	ActionRoutedToCreditAnalyst Action = "ROUTED TO CREDIT ANALYST"
	ActionFrozenToCompliance    Action = "ACCOUNT FROZEN & ROUTED TO COMPLIANCE"
)

// CoverageRatio is cash balance divided by requested amount. It is display
// data only; an undefined ratio never blocks a decision.
type CoverageRatio struct {
	Value   decimal.Decimal `json:"value"`
	Defined bool            `json:"defined"`
}

func UndefinedCoverageRatio() CoverageRatio {
	return CoverageRatio{Value: decimal.Zero}
}

func (r CoverageRatio) String() string {
	if !r.Defined {
		return "n/a"
	}
	return r.Value.StringFixed(1) + "x"
}

type RiskAudit struct {
	Headline string `json:"headline"`
	Detail   string `json:"detail"`
}

type Decision struct {
	Intent          Intent        `json:"intent"`
	Outcome         Outcome       `json:"outcome"`
	RequestedAmount int64         `json:"requested_amount,omitempty"`
	CoverageRatio   CoverageRatio `json:"coverage_ratio"`
	Audit           *RiskAudit    `json:"audit,omitempty"`
	Action          Action        `json:"action,omitempty"`
	Message         string        `json:"message,omitempty"`
	InternalNote    string        `json:"internal_note,omitempty"`
	AccountFrozen   bool          `json:"account_frozen"`
}

func PendingDecision(intent Intent) Decision {
	return Decision{
		Intent:        intent,
		Outcome:       OutcomePending,
		CoverageRatio: UndefinedCoverageRatio(),
	}
}

type DecisionEvent struct {
	EventID         string    `json:"event_id"`
	TicketID        string    `json:"ticket_id"`
	CompanyName     string    `json:"company_name"`
	Intent          Intent    `json:"intent"`
	Outcome         Outcome   `json:"outcome"`
	RequestedAmount int64     `json:"requested_amount,omitempty"`
	CoverageRatio   string    `json:"coverage_ratio"`
	Action          Action    `json:"action,omitempty"`
	AccountFrozen   bool      `json:"account_frozen"`
	DecidedAt       time.Time `json:"decided_at"`
	Signature       string    `json:"signature,omitempty"`
}
