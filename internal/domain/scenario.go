package domain

// RawProfile is a customer profile as the CRM displays it, e.g.
// cash balance "€145,000" and repayment score "99/100".
type RawProfile struct {
	Company        string `json:"company" yaml:"company" validate:"required"`
	CashBalance    string `json:"cash_balance" yaml:"cash_balance" validate:"required"`
	RepaymentScore string `json:"repayment_score" yaml:"repayment_score"`
	RiskTier       string `json:"risk_tier" yaml:"risk_tier"`
}

type Scenario struct {
	ID              string     `json:"id" yaml:"id"`
	Name            string     `json:"name" yaml:"name"`
	Ticket          string     `json:"ticket" yaml:"ticket"`
	Customer        RawProfile `json:"customer" yaml:"customer"`
	ExpectedIntent  Intent     `json:"expected_intent" yaml:"expected_intent"`
	ExpectedOutcome Outcome    `json:"expected_outcome" yaml:"expected_outcome"`
}
