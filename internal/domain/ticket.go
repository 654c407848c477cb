package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type Ticket struct {
	ID         string    `json:"id"`
	Text       string    `json:"text"`
	ReceivedAt time.Time `json:"received_at"`
}

func NewTicket(text string) Ticket {
	return Ticket{
		ID:         uuid.NewString(),
		Text:       text,
		ReceivedAt: time.Now().UTC(),
	}
}

type RiskTier string

const (
	RiskTierLow              RiskTier = "Low"
	RiskTierMedium           RiskTier = "Medium"
	RiskTierHighAMLWatchlist RiskTier = "High (AML Watchlist)"
	RiskTierUnknown          RiskTier = "Unknown"
)

// ParseRiskTier maps CRM display strings onto a tier. Anything unrecognised
// becomes RiskTierUnknown, which no rule treats as AML.
func ParseRiskTier(s string) RiskTier {
	switch normalizeTier(s) {
	case "low":
		return RiskTierLow
	case "medium":
		return RiskTierMedium
	case "high (aml watchlist)", "high-aml-watchlist", "high_aml_watchlist", "aml watchlist":
		return RiskTierHighAMLWatchlist
	default:
		return RiskTierUnknown
	}
}

func normalizeTier(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func (t RiskTier) IsAMLWatchlist() bool {
	return t == RiskTierHighAMLWatchlist
}

// CustomerProfile is the parsed CRM view of the ticket's company.
type CustomerProfile struct {
	CompanyName    string   `json:"company_name"`
	CashBalance    int64    `json:"cash_balance"`
	RepaymentScore int      `json:"repayment_score"`
	RiskTier       RiskTier `json:"risk_tier"`
}

// RiskThresholds are the operator sliders: requests up to AutoApproveLimit
// are approved when the cash balance is strictly above MinCashBalance.
type RiskThresholds struct {
	AutoApproveLimit int64 `json:"auto_approve_limit" mapstructure:"auto_approve_limit" validate:"gte=0,lte=50000"`
	MinCashBalance   int64 `json:"min_cash_balance" mapstructure:"min_cash_balance" validate:"gte=0"`
}

func DefaultRiskThresholds() RiskThresholds {
	return RiskThresholds{
		AutoApproveLimit: 10000,
		MinCashBalance:   50000,
	}
}
