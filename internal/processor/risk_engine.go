package processor

import (
	"opsengine/internal/domain"
)

// RiskEngine turns a classified ticket into a decision. It holds no mutable
// state, so one engine may serve concurrent callers.
type RiskEngine struct {
	extractor AmountExtractor
	templates ReplyTemplates
}

func NewRiskEngine(extractor AmountExtractor, templates ReplyTemplates) *RiskEngine {
	if extractor == nil {
		extractor = NewLiteralAmountExtractor()
	}
	return &RiskEngine{
		extractor: extractor,
		templates: templates,
	}
}

// Decide applies the rule for intent. Unknown intents and general support
// come back Pending with no action.
func (e *RiskEngine) Decide(
	intent domain.Intent,
	ticket domain.Ticket,
	profile domain.CustomerProfile,
	thresholds domain.RiskThresholds,
) domain.Decision {
	switch intent {
	case domain.IntentCreditLimitIncrease:
		return e.decideLimitIncrease(ticket, profile, thresholds)
	case domain.IntentTransactionDisputeOrUnblock:
		return e.decideDispute(profile)
	default:
		return domain.PendingDecision(domain.IntentGeneralSupport)
	}
}

func (e *RiskEngine) decideLimitIncrease(
	ticket domain.Ticket,
	profile domain.CustomerProfile,
	thresholds domain.RiskThresholds,
) domain.Decision {
	requested := e.extractor.ExtractAmount(ticket.Text)

	// The ratio is informational; ErrDivisionByZero leaves it undefined.
	ratio, _ := CoverageRatio(profile.CashBalance, requested)

	decision := domain.Decision{
		Intent:          domain.IntentCreditLimitIncrease,
		RequestedAmount: requested,
		CoverageRatio:   ratio,
	}

	if requested <= thresholds.AutoApproveLimit && profile.CashBalance > thresholds.MinCashBalance {
		decision.Outcome = domain.OutcomeApproved
		decision.Action = domain.ActionLimitIncreased
		decision.Audit = passedAudit(ratio, profile.RepaymentScore)
		decision.Message = e.templates.approvalReply(requested)
		return decision
	}

	decision.Outcome = domain.OutcomeRejected
	decision.Action = domain.ActionRoutedToCreditAnalyst
	decision.Audit = failedAudit()
	decision.InternalNote = analystNote(requested, profile.CashBalance)
	return decision
}

func (e *RiskEngine) decideDispute(profile domain.CustomerProfile) domain.Decision {
	if !profile.RiskTier.IsAMLWatchlist() {
		return domain.PendingDecision(domain.IntentTransactionDisputeOrUnblock)
	}

	decision := domain.PendingDecision(domain.IntentTransactionDisputeOrUnblock)
	decision.Outcome = domain.OutcomeEscalateAML
	decision.Action = domain.ActionFrozenToCompliance
	decision.AccountFrozen = true
	decision.Audit = amlAudit()
	decision.Message = e.templates.securityReviewReply()
	return decision
}
