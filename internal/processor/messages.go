package processor

import (
	"opsengine/internal/domain"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

type ReplyTemplates struct {
	ApprovalSignature string
	SecuritySignature string
}

func DefaultReplyTemplates() ReplyTemplates {
	return ReplyTemplates{
		ApprovalSignature: "OpsEngine AI",
		SecuritySignature: "Pliant Security",
	}
}

func euros(amount int64) string {
	return message.NewPrinter(language.English).Sprintf("€%d", amount)
}

func (t ReplyTemplates) approvalReply(amount int64) string {
	return message.NewPrinter(language.English).Sprintf(
		"Hi there,\n\nGood news! I've instantly approved your limit increase to %s based on your healthy cash balance.\n\n"+
			"Your ads should be running again. Let us know if you need anything else!\n\n*%s*",
		euros(amount), t.ApprovalSignature)
}

func (t ReplyTemplates) securityReviewReply() string {
	return "Hi,\n\nYour transaction is currently under security review. " +
		"Our Compliance Team will reach out within 2 hours.\n\n*" + t.SecuritySignature + "*"
}

func analystNote(amount, cashBalance int64) string {
	return "BOT_NOTE: User requested " + euros(amount) +
		" but cash balance is only " + euros(cashBalance) + ". Manual review required."
}

func passedAudit(ratio domain.CoverageRatio, repaymentScore int) *domain.RiskAudit {
	return &domain.RiskAudit{
		Headline: "RISK CHECK PASSED",
		Detail: message.NewPrinter(language.English).Sprintf(
			"Balance covers request %s. Repayment score %d/100.", ratio.String(), repaymentScore),
	}
}

func failedAudit() *domain.RiskAudit {
	return &domain.RiskAudit{
		Headline: "RISK CHECK FAILED",
		Detail:   "Insufficient Cash Balance or Request exceeds Auto-Limit.",
	}
}

func amlAudit() *domain.RiskAudit {
	return &domain.RiskAudit{
		Headline: "AML ALERT TRIGGERED",
		Detail:   "Merchant Category Code (MCC) matches Crypto/Gambling.",
	}
}
