package crypto

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"opsengine/internal/domain"
)

var ErrInvalidSignature = errors.New("invalid signature")

type Signer struct {
	secretKey []byte
	logger    *slog.Logger
}

func NewSigner(secretKey string, logger *slog.Logger) *Signer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Signer{
		secretKey: []byte(secretKey),
		logger:    logger,
	}
}

func (s *Signer) Sign(data []byte) string {
	mac := hmac.New(sha256.New, s.secretKey)
	mac.Write(data)
	return hex.EncodeToString(mac.Sum(nil))
}

func (s *Signer) Verify(data []byte, signature string) (bool, error) {
	expectedSignature := s.Sign(data)

	if !hmac.Equal([]byte(expectedSignature), []byte(signature)) {
		s.logger.Warn("Signature verification failed",
			slog.String("received", signature))
		return false, ErrInvalidSignature
	}

	return true, nil
}

// decisionPayload is the canonical form covered by a decision signature.
// Strings are quoted so a ':' inside a field cannot shift the boundaries.
// The signature field itself is excluded.
func decisionPayload(e domain.DecisionEvent) []byte {
	return []byte(fmt.Sprintf("%q:%q:%q:%q:%q:%d:%q:%q:%t:%d",
		e.EventID, e.TicketID, e.CompanyName, e.Intent, e.Outcome, e.RequestedAmount,
		e.CoverageRatio, e.Action, e.AccountFrozen, e.DecidedAt.UnixNano()))
}

func (s *Signer) SignDecision(event domain.DecisionEvent) string {
	return s.Sign(decisionPayload(event))
}

func (s *Signer) VerifyDecision(event domain.DecisionEvent) (bool, error) {
	return s.Verify(decisionPayload(event), event.Signature)
}
