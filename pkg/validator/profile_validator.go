package validator

import (
	"errors"
	"fmt"
	"math"
	"opsengine/internal/domain"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

var (
	ErrInvalidCashBalance    = errors.New("invalid cash balance")
	ErrInvalidRepaymentScore = errors.New("invalid repayment score")
	ErrInvalidProfile        = errors.New("invalid customer profile")
	ErrInvalidThresholds     = errors.New("invalid risk thresholds")
)

var balanceReplacer = strings.NewReplacer("€", "", "EUR", "", ",", "", "_", "", " ", "")

var maxBalance = decimal.NewFromInt(math.MaxInt64)

type ProfileValidator struct {
	validate *validator.Validate
}

func NewProfileValidator() *ProfileValidator {
	return &ProfileValidator{
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// Struct runs tag validation on any request or config struct.
func (v *ProfileValidator) Struct(s any) error {
	return v.validate.Struct(s)
}

func (v *ProfileValidator) ParseProfile(raw domain.RawProfile) (domain.CustomerProfile, error) {
	if err := v.validate.Struct(raw); err != nil {
		return domain.CustomerProfile{}, fmt.Errorf("%w: %v", ErrInvalidProfile, err)
	}

	var errs []error

	balance, err := ParseCashBalance(raw.CashBalance)
	if err != nil {
		errs = append(errs, err)
	}

	score := 0
	if strings.TrimSpace(raw.RepaymentScore) != "" {
		score, err = ParseRepaymentScore(raw.RepaymentScore)
		if err != nil {
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		return domain.CustomerProfile{}, errors.Join(errs...)
	}

	return domain.CustomerProfile{
		CompanyName:    strings.TrimSpace(raw.Company),
		CashBalance:    balance,
		RepaymentScore: score,
		RiskTier:       domain.ParseRiskTier(raw.RiskTier),
	}, nil
}

func (v *ProfileValidator) ValidateThresholds(t domain.RiskThresholds) error {
	if err := v.validate.Struct(t); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidThresholds, err)
	}
	return nil
}

// ParseCashBalance accepts CRM display amounts such as "€145,000".
// Fractional cents are truncated.
func ParseCashBalance(s string) (int64, error) {
	clean := balanceReplacer.Replace(strings.TrimSpace(s))
	if clean == "" {
		return 0, fmt.Errorf("%w: empty value", ErrInvalidCashBalance)
	}

	if strings.ContainsAny(clean, "eE") {
		return 0, fmt.Errorf("%w: exponent notation in %q", ErrInvalidCashBalance, s)
	}

	amount, err := decimal.NewFromString(clean)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidCashBalance, s)
	}
	if amount.IsNegative() {
		return 0, fmt.Errorf("%w: negative balance %q", ErrInvalidCashBalance, s)
	}

	amount = amount.Truncate(0)
	if amount.GreaterThan(maxBalance) {
		return 0, fmt.Errorf("%w: %q is out of range", ErrInvalidCashBalance, s)
	}

	return amount.IntPart(), nil
}

// ParseRepaymentScore accepts "99/100" or "99". Scores over a different
// denominator are rescaled to 0-100.
func ParseRepaymentScore(s string) (int, error) {
	num, den, hasDen := strings.Cut(strings.TrimSpace(s), "/")

	score, err := strconv.Atoi(strings.TrimSpace(num))
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidRepaymentScore, s)
	}

	if hasDen {
		d, err := strconv.Atoi(strings.TrimSpace(den))
		if err != nil || d <= 0 {
			return 0, fmt.Errorf("%w: bad denominator in %q", ErrInvalidRepaymentScore, s)
		}
		if score < 0 || score > d {
			return 0, fmt.Errorf("%w: %q out of range", ErrInvalidRepaymentScore, s)
		}
		if d != 100 {
			score = int(decimal.NewFromInt(int64(score)).
				Mul(decimal.NewFromInt(100)).
				Div(decimal.NewFromInt(int64(d))).
				IntPart())
		}
	}

	if score < 0 || score > 100 {
		return 0, fmt.Errorf("%w: %d out of range 0-100", ErrInvalidRepaymentScore, score)
	}

	return score, nil
}
