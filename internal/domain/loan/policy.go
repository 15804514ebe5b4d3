package loan

import (
	"errors"

	"github.com/shopspring/decimal"

	"loan-ledger/pkg/money"
)

// MaxAmount is the largest principal or payment the ledger accepts.
const MaxAmount int64 = 1_000_000_000_000_000

// Policy holds the ledger-wide defaults applied when a loan is registered.
type Policy struct {
	RoundUnit                  int64
	DefaultTermDays            int
	DefaultInterestRatePercent decimal.Decimal
	DefaultLateFeeRatePercent  decimal.Decimal
	MonthDays                  int
}

func DefaultPolicy() Policy {
	return Policy{
		RoundUnit:                  1,
		DefaultTermDays:            30,
		DefaultInterestRatePercent: decimal.NewFromInt(10),
		DefaultLateFeeRatePercent:  decimal.NewFromInt(10),
		MonthDays:                  money.DefaultMonthDays,
	}
}

func (p Policy) Validate() error {
	if !money.ValidUnit(p.RoundUnit) {
		return money.ErrInvalidUnit
	}
	if p.DefaultTermDays < 0 {
		return errors.New("default term days must not be negative")
	}
	if p.DefaultInterestRatePercent.IsNegative() || p.DefaultLateFeeRatePercent.IsNegative() {
		return errors.New("default rates must not be negative")
	}
	if p.MonthDays <= 0 {
		return errors.New("late fee month days must be positive")
	}
	return nil
}

// ExpectedRepayment is principal plus flat simple interest, rounded half-up
// to the policy unit. A result that overflows or rounds to zero is a
// ValidationError on loan_amount.
func (p Policy) ExpectedRepayment(principal int64, ratePercent decimal.Decimal) (int64, error) {
	raw := decimal.NewFromInt(principal).Mul(decimal.NewFromInt(1).Add(money.Percent(ratePercent)))
	expected, err := money.Round(raw, p.RoundUnit)
	switch {
	case errors.Is(err, money.ErrOutOfRange):
		return 0, Invalid("loan_amount", "too large")
	case err != nil:
		return 0, err
	case expected <= 0:
		return 0, Invalid("loan_amount", "rounds to a zero repayment")
	}
	return expected, nil
}
