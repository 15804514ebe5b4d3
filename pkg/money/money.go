package money

import (
	"errors"
	"math"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"loan-ledger/pkg/calendar"
)

// DefaultMonthDays is the nominal month used to pro-rate monthly late-fee rates.
const DefaultMonthDays = 30

var (
	ErrInvalidUnit = errors.New("money: rounding unit must be 1, 10, 100 or 1000")
	ErrOutOfRange  = errors.New("money: amount does not fit in int64")
)

var (
	hundred = decimal.NewFromInt(100)
	maxInt  = decimal.NewFromInt(math.MaxInt64)
	minInt  = decimal.NewFromInt(math.MinInt64)
	printer = message.NewPrinter(language.Japanese)
)

func ValidUnit(unit int64) bool {
	switch unit {
	case 1, 10, 100, 1000:
		return true
	}
	return false
}

// Round rounds x to the nearest multiple of unit. Ties go away from zero, so
// 15 with unit 10 becomes 20 and 1.5 with unit 1 becomes 2.
func Round(x decimal.Decimal, unit int64) (int64, error) {
	if !ValidUnit(unit) {
		return 0, ErrInvalidUnit
	}
	u := decimal.NewFromInt(unit)
	r := x.Div(u).Round(0).Mul(u)
	if r.GreaterThan(maxInt) || r.LessThan(minInt) {
		return 0, ErrOutOfRange
	}
	return r.IntPart(), nil
}

// RoundInt is Round with unit 1, saturating at the int64 bounds.
func RoundInt(x decimal.Decimal) int64 {
	r := x.Round(0)
	switch {
	case r.GreaterThan(maxInt):
		return math.MaxInt64
	case r.LessThan(minInt):
		return math.MinInt64
	}
	return r.IntPart()
}

// OverdueDays returns whole days elapsed past dueDate+graceDays. Landing
// exactly on the threshold day is not overdue.
func OverdueDays(today, dueDate time.Time, graceDays int) int {
	if graceDays < 0 {
		graceDays = 0
	}
	threshold := calendar.Midnight(dueDate).AddDate(0, 0, graceDays)
	if d := calendar.DaysBetween(threshold, today); d > 0 {
		return d
	}
	return 0
}

// LateFee pro-rates a monthly percentage over overdueDays:
// base × rate/100 × overdueDays/monthDays. Not compounded, not capped, not rounded.
func LateFee(base int64, ratePercent decimal.Decimal, overdueDays, monthDays int) decimal.Decimal {
	if overdueDays <= 0 || base <= 0 || !ratePercent.IsPositive() || monthDays <= 0 {
		return decimal.Zero
	}
	num := decimal.NewFromInt(base).Mul(ratePercent).Mul(decimal.NewFromInt(int64(overdueDays)))
	return num.Div(hundred.Mul(decimal.NewFromInt(int64(monthDays))))
}

// Percent turns a percentage into a multiplier: 10 -> 0.1.
func Percent(p decimal.Decimal) decimal.Decimal { return p.Div(hundred) }

// Format renders n as ¥12,345.
func Format(n int64) string { return printer.Sprintf("¥%d", n) }
