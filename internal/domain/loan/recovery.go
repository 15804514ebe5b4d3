package loan

import (
	"time"

	"github.com/shopspring/decimal"

	"loan-ledger/pkg/calendar"
	"loan-ledger/pkg/money"
)

type RecoveryInput struct {
	RepaymentExpected  int64
	TotalRepaid        int64 // REPAYMENT entries only
	Today              time.Time
	DueDate            calendar.Date
	GracePeriodDays    int
	LateFeeRatePercent decimal.Decimal
	LateBaseAmount     int64
	MonthDays          int
}

// Recovery is a point-in-time view of what a loan still owes. AccruedLateFee
// is the gross fee; late fees already paid are not subtracted here.
type Recovery struct {
	RemainingPrincipal int64 `json:"remaining_principal"`
	AccruedLateFee     int64 `json:"accrued_late_fee"`
	RecoveryTotal      int64 `json:"recovery_total"`
	OverdueDays        int   `json:"overdue_days"`
}

// ComputeRecovery is pure. It fails only when the due date does not parse.
func ComputeRecovery(in RecoveryInput) (Recovery, error) {
	due, err := in.DueDate.Time()
	if err != nil {
		return Recovery{}, err
	}
	monthDays := in.MonthDays
	if monthDays <= 0 {
		monthDays = money.DefaultMonthDays
	}

	remaining := in.RepaymentExpected - in.TotalRepaid
	if remaining < 0 {
		remaining = 0
	}
	days := money.OverdueDays(in.Today, due, in.GracePeriodDays)
	fee := money.RoundInt(money.LateFee(in.LateBaseAmount, in.LateFeeRatePercent, days, monthDays))

	return Recovery{
		RemainingPrincipal: remaining,
		AccruedLateFee:     fee,
		RecoveryTotal:      remaining + fee,
		OverdueDays:        days,
	}, nil
}
