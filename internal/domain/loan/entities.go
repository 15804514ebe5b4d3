package loan

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"loan-ledger/pkg/calendar"
)

type ContractStatus string

const (
	StatusActive    ContractStatus = "ACTIVE"
	StatusCancelled ContractStatus = "CANCELLED"
)

type RepaymentMethod string

const (
	MethodCash         RepaymentMethod = "CASH"
	MethodBankTransfer RepaymentMethod = "BANK_TRANSFER"
	MethodUnknown      RepaymentMethod = "UNKNOWN"
)

var methodAliases = map[string]RepaymentMethod{
	"cash":          MethodCash,
	"bank_transfer": MethodBankTransfer,
	"bank":          MethodBankTransfer,
	"transfer":      MethodBankTransfer,
	"現金":            MethodCash,
	"振込":            MethodBankTransfer,
	"銀行振込":          MethodBankTransfer,
}

// NormalizeMethod never rejects: anything it does not recognise is UNKNOWN.
func NormalizeMethod(s string) RepaymentMethod {
	key := strings.TrimSpace(s)
	if m, ok := methodAliases[key]; ok {
		return m
	}
	key = strings.ToLower(key)
	key = strings.NewReplacer(" ", "_", "-", "_").Replace(key)
	if m, ok := methodAliases[key]; ok {
		return m
	}
	return MethodUnknown
}

// Loan is one funded advance. Only the cancellation fields change after creation.
type Loan struct {
	ID                  uint64          `gorm:"primaryKey;column:id" json:"-"`
	LoanID              string          `gorm:"column:loan_id;size:32;not null;uniqueIndex:ux_loans_loan_id" json:"loan_id"`
	CustomerID          string          `gorm:"column:customer_id;size:32;not null;index:idx_loans_customer" json:"customer_id"`
	Principal           int64           `gorm:"column:loan_amount;not null" json:"loan_amount"`
	LoanDate            calendar.Date   `gorm:"column:loan_date;size:32;not null" json:"loan_date"`
	DueDate             calendar.Date   `gorm:"column:due_date;size:32" json:"due_date"`
	InterestRatePercent decimal.Decimal `gorm:"column:interest_rate_percent;type:decimal(9,4);not null" json:"interest_rate_percent"`
	RepaymentExpected   int64           `gorm:"column:repayment_expected;not null" json:"repayment_expected"`
	RepaymentMethod     RepaymentMethod `gorm:"column:repayment_method;size:16;not null" json:"repayment_method"`
	GracePeriodDays     int             `gorm:"column:grace_period_days;not null" json:"grace_period_days"`
	LateFeeRatePercent  decimal.Decimal `gorm:"column:late_fee_rate_percent;type:decimal(9,4);not null" json:"late_fee_rate_percent"`
	LateBaseAmount      int64           `gorm:"column:late_base_amount;not null" json:"late_base_amount"`
	ContractStatus      ContractStatus  `gorm:"column:contract_status;size:16;not null" json:"contract_status"`
	CancelledAt         *time.Time      `gorm:"column:cancelled_at" json:"cancelled_at,omitempty"`
	CancelReason        string          `gorm:"column:cancel_reason;type:text" json:"cancel_reason"`
	Notes               string          `gorm:"column:notes;type:text" json:"notes"`
	CreatedAt           time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt           time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Loan) TableName() string { return "loans" }

func (l *Loan) IsCancelled() bool { return l.ContractStatus == StatusCancelled }

// FullyRepaid reports whether principal repayments have reached the expected amount.
func (l *Loan) FullyRepaid(totalRepaid int64) bool { return totalRepaid >= l.RepaymentExpected }

// Remaining is what is still owed on principal-plus-interest, never negative.
func (l *Loan) Remaining(totalRepaid int64) int64 {
	if r := l.RepaymentExpected - totalRepaid; r > 0 {
		return r
	}
	return 0
}

// RecoveryAt feeds the loan's own terms into ComputeRecovery.
func (l *Loan) RecoveryAt(today time.Time, totalRepaid int64, monthDays int) (Recovery, error) {
	return ComputeRecovery(RecoveryInput{
		RepaymentExpected:  l.RepaymentExpected,
		TotalRepaid:        totalRepaid,
		Today:              today,
		DueDate:            l.DueDate,
		GracePeriodDays:    l.GracePeriodDays,
		LateFeeRatePercent: l.LateFeeRatePercent,
		LateBaseAmount:     l.LateBaseAmount,
		MonthDays:          monthDays,
	})
}
