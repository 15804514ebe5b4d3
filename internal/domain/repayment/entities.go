package repayment

import (
	"time"

	"loan-ledger/pkg/calendar"
)

type PaymentType string

const (
	TypeRepayment PaymentType = "REPAYMENT"
	TypeLateFee   PaymentType = "LATE_FEE"
)

// Entry is one money movement against a loan. Entries are append-only.
type Entry struct {
	ID          uint64        `gorm:"primaryKey;column:id" json:"-"`
	LoanID      string        `gorm:"column:loan_id;size:32;not null;index:idx_repayments_loan" json:"loan_id"`
	CustomerID  string        `gorm:"column:customer_id;size:32;not null;index:idx_repayments_customer" json:"customer_id"`
	Amount      int64         `gorm:"column:repayment_amount;not null" json:"repayment_amount"`
	PaymentDate calendar.Date `gorm:"column:repayment_date;size:32;not null" json:"repayment_date"`
	PaymentType PaymentType   `gorm:"column:payment_type;size:16;not null" json:"payment_type"`
	CreatedAt   time.Time     `gorm:"autoCreateTime" json:"created_at"`
}

func (Entry) TableName() string { return "repayments" }

// Totals splits what has been paid on one loan by payment type.
type Totals struct {
	Principal int64 `json:"principal"`
	LateFee   int64 `json:"late_fee"`
}

func Sum(entries []Entry) Totals {
	var t Totals
	for _, e := range entries {
		switch e.PaymentType {
		case TypeLateFee:
			t.LateFee += e.Amount
		default:
			t.Principal += e.Amount
		}
	}
	return t
}

// Allocate splits amount principal-first, then late fee. Callers must have
// checked amount against principalDue+feeDue already.
func Allocate(amount, principalDue, feeDue int64) (principalPart, feePart int64) {
	principalPart = min(principalDue, amount)
	if principalPart < 0 {
		principalPart = 0
	}
	feePart = min(feeDue, amount-principalPart)
	if feePart < 0 {
		feePart = 0
	}
	return principalPart, feePart
}
