package repayment

import (
	"loan-ledger/internal/domain/repayment"
)

type RecordInput struct {
	LoanID      string `json:"-"`
	Amount      int64  `json:"amount"`
	PaymentDate string `json:"payment_date,omitempty"` // empty means today
	Actor       string `json:"-"`
}

// RecordResult summarises one accepted payment. The *Before fields are the
// balances the payment was checked against.
type RecordResult struct {
	LoanID                   string            `json:"loan_id"`
	Amount                   int64             `json:"amount"`
	PrincipalPart            int64             `json:"principal_part"`
	LateFeePart              int64             `json:"late_fee_part"`
	RemainingPrincipalBefore int64             `json:"remaining_principal_before"`
	LateFeeRemainingBefore   int64             `json:"late_fee_remaining_before"`
	TotalDueBefore           int64             `json:"total_due_before"`
	OverdueDays              int               `json:"overdue_days"`
	Entries                  []repayment.Entry `json:"entries"`
}

// RemainingPrincipalAfter is what is left on principal once this payment lands.
func (r *RecordResult) RemainingPrincipalAfter() int64 {
	return r.RemainingPrincipalBefore - r.PrincipalPart
}
