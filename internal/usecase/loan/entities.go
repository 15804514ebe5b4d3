package loan

import (
	"time"

	"github.com/shopspring/decimal"

	domain "loan-ledger/internal/domain/loan"
)

// CreateLoanInput carries raw caller input; dates are text so the usecase
// owns parsing. Nil rates take the policy defaults.
type CreateLoanInput struct {
	CustomerID          string           `json:"customer_id"`
	Principal           int64            `json:"loan_amount"`
	LoanDate            string           `json:"loan_date"`
	DueDate             string           `json:"due_date,omitempty"`
	InterestRatePercent *decimal.Decimal `json:"interest_rate_percent,omitempty"`
	RepaymentMethod     string           `json:"repayment_method"`
	GracePeriodDays     int              `json:"grace_period_days"`
	LateFeeRatePercent  *decimal.Decimal `json:"late_fee_rate_percent,omitempty"`
	Notes               string           `json:"notes"`
	Actor               string           `json:"-"`
}

type LoanDTO struct {
	LoanID              string          `json:"loan_id"`
	CustomerID          string          `json:"customer_id"`
	LoanAmount          int64           `json:"loan_amount"`
	LoanDate            string          `json:"loan_date"`
	DueDate             string          `json:"due_date"`
	InterestRatePercent decimal.Decimal `json:"interest_rate_percent"`
	RepaymentExpected   int64           `json:"repayment_expected"`
	RepaymentMethod     string          `json:"repayment_method"`
	GracePeriodDays     int             `json:"grace_period_days"`
	LateFeeRatePercent  decimal.Decimal `json:"late_fee_rate_percent"`
	LateBaseAmount      int64           `json:"late_base_amount"`
	ContractStatus      string          `json:"contract_status"`
	CancelledAt         *time.Time      `json:"cancelled_at,omitempty"`
	CancelReason        string          `json:"cancel_reason,omitempty"`
	Notes               string          `json:"notes,omitempty"`
	CreatedAt           time.Time       `json:"created_at"`
}

func ToDTO(l *domain.Loan) *LoanDTO {
	return &LoanDTO{
		LoanID:              l.LoanID,
		CustomerID:          l.CustomerID,
		LoanAmount:          l.Principal,
		LoanDate:            l.LoanDate.String(),
		DueDate:             l.DueDate.String(),
		InterestRatePercent: l.InterestRatePercent,
		RepaymentExpected:   l.RepaymentExpected,
		RepaymentMethod:     string(l.RepaymentMethod),
		GracePeriodDays:     l.GracePeriodDays,
		LateFeeRatePercent:  l.LateFeeRatePercent,
		LateBaseAmount:      l.LateBaseAmount,
		ContractStatus:      string(l.ContractStatus),
		CancelledAt:         l.CancelledAt,
		CancelReason:        l.CancelReason,
		Notes:               l.Notes,
		CreatedAt:           l.CreatedAt,
	}
}
