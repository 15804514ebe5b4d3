package mysql

import (
	"context"
	"fmt"

	"loan-ledger/internal/domain/repayment"

	"gorm.io/gorm"
)

type RepaymentRepository struct{ db *gorm.DB }

func NewRepaymentRepository(db *gorm.DB) *RepaymentRepository {
	return &RepaymentRepository{db: db}
}

func (r *RepaymentRepository) Append(ctx context.Context, e *repayment.Entry) error {
	return r.db.WithContext(ctx).Create(e).Error
}

func (r *RepaymentRepository) ListByLoanID(ctx context.Context, loanID string) ([]repayment.Entry, error) {
	var out []repayment.Entry
	err := r.db.WithContext(ctx).
		Where("loan_id = ?", loanID).
		Order("repayment_date ASC, id ASC").
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("list repayments for loan %s: %w", loanID, err)
	}
	return out, nil
}

func (r *RepaymentRepository) ListByCustomer(ctx context.Context, customerID string) ([]repayment.Entry, error) {
	var out []repayment.Entry
	err := r.db.WithContext(ctx).
		Where("customer_id = ?", customerID).
		Order("repayment_date ASC, id ASC").
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("list repayments for customer %s: %w", customerID, err)
	}
	return out, nil
}

type typeTotal struct {
	PaymentType repayment.PaymentType
	Total       int64
}

// TotalsByLoanID always rescans the entries; nothing is cached.
func (r *RepaymentRepository) TotalsByLoanID(ctx context.Context, loanID string) (repayment.Totals, error) {
	var rows []typeTotal
	err := r.db.WithContext(ctx).
		Model(&repayment.Entry{}).
		Select("payment_type, COALESCE(SUM(repayment_amount), 0) AS total").
		Where("loan_id = ?", loanID).
		Group("payment_type").
		Scan(&rows).Error
	if err != nil {
		return repayment.Totals{}, fmt.Errorf("sum repayments for loan %s: %w", loanID, err)
	}
	var t repayment.Totals
	for _, row := range rows {
		if row.PaymentType == repayment.TypeLateFee {
			t.LateFee += row.Total
		} else {
			t.Principal += row.Total
		}
	}
	return t, nil
}
