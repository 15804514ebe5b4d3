package mysql

import (
	"context"
	"errors"
	"fmt"

	loanDomain "loan-ledger/internal/domain/loan"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type LoanRepository struct{ db *gorm.DB }

func NewLoanRepository(db *gorm.DB) *LoanRepository { return &LoanRepository{db: db} }

func (r *LoanRepository) Create(ctx context.Context, l *loanDomain.Loan) error {
	return r.db.WithContext(ctx).Create(l).Error
}

func (r *LoanRepository) Save(ctx context.Context, l *loanDomain.Loan) error {
	return r.db.WithContext(ctx).Save(l).Error
}

func (r *LoanRepository) GetByLoanID(ctx context.Context, loanID string) (*loanDomain.Loan, error) {
	var out loanDomain.Loan
	res := r.db.WithContext(ctx).Where("loan_id = ?", loanID).First(&out)
	if res.Error != nil {
		return nil, notFound(res.Error, loanID)
	}
	return &out, nil
}

// GetByLoanIDForUpdate issues SELECT ... FOR UPDATE. SQLite has no row
// locks and gorm drops the clause there; its single writer covers it.
func (r *LoanRepository) GetByLoanIDForUpdate(ctx context.Context, loanID string) (*loanDomain.Loan, error) {
	var out loanDomain.Loan
	res := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("loan_id = ?", loanID).
		First(&out)
	if res.Error != nil {
		return nil, notFound(res.Error, loanID)
	}
	return &out, nil
}

func (r *LoanRepository) ListByCustomer(ctx context.Context, customerID string) ([]loanDomain.Loan, error) {
	var out []loanDomain.Loan
	err := r.db.WithContext(ctx).
		Where("customer_id = ?", customerID).
		Order("loan_date ASC, loan_id ASC").
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("list loans for %s: %w", customerID, err)
	}
	return out, nil
}

func (r *LoanRepository) LoanIDsWithPrefix(ctx context.Context, prefix string) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).
		Model(&loanDomain.Loan{}).
		Where("loan_id LIKE ?", prefix+"%").
		Pluck("loan_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("loan ids with prefix %s: %w", prefix, err)
	}
	return ids, nil
}

func notFound(err error, loanID string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%w: %s", loanDomain.ErrNotFound, loanID)
	}
	return fmt.Errorf("get loan %s: %w", loanID, err)
}
