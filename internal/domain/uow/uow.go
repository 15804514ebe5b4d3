package uow

import (
	"context"

	"loan-ledger/internal/domain/audit"
	"loan-ledger/internal/domain/loan"
	"loan-ledger/internal/domain/repayment"
)

// Repos are bound to the surrounding transaction.
type Repos struct {
	Loans      loan.Repository
	Repayments repayment.Repository
	Audit      audit.Repository
}

type UnitOfWork interface {
	// plain tx
	WithinTx(ctx context.Context, fn func(r Repos) error) error
	// lock the loan row first, then pass it in; loan.ErrNotFound when absent
	WithinLoanTx(ctx context.Context, loanID string, fn func(r Repos, l *loan.Loan) error) error
}
