package loan

import "context"

type Repository interface {
	Create(ctx context.Context, l *Loan) error
	Save(ctx context.Context, l *Loan) error
	GetByLoanID(ctx context.Context, loanID string) (*Loan, error)
	// Lock the row for the rest of the surrounding transaction
	GetByLoanIDForUpdate(ctx context.Context, loanID string) (*Loan, error)
	ListByCustomer(ctx context.Context, customerID string) ([]Loan, error)
	// Loan ids starting with prefix, used to allocate the next per-day sequence
	LoanIDsWithPrefix(ctx context.Context, prefix string) ([]string, error)
}
