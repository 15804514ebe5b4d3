package repayment

import "context"

type Repository interface {
	Append(ctx context.Context, e *Entry) error
	ListByLoanID(ctx context.Context, loanID string) ([]Entry, error)
	// ordered by repayment date, then insertion order
	ListByCustomer(ctx context.Context, customerID string) ([]Entry, error)
	TotalsByLoanID(ctx context.Context, loanID string) (Totals, error)
}
