package repaymentmock

import (
	"context"

	"loan-ledger/internal/domain/repayment"
)

var _ repayment.Repository = (*Repo)(nil)

// Repo is a function-backed mock that satisfies repayment.Repository.
// Unset reads return nothing; unset Append is a no-op.
type Repo struct {
	AppendFn         func(ctx context.Context, e *repayment.Entry) error
	ListByLoanIDFn   func(ctx context.Context, loanID string) ([]repayment.Entry, error)
	ListByCustomerFn func(ctx context.Context, customerID string) ([]repayment.Entry, error)
	TotalsByLoanIDFn func(ctx context.Context, loanID string) (repayment.Totals, error)
}

func (m *Repo) Append(ctx context.Context, e *repayment.Entry) error {
	if m.AppendFn != nil {
		return m.AppendFn(ctx, e)
	}
	return nil
}

func (m *Repo) ListByLoanID(ctx context.Context, loanID string) ([]repayment.Entry, error) {
	if m.ListByLoanIDFn != nil {
		return m.ListByLoanIDFn(ctx, loanID)
	}
	return nil, nil
}

func (m *Repo) ListByCustomer(ctx context.Context, customerID string) ([]repayment.Entry, error) {
	if m.ListByCustomerFn != nil {
		return m.ListByCustomerFn(ctx, customerID)
	}
	return nil, nil
}

func (m *Repo) TotalsByLoanID(ctx context.Context, loanID string) (repayment.Totals, error) {
	if m.TotalsByLoanIDFn != nil {
		return m.TotalsByLoanIDFn(ctx, loanID)
	}
	return repayment.Totals{}, nil
}

// Ledger is an in-memory append-only repayment store.
type Ledger struct {
	Entries []repayment.Entry
}

var _ repayment.Repository = (*Ledger)(nil)

func (l *Ledger) Append(_ context.Context, e *repayment.Entry) error {
	e.ID = uint64(len(l.Entries) + 1)
	l.Entries = append(l.Entries, *e)
	return nil
}

func (l *Ledger) ListByLoanID(_ context.Context, loanID string) ([]repayment.Entry, error) {
	var out []repayment.Entry
	for _, e := range l.Entries {
		if e.LoanID == loanID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (l *Ledger) ListByCustomer(_ context.Context, customerID string) ([]repayment.Entry, error) {
	var out []repayment.Entry
	for _, e := range l.Entries {
		if e.CustomerID == customerID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (l *Ledger) TotalsByLoanID(ctx context.Context, loanID string) (repayment.Totals, error) {
	entries, _ := l.ListByLoanID(ctx, loanID)
	return repayment.Sum(entries), nil
}
