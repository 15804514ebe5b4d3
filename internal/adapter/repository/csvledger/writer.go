package csvledger

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"loan-ledger/internal/domain/loan"
	"loan-ledger/internal/domain/repayment"
	"loan-ledger/pkg/id"
)

func WriteLoans(w io.Writer, loans []loan.Loan) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(LoansHeader); err != nil {
		return err
	}
	for i := range loans {
		l := &loans[i]
		cancelledAt := ""
		if l.CancelledAt != nil {
			cancelledAt = l.CancelledAt.UTC().Format(time.RFC3339)
		}
		if err := cw.Write([]string{
			l.LoanID,
			l.CustomerID,
			strconv.FormatInt(l.Principal, 10),
			l.LoanDate.String(),
			l.DueDate.String(),
			l.InterestRatePercent.String(),
			strconv.FormatInt(l.RepaymentExpected, 10),
			string(l.RepaymentMethod),
			strconv.Itoa(l.GracePeriodDays),
			l.LateFeeRatePercent.String(),
			strconv.FormatInt(l.LateBaseAmount, 10),
			string(l.ContractStatus),
			cancelledAt,
			l.CancelReason,
			l.Notes,
		}); err != nil {
			return fmt.Errorf("write loan %s: %w", l.LoanID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func WriteRepayments(w io.Writer, entries []repayment.Entry) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(RepaymentsHeader); err != nil {
		return err
	}
	for _, e := range entries {
		if err := cw.Write([]string{
			e.LoanID,
			e.CustomerID,
			strconv.FormatInt(e.Amount, 10),
			e.PaymentDate.String(),
			string(e.PaymentType),
		}); err != nil {
			return fmt.Errorf("write repayment for %s: %w", e.LoanID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// ExportCustomer writes one customer's loans and repayment history in the
// legacy layout.
func ExportCustomer(ctx context.Context, loans loan.Repository, repayments repayment.Repository, customerID string, loanOut, repaymentOut io.Writer) error {
	customerID = id.NormalizeCustomerID(customerID)
	ls, err := loans.ListByCustomer(ctx, customerID)
	if err != nil {
		return err
	}
	entries, err := repayments.ListByCustomer(ctx, customerID)
	if err != nil {
		return err
	}
	if err := WriteLoans(loanOut, ls); err != nil {
		return err
	}
	return WriteRepayments(repaymentOut, entries)
}
