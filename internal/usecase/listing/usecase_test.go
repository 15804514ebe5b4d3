package listing

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"loan-ledger/internal/domain/loan"
	"loan-ledger/internal/domain/repayment"
	"loan-ledger/internal/testutil/loanmock"
	"loan-ledger/internal/testutil/repaymentmock"
	"loan-ledger/pkg/calendar"
)

func mkLoan(loanID, due string, expected int64, status loan.ContractStatus) loan.Loan {
	return loan.Loan{
		LoanID:             loanID,
		CustomerID:         "CUST001",
		Principal:          10000,
		LoanDate:           "2025-09-01",
		DueDate:            calendar.Date(due),
		RepaymentExpected:  expected,
		LateFeeRatePercent: decimal.NewFromInt(10),
		LateBaseAmount:     10000,
		ContractStatus:     status,
	}
}

func entry(loanID string, amount int64, typ repayment.PaymentType) repayment.Entry {
	return repayment.Entry{LoanID: loanID, CustomerID: "CUST001", Amount: amount, PaymentDate: "2025-09-15", PaymentType: typ}
}

func newUsecase(loans []loan.Loan, entries ...repayment.Entry) *Usecase {
	repo := &loanmock.Repo{
		ListByCustomerFn: func(_ context.Context, customerID string) ([]loan.Loan, error) {
			if customerID != "CUST001" {
				return nil, nil
			}
			return loans, nil
		},
	}
	uc := NewUsecase(repo, &repaymentmock.Ledger{Entries: entries}, loan.DefaultPolicy(), nil)
	uc.now = func() time.Time { return time.Date(2025, 10, 1, 0, 0, 0, 0, time.UTC) }
	return uc
}

func fixtureLoans() ([]loan.Loan, []repayment.Entry) {
	loans := []loan.Loan{
		mkLoan("L20250901-004", "2025-10-20", 11000, loan.StatusActive), // not due
		mkLoan("L20250901-001", "2025-09-01", 11000, loan.StatusActive), // 30 days overdue
		mkLoan("L20250901-002", "garbage", 11000, loan.StatusActive),    // DATE_ERR
		mkLoan("L20250901-003", "2025-09-01", 11000, loan.StatusCancelled),
		mkLoan("L20250901-005", "2025-09-01", 11000, loan.StatusActive), // fully repaid
		mkLoan("L20250901-006", "2025-10-20", 11000, loan.StatusActive), // same due date as 004
	}
	entries := []repayment.Entry{
		entry("L20250901-001", 1000, repayment.TypeRepayment),
		entry("L20250901-001", 400, repayment.TypeLateFee),
		entry("L20250901-002", 500, repayment.TypeRepayment),
		entry("L20250901-005", 11000, repayment.TypeRepayment),
	}
	return loans, entries
}

func TestListUnpaid_All(t *testing.T) {
	loans, entries := fixtureLoans()
	got, err := newUsecase(loans, entries...).ListUnpaid(context.Background(), ListInput{CustomerID: "1"})
	if err != nil {
		t.Fatalf("ListUnpaid: %v", err)
	}

	wantOrder := []string{"L20250901-001", "L20250901-004", "L20250901-006", "L20250901-002"}
	if len(got.Rows) != len(wantOrder) {
		t.Fatalf("rows=%+v", got.Rows)
	}
	for i, want := range wantOrder {
		if got.Rows[i].LoanID != want {
			t.Fatalf("row %d: %s, want %s", i, got.Rows[i].LoanID, want)
		}
	}

	overdue := got.Rows[0]
	if overdue.Status != StatusOverdue || overdue.OverdueDays != 30 {
		t.Fatalf("overdue row: %+v", overdue)
	}
	if overdue.RemainingPrincipal != 10000 || overdue.LateFeePaid != 400 || overdue.LateFeeRemaining != 600 {
		t.Fatalf("overdue amounts: %+v", overdue)
	}
	if overdue.RecoveryTotal != 10600 {
		t.Fatalf("recovery=%d", overdue.RecoveryTotal)
	}

	dateErr := got.Rows[3]
	if dateErr.Status != StatusDateErr || dateErr.RemainingPrincipal != 10500 || dateErr.LateFeeRemaining != 0 {
		t.Fatalf("date err row: %+v", dateErr)
	}

	s := got.Summary
	if s.Count != 4 || s.OverdueCount != 1 || s.InTimeCount != 2 {
		t.Fatalf("summary=%+v", s)
	}
	if s.TotalRemaining != 10000+11000+11000+10500 {
		t.Fatalf("total remaining=%d", s.TotalRemaining)
	}
	if got.AsOf != "2025-10-01" || got.Filter != FilterAll || got.CustomerID != "CUST001" {
		t.Fatalf("header=%+v", got)
	}
}

func TestListUnpaid_Overdue(t *testing.T) {
	loans, entries := fixtureLoans()
	got, err := newUsecase(loans, entries...).ListUnpaid(context.Background(), ListInput{CustomerID: "CUST001", Filter: "OVERDUE"})
	if err != nil {
		t.Fatalf("ListUnpaid: %v", err)
	}
	if len(got.Rows) != 1 || got.Rows[0].LoanID != "L20250901-001" {
		t.Fatalf("rows=%+v", got.Rows)
	}
	for _, r := range got.Rows {
		if r.Status == StatusDateErr {
			t.Fatal("DATE_ERR rows never appear in the overdue view")
		}
	}
}

func TestListUnpaid_AsOfControlsOverdue(t *testing.T) {
	loans, entries := fixtureLoans()
	got, err := newUsecase(loans, entries...).ListUnpaid(context.Background(), ListInput{CustomerID: "1", Filter: "overdue", AsOf: "2025-09-01"})
	if err != nil {
		t.Fatalf("ListUnpaid: %v", err)
	}
	if len(got.Rows) != 0 {
		t.Fatalf("nothing is overdue on its due date: %+v", got.Rows)
	}
}

func TestListUnpaid_CancelledNeverListed(t *testing.T) {
	loans := []loan.Loan{
		mkLoan("L20250901-001", "2025-09-01", 11000, loan.StatusCancelled),
		mkLoan("L20250901-002", "garbage", 11000, loan.StatusCancelled),
	}
	for _, f := range []string{"all", "overdue"} {
		got, err := newUsecase(loans).ListUnpaid(context.Background(), ListInput{CustomerID: "1", Filter: f})
		if err != nil {
			t.Fatalf("ListUnpaid: %v", err)
		}
		if len(got.Rows) != 0 || got.Summary.Count != 0 {
			t.Fatalf("%s: cancelled loans listed: %+v", f, got.Rows)
		}
	}
}

func TestListUnpaid_Validation(t *testing.T) {
	uc := newUsecase(nil)
	if _, err := uc.ListUnpaid(context.Background(), ListInput{CustomerID: "1", Filter: "late"}); !errors.Is(err, loan.ErrValidation) {
		t.Fatalf("unknown filter: want ErrValidation, got %v", err)
	}
	if _, err := uc.ListUnpaid(context.Background(), ListInput{CustomerID: "1", AsOf: "yesterday"}); !errors.Is(err, loan.ErrValidation) {
		t.Fatalf("bad as_of: want ErrValidation, got %v", err)
	}
	got, err := uc.ListUnpaid(context.Background(), ListInput{CustomerID: "42"})
	if err != nil || got.Rows == nil || len(got.Rows) != 0 {
		t.Fatalf("unknown customer: %+v %v", got, err)
	}
}

func TestBalance(t *testing.T) {
	loans, entries := fixtureLoans()
	uc := newUsecase(loans, entries...)

	got, err := uc.Balance(context.Background(), "CUST001", false)
	if err != nil {
		t.Fatalf("Balance: %v", err)
	}
	// five non-cancelled loans at 11000; REPAYMENT entries 1000+500+11000
	if got.TotalExpected != 55000 || got.TotalRepaid != 12500 || got.Balance != 42500 {
		t.Fatalf("balance=%+v", got)
	}
}

func TestBalance_Clamp(t *testing.T) {
	loans := []loan.Loan{mkLoan("L20250901-001", "2025-09-01", 1000, loan.StatusActive)}
	// legacy ledgers can hold an over-repaid loan
	entries := []repayment.Entry{entry("L20250901-001", 1200, repayment.TypeRepayment)}

	raw, _ := newUsecase(loans, entries...).Balance(context.Background(), "1", false)
	if raw.Balance != -200 {
		t.Fatalf("raw balance=%d", raw.Balance)
	}
	clamped, _ := newUsecase(loans, entries...).Balance(context.Background(), "1", true)
	if clamped.Balance != 0 || !clamped.Clamped {
		t.Fatalf("clamped=%+v", clamped)
	}
}

func TestParseFilterMode(t *testing.T) {
	for in, want := range map[string]FilterMode{"": FilterAll, "ALL": FilterAll, " overdue ": FilterOverdue} {
		got, err := ParseFilterMode(in)
		if err != nil || got != want {
			t.Errorf("ParseFilterMode(%q)=%s,%v", in, got, err)
		}
	}
}
