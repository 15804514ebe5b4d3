package listing

import (
	"context"
	"sort"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"loan-ledger/internal/domain/loan"
	"loan-ledger/internal/domain/repayment"
	"loan-ledger/internal/infrastructure/tracing"
	"loan-ledger/pkg/calendar"
	"loan-ledger/pkg/id"
)

var tracer = otel.Tracer("loan-ledger/usecase/listing")

// Usecase derives every figure from the stored repayment history on each
// call; nothing is cached between calls.
type Usecase struct {
	loans      loan.Repository
	repayments repayment.Repository
	monthDays  int
	log        *zap.Logger
	now        func() time.Time
}

func NewUsecase(loans loan.Repository, repayments repayment.Repository, policy loan.Policy, log *zap.Logger) *Usecase {
	if log == nil {
		log = zap.NewNop()
	}
	return &Usecase{loans: loans, repayments: repayments, monthDays: policy.MonthDays, log: log, now: time.Now}
}

type ListInput struct {
	CustomerID string
	Filter     string
	AsOf       string // empty means today
}

func (u *Usecase) ListUnpaid(ctx context.Context, in ListInput) (out *UnpaidListing, err error) {
	ctx, span := tracer.Start(ctx, "listing.ListUnpaid")
	defer func() { tracing.End(span, err) }()

	mode, err := ParseFilterMode(in.Filter)
	if err != nil {
		return nil, err
	}
	asOf := calendar.FromTime(u.now())
	if strings.TrimSpace(in.AsOf) != "" {
		if asOf, err = calendar.Parse(in.AsOf); err != nil {
			return nil, loan.Invalid("as_of", err.Error())
		}
	}
	today, _ := asOf.Time()
	customerID := id.NormalizeCustomerID(in.CustomerID)
	span.SetAttributes(attribute.String("customer_id", customerID), attribute.String("filter", string(mode)))

	loans, err := u.loans.ListByCustomer(ctx, customerID)
	if err != nil {
		return nil, err
	}

	out = &UnpaidListing{CustomerID: customerID, AsOf: asOf.String(), Filter: mode, Rows: []UnpaidRow{}}
	for i := range loans {
		l := &loans[i]
		if l.IsCancelled() {
			continue
		}
		paid, err := u.repayments.TotalsByLoanID(ctx, l.LoanID)
		if err != nil {
			return nil, err
		}
		if l.FullyRepaid(paid.Principal) {
			continue
		}

		row := UnpaidRow{
			LoanID:             l.LoanID,
			LoanDate:           l.LoanDate.String(),
			LoanAmount:         l.Principal,
			DueDate:            l.DueDate.String(),
			RepaymentExpected:  l.RepaymentExpected,
			TotalRepaid:        paid.Principal,
			RemainingPrincipal: l.Remaining(paid.Principal),
			GracePeriodDays:    l.GracePeriodDays,
			LateFeePaid:        paid.LateFee,
		}
		rec, err := l.RecoveryAt(today, paid.Principal, u.monthDays)
		switch {
		case err != nil:
			row.Status = StatusDateErr
			u.log.Warn("unreadable due date in listing",
				zap.String("loan_id", l.LoanID), zap.String("due_date", l.DueDate.String()))
		case rec.OverdueDays > 0:
			row.Status = StatusOverdue
		default:
			row.Status = StatusUnpaid
		}
		if err == nil {
			row.OverdueDays = rec.OverdueDays
			row.LateFeeRemaining = max(0, rec.AccruedLateFee-paid.LateFee)
		}
		row.RecoveryTotal = row.RemainingPrincipal + row.LateFeeRemaining

		if mode == FilterOverdue && row.Status != StatusOverdue {
			continue
		}
		out.Rows = append(out.Rows, row)
	}

	sortRows(out.Rows)
	for _, r := range out.Rows {
		out.Summary.Count++
		out.Summary.TotalRemaining += r.RemainingPrincipal
		out.Summary.TotalRecovery += r.RecoveryTotal
		switch r.Status {
		case StatusOverdue:
			out.Summary.OverdueCount++
		case StatusUnpaid:
			out.Summary.InTimeCount++
		}
	}
	return out, nil
}

// sortRows orders by due date, unreadable due dates last, ties by loan id.
func sortRows(rows []UnpaidRow) {
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		aErr, bErr := a.Status == StatusDateErr, b.Status == StatusDateErr
		if aErr != bErr {
			return bErr
		}
		if !aErr && a.DueDate != b.DueDate {
			return a.DueDate < b.DueDate
		}
		return a.LoanID < b.LoanID
	})
}

// Balance is expected minus repaid over the customer's non-cancelled loans.
// With clamp a negative difference reads as zero.
func (u *Usecase) Balance(ctx context.Context, customerID string, clamp bool) (out *Balance, err error) {
	ctx, span := tracer.Start(ctx, "listing.Balance")
	defer func() { tracing.End(span, err) }()

	customerID = id.NormalizeCustomerID(customerID)
	loans, err := u.loans.ListByCustomer(ctx, customerID)
	if err != nil {
		return nil, err
	}
	out = &Balance{CustomerID: customerID, Clamped: clamp}
	for i := range loans {
		l := &loans[i]
		if l.IsCancelled() {
			continue
		}
		paid, err := u.repayments.TotalsByLoanID(ctx, l.LoanID)
		if err != nil {
			return nil, err
		}
		out.TotalExpected += l.RepaymentExpected
		out.TotalRepaid += paid.Principal
	}
	out.Balance = out.TotalExpected - out.TotalRepaid
	if clamp && out.Balance < 0 {
		out.Balance = 0
	}
	return out, nil
}
