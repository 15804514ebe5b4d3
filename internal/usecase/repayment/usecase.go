package repayment

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"loan-ledger/internal/domain/audit"
	"loan-ledger/internal/domain/loan"
	"loan-ledger/internal/domain/repayment"
	"loan-ledger/internal/domain/uow"
	"loan-ledger/internal/infrastructure/metrics"
	"loan-ledger/internal/infrastructure/tracing"
	"loan-ledger/pkg/calendar"
	"loan-ledger/pkg/id"
)

const DefaultActor = "system"

var tracer = otel.Tracer("loan-ledger/usecase/repayment")

type Usecase struct {
	uow        uow.UnitOfWork
	repayments repayment.Repository
	monthDays  int
	log        *zap.Logger
	now        func() time.Time
}

func NewUsecase(tx uow.UnitOfWork, repayments repayment.Repository, policy loan.Policy, log *zap.Logger) *Usecase {
	if log == nil {
		log = zap.NewNop()
	}
	return &Usecase{uow: tx, repayments: repayments, monthDays: policy.MonthDays, log: log, now: time.Now}
}

// Record allocates a payment principal-first, then to the outstanding late
// fee. The balance check and the appended entries share one locked
// transaction, so concurrent payments cannot push REPAYMENT totals past the
// expected amount.
func (u *Usecase) Record(ctx context.Context, in RecordInput) (res *RecordResult, err error) {
	ctx, span := tracer.Start(ctx, "repayment.Record")
	span.SetAttributes(attribute.String("loan_id", in.LoanID), attribute.Int64("amount", in.Amount))
	defer func() {
		tracing.End(span, err)
		metrics.Observe("record_repayment", err, loan.IsRejection(err))
	}()

	loanID := strings.TrimSpace(in.LoanID)
	if loanID == "" {
		return nil, loan.Invalid("loan_id", "is required")
	}
	if in.Amount <= 0 {
		return nil, loan.Invalid("amount", "must be positive")
	}
	if in.Amount > loan.MaxAmount {
		return nil, loan.Invalid("amount", "too large")
	}
	payDate := calendar.FromTime(u.now())
	if strings.TrimSpace(in.PaymentDate) != "" {
		d, err := calendar.Parse(in.PaymentDate)
		if err != nil {
			return nil, loan.Invalid("payment_date", err.Error())
		}
		payDate = d
	}
	payDay, _ := payDate.Time()
	actor := in.Actor
	if strings.TrimSpace(actor) == "" {
		actor = DefaultActor
	}

	err = u.uow.WithinLoanTx(ctx, loanID, func(r uow.Repos, l *loan.Loan) error {
		if l.IsCancelled() {
			return fmt.Errorf("%w: %s", loan.ErrContractCancelled, l.LoanID)
		}
		paid, err := r.Repayments.TotalsByLoanID(ctx, l.LoanID)
		if err != nil {
			return err
		}

		remaining := l.Remaining(paid.Principal)
		var feeAccrued int64
		overdue := 0
		rec, err := l.RecoveryAt(payDay, paid.Principal, u.monthDays)
		if err != nil {
			u.log.Warn("due date unreadable, no late fee accrued",
				zap.String("loan_id", l.LoanID), zap.String("due_date", l.DueDate.String()))
		} else {
			feeAccrued = rec.AccruedLateFee
			overdue = rec.OverdueDays
		}
		feeRemaining := max(0, feeAccrued-paid.LateFee)
		totalDue := remaining + feeRemaining

		if in.Amount > totalDue {
			return &loan.OverRepaymentError{
				Amount:             in.Amount,
				RemainingPrincipal: remaining,
				LateFeeRemaining:   feeRemaining,
				TotalDue:           totalDue,
			}
		}

		principalPart, feePart := repayment.Allocate(in.Amount, remaining, feeRemaining)
		res = &RecordResult{
			LoanID:                   l.LoanID,
			Amount:                   in.Amount,
			PrincipalPart:            principalPart,
			LateFeePart:              feePart,
			RemainingPrincipalBefore: remaining,
			LateFeeRemainingBefore:   feeRemaining,
			TotalDueBefore:           totalDue,
			OverdueDays:              overdue,
		}

		parts := []struct {
			amount int64
			typ    repayment.PaymentType
		}{
			{principalPart, repayment.TypeRepayment},
			{feePart, repayment.TypeLateFee},
		}
		for _, p := range parts {
			if p.amount <= 0 {
				continue
			}
			e := &repayment.Entry{
				LoanID:      l.LoanID,
				CustomerID:  l.CustomerID,
				Amount:      p.amount,
				PaymentDate: payDate,
				PaymentType: p.typ,
			}
			if err := r.Repayments.Append(ctx, e); err != nil {
				return fmt.Errorf("append %s entry for %s: %w", p.typ, l.LoanID, err)
			}
			ev := audit.NewEvent(u.now(), audit.ActionRegisterRepayment, l.LoanID, actor, map[string]any{
				"customer_id":                l.CustomerID,
				"repayment_amount":           e.Amount,
				"repayment_date":             e.PaymentDate,
				"payment_type":               e.PaymentType,
				"payment_total":              in.Amount,
				"remaining_principal_before": remaining,
				"late_fee_remaining_before":  feeRemaining,
			})
			if err := r.Audit.Append(ctx, ev); err != nil {
				return fmt.Errorf("audit repayment for %s: %w", l.LoanID, err)
			}
			res.Entries = append(res.Entries, *e)
		}
		return nil
	})
	if err != nil {
		u.log.Info("repayment rejected",
			zap.String("loan_id", loanID), zap.Int64("amount", in.Amount), zap.Error(err))
		return nil, err
	}

	metrics.RepaymentAmount.WithLabelValues(string(repayment.TypeRepayment)).Add(float64(res.PrincipalPart))
	metrics.RepaymentAmount.WithLabelValues(string(repayment.TypeLateFee)).Add(float64(res.LateFeePart))
	u.log.Info("repayment recorded",
		zap.String("loan_id", res.LoanID),
		zap.Int64("amount", res.Amount),
		zap.Int64("principal_part", res.PrincipalPart),
		zap.Int64("late_fee_part", res.LateFeePart),
		zap.Int64("remaining_principal_after", res.RemainingPrincipalAfter()),
	)
	return res, nil
}

// History is the repayment history view for one customer, oldest first.
func (u *Usecase) History(ctx context.Context, customerID string) ([]repayment.Entry, error) {
	ctx, span := tracer.Start(ctx, "repayment.History")
	out, err := u.repayments.ListByCustomer(ctx, id.NormalizeCustomerID(customerID))
	tracing.End(span, err)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []repayment.Entry{}
	}
	return out, nil
}
