package contract

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
	"loan-ledger/internal/domain/uow"
	"loan-ledger/internal/infrastructure/metrics"
	"loan-ledger/internal/infrastructure/tracing"
	loanUC "loan-ledger/internal/usecase/loan"
)

const DefaultOperator = "system"

var tracer = otel.Tracer("loan-ledger/usecase/contract")

type CancelInput struct {
	LoanID   string `json:"-"`
	Reason   string `json:"reason"`
	Operator string `json:"-"`
}

type Usecase struct {
	uow uow.UnitOfWork
	log *zap.Logger
	now func() time.Time
}

func NewUsecase(tx uow.UnitOfWork, log *zap.Logger) *Usecase {
	if log == nil {
		log = zap.NewNop()
	}
	return &Usecase{uow: tx, log: log, now: time.Now}
}

// Cancel moves an ACTIVE contract to CANCELLED. A refused cancellation still
// leaves a CANCEL_CONTRACT_SKIPPED audit event; an unknown loan leaves nothing.
func (u *Usecase) Cancel(ctx context.Context, in CancelInput) (dto *loanUC.LoanDTO, err error) {
	ctx, span := tracer.Start(ctx, "contract.Cancel")
	span.SetAttributes(attribute.String("loan_id", in.LoanID))
	defer func() {
		tracing.End(span, err)
		metrics.Observe("cancel_contract", err, loan.IsRejection(err))
	}()

	loanID := strings.TrimSpace(in.LoanID)
	if loanID == "" {
		return nil, loan.Invalid("loan_id", "is required")
	}
	operator := in.Operator
	if strings.TrimSpace(operator) == "" {
		operator = DefaultOperator
	}

	// skipErr is returned after commit so the skip audit is kept
	var skipErr error
	err = u.uow.WithinLoanTx(ctx, loanID, func(r uow.Repos, l *loan.Loan) error {
		now := u.now().UTC()
		skip := func(reason error, details map[string]any) error {
			skipErr = fmt.Errorf("%w: %s", reason, l.LoanID)
			details["reason"] = reason.Error()
			details["requested_reason"] = in.Reason
			return r.Audit.Append(ctx, audit.NewEvent(now, audit.ActionCancelContractSkipped, l.LoanID, operator, details))
		}

		if l.IsCancelled() {
			return skip(loan.ErrAlreadyCancelled, map[string]any{"status": l.ContractStatus})
		}
		paid, err := r.Repayments.TotalsByLoanID(ctx, l.LoanID)
		if err != nil {
			return err
		}
		if l.FullyRepaid(paid.Principal) {
			return skip(loan.ErrFullyRepaid, map[string]any{
				"repayment_expected": l.RepaymentExpected,
				"total_repaid":       paid.Principal,
			})
		}

		before := l.ContractStatus
		l.ContractStatus = loan.StatusCancelled
		l.CancelledAt = &now
		l.CancelReason = in.Reason
		if err := r.Loans.Save(ctx, l); err != nil {
			return fmt.Errorf("save loan %s: %w", l.LoanID, err)
		}
		if err := r.Audit.Append(ctx, audit.NewEvent(now, audit.ActionCancelContract, l.LoanID, operator, map[string]any{
			"before":        before,
			"after":         l.ContractStatus,
			"cancel_reason": in.Reason,
			"cancelled_at":  now,
			"total_repaid":  paid.Principal,
		})); err != nil {
			return fmt.Errorf("audit cancel %s: %w", l.LoanID, err)
		}
		dto = loanUC.ToDTO(l)
		return nil
	})
	if err == nil {
		err = skipErr
	}
	if err != nil {
		u.log.Info("cancel refused", zap.String("loan_id", loanID), zap.Error(err))
		return nil, err
	}

	u.log.Info("contract cancelled",
		zap.String("loan_id", dto.LoanID),
		zap.String("operator", operator),
		zap.String("reason", in.Reason),
	)
	return dto, nil
}
