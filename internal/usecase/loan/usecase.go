package loan

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
	"loan-ledger/pkg/calendar"
	"loan-ledger/pkg/id"
)

const DefaultActor = "system"

var tracer = otel.Tracer("loan-ledger/usecase/loan")

type Usecase struct {
	uow    uow.UnitOfWork
	loans  loan.Repository
	policy loan.Policy
	log    *zap.Logger
	now    func() time.Time
}

func NewUsecase(tx uow.UnitOfWork, loans loan.Repository, policy loan.Policy, log *zap.Logger) *Usecase {
	if log == nil {
		log = zap.NewNop()
	}
	return &Usecase{uow: tx, loans: loans, policy: policy, log: log, now: time.Now}
}

// Create registers a new loan and its REGISTER_LOAN audit event in one transaction.
func (u *Usecase) Create(ctx context.Context, in CreateLoanInput) (dto *LoanDTO, err error) {
	ctx, span := tracer.Start(ctx, "loan.Create")
	defer func() {
		tracing.End(span, err)
		metrics.Observe("create_loan", err, loan.IsRejection(err))
	}()

	l, err := u.build(in)
	if err != nil {
		u.log.Info("loan rejected", zap.String("customer_id", in.CustomerID), zap.Error(err))
		return nil, err
	}
	actor := in.Actor
	if strings.TrimSpace(actor) == "" {
		actor = DefaultActor
	}

	err = u.uow.WithinTx(ctx, func(r uow.Repos) error {
		prefix := id.LoanIDPrefix(l.LoanDate)
		existing, err := r.Loans.LoanIDsWithPrefix(ctx, prefix)
		if err != nil {
			return err
		}
		l.LoanID = id.LoanID(l.LoanDate, id.NextLoanSeq(l.LoanDate, existing))
		if err := r.Loans.Create(ctx, l); err != nil {
			return fmt.Errorf("create loan %s: %w", l.LoanID, err)
		}
		ev := audit.NewEvent(u.now(), audit.ActionRegisterLoan, l.LoanID, actor, ToDTO(l))
		if err := r.Audit.Append(ctx, ev); err != nil {
			return fmt.Errorf("audit loan %s: %w", l.LoanID, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	span.SetAttributes(attribute.String("loan_id", l.LoanID))
	u.log.Info("loan registered",
		zap.String("loan_id", l.LoanID),
		zap.String("customer_id", l.CustomerID),
		zap.Int64("loan_amount", l.Principal),
		zap.Int64("repayment_expected", l.RepaymentExpected),
	)
	return ToDTO(l), nil
}

// build validates the input and derives every computed field except the id.
func (u *Usecase) build(in CreateLoanInput) (*loan.Loan, error) {
	if strings.TrimSpace(in.CustomerID) == "" {
		return nil, loan.Invalid("customer_id", "is required")
	}
	if in.Principal <= 0 {
		return nil, loan.Invalid("loan_amount", "must be positive")
	}
	if in.Principal > loan.MaxAmount {
		return nil, loan.Invalid("loan_amount", "too large")
	}
	if in.GracePeriodDays < 0 {
		return nil, loan.Invalid("grace_period_days", "must not be negative")
	}

	rate := u.policy.DefaultInterestRatePercent
	if in.InterestRatePercent != nil {
		rate = *in.InterestRatePercent
	}
	if rate.IsNegative() {
		return nil, loan.Invalid("interest_rate_percent", "must not be negative")
	}
	lateRate := u.policy.DefaultLateFeeRatePercent
	if in.LateFeeRatePercent != nil {
		lateRate = *in.LateFeeRatePercent
	}
	if lateRate.IsNegative() {
		return nil, loan.Invalid("late_fee_rate_percent", "must not be negative")
	}

	loanDate := calendar.FromTime(u.now())
	if strings.TrimSpace(in.LoanDate) != "" {
		d, err := calendar.Parse(in.LoanDate)
		if err != nil {
			return nil, loan.Invalid("loan_date", err.Error())
		}
		loanDate = d
	}

	var dueDate calendar.Date
	if strings.TrimSpace(in.DueDate) == "" {
		d, err := loanDate.AddDays(u.policy.DefaultTermDays)
		if err != nil {
			return nil, loan.Invalid("loan_date", err.Error())
		}
		dueDate = d
	} else {
		d, err := calendar.Parse(in.DueDate)
		if err != nil {
			return nil, loan.Invalid("due_date", err.Error())
		}
		// canonical YYYY-MM-DD compares correctly as text
		if d < loanDate {
			return nil, loan.Invalid("due_date", "must not be before loan_date")
		}
		dueDate = d
	}

	expected, err := u.policy.ExpectedRepayment(in.Principal, rate)
	if err != nil {
		return nil, err
	}

	return &loan.Loan{
		CustomerID:          id.NormalizeCustomerID(in.CustomerID),
		Principal:           in.Principal,
		LoanDate:            loanDate,
		DueDate:             dueDate,
		InterestRatePercent: rate,
		RepaymentExpected:   expected,
		RepaymentMethod:     loan.NormalizeMethod(in.RepaymentMethod),
		GracePeriodDays:     in.GracePeriodDays,
		LateFeeRatePercent:  lateRate,
		LateBaseAmount:      in.Principal,
		ContractStatus:      loan.StatusActive,
		Notes:               in.Notes,
	}, nil
}

func (u *Usecase) Get(ctx context.Context, loanID string) (*LoanDTO, error) {
	ctx, span := tracer.Start(ctx, "loan.Get")
	l, err := u.loans.GetByLoanID(ctx, strings.TrimSpace(loanID))
	tracing.End(span, err)
	if err != nil {
		return nil, err
	}
	return ToDTO(l), nil
}

// ListByCustomer is the loan history view, ordered by loan date then id.
func (u *Usecase) ListByCustomer(ctx context.Context, customerID string) ([]LoanDTO, error) {
	ctx, span := tracer.Start(ctx, "loan.ListByCustomer")
	ls, err := u.loans.ListByCustomer(ctx, id.NormalizeCustomerID(customerID))
	tracing.End(span, err)
	if err != nil {
		return nil, err
	}
	out := make([]LoanDTO, 0, len(ls))
	for i := range ls {
		out = append(out, *ToDTO(&ls[i]))
	}
	return out, nil
}
