package csvledger

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"loan-ledger/internal/domain/audit"
	"loan-ledger/internal/domain/loan"
	"loan-ledger/internal/domain/repayment"
	"loan-ledger/internal/domain/uow"
	"loan-ledger/internal/infrastructure/metrics"
)

const DefaultImportActor = "csv-import"

var (
	ErrOrphanRepayment = errors.New("csvledger: repayment for a loan that is in neither the file nor the ledger")
	ErrOverRepaidLoan  = errors.New("csvledger: repayments exceed repayment_expected")
)

type ImportReport struct {
	LoansImported     int   `json:"loans_imported"`
	LoansSkipped      int   `json:"loans_skipped"`
	EntriesImported   int   `json:"entries_imported"`
	EntriesSkipped    int   `json:"entries_skipped"`
	PrincipalImported int64 `json:"principal_imported"`
	RepaidImported    int64 `json:"repaid_imported"`
	LateFeeImported   int64 `json:"late_fee_imported"`
}

// Importer loads parsed legacy records into the ledger store in a single
// transaction: either the whole file pair lands or nothing does.
type Importer struct {
	uow uow.UnitOfWork
	log *zap.Logger
	now func() time.Time
}

func NewImporter(tx uow.UnitOfWork, log *zap.Logger) *Importer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Importer{uow: tx, log: log, now: time.Now}
}

// Import inserts loans whose ids are not yet in the ledger, then the
// repayment entries that belong to them. Loans already present are skipped
// together with their entries, so re-running an import is harmless. Each
// imported loan must satisfy Σ REPAYMENT ≤ repayment_expected.
func (im *Importer) Import(ctx context.Context, loans []loan.Loan, entries []repayment.Entry, actor string) (rep *ImportReport, err error) {
	defer func() { metrics.Observe("import_ledger", err, errors.Is(err, ErrOrphanRepayment) || errors.Is(err, ErrOverRepaidLoan)) }()
	if actor == "" {
		actor = DefaultImportActor
	}

	byLoan := map[string][]repayment.Entry{}
	for _, e := range entries {
		byLoan[e.LoanID] = append(byLoan[e.LoanID], e)
	}

	err = im.uow.WithinTx(ctx, func(r uow.Repos) error {
		rep = &ImportReport{}
		created := map[string]*loan.Loan{}
		skipped := map[string]bool{}

		for i := range loans {
			l := loans[i]
			if created[l.LoanID] != nil || skipped[l.LoanID] {
				rep.LoansSkipped++
				continue
			}
			_, err := r.Loans.GetByLoanID(ctx, l.LoanID)
			switch {
			case err == nil:
				skipped[l.LoanID] = true
				rep.LoansSkipped++
				continue
			case !errors.Is(err, loan.ErrNotFound):
				return err
			}

			es := byLoan[l.LoanID]
			paid := repayment.Sum(es)
			if paid.Principal > l.RepaymentExpected {
				return fmt.Errorf("%w: %s repaid %d of %d", ErrOverRepaidLoan, l.LoanID, paid.Principal, l.RepaymentExpected)
			}
			if err := r.Loans.Create(ctx, &l); err != nil {
				return fmt.Errorf("import loan %s: %w", l.LoanID, err)
			}
			created[l.LoanID] = &l
			rep.LoansImported++
			rep.PrincipalImported += l.Principal

			if err := r.Audit.Append(ctx, audit.NewEvent(im.now(), audit.ActionRegisterLoan, l.LoanID, actor, map[string]any{
				"source":             "csv_import",
				"customer_id":        l.CustomerID,
				"loan_amount":        l.Principal,
				"repayment_expected": l.RepaymentExpected,
				"contract_status":    l.ContractStatus,
				"entries":            len(es),
			})); err != nil {
				return fmt.Errorf("audit import %s: %w", l.LoanID, err)
			}
		}

		loanIDs := make([]string, 0, len(byLoan))
		for loanID := range byLoan {
			loanIDs = append(loanIDs, loanID)
		}
		sort.Strings(loanIDs)

		for _, loanID := range loanIDs {
			es := byLoan[loanID]
			l := created[loanID]
			if l == nil {
				if skipped[loanID] {
					rep.EntriesSkipped += len(es)
					continue
				}
				// the loan may predate this file pair
				if _, err := r.Loans.GetByLoanID(ctx, loanID); err == nil {
					rep.EntriesSkipped += len(es)
					continue
				} else if !errors.Is(err, loan.ErrNotFound) {
					return err
				}
				return fmt.Errorf("%w: %s", ErrOrphanRepayment, loanID)
			}

			sort.SliceStable(es, func(i, j int) bool { return es[i].PaymentDate < es[j].PaymentDate })
			for i := range es {
				e := es[i]
				if e.CustomerID == "" {
					e.CustomerID = l.CustomerID
				}
				if err := r.Repayments.Append(ctx, &e); err != nil {
					return fmt.Errorf("import repayment for %s: %w", loanID, err)
				}
				rep.EntriesImported++
				if e.PaymentType == repayment.TypeLateFee {
					rep.LateFeeImported += e.Amount
				} else {
					rep.RepaidImported += e.Amount
				}
			}
		}
		return nil
	})
	if err != nil {
		im.log.Warn("ledger import rolled back", zap.Error(err))
		return nil, err
	}

	im.log.Info("ledger imported",
		zap.Int("loans_imported", rep.LoansImported),
		zap.Int("loans_skipped", rep.LoansSkipped),
		zap.Int("entries_imported", rep.EntriesImported),
		zap.Int("entries_skipped", rep.EntriesSkipped),
	)
	return rep, nil
}
