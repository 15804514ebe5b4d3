package csvledger

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"loan-ledger/internal/domain/loan"
	"loan-ledger/internal/domain/repayment"
	"loan-ledger/pkg/calendar"
	"loan-ledger/pkg/id"
	"loan-ledger/pkg/money"
)

var maxGraceDays = decimal.NewFromInt(36500)

var (
	ErrMissingColumns = errors.New("csvledger: header is missing required columns")
	ErrEmptyFile      = errors.New("csvledger: file has no header row")
)

// RowError describes one data row that could not be turned into a record.
// Line is 1-based and counts the header.
type RowError struct {
	Line  int
	Field string
	Err   error
}

func (e *RowError) Error() string {
	return fmt.Sprintf("line %d: %s: %v", e.Line, e.Field, e.Err)
}

func (e *RowError) Unwrap() error { return e.Err }

var cancelledAtLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	calendar.Layout,
}

// Reader parses the legacy flat-file ledger. Columns the file lacks are
// filled from Policy the same way a fresh registration would be.
type Reader struct {
	Policy loan.Policy
}

func NewReader(policy loan.Policy) *Reader { return &Reader{Policy: policy} }

func newCSV(r io.Reader) *csv.Reader {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true
	return cr
}

// ReadLoans returns the parsed loans and one RowError per rejected row. The
// error is non-nil only when the file itself is unusable.
func (rd *Reader) ReadLoans(r io.Reader) ([]loan.Loan, []RowError, error) {
	cr := newCSV(r)
	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil, ErrEmptyFile
	}
	if err != nil {
		return nil, nil, fmt.Errorf("read loans header: %w", err)
	}
	cols, err := indexHeader(header, loanAliases, "loan_id", "customer_id", "loan_amount", "loan_date")
	if err != nil {
		return nil, nil, err
	}

	var (
		out     []loan.Loan
		rowErrs []RowError
	)
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("read loans line %d: %w", line, err)
		}
		if blank(rec) {
			continue
		}
		l, rowErr := rd.loanRow(cols, rec)
		if rowErr != nil {
			rowErr.Line = line
			rowErrs = append(rowErrs, *rowErr)
			continue
		}
		out = append(out, l)
	}
	return out, rowErrs, nil
}

func (rd *Reader) loanRow(cols columns, rec []string) (loan.Loan, *RowError) {
	bad := func(field string, err error) (loan.Loan, *RowError) {
		return loan.Loan{}, &RowError{Field: field, Err: err}
	}

	l := loan.Loan{
		LoanID:          cols.get(rec, "loan_id"),
		RepaymentMethod: loan.NormalizeMethod(cols.get(rec, "repayment_method")),
		CancelReason:    cols.get(rec, "cancel_reason"),
		Notes:           cols.get(rec, "notes"),
	}
	if l.LoanID == "" {
		return bad("loan_id", errors.New("is required"))
	}
	if _, _, ok := id.ParseLoanID(l.LoanID); !ok {
		return bad("loan_id", errors.New("must look like L20250101-001"))
	}
	rawCustomer := cols.get(rec, "customer_id")
	if rawCustomer == "" {
		return bad("customer_id", errors.New("is required"))
	}
	l.CustomerID = id.NormalizeCustomerID(rawCustomer)

	principal, err := ParseMoney(cols.get(rec, "loan_amount"))
	if err != nil {
		return bad("loan_amount", err)
	}
	if principal <= 0 {
		return bad("loan_amount", errors.New("must be positive"))
	}
	l.Principal = principal

	rawLoanDate := cols.get(rec, "loan_date")
	if rawLoanDate == "" {
		return bad("loan_date", errors.New("is required"))
	}
	l.LoanDate = keepDate(rawLoanDate)

	if raw := cols.get(rec, "due_date"); raw != "" {
		l.DueDate = keepDate(raw)
	} else if d, err := l.LoanDate.AddDays(rd.Policy.DefaultTermDays); err == nil {
		l.DueDate = d
	}

	if l.InterestRatePercent, err = rate(cols.get(rec, "interest_rate_percent"), rd.Policy.DefaultInterestRatePercent); err != nil {
		return bad("interest_rate_percent", err)
	}
	if l.LateFeeRatePercent, err = rate(cols.get(rec, "late_fee_rate_percent"), rd.Policy.DefaultLateFeeRatePercent); err != nil {
		return bad("late_fee_rate_percent", err)
	}

	if raw := cols.get(rec, "repayment_expected"); raw != "" {
		if l.RepaymentExpected, err = ParseMoney(raw); err != nil {
			return bad("repayment_expected", err)
		}
		if l.RepaymentExpected <= 0 {
			return bad("repayment_expected", errors.New("must be positive"))
		}
	} else if l.RepaymentExpected, err = rd.Policy.ExpectedRepayment(l.Principal, l.InterestRatePercent); err != nil {
		return bad("repayment_expected", err)
	}

	if raw := cols.get(rec, "grace_period_days"); raw != "" {
		g, err := decimal.NewFromString(raw)
		if err != nil || g.IsNegative() || !g.IsInteger() || g.GreaterThan(maxGraceDays) {
			return bad("grace_period_days", errors.New("must be a non-negative whole number"))
		}
		l.GracePeriodDays = int(g.IntPart())
	}

	l.LateBaseAmount = l.Principal
	if raw := cols.get(rec, "late_base_amount"); raw != "" {
		if l.LateBaseAmount, err = ParseMoney(raw); err != nil {
			return bad("late_base_amount", err)
		}
	}

	switch status := strings.ToUpper(cols.get(rec, "contract_status")); status {
	case "", string(loan.StatusActive):
		l.ContractStatus = loan.StatusActive
	case string(loan.StatusCancelled):
		l.ContractStatus = loan.StatusCancelled
	default:
		return bad("contract_status", fmt.Errorf("unknown status %q", status))
	}
	if raw := cols.get(rec, "cancelled_at"); raw != "" {
		at, err := parseTimestamp(raw)
		if err != nil {
			return bad("cancelled_at", err)
		}
		l.CancelledAt = &at
	}
	return l, nil
}

// ReadRepayments is ReadLoans for the repayment file. A missing
// payment_type column or cell means REPAYMENT.
func (rd *Reader) ReadRepayments(r io.Reader) ([]repayment.Entry, []RowError, error) {
	cr := newCSV(r)
	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil, ErrEmptyFile
	}
	if err != nil {
		return nil, nil, fmt.Errorf("read repayments header: %w", err)
	}
	cols, err := indexHeader(header, repaymentAliases, "loan_id", "repayment_amount", "repayment_date")
	if err != nil {
		return nil, nil, err
	}

	var (
		out     []repayment.Entry
		rowErrs []RowError
	)
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("read repayments line %d: %w", line, err)
		}
		if blank(rec) {
			continue
		}
		e, rowErr := repaymentRow(cols, rec)
		if rowErr != nil {
			rowErr.Line = line
			rowErrs = append(rowErrs, *rowErr)
			continue
		}
		out = append(out, e)
	}
	return out, rowErrs, nil
}

func repaymentRow(cols columns, rec []string) (repayment.Entry, *RowError) {
	bad := func(field string, err error) (repayment.Entry, *RowError) {
		return repayment.Entry{}, &RowError{Field: field, Err: err}
	}

	e := repayment.Entry{LoanID: cols.get(rec, "loan_id")}
	if e.LoanID == "" {
		return bad("loan_id", errors.New("is required"))
	}
	// blank payer is filled from the loan on import
	if raw := cols.get(rec, "customer_id"); raw != "" {
		e.CustomerID = id.NormalizeCustomerID(raw)
	}

	amount, err := ParseMoney(cols.get(rec, "repayment_amount"))
	if err != nil {
		return bad("repayment_amount", err)
	}
	if amount <= 0 {
		return bad("repayment_amount", errors.New("must be positive"))
	}
	e.Amount = amount

	d, err := calendar.Parse(cols.get(rec, "repayment_date"))
	if err != nil {
		return bad("repayment_date", err)
	}
	e.PaymentDate = d

	switch typ := strings.ToUpper(cols.get(rec, "payment_type")); typ {
	case "", string(repayment.TypeRepayment):
		e.PaymentType = repayment.TypeRepayment
	case string(repayment.TypeLateFee):
		e.PaymentType = repayment.TypeLateFee
	default:
		return bad("payment_type", fmt.Errorf("unknown payment type %q", typ))
	}
	return e, nil
}

// ParseMoney reads amounts the way legacy ledgers wrote them: "11000",
// "11,000", "11000.0", "¥11,000". Fractions are truncated; magnitudes above
// loan.MaxAmount are rejected.
func ParseMoney(s string) (int64, error) {
	s = strings.NewReplacer(",", "", " ", "", "　", "", "¥", "", "円", "").Replace(s)
	if s == "" {
		return 0, errors.New("amount is empty")
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("not an amount: %q", s)
	}
	n, err := money.Round(d.Truncate(0), 1)
	if err != nil || n > loan.MaxAmount || n < -loan.MaxAmount {
		return 0, fmt.Errorf("amount out of range: %q", s)
	}
	return n, nil
}

func rate(raw string, def decimal.Decimal) (decimal.Decimal, error) {
	if raw == "" {
		return def, nil
	}
	d, err := decimal.NewFromString(strings.TrimSuffix(raw, "%"))
	if err != nil {
		return decimal.Zero, fmt.Errorf("not a rate: %q", raw)
	}
	if d.IsNegative() {
		return decimal.Zero, errors.New("must not be negative")
	}
	return d, nil
}

// keepDate canonicalises a readable date and keeps anything else verbatim,
// so the listing can report it as DATE_ERR instead of losing the row.
func keepDate(raw string) calendar.Date {
	if d, err := calendar.Parse(raw); err == nil {
		return d
	}
	return calendar.Date(raw)
}

func parseTimestamp(raw string) (time.Time, error) {
	for _, layout := range cancelledAtLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("not a timestamp: %q", raw)
}

func blank(rec []string) bool {
	for _, c := range rec {
		if cleanCell(c) != "" {
			return false
		}
	}
	return true
}
