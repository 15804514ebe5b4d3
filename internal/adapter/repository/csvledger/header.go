package csvledger

import (
	"fmt"
	"strings"
)

// Canonical column names, in the order the writer emits them.
var (
	LoansHeader = []string{
		"loan_id", "customer_id", "loan_amount", "loan_date", "due_date",
		"interest_rate_percent", "repayment_expected", "repayment_method",
		"grace_period_days", "late_fee_rate_percent", "late_base_amount",
		"contract_status", "cancelled_at", "cancel_reason", "notes",
	}
	RepaymentsHeader = []string{
		"loan_id", "customer_id", "repayment_amount", "repayment_date", "payment_type",
	}
)

var (
	loanAliases = map[string]string{
		"loanid":   "loan_id",
		"payer":    "customer_id",
		"customer": "customer_id",
	}
	repaymentAliases = map[string]string{
		"loanid":         "loan_id",
		"payer":          "customer_id",
		"customer":       "customer_id",
		"repay_amount":   "repayment_amount",
		"repayed_amount": "repayment_amount",
		"amount":         "repayment_amount",
		"date":           "repayment_date",
	}
)

// cleanCell strips a UTF-8 BOM, surrounding whitespace and stray quotes.
func cleanCell(s string) string {
	s = strings.TrimPrefix(s, "\ufeff")
	s = strings.TrimSpace(s)
	s = strings.Trim(s, `"'`)
	return strings.TrimSpace(s)
}

// columns maps canonical names to their position in a header row.
type columns map[string]int

func indexHeader(header []string, aliases map[string]string, required ...string) (columns, error) {
	cols := columns{}
	for i, h := range header {
		name := strings.ToLower(cleanCell(h))
		if canon, ok := aliases[name]; ok {
			name = canon
		}
		// first occurrence wins when a legacy file carries both spellings
		if _, dup := cols[name]; !dup && name != "" {
			cols[name] = i
		}
	}
	var missing []string
	for _, r := range required {
		if _, ok := cols[r]; !ok {
			missing = append(missing, r)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumns, strings.Join(missing, ", "))
	}
	return cols, nil
}

func (c columns) get(rec []string, name string) string {
	i, ok := c[name]
	if !ok || i >= len(rec) {
		return ""
	}
	return cleanCell(rec[i])
}
