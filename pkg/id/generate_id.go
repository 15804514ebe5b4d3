package id

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"loan-ledger/pkg/calendar"
)

// UnknownCustomer is what NormalizeCustomerID returns for input without digits.
const UnknownCustomer = "CUST000"

var (
	reLoanID   = regexp.MustCompile(`^L(\d{8})-(\d{3,})$`)
	reCustomer = regexp.MustCompile(`(?i)^(?:CUST)?0*([0-9]+)$`)
	reNonDigit = regexp.MustCompile(`\D`)
)

// LoanIDPrefix returns "L<YYYYMMDD>-" for loanDate.
func LoanIDPrefix(loanDate calendar.Date) string {
	return "L" + loanDate.Compact() + "-"
}

// LoanID formats a loan id like L20250707-003.
func LoanID(loanDate calendar.Date, seq int) string {
	return fmt.Sprintf("%s%03d", LoanIDPrefix(loanDate), seq)
}

// ParseLoanID splits a loan id into its compact date and sequence.
func ParseLoanID(s string) (compactDate string, seq int, ok bool) {
	m := reLoanID.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return "", 0, false
	}
	n, err := strconv.Atoi(m[2])
	if err != nil {
		return "", 0, false
	}
	return m[1], n, true
}

// NextLoanSeq returns one past the highest sequence among existing ids that
// share loanDate's prefix, starting at 1.
func NextLoanSeq(loanDate calendar.Date, existing []string) int {
	maxSeq := 0
	want := loanDate.Compact()
	for _, s := range existing {
		d, n, ok := ParseLoanID(s)
		if !ok || d != want {
			continue
		}
		if n > maxSeq {
			maxSeq = n
		}
	}
	return maxSeq + 1
}

// NormalizeCustomerID maps "1", "001", "CUST1", "cust001" to "CUST001".
// Input with no digits yields UnknownCustomer.
func NormalizeCustomerID(s string) string {
	text := strings.TrimSpace(s)
	digits := ""
	if m := reCustomer.FindStringSubmatch(text); m != nil {
		digits = m[1]
	} else {
		digits = reNonDigit.ReplaceAllString(text, "")
	}
	if digits == "" {
		return UnknownCustomer
	}
	n, err := strconv.ParseUint(digits, 10, 64)
	if err != nil {
		return UnknownCustomer
	}
	return fmt.Sprintf("CUST%03d", n)
}

// NewEventID returns a random UUID string for audit records.
func NewEventID() string { return uuid.NewString() }
