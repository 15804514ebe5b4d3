package listing

import (
	"strings"

	"loan-ledger/internal/domain/loan"
)

type FilterMode string

const (
	FilterAll     FilterMode = "all"
	FilterOverdue FilterMode = "overdue"
)

// ParseFilterMode accepts "all" and "overdue" in any case; empty means all.
func ParseFilterMode(s string) (FilterMode, error) {
	switch FilterMode(strings.ToLower(strings.TrimSpace(s))) {
	case "", FilterAll:
		return FilterAll, nil
	case FilterOverdue:
		return FilterOverdue, nil
	}
	return "", loan.Invalid("filter", "must be all or overdue")
}

type RowStatus string

const (
	StatusUnpaid  RowStatus = "UNPAID"
	StatusOverdue RowStatus = "OVERDUE"
	StatusDateErr RowStatus = "DATE_ERR"
)

type UnpaidRow struct {
	LoanID             string    `json:"loan_id"`
	LoanDate           string    `json:"loan_date"`
	LoanAmount         int64     `json:"loan_amount"`
	DueDate            string    `json:"due_date"`
	Status             RowStatus `json:"status"`
	RepaymentExpected  int64     `json:"repayment_expected"`
	TotalRepaid        int64     `json:"total_repaid"`
	RemainingPrincipal int64     `json:"remaining_principal"`
	GracePeriodDays    int       `json:"grace_period_days"`
	OverdueDays        int       `json:"overdue_days"`
	LateFeeRemaining   int64     `json:"late_fee_remaining"`
	LateFeePaid        int64     `json:"late_fee_paid"`
	RecoveryTotal      int64     `json:"recovery_total"`
}

type Summary struct {
	Count          int   `json:"count"`
	TotalRemaining int64 `json:"total_remaining"`
	TotalRecovery  int64 `json:"total_recovery"`
	OverdueCount   int   `json:"overdue_count"`
	InTimeCount    int   `json:"in_time_count"`
}

type UnpaidListing struct {
	CustomerID string      `json:"customer_id"`
	AsOf       string      `json:"as_of"`
	Filter     FilterMode  `json:"filter"`
	Rows       []UnpaidRow `json:"rows"`
	Summary    Summary     `json:"summary"`
}

type Balance struct {
	CustomerID    string `json:"customer_id"`
	TotalExpected int64  `json:"total_expected"`
	TotalRepaid   int64  `json:"total_repaid"`
	Balance       int64  `json:"balance"`
	Clamped       bool   `json:"clamped"`
}
