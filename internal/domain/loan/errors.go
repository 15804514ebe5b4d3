package loan

import (
	"errors"
	"fmt"
)

var (
	ErrValidation        = errors.New("validation failed")
	ErrNotFound          = errors.New("loan not found")
	ErrContractCancelled = errors.New("contract is cancelled")
	ErrOverRepayment     = errors.New("payment exceeds amount currently recoverable")
	ErrAlreadyCancelled  = errors.New("contract already cancelled")
	ErrFullyRepaid       = errors.New("loan is fully repaid")
)

// ValidationError is malformed or out-of-range input; nothing was persisted.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string { return e.Field + ": " + e.Message }

func (e *ValidationError) Unwrap() error { return ErrValidation }

func Invalid(field, msg string) error { return &ValidationError{Field: field, Message: msg} }

// OverRepaymentError carries the amounts a caller needs to prompt for a
// corrected payment.
type OverRepaymentError struct {
	Amount             int64 `json:"amount"`
	RemainingPrincipal int64 `json:"remaining_principal"`
	LateFeeRemaining   int64 `json:"late_fee_remaining"`
	TotalDue           int64 `json:"total_due"`
}

func (e *OverRepaymentError) Error() string {
	return fmt.Sprintf("payment %d exceeds total due %d (remaining %d, late fee %d)",
		e.Amount, e.TotalDue, e.RemainingPrincipal, e.LateFeeRemaining)
}

func (e *OverRepaymentError) Unwrap() error { return ErrOverRepayment }

// IsRejection reports whether err is a business-rule refusal rather than an
// infrastructure failure.
func IsRejection(err error) bool {
	for _, target := range []error{ErrValidation, ErrNotFound, ErrContractCancelled, ErrOverRepayment, ErrAlreadyCancelled, ErrFullyRepaid} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
