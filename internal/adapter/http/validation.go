package http

import (
	"errors"
	"math"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"loan-ledger/pkg/calendar"
	"loan-ledger/pkg/id"
)

// Reusable error payload
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}
type ErrorResponse struct {
	Error   string       `json:"error"`
	Details []FieldError `json:"details,omitempty"`
	// set on over-repayment so the caller can offer the correct amount
	RemainingPrincipal *int64 `json:"remaining_principal,omitempty"`
	LateFeeRemaining   *int64 `json:"late_fee_remaining,omitempty"`
	TotalDue           *int64 `json:"total_due,omitempty"`
}

type CustomValidator struct{ v *validator.Validate }

func NewValidator() *CustomValidator {
	v := validator.New()

	// report fields by their JSON names
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})

	// at least one digit to build CUSTnnn from
	_ = v.RegisterValidation("custid", func(fl validator.FieldLevel) bool {
		return id.NormalizeCustomerID(fl.Field().String()) != id.UnknownCustomer
	})
	_ = v.RegisterValidation("ledgerdate", func(fl validator.FieldLevel) bool {
		_, err := calendar.Parse(fl.Field().String())
		return err == nil
	})
	// amounts arrive as JSON numbers but must be whole currency units
	_ = v.RegisterValidation("intlike", func(fl validator.FieldLevel) bool {
		f := fl.Field().Float()
		return math.Abs(f-math.Round(f)) < 1e-9
	})

	return &CustomValidator{v: v}
}

func (cv *CustomValidator) Validate(i any) error { return cv.v.Struct(i) }

// Map validator.ValidationErrors → []FieldError with readable messages.
func ToFieldErrors(err error) []FieldError {
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return []FieldError{{Field: "_", Message: err.Error()}}
	}
	out := make([]FieldError, 0, len(ve))
	for _, e := range ve {
		field := e.Field()
		switch e.Tag() {
		case "required":
			out = append(out, FieldError{Field: field, Message: "is required"})
		case "custid":
			out = append(out, FieldError{Field: field, Message: "must contain a customer number"})
		case "ledgerdate":
			out = append(out, FieldError{Field: field, Message: "must be a valid YYYY-MM-DD date"})
		case "intlike":
			out = append(out, FieldError{Field: field, Message: "must be an integer value"})
		case "gt":
			out = append(out, FieldError{Field: field, Message: "must be greater than " + e.Param()})
		case "gte":
			out = append(out, FieldError{Field: field, Message: "must be greater than or equal to " + e.Param()})
		case "lte":
			out = append(out, FieldError{Field: field, Message: "must be less than or equal to " + e.Param()})
		case "max":
			out = append(out, FieldError{Field: field, Message: "must be at most " + e.Param() + " characters"})
		default:
			out = append(out, FieldError{Field: field, Message: e.Tag() + " validation failed"})
		}
	}
	return out
}
