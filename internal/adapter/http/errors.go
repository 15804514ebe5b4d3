package http

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"loan-ledger/internal/domain/loan"
)

// writeError maps domain errors to HTTP responses. Anything unrecognised is
// logged and reported as a bare 500.
func writeError(c echo.Context, log *zap.Logger, err error) error {
	var (
		ve *loan.ValidationError
		oe *loan.OverRepaymentError
	)
	switch {
	case errors.As(err, &oe):
		return c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
			Error:              oe.Error(),
			RemainingPrincipal: &oe.RemainingPrincipal,
			LateFeeRemaining:   &oe.LateFeeRemaining,
			TotalDue:           &oe.TotalDue,
		})
	case errors.As(err, &ve):
		return c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
			Error:   "validation failed",
			Details: []FieldError{{Field: ve.Field, Message: ve.Message}},
		})
	case errors.Is(err, loan.ErrNotFound):
		return c.JSON(http.StatusNotFound, ErrorResponse{Error: err.Error()})
	case errors.Is(err, loan.ErrContractCancelled),
		errors.Is(err, loan.ErrAlreadyCancelled),
		errors.Is(err, loan.ErrFullyRepaid):
		return c.JSON(http.StatusConflict, ErrorResponse{Error: err.Error()})
	}
	if log == nil {
		log = zap.NewNop()
	}
	log.Error("request failed",
		zap.String("method", c.Request().Method),
		zap.String("path", c.Path()),
		zap.Error(err),
	)
	return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
}

// bindAndValidate answers 400 on malformed JSON and 422 on rule violations.
// ok is false when a response has already been written.
func bindAndValidate(c echo.Context, req any) (ok bool, err error) {
	if err := c.Bind(req); err != nil {
		return false, c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}
	if err := c.Validate(req); err != nil {
		return false, c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
			Error:   "validation failed",
			Details: ToFieldErrors(err),
		})
	}
	return true, nil
}
