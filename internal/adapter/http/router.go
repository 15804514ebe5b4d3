package http

import (
	"github.com/labstack/echo/v4"
)

type Handlers struct {
	Health    *Handler
	Loans     *LoanHandler
	Repayment *RepaymentHandler
	Contract  *ContractHandler
	Listing   *ListingHandler
}

// RegisterRoutes mounts the ledger API. mw wraps every ledger route; the
// idempotency middleware passes reads straight through.
func RegisterRoutes(e *echo.Echo, h Handlers, mw ...echo.MiddlewareFunc) {
	e.GET("/health", h.Health.Health)

	e.POST("/loans", h.Loans.CreateLoan, mw...)
	e.GET("/loans/:loan_id", h.Loans.GetLoan, mw...)
	e.POST("/loans/:loan_id/repayments", h.Repayment.RecordRepayment, mw...)
	e.POST("/loans/:loan_id/cancel", h.Contract.CancelContract, mw...)

	e.GET("/customers/:customer_id/loans", h.Loans.ListCustomerLoans, mw...)
	e.GET("/customers/:customer_id/repayments", h.Repayment.ListCustomerRepayments, mw...)
	e.GET("/customers/:customer_id/unpaid", h.Listing.ListUnpaid, mw...)
	e.GET("/customers/:customer_id/balance", h.Listing.Balance, mw...)
}
