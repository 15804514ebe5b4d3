package http

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	repaymentUC "loan-ledger/internal/usecase/repayment"
)

type RepaymentHandler struct {
	uc  *repaymentUC.Usecase
	log *zap.Logger
}

func NewRepaymentHandler(uc *repaymentUC.Usecase, log *zap.Logger) *RepaymentHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &RepaymentHandler{uc: uc, log: log}
}

type recordRepaymentReq struct {
	Amount      float64 `json:"amount"       validate:"required,gt=0,lte=1000000000000000,intlike"`
	PaymentDate string  `json:"payment_date" validate:"omitempty,ledgerdate"`
}

func (h *RepaymentHandler) RecordRepayment(c echo.Context) error {
	loanID, ok, err := loanIDParam(c)
	if !ok {
		return err
	}
	var req recordRepaymentReq
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}
	res, err := h.uc.Record(c.Request().Context(), repaymentUC.RecordInput{
		LoanID:      loanID,
		Amount:      int64(req.Amount),
		PaymentDate: req.PaymentDate,
		Actor:       actor(c),
	})
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusCreated, res)
}

// ListCustomerRepayments is the repayment history view.
func (h *RepaymentHandler) ListCustomerRepayments(c echo.Context) error {
	out, err := h.uc.History(c.Request().Context(), c.Param("customer_id"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, out)
}
