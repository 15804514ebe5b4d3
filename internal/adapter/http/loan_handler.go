package http

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	loanUC "loan-ledger/internal/usecase/loan"
)

type LoanHandler struct {
	uc  *loanUC.Usecase
	log *zap.Logger
}

func NewLoanHandler(uc *loanUC.Usecase, log *zap.Logger) *LoanHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &LoanHandler{uc: uc, log: log}
}

type createLoanReq struct {
	CustomerID          string           `json:"customer_id"            validate:"required,custid"`
	LoanAmount          float64          `json:"loan_amount"            validate:"required,gt=0,lte=1000000000000000,intlike"`
	LoanDate            string           `json:"loan_date"              validate:"omitempty,ledgerdate"`
	DueDate             string           `json:"due_date"               validate:"omitempty,ledgerdate"`
	InterestRatePercent *decimal.Decimal `json:"interest_rate_percent"`
	RepaymentMethod     string           `json:"repayment_method"       validate:"max=32"`
	GracePeriodDays     int              `json:"grace_period_days"      validate:"gte=0,lte=365"`
	LateFeeRatePercent  *decimal.Decimal `json:"late_fee_rate_percent"`
	Notes               string           `json:"notes"                  validate:"max=1000"`
}

func (h *LoanHandler) CreateLoan(c echo.Context) error {
	var req createLoanReq
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}
	dto, err := h.uc.Create(c.Request().Context(), loanUC.CreateLoanInput{
		CustomerID:          req.CustomerID,
		Principal:           int64(req.LoanAmount),
		LoanDate:            req.LoanDate,
		DueDate:             req.DueDate,
		InterestRatePercent: req.InterestRatePercent,
		RepaymentMethod:     req.RepaymentMethod,
		GracePeriodDays:     req.GracePeriodDays,
		LateFeeRatePercent:  req.LateFeeRatePercent,
		Notes:               req.Notes,
		Actor:               actor(c),
	})
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusCreated, dto)
}

func (h *LoanHandler) GetLoan(c echo.Context) error {
	loanID, ok, err := loanIDParam(c)
	if !ok {
		return err
	}
	dto, err := h.uc.Get(c.Request().Context(), loanID)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, dto)
}

// ListCustomerLoans is the loan history view.
func (h *LoanHandler) ListCustomerLoans(c echo.Context) error {
	out, err := h.uc.ListByCustomer(c.Request().Context(), c.Param("customer_id"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, out)
}
