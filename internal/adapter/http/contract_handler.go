package http

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	contractUC "loan-ledger/internal/usecase/contract"
)

type ContractHandler struct {
	uc  *contractUC.Usecase
	log *zap.Logger
}

func NewContractHandler(uc *contractUC.Usecase, log *zap.Logger) *ContractHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &ContractHandler{uc: uc, log: log}
}

type cancelContractReq struct {
	Reason string `json:"reason" validate:"max=500"`
}

func (h *ContractHandler) CancelContract(c echo.Context) error {
	loanID, ok, err := loanIDParam(c)
	if !ok {
		return err
	}
	var req cancelContractReq
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}
	dto, err := h.uc.Cancel(c.Request().Context(), contractUC.CancelInput{
		LoanID:   loanID,
		Reason:   req.Reason,
		Operator: actor(c),
	})
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, dto)
}
