package http

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"loan-ledger/internal/usecase/listing"
)

type ListingHandler struct {
	uc  *listing.Usecase
	log *zap.Logger
}

func NewListingHandler(uc *listing.Usecase, log *zap.Logger) *ListingHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &ListingHandler{uc: uc, log: log}
}

// ListUnpaid serves ?filter=all|overdue&as_of=YYYY-MM-DD.
func (h *ListingHandler) ListUnpaid(c echo.Context) error {
	out, err := h.uc.ListUnpaid(c.Request().Context(), listing.ListInput{
		CustomerID: c.Param("customer_id"),
		Filter:     c.QueryParam("filter"),
		AsOf:       c.QueryParam("as_of"),
	})
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *ListingHandler) Balance(c echo.Context) error {
	out, err := h.uc.Balance(c.Request().Context(), c.Param("customer_id"), queryBool(c, "clamp"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, out)
}
