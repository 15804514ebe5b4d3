package http

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"loan-ledger/pkg/id"
)

const (
	headerActor  = "Ax-Actor"
	defaultActor = "API"
)

// actor names who is acting on the ledger; the idempotency layer has
// already checked the header on mutating routes.
func actor(c echo.Context) string {
	if a := strings.TrimSpace(c.Request().Header.Get(headerActor)); a != "" {
		return a
	}
	return defaultActor
}

func queryBool(c echo.Context, name string) bool {
	b, _ := strconv.ParseBool(strings.TrimSpace(c.QueryParam(name)))
	return b
}

// loanIDParam reads :loan_id and answers 422 when it is not shaped like a
// ledger loan id. ok is false when a response has already been written.
func loanIDParam(c echo.Context) (loanID string, ok bool, err error) {
	loanID = strings.TrimSpace(c.Param("loan_id"))
	if _, _, valid := id.ParseLoanID(loanID); !valid {
		return "", false, c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
			Error:   "validation failed",
			Details: []FieldError{{Field: "loan_id", Message: "must look like L20250101-001"}},
		})
	}
	return loanID, true, nil
}
