package http

import (
	"encoding/json"
	"fmt"
	stdhttp "net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"loan-ledger/internal/adapter/middleware"
	"loan-ledger/internal/adapter/repository/mysql"
	"loan-ledger/internal/domain/loan"
	"loan-ledger/internal/testutil/testdb"
	contractUC "loan-ledger/internal/usecase/contract"
	"loan-ledger/internal/usecase/listing"
	loanUC "loan-ledger/internal/usecase/loan"
	repaymentUC "loan-ledger/internal/usecase/repayment"
)

type apiClient struct {
	t   *testing.T
	e   *echo.Echo
	seq int64
}

// newAPI wires the real stack over in-memory sqlite and miniredis.
func newAPI(t *testing.T) *apiClient {
	t.Helper()
	db := testdb.Open(t)
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close(); mr.Close() })

	policy := loan.DefaultPolicy()
	tx := mysql.NewGormUoW(db)
	loans := mysql.NewLoanRepository(db)
	repayments := mysql.NewRepaymentRepository(db)

	e := echo.New()
	e.Validator = NewValidator()
	RegisterRoutes(e, Handlers{
		Health:    NewHandler("loan-ledger"),
		Loans:     NewLoanHandler(loanUC.NewUsecase(tx, loans, policy, nil), nil),
		Repayment: NewRepaymentHandler(repaymentUC.NewUsecase(tx, repayments, policy, nil), nil),
		Contract:  NewContractHandler(contractUC.NewUsecase(tx, nil), nil),
		Listing:   NewListingHandler(listing.NewUsecase(loans, repayments, policy, nil), nil),
	}, middleware.IdempotencyMiddleware(rdb, time.Minute, nil))
	return &apiClient{t: t, e: e}
}

func (a *apiClient) do(method, path string, body any) *httptest.ResponseRecorder {
	a.t.Helper()
	var req *stdhttp.Request
	if body != nil {
		req = httptest.NewRequest(method, path, mustJSON(body))
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if method == stdhttp.MethodPost {
		n := atomic.AddInt64(&a.seq, 1)
		req.Header.Set(middleware.HeaderRequestID, fmt.Sprintf("%032x", n))
		req.Header.Set(middleware.HeaderRequestAt, time.Now().UTC().Format(time.RFC3339))
		req.Header.Set(middleware.HeaderActor, "ops")
	}
	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("bad json %q: %v", rec.Body.String(), err)
	}
	return v
}

func TestAPI_LoanLifecycle(t *testing.T) {
	api := newAPI(t)
	today := time.Now().UTC().Format("2006-01-02")

	rec := api.do(stdhttp.MethodPost, "/loans", map[string]any{
		"customer_id": "1",
		"loan_amount": 10000,
		"loan_date":   today,
	})
	if rec.Code != stdhttp.StatusCreated {
		t.Fatalf("create: %d %s", rec.Code, rec.Body.String())
	}
	created := decode[loanUC.LoanDTO](t, rec)
	if created.RepaymentExpected != 11000 || !strings.HasPrefix(created.LoanID, "L") {
		t.Fatalf("created=%+v", created)
	}
	loanPath := "/loans/" + created.LoanID

	if rec = api.do(stdhttp.MethodGet, loanPath, nil); rec.Code != stdhttp.StatusOK {
		t.Fatalf("get: %d", rec.Code)
	}

	rec = api.do(stdhttp.MethodPost, loanPath+"/repayments", map[string]any{"amount": 4000})
	if rec.Code != stdhttp.StatusCreated {
		t.Fatalf("repay: %d %s", rec.Code, rec.Body.String())
	}
	res := decode[repaymentUC.RecordResult](t, rec)
	if res.PrincipalPart != 4000 || res.LateFeePart != 0 || len(res.Entries) != 1 {
		t.Fatalf("record=%+v", res)
	}

	rec = api.do(stdhttp.MethodPost, loanPath+"/repayments", map[string]any{"amount": 7001})
	if rec.Code != stdhttp.StatusUnprocessableEntity {
		t.Fatalf("over-repay: %d %s", rec.Code, rec.Body.String())
	}
	if er := decode[ErrorResponse](t, rec); er.TotalDue == nil || *er.TotalDue != 7000 {
		t.Fatalf("over-repay body=%s", rec.Body.String())
	}

	rec = api.do(stdhttp.MethodGet, "/customers/CUST001/unpaid?filter=all", nil)
	unpaid := decode[listing.UnpaidListing](t, rec)
	if rec.Code != stdhttp.StatusOK || len(unpaid.Rows) != 1 || unpaid.Rows[0].RemainingPrincipal != 7000 {
		t.Fatalf("unpaid: %d %s", rec.Code, rec.Body.String())
	}

	rec = api.do(stdhttp.MethodGet, "/customers/1/balance", nil)
	if bal := decode[listing.Balance](t, rec); bal.Balance != 7000 {
		t.Fatalf("balance=%+v", bal)
	}

	rec = api.do(stdhttp.MethodPost, loanPath+"/cancel", map[string]any{"reason": "customer request"})
	if rec.Code != stdhttp.StatusOK {
		t.Fatalf("cancel: %d %s", rec.Code, rec.Body.String())
	}
	if got := decode[loanUC.LoanDTO](t, rec); got.ContractStatus != "CANCELLED" {
		t.Fatalf("cancelled=%+v", got)
	}

	if rec = api.do(stdhttp.MethodPost, loanPath+"/cancel", map[string]any{"reason": "again"}); rec.Code != stdhttp.StatusConflict {
		t.Fatalf("second cancel: %d", rec.Code)
	}
	if rec = api.do(stdhttp.MethodPost, loanPath+"/repayments", map[string]any{"amount": 100}); rec.Code != stdhttp.StatusConflict {
		t.Fatalf("repay cancelled: %d", rec.Code)
	}

	rec = api.do(stdhttp.MethodGet, "/customers/1/unpaid", nil)
	if unpaid = decode[listing.UnpaidListing](t, rec); len(unpaid.Rows) != 0 {
		t.Fatalf("cancelled loan listed: %s", rec.Body.String())
	}

	rec = api.do(stdhttp.MethodGet, "/customers/1/repayments", nil)
	if rec.Code != stdhttp.StatusOK || strings.Count(rec.Body.String(), `"payment_type":"REPAYMENT"`) != 1 {
		t.Fatalf("history: %s", rec.Body.String())
	}
	rec = api.do(stdhttp.MethodGet, "/customers/1/loans", nil)
	if loans := decode[[]loanUC.LoanDTO](t, rec); len(loans) != 1 {
		t.Fatalf("loans=%+v", loans)
	}
}

func TestAPI_Errors(t *testing.T) {
	api := newAPI(t)

	if rec := api.do(stdhttp.MethodGet, "/loans/L20990101-001", nil); rec.Code != stdhttp.StatusNotFound {
		t.Fatalf("missing loan: %d", rec.Code)
	}
	if rec := api.do(stdhttp.MethodPost, "/loans/L20990101-001/repayments", map[string]any{"amount": 1}); rec.Code != stdhttp.StatusNotFound {
		t.Fatalf("repay missing loan: %d", rec.Code)
	}
	if rec := api.do(stdhttp.MethodPost, "/loans/L20990101-001/repayments", map[string]any{"amount": 2_000_000_000_000_000}); rec.Code != stdhttp.StatusUnprocessableEntity {
		t.Fatalf("amount above ceiling: %d", rec.Code)
	}
	for _, tt := range []struct {
		method, path string
		body         any
	}{
		{stdhttp.MethodGet, "/loans/loan-1", nil},
		{stdhttp.MethodPost, "/loans/loan-1/repayments", map[string]any{"amount": 1}},
		{stdhttp.MethodPost, "/loans/L2025-1/cancel", map[string]any{"reason": "x"}},
	} {
		rec := api.do(tt.method, tt.path, tt.body)
		if rec.Code != stdhttp.StatusUnprocessableEntity {
			t.Fatalf("%s %s: %d", tt.method, tt.path, rec.Code)
		}
		if er := decode[ErrorResponse](t, rec); len(er.Details) != 1 || er.Details[0].Field != "loan_id" {
			t.Fatalf("%s details=%+v", tt.path, er.Details)
		}
	}
	if rec := api.do(stdhttp.MethodGet, "/customers/1/unpaid?filter=late", nil); rec.Code != stdhttp.StatusUnprocessableEntity {
		t.Fatalf("bad filter: %d", rec.Code)
	}
	if rec := api.do(stdhttp.MethodPost, "/loans/L20990101-001/repayments", map[string]any{"amount": 0}); rec.Code != stdhttp.StatusUnprocessableEntity {
		t.Fatalf("zero amount: %d", rec.Code)
	}

	// mutations without idempotency headers never reach the handler
	req := httptest.NewRequest(stdhttp.MethodPost, "/loans", strings.NewReader(`{}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	api.e.ServeHTTP(rec, req)
	if rec.Code != stdhttp.StatusBadRequest {
		t.Fatalf("no headers: %d", rec.Code)
	}
}
