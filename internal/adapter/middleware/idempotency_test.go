package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
)

const (
	testReqID = "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
	testActor = "ops"
	testPath  = "/loans/L20250901-001/repayments"
)

func setupEcho(rdb redis.Cmdable, ttl time.Duration, handler echo.HandlerFunc) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Use(IdempotencyMiddleware(rdb, ttl, nil))
	e.POST("/loans/:loan_id/repayments", handler)
	e.GET("/loans/:loan_id/repayments", handler)
	return e
}

func mkJSONBody(t *testing.T, v any) io.Reader {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return bytes.NewReader(b)
}

func doReq(t *testing.T, e *echo.Echo, method, path string, body io.Reader, hdr map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, body)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func validHeaders() map[string]string {
	return map[string]string{
		HeaderRequestID: testReqID,
		HeaderRequestAt: time.Now().UTC().Format(time.RFC3339),
		HeaderActor:     testActor,
	}
}

func okCreatedHandler(c echo.Context) error {
	return c.JSON(http.StatusCreated, map[string]any{"ok": true})
}

func Test_BypassOnGET_NoHeadersRequired(t *testing.T) {
	_, rdb := newMiniRedis(t)
	e := setupEcho(rdb, 30*time.Second, func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "get ok"})
	})
	if rec := doReq(t, e, http.MethodGet, testPath, nil, nil); rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func Test_HeaderValidation(t *testing.T) {
	_, rdb := newMiniRedis(t)
	e := setupEcho(rdb, 30*time.Second, okCreatedHandler)

	tests := []struct {
		name   string
		mutate func(h map[string]string)
	}{
		{"missing request id", func(h map[string]string) { delete(h, HeaderRequestID) }},
		{"invalid request id", func(h map[string]string) { h[HeaderRequestID] = "NOT-VALID" }},
		{"invalid request at", func(h map[string]string) { h[HeaderRequestAt] = "not-a-time" }},
		{"request at in the past", func(h map[string]string) {
			h[HeaderRequestAt] = time.Now().UTC().Add(-maxClockSkew - time.Minute).Format(time.RFC3339)
		}},
		{"request at in the future", func(h map[string]string) {
			h[HeaderRequestAt] = time.Now().UTC().Add(maxClockSkew + time.Minute).Format(time.RFC3339)
		}},
		{"missing actor", func(h map[string]string) { delete(h, HeaderActor) }},
		{"invalid actor", func(h map[string]string) { h[HeaderActor] = "two words" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := validHeaders()
			tt.mutate(h)
			rec := doReq(t, e, http.MethodPost, testPath, mkJSONBody(t, map[string]int{"amount": 1}), h)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("want 400, got %d body=%s", rec.Code, rec.Body.String())
			}
		})
	}
}

func Test_HappyPath_Then_Replay(t *testing.T) {
	_, rdb := newMiniRedis(t)
	var calls int32
	e := setupEcho(rdb, 2*time.Minute, func(c echo.Context) error {
		n := atomic.AddInt32(&calls, 1)
		return c.JSON(http.StatusCreated, map[string]any{"call": n})
	})

	h := validHeaders()
	rec1 := doReq(t, e, http.MethodPost, testPath, mkJSONBody(t, map[string]any{"amount": 5000}), h)
	if rec1.Code != http.StatusCreated {
		t.Fatalf("first request => want 201, got %d, body: %s", rec1.Code, rec1.Body.String())
	}
	rec2 := doReq(t, e, http.MethodPost, testPath, mkJSONBody(t, map[string]any{"amount": 5000}), h)
	if rec2.Code != http.StatusCreated {
		t.Fatalf("replay => want 201, got %d, body: %s", rec2.Code, rec2.Body.String())
	}
	if rec1.Body.String() != rec2.Body.String() {
		t.Fatalf("replay body mismatch: %q vs %q", rec1.Body.String(), rec2.Body.String())
	}
	if calls != 1 {
		t.Fatalf("handler ran %d times", calls)
	}
}

func Test_SameRequestID_DifferentLoan_IsIndependent(t *testing.T) {
	_, rdb := newMiniRedis(t)
	var calls int32
	e := setupEcho(rdb, 2*time.Minute, func(c echo.Context) error {
		atomic.AddInt32(&calls, 1)
		return c.JSON(http.StatusCreated, map[string]string{"loan_id": c.Param("loan_id")})
	})
	h := validHeaders()
	doReq(t, e, http.MethodPost, "/loans/L20250901-001/repayments", mkJSONBody(t, map[string]int{"amount": 1}), h)
	doReq(t, e, http.MethodPost, "/loans/L20250901-002/repayments", mkJSONBody(t, map[string]int{"amount": 1}), h)
	if calls != 2 {
		t.Fatalf("handler ran %d times, want 2", calls)
	}
}

func Test_ServerError_IsNotKept(t *testing.T) {
	_, rdb := newMiniRedis(t)
	var calls int32
	e := setupEcho(rdb, 2*time.Minute, func(c echo.Context) error {
		if atomic.AddInt32(&calls, 1) == 1 {
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "internal error"})
		}
		return c.JSON(http.StatusCreated, map[string]bool{"ok": true})
	})
	h := validHeaders()
	if rec := doReq(t, e, http.MethodPost, testPath, mkJSONBody(t, map[string]int{"amount": 1}), h); rec.Code != http.StatusInternalServerError {
		t.Fatalf("first => %d", rec.Code)
	}
	if rec := doReq(t, e, http.MethodPost, testPath, mkJSONBody(t, map[string]int{"amount": 1}), h); rec.Code != http.StatusCreated {
		t.Fatalf("retry => %d, want 201", rec.Code)
	}
}

func Test_Conflict_When_InProgress(t *testing.T) {
	_, rdb := newMiniRedis(t)
	e := setupEcho(rdb, 2*time.Minute, okCreatedHandler)
	body := []byte(`{"amount":1}`)

	key := buildKey(http.MethodPost, testPath, testActor, testReqID)
	entry := idempEntry{
		InProgress:  true,
		BodySHA256:  bodyHash(body),
		RequestID:   testReqID,
		RequestAtMS: time.Now().UnixMilli(),
		CreatedAt:   time.Now().UTC(),
	}
	if ok, err := provisionalSet(context.Background(), rdb, key, entry); err != nil || !ok {
		t.Fatalf("seed provisional failed, ok=%v err=%v", ok, err)
	}

	rec := doReq(t, e, http.MethodPost, testPath, bytes.NewReader(body), validHeaders())
	if rec.Code != http.StatusConflict {
		t.Fatalf("in-progress => want 409, got %d body=%s", rec.Code, rec.Body.String())
	}
}

func Test_Conflict_When_SameReqID_DifferentBody(t *testing.T) {
	_, rdb := newMiniRedis(t)
	e := setupEcho(rdb, 2*time.Minute, okCreatedHandler)

	key := buildKey(http.MethodPost, testPath, testActor, testReqID)
	final := idempEntry{
		Code:        http.StatusCreated,
		Body:        []byte(`{"ok":true}`),
		BodySHA256:  bodyHash([]byte(`{"amount":1}`)),
		RequestID:   testReqID,
		RequestAtMS: time.Now().UnixMilli(),
		CreatedAt:   time.Now().UTC(),
	}
	if err := saveFinal(context.Background(), rdb, key, final, 5*time.Minute); err != nil {
		t.Fatalf("seed final failed: %v", err)
	}

	rec := doReq(t, e, http.MethodPost, testPath, bytes.NewReader([]byte(`{"amount":2}`)), validHeaders())
	if rec.Code != http.StatusConflict {
		t.Fatalf("different body same reqID => want 409, got %d", rec.Code)
	}
}

func Test_StoreUnavailable_Returns503(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", MaxRetries: -1})
	defer rdb.Close()
	e := setupEcho(rdb, time.Minute, okCreatedHandler)

	rec := doReq(t, e, http.MethodPost, testPath, bytes.NewReader([]byte(`{}`)), validHeaders())
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("store unavailable => want 503, got %d", rec.Code)
	}
}
