package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"finanzas/internal/commands"
	"finanzas/internal/core"
	"finanzas/internal/middleware/ratelimit"
	"finanzas/internal/services"
	"finanzas/internal/storage/memory"
)

type downLedger struct {
	*services.LedgerService
}

func (downLedger) Ping(context.Context) error {
	return core.ErrStoreUnavailable
}

func newTestServer(t *testing.T, limiter *ratelimit.Limiter) *Server {
	t.Helper()
	svc := services.NewLedgerService(memory.New(), nil, services.Options{CacheTTL: time.Minute, CacheSize: 8})
	srv := NewServer(":0", svc, commands.NewHandler(svc, nil, time.Second), Options{Timeout: time.Second, Limiter: limiter})
	t.Cleanup(func() { srv.Shutdown(context.Background()) })
	return srv
}

func do(t *testing.T, srv *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rr.Body).Decode(&v); err != nil {
		t.Fatalf("decode %T: %v", v, err)
	}
	return v
}

func TestHealthAndReady(t *testing.T) {
	srv := newTestServer(t, nil)
	for _, path := range []string{"/healthz", "/readyz"} {
		rr := do(t, srv, http.MethodGet, path, "")
		if rr.Code != http.StatusOK {
			t.Fatalf("%s status=%d", path, rr.Code)
		}
		if rr.Header().Get("X-Request-ID") == "" {
			t.Errorf("%s missing request id header", path)
		}
	}
}

func TestReady_StoreDown(t *testing.T) {
	svc := services.NewLedgerService(memory.New(), nil, services.Options{})
	srv := NewServer(":0", downLedger{svc}, nil, Options{})
	rr := do(t, srv, http.MethodGet, "/readyz", "")
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("readyz status=%d, want 503", rr.Code)
	}
}

func TestLedgerFlow(t *testing.T) {
	srv := newTestServer(t, nil)

	rr := do(t, srv, http.MethodGet, "/v1/users/42/summary", "")
	if rr.Code != http.StatusNotFound {
		t.Fatalf("summary before income status=%d, want 404", rr.Code)
	}
	if body := decode[errorBody](t, rr); body.Error != "no_income_registered" {
		t.Fatalf("error code = %q", body.Error)
	}

	rr = do(t, srv, http.MethodPost, "/v1/users/42/income", `{"income":"1000","savings_rate":"10"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("income status=%d body=%s", rr.Code, rr.Body)
	}
	inc := decode[incomeResponse](t, rr)
	if inc.Income != "1000.00" || inc.Savings != "100.00" || inc.SavingsRate == nil || *inc.SavingsRate != "10" {
		t.Fatalf("income response = %+v", inc)
	}

	for _, body := range []string{`{"description":"Comida","amount":"200"}`, `{"description":"Renta","amount":450}`} {
		rr = do(t, srv, http.MethodPost, "/v1/users/42/expenses", body)
		if rr.Code != http.StatusCreated {
			t.Fatalf("expense status=%d body=%s", rr.Code, rr.Body)
		}
	}

	rr = do(t, srv, http.MethodGet, "/v1/users/42/summary", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("summary status=%d", rr.Code)
	}
	sum := decode[summaryResponse](t, rr)
	if sum.TotalExpenses != "650.00" || sum.Balance != "250.00" || len(sum.Expenses) != 2 {
		t.Fatalf("summary = %+v", sum)
	}
	if sum.Expenses[0].Description != "Comida" || sum.Expenses[1].Description != "Renta" {
		t.Errorf("expense order = %+v", sum.Expenses)
	}

	rr = do(t, srv, http.MethodDelete, "/v1/users/42", "")
	if rr.Code != http.StatusNoContent {
		t.Fatalf("delete status=%d", rr.Code)
	}
	if rr = do(t, srv, http.MethodGet, "/v1/users/42/summary", ""); rr.Code != http.StatusNotFound {
		t.Fatalf("summary after delete status=%d, want 404", rr.Code)
	}
	if rr = do(t, srv, http.MethodDelete, "/v1/users/42", ""); rr.Code != http.StatusNoContent {
		t.Fatalf("second delete status=%d, want 204", rr.Code)
	}
}

func TestValidationStatuses(t *testing.T) {
	srv := newTestServer(t, nil)

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		status int
		code   string
	}{
		{"bad user id", http.MethodGet, "/v1/users/abc/summary", "", http.StatusBadRequest, "bad_request"},
		{"malformed json", http.MethodPost, "/v1/users/1/expenses", `{"amount":`, http.StatusBadRequest, "bad_request"},
		{"empty description", http.MethodPost, "/v1/users/1/expenses", `{"description":"   ","amount":"5"}`, http.StatusUnprocessableEntity, "empty_description"},
		{"negative amount", http.MethodPost, "/v1/users/1/expenses", `{"description":"pan","amount":"-5"}`, http.StatusUnprocessableEntity, "invalid_amount"},
		{"negative income", http.MethodPost, "/v1/users/1/income", `{"income":"-1"}`, http.StatusUnprocessableEntity, "invalid_amount"},
		{"rate above 100", http.MethodPost, "/v1/users/1/income", `{"income":"1","savings_rate":"150"}`, http.StatusUnprocessableEntity, "invalid_amount"},
		{"command without user", http.MethodPost, "/v1/commands", `{"text":"/start"}`, http.StatusBadRequest, "bad_request"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := do(t, srv, tt.method, tt.path, tt.body)
			if rr.Code != tt.status {
				t.Fatalf("status=%d, want %d (body=%s)", rr.Code, tt.status, rr.Body)
			}
			if body := decode[errorBody](t, rr); body.Error != tt.code {
				t.Errorf("error code = %q, want %q", body.Error, tt.code)
			}
		})
	}

	if rr := do(t, srv, http.MethodPut, "/v1/users/1/income", `{}`); rr.Code != http.StatusMethodNotAllowed {
		t.Errorf("PUT income status=%d, want 405", rr.Code)
	}
	// Rejected writes leave no trace.
	if rr := do(t, srv, http.MethodGet, "/v1/users/1/summary", ""); rr.Code != http.StatusNotFound {
		t.Errorf("summary after rejected writes status=%d, want 404", rr.Code)
	}
}

func TestCommandWebhook(t *testing.T) {
	srv := newTestServer(t, nil)

	send := func(text string) string {
		t.Helper()
		body, _ := json.Marshal(map[string]any{"user_id": 9, "text": text})
		rr := do(t, srv, http.MethodPost, "/v1/commands", string(body))
		if rr.Code != http.StatusOK {
			t.Fatalf("command status=%d", rr.Code)
		}
		return decode[commandResponse](t, rr).Reply
	}

	send("/sueldo 500 10")
	send("/gasto café 2,50")
	reply := send("/resumen")
	if !strings.Contains(reply, "$447.50") {
		t.Fatalf("reply = %q, want balance $447.50", reply)
	}

	rr := do(t, srv, http.MethodGet, "/v1/users/9/summary", "")
	if sum := decode[summaryResponse](t, rr); sum.Balance != "447.50" {
		t.Fatalf("API and command views disagree: %+v", sum)
	}

	body, _ := json.Marshal(map[string]any{"user_id": 9, "text": "/gasto taxi_nocturno 3"})
	resp := decode[commandResponse](t, do(t, srv, http.MethodPost, "/v1/commands", string(body)))
	if resp.ParseMode != "Markdown" || !strings.Contains(resp.Reply, `taxi\_nocturno`) {
		t.Fatalf("command response = %+v, want escaped Markdown reply", resp)
	}
}

func TestPerUserRateLimit(t *testing.T) {
	limiter := ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: 2, CleanupInterval: time.Hour})
	srv := newTestServer(t, limiter)

	for i := 0; i < 2; i++ {
		if rr := do(t, srv, http.MethodPost, "/v1/users/1/expenses", `{"description":"pan","amount":"1"}`); rr.Code != http.StatusCreated {
			t.Fatalf("request %d status=%d", i+1, rr.Code)
		}
	}
	rr := do(t, srv, http.MethodPost, "/v1/users/1/expenses", `{"description":"pan","amount":"1"}`)
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("third request status=%d, want 429", rr.Code)
	}
	if rr.Header().Get("Retry-After") == "" {
		t.Error("missing Retry-After")
	}
	if rr := do(t, srv, http.MethodPost, "/v1/users/2/expenses", `{"description":"pan","amount":"1"}`); rr.Code != http.StatusCreated {
		t.Fatalf("other user status=%d", rr.Code)
	}
	if rr := do(t, srv, http.MethodGet, "/v1/users/1/summary", ""); rr.Code == http.StatusTooManyRequests {
		t.Fatal("reads are not throttled")
	}
}

func TestMetricsCountRequests(t *testing.T) {
	srv := newTestServer(t, nil)
	do(t, srv, http.MethodGet, "/healthz", "")
	do(t, srv, http.MethodGet, "/v1/users/x/summary", "")
	if m := srv.Metrics(); m.TotalRequests != 2 {
		t.Fatalf("TotalRequests = %d, want 2", m.TotalRequests)
	}
}

func TestClientIP(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "192.0.2.1:1234"
	if got := clientIP(r); got != "192.0.2.1" {
		t.Errorf("clientIP = %q", got)
	}
	r.Header.Set("X-Forwarded-For", " 203.0.113.9 , 10.0.0.1")
	if got := clientIP(r); got != "203.0.113.9" {
		t.Errorf("clientIP with forwarded = %q", got)
	}
}

