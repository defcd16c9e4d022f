package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"envelopes/internal/core"
	"envelopes/internal/ledger/memory"
	applog "envelopes/internal/log"
	"envelopes/internal/services"
)

func quietLogger() *applog.Logger {
	return applog.New(applog.Config{Handler: slog.NewTextHandler(io.Discard, nil)})
}

func newTestServer(t *testing.T, ledger Ledger, config ServerConfig) *Server {
	t.Helper()
	config.Logger = quietLogger()
	srv := NewServer(":0", ledger, config)
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	return srv
}

func newLedgerServer(t *testing.T) *Server {
	t.Helper()
	return newTestServer(t, services.NewLedgerService(memory.New(), nil, nil), ServerConfig{RequestsPerMinute: 1000})
}

func do(t *testing.T, srv *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, req)
	return rec
}

// data decodes the data field of a successful result into dst.
func data(t *testing.T, rec *httptest.ResponseRecorder, want int, dst any) {
	t.Helper()
	if rec.Code != want {
		t.Fatalf("status = %d, want %d: %s", rec.Code, want, rec.Body.String())
	}
	body := decodeResult(t, rec)
	if !body.Success {
		t.Fatalf("expected success: %s", rec.Body.String())
	}
	if dst != nil {
		if err := json.Unmarshal(body.Data, dst); err != nil {
			t.Fatalf("decode data: %v", err)
		}
	}
}

func TestHealthReadyAndMetrics(t *testing.T) {
	srv := newLedgerServer(t)

	for _, path := range []string{"/healthz", "/readyz", "/metrics"} {
		rec := do(t, srv, http.MethodGet, path, "")
		if rec.Code != http.StatusOK {
			t.Errorf("%s status = %d", path, rec.Code)
		}
	}

	var metrics struct {
		Requests struct {
			TotalRequests int64 `json:"totalRequests"`
		} `json:"requests"`
	}
	data(t, do(t, srv, http.MethodGet, "/metrics", ""), http.StatusOK, &metrics)
	if metrics.Requests.TotalRequests < 3 {
		t.Errorf("TotalRequests = %d, want at least 3", metrics.Requests.TotalRequests)
	}
}

type failingLedger struct {
	Ledger
}

func (failingLedger) GetEnvelopeGroups(context.Context, core.FilterIntent) ([]core.EnvelopeGroup, error) {
	return nil, context.DeadlineExceeded
}

func (failingLedger) GetSchedule(context.Context, time.Time) (core.BudgetSchedule, error) {
	panic("schedule exploded")
}

func TestReadyReportsUnavailableLedger(t *testing.T) {
	srv := newTestServer(t, failingLedger{}, ServerConfig{})

	rec := do(t, srv, http.MethodGet, "/readyz", "")
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
	if msg := decodeResult(t, rec).Message; msg != "ledger unavailable" {
		t.Errorf("Message = %q", msg)
	}
}

func TestPanicBecomesInternalError(t *testing.T) {
	srv := newTestServer(t, failingLedger{}, ServerConfig{})

	rec := do(t, srv, http.MethodGet, "/api/schedule", "")
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "exploded") {
		t.Error("panic value leaked into the response")
	}
}

func TestUnknownRoute(t *testing.T) {
	srv := newLedgerServer(t)

	rec := do(t, srv, http.MethodGet, "/api/nothing", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	if msg := decodeResult(t, rec).Message; msg != "no route for GET /api/nothing" {
		t.Errorf("Message = %q", msg)
	}
}

func TestRequestIDIsEchoed(t *testing.T) {
	srv := newLedgerServer(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-ID", "client-abc.1")
	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, req)
	if got := rec.Header().Get("X-Request-ID"); got != "client-abc.1" {
		t.Errorf("X-Request-ID = %q", got)
	}

	rec = do(t, srv, http.MethodGet, "/healthz", "")
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("expected a generated request id")
	}
	if rec.Header().Get("Cache-Control") != "no-store" {
		t.Error("expected security headers on API responses")
	}
}

func TestValidationErrorsListEveryMessage(t *testing.T) {
	srv := newLedgerServer(t)

	rec := do(t, srv, http.MethodPost, "/api/transactions", `{"amount":"abc"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400: %s", rec.Code, rec.Body.String())
	}
	body := decodeResult(t, rec)
	want := []string{"accountId is required", "payeeId is required", "invalid amount 'abc'"}
	if len(body.Messages) != len(want) {
		t.Fatalf("Messages = %v, want %v", body.Messages, want)
	}
	for i := range want {
		if body.Messages[i] != want[i] {
			t.Errorf("Messages[%d] = %q, want %q", i, body.Messages[i], want[i])
		}
	}
}

func TestRejectsUnknownFields(t *testing.T) {
	srv := newLedgerServer(t)

	rec := do(t, srv, http.MethodPost, "/api/payees", `{"description":"Shop","colour":"red"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

type entity struct {
	ID uuid.UUID `json:"id"`
}

func create(t *testing.T, srv *Server, path, body string) uuid.UUID {
	t.Helper()
	var e entity
	data(t, do(t, srv, http.MethodPost, path, body), http.StatusCreated, &e)
	if e.ID == uuid.Nil {
		t.Fatalf("POST %s returned no id", path)
	}
	return e.ID
}

func TestLedgerWorkflow(t *testing.T) {
	srv := newLedgerServer(t)

	group := create(t, srv, "/api/envelope-groups", `{"description":"Living"}`)
	food := create(t, srv, "/api/envelopes", `{"description":"Food","groupId":"`+group.String()+`"}`)
	fun := create(t, srv, "/api/envelopes", `{"description":"Fun","groupId":"`+group.String()+`"}`)
	account := create(t, srv, "/api/accounts", `{"description":"Checking","onBudget":true,"startingBalance":"500","date":"2024-03-01"}`)
	payee := create(t, srv, "/api/payees", `{"description":"Market"}`)

	tx := create(t, srv, "/api/transactions", `{
		"accountId":"`+account.String()+`",
		"payeeId":"`+payee.String()+`",
		"envelopeId":"`+food.String()+`",
		"amount":"-25,50",
		"serviceDate":"2024-03-05"
	}`)

	var txs []entity
	data(t, do(t, srv, http.MethodGet, "/api/transactions?account="+account.String(), ""), http.StatusOK, &txs)
	found := false
	for _, e := range txs {
		found = found || e.ID == tx
	}
	if !found {
		t.Errorf("transaction %s missing from account listing", tx)
	}

	data(t, do(t, srv, http.MethodPut, "/api/budgets",
		`{"month":"2024-03","envelopeId":"`+food.String()+`","amount":"100"}`), http.StatusOK, nil)

	var moved []struct {
		Envelope entity              `json:"envelope"`
		Amount   decimal.NullDecimal `json:"amount"`
	}
	data(t, do(t, srv, http.MethodPost, "/api/budgets/transfer",
		`{"month":"2024-03","from":"`+food.String()+`","to":"`+fun.String()+`","amount":"40"}`), http.StatusOK, &moved)
	if len(moved) != 2 {
		t.Fatalf("transfer returned %d budgets, want 2", len(moved))
	}
	for _, b := range moved {
		want := decimal.NewFromInt(60)
		if b.Envelope.ID == fun {
			want = decimal.NewFromInt(40)
		}
		if !b.Amount.Valid || !b.Amount.Decimal.Equal(want) {
			t.Errorf("envelope %s amount = %v, want %v", b.Envelope.ID, b.Amount.Decimal, want)
		}
	}

	var report struct {
		Schedule struct {
			Budgeted decimal.Decimal `json:"budgeted"`
		} `json:"schedule"`
	}
	data(t, do(t, srv, http.MethodGet, "/api/report?month=2024-03", ""), http.StatusOK, &report)
	if !report.Schedule.Budgeted.Equal(decimal.NewFromInt(100)) {
		t.Errorf("budgeted = %v, want 100", report.Schedule.Budgeted)
	}

	// A group with envelopes cannot go away.
	rec := do(t, srv, http.MethodDelete, "/api/envelope-groups/"+group.String(), "")
	if rec.Code != http.StatusConflict {
		t.Errorf("delete group status = %d, want 409", rec.Code)
	}

	data(t, do(t, srv, http.MethodDelete, "/api/transactions/"+tx.String(), ""), http.StatusOK, nil)
	rec = do(t, srv, http.MethodPut, "/api/transactions/"+tx.String(), `{}`)
	if rec.Code != http.StatusNotFound {
		t.Errorf("update deleted transaction status = %d, want 404", rec.Code)
	}
}

func TestTransferToUnknownEnvelope(t *testing.T) {
	srv := newLedgerServer(t)

	group := create(t, srv, "/api/envelope-groups", `{"description":"Living"}`)
	food := create(t, srv, "/api/envelopes", `{"description":"Food","groupId":"`+group.String()+`"}`)

	rec := do(t, srv, http.MethodPost, "/api/budgets/transfer",
		`{"month":"2024-03","from":"`+food.String()+`","to":"`+uuid.NewString()+`","amount":"5"}`)
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404: %s", rec.Code, rec.Body.String())
	}
}

// reloadFailingLedger commits transfers but cannot read budgets back.
type reloadFailingLedger struct {
	Ledger
	transfers int
}

func (l *reloadFailingLedger) TransferBudget(context.Context, time.Time, uuid.UUID, uuid.UUID, decimal.Decimal) error {
	l.transfers++
	return nil
}

func (l *reloadFailingLedger) GetBudgets(context.Context, time.Time, core.FilterIntent) ([]core.Budget, error) {
	return nil, errors.New("sqlite: database is locked")
}

func TestTransferSucceedsWhenReloadFails(t *testing.T) {
	ledger := &reloadFailingLedger{}
	srv := newTestServer(t, ledger, ServerConfig{RequestsPerMinute: 1000})

	data(t, do(t, srv, http.MethodPost, "/api/budgets/transfer",
		`{"month":"2024-03","from":"`+uuid.NewString()+`","to":"`+uuid.NewString()+`","amount":"5"}`), http.StatusOK, nil)
	if ledger.transfers != 1 {
		t.Errorf("transfers = %d, want 1", ledger.transfers)
	}
}

func TestHideEnvelope(t *testing.T) {
	srv := newLedgerServer(t)

	group := create(t, srv, "/api/envelope-groups", `{"description":"Living"}`)
	food := create(t, srv, "/api/envelopes", `{"description":"Food","groupId":"`+group.String()+`"}`)

	var hidden struct {
		HiddenDateTime time.Time `json:"hiddenDateTime"`
	}
	data(t, do(t, srv, http.MethodPut, "/api/envelopes/"+food.String()+"/hidden", `{"hidden":true}`), http.StatusOK, &hidden)
	if hidden.HiddenDateTime.IsZero() {
		t.Error("expected the envelope to be hidden")
	}

	var visible []entity
	data(t, do(t, srv, http.MethodGet, "/api/envelopes", ""), http.StatusOK, &visible)
	for _, e := range visible {
		if e.ID == food {
			t.Error("hidden envelope listed under the standard filter")
		}
	}
}

func TestRateLimitAppliesToWrites(t *testing.T) {
	srv := newTestServer(t, services.NewLedgerService(memory.New(), nil, nil), ServerConfig{RequestsPerMinute: 1})

	body := `{"description":"Shop"}`
	if rec := do(t, srv, http.MethodPost, "/api/payees", body); rec.Code != http.StatusCreated {
		t.Fatalf("first write status = %d", rec.Code)
	}
	rec := do(t, srv, http.MethodPost, "/api/payees", body)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("second write status = %d, want 429", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("expected Retry-After header")
	}

	for i := 0; i < 3; i++ {
		if rec := do(t, srv, http.MethodGet, "/api/payees", ""); rec.Code != http.StatusOK {
			t.Errorf("read %d status = %d", i, rec.Code)
		}
	}
}

func TestBlockedRequest(t *testing.T) {
	srv := newLedgerServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/payees", bytes.NewReader(nil))
	req.Header.Set("User-Agent", "sqlmap/1.7")
	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}
