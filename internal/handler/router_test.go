package handler

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/mcardozo/papertrade/internal/guard"
	"github.com/mcardozo/papertrade/internal/marketdata"
	"github.com/mcardozo/papertrade/internal/service"
	"github.com/mcardozo/papertrade/internal/store"
)

// testRouter wires the full router against an in-memory store and a static
// quote provider.
type testRouter struct {
	router chi.Router
	quotes *marketdata.StaticProvider
}

func newTestRouter(t *testing.T) *testRouter {
	t.Helper()

	st := store.NewMemoryStore()
	quotes := marketdata.NewStaticProvider(map[string]float64{
		"AAPL": 150.00,
		"MSFT": 160.00,
	})
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	tradeSvc := service.NewTradeService(
		st,
		quotes,
		guard.NewIdempotency(3*time.Second, 5*time.Minute, time.Minute),
		guard.NewLimiter(100, time.Minute, time.Minute),
		guard.NewDailyQuota(50),
		guard.NewValueCap(2000),
		logger,
	)
	accountSvc := service.NewAccountService(st, quotes, 10000)

	return &testRouter{
		router: NewRouter(accountSvc, tradeSvc, NewQuoteHandler(quotes), logger),
		quotes: quotes,
	}
}

// do issues a request against the router. A non-empty userID is sent as the
// X-User-ID header; POST bodies are sent as application/json.
func (tr *testRouter) do(t *testing.T, method, path, userID, body string) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if method == http.MethodPost {
		req.Header.Set("Content-Type", "application/json")
	}
	if userID != "" {
		req.Header.Set("X-User-ID", userID)
	}

	w := httptest.NewRecorder()
	tr.router.ServeHTTP(w, req)
	return w
}

func (tr *testRouter) openAccount(t *testing.T, userID string) {
	t.Helper()
	if w := tr.do(t, http.MethodPost, "/accounts", userID, ""); w.Code != http.StatusCreated {
		t.Fatalf("open account for %q: status %d, body %s", userID, w.Code, w.Body.String())
	}
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decoding body %q: %v", w.Body.String(), err)
	}
	return out
}

func assertErrorCode(t *testing.T, w *httptest.ResponseRecorder, status int, code string) {
	t.Helper()
	if w.Code != status {
		t.Errorf("status = %d, want %d (body %s)", w.Code, status, w.Body.String())
	}
	if got := decodeBody(t, w)["error"]; got != code {
		t.Errorf("error code = %v, want %q", got, code)
	}
}

func TestHealthz(t *testing.T) {
	tr := newTestRouter(t)

	w := tr.do(t, http.MethodGet, "/healthz", "", "")
	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}
	if got := decodeBody(t, w)["status"]; got != "ok" {
		t.Errorf("status field = %v, want ok", got)
	}
}

func TestRequireUser_MissingHeader(t *testing.T) {
	tr := newTestRouter(t)

	for _, route := range []struct {
		method, path string
	}{
		{http.MethodPost, "/accounts"},
		{http.MethodGet, "/accounts/balance"},
		{http.MethodGet, "/accounts/portfolio"},
		{http.MethodGet, "/accounts/transactions"},
		{http.MethodPost, "/trades"},
	} {
		w := tr.do(t, route.method, route.path, "", "{}")
		if w.Code != http.StatusUnauthorized {
			t.Errorf("%s %s without X-User-ID: status = %d, want 401", route.method, route.path, w.Code)
		}
	}
}

func TestOpenAccount(t *testing.T) {
	tr := newTestRouter(t)

	// An empty body uses the default starting cash.
	w := tr.do(t, http.MethodPost, "/accounts", "alice", "")
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	body := decodeBody(t, w)
	if body["user_id"] != "alice" || body["cash"] != 10000.0 {
		t.Errorf("body = %v", body)
	}

	// Opening again conflicts.
	w = tr.do(t, http.MethodPost, "/accounts", "alice", "")
	assertErrorCode(t, w, http.StatusConflict, "account_already_exists")
}

func TestOpenAccount_ExplicitStartingCash(t *testing.T) {
	tr := newTestRouter(t)

	w := tr.do(t, http.MethodPost, "/accounts", "bob", `{"starting_cash": 5000}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	if got := decodeBody(t, w)["cash"]; got != 5000.0 {
		t.Errorf("cash = %v, want 5000", got)
	}
}

func TestOpenAccount_MalformedBody(t *testing.T) {
	tr := newTestRouter(t)

	w := tr.do(t, http.MethodPost, "/accounts", "alice", `{"starting_cash": `)
	assertErrorCode(t, w, http.StatusBadRequest, "invalid_request")
}

func TestContentTypeRequired(t *testing.T) {
	tr := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/accounts", strings.NewReader("{}"))
	req.Header.Set("X-User-ID", "alice")
	req.Header.Set("Content-Type", "text/plain")

	w := httptest.NewRecorder()
	tr.router.ServeHTTP(w, req)
	assertErrorCode(t, w, http.StatusBadRequest, "invalid_request")
}

func TestGetBalance(t *testing.T) {
	tr := newTestRouter(t)
	tr.openAccount(t, "alice")

	w := tr.do(t, http.MethodGet, "/accounts/balance", "alice", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	if got := decodeBody(t, w)["cash"]; got != 10000.0 {
		t.Errorf("cash = %v, want 10000", got)
	}
}

func TestGetBalance_UnknownAccount(t *testing.T) {
	tr := newTestRouter(t)

	w := tr.do(t, http.MethodGet, "/accounts/balance", "ghost", "")
	assertErrorCode(t, w, http.StatusNotFound, "account_not_found")
}

func TestExecuteTrade(t *testing.T) {
	tr := newTestRouter(t)
	tr.openAccount(t, "alice")

	w := tr.do(t, http.MethodPost, "/trades", "alice", `{"symbol": "AAPL", "side": "BUY", "quantity": 10}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}

	body := decodeBody(t, w)
	if body["success"] != true {
		t.Errorf("success = %v, want true", body["success"])
	}
	if body["new_cash"] != 8500.0 {
		t.Errorf("new_cash = %v, want 8500", body["new_cash"])
	}
	holding, ok := body["holding"].(map[string]any)
	if !ok {
		t.Fatalf("holding = %v", body["holding"])
	}
	if holding["quantity"] != 10.0 || holding["average_cost"] != 150.0 {
		t.Errorf("holding = %v", holding)
	}
	txn, ok := body["transaction"].(map[string]any)
	if !ok {
		t.Fatalf("transaction = %v", body["transaction"])
	}
	if txn["total"] != 1500.0 || txn["side"] != "BUY" {
		t.Errorf("transaction = %v", txn)
	}
	if txn["tx_id"] == "" {
		t.Error("transaction missing tx_id")
	}
}

func TestExecuteTrade_ErrorMapping(t *testing.T) {
	tr := newTestRouter(t)
	tr.openAccount(t, "alice")
	tr.quotes.SetPrice("BIG", 300.00)

	tests := []struct {
		name   string
		body   string
		status int
		code   string
	}{
		{"validation", `{"symbol": "aapl", "side": "BUY", "quantity": 1}`, http.StatusBadRequest, "validation_error"},
		{"bad side", `{"symbol": "AAPL", "side": "HOLD", "quantity": 1}`, http.StatusBadRequest, "validation_error"},
		{"no position to sell", `{"symbol": "MSFT", "side": "SELL", "quantity": 1}`, http.StatusConflict, "insufficient_shares"},
		{"over value cap", `{"symbol": "BIG", "side": "BUY", "quantity": 10}`, http.StatusUnprocessableEntity, "trade_too_large"},
		{"quote unavailable", `{"symbol": "GHOST", "side": "BUY", "quantity": 1}`, http.StatusBadGateway, "quote_unavailable"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := tr.do(t, http.MethodPost, "/trades", "alice", tt.body)
			assertErrorCode(t, w, tt.status, tt.code)
		})
	}
}

func TestExecuteTrade_UnknownAccount(t *testing.T) {
	tr := newTestRouter(t)

	w := tr.do(t, http.MethodPost, "/trades", "ghost", `{"symbol": "AAPL", "side": "BUY", "quantity": 1}`)
	assertErrorCode(t, w, http.StatusNotFound, "account_not_found")
}

func TestGetPortfolio(t *testing.T) {
	tr := newTestRouter(t)
	tr.openAccount(t, "alice")

	w := tr.do(t, http.MethodPost, "/trades", "alice", `{"symbol": "AAPL", "side": "BUY", "quantity": 10}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("trade: status %d, body %s", w.Code, w.Body.String())
	}

	tr.quotes.SetPrice("AAPL", 170.00)
	w = tr.do(t, http.MethodGet, "/accounts/portfolio", "alice", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}

	body := decodeBody(t, w)
	positions, ok := body["positions"].([]any)
	if !ok || len(positions) != 1 {
		t.Fatalf("positions = %v", body["positions"])
	}
	pos := positions[0].(map[string]any)
	if pos["symbol"] != "AAPL" || pos["market_value"] != 1700.0 || pos["unrealized_gain"] != 200.0 {
		t.Errorf("position = %v", pos)
	}
}

func TestListTransactions(t *testing.T) {
	tr := newTestRouter(t)
	tr.openAccount(t, "alice")

	w := tr.do(t, http.MethodPost, "/trades", "alice", `{"symbol": "AAPL", "side": "BUY", "quantity": 2}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("trade: status %d, body %s", w.Code, w.Body.String())
	}

	w = tr.do(t, http.MethodGet, "/accounts/transactions", "alice", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}

	txns, ok := decodeBody(t, w)["transactions"].([]any)
	if !ok || len(txns) != 1 {
		t.Fatalf("transactions = %v", txns)
	}
	txn := txns[0].(map[string]any)
	if txn["symbol"] != "AAPL" || txn["quantity"] != 2.0 {
		t.Errorf("transaction = %v", txn)
	}
}

func TestGetQuote_Public(t *testing.T) {
	tr := newTestRouter(t)

	// No X-User-ID required.
	w := tr.do(t, http.MethodGet, "/quotes/AAPL", "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	body := decodeBody(t, w)
	if body["symbol"] != "AAPL" || body["price"] != 150.0 {
		t.Errorf("body = %v", body)
	}
}

func TestGetQuote_Unavailable(t *testing.T) {
	tr := newTestRouter(t)

	w := tr.do(t, http.MethodGet, "/quotes/GHOST", "", "")
	assertErrorCode(t, w, http.StatusBadGateway, "quote_unavailable")
}
