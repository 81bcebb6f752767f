package http

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"fintrack/internal/cache"
	"fintrack/internal/core"
	"fintrack/internal/ledger"
	"fintrack/internal/log"
	"fintrack/internal/services"
	"fintrack/internal/storage/memory"
)

func txn(t *testing.T, amount string, typ core.TransactionType, date string) core.Transaction {
	t.Helper()
	m, err := core.ParseAmount(amount)
	if err != nil {
		t.Fatalf("amount: %v", err)
	}
	d, err := core.ParseDate(date)
	if err != nil {
		t.Fatalf("date: %v", err)
	}
	return core.NewTransaction(m, typ, d)
}

func newTestServer(t *testing.T) (*Server, *services.LedgerService, *cache.LRUCache[ResultSet]) {
	t.Helper()
	logger := log.New(log.Config{Output: io.Discard})
	svc := services.NewLedgerService(ledger.New(memory.New()), nil, logger)

	ctx := context.Background()
	for _, a := range []struct {
		category string
		t        core.Transaction
	}{
		{"groceries", txn(t, "50", core.Expense, "2024-01-05")},
		{"salary", txn(t, "2000", core.Income, "2024-01-01")},
		{"groceries", txn(t, "9.5", core.Expense, "2024-02-10")},
	} {
		if _, err := svc.Add(ctx, a.category, a.t); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	c := cache.NewLRUCache[ResultSet](16, time.Minute)
	srv, err := NewServer(":0", svc, c, logger)
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	return srv, svc, c
}

func get(t *testing.T, srv *Server, target string) *httptest.ResponseRecorder {
	t.Helper()
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, target, nil))
	return rr
}

func decodeTransactions(t *testing.T, rr *httptest.ResponseRecorder) TransactionsResponse {
	t.Helper()
	var resp TransactionsResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return resp
}

func TestHealthAndStatic(t *testing.T) {
	srv, _, _ := newTestServer(t)

	rr := get(t, srv, "/healthz")
	if rr.Code != http.StatusOK || rr.Body.String() != "ok" {
		t.Fatalf("healthz: %d %q", rr.Code, rr.Body.String())
	}

	rr = get(t, srv, "/static/style.css")
	if rr.Code != http.StatusOK {
		t.Fatalf("static status=%d", rr.Code)
	}
	if rr.Header().Get("Cache-Control") == "" {
		t.Fatalf("static assets must carry Cache-Control")
	}
}

func TestIndexRendersTable(t *testing.T) {
	srv, _, _ := newTestServer(t)

	rr := get(t, srv, "/")
	if rr.Code != http.StatusOK {
		t.Fatalf("index status=%d", rr.Code)
	}
	body := rr.Body.String()
	for _, want := range []string{"Transaction", "Amount", "Type", "Date", "Groceries", "2000.00", "9.50", "Usable balance: 1940.50", `value="category" checked`} {
		if !strings.Contains(body, want) {
			t.Fatalf("index body missing %q", want)
		}
	}
	if rr.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Fatalf("security headers missing")
	}
}

func TestIndexHeaderLinksCarryToggledDirection(t *testing.T) {
	srv, _, _ := newTestServer(t)

	body := get(t, srv, "/?sort=amount&desc=false").Body.String()
	if !strings.Contains(body, "sort=amount") || !strings.Contains(body, "desc=true") {
		t.Fatalf("amount header must link to descending order:\n%s", body)
	}
	if !strings.Contains(body, "sort=date") {
		t.Fatalf("date header link missing")
	}
	if strings.Index(body, "9.50") > strings.Index(body, "2000.00") {
		t.Fatalf("rows must be ordered by ascending amount")
	}
}

func TestIndexNoResults(t *testing.T) {
	srv, _, _ := newTestServer(t)

	body := get(t, srv, "/?field=category&q=zzz").Body.String()
	if !strings.Contains(body, "No results were found to match the chosen search criteria.") {
		t.Fatalf("no-results message missing")
	}
	if strings.Contains(body, "<tbody>") {
		t.Fatalf("table must not render without results")
	}
}

func TestIndexEmptyLedger(t *testing.T) {
	logger := log.New(log.Config{Output: io.Discard})
	svc := services.NewLedgerService(ledger.New(memory.New()), nil, logger)
	srv, err := NewServer(":0", svc, nil, logger)
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	body := get(t, srv, "/").Body.String()
	if !strings.Contains(body, "There are no financial records.") {
		t.Fatalf("empty placeholder missing")
	}
}

func TestTransactionsAPI(t *testing.T) {
	srv, _, _ := newTestServer(t)

	tests := []struct {
		name      string
		target    string
		want      []string
		noResults bool
	}{
		{"all rows in store order", "/api/transactions", []string{"50.00", "9.50", "2000.00"}, false},
		{"type search", "/api/transactions?field=type&q=expense", []string{"50.00", "9.50"}, false},
		{"amount search", "/api/transactions?field=amount&q=9,5", []string{"9.50"}, false},
		{"purpose alias", "/api/transactions?field=purpose&q=sal", []string{"2000.00"}, false},
		{"sorted descending", "/api/transactions?sort=amount&desc=true", []string{"2000.00", "50.00", "9.50"}, false},
		{"date search sorted", "/api/transactions?field=date&q=2024&sort=date", []string{"2000.00", "50.00", "9.50"}, false},
		{"no results", "/api/transactions?field=date&q=1999", nil, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rr := get(t, srv, tc.target)
			if rr.Code != http.StatusOK {
				t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
			}
			resp := decodeTransactions(t, rr)
			if resp.NoResults != tc.noResults {
				t.Fatalf("no_results=%v, want %v", resp.NoResults, tc.noResults)
			}
			if len(resp.Transactions) != len(tc.want) {
				t.Fatalf("got %d rows, want %d", len(resp.Transactions), len(tc.want))
			}
			for i, amount := range tc.want {
				if resp.Transactions[i].Amount != amount {
					t.Fatalf("row %d amount=%s, want %s", i, resp.Transactions[i].Amount, amount)
				}
			}
		})
	}
}

func TestTransactionsAPIRejectsBadParams(t *testing.T) {
	srv, _, _ := newTestServer(t)
	for _, target := range []string{
		"/api/transactions?field=colour&q=x",
		"/api/transactions?sort=colour",
		"/api/transactions?sort=amount&desc=maybe",
	} {
		rr := get(t, srv, target)
		if rr.Code != http.StatusBadRequest {
			t.Fatalf("%s: status=%d", target, rr.Code)
		}
		var e ErrorResponse
		if err := json.NewDecoder(rr.Body).Decode(&e); err != nil || e.Error != "invalid_parameter" {
			t.Fatalf("%s: unexpected error body %+v (%v)", target, e, err)
		}
	}
}

func TestResultSetsAreCachedPerVersion(t *testing.T) {
	srv, svc, c := newTestServer(t)

	get(t, srv, "/api/transactions?sort=amount")
	get(t, srv, "/api/transactions?sort=amount")
	if hits, _ := c.Stats(); hits != 1 {
		t.Fatalf("expected one cache hit, got %d", hits)
	}

	if _, err := svc.Add(context.Background(), "rent", txn(t, "900", core.Expense, "2024-03-01")); err != nil {
		t.Fatalf("add: %v", err)
	}
	resp := decodeTransactions(t, get(t, srv, "/api/transactions?sort=amount"))
	if len(resp.Transactions) != 4 {
		t.Fatalf("a new ledger version must bypass stale entries, got %d rows", len(resp.Transactions))
	}
}

func TestSummaryAPI(t *testing.T) {
	srv, _, _ := newTestServer(t)

	rr := get(t, srv, "/api/summary")
	var resp SummaryResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.TotalIncome != "2000.00" || resp.TotalExpense != "59.50" || resp.UsableBalance != "1940.50" {
		t.Fatalf("unexpected totals %+v", resp)
	}
	if len(resp.Categories) != 2 || resp.Categories[0].Name != "Groceries" {
		t.Fatalf("unexpected categories %+v", resp.Categories)
	}
}

func TestShutdownIsIdempotent(t *testing.T) {
	srv, _, c := newTestServer(t)
	get(t, srv, "/api/transactions")
	if err := srv.Shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
	if err := srv.Shutdown(context.Background()); err != nil {
		t.Fatalf("second shutdown: %v", err)
	}
	if c.Size() != 0 {
		t.Fatalf("shutdown must purge the result cache")
	}
}
