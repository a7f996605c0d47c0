package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"smartspend/internal/advice"
	"smartspend/internal/engine"
	"smartspend/internal/ledger"
	applog "smartspend/internal/log"
	"smartspend/internal/remote/memory"
)

func newTestServer() *Server {
	store := ledger.NewStore(memory.New())
	manager := engine.NewManager(store, memory.NewBudgetStore())
	advisor := advice.NewClient("", "gemini-2.5-flash", time.Minute)
	return NewServer(":0", manager, advisor, applog.New(applog.DefaultConfig()))
}

func do(s *Server, method, path, user, body string) *httptest.ResponseRecorder {
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if user != "" {
		req.Header.Set(userIDHeader, user)
	}
	rec := httptest.NewRecorder()
	s.Server.Handler.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	s := newTestServer()
	rec := do(s, http.MethodGet, "/healthz", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestMissingIdentityRejected(t *testing.T) {
	s := newTestServer()
	for _, path := range []string{"/api/expenses", "/api/summary", "/api/alerts", "/api/budget"} {
		rec := do(s, http.MethodGet, path, "", "")
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("%s: expected 401, got %d", path, rec.Code)
		}
	}
}

func listExpenses(t *testing.T, s *Server, user string) []expenseJSON {
	t.Helper()
	rec := do(s, http.MethodGet, "/api/expenses", user, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("list expenses: %d %s", rec.Code, rec.Body.String())
	}
	var out []expenseJSON
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode expenses: %v", err)
	}
	return out
}

// waitForExpenses polls the list endpoint until the derived view catches up.
func waitForExpenses(t *testing.T, s *Server, user string, n int) []expenseJSON {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if out := listExpenses(t, s, user); len(out) == n {
			return out
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("expense list never reached %d entries", n)
	return nil
}

func TestExpenseLifecycle(t *testing.T) {
	s := newTestServer()

	rec := do(s, http.MethodPost, "/api/expenses", "alice",
		`{"description":"groceries","amount":42.5,"category":"Food","date":"2026-06-01"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d %s", rec.Code, rec.Body.String())
	}

	out := waitForExpenses(t, s, "alice", 1)
	if out[0].Description != "groceries" || out[0].Amount != 42.5 || out[0].Category != "Food" {
		t.Fatalf("unexpected expense: %+v", out[0])
	}

	rec = do(s, http.MethodPut, "/api/expenses/"+out[0].ID, "alice",
		`{"description":"weekly groceries","amount":50,"category":"Food","date":"2026-06-01"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("update: expected 200, got %d %s", rec.Code, rec.Body.String())
	}
	deadline := time.Now().Add(2 * time.Second)
	for {
		out = listExpenses(t, s, "alice")
		if len(out) == 1 && out[0].Amount == 50 {
			break
		}
		if !time.Now().Before(deadline) {
			t.Fatalf("update never observed: %+v", out)
		}
		time.Sleep(5 * time.Millisecond)
	}

	rec = do(s, http.MethodDelete, "/api/expenses/"+out[0].ID, "alice", "")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete: expected 204, got %d", rec.Code)
	}
	waitForExpenses(t, s, "alice", 0)
}

func TestCreateExpenseValidation(t *testing.T) {
	s := newTestServer()

	cases := []struct {
		name string
		body string
	}{
		{"empty description", `{"description":" ","amount":5,"category":"Food"}`},
		{"zero amount", `{"description":"x","amount":0,"category":"Food"}`},
		{"negative amount", `{"description":"x","amount":-5,"category":"Food"}`},
		{"unknown category", `{"description":"x","amount":5,"category":"Groceries"}`},
		{"bad date", `{"description":"x","amount":5,"category":"Food","date":"soon"}`},
	}
	for _, tc := range cases {
		rec := do(s, http.MethodPost, "/api/expenses", "alice", tc.body)
		if rec.Code != http.StatusUnprocessableEntity {
			t.Fatalf("%s: expected 422, got %d %s", tc.name, rec.Code, rec.Body.String())
		}
	}

	rec := do(s, http.MethodPost, "/api/expenses", "alice", "{not json")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("malformed body: expected 400, got %d", rec.Code)
	}
}

func TestBudgetRoundTrip(t *testing.T) {
	s := newTestServer()

	rec := do(s, http.MethodGet, "/api/budget", "alice", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("get budget: %d", rec.Code)
	}
	var before budgetResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &before); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if before.Configured {
		t.Fatal("fresh identity should have no budget")
	}

	rec = do(s, http.MethodPut, "/api/budget", "alice",
		`{"monthlyIncome":50000,"allocations":{"Food":150}}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("put budget: %d %s", rec.Code, rec.Body.String())
	}
	var after budgetResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &after); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !after.Configured || after.Config.MonthlyIncome.Cents != 50_000_00 {
		t.Fatalf("unexpected saved budget: %+v", after)
	}
	if after.Config.Allocations["Food"] != 100 {
		t.Fatalf("allocation not clamped: %+v", after.Config.Allocations)
	}
}

func TestSummaryIncludesPlanOnlyWhenConfigured(t *testing.T) {
	s := newTestServer()

	rec := do(s, http.MethodGet, "/api/summary", "alice", "")
	var without summaryResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &without); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if without.Plan != nil {
		t.Fatal("plan present without a budget")
	}

	do(s, http.MethodPut, "/api/budget", "alice", `{"monthlyIncome":1000,"allocations":{"Food":100}}`)
	rec = do(s, http.MethodGet, "/api/summary", "alice", "")
	var with summaryResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &with); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if with.Plan == nil || with.Plan.Income != 1000 {
		t.Fatalf("plan missing after budget set: %+v", with.Plan)
	}
}

func TestAlertsEndpoints(t *testing.T) {
	s := newTestServer()

	do(s, http.MethodPut, "/api/budget", "alice", `{"monthlyIncome":1000,"allocations":{"Food":100}}`)
	do(s, http.MethodPost, "/api/expenses", "alice",
		`{"description":"splurge","amount":2000,"category":"Food"}`)
	waitForExpenses(t, s, "alice", 1)

	var alerts alertsResponse
	deadline := time.Now().Add(2 * time.Second)
	for {
		rec := do(s, http.MethodGet, "/api/alerts", "alice", "")
		if err := json.Unmarshal(rec.Body.Bytes(), &alerts); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if len(alerts.Alerts) > 0 {
			break
		}
		if !time.Now().Before(deadline) {
			t.Fatal("no alerts generated")
		}
		time.Sleep(5 * time.Millisecond)
	}
	if alerts.Unread == 0 {
		t.Fatal("fresh alerts should be unread")
	}

	rec := do(s, http.MethodPost, "/api/alerts/"+alerts.Alerts[0].ID+"/read", "alice", "")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("mark read: expected 204, got %d", rec.Code)
	}
	rec = do(s, http.MethodPost, "/api/alerts/no-such-rule/read", "alice", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unknown alert: expected 404, got %d", rec.Code)
	}

	rec = do(s, http.MethodPost, "/api/alerts/read-all", "alice", "")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("read-all: expected 204, got %d", rec.Code)
	}
	rec = do(s, http.MethodGet, "/api/alerts", "alice", "")
	if err := json.Unmarshal(rec.Body.Bytes(), &alerts); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if alerts.Unread != 0 {
		t.Fatalf("unread should be 0 after read-all, got %d", alerts.Unread)
	}
}

func TestAdviceChat(t *testing.T) {
	s := newTestServer()

	rec := do(s, http.MethodPost, "/api/advice/chat", "alice", `{"message":"How can I save more?"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("chat: expected 200, got %d %s", rec.Code, rec.Body.String())
	}
	var resp chatResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Reply == "" {
		t.Fatal("empty reply")
	}

	rec = do(s, http.MethodPost, "/api/advice/chat", "alice", `{"message":"  "}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("empty message: expected 400, got %d", rec.Code)
	}
}

func TestEndSession(t *testing.T) {
	s := newTestServer()

	do(s, http.MethodPost, "/api/expenses", "alice",
		`{"description":"x","amount":5,"category":"Food"}`)
	waitForExpenses(t, s, "alice", 1)

	rec := do(s, http.MethodDelete, "/api/session", "alice", "")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("end session: expected 204, got %d", rec.Code)
	}

	// A new request re-acquires a fresh engine; the data itself survives.
	waitForExpenses(t, s, "alice", 1)
}
