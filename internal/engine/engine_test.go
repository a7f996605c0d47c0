package engine

import (
	"context"
	"testing"
	"time"

	"smartspend/internal/budget"
	"smartspend/internal/core"
	"smartspend/internal/ledger"
	"smartspend/internal/remote/memory"
)

func newFixture() (*Engine, *ledger.Store, *memory.BudgetStore) {
	store := ledger.NewStore(memory.New())
	budgets := memory.NewBudgetStore()
	return New(store, budgets), store, budgets
}

// waitFor polls the derived snapshot until cond holds or the deadline passes.
func waitFor(t *testing.T, e *Engine, cond func(Snapshot) bool) Snapshot {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		snap := e.Current()
		if cond(snap) {
			return snap
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition never held, last snapshot: %+v", e.Current())
	return Snapshot{}
}

func TestCascadeOnCreate(t *testing.T) {
	eng, _, _ := newFixture()
	defer eng.Close()
	ctx := context.Background()

	eng.SetUser(ctx, "u1")
	waitFor(t, eng, func(s Snapshot) bool { return s.UserID == "u1" })

	err := eng.CreateExpense(ctx, ledger.Draft{
		Description: "groceries", Amount: "42.50", Category: "Food",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	snap := waitFor(t, eng, func(s Snapshot) bool { return s.Summary.Count == 1 })
	if snap.Summary.Total.Cents != 4250 {
		t.Fatalf("expected total 42.50, got %s", snap.Summary.Total)
	}
	if len(snap.Expenses) != 1 || snap.Expenses[0].Category != core.CategoryFood {
		t.Fatalf("unexpected expense set: %+v", snap.Expenses)
	}
}

func TestCascadeOnDelete(t *testing.T) {
	eng, _, _ := newFixture()
	defer eng.Close()
	ctx := context.Background()

	eng.SetUser(ctx, "u1")
	if err := eng.CreateExpense(ctx, ledger.Draft{Description: "x", Amount: "5", Category: "Food"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	snap := waitFor(t, eng, func(s Snapshot) bool { return s.Summary.Count == 1 })

	if err := eng.DeleteExpense(ctx, snap.Expenses[0].ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	waitFor(t, eng, func(s Snapshot) bool { return s.Summary.Count == 0 })
}

func TestSetBudgetRecomputesPlan(t *testing.T) {
	eng, _, budgets := newFixture()
	defer eng.Close()
	ctx := context.Background()

	eng.SetUser(ctx, "u1")
	if err := eng.CreateExpense(ctx, ledger.Draft{Description: "rent", Amount: "30000", Category: "Food"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	waitFor(t, eng, func(s Snapshot) bool { return s.Summary.Count == 1 })

	cfg := budget.Config{
		MonthlyIncome: core.Money{Cents: 50_000_00},
		Allocations:   map[core.Category]float64{core.CategoryFood: 150}, // clamps to 100
	}
	if err := eng.SetBudget(ctx, cfg); err != nil {
		t.Fatalf("set budget: %v", err)
	}

	got, ok := eng.Budget()
	if !ok || got.Allocations[core.CategoryFood] != 100 {
		t.Fatalf("expected clamped config, got %+v (ok=%v)", got, ok)
	}

	saved, ok, err := budgets.Load(ctx, "u1")
	if err != nil || !ok || saved.Allocations[core.CategoryFood] != 100 {
		t.Fatalf("config not persisted clamped: %+v (ok=%v err=%v)", saved, ok, err)
	}

	snap := eng.Current()
	if snap.Plan.Income.Cents != 50_000_00 {
		t.Fatalf("plan not rebuilt: %+v", snap.Plan)
	}
	if snap.Plan.Standing != budget.StandingOnTrack {
		t.Fatalf("30000 of 50000 should be on track, got %s", snap.Plan.Standing)
	}
}

func TestSetBudgetWithoutUser(t *testing.T) {
	eng, _, _ := newFixture()
	defer eng.Close()
	if err := eng.SetBudget(context.Background(), budget.Config{}); err == nil {
		t.Fatal("expected error without an active user")
	}
}

func TestBudgetLoadedOnSetUser(t *testing.T) {
	eng, _, budgets := newFixture()
	defer eng.Close()
	ctx := context.Background()

	cfg := budget.Config{MonthlyIncome: core.Money{Cents: 1000_00}}
	if err := budgets.Save(ctx, "u1", cfg); err != nil {
		t.Fatalf("seed budget: %v", err)
	}

	eng.SetUser(ctx, "u1")
	got, ok := eng.Budget()
	if !ok || got.MonthlyIncome.Cents != 1000_00 {
		t.Fatalf("persisted budget not loaded: %+v (ok=%v)", got, ok)
	}
}

func TestUserSwitchDropsOldState(t *testing.T) {
	eng, _, _ := newFixture()
	defer eng.Close()
	ctx := context.Background()

	eng.SetUser(ctx, "alice")
	if err := eng.CreateExpense(ctx, ledger.Draft{Description: "x", Amount: "5", Category: "Food"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	waitFor(t, eng, func(s Snapshot) bool { return s.Summary.Count == 1 })

	eng.SetUser(ctx, "bob")
	snap := waitFor(t, eng, func(s Snapshot) bool { return s.UserID == "bob" })
	if snap.Summary.Count != 0 {
		t.Fatalf("bob should start empty, got %+v", snap.Summary)
	}
}

func TestSetUserEmptyClearsState(t *testing.T) {
	eng, _, _ := newFixture()
	defer eng.Close()
	ctx := context.Background()

	eng.SetUser(ctx, "u1")
	if err := eng.CreateExpense(ctx, ledger.Draft{Description: "x", Amount: "5", Category: "Food"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	waitFor(t, eng, func(s Snapshot) bool { return s.Summary.Count == 1 })

	eng.SetUser(ctx, "")
	snap := eng.Current()
	if snap.UserID != "" || snap.Summary.Count != 0 {
		t.Fatalf("sign-out should clear derived state, got %+v", snap)
	}
	if len(eng.Alerts().Alerts()) != 0 {
		t.Fatal("sign-out should clear alerts")
	}
}

func TestAlertsFollowCascade(t *testing.T) {
	eng, _, _ := newFixture()
	defer eng.Close()
	ctx := context.Background()

	eng.SetUser(ctx, "u1")
	if err := eng.SetBudget(ctx, budget.Config{
		MonthlyIncome: core.Money{Cents: 1000_00},
		Allocations:   map[core.Category]float64{core.CategoryFood: 100},
	}); err != nil {
		t.Fatalf("set budget: %v", err)
	}

	if err := eng.CreateExpense(ctx, ledger.Draft{Description: "splurge", Amount: "2000", Category: "Food"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	waitFor(t, eng, func(s Snapshot) bool { return s.Summary.Count == 1 })

	found := false
	for _, a := range eng.Alerts().Alerts() {
		if a.ID == "budget-exceeded" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected budget-exceeded alert, got %+v", eng.Alerts().Alerts())
	}
}

func TestManagerAcquireReusesAndDropCloses(t *testing.T) {
	store := ledger.NewStore(memory.New())
	m := NewManager(store, memory.NewBudgetStore())
	defer m.Shutdown()
	ctx := context.Background()

	a := m.Acquire(ctx, "u1")
	b := m.Acquire(ctx, "u1")
	if a != b {
		t.Fatal("acquire should reuse the engine per identity")
	}
	if m.Acquire(ctx, "u2") == a {
		t.Fatal("identities must not share engines")
	}

	m.Drop("u1")
	if m.Acquire(ctx, "u1") == a {
		t.Fatal("drop should discard the engine")
	}
}
