// Package engine wires the derived-state cascade: every ledger snapshot is
// turned into aggregates, a budget plan and a fresh alert set before the next
// snapshot is processed. An Engine is constructed explicitly per user; there
// is no global state.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"smartspend/internal/alerts"
	"smartspend/internal/analytics"
	"smartspend/internal/budget"
	"smartspend/internal/core"
	"smartspend/internal/ledger"
)

// Snapshot is one consistent derived view: the sorted expense set plus
// everything computed from it in the same pass.
type Snapshot struct {
	UserID      string
	Expenses    []core.Expense
	Summary     analytics.Summary
	Plan        budget.Plan
	GeneratedAt time.Time
}

// Engine owns one user's ledger subscription and derived state.
type Engine struct {
	store   *ledger.Store
	budgets budget.Store
	alerts  *alerts.Engine
	clock   func() time.Time

	mu     sync.RWMutex
	userID string
	cfg    budget.Config
	hasCfg bool
	sub    *ledger.Subscription
	snap   Snapshot
}

func New(store *ledger.Store, budgets budget.Store) *Engine {
	return &Engine{
		store:   store,
		budgets: budgets,
		alerts:  alerts.NewEngine(),
		clock:   time.Now,
	}
}

// SetUser switches the engine to a new identity. The previous subscription is
// torn down before the next one is established; an empty id leaves the engine
// with an empty derived snapshot.
func (e *Engine) SetUser(ctx context.Context, userID string) {
	e.mu.Lock()
	prev := e.sub
	e.sub = nil
	e.userID = userID
	e.cfg = budget.Config{}
	e.hasCfg = false
	e.snap = Snapshot{UserID: userID, GeneratedAt: e.clock()}
	e.mu.Unlock()

	// Cancel outside the engine lock: delivery takes the subscription lock
	// before calling back into the engine.
	if prev != nil {
		prev.Cancel()
	}

	if userID == "" {
		e.alerts.Refresh(alerts.Input{Now: e.clock()})
		return
	}

	if cfg, ok, err := e.budgets.Load(ctx, userID); err != nil {
		slog.ErrorContext(ctx, "Failed to load budget config", "owner_id", userID, "error", err)
	} else if ok {
		e.mu.Lock()
		e.cfg = cfg
		e.hasCfg = true
		e.mu.Unlock()
	}

	sub := e.store.Subscribe(userID, e)
	e.mu.Lock()
	e.sub = sub
	e.mu.Unlock()
}

// Close tears down the active subscription.
func (e *Engine) Close() {
	e.mu.Lock()
	sub := e.sub
	e.sub = nil
	e.mu.Unlock()
	if sub != nil {
		sub.Cancel()
	}
}

// OnSnapshot implements ledger.Observer: one synchronous cascade per
// notification, replacing the whole derived state. The subscription delivers
// one snapshot at a time, so the cascade itself needs no further ordering.
func (e *Engine) OnSnapshot(ls ledger.Snapshot) {
	e.mu.Lock()
	if ls.UserID != e.userID {
		e.mu.Unlock()
		return
	}
	cfg, hasCfg := e.cfg, e.hasCfg
	e.mu.Unlock()

	now := e.clock()
	summary := analytics.Summarize(ls.Expenses, now)
	var plan budget.Plan
	var cfgPtr *budget.Config
	if hasCfg {
		plan = budget.Build(cfg, summary.ThisMonth.Categories, summary.ThisMonth.Total)
		cfgPtr = &cfg
	}
	e.alerts.Refresh(alerts.Input{Expenses: ls.Expenses, Budget: cfgPtr, Now: now})

	e.mu.Lock()
	if ls.UserID == e.userID {
		e.snap = Snapshot{
			UserID:      ls.UserID,
			Expenses:    ls.Expenses,
			Summary:     summary,
			Plan:        plan,
			GeneratedAt: now,
		}
	}
	e.mu.Unlock()
}

// Current returns the latest derived snapshot.
func (e *Engine) Current() Snapshot {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.snap
}

// Budget returns the active config and whether one is set.
func (e *Engine) Budget() (budget.Config, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.cfg, e.hasCfg
}

// SetBudget clamps, persists and applies a new budget config, then recomputes
// the derived state from the current expense set.
func (e *Engine) SetBudget(ctx context.Context, cfg budget.Config) error {
	cfg = cfg.Clamp()

	e.mu.RLock()
	userID := e.userID
	e.mu.RUnlock()
	if userID == "" {
		return fmt.Errorf("no active user")
	}

	if err := e.budgets.Save(ctx, userID, cfg); err != nil {
		return fmt.Errorf("save budget config: %w", err)
	}

	e.mu.Lock()
	e.cfg = cfg
	e.hasCfg = true
	expenses := e.snap.Expenses
	e.mu.Unlock()

	e.OnSnapshot(ledger.Snapshot{UserID: userID, Expenses: expenses, At: e.clock()})
	return nil
}

// Mutations pass straight through to the ledger store; the result is observed
// via the next subscription snapshot, never merged locally.

func (e *Engine) CreateExpense(ctx context.Context, d ledger.Draft) error {
	e.mu.RLock()
	userID := e.userID
	e.mu.RUnlock()
	return e.store.Create(ctx, userID, d)
}

func (e *Engine) UpdateExpense(ctx context.Context, id string, d ledger.Draft) error {
	e.mu.RLock()
	userID := e.userID
	e.mu.RUnlock()
	return e.store.Update(ctx, userID, id, d)
}

func (e *Engine) DeleteExpense(ctx context.Context, id string) error {
	return e.store.Delete(ctx, id)
}

// Alerts exposes the rule engine for the notification surface.
func (e *Engine) Alerts() *alerts.Engine { return e.alerts }
