// Package alerts generates rule-based notifications from the current expense
// set and budget plan. Each rule produces at most one alert under a fixed
// rule identifier, so re-evaluating identical input never duplicates one.
package alerts

import (
	"fmt"
	"sync"
	"time"

	"smartspend/internal/analytics"
	"smartspend/internal/budget"
	"smartspend/internal/core"
)

// Rule identifiers. One id per rule kind, not per occurrence.
const (
	RuleBudgetExceeded   = "budget-exceeded"
	RuleBudgetWarning    = "budget-warning"
	RuleCategorySpending = "category-spending"
	RuleBillReminder     = "bill-reminder"
)

// Severity of an alert.
type Severity string

const (
	SeverityDanger  Severity = "danger"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// Alert is a derived, ephemeral notification. Its only identity is the rule
// id; the whole set is regenerated on every recomputation pass.
type Alert struct {
	ID        string
	Severity  Severity
	Title     string
	Message   string
	CreatedAt time.Time
	Read      bool
}

// Rule tuning. The concentration rule only fires on a material month, and the
// bill reminder only once the month shows real activity.
const (
	concentrationShare = 50.0
	billActivityFloor  = 5
	concentrationCents = 5000_00
)

// Input is everything one evaluation pass consumes. A nil Budget suppresses
// the budget rules only.
type Input struct {
	Expenses []core.Expense
	Budget   *budget.Config
	Now      time.Time
}

// Evaluate runs every rule against in and returns the fresh alert set. It is
// pure: identical input yields the same ids in the same order.
func Evaluate(in Input) []Alert {
	var out []Alert

	month := analytics.ThisMonth(in.Expenses, in.Now)
	monthCats, monthTotal := analytics.CategoryTotals(month)

	if in.Budget != nil && in.Budget.Configured() {
		plan := budget.Build(*in.Budget, monthCats, monthTotal)
		switch {
		case plan.Progress >= budget.OverBudgetAt:
			out = append(out, Alert{
				ID:        RuleBudgetExceeded,
				Severity:  SeverityDanger,
				Title:     "Budget Exceeded",
				Message:   fmt.Sprintf("You've exceeded your monthly budget by %s.", plan.Overage()),
				CreatedAt: in.Now,
			})
		case plan.Progress >= budget.NearLimitAt:
			out = append(out, Alert{
				ID:        RuleBudgetWarning,
				Severity:  SeverityWarning,
				Title:     "Budget Warning",
				Message:   fmt.Sprintf("You've used %.0f%% of your monthly budget. Consider reducing expenses.", plan.Progress),
				CreatedAt: in.Now,
			})
		}
	}

	if len(monthCats) > 0 && monthTotal.Cents > concentrationCents {
		top := monthCats[0]
		share := float64(top.Total.Cents) / float64(monthTotal.Cents) * 100
		if share > concentrationShare {
			out = append(out, Alert{
				ID:        RuleCategorySpending,
				Severity:  SeverityInfo,
				Title:     "Spending Insight",
				Message:   fmt.Sprintf("%s accounts for %.0f%% of your spending this month. Consider diversifying your expenses.", top.Category, share),
				CreatedAt: in.Now,
			})
		}
	}

	week := analytics.TrailingDays(in.Expenses, in.Now, analytics.TrailingWeekDays)
	bills := 0
	for _, e := range week {
		if e.Category == core.CategoryBills {
			bills++
		}
	}
	if bills == 0 && len(month) > billActivityFloor {
		out = append(out, Alert{
			ID:        RuleBillReminder,
			Severity:  SeverityInfo,
			Title:     "Bill Reminder",
			Message:   "No bills recorded this week. Make sure all your bills are paid!",
			CreatedAt: in.Now,
		})
	}

	return out
}

// Engine holds the current alert set and its read-state.
type Engine struct {
	mu     sync.Mutex
	alerts []Alert
	unread int
}

func NewEngine() *Engine { return &Engine{} }

// Refresh replaces the alert set wholesale with a fresh evaluation of in.
// Read flags do not survive a refresh; that mirrors the reference behavior
// and is recorded as an open design question rather than silently changed.
func (e *Engine) Refresh(in Input) {
	fresh := Evaluate(in)
	e.mu.Lock()
	defer e.mu.Unlock()
	e.alerts = fresh
	e.unread = 0
	for _, a := range fresh {
		if !a.Read {
			e.unread++
		}
	}
}

// Alerts returns a copy of the current set in evaluation order.
func (e *Engine) Alerts() []Alert {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]Alert, len(e.alerts))
	copy(out, e.alerts)
	return out
}

// Unread returns the unread counter.
func (e *Engine) Unread() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.unread
}

// MarkRead flips the alert's read flag and decrements the unread counter,
// flooring it at zero. Unknown ids and already-read alerts are no-ops.
func (e *Engine) MarkRead(id string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	for i := range e.alerts {
		if e.alerts[i].ID != id {
			continue
		}
		if !e.alerts[i].Read {
			e.alerts[i].Read = true
			if e.unread > 0 {
				e.unread--
			}
		}
		return true
	}
	return false
}

// MarkAllRead flips every alert and zeroes the counter.
func (e *Engine) MarkAllRead() {
	e.mu.Lock()
	defer e.mu.Unlock()
	for i := range e.alerts {
		e.alerts[i].Read = true
	}
	e.unread = 0
}
