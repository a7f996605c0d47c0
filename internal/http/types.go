package http

import (
	"encoding/json"
	"time"

	"smartspend/internal/advice"
	"smartspend/internal/alerts"
	"smartspend/internal/analytics"
	"smartspend/internal/budget"
	"smartspend/internal/core"
	"smartspend/internal/engine"
)

// Wire shapes for the JSON API. Amounts cross the wire as decimal numbers;
// cents stay internal.

type expenseJSON struct {
	ID          string  `json:"id"`
	Description string  `json:"description"`
	Amount      float64 `json:"amount"`
	Category    string  `json:"category"`
	Date        string  `json:"date"`
	CreatedAt   string  `json:"createdAt"`
	UpdatedAt   string  `json:"updatedAt"`
}

func toExpenseJSON(e core.Expense) expenseJSON {
	return expenseJSON{
		ID:          e.ID,
		Description: e.Description,
		Amount:      e.Amount.Amount(),
		Category:    string(e.Category),
		Date:        e.Date.Format(time.RFC3339),
		CreatedAt:   e.CreatedAt.Format(time.RFC3339),
		UpdatedAt:   e.UpdatedAt.Format(time.RFC3339),
	}
}

func toExpenseListJSON(set []core.Expense) []expenseJSON {
	out := make([]expenseJSON, 0, len(set))
	for _, e := range set {
		out = append(out, toExpenseJSON(e))
	}
	return out
}

type expenseRequest struct {
	Description string      `json:"description"`
	Amount      json.Number `json:"amount"`
	Category    string      `json:"category"`
	Date        string      `json:"date"`
}

type categoryTotalJSON struct {
	Category string  `json:"category"`
	Total    float64 `json:"total"`
	Count    int     `json:"count"`
}

func toCategoryTotalsJSON(cats []analytics.CategoryTotal) []categoryTotalJSON {
	out := make([]categoryTotalJSON, 0, len(cats))
	for _, ct := range cats {
		out = append(out, categoryTotalJSON{
			Category: string(ct.Category),
			Total:    ct.Total.Amount(),
			Count:    ct.Count,
		})
	}
	return out
}

type monthBucketJSON struct {
	Year  int     `json:"year"`
	Month int     `json:"month"`
	Total float64 `json:"total"`
	Count int     `json:"count"`
}

type dayBucketJSON struct {
	Day   string  `json:"day"`
	Total float64 `json:"total"`
	Count int     `json:"count"`
}

func toDayBucketsJSON(days []analytics.DayBucket) []dayBucketJSON {
	out := make([]dayBucketJSON, 0, len(days))
	for _, d := range days {
		out = append(out, dayBucketJSON{
			Day:   d.Day.Format("2006-01-02"),
			Total: d.Total.Amount(),
			Count: d.Count,
		})
	}
	return out
}

type summaryJSON struct {
	Total         float64             `json:"total"`
	Count         int                 `json:"count"`
	Mean          float64             `json:"mean"`
	Categories    []categoryTotalJSON `json:"categories"`
	Months        []monthBucketJSON   `json:"months"`
	ThisMonth     monthSummaryJSON    `json:"thisMonth"`
	TrailingWeek  []dayBucketJSON     `json:"trailingWeek"`
	TrailingMonth []dayBucketJSON     `json:"trailingMonth"`
}

type monthSummaryJSON struct {
	Total      float64             `json:"total"`
	Count      int                 `json:"count"`
	Categories []categoryTotalJSON `json:"categories"`
}

func toSummaryJSON(s analytics.Summary) summaryJSON {
	months := make([]monthBucketJSON, 0, len(s.Months))
	for _, m := range s.Months {
		months = append(months, monthBucketJSON{
			Year:  m.Year,
			Month: int(m.Month),
			Total: m.Total.Amount(),
			Count: m.Count,
		})
	}
	return summaryJSON{
		Total:      s.Total.Amount(),
		Count:      s.Count,
		Mean:       s.Mean(),
		Categories: toCategoryTotalsJSON(s.Categories),
		Months:     months,
		ThisMonth: monthSummaryJSON{
			Total:      s.ThisMonth.Total.Amount(),
			Count:      s.ThisMonth.Count,
			Categories: toCategoryTotalsJSON(s.ThisMonth.Categories),
		},
		TrailingWeek:  toDayBucketsJSON(s.TrailingWeek),
		TrailingMonth: toDayBucketsJSON(s.TrailingMonth),
	}
}

type categoryPlanJSON struct {
	Category   string  `json:"category"`
	Allocation float64 `json:"allocation"`
	Target     float64 `json:"target"`
	Spent      float64 `json:"spent"`
	Progress   float64 `json:"progress"`
	Standing   string  `json:"standing"`
}

type planJSON struct {
	Income        float64            `json:"income"`
	Target        float64            `json:"target"`
	Spent         float64            `json:"spent"`
	Progress      float64            `json:"progress"`
	Standing      string             `json:"standing"`
	AllocationSum float64            `json:"allocationSum"`
	Advisory      string             `json:"advisory"`
	Categories    []categoryPlanJSON `json:"categories"`
}

func toPlanJSON(p budget.Plan) planJSON {
	cats := make([]categoryPlanJSON, 0, len(p.Categories))
	for _, cp := range p.Categories {
		cats = append(cats, categoryPlanJSON{
			Category:   string(cp.Category),
			Allocation: cp.Allocation,
			Target:     cp.Target.Amount(),
			Spent:      cp.Spent.Amount(),
			Progress:   cp.Progress,
			Standing:   string(cp.Standing),
		})
	}
	return planJSON{
		Income:        p.Income.Amount(),
		Target:        p.Target.Amount(),
		Spent:         p.Spent.Amount(),
		Progress:      p.Progress,
		Standing:      string(p.Standing),
		AllocationSum: p.AllocationSum,
		Advisory:      string(p.Advisory),
		Categories:    cats,
	}
}

type snapshotJSON struct {
	UserID      string        `json:"userId"`
	Expenses    []expenseJSON `json:"expenses"`
	Summary     summaryJSON   `json:"summary"`
	Plan        *planJSON     `json:"plan,omitempty"`
	GeneratedAt string        `json:"generatedAt"`
}

func toSnapshotJSON(snap engine.Snapshot, hasPlan bool) snapshotJSON {
	out := snapshotJSON{
		UserID:      snap.UserID,
		Expenses:    toExpenseListJSON(snap.Expenses),
		Summary:     toSummaryJSON(snap.Summary),
		GeneratedAt: snap.GeneratedAt.Format(time.RFC3339),
	}
	if hasPlan {
		plan := toPlanJSON(snap.Plan)
		out.Plan = &plan
	}
	return out
}

type alertJSON struct {
	ID        string `json:"id"`
	Severity  string `json:"severity"`
	Title     string `json:"title"`
	Message   string `json:"message"`
	CreatedAt string `json:"createdAt"`
	Read      bool   `json:"read"`
}

type alertsResponse struct {
	Alerts []alertJSON `json:"alerts"`
	Unread int         `json:"unread"`
}

func toAlertsJSON(set []alerts.Alert, unread int) alertsResponse {
	out := make([]alertJSON, 0, len(set))
	for _, a := range set {
		out = append(out, alertJSON{
			ID:        a.ID,
			Severity:  string(a.Severity),
			Title:     a.Title,
			Message:   a.Message,
			CreatedAt: a.CreatedAt.Format(time.RFC3339),
			Read:      a.Read,
		})
	}
	return alertsResponse{Alerts: out, Unread: unread}
}

type chatRequest struct {
	Message string               `json:"message"`
	History []advice.ChatMessage `json:"history"`
}

type chatResponse struct {
	Reply string `json:"reply"`
}

type budgetResponse struct {
	Configured bool          `json:"configured"`
	Config     budget.Config `json:"config"`
}
