// Package advice produces spending advice from ledger aggregates, backed by
// the Gemini API with a deterministic local fallback.
package advice

import (
	"fmt"
	"strings"
	"time"

	"smartspend/internal/analytics"
	"smartspend/internal/core"
)

// ChatMessage is one turn of an advice conversation.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// historyWindow bounds how many prior turns are sent upstream.
const historyWindow = 6

// spendingContext renders the aggregate view the model is primed with.
func spendingContext(summary analytics.Summary, span int) string {
	var breakdown []string
	for _, ct := range summary.Top(5) {
		breakdown = append(breakdown, fmt.Sprintf("%s: %s", ct.Category, ct.Total))
	}
	topCategory := "N/A"
	if len(summary.Categories) > 0 {
		topCategory = string(summary.Categories[0].Category)
	}
	categories := strings.Join(breakdown, ", ")
	if categories == "" {
		categories = "No expenses yet"
	}

	return fmt.Sprintf(`You are a friendly and expert personal finance advisor. Your responses should be:
- Conversational and approachable
- Actionable with specific advice
- Encouraging and supportive
- Keep responses concise but informative (2-4 paragraphs max)

**User's Current Financial Data:**
- Total Expenses: %s
- Number of Transactions: %d
- Average Transaction: %.2f
- Time Period: %d day(s)
- Top Spending Categories: %s
- Top Category: %s`,
		summary.Total, summary.Count, summary.Mean(), span, categories, topCategory)
}

// spanDays returns the whole-day distance between the oldest and newest
// expense, never less than one day.
func spanDays(set []core.Expense) int {
	if len(set) == 0 {
		return 1
	}
	oldest, newest := set[0].Date, set[0].Date
	for _, e := range set[1:] {
		if e.Date.Before(oldest) {
			oldest = e.Date
		}
		if e.Date.After(newest) {
			newest = e.Date
		}
	}
	days := int(newest.Sub(oldest) / (24 * time.Hour))
	if days < 1 {
		return 1
	}
	return days
}
