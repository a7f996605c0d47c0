package advice

import (
	"context"
	"strings"
	"testing"
	"time"

	"smartspend/internal/analytics"
	"smartspend/internal/core"
)

var now = time.Date(2026, time.June, 15, 12, 0, 0, 0, time.UTC)

func sampleSet() []core.Expense {
	return []core.Expense{
		{Description: "rent", Amount: core.Money{Cents: 1500_00}, Category: core.CategoryBills, Date: now.AddDate(0, 0, -10)},
		{Description: "lunch", Amount: core.Money{Cents: 12_50}, Category: core.CategoryFood, Date: now.AddDate(0, 0, -1)},
	}
}

func TestFallbackKeywordRouting(t *testing.T) {
	summary := analytics.Summarize(sampleSet(), now)

	cases := []struct {
		message string
		want    string
	}{
		{"What's my biggest expense category?", "Bills"},
		{"How can I save more?", "savings tips"},
		{"Create a monthly budget", "Suggested Monthly Budget"},
		{"Show me my spending trends", "Spending Analysis"},
		{"hello", "I can help you with"},
	}
	for _, tc := range cases {
		got := Fallback(tc.message, summary)
		if !strings.Contains(got, tc.want) {
			t.Fatalf("%q: expected %q in response, got %q", tc.message, tc.want, got)
		}
	}
}

func TestFallbackDeterministic(t *testing.T) {
	summary := analytics.Summarize(sampleSet(), now)
	a := Fallback("biggest category", summary)
	b := Fallback("biggest category", summary)
	if a != b {
		t.Fatal("fallback must be deterministic for identical input")
	}
}

func TestFallbackEmptyLedger(t *testing.T) {
	summary := analytics.Summarize(nil, now)
	got := Fallback("what is my biggest expense?", summary)
	if !strings.Contains(got, "N/A") {
		t.Fatalf("empty ledger should degrade gracefully, got %q", got)
	}
}

func TestSpendingContext(t *testing.T) {
	summary := analytics.Summarize(sampleSet(), now)
	ctx := spendingContext(summary, spanDays(sampleSet()))

	for _, want := range []string{"1512.50", "Bills", "9 day(s)", "Number of Transactions: 2"} {
		if !strings.Contains(ctx, want) {
			t.Fatalf("expected %q in context, got %q", want, ctx)
		}
	}
}

func TestSpanDays(t *testing.T) {
	if got := spanDays(nil); got != 1 {
		t.Fatalf("empty set should span 1 day, got %d", got)
	}
	sameDay := []core.Expense{{Date: now}, {Date: now.Add(time.Hour)}}
	if got := spanDays(sameDay); got != 1 {
		t.Fatalf("same-day set should span 1 day, got %d", got)
	}
	if got := spanDays(sampleSet()); got != 9 {
		t.Fatalf("expected span 9, got %d", got)
	}
}

func TestChatWithoutAPIKeyUsesFallbackAndCache(t *testing.T) {
	c := NewClient("", "gemini-2.5-flash", time.Minute)
	c.clock = func() time.Time { return now }

	first := c.Chat(context.Background(), "How can I save more?", nil, sampleSet())
	if !strings.Contains(first, "savings tips") {
		t.Fatalf("expected fallback response, got %q", first)
	}
	if c.Cache().Size() != 1 {
		t.Fatalf("response not cached, size=%d", c.Cache().Size())
	}

	second := c.Chat(context.Background(), "How can I save more?", nil, sampleSet())
	if first != second {
		t.Fatal("cached question returned a different answer")
	}
	if c.Cache().Size() != 1 {
		t.Fatalf("cache grew on identical question, size=%d", c.Cache().Size())
	}
}

func TestCacheKeyTracksLedgerState(t *testing.T) {
	a := cacheKey("save", nil, analytics.Summarize(sampleSet(), now))
	b := cacheKey("save", nil, analytics.Summarize(nil, now))
	if a == b {
		t.Fatal("a changed ledger must miss the cache")
	}
	c := cacheKey(" SAVE ", nil, analytics.Summarize(sampleSet(), now))
	if a != c {
		t.Fatal("message normalization should fold case and whitespace")
	}
}
