// Package analytics computes derived aggregates from a normalized expense
// set. Every function is pure: identical input yields identical output, which
// the budget and alert layers rely on.
//
// All accumulation happens in integer cents; two-decimal rounding is left to
// the display edge.
package analytics

import (
	"math"
	"sort"
	"time"

	"smartspend/internal/core"
)

// MonthlyBuckets is how many calendar-month buckets a Summary retains.
const MonthlyBuckets = 6

// Trailing window sizes used by the standard consumers.
const (
	TrailingWeekDays  = 7
	TrailingMonthDays = 30
)

// CategoryTotal is one category bucket, ranked within its Summary.
type CategoryTotal struct {
	Category core.Category
	Total    core.Money
	Count    int
}

// MonthBucket aggregates one calendar (year, month).
type MonthBucket struct {
	Year  int
	Month time.Month
	Total core.Money
	Count int
}

// DayBucket aggregates one calendar day inside a trailing window.
type DayBucket struct {
	Day   time.Time
	Total core.Money
	Count int
}

// MonthSummary covers only the expenses of the evaluation moment's calendar
// month. This is a distinct rule from the trailing-day windows.
type MonthSummary struct {
	Total      core.Money
	Count      int
	Categories []CategoryTotal
}

// Summary is the full aggregate view of one expense set at one evaluation
// moment.
type Summary struct {
	Total         core.Money
	Count         int
	Categories    []CategoryTotal // ranked by total descending, ties stable
	Months        []MonthBucket   // most recent MonthlyBuckets, oldest first
	ThisMonth     MonthSummary
	TrailingWeek  []DayBucket
	TrailingMonth []DayBucket
}

// Summarize computes the Summary of set evaluated at now.
func Summarize(set []core.Expense, now time.Time) Summary {
	cats, total := CategoryTotals(set)
	month := set[:0:0]
	month = append(month, ThisMonth(set, now)...)
	monthCats, monthTotal := CategoryTotals(month)
	return Summary{
		Total:      total,
		Count:      len(set),
		Categories: cats,
		Months:     MonthBuckets(set, MonthlyBuckets),
		ThisMonth: MonthSummary{
			Total:      monthTotal,
			Count:      len(month),
			Categories: monthCats,
		},
		TrailingWeek:  DayBuckets(set, now, TrailingWeekDays),
		TrailingMonth: DayBuckets(set, now, TrailingMonthDays),
	}
}

// Mean returns the mean transaction value as a display float, 0 when the set
// is empty.
func (s Summary) Mean() float64 {
	if s.Count == 0 {
		return 0
	}
	return float64(s.Total.Cents) / float64(s.Count) / 100.0
}

// Top returns the first n ranked categories (fewer when the set is small).
func (s Summary) Top(n int) []CategoryTotal {
	if n > len(s.Categories) {
		n = len(s.Categories)
	}
	return s.Categories[:n]
}

// CategoryTotals buckets set by category and returns the buckets ranked by
// total descending plus the overall total. Ties keep first-encounter order,
// so the ranking is deterministic for identical input. The bucket totals sum
// to the overall total exactly.
func CategoryTotals(set []core.Expense) ([]CategoryTotal, core.Money) {
	idx := make(map[core.Category]int)
	var out []CategoryTotal
	var total core.Money
	for _, e := range set {
		i, ok := idx[e.Category]
		if !ok {
			i = len(out)
			idx[e.Category] = i
			out = append(out, CategoryTotal{Category: e.Category})
		}
		out[i].Total = out[i].Total.Add(e.Amount)
		out[i].Count++
		total = total.Add(e.Amount)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Total.Cents > out[j].Total.Cents
	})
	return out, total
}

// ThisMonth filters set down to the evaluation moment's calendar month.
func ThisMonth(set []core.Expense, now time.Time) []core.Expense {
	var out []core.Expense
	for _, e := range set {
		if core.SameMonth(e.Date, now) {
			out = append(out, e)
		}
	}
	return out
}

// TrailingDays filters set down to the window of the last n calendar days: an
// expense is a member when floor(now - date, days) lies in [0, n).
func TrailingDays(set []core.Expense, now time.Time, n int) []core.Expense {
	var out []core.Expense
	for _, e := range set {
		if windowDay(now, e.Date, n) >= 0 {
			out = append(out, e)
		}
	}
	return out
}

// MonthBuckets groups set by calendar (year, month) and keeps the most recent
// `keep` buckets, oldest first.
func MonthBuckets(set []core.Expense, keep int) []MonthBucket {
	type key struct {
		y int
		m time.Month
	}
	idx := make(map[key]int)
	var out []MonthBucket
	for _, e := range set {
		k := key{e.Date.Year(), e.Date.Month()}
		i, ok := idx[k]
		if !ok {
			i = len(out)
			idx[k] = i
			out = append(out, MonthBucket{Year: k.y, Month: k.m})
		}
		out[i].Total = out[i].Total.Add(e.Amount)
		out[i].Count++
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Year != out[j].Year {
			return out[i].Year < out[j].Year
		}
		return out[i].Month < out[j].Month
	})
	if len(out) > keep {
		out = out[len(out)-keep:]
	}
	return out
}

// DayBuckets groups the trailing n-day window by calendar day, oldest first.
func DayBuckets(set []core.Expense, now time.Time, n int) []DayBucket {
	idx := make(map[time.Time]int)
	var out []DayBucket
	for _, e := range set {
		if windowDay(now, e.Date, n) < 0 {
			continue
		}
		day := core.DayKey(e.Date)
		i, ok := idx[day]
		if !ok {
			i = len(out)
			idx[day] = i
			out = append(out, DayBucket{Day: day})
		}
		out[i].Total = out[i].Total.Add(e.Amount)
		out[i].Count++
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Day.Before(out[j].Day) })
	return out
}

// windowDay returns floor(now - date, days) when it lies in [0, n), else -1.
func windowDay(now, date time.Time, n int) int {
	d := int(math.Floor(now.Sub(date).Hours() / 24))
	if d < 0 || d >= n {
		return -1
	}
	return d
}
