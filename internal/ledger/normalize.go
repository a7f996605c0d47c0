package ledger

import (
	"encoding/json"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"smartspend/internal/core"
	"smartspend/internal/remote"
)

// Normalize converts one loosely typed remote record into a strongly typed
// Expense. Every read-path defaulting rule lives here and nowhere else:
// unparseable or missing dates become now, non-numeric amounts become 0 and
// unknown categories become Other. Dirty data is absorbed, never an error.
func Normalize(rec remote.Record, now time.Time) core.Expense {
	e := core.Expense{
		ID:          rec.ID,
		OwnerID:     rec.OwnerID,
		Description: rec.Description,
		Amount:      normalizeAmount(rec.Amount),
		Category:    core.ParseCategory(rec.Category),
		Date:        now,
	}
	if t, ok := parseTime(rec.Date); ok {
		e.Date = t
	}
	if t, ok := parseTime(rec.CreatedAt); ok {
		e.CreatedAt = t
	}
	if t, ok := parseTime(rec.UpdatedAt); ok {
		e.UpdatedAt = t
	}
	return e
}

// NormalizeAll normalizes a raw record batch and applies the ordering
// contract: a stable sort by date descending, regardless of any order the
// remote layer happened to return.
func NormalizeAll(recs []remote.Record, now time.Time) []core.Expense {
	out := make([]core.Expense, 0, len(recs))
	for _, rec := range recs {
		out = append(out, Normalize(rec, now))
	}
	SortByDateDesc(out)
	return out
}

// SortByDateDesc stable-sorts set by date descending; ties keep input order,
// so sorting an already-sorted set is a no-op.
func SortByDateDesc(set []core.Expense) {
	sort.SliceStable(set, func(i, j int) bool {
		return set[i].Date.After(set[j].Date)
	})
}

// parseTime handles the wire variants of a timestamp: a value exposing a
// conversion method, raw epoch seconds (bare or under a "seconds" key), an
// ISO-like string, or a native time value.
func parseTime(v any) (time.Time, bool) {
	switch t := v.(type) {
	case nil:
		return time.Time{}, false
	case interface{ Time() time.Time }:
		return t.Time(), true
	case time.Time:
		return t, !t.IsZero()
	case int64:
		return time.Unix(t, 0), true
	case int:
		return time.Unix(int64(t), 0), true
	case float64:
		return time.Unix(int64(t), 0), true
	case map[string]any:
		if s, ok := t["seconds"]; ok {
			return parseTime(s)
		}
		return time.Time{}, false
	case string:
		return parseDateString(t)
	}
	return time.Time{}, false
}

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

func parseDateString(s string) (time.Time, bool) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// normalizeAmount coerces the wire amount to Money; non-numeric or missing
// input normalizes to 0.
func normalizeAmount(v any) core.Money {
	switch a := v.(type) {
	case float64:
		return core.MoneyFromFloat(a)
	case int64:
		return core.Money{Cents: a * 100}
	case int:
		return core.Money{Cents: int64(a) * 100}
	case json.Number:
		return normalizeAmount(string(a))
	case string:
		d, err := decimal.NewFromString(a)
		if err != nil {
			return core.Money{}
		}
		return core.Money{Cents: d.Mul(decimal.NewFromInt(100)).Round(0).IntPart()}
	}
	return core.Money{}
}
