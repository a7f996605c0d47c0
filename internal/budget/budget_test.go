package budget

import (
	"encoding/json"
	"testing"

	"smartspend/internal/analytics"
	"smartspend/internal/core"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		progress float64
		want     Standing
	}{
		{0, StandingOnTrack},
		{79.9, StandingOnTrack},
		{80, StandingNearLimit},
		{99.9, StandingNearLimit},
		{100, StandingOverBudget},
	}
	for _, tc := range cases {
		if got := Classify(tc.progress); got != tc.want {
			t.Fatalf("%v expected %s, got %s", tc.progress, tc.want, got)
		}
	}
}

func TestClamp(t *testing.T) {
	cfg := Config{
		MonthlyIncome: core.Money{Cents: -100},
		Allocations: map[core.Category]float64{
			core.CategoryFood:  -10,
			core.CategoryBills: 150,
			core.CategoryOther: 40,
		},
	}
	out := cfg.Clamp()
	if out.MonthlyIncome.Cents != 0 {
		t.Fatalf("negative income should clamp to 0, got %d", out.MonthlyIncome.Cents)
	}
	if out.Allocations[core.CategoryFood] != 0 {
		t.Fatalf("negative allocation should clamp to 0, got %v", out.Allocations[core.CategoryFood])
	}
	if out.Allocations[core.CategoryBills] != 100 {
		t.Fatalf("oversized allocation should clamp to 100, got %v", out.Allocations[core.CategoryBills])
	}
	if out.Allocations[core.CategoryOther] != 40 {
		t.Fatalf("in-range allocation changed, got %v", out.Allocations[core.CategoryOther])
	}
}

func TestAllocationSumIsAdvisoryOnly(t *testing.T) {
	cfg := Config{
		MonthlyIncome: core.Money{Cents: 100_000_00},
		Allocations: map[core.Category]float64{
			core.CategoryFood:  90,
			core.CategoryBills: 90,
		},
	}
	if got := cfg.AllocationSum(); got != 180 {
		t.Fatalf("expected sum 180, got %v", got)
	}
	plan := Build(cfg, nil, core.Money{})
	if plan.Advisory != AdvisoryOver {
		t.Fatalf("expected over advisory, got %s", plan.Advisory)
	}
	// Allocations stay as entered, never normalized.
	for _, cp := range plan.Categories {
		if cp.Allocation != 90 {
			t.Fatalf("allocation normalized: %+v", cp)
		}
	}
}

func TestBuildOverBudget(t *testing.T) {
	cfg := Config{
		MonthlyIncome: core.Money{Cents: 50_000_00},
		Allocations:   map[core.Category]float64{core.CategoryFood: 50},
	}
	monthCats := []analytics.CategoryTotal{
		{Category: core.CategoryFood, Total: core.Money{Cents: 30_000_00}, Count: 3},
	}
	plan := Build(cfg, monthCats, core.Money{Cents: 30_000_00})

	if plan.Target.Cents != 25_000_00 {
		t.Fatalf("expected aggregate target 25000.00, got %s", plan.Target)
	}
	if plan.Progress != 100 {
		t.Fatalf("progress should clamp at 100, got %v", plan.Progress)
	}
	if plan.Standing != StandingOverBudget {
		t.Fatalf("expected over-budget, got %s", plan.Standing)
	}
	if plan.Overage().Cents != 5_000_00 {
		t.Fatalf("expected overage 5000.00, got %s", plan.Overage())
	}

	if len(plan.Categories) != 1 {
		t.Fatalf("expected one category line, got %d", len(plan.Categories))
	}
	food := plan.Categories[0]
	if food.Target.Cents != 25_000_00 || food.Progress != 100 || food.Standing != StandingOverBudget {
		t.Fatalf("unexpected category line: %+v", food)
	}
}

func TestBuildWarningBand(t *testing.T) {
	cfg := Config{
		MonthlyIncome: core.Money{Cents: 1000_00},
		Allocations:   map[core.Category]float64{core.CategoryFood: 100},
	}
	plan := Build(cfg,
		[]analytics.CategoryTotal{{Category: core.CategoryFood, Total: core.Money{Cents: 850_00}}},
		core.Money{Cents: 850_00})
	if plan.Progress != 85 {
		t.Fatalf("expected progress 85, got %v", plan.Progress)
	}
	if plan.Standing != StandingNearLimit {
		t.Fatalf("expected near-limit, got %s", plan.Standing)
	}
	if plan.Overage().Cents != 0 {
		t.Fatalf("no overage under target, got %s", plan.Overage())
	}
}

func TestBuildZeroTargetProgressIsZero(t *testing.T) {
	cfg := Config{
		MonthlyIncome: core.Money{Cents: 1000_00},
		Allocations:   map[core.Category]float64{core.CategoryFood: 0},
	}
	plan := Build(cfg,
		[]analytics.CategoryTotal{{Category: core.CategoryFood, Total: core.Money{Cents: 10_00}}},
		core.Money{Cents: 10_00})
	if plan.Categories[0].Progress != 0 {
		t.Fatalf("zero target should yield 0 progress, got %v", plan.Categories[0].Progress)
	}
	if plan.Progress != 0 {
		t.Fatalf("zero aggregate target should yield 0 progress, got %v", plan.Progress)
	}
}

func TestBuildSkipsUnallocatedCategories(t *testing.T) {
	cfg := Config{
		MonthlyIncome: core.Money{Cents: 1000_00},
		Allocations:   map[core.Category]float64{core.CategoryBills: 30},
	}
	plan := Build(cfg,
		[]analytics.CategoryTotal{{Category: core.CategoryFood, Total: core.Money{Cents: 500_00}}},
		core.Money{Cents: 500_00})
	if len(plan.Categories) != 1 || plan.Categories[0].Category != core.CategoryBills {
		t.Fatalf("only allocated categories should appear: %+v", plan.Categories)
	}
}

func TestConfigured(t *testing.T) {
	if (Config{}).Configured() {
		t.Fatal("zero income must read as not configured")
	}
	if !(Config{MonthlyIncome: core.Money{Cents: 1}}).Configured() {
		t.Fatal("positive income must read as configured")
	}
}

func TestConfigJSONShape(t *testing.T) {
	cfg := Config{
		MonthlyIncome: core.Money{Cents: 50_000_00},
		Allocations:   map[core.Category]float64{core.CategoryFood: 50},
	}
	data, err := json.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("unmarshal raw: %v", err)
	}
	if raw["monthlyIncome"] != 50000.0 {
		t.Fatalf("expected monthlyIncome 50000, got %v", raw["monthlyIncome"])
	}

	var back Config
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if back.MonthlyIncome.Cents != cfg.MonthlyIncome.Cents {
		t.Fatalf("income round trip lost precision: %d", back.MonthlyIncome.Cents)
	}
	if back.Allocations[core.CategoryFood] != 50 {
		t.Fatalf("allocations round trip failed: %+v", back.Allocations)
	}
}

func TestConfigJSONUnknownCategoryFoldsToOther(t *testing.T) {
	var cfg Config
	if err := json.Unmarshal([]byte(`{"monthlyIncome":100,"allocations":{"Groceries":25}}`), &cfg); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if cfg.Allocations[core.CategoryOther] != 25 {
		t.Fatalf("unknown category should fold to Other: %+v", cfg.Allocations)
	}
}
