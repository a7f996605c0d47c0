// Package budget turns a user's budget configuration and this-month category
// totals into spend targets, progress and classifications.
package budget

import (
	"encoding/json"

	"github.com/shopspring/decimal"

	"smartspend/internal/analytics"
	"smartspend/internal/core"
)

// Classification boundaries. Progress at or past the limit is over budget;
// the warning band starts at 80 percent.
const (
	OverBudgetAt = 100.0
	NearLimitAt  = 80.0
)

// Config is the per-user budget configuration. A zero MonthlyIncome means
// "not configured". Allocations hold percent values; Clamp forces each into
// [0,100] but the sum is advisory only and never normalized.
type Config struct {
	MonthlyIncome core.Money
	Allocations   map[core.Category]float64
}

type configJSON struct {
	MonthlyIncome float64            `json:"monthlyIncome"`
	Allocations   map[string]float64 `json:"allocations"`
}

func (c Config) MarshalJSON() ([]byte, error) {
	out := configJSON{
		MonthlyIncome: c.MonthlyIncome.Amount(),
		Allocations:   make(map[string]float64, len(c.Allocations)),
	}
	for cat, pct := range c.Allocations {
		out.Allocations[cat.String()] = pct
	}
	return json.Marshal(out)
}

func (c *Config) UnmarshalJSON(data []byte) error {
	var in configJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	c.MonthlyIncome = core.MoneyFromFloat(in.MonthlyIncome)
	c.Allocations = make(map[core.Category]float64, len(in.Allocations))
	for name, pct := range in.Allocations {
		c.Allocations[core.ParseCategory(name)] = pct
	}
	return nil
}

// Configured reports whether the user has set an income.
func (c Config) Configured() bool { return c.MonthlyIncome.Cents > 0 }

// Clamp returns a copy with every allocation forced into [0,100]. Applied on
// every write path; read paths can assume clamped input.
func (c Config) Clamp() Config {
	out := Config{MonthlyIncome: c.MonthlyIncome}
	if c.MonthlyIncome.Cents < 0 {
		out.MonthlyIncome = core.Money{}
	}
	out.Allocations = make(map[core.Category]float64, len(c.Allocations))
	for cat, pct := range c.Allocations {
		if pct < 0 {
			pct = 0
		}
		if pct > 100 {
			pct = 100
		}
		out.Allocations[cat] = pct
	}
	return out
}

// AllocationSum is the plain sum of all allocation percents.
func (c Config) AllocationSum() float64 {
	var sum float64
	for _, pct := range c.Allocations {
		sum += pct
	}
	return sum
}

// Advisory indicates how the allocation sum relates to 100 percent.
type Advisory string

const (
	AdvisoryUnder    Advisory = "under"
	AdvisoryBalanced Advisory = "balanced"
	AdvisoryOver     Advisory = "over"
)

// Standing classifies budget progress.
type Standing string

const (
	StandingOnTrack    Standing = "on-track"
	StandingNearLimit  Standing = "near-limit"
	StandingOverBudget Standing = "over-budget"
)

// Classify maps a progress percentage onto its standing.
func Classify(progress float64) Standing {
	switch {
	case progress >= OverBudgetAt:
		return StandingOverBudget
	case progress >= NearLimitAt:
		return StandingNearLimit
	default:
		return StandingOnTrack
	}
}

// CategoryPlan is the budget-vs-actual line for one category.
type CategoryPlan struct {
	Category   core.Category
	Allocation float64
	Target     core.Money
	Spent      core.Money
	Progress   float64
	Standing   Standing
}

// Plan is the full budget-vs-actual view for one month.
type Plan struct {
	Income        core.Money
	Target        core.Money
	Spent         core.Money
	Progress      float64
	Standing      Standing
	AllocationSum float64
	Advisory      Advisory
	Categories    []CategoryPlan
}

// Overage returns how far spending exceeds the aggregate target, zero when
// within budget.
func (p Plan) Overage() core.Money {
	if p.Spent.Cents <= p.Target.Cents {
		return core.Money{}
	}
	return p.Spent.Sub(p.Target)
}

var d100 = decimal.NewFromInt(100)

// Build combines a clamped Config with this-month category totals into a
// Plan. Targets are derived from income and percents in full precision; the
// aggregate target comes from the percent sum, never from summing rounded
// per-category targets.
func Build(cfg Config, monthCats []analytics.CategoryTotal, monthTotal core.Money) Plan {
	cfg = cfg.Clamp()
	spentBy := make(map[core.Category]core.Money, len(monthCats))
	for _, ct := range monthCats {
		spentBy[ct.Category] = ct.Total
	}

	plan := Plan{
		Income:        cfg.MonthlyIncome,
		Spent:         monthTotal,
		AllocationSum: cfg.AllocationSum(),
	}
	switch {
	case plan.AllocationSum < 100:
		plan.Advisory = AdvisoryUnder
	case plan.AllocationSum > 100:
		plan.Advisory = AdvisoryOver
	default:
		plan.Advisory = AdvisoryBalanced
	}

	for _, cat := range core.Categories() {
		pct, ok := cfg.Allocations[cat]
		if !ok {
			continue
		}
		target := targetFor(cfg.MonthlyIncome, pct)
		spent := spentBy[cat]
		progress := progressFor(spent, target)
		plan.Categories = append(plan.Categories, CategoryPlan{
			Category:   cat,
			Allocation: pct,
			Target:     target,
			Spent:      spent,
			Progress:   progress,
			Standing:   Classify(progress),
		})
	}

	plan.Target = targetFor(cfg.MonthlyIncome, plan.AllocationSum)
	plan.Progress = progressFor(plan.Spent, plan.Target)
	plan.Standing = Classify(plan.Progress)
	return plan
}

func targetFor(income core.Money, pct float64) core.Money {
	cents := decimal.NewFromInt(income.Cents).
		Mul(decimal.NewFromFloat(pct)).
		Div(d100).
		Round(0).
		IntPart()
	return core.Money{Cents: cents}
}

// progressFor is clamp(spent/target*100, 0, 100), and exactly 0 for an empty
// target so there is never a division by zero.
func progressFor(spent, target core.Money) float64 {
	if target.Cents <= 0 {
		return 0
	}
	p := float64(spent.Cents) / float64(target.Cents) * 100
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}
