package core

import (
	"errors"
	"strings"
	"time"
)

// Category is one of the fixed set of spending labels. Unknown input maps to
// CategoryOther on the read path; the mutation path rejects it instead.
type Category string

const (
	CategoryFood          Category = "Food"
	CategoryTransport     Category = "Transport"
	CategoryShopping      Category = "Shopping"
	CategoryBills         Category = "Bills"
	CategoryEntertainment Category = "Entertainment"
	CategoryHealth        Category = "Health"
	CategoryOther         Category = "Other"
)

// Expense is a single recorded transaction, already normalized.
type Expense struct {
	ID          string
	Description string
	Amount      Money
	Category    Category
	Date        time.Time
	OwnerID     string
	CreatedAt   time.Time
	UpdatedAt   time.Time // zero when the record was never updated
}

var (
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrUnknownCategory  = errors.New("unknown category")
	ErrInvalidDate      = errors.New("invalid date")
	ErrEmptyDescription = errors.New("empty description")
)

// Categories returns the closed category set in display order.
func Categories() []Category {
	return []Category{
		CategoryFood,
		CategoryTransport,
		CategoryShopping,
		CategoryBills,
		CategoryEntertainment,
		CategoryHealth,
		CategoryOther,
	}
}

func (c Category) String() string { return string(c) }

// Valid reports whether c belongs to the closed set.
func (c Category) Valid() bool {
	switch c {
	case CategoryFood, CategoryTransport, CategoryShopping, CategoryBills,
		CategoryEntertainment, CategoryHealth, CategoryOther:
		return true
	}
	return false
}

// ParseCategory maps raw input onto the closed set. Empty or unknown values
// default to CategoryOther; this is the read-path rule, never a failure.
func ParseCategory(s string) Category {
	c := Category(strings.TrimSpace(s))
	if c.Valid() {
		return c
	}
	return CategoryOther
}

// ParseCategoryStrict maps raw input onto the closed set, rejecting values
// outside it. This is the mutation-boundary rule.
func ParseCategoryStrict(s string) (Category, error) {
	c := Category(strings.TrimSpace(s))
	if !c.Valid() {
		return "", ErrUnknownCategory
	}
	return c, nil
}

// Validate checks the mutation-boundary invariants.
func (e Expense) Validate() error {
	if len(strings.TrimSpace(e.Description)) == 0 {
		return ErrEmptyDescription
	}
	if e.Amount.Cents <= 0 {
		return ErrInvalidAmount
	}
	if !e.Category.Valid() {
		return ErrUnknownCategory
	}
	if e.Date.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

// IsValidation reports whether err is one of the mutation-boundary
// validation failures, as opposed to a transport fault.
func IsValidation(err error) bool {
	return errors.Is(err, ErrInvalidAmount) ||
		errors.Is(err, ErrUnknownCategory) ||
		errors.Is(err, ErrInvalidDate) ||
		errors.Is(err, ErrEmptyDescription)
}

// SameMonth reports whether a and b fall in the same calendar year and month.
func SameMonth(a, b time.Time) bool {
	return a.Year() == b.Year() && a.Month() == b.Month()
}

// DayKey truncates t to its calendar day.
func DayKey(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
