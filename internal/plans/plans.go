package plans

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
)

// Type identifies a subscription plan.
type Type string

// Frequency describes how often a plan delivers.
type Frequency string

const (
	Weekly   Type = "weekly"
	Biweekly Type = "biweekly"
	Monthly  Type = "monthly"
)

const (
	FrequencyWeekly   Frequency = "weekly"
	FrequencyBiweekly Frequency = "biweekly"
	FrequencyMonthly  Frequency = "monthly"
)

var (
	// ErrUnknownPlan is returned when a plan type is not present in the table.
	ErrUnknownPlan = errors.New("plans: unknown plan type")
	// ErrInvalidPlan reports a plan entry with an out-of-range price or discount.
	ErrInvalidPlan = errors.New("plans: invalid plan entry")
)

// Plan is read-only configuration: what a subscriber pays per cycle and the
// percentage taken off custom package items.
type Plan struct {
	Type            Type      `json:"type"`
	Price           float64   `json:"price"`
	ProductDiscount float64   `json:"productDiscount"`
	Frequency       Frequency `json:"frequency"`
}

// RequiredDays returns how many delivery days the plan needs selected.
func (p Plan) RequiredDays() int {
	return RequiredDays(p.Frequency)
}

// RequiredDays maps a delivery frequency to the exact number of days a
// customer selects. Unknown frequencies need a single day.
func RequiredDays(f Frequency) int {
	switch f {
	case FrequencyWeekly:
		return 4
	case FrequencyBiweekly:
		return 2
	case FrequencyMonthly:
		return 1
	default:
		return 1
	}
}

// ParseType normalises user input into a plan type.
func ParseType(raw string) (Type, error) {
	switch Type(strings.ToLower(strings.TrimSpace(raw))) {
	case Weekly:
		return Weekly, nil
	case Biweekly:
		return Biweekly, nil
	case Monthly:
		return Monthly, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownPlan, raw)
	}
}

// FrequencyOf returns the delivery frequency implied by the plan type.
func FrequencyOf(t Type) Frequency {
	switch t {
	case Weekly:
		return FrequencyWeekly
	case Biweekly:
		return FrequencyBiweekly
	case Monthly:
		return FrequencyMonthly
	default:
		return ""
	}
}

// Table is the static plan lookup keyed by plan type.
type Table map[Type]Plan

// DefaultTable returns the built-in plan pricing.
func DefaultTable() Table {
	return Table{
		Weekly:   {Type: Weekly, Price: 25, ProductDiscount: 15, Frequency: FrequencyWeekly},
		Biweekly: {Type: Biweekly, Price: 45, ProductDiscount: 10, Frequency: FrequencyBiweekly},
		Monthly:  {Type: Monthly, Price: 80, ProductDiscount: 5, Frequency: FrequencyMonthly},
	}
}

// Lookup returns the plan for t.
func (t Table) Lookup(planType Type) (Plan, error) {
	p, ok := t[planType]
	if !ok {
		return Plan{}, fmt.Errorf("%w: %q", ErrUnknownPlan, planType)
	}
	return p, nil
}

// With returns a copy of the table with price and discount replaced for planType.
func (t Table) With(planType Type, price, discount float64) Table {
	out := make(Table, len(t)+1)
	for k, v := range t {
		out[k] = v
	}
	p := out[planType]
	p.Type = planType
	p.Frequency = FrequencyOf(planType)
	p.Price = price
	p.ProductDiscount = discount
	out[planType] = p
	return out
}

// Validate checks every entry for a finite non-negative price and a 0-100
// discount. NaN fails both comparisons.
func (t Table) Validate() error {
	for k, p := range t {
		if !(p.Price >= 0) || math.IsInf(p.Price, 1) {
			return fmt.Errorf("%w: %s price %v is not a finite non-negative amount", ErrInvalidPlan, k, p.Price)
		}
		if !(p.ProductDiscount >= 0 && p.ProductDiscount <= 100) {
			return fmt.Errorf("%w: %s discount %v outside 0-100", ErrInvalidPlan, k, p.ProductDiscount)
		}
		if p.Frequency == "" {
			return fmt.Errorf("%w: %s has no frequency", ErrInvalidPlan, k)
		}
	}
	return nil
}

// List returns the plans ordered from most to least frequent delivery.
func (t Table) List() []Plan {
	out := make([]Plan, 0, len(t))
	for _, p := range t {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		return RequiredDays(out[i].Frequency) > RequiredDays(out[j].Frequency)
	})
	return out
}
