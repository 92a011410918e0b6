package pricing

import (
	"errors"
	"fmt"
	"math"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-tani/internal/plans"
)

// PackageType distinguishes farm-curated packages from customer-built ones.
type PackageType string

const (
	Premade PackageType = "premade"
	Custom  PackageType = "custom"
)

// LineItem is one product entry within a package. Price is the scaled price
// for the whole quantity, never a per-unit price.
type LineItem struct {
	Name     string  `json:"name"`
	Quantity string  `json:"quantity"`
	Price    float64 `json:"price"`
}

// Package is the selected-package record produced upstream of checkout.
type Package struct {
	Type  PackageType `json:"type"`
	Plan  plans.Type  `json:"plan"`
	Items []LineItem  `json:"items,omitempty"`
}

// Line is a line item with its subscription-discounted price.
type Line struct {
	Name            string  `json:"name"`
	Quantity        string  `json:"quantity"`
	Price           float64 `json:"price"`
	DiscountedPrice float64 `json:"discountedPrice"`
}

// Summary aggregates computed order components.
type Summary struct {
	Plan                 plans.Type  `json:"plan"`
	PackageType          PackageType `json:"packageType"`
	PlanPrice            float64     `json:"planPrice"`
	DiscountPercentage   float64     `json:"discountPercentage"`
	ItemsTotal           float64     `json:"itemsTotal"`
	Savings              float64     `json:"savings"`
	DiscountedItemsTotal float64     `json:"discountedItemsTotal"`
	ItemsCharged         bool        `json:"itemsCharged"`
	Total                float64     `json:"total"`
	Lines                []Line      `json:"lines"`
}

// MaxAmount bounds every item price and items total the engine accepts.
const MaxAmount = 1e9

// ErrAmountOutOfRange reports a price or total that is not a finite amount
// within MaxAmount.
var ErrAmountOutOfRange = errors.New("pricing: amount out of range")

// CheckAmount accepts finite amounts no larger than MaxAmount. Negative
// amounts pass; the engine counts them as zero.
func CheckAmount(v float64) error {
	if math.IsNaN(v) || v > MaxAmount || math.IsInf(v, -1) {
		return fmt.Errorf("%w: %v", ErrAmountOutOfRange, v)
	}
	return nil
}

// CheckItems validates each item price and the items total.
func CheckItems(items []LineItem) error {
	for _, it := range items {
		if err := CheckAmount(it.Price); err != nil {
			return fmt.Errorf("item %q: %w", it.Name, err)
		}
	}
	return CheckAmount(ItemsTotal(items))
}

// ItemsTotal sums item prices. Negative prices count as zero.
func ItemsTotal(items []LineItem) float64 {
	var total float64
	for _, it := range items {
		if it.Price <= 0 {
			continue
		}
		total += it.Price
	}
	return total
}

// Savings is the subscription discount taken off itemsTotal.
func Savings(itemsTotal, discountPercentage float64) float64 {
	return itemsTotal * discountPercentage / 100
}

// Compute derives the order summary at full precision. Callers round once
// with Rounded before display.
func Compute(plan plans.Plan, pkg Package) Summary {
	itemsTotal := ItemsTotal(pkg.Items)
	s := Summary{
		Plan:               plan.Type,
		PackageType:        pkg.Type,
		PlanPrice:          plan.Price,
		DiscountPercentage: plan.ProductDiscount,
		ItemsTotal:         itemsTotal,
		Lines:              make([]Line, 0, len(pkg.Items)),
	}
	charged := pkg.Type == Custom
	for _, it := range pkg.Items {
		price := it.Price
		if price < 0 {
			price = 0
		}
		discounted := price
		if charged {
			discounted = price - Savings(price, plan.ProductDiscount)
		}
		s.Lines = append(s.Lines, Line{Name: it.Name, Quantity: it.Quantity, Price: price, DiscountedPrice: discounted})
	}
	if !charged {
		s.Total = plan.Price
		return s
	}
	s.ItemsCharged = true
	s.Savings = Savings(itemsTotal, plan.ProductDiscount)
	s.DiscountedItemsTotal = itemsTotal - s.Savings
	s.Total = plan.Price + s.DiscountedItemsTotal
	return s
}

// Rounded returns a copy with every currency field rounded to two decimals.
func (s Summary) Rounded() Summary {
	out := s
	out.PlanPrice = Round2(s.PlanPrice)
	out.ItemsTotal = Round2(s.ItemsTotal)
	out.Savings = Round2(s.Savings)
	out.DiscountedItemsTotal = Round2(s.DiscountedItemsTotal)
	out.Total = Round2(s.Total)
	out.Lines = make([]Line, len(s.Lines))
	for i, l := range s.Lines {
		l.Price = Round2(l.Price)
		l.DiscountedPrice = Round2(l.DiscountedPrice)
		out.Lines[i] = l
	}
	return out
}

// Round2 rounds half away from zero to two decimal places. Non-finite
// values are returned unchanged.
func Round2(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	f, _ := decimal.NewFromFloat(v).Round(2).Float64()
	return f
}
