package packages

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/noah-isme/backend-tani/internal/pricing"
	"github.com/noah-isme/backend-tani/internal/units"
)

// MaxMultiplier caps how many base units of one product a line may hold.
const MaxMultiplier = 999

var (
	// ErrInvalidMultiplier is returned when a multiplier falls outside 1..MaxMultiplier.
	ErrInvalidMultiplier = errors.New("packages: multiplier out of range")
	// ErrInvalidProduct is returned for products without a name or with a
	// price that is negative or beyond pricing.MaxAmount.
	ErrInvalidProduct = errors.New("packages: invalid product")
	// ErrItemNotFound is returned when removing an index outside the draft.
	ErrItemNotFound = errors.New("packages: item not found")
)

// Product is a farm listing as supplied by the catalog.
type Product struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Price    float64 `json:"price"`
	Unit     string  `json:"unit"`
	Category string  `json:"category"`
	Organic  bool    `json:"organic"`
}

// NewLineItem scales a product by multiplier base units.
func NewLineItem(p Product, multiplier int) (pricing.LineItem, error) {
	if multiplier < 1 || multiplier > MaxMultiplier {
		return pricing.LineItem{}, fmt.Errorf("%w: %d", ErrInvalidMultiplier, multiplier)
	}
	name := strings.TrimSpace(p.Name)
	if name == "" {
		return pricing.LineItem{}, fmt.Errorf("%w: name is required", ErrInvalidProduct)
	}
	if math.IsNaN(p.Price) || p.Price < 0 {
		return pricing.LineItem{}, fmt.Errorf("%w: price must not be negative", ErrInvalidProduct)
	}
	price := units.CalculatePrice(p.Unit, p.Price, multiplier)
	if err := pricing.CheckAmount(price); err != nil {
		return pricing.LineItem{}, fmt.Errorf("%w: %w", ErrInvalidProduct, err)
	}
	qty, ok := units.ScaleQuantity(p.Unit, multiplier)
	if !ok {
		return pricing.LineItem{}, fmt.Errorf("%w: %d", ErrInvalidMultiplier, multiplier)
	}
	return pricing.LineItem{
		Name:     name,
		Quantity: qty.String(),
		Price:    price,
	}, nil
}

// Draft is a package being authored. Items are immutable once added; they
// can only be removed.
type Draft struct {
	items []pricing.LineItem
}

// NewDraft starts a draft from existing items.
func NewDraft(items ...pricing.LineItem) *Draft {
	return &Draft{items: append([]pricing.LineItem(nil), items...)}
}

// Add appends a product scaled by multiplier.
func (d *Draft) Add(p Product, multiplier int) (pricing.LineItem, error) {
	item, err := NewLineItem(p, multiplier)
	if err != nil {
		return pricing.LineItem{}, err
	}
	d.items = append(d.items, item)
	return item, nil
}

// Remove drops the item at index.
func (d *Draft) Remove(index int) error {
	if index < 0 || index >= len(d.items) {
		return ErrItemNotFound
	}
	d.items = append(d.items[:index:index], d.items[index+1:]...)
	return nil
}

// Items returns a copy of the draft's line items.
func (d *Draft) Items() []pricing.LineItem {
	return append([]pricing.LineItem(nil), d.items...)
}

// RetailValue is the undiscounted value of everything in the draft.
func (d *Draft) RetailValue() float64 {
	return pricing.ItemsTotal(d.items)
}
