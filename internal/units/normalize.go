package units

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

// DefaultUnit labels quantities whose raw text carried no unit.
const DefaultUnit = "units"

var leadingQuantity = regexp.MustCompile(`^(\d+)\s*(.+)$`)

// Quantity is a parsed "<integer><unit>" string such as "250g" or "2 units".
type Quantity struct {
	Value int    `json:"value"`
	Unit  string `json:"unit"`
	// BestEffort is set when the raw text did not match the expected shape and
	// Value fell back to 1.
	BestEffort bool `json:"bestEffort,omitempty"`
}

// String renders the quantity the way catalog units are written: value then unit, no space.
func (q Quantity) String() string {
	return strconv.Itoa(q.Value) + q.Unit
}

// ParseUnit never fails. Text without a usable leading integer degrades to a
// quantity of 1 so messy catalog data cannot block package authoring.
func ParseUnit(raw string) Quantity {
	trimmed := strings.TrimSpace(raw)
	if n, err := strconv.Atoi(trimmed); err == nil {
		if n > 0 {
			return Quantity{Value: n, Unit: DefaultUnit}
		}
		return degrade(trimmed)
	}
	if m := leadingQuantity.FindStringSubmatch(trimmed); m != nil {
		n, err := strconv.Atoi(m[1])
		if err != nil || n <= 0 {
			return Quantity{Value: 1, Unit: m[2], BestEffort: true}
		}
		return Quantity{Value: n, Unit: m[2]}
	}
	return degrade(trimmed)
}

func degrade(raw string) Quantity {
	if raw == "" {
		raw = DefaultUnit
	}
	return Quantity{Value: 1, Unit: raw, BestEffort: true}
}

// ScaleQuantity multiplies the parsed base unit by multiplier. ok is false
// when multiplier is below 1 or the product does not fit in an int.
func ScaleQuantity(baseUnit string, multiplier int) (q Quantity, ok bool) {
	q = ParseUnit(baseUnit)
	if multiplier < 1 || q.Value > math.MaxInt/multiplier {
		return q, false
	}
	q.Value *= multiplier
	return q, true
}

// FormatTotalQuantity scales the base unit by multiplier, e.g. "250g" x 3 = "750g".
// Multipliers below 1 leave the base unit as is and an overflowing product
// saturates at math.MaxInt, so the rendered value is always positive.
func FormatTotalQuantity(baseUnit string, multiplier int) string {
	q, ok := ScaleQuantity(baseUnit, multiplier)
	if !ok && multiplier >= 1 {
		q.Value = math.MaxInt
	}
	return q.String()
}

// CalculatePrice returns the price of multiplier base units. The parsed unit
// value cancels out of (multiplier*value/value), so the result is linear in
// multiplier whatever baseUnit contains.
func CalculatePrice(baseUnit string, basePrice float64, multiplier int) float64 {
	return basePrice * float64(multiplier)
}
