package units

import (
	"math"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseUnit(t *testing.T) {
	cases := []struct {
		raw  string
		want Quantity
	}{
		{"250g", Quantity{Value: 250, Unit: "g"}},
		{"2 units", Quantity{Value: 2, Unit: "units"}},
		{"1 kg bag", Quantity{Value: 1, Unit: "kg bag"}},
		{"12", Quantity{Value: 12, Unit: DefaultUnit}},
		{"bunch", Quantity{Value: 1, Unit: "bunch", BestEffort: true}},
		{"", Quantity{Value: 1, Unit: DefaultUnit, BestEffort: true}},
		{"0g", Quantity{Value: 1, Unit: "g", BestEffort: true}},
		{"-3", Quantity{Value: 1, Unit: "-3", BestEffort: true}},
		{"99999999999999999999999g", Quantity{Value: 1, Unit: "g", BestEffort: true}},
	}
	for _, tc := range cases {
		t.Run(tc.raw, func(t *testing.T) {
			require.Equal(t, tc.want, ParseUnit(tc.raw))
		})
	}
}

func TestParseUnitAlwaysPositive(t *testing.T) {
	inputs := []string{"", " ", "abc", "0", "00", "3", "3x", "x3", "½ kg", "  7  bunches ", "🍎"}
	for _, raw := range inputs {
		q := ParseUnit(raw)
		require.GreaterOrEqual(t, q.Value, 1, "input %q", raw)
		require.NotEmpty(t, q.Unit, "input %q", raw)
	}
}

func TestFormatTotalQuantity(t *testing.T) {
	require.Equal(t, "750g", FormatTotalQuantity("250g", 3))
	require.Equal(t, "4units", FormatTotalQuantity("2 units", 2))
	require.Equal(t, "2bunch", FormatTotalQuantity("bunch", 2))
	require.Equal(t, "250g", FormatTotalQuantity("250g", 0))
}

func TestFormatTotalQuantityNeverOverflows(t *testing.T) {
	cases := []struct {
		unit       string
		multiplier int
	}{
		{"250g", 1 << 62},
		{"9000000000000000000g", 2},
		{"2 units", math.MaxInt},
	}
	for _, tc := range cases {
		out := FormatTotalQuantity(tc.unit, tc.multiplier)
		digits := strings.TrimRightFunc(out, func(r rune) bool { return r < '0' || r > '9' })
		n, err := strconv.Atoi(digits)
		require.NoError(t, err, out)
		require.Positive(t, n, "%s x %d rendered %s", tc.unit, tc.multiplier, out)
	}
}

func TestScaleQuantity(t *testing.T) {
	q, ok := ScaleQuantity("250g", 4)
	require.True(t, ok)
	require.Equal(t, Quantity{Value: 1000, Unit: "g"}, q)

	_, ok = ScaleQuantity("250g", 1<<62)
	require.False(t, ok)
	_, ok = ScaleQuantity("250g", 0)
	require.False(t, ok)
}

func TestCalculatePriceIsLinear(t *testing.T) {
	units := []string{"250g", "2 units", "", "bunch", "0kg"}
	prices := []float64{0, 0.99, 3.5, 12.25}
	for _, unit := range units {
		for _, price := range prices {
			for m := 1; m <= 12; m++ {
				require.Equal(t, price*float64(m), CalculatePrice(unit, price, m))
			}
		}
	}
}
