package pricing

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestUnitMinorRoundsHalfAwayFromZero(t *testing.T) {
	cases := []struct {
		price string
		want  Money
	}{
		{"19.995", 2000},
		{"19.994", 1999},
		{"149.00", 14900},
		{"99.00", 9900},
		{"0.005", 1},
		{"0.004", 0},
		{"0", 0},
	}
	for _, tc := range cases {
		price, err := decimal.NewFromString(tc.price)
		if err != nil {
			t.Fatalf("parse %s: %v", tc.price, err)
		}
		if got := UnitMinor(price); got != tc.want {
			t.Errorf("UnitMinor(%s) = %d, want %d", tc.price, got, tc.want)
		}
	}
}

func TestLineMinorDoesNotCompoundRounding(t *testing.T) {
	// 19.995 rounds to 2000 per unit before multiplying; rounding the
	// pre-multiplied subtotal would give 5999 for qty 3 instead of 6000.
	price := decimal.RequireFromString("19.995")
	if got := LineMinor(price, 3); got != 6000 {
		t.Fatalf("LineMinor = %d, want 6000", got)
	}
}

func TestTaxStandardRounding(t *testing.T) {
	cases := []struct {
		subtotal Money
		want     Money
	}{
		{100, 25},
		{101, 25},  // 25.25 rounds down
		{103, 26},  // 25.75 rounds up
		{102, 26},  // 25.50 midpoint, nearest even is 26
		{106, 26},  // 26.50 midpoint, nearest even is 26
		{0, 0},
		{39700, 9925},
	}
	for _, tc := range cases {
		if got := Tax(tc.subtotal); got != tc.want {
			t.Errorf("Tax(%d) = %d, want %d", tc.subtotal, got, tc.want)
		}
	}
}

func TestComputeEndToEnd(t *testing.T) {
	items := []Item{
		{UnitPrice: decimal.RequireFromString("149.00"), Qty: 2},
		{UnitPrice: decimal.RequireFromString("99.00"), Qty: 1},
	}
	got := Compute(items)
	want := Summary{Subtotal: 39700, Tax: 9925, Shipping: 0, Total: 49625}
	if got != want {
		t.Fatalf("Compute = %+v, want %+v", got, want)
	}
}

func TestComputeSkipsNonPositiveQuantities(t *testing.T) {
	items := []Item{
		{UnitPrice: decimal.RequireFromString("10.00"), Qty: 0},
		{UnitPrice: decimal.RequireFromString("10.00"), Qty: -2},
		{UnitPrice: decimal.RequireFromString("10.00"), Qty: 1},
	}
	if got := Compute(items); got.Subtotal != 1000 {
		t.Fatalf("Subtotal = %d, want 1000", got.Subtotal)
	}
}
