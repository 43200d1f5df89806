package pricing

import "github.com/shopspring/decimal"

// Money represents a monetary value stored in minor units (öre).
type Money = int64

// TaxRateBps is the fixed VAT rate applied to order subtotals, in basis points.
const TaxRateBps = 2500

var hundred = decimal.NewFromInt(100)

// Item describes a line item used for pricing calculation.
type Item struct {
	UnitPrice decimal.Decimal
	Qty       int64
}

// Summary aggregates computed pricing components.
type Summary struct {
	Subtotal Money
	Tax      Money
	Shipping Money
	Total    Money
}

// UnitMinor converts a decimal major-unit price to minor units.
// Midpoints round half away from zero: 19.995 becomes 2000, 19.994 becomes 1999.
// The conversion is applied to the unit price alone, never to a pre-multiplied
// subtotal, so rounding error does not compound with quantity.
func UnitMinor(price decimal.Decimal) Money {
	return price.Mul(hundred).Round(0).IntPart()
}

// LineMinor computes the minor-unit amount of a single line.
func LineMinor(price decimal.Decimal, qty int64) Money {
	return UnitMinor(price) * qty
}

// Tax computes VAT on a minor-unit subtotal. Midpoints round half to even,
// which deliberately differs from the half-away-from-zero unit conversion;
// both policies mirror the historical billing behaviour and must not be unified.
func Tax(subtotal Money) Money {
	num := subtotal * TaxRateBps
	q := num / 10000
	r := num % 10000
	if r < 0 {
		r = -r
	}
	switch {
	case r*2 > 10000:
		q += sign(num)
	case r*2 == 10000 && q%2 != 0:
		q += sign(num)
	}
	return q
}

// Compute calculates the full summary for a set of lines. Lines with a
// non-positive quantity contribute nothing; callers validate quantities
// before persisting anything.
func Compute(items []Item) Summary {
	var subtotal Money
	for _, it := range items {
		if it.Qty <= 0 {
			continue
		}
		subtotal += LineMinor(it.UnitPrice, it.Qty)
	}
	tax := Tax(subtotal)
	var shipping Money // no shipping cost model
	return Summary{
		Subtotal: subtotal,
		Tax:      tax,
		Shipping: shipping,
		Total:    subtotal + tax + shipping,
	}
}

func sign(v int64) int64 {
	if v < 0 {
		return -1
	}
	return 1
}
