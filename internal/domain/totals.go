package domain

import "math"

// TotalsConfig carries the cart arithmetic constants. Tax rate and the free
// shipping threshold are configuration, not computed per item.
type TotalsConfig struct {
	TaxRate               float64 // e.g. 0.15
	FreeShippingThreshold float64 // shipping = 0 when subtotal exceeds this
	ShippingFee           float64 // flat fee below the threshold
}

// Round2 rounds a monetary amount to cents
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// CartLine is the minimal input to totals computation
type CartLine struct {
	UnitPrice float64
	Quantity  int
}

// ComputeTotals derives subtotal/tax/shipping/total from line items.
// Pure: no side effects, deterministic, the single source of truth for cart
// and order arithmetic.
func ComputeTotals(lines []CartLine, cfg TotalsConfig) (subtotal, tax, shipping, total float64) {
	for _, l := range lines {
		subtotal += l.UnitPrice * float64(l.Quantity)
	}
	subtotal = Round2(subtotal)
	tax = Round2(subtotal * cfg.TaxRate)
	if subtotal > cfg.FreeShippingThreshold {
		shipping = 0
	} else if subtotal > 0 {
		shipping = cfg.ShippingFee
	}
	total = Round2(subtotal + tax + shipping)
	return subtotal, tax, shipping, total
}

// RecomputeTotals refreshes the cart's cached totals from its items
func (c *Cart) RecomputeTotals(cfg TotalsConfig) {
	lines := make([]CartLine, 0, len(c.Items))
	for _, item := range c.Items {
		lines = append(lines, CartLine{UnitPrice: item.UnitPrice, Quantity: item.Quantity})
	}
	c.Subtotal, c.Tax, c.Shipping, c.Total = ComputeTotals(lines, cfg)
}
