// Package pricing derives cart totals. Arithmetic stays unrounded; callers
// round with Summary.Rounded only when presenting values.
package pricing

import (
	"github.com/shopspring/decimal"

	domcart "example.com/mechstore/app/internal/domain/cart"
)

var hundred = decimal.NewFromInt(100)

type Summary struct {
	Subtotal       decimal.Decimal
	DiscountAmount decimal.Decimal
	ExpectedReturn decimal.Decimal
	ExpectedProfit decimal.Decimal
	FinalTotal     decimal.Decimal
}

// Calculate prices items with a discount percent clamped to [0, 100]. The
// customer pays the base subtotal minus the discount in every mode; resale
// return and profit are informational.
func Calculate(items []domcart.Item, discountPercent decimal.Decimal) Summary {
	percent := clampPercent(discountPercent)

	subtotal := decimal.Zero
	expectedReturn := decimal.Zero
	expectedProfit := decimal.Zero

	for _, it := range items {
		qty := decimal.NewFromInt(it.Quantity)
		subtotal = subtotal.Add(LineTotal(it))

		plan, ok := domcart.EffectivePlan(it)
		if !ok {
			continue
		}
		expectedReturn = expectedReturn.Add(plan.ExpectedReturn.Mul(qty))
		expectedProfit = expectedProfit.Add(plan.ExpectedReturn.Sub(it.UnitPrice).Mul(qty))
	}

	discountAmount := subtotal.Mul(percent).Div(hundred)

	return Summary{
		Subtotal:       subtotal,
		DiscountAmount: discountAmount,
		ExpectedReturn: expectedReturn,
		ExpectedProfit: expectedProfit,
		FinalTotal:     subtotal.Sub(discountAmount),
	}
}

func LineTotal(it domcart.Item) decimal.Decimal {
	return it.UnitPrice.Mul(decimal.NewFromInt(it.Quantity))
}

func (s Summary) Rounded(places int32) Summary {
	return Summary{
		Subtotal:       s.Subtotal.Round(places),
		DiscountAmount: s.DiscountAmount.Round(places),
		ExpectedReturn: s.ExpectedReturn.Round(places),
		ExpectedProfit: s.ExpectedProfit.Round(places),
		FinalTotal:     s.FinalTotal.Round(places),
	}
}

func clampPercent(p decimal.Decimal) decimal.Decimal {
	if p.IsNegative() {
		return decimal.Zero
	}
	if p.GreaterThan(hundred) {
		return hundred
	}
	return p
}
