package cart

import (
	"fmt"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
)

// Pricing holds the flat tax/shipping policy applied when a summary is
// derived from an item list.
type Pricing struct {
	TaxRate               decimal.Decimal
	FreeShippingThreshold decimal.Decimal
	ShippingFee           decimal.Decimal
	Currency              string
}

// NewPricing validates the currency code with the ISO 4217 registry and
// returns the pricing policy.
func NewPricing(
	taxRate, freeShippingThreshold, shippingFee float64,
	currencyCode string,
) (Pricing, error) {
	unit, err := currency.ParseISO(currencyCode)
	if err != nil {
		return Pricing{}, fmt.Errorf("failed parsing currency=%s with error=%w", currencyCode, err)
	}
	return Pricing{
		TaxRate:               decimal.NewFromFloat(taxRate),
		FreeShippingThreshold: decimal.NewFromFloat(freeShippingThreshold),
		ShippingFee:           decimal.NewFromFloat(shippingFee),
		Currency:              unit.String(),
	}, nil
}

// Summarize derives a CartSummary from an item list. It is a pure function:
// no I/O, deterministic for a given list. Monetary values are rounded to two
// decimal places here, at summary construction, not earlier.
func (p Pricing) Summarize(items []LineItem) CartSummary {
	totalQuantity := int32(0)
	subtotal := decimal.Zero
	discount := decimal.Zero
	hundred := decimal.NewFromInt(100)
	for _, item := range items {
		totalQuantity += item.Quantity
		subtotal = subtotal.Add(item.TotalPrice)
		if item.DiscountPercentage.IsPositive() {
			discount = discount.Add(
				item.UnitPrice.
					Mul(item.DiscountPercentage).
					Div(hundred).
					Mul(decimal.NewFromInt32(item.Quantity)),
			)
		}
	}

	// Tax and total derive from the already-rounded subtotal and discount so
	// the published amounts always recompose: total = subtotal - discount +
	// tax + shipping.
	subtotal = subtotal.Round(2)
	discount = discount.Round(2)
	tax := subtotal.Sub(discount).Mul(p.TaxRate).Round(2)

	shipping := decimal.Zero
	if len(items) > 0 && subtotal.LessThan(p.FreeShippingThreshold) {
		shipping = p.ShippingFee
	}
	shipping = shipping.Round(2)

	return CartSummary{
		ItemCount:      len(items),
		TotalQuantity:  totalQuantity,
		Subtotal:       subtotal,
		DiscountAmount: discount,
		TaxAmount:      tax,
		ShippingCost:   shipping,
		TotalAmount:    subtotal.Sub(discount).Add(tax).Add(shipping),
		Currency:       p.Currency,
	}
}
