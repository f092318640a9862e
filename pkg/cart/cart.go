package cart

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LineItem is one purchasable configuration (product plus optional
// variant/color/size) inside a single cart. An item id is stable only within
// the cart instance that owns it.
type LineItem struct {
	ID                 uuid.UUID       `json:"id"`
	ProductID          uuid.UUID       `json:"productId"`
	VariantID          *uuid.UUID      `json:"variantId,omitempty"`
	Quantity           int32           `json:"quantity"`
	SelectedColor      *string         `json:"selectedColor,omitempty"`
	SelectedSize       *string         `json:"selectedSize,omitempty"`
	UnitPrice          decimal.Decimal `json:"unitPrice"`
	TotalPrice         decimal.Decimal `json:"totalPrice"`
	DiscountPercentage decimal.Decimal `json:"discountPercentage"`
	ProductName        string          `json:"productName"`
	ProductImage       string          `json:"productImage"`
	ProductActive      bool            `json:"productActive"`
	ProductStock       int32           `json:"productStock"`
	CreatedAt          time.Time       `json:"createdAt"`
	UpdatedAt          time.Time       `json:"updatedAt"`
}

// WithQuantity returns a copy of the item with the given quantity and a
// recomputed total price, keeping totalPrice = unitPrice * quantity.
func (i LineItem) WithQuantity(quantity int32, now time.Time) LineItem {
	i.Quantity = quantity
	i.TotalPrice = i.UnitPrice.Mul(decimal.NewFromInt32(quantity))
	i.UpdatedAt = now
	return i
}

type CartSummary struct {
	ItemCount      int             `json:"itemCount"`
	TotalQuantity  int32           `json:"totalQuantity"`
	Subtotal       decimal.Decimal `json:"subtotal"`
	DiscountAmount decimal.Decimal `json:"discountAmount"`
	TaxAmount      decimal.Decimal `json:"taxAmount"`
	ShippingCost   decimal.Decimal `json:"shippingCost"`
	TotalAmount    decimal.Decimal `json:"totalAmount"`
	Currency       string          `json:"currency"`
}

// Cart is an immutable snapshot of one identifier's cart. Mutations build a
// new value with WithItems and persist that, they never write through a
// previously loaded snapshot.
type Cart struct {
	ID             string      `json:"id"`
	AccountID      *uuid.UUID  `json:"accountId,omitempty"`
	Items          []LineItem  `json:"items"`
	Summary        CartSummary `json:"summary"`
	LastModifiedAt time.Time   `json:"lastModifiedAt"`
}

// New returns the lazily initialized empty cart for an identifier. It is not
// persisted until the first mutation.
func New(id string, pricing Pricing) Cart {
	return Cart{
		ID:      id,
		Items:   []LineItem{},
		Summary: pricing.Summarize(nil),
	}
}

// WithItems returns a copy of the cart holding the given item list and a
// summary recomputed from it.
func (c Cart) WithItems(items []LineItem, pricing Pricing, now time.Time) Cart {
	c.Items = items
	c.Summary = pricing.Summarize(items)
	c.LastModifiedAt = now
	return c
}

// FindItem returns the index of the item with the given id, or -1.
func (c Cart) FindItem(itemID uuid.UUID) int {
	for i, item := range c.Items {
		if item.ID == itemID {
			return i
		}
	}
	return -1
}
