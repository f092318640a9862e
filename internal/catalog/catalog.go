package catalog

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Product is the catalog's view of a product at read time. Price and stock
// are live values, not cart snapshots.
type Product struct {
	ID                 uuid.UUID       `json:"id"`
	Name               string          `json:"name"`
	ImageUrl           string          `json:"imageUrl"`
	Price              decimal.Decimal `json:"price"`
	DiscountPercentage decimal.Decimal `json:"discountPercentage"`
	Stock              int32           `json:"stock"`
	Active             bool            `json:"active"`
}

type Variant struct {
	ID        uuid.UUID       `json:"id"`
	ProductID uuid.UUID       `json:"productId"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Stock     int32           `json:"stock"`
	Active    bool            `json:"active"`
}

// Client resolves product and variant state from the catalog service. The
// cart core only ever reads from it.
type Client interface {
	FindProductById(c context.Context, productID uuid.UUID) (Product, error)
	FindVariantById(c context.Context, productID, variantID uuid.UUID) (Variant, error)
}
