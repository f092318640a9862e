package store

import (
	"context"

	"github.com/Alturino/cart/pkg/cart"
)

// CartStore is the one contract both backends present to the service layer.
//
// Load returns the lazily initialized empty cart when the identifier has no
// entry; it returns an error only for a genuine I/O failure, which must never
// be mistaken for an empty cart. Save persists a full snapshot. Delete removes
// the entry and is idempotent.
type CartStore interface {
	Load(c context.Context, identifier string) (cart.Cart, error)
	Save(c context.Context, snapshot cart.Cart) error
	Delete(c context.Context, identifier string) error
}
