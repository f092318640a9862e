package errors

import (
	"errors"
)

var (
	ErrEmptyAuth              = errors.New("missing authorization")
	ErrTokenInvalid           = errors.New("invalid token")
	ErrAuthenticationRequired = errors.New("authentication required")

	ErrCartNotFound    = errors.New("cart not found")
	ErrItemNotFound    = errors.New("cart item not found")
	ErrProductNotFound = errors.New("product not found")
	ErrVariantNotFound = errors.New("variant not found")

	ErrInvalidQuantity       = errors.New("quantity must be positive and within the per-item limit")
	ErrCartLimitExceeded     = errors.New("cart item limit exceeded")
	ErrQuantityLimitExceeded = errors.New("per-item quantity limit exceeded")
	ErrStockInsufficient     = errors.New("insufficient stock")
	ErrProductInactive       = errors.New("product is not active")
	ErrVariantInactive       = errors.New("variant is not active")

	ErrEmptyCart        = errors.New("cart is empty")
	ErrValidationFailed = errors.New("checkout validation could not be completed")
)
