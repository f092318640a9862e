package request

import "github.com/google/uuid"

type AddItem struct {
	ProductId     uuid.UUID  `json:"productId"               validate:"required"`
	VariantId     *uuid.UUID `json:"variantId,omitempty"`
	Quantity      int32      `json:"quantity"                validate:"required,gte=1"`
	SelectedColor *string    `json:"selectedColor,omitempty"`
	SelectedSize  *string    `json:"selectedSize,omitempty"`
}

type UpdateItemQuantity struct {
	Quantity int32 `json:"quantity" validate:"required,gte=1"`
}

type MergeCart struct {
	SessionId string `json:"sessionId" validate:"required"`
}
