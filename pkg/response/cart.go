package response

import "github.com/google/uuid"

const (
	IssueCartEmpty       = "CART_EMPTY"
	IssueProductNotFound = "PRODUCT_NOT_FOUND"
	IssueProductInactive = "PRODUCT_INACTIVE"
	IssueVariantInactive = "VARIANT_INACTIVE"
	IssueOutOfStock      = "OUT_OF_STOCK"
	IssuePartialStock    = "PARTIAL_STOCK"
)

// ValidationIssue is one blocking error or non-blocking warning found while
// re-reading catalog state during checkout validation.
type ValidationIssue struct {
	ItemId         uuid.UUID `json:"itemId,omitempty"`
	ProductId      uuid.UUID `json:"productId,omitempty"`
	Code           string    `json:"code"`
	Message        string    `json:"message"`
	AvailableStock int32     `json:"availableStock,omitempty"`
}

// CheckoutValidation is always returned as a structured result; business-rule
// violations never surface as errors.
type CheckoutValidation struct {
	IsValid  bool              `json:"isValid"`
	Errors   []ValidationIssue `json:"errors"`
	Warnings []ValidationIssue `json:"warnings"`
}
