package cart

import "github.com/google/uuid"

// Matches reports whether two line items describe the same purchasable
// configuration: productId, variantId, selectedColor and selectedSize must all
// be equal. A missing optional only matches another missing optional, it is
// never a wildcard.
func Matches(a, b LineItem) bool {
	return a.ProductID == b.ProductID &&
		equalUUID(a.VariantID, b.VariantID) &&
		equalString(a.SelectedColor, b.SelectedColor) &&
		equalString(a.SelectedSize, b.SelectedSize)
}

// FindMatch returns the index of the first item in items matching candidate,
// or -1.
func FindMatch(items []LineItem, candidate LineItem) int {
	for i, item := range items {
		if Matches(item, candidate) {
			return i
		}
	}
	return -1
}

func equalUUID(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func equalString(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
