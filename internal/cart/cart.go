// Package cart holds the per-visitor state reducers: cart, wishlist and
// recently viewed products. Every function returns a new slice and leaves its
// input untouched so callers can persist the result verbatim.
package cart

import (
	"vitrine/internal/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MaxLineQuantity caps a single line when the product stock is unknown
const MaxLineQuantity = 99

// Add puts item into the cart, merging with an existing line of the same
// product. The resulting quantity is clamped to the snapshot stock.
func Add(items []domain.CartItem, item domain.CartItem) []domain.CartItem {
	if item.Quantity <= 0 {
		item.Quantity = 1
	}
	out := make([]domain.CartItem, 0, len(items)+1)
	merged := false
	for _, existing := range items {
		if existing.ProductID == item.ProductID {
			qty := existing.Quantity + item.Quantity
			existing = item
			existing.Quantity = clamp(qty, item.Stock)
			merged = true
		}
		out = append(out, existing)
	}
	if !merged {
		item.Quantity = clamp(item.Quantity, item.Stock)
		out = append(out, item)
	}
	return dropEmpty(out)
}

// Remove deletes the line of productID
func Remove(items []domain.CartItem, productID uuid.UUID) []domain.CartItem {
	out := make([]domain.CartItem, 0, len(items))
	for _, it := range items {
		if it.ProductID != productID {
			out = append(out, it)
		}
	}
	return out
}

// UpdateQuantity sets the quantity of a line; zero or less removes it
func UpdateQuantity(items []domain.CartItem, productID uuid.UUID, qty int) []domain.CartItem {
	if qty <= 0 {
		return Remove(items, productID)
	}
	out := make([]domain.CartItem, 0, len(items))
	for _, it := range items {
		if it.ProductID == productID {
			it.Quantity = clamp(qty, it.Stock)
		}
		out = append(out, it)
	}
	return dropEmpty(out)
}

// Clear empties the cart
func Clear() []domain.CartItem {
	return []domain.CartItem{}
}

// Subtotal is the sum of the line totals at effective price
func Subtotal(items []domain.CartItem) decimal.Decimal {
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(it.LineTotal())
	}
	return total
}

// Count is the number of units in the cart
func Count(items []domain.CartItem) int {
	n := 0
	for _, it := range items {
		n += it.Quantity
	}
	return n
}

// Find returns the line of productID
func Find(items []domain.CartItem, productID uuid.UUID) (domain.CartItem, bool) {
	for _, it := range items {
		if it.ProductID == productID {
			return it, true
		}
	}
	return domain.CartItem{}, false
}

// clamp bounds qty by the stock snapshot; stock <= 0 means unknown
func clamp(qty, stock int) int {
	limit := MaxLineQuantity
	if stock > 0 && stock < limit {
		limit = stock
	}
	if qty > limit {
		return limit
	}
	return qty
}

func dropEmpty(items []domain.CartItem) []domain.CartItem {
	out := items[:0]
	for _, it := range items {
		if it.Quantity > 0 {
			out = append(out, it)
		}
	}
	return out
}

// Summary is the priced view of a cart
type Summary struct {
	Items       []domain.CartItem `json:"items"`
	Count       int               `json:"count"`
	Subtotal    decimal.Decimal   `json:"subtotal"`
	ShippingFee decimal.Decimal   `json:"shipping_fee"`
	Total       decimal.Decimal   `json:"total"`
	Currency    string            `json:"currency"`
	// FreeShippingRemaining is what must still be added to get free shipping
	FreeShippingRemaining decimal.Decimal `json:"free_shipping_remaining"`
}

// Totals computes shipping and total for a subtotal under the site settings.
// Shipping is waived for an empty cart or once the subtotal reaches a
// positive free-shipping threshold.
func Totals(subtotal decimal.Decimal, settings domain.SiteSettings) (shipping, total decimal.Decimal) {
	shipping = settings.ShippingFee
	if !subtotal.IsPositive() {
		shipping = decimal.Zero
	}
	threshold := settings.FreeShippingThreshold
	if threshold.IsPositive() && subtotal.GreaterThanOrEqual(threshold) {
		shipping = decimal.Zero
	}
	return shipping, subtotal.Add(shipping)
}

// Summarize prices items under settings
func Summarize(items []domain.CartItem, settings domain.SiteSettings) Summary {
	if items == nil {
		items = []domain.CartItem{}
	}
	subtotal := Subtotal(items)
	shipping, total := Totals(subtotal, settings)

	remaining := decimal.Zero
	if settings.FreeShippingThreshold.IsPositive() && subtotal.LessThan(settings.FreeShippingThreshold) {
		remaining = settings.FreeShippingThreshold.Sub(subtotal)
	}

	return Summary{
		Items:                 items,
		Count:                 Count(items),
		Subtotal:              subtotal,
		ShippingFee:           shipping,
		Total:                 total,
		Currency:              settings.Currency,
		FreeShippingRemaining: remaining,
	}
}
