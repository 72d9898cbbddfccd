package domain

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CartItem is a product snapshot held in a visitor cart
type CartItem struct {
	ProductID uuid.UUID       `json:"product_id"`
	Slug      string          `json:"slug"`
	Title     string          `json:"title"`
	Image     string          `json:"image"`
	Price     decimal.Decimal `json:"price"`
	SalePrice decimal.Decimal `json:"sale_price"`
	Currency  string          `json:"currency"`
	Stock     int             `json:"stock"`
	Quantity  int             `json:"quantity"`
}

// UnitPrice is the sale price when it applies, otherwise the regular price
func (i CartItem) UnitPrice() decimal.Decimal {
	if i.SalePrice.IsPositive() && i.SalePrice.LessThan(i.Price) {
		return i.SalePrice
	}
	return i.Price
}

// LineTotal is the unit price times the quantity
func (i CartItem) LineTotal() decimal.Decimal {
	return i.UnitPrice().Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// CartItemFromProduct snapshots a product for the cart
func CartItemFromProduct(p *Product, quantity int) CartItem {
	return CartItem{
		ProductID: p.ID,
		Slug:      p.Slug,
		Title:     p.Title,
		Image:     p.MainImage(),
		Price:     p.Price,
		SalePrice: p.SalePrice,
		Currency:  p.Currency,
		Stock:     p.Stock,
		Quantity:  quantity,
	}
}

// CookieConsent is the visitor's answer to the cookie banner
type CookieConsent string

const (
	ConsentUnset    CookieConsent = ""
	ConsentAccepted CookieConsent = "accepted"
	ConsentRejected CookieConsent = "rejected"
)

// Preferences are small per-visitor toggles
type Preferences struct {
	CookieConsent CookieConsent `json:"cookie_consent"`
	SnowEffect    bool          `json:"snow_effect"`
}

// VisitorState is everything an anonymous visitor keeps between requests
type VisitorState struct {
	Cart           []CartItem  `json:"cart"`
	Wishlist       []uuid.UUID `json:"wishlist"`
	RecentlyViewed []uuid.UUID `json:"recently_viewed"`
	Preferences    Preferences `json:"preferences"`
}
