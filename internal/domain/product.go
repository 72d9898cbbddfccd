package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ProductStatus controls storefront visibility
type ProductStatus string

const (
	ProductStatusActive ProductStatus = "active"
	ProductStatusDraft  ProductStatus = "draft"
)

// DefaultCurrency is used when a product or the settings carry no currency
const DefaultCurrency = "EUR"

// Product represents a product in the catalog
type Product struct {
	ID           uuid.UUID         `json:"id" db:"id"`
	Title        string            `json:"title" db:"title"`
	Slug         string            `json:"slug" db:"slug"`
	Description  string            `json:"description" db:"description"`
	Price        decimal.Decimal   `json:"price" db:"price"`
	SalePrice    decimal.Decimal   `json:"sale_price" db:"sale_price"`
	Currency     string            `json:"currency" db:"currency"`
	CategorySlug string            `json:"category_slug" db:"category_slug"`
	Stock        int               `json:"stock" db:"stock"`
	Images       []string          `json:"images" db:"images"`
	Specs        map[string]string `json:"specs" db:"specs"`
	IsNew        bool              `json:"is_new" db:"is_new"`
	IsBestseller bool              `json:"is_bestseller" db:"is_bestseller"`
	Status       ProductStatus     `json:"status" db:"status"`
	CreatedAt    time.Time         `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at" db:"updated_at"`
}

// OnSale reports whether the sale price is set and below the regular price
func (p *Product) OnSale() bool {
	return p.SalePrice.IsPositive() && p.SalePrice.LessThan(p.Price)
}

// EffectivePrice is the price a customer pays for one unit
func (p *Product) EffectivePrice() decimal.Decimal {
	if p.OnSale() {
		return p.SalePrice
	}
	return p.Price
}

// InStock reports whether at least one unit is available
func (p *Product) InStock() bool {
	return p.Stock > 0
}

// IsActive reports whether the product is visible on the storefront
func (p *Product) IsActive() bool {
	return p.Status == ProductStatusActive
}

// MainImage returns the first image or an empty string
func (p *Product) MainImage() string {
	if len(p.Images) == 0 {
		return ""
	}
	return p.Images[0]
}

// RatingSummary aggregates the approved reviews of a product
type RatingSummary struct {
	Average float64 `json:"average"`
	Count   int     `json:"count"`
}
