package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Banner is a promotional slide shown on the home page
type Banner struct {
	ID        uuid.UUID `json:"id" db:"id"`
	Title     string    `json:"title" db:"title"`
	Subtitle  string    `json:"subtitle" db:"subtitle"`
	ImageURL  string    `json:"image_url" db:"image_url"`
	LinkURL   string    `json:"link_url" db:"link_url"`
	Position  int       `json:"position" db:"position"`
	Active    bool      `json:"active" db:"active"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// FaqItem is a question/answer pair
type FaqItem struct {
	ID        uuid.UUID `json:"id" db:"id"`
	Question  string    `json:"question" db:"question"`
	Answer    string    `json:"answer" db:"answer"`
	Position  int       `json:"position" db:"position"`
	Published bool      `json:"published" db:"published"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// SiteSettingsID is the key of the single settings document
const SiteSettingsID = "site"

// SiteSettings holds the store-wide configuration edited from the back office
type SiteSettings struct {
	StoreName             string            `json:"store_name" validate:"required,max=100"`
	ContactEmail          string            `json:"contact_email" validate:"omitempty,email"`
	Phone                 string            `json:"phone" validate:"max=30"`
	Address               string            `json:"address" validate:"max=255"`
	Currency              string            `json:"currency" validate:"required,len=3"`
	ShippingFee           decimal.Decimal   `json:"shipping_fee"`
	FreeShippingThreshold decimal.Decimal   `json:"free_shipping_threshold"`
	LowStockThreshold     int               `json:"low_stock_threshold" validate:"gte=0"`
	Announcement          string            `json:"announcement" validate:"max=500"`
	SocialLinks           map[string]string `json:"social_links"`
	UpdatedAt             time.Time         `json:"updated_at"`
}

// DefaultSiteSettings returns the settings used until an admin saves some
func DefaultSiteSettings() SiteSettings {
	return SiteSettings{
		StoreName:             "Vitrine",
		Currency:              DefaultCurrency,
		ShippingFee:           decimal.NewFromFloat(4.90),
		FreeShippingThreshold: decimal.NewFromInt(60),
		LowStockThreshold:     5,
		SocialLinks:           map[string]string{},
	}
}

// Review is a customer review of a product
type Review struct {
	ID        uuid.UUID `json:"id" db:"id"`
	ProductID uuid.UUID `json:"product_id" db:"product_id"`
	Author    string    `json:"author" db:"author"`
	Rating    int       `json:"rating" db:"rating"`
	Comment   string    `json:"comment" db:"comment"`
	Approved  bool      `json:"approved" db:"approved"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
