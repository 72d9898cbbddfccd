package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderStatus is the lifecycle state of an order
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusPaid      OrderStatus = "paid"
	OrderStatusShipped   OrderStatus = "shipped"
	OrderStatusDelivered OrderStatus = "delivered"
	OrderStatusCancelled OrderStatus = "cancelled"
)

// OrderStatuses lists every status in lifecycle order
var OrderStatuses = []OrderStatus{
	OrderStatusPending,
	OrderStatusPaid,
	OrderStatusShipped,
	OrderStatusDelivered,
	OrderStatusCancelled,
}

var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending: {OrderStatusPaid, OrderStatusCancelled},
	OrderStatusPaid:    {OrderStatusShipped, OrderStatusCancelled},
	OrderStatusShipped: {OrderStatusDelivered},
}

// Valid reports whether s is a known status
func (s OrderStatus) Valid() bool {
	for _, status := range OrderStatuses {
		if s == status {
			return true
		}
	}
	return false
}

// CanTransitionTo reports whether an order may move from s to next
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, allowed := range orderTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Label returns the French label shown to customers
func (s OrderStatus) Label() string {
	switch s {
	case OrderStatusPending:
		return "En attente"
	case OrderStatusPaid:
		return "Payée"
	case OrderStatusShipped:
		return "Expédiée"
	case OrderStatusDelivered:
		return "Livrée"
	case OrderStatusCancelled:
		return "Annulée"
	default:
		return string(s)
	}
}

// Customer is the contact and shipping address captured at checkout
type Customer struct {
	FirstName    string `json:"first_name" validate:"required,max=100"`
	LastName     string `json:"last_name" validate:"required,max=100"`
	Email        string `json:"email" validate:"required,email,max=255"`
	Phone        string `json:"phone" validate:"required,min=6,max=30"`
	AddressLine1 string `json:"address_line1" validate:"required,max=255"`
	AddressLine2 string `json:"address_line2" validate:"max=255"`
	PostalCode   string `json:"postal_code" validate:"required,max=20"`
	City         string `json:"city" validate:"required,max=100"`
	Country      string `json:"country" validate:"required,max=100"`
}

// FullName joins first and last name
func (c Customer) FullName() string {
	if c.LastName == "" {
		return c.FirstName
	}
	return c.FirstName + " " + c.LastName
}

// OrderItem is a product snapshot taken at checkout
type OrderItem struct {
	ProductID uuid.UUID       `json:"product_id"`
	Slug      string          `json:"slug"`
	Title     string          `json:"title"`
	Image     string          `json:"image"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Currency  string          `json:"currency"`
	Quantity  int             `json:"quantity"`
	LineTotal decimal.Decimal `json:"line_total"`
}

// StatusChange is one entry of an order status history
type StatusChange struct {
	Status OrderStatus `json:"status"`
	Note   string      `json:"note,omitempty"`
	At     time.Time   `json:"at"`
}

// Order represents a placed order
type Order struct {
	ID           uuid.UUID       `json:"id" db:"id"`
	Number       string          `json:"number" db:"number"`
	Customer     Customer        `json:"customer" db:"customer"`
	Items        []OrderItem     `json:"items" db:"items"`
	Subtotal     decimal.Decimal `json:"subtotal" db:"subtotal"`
	ShippingFee  decimal.Decimal `json:"shipping_fee" db:"shipping_fee"`
	Total        decimal.Decimal `json:"total" db:"total"`
	Currency     string          `json:"currency" db:"currency"`
	Status       OrderStatus     `json:"status" db:"status"`
	AdminNote    string          `json:"admin_note" db:"admin_note"`
	PublicNote   string          `json:"public_note" db:"public_note"`
	CustomerNote string          `json:"customer_note" db:"customer_note"`
	History      []StatusChange  `json:"history" db:"history"`
	CreatedAt    time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at" db:"updated_at"`
}

// ItemCount is the total quantity of the order
func (o *Order) ItemCount() int {
	n := 0
	for _, item := range o.Items {
		n += item.Quantity
	}
	return n
}

// PublicOrder is the customer-safe projection of an order used for tracking
type PublicOrder struct {
	OrderID     uuid.UUID       `json:"order_id"`
	Number      string          `json:"number"`
	Email       string          `json:"-"`
	FirstName   string          `json:"first_name"`
	Status      OrderStatus     `json:"status"`
	StatusLabel string          `json:"status_label"`
	Items       []OrderItem     `json:"items"`
	Subtotal    decimal.Decimal `json:"subtotal"`
	ShippingFee decimal.Decimal `json:"shipping_fee"`
	Total       decimal.Decimal `json:"total"`
	Currency    string          `json:"currency"`
	PublicNote  string          `json:"public_note"`
	History     []StatusChange  `json:"history"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// Public builds the tracking projection of the order
func (o *Order) Public() *PublicOrder {
	return &PublicOrder{
		OrderID:     o.ID,
		Number:      o.Number,
		Email:       o.Customer.Email,
		FirstName:   o.Customer.FirstName,
		Status:      o.Status,
		StatusLabel: o.Status.Label(),
		Items:       o.Items,
		Subtotal:    o.Subtotal,
		ShippingFee: o.ShippingFee,
		Total:       o.Total,
		Currency:    o.Currency,
		PublicNote:  o.PublicNote,
		History:     o.History,
		CreatedAt:   o.CreatedAt,
		UpdatedAt:   o.UpdatedAt,
	}
}
