package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"vitrine/internal/cart"
	"vitrine/internal/domain"
	"vitrine/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	// OrderNumberPrefix starts every order number
	OrderNumberPrefix = "CMD"

	orderNumberAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	orderNumberSuffix   = 6
	maxNumberAttempts   = 5

	// DefaultOrderPageSize is the back-office order page size
	DefaultOrderPageSize = 20
)

var (
	ErrEmptyCart         = errors.New("cart is empty")
	ErrInvalidQuantity   = errors.New("invalid quantity")
	ErrInvalidStatus     = errors.New("unknown order status")
	ErrInvalidTransition = errors.New("status change not allowed")
)

// CheckoutInput is what the storefront submits to place an order
type CheckoutInput struct {
	Items    []domain.CartItem
	Customer domain.Customer
	Note     string
}

// OrderQuery describes a back-office order listing
type OrderQuery struct {
	Status   domain.OrderStatus
	Query    string
	Page     int
	PageSize int
}

// OrderPage is one page of orders
type OrderPage struct {
	Items      []*domain.Order `json:"items"`
	Total      int             `json:"total"`
	Page       int             `json:"page"`
	PageSize   int             `json:"page_size"`
	TotalPages int             `json:"total_pages"`
}

// NotesInput edits order notes; nil fields are left untouched
type NotesInput struct {
	AdminNote  *string `json:"admin_note" validate:"omitempty,max=2000"`
	PublicNote *string `json:"public_note" validate:"omitempty,max=2000"`
}

// OrderService places, tracks and manages orders
type OrderService interface {
	Checkout(ctx context.Context, in CheckoutInput) (*domain.Order, error)
	Track(ctx context.Context, number, email string) (*domain.PublicOrder, error)

	List(ctx context.Context, q OrderQuery) (OrderPage, error)
	Get(ctx context.Context, id uuid.UUID) (*domain.Order, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status domain.OrderStatus, note string) (*domain.Order, error)
	UpdateNotes(ctx context.Context, id uuid.UUID, in NotesInput) (*domain.Order, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Export(ctx context.Context, status domain.OrderStatus) ([]*domain.Order, error)
}

type orderService struct {
	orders       repository.OrderRepository
	publicOrders repository.PublicOrderRepository
	products     repository.ProductRepository
	settings     repository.SettingsRepository
	now          func() time.Time
}

// NewOrderService creates a new instance of OrderService
func NewOrderService(
	orders repository.OrderRepository,
	publicOrders repository.PublicOrderRepository,
	products repository.ProductRepository,
	settings repository.SettingsRepository,
) OrderService {
	return &orderService{
		orders:       orders,
		publicOrders: publicOrders,
		products:     products,
		settings:     settings,
		now:          time.Now,
	}
}

// NewOrderNumber formats CMD-YYYYMMDD-XXXXXX with a random suffix drawn from
// an alphabet without look-alike characters
func NewOrderNumber(at time.Time) (string, error) {
	var b strings.Builder
	b.WriteString(OrderNumberPrefix)
	b.WriteByte('-')
	b.WriteString(at.Format("20060102"))
	b.WriteByte('-')
	alphabetSize := big.NewInt(int64(len(orderNumberAlphabet)))
	for i := 0; i < orderNumberSuffix; i++ {
		n, err := rand.Int(rand.Reader, alphabetSize)
		if err != nil {
			return "", fmt.Errorf("failed to generate order number: %w", err)
		}
		b.WriteByte(orderNumberAlphabet[n.Int64()])
	}
	return b.String(), nil
}

// mergeLines folds duplicate products of a cart into one quantity each,
// keeping first-seen order
func mergeLines(items []domain.CartItem) ([]uuid.UUID, map[uuid.UUID]int, error) {
	var ids []uuid.UUID
	qty := make(map[uuid.UUID]int, len(items))
	for _, it := range items {
		if it.Quantity <= 0 {
			return nil, nil, ErrInvalidQuantity
		}
		if _, seen := qty[it.ProductID]; !seen {
			ids = append(ids, it.ProductID)
		}
		qty[it.ProductID] += it.Quantity
		if qty[it.ProductID] > cart.MaxLineQuantity {
			return nil, nil, ErrInvalidQuantity
		}
	}
	return ids, qty, nil
}

// Checkout turns a cart into a pending order. Prices are taken from the
// current catalog, never from the submitted cart.
func (s *orderService) Checkout(ctx context.Context, in CheckoutInput) (*domain.Order, error) {
	if len(in.Items) == 0 {
		return nil, ErrEmptyCart
	}
	ids, qty, err := mergeLines(in.Items)
	if err != nil {
		return nil, err
	}

	found, err := s.products.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[uuid.UUID]*domain.Product, len(found))
	for _, p := range found {
		byID[p.ID] = p
	}

	settings, err := s.settings.Get(ctx)
	if err != nil {
		return nil, err
	}

	items := make([]domain.OrderItem, 0, len(ids))
	subtotal := decimal.Zero
	for _, id := range ids {
		p, ok := byID[id]
		if !ok || !p.IsActive() {
			title := ""
			if ok {
				title = p.Title
			}
			return nil, &repository.StockError{ProductID: id, Title: title, Requested: qty[id], Err: repository.ErrProductUnavailable}
		}
		if p.Stock < qty[id] {
			return nil, &repository.StockError{ProductID: id, Title: p.Title, Requested: qty[id], Available: p.Stock, Err: repository.ErrInsufficientStock}
		}

		unit := p.EffectivePrice()
		line := unit.Mul(decimal.NewFromInt(int64(qty[id])))
		subtotal = subtotal.Add(line)
		items = append(items, domain.OrderItem{
			ProductID: p.ID,
			Slug:      p.Slug,
			Title:     p.Title,
			Image:     p.MainImage(),
			UnitPrice: unit,
			Currency:  p.Currency,
			Quantity:  qty[id],
			LineTotal: line,
		})
	}

	shipping, total := cart.Totals(subtotal, settings)
	now := s.now().UTC()
	customer := in.Customer
	customer.Email = strings.ToLower(strings.TrimSpace(customer.Email))

	order := &domain.Order{
		ID:           uuid.New(),
		Customer:     customer,
		Items:        items,
		Subtotal:     subtotal,
		ShippingFee:  shipping,
		Total:        total,
		Currency:     settings.Currency,
		Status:       domain.OrderStatusPending,
		CustomerNote: strings.TrimSpace(in.Note),
		History:      []domain.StatusChange{{Status: domain.OrderStatusPending, At: now}},
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	for attempt := 0; attempt < maxNumberAttempts; attempt++ {
		if order.Number, err = NewOrderNumber(now); err != nil {
			return nil, err
		}
		err = s.orders.Create(ctx, order)
		if !errors.Is(err, repository.ErrOrderNumberTaken) {
			break
		}
	}
	if err != nil {
		return nil, err
	}
	return order, nil
}

// Track returns the public view of an order. A wrong email yields the same
// error as an unknown number.
func (s *orderService) Track(ctx context.Context, number, email string) (*domain.PublicOrder, error) {
	order, ownerEmail, err := s.publicOrders.FindByNumber(ctx, number)
	if err != nil {
		return nil, err
	}
	if !strings.EqualFold(strings.TrimSpace(email), ownerEmail) {
		return nil, repository.ErrOrderNotFound
	}
	return order, nil
}

// List pages through orders, newest first
func (s *orderService) List(ctx context.Context, q OrderQuery) (OrderPage, error) {
	if q.Status != "" && !q.Status.Valid() {
		return OrderPage{}, ErrInvalidStatus
	}
	if q.Page <= 0 {
		q.Page = 1
	}
	if q.PageSize <= 0 {
		q.PageSize = DefaultOrderPageSize
	}
	if q.PageSize > MaxPageSize {
		q.PageSize = MaxPageSize
	}

	orders, total, err := s.orders.List(ctx, repository.OrderFilter{
		Status: q.Status,
		Query:  q.Query,
		Limit:  q.PageSize,
		Offset: (q.Page - 1) * q.PageSize,
	})
	if err != nil {
		return OrderPage{}, err
	}

	return OrderPage{
		Items:      orders,
		Total:      total,
		Page:       q.Page,
		PageSize:   q.PageSize,
		TotalPages: (total + q.PageSize - 1) / q.PageSize,
	}, nil
}

func (s *orderService) Get(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	return s.orders.FindByID(ctx, id)
}

// UpdateStatus moves an order along its lifecycle. Cancelling puts the items
// back in stock.
func (s *orderService) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.OrderStatus, note string) (*domain.Order, error) {
	if !status.Valid() {
		return nil, ErrInvalidStatus
	}
	at := s.now().UTC()
	return s.orders.Mutate(ctx, id, func(order *domain.Order) (bool, error) {
		if !order.Status.CanTransitionTo(status) {
			return false, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, order.Status, status)
		}
		order.Status = status
		order.History = append(order.History, domain.StatusChange{
			Status: status,
			Note:   strings.TrimSpace(note),
			At:     at,
		})
		return status == domain.OrderStatusCancelled, nil
	})
}

// UpdateNotes edits the internal and customer-visible notes
func (s *orderService) UpdateNotes(ctx context.Context, id uuid.UUID, in NotesInput) (*domain.Order, error) {
	return s.orders.Mutate(ctx, id, func(order *domain.Order) (bool, error) {
		if in.AdminNote != nil {
			order.AdminNote = strings.TrimSpace(*in.AdminNote)
		}
		if in.PublicNote != nil {
			order.PublicNote = strings.TrimSpace(*in.PublicNote)
		}
		return false, nil
	})
}

func (s *orderService) Delete(ctx context.Context, id uuid.UUID) error {
	return s.orders.Delete(ctx, id)
}

// Export returns every order of status (all statuses when empty) for CSV export
func (s *orderService) Export(ctx context.Context, status domain.OrderStatus) ([]*domain.Order, error) {
	if status != "" && !status.Valid() {
		return nil, ErrInvalidStatus
	}
	orders, _, err := s.orders.List(ctx, repository.OrderFilter{Status: status})
	return orders, err
}
