package service

import (
	"context"

	"vitrine/internal/cart"
	"vitrine/internal/domain"
	"vitrine/internal/repository"
	"vitrine/internal/session"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// VisitorService manages the anonymous visitor state kept in the session store
type VisitorService interface {
	Cart(ctx context.Context, visitorID string) (cart.Summary, error)
	AddToCart(ctx context.Context, visitorID string, productID uuid.UUID, qty int) (cart.Summary, error)
	UpdateCartItem(ctx context.Context, visitorID string, productID uuid.UUID, qty int) (cart.Summary, error)
	RemoveFromCart(ctx context.Context, visitorID string, productID uuid.UUID) (cart.Summary, error)
	ClearCart(ctx context.Context, visitorID string) (cart.Summary, error)
	Checkout(ctx context.Context, visitorID string, customer domain.Customer, note string) (*domain.Order, error)

	Wishlist(ctx context.Context, visitorID string) ([]*domain.Product, error)
	ToggleWishlist(ctx context.Context, visitorID string, productID uuid.UUID) (bool, error)
	ClearWishlist(ctx context.Context, visitorID string) error

	RecentlyViewed(ctx context.Context, visitorID string) ([]*domain.Product, error)
	MarkViewed(ctx context.Context, visitorID string, productID uuid.UUID) error

	Preferences(ctx context.Context, visitorID string) (domain.Preferences, error)
	UpdatePreferences(ctx context.Context, visitorID string, prefs domain.Preferences) (domain.Preferences, error)
}

type visitorService struct {
	store    session.Store
	products repository.ProductRepository
	settings repository.SettingsRepository
	orders   OrderService
	logger   *zap.Logger
}

// NewVisitorService creates a new instance of VisitorService
func NewVisitorService(
	store session.Store,
	products repository.ProductRepository,
	settings repository.SettingsRepository,
	orders OrderService,
	logger *zap.Logger,
) VisitorService {
	return &visitorService{store: store, products: products, settings: settings, orders: orders, logger: logger}
}

func (s *visitorService) summarize(ctx context.Context, items []domain.CartItem) (cart.Summary, error) {
	settings, err := s.settings.Get(ctx)
	if err != nil {
		return cart.Summary{}, err
	}
	return cart.Summarize(items, settings), nil
}

// refresh re-snapshots cart lines from the catalog. Lines whose product is
// gone, unpublished or sold out are dropped and quantities are clamped to stock.
func (s *visitorService) refresh(ctx context.Context, items []domain.CartItem) ([]domain.CartItem, error) {
	if len(items) == 0 {
		return []domain.CartItem{}, nil
	}
	ids := make([]uuid.UUID, len(items))
	for i, it := range items {
		ids[i] = it.ProductID
	}
	found, err := s.products.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[uuid.UUID]*domain.Product, len(found))
	for _, p := range found {
		byID[p.ID] = p
	}

	fresh := []domain.CartItem{}
	for _, it := range items {
		p, ok := byID[it.ProductID]
		if !ok || !p.IsActive() || !p.InStock() {
			continue
		}
		fresh = cart.Add(fresh, domain.CartItemFromProduct(p, it.Quantity))
	}
	return fresh, nil
}

// Cart returns the priced cart after refreshing it against the catalog
func (s *visitorService) Cart(ctx context.Context, visitorID string) (cart.Summary, error) {
	state, err := s.store.Update(ctx, visitorID, func(state *domain.VisitorState) error {
		fresh, err := s.refresh(ctx, state.Cart)
		if err != nil {
			return err
		}
		state.Cart = fresh
		return nil
	})
	if err != nil {
		return cart.Summary{}, err
	}
	return s.summarize(ctx, state.Cart)
}

func (s *visitorService) purchasable(ctx context.Context, productID uuid.UUID, qty int) (*domain.Product, error) {
	if qty <= 0 || qty > cart.MaxLineQuantity {
		return nil, ErrInvalidQuantity
	}
	p, err := s.products.FindByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	if !p.IsActive() {
		return nil, repository.ErrProductNotFound
	}
	if !p.InStock() {
		return nil, &repository.StockError{ProductID: p.ID, Title: p.Title, Requested: qty, Err: repository.ErrInsufficientStock}
	}
	return p, nil
}

// AddToCart adds qty units of a product, merging with an existing line
func (s *visitorService) AddToCart(ctx context.Context, visitorID string, productID uuid.UUID, qty int) (cart.Summary, error) {
	p, err := s.purchasable(ctx, productID, qty)
	if err != nil {
		return cart.Summary{}, err
	}
	state, err := s.store.Update(ctx, visitorID, func(state *domain.VisitorState) error {
		state.Cart = cart.Add(state.Cart, domain.CartItemFromProduct(p, qty))
		return nil
	})
	if err != nil {
		return cart.Summary{}, err
	}
	return s.summarize(ctx, state.Cart)
}

// UpdateCartItem sets the quantity of a line; zero or less removes it
func (s *visitorService) UpdateCartItem(ctx context.Context, visitorID string, productID uuid.UUID, qty int) (cart.Summary, error) {
	if qty > cart.MaxLineQuantity {
		return cart.Summary{}, ErrInvalidQuantity
	}
	state, err := s.store.Update(ctx, visitorID, func(state *domain.VisitorState) error {
		if _, ok := cart.Find(state.Cart, productID); !ok {
			return repository.ErrProductNotFound
		}
		state.Cart = cart.UpdateQuantity(state.Cart, productID, qty)
		return nil
	})
	if err != nil {
		return cart.Summary{}, err
	}
	return s.summarize(ctx, state.Cart)
}

func (s *visitorService) RemoveFromCart(ctx context.Context, visitorID string, productID uuid.UUID) (cart.Summary, error) {
	state, err := s.store.Update(ctx, visitorID, func(state *domain.VisitorState) error {
		state.Cart = cart.Remove(state.Cart, productID)
		return nil
	})
	if err != nil {
		return cart.Summary{}, err
	}
	return s.summarize(ctx, state.Cart)
}

func (s *visitorService) ClearCart(ctx context.Context, visitorID string) (cart.Summary, error) {
	state, err := s.store.Update(ctx, visitorID, func(state *domain.VisitorState) error {
		state.Cart = cart.Clear()
		return nil
	})
	if err != nil {
		return cart.Summary{}, err
	}
	return s.summarize(ctx, state.Cart)
}

// Checkout places an order from the visitor cart and empties the cart on success
func (s *visitorService) Checkout(ctx context.Context, visitorID string, customer domain.Customer, note string) (*domain.Order, error) {
	state, err := s.store.Load(ctx, visitorID)
	if err != nil {
		return nil, err
	}

	order, err := s.orders.Checkout(ctx, CheckoutInput{Items: state.Cart, Customer: customer, Note: note})
	if err != nil {
		return nil, err
	}

	// the order is placed; a failure to empty the cart must not hide it
	_, err = s.store.Update(ctx, visitorID, func(state *domain.VisitorState) error {
		state.Cart = cart.Clear()
		return nil
	})
	if err != nil {
		s.logger.Warn("Failed to clear cart after checkout",
			zap.String("order", order.Number),
			zap.String("visitor_id", visitorID),
			zap.Error(err),
		)
	}
	return order, nil
}

// Wishlist returns the saved products that are still published
func (s *visitorService) Wishlist(ctx context.Context, visitorID string) ([]*domain.Product, error) {
	state, err := s.store.Load(ctx, visitorID)
	if err != nil {
		return nil, err
	}
	return s.activeByIDs(ctx, state.Wishlist)
}

// ToggleWishlist flips the membership of a product and reports the new state
func (s *visitorService) ToggleWishlist(ctx context.Context, visitorID string, productID uuid.UUID) (bool, error) {
	if _, err := s.products.FindByID(ctx, productID); err != nil {
		return false, err
	}
	state, err := s.store.Update(ctx, visitorID, func(state *domain.VisitorState) error {
		state.Wishlist = cart.ToggleWishlist(state.Wishlist, productID)
		return nil
	})
	if err != nil {
		return false, err
	}
	return cart.InWishlist(state.Wishlist, productID), nil
}

func (s *visitorService) ClearWishlist(ctx context.Context, visitorID string) error {
	_, err := s.store.Update(ctx, visitorID, func(state *domain.VisitorState) error {
		state.Wishlist = []uuid.UUID{}
		return nil
	})
	return err
}

// RecentlyViewed returns the last viewed products, most recent first
func (s *visitorService) RecentlyViewed(ctx context.Context, visitorID string) ([]*domain.Product, error) {
	state, err := s.store.Load(ctx, visitorID)
	if err != nil {
		return nil, err
	}
	return s.activeByIDs(ctx, state.RecentlyViewed)
}

func (s *visitorService) MarkViewed(ctx context.Context, visitorID string, productID uuid.UUID) error {
	_, err := s.store.Update(ctx, visitorID, func(state *domain.VisitorState) error {
		state.RecentlyViewed = cart.PushRecentlyViewed(state.RecentlyViewed, productID)
		return nil
	})
	return err
}

func (s *visitorService) Preferences(ctx context.Context, visitorID string) (domain.Preferences, error) {
	state, err := s.store.Load(ctx, visitorID)
	if err != nil {
		return domain.Preferences{}, err
	}
	return state.Preferences, nil
}

func (s *visitorService) UpdatePreferences(ctx context.Context, visitorID string, prefs domain.Preferences) (domain.Preferences, error) {
	state, err := s.store.Update(ctx, visitorID, func(state *domain.VisitorState) error {
		state.Preferences = prefs
		return nil
	})
	if err != nil {
		return domain.Preferences{}, err
	}
	return state.Preferences, nil
}

func (s *visitorService) activeByIDs(ctx context.Context, ids []uuid.UUID) ([]*domain.Product, error) {
	found, err := s.products.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := make([]*domain.Product, 0, len(found))
	for _, p := range found {
		if p.IsActive() {
			out = append(out, p)
		}
	}
	return out, nil
}
