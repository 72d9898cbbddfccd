package transport

import (
	"net/http"

	"vitrine/internal/domain"
	"vitrine/internal/middleware"
	"vitrine/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AddToCartRequest adds a product to the cart
type AddToCartRequest struct {
	ProductID uuid.UUID `json:"product_id" validate:"required"`
	Quantity  int       `json:"quantity" validate:"min=1,max=99"`
}

// UpdateCartItemRequest sets the quantity of a cart line. Zero removes it.
type UpdateCartItemRequest struct {
	Quantity int `json:"quantity" validate:"min=0,max=99"`
}

// CheckoutRequest places an order from the visitor cart
type CheckoutRequest struct {
	Customer domain.Customer `json:"customer"`
	Note     string          `json:"note" validate:"max=2000"`
}

// PreferencesRequest updates the visitor toggles
type PreferencesRequest struct {
	CookieConsent domain.CookieConsent `json:"cookie_consent" validate:"omitempty,oneof=accepted rejected"`
	SnowEffect    bool                 `json:"snow_effect"`
}

// WishlistToggleResponse reports membership after a toggle
type WishlistToggleResponse struct {
	ProductID  uuid.UUID `json:"product_id"`
	InWishlist bool      `json:"in_wishlist"`
}

// VisitorHandler serves the anonymous visitor state and checkout
type VisitorHandler struct {
	visitorService service.VisitorService
	orderService   service.OrderService
	logger         *zap.Logger
}

// NewVisitorHandler creates a new VisitorHandler
func NewVisitorHandler(visitorService service.VisitorService, orderService service.OrderService, logger *zap.Logger) *VisitorHandler {
	return &VisitorHandler{
		visitorService: visitorService,
		orderService:   orderService,
		logger:         logger,
	}
}

// RegisterRoutes registers the visitor routes. checkoutLimit throttles order
// placement and tracking lookups.
func (h *VisitorHandler) RegisterRoutes(r chi.Router, checkoutLimit func(http.Handler) http.Handler) {
	r.Route("/cart", func(r chi.Router) {
		r.Get("/", h.GetCart)
		r.Delete("/", h.ClearCart)
		r.Post("/items", h.AddToCart)
		r.Patch("/items/{productID}", h.UpdateCartItem)
		r.Delete("/items/{productID}", h.RemoveFromCart)
	})

	r.Get("/wishlist", h.GetWishlist)
	r.Delete("/wishlist", h.ClearWishlist)
	r.Post("/wishlist/{productID}/toggle", h.ToggleWishlist)

	r.Get("/recently-viewed", h.RecentlyViewed)

	r.Get("/preferences", h.GetPreferences)
	r.Put("/preferences", h.UpdatePreferences)

	r.Group(func(r chi.Router) {
		r.Use(checkoutLimit)
		r.Post("/checkout", h.Checkout)
		r.Get("/orders/track", h.TrackOrder)
	})
}

// GetCart returns the cart refreshed against the catalog
func (h *VisitorHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	vid, ok := visitorID(w, r)
	if !ok {
		return
	}
	summary, err := h.visitorService.Cart(r.Context(), vid)
	if err != nil {
		respondServiceError(w, h.logger, err, "Cart lookup")
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, summary)
}

// AddToCart adds a product, merging with an existing line
func (h *VisitorHandler) AddToCart(w http.ResponseWriter, r *http.Request) {
	vid, ok := visitorID(w, r)
	if !ok {
		return
	}
	var req AddToCartRequest
	if !decodeRequest(w, r, h.logger, &req) {
		return
	}
	summary, err := h.visitorService.AddToCart(r.Context(), vid, req.ProductID, req.Quantity)
	if err != nil {
		respondServiceError(w, h.logger, err, "Add to cart")
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, summary)
}

// UpdateCartItem changes the quantity of a line
func (h *VisitorHandler) UpdateCartItem(w http.ResponseWriter, r *http.Request) {
	vid, ok := visitorID(w, r)
	if !ok {
		return
	}
	productID, ok := pathID(w, r, "productID")
	if !ok {
		return
	}
	var req UpdateCartItemRequest
	if !decodeRequest(w, r, h.logger, &req) {
		return
	}
	summary, err := h.visitorService.UpdateCartItem(r.Context(), vid, productID, req.Quantity)
	if err != nil {
		respondServiceError(w, h.logger, err, "Cart update")
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, summary)
}

// RemoveFromCart drops a line
func (h *VisitorHandler) RemoveFromCart(w http.ResponseWriter, r *http.Request) {
	vid, ok := visitorID(w, r)
	if !ok {
		return
	}
	productID, ok := pathID(w, r, "productID")
	if !ok {
		return
	}
	summary, err := h.visitorService.RemoveFromCart(r.Context(), vid, productID)
	if err != nil {
		respondServiceError(w, h.logger, err, "Cart removal")
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, summary)
}

// ClearCart empties the cart
func (h *VisitorHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	vid, ok := visitorID(w, r)
	if !ok {
		return
	}
	summary, err := h.visitorService.ClearCart(r.Context(), vid)
	if err != nil {
		respondServiceError(w, h.logger, err, "Cart clear")
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, summary)
}

// Checkout turns the cart into an order
func (h *VisitorHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	vid, ok := visitorID(w, r)
	if !ok {
		return
	}
	var req CheckoutRequest
	if !decodeRequest(w, r, h.logger, &req) {
		return
	}

	order, err := h.visitorService.Checkout(r.Context(), vid, req.Customer, req.Note)
	if err != nil {
		respondServiceError(w, h.logger, err, "Checkout")
		return
	}

	h.logger.Info("Order placed",
		zap.String("order_id", order.ID.String()),
		zap.String("number", order.Number),
		zap.String("total", order.Total.StringFixed(2)),
	)
	middleware.RespondWithJSON(w, http.StatusCreated, order.Public())
}

// TrackOrder looks an order up by number and email. A wrong email answers
// exactly like an unknown number.
func (h *VisitorHandler) TrackOrder(w http.ResponseWriter, r *http.Request) {
	number := r.URL.Query().Get("number")
	email := r.URL.Query().Get("email")
	if number == "" || email == "" {
		middleware.RespondWithError(w, http.StatusBadRequest, "numéro de commande et email requis")
		return
	}

	order, err := h.orderService.Track(r.Context(), number, email)
	if err != nil {
		respondServiceError(w, h.logger, err, "Order tracking")
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, order)
}

// GetWishlist returns the wishlisted products still available
func (h *VisitorHandler) GetWishlist(w http.ResponseWriter, r *http.Request) {
	vid, ok := visitorID(w, r)
	if !ok {
		return
	}
	products, err := h.visitorService.Wishlist(r.Context(), vid)
	if err != nil {
		respondServiceError(w, h.logger, err, "Wishlist lookup")
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, products)
}

// ToggleWishlist adds or removes a product
func (h *VisitorHandler) ToggleWishlist(w http.ResponseWriter, r *http.Request) {
	vid, ok := visitorID(w, r)
	if !ok {
		return
	}
	productID, ok := pathID(w, r, "productID")
	if !ok {
		return
	}
	in, err := h.visitorService.ToggleWishlist(r.Context(), vid, productID)
	if err != nil {
		respondServiceError(w, h.logger, err, "Wishlist toggle")
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, WishlistToggleResponse{ProductID: productID, InWishlist: in})
}

func (h *VisitorHandler) ClearWishlist(w http.ResponseWriter, r *http.Request) {
	vid, ok := visitorID(w, r)
	if !ok {
		return
	}
	if err := h.visitorService.ClearWishlist(r.Context(), vid); err != nil {
		respondServiceError(w, h.logger, err, "Wishlist clear")
		return
	}
	noContent(w)
}

func (h *VisitorHandler) RecentlyViewed(w http.ResponseWriter, r *http.Request) {
	vid, ok := visitorID(w, r)
	if !ok {
		return
	}
	products, err := h.visitorService.RecentlyViewed(r.Context(), vid)
	if err != nil {
		respondServiceError(w, h.logger, err, "Recently viewed lookup")
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, products)
}

func (h *VisitorHandler) GetPreferences(w http.ResponseWriter, r *http.Request) {
	vid, ok := visitorID(w, r)
	if !ok {
		return
	}
	prefs, err := h.visitorService.Preferences(r.Context(), vid)
	if err != nil {
		respondServiceError(w, h.logger, err, "Preferences lookup")
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, prefs)
}

func (h *VisitorHandler) UpdatePreferences(w http.ResponseWriter, r *http.Request) {
	vid, ok := visitorID(w, r)
	if !ok {
		return
	}
	var req PreferencesRequest
	if !decodeRequest(w, r, h.logger, &req) {
		return
	}
	prefs, err := h.visitorService.UpdatePreferences(r.Context(), vid, domain.Preferences{
		CookieConsent: req.CookieConsent,
		SnowEffect:    req.SnowEffect,
	})
	if err != nil {
		respondServiceError(w, h.logger, err, "Preferences update")
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, prefs)
}
