package transport

import (
	"net/http"
	"strings"

	"vitrine/internal/catalog"
	"vitrine/internal/middleware"
	"vitrine/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// StorefrontHandler serves the public catalog and product reviews
type StorefrontHandler struct {
	catalogService service.CatalogService
	reviewService  service.ReviewService
	visitorService service.VisitorService
	logger         *zap.Logger
}

// NewStorefrontHandler creates a new StorefrontHandler
func NewStorefrontHandler(
	catalogService service.CatalogService,
	reviewService service.ReviewService,
	visitorService service.VisitorService,
	logger *zap.Logger,
) *StorefrontHandler {
	return &StorefrontHandler{
		catalogService: catalogService,
		reviewService:  reviewService,
		visitorService: visitorService,
		logger:         logger,
	}
}

// RegisterRoutes registers the catalog routes. reviewLimit throttles review
// submissions.
func (h *StorefrontHandler) RegisterRoutes(r chi.Router, reviewLimit func(http.Handler) http.Handler) {
	r.Get("/home", h.Home)
	r.Get("/search", h.Search)
	r.Get("/products", h.ListProducts)
	r.Get("/products/{slug}", h.GetProduct)
	r.Get("/products/{slug}/reviews", h.ListReviews)
	r.With(reviewLimit).Post("/products/{slug}/reviews", h.SubmitReview)
	r.Get("/categories", h.CategoryTree)
	r.Get("/categories/{slug}", h.GetCategory)
}

// productQuery reads listing filters from the query string. Unparsable
// prices are ignored.
func productQuery(r *http.Request) service.ProductQuery {
	values := r.URL.Query()
	q := service.ProductQuery{
		Category:   values.Get("category"),
		Query:      strings.TrimSpace(values.Get("q")),
		InStock:    queryBool(r, "in_stock"),
		OnSale:     queryBool(r, "on_sale"),
		New:        queryBool(r, "new"),
		Bestseller: queryBool(r, "bestseller"),
		Sort:       catalog.ParseSortKey(values.Get("sort")),
		Page:       queryInt(r, "page", 1),
		PageSize:   queryInt(r, "page_size", 0),
	}
	if v, err := decimal.NewFromString(values.Get("min_price")); err == nil {
		q.MinPrice = &v
	}
	if v, err := decimal.NewFromString(values.Get("max_price")); err == nil {
		q.MaxPrice = &v
	}
	return q
}

// Home returns the home page sections
func (h *StorefrontHandler) Home(w http.ResponseWriter, r *http.Request) {
	home, err := h.catalogService.Home(r.Context())
	if err != nil {
		respondServiceError(w, h.logger, err, "Home page")
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, home)
}

// ListProducts returns one page of active products
func (h *StorefrontHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	page, err := h.catalogService.ListProducts(r.Context(), productQuery(r))
	if err != nil {
		respondServiceError(w, h.logger, err, "Product listing")
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, page)
}

// Search runs a full-text search over active products
func (h *StorefrontHandler) Search(w http.ResponseWriter, r *http.Request) {
	page, err := h.catalogService.Search(r.Context(), r.URL.Query().Get("q"), queryInt(r, "page", 1))
	if err != nil {
		respondServiceError(w, h.logger, err, "Search")
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, page)
}

// GetProduct returns a product page and records the visit
func (h *StorefrontHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	detail, err := h.catalogService.ProductBySlug(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		respondServiceError(w, h.logger, err, "Product lookup")
		return
	}

	if vid, ok := middleware.GetVisitorID(r.Context()); ok {
		if err := h.visitorService.MarkViewed(r.Context(), vid, detail.Product.ID); err != nil {
			h.logger.Warn("Failed to record product view", zap.String("slug", detail.Product.Slug), zap.Error(err))
		}
	}

	middleware.RespondWithJSON(w, http.StatusOK, detail)
}

// CategoryTree returns the category hierarchy with product counts
func (h *StorefrontHandler) CategoryTree(w http.ResponseWriter, r *http.Request) {
	tree, err := h.catalogService.CategoryTree(r.Context())
	if err != nil {
		respondServiceError(w, h.logger, err, "Category tree")
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, tree)
}

// GetCategory returns a category page with its products
func (h *StorefrontHandler) GetCategory(w http.ResponseWriter, r *http.Request) {
	page, err := h.catalogService.CategoryBySlug(r.Context(), chi.URLParam(r, "slug"), productQuery(r))
	if err != nil {
		respondServiceError(w, h.logger, err, "Category lookup")
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, page)
}

// ListReviews returns the approved reviews of a product
func (h *StorefrontHandler) ListReviews(w http.ResponseWriter, r *http.Request) {
	reviews, err := h.reviewService.ForProduct(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		respondServiceError(w, h.logger, err, "Review listing")
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, reviews)
}

// SubmitReview records a review pending moderation
func (h *StorefrontHandler) SubmitReview(w http.ResponseWriter, r *http.Request) {
	var req service.ReviewInput
	if !decodeRequest(w, r, h.logger, &req) {
		return
	}

	review, err := h.reviewService.Submit(r.Context(), chi.URLParam(r, "slug"), req)
	if err != nil {
		respondServiceError(w, h.logger, err, "Review submission")
		return
	}

	h.logger.Info("Review submitted", zap.String("review_id", review.ID.String()))
	middleware.RespondWithJSON(w, http.StatusAccepted, review)
}
