package transport

import (
	"fmt"
	"net/http"
	"time"

	"vitrine/internal/domain"
	"vitrine/internal/export"
	"vitrine/internal/media"
	"vitrine/internal/middleware"
	"vitrine/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// StockRequest sets the stock of a product
type StockRequest struct {
	Stock int `json:"stock" validate:"gte=0"`
}

// AdminCatalogHandler serves product and category editing
type AdminCatalogHandler struct {
	catalogService service.CatalogService
	uploader       media.Uploader
	logger         *zap.Logger
	now            func() time.Time
}

// NewAdminCatalogHandler creates a new AdminCatalogHandler
func NewAdminCatalogHandler(catalogService service.CatalogService, uploader media.Uploader, logger *zap.Logger) *AdminCatalogHandler {
	return &AdminCatalogHandler{
		catalogService: catalogService,
		uploader:       uploader,
		logger:         logger,
		now:            time.Now,
	}
}

// RegisterRoutes registers the back-office catalog routes
func (h *AdminCatalogHandler) RegisterRoutes(r chi.Router) {
	r.Route("/products", func(r chi.Router) {
		r.Get("/", h.ListProducts)
		r.Post("/", h.CreateProduct)
		r.Get("/export.csv", h.ExportProducts)
		r.Get("/{id}", h.GetProduct)
		r.Put("/{id}", h.UpdateProduct)
		r.Delete("/{id}", h.DeleteProduct)
		r.Post("/{id}/duplicate", h.DuplicateProduct)
		r.Patch("/{id}/stock", h.UpdateStock)
		r.Post("/{id}/images", h.UploadImage)
	})

	r.Route("/categories", func(r chi.Router) {
		r.Get("/", h.ListCategories)
		r.Get("/flat", h.FlatCategories)
		r.Post("/", h.CreateCategory)
		r.Get("/{id}", h.GetCategory)
		r.Put("/{id}", h.UpdateCategory)
		r.Delete("/{id}", h.DeleteCategory)
	})
}

// ListProducts lists every product, drafts included
func (h *AdminCatalogHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	q := productQuery(r)
	q.Status = domain.ProductStatus(r.URL.Query().Get("status"))

	page, err := h.catalogService.AdminListProducts(r.Context(), q)
	if err != nil {
		respondServiceError(w, h.logger, err, "Admin product listing")
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, page)
}

func (h *AdminCatalogHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	product, err := h.catalogService.GetProduct(r.Context(), id)
	if err != nil {
		respondServiceError(w, h.logger, err, "Product lookup")
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, product)
}

func (h *AdminCatalogHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var req service.ProductInput
	if !decodeRequest(w, r, h.logger, &req) {
		return
	}
	product, err := h.catalogService.CreateProduct(r.Context(), req)
	if err != nil {
		respondServiceError(w, h.logger, err, "Product creation")
		return
	}
	h.logger.Info("Product created",
		zap.String("product_id", product.ID.String()),
		zap.String("slug", product.Slug),
	)
	middleware.RespondWithJSON(w, http.StatusCreated, product)
}

func (h *AdminCatalogHandler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req service.ProductInput
	if !decodeRequest(w, r, h.logger, &req) {
		return
	}
	product, err := h.catalogService.UpdateProduct(r.Context(), id, req)
	if err != nil {
		respondServiceError(w, h.logger, err, "Product update")
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, product)
}

func (h *AdminCatalogHandler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.catalogService.DeleteProduct(r.Context(), id); err != nil {
		respondServiceError(w, h.logger, err, "Product deletion")
		return
	}
	h.logger.Info("Product deleted", zap.String("product_id", id.String()))
	noContent(w)
}

// DuplicateProduct copies a product as a new draft
func (h *AdminCatalogHandler) DuplicateProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	product, err := h.catalogService.DuplicateProduct(r.Context(), id)
	if err != nil {
		respondServiceError(w, h.logger, err, "Product duplication")
		return
	}
	middleware.RespondWithJSON(w, http.StatusCreated, product)
}

func (h *AdminCatalogHandler) UpdateStock(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req StockRequest
	if !decodeRequest(w, r, h.logger, &req) {
		return
	}
	product, err := h.catalogService.UpdateStock(r.Context(), id, req.Stock)
	if err != nil {
		respondServiceError(w, h.logger, err, "Stock update")
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, product)
}

// UploadImage stores the multipart "image" field and appends its URL to the
// product images
func (h *AdminCatalogHandler) UploadImage(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if !h.uploader.Enabled() {
		respondServiceError(w, h.logger, media.ErrDisabled, "Image upload")
		return
	}
	// nothing reaches the bucket for a product that does not exist
	if _, err := h.catalogService.GetProduct(r.Context(), id); err != nil {
		respondServiceError(w, h.logger, err, "Image upload")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, media.MaxUploadSize+1<<20)
	file, header, err := r.FormFile("image")
	if err != nil {
		h.logger.Debug("Invalid image upload", zap.Error(err))
		middleware.RespondWithError(w, http.StatusBadRequest, "fichier image manquant")
		return
	}
	defer file.Close()

	url, err := h.uploader.Upload(r.Context(), header.Filename, file)
	if err != nil {
		respondServiceError(w, h.logger, err, "Image upload")
		return
	}

	product, err := h.catalogService.AddProductImage(r.Context(), id, url)
	if err != nil {
		respondServiceError(w, h.logger, err, "Image attach")
		return
	}

	h.logger.Info("Product image uploaded",
		zap.String("product_id", id.String()),
		zap.String("filename", header.Filename),
		zap.String("url", url),
	)
	middleware.RespondWithJSON(w, http.StatusCreated, product)
}

// ExportProducts streams the whole catalog as CSV
func (h *AdminCatalogHandler) ExportProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.catalogService.AllProducts(r.Context())
	if err != nil {
		respondServiceError(w, h.logger, err, "Product export")
		return
	}

	writeCSVHeaders(w, export.Filename("produits", h.now()))
	if err := export.WriteProductsCSV(w, products, csvOptions(r)); err != nil {
		h.logger.Error("Failed to write product export", zap.Error(err))
	}
}

// ListCategories returns the category tree with product counts
func (h *AdminCatalogHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	tree, err := h.catalogService.CategoryTree(r.Context())
	if err != nil {
		respondServiceError(w, h.logger, err, "Category tree")
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, tree)
}

// FlatCategories returns the indented category list used by pickers
func (h *AdminCatalogHandler) FlatCategories(w http.ResponseWriter, r *http.Request) {
	flat, err := h.catalogService.FlatCategories(r.Context())
	if err != nil {
		respondServiceError(w, h.logger, err, "Category listing")
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, flat)
}

func (h *AdminCatalogHandler) GetCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	category, err := h.catalogService.GetCategory(r.Context(), id)
	if err != nil {
		respondServiceError(w, h.logger, err, "Category lookup")
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, category)
}

func (h *AdminCatalogHandler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var req service.CategoryInput
	if !decodeRequest(w, r, h.logger, &req) {
		return
	}
	category, err := h.catalogService.CreateCategory(r.Context(), req)
	if err != nil {
		respondServiceError(w, h.logger, err, "Category creation")
		return
	}
	h.logger.Info("Category created", zap.String("slug", category.Slug))
	middleware.RespondWithJSON(w, http.StatusCreated, category)
}

func (h *AdminCatalogHandler) UpdateCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req service.CategoryInput
	if !decodeRequest(w, r, h.logger, &req) {
		return
	}
	category, err := h.catalogService.UpdateCategory(r.Context(), id, req)
	if err != nil {
		respondServiceError(w, h.logger, err, "Category update")
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, category)
}

func (h *AdminCatalogHandler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.catalogService.DeleteCategory(r.Context(), id); err != nil {
		respondServiceError(w, h.logger, err, "Category deletion")
		return
	}
	noContent(w)
}

// csvOptions honours ?sep=semicolon for spreadsheet locales that expect it
func csvOptions(r *http.Request) export.Options {
	opts := export.DefaultOptions
	if r.URL.Query().Get("sep") == "semicolon" {
		opts.Comma = ';'
	}
	return opts
}

func writeCSVHeaders(w http.ResponseWriter, filename string) {
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
}
