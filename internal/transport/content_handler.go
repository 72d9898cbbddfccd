package transport

import (
	"net/http"

	"vitrine/internal/domain"
	"vitrine/internal/middleware"
	"vitrine/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// ContentHandler serves banners, FAQ entries and site settings
type ContentHandler struct {
	contentService service.ContentService
	logger         *zap.Logger
}

// NewContentHandler creates a new ContentHandler
func NewContentHandler(contentService service.ContentService, logger *zap.Logger) *ContentHandler {
	return &ContentHandler{
		contentService: contentService,
		logger:         logger,
	}
}

// RegisterRoutes registers the public content routes
func (h *ContentHandler) RegisterRoutes(r chi.Router) {
	r.Get("/banners", h.PublicBanners)
	r.Get("/faq", h.PublicFaq)
	r.Get("/settings", h.GetSettings)
}

// RegisterAdminRoutes registers the content editing routes
func (h *ContentHandler) RegisterAdminRoutes(r chi.Router) {
	r.Route("/banners", func(r chi.Router) {
		r.Get("/", h.AllBanners)
		r.Post("/", h.CreateBanner)
		r.Put("/{id}", h.UpdateBanner)
		r.Delete("/{id}", h.DeleteBanner)
	})
	r.Route("/faq", func(r chi.Router) {
		r.Get("/", h.AllFaq)
		r.Post("/", h.CreateFaq)
		r.Put("/{id}", h.UpdateFaq)
		r.Delete("/{id}", h.DeleteFaq)
	})
	r.Get("/settings", h.GetSettings)
	r.Put("/settings", h.UpdateSettings)
}

func (h *ContentHandler) PublicBanners(w http.ResponseWriter, r *http.Request) {
	h.listBanners(w, r, true)
}

func (h *ContentHandler) AllBanners(w http.ResponseWriter, r *http.Request) {
	h.listBanners(w, r, false)
}

func (h *ContentHandler) listBanners(w http.ResponseWriter, r *http.Request, activeOnly bool) {
	banners, err := h.contentService.ListBanners(r.Context(), activeOnly)
	if err != nil {
		respondServiceError(w, h.logger, err, "Banner listing")
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, banners)
}

func (h *ContentHandler) CreateBanner(w http.ResponseWriter, r *http.Request) {
	var req service.BannerInput
	if !decodeRequest(w, r, h.logger, &req) {
		return
	}
	banner, err := h.contentService.CreateBanner(r.Context(), req)
	if err != nil {
		respondServiceError(w, h.logger, err, "Banner creation")
		return
	}
	h.logger.Info("Banner created", zap.String("banner_id", banner.ID.String()))
	middleware.RespondWithJSON(w, http.StatusCreated, banner)
}

func (h *ContentHandler) UpdateBanner(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req service.BannerInput
	if !decodeRequest(w, r, h.logger, &req) {
		return
	}
	banner, err := h.contentService.UpdateBanner(r.Context(), id, req)
	if err != nil {
		respondServiceError(w, h.logger, err, "Banner update")
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, banner)
}

func (h *ContentHandler) DeleteBanner(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.contentService.DeleteBanner(r.Context(), id); err != nil {
		respondServiceError(w, h.logger, err, "Banner deletion")
		return
	}
	h.logger.Info("Banner deleted", zap.String("banner_id", id.String()))
	noContent(w)
}

func (h *ContentHandler) PublicFaq(w http.ResponseWriter, r *http.Request) {
	h.listFaq(w, r, true)
}

func (h *ContentHandler) AllFaq(w http.ResponseWriter, r *http.Request) {
	h.listFaq(w, r, false)
}

func (h *ContentHandler) listFaq(w http.ResponseWriter, r *http.Request, publishedOnly bool) {
	items, err := h.contentService.ListFaq(r.Context(), publishedOnly)
	if err != nil {
		respondServiceError(w, h.logger, err, "FAQ listing")
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, items)
}

func (h *ContentHandler) CreateFaq(w http.ResponseWriter, r *http.Request) {
	var req service.FaqInput
	if !decodeRequest(w, r, h.logger, &req) {
		return
	}
	item, err := h.contentService.CreateFaq(r.Context(), req)
	if err != nil {
		respondServiceError(w, h.logger, err, "FAQ creation")
		return
	}
	middleware.RespondWithJSON(w, http.StatusCreated, item)
}

func (h *ContentHandler) UpdateFaq(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req service.FaqInput
	if !decodeRequest(w, r, h.logger, &req) {
		return
	}
	item, err := h.contentService.UpdateFaq(r.Context(), id, req)
	if err != nil {
		respondServiceError(w, h.logger, err, "FAQ update")
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, item)
}

func (h *ContentHandler) DeleteFaq(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.contentService.DeleteFaq(r.Context(), id); err != nil {
		respondServiceError(w, h.logger, err, "FAQ deletion")
		return
	}
	noContent(w)
}

// GetSettings returns the site settings, defaults included
func (h *ContentHandler) GetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := h.contentService.Settings(r.Context())
	if err != nil {
		respondServiceError(w, h.logger, err, "Settings lookup")
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, settings)
}

// UpdateSettings replaces the settings document
func (h *ContentHandler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var req domain.SiteSettings
	if !decodeRequest(w, r, h.logger, &req) {
		return
	}
	settings, err := h.contentService.UpdateSettings(r.Context(), req)
	if err != nil {
		respondServiceError(w, h.logger, err, "Settings update")
		return
	}
	h.logger.Info("Site settings updated")
	middleware.RespondWithJSON(w, http.StatusOK, settings)
}
