package transport

import (
	"encoding/xml"
	"fmt"
	"net/http"
	"strings"
	"time"

	"vitrine/internal/catalog"
	"vitrine/internal/middleware"
	"vitrine/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

const sitemapNamespace = "http://www.sitemaps.org/schemas/sitemap/0.9"

// staticPages are storefront pages that exist regardless of the catalog
var staticPages = []string{"/", "/products", "/faq", "/orders/track"}

type urlSet struct {
	XMLName xml.Name     `xml:"urlset"`
	Xmlns   string       `xml:"xmlns,attr"`
	URLs    []sitemapURL `xml:"url"`
}

type sitemapURL struct {
	Loc        string `xml:"loc"`
	LastMod    string `xml:"lastmod,omitempty"`
	ChangeFreq string `xml:"changefreq,omitempty"`
	Priority   string `xml:"priority,omitempty"`
}

// SEOHandler serves sitemap.xml and robots.txt
type SEOHandler struct {
	catalogService service.CatalogService
	baseURL        string
	logger         *zap.Logger
}

// NewSEOHandler creates a new SEOHandler. baseURL is the public storefront
// origin, without a trailing slash.
func NewSEOHandler(catalogService service.CatalogService, baseURL string, logger *zap.Logger) *SEOHandler {
	return &SEOHandler{
		catalogService: catalogService,
		baseURL:        strings.TrimRight(baseURL, "/"),
		logger:         logger,
	}
}

func (h *SEOHandler) RegisterRoutes(r chi.Router) {
	r.Get("/sitemap.xml", h.Sitemap)
	r.Get("/robots.txt", h.Robots)
}

// Sitemap lists the static pages, every category and every active product
func (h *SEOHandler) Sitemap(w http.ResponseWriter, r *http.Request) {
	products, err := h.catalogService.AllProducts(r.Context())
	if err != nil {
		respondServiceError(w, h.logger, err, "Sitemap")
		return
	}
	tree, err := h.catalogService.CategoryTree(r.Context())
	if err != nil {
		respondServiceError(w, h.logger, err, "Sitemap")
		return
	}

	set := urlSet{Xmlns: sitemapNamespace}
	for _, page := range staticPages {
		set.URLs = append(set.URLs, sitemapURL{Loc: h.baseURL + page, ChangeFreq: "daily", Priority: "0.8"})
	}
	set.URLs[0].Priority = "1.0"

	for _, c := range catalog.Flatten(tree) {
		set.URLs = append(set.URLs, sitemapURL{
			Loc:        h.baseURL + "/categories/" + c.Slug,
			ChangeFreq: "weekly",
			Priority:   "0.6",
		})
	}
	for _, p := range products {
		if !p.IsActive() {
			continue
		}
		set.URLs = append(set.URLs, sitemapURL{
			Loc:        h.baseURL + "/products/" + p.Slug,
			LastMod:    p.UpdatedAt.UTC().Format(time.RFC3339),
			ChangeFreq: "weekly",
			Priority:   "0.7",
		})
	}

	w.Header().Set("Content-Type", "application/xml; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(xml.Header))
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(set); err != nil {
		h.logger.Error("Failed to write sitemap", zap.Error(err))
	}
}

// Robots keeps crawlers away from the API and points them at the sitemap
func (h *SEOHandler) Robots(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprintf(w, "User-agent: *\nAllow: /\nDisallow: /api/\nDisallow: /admin\n\nSitemap: %s/sitemap.xml\n", h.baseURL)
}

// HealthChecker reports whether a dependency is reachable
type HealthChecker func(r *http.Request) error

// Health answers 200 when every check passes and 503 otherwise, naming the
// failing dependency
func Health(logger *zap.Logger, checks map[string]HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := map[string]string{"status": "ok"}
		code := http.StatusOK
		for name, check := range checks {
			if err := check(r); err != nil {
				logger.Warn("Health check failed", zap.String("dependency", name), zap.Error(err))
				status[name] = "unavailable"
				status["status"] = "degraded"
				code = http.StatusServiceUnavailable
				continue
			}
			status[name] = "ok"
		}
		middleware.RespondWithJSON(w, code, status)
	}
}
