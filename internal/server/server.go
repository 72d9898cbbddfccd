package server

import (
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"vitrine/internal/config"
	custommiddleware "vitrine/internal/middleware"
	"vitrine/internal/media"
	"vitrine/internal/repository"
	"vitrine/internal/service"
	"vitrine/internal/session"
	"vitrine/internal/transport"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Stricter per-client budgets for endpoints that are worth abusing
const (
	loginRequestsPerWindow    = 10
	checkoutRequestsPerWindow = 20
	reviewRequestsPerWindow   = 5
)

type Server struct {
	*http.Server
	config *config.Config
	logger *zap.Logger
	db     *sql.DB
	redis  *redis.Client
}

// Services bundles the application services behind the HTTP surface
type Services struct {
	Auth      service.AuthService
	Catalog   service.CatalogService
	Orders    service.OrderService
	Visitors  service.VisitorService
	Content   service.ContentService
	Reviews   service.ReviewService
	Dashboard service.DashboardService
}

// NewServices wires repositories and services over db and the visitor store
func NewServices(cfg *config.Config, db *sql.DB, store session.Store, logger *zap.Logger) Services {
	// Initialize repositories
	adminRepo := repository.NewAdminRepository(db)
	refreshTokenRepo := repository.NewRefreshTokenRepository(db)
	productRepo := repository.NewProductRepository(db)
	categoryRepo := repository.NewCategoryRepository(db)
	orderRepo := repository.NewOrderRepository(db)
	publicOrderRepo := repository.NewPublicOrderRepository(db)
	bannerRepo := repository.NewBannerRepository(db)
	faqRepo := repository.NewFaqRepository(db)
	settingsRepo := repository.NewSettingsRepository(db)
	reviewRepo := repository.NewReviewRepository(db)

	// Initialize services
	orders := service.NewOrderService(orderRepo, publicOrderRepo, productRepo, settingsRepo)
	return Services{
		Auth: service.NewAuthService(
			adminRepo,
			refreshTokenRepo,
			cfg.JWT.Secret,
			time.Duration(cfg.JWT.AccessExpiry)*time.Minute,
			time.Duration(cfg.JWT.RefreshExpiry)*24*time.Hour,
		),
		Catalog:   service.NewCatalogService(productRepo, categoryRepo, bannerRepo, reviewRepo),
		Orders:    orders,
		Visitors:  service.NewVisitorService(store, productRepo, settingsRepo, orders, logger),
		Content:   service.NewContentService(bannerRepo, faqRepo, settingsRepo),
		Reviews:   service.NewReviewService(reviewRepo, productRepo),
		Dashboard: service.NewDashboardService(productRepo, orderRepo, settingsRepo),
	}
}

func NewServer(cfg *config.Config, logger *zap.Logger, db *sql.DB, redisClient *redis.Client, services Services, uploader media.Uploader) *Server {
	// Create router
	router := chi.NewRouter()

	// Add basic middleware
	for _, mw := range custommiddleware.DefaultMiddlewareStack() {
		router.Use(mw)
	}
	router.Use(custommiddleware.LoggingMiddleware(logger))
	router.Use(custommiddleware.ErrorHandlingMiddleware(logger))
	router.Use(custommiddleware.CORSMiddleware(cfg.Server.AllowedOrigins, !cfg.IsProduction()))

	// Health check endpoint
	router.Get("/health", transport.Health(logger, map[string]transport.HealthChecker{
		"database": func(r *http.Request) error { return db.PingContext(r.Context()) },
		"redis":    func(r *http.Request) error { return redisClient.Ping(r.Context()).Err() },
	}))

	window := time.Duration(cfg.RateLimit.WindowSeconds) * time.Second
	limit := func(prefix string, requests int) func(http.Handler) http.Handler {
		return custommiddleware.RateLimitMiddleware(redisClient, custommiddleware.RateLimitConfig{
			RequestsPerWindow: requests,
			Window:            window,
			KeyPrefix:         "ratelimit:" + prefix,
		}, logger)
	}

	// Initialize handlers
	storefrontHandler := transport.NewStorefrontHandler(services.Catalog, services.Reviews, services.Visitors, logger)
	visitorHandler := transport.NewVisitorHandler(services.Visitors, services.Orders, logger)
	contentHandler := transport.NewContentHandler(services.Content, logger)
	authHandler := transport.NewAuthHandler(services.Auth, logger)
	adminCatalogHandler := transport.NewAdminCatalogHandler(services.Catalog, uploader, logger)
	adminOrderHandler := transport.NewAdminOrderHandler(services.Orders, services.Reviews, services.Dashboard, logger)
	seoHandler := transport.NewSEOHandler(services.Catalog, cfg.Server.BaseURL, logger)

	// Create auth middleware
	authMiddleware := custommiddleware.AuthMiddleware(cfg.JWT.Secret, logger)

	// Register routes
	seoHandler.RegisterRoutes(router)

	router.Route("/api", func(r chi.Router) {
		r.Use(limit("api", cfg.RateLimit.Requests))

		// Storefront
		r.Group(func(r chi.Router) {
			r.Use(custommiddleware.VisitorSession(session.DefaultTTL, cfg.IsProduction()))
			storefrontHandler.RegisterRoutes(r, limit("reviews", reviewRequestsPerWindow))
			visitorHandler.RegisterRoutes(r, limit("checkout", checkoutRequestsPerWindow))
			contentHandler.RegisterRoutes(r)
		})

		// Back office
		r.Route("/admin", func(r chi.Router) {
			authHandler.RegisterRoutes(r, limit("login", loginRequestsPerWindow), authMiddleware)

			r.Group(func(r chi.Router) {
				r.Use(authMiddleware)
				r.Use(custommiddleware.RequireAdmin(logger))
				authHandler.RegisterAdminRoutes(r)
				adminCatalogHandler.RegisterRoutes(r)
				adminOrderHandler.RegisterRoutes(r)
				contentHandler.RegisterAdminRoutes(r)
			})
		})
	})

	server := &Server{
		Server: &http.Server{
			Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
			Handler:      router,
			IdleTimeout:  time.Minute,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		config: cfg,
		logger: logger,
		db:     db,
		redis:  redisClient,
	}

	return server
}

func (s *Server) Close() error {
	s.logger.Info("Closing server resources")

	// Close database connection
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			s.logger.Error("Failed to close database connection", zap.Error(err))
		}
	}

	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			s.logger.Error("Failed to close redis connection", zap.Error(err))
		}
	}

	s.logger.Sync()
	return nil
}
