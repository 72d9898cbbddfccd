package transport

import (
	"net/http"

	"vitrine/internal/domain"
	"vitrine/internal/middleware"
	"vitrine/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// LoginRequest represents the login request payload
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// RefreshRequest represents the token refresh request payload
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// CreateAdminRequest creates another back-office account
type CreateAdminRequest struct {
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,min=8,max=72"`
	Name     string `json:"name" validate:"required,max=100"`
}

// LoginResponse represents the login response
type LoginResponse struct {
	AccessToken  string        `json:"access_token"`
	RefreshToken string        `json:"refresh_token"`
	Admin        *domain.Admin `json:"admin"`
}

// RefreshResponse represents the token refresh response
type RefreshResponse struct {
	AccessToken string `json:"access_token"`
}

// AuthHandler handles back-office authentication and accounts
type AuthHandler struct {
	authService service.AuthService
	logger      *zap.Logger
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(authService service.AuthService, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		logger:      logger,
	}
}

// RegisterRoutes registers the /auth routes. loginLimit throttles login
// attempts; authMiddleware guards the session routes.
func (h *AuthHandler) RegisterRoutes(r chi.Router, loginLimit, authMiddleware func(http.Handler) http.Handler) {
	r.Route("/auth", func(r chi.Router) {
		r.With(loginLimit).Post("/login", h.Login)
		r.Post("/refresh", h.RefreshToken)

		r.Group(func(r chi.Router) {
			r.Use(authMiddleware)
			r.Post("/logout", h.Logout)
			r.Get("/me", h.Me)
		})
	})
}

// RegisterAdminRoutes registers account management behind the admin guard
func (h *AuthHandler) RegisterAdminRoutes(r chi.Router) {
	r.Post("/admins", h.CreateAdmin)
}

// Login authenticates an admin
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !decodeRequest(w, r, h.logger, &req) {
		return
	}

	accessToken, refreshToken, admin, err := h.authService.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		respondServiceError(w, h.logger, err, "Login")
		return
	}

	h.logger.Info("Admin logged in", zap.String("admin_id", admin.ID.String()))
	middleware.RespondWithJSON(w, http.StatusOK, LoginResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		Admin:        admin,
	})
}

// Logout revokes the given refresh token
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest
	if !decodeRequest(w, r, h.logger, &req) {
		return
	}

	if err := h.authService.Logout(r.Context(), req.RefreshToken); err != nil {
		respondServiceError(w, h.logger, err, "Logout")
		return
	}

	h.logger.Info("Admin logged out")
	middleware.RespondWithJSON(w, http.StatusOK, map[string]string{"message": "déconnecté"})
}

// RefreshToken mints a new access token
func (h *AuthHandler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest
	if !decodeRequest(w, r, h.logger, &req) {
		return
	}

	accessToken, err := h.authService.RefreshToken(r.Context(), req.RefreshToken)
	if err != nil {
		respondServiceError(w, h.logger, err, "Token refresh")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, RefreshResponse{AccessToken: accessToken})
}

// Me returns the authenticated admin
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	adminID, ok := middleware.GetAdminID(r.Context())
	if !ok {
		h.logger.Error("Admin ID not found in context")
		middleware.RespondWithError(w, http.StatusUnauthorized, "authentification requise")
		return
	}

	admin, err := h.authService.GetAdminByID(r.Context(), adminID)
	if err != nil {
		respondServiceError(w, h.logger, err, "Profile lookup")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, admin)
}

// CreateAdmin adds a back-office account
func (h *AuthHandler) CreateAdmin(w http.ResponseWriter, r *http.Request) {
	var req CreateAdminRequest
	if !decodeRequest(w, r, h.logger, &req) {
		return
	}

	admin, err := h.authService.CreateAdmin(r.Context(), req.Email, req.Password, req.Name)
	if err != nil {
		respondServiceError(w, h.logger, err, "Admin creation")
		return
	}

	h.logger.Info("Admin created", zap.String("admin_id", admin.ID.String()))
	middleware.RespondWithJSON(w, http.StatusCreated, admin)
}
