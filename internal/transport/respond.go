package transport

import (
	"errors"
	"net/http"
	"strconv"

	"vitrine/internal/media"
	"vitrine/internal/middleware"
	"vitrine/internal/repository"
	"vitrine/internal/service"
	"vitrine/internal/session"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type errorMapping struct {
	err     error
	status  int
	message string
}

// errorMappings is checked in order with errors.Is
var errorMappings = []errorMapping{
	{repository.ErrProductNotFound, http.StatusNotFound, "produit introuvable"},
	{repository.ErrCategoryNotFound, http.StatusNotFound, "catégorie introuvable"},
	{repository.ErrOrderNotFound, http.StatusNotFound, "commande introuvable"},
	{repository.ErrBannerNotFound, http.StatusNotFound, "bannière introuvable"},
	{repository.ErrFaqNotFound, http.StatusNotFound, "question introuvable"},
	{repository.ErrReviewNotFound, http.StatusNotFound, "avis introuvable"},
	{repository.ErrAdminNotFound, http.StatusNotFound, "administrateur introuvable"},

	{repository.ErrProductSlugTaken, http.StatusConflict, "ce slug est déjà utilisé par un autre produit"},
	{repository.ErrCategorySlugTaken, http.StatusConflict, "ce slug est déjà utilisé par une autre catégorie"},
	{repository.ErrAdminAlreadyExists, http.StatusConflict, "un administrateur utilise déjà cette adresse"},
	{service.ErrCategoryNotEmpty, http.StatusConflict, "la catégorie contient encore des sous-catégories ou des produits"},
	{service.ErrInvalidTransition, http.StatusConflict, "changement de statut non autorisé"},
	{session.ErrConflict, http.StatusConflict, "panier modifié en parallèle, réessayez"},

	{service.ErrEmptyCart, http.StatusBadRequest, "le panier est vide"},
	{service.ErrInvalidQuantity, http.StatusBadRequest, "quantité invalide"},
	{service.ErrInvalidStatus, http.StatusBadRequest, "statut de commande inconnu"},
	{service.ErrInvalidPrice, http.StatusBadRequest, "le prix ne peut pas être négatif"},
	{service.ErrSalePriceTooHigh, http.StatusBadRequest, "le prix promotionnel doit être inférieur au prix"},
	{service.ErrUnknownCategory, http.StatusBadRequest, "catégorie inconnue"},
	{service.ErrInvalidSlug, http.StatusBadRequest, "slug invalide"},
	{service.ErrParentNotFound, http.StatusBadRequest, "catégorie parente introuvable"},
	{service.ErrCategoryCycle, http.StatusBadRequest, "une catégorie ne peut pas être sa propre ancêtre"},
	{service.ErrInvalidStock, http.StatusBadRequest, "le stock ne peut pas être négatif"},
	{service.ErrInvalidRating, http.StatusBadRequest, "la note doit être comprise entre 1 et 5"},
	{service.ErrWeakPassword, http.StatusBadRequest, "mot de passe trop court"},
	{session.ErrInvalidVisitorID, http.StatusBadRequest, "identifiant visiteur invalide"},

	{service.ErrInvalidCredentials, http.StatusUnauthorized, "email ou mot de passe incorrect"},
	{service.ErrTokenExpired, http.StatusUnauthorized, "session expirée"},
	{service.ErrInvalidToken, http.StatusUnauthorized, "jeton invalide"},

	{media.ErrEmpty, http.StatusBadRequest, "fichier vide"},
	{media.ErrUnsupportedType, http.StatusBadRequest, "format d'image non pris en charge"},
	{media.ErrTooLarge, http.StatusRequestEntityTooLarge, "image trop volumineuse"},
	{media.ErrDisabled, http.StatusServiceUnavailable, "le stockage des images n'est pas configuré"},
}

// respondServiceError maps a service error to its HTTP response. Unknown
// errors are logged and answered with a 500.
func respondServiceError(w http.ResponseWriter, logger *zap.Logger, err error, action string) {
	var stockErr *repository.StockError
	if errors.As(err, &stockErr) {
		message := "stock insuffisant"
		if errors.Is(stockErr, repository.ErrProductUnavailable) {
			message = "produit indisponible"
		}
		middleware.RespondWithErrorDetails(w, http.StatusConflict, message, map[string]interface{}{
			"product_id": stockErr.ProductID.String(),
			"title":      stockErr.Title,
			"requested":  stockErr.Requested,
			"available":  stockErr.Available,
		})
		return
	}

	for _, m := range errorMappings {
		if errors.Is(err, m.err) {
			logger.Debug(action+" refused", zap.Error(err))
			middleware.RespondWithError(w, m.status, m.message)
			return
		}
	}

	logger.Error(action+" failed", zap.Error(err))
	middleware.RespondWithError(w, http.StatusInternalServerError, "erreur interne du serveur")
}

// decodeRequest decodes and validates a JSON body, answering 400 itself when
// it fails
func decodeRequest(w http.ResponseWriter, r *http.Request, logger *zap.Logger, v interface{}) bool {
	if err := middleware.DecodeAndValidate(r, v); err != nil {
		logger.Debug("Request validation failed", zap.String("path", r.URL.Path), zap.Error(err))

		if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
			middleware.RespondWithValidationErrors(w, validationErrors)
			return false
		}

		middleware.RespondWithError(w, http.StatusBadRequest, "corps de requête invalide")
		return false
	}
	return true
}

// pathID parses a UUID route parameter
func pathID(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "identifiant invalide")
		return uuid.Nil, false
	}
	return id, true
}

// queryInt reads a positive integer query parameter, falling back to def
func queryInt(r *http.Request, name string, def int) int {
	n, err := strconv.Atoi(r.URL.Query().Get(name))
	if err != nil || n < 1 {
		return def
	}
	return n
}

func queryBool(r *http.Request, name string) bool {
	b, _ := strconv.ParseBool(r.URL.Query().Get(name))
	return b
}

// visitorID reads the id set by the visitor session middleware
func visitorID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id, ok := middleware.GetVisitorID(r.Context())
	if !ok {
		middleware.RespondWithError(w, http.StatusBadRequest, "identifiant visiteur invalide")
		return "", false
	}
	return id, true
}

func noContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}
