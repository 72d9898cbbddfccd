package transport

import (
	"net/http"
	"time"

	"vitrine/internal/domain"
	"vitrine/internal/export"
	"vitrine/internal/middleware"
	"vitrine/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// StatusRequest moves an order to another status
type StatusRequest struct {
	Status domain.OrderStatus `json:"status" validate:"required"`
	Note   string             `json:"note" validate:"max=500"`
}

// AdminOrderHandler serves order management, review moderation and the
// dashboard
type AdminOrderHandler struct {
	orderService     service.OrderService
	reviewService    service.ReviewService
	dashboardService service.DashboardService
	logger           *zap.Logger
	now              func() time.Time
}

// NewAdminOrderHandler creates a new AdminOrderHandler
func NewAdminOrderHandler(
	orderService service.OrderService,
	reviewService service.ReviewService,
	dashboardService service.DashboardService,
	logger *zap.Logger,
) *AdminOrderHandler {
	return &AdminOrderHandler{
		orderService:     orderService,
		reviewService:    reviewService,
		dashboardService: dashboardService,
		logger:           logger,
		now:              time.Now,
	}
}

// RegisterRoutes registers the back-office order routes
func (h *AdminOrderHandler) RegisterRoutes(r chi.Router) {
	r.Get("/dashboard", h.Dashboard)

	r.Route("/orders", func(r chi.Router) {
		r.Get("/", h.ListOrders)
		r.Get("/export.csv", h.ExportOrders)
		r.Get("/{id}", h.GetOrder)
		r.Patch("/{id}/status", h.UpdateStatus)
		r.Patch("/{id}/notes", h.UpdateNotes)
		r.Delete("/{id}", h.DeleteOrder)
	})

	r.Route("/reviews", func(r chi.Router) {
		r.Get("/pending", h.PendingReviews)
		r.Post("/{id}/approve", h.ApproveReview)
		r.Delete("/{id}", h.DeleteReview)
	})
}

func (h *AdminOrderHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	stats, err := h.dashboardService.Stats(r.Context())
	if err != nil {
		respondServiceError(w, h.logger, err, "Dashboard")
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, stats)
}

// ListOrders lists orders, newest first, with ?status= and ?q= filters
func (h *AdminOrderHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	page, err := h.orderService.List(r.Context(), service.OrderQuery{
		Status:   domain.OrderStatus(r.URL.Query().Get("status")),
		Query:    r.URL.Query().Get("q"),
		Page:     queryInt(r, "page", 1),
		PageSize: queryInt(r, "page_size", service.DefaultOrderPageSize),
	})
	if err != nil {
		respondServiceError(w, h.logger, err, "Order listing")
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, page)
}

func (h *AdminOrderHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	order, err := h.orderService.Get(r.Context(), id)
	if err != nil {
		respondServiceError(w, h.logger, err, "Order lookup")
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, order)
}

func (h *AdminOrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req StatusRequest
	if !decodeRequest(w, r, h.logger, &req) {
		return
	}
	order, err := h.orderService.UpdateStatus(r.Context(), id, req.Status, req.Note)
	if err != nil {
		respondServiceError(w, h.logger, err, "Order status update")
		return
	}
	h.logger.Info("Order status changed",
		zap.String("number", order.Number),
		zap.String("status", string(order.Status)),
	)
	middleware.RespondWithJSON(w, http.StatusOK, order)
}

func (h *AdminOrderHandler) UpdateNotes(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req service.NotesInput
	if !decodeRequest(w, r, h.logger, &req) {
		return
	}
	order, err := h.orderService.UpdateNotes(r.Context(), id, req)
	if err != nil {
		respondServiceError(w, h.logger, err, "Order notes update")
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, order)
}

func (h *AdminOrderHandler) DeleteOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.orderService.Delete(r.Context(), id); err != nil {
		respondServiceError(w, h.logger, err, "Order deletion")
		return
	}
	h.logger.Info("Order deleted", zap.String("order_id", id.String()))
	noContent(w)
}

// ExportOrders streams orders as CSV, optionally filtered by ?status=
func (h *AdminOrderHandler) ExportOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.orderService.Export(r.Context(), domain.OrderStatus(r.URL.Query().Get("status")))
	if err != nil {
		respondServiceError(w, h.logger, err, "Order export")
		return
	}

	writeCSVHeaders(w, export.Filename("commandes", h.now()))
	if err := export.WriteOrdersCSV(w, orders, csvOptions(r)); err != nil {
		h.logger.Error("Failed to write order export", zap.Error(err))
	}
}

func (h *AdminOrderHandler) PendingReviews(w http.ResponseWriter, r *http.Request) {
	reviews, err := h.reviewService.Pending(r.Context())
	if err != nil {
		respondServiceError(w, h.logger, err, "Review listing")
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, reviews)
}

func (h *AdminOrderHandler) ApproveReview(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.reviewService.Approve(r.Context(), id); err != nil {
		respondServiceError(w, h.logger, err, "Review approval")
		return
	}
	noContent(w)
}

func (h *AdminOrderHandler) DeleteReview(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.reviewService.Delete(r.Context(), id); err != nil {
		respondServiceError(w, h.logger, err, "Review deletion")
		return
	}
	noContent(w)
}
