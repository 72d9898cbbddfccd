package service

import (
	"context"
	"sort"

	"vitrine/internal/domain"
	"vitrine/internal/repository"

	"github.com/shopspring/decimal"
)

// LatestOrdersSize is the number of recent orders on the dashboard
const LatestOrdersSize = 5

// RevenueStatuses are the statuses whose orders count as revenue
var RevenueStatuses = []domain.OrderStatus{
	domain.OrderStatusPaid,
	domain.OrderStatusShipped,
	domain.OrderStatusDelivered,
}

// Dashboard summarizes the shop for the back office
type Dashboard struct {
	ProductCount       int                        `json:"product_count"`
	ActiveProductCount int                        `json:"active_product_count"`
	OutOfStockCount    int                        `json:"out_of_stock_count"`
	OrderCount         int                        `json:"order_count"`
	OrdersByStatus     map[domain.OrderStatus]int `json:"orders_by_status"`
	Revenue            decimal.Decimal            `json:"revenue"`
	Currency           string                     `json:"currency"`
	LowStock           []*domain.Product          `json:"low_stock"`
	LatestOrders       []*domain.Order            `json:"latest_orders"`
}

// DashboardService computes back-office statistics
type DashboardService interface {
	Stats(ctx context.Context) (*Dashboard, error)
}

type dashboardService struct {
	products repository.ProductRepository
	orders   repository.OrderRepository
	settings repository.SettingsRepository
}

// NewDashboardService creates a new instance of DashboardService
func NewDashboardService(
	products repository.ProductRepository,
	orders repository.OrderRepository,
	settings repository.SettingsRepository,
) DashboardService {
	return &dashboardService{products: products, orders: orders, settings: settings}
}

// Stats gathers counts, revenue, low-stock products (active products at or
// below the configured threshold, lowest first) and the latest orders
func (s *dashboardService) Stats(ctx context.Context) (*Dashboard, error) {
	settings, err := s.settings.Get(ctx)
	if err != nil {
		return nil, err
	}
	products, err := s.products.List(ctx, "")
	if err != nil {
		return nil, err
	}
	byStatus, err := s.orders.CountByStatus(ctx)
	if err != nil {
		return nil, err
	}
	revenue, err := s.orders.Revenue(ctx, RevenueStatuses)
	if err != nil {
		return nil, err
	}
	latest, _, err := s.orders.List(ctx, repository.OrderFilter{Limit: LatestOrdersSize})
	if err != nil {
		return nil, err
	}

	d := &Dashboard{
		ProductCount:   len(products),
		OrdersByStatus: byStatus,
		Revenue:        revenue,
		Currency:       settings.Currency,
		LowStock:       []*domain.Product{},
		LatestOrders:   latest,
	}
	for _, n := range byStatus {
		d.OrderCount += n
	}
	for _, p := range products {
		if !p.IsActive() {
			continue
		}
		d.ActiveProductCount++
		if p.Stock == 0 {
			d.OutOfStockCount++
		}
		if p.Stock <= settings.LowStockThreshold {
			d.LowStock = append(d.LowStock, p)
		}
	}
	sort.SliceStable(d.LowStock, func(i, j int) bool { return d.LowStock[i].Stock < d.LowStock[j].Stock })

	return d, nil
}
