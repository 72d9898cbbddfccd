package repository

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"vitrine/internal/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrOrderNotFound      = errors.New("order not found")
	ErrOrderNumberTaken   = errors.New("order with this number already exists")
	ErrInsufficientStock  = errors.New("insufficient stock")
	ErrProductUnavailable = errors.New("product unavailable")
)

// StockError names the product that blocked an order
type StockError struct {
	ProductID uuid.UUID
	Title     string
	Requested int
	Available int
	Err       error
}

func (e *StockError) Error() string {
	return fmt.Sprintf("%v: %s (requested %d, available %d)", e.Err, e.Title, e.Requested, e.Available)
}

func (e *StockError) Unwrap() error {
	return e.Err
}

// OrderFilter narrows an order listing
type OrderFilter struct {
	Status domain.OrderStatus
	Query  string
	Limit  int
	Offset int
}

// OrderMutation edits a locked order. Returning restock=true puts the ordered
// quantities back in stock in the same transaction.
type OrderMutation func(order *domain.Order) (restock bool, err error)

// OrderRepository defines the interface for order data access. Every write
// keeps the public_orders projection in sync within the same transaction.
type OrderRepository interface {
	Create(ctx context.Context, order *domain.Order) error
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Order, error)
	FindByNumber(ctx context.Context, number string) (*domain.Order, error)
	List(ctx context.Context, filter OrderFilter) ([]*domain.Order, int, error)
	Mutate(ctx context.Context, id uuid.UUID, fn OrderMutation) (*domain.Order, error)
	Delete(ctx context.Context, id uuid.UUID) error
	CountByStatus(ctx context.Context) (map[domain.OrderStatus]int, error)
	Revenue(ctx context.Context, statuses []domain.OrderStatus) (decimal.Decimal, error)
}

type orderRepository struct {
	db *sql.DB
}

// NewOrderRepository creates a new instance of OrderRepository
func NewOrderRepository(db *sql.DB) OrderRepository {
	return &orderRepository{db: db}
}

const orderColumns = `id, number, customer, items, subtotal, shipping_fee, total, currency, status,
		admin_note, public_note, customer_note, history, created_at, updated_at`

func scanOrder(row scanner) (*domain.Order, error) {
	order := &domain.Order{}
	var customer, items, history []byte
	err := row.Scan(
		&order.ID,
		&order.Number,
		&customer,
		&items,
		&order.Subtotal,
		&order.ShippingFee,
		&order.Total,
		&order.Currency,
		&order.Status,
		&order.AdminNote,
		&order.PublicNote,
		&order.CustomerNote,
		&history,
		&order.CreatedAt,
		&order.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	order.Items = []domain.OrderItem{}
	order.History = []domain.StatusChange{}
	if err := fromJSON(customer, &order.Customer); err != nil {
		return nil, err
	}
	if err := fromJSON(items, &order.Items); err != nil {
		return nil, err
	}
	if err := fromJSON(history, &order.History); err != nil {
		return nil, err
	}
	return order, nil
}

// Create decrements stock for every line, then inserts the order and its
// public projection. Product rows are locked in product ID order so
// concurrent checkouts can neither oversell nor deadlock.
func (r *orderRepository) Create(ctx context.Context, order *domain.Order) error {
	customer, err := toJSON(order.Customer)
	if err != nil {
		return err
	}
	items, err := toJSON(order.Items)
	if err != nil {
		return err
	}
	history, err := toJSON(order.History)
	if err != nil {
		return err
	}

	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		for _, item := range lockOrder(order.Items) {
			if err := reserveStock(ctx, tx, item); err != nil {
				return err
			}
		}

		query := `
			INSERT INTO orders (id, number, email, customer, items, subtotal, shipping_fee, total, currency,
				status, admin_note, public_note, customer_note, history, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		`
		_, err := tx.ExecContext(
			ctx,
			query,
			order.ID,
			order.Number,
			strings.ToLower(order.Customer.Email),
			customer,
			items,
			order.Subtotal,
			order.ShippingFee,
			order.Total,
			order.Currency,
			order.Status,
			order.AdminNote,
			order.PublicNote,
			order.CustomerNote,
			history,
			order.CreatedAt,
			order.UpdatedAt,
		)
		if err != nil {
			if isUniqueViolation(err, "orders_number_key") {
				return ErrOrderNumberTaken
			}
			return fmt.Errorf("failed to create order: %w", err)
		}

		return upsertPublicOrder(ctx, tx, order)
	})
}

func reserveStock(ctx context.Context, tx *sql.Tx, item domain.OrderItem) error {
	var stock int
	var status domain.ProductStatus
	err := tx.QueryRowContext(ctx,
		`SELECT stock, status FROM products WHERE id = $1 FOR UPDATE`,
		item.ProductID,
	).Scan(&stock, &status)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return &StockError{ProductID: item.ProductID, Title: item.Title, Requested: item.Quantity, Err: ErrProductUnavailable}
		}
		return fmt.Errorf("failed to lock product: %w", err)
	}
	if status != domain.ProductStatusActive {
		return &StockError{ProductID: item.ProductID, Title: item.Title, Requested: item.Quantity, Err: ErrProductUnavailable}
	}
	if stock < item.Quantity {
		return &StockError{ProductID: item.ProductID, Title: item.Title, Requested: item.Quantity, Available: stock, Err: ErrInsufficientStock}
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE products SET stock = stock - $2, updated_at = NOW() WHERE id = $1`,
		item.ProductID, item.Quantity,
	)
	if err != nil {
		return fmt.Errorf("failed to decrement stock: %w", err)
	}
	return nil
}

// lockOrder returns the lines sorted by product ID, the order every
// transaction touching product rows takes its locks in
func lockOrder(items []domain.OrderItem) []domain.OrderItem {
	sorted := make([]domain.OrderItem, len(items))
	copy(sorted, items)
	sort.SliceStable(sorted, func(i, j int) bool {
		return bytes.Compare(sorted[i].ProductID[:], sorted[j].ProductID[:]) < 0
	})
	return sorted
}

func releaseStock(ctx context.Context, tx *sql.Tx, items []domain.OrderItem) error {
	for _, item := range lockOrder(items) {
		// a product deleted since the order was placed has nothing to restock
		_, err := tx.ExecContext(ctx,
			`UPDATE products SET stock = stock + $2, updated_at = NOW() WHERE id = $1`,
			item.ProductID, item.Quantity,
		)
		if err != nil {
			return fmt.Errorf("failed to restock product: %w", err)
		}
	}
	return nil
}

func upsertPublicOrder(ctx context.Context, tx *sql.Tx, order *domain.Order) error {
	public := order.Public()
	data, err := toJSON(public)
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO public_orders (order_id, number, email, data, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (order_id) DO UPDATE
		SET number = EXCLUDED.number, email = EXCLUDED.email, data = EXCLUDED.data, updated_at = EXCLUDED.updated_at
	`, order.ID, order.Number, strings.ToLower(public.Email), data, order.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to write public order: %w", err)
	}
	return nil
}

// FindByID retrieves an order by ID
func (r *orderRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	order, err := scanOrder(r.db.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to find order by ID: %w", err)
	}
	return order, nil
}

// FindByNumber retrieves an order by its human-readable number
func (r *orderRepository) FindByNumber(ctx context.Context, number string) (*domain.Order, error) {
	order, err := scanOrder(r.db.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders WHERE number = $1`, number))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to find order by number: %w", err)
	}
	return order, nil
}

// List retrieves orders newest first. A zero Limit returns every match.
func (r *orderRepository) List(ctx context.Context, filter OrderFilter) ([]*domain.Order, int, error) {
	var conditions []string
	args := []interface{}{}
	argIndex := 1

	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argIndex))
		args = append(args, filter.Status)
		argIndex++
	}
	if q := strings.TrimSpace(filter.Query); q != "" {
		conditions = append(conditions, fmt.Sprintf(
			"(number ILIKE $%d OR email ILIKE $%d OR customer->>'last_name' ILIKE $%d)",
			argIndex, argIndex, argIndex,
		))
		args = append(args, containsPattern(q))
		argIndex++
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	var total int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM orders "+whereClause, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count orders: %w", err)
	}

	query := "SELECT " + orderColumns + " FROM orders " + whereClause + " ORDER BY created_at DESC"
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", argIndex, argIndex+1)
		args = append(args, filter.Limit, filter.Offset)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list orders: %w", err)
	}
	defer rows.Close()

	orders := []*domain.Order{}
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, order)
	}
	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating orders: %w", err)
	}

	return orders, total, nil
}

// Mutate locks the order, applies fn, and writes the order and its public
// projection back.
func (r *orderRepository) Mutate(ctx context.Context, id uuid.UUID, fn OrderMutation) (*domain.Order, error) {
	var order *domain.Order
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		var err error
		order, err = scanOrder(tx.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1 FOR UPDATE`, id))
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrOrderNotFound
			}
			return fmt.Errorf("failed to lock order: %w", err)
		}

		restock, err := fn(order)
		if err != nil {
			return err
		}
		if restock {
			if err := releaseStock(ctx, tx, order.Items); err != nil {
				return err
			}
		}

		order.UpdatedAt = time.Now().UTC()
		history, err := toJSON(order.History)
		if err != nil {
			return err
		}

		_, err = tx.ExecContext(ctx, `
			UPDATE orders
			SET status = $2, admin_note = $3, public_note = $4, history = $5, updated_at = $6
			WHERE id = $1
		`, order.ID, order.Status, order.AdminNote, order.PublicNote, history, order.UpdatedAt)
		if err != nil {
			return fmt.Errorf("failed to update order: %w", err)
		}

		return upsertPublicOrder(ctx, tx, order)
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

// Delete removes an order; the public projection goes with it
func (r *orderRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM orders WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete order: %w", err)
	}
	return affectedOne(result, ErrOrderNotFound)
}

// CountByStatus returns the number of orders in each status
func (r *orderRepository) CountByStatus(ctx context.Context) (map[domain.OrderStatus]int, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM orders GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("failed to count orders: %w", err)
	}
	defer rows.Close()

	counts := make(map[domain.OrderStatus]int, len(domain.OrderStatuses))
	for _, s := range domain.OrderStatuses {
		counts[s] = 0
	}
	for rows.Next() {
		var status domain.OrderStatus
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("failed to scan order count: %w", err)
		}
		counts[status] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating order counts: %w", err)
	}
	return counts, nil
}

// Revenue sums order totals over the given statuses
func (r *orderRepository) Revenue(ctx context.Context, statuses []domain.OrderStatus) (decimal.Decimal, error) {
	if len(statuses) == 0 {
		return decimal.Zero, nil
	}

	placeholders := make([]string, len(statuses))
	args := make([]interface{}, len(statuses))
	for i, s := range statuses {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = s
	}

	var revenue decimal.Decimal
	err := r.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(total), 0) FROM orders WHERE status IN (`+strings.Join(placeholders, ", ")+`)`,
		args...,
	).Scan(&revenue)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to sum revenue: %w", err)
	}
	return revenue, nil
}
