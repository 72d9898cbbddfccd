package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"vitrine/internal/domain"
)

// PublicOrderRepository reads the customer-facing order projection
type PublicOrderRepository interface {
	FindByNumber(ctx context.Context, number string) (*domain.PublicOrder, string, error)
}

type publicOrderRepository struct {
	db *sql.DB
}

// NewPublicOrderRepository creates a new instance of PublicOrderRepository
func NewPublicOrderRepository(db *sql.DB) PublicOrderRepository {
	return &publicOrderRepository{db: db}
}

// FindByNumber returns the projection for number along with the lower-cased
// email it was placed with
func (r *publicOrderRepository) FindByNumber(ctx context.Context, number string) (*domain.PublicOrder, string, error) {
	var data []byte
	var email string
	err := r.db.QueryRowContext(ctx,
		`SELECT data, email FROM public_orders WHERE number = $1`,
		strings.ToUpper(strings.TrimSpace(number)),
	).Scan(&data, &email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, "", ErrOrderNotFound
		}
		return nil, "", fmt.Errorf("failed to find public order: %w", err)
	}

	order := &domain.PublicOrder{}
	if err := fromJSON(data, order); err != nil {
		return nil, "", err
	}
	return order, email, nil
}
