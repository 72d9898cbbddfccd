package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"vitrine/internal/domain"

	"github.com/google/uuid"
)

var ErrReviewNotFound = errors.New("review not found")

// ReviewRepository defines the interface for product review data access
type ReviewRepository interface {
	Create(ctx context.Context, review *domain.Review) error
	ListByProduct(ctx context.Context, productID uuid.UUID, approvedOnly bool) ([]*domain.Review, error)
	ListPending(ctx context.Context) ([]*domain.Review, error)
	SetApproved(ctx context.Context, id uuid.UUID, approved bool) error
	Delete(ctx context.Context, id uuid.UUID) error
	Summary(ctx context.Context, productID uuid.UUID) (domain.RatingSummary, error)
}

type reviewRepository struct {
	db *sql.DB
}

// NewReviewRepository creates a new instance of ReviewRepository
func NewReviewRepository(db *sql.DB) ReviewRepository {
	return &reviewRepository{db: db}
}

const reviewColumns = `id, product_id, author, rating, comment, approved, created_at`

func scanReview(row scanner) (*domain.Review, error) {
	rv := &domain.Review{}
	if err := row.Scan(&rv.ID, &rv.ProductID, &rv.Author, &rv.Rating, &rv.Comment, &rv.Approved, &rv.CreatedAt); err != nil {
		return nil, err
	}
	return rv, nil
}

func (r *reviewRepository) Create(ctx context.Context, review *domain.Review) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO reviews (`+reviewColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, review.ID, review.ProductID, review.Author, review.Rating, review.Comment, review.Approved, review.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create review: %w", err)
	}
	return nil
}

// ListByProduct returns the reviews of a product, newest first
func (r *reviewRepository) ListByProduct(ctx context.Context, productID uuid.UUID, approvedOnly bool) ([]*domain.Review, error) {
	query := `SELECT ` + reviewColumns + ` FROM reviews WHERE product_id = $1`
	if approvedOnly {
		query += ` AND approved = TRUE`
	}
	query += ` ORDER BY created_at DESC`
	return r.list(ctx, query, productID)
}

// ListPending returns reviews awaiting moderation, oldest first
func (r *reviewRepository) ListPending(ctx context.Context) ([]*domain.Review, error) {
	return r.list(ctx, `SELECT `+reviewColumns+` FROM reviews WHERE approved = FALSE ORDER BY created_at ASC`)
}

func (r *reviewRepository) list(ctx context.Context, query string, args ...interface{}) ([]*domain.Review, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list reviews: %w", err)
	}
	defer rows.Close()

	reviews := []*domain.Review{}
	for rows.Next() {
		rv, err := scanReview(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan review: %w", err)
		}
		reviews = append(reviews, rv)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating reviews: %w", err)
	}
	return reviews, nil
}

func (r *reviewRepository) SetApproved(ctx context.Context, id uuid.UUID, approved bool) error {
	result, err := r.db.ExecContext(ctx, `UPDATE reviews SET approved = $2 WHERE id = $1`, id, approved)
	if err != nil {
		return fmt.Errorf("failed to moderate review: %w", err)
	}
	return affectedOne(result, ErrReviewNotFound)
}

func (r *reviewRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM reviews WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete review: %w", err)
	}
	return affectedOne(result, ErrReviewNotFound)
}

// Summary averages the approved ratings of a product
func (r *reviewRepository) Summary(ctx context.Context, productID uuid.UUID) (domain.RatingSummary, error) {
	var summary domain.RatingSummary
	err := r.db.QueryRowContext(ctx,
		`SELECT COALESCE(AVG(rating), 0)::float8, COUNT(*) FROM reviews WHERE product_id = $1 AND approved = TRUE`,
		productID,
	).Scan(&summary.Average, &summary.Count)
	if err != nil {
		return domain.RatingSummary{}, fmt.Errorf("failed to summarize reviews: %w", err)
	}
	return summary, nil
}
