package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"vitrine/internal/domain"
	"vitrine/internal/repository"

	"github.com/google/uuid"
)

// ErrInvalidRating is returned for ratings outside 1..5
var ErrInvalidRating = errors.New("rating must be between 1 and 5")

// ReviewInput is a customer review submission
type ReviewInput struct {
	Author  string `json:"author" validate:"required,max=100"`
	Rating  int    `json:"rating" validate:"required,min=1,max=5"`
	Comment string `json:"comment" validate:"max=2000"`
}

// ProductReviews is the public review block of a product
type ProductReviews struct {
	Reviews []*domain.Review     `json:"reviews"`
	Summary domain.RatingSummary `json:"summary"`
}

// ReviewService collects and moderates product reviews
type ReviewService interface {
	ForProduct(ctx context.Context, slug string) (*ProductReviews, error)
	Submit(ctx context.Context, slug string, in ReviewInput) (*domain.Review, error)
	Pending(ctx context.Context) ([]*domain.Review, error)
	Approve(ctx context.Context, id uuid.UUID) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type reviewService struct {
	reviews  repository.ReviewRepository
	products repository.ProductRepository
	now      func() time.Time
}

// NewReviewService creates a new instance of ReviewService
func NewReviewService(reviews repository.ReviewRepository, products repository.ProductRepository) ReviewService {
	return &reviewService{reviews: reviews, products: products, now: time.Now}
}

func (s *reviewService) activeProduct(ctx context.Context, slug string) (*domain.Product, error) {
	product, err := s.products.FindBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	if !product.IsActive() {
		return nil, repository.ErrProductNotFound
	}
	return product, nil
}

// ForProduct returns the approved reviews of a product and their summary
func (s *reviewService) ForProduct(ctx context.Context, slug string) (*ProductReviews, error) {
	product, err := s.activeProduct(ctx, slug)
	if err != nil {
		return nil, err
	}
	reviews, err := s.reviews.ListByProduct(ctx, product.ID, true)
	if err != nil {
		return nil, err
	}
	summary, err := s.reviews.Summary(ctx, product.ID)
	if err != nil {
		return nil, err
	}
	return &ProductReviews{Reviews: reviews, Summary: summary}, nil
}

// Submit records a review. It stays hidden until approved.
func (s *reviewService) Submit(ctx context.Context, slug string, in ReviewInput) (*domain.Review, error) {
	if in.Rating < 1 || in.Rating > 5 {
		return nil, ErrInvalidRating
	}
	product, err := s.activeProduct(ctx, slug)
	if err != nil {
		return nil, err
	}
	review := &domain.Review{
		ID:        uuid.New(),
		ProductID: product.ID,
		Author:    strings.TrimSpace(in.Author),
		Rating:    in.Rating,
		Comment:   strings.TrimSpace(in.Comment),
		CreatedAt: s.now().UTC(),
	}
	if err := s.reviews.Create(ctx, review); err != nil {
		return nil, err
	}
	return review, nil
}

func (s *reviewService) Pending(ctx context.Context) ([]*domain.Review, error) {
	return s.reviews.ListPending(ctx)
}

func (s *reviewService) Approve(ctx context.Context, id uuid.UUID) error {
	return s.reviews.SetApproved(ctx, id, true)
}

func (s *reviewService) Delete(ctx context.Context, id uuid.UUID) error {
	return s.reviews.Delete(ctx, id)
}
