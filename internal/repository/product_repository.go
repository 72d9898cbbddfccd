package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"vitrine/internal/domain"

	"github.com/google/uuid"
)

var (
	ErrProductNotFound  = errors.New("product not found")
	ErrProductSlugTaken = errors.New("product with this slug already exists")
)

// ProductRepository defines the interface for product data access
type ProductRepository interface {
	Create(ctx context.Context, product *domain.Product) error
	Update(ctx context.Context, product *domain.Product) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Product, error)
	FindBySlug(ctx context.Context, slug string) (*domain.Product, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]*domain.Product, error)
	List(ctx context.Context, status domain.ProductStatus) ([]*domain.Product, error)
	SlugExists(ctx context.Context, slug string, excludeID uuid.UUID) (bool, error)
	UpdateStock(ctx context.Context, id uuid.UUID, stock int) error
	CountByCategory(ctx context.Context, slugs []string) (int, error)
}

type productRepository struct {
	db *sql.DB
}

// NewProductRepository creates a new instance of ProductRepository
func NewProductRepository(db *sql.DB) ProductRepository {
	return &productRepository{db: db}
}

const productColumns = `id, title, slug, description, price, sale_price, currency, category_slug,
		stock, images, specs, is_new, is_bestseller, status, created_at, updated_at`

func scanProduct(row scanner) (*domain.Product, error) {
	product := &domain.Product{}
	var images, specs []byte
	err := row.Scan(
		&product.ID,
		&product.Title,
		&product.Slug,
		&product.Description,
		&product.Price,
		&product.SalePrice,
		&product.Currency,
		&product.CategorySlug,
		&product.Stock,
		&images,
		&specs,
		&product.IsNew,
		&product.IsBestseller,
		&product.Status,
		&product.CreatedAt,
		&product.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	product.Images = []string{}
	product.Specs = map[string]string{}
	if err := fromJSON(images, &product.Images); err != nil {
		return nil, err
	}
	if err := fromJSON(specs, &product.Specs); err != nil {
		return nil, err
	}
	return product, nil
}

func productJSON(product *domain.Product) (images, specs string, err error) {
	imgs := product.Images
	if imgs == nil {
		imgs = []string{}
	}
	sp := product.Specs
	if sp == nil {
		sp = map[string]string{}
	}
	if images, err = toJSON(imgs); err != nil {
		return "", "", err
	}
	if specs, err = toJSON(sp); err != nil {
		return "", "", err
	}
	return images, specs, nil
}

// Create inserts a new product into the database using parameterized queries
func (r *productRepository) Create(ctx context.Context, product *domain.Product) error {
	images, specs, err := productJSON(product)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO products (` + productColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`

	_, err = r.db.ExecContext(
		ctx,
		query,
		product.ID,
		product.Title,
		product.Slug,
		product.Description,
		product.Price,
		product.SalePrice,
		product.Currency,
		product.CategorySlug,
		product.Stock,
		images,
		specs,
		product.IsNew,
		product.IsBestseller,
		product.Status,
		product.CreatedAt,
		product.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err, "products_slug_key") {
			return ErrProductSlugTaken
		}
		return fmt.Errorf("failed to create product: %w", err)
	}

	return nil
}

// Update updates an existing product in the database using parameterized queries
func (r *productRepository) Update(ctx context.Context, product *domain.Product) error {
	images, specs, err := productJSON(product)
	if err != nil {
		return err
	}

	query := `
		UPDATE products
		SET title = $2, slug = $3, description = $4, price = $5, sale_price = $6, currency = $7,
		    category_slug = $8, stock = $9, images = $10, specs = $11, is_new = $12,
		    is_bestseller = $13, status = $14, updated_at = $15
		WHERE id = $1
	`

	result, err := r.db.ExecContext(
		ctx,
		query,
		product.ID,
		product.Title,
		product.Slug,
		product.Description,
		product.Price,
		product.SalePrice,
		product.Currency,
		product.CategorySlug,
		product.Stock,
		images,
		specs,
		product.IsNew,
		product.IsBestseller,
		product.Status,
		product.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err, "products_slug_key") {
			return ErrProductSlugTaken
		}
		return fmt.Errorf("failed to update product: %w", err)
	}

	return affectedOne(result, ErrProductNotFound)
}

// Delete removes a product from the database using parameterized queries
func (r *productRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}
	return affectedOne(result, ErrProductNotFound)
}

// FindByID retrieves a product by ID using parameterized queries
func (r *productRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1`

	product, err := scanProduct(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to find product by ID: %w", err)
	}
	return product, nil
}

// FindBySlug retrieves a product by its slug
func (r *productRepository) FindBySlug(ctx context.Context, slug string) (*domain.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE slug = $1`

	product, err := scanProduct(r.db.QueryRowContext(ctx, query, slug))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to find product by slug: %w", err)
	}
	return product, nil
}

// FindByIDs retrieves the products with the given IDs, in the order of ids.
// Unknown IDs are skipped.
func (r *productRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]*domain.Product, error) {
	if len(ids) == 0 {
		return []*domain.Product{}, nil
	}

	placeholders := make([]string, len(ids))
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = id
	}
	query := `SELECT ` + productColumns + ` FROM products WHERE id IN (` + strings.Join(placeholders, ", ") + `)`

	found, err := r.query(ctx, query, args...)
	if err != nil {
		return nil, err
	}

	byID := make(map[uuid.UUID]*domain.Product, len(found))
	for _, p := range found {
		byID[p.ID] = p
	}
	products := []*domain.Product{}
	for _, id := range ids {
		if p, ok := byID[id]; ok {
			products = append(products, p)
		}
	}
	return products, nil
}

// List retrieves every product, newest first. An empty status lists all statuses.
func (r *productRepository) List(ctx context.Context, status domain.ProductStatus) ([]*domain.Product, error) {
	if status == "" {
		return r.query(ctx, `SELECT `+productColumns+` FROM products ORDER BY created_at DESC`)
	}
	return r.query(ctx, `SELECT `+productColumns+` FROM products WHERE status = $1 ORDER BY created_at DESC`, status)
}

func (r *productRepository) query(ctx context.Context, query string, args ...interface{}) ([]*domain.Product, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	defer rows.Close()

	products := []*domain.Product{}
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, product)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating products: %w", err)
	}

	return products, nil
}

// SlugExists reports whether another product already uses slug
func (r *productRepository) SlugExists(ctx context.Context, slug string, excludeID uuid.UUID) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM products WHERE slug = $1 AND id <> $2)`,
		slug, excludeID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check product slug: %w", err)
	}
	return exists, nil
}

// UpdateStock sets the stock of a product
func (r *productRepository) UpdateStock(ctx context.Context, id uuid.UUID, stock int) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE products SET stock = $2, updated_at = NOW() WHERE id = $1`,
		id, stock,
	)
	if err != nil {
		return fmt.Errorf("failed to update stock: %w", err)
	}
	return affectedOne(result, ErrProductNotFound)
}

// CountByCategory counts products filed under any of slugs
func (r *productRepository) CountByCategory(ctx context.Context, slugs []string) (int, error) {
	if len(slugs) == 0 {
		return 0, nil
	}

	placeholders := make([]string, len(slugs))
	args := make([]interface{}, len(slugs))
	for i, s := range slugs {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = s
	}

	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM products WHERE category_slug IN (`+strings.Join(placeholders, ", ")+`)`,
		args...,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count products by category: %w", err)
	}
	return count, nil
}
