package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"vitrine/internal/domain"

	"github.com/google/uuid"
)

var (
	ErrCategoryNotFound  = errors.New("category not found")
	ErrCategorySlugTaken = errors.New("category with this slug already exists")
)

// CategoryRepository defines the interface for category data access
type CategoryRepository interface {
	Create(ctx context.Context, category *domain.Category) error
	Update(ctx context.Context, category *domain.Category) error
	Rename(ctx context.Context, category *domain.Category, oldSlug string) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context) ([]*domain.Category, error)
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Category, error)
	FindBySlug(ctx context.Context, slug string) (*domain.Category, error)
	SlugExists(ctx context.Context, slug string, excludeID uuid.UUID) (bool, error)
	CountChildren(ctx context.Context, id uuid.UUID) (int, error)
}

type categoryRepository struct {
	db *sql.DB
}

// NewCategoryRepository creates a new instance of CategoryRepository
func NewCategoryRepository(db *sql.DB) CategoryRepository {
	return &categoryRepository{db: db}
}

const categoryColumns = `id, name, slug, parent_id, description, image, position, created_at`

func scanCategory(row scanner) (*domain.Category, error) {
	category := &domain.Category{}
	var parent uuid.NullUUID
	err := row.Scan(
		&category.ID,
		&category.Name,
		&category.Slug,
		&parent,
		&category.Description,
		&category.Image,
		&category.Position,
		&category.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if parent.Valid {
		id := parent.UUID
		category.ParentID = &id
	}
	return category, nil
}

func nullableID(id *uuid.UUID) uuid.NullUUID {
	if id == nil {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: *id, Valid: true}
}

// Create inserts a new category into the database using parameterized queries
func (r *categoryRepository) Create(ctx context.Context, category *domain.Category) error {
	query := `
		INSERT INTO categories (` + categoryColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.db.ExecContext(
		ctx,
		query,
		category.ID,
		category.Name,
		category.Slug,
		nullableID(category.ParentID),
		category.Description,
		category.Image,
		category.Position,
		category.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err, "categories_slug_key") {
			return ErrCategorySlugTaken
		}
		return fmt.Errorf("failed to create category: %w", err)
	}

	return nil
}

const updateCategoryQuery = `
	UPDATE categories
	SET name = $2, slug = $3, parent_id = $4, description = $5, image = $6, position = $7
	WHERE id = $1
`

// execer is satisfied by both *sql.DB and *sql.Tx
type execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

func updateCategory(ctx context.Context, db execer, category *domain.Category) error {
	result, err := db.ExecContext(
		ctx,
		updateCategoryQuery,
		category.ID,
		category.Name,
		category.Slug,
		nullableID(category.ParentID),
		category.Description,
		category.Image,
		category.Position,
	)
	if err != nil {
		if isUniqueViolation(err, "categories_slug_key") {
			return ErrCategorySlugTaken
		}
		return fmt.Errorf("failed to update category: %w", err)
	}

	return affectedOne(result, ErrCategoryNotFound)
}

// Update rewrites every mutable column of a category
func (r *categoryRepository) Update(ctx context.Context, category *domain.Category) error {
	return updateCategory(ctx, r.db, category)
}

// Rename updates a category whose slug changed and moves every product filed
// under oldSlug to the new slug in the same transaction
func (r *categoryRepository) Rename(ctx context.Context, category *domain.Category, oldSlug string) error {
	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		if err := updateCategory(ctx, tx, category); err != nil {
			return err
		}

		_, err := tx.ExecContext(ctx,
			`UPDATE products SET category_slug = $2, updated_at = NOW() WHERE category_slug = $1`,
			oldSlug, category.Slug,
		)
		if err != nil {
			return fmt.Errorf("failed to rename product category: %w", err)
		}
		return nil
	})
}

// Delete removes a category
func (r *categoryRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM categories WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete category: %w", err)
	}
	return affectedOne(result, ErrCategoryNotFound)
}

// List retrieves all categories
func (r *categoryRepository) List(ctx context.Context) ([]*domain.Category, error) {
	query := `SELECT ` + categoryColumns + ` FROM categories ORDER BY position ASC, name ASC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	defer rows.Close()

	categories := []*domain.Category{}
	for rows.Next() {
		category, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		categories = append(categories, category)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating categories: %w", err)
	}

	return categories, nil
}

// FindByID retrieves a category by ID using parameterized queries
func (r *categoryRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Category, error) {
	query := `SELECT ` + categoryColumns + ` FROM categories WHERE id = $1`

	category, err := scanCategory(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCategoryNotFound
		}
		return nil, fmt.Errorf("failed to find category by ID: %w", err)
	}

	return category, nil
}

// FindBySlug retrieves a category by slug
func (r *categoryRepository) FindBySlug(ctx context.Context, slug string) (*domain.Category, error) {
	query := `SELECT ` + categoryColumns + ` FROM categories WHERE slug = $1`

	category, err := scanCategory(r.db.QueryRowContext(ctx, query, slug))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCategoryNotFound
		}
		return nil, fmt.Errorf("failed to find category by slug: %w", err)
	}

	return category, nil
}

// SlugExists reports whether another category already uses slug
func (r *categoryRepository) SlugExists(ctx context.Context, slug string, excludeID uuid.UUID) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM categories WHERE slug = $1 AND id <> $2)`,
		slug, excludeID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check category slug: %w", err)
	}
	return exists, nil
}

// CountChildren counts the direct subcategories of id
func (r *categoryRepository) CountChildren(ctx context.Context, id uuid.UUID) (int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM categories WHERE parent_id = $1`, id).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count subcategories: %w", err)
	}
	return count, nil
}
