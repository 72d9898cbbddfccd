package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"vitrine/internal/domain"

	"github.com/google/uuid"
)

var (
	ErrBannerNotFound = errors.New("banner not found")
	ErrFaqNotFound    = errors.New("faq item not found")
)

// BannerRepository defines the interface for home page banner data access
type BannerRepository interface {
	Create(ctx context.Context, banner *domain.Banner) error
	Update(ctx context.Context, banner *domain.Banner) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Banner, error)
	List(ctx context.Context, activeOnly bool) ([]*domain.Banner, error)
}

type bannerRepository struct {
	db *sql.DB
}

// NewBannerRepository creates a new instance of BannerRepository
func NewBannerRepository(db *sql.DB) BannerRepository {
	return &bannerRepository{db: db}
}

const bannerColumns = `id, title, subtitle, image_url, link_url, position, active, created_at, updated_at`

func scanBanner(row scanner) (*domain.Banner, error) {
	b := &domain.Banner{}
	err := row.Scan(&b.ID, &b.Title, &b.Subtitle, &b.ImageURL, &b.LinkURL, &b.Position, &b.Active, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return b, nil
}

func (r *bannerRepository) Create(ctx context.Context, banner *domain.Banner) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO banners (`+bannerColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, banner.ID, banner.Title, banner.Subtitle, banner.ImageURL, banner.LinkURL,
		banner.Position, banner.Active, banner.CreatedAt, banner.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create banner: %w", err)
	}
	return nil
}

func (r *bannerRepository) Update(ctx context.Context, banner *domain.Banner) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE banners
		SET title = $2, subtitle = $3, image_url = $4, link_url = $5, position = $6, active = $7, updated_at = $8
		WHERE id = $1
	`, banner.ID, banner.Title, banner.Subtitle, banner.ImageURL, banner.LinkURL,
		banner.Position, banner.Active, banner.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to update banner: %w", err)
	}
	return affectedOne(result, ErrBannerNotFound)
}

func (r *bannerRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM banners WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete banner: %w", err)
	}
	return affectedOne(result, ErrBannerNotFound)
}

func (r *bannerRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Banner, error) {
	b, err := scanBanner(r.db.QueryRowContext(ctx, `SELECT `+bannerColumns+` FROM banners WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBannerNotFound
		}
		return nil, fmt.Errorf("failed to find banner: %w", err)
	}
	return b, nil
}

// List returns banners ordered by position
func (r *bannerRepository) List(ctx context.Context, activeOnly bool) ([]*domain.Banner, error) {
	query := `SELECT ` + bannerColumns + ` FROM banners`
	if activeOnly {
		query += ` WHERE active = TRUE`
	}
	query += ` ORDER BY position ASC, created_at ASC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list banners: %w", err)
	}
	defer rows.Close()

	banners := []*domain.Banner{}
	for rows.Next() {
		b, err := scanBanner(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan banner: %w", err)
		}
		banners = append(banners, b)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating banners: %w", err)
	}
	return banners, nil
}

// FaqRepository defines the interface for FAQ data access
type FaqRepository interface {
	Create(ctx context.Context, item *domain.FaqItem) error
	Update(ctx context.Context, item *domain.FaqItem) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*domain.FaqItem, error)
	List(ctx context.Context, publishedOnly bool) ([]*domain.FaqItem, error)
}

type faqRepository struct {
	db *sql.DB
}

// NewFaqRepository creates a new instance of FaqRepository
func NewFaqRepository(db *sql.DB) FaqRepository {
	return &faqRepository{db: db}
}

const faqColumns = `id, question, answer, position, published, created_at, updated_at`

func scanFaq(row scanner) (*domain.FaqItem, error) {
	f := &domain.FaqItem{}
	if err := row.Scan(&f.ID, &f.Question, &f.Answer, &f.Position, &f.Published, &f.CreatedAt, &f.UpdatedAt); err != nil {
		return nil, err
	}
	return f, nil
}

func (r *faqRepository) Create(ctx context.Context, item *domain.FaqItem) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO faq (`+faqColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, item.ID, item.Question, item.Answer, item.Position, item.Published, item.CreatedAt, item.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create faq item: %w", err)
	}
	return nil
}

func (r *faqRepository) Update(ctx context.Context, item *domain.FaqItem) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE faq
		SET question = $2, answer = $3, position = $4, published = $5, updated_at = $6
		WHERE id = $1
	`, item.ID, item.Question, item.Answer, item.Position, item.Published, item.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to update faq item: %w", err)
	}
	return affectedOne(result, ErrFaqNotFound)
}

func (r *faqRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM faq WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete faq item: %w", err)
	}
	return affectedOne(result, ErrFaqNotFound)
}

func (r *faqRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.FaqItem, error) {
	f, err := scanFaq(r.db.QueryRowContext(ctx, `SELECT `+faqColumns+` FROM faq WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrFaqNotFound
		}
		return nil, fmt.Errorf("failed to find faq item: %w", err)
	}
	return f, nil
}

// List returns FAQ entries ordered by position
func (r *faqRepository) List(ctx context.Context, publishedOnly bool) ([]*domain.FaqItem, error) {
	query := `SELECT ` + faqColumns + ` FROM faq`
	if publishedOnly {
		query += ` WHERE published = TRUE`
	}
	query += ` ORDER BY position ASC, created_at ASC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list faq items: %w", err)
	}
	defer rows.Close()

	items := []*domain.FaqItem{}
	for rows.Next() {
		f, err := scanFaq(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan faq item: %w", err)
		}
		items = append(items, f)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating faq items: %w", err)
	}
	return items, nil
}

// SettingsRepository stores the single site settings document
type SettingsRepository interface {
	Get(ctx context.Context) (domain.SiteSettings, error)
	Save(ctx context.Context, settings domain.SiteSettings) error
}

type settingsRepository struct {
	db *sql.DB
}

// NewSettingsRepository creates a new instance of SettingsRepository
func NewSettingsRepository(db *sql.DB) SettingsRepository {
	return &settingsRepository{db: db}
}

// Get returns the saved settings, or the defaults when none were saved yet
func (r *settingsRepository) Get(ctx context.Context) (domain.SiteSettings, error) {
	var data []byte
	var updatedAt time.Time
	err := r.db.QueryRowContext(ctx,
		`SELECT data, updated_at FROM settings WHERE id = $1`,
		domain.SiteSettingsID,
	).Scan(&data, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.DefaultSiteSettings(), nil
		}
		return domain.SiteSettings{}, fmt.Errorf("failed to load settings: %w", err)
	}

	// fields missing from older documents keep their default value
	settings := domain.DefaultSiteSettings()
	if err := fromJSON(data, &settings); err != nil {
		return domain.SiteSettings{}, err
	}
	if settings.SocialLinks == nil {
		settings.SocialLinks = map[string]string{}
	}
	settings.UpdatedAt = updatedAt
	return settings, nil
}

// Save upserts the settings document
func (r *settingsRepository) Save(ctx context.Context, settings domain.SiteSettings) error {
	data, err := toJSON(settings)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO settings (id, data, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET data = EXCLUDED.data, updated_at = EXCLUDED.updated_at
	`, domain.SiteSettingsID, data, settings.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}
	return nil
}
