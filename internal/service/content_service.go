package service

import (
	"context"
	"strings"
	"time"

	"vitrine/internal/domain"
	"vitrine/internal/repository"

	"github.com/google/uuid"
)

// BannerInput is the editable part of a banner
type BannerInput struct {
	Title    string `json:"title" validate:"required,max=255"`
	Subtitle string `json:"subtitle" validate:"max=500"`
	ImageURL string `json:"image_url" validate:"required,max=500"`
	LinkURL  string `json:"link_url" validate:"max=500"`
	Position int    `json:"position"`
	Active   bool   `json:"active"`
}

// FaqInput is the editable part of a FAQ entry
type FaqInput struct {
	Question  string `json:"question" validate:"required,max=1000"`
	Answer    string `json:"answer" validate:"required,max=10000"`
	Position  int    `json:"position"`
	Published bool   `json:"published"`
}

// ContentService manages banners, FAQ entries and site settings
type ContentService interface {
	ListBanners(ctx context.Context, activeOnly bool) ([]*domain.Banner, error)
	CreateBanner(ctx context.Context, in BannerInput) (*domain.Banner, error)
	UpdateBanner(ctx context.Context, id uuid.UUID, in BannerInput) (*domain.Banner, error)
	DeleteBanner(ctx context.Context, id uuid.UUID) error

	ListFaq(ctx context.Context, publishedOnly bool) ([]*domain.FaqItem, error)
	CreateFaq(ctx context.Context, in FaqInput) (*domain.FaqItem, error)
	UpdateFaq(ctx context.Context, id uuid.UUID, in FaqInput) (*domain.FaqItem, error)
	DeleteFaq(ctx context.Context, id uuid.UUID) error

	Settings(ctx context.Context) (domain.SiteSettings, error)
	UpdateSettings(ctx context.Context, settings domain.SiteSettings) (domain.SiteSettings, error)
}

type contentService struct {
	banners  repository.BannerRepository
	faq      repository.FaqRepository
	settings repository.SettingsRepository
	now      func() time.Time
}

// NewContentService creates a new instance of ContentService
func NewContentService(
	banners repository.BannerRepository,
	faq repository.FaqRepository,
	settings repository.SettingsRepository,
) ContentService {
	return &contentService{banners: banners, faq: faq, settings: settings, now: time.Now}
}

func (s *contentService) ListBanners(ctx context.Context, activeOnly bool) ([]*domain.Banner, error) {
	return s.banners.List(ctx, activeOnly)
}

func (s *contentService) CreateBanner(ctx context.Context, in BannerInput) (*domain.Banner, error) {
	now := s.now().UTC()
	banner := &domain.Banner{
		ID:        uuid.New(),
		Title:     strings.TrimSpace(in.Title),
		Subtitle:  in.Subtitle,
		ImageURL:  in.ImageURL,
		LinkURL:   in.LinkURL,
		Position:  in.Position,
		Active:    in.Active,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.banners.Create(ctx, banner); err != nil {
		return nil, err
	}
	return banner, nil
}

func (s *contentService) UpdateBanner(ctx context.Context, id uuid.UUID, in BannerInput) (*domain.Banner, error) {
	banner, err := s.banners.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	banner.Title = strings.TrimSpace(in.Title)
	banner.Subtitle = in.Subtitle
	banner.ImageURL = in.ImageURL
	banner.LinkURL = in.LinkURL
	banner.Position = in.Position
	banner.Active = in.Active
	banner.UpdatedAt = s.now().UTC()
	if err := s.banners.Update(ctx, banner); err != nil {
		return nil, err
	}
	return banner, nil
}

func (s *contentService) DeleteBanner(ctx context.Context, id uuid.UUID) error {
	return s.banners.Delete(ctx, id)
}

func (s *contentService) ListFaq(ctx context.Context, publishedOnly bool) ([]*domain.FaqItem, error) {
	return s.faq.List(ctx, publishedOnly)
}

func (s *contentService) CreateFaq(ctx context.Context, in FaqInput) (*domain.FaqItem, error) {
	now := s.now().UTC()
	item := &domain.FaqItem{
		ID:        uuid.New(),
		Question:  strings.TrimSpace(in.Question),
		Answer:    strings.TrimSpace(in.Answer),
		Position:  in.Position,
		Published: in.Published,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.faq.Create(ctx, item); err != nil {
		return nil, err
	}
	return item, nil
}

func (s *contentService) UpdateFaq(ctx context.Context, id uuid.UUID, in FaqInput) (*domain.FaqItem, error) {
	item, err := s.faq.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	item.Question = strings.TrimSpace(in.Question)
	item.Answer = strings.TrimSpace(in.Answer)
	item.Position = in.Position
	item.Published = in.Published
	item.UpdatedAt = s.now().UTC()
	if err := s.faq.Update(ctx, item); err != nil {
		return nil, err
	}
	return item, nil
}

func (s *contentService) DeleteFaq(ctx context.Context, id uuid.UUID) error {
	return s.faq.Delete(ctx, id)
}

func (s *contentService) Settings(ctx context.Context) (domain.SiteSettings, error) {
	return s.settings.Get(ctx)
}

// UpdateSettings saves the settings document. Money amounts must not be negative.
func (s *contentService) UpdateSettings(ctx context.Context, settings domain.SiteSettings) (domain.SiteSettings, error) {
	if settings.ShippingFee.IsNegative() || settings.FreeShippingThreshold.IsNegative() {
		return domain.SiteSettings{}, ErrInvalidPrice
	}
	settings.ShippingFee = settings.ShippingFee.Round(2)
	settings.FreeShippingThreshold = settings.FreeShippingThreshold.Round(2)
	settings.Currency = strings.ToUpper(settings.Currency)
	if settings.SocialLinks == nil {
		settings.SocialLinks = map[string]string{}
	}
	settings.UpdatedAt = s.now().UTC()

	if err := s.settings.Save(ctx, settings); err != nil {
		return domain.SiteSettings{}, err
	}
	return settings, nil
}

