package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"vitrine/internal/catalog"
	"vitrine/internal/domain"
	"vitrine/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	// HomeSectionSize is the number of products in each home page strip
	HomeSectionSize = 8
	// RelatedProductsSize is the number of related products on a product page
	RelatedProductsSize = 4
	// MaxPageSize caps client-requested page sizes
	MaxPageSize = 100
)

var (
	ErrInvalidPrice     = errors.New("price cannot be negative")
	ErrSalePriceTooHigh = errors.New("sale price must be lower than price")
	ErrUnknownCategory  = errors.New("unknown category")
	ErrInvalidSlug      = errors.New("invalid slug")
	ErrParentNotFound   = errors.New("parent category not found")
	ErrCategoryCycle    = errors.New("category cannot be its own ancestor")
	ErrCategoryNotEmpty = errors.New("category still has subcategories or products")
	ErrInvalidStock     = errors.New("stock cannot be negative")
)

// ProductInput is the editable part of a product
type ProductInput struct {
	Title        string               `json:"title" validate:"required,max=255"`
	Slug         string               `json:"slug" validate:"max=280"`
	Description  string               `json:"description" validate:"max=20000"`
	Price        decimal.Decimal      `json:"price"`
	SalePrice    decimal.Decimal      `json:"sale_price"`
	Currency     string               `json:"currency" validate:"omitempty,len=3"`
	CategorySlug string               `json:"category_slug" validate:"max=120"`
	Stock        int                  `json:"stock" validate:"gte=0"`
	Images       []string             `json:"images" validate:"max=20,dive,required,max=500"`
	Specs        map[string]string    `json:"specs" validate:"max=50"`
	IsNew        bool                 `json:"is_new"`
	IsBestseller bool                 `json:"is_bestseller"`
	Status       domain.ProductStatus `json:"status" validate:"omitempty,oneof=active draft"`
}

// CategoryInput is the editable part of a category
type CategoryInput struct {
	Name        string     `json:"name" validate:"required,max=100"`
	Slug        string     `json:"slug" validate:"max=120"`
	ParentID    *uuid.UUID `json:"parent_id"`
	Description string     `json:"description" validate:"max=2000"`
	Image       string     `json:"image" validate:"max=500"`
	Position    int        `json:"position"`
}

// ProductQuery describes a product listing request
type ProductQuery struct {
	Category   string
	Query      string
	MinPrice   *decimal.Decimal
	MaxPrice   *decimal.Decimal
	InStock    bool
	OnSale     bool
	New        bool
	Bestseller bool
	// Status only applies to back-office listings; the storefront always
	// lists active products.
	Status   domain.ProductStatus
	Sort     catalog.SortKey
	Page     int
	PageSize int
}

// HomePage gathers the home page sections
type HomePage struct {
	Banners     []*domain.Banner        `json:"banners"`
	NewArrivals []*domain.Product       `json:"new_arrivals"`
	Bestsellers []*domain.Product       `json:"bestsellers"`
	OnSale      []*domain.Product       `json:"on_sale"`
	Categories  []*catalog.CategoryNode `json:"categories"`
}

// ProductDetail is a product page
type ProductDetail struct {
	Product    *domain.Product      `json:"product"`
	Category   *domain.Category     `json:"category,omitempty"`
	Breadcrumb []domain.Category    `json:"breadcrumb"`
	Related    []*domain.Product    `json:"related"`
	Rating     domain.RatingSummary `json:"rating"`
}

// CategoryPage is a category with its subcategories and products
type CategoryPage struct {
	Category   domain.Category         `json:"category"`
	Breadcrumb []domain.Category       `json:"breadcrumb"`
	Children   []*catalog.CategoryNode `json:"children"`
	Products   catalog.Page            `json:"products"`
}

// CatalogService serves the storefront catalog and its back-office editing
type CatalogService interface {
	Home(ctx context.Context) (*HomePage, error)
	ListProducts(ctx context.Context, q ProductQuery) (catalog.Page, error)
	Search(ctx context.Context, text string, page int) (catalog.Page, error)
	ProductBySlug(ctx context.Context, slug string) (*ProductDetail, error)
	ProductsByIDs(ctx context.Context, ids []uuid.UUID) ([]*domain.Product, error)
	CategoryTree(ctx context.Context) ([]*catalog.CategoryNode, error)
	CategoryBySlug(ctx context.Context, slug string, q ProductQuery) (*CategoryPage, error)

	AdminListProducts(ctx context.Context, q ProductQuery) (catalog.Page, error)
	AllProducts(ctx context.Context) ([]*domain.Product, error)
	GetProduct(ctx context.Context, id uuid.UUID) (*domain.Product, error)
	CreateProduct(ctx context.Context, in ProductInput) (*domain.Product, error)
	UpdateProduct(ctx context.Context, id uuid.UUID, in ProductInput) (*domain.Product, error)
	DeleteProduct(ctx context.Context, id uuid.UUID) error
	DuplicateProduct(ctx context.Context, id uuid.UUID) (*domain.Product, error)
	UpdateStock(ctx context.Context, id uuid.UUID, stock int) (*domain.Product, error)
	AddProductImage(ctx context.Context, id uuid.UUID, url string) (*domain.Product, error)

	FlatCategories(ctx context.Context) ([]catalog.FlatCategory, error)
	GetCategory(ctx context.Context, id uuid.UUID) (*domain.Category, error)
	CreateCategory(ctx context.Context, in CategoryInput) (*domain.Category, error)
	UpdateCategory(ctx context.Context, id uuid.UUID, in CategoryInput) (*domain.Category, error)
	DeleteCategory(ctx context.Context, id uuid.UUID) error
}

type catalogService struct {
	products   repository.ProductRepository
	categories repository.CategoryRepository
	banners    repository.BannerRepository
	reviews    repository.ReviewRepository
	now        func() time.Time
}

// NewCatalogService creates a new instance of CatalogService
func NewCatalogService(
	products repository.ProductRepository,
	categories repository.CategoryRepository,
	banners repository.BannerRepository,
	reviews repository.ReviewRepository,
) CatalogService {
	return &catalogService{
		products:   products,
		categories: categories,
		banners:    banners,
		reviews:    reviews,
		now:        time.Now,
	}
}

func (s *catalogService) activeProducts(ctx context.Context) ([]*domain.Product, error) {
	products, err := s.products.List(ctx, domain.ProductStatusActive)
	if err != nil {
		return nil, fmt.Errorf("failed to load products: %w", err)
	}
	return products, nil
}

func (s *catalogService) tree(ctx context.Context, products []*domain.Product) ([]*catalog.CategoryNode, error) {
	categories, err := s.categories.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load categories: %w", err)
	}
	return catalog.BuildTree(categories, products), nil
}

func (q ProductQuery) filter(tree []*catalog.CategoryNode) catalog.ProductFilter {
	f := catalog.ProductFilter{
		Status:         q.Status,
		Query:          q.Query,
		MinPrice:       q.MinPrice,
		MaxPrice:       q.MaxPrice,
		InStockOnly:    q.InStock,
		OnSaleOnly:     q.OnSale,
		NewOnly:        q.New,
		BestsellerOnly: q.Bestseller,
	}
	if q.Category != "" {
		f.CategorySlugs = catalog.DescendantSlugs(tree, q.Category)
	}
	return f
}

func (q ProductQuery) pageSize() int {
	if q.PageSize > MaxPageSize {
		return MaxPageSize
	}
	return q.PageSize
}

func listing(products []*domain.Product, tree []*catalog.CategoryNode, q ProductQuery) catalog.Page {
	matched := catalog.Filter(products, q.filter(tree))
	catalog.Sort(matched, q.Sort)
	return catalog.Paginate(matched, q.Page, q.pageSize())
}

// Home builds the home page sections from active products
func (s *catalogService) Home(ctx context.Context) (*HomePage, error) {
	products, err := s.activeProducts(ctx)
	if err != nil {
		return nil, err
	}
	tree, err := s.tree(ctx, products)
	if err != nil {
		return nil, err
	}
	banners, err := s.banners.List(ctx, true)
	if err != nil {
		return nil, fmt.Errorf("failed to load banners: %w", err)
	}

	return &HomePage{
		Banners:     banners,
		NewArrivals: catalog.Take(products, HomeSectionSize, func(p *domain.Product) bool { return p.IsNew }),
		Bestsellers: catalog.Take(products, HomeSectionSize, func(p *domain.Product) bool { return p.IsBestseller }),
		OnSale:      catalog.Take(products, HomeSectionSize, func(p *domain.Product) bool { return p.OnSale() }),
		Categories:  tree,
	}, nil
}

// ListProducts filters, sorts and paginates the active catalog
func (s *catalogService) ListProducts(ctx context.Context, q ProductQuery) (catalog.Page, error) {
	products, err := s.activeProducts(ctx)
	if err != nil {
		return catalog.Page{}, err
	}
	var tree []*catalog.CategoryNode
	if q.Category != "" {
		if tree, err = s.tree(ctx, products); err != nil {
			return catalog.Page{}, err
		}
	}
	q.Status = domain.ProductStatusActive
	return listing(products, tree, q), nil
}

// Search is a free-text listing ordered by name
func (s *catalogService) Search(ctx context.Context, text string, page int) (catalog.Page, error) {
	return s.ListProducts(ctx, ProductQuery{Query: text, Sort: catalog.SortNameAsc, Page: page})
}

// ProductBySlug returns an active product with its page context. Drafts are
// reported as not found.
func (s *catalogService) ProductBySlug(ctx context.Context, slug string) (*ProductDetail, error) {
	product, err := s.products.FindBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	if !product.IsActive() {
		return nil, repository.ErrProductNotFound
	}

	products, err := s.activeProducts(ctx)
	if err != nil {
		return nil, err
	}
	tree, err := s.tree(ctx, products)
	if err != nil {
		return nil, err
	}

	rating, err := s.reviews.Summary(ctx, product.ID)
	if err != nil {
		return nil, err
	}

	detail := &ProductDetail{
		Product:    product,
		Breadcrumb: catalog.Breadcrumb(tree, product.CategorySlug),
		Related:    catalog.Related(products, product, RelatedProductsSize),
		Rating:     rating,
	}
	if node := catalog.FindNode(tree, product.CategorySlug); node != nil {
		category := node.Category
		detail.Category = &category
	}
	return detail, nil
}

// ProductsByIDs returns the active products among ids, in the order of ids
func (s *catalogService) ProductsByIDs(ctx context.Context, ids []uuid.UUID) ([]*domain.Product, error) {
	found, err := s.products.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	products := make([]*domain.Product, 0, len(found))
	for _, p := range found {
		if p.IsActive() {
			products = append(products, p)
		}
	}
	return products, nil
}

// CategoryTree returns the category forest with active product counts
func (s *catalogService) CategoryTree(ctx context.Context) ([]*catalog.CategoryNode, error) {
	products, err := s.activeProducts(ctx)
	if err != nil {
		return nil, err
	}
	return s.tree(ctx, products)
}

// CategoryBySlug lists the active products of a category and its descendants
func (s *catalogService) CategoryBySlug(ctx context.Context, slug string, q ProductQuery) (*CategoryPage, error) {
	products, err := s.activeProducts(ctx)
	if err != nil {
		return nil, err
	}
	tree, err := s.tree(ctx, products)
	if err != nil {
		return nil, err
	}

	node := catalog.FindNode(tree, slug)
	if node == nil {
		return nil, repository.ErrCategoryNotFound
	}

	q.Category = slug
	q.Status = domain.ProductStatusActive
	children := node.Children
	if children == nil {
		children = []*catalog.CategoryNode{}
	}
	return &CategoryPage{
		Category:   node.Category,
		Breadcrumb: catalog.Breadcrumb(tree, slug),
		Children:   children,
		Products:   listing(products, tree, q),
	}, nil
}

// AdminListProducts lists products of any status
func (s *catalogService) AdminListProducts(ctx context.Context, q ProductQuery) (catalog.Page, error) {
	products, err := s.products.List(ctx, "")
	if err != nil {
		return catalog.Page{}, fmt.Errorf("failed to load products: %w", err)
	}
	var tree []*catalog.CategoryNode
	if q.Category != "" {
		if tree, err = s.tree(ctx, products); err != nil {
			return catalog.Page{}, err
		}
	}
	return listing(products, tree, q), nil
}

// AllProducts returns every product, newest first
func (s *catalogService) AllProducts(ctx context.Context) ([]*domain.Product, error) {
	return s.products.List(ctx, "")
}

func (s *catalogService) GetProduct(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	return s.products.FindByID(ctx, id)
}

// resolveProductSlug validates an explicit slug or derives a free one from
// the title
func (s *catalogService) resolveProductSlug(ctx context.Context, requested, title string, excludeID uuid.UUID) (string, error) {
	requested = strings.TrimSpace(requested)
	if requested != "" {
		if !catalog.ValidSlug(requested) {
			return "", ErrInvalidSlug
		}
		taken, err := s.products.SlugExists(ctx, requested, excludeID)
		if err != nil {
			return "", err
		}
		if taken {
			return "", repository.ErrProductSlugTaken
		}
		return requested, nil
	}

	var lookupErr error
	slug := catalog.UniqueSlug(title, "produit", func(candidate string) bool {
		taken, err := s.products.SlugExists(ctx, candidate, excludeID)
		if err != nil {
			lookupErr = err
			return false
		}
		return taken
	})
	if lookupErr != nil {
		return "", lookupErr
	}
	return slug, nil
}

func (s *catalogService) checkProductInput(ctx context.Context, in ProductInput) error {
	if in.Price.IsNegative() || in.SalePrice.IsNegative() {
		return ErrInvalidPrice
	}
	if in.SalePrice.IsPositive() && !in.SalePrice.LessThan(in.Price) {
		return ErrSalePriceTooHigh
	}
	if in.Stock < 0 {
		return ErrInvalidStock
	}
	if in.CategorySlug != "" {
		if _, err := s.categories.FindBySlug(ctx, in.CategorySlug); err != nil {
			if errors.Is(err, repository.ErrCategoryNotFound) {
				return ErrUnknownCategory
			}
			return err
		}
	}
	return nil
}

func applyProductInput(p *domain.Product, in ProductInput) {
	p.Title = strings.TrimSpace(in.Title)
	p.Description = in.Description
	p.Price = in.Price
	p.SalePrice = in.SalePrice
	p.Currency = strings.ToUpper(in.Currency)
	if p.Currency == "" {
		p.Currency = domain.DefaultCurrency
	}
	p.CategorySlug = in.CategorySlug
	p.Stock = in.Stock
	p.Images = in.Images
	if p.Images == nil {
		p.Images = []string{}
	}
	p.Specs = in.Specs
	if p.Specs == nil {
		p.Specs = map[string]string{}
	}
	p.IsNew = in.IsNew
	p.IsBestseller = in.IsBestseller
	p.Status = in.Status
	if p.Status == "" {
		p.Status = domain.ProductStatusDraft
	}
}

// CreateProduct adds a product. New products are drafts unless a status is given.
func (s *catalogService) CreateProduct(ctx context.Context, in ProductInput) (*domain.Product, error) {
	if err := s.checkProductInput(ctx, in); err != nil {
		return nil, err
	}

	id := uuid.New()
	slug, err := s.resolveProductSlug(ctx, in.Slug, in.Title, id)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	product := &domain.Product{ID: id, Slug: slug, CreatedAt: now, UpdatedAt: now}
	applyProductInput(product, in)

	if err := s.products.Create(ctx, product); err != nil {
		return nil, err
	}
	return product, nil
}

// UpdateProduct replaces the editable fields of a product
func (s *catalogService) UpdateProduct(ctx context.Context, id uuid.UUID, in ProductInput) (*domain.Product, error) {
	product, err := s.products.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.checkProductInput(ctx, in); err != nil {
		return nil, err
	}

	requested := in.Slug
	if requested == "" && strings.TrimSpace(in.Title) == product.Title {
		requested = product.Slug
	}
	slug, err := s.resolveProductSlug(ctx, requested, in.Title, id)
	if err != nil {
		return nil, err
	}

	applyProductInput(product, in)
	product.Slug = slug
	product.UpdatedAt = s.now().UTC()

	if err := s.products.Update(ctx, product); err != nil {
		return nil, err
	}
	return product, nil
}

func (s *catalogService) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	return s.products.Delete(ctx, id)
}

// DuplicateProduct copies a product as a new draft with a fresh slug
func (s *catalogService) DuplicateProduct(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	original, err := s.products.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	copyID := uuid.New()
	title := original.Title + " (copie)"
	slug, err := s.resolveProductSlug(ctx, "", title, copyID)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	duplicate := *original
	duplicate.ID = copyID
	duplicate.Title = title
	duplicate.Slug = slug
	duplicate.Status = domain.ProductStatusDraft
	duplicate.Images = append([]string{}, original.Images...)
	duplicate.Specs = make(map[string]string, len(original.Specs))
	for k, v := range original.Specs {
		duplicate.Specs[k] = v
	}
	duplicate.CreatedAt = now
	duplicate.UpdatedAt = now

	if err := s.products.Create(ctx, &duplicate); err != nil {
		return nil, err
	}
	return &duplicate, nil
}

// UpdateStock sets the stock level of a product
func (s *catalogService) UpdateStock(ctx context.Context, id uuid.UUID, stock int) (*domain.Product, error) {
	if stock < 0 {
		return nil, ErrInvalidStock
	}
	if err := s.products.UpdateStock(ctx, id, stock); err != nil {
		return nil, err
	}
	return s.products.FindByID(ctx, id)
}

// AddProductImage appends an uploaded image to a product gallery
func (s *catalogService) AddProductImage(ctx context.Context, id uuid.UUID, url string) (*domain.Product, error) {
	product, err := s.products.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	product.Images = append(product.Images, url)
	product.UpdatedAt = s.now().UTC()
	if err := s.products.Update(ctx, product); err != nil {
		return nil, err
	}
	return product, nil
}

// FlatCategories lists every category depth-first with counts over all products
func (s *catalogService) FlatCategories(ctx context.Context) ([]catalog.FlatCategory, error) {
	products, err := s.products.List(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("failed to load products: %w", err)
	}
	tree, err := s.tree(ctx, products)
	if err != nil {
		return nil, err
	}
	return catalog.Flatten(tree), nil
}

func (s *catalogService) GetCategory(ctx context.Context, id uuid.UUID) (*domain.Category, error) {
	return s.categories.FindByID(ctx, id)
}

func (s *catalogService) resolveCategorySlug(ctx context.Context, requested, name string, excludeID uuid.UUID) (string, error) {
	requested = strings.TrimSpace(requested)
	if requested != "" {
		if !catalog.ValidSlug(requested) {
			return "", ErrInvalidSlug
		}
		taken, err := s.categories.SlugExists(ctx, requested, excludeID)
		if err != nil {
			return "", err
		}
		if taken {
			return "", repository.ErrCategorySlugTaken
		}
		return requested, nil
	}

	var lookupErr error
	slug := catalog.UniqueSlug(name, "categorie", func(candidate string) bool {
		taken, err := s.categories.SlugExists(ctx, candidate, excludeID)
		if err != nil {
			lookupErr = err
			return false
		}
		return taken
	})
	if lookupErr != nil {
		return "", lookupErr
	}
	return slug, nil
}

// checkParent refuses unknown parents and parents that would close a loop
func (s *catalogService) checkParent(ctx context.Context, id uuid.UUID, parentID *uuid.UUID) error {
	if parentID == nil {
		return nil
	}
	if *parentID == id {
		return ErrCategoryCycle
	}
	categories, err := s.categories.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to load categories: %w", err)
	}
	found := false
	for _, c := range categories {
		if c.ID == *parentID {
			found = true
			break
		}
	}
	if !found {
		return ErrParentNotFound
	}
	if catalog.WouldCycle(categories, id, parentID) {
		return ErrCategoryCycle
	}
	return nil
}

// CreateCategory adds a category, deriving its slug from the name when empty
func (s *catalogService) CreateCategory(ctx context.Context, in CategoryInput) (*domain.Category, error) {
	id := uuid.New()
	if err := s.checkParent(ctx, id, in.ParentID); err != nil {
		return nil, err
	}
	slug, err := s.resolveCategorySlug(ctx, in.Slug, in.Name, id)
	if err != nil {
		return nil, err
	}

	category := &domain.Category{
		ID:          id,
		Name:        strings.TrimSpace(in.Name),
		Slug:        slug,
		ParentID:    in.ParentID,
		Description: in.Description,
		Image:       in.Image,
		Position:    in.Position,
		CreatedAt:   s.now().UTC(),
	}
	if err := s.categories.Create(ctx, category); err != nil {
		return nil, err
	}
	return category, nil
}

// UpdateCategory edits a category. Renaming its slug moves its products along.
func (s *catalogService) UpdateCategory(ctx context.Context, id uuid.UUID, in CategoryInput) (*domain.Category, error) {
	category, err := s.categories.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.checkParent(ctx, id, in.ParentID); err != nil {
		return nil, err
	}

	requested := in.Slug
	if requested == "" && strings.TrimSpace(in.Name) == category.Name {
		requested = category.Slug
	}
	slug, err := s.resolveCategorySlug(ctx, requested, in.Name, id)
	if err != nil {
		return nil, err
	}

	oldSlug := category.Slug
	category.Name = strings.TrimSpace(in.Name)
	category.Slug = slug
	category.ParentID = in.ParentID
	category.Description = in.Description
	category.Image = in.Image
	category.Position = in.Position

	if oldSlug == slug {
		err = s.categories.Update(ctx, category)
	} else {
		err = s.categories.Rename(ctx, category, oldSlug)
	}
	if err != nil {
		return nil, err
	}
	return category, nil
}

// DeleteCategory removes an empty category
func (s *catalogService) DeleteCategory(ctx context.Context, id uuid.UUID) error {
	category, err := s.categories.FindByID(ctx, id)
	if err != nil {
		return err
	}

	children, err := s.categories.CountChildren(ctx, id)
	if err != nil {
		return err
	}
	products, err := s.products.CountByCategory(ctx, []string{category.Slug})
	if err != nil {
		return err
	}
	if children > 0 || products > 0 {
		return ErrCategoryNotEmpty
	}

	return s.categories.Delete(ctx, id)
}
