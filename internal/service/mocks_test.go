package service

import (
	"context"
	"sort"
	"strings"
	"time"

	"vitrine/internal/domain"
	"vitrine/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Mock repositories for testing

type mockAdminRepository struct {
	admins map[string]*domain.Admin
}

func newMockAdminRepository() *mockAdminRepository {
	return &mockAdminRepository{admins: make(map[string]*domain.Admin)}
}

func (m *mockAdminRepository) Create(ctx context.Context, admin *domain.Admin) error {
	if _, exists := m.admins[admin.Email]; exists {
		return repository.ErrAdminAlreadyExists
	}
	m.admins[admin.Email] = admin
	return nil
}

func (m *mockAdminRepository) FindByEmail(ctx context.Context, email string) (*domain.Admin, error) {
	admin, exists := m.admins[strings.ToLower(email)]
	if !exists {
		return nil, repository.ErrAdminNotFound
	}
	return admin, nil
}

func (m *mockAdminRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Admin, error) {
	for _, admin := range m.admins {
		if admin.ID == id {
			return admin, nil
		}
	}
	return nil, repository.ErrAdminNotFound
}

func (m *mockAdminRepository) Count(ctx context.Context) (int, error) {
	return len(m.admins), nil
}

type mockRefreshTokenRepository struct {
	tokens map[string]*domain.RefreshToken
}

func newMockRefreshTokenRepository() *mockRefreshTokenRepository {
	return &mockRefreshTokenRepository{tokens: make(map[string]*domain.RefreshToken)}
}

func (m *mockRefreshTokenRepository) Create(ctx context.Context, token *domain.RefreshToken) error {
	m.tokens[token.Token] = token
	return nil
}

func (m *mockRefreshTokenRepository) FindByToken(ctx context.Context, token string) (*domain.RefreshToken, error) {
	refreshToken, exists := m.tokens[token]
	if !exists {
		return nil, repository.ErrRefreshTokenNotFound
	}
	if refreshToken.Revoked {
		return nil, repository.ErrRefreshTokenRevoked
	}
	return refreshToken, nil
}

func (m *mockRefreshTokenRepository) Revoke(ctx context.Context, token string) error {
	refreshToken, exists := m.tokens[token]
	if !exists {
		return repository.ErrRefreshTokenNotFound
	}
	refreshToken.Revoked = true
	return nil
}

func (m *mockRefreshTokenRepository) RevokeAllForAdmin(ctx context.Context, adminID uuid.UUID) error {
	for _, token := range m.tokens {
		if token.AdminID == adminID {
			token.Revoked = true
		}
	}
	return nil
}

func (m *mockRefreshTokenRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	var n int64
	for key, token := range m.tokens {
		if token.ExpiresAt.Before(now) {
			delete(m.tokens, key)
			n++
		}
	}
	return n, nil
}

type mockProductRepository struct {
	products map[uuid.UUID]*domain.Product
}

func newMockProductRepository(products ...*domain.Product) *mockProductRepository {
	m := &mockProductRepository{products: make(map[uuid.UUID]*domain.Product)}
	for _, p := range products {
		m.products[p.ID] = p
	}
	return m
}

func (m *mockProductRepository) Create(ctx context.Context, product *domain.Product) error {
	for _, p := range m.products {
		if p.Slug == product.Slug {
			return repository.ErrProductSlugTaken
		}
	}
	stored := *product
	m.products[product.ID] = &stored
	return nil
}

func (m *mockProductRepository) Update(ctx context.Context, product *domain.Product) error {
	if _, exists := m.products[product.ID]; !exists {
		return repository.ErrProductNotFound
	}
	stored := *product
	m.products[product.ID] = &stored
	return nil
}

func (m *mockProductRepository) Delete(ctx context.Context, id uuid.UUID) error {
	if _, exists := m.products[id]; !exists {
		return repository.ErrProductNotFound
	}
	delete(m.products, id)
	return nil
}

func (m *mockProductRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	p, exists := m.products[id]
	if !exists {
		return nil, repository.ErrProductNotFound
	}
	found := *p
	return &found, nil
}

func (m *mockProductRepository) FindBySlug(ctx context.Context, slug string) (*domain.Product, error) {
	for _, p := range m.products {
		if p.Slug == slug {
			found := *p
			return &found, nil
		}
	}
	return nil, repository.ErrProductNotFound
}

func (m *mockProductRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]*domain.Product, error) {
	products := []*domain.Product{}
	for _, id := range ids {
		if p, exists := m.products[id]; exists {
			found := *p
			products = append(products, &found)
		}
	}
	return products, nil
}

func (m *mockProductRepository) List(ctx context.Context, status domain.ProductStatus) ([]*domain.Product, error) {
	products := []*domain.Product{}
	for _, p := range m.products {
		if status == "" || p.Status == status {
			found := *p
			products = append(products, &found)
		}
	}
	sort.Slice(products, func(i, j int) bool { return products[i].CreatedAt.After(products[j].CreatedAt) })
	return products, nil
}

func (m *mockProductRepository) SlugExists(ctx context.Context, slug string, excludeID uuid.UUID) (bool, error) {
	for _, p := range m.products {
		if p.Slug == slug && p.ID != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockProductRepository) UpdateStock(ctx context.Context, id uuid.UUID, stock int) error {
	p, exists := m.products[id]
	if !exists {
		return repository.ErrProductNotFound
	}
	p.Stock = stock
	return nil
}

func (m *mockProductRepository) CountByCategory(ctx context.Context, slugs []string) (int, error) {
	n := 0
	for _, p := range m.products {
		for _, s := range slugs {
			if p.CategorySlug == s {
				n++
			}
		}
	}
	return n, nil
}

type mockCategoryRepository struct {
	categories map[uuid.UUID]*domain.Category
	// products receives slug renames, when set
	products *mockProductRepository
	// renameErr fails Rename before anything is written
	renameErr error
}

func newMockCategoryRepository(categories ...*domain.Category) *mockCategoryRepository {
	m := &mockCategoryRepository{categories: make(map[uuid.UUID]*domain.Category)}
	for _, c := range categories {
		m.categories[c.ID] = c
	}
	return m
}

func (m *mockCategoryRepository) Create(ctx context.Context, category *domain.Category) error {
	stored := *category
	m.categories[category.ID] = &stored
	return nil
}

func (m *mockCategoryRepository) Update(ctx context.Context, category *domain.Category) error {
	if _, exists := m.categories[category.ID]; !exists {
		return repository.ErrCategoryNotFound
	}
	stored := *category
	m.categories[category.ID] = &stored
	return nil
}

func (m *mockCategoryRepository) Rename(ctx context.Context, category *domain.Category, oldSlug string) error {
	if m.renameErr != nil {
		return m.renameErr
	}
	if err := m.Update(ctx, category); err != nil {
		return err
	}
	if m.products != nil {
		for _, p := range m.products.products {
			if p.CategorySlug == oldSlug {
				p.CategorySlug = category.Slug
			}
		}
	}
	return nil
}

func (m *mockCategoryRepository) Delete(ctx context.Context, id uuid.UUID) error {
	if _, exists := m.categories[id]; !exists {
		return repository.ErrCategoryNotFound
	}
	delete(m.categories, id)
	return nil
}

func (m *mockCategoryRepository) List(ctx context.Context) ([]*domain.Category, error) {
	categories := []*domain.Category{}
	for _, c := range m.categories {
		found := *c
		categories = append(categories, &found)
	}
	sort.Slice(categories, func(i, j int) bool { return categories[i].Name < categories[j].Name })
	return categories, nil
}

func (m *mockCategoryRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Category, error) {
	c, exists := m.categories[id]
	if !exists {
		return nil, repository.ErrCategoryNotFound
	}
	found := *c
	return &found, nil
}

func (m *mockCategoryRepository) FindBySlug(ctx context.Context, slug string) (*domain.Category, error) {
	for _, c := range m.categories {
		if c.Slug == slug {
			found := *c
			return &found, nil
		}
	}
	return nil, repository.ErrCategoryNotFound
}

func (m *mockCategoryRepository) SlugExists(ctx context.Context, slug string, excludeID uuid.UUID) (bool, error) {
	for _, c := range m.categories {
		if c.Slug == slug && c.ID != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockCategoryRepository) CountChildren(ctx context.Context, id uuid.UUID) (int, error) {
	n := 0
	for _, c := range m.categories {
		if c.ParentID != nil && *c.ParentID == id {
			n++
		}
	}
	return n, nil
}

type mockSettingsRepository struct {
	settings domain.SiteSettings
}

func newMockSettingsRepository() *mockSettingsRepository {
	return &mockSettingsRepository{settings: domain.DefaultSiteSettings()}
}

func (m *mockSettingsRepository) Get(ctx context.Context) (domain.SiteSettings, error) {
	return m.settings, nil
}

func (m *mockSettingsRepository) Save(ctx context.Context, settings domain.SiteSettings) error {
	m.settings = settings
	return nil
}

// mockOrderRepository reserves and releases stock in the shared product mock
// the way the SQL repository does inside its transactions
type mockOrderRepository struct {
	orders   map[uuid.UUID]*domain.Order
	products *mockProductRepository
	// takenNumbers makes the next Create calls fail with ErrOrderNumberTaken
	takenNumbers int
}

func newMockOrderRepository(products *mockProductRepository) *mockOrderRepository {
	return &mockOrderRepository{orders: make(map[uuid.UUID]*domain.Order), products: products}
}

func cloneOrder(o *domain.Order) *domain.Order {
	c := *o
	c.Items = append([]domain.OrderItem{}, o.Items...)
	c.History = append([]domain.StatusChange{}, o.History...)
	return &c
}

func (m *mockOrderRepository) Create(ctx context.Context, order *domain.Order) error {
	if m.takenNumbers > 0 {
		m.takenNumbers--
		return repository.ErrOrderNumberTaken
	}
	for _, item := range order.Items {
		p, exists := m.products.products[item.ProductID]
		if !exists || !p.IsActive() {
			return &repository.StockError{ProductID: item.ProductID, Requested: item.Quantity, Err: repository.ErrProductUnavailable}
		}
		if p.Stock < item.Quantity {
			return &repository.StockError{ProductID: p.ID, Title: p.Title, Requested: item.Quantity, Available: p.Stock, Err: repository.ErrInsufficientStock}
		}
	}
	for _, item := range order.Items {
		m.products.products[item.ProductID].Stock -= item.Quantity
	}
	m.orders[order.ID] = cloneOrder(order)
	return nil
}

func (m *mockOrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	o, exists := m.orders[id]
	if !exists {
		return nil, repository.ErrOrderNotFound
	}
	return cloneOrder(o), nil
}

func (m *mockOrderRepository) FindByNumber(ctx context.Context, number string) (*domain.Order, error) {
	for _, o := range m.orders {
		if o.Number == strings.ToUpper(strings.TrimSpace(number)) {
			return cloneOrder(o), nil
		}
	}
	return nil, repository.ErrOrderNotFound
}

func (m *mockOrderRepository) List(ctx context.Context, filter repository.OrderFilter) ([]*domain.Order, int, error) {
	orders := []*domain.Order{}
	for _, o := range m.orders {
		if filter.Status != "" && o.Status != filter.Status {
			continue
		}
		if filter.Query != "" && !strings.Contains(strings.ToLower(o.Number+" "+o.Customer.Email), strings.ToLower(filter.Query)) {
			continue
		}
		orders = append(orders, cloneOrder(o))
	}
	sort.Slice(orders, func(i, j int) bool { return orders[i].CreatedAt.After(orders[j].CreatedAt) })
	total := len(orders)
	if filter.Limit > 0 {
		start := filter.Offset
		if start > total {
			start = total
		}
		end := start + filter.Limit
		if end > total {
			end = total
		}
		orders = orders[start:end]
	}
	return orders, total, nil
}

func (m *mockOrderRepository) Mutate(ctx context.Context, id uuid.UUID, fn repository.OrderMutation) (*domain.Order, error) {
	stored, exists := m.orders[id]
	if !exists {
		return nil, repository.ErrOrderNotFound
	}
	order := cloneOrder(stored)
	restock, err := fn(order)
	if err != nil {
		return nil, err
	}
	if restock {
		for _, item := range order.Items {
			if p, ok := m.products.products[item.ProductID]; ok {
				p.Stock += item.Quantity
			}
		}
	}
	m.orders[id] = cloneOrder(order)
	return order, nil
}

func (m *mockOrderRepository) Delete(ctx context.Context, id uuid.UUID) error {
	if _, exists := m.orders[id]; !exists {
		return repository.ErrOrderNotFound
	}
	delete(m.orders, id)
	return nil
}

func (m *mockOrderRepository) CountByStatus(ctx context.Context) (map[domain.OrderStatus]int, error) {
	counts := make(map[domain.OrderStatus]int, len(domain.OrderStatuses))
	for _, status := range domain.OrderStatuses {
		counts[status] = 0
	}
	for _, o := range m.orders {
		counts[o.Status]++
	}
	return counts, nil
}

func (m *mockOrderRepository) Revenue(ctx context.Context, statuses []domain.OrderStatus) (decimal.Decimal, error) {
	total := decimal.Zero
	for _, o := range m.orders {
		for _, s := range statuses {
			if o.Status == s {
				total = total.Add(o.Total)
			}
		}
	}
	return total, nil
}

// mockPublicOrderRepository reads the projection straight from the order mock
type mockPublicOrderRepository struct {
	orders *mockOrderRepository
}

func (m *mockPublicOrderRepository) FindByNumber(ctx context.Context, number string) (*domain.PublicOrder, string, error) {
	order, err := m.orders.FindByNumber(ctx, number)
	if err != nil {
		return nil, "", err
	}
	public := order.Public()
	return public, public.Email, nil
}

type mockBannerRepository struct {
	banners map[uuid.UUID]*domain.Banner
}

func newMockBannerRepository() *mockBannerRepository {
	return &mockBannerRepository{banners: make(map[uuid.UUID]*domain.Banner)}
}

func (m *mockBannerRepository) Create(ctx context.Context, banner *domain.Banner) error {
	stored := *banner
	m.banners[banner.ID] = &stored
	return nil
}

func (m *mockBannerRepository) Update(ctx context.Context, banner *domain.Banner) error {
	if _, exists := m.banners[banner.ID]; !exists {
		return repository.ErrBannerNotFound
	}
	stored := *banner
	m.banners[banner.ID] = &stored
	return nil
}

func (m *mockBannerRepository) Delete(ctx context.Context, id uuid.UUID) error {
	if _, exists := m.banners[id]; !exists {
		return repository.ErrBannerNotFound
	}
	delete(m.banners, id)
	return nil
}

func (m *mockBannerRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Banner, error) {
	b, exists := m.banners[id]
	if !exists {
		return nil, repository.ErrBannerNotFound
	}
	found := *b
	return &found, nil
}

func (m *mockBannerRepository) List(ctx context.Context, activeOnly bool) ([]*domain.Banner, error) {
	banners := []*domain.Banner{}
	for _, b := range m.banners {
		if activeOnly && !b.Active {
			continue
		}
		found := *b
		banners = append(banners, &found)
	}
	sort.Slice(banners, func(i, j int) bool { return banners[i].Position < banners[j].Position })
	return banners, nil
}

type mockFaqRepository struct {
	items map[uuid.UUID]*domain.FaqItem
}

func newMockFaqRepository() *mockFaqRepository {
	return &mockFaqRepository{items: make(map[uuid.UUID]*domain.FaqItem)}
}

func (m *mockFaqRepository) Create(ctx context.Context, item *domain.FaqItem) error {
	stored := *item
	m.items[item.ID] = &stored
	return nil
}

func (m *mockFaqRepository) Update(ctx context.Context, item *domain.FaqItem) error {
	if _, exists := m.items[item.ID]; !exists {
		return repository.ErrFaqNotFound
	}
	stored := *item
	m.items[item.ID] = &stored
	return nil
}

func (m *mockFaqRepository) Delete(ctx context.Context, id uuid.UUID) error {
	if _, exists := m.items[id]; !exists {
		return repository.ErrFaqNotFound
	}
	delete(m.items, id)
	return nil
}

func (m *mockFaqRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.FaqItem, error) {
	item, exists := m.items[id]
	if !exists {
		return nil, repository.ErrFaqNotFound
	}
	found := *item
	return &found, nil
}

func (m *mockFaqRepository) List(ctx context.Context, publishedOnly bool) ([]*domain.FaqItem, error) {
	items := []*domain.FaqItem{}
	for _, item := range m.items {
		if publishedOnly && !item.Published {
			continue
		}
		found := *item
		items = append(items, &found)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Position < items[j].Position })
	return items, nil
}

type mockReviewRepository struct {
	reviews map[uuid.UUID]*domain.Review
}

func newMockReviewRepository() *mockReviewRepository {
	return &mockReviewRepository{reviews: make(map[uuid.UUID]*domain.Review)}
}

func (m *mockReviewRepository) Create(ctx context.Context, review *domain.Review) error {
	stored := *review
	m.reviews[review.ID] = &stored
	return nil
}

func (m *mockReviewRepository) ListByProduct(ctx context.Context, productID uuid.UUID, approvedOnly bool) ([]*domain.Review, error) {
	reviews := []*domain.Review{}
	for _, r := range m.reviews {
		if r.ProductID != productID || (approvedOnly && !r.Approved) {
			continue
		}
		found := *r
		reviews = append(reviews, &found)
	}
	return reviews, nil
}

func (m *mockReviewRepository) ListPending(ctx context.Context) ([]*domain.Review, error) {
	reviews := []*domain.Review{}
	for _, r := range m.reviews {
		if !r.Approved {
			found := *r
			reviews = append(reviews, &found)
		}
	}
	return reviews, nil
}

func (m *mockReviewRepository) SetApproved(ctx context.Context, id uuid.UUID, approved bool) error {
	r, exists := m.reviews[id]
	if !exists {
		return repository.ErrReviewNotFound
	}
	r.Approved = approved
	return nil
}

func (m *mockReviewRepository) Delete(ctx context.Context, id uuid.UUID) error {
	if _, exists := m.reviews[id]; !exists {
		return repository.ErrReviewNotFound
	}
	delete(m.reviews, id)
	return nil
}

func (m *mockReviewRepository) Summary(ctx context.Context, productID uuid.UUID) (domain.RatingSummary, error) {
	var summary domain.RatingSummary
	sum := 0
	for _, r := range m.reviews {
		if r.ProductID == productID && r.Approved {
			summary.Count++
			sum += r.Rating
		}
	}
	if summary.Count > 0 {
		summary.Average = float64(sum) / float64(summary.Count)
	}
	return summary, nil
}

// newTestProduct returns an active product with the given price and stock
func newTestProduct(title string, price string, stock int) *domain.Product {
	now := time.Now().UTC()
	return &domain.Product{
		ID:        uuid.New(),
		Title:     title,
		Slug:      strings.ToLower(strings.ReplaceAll(title, " ", "-")),
		Price:     decimal.RequireFromString(price),
		Currency:  domain.DefaultCurrency,
		Stock:     stock,
		Images:    []string{},
		Specs:     map[string]string{},
		Status:    domain.ProductStatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// testCustomer is a valid checkout customer
func testCustomer() domain.Customer {
	return domain.Customer{
		FirstName:    "Camille",
		LastName:     "Martin",
		Email:        "Camille.Martin@Example.com",
		Phone:        "0601020304",
		AddressLine1: "12 rue des Lilas",
		PostalCode:   "75011",
		City:         "Paris",
		Country:      "France",
	}
}
