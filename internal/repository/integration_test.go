//go:build integration

package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"testing"
	"time"

	"vitrine/internal/database"
	"vitrine/internal/domain"

	"github.com/google/uuid"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/shopspring/decimal"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	_ "github.com/jackc/pgx/v5/stdlib"
)

var testDB *sql.DB

func setupTestDB() (func(context.Context, ...testcontainers.TerminateOption) error, error) {
	var (
		dbName = "testdb"
		dbPwd  = "password"
		dbUser = "user"
	)

	dbContainer, err := postgres.Run(
		context.Background(),
		"postgres:15",
		postgres.WithDatabase(dbName),
		postgres.WithUsername(dbUser),
		postgres.WithPassword(dbPwd),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	if err != nil {
		return nil, err
	}

	connStr, err := dbContainer.ConnectionString(context.Background(), "sslmode=disable")
	if err != nil {
		return dbContainer.Terminate, err
	}

	testDB, err = sql.Open("pgx", connStr)
	if err != nil {
		return dbContainer.Terminate, err
	}

	if err := database.RunMigrations(testDB, zap.NewNop()); err != nil {
		return dbContainer.Terminate, err
	}

	return dbContainer.Terminate, nil
}

func TestMain(m *testing.M) {
	teardown, err := setupTestDB()
	if err != nil {
		log.Fatalf("could not start postgres container: %v", err)
	}

	m.Run()

	if teardown != nil {
		if err := teardown(context.Background()); err != nil {
			log.Fatalf("could not teardown postgres container: %v", err)
		}
	}
}

func seedProduct(t *testing.T, stock int) *domain.Product {
	t.Helper()
	now := time.Now().UTC().Truncate(time.Microsecond)
	p := &domain.Product{
		ID:           uuid.New(),
		Title:        "Bougie " + uuid.NewString()[:8],
		Slug:         "bougie-" + uuid.NewString(),
		Price:        decimal.RequireFromString("12.50"),
		SalePrice:    decimal.Zero,
		Currency:     domain.DefaultCurrency,
		CategorySlug: "maison",
		Stock:        stock,
		Images:       []string{"https://cdn.example.com/a.jpg"},
		Specs:        map[string]string{"Poids": "200 g"},
		Status:       domain.ProductStatusActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := NewProductRepository(testDB).Create(context.Background(), p); err != nil {
		t.Fatalf("failed to seed product: %v", err)
	}
	return p
}

func newTestOrder(p *domain.Product, qty int) *domain.Order {
	now := time.Now().UTC().Truncate(time.Microsecond)
	item := domain.OrderItem{
		ProductID: p.ID,
		Slug:      p.Slug,
		Title:     p.Title,
		UnitPrice: p.EffectivePrice(),
		Currency:  p.Currency,
		Quantity:  qty,
		LineTotal: p.EffectivePrice().Mul(decimal.NewFromInt(int64(qty))),
	}
	return &domain.Order{
		ID:     uuid.New(),
		Number: "CMD-" + now.Format("20060102") + "-" + uuid.NewString()[:6],
		Customer: domain.Customer{
			FirstName: "Léa", LastName: "Martin", Email: "Lea.Martin@example.com", Phone: "0600000000",
			AddressLine1: "1 rue de la Paix", PostalCode: "75002", City: "Paris", Country: "France",
		},
		Items:       []domain.OrderItem{item},
		Subtotal:    item.LineTotal,
		ShippingFee: decimal.Zero,
		Total:       item.LineTotal,
		Currency:    domain.DefaultCurrency,
		Status:      domain.OrderStatusPending,
		History:     []domain.StatusChange{{Status: domain.OrderStatusPending, At: now}},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// newMultiLineOrder builds an order with one unit of each product, in the
// given line order
func newMultiLineOrder(products ...*domain.Product) *domain.Order {
	order := newTestOrder(products[0], 1)
	for _, p := range products[1:] {
		line := newTestOrder(p, 1).Items[0]
		order.Items = append(order.Items, line)
		order.Subtotal = order.Subtotal.Add(line.LineTotal)
	}
	order.Total = order.Subtotal
	return order
}

func stockOf(t *testing.T, id uuid.UUID) int {
	t.Helper()
	p, err := NewProductRepository(testDB).FindByID(context.Background(), id)
	if err != nil {
		t.Fatalf("failed to reload product: %v", err)
	}
	return p.Stock
}

// Feature: storefront, Property: Product creation preserves attributes
func TestProperty_ProductCreationPreservesAttributes(t *testing.T) {
	repo := NewProductRepository(testDB)
	ctx := context.Background()

	properties := gopter.NewProperties(nil)

	properties.Property("creating and retrieving a product preserves all attributes", prop.ForAll(
		func(title string, cents int64, stock int, spec string) bool {
			now := time.Now().UTC().Truncate(time.Microsecond)
			product := &domain.Product{
				ID:           uuid.New(),
				Title:        title,
				Slug:         "p-" + uuid.NewString(),
				Description:  "desc " + title,
				Price:        decimal.New(cents, -2),
				SalePrice:    decimal.Zero,
				Currency:     domain.DefaultCurrency,
				CategorySlug: "deco",
				Stock:        stock,
				Images:       []string{"a.jpg", "b.jpg"},
				Specs:        map[string]string{"Matière": spec},
				IsNew:        stock%2 == 0,
				Status:       domain.ProductStatusActive,
				CreatedAt:    now,
				UpdatedAt:    now,
			}
			if err := repo.Create(ctx, product); err != nil {
				t.Logf("FAIL: create: %v", err)
				return false
			}

			got, err := repo.FindBySlug(ctx, product.Slug)
			if err != nil {
				t.Logf("FAIL: find: %v", err)
				return false
			}

			return got.ID == product.ID &&
				got.Title == product.Title &&
				got.Price.Equal(product.Price) &&
				got.Stock == product.Stock &&
				len(got.Images) == 2 && got.Images[1] == "b.jpg" &&
				got.Specs["Matière"] == spec &&
				got.IsNew == product.IsNew &&
				got.CreatedAt.Equal(product.CreatedAt)
		},
		gen.RegexMatch(`[A-Z][a-z]{2,20}`),
		gen.Int64Range(0, 9999999),
		gen.IntRange(0, 1000),
		gen.AlphaString(),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestProductSlugIsUnique(t *testing.T) {
	p := seedProduct(t, 1)
	dup := *p
	dup.ID = uuid.New()

	err := NewProductRepository(testDB).Create(context.Background(), &dup)
	if !errors.Is(err, ErrProductSlugTaken) {
		t.Fatalf("expected ErrProductSlugTaken, got %v", err)
	}
}

// Feature: storefront, Property: Checkout never oversells
func TestProperty_ConcurrentCheckoutNeverOversells(t *testing.T) {
	repo := NewOrderRepository(testDB)

	properties := gopter.NewProperties(nil)

	properties.Property("successful orders never exceed the initial stock", prop.ForAll(
		func(stock int, buyers int) bool {
			p := seedProduct(t, stock)

			var wg sync.WaitGroup
			var mu sync.Mutex
			placed := 0
			for i := 0; i < buyers; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					err := repo.Create(context.Background(), newTestOrder(p, 1))
					if err == nil {
						mu.Lock()
						placed++
						mu.Unlock()
					} else if !errors.Is(err, ErrInsufficientStock) {
						t.Logf("unexpected checkout error: %v", err)
					}
				}()
			}
			wg.Wait()

			expected := buyers
			if stock < buyers {
				expected = stock
			}
			return placed == expected && stockOf(t, p.ID) == stock-placed
		},
		gen.IntRange(0, 5),
		gen.IntRange(1, 8),
	))

	properties.Property("carts listing the same products in opposite orders never deadlock", prop.ForAll(
		func(stock int, buyers int) bool {
			a := seedProduct(t, stock)
			b := seedProduct(t, stock)

			var wg sync.WaitGroup
			var mu sync.Mutex
			placed, unexpected := 0, 0
			for i := 0; i < buyers; i++ {
				order := newMultiLineOrder(a, b)
				if i%2 == 1 {
					order = newMultiLineOrder(b, a)
				}
				wg.Add(1)
				go func(order *domain.Order) {
					defer wg.Done()
					err := repo.Create(context.Background(), order)
					mu.Lock()
					defer mu.Unlock()
					switch {
					case err == nil:
						placed++
					case !errors.Is(err, ErrInsufficientStock):
						t.Logf("unexpected checkout error: %v", err)
						unexpected++
					}
				}(order)
			}
			wg.Wait()

			expected := buyers
			if stock < buyers {
				expected = stock
			}
			return unexpected == 0 &&
				placed == expected &&
				stockOf(t, a.ID) == stock-placed &&
				stockOf(t, b.ID) == stock-placed
		},
		gen.IntRange(0, 5),
		gen.IntRange(2, 8),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestOrderLifecycleKeepsPublicProjectionInSync(t *testing.T) {
	ctx := context.Background()
	orders := NewOrderRepository(testDB)
	public := NewPublicOrderRepository(testDB)

	p := seedProduct(t, 3)
	order := newTestOrder(p, 2)
	if err := orders.Create(ctx, order); err != nil {
		t.Fatalf("create: %v", err)
	}
	if got := stockOf(t, p.ID); got != 1 {
		t.Fatalf("stock after checkout = %d, want 1", got)
	}

	projection, email, err := public.FindByNumber(ctx, order.Number)
	if err != nil {
		t.Fatalf("find public: %v", err)
	}
	if email != "lea.martin@example.com" {
		t.Errorf("email = %q, want lower-cased", email)
	}
	if projection.Status != domain.OrderStatusPending || !projection.Total.Equal(order.Total) {
		t.Errorf("unexpected projection %+v", projection)
	}

	updated, err := orders.Mutate(ctx, order.ID, func(o *domain.Order) (bool, error) {
		o.Status = domain.OrderStatusCancelled
		o.PublicNote = "Rupture fournisseur"
		o.AdminNote = "remboursé par virement"
		o.History = append(o.History, domain.StatusChange{Status: o.Status, At: time.Now().UTC()})
		return true, nil
	})
	if err != nil {
		t.Fatalf("mutate: %v", err)
	}
	if updated.Status != domain.OrderStatusCancelled {
		t.Errorf("status = %s", updated.Status)
	}
	if got := stockOf(t, p.ID); got != 3 {
		t.Errorf("stock after cancel = %d, want 3", got)
	}

	projection, _, err = public.FindByNumber(ctx, order.Number)
	if err != nil {
		t.Fatalf("find public: %v", err)
	}
	if projection.Status != domain.OrderStatusCancelled || projection.PublicNote != "Rupture fournisseur" {
		t.Errorf("projection not mirrored: %+v", projection)
	}
	if len(projection.History) != 2 {
		t.Errorf("history length = %d, want 2", len(projection.History))
	}

	if err := orders.Delete(ctx, order.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, _, err := public.FindByNumber(ctx, order.Number); !errors.Is(err, ErrOrderNotFound) {
		t.Errorf("projection should be gone, got %v", err)
	}
}

func TestMutateRollsBackOnError(t *testing.T) {
	ctx := context.Background()
	orders := NewOrderRepository(testDB)
	p := seedProduct(t, 2)
	order := newTestOrder(p, 1)
	if err := orders.Create(ctx, order); err != nil {
		t.Fatalf("create: %v", err)
	}

	boom := fmt.Errorf("boom")
	_, err := orders.Mutate(ctx, order.ID, func(o *domain.Order) (bool, error) {
		o.Status = domain.OrderStatusCancelled
		return true, boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}

	reloaded, err := orders.FindByID(ctx, order.ID)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if reloaded.Status != domain.OrderStatusPending || stockOf(t, p.ID) != 1 {
		t.Errorf("mutation leaked: status=%s stock=%d", reloaded.Status, stockOf(t, p.ID))
	}
}

// Feature: back-office, Property: Admin passwords are stored hashed
func TestProperty_AdminPasswordsAreHashed(t *testing.T) {
	repo := NewAdminRepository(testDB)
	ctx := context.Background()

	properties := gopter.NewProperties(nil)

	properties.Property("passwords are hashed with bcrypt and emails are case-insensitive", prop.ForAll(
		func(email string, password string) bool {
			_, _ = testDB.Exec("DELETE FROM admins WHERE email = $1", email)

			hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
			if err != nil {
				return false
			}
			now := time.Now().UTC()
			admin := &domain.Admin{
				ID: uuid.New(), Email: email, PasswordHash: string(hash),
				Name: "Admin", Role: domain.RoleAdmin, CreatedAt: now, UpdatedAt: now,
			}
			if err := repo.Create(ctx, admin); err != nil {
				t.Logf("create: %v", err)
				return false
			}

			got, err := repo.FindByEmail(ctx, strings.ToUpper(email))
			if err != nil {
				t.Logf("find: %v", err)
				return false
			}
			defer func() { _, _ = testDB.Exec("DELETE FROM admins WHERE id = $1", admin.ID) }()

			return got.PasswordHash != password &&
				bcrypt.CompareHashAndPassword([]byte(got.PasswordHash), []byte(password)) == nil
		},
		gen.RegexMatch(`[a-z]{5,10}@[a-z]{3,8}\.(com|org|net)`),
		gen.RegexMatch(`[A-Za-z0-9!@#$%]{8,20}`),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestSettingsRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := NewSettingsRepository(testDB)
	_, _ = testDB.Exec("DELETE FROM settings")

	got, err := repo.Get(ctx)
	if err != nil {
		t.Fatalf("get defaults: %v", err)
	}
	if got.StoreName != "Vitrine" {
		t.Errorf("expected defaults, got %+v", got)
	}

	got.StoreName = "Atelier Lumière"
	got.ShippingFee = decimal.RequireFromString("3.50")
	got.UpdatedAt = time.Now().UTC().Truncate(time.Microsecond)
	if err := repo.Save(ctx, got); err != nil {
		t.Fatalf("save: %v", err)
	}

	reloaded, err := repo.Get(ctx)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if reloaded.StoreName != "Atelier Lumière" || !reloaded.ShippingFee.Equal(got.ShippingFee) {
		t.Errorf("settings not persisted: %+v", reloaded)
	}
}

func TestReviewSummaryCountsApprovedOnly(t *testing.T) {
	ctx := context.Background()
	repo := NewReviewRepository(testDB)
	p := seedProduct(t, 1)

	for i, rating := range []int{5, 4, 1} {
		rv := &domain.Review{
			ID: uuid.New(), ProductID: p.ID, Author: "Client", Rating: rating,
			Approved: i < 2, CreatedAt: time.Now().UTC(),
		}
		if err := repo.Create(ctx, rv); err != nil {
			t.Fatalf("create review: %v", err)
		}
	}

	summary, err := repo.Summary(ctx, p.ID)
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if summary.Count != 2 || summary.Average != 4.5 {
		t.Errorf("summary = %+v, want 2 reviews averaging 4.5", summary)
	}
}
