package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"vitrine/internal/domain"
	"vitrine/internal/repository"
	"vitrine/internal/session"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// flakyStore fails every Update once failUpdates is set
type flakyStore struct {
	session.Store
	failUpdates bool
}

func (s *flakyStore) Update(ctx context.Context, visitorID string, fn func(state *domain.VisitorState) error) (domain.VisitorState, error) {
	if s.failUpdates {
		return domain.VisitorState{}, errors.New("redis: connection pool timeout")
	}
	return s.Store.Update(ctx, visitorID, fn)
}

type visitorFixture struct {
	service VisitorService
	store   *flakyStore
	orders  *orderFixture
	logs    *observer.ObservedLogs
	visitor string
}

func newVisitorFixture(t *testing.T, products ...*domain.Product) *visitorFixture {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	store := &flakyStore{Store: session.NewRedisStore(client, time.Hour)}
	orders := newOrderFixture(products...)
	core, logs := observer.New(zapcore.WarnLevel)
	return &visitorFixture{
		service: NewVisitorService(store, orders.products, orders.settings, orders.service, zap.New(core)),
		store:   store,
		orders:  orders,
		logs:    logs,
		visitor: session.NewVisitorID(),
	}
}

func TestAddToCartMergesAndClampsToStock(t *testing.T) {
	mug := newTestProduct("Mug", "12", 3)
	f := newVisitorFixture(t, mug)
	ctx := context.Background()

	summary, err := f.service.AddToCart(ctx, f.visitor, mug.ID, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Count)

	summary, err = f.service.AddToCart(ctx, f.visitor, mug.ID, 5)
	require.NoError(t, err)
	require.Len(t, summary.Items, 1)
	assert.Equal(t, 3, summary.Items[0].Quantity)

	// 36 is below the free shipping threshold
	assert.True(t, summary.Subtotal.Equal(decimal.NewFromInt(36)))
	assert.True(t, summary.Total.Equal(summary.Subtotal.Add(summary.ShippingFee)))
	assert.True(t, summary.ShippingFee.IsPositive())
	assert.True(t, summary.FreeShippingRemaining.Equal(decimal.NewFromInt(24)))
}

func TestAddToCartRejections(t *testing.T) {
	soldOut := newTestProduct("Sold out", "10", 0)
	draft := newTestProduct("Draft", "10", 4)
	draft.Status = domain.ProductStatusDraft
	mug := newTestProduct("Mug", "10", 4)
	f := newVisitorFixture(t, soldOut, draft, mug)
	ctx := context.Background()

	_, err := f.service.AddToCart(ctx, f.visitor, mug.ID, 0)
	assert.ErrorIs(t, err, ErrInvalidQuantity)

	_, err = f.service.AddToCart(ctx, f.visitor, soldOut.ID, 1)
	assert.ErrorIs(t, err, repository.ErrInsufficientStock)

	_, err = f.service.AddToCart(ctx, f.visitor, draft.ID, 1)
	assert.ErrorIs(t, err, repository.ErrProductNotFound)

	_, err = f.service.AddToCart(ctx, f.visitor, uuid.New(), 1)
	assert.ErrorIs(t, err, repository.ErrProductNotFound)

	summary, err := f.service.Cart(ctx, f.visitor)
	require.NoError(t, err)
	assert.Empty(t, summary.Items)
	assert.True(t, summary.ShippingFee.IsZero())
}

func TestCartRefreshesAgainstCatalog(t *testing.T) {
	mug := newTestProduct("Mug", "10", 5)
	lamp := newTestProduct("Lamp", "50", 5)
	f := newVisitorFixture(t, mug, lamp)
	ctx := context.Background()

	_, err := f.service.AddToCart(ctx, f.visitor, mug.ID, 4)
	require.NoError(t, err)
	_, err = f.service.AddToCart(ctx, f.visitor, lamp.ID, 1)
	require.NoError(t, err)

	// price drop, stock shrink and unpublished product
	f.orders.products.products[mug.ID].Price = decimal.NewFromInt(8)
	f.orders.products.products[mug.ID].Stock = 2
	f.orders.products.products[lamp.ID].Status = domain.ProductStatusDraft

	summary, err := f.service.Cart(ctx, f.visitor)
	require.NoError(t, err)
	require.Len(t, summary.Items, 1)
	assert.Equal(t, mug.ID, summary.Items[0].ProductID)
	assert.Equal(t, 2, summary.Items[0].Quantity)
	assert.True(t, summary.Items[0].Price.Equal(decimal.NewFromInt(8)))

	state, err := f.store.Load(ctx, f.visitor)
	require.NoError(t, err)
	assert.Len(t, state.Cart, 1)
}

func TestUpdateAndRemoveCartItems(t *testing.T) {
	mug := newTestProduct("Mug", "10", 10)
	f := newVisitorFixture(t, mug)
	ctx := context.Background()

	_, err := f.service.UpdateCartItem(ctx, f.visitor, mug.ID, 2)
	assert.ErrorIs(t, err, repository.ErrProductNotFound)

	_, err = f.service.AddToCart(ctx, f.visitor, mug.ID, 1)
	require.NoError(t, err)

	summary, err := f.service.UpdateCartItem(ctx, f.visitor, mug.ID, 6)
	require.NoError(t, err)
	assert.Equal(t, 6, summary.Count)

	summary, err = f.service.UpdateCartItem(ctx, f.visitor, mug.ID, 0)
	require.NoError(t, err)
	assert.Empty(t, summary.Items)

	_, err = f.service.AddToCart(ctx, f.visitor, mug.ID, 1)
	require.NoError(t, err)
	summary, err = f.service.RemoveFromCart(ctx, f.visitor, mug.ID)
	require.NoError(t, err)
	assert.Zero(t, summary.Count)

	_, err = f.service.AddToCart(ctx, f.visitor, mug.ID, 1)
	require.NoError(t, err)
	summary, err = f.service.ClearCart(ctx, f.visitor)
	require.NoError(t, err)
	assert.Empty(t, summary.Items)
}

func TestVisitorCheckoutClearsCartOnlyOnSuccess(t *testing.T) {
	mug := newTestProduct("Mug", "30", 3)
	f := newVisitorFixture(t, mug)
	ctx := context.Background()

	_, err := f.service.Checkout(ctx, f.visitor, testCustomer(), "")
	assert.ErrorIs(t, err, ErrEmptyCart)

	_, err = f.service.AddToCart(ctx, f.visitor, mug.ID, 3)
	require.NoError(t, err)

	// someone else bought the stock in the meantime
	f.orders.products.products[mug.ID].Stock = 1
	_, err = f.service.Checkout(ctx, f.visitor, testCustomer(), "")
	assert.ErrorIs(t, err, repository.ErrInsufficientStock)

	state, err := f.store.Load(ctx, f.visitor)
	require.NoError(t, err)
	assert.Len(t, state.Cart, 1)

	f.orders.products.products[mug.ID].Stock = 3
	order, err := f.service.Checkout(ctx, f.visitor, testCustomer(), "Merci")
	require.NoError(t, err)
	assert.True(t, order.Total.Equal(decimal.NewFromInt(90)))
	assert.Zero(t, f.orders.products.products[mug.ID].Stock)

	state, err = f.store.Load(ctx, f.visitor)
	require.NoError(t, err)
	assert.Empty(t, state.Cart)
}

func TestVisitorCheckoutLogsCartClearFailure(t *testing.T) {
	mug := newTestProduct("Mug", "30", 3)
	f := newVisitorFixture(t, mug)
	ctx := context.Background()

	_, err := f.service.AddToCart(ctx, f.visitor, mug.ID, 1)
	require.NoError(t, err)

	f.store.failUpdates = true
	order, err := f.service.Checkout(ctx, f.visitor, testCustomer(), "")
	require.NoError(t, err)
	require.NotNil(t, order)

	entries := f.logs.FilterMessage("Failed to clear cart after checkout").All()
	require.Len(t, entries, 1)
	assert.Equal(t, order.Number, entries[0].ContextMap()["order"])
	assert.Equal(t, f.visitor, entries[0].ContextMap()["visitor_id"])

	// the cart still holds the ordered item
	state, err := f.store.Load(ctx, f.visitor)
	require.NoError(t, err)
	assert.Len(t, state.Cart, 1)
}

func TestWishlistToggleAndRecentlyViewed(t *testing.T) {
	mug := newTestProduct("Mug", "10", 1)
	lamp := newTestProduct("Lamp", "10", 1)
	f := newVisitorFixture(t, mug, lamp)
	ctx := context.Background()

	in, err := f.service.ToggleWishlist(ctx, f.visitor, mug.ID)
	require.NoError(t, err)
	assert.True(t, in)

	_, err = f.service.ToggleWishlist(ctx, f.visitor, uuid.New())
	assert.ErrorIs(t, err, repository.ErrProductNotFound)

	wishlist, err := f.service.Wishlist(ctx, f.visitor)
	require.NoError(t, err)
	require.Len(t, wishlist, 1)
	assert.Equal(t, mug.ID, wishlist[0].ID)

	in, err = f.service.ToggleWishlist(ctx, f.visitor, mug.ID)
	require.NoError(t, err)
	assert.False(t, in)

	_, err = f.service.ToggleWishlist(ctx, f.visitor, lamp.ID)
	require.NoError(t, err)
	require.NoError(t, f.service.ClearWishlist(ctx, f.visitor))
	wishlist, err = f.service.Wishlist(ctx, f.visitor)
	require.NoError(t, err)
	assert.Empty(t, wishlist)

	require.NoError(t, f.service.MarkViewed(ctx, f.visitor, mug.ID))
	require.NoError(t, f.service.MarkViewed(ctx, f.visitor, lamp.ID))
	require.NoError(t, f.service.MarkViewed(ctx, f.visitor, mug.ID))
	viewed, err := f.service.RecentlyViewed(ctx, f.visitor)
	require.NoError(t, err)
	require.Len(t, viewed, 2)
	assert.Equal(t, mug.ID, viewed[0].ID)
	assert.Equal(t, lamp.ID, viewed[1].ID)
}

func TestPreferencesRoundTrip(t *testing.T) {
	f := newVisitorFixture(t)
	ctx := context.Background()

	prefs, err := f.service.Preferences(ctx, f.visitor)
	require.NoError(t, err)
	assert.Equal(t, domain.ConsentUnset, prefs.CookieConsent)

	saved, err := f.service.UpdatePreferences(ctx, f.visitor, domain.Preferences{CookieConsent: domain.ConsentAccepted, SnowEffect: true})
	require.NoError(t, err)
	assert.True(t, saved.SnowEffect)

	prefs, err = f.service.Preferences(ctx, f.visitor)
	require.NoError(t, err)
	assert.Equal(t, domain.ConsentAccepted, prefs.CookieConsent)
}

func TestInvalidVisitorIDIsRejected(t *testing.T) {
	f := newVisitorFixture(t)
	_, err := f.service.Cart(context.Background(), "not-a-visitor-id")
	assert.ErrorIs(t, err, session.ErrInvalidVisitorID)
}
