package cart

import (
	"testing"

	"github.com/google/uuid"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
)

func ids(n int) []uuid.UUID {
	out := make([]uuid.UUID, n)
	for i := range out {
		out[i] = uuid.New()
	}
	return out
}

// Toggling a wishlist entry twice returns to the original membership state.
func TestProperty_WishlistToggleTwiceRestoresMembership(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("toggle is an involution on membership", prop.ForAll(
		func(size int, pick int, present bool) bool {
			list := ids(size)
			target := uuid.New()
			if present && size > 0 {
				target = list[pick%size]
			}

			before := InWishlist(list, target)
			once := ToggleWishlist(list, target)
			if InWishlist(once, target) == before {
				return false
			}
			twice := ToggleWishlist(once, target)
			if InWishlist(twice, target) != before {
				return false
			}
			for _, id := range list {
				if id != target && !InWishlist(twice, id) {
					return false
				}
			}
			return true
		},
		gen.IntRange(0, 20),
		gen.IntRange(0, 1000),
		gen.Bool(),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestWishlist_AddIsIdempotent(t *testing.T) {
	id := uuid.New()
	list := AddToWishlist(nil, id)
	list = AddToWishlist(list, id)
	assert.Equal(t, []uuid.UUID{id}, list)
	assert.Empty(t, RemoveFromWishlist(list, id))
}

func TestPushRecentlyViewed(t *testing.T) {
	list := ids(RecentlyViewedLimit)
	again := list[5]

	out := PushRecentlyViewed(list, again)
	assert.Len(t, out, RecentlyViewedLimit)
	assert.Equal(t, again, out[0])
	count := 0
	for _, id := range out {
		if id == again {
			count++
		}
	}
	assert.Equal(t, 1, count)

	fresh := uuid.New()
	out = PushRecentlyViewed(list, fresh)
	assert.Len(t, out, RecentlyViewedLimit)
	assert.Equal(t, fresh, out[0])
	assert.NotContains(t, out, list[RecentlyViewedLimit-1])
}
