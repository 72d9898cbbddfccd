package cart

import "github.com/google/uuid"

// RecentlyViewedLimit is how many products the recently viewed strip keeps
const RecentlyViewedLimit = 12

// ToggleWishlist adds productID when absent and removes it when present
func ToggleWishlist(list []uuid.UUID, productID uuid.UUID) []uuid.UUID {
	if InWishlist(list, productID) {
		return RemoveFromWishlist(list, productID)
	}
	return AddToWishlist(list, productID)
}

// AddToWishlist appends productID unless it is already there
func AddToWishlist(list []uuid.UUID, productID uuid.UUID) []uuid.UUID {
	out := append([]uuid.UUID{}, list...)
	if InWishlist(list, productID) {
		return out
	}
	return append(out, productID)
}

// RemoveFromWishlist drops productID
func RemoveFromWishlist(list []uuid.UUID, productID uuid.UUID) []uuid.UUID {
	out := make([]uuid.UUID, 0, len(list))
	for _, id := range list {
		if id != productID {
			out = append(out, id)
		}
	}
	return out
}

// InWishlist reports whether productID is saved
func InWishlist(list []uuid.UUID, productID uuid.UUID) bool {
	for _, id := range list {
		if id == productID {
			return true
		}
	}
	return false
}

// PushRecentlyViewed moves productID to the front and trims the list
func PushRecentlyViewed(list []uuid.UUID, productID uuid.UUID) []uuid.UUID {
	out := make([]uuid.UUID, 0, RecentlyViewedLimit)
	out = append(out, productID)
	for _, id := range list {
		if len(out) == RecentlyViewedLimit {
			break
		}
		if id != productID {
			out = append(out, id)
		}
	}
	return out
}
