// Package session keeps anonymous visitor state (cart, wishlist, recently
// viewed products and preferences) in redis, keyed by the visitor cookie.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"vitrine/internal/domain"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	// CookieName carries the visitor ID
	CookieName = "vitrine_sid"
	// KeyPrefix namespaces visitor state keys
	KeyPrefix = "vitrine:visitor"
	// DefaultTTL matches the cookie max-age
	DefaultTTL = 30 * 24 * time.Hour

	maxUpdateRetries = 5
)

var (
	ErrInvalidVisitorID = errors.New("invalid visitor id")
	ErrConflict         = errors.New("visitor state changed concurrently")
)

// Store loads and saves visitor state
type Store interface {
	Load(ctx context.Context, visitorID string) (domain.VisitorState, error)
	Save(ctx context.Context, visitorID string, state domain.VisitorState) error
	Update(ctx context.Context, visitorID string, fn func(state *domain.VisitorState) error) (domain.VisitorState, error)
	Delete(ctx context.Context, visitorID string) error
}

type redisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore creates a Store backed by client. A zero ttl uses DefaultTTL.
func NewRedisStore(client *redis.Client, ttl time.Duration) Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &redisStore{client: client, ttl: ttl}
}

// NewVisitorID returns a fresh random visitor ID
func NewVisitorID() string {
	return uuid.NewString()
}

// ValidVisitorID reports whether id looks like an ID minted by NewVisitorID
func ValidVisitorID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil && len(id) == 36
}

// Key returns the redis key holding the state of visitorID
func Key(visitorID string) string {
	return fmt.Sprintf("%s:%s", KeyPrefix, visitorID)
}

func emptyState() domain.VisitorState {
	return domain.VisitorState{
		Cart:           []domain.CartItem{},
		Wishlist:       []uuid.UUID{},
		RecentlyViewed: []uuid.UUID{},
	}
}

func decode(data []byte) (domain.VisitorState, error) {
	state := emptyState()
	if err := json.Unmarshal(data, &state); err != nil {
		return emptyState(), fmt.Errorf("failed to decode visitor state: %w", err)
	}
	if state.Cart == nil {
		state.Cart = []domain.CartItem{}
	}
	if state.Wishlist == nil {
		state.Wishlist = []uuid.UUID{}
	}
	if state.RecentlyViewed == nil {
		state.RecentlyViewed = []uuid.UUID{}
	}
	return state, nil
}

// Load returns the visitor state, or an empty state when none is stored
func (s *redisStore) Load(ctx context.Context, visitorID string) (domain.VisitorState, error) {
	if !ValidVisitorID(visitorID) {
		return emptyState(), ErrInvalidVisitorID
	}
	data, err := s.client.Get(ctx, Key(visitorID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return emptyState(), nil
		}
		return emptyState(), fmt.Errorf("failed to load visitor state: %w", err)
	}
	return decode(data)
}

// Save overwrites the visitor state and refreshes its TTL
func (s *redisStore) Save(ctx context.Context, visitorID string, state domain.VisitorState) error {
	if !ValidVisitorID(visitorID) {
		return ErrInvalidVisitorID
	}
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to encode visitor state: %w", err)
	}
	if err := s.client.Set(ctx, Key(visitorID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save visitor state: %w", err)
	}
	return nil
}

// Update applies fn to the stored state under an optimistic WATCH, retrying
// when another writer touched the key in between
func (s *redisStore) Update(ctx context.Context, visitorID string, fn func(state *domain.VisitorState) error) (domain.VisitorState, error) {
	if !ValidVisitorID(visitorID) {
		return emptyState(), ErrInvalidVisitorID
	}
	key := Key(visitorID)

	var result domain.VisitorState
	txf := func(tx *redis.Tx) error {
		state := emptyState()
		data, err := tx.Get(ctx, key).Bytes()
		switch {
		case errors.Is(err, redis.Nil):
		case err != nil:
			return fmt.Errorf("failed to load visitor state: %w", err)
		default:
			if state, err = decode(data); err != nil {
				return err
			}
		}

		if err := fn(&state); err != nil {
			return err
		}

		encoded, err := json.Marshal(state)
		if err != nil {
			return fmt.Errorf("failed to encode visitor state: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, encoded, s.ttl)
			return nil
		})
		if err == nil {
			result = state
		}
		return err
	}

	for i := 0; i < maxUpdateRetries; i++ {
		err := s.client.Watch(ctx, txf, key)
		if err == nil {
			return result, nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return emptyState(), err
	}
	return emptyState(), ErrConflict
}

// Delete forgets the visitor
func (s *redisStore) Delete(ctx context.Context, visitorID string) error {
	if !ValidVisitorID(visitorID) {
		return ErrInvalidVisitorID
	}
	if err := s.client.Del(ctx, Key(visitorID)).Err(); err != nil {
		return fmt.Errorf("failed to delete visitor state: %w", err)
	}
	return nil
}
