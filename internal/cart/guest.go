package cart

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

const guestCartKeyPrefix = "guest_cart:"

// GuestStore holds pre-login carts keyed by the client's session id.
// Entries are ephemeral: they expire on their own and are removed after a
// successful merge.
type GuestStore interface {
	Get(ctx context.Context, sessionID string) ([]GuestItem, error)
	Save(ctx context.Context, sessionID string, items []GuestItem) error
	Delete(ctx context.Context, sessionID string) error
}

type guestStore struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewGuestStore(rdb *redis.Client, ttl time.Duration) GuestStore {
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	return &guestStore{rdb: rdb, ttl: ttl}
}

func (g *guestStore) Get(ctx context.Context, sessionID string) ([]GuestItem, error) {
	raw, err := g.rdb.Get(ctx, guestCartKeyPrefix+sessionID).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var items []GuestItem
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, err
	}
	return items, nil
}

func (g *guestStore) Save(ctx context.Context, sessionID string, items []GuestItem) error {
	raw, err := json.Marshal(items)
	if err != nil {
		return err
	}
	return g.rdb.Set(ctx, guestCartKeyPrefix+sessionID, raw, g.ttl).Err()
}

func (g *guestStore) Delete(ctx context.Context, sessionID string) error {
	return g.rdb.Del(ctx, guestCartKeyPrefix+sessionID).Err()
}
