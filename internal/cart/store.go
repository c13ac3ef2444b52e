package cart

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrInvalidInput is returned when the provided identifiers or quantities are invalid.
var ErrInvalidInput = errors.New("invalid input")

const defaultTTL = 7 * 24 * time.Hour

// Store keeps server-side carts in Redis, one hash per customer keyed by SKU.
type Store struct {
	R      redis.Cmdable
	Prefix string
	TTL    time.Duration
}

func (s Store) key(customerID string) string {
	prefix := s.Prefix
	if prefix == "" {
		prefix = "fincra:cart"
	}
	return prefix + ":" + customerID
}

func (s Store) ttl() time.Duration {
	if s.TTL <= 0 {
		return defaultTTL
	}
	return s.TTL
}

// AddItem increments the quantity of sku in the customer's cart.
func (s Store) AddItem(ctx context.Context, customerID, sku string, qty int) error {
	if s.R == nil {
		return errors.New("cart store not configured")
	}
	customerID = strings.TrimSpace(customerID)
	sku = strings.TrimSpace(sku)
	if customerID == "" || sku == "" || qty <= 0 {
		return ErrInvalidInput
	}
	key := s.key(customerID)
	pipe := s.R.TxPipeline()
	pipe.HIncrBy(ctx, key, sku, int64(qty))
	pipe.Expire(ctx, key, s.ttl())
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("cart: add item: %w", err)
	}
	return nil
}

// Items returns the SKU quantities held in the customer's cart.
func (s Store) Items(ctx context.Context, customerID string) (map[string]int, error) {
	if s.R == nil {
		return nil, errors.New("cart store not configured")
	}
	raw, err := s.R.HGetAll(ctx, s.key(customerID)).Result()
	if err != nil {
		return nil, fmt.Errorf("cart: items: %w", err)
	}
	items := make(map[string]int, len(raw))
	for sku, v := range raw {
		qty, err := strconv.Atoi(v)
		if err != nil {
			continue
		}
		items[sku] = qty
	}
	return items, nil
}

// Clear empties the customer's cart. Clearing an absent cart is not an error.
func (s Store) Clear(ctx context.Context, customerID string) error {
	if s.R == nil {
		return errors.New("cart store not configured")
	}
	if strings.TrimSpace(customerID) == "" {
		return nil
	}
	if err := s.R.Del(ctx, s.key(customerID)).Err(); err != nil {
		return fmt.Errorf("cart: clear: %w", err)
	}
	return nil
}
