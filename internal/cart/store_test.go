package cart_test

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/fincra-gateway/internal/cart"
)

func newStore(t *testing.T) (*miniredis.Miniredis, cart.Store) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, cart.Store{R: client, TTL: time.Hour}
}

func TestAddItemsAndClear(t *testing.T) {
	mr, store := newStore(t)
	ctx := context.Background()

	require.NoError(t, store.AddItem(ctx, "cust-1", "sku-a", 2))
	require.NoError(t, store.AddItem(ctx, "cust-1", "sku-a", 1))
	require.NoError(t, store.AddItem(ctx, "cust-1", "sku-b", 4))
	require.NoError(t, store.AddItem(ctx, "cust-2", "sku-a", 1))

	items, err := store.Items(ctx, "cust-1")
	require.NoError(t, err)
	require.Equal(t, map[string]int{"sku-a": 3, "sku-b": 4}, items)
	require.Equal(t, time.Hour, mr.TTL("fincra:cart:cust-1"))

	require.NoError(t, store.Clear(ctx, "cust-1"))
	items, err = store.Items(ctx, "cust-1")
	require.NoError(t, err)
	require.Empty(t, items)

	other, err := store.Items(ctx, "cust-2")
	require.NoError(t, err)
	require.Equal(t, map[string]int{"sku-a": 1}, other)
}

func TestClearMissingCartIsNoop(t *testing.T) {
	_, store := newStore(t)
	require.NoError(t, store.Clear(context.Background(), "nobody"))
	require.NoError(t, store.Clear(context.Background(), ""))
}

func TestAddItemRejectsInvalidInput(t *testing.T) {
	_, store := newStore(t)
	require.ErrorIs(t, store.AddItem(context.Background(), "", "sku", 1), cart.ErrInvalidInput)
	require.ErrorIs(t, store.AddItem(context.Background(), "c", "sku", 0), cart.ErrInvalidInput)
}
