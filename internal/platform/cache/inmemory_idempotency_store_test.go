package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryIdempotencyStore_Lifecycle(t *testing.T) {
	store := NewInMemoryIdempotencyStore()
	ctx := context.Background()

	resp, err := store.Load(ctx, "k1")
	require.NoError(t, err)
	assert.Nil(t, resp)

	ok, err := store.Reserve(ctx, "k1", time.Hour)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.Reserve(ctx, "k1", time.Hour)
	require.NoError(t, err)
	assert.False(t, ok, "second reservation must lose")

	_, err = store.Load(ctx, "k1")
	assert.ErrorIs(t, err, ErrInFlight)

	require.NoError(t, store.Complete(ctx, "k1", StoredResponse{Status: 201, ContentType: "application/json", Body: []byte(`{"a":1}`)}, time.Hour))

	resp, err = store.Load(ctx, "k1")
	require.NoError(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, 201, resp.Status)
	assert.JSONEq(t, `{"a":1}`, string(resp.Body))
}

func TestInMemoryIdempotencyStore_Release(t *testing.T) {
	store := NewInMemoryIdempotencyStore()
	ctx := context.Background()

	ok, _ := store.Reserve(ctx, "k", time.Hour)
	require.True(t, ok)
	require.NoError(t, store.Release(ctx, "k"))

	ok, err := store.Reserve(ctx, "k", time.Hour)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestInMemoryIdempotencyStore_Expiry(t *testing.T) {
	store := NewInMemoryIdempotencyStore()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, store.Complete(ctx, "k", StoredResponse{Status: 200}, time.Minute))
	assert.Equal(t, 1, store.Size())

	now = now.Add(2 * time.Minute)
	resp, err := store.Load(ctx, "k")
	require.NoError(t, err)
	assert.Nil(t, resp)

	ok, err := store.Reserve(ctx, "k", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok, "expired key can be reserved again")
}

func TestInMemoryIdempotencyStore_ConcurrentReserve(t *testing.T) {
	store := NewInMemoryIdempotencyStore()
	ctx := context.Background()

	var winners int32
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if ok, _ := store.Reserve(ctx, "same", time.Hour); ok {
				atomic.AddInt32(&winners, 1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), winners)
}
