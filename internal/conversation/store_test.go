package conversation

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T, ttl time.Duration) (*RedisStateStore, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return NewRedisStateStore(client, ttl, nil), mr
}

func TestStateStoreRoundTrip(t *testing.T) {
	store, _ := newTestStore(t, time.Hour)
	ctx := context.Background()

	c := NewContext("5511999990000", "")
	c.State = StateFarmDetails
	c.SetSlot("especie", "tilápia")
	c.InteractionCount = 4
	require.NoError(t, store.Save(ctx, c))

	got, err := store.Get(ctx, "5511999990000")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, StateFarmDetails, got.State)
	assert.Equal(t, "tilápia", got.CollectedData["especie"])
	assert.Equal(t, 4, got.InteractionCount)
	assert.False(t, got.UpdatedAt.IsZero())
}

func TestStateStoreMissingContact(t *testing.T) {
	store, _ := newTestStore(t, time.Hour)

	got, err := store.Get(context.Background(), "never-seen")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestStateStoreTTLRefresh(t *testing.T) {
	store, mr := newTestStore(t, time.Hour)
	ctx := context.Background()

	c := NewContext("5511999990000", "")
	require.NoError(t, store.Save(ctx, c))

	mr.FastForward(30 * time.Minute)
	require.NoError(t, store.Save(ctx, c))
	mr.FastForward(45 * time.Minute)

	// 75 minutes after the first save, the refreshed TTL keeps it alive.
	got, err := store.Get(ctx, "5511999990000")
	require.NoError(t, err)
	assert.NotNil(t, got)

	mr.FastForward(time.Hour)
	got, err = store.Get(ctx, "5511999990000")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestStateStoreDegradesOnBackendFailure(t *testing.T) {
	store, mr := newTestStore(t, time.Hour)
	ctx := context.Background()

	c := NewContext("5511999990000", "")
	require.NoError(t, store.Save(ctx, c))

	mr.Close()

	// Reads degrade to "no context" instead of failing the message.
	got, err := store.Get(ctx, "5511999990000")
	require.NoError(t, err)
	assert.Nil(t, got)

	// Writes surface the error so callers can log it.
	assert.Error(t, store.Save(ctx, c))
}

func TestStateStoreCorruptPayload(t *testing.T) {
	store, mr := newTestStore(t, time.Hour)

	require.NoError(t, mr.Set(stateKey("broken"), "{not json"))
	got, err := store.Get(context.Background(), "broken")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestStateStoreDelete(t *testing.T) {
	store, _ := newTestStore(t, time.Hour)
	ctx := context.Background()

	c := NewContext("5511999990000", "")
	require.NoError(t, store.Save(ctx, c))
	require.NoError(t, store.Delete(ctx, "5511999990000"))

	got, err := store.Get(ctx, "5511999990000")
	require.NoError(t, err)
	assert.Nil(t, got)
}
