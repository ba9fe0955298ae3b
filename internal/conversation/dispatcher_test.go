package conversation

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDispatcher(t *testing.T) *Dispatcher {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	store := NewRedisStateStore(client, time.Hour, nil)
	o := NewOrchestrator(store, &stubLLM{reply: "Oi! Tudo certo por aí?"}, nil, OrchestratorConfig{})

	d := NewDispatcher(o, NewMemoryQueue(16), nil, WithWorkerCount(2), WithReceiveWaitSeconds(1))
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = d.Shutdown(ctx)
	})
	return d
}

func TestDispatchRoundTrip(t *testing.T) {
	d := newTestDispatcher(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	action, err := d.Dispatch(ctx, "5511999990000", "", "bom dia")
	require.NoError(t, err)
	assert.Equal(t, ActionReply, action.Type)
	assert.Equal(t, "Oi! Tudo certo por aí?", action.Text)
}

func TestDispatchConcurrentContacts(t *testing.T) {
	d := newTestDispatcher(t)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	contacts := []string{"c1", "c2", "c3", "c4"}
	var wg sync.WaitGroup
	for _, contact := range contacts {
		wg.Add(1)
		go func(contact string) {
			defer wg.Done()
			action, err := d.Dispatch(ctx, contact, "", "quanto custa o alevino")
			assert.NoError(t, err)
			assert.Equal(t, ActionReply, action.Type)
		}(contact)
	}
	wg.Wait()
}

func TestDispatchCancelledCaller(t *testing.T) {
	d := newTestDispatcher(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := d.Dispatch(ctx, "5511999990000", "", "oi")
	assert.Error(t, err)
}

func TestDispatcherShutdown(t *testing.T) {
	d := newTestDispatcher(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, d.Shutdown(ctx))
}
