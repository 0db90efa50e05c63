package repository

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loops-hq/loops-backend/internal/loops/domain"
)

func setupTestRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	mr, err := miniredis.Run()
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		client.Close()
		mr.Close()
	})
	return client, mr
}

func TestEventBus_PublishSubscribe(t *testing.T) {
	client, _ := setupTestRedis(t)
	bus := NewEventBus(client)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	projectID := uuid.New()
	events, closeSub, err := bus.Subscribe(ctx, projectID)
	require.NoError(t, err)
	defer closeSub()

	l := &domain.Loop{ID: uuid.New(), ProjectID: projectID, Status: domain.StatusClosed}
	require.NoError(t, bus.Publish(ctx, domain.NewLoopEvent(domain.EventLoopClosed, l, nil)))

	select {
	case ev := <-events:
		assert.Equal(t, domain.EventLoopClosed, ev.Type)
		assert.Equal(t, l.ID, ev.LoopID)
		assert.Equal(t, domain.StatusClosed, ev.Status)
	case <-ctx.Done():
		t.Fatal("timed out waiting for loop event")
	}
}

func TestEventBus_OtherProjectNotDelivered(t *testing.T) {
	client, _ := setupTestRedis(t)
	bus := NewEventBus(client)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	events, closeSub, err := bus.Subscribe(ctx, uuid.New())
	require.NoError(t, err)
	defer closeSub()

	other := &domain.Loop{ID: uuid.New(), ProjectID: uuid.New(), Status: domain.StatusOpen}
	require.NoError(t, bus.Publish(ctx, domain.NewLoopEvent(domain.EventLoopOpened, other, nil)))

	select {
	case ev := <-events:
		t.Fatalf("unexpected event %v", ev)
	case <-time.After(200 * time.Millisecond):
	}
}

func TestSummaryCache(t *testing.T) {
	client, mr := setupTestRedis(t)
	cache := NewSummaryCache(client, time.Minute)
	ctx := context.Background()
	user := uuid.New()

	t.Run("miss", func(t *testing.T) {
		s, ok, err := cache.Get(ctx, user)
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Nil(t, s)
	})

	t.Run("set then get", func(t *testing.T) {
		err := cache.Set(ctx, &domain.Summary{UserID: user, OpenCount: 2, ClosedCount: 1})
		require.NoError(t, err)

		s, ok, err := cache.Get(ctx, user)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, 2, s.OpenCount)
		assert.Equal(t, 1, s.ClosedCount)
		assert.Equal(t, time.Minute, mr.TTL("loops:summary:"+user.String()))
	})

	t.Run("expires", func(t *testing.T) {
		require.NoError(t, cache.Set(ctx, &domain.Summary{UserID: user}))
		mr.FastForward(2 * time.Minute)

		_, ok, err := cache.Get(ctx, user)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("invalidate", func(t *testing.T) {
		other := uuid.New()
		require.NoError(t, cache.Set(ctx, &domain.Summary{UserID: user}))
		require.NoError(t, cache.Set(ctx, &domain.Summary{UserID: other}))

		require.NoError(t, cache.Invalidate(ctx, user, other))

		_, ok, _ := cache.Get(ctx, user)
		assert.False(t, ok)
		_, ok, _ = cache.Get(ctx, other)
		assert.False(t, ok)
	})

	t.Run("garbage is a miss", func(t *testing.T) {
		require.NoError(t, mr.Set("loops:summary:"+user.String(), "{not json"))

		_, ok, err := cache.Get(ctx, user)
		require.NoError(t, err)
		assert.False(t, ok)
	})
}
